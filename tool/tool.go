// Package tool implements the tool invocation registry that lets agents
// expose structured capabilities (APIs, computations, side-effects) with
// validated parameters, aliasing, resource tracking and a recorded lifecycle
// for every invocation.
package tool

import (
	"fmt"
)

// Type categorizes where a tool's implementation lives.
type Type string

const (
	// TypeBuiltin marks tools backed by the host application itself.
	TypeBuiltin Type = "builtin"
	// TypeCustom marks project-specific tools (parsers, graph utilities).
	TypeCustom Type = "custom"
	// TypeAPI marks tools delegating to external vendor APIs.
	TypeAPI Type = "api"
	// TypeOpenAPI marks tools delegating to open/standard APIs.
	TypeOpenAPI Type = "open_api"
)

// ParamType is the closed set of parameter type tags.
type ParamType string

const (
	// ParamString accepts string values.
	ParamString ParamType = "string"
	// ParamNumber accepts integer and floating point values.
	ParamNumber ParamType = "number"
	// ParamBoolean accepts boolean values.
	ParamBoolean ParamType = "boolean"
	// ParamObject accepts key/value objects.
	ParamObject ParamType = "object"
	// ParamArray accepts arrays.
	ParamArray ParamType = "array"
)

// Parameter describes one expected input of a tool.
type Parameter struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	Default     any       `json:"default"`
}

// Handler is the executable body of a tool. It runs synchronously on the
// caller's goroutine with the supplied parameters and returns a result
// object or an error.
type Handler func(params map[string]any) (map[string]any, error)

// Definition describes an invocable capability. Name is the unique registry
// key; aliases are registered separately at registration time.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        Type        `json:"type"`
	Version     string      `json:"version"`
	Parameters  []Parameter `json:"parameters"`
	Tags        []string    `json:"tags"`
	Handler     Handler     `json:"-"`
}

// RequiredParameters returns the names of the required parameters.
func (d Definition) RequiredParameters() []string {
	var required []string
	for _, p := range d.Parameters {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return required
}

// Error codes attached to ToolError values.
const (
	// CodeToolNotFound: the name resolved to neither a tool nor an alias.
	CodeToolNotFound = "TOOL_NOT_FOUND"
	// CodeMissingParameters: required parameters were absent; the handler never ran.
	CodeMissingParameters = "MISSING_PARAMETERS"
	// CodeExecutionError: the handler returned an error or panicked.
	CodeExecutionError = "EXECUTION_ERROR"
)

// ToolError represents a structured tool invocation failure.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
