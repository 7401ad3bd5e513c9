// Package util holds small validation and map helpers shared by the bus and
// the tool registry. It lives in internal to avoid committing to public API
// stability prematurely.
package util

import (
	"fmt"
	"sort"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// MissingRequired returns the required names absent from the provided argument
// map, sorted for stable error messages.
func MissingRequired(provided map[string]any, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := provided[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// IsValidType checks if a value matches the expected parameter type tag
// (string, number, boolean, object, array). Nil is valid for any type and
// unknown tags are assumed valid.
func IsValidType(value any, expectedType string) bool {
	if value == nil {
		return true
	}

	switch expectedType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

// CloneMap returns a shallow copy of a string-keyed map. A nil input yields
// an empty non-nil map so callers can mutate the result safely.
func CloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CloneStrings returns a copy of a string slice, preserving nil.
func CloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
