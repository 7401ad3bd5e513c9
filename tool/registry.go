package tool

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/medisync/medisync/core"
	"github.com/medisync/medisync/internal/util"
	"github.com/medisync/medisync/logging"
)

// Registry owns the tool table, alias table, resource table and invocation
// history for one server instance. Construct it explicitly with NewRegistry
// and pass it by reference; there is no implicit global instance.
//
// All public methods are safe for concurrent use. Tool handlers run outside
// the internal lock, so a handler may call back into the registry.
type Registry struct {
	mu sync.Mutex

	serverName string
	version    string
	serverID   string
	logger     logging.Logger

	tools     map[string]Definition
	toolOrder []string
	aliases   map[string]string

	invocations []Invocation

	resources     map[string]Resource
	resourceOrder []string

	totalInvocations      int
	successfulInvocations int
	failedInvocations     int
	totalResources        int
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// ServerName identifies the registry in server info exports.
	ServerName string
	// Version is the semantic version reported by the registry.
	Version string
	// Logger receives warnings and invocation telemetry. Defaults to NoOpLogger.
	Logger logging.Logger
}

// WithServerName overrides the reported server name.
func WithServerName(name string) func(*RegistryOptions) {
	return func(o *RegistryOptions) { o.ServerName = name }
}

// WithVersion overrides the reported version.
func WithVersion(v string) func(*RegistryOptions) {
	return func(o *RegistryOptions) { o.Version = v }
}

// WithRegistryLogger supplies a structured logger.
func WithRegistryLogger(l logging.Logger) func(*RegistryOptions) {
	return func(o *RegistryOptions) { o.Logger = l }
}

// NewRegistry constructs an empty Registry with a fresh server identifier.
func NewRegistry(optFns ...func(*RegistryOptions)) *Registry {
	opts := RegistryOptions{
		ServerName: "MediSync Tool Registry",
		Version:    "1.0.0",
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	r := &Registry{
		serverName: opts.ServerName,
		version:    opts.Version,
		serverID:   core.NewID(),
		logger:     opts.Logger,
		tools:      make(map[string]Definition),
		aliases:    make(map[string]string),
		resources:  make(map[string]Resource),
	}
	r.logger.Info("tool registry initialized", "server_name", r.serverName, "server_id", r.serverID)
	return r
}

// Register inserts a definition by name, overwriting any existing definition
// of the same name (a warning is emitted, not an error). Each alias becomes a
// pointer to the canonical name, silently overwriting prior bindings. It
// returns the canonical name.
func (r *Registry) Register(def Definition, aliases ...string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		r.logger.Warn("tool already registered, overwriting", "tool", def.Name)
	} else {
		r.toolOrder = append(r.toolOrder, def.Name)
	}
	r.tools[def.Name] = def

	for _, alias := range aliases {
		r.aliases[alias] = def.Name
		r.logger.Info("tool alias registered", "alias", alias, "tool", def.Name)
	}

	r.logger.Info("tool registered", "tool", def.Name, "type", string(def.Type))
	return def.Name
}

// Unregister removes a definition and every alias pointing to it. An unknown
// name is a no-op that only emits a warning; the return value reports whether
// anything was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[name]; !ok {
		r.logger.Warn("tool not found", "tool", name)
		return false
	}
	delete(r.tools, name)
	for i, n := range r.toolOrder {
		if n == name {
			r.toolOrder = append(r.toolOrder[:i:i], r.toolOrder[i+1:]...)
			break
		}
	}
	for alias, target := range r.aliases {
		if target == name {
			delete(r.aliases, alias)
		}
	}
	r.logger.Info("tool unregistered", "tool", name)
	return true
}

// Get resolves a tool by canonical name first, then by alias.
func (r *Registry) Get(nameOrAlias string) (Definition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(nameOrAlias)
}

func (r *Registry) getLocked(nameOrAlias string) (Definition, bool) {
	if def, ok := r.tools[nameOrAlias]; ok {
		return def, true
	}
	if canonical, ok := r.aliases[nameOrAlias]; ok {
		def, ok := r.tools[canonical]
		return def, ok
	}
	return Definition{}, false
}

// List returns registered definitions matching both filters when supplied
// (logical AND); a zero-valued filter matches everything for that dimension.
// Order follows first registration order.
func (r *Registry) List(filterType Type, tag string) []Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Definition
	for _, name := range r.toolOrder {
		def, ok := r.tools[name]
		if !ok {
			continue
		}
		if filterType != "" && def.Type != filterType {
			continue
		}
		if tag != "" && !containsTag(def.Tags, tag) {
			continue
		}
		out = append(out, def)
	}
	return out
}

// Invoke resolves and executes a tool synchronously, recording the full
// invocation lifecycle. It returns a success flag and the result object on
// success, or a structured {error} object on failure. Failures are values,
// never panics: lookup misses, missing required parameters, handler errors
// and handler panics all come back as (false, {error}).
func (r *Registry) Invoke(nameOrAlias string, params map[string]any) (bool, map[string]any) {
	r.mu.Lock()
	inv := newInvocation(nameOrAlias, params)
	r.invocations = append(r.invocations, inv)
	idx := len(r.invocations) - 1

	def, found := r.getLocked(nameOrAlias)
	if !found {
		toolErr := NewToolError(nameOrAlias, fmt.Sprintf("tool not found: %s", nameOrAlias), CodeToolNotFound)
		r.invocations[idx].Status = StatusFailed
		r.invocations[idx].Error = toolErr.Message
		r.failedInvocations++
		r.mu.Unlock()
		r.logger.Error("tool invocation rejected", "tool", nameOrAlias, "error", toolErr.Message)
		return false, map[string]any{"error": toolErr.Message}
	}

	if missing := util.MissingRequired(params, def.RequiredParameters()); len(missing) > 0 {
		toolErr := NewToolError(def.Name,
			fmt.Sprintf("missing required parameters: %s", strings.Join(missing, ", ")),
			CodeMissingParameters)
		r.invocations[idx].Status = StatusFailed
		r.invocations[idx].Error = toolErr.Message
		r.failedInvocations++
		r.mu.Unlock()
		r.logger.Error("tool invocation rejected", "tool", def.Name, "error", toolErr.Message)
		return false, map[string]any{"error": toolErr.Message}
	}

	r.invocations[idx].Status = StatusExecuting
	r.mu.Unlock()

	start := time.Now()
	result, err := runTool(def.Handler, params)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	r.mu.Lock()
	r.invocations[idx].DurationMS = elapsed
	r.totalInvocations++
	if err != nil {
		r.invocations[idx].Status = StatusFailed
		r.invocations[idx].Error = err.Error()
		r.failedInvocations++
		r.mu.Unlock()
		r.logger.Error("tool invocation failed", "tool", def.Name, "error", err.Error())
		return false, map[string]any{"error": err.Error()}
	}
	r.invocations[idx].Status = StatusCompleted
	r.invocations[idx].Result = result
	r.successfulInvocations++
	r.mu.Unlock()

	r.logger.Info("tool invoked", "tool", def.Name, "duration_ms", elapsed)
	return true, result
}

// runTool executes a handler, converting panics into errors so a misbehaving
// tool cannot take down the caller.
func runTool(h Handler, params map[string]any) (result map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	if h == nil {
		return nil, fmt.Errorf("tool has no handler")
	}
	return h(params)
}

// Invocations returns a copy of the most recent limit invocation records, or
// all of them when limit is zero or negative.
func (r *Registry) Invocations(limit int) []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.invocations
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	out := make([]Invocation, len(recs))
	copy(out, recs)
	return out
}

// ServerInfo aggregates registry identity, table sizes and invocation
// statistics. The success rate divides by max(total, 1) so a registry with no
// invocations yet reports zero instead of dividing by zero.
type ServerInfo struct {
	ServerID       string          `json:"server_id"`
	ServerName     string          `json:"server_name"`
	Version        string          `json:"version"`
	ToolsCount     int             `json:"tools_count"`
	ResourcesCount int             `json:"resources_count"`
	Statistics     InvocationStats `json:"statistics"`
}

// InvocationStats carries the registry counters and the derived success rate
// as a percentage.
type InvocationStats struct {
	TotalInvocations      int     `json:"total_invocations"`
	SuccessfulInvocations int     `json:"successful_invocations"`
	FailedInvocations     int     `json:"failed_invocations"`
	TotalResources        int     `json:"total_resources"`
	SuccessRate           float64 `json:"invocation_success_rate"`
}

// ServerInfo returns a snapshot of registry identity and statistics.
func (r *Registry) ServerInfo() ServerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := r.totalInvocations
	if total < 1 {
		total = 1
	}
	return ServerInfo{
		ServerID:       r.serverID,
		ServerName:     r.serverName,
		Version:        r.version,
		ToolsCount:     len(r.tools),
		ResourcesCount: len(r.resources),
		Statistics: InvocationStats{
			TotalInvocations:      r.totalInvocations,
			SuccessfulInvocations: r.successfulInvocations,
			FailedInvocations:     r.failedInvocations,
			TotalResources:        r.totalResources,
			SuccessRate:           float64(r.successfulInvocations) / float64(total) * 100,
		},
	}
}

// Metrics is the export shape carrying server info, the tool list, the most
// recent invocation records and the resource list.
type Metrics struct {
	ServerInfo  ServerInfo   `json:"server_info"`
	Tools       []Definition `json:"tools"`
	Invocations []Invocation `json:"invocations"`
	Resources   []Resource   `json:"resources"`
}

// exportInvocationLimit bounds the invocation history included in metrics
// exports.
const exportInvocationLimit = 100

// ExportMetrics returns the full metrics snapshot: server info, every tool,
// the last 100 invocations and every resource.
func (r *Registry) ExportMetrics() Metrics {
	return Metrics{
		ServerInfo:  r.ServerInfo(),
		Tools:       r.List("", ""),
		Invocations: r.Invocations(exportInvocationLimit),
		Resources:   r.ListResources("", ""),
	}
}
