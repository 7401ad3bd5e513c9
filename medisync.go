// Package medisync provides a high-level façade over the message bus, the
// tool invocation registry and the patient knowledge graph, enabling rapid
// construction of care-transition workflows. Most applications interact
// with this package by:
//  1. Creating a MediSync via New() (optionally overriding the config,
//     logger or completion model)
//  2. Feeding discharge summaries through ProcessDischarge
//  3. Invoking registered tools through Registry(), or inspecting state
//     through Graph() and Bus()
//
// The façade wires the Analyzer and Pharmacist agents onto the bus and
// registers the default clinical toolset. All defaults are safe for local
// development and testing.
package medisync

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"

	"github.com/medisync/medisync/agent"
	"github.com/medisync/medisync/bus"
	"github.com/medisync/medisync/config"
	"github.com/medisync/medisync/core"
	"github.com/medisync/medisync/graph"
	"github.com/medisync/medisync/logging"
	"github.com/medisync/medisync/model"
	"github.com/medisync/medisync/model/anthropic"
	"github.com/medisync/medisync/model/openai"
	"github.com/medisync/medisync/tool"
)

// Options configures the MediSync instance.
type Options struct {
	// Config provides bus, registry, model and logging settings. Defaults
	// to config.DefaultConfig().
	Config config.Config

	// PatientID seeds the knowledge graph. It may be empty; the graph
	// adopts the patient ID of the first discharge summary stored.
	PatientID string

	// Completer overrides the model selected by Config.Model. Optional.
	Completer model.Completer

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// MediSync is the high-level façade aggregating the bus, registry, graph
// and clinical agents.
type MediSync struct {
	opts Options

	mbus       *bus.Bus
	registry   *tool.Registry
	kg         *graph.PatientGraph
	analyzer   *agent.Analyzer
	pharmacist *agent.Pharmacist
	logger     logging.Logger
}

// New creates a new MediSync instance with optional overrides.
func New(optFns ...func(o *Options)) *MediSync {
	opts := Options{
		Config: config.DefaultConfig(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	m := &MediSync{opts: opts, logger: opts.Logger}
	m.init()
	return m
}

// init builds the bus, registry, graph and agents from the options. Reset
// calls it again to discard all state.
func (m *MediSync) init() {
	cfg := m.opts.Config

	policy := bus.DispatchGenericFirst
	if cfg.Bus.DispatchPolicy == "specific_first" {
		policy = bus.DispatchSpecificFirst
	}

	m.mbus = bus.New(
		bus.WithMaxQueueSize(cfg.Bus.MaxQueueSize),
		bus.WithDispatchPolicy(policy),
		bus.WithLogger(m.logger),
	)
	m.registry = tool.NewRegistry(
		tool.WithServerName(cfg.Registry.ServerName),
		tool.WithVersion(cfg.Registry.Version),
		tool.WithRegistryLogger(m.logger),
	)
	m.kg = graph.NewPatientGraph(m.opts.PatientID)

	completer := m.opts.Completer
	if completer == nil {
		completer = newCompleter(cfg.Model)
	}

	m.analyzer = agent.NewAnalyzer(m.kg, func(o *agent.AnalyzerOptions) {
		o.Bus = m.mbus
		o.Completer = completer
		o.Logger = m.logger
	})
	m.pharmacist = agent.NewPharmacist(m.kg, func(o *agent.PharmacistOptions) {
		o.Bus = m.mbus
		o.Logger = m.logger
	})
	m.mbus.RegisterAgent(agent.CoordinatorName)

	m.registerBusHandlers()
	m.registerDefaultTools()
}

// newCompleter selects a completion backend from the model config.
func newCompleter(cfg config.ModelConfig) model.Completer {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewCompleter(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			if cfg.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.MaxTokens)
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.AnthropicAPIKey
		})
	case "openai":
		return openai.NewCompleter(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = openaisdk.ChatModel(cfg.Model)
			}
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.OpenAIAPIKey
		})
	default:
		return model.NewMockCompleter("medisync-mock")
	}
}

// registerBusHandlers wires the pharmacist behind the analyzer: requests
// from the analyzer trigger an interaction check and produce a correlated
// response.
func (m *MediSync) registerBusHandlers() {
	m.mbus.RegisterHandler(func(msg core.Message) (*core.Message, error) {
		action, _ := msg.Payload["action"].(string)
		if action != "analyze_medications" {
			return nil, fmt.Errorf("unsupported action %q", action)
		}
		analysis := m.pharmacist.CheckMedicationInteractions()
		resp := core.NewResponse(agent.PharmacistName, msg.Sender, msg.CorrelationID, map[string]any{
			"risk_level":         analysis.Findings["risk_level"],
			"total_interactions": analysis.Findings["total_interactions"],
		}, true)
		return &resp, nil
	}, core.MessageTypeRequest, agent.AnalyzerName)
}

// registerDefaultTools installs the default clinical toolset.
func (m *MediSync) registerDefaultTools() {
	m.registry.Register(tool.Definition{
		Name:        "analyze_discharge",
		Description: "Parse a discharge summary into the patient knowledge graph",
		Type:        tool.TypeCustom,
		Version:     "1.0.0",
		Parameters: []tool.Parameter{
			{Name: "summary", Type: tool.ParamObject, Description: "Discharge summary field map", Required: true},
		},
		Tags: []string{"clinical", "analysis"},
		Handler: func(params map[string]any) (map[string]any, error) {
			summary, ok := params["summary"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("summary must be an object")
			}
			fields := make(map[string]string, len(summary))
			for k, v := range summary {
				fields[k] = fmt.Sprint(v)
			}
			analysis := m.analyzer.AnalyzeDischargeSummary(context.Background(), fields)
			return map[string]any{
				"status":   string(analysis.Status),
				"findings": analysis.Findings,
			}, nil
		},
	}, "analyze_summary")

	m.registry.Register(tool.Definition{
		Name:        "check_interactions",
		Description: "Screen the current medication regimen for drug-drug interactions",
		Type:        tool.TypeCustom,
		Version:     "1.0.0",
		Tags:        []string{"clinical", "safety"},
		Handler: func(map[string]any) (map[string]any, error) {
			analysis := m.pharmacist.CheckMedicationInteractions()
			return map[string]any{
				"status":          string(analysis.Status),
				"findings":        analysis.Findings,
				"recommendations": analysis.Recommendations,
			}, nil
		},
	}, "drug_check")

	m.registry.Register(tool.Definition{
		Name:        "get_patient_summary",
		Description: "Render the patient's state as agent-readable text",
		Type:        tool.TypeBuiltin,
		Version:     "1.0.0",
		Tags:        []string{"clinical"},
		Handler: func(map[string]any) (map[string]any, error) {
			return map[string]any{"summary": m.kg.SummaryForAgent()}, nil
		},
	})

	m.registry.Register(tool.Definition{
		Name:        "store_resource",
		Description: "Store an arbitrary data resource in the registry",
		Type:        tool.TypeBuiltin,
		Version:     "1.0.0",
		Parameters: []tool.Parameter{
			{Name: "name", Type: tool.ParamString, Description: "Resource name", Required: true},
			{Name: "type", Type: tool.ParamString, Description: "Resource type", Required: true},
			{Name: "data", Type: tool.ParamObject, Description: "Resource payload"},
		},
		Tags: []string{"storage"},
		Handler: func(params map[string]any) (map[string]any, error) {
			name := fmt.Sprint(params["name"])
			resourceType := fmt.Sprint(params["type"])
			data, _ := params["data"].(map[string]any)
			res := m.registry.CreateResource(name, resourceType, data, nil)
			return map[string]any{"resource_id": res.ID}, nil
		},
	})
}

// ProcessDischarge runs the full pipeline for one discharge summary: the
// analyzer structures it, the queued request to the pharmacist is
// dispatched, and both analyses are returned.
func (m *MediSync) ProcessDischarge(ctx context.Context, data map[string]string) (analyzer graph.AgentAnalysis, pharmacist graph.AgentAnalysis, err error) {
	analyzer = m.analyzer.AnalyzeDischargeSummary(ctx, data)
	m.mbus.ProcessQueue()

	pharmacist, ok := m.kg.LatestAgentAnalysis(agent.PharmacistName)
	if !ok {
		return analyzer, pharmacist, fmt.Errorf("pharmacist analysis was not produced")
	}
	return analyzer, pharmacist, nil
}

// Bus returns the message bus.
func (m *MediSync) Bus() *bus.Bus { return m.mbus }

// Registry returns the tool registry.
func (m *MediSync) Registry() *tool.Registry { return m.registry }

// Graph returns the patient knowledge graph.
func (m *MediSync) Graph() *graph.PatientGraph { return m.kg }

// Analyzer returns the discharge summary analyzer agent.
func (m *MediSync) Analyzer() *agent.Analyzer { return m.analyzer }

// Pharmacist returns the medication safety agent.
func (m *MediSync) Pharmacist() *agent.Pharmacist { return m.pharmacist }

// Reset discards all runtime state: queued and processed messages,
// invocation records, resources and the knowledge graph. The default
// toolset and bus handlers are registered anew.
func (m *MediSync) Reset() {
	m.init()
}
