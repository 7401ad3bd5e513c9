package tool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string, params ...Parameter) Definition {
	return Definition{
		Name:        name,
		Description: "echoes its input",
		Type:        TypeCustom,
		Version:     "1.0.0",
		Parameters:  params,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{"echo": args}, nil
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	name := r.Register(echoTool("echo"))
	assert.Equal(t, "echo", name)

	def, ok := r.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", def.Name)

	_, ok = r.Get("nope")
	assert.False(t, ok)
}

func TestAliasResolution(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("canonical"), "alias_a", "alias_b")

	byAlias, ok := r.Get("alias_a")
	require.True(t, ok)
	byName, _ := r.Get("canonical")
	assert.Equal(t, byName.Name, byAlias.Name)
}

func TestAliasSurvivesReRegistration(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("t"), "shortcut")

	calls := 0
	replacement := Definition{
		Name: "t",
		Type: TypeBuiltin,
		Handler: func(map[string]any) (map[string]any, error) {
			calls++
			return map[string]any{"v": 2}, nil
		},
	}
	r.Register(replacement)

	ok, result := r.Invoke("shortcut", nil)
	require.True(t, ok)
	assert.Equal(t, 1, calls)
	assert.Equal(t, map[string]any{"v": 2}, result)
}

func TestRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("t"))

	newCalls := 0
	r.Register(Definition{
		Name: "t",
		Type: TypeAPI,
		Handler: func(map[string]any) (map[string]any, error) {
			newCalls++
			return map[string]any{}, nil
		},
	})

	assert.Len(t, r.List("", ""), 1)
	ok, _ := r.Invoke("t", nil)
	assert.True(t, ok)
	assert.Equal(t, 1, newCalls)
}

func TestUnregisterRemovesAliases(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("t"), "alias")

	assert.True(t, r.Unregister("t"))
	_, ok := r.Get("t")
	assert.False(t, ok)
	_, ok = r.Get("alias")
	assert.False(t, ok)

	assert.False(t, r.Unregister("t"))
}

func TestListFilters(t *testing.T) {
	r := NewRegistry()
	r.Register(Definition{Name: "a", Type: TypeBuiltin, Tags: []string{"clinical"}})
	r.Register(Definition{Name: "b", Type: TypeCustom, Tags: []string{"clinical", "parsing"}})
	r.Register(Definition{Name: "c", Type: TypeCustom, Tags: []string{"export"}})

	assert.Len(t, r.List("", ""), 3)
	assert.Len(t, r.List(TypeCustom, ""), 2)
	assert.Len(t, r.List("", "clinical"), 2)
	// Both filters are ANDed.
	got := r.List(TypeCustom, "clinical")
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Name)
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("first"))
	r.Register(echoTool("second"))
	r.Register(echoTool("third"))

	names := []string{}
	for _, d := range r.List("", "") {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"first", "second", "third"}, names)
}

func TestInvokeToolNotFound(t *testing.T) {
	r := NewRegistry()
	ok, result := r.Invoke("ghost", map[string]any{})

	assert.False(t, ok)
	assert.Contains(t, result["error"], "tool not found")

	// Failed lookup still produced an invocation record.
	recs := r.Invocations(0)
	require.Len(t, recs, 1)
	assert.Equal(t, StatusFailed, recs[0].Status)
	assert.Equal(t, "ghost", recs[0].ToolName)

	stats := r.ServerInfo().Statistics
	assert.Equal(t, 0, stats.TotalInvocations)
	assert.Equal(t, 1, stats.FailedInvocations)
}

func TestInvokeMissingRequiredParameters(t *testing.T) {
	r := NewRegistry()
	handlerCalls := 0
	r.Register(Definition{
		Name: "t",
		Parameters: []Parameter{
			{Name: "x", Type: ParamNumber, Required: true},
			{Name: "opt", Type: ParamString, Required: false},
		},
		Handler: func(args map[string]any) (map[string]any, error) {
			handlerCalls++
			return map[string]any{"got": args["x"]}, nil
		},
	})

	ok, result := r.Invoke("t", map[string]any{})
	assert.False(t, ok)
	assert.Contains(t, result["error"], "x")
	assert.Equal(t, 0, handlerCalls, "handler must not run when validation fails")

	ok, result = r.Invoke("t", map[string]any{"x": 1})
	require.True(t, ok)
	assert.Equal(t, 1, handlerCalls)
	assert.Equal(t, 1, result["got"])
}

func TestInvokeRecordsLifecycle(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("echo"))

	ok, _ := r.Invoke("echo", map[string]any{"k": "v"})
	require.True(t, ok)

	recs := r.Invocations(0)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.True(t, rec.Status.Terminal())
	assert.NotEmpty(t, rec.ID)
	assert.Empty(t, rec.Error)
	assert.NotNil(t, rec.Result)
	assert.GreaterOrEqual(t, rec.DurationMS, 0.0)
}

func TestInvokeHandlerError(t *testing.T) {
	r := NewRegistry()
	r.Register(Definition{
		Name: "broken",
		Handler: func(map[string]any) (map[string]any, error) {
			return nil, errors.New("kaboom")
		},
	})

	ok, result := r.Invoke("broken", nil)
	assert.False(t, ok)
	assert.Equal(t, "kaboom", result["error"])

	stats := r.ServerInfo().Statistics
	assert.Equal(t, 1, stats.TotalInvocations)
	assert.Equal(t, 1, stats.FailedInvocations)
	assert.Equal(t, 0, stats.SuccessfulInvocations)
}

func TestInvokeHandlerPanicIsAbsorbed(t *testing.T) {
	r := NewRegistry()
	r.Register(Definition{
		Name: "panicky",
		Handler: func(map[string]any) (map[string]any, error) {
			panic("oh no")
		},
	})

	assert.NotPanics(t, func() {
		ok, result := r.Invoke("panicky", nil)
		assert.False(t, ok)
		assert.Contains(t, result["error"], "handler panic")
	})
	recs := r.Invocations(0)
	require.Len(t, recs, 1)
	assert.Equal(t, StatusFailed, recs[0].Status)
}

func TestSuccessRate(t *testing.T) {
	r := NewRegistry()
	// No invocations yet: rate must be zero, not a division by zero.
	assert.Equal(t, 0.0, r.ServerInfo().Statistics.SuccessRate)

	r.Register(echoTool("echo"))
	r.Register(Definition{Name: "broken", Handler: func(map[string]any) (map[string]any, error) {
		return nil, errors.New("x")
	}})

	r.Invoke("echo", nil)
	r.Invoke("echo", nil)
	r.Invoke("echo", nil)
	r.Invoke("broken", nil)

	assert.InDelta(t, 75.0, r.ServerInfo().Statistics.SuccessRate, 0.001)
}

func TestResourceLifecycle(t *testing.T) {
	r := NewRegistry()
	res := r.CreateResource("interactions", "knowledge_base", map[string]any{"entries": 6}, []string{"clinical"})
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, res.CreatedAt, res.AccessedAt)

	got, ok := r.GetResource(res.ID)
	require.True(t, ok)
	assert.True(t, !got.AccessedAt.Before(res.AccessedAt))

	// A read bumps the stored last-accessed timestamp.
	again, _ := r.GetResource(res.ID)
	assert.True(t, !again.AccessedAt.Before(got.AccessedAt))

	assert.True(t, r.DeleteResource(res.ID))
	_, ok = r.GetResource(res.ID)
	assert.False(t, ok)
	assert.False(t, r.DeleteResource(res.ID))
}

func TestListResourcesFilters(t *testing.T) {
	r := NewRegistry()
	r.CreateResource("a", "kb", nil, []string{"x"})
	r.CreateResource("b", "kb", nil, []string{"y"})
	r.CreateResource("c", "doc", nil, []string{"x"})

	assert.Len(t, r.ListResources("", ""), 3)
	assert.Len(t, r.ListResources("kb", ""), 2)
	assert.Len(t, r.ListResources("", "x"), 2)
	assert.Len(t, r.ListResources("kb", "x"), 1)
}

func TestExportMetrics(t *testing.T) {
	r := NewRegistry(WithServerName("Test Registry"), WithVersion("2.1.0"))
	r.Register(echoTool("echo"))
	r.CreateResource("res", "kb", nil, nil)
	for i := 0; i < 150; i++ {
		r.Invoke("echo", nil)
	}

	m := r.ExportMetrics()
	assert.Equal(t, "Test Registry", m.ServerInfo.ServerName)
	assert.Equal(t, "2.1.0", m.ServerInfo.Version)
	assert.Len(t, m.Tools, 1)
	assert.Len(t, m.Resources, 1)
	// Only the most recent 100 invocation records are exported.
	assert.Len(t, m.Invocations, 100)
	assert.Equal(t, 150, m.ServerInfo.Statistics.TotalInvocations)
}

func TestToolError(t *testing.T) {
	err := NewToolError("t", "boom", CodeExecutionError)
	assert.Contains(t, err.Error(), "EXECUTION_ERROR")
	assert.Contains(t, err.Error(), "t")

	plain := &ToolError{Tool: "t", Message: "boom"}
	assert.Equal(t, "tool error in t: boom", plain.Error())
}
