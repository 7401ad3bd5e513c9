package medisync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisync/medisync/agent"
	"github.com/medisync/medisync/graph"
)

func dischargeFixture() map[string]string {
	return map[string]string{
		"patient_id":        "P001",
		"name":              "John Smith",
		"discharge_date":    "2025-02-07",
		"primary_diagnosis": "Acute Myocardial Infarction",
		"medications":       "Warfarin 5mg daily, Aspirin 81mg daily, Metoprolol 50mg daily",
		"follow_up":         "Cardiology in 1 week",
	}
}

func TestProcessDischarge(t *testing.T) {
	m := New(func(o *Options) { o.PatientID = "P001" })

	analyzerResult, pharmacistResult, err := m.ProcessDischarge(context.Background(), dischargeFixture())
	require.NoError(t, err)

	assert.Equal(t, graph.AnalysisCompleted, analyzerResult.Status)
	assert.Equal(t, 3, analyzerResult.Findings["medications_extracted"])

	assert.Equal(t, graph.AnalysisCompleted, pharmacistResult.Status)
	assert.Equal(t, "CRITICAL", pharmacistResult.Findings["risk_level"])

	// the analyzer request was processed and answered
	stats := m.Bus().Statistics()
	assert.Equal(t, 1, stats.ProcessedMessages)

	// the pharmacist queued a coordinator notification during processing
	queued := m.Bus().MessagesForAgent(agent.CoordinatorName)
	assert.Len(t, queued, 1)
}

func TestDefaultToolset(t *testing.T) {
	m := New()

	for _, name := range []string{"analyze_discharge", "check_interactions", "get_patient_summary", "store_resource"} {
		_, ok := m.Registry().Get(name)
		assert.True(t, ok, name)
	}
	// aliases resolve
	_, ok := m.Registry().Get("analyze_summary")
	assert.True(t, ok)
	_, ok = m.Registry().Get("drug_check")
	assert.True(t, ok)
}

func TestInvokeAnalyzeDischargeTool(t *testing.T) {
	m := New()

	summary := map[string]any{}
	for k, v := range dischargeFixture() {
		summary[k] = v
	}
	ok, result := m.Registry().Invoke("analyze_summary", map[string]any{"summary": summary})
	require.True(t, ok, "result: %v", result)
	assert.Equal(t, "completed", result["status"])

	assert.Len(t, m.Graph().CurrentMedications(), 3)
}

func TestInvokeCheckInteractionsTool(t *testing.T) {
	m := New()
	m.Graph().AddMedication(graph.MedicationRecord{Name: "Warfarin"})
	m.Graph().AddMedication(graph.MedicationRecord{Name: "Aspirin"})

	ok, result := m.Registry().Invoke("drug_check", nil)
	require.True(t, ok)
	findings, ok2 := result["findings"].(map[string]any)
	require.True(t, ok2)
	assert.Equal(t, "CRITICAL", findings["risk_level"])
}

func TestInvokeStoreResourceTool(t *testing.T) {
	m := New()

	ok, result := m.Registry().Invoke("store_resource", map[string]any{
		"name": "discharge-note",
		"type": "document",
		"data": map[string]any{"text": "..."},
	})
	require.True(t, ok)

	id, _ := result["resource_id"].(string)
	res, found := m.Registry().GetResource(id)
	require.True(t, found)
	assert.Equal(t, "discharge-note", res.Name)
}

func TestInvokeGetPatientSummaryTool(t *testing.T) {
	m := New(func(o *Options) { o.PatientID = "P001" })
	m.Graph().AddMedication(graph.MedicationRecord{Name: "Aspirin", Dosage: "81mg", Frequency: "daily"})

	ok, result := m.Registry().Invoke("get_patient_summary", nil)
	require.True(t, ok)
	summary, _ := result["summary"].(string)
	assert.Contains(t, summary, "Aspirin")
}

func TestReset(t *testing.T) {
	m := New(func(o *Options) { o.PatientID = "P001" })
	_, _, err := m.ProcessDischarge(context.Background(), dischargeFixture())
	require.NoError(t, err)

	m.Reset()

	assert.Empty(t, m.Graph().CurrentMedications())
	stats := m.Bus().Statistics()
	assert.Equal(t, 0, stats.ProcessedMessages)
	assert.Equal(t, 0, stats.QueueSize)

	// toolset is re-registered after reset
	_, ok := m.Registry().Get("analyze_discharge")
	assert.True(t, ok)
}
