package graph

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDischargeSummaryAdoptsPatientID(t *testing.T) {
	g := NewPatientGraph("")
	g.SetDischargeSummary(DischargeSummary{
		PatientID:        "P-001",
		PatientName:      "Jordan Rivera",
		PrimaryDiagnosis: "Atrial fibrillation",
	})

	assert.Equal(t, "P-001", g.PatientID())
	s, ok := g.DischargeSummary()
	require.True(t, ok)
	assert.Equal(t, "Jordan Rivera", s.PatientName)
}

func TestMedicationLifecycle(t *testing.T) {
	g := NewPatientGraph("P-001")
	g.AddMedication(MedicationRecord{Name: "Warfarin", Dosage: "5mg", Frequency: "daily"})
	g.AddMedication(MedicationRecord{Name: "Aspirin", Dosage: "81mg", Frequency: "daily"})

	require.Len(t, g.CurrentMedications(), 2)

	med, ok := g.MedicationByName("warfarin")
	require.True(t, ok)
	assert.Equal(t, "Warfarin", med.Name)

	assert.True(t, g.RemoveMedication("WARFARIN"))
	assert.False(t, g.RemoveMedication("warfarin"))
	require.Len(t, g.CurrentMedications(), 1)
	_, ok = g.MedicationByName("warfarin")
	assert.False(t, ok)
}

func TestInteractionsBySeverity(t *testing.T) {
	g := NewPatientGraph("P-001")
	g.AddInteraction(DrugInteraction{Drug1: "warfarin", Drug2: "aspirin", Severity: SeverityCritical})
	g.AddInteraction(DrugInteraction{Drug1: "lisinopril", Drug2: "ibuprofen", Severity: SeverityModerate})
	g.AddInteraction(DrugInteraction{Drug1: "warfarin", Drug2: "ibuprofen", Severity: SeverityCritical})

	assert.Len(t, g.Interactions(), 3)
	assert.Len(t, g.CriticalInteractions(), 2)
	assert.Len(t, g.InteractionsBySeverity(SeverityModerate), 1)
	assert.Empty(t, g.InteractionsBySeverity(SeverityMinor))

	g.ClearInteractions()
	assert.Empty(t, g.Interactions())
}

func TestAllergiesDeduplicated(t *testing.T) {
	g := NewPatientGraph("P-001")
	g.AddAllergy("Penicillin")
	g.AddAllergy("penicillin")
	g.AddAllergy("Sulfa")

	assert.Equal(t, []string{"Penicillin", "Sulfa"}, g.Allergies())
}

func TestFollowUps(t *testing.T) {
	g := NewPatientGraph("P-001")
	g.AddFollowUp(FollowUpTask{TaskType: "appointment", Description: "Cardiology review"})
	g.AddFollowUp(FollowUpTask{TaskType: "lab_test", Description: "INR check"})

	assert.Len(t, g.PendingFollowUps(), 2)
	assert.True(t, g.CompleteFollowUp(0))
	assert.Len(t, g.PendingFollowUps(), 1)

	assert.False(t, g.CompleteFollowUp(-1))
	assert.False(t, g.CompleteFollowUp(99))
}

func TestAgentAnalyses(t *testing.T) {
	g := NewPatientGraph("P-001")
	_, ok := g.LatestAgentAnalysis("analyzer")
	assert.False(t, ok)

	g.AddAgentAnalysis("analyzer", AgentAnalysis{AgentName: "analyzer", Status: AnalysisCompleted, Timestamp: time.Now()})
	g.AddAgentAnalysis("analyzer", AgentAnalysis{AgentName: "analyzer", Status: AnalysisError, Timestamp: time.Now()})

	assert.Len(t, g.AgentAnalyses("analyzer"), 2)
	latest, ok := g.LatestAgentAnalysis("analyzer")
	require.True(t, ok)
	assert.Equal(t, AnalysisError, latest.Status)
}

func TestActivityLogBounded(t *testing.T) {
	g := NewPatientGraph("P-001")
	for i := 0; i < 150; i++ {
		g.LogActivity("tick", "system", "info")
	}

	assert.Len(t, g.ActivityLog(0), 50)
	assert.Len(t, g.ActivityLog(200), 100)
	assert.Len(t, g.ActivityLog(10), 10)
}

func TestConversationHistory(t *testing.T) {
	g := NewPatientGraph("P-001")
	for i := 0; i < 30; i++ {
		g.AddConversation("question", "answer", "care_coordinator")
	}
	assert.Len(t, g.ConversationHistory(0), 20)
	assert.Len(t, g.ConversationHistory(5), 5)
}

func TestSnapshotAndJSON(t *testing.T) {
	g := NewPatientGraph("")
	g.SetDischargeSummary(DischargeSummary{PatientID: "P-007", PatientName: "Sam Okafor", PrimaryDiagnosis: "CHF"})
	g.AddMedication(MedicationRecord{Name: "Furosemide", Dosage: "40mg", Frequency: "daily"})
	g.AddAllergy("Penicillin")

	exp := g.Snapshot()
	assert.Equal(t, "P-007", exp.PatientID)
	require.NotNil(t, exp.DischargeSummary)
	assert.Len(t, exp.CurrentMedications, 1)

	data, err := g.ToJSON()
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "P-007", raw["patient_id"])
	assert.Contains(t, raw, "activity_log")
}

func TestSummaryForAgent(t *testing.T) {
	g := NewPatientGraph("")
	g.SetDischargeSummary(DischargeSummary{
		PatientID:          "P-002",
		PatientName:        "Alex Kim",
		PrimaryDiagnosis:   "Atrial fibrillation",
		SecondaryDiagnoses: []string{"Hypertension"},
	})
	g.AddMedication(MedicationRecord{Name: "Warfarin", Dosage: "5mg", Frequency: "daily"})
	g.AddAllergy("Sulfa")
	g.AddInteraction(DrugInteraction{Drug1: "warfarin", Drug2: "aspirin", Severity: SeverityCritical})
	g.AddFollowUp(FollowUpTask{Description: "INR check"})

	summary := g.SummaryForAgent()
	assert.Contains(t, summary, "PATIENT: Alex Kim")
	assert.Contains(t, summary, "DIAGNOSIS: Atrial fibrillation")
	assert.Contains(t, summary, "COMORBIDITIES: Hypertension")
	assert.Contains(t, summary, "Warfarin 5mg daily")
	assert.Contains(t, summary, "ALLERGIES: Sulfa")
	assert.Contains(t, summary, "CRITICAL INTERACTIONS: 1")
	assert.Contains(t, summary, "PENDING FOLLOW-UPS: 1")
}

func TestLastUpdatedAdvances(t *testing.T) {
	g := NewPatientGraph("P-001")
	before := g.LastUpdated()
	time.Sleep(time.Millisecond)
	g.AddAllergy("Latex")
	assert.True(t, g.LastUpdated().After(before))
}
