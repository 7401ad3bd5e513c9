package graph

import "time"

// InteractionSeverity ranks how dangerous a drug-drug interaction is.
type InteractionSeverity string

const (
	// SeverityCritical interactions are contraindicated combinations.
	SeverityCritical InteractionSeverity = "critical"
	// SeverityMajor interactions require close monitoring or substitution.
	SeverityMajor InteractionSeverity = "major"
	// SeverityModerate interactions warrant dose review.
	SeverityModerate InteractionSeverity = "moderate"
	// SeverityMinor interactions are usually clinically insignificant.
	SeverityMinor InteractionSeverity = "minor"
	// SeverityNone marks the absence of a known interaction.
	SeverityNone InteractionSeverity = "none"
)

// rank orders severities for overall-risk aggregation.
func (s InteractionSeverity) rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityMajor:
		return 3
	case SeverityModerate:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

// MedicationRecord represents a single prescribed medication.
type MedicationRecord struct {
	Name       string `json:"name"`
	Dosage     string `json:"dosage"`
	Frequency  string `json:"frequency"`
	Route      string `json:"route"`
	StartDate  string `json:"start_date"`
	Indication string `json:"indication"`
	Notes      string `json:"notes"`
}

// DrugInteraction represents a detected drug-drug interaction.
type DrugInteraction struct {
	Drug1          string              `json:"drug1"`
	Drug2          string              `json:"drug2"`
	Severity       InteractionSeverity `json:"severity"`
	Description    string              `json:"description"`
	Recommendation string              `json:"recommendation"`
	Source         string              `json:"source"`
}

// FollowUpTask represents a scheduled follow-up appointment or task.
type FollowUpTask struct {
	TaskType      string `json:"task_type"` // appointment, lab_test, medication_refill, assessment
	Description   string `json:"description"`
	ScheduledDate string `json:"scheduled_date"`
	Specialty     string `json:"specialty"`
	Priority      string `json:"priority"`
	Completed     bool   `json:"completed"`
	Notes         string `json:"notes"`
}

// DischargeSummary holds the structured data extracted from a discharge document.
type DischargeSummary struct {
	PatientID             string   `json:"patient_id"`
	PatientName           string   `json:"patient_name"`
	AdmissionDate         string   `json:"admission_date"`
	DischargeDate         string   `json:"discharge_date"`
	PrimaryDiagnosis      string   `json:"primary_diagnosis"`
	SecondaryDiagnoses    []string `json:"secondary_diagnoses"`
	HospitalCourse        string   `json:"hospital_course"`
	DischargeInstructions string   `json:"discharge_instructions"`
	Precautions           []string `json:"precautions"`
}

// AnalysisStatus is the lifecycle state of one agent analysis.
type AnalysisStatus string

const (
	// AnalysisPending: the analysis has been requested but not started.
	AnalysisPending AnalysisStatus = "pending"
	// AnalysisProcessing: the agent is working on it.
	AnalysisProcessing AnalysisStatus = "processing"
	// AnalysisCompleted: the agent finished normally.
	AnalysisCompleted AnalysisStatus = "completed"
	// AnalysisError: the agent failed.
	AnalysisError AnalysisStatus = "error"
)

// AgentAnalysis captures one agent's findings about the patient.
type AgentAnalysis struct {
	AgentName        string         `json:"agent_name"`
	Timestamp        time.Time      `json:"timestamp"`
	Status           AnalysisStatus `json:"status"`
	Findings         map[string]any `json:"findings"`
	Reasoning        string         `json:"reasoning"`
	Recommendations  []string       `json:"recommendations"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	ExecutionSeconds float64        `json:"execution_time_seconds"`
}

// ActivityEntry is one row of the bounded activity log kept for dashboards.
type ActivityEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Level     string    `json:"level"` // info, warning, success, error
}

// ConversationTurn is one user/assistant exchange recorded for context.
type ConversationTurn struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Agent     string    `json:"agent"`
}
