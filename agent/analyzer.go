package agent

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/medisync/medisync/bus"
	"github.com/medisync/medisync/core"
	"github.com/medisync/medisync/graph"
	"github.com/medisync/medisync/logging"
	"github.com/medisync/medisync/model"
)

// AnalyzerName is the agent ID the Analyzer registers on the bus.
const AnalyzerName = "analyzer"

// followUpSpecialties are the specialties recognized in free-text
// follow-up instructions.
var followUpSpecialties = []string{
	"Cardiology", "Neurology", "Orthopedics", "Pulmonology",
	"Endocrinology", "Gastroenterology", "Psychiatry", "PCP",
}

// requiredSummaryFields drive the data quality score.
var requiredSummaryFields = []string{"patient_id", "name", "primary_diagnosis", "medications"}

// AnalyzerOptions configures an Analyzer.
type AnalyzerOptions struct {
	// Bus is the message bus used to notify the pharmacist once an
	// analysis completes. Optional.
	Bus *bus.Bus
	// Completer optionally enriches the analysis reasoning with a
	// model-generated narrative.
	Completer model.Completer
	// Logger receives analyzer diagnostics.
	Logger logging.Logger
}

// Analyzer structures raw discharge summary data into the patient
// knowledge graph and reports what it extracted.
type Analyzer struct {
	kg        *graph.PatientGraph
	mbus      *bus.Bus
	completer model.Completer
	logger    logging.Logger
}

// NewAnalyzer creates an Analyzer bound to the given knowledge graph.
func NewAnalyzer(kg *graph.PatientGraph, optFns ...func(*AnalyzerOptions)) *Analyzer {
	opts := AnalyzerOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &Analyzer{
		kg:        kg,
		mbus:      opts.Bus,
		completer: opts.Completer,
		logger:    opts.Logger,
	}
	if a.mbus != nil {
		a.mbus.RegisterAgent(AnalyzerName)
	}
	return a
}

// AnalyzeDischargeSummary parses a flat field map, stores the structured
// result in the knowledge graph, and returns the analysis record. The
// record is also appended to the graph's analysis history. When a bus is
// configured and the analysis succeeds, a high-priority request is sent
// to the pharmacist agent.
func (a *Analyzer) AnalyzeDischargeSummary(ctx context.Context, data map[string]string) graph.AgentAnalysis {
	start := time.Now()
	analysis := graph.AgentAnalysis{
		AgentName: AnalyzerName,
		Timestamp: time.Now(),
		Status:    graph.AnalysisProcessing,
	}

	summary := graph.DischargeSummary{
		PatientID:             valueOr(data, "patient_id", "UNKNOWN"),
		PatientName:           data["name"],
		AdmissionDate:         data["admission_date"],
		DischargeDate:         data["discharge_date"],
		PrimaryDiagnosis:      data["primary_diagnosis"],
		SecondaryDiagnoses:    parseListField(data["secondary_diagnoses"]),
		HospitalCourse:        data["hospital_course"],
		DischargeInstructions: data["discharge_instructions"],
		Precautions:           parseListField(data["precautions"]),
	}
	a.kg.SetDischargeSummary(summary)

	medications := extractMedications(data["medications"])
	for _, med := range medications {
		a.kg.AddMedication(med)
	}

	followUps := extractFollowUps(data["follow_up"])
	for _, task := range followUps {
		a.kg.AddFollowUp(task)
	}

	if allergies, ok := data["allergies"]; ok {
		for _, allergy := range parseListField(allergies) {
			a.kg.AddAllergy(allergy)
		}
	}

	analysis.Findings = map[string]any{
		"patient_id":            summary.PatientID,
		"patient_name":          summary.PatientName,
		"diagnosis":             summary.PrimaryDiagnosis,
		"medications_extracted": len(medications),
		"follow_ups_extracted":  len(followUps),
		"data_quality_score":    dataQualityScore(data),
	}
	analysis.Reasoning = a.buildReasoning(ctx, summary, medications, followUps)
	analysis.Recommendations = []string{
		fmt.Sprintf("Patient has %d medications requiring pharmacist review", len(medications)),
		fmt.Sprintf("%d follow-up appointments scheduled", len(followUps)),
		"Monitor for drug-drug interactions",
		"Patient education recommended before care coordinator engagement",
	}
	analysis.Status = graph.AnalysisCompleted
	analysis.ExecutionSeconds = time.Since(start).Seconds()

	a.kg.AddAgentAnalysis(AnalyzerName, analysis)
	a.logger.Info("discharge summary analyzed",
		"patient_id", summary.PatientID,
		"medications", len(medications),
		"follow_ups", len(followUps),
	)

	if a.mbus != nil {
		a.mbus.SendRequest(AnalyzerName, PharmacistName, "analyze_medications", map[string]any{
			"patient_id":        summary.PatientID,
			"medications_count": len(medications),
			"diagnosis":         summary.PrimaryDiagnosis,
			"analysis_results":  analysis.Findings,
		}, core.PriorityHigh)
	}

	return analysis
}

// BatchProcess analyzes multiple discharge summaries in order.
func (a *Analyzer) BatchProcess(ctx context.Context, records []map[string]string) []graph.AgentAnalysis {
	analyses := make([]graph.AgentAnalysis, 0, len(records))
	for _, record := range records {
		analyses = append(analyses, a.AnalyzeDischargeSummary(ctx, record))
	}
	return analyses
}

func (a *Analyzer) buildReasoning(ctx context.Context, summary graph.DischargeSummary, medications []graph.MedicationRecord, followUps []graph.FollowUpTask) string {
	specialties := make([]string, 0, len(followUps))
	seen := map[string]bool{}
	for _, task := range followUps {
		if !seen[task.Specialty] {
			seen[task.Specialty] = true
			specialties = append(specialties, task.Specialty)
		}
	}

	secondary := "None"
	if len(summary.SecondaryDiagnoses) > 0 {
		secondary = strings.Join(summary.SecondaryDiagnoses, ", ")
	}

	var sb strings.Builder
	sb.WriteString("ANALYSIS REASONING:\n\n")
	fmt.Fprintf(&sb, "1. PATIENT IDENTIFICATION:\n   - Identified patient: %s (ID: %s)\n   - Discharge date: %s\n\n",
		summary.PatientName, summary.PatientID, summary.DischargeDate)
	fmt.Fprintf(&sb, "2. DIAGNOSIS EXTRACTION:\n   - Primary: %s\n   - Secondary: %s\n\n",
		summary.PrimaryDiagnosis, secondary)
	fmt.Fprintf(&sb, "3. MEDICATION PARSING:\n   - %d medications extracted and normalized\n   - All medications stored for interaction checking\n\n",
		len(medications))
	fmt.Fprintf(&sb, "4. FOLLOW-UP PLANNING:\n   - %d follow-up appointments identified\n   - Specialties involved: %s\n\n",
		len(followUps), strings.Join(specialties, ", "))
	sb.WriteString("NEXT STEPS:\n- Pass to Pharmacist Agent for medication interaction analysis\n- Prepare for Care Coordinator engagement")

	if a.completer != nil {
		prompt := fmt.Sprintf("Summarize the clinical picture for a discharged patient in two sentences.\nDiagnosis: %s\nMedication count: %d",
			summary.PrimaryDiagnosis, len(medications))
		narrative, err := a.completer.Complete(ctx, prompt)
		if err != nil {
			a.logger.Warn("model narrative unavailable", "error", err)
		} else if narrative != "" {
			sb.WriteString("\n\nMODEL NARRATIVE:\n")
			sb.WriteString(narrative)
		}
	}

	return sb.String()
}

// parseListField splits a free-text list on commas, semicolons, and
// newlines, trimming whitespace and dropping empty entries.
func parseListField(value string) []string {
	if value == "" {
		return nil
	}
	normalized := strings.NewReplacer(";", ",", "\n", ",").Replace(value)
	var items []string
	for _, item := range strings.Split(normalized, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// extractMedications parses entries of the form "Name Dosage Frequency"
// separated by commas or semicolons. Missing dosage or frequency fall
// back to prescription defaults.
func extractMedications(text string) []graph.MedicationRecord {
	var medications []graph.MedicationRecord
	for _, entry := range parseListField(text) {
		parts := strings.Fields(entry)
		if len(parts) == 0 {
			continue
		}
		med := graph.MedicationRecord{
			Name:       parts[0],
			Dosage:     "as prescribed",
			Frequency:  "per label",
			Route:      "oral",
			StartDate:  time.Now().Format(time.RFC3339),
			Indication: "Post-discharge management",
		}
		if len(parts) > 1 {
			med.Dosage = parts[1]
		}
		if len(parts) > 2 {
			med.Frequency = parts[2]
		}
		medications = append(medications, med)
	}
	return medications
}

// extractFollowUps scans free text for known specialty names and creates
// a high-priority appointment task per match.
func extractFollowUps(text string) []graph.FollowUpTask {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var tasks []graph.FollowUpTask
	for _, specialty := range followUpSpecialties {
		if !strings.Contains(lower, strings.ToLower(specialty)) {
			continue
		}
		tasks = append(tasks, graph.FollowUpTask{
			TaskType:    "appointment",
			Description: specialty + " follow-up appointment",
			Specialty:   specialty,
			Priority:    "high",
		})
	}
	return tasks
}

// dataQualityScore rates completeness of the raw summary on a 0-100
// scale, one decimal place.
func dataQualityScore(data map[string]string) float64 {
	present := 0
	for _, field := range requiredSummaryFields {
		if data[field] != "" {
			present++
		}
	}
	score := float64(present) / float64(len(requiredSummaryFields)) * 100
	return math.Round(score*10) / 10
}

func valueOr(data map[string]string, key, fallback string) string {
	if v := data[key]; v != "" {
		return v
	}
	return fallback
}
