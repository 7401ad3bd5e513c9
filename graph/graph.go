// Package graph implements the patient knowledge graph: the shared state
// store the MediSync agents read and write while collaborating on one
// patient. It holds the discharge summary, medications, detected drug
// interactions, allergies, follow-up tasks, per-agent analyses, a bounded
// activity log and the conversation history.
//
// The store is a volatile process-local structure, safe for concurrent
// access. Returned slices are copies; mutating them does not affect the
// graph.
package graph

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// activityLogCap bounds the retained activity log.
const activityLogCap = 100

// Default query limits for the dashboard-facing accessors.
const (
	defaultActivityLimit     = 50
	defaultConversationLimit = 20
)

// PatientGraph is the central patient state shared by all agents.
type PatientGraph struct {
	mu sync.RWMutex

	patientID   string
	createdAt   time.Time
	lastUpdated time.Time

	dischargeSummary *DischargeSummary

	currentMedications  []MedicationRecord
	previousMedications []MedicationRecord

	interactions []DrugInteraction
	allergies    []string

	followUps []FollowUpTask

	analyses map[string][]AgentAnalysis

	activityLog   []ActivityEntry
	conversations []ConversationTurn
}

// NewPatientGraph constructs an empty graph for a patient. The patient ID may
// be empty until a discharge summary is stored.
func NewPatientGraph(patientID string) *PatientGraph {
	now := time.Now().UTC()
	return &PatientGraph{
		patientID:   patientID,
		createdAt:   now,
		lastUpdated: now,
		analyses:    make(map[string][]AgentAnalysis),
	}
}

// PatientID returns the current patient identifier.
func (g *PatientGraph) PatientID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.patientID
}

// LastUpdated returns the instant of the most recent mutation.
func (g *PatientGraph) LastUpdated() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastUpdated
}

// SetDischargeSummary stores the parsed discharge summary and adopts its
// patient identifier.
func (g *PatientGraph) SetDischargeSummary(summary DischargeSummary) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := summary
	g.dischargeSummary = &s
	g.patientID = summary.PatientID
	g.logActivityLocked("Discharge summary loaded", "analyzer", "success")
	g.touchLocked()
}

// DischargeSummary returns the stored summary, or false when none is set.
func (g *PatientGraph) DischargeSummary() (DischargeSummary, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.dischargeSummary == nil {
		return DischargeSummary{}, false
	}
	return *g.dischargeSummary, true
}

// AddMedication appends a medication to the current list.
func (g *PatientGraph) AddMedication(med MedicationRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.currentMedications = append(g.currentMedications, med)
	g.logActivityLocked(fmt.Sprintf("Medication added: %s", med.Name), "system", "info")
	g.touchLocked()
}

// CurrentMedications returns a copy of the current medication list.
func (g *PatientGraph) CurrentMedications() []MedicationRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]MedicationRecord, len(g.currentMedications))
	copy(out, g.currentMedications)
	return out
}

// RemoveMedication removes every medication whose name matches
// case-insensitively, reporting whether anything was removed.
func (g *PatientGraph) RemoveMedication(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.currentMedications[:0]
	removed := false
	for _, m := range g.currentMedications {
		if strings.EqualFold(m.Name, name) {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	g.currentMedications = kept
	if removed {
		g.logActivityLocked(fmt.Sprintf("Medication removed: %s", name), "system", "info")
		g.touchLocked()
	}
	return removed
}

// MedicationByName finds a current medication by case-insensitive name.
func (g *PatientGraph) MedicationByName(name string) (MedicationRecord, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, m := range g.currentMedications {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return MedicationRecord{}, false
}

// AddInteraction records a detected drug interaction. Critical and major
// interactions are logged at warning level for the dashboard.
func (g *PatientGraph) AddInteraction(ia DrugInteraction) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.interactions = append(g.interactions, ia)
	level := "info"
	if ia.Severity == SeverityCritical || ia.Severity == SeverityMajor {
		level = "warning"
	}
	g.logActivityLocked(
		fmt.Sprintf("Interaction detected: %s + %s (%s)", ia.Drug1, ia.Drug2, ia.Severity),
		"pharmacist", level)
	g.touchLocked()
}

// Interactions returns a copy of every recorded interaction.
func (g *PatientGraph) Interactions() []DrugInteraction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]DrugInteraction, len(g.interactions))
	copy(out, g.interactions)
	return out
}

// InteractionsBySeverity filters recorded interactions by severity.
func (g *PatientGraph) InteractionsBySeverity(severity InteractionSeverity) []DrugInteraction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []DrugInteraction
	for _, ia := range g.interactions {
		if ia.Severity == severity {
			out = append(out, ia)
		}
	}
	return out
}

// CriticalInteractions returns the recorded critical interactions.
func (g *PatientGraph) CriticalInteractions() []DrugInteraction {
	return g.InteractionsBySeverity(SeverityCritical)
}

// ClearInteractions drops every recorded interaction, typically before a
// fresh pharmacist pass.
func (g *PatientGraph) ClearInteractions() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.interactions = nil
}

// AddAllergy records an allergy, deduplicated case-insensitively.
func (g *PatientGraph) AddAllergy(allergy string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range g.allergies {
		if strings.EqualFold(a, allergy) {
			return
		}
	}
	g.allergies = append(g.allergies, allergy)
	g.logActivityLocked(fmt.Sprintf("Allergy recorded: %s", allergy), "system", "warning")
	g.touchLocked()
}

// Allergies returns a copy of the recorded allergy list.
func (g *PatientGraph) Allergies() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.allergies))
	copy(out, g.allergies)
	return out
}

// AddFollowUp schedules a follow-up task.
func (g *PatientGraph) AddFollowUp(task FollowUpTask) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.followUps = append(g.followUps, task)
	g.logActivityLocked(fmt.Sprintf("Follow-up scheduled: %s", task.Description), "care_coordinator", "info")
	g.touchLocked()
}

// FollowUps returns a copy of every follow-up task.
func (g *PatientGraph) FollowUps() []FollowUpTask {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]FollowUpTask, len(g.followUps))
	copy(out, g.followUps)
	return out
}

// PendingFollowUps returns the follow-up tasks not yet completed.
func (g *PatientGraph) PendingFollowUps() []FollowUpTask {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []FollowUpTask
	for _, t := range g.followUps {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

// CompleteFollowUp marks the task at the given index as completed, reporting
// whether the index was valid.
func (g *PatientGraph) CompleteFollowUp(index int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if index < 0 || index >= len(g.followUps) {
		return false
	}
	g.followUps[index].Completed = true
	g.logActivityLocked("Follow-up marked as completed", "system", "success")
	g.touchLocked()
	return true
}

// AddAgentAnalysis stores an analysis under the agent's name.
func (g *PatientGraph) AddAgentAnalysis(agentName string, analysis AgentAnalysis) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.analyses[agentName] = append(g.analyses[agentName], analysis)
	g.logActivityLocked(fmt.Sprintf("Analysis from %s: %s", agentName, analysis.Status), agentName, "info")
	g.touchLocked()
}

// AgentAnalyses returns every stored analysis from one agent, oldest first.
func (g *PatientGraph) AgentAnalyses(agentName string) []AgentAnalysis {
	g.mu.RLock()
	defer g.mu.RUnlock()
	src := g.analyses[agentName]
	out := make([]AgentAnalysis, len(src))
	copy(out, src)
	return out
}

// LatestAgentAnalysis returns the most recent analysis from one agent.
func (g *PatientGraph) LatestAgentAnalysis(agentName string) (AgentAnalysis, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	src := g.analyses[agentName]
	if len(src) == 0 {
		return AgentAnalysis{}, false
	}
	return src[len(src)-1], true
}

// LogActivity appends an entry to the bounded activity log.
func (g *PatientGraph) LogActivity(message, source, level string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logActivityLocked(message, source, level)
}

func (g *PatientGraph) logActivityLocked(message, source, level string) {
	g.activityLog = append(g.activityLog, ActivityEntry{
		Timestamp: time.Now().UTC(),
		Message:   message,
		Source:    source,
		Level:     level,
	})
	if len(g.activityLog) > activityLogCap {
		g.activityLog = append(g.activityLog[:0:0], g.activityLog[len(g.activityLog)-activityLogCap:]...)
	}
}

// ActivityLog returns the most recent entries, newest last. A non-positive
// limit selects the default of 50.
func (g *PatientGraph) ActivityLog(limit int) []ActivityEntry {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	log := g.activityLog
	if len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]ActivityEntry, len(log))
	copy(out, log)
	return out
}

// AddConversation appends one user/assistant exchange.
func (g *PatientGraph) AddConversation(userMessage, assistantMessage, agentName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conversations = append(g.conversations, ConversationTurn{
		Timestamp: time.Now().UTC(),
		User:      userMessage,
		Assistant: assistantMessage,
		Agent:     agentName,
	})
	g.touchLocked()
}

// ConversationHistory returns the most recent exchanges, newest last. A
// non-positive limit selects the default of 20.
func (g *PatientGraph) ConversationHistory(limit int) []ConversationTurn {
	if limit <= 0 {
		limit = defaultConversationLimit
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	hist := g.conversations
	if len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	out := make([]ConversationTurn, len(hist))
	copy(out, hist)
	return out
}

// touchLocked bumps the last-updated timestamp; caller holds the write lock.
func (g *PatientGraph) touchLocked() {
	g.lastUpdated = time.Now().UTC()
}

// Export is the JSON snapshot of the whole graph.
type Export struct {
	PatientID           string             `json:"patient_id"`
	CreatedAt           time.Time          `json:"created_at"`
	LastUpdated         time.Time          `json:"last_updated"`
	DischargeSummary    *DischargeSummary  `json:"discharge_summary"`
	CurrentMedications  []MedicationRecord `json:"current_medications"`
	PreviousMedications []MedicationRecord `json:"previous_medications"`
	DrugInteractions    []DrugInteraction  `json:"drug_interactions"`
	Allergies           []string           `json:"allergies"`
	FollowUpTasks       []FollowUpTask     `json:"follow_up_tasks"`
	ActivityLog         []ActivityEntry    `json:"activity_log"`
	ConversationHistory []ConversationTurn `json:"conversation_history"`
}

// Snapshot captures the entire graph for export.
func (g *PatientGraph) Snapshot() Export {
	g.mu.RLock()
	var summary *DischargeSummary
	if g.dischargeSummary != nil {
		s := *g.dischargeSummary
		summary = &s
	}
	exp := Export{
		PatientID:           g.patientID,
		CreatedAt:           g.createdAt,
		LastUpdated:         g.lastUpdated,
		DischargeSummary:    summary,
		CurrentMedications:  append([]MedicationRecord(nil), g.currentMedications...),
		PreviousMedications: append([]MedicationRecord(nil), g.previousMedications...),
		DrugInteractions:    append([]DrugInteraction(nil), g.interactions...),
		Allergies:           append([]string(nil), g.allergies...),
		FollowUpTasks:       append([]FollowUpTask(nil), g.followUps...),
	}
	g.mu.RUnlock()
	exp.ActivityLog = g.ActivityLog(0)
	exp.ConversationHistory = g.ConversationHistory(0)
	return exp
}

// ToJSON exports the graph snapshot as indented JSON.
func (g *PatientGraph) ToJSON() ([]byte, error) {
	return json.MarshalIndent(g.Snapshot(), "", "  ")
}

// SummaryForAgent renders a compact plaintext view of the graph suitable for
// inclusion in an agent prompt.
func (g *PatientGraph) SummaryForAgent() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var parts []string
	if g.dischargeSummary != nil {
		parts = append(parts, fmt.Sprintf("PATIENT: %s", g.dischargeSummary.PatientName))
		parts = append(parts, fmt.Sprintf("DIAGNOSIS: %s", g.dischargeSummary.PrimaryDiagnosis))
		if len(g.dischargeSummary.SecondaryDiagnoses) > 0 {
			parts = append(parts, fmt.Sprintf("COMORBIDITIES: %s", strings.Join(g.dischargeSummary.SecondaryDiagnoses, ", ")))
		}
	}
	if len(g.currentMedications) > 0 {
		parts = append(parts, "\nCURRENT MEDICATIONS:")
		for _, med := range g.currentMedications {
			parts = append(parts, fmt.Sprintf("  - %s %s %s", med.Name, med.Dosage, med.Frequency))
		}
	}
	if len(g.allergies) > 0 {
		parts = append(parts, fmt.Sprintf("\nALLERGIES: %s", strings.Join(g.allergies, ", ")))
	}
	critical := 0
	for _, ia := range g.interactions {
		if ia.Severity == SeverityCritical {
			critical++
		}
	}
	if critical > 0 {
		parts = append(parts, fmt.Sprintf("\nCRITICAL INTERACTIONS: %d detected", critical))
	}
	pending := 0
	for _, t := range g.followUps {
		if !t.Completed {
			pending++
		}
	}
	if pending > 0 {
		parts = append(parts, fmt.Sprintf("\nPENDING FOLLOW-UPS: %d", pending))
	}
	return strings.Join(parts, "\n")
}
