package agent

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/medisync/medisync/bus"
	"github.com/medisync/medisync/core"
	"github.com/medisync/medisync/graph"
	"github.com/medisync/medisync/logging"
)

// PharmacistName is the agent ID the Pharmacist registers on the bus.
const PharmacistName = "pharmacist"

// CoordinatorName is the downstream agent the Pharmacist reports to.
const CoordinatorName = "coordinator"

// drugPair is an unordered interaction database key. Entries are stored
// in a canonical order and lookups check both orientations.
type drugPair struct {
	a, b string
}

type interactionEntry struct {
	severity       graph.InteractionSeverity
	description    string
	recommendation string
}

// drugAliases maps brand and shorthand names to generic names.
var drugAliases = map[string][]string{
	"lisinopril":   {"prinivil", "zestril"},
	"metoprolol":   {"lopressor", "toprol"},
	"atorvastatin": {"lipitor"},
	"aspirin":      {"asa"},
	"clopidogrel":  {"plavix"},
	"apixaban":     {"eliquat"},
	"warfarin":     {"coumadin"},
}

// drugClasses groups generic names for regimen review.
var drugClasses = map[string][]string{
	"ace_inhibitor": {"lisinopril", "enalapril", "ramipril", "captopril"},
	"beta_blocker":  {"metoprolol", "atenolol", "propranolol", "carvedilol"},
	"statin":        {"atorvastatin", "simvastatin", "pravastatin", "rosuvastatin"},
	"anticoagulant": {"warfarin", "apixaban", "rivaroxaban", "dabigatran"},
	"antiplatelet":  {"aspirin", "clopidogrel", "ticagrelor"},
	"diuretic":      {"furosemide", "spironolactone", "hydrochlorothiazide"},
}

// buildInteractionDatabase returns the built-in drug interaction
// knowledge base, keyed by generic name pairs.
func buildInteractionDatabase() map[drugPair]interactionEntry {
	return map[drugPair]interactionEntry{
		{"warfarin", "aspirin"}: {
			severity:       graph.SeverityCritical,
			description:    "Significant increased risk of bleeding",
			recommendation: "Use alternative antiplatelet agent or monitor INR closely. Consider PPI for GI protection.",
		},
		{"apixaban", "clopidogrel"}: {
			severity:       graph.SeverityMajor,
			description:    "Dual anticoagulation increases bleeding risk",
			recommendation: "Only use together if clear indication (e.g., post-ACS). Monitor for bleeding signs.",
		},
		{"metoprolol", "verapamil"}: {
			severity:       graph.SeverityCritical,
			description:    "Risk of severe bradycardia and AV block",
			recommendation: "Avoid combination or use with extreme caution. Requires ECG monitoring.",
		},
		{"lisinopril", "potassium"}: {
			severity:       graph.SeverityMajor,
			description:    "Risk of hyperkalemia",
			recommendation: "Monitor potassium levels regularly. Limit potassium supplementation.",
		},
		{"lisinopril", "spironolactone"}: {
			severity:       graph.SeverityMajor,
			description:    "Significant hyperkalemia risk",
			recommendation: "Use cautiously. Requires regular K+ and renal function monitoring.",
		},
		{"atorvastatin", "gemfibrozil"}: {
			severity:       graph.SeverityMajor,
			description:    "Increased risk of myopathy and rhabdomyolysis",
			recommendation: "Consider alternative fibrate (fenofibrate) or reduce statin dose.",
		},
		{"atorvastatin", "clarithromycin"}: {
			severity:       graph.SeverityModerate,
			description:    "Increased statin levels - myopathy risk",
			recommendation: "Use alternative antibiotic if possible. Monitor for muscle symptoms.",
		},
		{"metformin", "contrast_dye"}: {
			severity:       graph.SeverityMajor,
			description:    "Risk of lactic acidosis with contrast procedures",
			recommendation: "Hold metformin 48 hours before and after contrast procedures.",
		},
		{"glipizide", "alcohol"}: {
			severity:       graph.SeverityModerate,
			description:    "Increased hypoglycemia risk",
			recommendation: "Limit alcohol consumption. Educate on hypoglycemia signs.",
		},
		{"ibuprofen", "lisinopril"}: {
			severity:       graph.SeverityModerate,
			description:    "Reduced antihypertensive effect and renal risk",
			recommendation: "Use acetaminophen instead. If NSAID needed, use lowest dose.",
		},
		{"ibuprofen", "warfarin"}: {
			severity:       graph.SeverityMajor,
			description:    "Significantly increased bleeding risk",
			recommendation: "Avoid NSAIDs. Use acetaminophen for pain relief.",
		},
		{"albuterol", "beta_blocker"}: {
			severity:       graph.SeverityModerate,
			description:    "Beta-blockers can attenuate albuterol bronchodilation",
			recommendation: "Use cardioselective beta-blockers (metoprolol/atenolol). May need higher albuterol doses.",
		},
		{"sertraline", "tramadol"}: {
			severity:       graph.SeverityMajor,
			description:    "Risk of serotonin syndrome",
			recommendation: "Avoid combination if possible. Monitor for serotonin syndrome symptoms.",
		},
		{"azithromycin", "digoxin"}: {
			severity:       graph.SeverityModerate,
			description:    "Increased digoxin levels - toxicity risk",
			recommendation: "Monitor digoxin levels. Consider ECG monitoring.",
		},
		{"simvastatin", "amiodarone"}: {
			severity:       graph.SeverityCritical,
			description:    "Major myopathy risk - simvastatin levels increase significantly",
			recommendation: "Reduce simvastatin to max 20mg daily or switch to pravastatin.",
		},
	}
}

// PharmacistOptions configures a Pharmacist.
type PharmacistOptions struct {
	// Bus is the message bus used to forward interaction findings to
	// the care coordinator. Optional.
	Bus *bus.Bus
	// Logger receives pharmacist diagnostics.
	Logger logging.Logger
}

// Pharmacist screens a patient's medication regimen against a built-in
// interaction knowledge base and produces clinical recommendations.
type Pharmacist struct {
	kg           *graph.PatientGraph
	mbus         *bus.Bus
	logger       logging.Logger
	interactions map[drugPair]interactionEntry
}

// NewPharmacist creates a Pharmacist bound to the given knowledge graph.
func NewPharmacist(kg *graph.PatientGraph, optFns ...func(*PharmacistOptions)) *Pharmacist {
	opts := PharmacistOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	p := &Pharmacist{
		kg:           kg,
		mbus:         opts.Bus,
		logger:       opts.Logger,
		interactions: buildInteractionDatabase(),
	}
	if p.mbus != nil {
		p.mbus.RegisterAgent(PharmacistName)
	}
	return p
}

// CheckMedicationInteractions compares every medication pair in the
// patient's regimen against the knowledge base. Detected interactions
// are recorded in the graph, and the returned analysis is appended to
// the graph's analysis history. When a bus is configured, the findings
// are forwarded to the care coordinator.
func (p *Pharmacist) CheckMedicationInteractions() graph.AgentAnalysis {
	start := time.Now()
	analysis := graph.AgentAnalysis{
		AgentName: PharmacistName,
		Timestamp: time.Now(),
		Status:    graph.AnalysisProcessing,
	}

	medications := p.kg.CurrentMedications()
	var found []graph.DrugInteraction
	for i, med1 := range medications {
		for _, med2 := range medications[i+1:] {
			if interaction, ok := p.CheckPair(med1.Name, med2.Name); ok {
				found = append(found, interaction)
				p.kg.AddInteraction(interaction)
			}
		}
	}

	criticalCount := countBySeverity(found, graph.SeverityCritical)
	majorCount := countBySeverity(found, graph.SeverityMajor)
	moderateCount := countBySeverity(found, graph.SeverityModerate)

	analysis.Findings = map[string]any{
		"medications_analyzed":  len(medications),
		"pairs_checked":         len(medications) * (len(medications) - 1) / 2,
		"total_interactions":    len(found),
		"critical_interactions": criticalCount,
		"major_interactions":    majorCount,
		"moderate_interactions": moderateCount,
		"risk_level":            overallRisk(found),
	}
	analysis.Reasoning = p.buildClinicalReasoning(medications, found)
	analysis.Recommendations = buildRecommendations(found)
	analysis.Status = graph.AnalysisCompleted
	analysis.ExecutionSeconds = time.Since(start).Seconds()

	p.kg.AddAgentAnalysis(PharmacistName, analysis)
	p.logger.Info("medication interactions checked",
		"medications", len(medications),
		"interactions", len(found),
		"critical", criticalCount,
	)

	if p.mbus != nil {
		priority := core.PriorityNormal
		if criticalCount > 0 {
			priority = core.PriorityHigh
		}
		p.mbus.SendRequest(PharmacistName, CoordinatorName, "provide_education", map[string]any{
			"total_interactions":    len(found),
			"critical_interactions": criticalCount,
			"risk_level":            overallRisk(found),
			"recommendations":       analysis.Recommendations,
		}, priority)
	}

	return analysis
}

// CheckPair reports whether two drugs have a known interaction. Names
// are normalized through the alias table, and either ordering matches.
func (p *Pharmacist) CheckPair(drug1, drug2 string) (graph.DrugInteraction, bool) {
	n1 := normalizeDrugName(drug1)
	n2 := normalizeDrugName(drug2)

	entry, ok := p.interactions[drugPair{n1, n2}]
	if !ok {
		entry, ok = p.interactions[drugPair{n2, n1}]
	}
	if !ok {
		return graph.DrugInteraction{}, false
	}

	return graph.DrugInteraction{
		Drug1:          drug1,
		Drug2:          drug2,
		Severity:       entry.severity,
		Description:    entry.description,
		Recommendation: entry.recommendation,
		Source:         "built-in knowledge base",
	}, true
}

// MedicationSummaryReport renders the current regimen and any recorded
// interactions as plain text.
func (p *Pharmacist) MedicationSummaryReport() string {
	medications := p.kg.CurrentMedications()
	interactions := p.kg.Interactions()

	var sb strings.Builder
	sb.WriteString("MEDICATION SUMMARY REPORT\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&sb, "Total Medications: %d\n", len(medications))
	fmt.Fprintf(&sb, "Total Interactions: %d\n\n", len(interactions))

	sb.WriteString("CURRENT MEDICATIONS:\n")
	for _, med := range medications {
		fmt.Fprintf(&sb, "  - %s %s %s\n", med.Name, med.Dosage, med.Frequency)
	}

	if len(interactions) > 0 {
		sb.WriteString("\nIDENTIFIED INTERACTIONS:\n")
		for _, ia := range interactions {
			fmt.Fprintf(&sb, "\n  %s + %s\n", ia.Drug1, ia.Drug2)
			fmt.Fprintf(&sb, "  Severity: %s\n", strings.ToUpper(string(ia.Severity)))
			fmt.Fprintf(&sb, "  Details: %s\n", ia.Description)
		}
	}
	return sb.String()
}

// normalizeDrugName lowercases, keeps the first word, and resolves brand
// names to generics.
func normalizeDrugName(drug string) string {
	fields := strings.Fields(strings.ToLower(drug))
	if len(fields) == 0 {
		return ""
	}
	name := fields[0]
	for generic, aliases := range drugAliases {
		if name == generic {
			return generic
		}
		for _, alias := range aliases {
			if name == alias {
				return generic
			}
		}
	}
	return name
}

// overallRisk aggregates interaction severities into a regimen-level
// risk label.
func overallRisk(interactions []graph.DrugInteraction) string {
	if len(interactions) == 0 {
		return "LOW"
	}
	criticalCount := countBySeverity(interactions, graph.SeverityCritical)
	majorCount := countBySeverity(interactions, graph.SeverityMajor)
	switch {
	case criticalCount > 0:
		return "CRITICAL"
	case majorCount >= 2:
		return "HIGH"
	case majorCount == 1:
		return "MODERATE"
	default:
		return "LOW"
	}
}

func countBySeverity(interactions []graph.DrugInteraction, severity graph.InteractionSeverity) int {
	n := 0
	for _, ia := range interactions {
		if ia.Severity == severity {
			n++
		}
	}
	return n
}

func filterBySeverity(interactions []graph.DrugInteraction, severity graph.InteractionSeverity) []graph.DrugInteraction {
	var out []graph.DrugInteraction
	for _, ia := range interactions {
		if ia.Severity == severity {
			out = append(out, ia)
		}
	}
	return out
}

func (p *Pharmacist) buildClinicalReasoning(medications []graph.MedicationRecord, interactions []graph.DrugInteraction) string {
	var sb strings.Builder
	sb.WriteString("PHARMACIST ANALYSIS - CLINICAL REASONING:\n\n")
	fmt.Fprintf(&sb, "1. MEDICATION REGIMEN REVIEW:\n   - Total medications: %d\n   - Medication classes: %s\n\n",
		len(medications), identifyDrugClasses(medications))
	fmt.Fprintf(&sb, "2. INTERACTION SCREENING:\n   - Pairs checked: %d\n   - Interactions identified: %d\n\n",
		len(medications)*(len(medications)-1)/2, len(interactions))
	sb.WriteString("3. RISK STRATIFICATION:\n")

	if critical := filterBySeverity(interactions, graph.SeverityCritical); len(critical) > 0 {
		fmt.Fprintf(&sb, "   CRITICAL (%d):\n", len(critical))
		for _, ia := range critical {
			fmt.Fprintf(&sb, "   - %s + %s: %s\n", ia.Drug1, ia.Drug2, ia.Description)
		}
	}
	if major := filterBySeverity(interactions, graph.SeverityMajor); len(major) > 0 {
		fmt.Fprintf(&sb, "   MAJOR (%d):\n", len(major))
		for _, ia := range major {
			fmt.Fprintf(&sb, "   - %s + %s: %s\n", ia.Drug1, ia.Drug2, ia.Description)
		}
	}

	sb.WriteString("\n4. RECOMMENDATION PRIORITY:\n")
	sb.WriteString("   - Critical interactions MUST be addressed\n")
	sb.WriteString("   - Major interactions warrant close monitoring\n")
	sb.WriteString("   - Moderate interactions require patient education")
	return sb.String()
}

// identifyDrugClasses lists the recognized drug classes present in the
// regimen, sorted for stable output.
func identifyDrugClasses(medications []graph.MedicationRecord) string {
	present := map[string]bool{}
	for _, med := range medications {
		name := strings.ToLower(med.Name)
		for class, generics := range drugClasses {
			for _, generic := range generics {
				if strings.Contains(name, generic) {
					present[class] = true
				}
			}
		}
	}
	if len(present) == 0 {
		return "Various"
	}

	classes := make([]string, 0, len(present))
	for class := range present {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return strings.Join(classes, ", ")
}

func buildRecommendations(interactions []graph.DrugInteraction) []string {
	if len(interactions) == 0 {
		return []string{
			"No known significant drug interactions detected",
			"Continue monitoring for new symptoms or medication changes",
		}
	}

	var recs []string
	if critical := filterBySeverity(interactions, graph.SeverityCritical); len(critical) > 0 {
		recs = append(recs, fmt.Sprintf("URGENT: %d critical interaction(s) require immediate review by prescribing physician", len(critical)))
		for _, ia := range critical {
			recs = append(recs, "  - "+ia.Recommendation)
		}
	}
	if major := filterBySeverity(interactions, graph.SeverityMajor); len(major) > 0 {
		recs = append(recs, fmt.Sprintf("%d major interaction(s) require monitoring:", len(major)))
		for _, ia := range major {
			recs = append(recs, "  - "+ia.Recommendation)
		}
	}
	recs = append(recs,
		"Schedule medication reconciliation appointment with pharmacist",
		"Patient education on medication timing and administration needed",
	)
	return recs
}
