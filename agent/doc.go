// Package agent provides the clinical agents that operate on a patient
// knowledge graph: the Analyzer, which structures raw discharge summary
// data, and the Pharmacist, which screens the medication regimen for
// drug-drug interactions.
//
// Agents are plain structs wired to a graph.PatientGraph. When
// constructed with a message bus they announce their results to their
// downstream peers as request messages.
package agent
