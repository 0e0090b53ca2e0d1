// Package soap builds and scores the four-section clinical note
// (Subjective / Objective / Assessment / Plan) from extracted consultation
// data and the urgency assessment.
package soap

import "github.com/consult/consult/internal/domain/urgency"

// Differential is one ranked differential diagnosis. Gravity and Probability
// come from the extraction oracle; the active score is computed here.
type Differential struct {
	Condition      string  `json:"condition"`
	Gravity        float64 `json:"gravity"`     // 0-10
	Probability    float64 `json:"probability"` // 0-10
	DefensiveScore float64 `json:"defensive_score"`
}

// Subjective holds what the patient reported.
type Subjective struct {
	ChiefComplaint          string   `json:"chief_complaint"`
	HistoryOfPresentIllness string   `json:"history_of_present_illness"`
	SymptomDuration         string   `json:"symptom_duration"`
	ReviewOfSystems         []string `json:"review_of_systems,omitempty"`
	PatientContext          string   `json:"patient_context,omitempty"`
}

// Objective holds observed and reported measurable findings.
type Objective struct {
	Findings             []string          `json:"findings,omitempty"`
	ReportedMeasurements map[string]string `json:"reported_measurements,omitempty"`
	VitalSigns           map[string]string `json:"vital_signs,omitempty"`
}

// Assessment holds the diagnostic conclusion and ranked differentials.
type Assessment struct {
	PrimaryDiagnosis  string          `json:"primary_diagnosis"`
	Differentials     []Differential  `json:"differentials"`
	ClinicalReasoning string          `json:"clinical_reasoning,omitempty"`
	UrgencyLevel      urgency.Level   `json:"urgency_level"`
	DefensiveMode     bool            `json:"defensive_mode"`
}

// Plan holds the recommended actions.
type Plan struct {
	ImmediateActions []string `json:"immediate_actions"`
	Diagnostics      []string `json:"diagnostics,omitempty"`
	Therapeutics     []string `json:"therapeutics,omitempty"`
	FollowUp         string   `json:"follow_up"`
	SafetyNetting    string   `json:"safety_netting"`
	TimeToAction     string   `json:"time_to_action"`
}

// Note is the complete four-section clinical note.
type Note struct {
	Subjective Subjective `json:"subjective"`
	Objective  Objective  `json:"objective"`
	Assessment Assessment `json:"assessment"`
	Plan       Plan       `json:"plan"`
}

// Section identifiers used in SOAP_SECTION_COMPLETED payloads.
const (
	SectionSubjective = "subjective"
	SectionObjective  = "objective"
	SectionAssessment = "assessment"
	SectionPlan       = "plan"
)
