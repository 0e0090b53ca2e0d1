// Package urgency computes the gravity score and urgency level for a
// consultation. Classification is a pure function over its inputs: no stored
// state, no oracle calls, fully reproducible.
package urgency

// Level is the urgency level derived from the gravity score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Severity buckets a symptom's intrinsic seriousness as reported by the
// extraction oracle.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Symptom is one extracted symptom with its descriptive text and severity
// bucket.
type Symptom struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity"`
	Duration    string   `json:"duration,omitempty"`
	Intensity   int      `json:"intensity,omitempty"` // 0-10 patient-reported
}

// Patient carries the attributes that modify the gravity score.
type Patient struct {
	Age           int      `json:"age"`
	AgeKnown      bool     `json:"age_known"`
	Sex           string   `json:"sex,omitempty"`
	Pregnant      bool     `json:"pregnant,omitempty"`
	Comorbidities []string `json:"comorbidities,omitempty"`
}

// History carries the relevant pieces of patient history used by the
// critical-pattern table.
type History struct {
	FamilyHistoryMI bool     `json:"family_history_mi,omitempty"`
	Smoker          bool     `json:"smoker,omitempty"`
	ExSmoker        bool     `json:"ex_smoker,omitempty"`
	Notes           []string `json:"notes,omitempty"`
}

// Assessment is the classifier's output, embedded verbatim in the
// URGENCY_CLASSIFIED event payload.
type Assessment struct {
	GravityScore       float64  `json:"gravity_score"` // 0-10, clamped
	Level              Level    `json:"level"`
	TimeToAction       string   `json:"time_to_action"`
	IdentifiedPatterns []string `json:"identified_patterns,omitempty"`
}

// IsCritical reports whether the assessment demands the emergency fast path.
func (a *Assessment) IsCritical() bool {
	return a != nil && a.Level == LevelCritical
}
