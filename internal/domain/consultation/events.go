package consultation

import (
	"github.com/consult/consult/internal/domain/soap"
	"github.com/consult/consult/internal/domain/urgency"
)

// Canonical event type identifiers. These are the persisted wire values;
// renaming one breaks hash-chain reproducibility for existing logs.
const (
	EventConsultationStarted     = "CONSULTATION_STARTED"
	EventMessageReceived         = "MESSAGE_RECEIVED"
	EventMessageValidated        = "MESSAGE_VALIDATED"
	EventValidationFailed        = "VALIDATION_FAILED"
	EventCriticalPatternDetected = "CRITICAL_PATTERN_DETECTED"
	EventUrgencyClassified       = "URGENCY_CLASSIFIED"
	EventTriageCompleted         = "TRIAGE_COMPLETED"
	EventExtractionCompleted     = "EXTRACTION_COMPLETED"
	EventDemographicsUpdated     = "DEMOGRAPHICS_UPDATED"
	EventSymptomsUpdated         = "SYMPTOMS_UPDATED"
	EventContextUpdated          = "CONTEXT_UPDATED"
	EventIterationRequested      = "ITERATION_REQUESTED"
	EventResponsePrepared        = "RESPONSE_PREPARED"
	EventExtractionSettled       = "EXTRACTION_SETTLED"
	EventSOAPSectionCompleted    = "SOAP_SECTION_COMPLETED"
	EventSOAPGenerationCompleted = "SOAP_GENERATION_COMPLETED"
	EventAssessmentCompleted     = "ASSESSMENT_COMPLETED"
	EventPlanCompleted           = "PLAN_COMPLETED"
	EventConsultationCommitted   = "CONSULTATION_COMMITTED"
	EventErrorRaised             = "ERROR_RAISED"
	EventRetryRequested          = "RETRY_REQUESTED"
	EventAuditEntryCreated       = "AUDIT_ENTRY_CREATED"
)

// StartedPayload opens a consultation with the requesting user and whatever
// is already known about the patient.
type StartedPayload struct {
	UserID  string       `json:"user_id"`
	Patient Demographics `json:"patient"`
}

// MessagePayload records one inbound or outbound message.
type MessagePayload struct {
	Role string `json:"role"` // "patient" or "engine"
	Text string `json:"text"`
}

// ValidationFailedPayload records a locally recovered validation failure.
// Reason is structural only; the offending content stays in the original
// MESSAGE_RECEIVED event, never in failure descriptions.
type ValidationFailedPayload struct {
	Reason string `json:"reason"`
	Prompt string `json:"prompt"`
}

// PatternPayload records matched critical patterns.
type PatternPayload struct {
	Patterns []string `json:"patterns"`
}

// UrgencyPayload embeds the classifier output.
type UrgencyPayload struct {
	Assessment urgency.Assessment `json:"assessment"`
}

// DemographicsPayload carries extracted patient demographics.
type DemographicsPayload struct {
	Demographics Demographics `json:"demographics"`
}

// SymptomsPayload carries the full extracted symptom list (replace, not merge:
// each extraction iteration re-reads the whole transcript).
type SymptomsPayload struct {
	Symptoms []urgency.Symptom `json:"symptoms"`
}

// ContextPayload carries extracted clinical context.
type ContextPayload struct {
	Context Context `json:"context"`
}

// ExtractionCompletedPayload summarises one oracle iteration. Productive is
// false when the call timed out; the iteration still counts against the
// budget.
type ExtractionCompletedPayload struct {
	Iteration              int                 `json:"iteration"`
	Productive             bool                `json:"productive"`
	Completeness           float64             `json:"completeness"`
	MissingCriticalFields  []string            `json:"missing_critical_fields,omitempty"`
	CandidateDifferentials []soap.Differential `json:"candidate_differentials,omitempty"`
}

// IterationRequestedPayload directs the next oracle call.
type IterationRequestedPayload struct {
	Iteration  int      `json:"iteration"`
	FocusAreas []string `json:"focus_areas,omitempty"`
}

// ResponsePreparedPayload records the engine's reply to the patient.
type ResponsePreparedPayload struct {
	Text string `json:"text"`
}

// Reasons an extraction loop settles.
const (
	SettleCompletenessMet  = "completeness_met"
	SettleBudgetExhausted  = "iteration_budget_exhausted"
	SettleCriticalOverride = "critical_urgency_override"
)

// ExtractionSettledPayload ends the iteration loop.
type ExtractionSettledPayload struct {
	Reason       string  `json:"reason"`
	Iterations   int     `json:"iterations"`
	Completeness float64 `json:"completeness"`
}

// SOAPSectionPayload carries one completed note section; exactly one of the
// section pointers is set, matching Section.
type SOAPSectionPayload struct {
	Section    string           `json:"section"`
	Subjective *soap.Subjective `json:"subjective,omitempty"`
	Objective  *soap.Objective  `json:"objective,omitempty"`
	Assessment *soap.Assessment `json:"assessment,omitempty"`
	Plan       *soap.Plan       `json:"plan,omitempty"`
}

// CommitPayload seals the consultation.
type CommitPayload struct {
	CommittedBy  string  `json:"committed_by"`
	CommitHash   string  `json:"commit_hash"`
	Completeness float64 `json:"completeness"`
	Compliance   float64 `json:"compliance"`
}

// ErrorPayload records a raised engine error. Structural description only.
type ErrorPayload struct {
	Stage string `json:"stage"`
	Kind  string `json:"kind"`
}

// AuditEntryPayload records an audit-visible fact that is not itself a
// workflow transition (for example a rejected append).
type AuditEntryPayload struct {
	Level   string `json:"level"`
	Actor   string `json:"actor,omitempty"`
	Message string `json:"message"`
}
