package consultation

import (
	"context"

	"github.com/consult/consult/internal/domain/soap"
	"github.com/consult/consult/internal/domain/urgency"
)

// ExtractionResult is one oracle extraction pass over the transcript. The
// oracle re-reads the whole transcript each pass, so symptom and context
// slices replace previous working state rather than merging into it.
type ExtractionResult struct {
	Demographics           *Demographics       `json:"demographics,omitempty"`
	Symptoms               []urgency.Symptom   `json:"symptoms,omitempty"`
	Context                *Context            `json:"context,omitempty"`
	CandidateDifferentials []soap.Differential `json:"candidate_differentials,omitempty"`
	Completeness           float64             `json:"completeness"`
	MissingCriticalFields  []string            `json:"missing_critical_fields,omitempty"`
	FollowUpQuestion       string              `json:"follow_up_question,omitempty"`
}

// SectionInput is everything the oracle needs to draft a note section.
type SectionInput struct {
	Transcript []Message          `json:"transcript"`
	WIP        WIPExtraction      `json:"wip_extraction"`
	Urgency    urgency.Assessment `json:"urgency"`
}

// SectionResult is an oracle-drafted subjective or objective section.
// Assessment and plan sections are composed deterministically in-process
// and never delegated to the oracle.
type SectionResult struct {
	Subjective *soap.Subjective `json:"subjective,omitempty"`
	Objective  *soap.Objective  `json:"objective,omitempty"`
}

// Oracle is the external extraction/generation model. The engine treats it
// as untrusted and potentially slow: every call is bounded by a deadline and
// a fixed retry budget, and a timed-out call surfaces ErrExtractionTimeout.
type Oracle interface {
	Extract(ctx context.Context, transcript []Message, focusAreas []string) (*ExtractionResult, error)
	ComposeSection(ctx context.Context, section string, input SectionInput) (*SectionResult, error)
}
