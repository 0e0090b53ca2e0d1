// Package consultation implements the event-sourced consultation engine: the
// aggregate state machine, the extraction iteration loop, the oracle
// contract and the commit coordinator. The aggregate is a cache rebuilt from
// the event log on every read, never a source of truth.
package consultation

import (
	"time"

	"github.com/google/uuid"

	"github.com/consult/consult/internal/domain/soap"
	"github.com/consult/consult/internal/domain/urgency"
)

// Demographics is the patient identity surface the engine works with.
type Demographics struct {
	Age      int    `json:"age,omitempty"`
	AgeKnown bool   `json:"age_known"`
	Sex      string `json:"sex,omitempty"`
	Pregnant bool   `json:"pregnant,omitempty"`
}

// Context is the extracted clinical context beyond symptoms.
type Context struct {
	Comorbidities   []string `json:"comorbidities,omitempty"`
	Medications     []string `json:"medications,omitempty"`
	Allergies       []string `json:"allergies,omitempty"`
	FamilyHistoryMI bool     `json:"family_history_mi,omitempty"`
	Smoker          bool     `json:"smoker,omitempty"`
	ExSmoker        bool     `json:"ex_smoker,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// Message is one transcript entry.
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Provenance points at the event that last touched a piece of working state.
type Provenance struct {
	EventID    uuid.UUID `json:"event_id"`
	SequenceNo int64     `json:"sequence_no"`
}

// WIPExtraction is the work-in-progress extraction, each part tagged with
// the event that produced it.
type WIPExtraction struct {
	Demographics           Demographics        `json:"demographics"`
	DemographicsProv       *Provenance         `json:"demographics_provenance,omitempty"`
	Symptoms               []urgency.Symptom   `json:"symptoms,omitempty"`
	SymptomsProv           *Provenance         `json:"symptoms_provenance,omitempty"`
	Context                Context             `json:"context"`
	ContextProv            *Provenance         `json:"context_provenance,omitempty"`
	CandidateDifferentials []soap.Differential `json:"candidate_differentials,omitempty"`
	Completeness           float64             `json:"completeness"`
	MissingCriticalFields  []string            `json:"missing_critical_fields,omitempty"`
}

// Aggregate is the materialized projection of one consultation. It is owned
// by the processing path that replayed it; all changes go through the event
// store, never by mutating an aggregate shared across requests.
type Aggregate struct {
	ID             uuid.UUID          `json:"consultation_id"`
	SessionID      uuid.UUID          `json:"session_id"`
	UserID         string             `json:"user_id,omitempty"`
	State          State              `json:"state"`
	Messages       []Message          `json:"messages,omitempty"`
	WIP            WIPExtraction      `json:"wip_extraction"`
	IterationCount int                `json:"iteration_count"`
	SOAPDraft      *soap.Note         `json:"soap_draft,omitempty"`
	Urgency        *urgency.Assessment `json:"urgency,omitempty"`
	Patterns       []string           `json:"identified_patterns,omitempty"`
	Committed      bool               `json:"committed"`
	CommitHash     string             `json:"commit_hash,omitempty"`
	LastSequenceNo int64              `json:"last_sequence_no"`
}

// Patient maps the working extraction onto the classifier's patient input.
func (a *Aggregate) Patient() urgency.Patient {
	return urgency.Patient{
		Age:           a.WIP.Demographics.Age,
		AgeKnown:      a.WIP.Demographics.AgeKnown,
		Sex:           a.WIP.Demographics.Sex,
		Pregnant:      a.WIP.Demographics.Pregnant,
		Comorbidities: a.WIP.Context.Comorbidities,
	}
}

// History maps the working extraction onto the classifier's history input.
func (a *Aggregate) History() urgency.History {
	return urgency.History{
		FamilyHistoryMI: a.WIP.Context.FamilyHistoryMI,
		Smoker:          a.WIP.Context.Smoker,
		ExSmoker:        a.WIP.Context.ExSmoker,
	}
}

// Score computes the commit gates for the current draft.
func (a *Aggregate) Score() soap.Score {
	return soap.ScoreNote(a.SOAPDraft, a.WIP.Demographics.AgeKnown, len(a.WIP.Symptoms) > 0)
}

// Transcript returns the patient-visible message history.
func (a *Aggregate) Transcript() []Message {
	return a.Messages
}
