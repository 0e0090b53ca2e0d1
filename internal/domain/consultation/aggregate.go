package consultation

import (
	"encoding/json"
	"fmt"

	"github.com/consult/consult/internal/domain/soap"
	"github.com/consult/consult/internal/platform/eventstore"
)

// Replay folds a consultation's ordered event sequence into an aggregate.
// The fold is pure and idempotent: the same events always produce the same
// aggregate, and state depends only on sequence order.
func Replay(events []*eventstore.Event) (*Aggregate, error) {
	agg := &Aggregate{State: StateIdle}
	for _, e := range events {
		next, err := Transition(agg.State, e.EventType)
		if err != nil {
			// Events are validated before append, so an illegal transition
			// in stored history means the log itself is suspect.
			return nil, fmt.Errorf("replay event %d: %w", e.SequenceNo, err)
		}
		agg.State = next
		if err := agg.applyPayload(e); err != nil {
			return nil, fmt.Errorf("replay event %d: %w", e.SequenceNo, err)
		}
		agg.LastSequenceNo = e.SequenceNo
	}
	return agg, nil
}

func (a *Aggregate) applyPayload(e *eventstore.Event) error {
	switch e.EventType {
	case EventConsultationStarted:
		var p StartedPayload
		if err := unmarshalPayload(e.Payload, &p); err != nil {
			return err
		}
		a.ID = e.ConsultationID
		a.SessionID = e.SessionID
		a.UserID = p.UserID
		a.WIP.Demographics = p.Patient

	case EventMessageReceived, EventResponsePrepared, EventValidationFailed:
		a.applyMessage(e)

	case EventCriticalPatternDetected:
		var p PatternPayload
		if err := unmarshalPayload(e.Payload, &p); err != nil {
			return err
		}
		a.Patterns = mergePatterns(a.Patterns, p.Patterns)

	case EventUrgencyClassified:
		var p UrgencyPayload
		if err := unmarshalPayload(e.Payload, &p); err != nil {
			return err
		}
		assessment := p.Assessment
		a.Urgency = &assessment
		a.Patterns = mergePatterns(a.Patterns, assessment.IdentifiedPatterns)

	case EventDemographicsUpdated:
		var p DemographicsPayload
		if err := unmarshalPayload(e.Payload, &p); err != nil {
			return err
		}
		a.WIP.Demographics = p.Demographics
		a.WIP.DemographicsProv = &Provenance{EventID: e.EventID, SequenceNo: e.SequenceNo}

	case EventSymptomsUpdated:
		var p SymptomsPayload
		if err := unmarshalPayload(e.Payload, &p); err != nil {
			return err
		}
		a.WIP.Symptoms = p.Symptoms
		a.WIP.SymptomsProv = &Provenance{EventID: e.EventID, SequenceNo: e.SequenceNo}

	case EventContextUpdated:
		var p ContextPayload
		if err := unmarshalPayload(e.Payload, &p); err != nil {
			return err
		}
		a.WIP.Context = p.Context
		a.WIP.ContextProv = &Provenance{EventID: e.EventID, SequenceNo: e.SequenceNo}

	case EventExtractionCompleted:
		var p ExtractionCompletedPayload
		if err := unmarshalPayload(e.Payload, &p); err != nil {
			return err
		}
		a.IterationCount = p.Iteration
		a.WIP.Completeness = p.Completeness
		a.WIP.MissingCriticalFields = p.MissingCriticalFields
		if len(p.CandidateDifferentials) > 0 {
			a.WIP.CandidateDifferentials = p.CandidateDifferentials
		}

	case EventSOAPSectionCompleted:
		var p SOAPSectionPayload
		if err := unmarshalPayload(e.Payload, &p); err != nil {
			return err
		}
		a.applySection(p)

	case EventConsultationCommitted:
		var p CommitPayload
		if err := unmarshalPayload(e.Payload, &p); err != nil {
			return err
		}
		a.Committed = true
		a.CommitHash = p.CommitHash

	case EventMessageValidated, EventTriageCompleted, EventIterationRequested,
		EventExtractionSettled, EventSOAPGenerationCompleted,
		EventAssessmentCompleted, EventPlanCompleted, EventErrorRaised,
		EventRetryRequested, EventAuditEntryCreated:
		// Pure transition or audit events carry no projected state.
	}
	return nil
}

func (a *Aggregate) applyMessage(e *eventstore.Event) {
	role := "engine"
	text := ""
	switch e.EventType {
	case EventMessageReceived:
		var p MessagePayload
		if unmarshalPayload(e.Payload, &p) == nil {
			role, text = p.Role, p.Text
		}
	case EventResponsePrepared:
		var p ResponsePreparedPayload
		if unmarshalPayload(e.Payload, &p) == nil {
			text = p.Text
		}
	case EventValidationFailed:
		var p ValidationFailedPayload
		if unmarshalPayload(e.Payload, &p) == nil {
			text = p.Prompt
		}
	}
	if text != "" {
		a.Messages = append(a.Messages, Message{Role: role, Text: text, Timestamp: e.Timestamp})
	}
}

func (a *Aggregate) applySection(p SOAPSectionPayload) {
	if a.SOAPDraft == nil {
		a.SOAPDraft = &soap.Note{}
	}
	switch p.Section {
	case soap.SectionSubjective:
		if p.Subjective != nil {
			a.SOAPDraft.Subjective = *p.Subjective
		}
	case soap.SectionObjective:
		if p.Objective != nil {
			a.SOAPDraft.Objective = *p.Objective
		}
	case soap.SectionAssessment:
		if p.Assessment != nil {
			a.SOAPDraft.Assessment = *p.Assessment
		}
	case soap.SectionPlan:
		if p.Plan != nil {
			a.SOAPDraft.Plan = *p.Plan
		}
	}
}

func mergePatterns(existing, incoming []string) []string {
	for _, p := range incoming {
		seen := false
		for _, e := range existing {
			if e == p {
				seen = true
				break
			}
		}
		if !seen {
			existing = append(existing, p)
		}
	}
	return existing
}

func unmarshalPayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
