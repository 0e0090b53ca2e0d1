package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/consult/consult/internal/domain/soap"
	"github.com/consult/consult/internal/domain/urgency"
	"github.com/consult/consult/internal/platform/eventstore"
)

// Notifier receives every successfully appended event, for live streaming.
// Implementations must not block.
type Notifier interface {
	PublishEvent(consultationID uuid.UUID, e *eventstore.Event)
}

// Service drives the consultation engine. It holds no per-consultation
// state: every call reconstructs the aggregate from the event store,
// validates, appends, and discards it.
type Service struct {
	store    eventstore.Store
	oracle   Oracle
	logger   zerolog.Logger
	notifier Notifier
}

func NewService(store eventstore.Store, oracle Oracle, logger zerolog.Logger) *Service {
	return &Service{store: store, oracle: oracle, logger: logger}
}

// SetNotifier attaches an optional live-event notifier.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// TurnResult is what one engine turn hands back to the transport layer.
type TurnResult struct {
	ConsultationID uuid.UUID           `json:"consultation_id"`
	State          State               `json:"state"`
	Reply          string              `json:"reply,omitempty"`
	Urgency        *urgency.Assessment `json:"urgency,omitempty"`
	SOAPReady      bool                `json:"soap_ready"`
	Score          *soap.Score         `json:"score,omitempty"`
	Emergency      bool                `json:"emergency"`
}

// SOAPView is the read model for the note editor.
type SOAPView struct {
	SOAPNote         *soap.Note          `json:"soap_note,omitempty"`
	Completeness     soap.Score          `json:"completeness"`
	Urgency          *urgency.Assessment `json:"urgency_assessment,omitempty"`
	IsReadyForCommit bool                `json:"is_ready_for_commit"`
	State            State               `json:"state"`
}

// Start opens a consultation: fresh identifiers, one CONSULTATION_STARTED
// event.
func (s *Service) Start(ctx context.Context, userID string, patient Demographics) (*Aggregate, error) {
	agg := &Aggregate{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		State:     StateIdle,
	}
	if _, err := s.append(ctx, agg, EventConsultationStarted, StartedPayload{UserID: userID, Patient: patient}); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("consultation_id", agg.ID.String()).
		Str("session_id", agg.SessionID.String()).
		Msg("consultation started")
	return agg, nil
}

// Get reconstructs the aggregate from the event log. An integrity violation
// freezes the consultation read-only.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Aggregate, error) {
	events, err := s.store.Read(ctx, id)
	if err != nil {
		var ie *eventstore.IntegrityError
		if errors.As(err, &ie) {
			s.logger.Error().
				Str("consultation_id", id.String()).
				Int64("sequence_no", ie.SequenceNo).
				Str("reason", ie.Reason).
				Msg("integrity violation: consultation frozen")
			return nil, fmt.Errorf("%w: %w", ErrConsultationFrozen, ie)
		}
		return nil, err
	}
	return Replay(events)
}

// View assembles the SOAP read model.
func (s *Service) View(ctx context.Context, id uuid.UUID) (*SOAPView, error) {
	agg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	score := agg.Score()
	return &SOAPView{
		SOAPNote:         agg.SOAPDraft,
		Completeness:     score,
		Urgency:          agg.Urgency,
		IsReadyForCommit: score.ReadyForCommit && agg.State == StateReadyToCommit,
		State:            agg.State,
	}, nil
}

// reservedEventTypes are facts only the engine itself may record: they exist
// as outputs of validation, extraction, classification, note generation and
// commit, each carrying state the engine computed. CONSULTATION_COMMITTED in
// particular must never skip the commit gates and the derived commit hash.
// The generic append accepts only operational facts: messages are reserved
// too, since they must flow through HandleMessage to drive a turn.
var reservedEventTypes = map[string]struct{}{
	EventConsultationStarted:     {},
	EventMessageReceived:         {},
	EventMessageValidated:        {},
	EventValidationFailed:        {},
	EventCriticalPatternDetected: {},
	EventUrgencyClassified:       {},
	EventTriageCompleted:         {},
	EventExtractionCompleted:     {},
	EventDemographicsUpdated:     {},
	EventSymptomsUpdated:         {},
	EventContextUpdated:          {},
	EventIterationRequested:      {},
	EventResponsePrepared:        {},
	EventExtractionSettled:       {},
	EventSOAPSectionCompleted:    {},
	EventSOAPGenerationCompleted: {},
	EventAssessmentCompleted:     {},
	EventPlanCompleted:           {},
	EventConsultationCommitted:   {},
}

// AppendEvent is the generic guarded append used by trusted integrations to
// record operational facts (audit annotations, error reports, retries).
// Engine-derived event types are rejected outright; for the rest, the event
// type must be legal for the consultation's current state. A rejected append
// is itself logged as an audit-visible fact.
func (s *Service) AppendEvent(ctx context.Context, id uuid.UUID, eventType string, payload json.RawMessage, userID string) (*eventstore.Event, error) {
	agg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, reserved := reservedEventTypes[eventType]; reserved {
		s.logger.Warn().
			Str("consultation_id", id.String()).
			Str("event_type", eventType).
			Str("user_id", userID).
			Msg("append rejected: engine-derived event type")
		return nil, &ValidationError{Reason: "event_type_reserved"}
	}
	if _, err := Transition(agg.State, eventType); err != nil {
		s.logger.Warn().
			Str("consultation_id", id.String()).
			Str("event_type", eventType).
			Str("state", string(agg.State)).
			Str("user_id", userID).
			Msg("append rejected: invalid transition")
		return nil, err
	}
	return s.appendRaw(ctx, agg, eventType, payload)
}

// Retry takes an errored consultation back to intake.
func (s *Service) Retry(ctx context.Context, id uuid.UUID) (*Aggregate, error) {
	agg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.append(ctx, agg, EventRetryRequested, AuditEntryPayload{Level: "info", Message: "retry requested after error"}); err != nil {
		return nil, err
	}
	return agg, nil
}

// HandleMessage runs one full engine turn for an inbound patient message:
// validate, red-flag scan, extraction loop, and note generation when the
// stopping rule settles.
func (s *Service) HandleMessage(ctx context.Context, id uuid.UUID, text string) (*TurnResult, error) {
	agg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := Transition(agg.State, EventMessageReceived); err != nil {
		return nil, err
	}
	if _, err := s.append(ctx, agg, EventMessageReceived, MessagePayload{Role: "patient", Text: text}); err != nil {
		return nil, err
	}

	if reason := validateMessage(text); reason != "" {
		prompt := clarificationPrompt(reason)
		if _, err := s.append(ctx, agg, EventValidationFailed, ValidationFailedPayload{Reason: reason, Prompt: prompt}); err != nil {
			return nil, err
		}
		return &TurnResult{ConsultationID: agg.ID, State: agg.State, Reply: prompt}, nil
	}
	if _, err := s.append(ctx, agg, EventMessageValidated, nil); err != nil {
		return nil, err
	}

	// Red-flag scan on the raw message, before any oracle round-trip: a
	// critical pattern in the very first message must short-circuit the
	// whole iteration loop.
	patterns := urgency.MatchPatterns(
		[]urgency.Symptom{{Name: "reported complaint", Description: text}},
		agg.History(),
	)
	if len(patterns) > 0 {
		return s.runEmergencyPath(ctx, agg, text, patterns)
	}

	return s.runExtractionLoop(ctx, agg)
}

// runEmergencyPath is the expedited EMERGENCY -> TRIAGE -> SOAP_GENERATION
// fast path, bypassing the normal iteration loop.
func (s *Service) runEmergencyPath(ctx context.Context, agg *Aggregate, text string, patterns []string) (*TurnResult, error) {
	if _, err := s.append(ctx, agg, EventCriticalPatternDetected, PatternPayload{Patterns: patterns}); err != nil {
		return nil, err
	}

	symptoms := append([]urgency.Symptom{}, agg.WIP.Symptoms...)
	symptoms = append(symptoms, urgency.Symptom{
		Name:        "reported complaint",
		Description: text,
		Severity:    urgency.SeverityCritical,
	})
	assessment := urgency.Classify(symptoms, agg.Patient(), agg.History())

	if _, err := s.append(ctx, agg, EventUrgencyClassified, UrgencyPayload{Assessment: assessment}); err != nil {
		return nil, err
	}
	if _, err := s.append(ctx, agg, EventSymptomsUpdated, SymptomsPayload{Symptoms: symptoms}); err != nil {
		return nil, err
	}
	if _, err := s.append(ctx, agg, EventTriageCompleted, nil); err != nil {
		return nil, err
	}

	result, err := s.generateNote(ctx, agg)
	if err != nil {
		return nil, err
	}
	result.Emergency = true
	return result, nil
}

// runExtractionLoop drives oracle iterations until the stopping rule or a
// CRITICAL override settles extraction, then generates the note.
func (s *Service) runExtractionLoop(ctx context.Context, agg *Aggregate) (*TurnResult, error) {
	for {
		iteration := agg.IterationCount + 1
		focus := agg.WIP.MissingCriticalFields

		res, err := s.oracle.Extract(ctx, agg.Transcript(), focus)
		switch {
		case errors.Is(err, context.Canceled):
			// Caller aborted: no event, aggregate stays at its last valid
			// state.
			return nil, err
		case errors.Is(err, ErrExtractionTimeout):
			// Non-productive iteration; the budget still advances.
			s.logger.Warn().
				Str("consultation_id", agg.ID.String()).
				Int("iteration", iteration).
				Msg("extraction iteration timed out")
			if _, aerr := s.append(ctx, agg, EventExtractionCompleted, ExtractionCompletedPayload{
				Iteration:             iteration,
				Productive:            false,
				Completeness:          agg.WIP.Completeness,
				MissingCriticalFields: agg.WIP.MissingCriticalFields,
			}); aerr != nil {
				return nil, aerr
			}
		case err != nil:
			if _, aerr := s.append(ctx, agg, EventErrorRaised, ErrorPayload{Stage: "extraction", Kind: "oracle_failure"}); aerr != nil {
				return nil, aerr
			}
			return nil, fmt.Errorf("extraction failed: %w", err)
		default:
			if _, aerr := s.append(ctx, agg, EventExtractionCompleted, ExtractionCompletedPayload{
				Iteration:              iteration,
				Productive:             true,
				Completeness:           res.Completeness,
				MissingCriticalFields:  res.MissingCriticalFields,
				CandidateDifferentials: res.CandidateDifferentials,
			}); aerr != nil {
				return nil, aerr
			}
			if res.Demographics != nil {
				if _, aerr := s.append(ctx, agg, EventDemographicsUpdated, DemographicsPayload{Demographics: *res.Demographics}); aerr != nil {
					return nil, aerr
				}
			}
			if len(res.Symptoms) > 0 {
				if _, aerr := s.append(ctx, agg, EventSymptomsUpdated, SymptomsPayload{Symptoms: res.Symptoms}); aerr != nil {
					return nil, aerr
				}
			}
			if res.Context != nil {
				if _, aerr := s.append(ctx, agg, EventContextUpdated, ContextPayload{Context: *res.Context}); aerr != nil {
					return nil, aerr
				}
			}
		}

		assessment := urgency.Classify(agg.WIP.Symptoms, agg.Patient(), agg.History())
		if _, err := s.append(ctx, agg, EventUrgencyClassified, UrgencyPayload{Assessment: assessment}); err != nil {
			return nil, err
		}

		if assessment.IsCritical() {
			if _, err := s.append(ctx, agg, EventExtractionSettled, ExtractionSettledPayload{
				Reason:       SettleCriticalOverride,
				Iterations:   agg.IterationCount,
				Completeness: agg.WIP.Completeness,
			}); err != nil {
				return nil, err
			}
			result, err := s.generateNote(ctx, agg)
			if err != nil {
				return nil, err
			}
			result.Emergency = true
			return result, nil
		}

		decision := DecideNextIteration(agg.WIP.Completeness, agg.WIP.MissingCriticalFields, agg.IterationCount)
		if !decision.Continue {
			if _, err := s.append(ctx, agg, EventExtractionSettled, ExtractionSettledPayload{
				Reason:       decision.Reason,
				Iterations:   agg.IterationCount,
				Completeness: agg.WIP.Completeness,
			}); err != nil {
				return nil, err
			}
			return s.generateNote(ctx, agg)
		}

		if res != nil && res.FollowUpQuestion != "" {
			// The oracle needs the patient, not another pass over the same
			// transcript.
			if _, err := s.append(ctx, agg, EventResponsePrepared, ResponsePreparedPayload{Text: res.FollowUpQuestion}); err != nil {
				return nil, err
			}
			return &TurnResult{
				ConsultationID: agg.ID,
				State:          agg.State,
				Reply:          res.FollowUpQuestion,
				Urgency:        agg.Urgency,
			}, nil
		}

		if _, err := s.append(ctx, agg, EventIterationRequested, IterationRequestedPayload{
			Iteration:  agg.IterationCount + 1,
			FocusAreas: decision.FocusAreas,
		}); err != nil {
			return nil, err
		}
	}
}

// generateNote drafts the four sections: subjective and objective via the
// oracle, assessment and plan deterministically in-process.
func (s *Service) generateNote(ctx context.Context, agg *Aggregate) (*TurnResult, error) {
	var assessment urgency.Assessment
	if agg.Urgency != nil {
		assessment = *agg.Urgency
	}
	input := SectionInput{Transcript: agg.Transcript(), WIP: agg.WIP, Urgency: assessment}

	for _, section := range []string{soap.SectionSubjective, soap.SectionObjective} {
		drafted, err := s.oracle.ComposeSection(ctx, section, input)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			if _, aerr := s.append(ctx, agg, EventErrorRaised, ErrorPayload{Stage: "soap_generation", Kind: "oracle_failure"}); aerr != nil {
				return nil, aerr
			}
			return nil, fmt.Errorf("compose %s section: %w", section, err)
		}
		if _, err := s.append(ctx, agg, EventSOAPSectionCompleted, SOAPSectionPayload{
			Section:    section,
			Subjective: drafted.Subjective,
			Objective:  drafted.Objective,
		}); err != nil {
			return nil, err
		}
	}
	if _, err := s.append(ctx, agg, EventSOAPGenerationCompleted, nil); err != nil {
		return nil, err
	}

	noteAssessment := soap.ComposeAssessment(
		agg.WIP.CandidateDifferentials,
		assessment,
		agg.Patient(),
		clinicalReasoning(agg, assessment),
	)
	if _, err := s.append(ctx, agg, EventSOAPSectionCompleted, SOAPSectionPayload{
		Section:    soap.SectionAssessment,
		Assessment: &noteAssessment,
	}); err != nil {
		return nil, err
	}
	if _, err := s.append(ctx, agg, EventAssessmentCompleted, nil); err != nil {
		return nil, err
	}

	plan := soap.ComposePlan(assessment, noteAssessment)
	if _, err := s.append(ctx, agg, EventSOAPSectionCompleted, SOAPSectionPayload{
		Section: soap.SectionPlan,
		Plan:    &plan,
	}); err != nil {
		return nil, err
	}
	if _, err := s.append(ctx, agg, EventPlanCompleted, nil); err != nil {
		return nil, err
	}

	score := agg.Score()
	return &TurnResult{
		ConsultationID: agg.ID,
		State:          agg.State,
		Reply:          turnSummary(agg, score),
		Urgency:        agg.Urgency,
		SOAPReady:      score.ReadyForCommit,
		Score:          &score,
	}, nil
}

// append validates the transition, persists the event and folds it into the
// in-flight aggregate so the turn continues from consistent state.
func (s *Service) append(ctx context.Context, agg *Aggregate, eventType string, payload interface{}) (*eventstore.Event, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = eventstore.MarshalPayload(payload)
		if err != nil {
			return nil, err
		}
	}
	return s.appendRaw(ctx, agg, eventType, raw)
}

func (s *Service) appendRaw(ctx context.Context, agg *Aggregate, eventType string, raw json.RawMessage) (*eventstore.Event, error) {
	next, err := Transition(agg.State, eventType)
	if err != nil {
		return nil, err
	}
	e, err := s.store.Append(ctx, eventstore.AppendRequest{
		ConsultationID: agg.ID,
		SessionID:      agg.SessionID,
		EventType:      eventType,
		Payload:        raw,
	})
	if err != nil {
		// ErrConflict passes through untouched: the caller re-reads and
		// retries.
		return nil, err
	}
	agg.State = next
	if err := agg.applyPayload(e); err != nil {
		return nil, err
	}
	agg.LastSequenceNo = e.SequenceNo
	if s.notifier != nil {
		s.notifier.PublishEvent(agg.ID, e)
	}
	return e, nil
}

func validateMessage(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "empty_message"
	}
	if len(trimmed) > 4000 {
		return "message_too_long"
	}
	return ""
}

func clarificationPrompt(reason string) string {
	switch reason {
	case "empty_message":
		return "I didn't receive any text. Could you describe what is bothering you?"
	case "message_too_long":
		return "That message is too long for me to process at once. Could you summarise the main problem?"
	default:
		return "Could you rephrase that?"
	}
}

func clinicalReasoning(agg *Aggregate, assessment urgency.Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Derived from %d extracted symptom(s) over %d extraction iteration(s); gravity %.1f (%s).",
		len(agg.WIP.Symptoms), agg.IterationCount, assessment.GravityScore, assessment.Level)
	if len(assessment.IdentifiedPatterns) > 0 {
		fmt.Fprintf(&b, " Critical patterns identified: %s.", strings.Join(assessment.IdentifiedPatterns, ", "))
	}
	return b.String()
}

func turnSummary(agg *Aggregate, score soap.Score) string {
	if agg.Urgency != nil && agg.Urgency.Level == urgency.LevelCritical {
		return "Critical warning signs identified. Seek emergency care immediately; a clinical note has been prepared for handover."
	}
	if score.ReadyForCommit {
		return "Thank you, I have enough information. The clinical note is ready for review and sign-off."
	}
	return "The clinical note has been drafted but is missing some details; please review before sign-off."
}
