package consultation

import "fmt"

// State is the consultation workflow state, derived purely from the event
// history. It is never stored; replaying the chain always reproduces it.
type State string

const (
	StateIdle           State = "IDLE"
	StateIntake         State = "INTAKE"
	StateValidating     State = "VALIDATING"
	StateExtracting     State = "EXTRACTING"
	StateResponding     State = "RESPONDING"
	StateEmergency      State = "EMERGENCY"
	StateTriage         State = "TRIAGE"
	StateWIPUpdate      State = "WIP_UPDATE"
	StateSOAPGeneration State = "SOAP_GENERATION"
	StateAssessment     State = "ASSESSMENT"
	StatePlanCreation   State = "PLAN_CREATION"
	StateReadyToCommit  State = "READY_TO_COMMIT"
	StateCommitted      State = "COMMITTED"
	StateError          State = "ERROR"
)

// Terminal reports whether no further events may be appended in this state.
func (s State) Terminal() bool { return s == StateCommitted }

// InvalidTransitionError reports an event type that is illegal for the
// current state. It is raised before persistence; the event is never
// appended.
type InvalidTransitionError struct {
	State     State
	EventType string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("consultation: event %s is not valid in state %s", e.EventType, e.State)
}

// transitions is the complete (state, event type) -> next state table.
// Events absent from a state's row are invalid there.
var transitions = map[State]map[string]State{
	StateIdle: {
		EventConsultationStarted: StateIntake,
	},
	StateIntake: {
		EventMessageReceived: StateValidating,
	},
	StateValidating: {
		EventMessageValidated:        StateExtracting,
		EventValidationFailed:        StateResponding,
		EventCriticalPatternDetected: StateEmergency,
		EventErrorRaised:             StateError,
	},
	StateExtracting: {
		EventExtractionCompleted:     StateWIPUpdate,
		EventCriticalPatternDetected: StateEmergency,
		EventErrorRaised:             StateError,
	},
	StateResponding: {
		EventMessageReceived: StateValidating,
	},
	StateEmergency: {
		EventUrgencyClassified: StateTriage,
	},
	StateTriage: {
		EventUrgencyClassified: StateTriage,
		EventSymptomsUpdated:   StateTriage,
		EventTriageCompleted:   StateSOAPGeneration,
	},
	StateWIPUpdate: {
		EventDemographicsUpdated: StateWIPUpdate,
		EventSymptomsUpdated:     StateWIPUpdate,
		EventContextUpdated:      StateWIPUpdate,
		EventUrgencyClassified:   StateWIPUpdate,
		EventIterationRequested:  StateExtracting,
		EventResponsePrepared:    StateResponding,
		EventExtractionSettled:   StateSOAPGeneration,
	},
	StateSOAPGeneration: {
		EventSOAPSectionCompleted:    StateSOAPGeneration,
		EventSOAPGenerationCompleted: StateAssessment,
		EventErrorRaised:             StateError,
	},
	StateAssessment: {
		EventSOAPSectionCompleted: StateAssessment,
		EventAssessmentCompleted:  StatePlanCreation,
	},
	StatePlanCreation: {
		EventSOAPSectionCompleted: StatePlanCreation,
		EventPlanCompleted:        StateReadyToCommit,
	},
	StateReadyToCommit: {
		EventConsultationCommitted: StateCommitted,
	},
	StateError: {
		EventRetryRequested: StateIntake,
	},
}

// Transition returns the state reached by applying eventType in state. It is
// a pure lookup over the transition table. AUDIT_ENTRY_CREATED is a no-op
// self-loop in every non-terminal state.
func Transition(state State, eventType string) (State, error) {
	if state.Terminal() {
		return state, &InvalidTransitionError{State: state, EventType: eventType}
	}
	if eventType == EventAuditEntryCreated {
		return state, nil
	}
	next, ok := transitions[state][eventType]
	if !ok {
		return state, &InvalidTransitionError{State: state, EventType: eventType}
	}
	return next, nil
}
