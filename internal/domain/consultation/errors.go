package consultation

import (
	"errors"
	"fmt"
)

// ErrExtractionTimeout marks an oracle call that exceeded its deadline. The
// iteration is treated as non-productive; the loop continues up to its
// budget, never retrying the same call indefinitely.
var ErrExtractionTimeout = errors.New("consultation: extraction oracle call timed out")

// ErrConsultationFrozen marks a consultation whose chain failed integrity
// verification. It is read-only from then on.
var ErrConsultationFrozen = errors.New("consultation: frozen after integrity violation")

// ValidationError reports malformed or non-clinical inbound content. It is
// recovered locally by prompting for clarification and is never a system
// fault. Reason is structural: field names and expected shapes, no values.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("consultation: message validation failed: %s", e.Reason)
}

// Commit gate identifiers reported by CommitError.
const (
	GateState        = "state"
	GateErrorState   = "unresolved_error"
	GateCompleteness = "completeness"
	GateCompliance   = "compliance"
)

// CommitError reports unmet commit preconditions. It is always surfaced to
// the caller with the specific missing gate, never silently retried.
type CommitError struct {
	Gate   string
	Detail string
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("consultation: commit rejected (%s): %s", e.Gate, e.Detail)
}
