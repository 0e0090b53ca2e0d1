package consultation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/consult/consult/internal/platform/eventstore"
)

// CommitResult is returned on a successful commit.
type CommitResult struct {
	ConsultationID uuid.UUID         `json:"consultation_id"`
	CommitHash     string            `json:"commit_hash"`
	Completeness   float64           `json:"completeness"`
	Compliance     float64           `json:"compliance"`
	Event          *eventstore.Event `json:"event"`
}

// Commit seals a consultation: it verifies the commit gates, computes the
// terminal hash over the final note and urgency assessment, and appends the
// CONSULTATION_COMMITTED event. The append is a single atomic event, so a
// partial commit cannot exist. Precondition failures surface as *CommitError
// and are never retried silently.
func (s *Service) Commit(ctx context.Context, consultationID uuid.UUID, committedBy string) (*CommitResult, error) {
	agg, err := s.Get(ctx, consultationID)
	if err != nil {
		return nil, err
	}

	if agg.State == StateError {
		return nil, &CommitError{Gate: GateErrorState, Detail: "consultation has an unresolved error; retry intake first"}
	}
	if agg.State != StateReadyToCommit {
		return nil, &CommitError{Gate: GateState, Detail: fmt.Sprintf("consultation is in state %s, not READY_TO_COMMIT", agg.State)}
	}

	score := agg.Score()
	if score.Overall < 80 {
		return nil, &CommitError{
			Gate:   GateCompleteness,
			Detail: fmt.Sprintf("overall completeness %.0f%% is below the required 80%%", score.Overall),
		}
	}
	if score.Compliance < 90 {
		return nil, &CommitError{
			Gate:   GateCompliance,
			Detail: fmt.Sprintf("compliance score %.0f is below the required 90", score.Compliance),
		}
	}

	commitHash, err := ComputeCommitHash(agg)
	if err != nil {
		return nil, err
	}

	event, err := s.append(ctx, agg, EventConsultationCommitted, CommitPayload{
		CommittedBy:  committedBy,
		CommitHash:   commitHash,
		Completeness: score.Overall,
		Compliance:   score.Compliance,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("consultation_id", agg.ID.String()).
		Str("commit_hash", commitHash).
		Float64("completeness", score.Overall).
		Float64("compliance", score.Compliance).
		Msg("consultation committed")

	return &CommitResult{
		ConsultationID: agg.ID,
		CommitHash:     commitHash,
		Completeness:   score.Overall,
		Compliance:     score.Compliance,
		Event:          event,
	}, nil
}

// ComputeCommitHash derives the terminal hash:
// hex(sha256(canonical(soap) || canonical(urgency) || consultation_id)).
// Replaying a committed consultation's events into a fresh aggregate always
// reproduces the same hash.
func ComputeCommitHash(agg *Aggregate) (string, error) {
	soapJSON, err := json.Marshal(agg.SOAPDraft)
	if err != nil {
		return "", fmt.Errorf("encode final note: %w", err)
	}
	canonicalSOAP, err := eventstore.CanonicalJSON(soapJSON)
	if err != nil {
		return "", err
	}
	urgencyJSON, err := json.Marshal(agg.Urgency)
	if err != nil {
		return "", fmt.Errorf("encode urgency assessment: %w", err)
	}
	canonicalUrgency, err := eventstore.CanonicalJSON(urgencyJSON)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write(canonicalSOAP)
	h.Write(canonicalUrgency)
	h.Write([]byte(agg.ID.String()))
	return hex.EncodeToString(h.Sum(nil)), nil
}
