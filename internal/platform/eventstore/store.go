package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrConflict is returned when a concurrent append already claimed the next
// sequence number for the same consultation. The caller must re-read the
// latest state and retry.
var ErrConflict = errors.New("eventstore: sequence number already claimed")

// ErrNotFound is returned when a consultation has no events at all.
var ErrNotFound = errors.New("eventstore: consultation not found")

// IntegrityError reports a hash-chain violation discovered on read. It is
// fatal: the consultation must be frozen read-only, never auto-repaired.
// Only structural descriptions are exposed, never payload values.
type IntegrityError struct {
	ConsultationID uuid.UUID
	SequenceNo     int64
	Reason         string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("eventstore: integrity violation at consultation %s sequence %d: %s",
		e.ConsultationID, e.SequenceNo, e.Reason)
}

// AppendRequest carries everything needed to append one event. SessionID is
// carried on every event so audit consumers can correlate events to the
// session that produced them.
type AppendRequest struct {
	ConsultationID uuid.UUID
	SessionID      uuid.UUID
	EventType      string
	Payload        json.RawMessage
}

// Store is the append-only event log. There is no update or delete.
type Store interface {
	// Append persists one event, assigning the next sequence number and
	// chaining the audit hash to the consultation's head. It fails with
	// ErrConflict when a concurrent append won the same sequence number.
	Append(ctx context.Context, req AppendRequest) (*Event, error)

	// Read returns the consultation's events ordered by sequence number,
	// verifying chain integrity. A tampered or gapped chain fails with
	// *IntegrityError.
	Read(ctx context.Context, consultationID uuid.UUID) ([]*Event, error)

	// ReadRaw returns the events without verifying the chain. It exists for
	// audit tooling that must inspect a broken chain; every other caller
	// uses Read.
	ReadRaw(ctx context.Context, consultationID uuid.UUID) ([]*Event, error)

	// Head returns the last sequence number and audit hash for a
	// consultation, or (0, GenesisHash) when it has no events yet.
	Head(ctx context.Context, consultationID uuid.UUID) (int64, string, error)
}

// MarshalPayload is a convenience for callers appending typed payloads.
func MarshalPayload(v interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return b, nil
}
