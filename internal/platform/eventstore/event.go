// Package eventstore provides the append-only, hash-chained event log that
// backs every consultation. Events are immutable once written; the aggregate
// and all projections are rebuilt by replaying them in sequence order.
package eventstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the prev_hash of the first event in every consultation chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Event is one immutable record in a consultation's history. The audit hash
// is recomputable from (prev_hash, canonical payload, sequence_no); a stored
// event whose recomputed hash disagrees is an integrity violation.
type Event struct {
	EventID        uuid.UUID       `json:"event_id"`
	ConsultationID uuid.UUID       `json:"consultation_id"`
	SessionID      uuid.UUID       `json:"session_id"`
	SequenceNo     int64           `json:"sequence_no"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	Timestamp      time.Time       `json:"timestamp"`
	AuditHash      string          `json:"audit_hash"`
	PrevHash       string          `json:"prev_hash"`
}

// CanonicalJSON reduces a JSON document to a canonical byte form: object keys
// sorted, insignificant whitespace removed, numbers preserved verbatim. Two
// semantically equal payloads always canonicalise to identical bytes, which
// is what makes the audit hash reproducible.
func CanonicalJSON(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return []byte("null"), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canonicalise payload: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalise payload: %w", err)
	}
	return out, nil
}

// ComputeHash returns the audit hash for an event at the given chain position:
// hex(sha256(prev_hash || canonical(payload) || sequence_no)).
func ComputeHash(prevHash string, payload json.RawMessage, sequenceNo int64) (string, error) {
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(canonical)
	h.Write([]byte(strconv.FormatInt(sequenceNo, 10)))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the event's audit hash and reports whether it matches the
// stored value.
func (e *Event) Verify() error {
	computed, err := ComputeHash(e.PrevHash, e.Payload, e.SequenceNo)
	if err != nil {
		return &IntegrityError{
			ConsultationID: e.ConsultationID,
			SequenceNo:     e.SequenceNo,
			Reason:         "payload is not canonicalisable",
		}
	}
	if computed != e.AuditHash {
		return &IntegrityError{
			ConsultationID: e.ConsultationID,
			SequenceNo:     e.SequenceNo,
			Reason:         "recomputed audit hash does not match stored value",
		}
	}
	return nil
}

// VerifyChain walks a consultation's full event sequence and checks ordering,
// contiguity, hash linkage and per-event hash integrity. The input must be
// sorted by sequence number, as returned by Store.Read.
func VerifyChain(events []*Event) error {
	prevHash := GenesisHash
	for i, e := range events {
		want := int64(i + 1)
		if e.SequenceNo != want {
			return &IntegrityError{
				ConsultationID: e.ConsultationID,
				SequenceNo:     e.SequenceNo,
				Reason:         "sequence numbers are not contiguous",
			}
		}
		if e.PrevHash != prevHash {
			return &IntegrityError{
				ConsultationID: e.ConsultationID,
				SequenceNo:     e.SequenceNo,
				Reason:         "prev_hash does not link to preceding event",
			}
		}
		if err := e.Verify(); err != nil {
			return err
		}
		prevHash = e.AuditHash
	}
	return nil
}
