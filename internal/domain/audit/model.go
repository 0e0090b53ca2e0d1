// Package audit exposes the consultation event chain as a read-only
// compliance projection: structural entries, chain verification and a
// per-consultation summary. It never surfaces payload contents; clinical
// data stays behind the consultation endpoints.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is the structural view of one chained event.
type Entry struct {
	EventID    uuid.UUID `json:"event_id"`
	SequenceNo int64     `json:"sequence_no"`
	EventType  string    `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
	AuditHash  string    `json:"audit_hash"`
	PrevHash   string    `json:"prev_hash"`
}

// VerifyResult is the outcome of a full chain walk.
type VerifyResult struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	Valid          bool      `json:"valid"`
	EventCount     int       `json:"event_count"`
	HeadHash       string    `json:"head_hash,omitempty"`
	FailedSequence int64     `json:"failed_sequence,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

// Summary is the compliance roll-up for one consultation.
type Summary struct {
	ConsultationID uuid.UUID  `json:"consultation_id"`
	EventCount     int        `json:"event_count"`
	FirstEventAt   time.Time  `json:"first_event_at"`
	LastEventAt    time.Time  `json:"last_event_at"`
	Committed      bool       `json:"committed"`
	CommitHash     string     `json:"commit_hash,omitempty"`
	ChainValid     bool       `json:"chain_valid"`
	EventTypes     map[string]int `json:"event_types"`
}
