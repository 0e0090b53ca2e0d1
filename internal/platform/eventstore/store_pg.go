package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists events in the consultation_event table. The UNIQUE
// constraint on (consultation_id, sequence_no) gives single-writer-per-
// consultation semantics: the loser of an append race hits a unique
// violation, which surfaces as ErrConflict.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const eventCols = `event_id, consultation_id, session_id, sequence_no, event_type,
	payload, ts, audit_hash, prev_hash`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.EventID, &e.ConsultationID, &e.SessionID, &e.SequenceNo, &e.EventType,
		&e.Payload, &e.Timestamp, &e.AuditHash, &e.PrevHash)
	return &e, err
}

func (s *PGStore) Head(ctx context.Context, consultationID uuid.UUID) (int64, string, error) {
	var seq int64
	var hash string
	err := s.pool.QueryRow(ctx, `
		SELECT sequence_no, audit_hash FROM consultation_event
		WHERE consultation_id = $1
		ORDER BY sequence_no DESC LIMIT 1`, consultationID).Scan(&seq, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, GenesisHash, nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("read chain head: %w", err)
	}
	return seq, hash, nil
}

func (s *PGStore) Append(ctx context.Context, req AppendRequest) (*Event, error) {
	lastSeq, prevHash, err := s.Head(ctx, req.ConsultationID)
	if err != nil {
		return nil, err
	}

	e := &Event{
		EventID:        uuid.New(),
		ConsultationID: req.ConsultationID,
		SessionID:      req.SessionID,
		SequenceNo:     lastSeq + 1,
		EventType:      req.EventType,
		Payload:        req.Payload,
		Timestamp:      time.Now().UTC(),
		PrevHash:       prevHash,
	}
	e.AuditHash, err = ComputeHash(e.PrevHash, e.Payload, e.SequenceNo)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO consultation_event (`+eventCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.EventID, e.ConsultationID, e.SessionID, e.SequenceNo, e.EventType,
		e.Payload, e.Timestamp, e.AuditHash, e.PrevHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("append event: %w", err)
	}
	return e, nil
}

func (s *PGStore) Read(ctx context.Context, consultationID uuid.UUID) ([]*Event, error) {
	events, err := s.ReadRaw(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if err := VerifyChain(events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *PGStore) ReadRaw(ctx context.Context, consultationID uuid.UUID) ([]*Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventCols+` FROM consultation_event
		WHERE consultation_id = $1
		ORDER BY sequence_no ASC`, consultationID)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events, nil
}
