package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store used by unit tests and EVENT_STORE=memory
// development mode. It applies the same optimistic head check as the
// Postgres store: the head is snapshotted, the hash computed against it, and
// the insert rejected with ErrConflict if the head moved in between.
type MemStore struct {
	mu     sync.RWMutex
	chains map[uuid.UUID][]*Event
}

func NewMemStore() *MemStore {
	return &MemStore{chains: make(map[uuid.UUID][]*Event)}
}

func (s *MemStore) Head(_ context.Context, consultationID uuid.UUID) (int64, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headLocked(consultationID)
}

func (s *MemStore) headLocked(consultationID uuid.UUID) (int64, string, error) {
	chain := s.chains[consultationID]
	if len(chain) == 0 {
		return 0, GenesisHash, nil
	}
	last := chain[len(chain)-1]
	return last.SequenceNo, last.AuditHash, nil
}

func (s *MemStore) Append(ctx context.Context, req AppendRequest) (*Event, error) {
	lastSeq, prevHash, err := s.Head(ctx, req.ConsultationID)
	if err != nil {
		return nil, err
	}
	return s.appendAt(req, lastSeq, prevHash)
}

// appendAt inserts the event computed against a previously observed head.
// Splitting the head read from the insert keeps the conflict window real, so
// the optimistic-concurrency contract is exercised the same way the unique
// constraint exercises it in Postgres.
func (s *MemStore) appendAt(req AppendRequest, lastSeq int64, prevHash string) (*Event, error) {
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
	var err error
	e.AuditHash, err = ComputeHash(e.PrevHash, e.Payload, e.SequenceNo)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	currentSeq, _, _ := s.headLocked(req.ConsultationID)
	if currentSeq != lastSeq {
		return nil, ErrConflict
	}
	s.chains[req.ConsultationID] = append(s.chains[req.ConsultationID], e)
	return e, nil
}

func (s *MemStore) Read(ctx context.Context, consultationID uuid.UUID) ([]*Event, error) {
	out, err := s.ReadRaw(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if err := VerifyChain(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MemStore) ReadRaw(_ context.Context, consultationID uuid.UUID) ([]*Event, error) {
	s.mu.RLock()
	chain := s.chains[consultationID]
	out := make([]*Event, len(chain))
	copy(out, chain)
	s.mu.RUnlock()

	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
