package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	pkgsession "github.com/NikoToRA/koereq-sync/pkg/session"
)

// InMemoryStore provides an in-memory implementation of the session store
// interface for testing and degraded operation
type InMemoryStore struct {
	records  map[uuid.UUID]*pkgsession.Record
	uploaded map[uuid.UUID]bool
	mutex    sync.RWMutex
}

// NewInMemoryStore creates a new in-memory session store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:  make(map[uuid.UUID]*pkgsession.Record),
		uploaded: make(map[uuid.UUID]bool),
	}
}

// SaveSession stores a deep copy of the record
func (s *InMemoryStore) SaveSession(ctx context.Context, record *pkgsession.Record) error {
	if record == nil || record.ID == uuid.Nil {
		return fmt.Errorf("record must have an id")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records[record.ID] = record.Clone()
	return nil
}

// LoadSessions returns copies of all stored records, newest first
func (s *InMemoryStore) LoadSessions(ctx context.Context) ([]*pkgsession.Record, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := make([]*pkgsession.Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}

// DeleteSession removes a stored record
func (s *InMemoryStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.records, id)
	return nil
}

// MarkUploaded adds a session id to the uploaded set
func (s *InMemoryStore) MarkUploaded(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.uploaded[id] = true
	return nil
}

// IsUploaded reports whether a session id is in the uploaded set
func (s *InMemoryStore) IsUploaded(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.uploaded[id], nil
}

// LoadUploaded returns all session ids in the uploaded set
func (s *InMemoryStore) LoadUploaded(ctx context.Context) ([]uuid.UUID, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.uploaded))
	for id := range s.uploaded {
		ids = append(ids, id)
	}
	return ids, nil
}

// PruneUploaded intersects the uploaded set with the given live ids
func (s *InMemoryStore) PruneUploaded(ctx context.Context, live []uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	keep := make(map[uuid.UUID]bool, len(live))
	for _, id := range live {
		keep[id] = true
	}
	for id := range s.uploaded {
		if !keep[id] {
			delete(s.uploaded, id)
		}
	}
	return nil
}
