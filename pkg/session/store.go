package session

import (
	"context"

	"github.com/google/uuid"
)

// StoreInterface persists the session list and the uploaded-session set.
// Both are read once at startup and written after every mutating operation.
type StoreInterface interface {
	// SaveSession inserts or fully updates a session record
	SaveSession(ctx context.Context, record *Record) error

	// LoadSessions returns all persisted session records, newest first
	LoadSessions(ctx context.Context) ([]*Record, error)

	// DeleteSession removes a session record and its chunks and responses
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// MarkUploaded records that every blob part of the session received a
	// successful write acknowledgment
	MarkUploaded(ctx context.Context, id uuid.UUID) error

	// IsUploaded reports whether the session id is in the uploaded set
	IsUploaded(ctx context.Context, id uuid.UUID) (bool, error)

	// LoadUploaded returns all session ids in the uploaded set
	LoadUploaded(ctx context.Context) ([]uuid.UUID, error)

	// PruneUploaded intersects the uploaded set with the given live session
	// ids, removing markers for sessions that are no longer cached
	PruneUploaded(ctx context.Context, live []uuid.UUID) error
}
