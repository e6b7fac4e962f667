package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-package test double so cache tests can inspect
// persistence calls directly.
type fakeStore struct {
	mutex    sync.Mutex
	records  map[uuid.UUID]*Record
	uploaded map[uuid.UUID]bool
	saves    int

	loadErr error
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  map[uuid.UUID]*Record{},
		uploaded: map[uuid.UUID]bool{},
	}
}

func (s *fakeStore) SaveSession(ctx context.Context, record *Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records[record.ID] = record.Clone()
	s.saves++
	return nil
}

func (s *fakeStore) LoadSessions(ctx context.Context) ([]*Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *fakeStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.records, id)
	return nil
}

func (s *fakeStore) MarkUploaded(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.uploaded[id] = true
	return nil
}

func (s *fakeStore) IsUploaded(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.uploaded[id], nil
}

func (s *fakeStore) LoadUploaded(ctx context.Context) ([]uuid.UUID, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]uuid.UUID, 0, len(s.uploaded))
	for id := range s.uploaded {
		out = append(out, id)
	}
	return out, nil
}

func (s *fakeStore) PruneUploaded(ctx context.Context, live []uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	keep := map[uuid.UUID]bool{}
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

func (s *fakeStore) saveCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.saves
}

func newTestCache(t *testing.T, store StoreInterface) *Cache {
	t.Helper()
	cache, err := NewCache(&CacheOptions{Store: store})
	require.NoError(t, err)
	t.Cleanup(cache.Stop)
	return cache
}

func TestCreateSession(t *testing.T) {
	store := newFakeStore()
	cache := newTestCache(t, store)
	ctx := context.Background()

	record, err := cache.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.False(t, record.Ended())
	assert.WithinDuration(t, time.Now().UTC(), record.StartedAt, time.Minute)

	active := cache.ActiveSession()
	require.NotNil(t, active)
	assert.Equal(t, record.ID, active.ID)

	// The new session is persisted immediately
	assert.Equal(t, 1, store.saveCount())
}

func TestCreateSession_RejectsSecondActive(t *testing.T) {
	cache := newTestCache(t, newFakeStore())
	ctx := context.Background()

	_, err := cache.CreateSession(ctx)
	require.NoError(t, err)

	_, err = cache.CreateSession(ctx)
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestAppendTranscript_SequenceNumbers(t *testing.T) {
	store := newFakeStore()
	cache := newTestCache(t, store)
	ctx := context.Background()

	_, err := cache.CreateSession(ctx)
	require.NoError(t, err)

	first, err := cache.AppendTranscript(ctx, "patient presents with chest pain")
	require.NoError(t, err)
	second, err := cache.AppendTranscript(ctx, "no prior cardiac history")
	require.NoError(t, err)

	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 2, second.Sequence)

	active := cache.ActiveSession()
	require.Len(t, active.Transcripts, 2)
	assert.Equal(t, "patient presents with chest pain\nno prior cardiac history", active.TranscriptText())

	// Create + two appends = three persistence calls
	assert.Equal(t, 3, store.saveCount())
}

func TestAppendTranscript_NoActiveSession(t *testing.T) {
	cache := newTestCache(t, newFakeStore())

	_, err := cache.AppendTranscript(context.Background(), "orphan chunk")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestAppendAIResponse(t *testing.T) {
	cache := newTestCache(t, newFakeStore())
	ctx := context.Background()

	_, err := cache.CreateSession(ctx)
	require.NoError(t, err)

	kind := PromptKind{Name: "soap_note"}
	response, err := cache.AppendAIResponse(ctx, "S: chest pain...", kind)
	require.NoError(t, err)
	assert.Equal(t, 1, response.Sequence)
	assert.Equal(t, kind, response.Kind)

	_, err = cache.EndSession(ctx)
	require.NoError(t, err)

	_, err = cache.AppendAIResponse(ctx, "late", kind)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestEndSession(t *testing.T) {
	cache := newTestCache(t, newFakeStore())
	ctx := context.Background()

	_, err := cache.CreateSession(ctx)
	require.NoError(t, err)
	_, err = cache.AppendTranscript(ctx, "text")
	require.NoError(t, err)
	_, err = cache.AppendAIResponse(ctx, "doc", PromptKind{Name: "summary"})
	require.NoError(t, err)

	record, err := cache.EndSession(ctx)
	require.NoError(t, err)
	assert.True(t, record.Ended())
	assert.Equal(t, "1 transcripts, 1 responses (~0min)", record.Summary)

	assert.Nil(t, cache.ActiveSession())

	// The finalized record remains cached and readable
	got, ok := cache.GetSession(record.ID)
	require.True(t, ok)
	assert.Equal(t, record.Summary, got.Summary)

	_, err = cache.EndSession(ctx)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestEndSession_EmptySummary(t *testing.T) {
	cache := newTestCache(t, newFakeStore())
	ctx := context.Background()

	_, err := cache.CreateSession(ctx)
	require.NoError(t, err)

	record, err := cache.EndSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "empty session", record.Summary)
}

func TestEndSession_FiresCallback(t *testing.T) {
	done := make(chan *Record, 1)
	cache, err := NewCache(&CacheOptions{
		Store:        newFakeStore(),
		OnSessionEnd: func(r *Record) { done <- r },
	})
	require.NoError(t, err)
	defer cache.Stop()
	ctx := context.Background()

	created, err := cache.CreateSession(ctx)
	require.NoError(t, err)
	_, err = cache.EndSession(ctx)
	require.NoError(t, err)

	select {
	case record := <-done:
		assert.Equal(t, created.ID, record.ID)
		assert.True(t, record.Ended())
	case <-time.After(5 * time.Second):
		t.Fatal("session-end callback never fired")
	}
}

func TestEndSession_AllowsNewSession(t *testing.T) {
	cache := newTestCache(t, newFakeStore())
	ctx := context.Background()

	first, err := cache.CreateSession(ctx)
	require.NoError(t, err)
	_, err = cache.EndSession(ctx)
	require.NoError(t, err)

	second, err := cache.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	sessions := cache.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID, "newest session listed first")
}

func TestCleanup_EvictsExpiredSessions(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	stale := NewRecord()
	stale.StartedAt = time.Now().UTC().Add(-25 * time.Hour)
	require.NoError(t, store.SaveSession(ctx, stale))
	require.NoError(t, store.MarkUploaded(ctx, stale.ID))

	fresh := NewRecord()
	require.NoError(t, store.SaveSession(ctx, fresh))

	// Startup cleanup runs inside NewCache
	cache := newTestCache(t, store)

	sessions := cache.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, fresh.ID, sessions[0].ID)

	_, ok := cache.GetSession(stale.ID)
	assert.False(t, ok)

	// Eviction removed both the record and its uploaded marker
	uploaded, err := store.IsUploaded(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, uploaded)
}

func TestCleanup_ActiveSessionExempt(t *testing.T) {
	store := newFakeStore()
	cache := newTestCache(t, store)
	ctx := context.Background()

	record, err := cache.CreateSession(ctx)
	require.NoError(t, err)

	// Backdate the active session past the retention window
	cache.mutex.Lock()
	cache.active.StartedAt = time.Now().UTC().Add(-48 * time.Hour)
	cache.mutex.Unlock()

	cache.Cleanup(ctx)

	got, ok := cache.GetSession(record.ID)
	require.True(t, ok)
	assert.Equal(t, record.ID, got.ID)

	// Once it ends it becomes evictable like any other record
	_, err = cache.EndSession(ctx)
	require.NoError(t, err)
	cache.Cleanup(ctx)

	_, ok = cache.GetSession(record.ID)
	assert.False(t, ok)
}

func TestCleanup_SweepsAudioFiles(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)

	stale := filepath.Join(dir, "recording_20260830.m4a")
	require.NoError(t, os.WriteFile(stale, []byte("audio"), 0644))
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(dir, "recording_20260901.m4a")
	require.NoError(t, os.WriteFile(fresh, []byte("audio"), 0644))

	// Non-audio files are never touched regardless of age
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0644))
	require.NoError(t, os.Chtimes(other, old, old))

	cache, err := NewCache(&CacheOptions{Store: newFakeStore(), RecordingsDir: dir})
	require.NoError(t, err)
	defer cache.Stop()

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestNewCache_LoadFailureStartsEmpty(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("disk corrupted")

	cache := newTestCache(t, store)
	assert.Empty(t, cache.Sessions())

	// Dictation still works against the degraded cache
	store.mutex.Lock()
	store.loadErr = nil
	store.mutex.Unlock()
	_, err := cache.CreateSession(context.Background())
	assert.NoError(t, err)
}

func TestPersistFailureDoesNotBlockDictation(t *testing.T) {
	store := newFakeStore()
	cache := newTestCache(t, store)
	ctx := context.Background()

	store.mutex.Lock()
	store.saveErr = errors.New("database gone")
	store.mutex.Unlock()

	record, err := cache.CreateSession(ctx)
	require.NoError(t, err)
	_, err = cache.AppendTranscript(ctx, "still recording")
	require.NoError(t, err)

	active := cache.ActiveSession()
	require.NotNil(t, active)
	assert.Equal(t, record.ID, active.ID)
	assert.Len(t, active.Transcripts, 1)
}
