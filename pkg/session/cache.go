package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// DefaultTTL is the retention window for cached session records and their
// local audio artifacts.
const DefaultTTL = 24 * time.Hour

// cleanupSpec is the fixed wall-clock cleanup interval
const cleanupSpec = "@every 1h"

var (
	// ErrSessionActive is returned when a session is created while another
	// session is still active
	ErrSessionActive = errors.New("another session is already active")

	// ErrNoActiveSession is returned by append and end operations when no
	// session is active
	ErrNoActiveSession = errors.New("no active session")
)

// Cache holds the time-bounded local collection of session records. All
// mutations go through the cache; records are persisted after every mutation
// so a crash loses at most the in-flight change.
type Cache struct {
	store         StoreInterface
	recordingsDir string
	ttl           time.Duration
	onSessionEnd  func(*Record)

	mutex    sync.RWMutex
	sessions []*Record // newest first
	active   *Record

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// CacheOptions contains configuration options for the Cache
type CacheOptions struct {
	Store StoreInterface `json:"-" yaml:"-"`

	// RecordingsDir is the application-private directory holding local
	// audio artifacts, swept by the eviction pass
	RecordingsDir string `json:"recordings_dir" yaml:"recordings_dir"`

	// TTL overrides the 24-hour retention window (used by tests)
	TTL time.Duration `json:"-" yaml:"-"`

	// OnSessionEnd is spawned fire-and-forget when a session is finalized.
	// Its failure never blocks or rolls back local finalization.
	OnSessionEnd func(*Record) `json:"-" yaml:"-"`
}

// NewCache creates a session cache, loads persisted state, runs a startup
// cleanup pass, and starts the hourly cleanup schedule.
func NewCache(opts *CacheOptions) (*Cache, error) {
	if opts == nil || opts.Store == nil {
		return nil, fmt.Errorf("a valid store must be provided")
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Cache{
		store:         opts.Store,
		recordingsDir: opts.RecordingsDir,
		ttl:           ttl,
		onSessionEnd:  opts.OnSessionEnd,
		cron:          cron.New(),
		ctx:           ctx,
		cancel:        cancel,
	}

	// A cache that cannot be read degrades to an empty cache rather than
	// refusing to start; losing cached notes beats denying dictation.
	sessions, err := opts.Store.LoadSessions(ctx)
	if err != nil {
		log.Printf("[CACHE]: Failed to load persisted sessions, starting empty: %v", err)
		sessions = nil
	}
	c.sessions = sessions

	c.Cleanup(ctx)

	if _, err := c.cron.AddFunc(cleanupSpec, func() { c.Cleanup(c.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	c.cron.Start()

	return c, nil
}

// Stop gracefully stops the cache's background schedule
func (c *Cache) Stop() {
	c.cancel()
	c.cron.Stop()
}

// OnForeground triggers the cleanup pass that runs on app-foreground
// transitions.
func (c *Cache) OnForeground(ctx context.Context) {
	c.Cleanup(ctx)
}

// CreateSession allocates a new session record, makes it the active session,
// and persists it immediately. Only one session may be active at a time.
func (c *Cache) CreateSession(ctx context.Context) (*Record, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.active != nil {
		return nil, ErrSessionActive
	}

	record := NewRecord()
	c.sessions = append([]*Record{record}, c.sessions...)
	c.active = record

	c.persist(ctx, record)
	return record.Clone(), nil
}

// AppendTranscript appends a transcript chunk to the active session
func (c *Cache) AppendTranscript(ctx context.Context, text string) (*TranscriptChunk, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.active == nil {
		return nil, ErrNoActiveSession
	}

	chunk := TranscriptChunk{
		ID:        uuid.New(),
		Text:      text,
		Sequence:  len(c.active.Transcripts) + 1,
		CreatedAt: time.Now().UTC(),
	}
	c.active.Transcripts = append(c.active.Transcripts, chunk)

	c.persist(ctx, c.active)
	return &chunk, nil
}

// AppendAIResponse appends a generated AI response to the active session
func (c *Cache) AppendAIResponse(ctx context.Context, content string, kind PromptKind) (*AIResponse, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.active == nil {
		return nil, ErrNoActiveSession
	}

	response := AIResponse{
		ID:        uuid.New(),
		Content:   content,
		Kind:      kind,
		Sequence:  len(c.active.Responses) + 1,
		CreatedAt: time.Now().UTC(),
	}
	c.active.Responses = append(c.active.Responses, response)

	c.persist(ctx, c.active)
	return &response, nil
}

// EndSession finalizes the active session: it sets the end timestamp,
// computes the summary, persists, clears the active pointer, and spawns the
// cloud-sync follow-up without awaiting it.
func (c *Cache) EndSession(ctx context.Context) (*Record, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.active == nil {
		return nil, ErrNoActiveSession
	}

	endedAt := time.Now().UTC()
	c.active.EndedAt = &endedAt
	c.active.Summary = c.active.Summarize(endedAt)

	c.persist(ctx, c.active)

	record := c.active.Clone()
	c.active = nil

	if c.onSessionEnd != nil {
		go c.onSessionEnd(record.Clone())
	}
	return record, nil
}

// ActiveSession returns a copy of the active session record, or nil
func (c *Cache) ActiveSession() *Record {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.active == nil {
		return nil
	}
	return c.active.Clone()
}

// Sessions returns a snapshot of all cached session records, newest first
func (c *Cache) Sessions() []*Record {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make([]*Record, 0, len(c.sessions))
	for _, r := range c.sessions {
		out = append(out, r.Clone())
	}
	return out
}

// GetSession returns a copy of the cached session with the given id
func (c *Cache) GetSession(id uuid.UUID) (*Record, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, r := range c.sessions {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return nil, false
}

// Cleanup evicts every session record whose start timestamp is older than the
// retention window, deletes local audio artifacts older than the same cutoff,
// and prunes the uploaded-session set down to the surviving ids. Eviction is
// unconditional with respect to upload status; only the currently active
// session is exempt until it ends.
func (c *Cache) Cleanup(ctx context.Context) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cutoff := time.Now().UTC().Add(-c.ttl)

	surviving := make([]*Record, 0, len(c.sessions))
	evicted := 0
	for _, record := range c.sessions {
		if record.StartedAt.Before(cutoff) && record != c.active {
			if err := c.store.DeleteSession(ctx, record.ID); err != nil {
				log.Printf("[CACHE]: Failed to delete expired session %s: %v", record.ID, err)
			}
			evicted++
			continue
		}
		surviving = append(surviving, record)
	}
	c.sessions = surviving

	removedFiles := c.sweepAudioFiles(cutoff)

	live := make([]uuid.UUID, 0, len(surviving))
	for _, record := range surviving {
		live = append(live, record.ID)
	}
	if err := c.store.PruneUploaded(ctx, live); err != nil {
		log.Printf("[CACHE]: Failed to prune uploaded-session set: %v", err)
	}

	if evicted > 0 || removedFiles > 0 {
		log.Printf("[CACHE]: Cleanup evicted %d sessions and %d audio files", evicted, removedFiles)
	}
}

// sweepAudioFiles deletes recorded audio files older than the cutoff,
// independent of whether their owning session record still exists.
func (c *Cache) sweepAudioFiles(cutoff time.Time) int {
	if c.recordingsDir == "" {
		return 0
	}

	entries, err := os.ReadDir(c.recordingsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[CACHE]: Failed to read recordings directory: %v", err)
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".m4a") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(c.recordingsDir, entry.Name())
			if err := os.Remove(path); err != nil {
				log.Printf("[CACHE]: Failed to remove expired audio file %s: %v", path, err)
				continue
			}
			removed++
		}
	}
	return removed
}

// persist writes a record through the store (called with the mutex held).
// Persistence failure is logged, not propagated; dictation must never be
// gated on storage health.
func (c *Cache) persist(ctx context.Context, record *Record) {
	if err := c.store.SaveSession(ctx, record); err != nil {
		log.Printf("[CACHE]: Failed to persist session %s: %v", record.ID, err)
	}
}
