package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NikoToRA/koereq-sync/pkg/blob"
	"github.com/NikoToRA/koereq-sync/pkg/session"
)

// audioMatchWindow is how far an audio file's creation time may fall from the
// session's start time and still be attributed to it by the generic-pattern
// rule.
const audioMatchWindow = time.Hour

// genericRecordingPrefix matches recorder output files that carry no session
// id in their name.
const genericRecordingPrefix = "recording_"

// Uploader is the subset of the blob store client the coordinator needs
type Uploader interface {
	PutBlob(ctx context.Context, path string, body []byte, contentType string) error
}

// Metadata is the per-session metadata object uploaded as meta.json
type Metadata struct {
	SessionID       string     `json:"session_id"`
	FacilityID      string     `json:"facility_id"`
	FacilityName    string     `json:"facility_name"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	Summary         string     `json:"summary"`
	TranscriptCount int        `json:"transcript_count"`
	ResponseCount   int        `json:"response_count"`
	UploadedAt      time.Time  `json:"uploaded_at"`
}

// Coordinator orchestrates session-to-cloud synchronization. It assembles
// the blob set for a finished session, uploads it sequentially, and records
// completed sessions in the durable uploaded set so repeated triggers never
// deliver a session twice.
type Coordinator struct {
	store         session.StoreInterface
	uploader      Uploader
	facilityID    string
	facilityName  string
	recordingsDir string

	// mutex makes the dedup-check/upload/mark sequence a single critical
	// section across end-of-session, manual-resync, and retry triggers
	mutex sync.Mutex
}

// CoordinatorOptions contains configuration options for the Coordinator
type CoordinatorOptions struct {
	Store         session.StoreInterface
	Uploader      Uploader
	FacilityID    string
	FacilityName  string
	RecordingsDir string
}

// NewCoordinator creates a new upload coordinator
func NewCoordinator(opts *CoordinatorOptions) (*Coordinator, error) {
	if opts == nil || opts.Store == nil {
		return nil, fmt.Errorf("a valid store must be provided")
	}
	if opts.Uploader == nil {
		return nil, fmt.Errorf("a valid uploader must be provided")
	}
	if opts.FacilityID == "" {
		return nil, fmt.Errorf("facility id cannot be empty")
	}

	return &Coordinator{
		store:         opts.Store,
		uploader:      opts.Uploader,
		facilityID:    opts.FacilityID,
		facilityName:  opts.FacilityName,
		recordingsDir: opts.RecordingsDir,
	}, nil
}

// SyncSession uploads a session's blob set unless the session id is already
// in the uploaded set. At most one upload sequence runs per session id no
// matter how often the trigger fires.
func (c *Coordinator) SyncSession(ctx context.Context, record *session.Record) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	uploaded, err := c.store.IsUploaded(ctx, record.ID)
	if err != nil {
		return fmt.Errorf("failed to check uploaded set: %w", err)
	}
	if uploaded {
		log.Printf("[SYNC]: Session %s already uploaded, skipping", record.ID)
		return nil
	}

	return c.upload(ctx, record)
}

// ForceSync re-uploads a session on explicit user demand, bypassing the
// dedup check. Success is still only marked on full completion.
func (c *Coordinator) ForceSync(ctx context.Context, record *session.Record) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.upload(ctx, record)
}

// IsUploaded reports whether the session id is in the durable uploaded set
func (c *Coordinator) IsUploaded(ctx context.Context, id uuid.UUID) (bool, error) {
	return c.store.IsUploaded(ctx, id)
}

// upload performs the sequential blob upload (called with the mutex held).
// Any failure aborts the remaining parts and leaves the session unmarked; a
// later retry redoes all parts from scratch.
func (c *Coordinator) upload(ctx context.Context, record *session.Record) error {
	audioFiles := c.resolveAudioFiles(record)

	meta := Metadata{
		SessionID:       record.ID.String(),
		FacilityID:      c.facilityID,
		FacilityName:    c.facilityName,
		StartedAt:       record.StartedAt,
		EndedAt:         record.EndedAt,
		Summary:         record.Summary,
		TranscriptCount: len(record.Transcripts),
		ResponseCount:   len(record.Responses),
		UploadedAt:      time.Now().UTC(),
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	sessionID := record.ID.String()

	path := blob.JoinPath(c.facilityID, sessionID, blob.MetaBlobName)
	if err := c.uploader.PutBlob(ctx, path, metaBytes, "application/json"); err != nil {
		log.Printf("[SYNC]: Metadata upload failed for session %s: %v", sessionID, err)
		return err
	}

	path = blob.JoinPath(c.facilityID, sessionID, blob.TranscriptBlobName)
	if err := c.uploader.PutBlob(ctx, path, []byte(record.TranscriptText()), "text/plain; charset=utf-8"); err != nil {
		log.Printf("[SYNC]: Transcript upload failed for session %s: %v", sessionID, err)
		return err
	}

	for i, file := range audioFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Printf("[SYNC]: Failed to read audio file %s for session %s: %v", file, sessionID, err)
			return fmt.Errorf("failed to read audio file %s: %w", file, err)
		}
		path = blob.JoinPath(c.facilityID, sessionID, blob.AudioBlobName(i+1))
		if err := c.uploader.PutBlob(ctx, path, data, "audio/mp4"); err != nil {
			log.Printf("[SYNC]: Audio upload failed for session %s (%s): %v", sessionID, file, err)
			return err
		}
	}

	// Every part succeeded; only now does the session enter the uploaded set
	if err := c.store.MarkUploaded(ctx, record.ID); err != nil {
		return fmt.Errorf("failed to mark session uploaded: %w", err)
	}

	log.Printf("[SYNC]: Session %s uploaded (%d audio files)", sessionID, len(audioFiles))
	return nil
}

// resolveAudioFiles finds the session's local audio artifacts by two rules
// applied in order: the filename contains the session id verbatim, or the
// filename matches the generic recording pattern and its creation time falls
// within an hour of the session's start. Matches are deduplicated and sorted
// by filename for deterministic upload order.
func (c *Coordinator) resolveAudioFiles(record *session.Record) []string {
	if c.recordingsDir == "" {
		return nil
	}

	entries, err := os.ReadDir(c.recordingsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[SYNC]: Failed to read recordings directory: %v", err)
		}
		return nil
	}

	sessionID := record.ID.String()
	matched := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".m4a") {
			continue
		}

		if strings.Contains(entry.Name(), sessionID) {
			matched[entry.Name()] = true
			continue
		}

		if strings.HasPrefix(entry.Name(), genericRecordingPrefix) {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			delta := info.ModTime().Sub(record.StartedAt)
			if delta < 0 {
				delta = -delta
			}
			if delta <= audioMatchWindow {
				matched[entry.Name()] = true
			}
		}
	}

	files := make([]string, 0, len(matched))
	for name := range matched {
		files = append(files, filepath.Join(c.recordingsDir, name))
	}
	sort.Strings(files)
	return files
}
