package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PromptKind tags an AI response with the prompt that produced it. Built-in
// kinds are identified by name alone; custom kinds carry their template.
type PromptKind struct {
	Name     string `json:"name" yaml:"name"`
	Template string `json:"template,omitempty" yaml:"template"`
	Custom   bool   `json:"custom,omitempty" yaml:"-"`
}

// TranscriptChunk is a single finished utterance of dictated text.
// Immutable once created.
type TranscriptChunk struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// AIResponse is a generated document stored against a session.
// Immutable once created.
type AIResponse struct {
	ID        uuid.UUID  `json:"id"`
	Content   string     `json:"content"`
	Kind      PromptKind `json:"kind"`
	Sequence  int        `json:"sequence"`
	CreatedAt time.Time  `json:"created_at"`
}

// Record is one bounded recording-and-documentation episode. It is owned
// exclusively by the Cache and mutated only through append operations and the
// end-session transition.
type Record struct {
	ID        uuid.UUID  `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Summary   string     `json:"summary,omitempty"`

	Transcripts []TranscriptChunk `json:"transcripts,omitempty"`
	Responses   []AIResponse      `json:"responses,omitempty"`
}

// NewRecord creates a new session record with a generated UUID
func NewRecord() *Record {
	return &Record{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
	}
}

// Ended reports whether the session has been finalized
func (r *Record) Ended() bool {
	return r.EndedAt != nil
}

// TranscriptText joins the chunk texts in sequence order with newlines
func (r *Record) TranscriptText() string {
	text := ""
	for i, chunk := range r.Transcripts {
		if i > 0 {
			text += "\n"
		}
		text += chunk.Text
	}
	return text
}

// Summarize computes the one-line summary recorded at session end from the
// aggregate counts and duration.
func (r *Record) Summarize(endedAt time.Time) string {
	if len(r.Transcripts) == 0 && len(r.Responses) == 0 {
		return "empty session"
	}
	minutes := int(endedAt.Sub(r.StartedAt).Minutes())
	return fmt.Sprintf("%d transcripts, %d responses (~%dmin)", len(r.Transcripts), len(r.Responses), minutes)
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	out := *r
	if r.EndedAt != nil {
		ended := *r.EndedAt
		out.EndedAt = &ended
	}
	out.Transcripts = make([]TranscriptChunk, len(r.Transcripts))
	copy(out.Transcripts, r.Transcripts)
	out.Responses = make([]AIResponse, len(r.Responses))
	copy(out.Responses, r.Responses)
	return &out
}
