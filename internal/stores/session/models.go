package session

import (
	"time"

	"github.com/google/uuid"

	pkgsession "github.com/NikoToRA/koereq-sync/pkg/session"
)

// RecordModel is the persisted form of a session record
type RecordModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	StartedAt time.Time  `gorm:"column:started_at;index;not null"`
	EndedAt   *time.Time `gorm:"column:ended_at"`
	Summary   string     `gorm:"size:255"`

	Transcripts []TranscriptModel `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	Responses   []ResponseModel   `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for GORM
func (RecordModel) TableName() string {
	return "session_records"
}

// TranscriptModel is the persisted form of a transcript chunk
type TranscriptModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	SessionID uuid.UUID `gorm:"type:char(36);not null;index"`
	Sequence  int       `gorm:"not null"`
	Text      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (TranscriptModel) TableName() string {
	return "transcript_chunks"
}

// ResponseModel is the persisted form of an AI response
type ResponseModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	SessionID    uuid.UUID `gorm:"type:char(36);not null;index"`
	Sequence     int       `gorm:"not null"`
	Content      string    `gorm:"type:text"`
	KindName     string    `gorm:"size:255"`
	KindTemplate string    `gorm:"type:text"`
	KindCustom   bool
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (ResponseModel) TableName() string {
	return "ai_responses"
}

// UploadedModel marks a session id as fully synchronized to the cloud store.
// Persisted independently of the session record so it survives restarts.
type UploadedModel struct {
	SessionID uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (UploadedModel) TableName() string {
	return "uploaded_sessions"
}

// toModel converts a domain record into its persisted form
func toModel(record *pkgsession.Record) *RecordModel {
	model := &RecordModel{
		ID:        record.ID,
		StartedAt: record.StartedAt,
		EndedAt:   record.EndedAt,
		Summary:   record.Summary,
	}
	for _, chunk := range record.Transcripts {
		model.Transcripts = append(model.Transcripts, TranscriptModel{
			ID:        chunk.ID,
			SessionID: record.ID,
			Sequence:  chunk.Sequence,
			Text:      chunk.Text,
			CreatedAt: chunk.CreatedAt,
		})
	}
	for _, response := range record.Responses {
		model.Responses = append(model.Responses, ResponseModel{
			ID:           response.ID,
			SessionID:    record.ID,
			Sequence:     response.Sequence,
			Content:      response.Content,
			KindName:     response.Kind.Name,
			KindTemplate: response.Kind.Template,
			KindCustom:   response.Kind.Custom,
			CreatedAt:    response.CreatedAt,
		})
	}
	return model
}

// fromModel converts a persisted record back into its domain form
func fromModel(model *RecordModel) *pkgsession.Record {
	record := &pkgsession.Record{
		ID:        model.ID,
		StartedAt: model.StartedAt,
		EndedAt:   model.EndedAt,
		Summary:   model.Summary,
	}
	for _, chunk := range model.Transcripts {
		record.Transcripts = append(record.Transcripts, pkgsession.TranscriptChunk{
			ID:        chunk.ID,
			Text:      chunk.Text,
			Sequence:  chunk.Sequence,
			CreatedAt: chunk.CreatedAt,
		})
	}
	for _, response := range model.Responses {
		record.Responses = append(record.Responses, pkgsession.AIResponse{
			ID:      response.ID,
			Content: response.Content,
			Kind: pkgsession.PromptKind{
				Name:     response.KindName,
				Template: response.KindTemplate,
				Custom:   response.KindCustom,
			},
			Sequence:  response.Sequence,
			CreatedAt: response.CreatedAt,
		})
	}
	return record
}
