package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	pkgsession "github.com/NikoToRA/koereq-sync/pkg/session"
)

// Store handles session persistence using MySQL
type Store struct {
	db *gorm.DB
}

// NewStore creates a new session store with MySQL connection
func NewStore(databaseURL string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}

	// Auto-migrate tables
	if err := db.AutoMigrate(&RecordModel{}, &TranscriptModel{}, &ResponseModel{}, &UploadedModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return store, nil
}

// SaveSession inserts or fully updates a session record and its children
func (s *Store) SaveSession(ctx context.Context, record *pkgsession.Record) error {
	model := toModel(record)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(model).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSessions returns all persisted session records, newest first
func (s *Store) LoadSessions(ctx context.Context) ([]*pkgsession.Record, error) {
	var models []RecordModel
	result := s.db.WithContext(ctx).
		Preload("Transcripts", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Preload("Responses", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Order("started_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", result.Error)
	}

	records := make([]*pkgsession.Record, 0, len(models))
	for i := range models {
		records = append(records, fromModel(&models[i]))
	}
	return records, nil
}

// DeleteSession removes a session record and its chunks and responses
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&TranscriptModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&ResponseModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&RecordModel{ID: id}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// MarkUploaded records a session id in the uploaded-session set
func (s *Store) MarkUploaded(ctx context.Context, id uuid.UUID) error {
	model := &UploadedModel{SessionID: id}

	// Already-marked sessions are not an error; the marker is a set
	var existing UploadedModel
	result := s.db.WithContext(ctx).Where("session_id = ?", id).First(&existing)
	if result.Error == nil {
		return nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return fmt.Errorf("failed to check uploaded marker: %w", result.Error)
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to mark session uploaded: %w", err)
	}
	return nil
}

// IsUploaded reports whether the session id is in the uploaded set
func (s *Store) IsUploaded(ctx context.Context, id uuid.UUID) (bool, error) {
	var existing UploadedModel
	result := s.db.WithContext(ctx).Where("session_id = ?", id).First(&existing)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check uploaded marker: %w", result.Error)
	}
	return true, nil
}

// LoadUploaded returns all session ids in the uploaded set
func (s *Store) LoadUploaded(ctx context.Context) ([]uuid.UUID, error) {
	var models []UploadedModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load uploaded set: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.SessionID)
	}
	return ids, nil
}

// PruneUploaded removes uploaded markers for sessions no longer cached
func (s *Store) PruneUploaded(ctx context.Context, live []uuid.UUID) error {
	query := s.db.WithContext(ctx)
	if len(live) == 0 {
		query = query.Where("1 = 1")
	} else {
		query = query.Where("session_id NOT IN ?", live)
	}
	if err := query.Delete(&UploadedModel{}).Error; err != nil {
		return fmt.Errorf("failed to prune uploaded set: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}
