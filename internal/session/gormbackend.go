package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qrstage/qrstage/internal/core"
)

// GormBackend persists session data through a gorm DB handle, Postgres or
// SQLite alike; the connection is owned by the caller.
type GormBackend struct {
	db *gorm.DB

	mu      sync.Mutex
	session *SessionRecord
}

// NewGormBackend wraps an open gorm connection.
func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db}
}

// Init migrates the session schema.
func (b *GormBackend) Init() error {
	return b.db.AutoMigrate(
		&SessionRecord{},
		&MarkerEventRecord{},
		&SelectionEventRecord{},
		&SpawnEventRecord{},
	)
}

// Close is a no-op; the caller owns the connection.
func (b *GormBackend) Close() error {
	return nil
}

// StartSession inserts a session row and assigns its ID back to s.
func (b *GormBackend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	meta, err := json.Marshal(map[string]any{"tag": s.Tag})
	if err != nil {
		return err
	}

	rec := &SessionRecord{
		StartedAt: s.StartedAt,
		Tag:       s.Tag,
		Meta:      datatypes.JSON(meta),
	}
	if err := b.db.Create(rec).Error; err != nil {
		return fmt.Errorf("error creating session: %v", err)
	}

	s.ID = rec.ID
	b.session = rec
	return nil
}

// EndSession stamps the end time on the session row.
func (b *GormBackend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no session in progress")
	}
	now := time.Now().UTC()
	err := b.db.Model(b.session).Update("ended_at", &now).Error
	b.session = nil
	return err
}

// RecordMarkerEvent inserts a marker event row.
func (b *GormBackend) RecordMarkerEvent(e *core.MarkerEvent) error {
	id, err := b.sessionID()
	if err != nil {
		return err
	}
	rec := toMarkerEventRecord(e, id)
	return b.db.Create(&rec).Error
}

// RecordSelectionEvent inserts a selection event row.
func (b *GormBackend) RecordSelectionEvent(e *core.SelectionEvent) error {
	id, err := b.sessionID()
	if err != nil {
		return err
	}
	rec := toSelectionEventRecord(e, id)
	return b.db.Create(&rec).Error
}

// RecordSpawnEvent inserts a spawn event row.
func (b *GormBackend) RecordSpawnEvent(e *core.SpawnEvent) error {
	id, err := b.sessionID()
	if err != nil {
		return err
	}
	rec, err := toSpawnEventRecord(e, id)
	if err != nil {
		return err
	}
	return b.db.Create(&rec).Error
}

func (b *GormBackend) sessionID() (uint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return 0, fmt.Errorf("no session in progress")
	}
	return b.session.ID, nil
}
