package session

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/qrstage/qrstage/internal/config"
	"github.com/qrstage/qrstage/internal/core"
)

// sessionExport is the JSON document the memory backend writes on EndSession.
type sessionExport struct {
	Session         core.Session          `json:"session"`
	MarkerEvents    []core.MarkerEvent    `json:"markerEvents"`
	SelectionEvents []core.SelectionEvent `json:"selectionEvents"`
	SpawnEvents     []core.SpawnEvent     `json:"spawnEvents"`
}

// MemoryBackend accumulates session data in memory and exports it to a JSON
// file, gzip-compressed when configured, when the session ends.
type MemoryBackend struct {
	cfg config.MemoryConfig

	mu              sync.Mutex
	session         *core.Session
	markerEvents    []core.MarkerEvent
	selectionEvents []core.SelectionEvent
	spawnEvents     []core.SpawnEvent
	idCounter       uint

	exportedPath string
}

// NewMemoryBackend creates a memory backend writing exports per cfg.
func NewMemoryBackend(cfg config.MemoryConfig) *MemoryBackend {
	return &MemoryBackend{cfg: cfg}
}

// Init creates the output directory.
func (b *MemoryBackend) Init() error {
	if b.cfg.OutputDir == "" {
		b.cfg.OutputDir = "."
	}
	return os.MkdirAll(b.cfg.OutputDir, 0755)
}

// Close is a no-op; the memory backend holds no external resources.
func (b *MemoryBackend) Close() error {
	return nil
}

// StartSession begins a new recording session, resetting all collections.
func (b *MemoryBackend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter

	b.session = s
	b.markerEvents = nil
	b.selectionEvents = nil
	b.spawnEvents = nil
	return nil
}

// EndSession finalizes the session and exports it to disk.
func (b *MemoryBackend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no session in progress")
	}
	b.session.EndedAt = time.Now().UTC()
	return b.export()
}

// RecordMarkerEvent stores a marker event.
func (b *MemoryBackend) RecordMarkerEvent(e *core.MarkerEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stamp(&e.ID, &e.SessionID)
	b.markerEvents = append(b.markerEvents, *e)
	return nil
}

// RecordSelectionEvent stores a selection event.
func (b *MemoryBackend) RecordSelectionEvent(e *core.SelectionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stamp(&e.ID, &e.SessionID)
	b.selectionEvents = append(b.selectionEvents, *e)
	return nil
}

// RecordSpawnEvent stores a spawn event.
func (b *MemoryBackend) RecordSpawnEvent(e *core.SpawnEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stamp(&e.ID, &e.SessionID)
	b.spawnEvents = append(b.spawnEvents, *e)
	return nil
}

// ExportedFilePath returns the path of the last export, empty before the
// first EndSession.
func (b *MemoryBackend) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exportedPath
}

func (b *MemoryBackend) stamp(id, sessionID *uint) {
	b.idCounter++
	*id = b.idCounter
	if b.session != nil {
		*sessionID = b.session.ID
	}
}

// export writes the accumulated session as JSON. Caller holds b.mu.
func (b *MemoryBackend) export() error {
	doc := sessionExport{
		Session:         *b.session,
		MarkerEvents:    b.markerEvents,
		SelectionEvents: b.selectionEvents,
		SpawnEvents:     b.spawnEvents,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling session export: %v", err)
	}

	name := fmt.Sprintf("qrstage_session_%s.json", b.session.StartedAt.UTC().Format("2006-01-02_150405"))
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	path := filepath.Join(b.cfg.OutputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating export file: %v", err)
	}
	defer file.Close()

	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(file)
		if _, err := gz.Write(data); err != nil {
			return fmt.Errorf("error writing export: %v", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("error closing gzip writer: %v", err)
		}
	} else {
		if _, err := file.Write(data); err != nil {
			return fmt.Errorf("error writing export: %v", err)
		}
	}

	b.exportedPath = path
	return nil
}
