// Package session records reconciliation activity (marker sightings,
// selection changes, instance lifecycle) for later replay and analysis.
// Events flow from the engine into an in-process queue and are flushed to a
// pluggable storage backend on an interval, so recording never blocks the
// engine's critical section.
package session

import "github.com/qrstage/qrstage/internal/core"

// Backend is the interface all session storage implementations satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// Event recording
	RecordMarkerEvent(e *core.MarkerEvent) error
	RecordSelectionEvent(e *core.SelectionEvent) error
	RecordSpawnEvent(e *core.SpawnEvent) error
}

// Exportable is an optional interface for backends that produce a session
// file on EndSession.
type Exportable interface {
	ExportedFilePath() string
}
