// internal/core/events.go
package core

import "time"

// SessionEventKind classifies a recorded session event.
type SessionEventKind string

const (
	EventMarkerSeen      SessionEventKind = "marker_seen"
	EventMarkerLost      SessionEventKind = "marker_lost"
	EventSelectionChange SessionEventKind = "selection_change"
	EventInstanceSpawned SessionEventKind = "instance_spawned"
	EventInstanceTorn    SessionEventKind = "instance_torn_down"
)

// Session describes one recording session of the reconciliation core.
type Session struct {
	ID        uint      `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Tag       string    `json:"tag"`
}

// MarkerEvent records a marker appearing or disappearing.
type MarkerEvent struct {
	ID        uint             `json:"id"`
	SessionID uint             `json:"sessionId"`
	Time      time.Time        `json:"time"`
	Kind      SessionEventKind `json:"kind"`
	Identity  string           `json:"identity"`
	Position  Position3D       `json:"position"`
	Tracked   bool             `json:"tracked"`
}

// SelectionEvent records the active selection changing from one identity to
// another. Either side may be empty (nothing selected).
type SelectionEvent struct {
	ID        uint       `json:"id"`
	SessionID uint       `json:"sessionId"`
	Time      time.Time  `json:"time"`
	Previous  string     `json:"previous"`
	Current   string     `json:"current"`
	Viewer    Position3D `json:"viewer"`
	Distance  float64    `json:"distance"`
}

// SpawnEvent records an instance being created or torn down for an identity.
type SpawnEvent struct {
	ID        uint             `json:"id"`
	SessionID uint             `json:"sessionId"`
	Time      time.Time        `json:"time"`
	Kind      SessionEventKind `json:"kind"`
	Identity  string           `json:"identity"`
	AssetRef  string           `json:"assetRef"`
	Pose      Pose             `json:"pose"`
}
