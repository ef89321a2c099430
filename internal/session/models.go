package session

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qrstage/qrstage/internal/core"
	"github.com/qrstage/qrstage/internal/geo"
)

// SessionRecord is the gorm model for a recording session.
type SessionRecord struct {
	gorm.Model
	StartedAt time.Time      `json:"startedAt" gorm:"index:idx_session_start"`
	EndedAt   *time.Time     `json:"endedAt"`
	Tag       string         `json:"tag" gorm:"size:127"`
	Meta      datatypes.JSON `json:"meta"`

	MarkerEvents    []MarkerEventRecord    `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	SelectionEvents []SelectionEventRecord `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	SpawnEvents     []SpawnEventRecord     `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*SessionRecord) TableName() string {
	return "sessions"
}

// MarkerEventRecord is the gorm model for a marker seen/lost event.
// Position is stored as WKB so point data survives engines without spatial
// types.
type MarkerEventRecord struct {
	gorm.Model
	SessionID uint      `json:"sessionID" gorm:"index"`
	Time      time.Time `json:"time"`
	Kind      string    `json:"kind" gorm:"size:32"`
	Identity  string    `json:"identity" gorm:"size:127;index"`
	Position  []byte    `json:"position"`
	Tracked   bool      `json:"tracked"`
}

func (*MarkerEventRecord) TableName() string {
	return "marker_events"
}

// SelectionEventRecord is the gorm model for an active-selection change.
type SelectionEventRecord struct {
	gorm.Model
	SessionID uint      `json:"sessionID" gorm:"index"`
	Time      time.Time `json:"time"`
	Previous  string    `json:"previous" gorm:"size:127"`
	Current   string    `json:"current" gorm:"size:127"`
	Viewer    []byte    `json:"viewer"`
	Distance  float64   `json:"distance"`
}

func (*SelectionEventRecord) TableName() string {
	return "selection_events"
}

// SpawnEventRecord is the gorm model for an instance spawn/teardown.
type SpawnEventRecord struct {
	gorm.Model
	SessionID uint           `json:"sessionID" gorm:"index"`
	Time      time.Time      `json:"time"`
	Kind      string         `json:"kind" gorm:"size:32"`
	Identity  string         `json:"identity" gorm:"size:127;index"`
	AssetRef  string         `json:"assetRef" gorm:"size:255"`
	Position  []byte         `json:"position"`
	Rotation  datatypes.JSON `json:"rotation"`
}

func (*SpawnEventRecord) TableName() string {
	return "spawn_events"
}

func toMarkerEventRecord(e *core.MarkerEvent, sessionID uint) MarkerEventRecord {
	return MarkerEventRecord{
		SessionID: sessionID,
		Time:      e.Time,
		Kind:      string(e.Kind),
		Identity:  e.Identity,
		Position:  geo.WKBFromPosition(e.Position),
		Tracked:   e.Tracked,
	}
}

func toSelectionEventRecord(e *core.SelectionEvent, sessionID uint) SelectionEventRecord {
	return SelectionEventRecord{
		SessionID: sessionID,
		Time:      e.Time,
		Previous:  e.Previous,
		Current:   e.Current,
		Viewer:    geo.WKBFromPosition(e.Viewer),
		Distance:  e.Distance,
	}
}

func toSpawnEventRecord(e *core.SpawnEvent, sessionID uint) (SpawnEventRecord, error) {
	rotation, err := json.Marshal(e.Pose.Rotation)
	if err != nil {
		return SpawnEventRecord{}, err
	}
	return SpawnEventRecord{
		SessionID: sessionID,
		Time:      e.Time,
		Kind:      string(e.Kind),
		Identity:  e.Identity,
		AssetRef:  e.AssetRef,
		Position:  geo.WKBFromPosition(e.Pose.Position),
		Rotation:  datatypes.JSON(rotation),
	}, nil
}
