// internal/core/types.go
package core

// Position3D represents a 3D coordinate in the room-scale tracking frame
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsZero reports whether all components are exactly zero.
// Zero-vector overrides are treated as "unset" throughout the system.
func (p Position3D) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}

// Rotation3D is a Euler rotation in degrees
type Rotation3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsZero reports whether all components are exactly zero.
func (r Rotation3D) IsZero() bool {
	return r.X == 0 && r.Y == 0 && r.Z == 0
}

// Pose is a tracked position plus orientation supplied by the tracking subsystem
type Pose struct {
	Position Position3D `json:"position"`
	Rotation Rotation3D `json:"rotation"`
}

// MarkerKind is the closed set of marker types the tracking subsystem reports.
// Only KindQR is handled by the reconciliation core; all other kinds are
// dropped at ingestion.
type MarkerKind uint8

const (
	KindUnknown MarkerKind = iota
	KindQR
	KindImage
	KindObject
)

// String returns the kind name for logging.
func (k MarkerKind) String() string {
	switch k {
	case KindQR:
		return "qr"
	case KindImage:
		return "image"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Liveness is the result of probing a borrowed external handle. External code
// may destroy handles at any time, so a probe can fail independently of
// nil-checks.
type Liveness uint8

const (
	Alive Liveness = iota
	Destroyed
	Invalid
)

// String returns the liveness name for logging.
func (l Liveness) String() string {
	switch l {
	case Alive:
		return "alive"
	case Destroyed:
		return "destroyed"
	default:
		return "invalid"
	}
}
