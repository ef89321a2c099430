package geo

import (
	"errors"
	"math"

	"github.com/qrstage/qrstage/internal/core"

	geom "github.com/peterstace/simplefeatures/geom"
)

// GEO POINTS
// Positions live in the headset's room-scale Cartesian frame. For persistence
// we store them in the WKB format, which is a binary representation of the
// geometry data, because SQLite has no spatial awareness and we need to be
// able to interpret point data from raw bytes during migrations.

// ErrInvalidPoint is returned when WKB bytes do not decode to an XYZ point
var ErrInvalidPoint = errors.New("invalid point data")

// Distance returns the Euclidean distance between two positions.
func Distance(a, b core.Position3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Add returns the component-wise sum of two positions.
func Add(a, b core.Position3D) core.Position3D {
	return core.Position3D{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

// AddRotation returns the component-wise sum of two Euler rotations.
func AddRotation(a, b core.Rotation3D) core.Rotation3D {
	return core.Rotation3D{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

// YawTowards returns the yaw in degrees, about the vertical Y axis, that
// orients an object at from towards to. Used for the face-the-viewer
// transform.
func YawTowards(from, to core.Position3D) float64 {
	return math.Atan2(to.X-from.X, to.Z-from.Z) * 180 / math.Pi
}

// PointFromPosition builds an XYZ geometry point from a position. Positions
// with non-finite components do not form a valid point.
func PointFromPosition(p core.Position3D) (geom.Point, error) {
	pt, err := geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: p.X, Y: p.Y},
			Z:    p.Z,
			Type: geom.DimXYZ,
		},
	)
	if err != nil {
		return geom.Point{}, ErrInvalidPoint
	}
	return pt, nil
}

// WKBFromPosition encodes a position as WKB for storage. A position that does
// not form a valid point encodes as nil.
func WKBFromPosition(p core.Position3D) []byte {
	pt, err := PointFromPosition(p)
	if err != nil {
		return nil
	}
	return pt.AsBinary()
}

// PositionFromWKB decodes WKB bytes back into a position.
func PositionFromWKB(wkb []byte) (core.Position3D, error) {
	g, err := geom.UnmarshalWKB(wkb)
	if err != nil {
		return core.Position3D{}, ErrInvalidPoint
	}
	pt, ok := g.AsPoint()
	if !ok {
		return core.Position3D{}, ErrInvalidPoint
	}
	coords, ok := pt.Coordinates()
	if !ok {
		return core.Position3D{}, ErrInvalidPoint
	}
	return core.Position3D{X: coords.X, Y: coords.Y, Z: coords.Z}, nil
}
