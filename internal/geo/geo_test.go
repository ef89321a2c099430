package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrstage/qrstage/internal/core"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b core.Position3D
		want float64
	}{
		{
			name: "same point",
			a:    core.Position3D{X: 1, Y: 2, Z: 3},
			b:    core.Position3D{X: 1, Y: 2, Z: 3},
			want: 0,
		},
		{
			name: "unit axis",
			a:    core.Position3D{},
			b:    core.Position3D{X: 1},
			want: 1,
		},
		{
			name: "pythagorean",
			a:    core.Position3D{},
			b:    core.Position3D{X: 3, Y: 4},
			want: 5,
		},
		{
			name: "full 3d",
			a:    core.Position3D{X: 1, Y: 1, Z: 1},
			b:    core.Position3D{X: 2, Y: 2, Z: 2},
			want: math.Sqrt(3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.a, tt.b), 1e-9)
			// distance is symmetric
			assert.InDelta(t, tt.want, Distance(tt.b, tt.a), 1e-9)
		})
	}
}

func TestAdd(t *testing.T) {
	got := Add(core.Position3D{X: 1, Y: -2, Z: 3}, core.Position3D{X: 0.5, Y: 2, Z: -3})
	assert.Equal(t, core.Position3D{X: 1.5, Y: 0, Z: 0}, got)
}

func TestAddRotation(t *testing.T) {
	got := AddRotation(core.Rotation3D{X: 90}, core.Rotation3D{Y: 45, Z: -45})
	assert.Equal(t, core.Rotation3D{X: 90, Y: 45, Z: -45}, got)
}

func TestWKBRoundTrip(t *testing.T) {
	p := core.Position3D{X: 6069.06, Y: 5627.81, Z: 17.81}

	wkb := WKBFromPosition(p)
	require.NotEmpty(t, wkb)

	got, err := PositionFromWKB(wkb)
	require.NoError(t, err)
	assert.InDelta(t, p.X, got.X, 1e-9)
	assert.InDelta(t, p.Y, got.Y, 1e-9)
	assert.InDelta(t, p.Z, got.Z, 1e-9)
}

func TestPointFromPosition_NonFinite(t *testing.T) {
	_, err := PointFromPosition(core.Position3D{X: math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidPoint)

	assert.Nil(t, WKBFromPosition(core.Position3D{Y: math.Inf(1)}))
}

func TestPositionFromWKB_Invalid(t *testing.T) {
	_, err := PositionFromWKB([]byte{0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidPoint)
}
