package geo

import (
	"errors"
	"math"

	"github.com/lviewgo/recorder/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// GAME SPACE POINTS
// The game world is a flat map: X and Z span the ground plane and Y is height.
// Points are stored as XYZ geometries with the ground plane in XY so that
// planar distance functions measure distance on the map.

// ErrInvalidPoint is returned when a stored point has no coordinates
var ErrInvalidPoint = errors.New("point has no coordinates")

// PointFromVector converts a game position into a WKB-storable point. A
// position with a NaN or infinite ground coordinate, as read from a torn
// object, becomes an empty point.
func PointFromVector(v core.Vector3) geom.Point {
	p, err := geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: float64(v.X), Y: float64(v.Z)},
			Z:    float64(v.Y),
			Type: geom.DimXYZ,
		},
		geom.OmitInvalid,
	)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	return p
}

// VectorFromPoint is the inverse of PointFromVector.
func VectorFromPoint(p geom.Point) (core.Vector3, error) {
	coords, ok := p.Coordinates()
	if !ok {
		return core.Vector3{}, ErrInvalidPoint
	}
	return core.Vector3{
		X: float32(coords.X),
		Y: float32(coords.Z),
		Z: float32(coords.Y),
	}, nil
}

// GroundDistance is the distance between two positions on the map, ignoring
// height. It is +Inf when either position has no valid coordinates.
func GroundDistance(a, b core.Vector3) float64 {
	d, ok := geom.Distance(PointFromVector(a).AsGeometry(), PointFromVector(b).AsGeometry())
	if !ok {
		return math.Inf(1)
	}
	return d
}

// InAttackRange reports whether target is inside attacker's auto-attack reach.
// The reach is measured edge to edge, so the target's own radius counts.
func InAttackRange(attacker, target core.Entity) bool {
	reach := float64(attacker.AttackRange() + target.GameplayRadius)
	return GroundDistance(attacker.Position, target.Position) <= reach
}
