package model

import "math"

// Position is a point in world space. Value type, passed by value.
type Position struct {
	X float32
	Y float32
	Z float32
}

// NewPosition creates a Position with the given coordinates.
func NewPosition(x, y, z float32) Position {
	return Position{X: x, Y: y, Z: z}
}

// DistanceSquared returns the squared distance to other (no sqrt on hot paths).
func (p Position) DistanceSquared(other Position) float32 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// Distance returns the distance to other.
func (p Position) Distance(other Position) float32 {
	return float32(math.Sqrt(float64(p.DistanceSquared(other))))
}

// Offset returns a new Position shifted by (dx, dy, dz).
func (p Position) Offset(dx, dy, dz float32) Position {
	return Position{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// BoundingBox is an axis-aligned box in world space. Both faces are
// inclusive.
type BoundingBox struct {
	Min Position
	Max Position
}

// NewBoundingBox creates a BoundingBox spanning [min, max].
func NewBoundingBox(min, max Position) BoundingBox {
	return BoundingBox{Min: min, Max: max}
}

// BoxAround returns the bounding box of the sphere at center with the
// given radius.
func BoxAround(center Position, radius float32) BoundingBox {
	return BoundingBox{
		Min: center.Offset(-radius, -radius, -radius),
		Max: center.Offset(radius, radius, radius),
	}
}

// Contains reports whether p lies inside the box.
func (b BoundingBox) Contains(p Position) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// DistanceMinSquared returns the squared distance from p to the nearest
// point of the box. Zero when p is inside.
func (b BoundingBox) DistanceMinSquared(p Position) float32 {
	dx := axisDistanceMin(p.X, b.Min.X, b.Max.X)
	dy := axisDistanceMin(p.Y, b.Min.Y, b.Max.Y)
	dz := axisDistanceMin(p.Z, b.Min.Z, b.Max.Z)
	return dx*dx + dy*dy + dz*dz
}

// DistanceMaxSquared returns the squared distance from p to the farthest
// point of the box.
func (b BoundingBox) DistanceMaxSquared(p Position) float32 {
	dx := axisDistanceMax(p.X, b.Min.X, b.Max.X)
	dy := axisDistanceMax(p.Y, b.Min.Y, b.Max.Y)
	dz := axisDistanceMax(p.Z, b.Min.Z, b.Max.Z)
	return dx*dx + dy*dy + dz*dz
}

func axisDistanceMin(v, min, max float32) float32 {
	switch {
	case v < min:
		return min - v
	case v > max:
		return v - max
	default:
		return 0
	}
}

func axisDistanceMax(v, min, max float32) float32 {
	lo := v - min
	if lo < 0 {
		lo = -lo
	}
	hi := max - v
	if hi < 0 {
		hi = -hi
	}
	if lo > hi {
		return lo
	}
	return hi
}
