package world

import "github.com/voxelgo/server/internal/model"

// Cell math for the spatial index. World space is bucketed into cubic
// cells; a cell coordinate is the rounded world coordinate shifted
// right by CellShift (arithmetic shift, so negatives keep floor
// semantics).
//
// Rounding pushes away from zero so the cells next to the zero planes
// do not overlap: x = -0.1 lands in cell -1, x = 0.1 in cell 0.

const (
	// CellShift - shift by N bits for 2^N units per cell (2^4 = 16)
	CellShift = 4

	// CellSize is the cell edge length in world units. Persisted cell
	// keys depend on this value; do not change it silently.
	CellSize = 1 << CellShift // 2^4 = 16
)

// CellCoord converts one world coordinate to its cell coordinate.
// Values beyond the 16-bit key space (a query corner can stick out past
// the world border) clamp to the outermost cell.
func CellCoord(v float32) int16 {
	if v >= 32767 {
		return 32767 >> CellShift
	}
	if v <= -32768 {
		return -32768 >> CellShift
	}
	r := int16(v) // truncates toward zero
	if float32(r) != v {
		// Round away from zero: -0.1 → -1, 0.1 → 1
		if v < 0 {
			r--
		} else {
			r++
		}
	}
	return r >> CellShift
}

// CellCoordSpan returns the inclusive cell range covering the world
// interval [lo, hi] on one axis. CellCoord is monotone, so every
// position inside the interval buckets into the returned range.
func CellCoordSpan(lo, hi float32) (int16, int16) {
	return CellCoord(lo), CellCoord(hi)
}

// CellBounds returns a world-space box containing every position that
// buckets into cell (cx, cy, cz). The box is one unit wider than the
// cell on each side, which keeps sphere classification conservative.
func CellBounds(cx, cy, cz int16) model.BoundingBox {
	return model.BoundingBox{
		Min: model.Position{
			X: float32(cx)*CellSize - 1,
			Y: float32(cy)*CellSize - 1,
			Z: float32(cz)*CellSize - 1,
		},
		Max: model.Position{
			X: float32(cx)*CellSize + CellSize,
			Y: float32(cy)*CellSize + CellSize,
			Z: float32(cz)*CellSize + CellSize,
		},
	}
}
