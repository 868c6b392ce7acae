package world

import (
	"math"

	"github.com/voxelgo/server/internal/model"
)

// SpatialKey identifies one cell of the spatial index.
type SpatialKey struct {
	X int16
	Y int16
	Z int16
}

// KeyFromPosition buckets a world position into its cell key.
func KeyFromPosition(pos model.Position) SpatialKey {
	return SpatialKey{
		X: CellCoord(pos.X),
		Y: CellCoord(pos.Y),
		Z: CellCoord(pos.Z),
	}
}

// KeyFromCell builds a key from cell coordinates the caller already
// holds.
func KeyFromCell(cx, cy, cz int16) SpatialKey {
	return SpatialKey{X: cx, Y: cy, Z: cz}
}

// pendingOp is an insert or delete captured while a traversal is
// active.
type pendingOp struct {
	id     uint16
	pos    model.Position
	hasPos bool
}

const (
	// Above this radius the per-slice circular pruning of the y/z loops
	// pays for its sqrt.
	slicePruneRadius = 60

	// Buckets at or below this size always take the needs-check path;
	// classifying the cell against the sphere costs more than three
	// distance checks.
	smallBucketLen = 3
)

// SpatialMap buckets active object ids by cell. Every live (id, cell)
// pair appears exactly once.
//
// The map is owned by one simulation goroutine; the only mutation
// hazard is reentrancy, where a query callback mutates the map
// mid-traversal. While any traversal is active, structural changes are
// captured as pending operations and applied when the outermost
// traversal unwinds, in the order: clear, deletes, inserts. They become
// visible to the next query.
type SpatialMap struct {
	cells map[SpatialKey][]uint16
	size  int // live (cell, id) entries across all buckets

	iteratorsActive int
	pendingDeletes  []pendingOp
	pendingInserts  []pendingOp
	pendingClear    bool
}

// NewSpatialMap creates an empty spatial map.
func NewSpatialMap() *SpatialMap {
	return &SpatialMap{cells: make(map[SpatialKey][]uint16)}
}

// Size returns the number of live (cell, id) entries.
func (m *SpatialMap) Size() int {
	return m.size
}

// Insert adds id at pos. Deferred while a traversal is active.
func (m *SpatialMap) Insert(id uint16, pos model.Position) {
	if m.iteratorsActive > 0 {
		m.pendingInserts = append(m.pendingInserts, pendingOp{id: id, pos: pos, hasPos: true})
		return
	}
	m.insertRaw(id, pos)
}

func (m *SpatialMap) insertRaw(id uint16, pos model.Position) {
	key := KeyFromPosition(pos)
	m.cells[key] = append(m.cells[key], id)
	m.size++
}

// Remove erases the entry for id whose cell matches pos. When the
// position hint is stale and the id is not bucketed there, every bucket
// is scanned and the id erased once. Deferred while a traversal is
// active.
func (m *SpatialMap) Remove(id uint16, pos model.Position) {
	if m.iteratorsActive > 0 {
		m.pendingDeletes = append(m.pendingDeletes, pendingOp{id: id, pos: pos, hasPos: true})
		return
	}
	m.removeRaw(id, pos)
}

// RemoveByID erases id without a position hint, scanning all buckets.
// Deferred while a traversal is active.
func (m *SpatialMap) RemoveByID(id uint16) {
	if m.iteratorsActive > 0 {
		m.pendingDeletes = append(m.pendingDeletes, pendingOp{id: id})
		return
	}
	m.removeAnywhere(id)
}

// RemoveAll drops every entry. Deferred while a traversal is active.
func (m *SpatialMap) RemoveAll() {
	if m.iteratorsActive > 0 {
		m.pendingClear = true
		return
	}
	m.clear()
}

func (m *SpatialMap) removeRaw(id uint16, pos model.Position) {
	if m.eraseFromBucket(KeyFromPosition(pos), id) {
		return
	}
	// Stale hint: the id is not bucketed where the caller thinks.
	m.removeAnywhere(id)
}

func (m *SpatialMap) removeAnywhere(id uint16) {
	for key := range m.cells {
		if m.eraseFromBucket(key, id) {
			return
		}
	}
}

func (m *SpatialMap) eraseFromBucket(key SpatialKey, id uint16) bool {
	bucket := m.cells[key]
	for i, entry := range bucket {
		if entry != id {
			continue
		}
		last := len(bucket) - 1
		bucket[i] = bucket[last]
		bucket = bucket[:last]
		if len(bucket) == 0 {
			delete(m.cells, key)
		} else {
			m.cells[key] = bucket
		}
		m.size--
		return true
	}
	return false
}

func (m *SpatialMap) clear() {
	m.cells = make(map[SpatialKey][]uint16)
	m.size = 0
}

// UpdatePosition rebuckets id from oldPos to newPos. A no-op when the
// id is already bucketed at newPos's cell.
func (m *SpatialMap) UpdatePosition(id uint16, oldPos, newPos model.Position) {
	newKey := KeyFromPosition(newPos)
	for _, entry := range m.cells[newKey] {
		if entry == id {
			return
		}
	}
	m.Remove(id, oldPos)
	m.Insert(id, newPos)
}

func (m *SpatialMap) beginIteration() {
	m.iteratorsActive++
}

func (m *SpatialMap) endIteration() {
	m.iteratorsActive--
	if m.iteratorsActive > 0 {
		return
	}
	if m.pendingClear {
		m.clear()
		m.pendingClear = false
	}
	for _, op := range m.pendingDeletes {
		if op.hasPos {
			m.removeRaw(op.id, op.pos)
		} else {
			m.removeAnywhere(op.id)
		}
	}
	m.pendingDeletes = m.pendingDeletes[:0]
	for _, op := range m.pendingInserts {
		m.insertRaw(op.id, op.pos)
	}
	m.pendingInserts = m.pendingInserts[:0]
}

// GetRelevantObjectIds feeds cb every id whose cell intersects box.
// Candidates still need the caller's fine-grained geometric test. When
// the box spans more candidate cells than the map holds entries, the
// whole map is walked instead; that wins for a large box over a sparse
// population.
func (m *SpatialMap) GetRelevantObjectIds(box model.BoundingBox, cb func(id uint16)) {
	if len(m.cells) == 0 {
		return
	}

	minX, maxX := CellCoordSpan(box.Min.X, box.Max.X)
	minY, maxY := CellCoordSpan(box.Min.Y, box.Max.Y)
	minZ, maxZ := CellCoordSpan(box.Min.Z, box.Max.Z)
	candidates := (int(maxX) - int(minX) + 1) *
		(int(maxY) - int(minY) + 1) *
		(int(maxZ) - int(minZ) + 1)

	m.beginIteration()
	defer m.endIteration()

	if candidates > m.size {
		for _, bucket := range m.cells {
			for _, id := range bucket {
				cb(id)
			}
		}
		return
	}

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				for _, id := range m.cells[SpatialKey{X: x, Y: y, Z: z}] {
					cb(id)
				}
			}
		}
	}
}

// GetObjectsIdsInRadius feeds every id whose cell intersects the sphere
// at pos with the given radius to one of two callbacks: guaranteed when
// the whole cell lies inside the sphere, so the caller may skip its
// per-entity distance check, and needsCheck when the cell merely
// intersects it. Uses the same cells-vs-full-scan branch as the box
// query; above slicePruneRadius the y/z loops are pruned to the
// sphere's circular cross-section at each x slice.
func (m *SpatialMap) GetObjectsIdsInRadius(pos model.Position, radius float32, needsCheck, guaranteed func(id uint16)) {
	if len(m.cells) == 0 {
		return
	}

	r2 := radius * radius
	minX, maxX := CellCoordSpan(pos.X-radius, pos.X+radius)
	minY, maxY := CellCoordSpan(pos.Y-radius, pos.Y+radius)
	minZ, maxZ := CellCoordSpan(pos.Z-radius, pos.Z+radius)
	candidates := (int(maxX) - int(minX) + 1) *
		(int(maxY) - int(minY) + 1) *
		(int(maxZ) - int(minZ) + 1)

	m.beginIteration()
	defer m.endIteration()

	if candidates > m.size {
		for key, bucket := range m.cells {
			m.classifyBucket(key, bucket, pos, r2, needsCheck, guaranteed)
		}
		return
	}

	prune := radius > slicePruneRadius
	for x := minX; x <= maxX; x++ {
		loY, hiY := minY, maxY
		loZ, hiZ := minZ, maxZ
		if prune {
			sliceLo := float32(x)*CellSize - 1
			sliceHi := sliceLo + CellSize + 1
			var dx float32
			if pos.X < sliceLo {
				dx = sliceLo - pos.X
			} else if pos.X > sliceHi {
				dx = pos.X - sliceHi
			}
			if dx*dx > r2 {
				continue
			}
			offset := float32(math.Sqrt(float64(r2 - dx*dx)))
			if c := CellCoord(pos.Y - offset); c > loY {
				loY = c
			}
			if c := CellCoord(pos.Y + offset); c < hiY {
				hiY = c
			}
			if c := CellCoord(pos.Z - offset); c > loZ {
				loZ = c
			}
			if c := CellCoord(pos.Z + offset); c < hiZ {
				hiZ = c
			}
		}
		for y := loY; y <= hiY; y++ {
			for z := loZ; z <= hiZ; z++ {
				key := SpatialKey{X: x, Y: y, Z: z}
				if bucket := m.cells[key]; len(bucket) > 0 {
					m.classifyBucket(key, bucket, pos, r2, needsCheck, guaranteed)
				}
			}
		}
	}
}

// classifyBucket routes every id in the bucket to guaranteed or
// needsCheck depending on how the cell's bounding box sits relative to
// the sphere. Small buckets skip the classification; it does not
// amortise over so few entries.
func (m *SpatialMap) classifyBucket(key SpatialKey, bucket []uint16, pos model.Position, r2 float32, needsCheck, guaranteed func(id uint16)) {
	if len(bucket) <= smallBucketLen {
		for _, id := range bucket {
			needsCheck(id)
		}
		return
	}

	bounds := CellBounds(key.X, key.Y, key.Z)
	if bounds.DistanceMinSquared(pos) > r2 {
		return
	}
	if bounds.DistanceMaxSquared(pos) <= r2 {
		for _, id := range bucket {
			guaranteed(id)
		}
		return
	}
	for _, id := range bucket {
		needsCheck(id)
	}
}
