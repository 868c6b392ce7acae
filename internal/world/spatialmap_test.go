package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelgo/server/internal/model"
)

// collectBox returns every id the box query yields, with multiplicity.
func collectBox(m *SpatialMap, box model.BoundingBox) []uint16 {
	var ids []uint16
	m.GetRelevantObjectIds(box, func(id uint16) {
		ids = append(ids, id)
	})
	return ids
}

// collectRadius returns every id the radius query yields, split by
// classification.
func collectRadius(m *SpatialMap, pos model.Position, radius float32) (needsCheck, guaranteed []uint16) {
	m.GetObjectsIdsInRadius(pos, radius,
		func(id uint16) { needsCheck = append(needsCheck, id) },
		func(id uint16) { guaranteed = append(guaranteed, id) })
	return needsCheck, guaranteed
}

func TestSpatialMapInsertRemove(t *testing.T) {
	m := NewSpatialMap()
	p := posAt(10, 20, 30)

	m.Insert(1, p)
	m.Insert(2, p)
	m.Insert(3, posAt(100, 0, 0))
	assert.Equal(t, 3, m.Size())

	m.Remove(2, p)
	assert.Equal(t, 2, m.Size())

	// Removing again is a no-op.
	m.Remove(2, p)
	assert.Equal(t, 2, m.Size())

	m.RemoveByID(3)
	m.RemoveByID(1)
	assert.Equal(t, 0, m.Size())
	assert.Empty(t, m.cells)
}

func TestSpatialMapRemoveWithStaleHint(t *testing.T) {
	m := NewSpatialMap()
	m.Insert(7, posAt(0, 0, 0))

	// The hint points at a cell that does not contain the id; the
	// defensive full scan must still erase it exactly once.
	m.Remove(7, posAt(500, 500, 500))
	assert.Equal(t, 0, m.Size())
	assert.Empty(t, m.cells)
}

func TestSpatialMapRemoveAll(t *testing.T) {
	m := NewSpatialMap()
	for id := uint16(1); id <= 10; id++ {
		m.Insert(id, posAt(float32(id)*20, 0, 0))
	}
	m.RemoveAll()
	assert.Equal(t, 0, m.Size())
	assert.Empty(t, collectBox(m, model.BoxAround(posAt(0, 0, 0), 1000)))
}

func TestSpatialMapUpdatePosition(t *testing.T) {
	m := NewSpatialMap()
	oldPos := posAt(0, 0, 0)
	m.Insert(5, oldPos)

	// Same cell: entry count stays the same.
	m.UpdatePosition(5, oldPos, posAt(3, 3, 3))
	assert.Equal(t, 1, m.Size())
	assert.Equal(t, []uint16{5}, m.cells[KeyFromPosition(oldPos)])

	// Idempotent when old == new.
	m.UpdatePosition(5, oldPos, oldPos)
	assert.Equal(t, 1, m.Size())

	// Different cell: rebucketed.
	newPos := posAt(100, 0, 0)
	m.UpdatePosition(5, oldPos, newPos)
	assert.Equal(t, 1, m.Size())
	assert.Empty(t, m.cells[KeyFromPosition(oldPos)])
	assert.Equal(t, []uint16{5}, m.cells[KeyFromPosition(newPos)])
}

func TestSpatialMapBoxQueryBothBranches(t *testing.T) {
	tests := []struct {
		name string
		box  model.BoundingBox
	}{
		// Whole-world box: candidate cells vastly exceed the map size,
		// so the whole map is walked.
		{"full scan", model.NewBoundingBox(posAt(-3000, -3000, -3000), posAt(3000, 3000, 3000))},
		// Tight box over the population: 3 candidate cells against 10
		// entries, so the cells are walked.
		{"cell iteration", model.NewBoundingBox(posAt(0, 0, 0), posAt(45, 0, 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSpatialMap()
			want := make([]uint16, 0, 10)
			for id := uint16(1); id <= 10; id++ {
				m.Insert(id, posAt(float32(id-1)*5, 0, 0))
				want = append(want, id)
			}

			ids := collectBox(m, tt.box)
			assert.ElementsMatch(t, want, ids,
				"every id must be yielded exactly once")
		})
	}
}

func TestSpatialMapBoxQueryZeroPlane(t *testing.T) {
	m := NewSpatialMap()
	m.Insert(1, posAt(-0.1, 0, 0))
	m.Insert(2, posAt(0.1, 0, 0))

	box := model.NewBoundingBox(posAt(-1, -1, -1), posAt(1, 1, 1))
	ids := collectBox(m, box)
	assert.ElementsMatch(t, []uint16{1, 2}, ids)
}

func TestSpatialMapRadiusClassification(t *testing.T) {
	m := NewSpatialMap()
	// Five entities in one cell, so the bucket is large enough to be
	// classified instead of taking the small-bucket shortcut.
	for id := uint16(1); id <= 5; id++ {
		m.Insert(id, posAt(4, 4, 4))
	}

	// Huge sphere centred on the cell: the whole cell is inside, every
	// id arrives on the guaranteed path.
	needs, guaranteed := collectRadius(m, posAt(8, 8, 8), 200)
	assert.Empty(t, needs)
	assert.ElementsMatch(t, []uint16{1, 2, 3, 4, 5}, guaranteed)

	// Sphere that only clips the cell: needs-check.
	needs, guaranteed = collectRadius(m, posAt(20, 8, 8), 10)
	assert.Empty(t, guaranteed)
	assert.ElementsMatch(t, []uint16{1, 2, 3, 4, 5}, needs)
}

func TestSpatialMapRadiusSmallBucket(t *testing.T) {
	m := NewSpatialMap()
	// Three entities: at or below the small-bucket threshold the cell
	// is never classified, even when fully inside the sphere.
	for id := uint16(1); id <= 3; id++ {
		m.Insert(id, posAt(4, 4, 4))
	}

	needs, guaranteed := collectRadius(m, posAt(8, 8, 8), 200)
	assert.Empty(t, guaranteed)
	assert.ElementsMatch(t, []uint16{1, 2, 3}, needs)
}

func TestSpatialMapReentrantInsert(t *testing.T) {
	m := NewSpatialMap()
	m.Insert(1, posAt(0, 0, 0))
	m.Insert(2, posAt(20, 0, 0))

	var visited []uint16
	m.GetRelevantObjectIds(model.BoxAround(posAt(0, 0, 0), 1000), func(id uint16) {
		visited = append(visited, id)
		m.Insert(id+10, posAt(40, 0, 0))
	})

	// The ongoing query must not see the pending inserts.
	assert.ElementsMatch(t, []uint16{1, 2}, visited)

	// They are applied on unwind and visible to the next query.
	assert.Equal(t, 4, m.Size())
	assert.ElementsMatch(t, []uint16{1, 2, 11, 12},
		collectBox(m, model.BoxAround(posAt(0, 0, 0), 1000)))
}

func TestSpatialMapReentrantRemove(t *testing.T) {
	m := NewSpatialMap()
	for id := uint16(1); id <= 4; id++ {
		m.Insert(id, posAt(float32(id)*20, 0, 0))
	}

	var visited []uint16
	m.GetRelevantObjectIds(model.BoxAround(posAt(0, 0, 0), 1000), func(id uint16) {
		visited = append(visited, id)
		if id == 2 {
			m.Remove(2, posAt(40, 0, 0))   // the currently visited entry
			m.RemoveByID(4)                // one not yet guaranteed visited
		}
	})

	// Deletions are deferred: the traversal still walks the snapshot
	// that existed at query entry.
	assert.ElementsMatch(t, []uint16{1, 2, 3, 4}, visited)

	assert.Equal(t, 2, m.Size())
	assert.ElementsMatch(t, []uint16{1, 3},
		collectBox(m, model.BoxAround(posAt(0, 0, 0), 1000)))
}

func TestSpatialMapReentrantClear(t *testing.T) {
	m := NewSpatialMap()
	m.Insert(1, posAt(0, 0, 0))
	m.Insert(2, posAt(20, 0, 0))

	m.GetRelevantObjectIds(model.BoxAround(posAt(0, 0, 0), 1000), func(id uint16) {
		m.RemoveAll()
		// Inserts recorded after the clear still apply: drain order is
		// clear, deletes, inserts.
		if id == 1 {
			m.Insert(50, posAt(60, 0, 0))
		}
	})

	assert.Equal(t, 1, m.Size())
	assert.ElementsMatch(t, []uint16{50},
		collectBox(m, model.BoxAround(posAt(0, 0, 0), 1000)))
}

func TestSpatialMapNestedTraversal(t *testing.T) {
	m := NewSpatialMap()
	m.Insert(1, posAt(0, 0, 0))
	m.Insert(2, posAt(200, 0, 0))

	world := model.BoxAround(posAt(0, 0, 0), 1000)
	var inner []uint16
	m.GetRelevantObjectIds(world, func(id uint16) {
		if id != 1 {
			return
		}
		m.Insert(9, posAt(0, 0, 0))
		// A nested traversal must not drain the pending insert.
		m.GetRelevantObjectIds(world, func(innerID uint16) {
			inner = append(inner, innerID)
		})
	})

	assert.ElementsMatch(t, []uint16{1, 2}, inner)
	// Applied only after the outermost traversal unwound.
	require.Equal(t, 3, m.Size())
}

func TestSpatialMapPendingVisibleToNextQuery(t *testing.T) {
	m := NewSpatialMap()
	m.Insert(1, posAt(0, 0, 0))

	m.GetRelevantObjectIds(model.BoxAround(posAt(0, 0, 0), 10), func(id uint16) {
		m.UpdatePosition(1, posAt(0, 0, 0), posAt(300, 0, 0))
	})

	assert.Equal(t, 1, m.Size())
	assert.Empty(t, collectBox(m, model.BoxAround(posAt(0, 0, 0), 10)))
	assert.Equal(t, []uint16{1}, collectBox(m, model.BoxAround(posAt(300, 0, 0), 10)))
}
