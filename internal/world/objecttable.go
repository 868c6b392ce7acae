package world

import (
	"fmt"
	"log/slog"

	"github.com/voxelgo/server/internal/constants"
	"github.com/voxelgo/server/internal/model"
)

// ObjectTable maps object ids to live objects and owns their lifetime.
//
// Iteration tolerates mutation: removing any entry mid-walk (including
// the one being visited) leaves a tombstone that later visits skip, and
// the slot is reclaimed when the outermost walk ends. Objects put
// mid-walk are held back and only become visible to the next walk.
type ObjectTable struct {
	objects map[uint16]model.ActiveObject

	iterating  int
	pending    map[uint16]model.ActiveObject // puts made during iteration
	tombstones []uint16                      // ids removed during iteration
}

// NewObjectTable creates an empty table.
func NewObjectTable() *ObjectTable {
	return &ObjectTable{objects: make(map[uint16]model.ActiveObject)}
}

// Put inserts obj under id and takes ownership. Id 0 or a live id is a
// programmer error.
func (t *ObjectTable) Put(id uint16, obj model.ActiveObject) {
	if id == constants.ObjectIDNone {
		panic("world: ObjectTable.Put with id 0")
	}
	if obj == nil {
		panic("world: ObjectTable.Put with nil object")
	}
	if !t.IsFreeID(id) {
		panic(fmt.Sprintf("world: ObjectTable.Put: id %d already present", id))
	}
	if t.iterating > 0 {
		if t.pending == nil {
			t.pending = make(map[uint16]model.ActiveObject)
		}
		t.pending[id] = obj
		return
	}
	t.objects[id] = obj
}

// Remove deletes the object under id, releasing ownership. Reports
// whether the id was present; a missing id is logged at info level.
func (t *ObjectTable) Remove(id uint16) bool {
	if obj, ok := t.objects[id]; ok && obj != nil {
		if t.iterating > 0 {
			t.objects[id] = nil
			t.tombstones = append(t.tombstones, id)
			return true
		}
		delete(t.objects, id)
		return true
	}
	if _, ok := t.pending[id]; ok {
		delete(t.pending, id)
		return true
	}
	slog.Info("Cannot remove object from table: id not found", "id", id)
	return false
}

// Get returns the object under id, or nil. The reference is borrowed;
// it is valid for the duration of the caller's current operation.
func (t *ObjectTable) Get(id uint16) model.ActiveObject {
	if obj := t.objects[id]; obj != nil {
		return obj
	}
	return t.pending[id]
}

// Size returns the number of live objects.
func (t *ObjectTable) Size() int {
	return len(t.objects) - len(t.tombstones) + len(t.pending)
}

// ForEach visits every live (id, object) pair once. Entries removed
// during the walk are not visited after their removal; entries put
// during the walk are not visited by it.
func (t *ObjectTable) ForEach(fn func(id uint16, obj model.ActiveObject)) {
	t.iterating++
	for id, obj := range t.objects {
		if obj == nil {
			continue
		}
		fn(id, obj)
	}
	t.iterating--
	if t.iterating == 0 {
		t.applyDeferred()
	}
}

func (t *ObjectTable) applyDeferred() {
	for _, id := range t.tombstones {
		if t.objects[id] == nil {
			delete(t.objects, id)
		}
	}
	t.tombstones = t.tombstones[:0]
	for id, obj := range t.pending {
		t.objects[id] = obj
		delete(t.pending, id)
	}
}

// Clear drops every object.
func (t *ObjectTable) Clear() {
	t.objects = make(map[uint16]model.ActiveObject)
	t.pending = nil
	t.tombstones = nil
}

// GetFreeID returns the lowest unused id in [1, MaxObjectID], or 0 when
// the id space is exhausted.
func (t *ObjectTable) GetFreeID() uint16 {
	for id := uint16(1); id != 0; id++ {
		if t.IsFreeID(id) {
			return id
		}
	}
	return constants.ObjectIDNone
}

// IsFreeID reports whether id can be assigned to a new object.
func (t *ObjectTable) IsFreeID(id uint16) bool {
	if id == constants.ObjectIDNone {
		return false
	}
	if obj, ok := t.objects[id]; ok && obj != nil {
		return false
	}
	if _, ok := t.pending[id]; ok {
		return false
	}
	return true
}
