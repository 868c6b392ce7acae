package world

import (
	"log/slog"

	"github.com/voxelgo/server/internal/constants"
	"github.com/voxelgo/server/internal/model"
	"github.com/voxelgo/server/internal/profiler"
)

// objectCountKey is the profiler gauge updated on every Step.
const objectCountKey = "ActiveObjectMgr: SAO count [#]"

// ActiveObjectMgr owns the live-object table and the spatial index and
// mediates every structural change through both. It is owned by the
// simulation goroutine; query callbacks may freely register, remove and
// move objects, the index defers the structural work until the query
// unwinds.
type ActiveObjectMgr struct {
	objects *ObjectTable
	spatial *SpatialMap
}

// NewActiveObjectMgr creates an empty manager.
func NewActiveObjectMgr() *ActiveObjectMgr {
	return &ActiveObjectMgr{
		objects: NewObjectTable(),
		spatial: NewSpatialMap(),
	}
}

// RegisterObject assigns obj an id if it has none, validates its
// position and indexes it. Returns false when the id space is
// exhausted, the supplied id is taken, or the position is outside the
// world; the caller decides how to recover.
func (mgr *ActiveObjectMgr) RegisterObject(obj model.ActiveObject) bool {
	if obj == nil {
		panic("world: RegisterObject with nil object")
	}

	if obj.ID() == constants.ObjectIDNone {
		id := mgr.objects.GetFreeID()
		if id == constants.ObjectIDNone {
			slog.Error("Cannot register active object: no free id available")
			return false
		}
		obj.SetID(id)
	} else {
		slog.Debug("Registering active object with supplied id", "id", obj.ID())
	}

	if !mgr.objects.IsFreeID(obj.ID()) {
		slog.Error("Cannot register active object: id is not free", "id", obj.ID())
		return false
	}

	pos := obj.BasePosition()
	if positionOverLimit(pos) {
		slog.Warn("Cannot register active object: position outside maximum range",
			"id", obj.ID(), "x", pos.X, "y", pos.Y, "z", pos.Z)
		return false
	}

	mgr.spatial.Insert(obj.ID(), pos)
	mgr.objects.Put(obj.ID(), obj)
	slog.Debug("Registered active object", "id", obj.ID(), "count", mgr.objects.Size())
	return true
}

// RemoveObject unindexes and releases the object with the given id.
// Unknown ids are ignored.
func (mgr *ActiveObjectMgr) RemoveObject(id uint16) {
	obj := mgr.objects.Get(id)
	if obj == nil {
		slog.Info("Cannot remove active object: id not found", "id", id)
		return
	}
	mgr.spatial.Remove(id, obj.BasePosition())
	mgr.objects.Remove(id)
}

// GetActiveObject returns the object with the given id, or nil.
func (mgr *ActiveObjectMgr) GetActiveObject(id uint16) model.ActiveObject {
	return mgr.objects.Get(id)
}

// UpdateObjectPosition rebuckets id after a move. Callers that move an
// object must report the move here; the table itself holds no position.
func (mgr *ActiveObjectMgr) UpdateObjectPosition(id uint16, lastPos, newPos model.Position) {
	mgr.spatial.UpdatePosition(id, lastPos, newPos)
}

// Step visits every live object once and records the population gauge.
// The callback owns any movement it performs and must report moves
// through UpdateObjectPosition itself.
func (mgr *ActiveObjectMgr) Step(dtime float32, fn func(obj model.ActiveObject)) {
	count := 0
	mgr.objects.ForEach(func(id uint16, obj model.ActiveObject) {
		count++
		fn(obj)
	})
	profiler.Avg(objectCountKey, float64(count))
}

// Size returns the number of live objects.
func (mgr *ActiveObjectMgr) Size() int {
	return mgr.objects.Size()
}

// Clear drops every object and wipes the spatial index.
func (mgr *ActiveObjectMgr) Clear() {
	mgr.objects.Clear()
	mgr.spatial.RemoveAll()
}

// ClearIf removes every object the predicate selects from the table.
// Spatial entries for the removed ids are left behind on purpose;
// queries drop them lazily when they fail to resolve.
func (mgr *ActiveObjectMgr) ClearIf(pred func(obj model.ActiveObject, id uint16) bool) {
	mgr.objects.ForEach(func(id uint16, obj model.ActiveObject) {
		if pred(obj, id) {
			mgr.objects.Remove(id)
		}
	})
}

// GetObjectsInsideRadius appends to dst every object within radius of
// pos for which includeCb (when given) returns true, and returns the
// extended slice. Ordering is unspecified.
func (mgr *ActiveObjectMgr) GetObjectsInsideRadius(pos model.Position, radius float32, dst []model.ActiveObject, includeCb func(obj model.ActiveObject) bool) []model.ActiveObject {
	r2 := radius * radius

	include := func(obj model.ActiveObject) {
		if includeCb == nil || includeCb(obj) {
			dst = append(dst, obj)
		}
	}

	mgr.spatial.GetObjectsIdsInRadius(pos, radius,
		func(id uint16) {
			obj := mgr.resolve(id)
			if obj == nil {
				return
			}
			if obj.BasePosition().DistanceSquared(pos) > r2 {
				return
			}
			include(obj)
		},
		func(id uint16) {
			// The whole cell is inside the sphere; no distance check.
			obj := mgr.resolve(id)
			if obj == nil {
				return
			}
			include(obj)
		})

	return dst
}

// GetObjectsInArea appends to dst every object inside box for which
// includeCb (when given) returns true, and returns the extended slice.
// Ordering is unspecified.
func (mgr *ActiveObjectMgr) GetObjectsInArea(box model.BoundingBox, dst []model.ActiveObject, includeCb func(obj model.ActiveObject) bool) []model.ActiveObject {
	mgr.spatial.GetRelevantObjectIds(box, func(id uint16) {
		obj := mgr.resolve(id)
		if obj == nil {
			return
		}
		if !box.Contains(obj.BasePosition()) {
			return
		}
		if includeCb == nil || includeCb(obj) {
			dst = append(dst, obj)
		}
	})
	return dst
}

// resolve dereferences a map-relevant id. A stale entry (the table no
// longer holds the id, typically after ClearIf) is dropped from the
// spatial map on first sighting.
func (mgr *ActiveObjectMgr) resolve(id uint16) model.ActiveObject {
	obj := mgr.objects.Get(id)
	if obj == nil {
		mgr.spatial.RemoveByID(id)
		return nil
	}
	return obj
}

func positionOverLimit(pos model.Position) bool {
	const limit = constants.MaxWorldExtent
	return pos.X < -limit || pos.X > limit ||
		pos.Y < -limit || pos.Y > limit ||
		pos.Z < -limit || pos.Z > limit
}
