package world

import "github.com/voxelgo/server/internal/model"

// Visibility queries: what a viewer at some position should start
// seeing. The per-viewer set of already-known ids is owned by the
// enclosing server; this file only computes the diff against it.

// GetAddedActiveObjectsAroundPos appends to dst the ids of objects near
// playerPos that the viewer does not already know about, and returns
// the extended slice.
//
// Gone objects and ids present in currentIDs are skipped. Player-typed
// objects are filtered against playerRadius (0 disables that cutoff),
// everything else against radius.
func (mgr *ActiveObjectMgr) GetAddedActiveObjectsAroundPos(playerPos model.Position, radius, playerRadius float32, currentIDs map[uint16]struct{}, dst []uint16) []uint16 {
	offset := radius
	if playerRadius > offset {
		offset = playerRadius
	}
	bounds := model.BoxAround(playerPos, offset)

	mgr.spatial.GetRelevantObjectIds(bounds, func(id uint16) {
		obj := mgr.resolve(id)
		if obj == nil {
			return
		}
		if obj.IsGone() {
			return
		}

		distance := obj.BasePosition().Distance(playerPos)
		if obj.Type() == model.ObjectTypePlayer {
			if distance > playerRadius && playerRadius != 0 {
				return
			}
		} else if distance > radius {
			return
		}

		if _, known := currentIDs[id]; known {
			return
		}
		dst = append(dst, id)
	})

	return dst
}

// ForEachObjectInRadius calls fn for every object within radius of pos
// until fn returns false. Traversal of the remaining candidates still
// completes; they are simply no longer forwarded.
func (mgr *ActiveObjectMgr) ForEachObjectInRadius(pos model.Position, radius float32, fn func(obj model.ActiveObject) bool) {
	stopped := false
	mgr.GetObjectsInsideRadius(pos, radius, nil, func(obj model.ActiveObject) bool {
		if !stopped && !fn(obj) {
			stopped = true
		}
		return false
	})
}
