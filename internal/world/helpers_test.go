package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxelgo/server/internal/model"
)

func posAt(x, y, z float32) model.Position {
	return model.Position{X: x, Y: y, Z: z}
}

func newTestObject(pos model.Position) *model.WorldObject {
	return model.NewWorldObject(model.ObjectTypeGeneric, "test", pos)
}

// randPos mirrors the canonical fill workload: uniform positions over
// [-2001, 2001] × [-20, 60] × [-2001, 2001].
func randPos(rng *rand.Rand) model.Position {
	const posRange = 2001
	return model.Position{
		X: rng.Float32()*2*posRange - posRange,
		Y: rng.Float32()*80 - 20,
		Z: rng.Float32()*2*posRange - posRange,
	}
}

func fillRandom(t testing.TB, mgr *ActiveObjectMgr, n int, rng *rand.Rand) {
	t.Helper()
	for i := 0; i < n; i++ {
		ok := mgr.RegisterObject(newTestObject(randPos(rng)))
		require.True(t, ok, "RegisterObject failed during fill")
	}
}

// idsOf collects the ids of a query result.
func idsOf(objs []model.ActiveObject) map[uint16]struct{} {
	ids := make(map[uint16]struct{}, len(objs))
	for _, obj := range objs {
		ids[obj.ID()] = struct{}{}
	}
	return ids
}
