package constants

// World and id-space limits for the active-object index.
const (
	// MaxWorldExtent is the world half-size in world units. No active
	// object may exist with any coordinate outside
	// [-MaxWorldExtent, MaxWorldExtent]; registration rejects such
	// positions.
	MaxWorldExtent = 31000

	// ObjectIDNone marks "no object". Id 0 is never allocated and never
	// stored.
	ObjectIDNone = 0

	// MaxObjectID is the highest allocatable object id. Ids are 16-bit,
	// so the allocatable space is [1, 65535].
	MaxObjectID = 65535
)
