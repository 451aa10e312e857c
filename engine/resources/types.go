package resources

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief No known resource type. */
	ResourceTypeNone ResourceType = iota
	/** @brief Mesh resource type (vertices, faces and vertex groups). */
	ResourceTypeMesh
	/** @brief Skeleton resource type (bones and their hierarchy). */
	ResourceTypeSkeleton
	/** @brief Rig configuration resource type. */
	ResourceTypeConfig
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeMesh:
		return "mesh"
	case ResourceTypeSkeleton:
		return "skeleton"
	case ResourceTypeConfig:
		return "config"
	default:
		return "none"
	}
}

/** @brief The format version written into every file. */
const FormatVersion uint8 = 1

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The resource type of the loader which produced this resource. */
	Type ResourceType
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the file in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

/**
 * @brief On-disk layout of a mesh file (TOML).
 */
type MeshFile struct {
	Version uint8  `toml:"format_version"`
	Name    string `toml:"name"`
	/** @brief Object transform; identity when omitted. */
	Transform *TransformFile `toml:"transform,omitempty"`
	/** @brief Object-space positions, three values each. */
	Vertices [][]float64 `toml:"vertices"`
	/** @brief Optional polygons as vertex index lists. */
	Faces  [][]int     `toml:"faces,omitempty"`
	Groups []GroupFile `toml:"groups"`
}

type TransformFile struct {
	Position []float64 `toml:"position"`
	/** @brief Quaternion x, y, z, w. */
	Rotation []float64 `toml:"rotation"`
	Scale    []float64 `toml:"scale"`
}

/**
 * @brief One vertex group. Indices and Weights are parallel.
 */
type GroupFile struct {
	Name    string    `toml:"name"`
	Indices []int     `toml:"indices"`
	Weights []float64 `toml:"weights"`
}

/**
 * @brief On-disk layout of a generated skeleton (TOML).
 */
type SkeletonFile struct {
	Version   uint8      `toml:"format_version"`
	ID        string     `toml:"id"`
	Name      string     `toml:"name"`
	Requested int        `toml:"requested"`
	Produced  int        `toml:"produced"`
	Skipped   []string   `toml:"skipped,omitempty"`
	Bones     []BoneFile `toml:"bones"`
}

type BoneFile struct {
	Name       string    `toml:"name"`
	Head       []float64 `toml:"head"`
	Tail       []float64 `toml:"tail"`
	Length     float64   `toml:"length"`
	Shape      string    `toml:"shape"`
	Elongation string    `toml:"elongation"`
	/** @brief Parent bone name, empty for roots. */
	Parent string `toml:"parent,omitempty"`
	/** @brief True when the head was snapped onto the parent's tail. */
	Connected bool `toml:"connected"`
}
