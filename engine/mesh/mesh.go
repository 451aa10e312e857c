package mesh

import (
	"fmt"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
)

/**
 * @brief A named vertex group. Indices and Weights are parallel; a vertex
 * that is not listed has weight 0 in the group.
 */
type Group struct {
	Name    string
	Indices []int
	Weights []float64
}

/**
 * @brief An in-memory mesh object: vertices in object space, an object
 * transform, optional polygon faces and an ordered list of vertex groups.
 * Mesh implements rig.Source. Once built it is safe for concurrent reads.
 */
type Mesh struct {
	name      string
	vertices  []math.Vec3
	faces     [][]int
	transform *math.Transform
	world     math.Mat4

	groups []*Group
	// dense per-vertex weights, keyed by group name
	dense map[string][]float64
}

func New(name string, vertices []math.Vec3) *Mesh {
	return &Mesh{
		name:      name,
		vertices:  vertices,
		transform: math.TransformCreate(),
		world:     math.NewMat4Identity(),
		dense:     make(map[string][]float64),
	}
}

func (m *Mesh) Name() string { return m.name }

func (m *Mesh) VertexCount() int { return len(m.vertices) }

func (m *Mesh) Vertex(i int) math.Vec3 { return m.vertices[i] }

func (m *Mesh) Vertices() []math.Vec3 { return m.vertices }

// World is the object to world matrix of the current transform.
func (m *Mesh) World() math.Mat4 { return m.world }

func (m *Mesh) Transform() *math.Transform { return m.transform }

// SetTransform replaces the object transform and recomputes World.
func (m *Mesh) SetTransform(t *math.Transform) {
	if t == nil {
		t = math.TransformCreate()
	}
	m.transform = t
	m.world = t.GetWorld()
}

func (m *Mesh) Faces() [][]int { return m.faces }

// SetFaces installs polygon faces. Every face needs at least three
// in-range vertex indices.
func (m *Mesh) SetFaces(faces [][]int) error {
	for fi, f := range faces {
		if len(f) < 3 {
			return fmt.Errorf("%w: face %d has %d vertices", core.ErrMalformedInput, fi, len(f))
		}
		for _, idx := range f {
			if idx < 0 || idx >= len(m.vertices) {
				return fmt.Errorf("%w: face %d references vertex %d of %d", core.ErrMalformedInput, fi, idx, len(m.vertices))
			}
		}
	}
	m.faces = faces
	return nil
}

// AddGroup appends a vertex group. Weight values are checked when a region
// is extracted, not here. Each vertex may appear once per group.
func (m *Mesh) AddGroup(name string, indices []int, weights []float64) error {
	if _, ok := m.dense[name]; ok {
		return fmt.Errorf("%w: %q on %q", core.ErrDuplicateRegion, name, m.name)
	}
	if len(indices) != len(weights) {
		return fmt.Errorf("%w: group %q has %d indices and %d weights",
			core.ErrMalformedInput, name, len(indices), len(weights))
	}
	dense := make([]float64, len(m.vertices))
	seen := make([]bool, len(m.vertices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(m.vertices) {
			return fmt.Errorf("%w: group %q references vertex %d of %d",
				core.ErrMalformedInput, name, idx, len(m.vertices))
		}
		if seen[idx] {
			return fmt.Errorf("%w: group %q lists vertex %d twice", core.ErrMalformedInput, name, idx)
		}
		seen[idx] = true
		dense[idx] = weights[i]
	}
	m.groups = append(m.groups, &Group{Name: name, Indices: indices, Weights: weights})
	m.dense[name] = dense
	return nil
}

// SetWeights replaces every weight of group name with a dense per-vertex slice.
func (m *Mesh) SetWeights(name string, weights []float64) error {
	if len(weights) != len(m.vertices) {
		return fmt.Errorf("%w: %d weights for %d vertices", core.ErrMalformedInput, len(weights), len(m.vertices))
	}
	var indices []int
	var sparse []float64
	for i, w := range weights {
		if w != 0 {
			indices = append(indices, i)
			sparse = append(sparse, w)
		}
	}
	if g, ok := m.Group(name); ok {
		g.Indices, g.Weights = indices, sparse
		m.dense[name] = append([]float64(nil), weights...)
		return nil
	}
	return m.AddGroup(name, indices, sparse)
}

func (m *Mesh) Group(name string) (*Group, bool) {
	for _, g := range m.groups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

func (m *Mesh) Groups() []*Group { return m.groups }

// Regions lists the group names in group order.
func (m *Mesh) Regions() []string {
	names := make([]string, len(m.groups))
	for i, g := range m.groups {
		names[i] = g.Name
	}
	return names
}

// Weights returns the dense per-vertex weights of region. The slice is
// shared with the mesh and must not be modified.
func (m *Mesh) Weights(region string) ([]float64, bool) {
	w, ok := m.dense[region]
	return w, ok
}

// RemoveGroup deletes the group and reports whether it existed.
func (m *Mesh) RemoveGroup(name string) bool {
	for i, g := range m.groups {
		if g.Name == name {
			m.groups = append(m.groups[:i], m.groups[i+1:]...)
			delete(m.dense, name)
			return true
		}
	}
	return false
}

// RenameGroup gives the group a new name. When the name is already taken a
// numeric suffix (".001", ".002", ...) is appended; the final name is returned.
func (m *Mesh) RenameGroup(oldName, newName string) (string, error) {
	g, ok := m.Group(oldName)
	if !ok {
		return "", fmt.Errorf("%w: %q on %q", core.ErrUnknownRegion, oldName, m.name)
	}
	if oldName == newName {
		return newName, nil
	}
	final := m.uniqueName(newName)
	m.dense[final] = m.dense[oldName]
	delete(m.dense, oldName)
	g.Name = final
	return final, nil
}

func (m *Mesh) uniqueName(name string) string {
	if _, taken := m.dense[name]; !taken {
		return name
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.%03d", name, n)
		if _, taken := m.dense[candidate]; !taken {
			return candidate
		}
	}
}
