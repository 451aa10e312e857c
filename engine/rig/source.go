package rig

import "github.com/spaghettifunk/autorig/engine/math"

// Source is the geometry a skeleton is inferred from: vertex positions in
// object space, the object's world matrix and one dense weight slice per
// named region. mesh.Mesh is the implementation used by the CLI; host
// integrations provide their own.
type Source interface {
	// Name identifies the object; the skeleton is named after it.
	Name() string
	// Regions lists region names in enumeration order.
	Regions() []string
	VertexCount() int
	// Vertex returns the object-space position of vertex i.
	Vertex(i int) math.Vec3
	// World maps object space to world space.
	World() math.Mat4
	// Weights returns one weight per vertex for region, 0 where the vertex
	// is unassigned. ok is false when the region does not exist.
	Weights(region string) (weights []float64, ok bool)
}
