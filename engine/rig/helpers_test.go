package rig

import (
	"github.com/spaghettifunk/autorig/engine/math"
)

type testSource struct {
	name     string
	vertices []math.Vec3
	world    math.Mat4
	order    []string
	weights  map[string][]float64
}

func newTestSource(vertices []math.Vec3) *testSource {
	return &testSource{
		name:     "Body",
		vertices: vertices,
		world:    math.NewMat4Identity(),
		weights:  map[string][]float64{},
	}
}

// addRegion assigns weight w to every vertex selected by in.
func (s *testSource) addRegion(name string, w float64, in func(math.Vec3) bool) {
	ws := make([]float64, len(s.vertices))
	for i, v := range s.vertices {
		if in(v) {
			ws[i] = w
		}
	}
	s.order = append(s.order, name)
	s.weights[name] = ws
}

func (s *testSource) Name() string           { return s.name }
func (s *testSource) Regions() []string      { return s.order }
func (s *testSource) VertexCount() int       { return len(s.vertices) }
func (s *testSource) Vertex(i int) math.Vec3 { return s.vertices[i] }
func (s *testSource) World() math.Mat4       { return s.world }
func (s *testSource) Weights(r string) ([]float64, bool) {
	w, ok := s.weights[r]
	return w, ok
}

// zLine returns n+1 points on the Z axis from 0 to n*step.
func zLine(n int, step float64) []math.Vec3 {
	out := make([]math.Vec3, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, math.Vec3{Z: float64(i) * step})
	}
	return out
}

func pointSet(region string, pts []math.Vec3, w float64) PointSet {
	ws := make([]float64, len(pts))
	for i := range ws {
		ws[i] = w
	}
	return PointSet{Region: region, Positions: pts, Weights: ws}
}

// axisCross returns six points at ±a on X, ±b on Y and ±c on Z, whose
// covariance is diag(a²/3, b²/3, c²/3).
func axisCross(a, b, c float64) []math.Vec3 {
	return []math.Vec3{
		{X: a}, {X: -a},
		{Y: b}, {Y: -b},
		{Z: c}, {Z: -c},
	}
}
