package rig

import (
	"errors"
	m "math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
)

func TestFitBoneLineIsParallelToPrincipalAxis(t *testing.T) {
	dir := math.Vec3{X: 1, Y: 2, Z: 2}.DivScalar(3)
	origin := math.Vec3{X: 5, Y: 5, Z: 5}
	var pts []math.Vec3
	for i := -20; i <= 20; i++ {
		pts = append(pts, origin.Add(dir.MulScalar(float64(i)*0.1)))
	}
	ps := pointSet("forearm", pts, 1)

	c, err := Classify(ps)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if c.Elongation != ElongationCigar {
		t.Fatalf("Elongation = %v, want cigar", c.Elongation)
	}

	b, err := FitBone(ps, DefaultFitOptions())
	if err != nil {
		t.Fatalf("FitBone: %v", err)
	}
	if b == nil {
		t.Fatal("FitBone returned no bone")
	}
	seg := b.Head.Sub(b.Tail)
	if cross := seg.Cross(c.Eigen[0].Vector).Length(); cross > 1e-9 {
		t.Errorf("head-tail %+v not parallel to v1 %+v", seg, c.Eigen[0].Vector)
	}
	if !scalar.EqualWithinAbs(b.Length, seg.Length(), 1e-9) {
		t.Errorf("Length = %v, head-tail distance %v", b.Length, seg.Length())
	}
	if b.Name != "forearm" {
		t.Errorf("Name = %q, want forearm", b.Name)
	}
}

func TestFitBoneQuantileExtent(t *testing.T) {
	// 101 points, z = 0.00 .. 1.00
	b, err := FitBone(pointSet("r", zLine(100, 0.01), 1), DefaultFitOptions())
	if err != nil {
		t.Fatalf("FitBone: %v", err)
	}
	if !scalar.EqualWithinAbs(b.Head.Z, 0.95, 1e-9) || !scalar.EqualWithinAbs(b.Tail.Z, 0.05, 1e-9) {
		t.Errorf("head %v tail %v, want z 0.95 and 0.05", b.Head, b.Tail)
	}
	if !scalar.EqualWithinAbs(b.Length, 0.9, 1e-9) {
		t.Errorf("Length = %v, want 0.9", b.Length)
	}

	b, err = FitBone(pointSet("r", zLine(100, 0.01), 1), FitOptions{LowQuantile: 0, HighQuantile: 1})
	if err != nil {
		t.Fatalf("FitBone: %v", err)
	}
	if !scalar.EqualWithinAbs(b.Length, 1, 1e-9) {
		t.Errorf("full-range Length = %v, want 1", b.Length)
	}
}

func TestFitBoneDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		points []math.Vec3
	}{
		{name: "single point", points: []math.Vec3{{X: 1, Y: 2, Z: 3}}},
		{name: "identical points", points: []math.Vec3{{X: 1, Y: 2, Z: 3}, {X: 1, Y: 2, Z: 3}, {X: 1, Y: 2, Z: 3}, {X: 1, Y: 2, Z: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := FitBone(pointSet("r", tt.points, 0.8), DefaultFitOptions())
			if err != nil {
				t.Fatalf("FitBone: %v", err)
			}
			if !scalar.EqualWithinAbs(b.Length, 0.02, 1e-12) {
				t.Errorf("Length = %v, want 0.02", b.Length)
			}
			mid := b.Head.Add(b.Tail).MulScalar(0.5)
			if !mid.Compare(math.Vec3{X: 1, Y: 2, Z: 3}, 1e-9) {
				t.Errorf("bone midpoint = %+v, want the point itself", mid)
			}
			if !scalar.EqualWithinAbs(b.Head.Distance(b.Tail), 0.02, 1e-9) {
				t.Errorf("head-tail distance = %v, want 0.02", b.Head.Distance(b.Tail))
			}
		})
	}
}

func TestFitBoneEmpty(t *testing.T) {
	b, err := FitBone(PointSet{Region: "r"}, DefaultFitOptions())
	if err != nil {
		t.Fatalf("FitBone: %v", err)
	}
	if b != nil {
		t.Errorf("FitBone(empty) = %+v, want nil", b)
	}
}

func TestFitBoneHeadAboveTail(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		n := 3 + rng.Intn(40)
		pts := make([]math.Vec3, n)
		ws := make([]float64, n)
		for i := range pts {
			pts[i] = math.Vec3{
				X: rng.NormFloat64() * 3,
				Y: rng.NormFloat64(),
				Z: rng.NormFloat64() * 2,
			}
			ws[i] = 0.01 + rng.Float64()
		}
		b, err := FitBone(PointSet{Region: "r", Positions: pts, Weights: ws}, DefaultFitOptions())
		if err != nil {
			t.Fatalf("run %d: FitBone: %v", run, err)
		}
		if b.Head.Z < b.Tail.Z {
			t.Errorf("run %d: head z %v below tail z %v", run, b.Head.Z, b.Tail.Z)
		}
		if b.Length < 0 {
			t.Errorf("run %d: negative length %v", run, b.Length)
		}
	}
}

func TestFitBoneInvalidInput(t *testing.T) {
	good := pointSet("r", zLine(4, 1), 1)
	tests := []struct {
		name string
		ps   PointSet
		opts FitOptions
	}{
		{name: "low quantile below 0", ps: good, opts: FitOptions{LowQuantile: -0.1, HighQuantile: 0.9}},
		{name: "high quantile above 1", ps: good, opts: FitOptions{LowQuantile: 0.1, HighQuantile: 1.5}},
		{name: "low above high", ps: good, opts: FitOptions{LowQuantile: 0.8, HighQuantile: 0.2}},
		{name: "NaN quantile", ps: good, opts: FitOptions{LowQuantile: m.NaN(), HighQuantile: 0.9}},
		{
			name: "negative weight",
			ps:   PointSet{Positions: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}}, Weights: []float64{1, -1}},
			opts: DefaultFitOptions(),
		},
		{
			name: "mismatched lengths",
			ps:   PointSet{Positions: []math.Vec3{{X: 0, Y: 0, Z: 0}}, Weights: []float64{1, 1}},
			opts: DefaultFitOptions(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitBone(tt.ps, tt.opts)
			if !errors.Is(err, core.ErrMalformedInput) {
				t.Errorf("FitBone error = %v, want ErrMalformedInput", err)
			}
		})
	}
}

func TestFitRegion(t *testing.T) {
	src := newTestSource(zLine(100, 0.01))
	src.addRegion("spine", 1, func(v math.Vec3) bool { return true })
	src.addRegion("empty", 0, func(v math.Vec3) bool { return true })

	b, err := FitRegion(src, "spine", math.NewMat4Identity(), DefaultWeightThreshold, DefaultFitOptions())
	if err != nil || b == nil {
		t.Fatalf("FitRegion(spine) = %v, %v", b, err)
	}
	b, err = FitRegion(src, "empty", math.NewMat4Identity(), DefaultWeightThreshold, DefaultFitOptions())
	if err != nil || b != nil {
		t.Errorf("FitRegion(empty) = %v, %v; want nil, nil", b, err)
	}
}
