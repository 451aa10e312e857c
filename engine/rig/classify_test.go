package rig

import (
	"errors"
	m "math"
	"testing"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
)

func TestClassifyIsotropicIsRing(t *testing.T) {
	ps := pointSet("collar", axisCross(1, 1, 1), 1)
	ps.Weights[0] = 1.1 // skews the weighted mean but keeps the spread isotropic

	c, err := Classify(ps)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if c.Shape != ShapeRing {
		t.Errorf("Shape = %v, want ring", c.Shape)
	}
	if !c.Center.Compare(math.NewVec3Zero(), 1e-12) {
		t.Errorf("Center = %+v, want the unweighted mean (origin)", c.Center)
	}
	if c.WeightedCenter.X <= 0 {
		t.Errorf("WeightedCenter = %+v, want it pulled towards +X", c.WeightedCenter)
	}
}

func TestClassifyEigenPairs(t *testing.T) {
	pts := []math.Vec3{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0.3, Z: 0.1}, {X: 2, Y: 0.2, Z: -0.4}, {X: 3, Y: 1, Z: 0.2}, {X: 4, Y: 0.7, Z: 0.9}, {X: -1, Y: -0.5, Z: 0.3},
	}
	c, err := Classify(pointSet("r", pts, 0.7))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for i := 0; i < 2; i++ {
		if c.Eigen[i].Value < c.Eigen[i+1].Value {
			t.Errorf("eigenvalues not sorted descending: %v", c.Eigen)
		}
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if d := m.Abs(c.Eigen[i].Vector.Dot(c.Eigen[j].Vector)); d >= 1e-6 {
				t.Errorf("eigenvectors %d, %d not orthogonal (dot %v)", i, j, d)
			}
		}
	}
}

func TestClassifyAxisSelection(t *testing.T) {
	tests := []struct {
		name           string
		points         []math.Vec3
		wantElongation Elongation
		wantShape      Shape
		// wantAxis is compared up to sign.
		wantAxis math.Vec3
	}{
		{
			name:           "line is a cigar along its direction",
			points:         []math.Vec3{{X: -2, Y: 0, Z: 1}, {X: -1, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 2, Y: 0, Z: 1}},
			wantElongation: ElongationCigar,
			wantShape:      ShapeWeighted,
			wantAxis:       math.Vec3{X: 1},
		},
		{
			name: "flat square is a sheet and takes the minor axis",
			points: []math.Vec3{
				{X: -1, Y: -1, Z: 0}, {X: 0, Y: -1, Z: 0}, {X: 1, Y: -1, Z: 0},
				{X: -1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0},
				{X: -1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0},
			},
			wantElongation: ElongationSheet,
			wantShape:      ShapeWeighted,
			wantAxis:       math.Vec3{Z: 1},
		},
		{
			name:           "mildly anisotropic blob takes the most vertical eigenvector",
			points:         axisCross(m.Sqrt(3), m.Sqrt(1.8), m.Sqrt(0.9)),
			wantElongation: ElongationAmbiguous,
			wantShape:      ShapeWeighted,
			wantAxis:       math.Vec3{Z: 1},
		},
		{
			name:           "isotropic cloud is ambiguous and vertical",
			points:         axisCross(1, 1, 1),
			wantElongation: ElongationAmbiguous,
			wantShape:      ShapeRing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Classify(pointSet("r", tt.points, 1))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if c.Elongation != tt.wantElongation {
				t.Errorf("Elongation = %v, want %v (cigar %.3g, sheet %.3g)",
					c.Elongation, tt.wantElongation, c.CigarRatio, c.SheetRatio)
			}
			if c.Shape != tt.wantShape {
				t.Errorf("Shape = %v, want %v", c.Shape, tt.wantShape)
			}
			if l := c.Axis.Length(); m.Abs(l-1) > 1e-9 {
				t.Errorf("axis length = %v, want 1", l)
			}
			if tt.wantAxis != (math.Vec3{}) {
				if d := m.Abs(c.Axis.Dot(tt.wantAxis)); m.Abs(d-1) > 1e-9 {
					t.Errorf("Axis = %+v, want ±%+v", c.Axis, tt.wantAxis)
				}
			}
		})
	}
}

func TestClassifyLineHasLargeCigarRatio(t *testing.T) {
	c, err := Classify(pointSet("r", zLine(10, 0.1), 1))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if c.CigarRatio < 1e6*ElongationThreshold {
		t.Errorf("CigarRatio = %v, want it far above %v", c.CigarRatio, ElongationThreshold)
	}
}

func TestClassifyEmpty(t *testing.T) {
	_, err := Classify(PointSet{Region: "r"})
	if !errors.Is(err, core.ErrMalformedInput) {
		t.Errorf("Classify(empty) error = %v, want ErrMalformedInput", err)
	}
}
