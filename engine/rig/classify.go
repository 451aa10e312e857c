package rig

import (
	"fmt"
	m "math"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
)

const (
	// RingTolerance is the largest neighbouring eigenvalue ratio still
	// considered isotropic.
	RingTolerance = 1.2
	// ElongationThreshold is the eigenvalue ratio at which a region counts
	// as stretched along (cigar) or flattened across (sheet) an axis.
	ElongationThreshold = 3.0
)

// Shape selects the center used to place the bone.
type Shape int

const (
	// ShapeWeighted uses the weighted mean.
	ShapeWeighted Shape = iota
	// ShapeRing uses the unweighted geometric mean so that uneven weights
	// do not drag the center of a symmetric belt or collar region.
	ShapeRing
)

func (s Shape) String() string {
	switch s {
	case ShapeRing:
		return "ring"
	default:
		return "weighted"
	}
}

// Elongation records which rule picked the bone axis.
type Elongation int

const (
	ElongationAmbiguous Elongation = iota
	ElongationCigar
	ElongationSheet
)

func (e Elongation) String() string {
	switch e {
	case ElongationCigar:
		return "cigar"
	case ElongationSheet:
		return "sheet"
	default:
		return "ambiguous"
	}
}

// Classification is the PCA of one region.
type Classification struct {
	// Covariance is the weighted covariance about WeightedCenter.
	Covariance math.Mat3
	// Eigen holds the eigen pairs of Covariance, largest eigenvalue first.
	Eigen          [3]math.EigenPair
	Shape          Shape
	Elongation     Elongation
	WeightedCenter math.Vec3
	// Center is the point the bone is laid through.
	Center     math.Vec3
	Axis       math.Vec3
	CigarRatio float64
	SheetRatio float64
}

// Classify runs the PCA of a non-empty point set and selects the bone
// center and axis.
//
// Axis rules, in order: a cigar (λ1/(λ2+ε) >= ElongationThreshold) takes
// the major axis v1; a sheet (λ2/(λ3+ε) >= ElongationThreshold) takes the
// minor axis v3; anything else takes whichever eigenvector is closest to
// world up, the first one winning ties.
func Classify(ps PointSet) (Classification, error) {
	var c Classification
	if err := ps.Validate(); err != nil {
		return c, err
	}
	if ps.IsEmpty() {
		return c, fmt.Errorf("%w: region %q has no points to classify", core.ErrMalformedInput, ps.Region)
	}

	c.WeightedCenter = math.WeightedMean(ps.Positions, ps.Weights)
	c.Covariance = math.WeightedCovariance(ps.Positions, ps.Weights, c.WeightedCenter)

	eigen, err := math.EigenSym3(c.Covariance)
	if err != nil {
		return c, fmt.Errorf("region %q: %w", ps.Region, err)
	}
	c.Eigen = eigen
	l1, l2, l3 := eigen[0].Value, eigen[1].Value, eigen[2].Value

	if isRingLike(l1, l2, l3) {
		c.Shape = ShapeRing
		c.Center = math.Mean(ps.Positions)
	} else {
		c.Shape = ShapeWeighted
		c.Center = c.WeightedCenter
	}

	c.CigarRatio = l1 / (l2 + math.K_EPSILON)
	c.SheetRatio = l2 / (l3 + math.K_EPSILON)

	var axis math.Vec3
	switch {
	case c.CigarRatio >= ElongationThreshold && l1 > math.K_EPSILON:
		c.Elongation = ElongationCigar
		axis = eigen[0].Vector
	case c.SheetRatio >= ElongationThreshold && l2 > math.K_EPSILON:
		c.Elongation = ElongationSheet
		axis = eigen[2].Vector
	default:
		c.Elongation = ElongationAmbiguous
		axis = mostVertical(eigen)
	}
	c.Axis = axis.DivScalar(axis.Length() + math.K_EPSILON)

	return c, nil
}

func isRingLike(l1, l2, l3 float64) bool {
	return l1/m.Max(l2, math.K_EPSILON) < RingTolerance &&
		l2/m.Max(l3, math.K_EPSILON) < RingTolerance
}

func mostVertical(eigen [3]math.EigenPair) math.Vec3 {
	up := math.NewVec3Up()
	best := 0
	bestDot := m.Abs(eigen[0].Vector.Dot(up))
	for i := 1; i < len(eigen); i++ {
		if d := m.Abs(eigen[i].Vector.Dot(up)); d > bestDot {
			best, bestDot = i, d
		}
	}
	return eigen[best].Vector
}
