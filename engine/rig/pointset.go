package rig

import (
	"fmt"
	m "math"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
)

// DefaultWeightThreshold drops vertices whose weight is at or below it.
const DefaultWeightThreshold = 0.001

// PointSet is the weighted point cloud of one region, expressed in the
// reference frame the bones are built in. Positions and Weights are
// parallel slices.
type PointSet struct {
	Region    string
	Positions []math.Vec3
	Weights   []float64
}

func (ps PointSet) Len() int {
	return len(ps.Positions)
}

func (ps PointSet) IsEmpty() bool {
	return len(ps.Positions) == 0
}

// Validate rejects point sets that cannot describe a region: mismatched
// slice lengths, negative or non-finite weights and non-finite coordinates.
func (ps PointSet) Validate() error {
	if len(ps.Positions) != len(ps.Weights) {
		return fmt.Errorf("%w: region %q has %d positions and %d weights",
			core.ErrMalformedInput, ps.Region, len(ps.Positions), len(ps.Weights))
	}
	for i, w := range ps.Weights {
		if m.IsNaN(w) || m.IsInf(w, 0) {
			return fmt.Errorf("%w: region %q weight %d is not finite", core.ErrMalformedInput, ps.Region, i)
		}
		if w < 0 {
			return fmt.Errorf("%w: region %q weight %d is negative (%g)", core.ErrMalformedInput, ps.Region, i, w)
		}
	}
	for i, p := range ps.Positions {
		if !p.IsFinite() {
			return fmt.Errorf("%w: region %q position %d is not finite", core.ErrMalformedInput, ps.Region, i)
		}
	}
	return nil
}
