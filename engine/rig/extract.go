package rig

import (
	"fmt"
	m "math"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
)

// ExtractRegion collects every vertex of region whose weight is above
// threshold, transformed from object space into frame (the world matrix of
// the armature the bones will live in). A region with no qualifying vertex
// yields an empty PointSet and no error.
func ExtractRegion(src Source, region string, frame math.Mat4, threshold float64) (PointSet, error) {
	ps := PointSet{Region: region}

	if threshold < 0 || m.IsNaN(threshold) {
		return ps, fmt.Errorf("%w: weight threshold %g", core.ErrMalformedInput, threshold)
	}
	weights, ok := src.Weights(region)
	if !ok {
		return ps, fmt.Errorf("%w: %q on %q", core.ErrUnknownRegion, region, src.Name())
	}
	if len(weights) != src.VertexCount() {
		return ps, fmt.Errorf("%w: region %q has %d weights for %d vertices",
			core.ErrMalformedInput, region, len(weights), src.VertexCount())
	}

	toFrame, err := objectToFrame(src.World(), frame)
	if err != nil {
		return ps, err
	}

	for i, w := range weights {
		if m.IsNaN(w) || m.IsInf(w, 0) || w < 0 {
			return ps, fmt.Errorf("%w: region %q vertex %d has weight %g", core.ErrMalformedInput, region, i, w)
		}
		if w <= threshold {
			continue
		}
		co := src.Vertex(i)
		if !co.IsFinite() {
			return ps, fmt.Errorf("%w: vertex %d of %q is not finite", core.ErrMalformedInput, i, src.Name())
		}
		ps.Positions = append(ps.Positions, co.Transform(toFrame))
		ps.Weights = append(ps.Weights, w)
	}
	return ps, nil
}

// objectToFrame composes object->world with world->frame.
func objectToFrame(world, frame math.Mat4) (math.Mat4, error) {
	det := frame.Determinant()
	if det == 0 || m.IsNaN(det) {
		return math.Mat4{}, fmt.Errorf("%w: reference frame is not invertible", core.ErrMalformedInput)
	}
	return world.Mul(frame.Inverse()), nil
}
