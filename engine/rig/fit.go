package rig

import (
	"fmt"
	m "math"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
)

const (
	DefaultLowQuantile  = 0.05
	DefaultHighQuantile = 0.95

	// minExtent is the projected span below which a region is treated as a
	// single point; the bone then gets a fixed ±fallbackHalfExtent span.
	minExtent          = 1e-6
	fallbackHalfExtent = 0.01
)

type FitOptions struct {
	// LowQuantile places the tail, HighQuantile the head. Both in [0, 1].
	LowQuantile  float64
	HighQuantile float64
}

func DefaultFitOptions() FitOptions {
	return FitOptions{
		LowQuantile:  DefaultLowQuantile,
		HighQuantile: DefaultHighQuantile,
	}
}

func (o FitOptions) Validate() error {
	for _, q := range []float64{o.LowQuantile, o.HighQuantile} {
		if m.IsNaN(q) || q < 0 || q > 1 {
			return fmt.Errorf("%w: quantile %g outside [0, 1]", core.ErrMalformedInput, q)
		}
	}
	if o.LowQuantile > o.HighQuantile {
		return fmt.Errorf("%w: low quantile %g above high quantile %g",
			core.ErrMalformedInput, o.LowQuantile, o.HighQuantile)
	}
	return nil
}

// Bone is one fitted head/tail segment. Head is never below Tail on the Z
// axis when the bone leaves FitBone; Connect may later move Head onto its
// parent's tail. Length is the fitted extent and is not updated by Connect.
type Bone struct {
	Name       string
	Head       math.Vec3
	Tail       math.Vec3
	Length     float64
	Axis       math.Vec3
	Shape      Shape
	Elongation Elongation
}

// FitBone places a bone along the principal axis of ps. The bone covers the
// weighted [LowQuantile, HighQuantile] range of the points projected on the
// axis. An empty point set returns a nil bone and no error.
func FitBone(ps PointSet, opts FitOptions) (*Bone, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ps.Validate(); err != nil {
		return nil, err
	}
	if ps.IsEmpty() {
		return nil, nil
	}

	c, err := Classify(ps)
	if err != nil {
		return nil, err
	}

	proj := make([]float64, ps.Len())
	for i, p := range ps.Positions {
		proj[i] = p.Sub(c.Center).Dot(c.Axis)
	}
	low := math.WeightedQuantile(proj, ps.Weights, opts.LowQuantile)
	high := math.WeightedQuantile(proj, ps.Weights, opts.HighQuantile)
	if high-low < minExtent {
		low, high = -fallbackHalfExtent, fallbackHalfExtent
	}

	head := c.Center.Add(c.Axis.MulScalar(high))
	tail := c.Center.Add(c.Axis.MulScalar(low))
	if head.Z < tail.Z {
		head, tail = tail, head
	}

	return &Bone{
		Name:       ps.Region,
		Head:       head,
		Tail:       tail,
		Length:     high - low,
		Axis:       c.Axis,
		Shape:      c.Shape,
		Elongation: c.Elongation,
	}, nil
}

// FitRegion extracts region from src and fits a bone to it. A nil bone
// means the region had no vertex above threshold.
func FitRegion(src Source, region string, frame math.Mat4, threshold float64, opts FitOptions) (*Bone, error) {
	ps, err := ExtractRegion(src, region, frame, threshold)
	if err != nil {
		return nil, err
	}
	return FitBone(ps, opts)
}
