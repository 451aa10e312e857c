package rig

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
)

type BuildOptions struct {
	Fit             FitOptions
	WeightThreshold float64
	// ConnectFactor scales the mean bone length into the largest head to
	// tail gap that still gets connected. 0 disables connecting.
	ConnectFactor float64
	// Workers fits that many regions concurrently. Values below 2 fit
	// sequentially on the calling goroutine.
	Workers int
	// Metrics collects fit timings when set.
	Metrics *core.FitMetrics
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Fit:             DefaultFitOptions(),
		WeightThreshold: DefaultWeightThreshold,
		ConnectFactor:   0,
		Workers:         1,
	}
}

// Skeleton is the result of one build: bones in region order and the
// child -> parent map produced by Connect.
type Skeleton struct {
	ID      uuid.UUID
	Name    string
	Bones   []Bone
	Parents map[string]string
	// Requested is the number of regions asked for. Skipped lists the ones
	// that had no vertex above the weight threshold.
	Requested int
	Skipped   []string
}

func (s *Skeleton) Produced() int {
	return len(s.Bones)
}

func (s *Skeleton) Bone(name string) (Bone, bool) {
	for _, b := range s.Bones {
		if b.Name == name {
			return b, true
		}
	}
	return Bone{}, false
}

func (s *Skeleton) Parent(name string) (string, bool) {
	p, ok := s.Parents[name]
	return p, ok
}

// Roots returns the unparented bones in bone order.
func (s *Skeleton) Roots() []string {
	var roots []string
	for _, b := range s.Bones {
		if _, ok := s.Parents[b.Name]; !ok {
			roots = append(roots, b.Name)
		}
	}
	return roots
}

// BuildSkeleton fits one bone per region and connects them. A nil regions
// slice builds every region of src. Regions without any vertex above the
// weight threshold are skipped and reported in Skeleton.Skipped.
func BuildSkeleton(src Source, regions []string, frame math.Mat4, opts BuildOptions) (*Skeleton, error) {
	if err := opts.Fit.Validate(); err != nil {
		return nil, err
	}
	if opts.ConnectFactor < 0 {
		opts.ConnectFactor = 0
	}
	if regions == nil {
		regions = src.Regions()
	}
	seen := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		if _, dup := seen[r]; dup {
			return nil, fmt.Errorf("%w: %w: %q", core.ErrMalformedInput, core.ErrDuplicateRegion, r)
		}
		seen[r] = struct{}{}
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = core.NewFitMetrics()
	}

	fitted, err := fitRegions(src, regions, frame, opts, metrics)
	if err != nil {
		return nil, err
	}

	skeleton := &Skeleton{
		ID:        uuid.New(),
		Name:      src.Name() + "_AutoRig",
		Requested: len(regions),
	}
	for i, b := range fitted {
		if b == nil {
			skeleton.Skipped = append(skeleton.Skipped, regions[i])
			continue
		}
		skeleton.Bones = append(skeleton.Bones, *b)
	}

	parents, err := Connect(skeleton.Bones, opts.ConnectFactor)
	if err != nil {
		return nil, err
	}
	skeleton.Parents = parents

	core.LogDebug("skeleton %s: %d/%d bones, %d connected, avg fit %.3f ms",
		skeleton.Name, skeleton.Produced(), skeleton.Requested, len(parents), metrics.AverageFitMS())
	return skeleton, nil
}

// fitRegions returns one entry per region, nil for skipped ones. The first
// error in region order wins so failures are reported deterministically.
func fitRegions(src Source, regions []string, frame math.Mat4, opts BuildOptions, metrics *core.FitMetrics) ([]*Bone, error) {
	bones := make([]*Bone, len(regions))
	errs := make([]error, len(regions))

	fit := func(i int) error {
		clock := core.NewClock()
		clock.Start()
		b, err := FitRegion(src, regions[i], frame, opts.WeightThreshold, opts.Fit)
		clock.Stop()
		if err != nil {
			return err
		}
		bones[i] = b
		metrics.Record(clock.Elapsed(), b != nil)
		return nil
	}

	if opts.Workers < 2 || len(regions) < 2 {
		for i := range regions {
			if err := fit(i); err != nil {
				return nil, err
			}
		}
		return bones, nil
	}

	js, err := NewJobSystem(opts.Workers, len(regions))
	if err != nil {
		return nil, err
	}
	for i := range regions {
		i := i
		js.Submit(JobTask{
			Name:      regions[i],
			OnStart:   func() error { return fit(i) },
			OnFailure: func(err error) { errs[i] = err },
		})
	}
	if err := js.Shutdown(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return bones, nil
}

// Connect parents bones in a single greedy pass, in slice order. Each
// unparented bone takes the other bone whose tail is nearest its head,
// provided the gap is below mean(Length) × factor; ties go to the bone met
// first. The child's Head is moved onto the parent's Tail in place.
//
// A bone that was parented can still become a parent later in the pass.
// When the nearest bone would close a loop the child stays a root with its
// Head untouched; the next-nearest bone is not tried. factor <= 0 disables
// connecting.
func Connect(bones []Bone, factor float64) (map[string]string, error) {
	parents := make(map[string]string)
	if factor <= 0 || len(bones) == 0 {
		return parents, nil
	}

	total := 0.0
	for _, b := range bones {
		total += b.Length
	}
	threshold := total / float64(len(bones)) * factor

	for i := range bones {
		child := &bones[i]
		if _, ok := parents[child.Name]; ok {
			continue
		}

		best := -1
		bestDist := math.K_INFINITY
		for j := range bones {
			other := bones[j]
			if j == i || other.Name == child.Name {
				continue
			}
			d := child.Head.Distance(other.Tail)
			if d < threshold && d < bestDist {
				best, bestDist = j, d
			}
		}

		if best < 0 {
			continue
		}
		parent := bones[best]
		if reaches(parents, parent.Name, child.Name) {
			core.LogDebug("connect: %s -> %s would close a loop, left unparented", child.Name, parent.Name)
			continue
		}
		parents[child.Name] = parent.Name
		child.Head = parent.Tail
	}

	if err := validateForest(parents); err != nil {
		return nil, err
	}
	return parents, nil
}

// reaches reports whether walking up from start arrives at target.
func reaches(parents map[string]string, start, target string) bool {
	for cur, steps := start, 0; steps <= len(parents); steps++ {
		if cur == target {
			return true
		}
		next, ok := parents[cur]
		if !ok {
			return false
		}
		cur = next
	}
	return true
}

func validateForest(parents map[string]string) error {
	for child, parent := range parents {
		if child == parent || reaches(parents, parent, child) {
			return fmt.Errorf("%w: %q", core.ErrCyclicHierarchy, child)
		}
	}
	return nil
}
