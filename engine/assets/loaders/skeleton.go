package loaders

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
	"github.com/spaghettifunk/autorig/engine/resources"
	"github.com/spaghettifunk/autorig/engine/rig"
)

type SkeletonLoader struct{}

// Load reads a skeleton file. The resource Data is a *resources.SkeletonFile.
func (sl *SkeletonLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
	}
	sf, err := DecodeSkeleton(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &resources.Resource{
		Type:     resources.ResourceTypeSkeleton,
		Name:     sf.Name,
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     sf,
	}, nil
}

func (sl *SkeletonLoader) Unload(res *resources.Resource) error {
	res.Data = nil
	return nil
}

func DecodeSkeleton(r io.Reader) (*resources.SkeletonFile, error) {
	var sf resources.SkeletonFile
	if err := toml.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
	}
	if sf.Version > resources.FormatVersion {
		return nil, fmt.Errorf("%w: skeleton format version %d is newer than %d", core.ErrAssetLoad, sf.Version, resources.FormatVersion)
	}
	names := make(map[string]bool, len(sf.Bones))
	for _, b := range sf.Bones {
		if len(b.Head) != 3 || len(b.Tail) != 3 {
			return nil, fmt.Errorf("%w: bone %q needs 3 values for head and tail", core.ErrAssetLoad, b.Name)
		}
		names[b.Name] = true
	}
	for _, b := range sf.Bones {
		if b.Parent != "" && !names[b.Parent] {
			return nil, fmt.Errorf("%w: bone %q has unknown parent %q", core.ErrAssetLoad, b.Name, b.Parent)
		}
	}
	return &sf, nil
}

// SkeletonToFile lays s out for writing. Every parented bone was snapped
// onto its parent's tail, so it is marked connected.
func SkeletonToFile(s *rig.Skeleton) resources.SkeletonFile {
	sf := resources.SkeletonFile{
		Version:   resources.FormatVersion,
		ID:        s.ID.String(),
		Name:      s.Name,
		Requested: s.Requested,
		Produced:  s.Produced(),
		Skipped:   s.Skipped,
		Bones:     make([]resources.BoneFile, 0, len(s.Bones)),
	}
	for _, b := range s.Bones {
		parent, _ := s.Parent(b.Name)
		sf.Bones = append(sf.Bones, resources.BoneFile{
			Name:       b.Name,
			Head:       vec3Slice(b.Head),
			Tail:       vec3Slice(b.Tail),
			Length:     b.Length,
			Shape:      b.Shape.String(),
			Elongation: b.Elongation.String(),
			Parent:     parent,
			Connected:  parent != "",
		})
	}
	return sf
}

func EncodeSkeleton(w io.Writer, s *rig.Skeleton) error {
	enc := toml.NewEncoder(w)
	enc.SetArraysMultiline(false)
	return enc.Encode(SkeletonToFile(s))
}

func SaveSkeleton(path string, s *rig.Skeleton) error {
	return writeAtomic(path, func(w io.Writer) error { return EncodeSkeleton(w, s) })
}

func vec3Slice(v math.Vec3) []float64 {
	return []float64{v.X, v.Y, v.Z}
}
