package loaders

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
	"github.com/spaghettifunk/autorig/engine/mesh"
	"github.com/spaghettifunk/autorig/engine/resources"
)

type MeshLoader struct{}

// Load reads a mesh file. The resource Data is a *mesh.Mesh.
func (ml *MeshLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
	}
	m, err := DecodeMesh(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &resources.Resource{
		Type:     resources.ResourceTypeMesh,
		Name:     m.Name(),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     m,
	}, nil
}

func (ml *MeshLoader) Unload(res *resources.Resource) error {
	res.Data = nil
	return nil
}

func DecodeMesh(r io.Reader) (*mesh.Mesh, error) {
	var mf resources.MeshFile
	if err := toml.NewDecoder(r).Decode(&mf); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
	}
	if mf.Version > resources.FormatVersion {
		return nil, fmt.Errorf("%w: mesh format version %d is newer than %d", core.ErrAssetLoad, mf.Version, resources.FormatVersion)
	}
	if mf.Name == "" {
		return nil, fmt.Errorf("%w: mesh has no name", core.ErrAssetLoad)
	}

	vertices := make([]math.Vec3, len(mf.Vertices))
	for i, v := range mf.Vertices {
		if len(v) != 3 {
			return nil, fmt.Errorf("%w: vertex %d has %d components", core.ErrAssetLoad, i, len(v))
		}
		vertices[i] = math.NewVec3(v[0], v[1], v[2])
	}

	m := mesh.New(mf.Name, vertices)
	if mf.Transform != nil {
		t, err := decodeTransform(mf.Transform)
		if err != nil {
			return nil, err
		}
		m.SetTransform(t)
	}
	if len(mf.Faces) > 0 {
		if err := m.SetFaces(mf.Faces); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
		}
	}
	for _, g := range mf.Groups {
		if err := m.AddGroup(g.Name, g.Indices, g.Weights); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
		}
	}
	return m, nil
}

func decodeTransform(tf *resources.TransformFile) (*math.Transform, error) {
	position, rotation, scale := math.NewVec3Zero(), math.NewQuatIdentity(), math.NewVec3One()
	if tf.Position != nil {
		if len(tf.Position) != 3 {
			return nil, fmt.Errorf("%w: transform position needs 3 values", core.ErrAssetLoad)
		}
		position = math.NewVec3(tf.Position[0], tf.Position[1], tf.Position[2])
	}
	if tf.Rotation != nil {
		if len(tf.Rotation) != 4 {
			return nil, fmt.Errorf("%w: transform rotation needs 4 values", core.ErrAssetLoad)
		}
		rotation = math.Quaternion{X: tf.Rotation[0], Y: tf.Rotation[1], Z: tf.Rotation[2], W: tf.Rotation[3]}
		if rotation.Normal() == 0 {
			return nil, fmt.Errorf("%w: transform rotation is a zero quaternion", core.ErrAssetLoad)
		}
		rotation = rotation.Normalize()
	}
	if tf.Scale != nil {
		if len(tf.Scale) != 3 {
			return nil, fmt.Errorf("%w: transform scale needs 3 values", core.ErrAssetLoad)
		}
		scale = math.NewVec3(tf.Scale[0], tf.Scale[1], tf.Scale[2])
	}
	return math.TransformFromPositionRotationScale(position, rotation, scale), nil
}

func EncodeMesh(w io.Writer, m *mesh.Mesh) error {
	mf := resources.MeshFile{
		Version:  resources.FormatVersion,
		Name:     m.Name(),
		Vertices: make([][]float64, m.VertexCount()),
		Faces:    m.Faces(),
	}
	for i, v := range m.Vertices() {
		mf.Vertices[i] = []float64{v.X, v.Y, v.Z}
	}
	if t := m.Transform(); t != nil {
		mf.Transform = &resources.TransformFile{
			Position: []float64{t.Position.X, t.Position.Y, t.Position.Z},
			Rotation: []float64{t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W},
			Scale:    []float64{t.Scale.X, t.Scale.Y, t.Scale.Z},
		}
	}
	for _, g := range m.Groups() {
		mf.Groups = append(mf.Groups, resources.GroupFile{Name: g.Name, Indices: g.Indices, Weights: g.Weights})
	}

	enc := toml.NewEncoder(w)
	enc.SetArraysMultiline(false)
	return enc.Encode(mf)
}

// SaveMesh writes m to path through a temporary file in the same directory.
func SaveMesh(path string, m *mesh.Mesh) error {
	return writeAtomic(path, func(w io.Writer) error { return EncodeMesh(w, m) })
}

func writeAtomic(path string, encode func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
