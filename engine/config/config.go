package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
	"github.com/spaghettifunk/autorig/engine/rig"
)

// Ranges accepted for the tunable rig parameters. Loaded values outside them
// are clamped with a warning.
const (
	MinConnectFactor   = 0.0
	MaxConnectFactor   = 2.0
	MinWeightThreshold = 0.0
	MaxWeightThreshold = 1.0
	MinLowQuantile     = 0.0
	MaxLowQuantile     = 0.49
	MinHighQuantile    = 0.51
	MaxHighQuantile    = 1.0
)

type Config struct {
	Rig      RigConfig      `toml:"rig"`
	Armature ArmatureConfig `toml:"armature"`
	Log      LogConfig      `toml:"log"`
}

type RigConfig struct {
	WeightThreshold float64 `toml:"weight_threshold"`
	LowQuantile     float64 `toml:"low_quantile"`
	HighQuantile    float64 `toml:"high_quantile"`
	ConnectFactor   float64 `toml:"connect_factor"`
	Workers         int     `toml:"workers"`
}

/**
 * @brief The armature the bones are expressed in. Rotation is a quaternion
 * (x, y, z, w); RotationEuler, in degrees applied X then Y then Z, is used
 * instead when set.
 */
type ArmatureConfig struct {
	Position      []float64 `toml:"position"`
	Rotation      []float64 `toml:"rotation"`
	RotationEuler []float64 `toml:"rotation_euler,omitempty"`
	Scale         []float64 `toml:"scale"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func Default() *Config {
	return &Config{
		Rig: RigConfig{
			WeightThreshold: rig.DefaultWeightThreshold,
			LowQuantile:     rig.DefaultLowQuantile,
			HighQuantile:    rig.DefaultHighQuantile,
			ConnectFactor:   0,
			Workers:         1,
		},
		Armature: ArmatureConfig{
			Position: []float64{0, 0, 0},
			Rotation: []float64{0, 0, 0, 1},
			Scale:    []float64{1, 1, 1},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults, rejecting unknown keys, then clamps
// and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", core.ErrInvalidConfig, strict.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %s", core.ErrInvalidConfig, row, col, derr.Error())
		}
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize clamps every rig parameter into its accepted range.
func (c *Config) Normalize() {
	c.Rig.ConnectFactor = clampWarn("connect_factor", c.Rig.ConnectFactor, MinConnectFactor, MaxConnectFactor)
	c.Rig.WeightThreshold = clampWarn("weight_threshold", c.Rig.WeightThreshold, MinWeightThreshold, MaxWeightThreshold)
	c.Rig.LowQuantile = clampWarn("low_quantile", c.Rig.LowQuantile, MinLowQuantile, MaxLowQuantile)
	c.Rig.HighQuantile = clampWarn("high_quantile", c.Rig.HighQuantile, MinHighQuantile, MaxHighQuantile)
	if c.Rig.Workers < 1 {
		c.Rig.Workers = 1
	}
}

func clampWarn(key string, v, low, high float64) float64 {
	clamped := math.Clamp(v, low, high)
	if clamped != v {
		core.LogWarn("config: %s %g outside [%g, %g], using %g", key, v, low, high, clamped)
	}
	return clamped
}

func (c *Config) Validate() error {
	a := c.Armature
	if len(a.Position) != 3 {
		return fmt.Errorf("%w: armature.position needs 3 values, got %d", core.ErrInvalidConfig, len(a.Position))
	}
	if len(a.Scale) != 3 {
		return fmt.Errorf("%w: armature.scale needs 3 values, got %d", core.ErrInvalidConfig, len(a.Scale))
	}
	if a.RotationEuler == nil && len(a.Rotation) != 4 {
		return fmt.Errorf("%w: armature.rotation needs 4 values, got %d", core.ErrInvalidConfig, len(a.Rotation))
	}
	if a.RotationEuler != nil && len(a.RotationEuler) != 3 {
		return fmt.Errorf("%w: armature.rotation_euler needs 3 values, got %d", core.ErrInvalidConfig, len(a.RotationEuler))
	}
	for _, s := range a.Scale {
		if s == 0 {
			return fmt.Errorf("%w: armature.scale has a zero component", core.ErrInvalidConfig)
		}
	}
	if a.RotationEuler == nil {
		q := math.Quaternion{X: a.Rotation[0], Y: a.Rotation[1], Z: a.Rotation[2], W: a.Rotation[3]}
		if q.Normal() == 0 {
			return fmt.Errorf("%w: armature.rotation is a zero quaternion", core.ErrInvalidConfig)
		}
	}
	return nil
}

// ArmatureTransform builds the armature transform. Call Validate first.
func (c *Config) ArmatureTransform() *math.Transform {
	a := c.Armature
	position := math.NewVec3(a.Position[0], a.Position[1], a.Position[2])
	scale := math.NewVec3(a.Scale[0], a.Scale[1], a.Scale[2])

	var rotation math.Quaternion
	if a.RotationEuler != nil {
		rotation = math.NewQuatFromEulerXYZ(
			math.DegToRad(a.RotationEuler[0]),
			math.DegToRad(a.RotationEuler[1]),
			math.DegToRad(a.RotationEuler[2]))
	} else {
		rotation = math.Quaternion{X: a.Rotation[0], Y: a.Rotation[1], Z: a.Rotation[2], W: a.Rotation[3]}.Normalize()
	}
	return math.TransformFromPositionRotationScale(position, rotation, scale)
}

// Frame is the armature world matrix handed to rig.BuildSkeleton.
func (c *Config) Frame() math.Mat4 {
	return c.ArmatureTransform().GetWorld()
}

func (c *Config) BuildOptions() rig.BuildOptions {
	opts := rig.DefaultBuildOptions()
	opts.WeightThreshold = c.Rig.WeightThreshold
	opts.Fit.LowQuantile = c.Rig.LowQuantile
	opts.Fit.HighQuantile = c.Rig.HighQuantile
	opts.ConnectFactor = c.Rig.ConnectFactor
	opts.Workers = c.Rig.Workers
	return opts
}

// Marshal encodes c as TOML, the same layout Load reads.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
