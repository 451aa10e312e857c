package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spaghettifunk/autorig/engine/assets"
	"github.com/spaghettifunk/autorig/engine/config"
	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/mesh"
	"github.com/spaghettifunk/autorig/engine/resources"
	"github.com/spaghettifunk/autorig/engine/rig"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently watching its inputs
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// DefaultDebounce is how long Run waits after the last change to an input
// before rebuilding.
const DefaultDebounce = 150 * time.Millisecond

// Engine ties the configuration, the asset manager and the rig builder
// together for one command invocation.
type Engine struct {
	currentStage Stage
	config       *config.Config
	configPath   string
	assetManager *assets.AssetManager
	metrics      *core.FitMetrics
	clock        *core.Clock
	debounce     time.Duration
}

// New creates an engine. A nil cfg loads configPath, or the defaults when
// configPath is empty.
func New(cfg *config.Config, configPath string) (*Engine, error) {
	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	if cfg == nil {
		if configPath == "" {
			cfg = config.Default()
		} else if cfg, err = am.LoadConfig(configPath); err != nil {
			_ = am.Shutdown()
			return nil, err
		}
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		configPath:   configPath,
		assetManager: am,
		metrics:      core.NewFitMetrics(),
		clock:        core.NewClock(),
		debounce:     DefaultDebounce,
	}, nil
}

func (e *Engine) Initialize() error {
	if err := core.SetLogLevel(e.config.Log.Level); err != nil {
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Stage() Stage { return e.currentStage }

func (e *Engine) Config() *config.Config { return e.config }

func (e *Engine) Metrics() *core.FitMetrics { return e.metrics }

func (e *Engine) Assets() *assets.AssetManager { return e.assetManager }

func (e *Engine) LoadMesh(path string) (*mesh.Mesh, error) {
	return e.assetManager.LoadMesh(path)
}

// FitBone fits a single region of m in the configured armature frame. A
// nil bone means no vertex of the region is above the weight threshold.
func (e *Engine) FitBone(m *mesh.Mesh, region string) (*rig.Bone, error) {
	opts := e.config.BuildOptions()
	b, err := rig.FitRegion(m, region, e.config.Frame(), opts.WeightThreshold, opts.Fit)
	if err != nil {
		return nil, err
	}
	if b == nil {
		core.LogWarn("%s: region %q has no vertex above %g", m.Name(), region, opts.WeightThreshold)
	}
	return b, nil
}

// BuildSkeleton fits regions of m (all of them when nil) and connects the
// bones as configured.
func (e *Engine) BuildSkeleton(m *mesh.Mesh, regions []string) (*rig.Skeleton, error) {
	opts := e.config.BuildOptions()
	opts.Metrics = e.metrics

	e.clock.Start()
	s, err := rig.BuildSkeleton(m, regions, e.config.Frame(), opts)
	e.clock.Stop()
	if err != nil {
		return nil, err
	}

	for _, r := range s.Skipped {
		core.LogWarn("%s: region %q skipped, no vertex above %g", m.Name(), r, opts.WeightThreshold)
	}
	core.LogInfo("%s: %d of %d bones in %s", s.Name, s.Produced(), s.Requested, e.clock.Elapsed())
	return s, nil
}

// Run builds the skeleton of the mesh at meshPath, hands it to onSkeleton,
// and repeats every time the mesh or the config file changes, until ctx is
// done. Build errors after the first build are logged and the previous
// result stays in place.
func (e *Engine) Run(ctx context.Context, meshPath string, regions []string, onSkeleton func(*rig.Skeleton) error) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine not initialized")
	}

	build := func() error {
		res, err := e.assetManager.LoadAsset(meshPath, nil)
		if err != nil {
			return err
		}
		defer func() { _ = e.assetManager.UnloadAsset(res) }()
		m, ok := res.Data.(*mesh.Mesh)
		if !ok {
			return fmt.Errorf("%w: %s is a %s, not a mesh", core.ErrAssetLoad, meshPath, res.Type)
		}
		s, err := e.BuildSkeleton(m, regions)
		if err != nil {
			return err
		}
		return onSkeleton(s)
	}
	if err := build(); err != nil {
		return err
	}

	watched := map[string]bool{}
	defer func() {
		for p := range watched {
			if err := e.assetManager.Unwatch(p); err != nil {
				core.LogWarn("unwatch %s: %s", p, err)
			}
		}
	}()
	for _, p := range []string{meshPath, e.configPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if err := e.assetManager.Watch(abs); err != nil {
			return err
		}
		watched[abs] = true
	}

	e.currentStage = EngineStageRunning
	defer func() {
		if e.currentStage == EngineStageRunning {
			e.currentStage = EngineStageInitialized
		}
	}()
	core.LogInfo("watching %s for changes", meshPath)

	var pending <-chan time.Time
	reloadConfig := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-e.assetManager.Events():
			if !ok {
				return nil
			}
			if !watched[ev.Path] || ev.Removed {
				continue
			}
			if ev.Type == resources.ResourceTypeConfig {
				reloadConfig = true
			}
			pending = time.After(e.debounce)

		case <-pending:
			pending = nil
			if reloadConfig {
				reloadConfig = false
				cfg, err := e.assetManager.LoadConfig(e.configPath)
				if err != nil {
					core.LogError("config reload failed, keeping the previous one: %s", err)
				} else {
					e.config = cfg
					if err := core.SetLogLevel(cfg.Log.Level); err != nil {
						core.LogWarn(err.Error())
					}
				}
			}
			if err := build(); err != nil {
				core.LogError("rebuild failed: %s", err)
			}
		}
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	return e.assetManager.Shutdown()
}
