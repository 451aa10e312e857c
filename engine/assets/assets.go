package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/autorig/engine/assets/loaders"
	"github.com/spaghettifunk/autorig/engine/config"
	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/mesh"
	"github.com/spaghettifunk/autorig/engine/resources"
)

const (
	MeshExtension     = ".mesh.toml"
	SkeletonExtension = ".skeleton.toml"
	ConfigExtension   = ".toml"
)

type AssetInfo struct {
	Path       string
	Type       resources.ResourceType
	LastLoaded time.Time
}

// AssetEvent reports a change to a tracked asset file.
type AssetEvent struct {
	Path    string
	Type    resources.ResourceType
	Removed bool
}

var ErrManagerClosed = errors.New("asset manager already closed")

type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[resources.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	events   chan AssetEvent
	errors   chan error
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[resources.ResourceType]Loader),
		fsnotify: fsWatch,
		events:   make(chan AssetEvent, 16),
		errors:   make(chan error, 4),
		done:     make(chan struct{}),
	}

	// Register loaders
	am.registerLoader(resources.ResourceTypeMesh, &loaders.MeshLoader{})
	am.registerLoader(resources.ResourceTypeSkeleton, &loaders.SkeletonLoader{})
	am.registerLoader(resources.ResourceTypeConfig, &loaders.ConfigLoader{})

	go am.start()

	return am, nil
}

// Events delivers changes to watched assets until Shutdown.
func (am *AssetManager) Events() <-chan AssetEvent {
	return am.events
}

func (am *AssetManager) Errors() <-chan error {
	return am.errors
}

// Watch starts watching path. A directory is watched with all of its
// sub-directories; a file is watched through its parent directory, since
// editors often replace files instead of writing them in place.
func (am *AssetManager) Watch(path string) error {
	am.mutex.RLock()
	closed := am.isClosed
	am.mutex.RUnlock()
	if closed {
		return ErrManagerClosed
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
	}
	if fi.IsDir() {
		return am.watchRecursive(abs, false)
	}
	if err := am.fsnotify.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	am.handleFileEvent(abs)
	return nil
}

// Unwatch stops watching path and everything below it.
func (am *AssetManager) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fi, err := os.Stat(abs)
	if err == nil && fi.IsDir() {
		return am.watchRecursive(abs, true)
	}
	am.removeAsset(abs)
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType resources.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads path with the loader registered for its extension.
func (am *AssetManager) LoadAsset(path string, params interface{}) (*resources.Resource, error) {
	assetType := determineAssetType(path)
	if assetType == resources.ResourceTypeNone {
		return nil, fmt.Errorf("%w: unknown asset type for %s", core.ErrAssetLoad, path)
	}

	am.mutex.RLock()
	loader, loaderExists := am.loaders[assetType]
	am.mutex.RUnlock()
	if !loaderExists {
		return nil, fmt.Errorf("%w: no loader registered for asset type: %s", core.ErrAssetLoad, assetType)
	}

	res, err := loader.Load(path, assetType, params)
	if err != nil {
		return nil, err
	}

	if abs, err := filepath.Abs(path); err == nil {
		am.mutex.Lock()
		am.assets[abs] = AssetInfo{Path: abs, Type: assetType, LastLoaded: time.Now()}
		am.mutex.Unlock()
	}
	core.LogDebug("loaded %s %q from %s (%d bytes)", assetType, res.Name, path, res.DataSize)
	return res, nil
}

func (am *AssetManager) UnloadAsset(res *resources.Resource) error {
	am.mutex.RLock()
	loader, ok := am.loaders[res.Type]
	am.mutex.RUnlock()
	if !ok {
		return nil
	}
	return loader.Unload(res)
}

func (am *AssetManager) LoadMesh(path string) (*mesh.Mesh, error) {
	res, err := am.LoadAsset(path, nil)
	if err != nil {
		return nil, err
	}
	m, ok := res.Data.(*mesh.Mesh)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s, not a mesh", core.ErrAssetLoad, path, res.Type)
	}
	return m, nil
}

func (am *AssetManager) LoadConfig(path string) (*config.Config, error) {
	res, err := am.LoadAsset(path, nil)
	if err != nil {
		return nil, err
	}
	cfg, ok := res.Data.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s, not a config", core.ErrInvalidConfig, path, res.Type)
	}
	return cfg, nil
}

// Asset returns what is known about a tracked asset.
func (am *AssetManager) Asset(path string) (AssetInfo, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return AssetInfo{}, false
	}
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[abs]
	return info, ok
}

// Shutdown stops the watcher and closes the event channels.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()
	close(am.done)
	return nil
}

func (am *AssetManager) start() {
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					_ = am.watchRecursive(e.Name, false)
				}
				continue
			}
			assetType := determineAssetType(e.Name)
			if assetType == resources.ResourceTypeNone {
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
				am.emit(AssetEvent{Path: e.Name, Type: assetType})
			}
			// A rename away from the watched name looks like a remove to us.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
				am.emit(AssetEvent{Path: e.Name, Type: assetType, Removed: true})
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())
			select {
			case am.errors <- err:
			default:
			}

		case <-am.done:
			am.fsnotify.Close()
			close(am.events)
			close(am.errors)
			return
		}
	}
}

// emit drops the event when nobody keeps up with the channel; a later
// write to the same file produces a fresh one.
func (am *AssetManager) emit(e AssetEvent) {
	select {
	case am.events <- e:
	case <-am.done:
	default:
		core.LogDebug("asset event for %s dropped", e.Path)
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				if err = am.fsnotify.Remove(walkPath); err != nil {
					return err
				}
			} else {
				if err = am.fsnotify.Add(walkPath); err != nil {
					return err
				}
			}
		} else if unWatch {
			am.removeAsset(walkPath)
		} else {
			am.handleFileEvent(walkPath)
		}
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == resources.ResourceTypeNone {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[path]
	info.Path = path
	info.Type = assetType
	am.assets[path] = info
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) resources.ResourceType {
	switch {
	case strings.HasSuffix(path, MeshExtension):
		return resources.ResourceTypeMesh
	case strings.HasSuffix(path, SkeletonExtension):
		return resources.ResourceTypeSkeleton
	case strings.HasSuffix(path, ConfigExtension):
		return resources.ResourceTypeConfig
	default:
		return resources.ResourceTypeNone
	}
}
