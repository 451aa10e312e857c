package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/resources"
)

const tinyMesh = `
name = "Tiny"
vertices = [[0.0, 0.0, 0.0], [0.0, 0.0, 1.0]]

[[groups]]
name = "spine"
indices = [0, 1]
weights = [1.0, 1.0]
`

func newManager(t *testing.T) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	t.Cleanup(func() { _ = am.Shutdown() })
	return am
}

func TestDetermineAssetType(t *testing.T) {
	tests := []struct {
		path string
		want resources.ResourceType
	}{
		{"body.mesh.toml", resources.ResourceTypeMesh},
		{"out/body.skeleton.toml", resources.ResourceTypeSkeleton},
		{"autorig.toml", resources.ResourceTypeConfig},
		{"body.obj", resources.ResourceTypeNone},
	}
	for _, tt := range tests {
		if got := determineAssetType(tt.path); got != tt.want {
			t.Errorf("determineAssetType(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestLoadAsset(t *testing.T) {
	am := newManager(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.mesh.toml")
	if err := os.WriteFile(path, []byte(tinyMesh), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := am.LoadMesh(path)
	if err != nil {
		t.Fatalf("LoadMesh: %v", err)
	}
	if m.Name() != "Tiny" || m.VertexCount() != 2 {
		t.Errorf("mesh = %s with %d vertices", m.Name(), m.VertexCount())
	}
	info, ok := am.Asset(path)
	if !ok || info.Type != resources.ResourceTypeMesh || info.LastLoaded.IsZero() {
		t.Errorf("asset info = %+v, %v", info, ok)
	}

	if _, err := am.LoadAsset(filepath.Join(dir, "tiny.obj"), nil); !errors.Is(err, core.ErrAssetLoad) {
		t.Errorf("unknown extension error = %v", err)
	}
	if _, err := am.LoadMesh(filepath.Join(dir, "missing.mesh.toml")); !errors.Is(err, core.ErrAssetLoad) {
		t.Errorf("missing file error = %v", err)
	}

	cfgPath := filepath.Join(dir, "autorig.toml")
	if err := os.WriteFile(cfgPath, []byte("[rig]\nworkers = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := am.LoadMesh(cfgPath); !errors.Is(err, core.ErrAssetLoad) {
		t.Errorf("config loaded as mesh: %v", err)
	}
	cfg, err := am.LoadConfig(cfgPath)
	if err != nil || cfg.Rig.Workers != 2 {
		t.Errorf("LoadConfig = %+v, %v", cfg, err)
	}
}

func TestWatchReportsWrites(t *testing.T) {
	am := newManager(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.mesh.toml")
	if err := os.WriteFile(path, []byte(tinyMesh), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := am.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if _, ok := am.Asset(path); !ok {
		t.Errorf("watched file not tracked")
	}

	if err := os.WriteFile(path, []byte(tinyMesh+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	abs, _ := filepath.Abs(path)
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-am.Events():
			if e.Path == abs && !e.Removed {
				if e.Type != resources.ResourceTypeMesh {
					t.Errorf("event type = %s", e.Type)
				}
				return
			}
		case <-timeout:
			t.Fatalf("no event for %s", abs)
		}
	}
}

func TestWatchAfterShutdown(t *testing.T) {
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := am.Shutdown(); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
	if err := am.Watch(t.TempDir()); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("Watch after shutdown error = %v", err)
	}
}

func TestUnwatchForgetsAssets(t *testing.T) {
	am := newManager(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "rigs")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	top := filepath.Join(dir, "tiny.mesh.toml")
	nested := filepath.Join(sub, "arm.mesh.toml")
	for _, p := range []string{top, nested} {
		if err := os.WriteFile(p, []byte(tinyMesh), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := am.Watch(dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	for _, p := range []string{top, nested} {
		if _, ok := am.Asset(p); !ok {
			t.Errorf("%s not tracked after Watch", filepath.Base(p))
		}
	}

	if err := am.Unwatch(nested); err != nil {
		t.Fatalf("Unwatch file: %v", err)
	}
	if _, ok := am.Asset(nested); ok {
		t.Errorf("unwatched file still tracked")
	}
	if _, ok := am.Asset(top); !ok {
		t.Errorf("sibling dropped with the unwatched file")
	}

	if err := am.Unwatch(dir); err != nil {
		t.Fatalf("Unwatch dir: %v", err)
	}
	if _, ok := am.Asset(top); ok {
		t.Errorf("file still tracked after its directory was unwatched")
	}
}

func TestUnloadAsset(t *testing.T) {
	am := newManager(t)
	path := filepath.Join(t.TempDir(), "tiny.mesh.toml")
	if err := os.WriteFile(path, []byte(tinyMesh), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := am.LoadAsset(path, nil)
	if err != nil {
		t.Fatalf("LoadAsset: %v", err)
	}
	if res.Data == nil {
		t.Fatal("loaded resource has no data")
	}
	if err := am.UnloadAsset(res); err != nil {
		t.Fatalf("UnloadAsset: %v", err)
	}
	if res.Data != nil {
		t.Errorf("data kept after unload: %T", res.Data)
	}
	if err := am.UnloadAsset(&resources.Resource{Type: resources.ResourceTypeNone}); err != nil {
		t.Errorf("unload of an untyped resource: %v", err)
	}
}
