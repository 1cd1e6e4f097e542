package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	svchost "github.com/bft-labs/svchost"
	"github.com/bft-labs/svchost/pkg/lifecycle"
)

type fakeController struct {
	mu       sync.Mutex
	state    lifecycle.State
	restarts int
	stops    int
}

func (c *fakeController) Name() string { return "billing" }

func (c *fakeController) State() lifecycle.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeController) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restarts++
}

func (c *fakeController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *fakeController) restartCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restarts
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startPlugin(t *testing.T, cfg Config, ctrl *fakeController) *Plugin {
	t.Helper()
	p := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		if err := p.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	})
	if err := p.Initialize(ctx, svchost.PluginConfig{ServiceName: "billing", Controller: ctrl}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return p
}

func TestPlugin_RestartsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing.toml")
	writeFile(t, path, "port = 1")

	ctrl := &fakeController{state: lifecycle.Running}
	p := startPlugin(t, Config{Paths: []string{path}, DebounceDelay: 50 * time.Millisecond}, ctrl)

	// Several quick writes collapse into one restart.
	for i := 0; i < 3; i++ {
		writeFile(t, path, "port = 2")
		time.Sleep(5 * time.Millisecond)
	}

	waitFor(t, "restart", func() bool { return ctrl.restartCount() == 1 })
	time.Sleep(150 * time.Millisecond)

	if got := ctrl.restartCount(); got != 1 {
		t.Errorf("restarts = %d, want 1", got)
	}
	if p.Restarts() != 1 {
		t.Errorf("Restarts() = %d, want 1", p.Restarts())
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing.toml")
	writeFile(t, path, "port = 1")

	ctrl := &fakeController{state: lifecycle.Running}
	startPlugin(t, Config{Paths: []string{path}, DebounceDelay: 20 * time.Millisecond}, ctrl)

	writeFile(t, filepath.Join(dir, "other.toml"), "x = 1")
	time.Sleep(200 * time.Millisecond)

	if got := ctrl.restartCount(); got != 0 {
		t.Errorf("restarts = %d, want 0", got)
	}
}

func TestPlugin_SkipsWhenNotRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing.toml")
	writeFile(t, path, "port = 1")

	ctrl := &fakeController{state: lifecycle.Paused}
	p := startPlugin(t, Config{Paths: []string{path}, DebounceDelay: 20 * time.Millisecond}, ctrl)

	writeFile(t, path, "port = 2")
	time.Sleep(200 * time.Millisecond)

	if got := ctrl.restartCount(); got != 0 {
		t.Errorf("restarts = %d, want 0", got)
	}
	if p.Restarts() != 0 {
		t.Errorf("Restarts() = %d, want 0", p.Restarts())
	}
}

func TestPlugin_NoPaths(t *testing.T) {
	p := New(DefaultConfig())
	if err := p.Initialize(context.Background(), svchost.PluginConfig{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	if p.Name() != "configwatcher" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestPlugin_MissingDirectory(t *testing.T) {
	p := New(Config{Paths: []string{filepath.Join(t.TempDir(), "missing", "a.toml")}})
	err := p.Initialize(context.Background(), svchost.PluginConfig{Controller: &fakeController{}})
	if err == nil {
		t.Fatal("Initialize() expected error for missing directory")
	}
}
