// Package configwatcher restarts the hosted service when one of its
// configuration files changes. Changes are debounced so an editor that
// writes a file in several steps causes a single restart.
package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	svchost "github.com/bft-labs/svchost"
	"github.com/bft-labs/svchost/pkg/lifecycle"
	"github.com/bft-labs/svchost/pkg/log"
)

// DefaultDebounceDelay is used when Config.DebounceDelay is not positive.
const DefaultDebounceDelay = 500 * time.Millisecond

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Paths are the files to watch. Their parent directories are watched so
	// files replaced by rename are still seen.
	Paths []string

	// DebounceDelay is the quiet period after the last change before the
	// service is restarted.
	// Default: 500 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults and no paths.
func DefaultConfig() Config {
	return Config{DebounceDelay: DefaultDebounceDelay}
}

// Plugin watches configuration files and restarts the service on change.
type Plugin struct {
	mu sync.Mutex

	debounceDelay time.Duration
	files         map[string]bool
	dirs          []string

	controller svchost.Controller
	logger     log.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	debounce   *time.Timer
	restarts   int
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}

	p := &Plugin{
		debounceDelay: cfg.DebounceDelay,
		files:         make(map[string]bool, len(cfg.Paths)),
		logger:        log.NewNoopLogger(),
	}
	seen := map[string]bool{}
	for _, path := range cfg.Paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = filepath.Clean(path)
		}
		p.files[abs] = true
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			p.dirs = append(p.dirs, dir)
		}
	}
	return p
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching. With no paths configured the plugin stays idle.
func (p *Plugin) Initialize(ctx context.Context, cfg svchost.PluginConfig) error {
	p.mu.Lock()
	p.controller = cfg.Controller
	if cfg.Logger != nil {
		p.logger = cfg.Logger
	}
	p.mu.Unlock()

	if len(p.files) == 0 {
		p.logger.Warn("config watcher disabled: no paths configured")
		return nil
	}
	if p.controller == nil {
		return fmt.Errorf("configwatcher: controller is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("configwatcher: create watcher: %w", err)
	}
	for _, dir := range p.dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("configwatcher: watch %s: %w", dir, err)
		}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", log.Int("files", len(p.files)))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher and any pending restart.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Restarts reports how many restarts the plugin has requested.
func (p *Plugin) Restarts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restarts
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !p.files[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			p.logger.Debug("config file changed",
				log.String("file", event.Name),
				log.String("op", event.Op.String()),
			)
			p.debounceRestart(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceRestart(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.restart()
	})
}

func (p *Plugin) restart() {
	if st := p.controller.State(); st != lifecycle.Running {
		p.logger.Info("config changed, restart skipped",
			log.String("service", p.controller.Name()),
			log.Stringer("state", st),
		)
		return
	}

	p.mu.Lock()
	p.restarts++
	p.mu.Unlock()

	p.logger.Info("config changed, restarting service", log.String("service", p.controller.Name()))
	p.controller.Restart()
}

var _ svchost.Plugin = (*Plugin)(nil)
