package procsvc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/bft-labs/svchost/pkg/log"
	"github.com/bft-labs/svchost/pkg/service"
)

// DefaultStopTimeout is how long Stop waits for the process to exit after
// asking it to terminate.
const DefaultStopTimeout = 10 * time.Second

var (
	// ErrNoCommand indicates the configuration names no executable.
	ErrNoCommand = errors.New("procsvc: command is required")

	// ErrNotStarted indicates an operation on a process that is not running.
	ErrNotStarted = errors.New("procsvc: process not started")
)

// Config describes the command to host.
type Config struct {
	Command     string
	Args        []string
	Dir         string
	Env         []string
	StopTimeout time.Duration
}

// Process is one run of the configured command.
type Process struct {
	cfg    Config
	logger log.Logger
	name   string

	mu       sync.Mutex
	cmd      *exec.Cmd
	exited   chan struct{}
	exitErr  error
	stopping bool
}

// NewBuilder returns a service.Builder that creates a fresh Process for
// every create action. The service name from the host settings is used
// for logging.
func NewBuilder(cfg Config, logger log.Logger) service.Builder {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return service.NewDelegateBuilder(
		func(settings service.HostSettings) (*Process, error) {
			return New(settings.Name, cfg, logger)
		},
		(*Process).Start,
		(*Process).Stop,
		service.WithPause((*Process).Pause),
		service.WithContinue((*Process).Continue),
	)
}

// New validates cfg and returns an unstarted process.
func New(name string, cfg Config, logger log.Logger) (*Process, error) {
	if cfg.Command == "" {
		return nil, ErrNoCommand
	}
	if _, err := exec.LookPath(cfg.Command); err != nil {
		return nil, fmt.Errorf("procsvc: %w", err)
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Process{cfg: cfg, logger: logger, name: name}, nil
}

// Start launches the command. It reports completion immediately.
func (p *Process) Start(hc service.HostControl) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return false, fmt.Errorf("procsvc: %s already started", p.cfg.Command)
	}

	cmd := exec.Command(p.cfg.Command, p.cfg.Args...)
	cmd.Dir = p.cfg.Dir
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	configure(cmd)

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("procsvc: start %s: %w", p.cfg.Command, err)
	}
	p.cmd = cmd
	p.exited = make(chan struct{})

	p.logger.Info("process started",
		log.String("service", p.name),
		log.String("command", p.cfg.Command),
		log.Int("pid", cmd.Process.Pid),
	)

	go p.wait(cmd, p.exited, hc)
	return true, nil
}

func (p *Process) wait(cmd *exec.Cmd, exited chan struct{}, hc service.HostControl) {
	err := cmd.Wait()

	p.mu.Lock()
	stopping := p.stopping
	if !stopping {
		p.exitErr = err
	}
	p.mu.Unlock()
	close(exited)

	if stopping {
		return
	}
	if err != nil {
		p.logger.Error("process exited unexpectedly", log.String("service", p.name), log.Err(err))
	} else {
		p.logger.Warn("process exited", log.String("service", p.name))
	}
	if hc != nil {
		hc.Stop()
	}
}

// Stop asks the process to terminate and waits for it, killing it when
// the stop timeout elapses.
func (p *Process) Stop(service.HostControl) (bool, error) {
	p.mu.Lock()
	cmd, exited := p.cmd, p.exited
	p.stopping = true
	p.mu.Unlock()

	if cmd == nil {
		return true, nil
	}

	select {
	case <-exited:
		p.reap(cmd)
		return true, nil
	default:
	}

	if err := terminate(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("terminate failed, killing", log.String("service", p.name), log.Err(err))
		_ = kill(cmd.Process)
	}

	timer := time.NewTimer(p.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-exited:
	case <-timer.C:
		p.logger.Warn("process did not exit in time, killing",
			log.String("service", p.name),
			log.Duration("timeout", p.cfg.StopTimeout),
		)
		_ = kill(cmd.Process)
		<-exited
	}
	p.reap(cmd)

	p.logger.Info("process stopped", log.String("service", p.name))
	return true, nil
}

// Pause suspends the process.
func (p *Process) Pause(service.HostControl) (bool, error) {
	cmd, err := p.running()
	if err != nil {
		return false, err
	}
	if err := suspend(cmd.Process); err != nil {
		return false, fmt.Errorf("procsvc: pause: %w", err)
	}
	return true, nil
}

// Continue resumes a suspended process.
func (p *Process) Continue(service.HostControl) (bool, error) {
	cmd, err := p.running()
	if err != nil {
		return false, err
	}
	if err := resume(cmd.Process); err != nil {
		return false, fmt.Errorf("procsvc: continue: %w", err)
	}
	return true, nil
}

// Close kills the process and its group if they are still running.
func (p *Process) Close() error {
	p.mu.Lock()
	cmd, exited := p.cmd, p.exited
	p.stopping = true
	p.mu.Unlock()

	if cmd == nil {
		return nil
	}
	select {
	case <-exited:
		p.reap(cmd)
		return nil
	default:
	}
	if err := kill(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("procsvc: kill: %w", err)
	}
	<-exited
	return nil
}

// reap kills whatever the process left behind in its group.
func (p *Process) reap(cmd *exec.Cmd) {
	if err := kill(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Debug("killing process group failed", log.String("service", p.name), log.Err(err))
	}
}

// ExitErr returns the error of an exit the host did not request. It is nil
// while the process runs, after a clean exit and after Stop or Close.
func (p *Process) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

func (p *Process) running() (*exec.Cmd, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return nil, ErrNotStarted
	}
	return p.cmd, nil
}
