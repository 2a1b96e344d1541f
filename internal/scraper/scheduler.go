package scraper

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	"medialens.io/internal/obs"
)

const defaultInterval = 30 * time.Minute

// Runner executes one scrape pass. Implementations must honor ctx
// cancellation.
type Runner interface {
	Run(ctx context.Context) error
}

// CommandRunner shells out to the external scraper binary.
type CommandRunner struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// NewCommandRunner parses a space-separated command line into a runner.
func NewCommandRunner(commandLine string, timeout time.Duration) (*CommandRunner, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, errors.New("scraper: empty command")
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &CommandRunner{Command: fields[0], Args: fields[1:], Timeout: timeout}, nil
}

func (r *CommandRunner) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		obs.LogJSON(map[string]any{
			"level":  "error",
			"msg":    "scrape command failed",
			"cmd":    r.Command,
			"error":  err.Error(),
			"output": tail(string(out), 2048),
		})
		return err
	}
	return nil
}

// Scheduler runs the scraper at a fixed interval. It is explicitly
// constructed and injected; there is no package-level instance.
type Scheduler struct {
	runner   Runner
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler wires a runner at the given interval. Non-positive intervals
// fall back to the default.
func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{runner: runner, interval: interval}
}

// Start launches the scrape loop. The first pass runs one interval after
// start, not immediately. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	go s.loop(ctx, done)
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	err := s.runner.Run(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	obs.CountScrape(outcome)
	obs.LogJSON(map[string]any{
		"level":       "info",
		"msg":         "scrape pass finished",
		"outcome":     outcome,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
