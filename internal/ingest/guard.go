package ingest

import (
	"context"
	"log/slog"
	"sync"
)

// Runner executes one ingestion run.
type Runner interface {
	Run(ctx context.Context) error
}

// Guard serializes runs: triggers arriving while a run is in flight are
// coalesced into a no-op, since the running pass already drains the
// backlog they signal.
type Guard struct {
	runner Runner
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewGuard wraps runner. A nil logger falls back to slog.Default.
func NewGuard(runner Runner, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{runner: runner, logger: logger}
}

// Start launches a run in a new goroutine. Returns false without starting
// anything when a run is already in flight.
func (g *Guard) Start(ctx context.Context) bool {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		g.logger.Debug("run already in flight, trigger coalesced")
		return false
	}
	g.running = true
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer func() {
			g.mu.Lock()
			g.running = false
			g.mu.Unlock()
			g.wg.Done()
		}()

		if err := g.runner.Run(ctx); err != nil {
			g.logger.Error("ingestion run failed", "error", err)
		}
	}()
	return true
}

// IsRunning reports whether a run is in flight.
func (g *Guard) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Wait blocks until the in-flight run, if any, finishes.
func (g *Guard) Wait() {
	g.wg.Wait()
}
