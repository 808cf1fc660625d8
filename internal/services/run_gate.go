package services

import (
	"context"
	"sync/atomic"
)

// Runner executes report runs.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// RunGate admits one report run at a time. A run requested while another
// is in flight fails fast with ErrRunInProgress instead of queueing.
type RunGate struct {
	runner  Runner
	running atomic.Bool
}

// NewRunGate wraps runner.
func NewRunGate(runner Runner) *RunGate {
	return &RunGate{runner: runner}
}

// Run executes the run if no other run is in flight.
func (g *RunGate) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if !g.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer g.running.Store(false)
	return g.runner.Run(ctx, req)
}

// Running reports whether a run is in flight.
func (g *RunGate) Running() bool {
	return g.running.Load()
}
