package spawnly

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/viant/spawnly/child"
	"github.com/viant/spawnly/scheduler"
)

// strategy identifies the waiting protocol a launch follows
type strategy int

const (
	// strategyDriveSupplied polls the caller's loop until the exit hook fires
	strategyDriveSupplied strategy = iota
	// strategyOwnAndRun creates a loop, runs it to completion and tears it down
	strategyOwnAndRun
	// strategyBlockingSupplied waits directly; the supplied loop is left alone
	strategyBlockingSupplied
	// strategyBlockingPlain waits directly with no scheduler involvement at all
	strategyBlockingPlain
)

// String returns the strategy name used in tracing attributes
func (s strategy) String() string {
	switch s {
	case strategyDriveSupplied:
		return "drive-supplied"
	case strategyOwnAndRun:
		return "own-and-run"
	case strategyBlockingSupplied:
		return "blocking-supplied"
	default:
		return "blocking-plain"
	}
}

// selectStrategy maps the two launch capabilities onto a waiting protocol.
// The mapping is total and deterministic: every combination selects exactly
// one strategy.
func selectStrategy(needsScheduler, suppliesScheduler bool) strategy {
	switch {
	case needsScheduler && suppliesScheduler:
		return strategyDriveSupplied
	case needsScheduler:
		return strategyOwnAndRun
	case suppliesScheduler:
		return strategyBlockingSupplied
	default:
		return strategyBlockingPlain
	}
}

// drainIdleDelay paces the drive-supplied poll loop between empty drains so
// the caller's goroutine is not pinned while the child runs.
const drainIdleDelay = 2 * time.Millisecond

// newScheduler creates loops owned by a launch.  It is a package variable so
// tests can observe the loop a launch creates and tears down.
var newScheduler = scheduler.New

// runDriveSupplied starts the child against the caller's loop and drives that
// loop until the posted exit hook has run.  The hook executes inside a drain
// on this goroutine, so once the flag reads true the user handlers have
// already completed.  The flag is atomic: should the loop be shut down
// underneath the launch, the fallback delivery happens off this goroutine.
func runDriveSupplied(ctx context.Context, name string, o *options) int {
	loop := o.scheduler
	var exited atomic.Bool
	config := o.childConfig(name)
	config.Scheduler = loop
	config.OnExit = o.exitHook(func() { exited.Store(true) })

	p, err := child.Start(ctx, config)
	if err != nil {
		return ExitFailure
	}
	for !exited.Load() {
		if loop.Poll() == 0 {
			time.Sleep(drainIdleDelay)
		}
	}
	return p.ExitCode()
}

// runOwnAndRun creates a private loop, runs it until the child's completion
// work has drained and shuts it down before returning.  The shutdown is
// deferred so creation failure tears the loop down as well.
func runOwnAndRun(ctx context.Context, name string, o *options) int {
	loop := newScheduler(o.schedulerConfig)
	defer loop.Shutdown()

	config := o.childConfig(name)
	config.Scheduler = loop
	config.OnExit = o.exitHook(nil)

	p, err := child.Start(ctx, config)
	if err != nil {
		return ExitFailure
	}
	loop.Run()
	return p.ExitCode()
}

// runBlockingSupplied waits on the child directly.  The supplied loop matters
// for classification only; it is neither polled nor run here and no work is
// posted to it.
func runBlockingSupplied(ctx context.Context, name string, o *options) int {
	return waitDirect(ctx, name, o)
}

// runBlockingPlain waits on the child directly with the platform-default
// signal disposition; no scheduler is involved anywhere.
func runBlockingPlain(ctx context.Context, name string, o *options) int {
	return waitDirect(ctx, name, o)
}

// waitDirect starts the child with no loop attached and blocks until it has
// exited.  Cancelling ctx kills the child, which ends the wait.
func waitDirect(ctx context.Context, name string, o *options) int {
	p, err := child.Start(ctx, o.childConfig(name))
	if err != nil {
		return ExitFailure
	}
	<-p.Done()
	return p.ExitCode()
}
