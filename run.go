package spawnly

import (
	"context"
	"fmt"
	"strconv"

	"github.com/viant/spawnly/child"
	"github.com/viant/spawnly/tracing"
)

// ExitFailure is returned when a child process could not be created or when
// its exit status cannot be determined.
const ExitFailure = -1

// Run launches name with the supplied options and blocks until the child has
// exited, returning its exit status.  The waiting protocol follows from the
// capabilities the options carry:
//
//   - completion options and a supplied scheduler: the caller's loop is
//     polled until the posted exit hook has run
//   - completion options only: a private loop is created, run to completion
//     and torn down
//   - a supplied scheduler only: plain blocking wait; the loop is left alone
//   - neither: plain blocking wait with default signal disposition
//
// When the child cannot be created Run returns ExitFailure immediately; no
// waiting or draining takes place.  Cancelling ctx kills a running child,
// which ends the wait with the corresponding exit status.
func Run(ctx context.Context, name string, opts ...Option) (code int) {
	o := newOptions(opts)
	selected := selectStrategy(o.needsScheduler(), o.suppliesScheduler())

	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("spawnly.Run %s", name), "INTERNAL")
	span.WithAttributes(map[string]string{
		"process.name":    name,
		"launch.strategy": selected.String(),
	})
	defer func() {
		span.WithAttributes(map[string]string{"process.exitCode": strconv.Itoa(code)})
		tracing.EndSpan(span, nil)
	}()

	switch selected {
	case strategyDriveSupplied:
		return runDriveSupplied(ctx, name, o)
	case strategyOwnAndRun:
		return runOwnAndRun(ctx, name, o)
	case strategyBlockingSupplied:
		return runBlockingSupplied(ctx, name, o)
	default:
		return runBlockingPlain(ctx, name, o)
	}
}

// Start launches name without blocking and returns the process handle.
// Completion options are wired through: handlers and token resume are
// delivered via the supplied scheduler when one is present, otherwise on the
// process waiter goroutine.  Callers observe completion through the handle's
// Done channel or Wait.
func Start(ctx context.Context, name string, opts ...Option) (p *child.Process, err error) {
	o := newOptions(opts)

	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("spawnly.Start %s", name), "INTERNAL")
	defer func() {
		if p != nil {
			span.WithAttributes(map[string]string{"process.id": p.ID()})
		}
		tracing.EndSpan(span, err)
	}()

	config := o.childConfig(name)
	if o.needsScheduler() {
		// A scheduler is only attached when there is a completion to deliver;
		// a loop supplied without handlers or token stays untouched.
		config.Scheduler = o.scheduler
		config.OnExit = o.exitHook(nil)
	}
	return child.Start(ctx, config)
}
