package spawnly

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/spawnly/scheduler"
)

func TestSelectStrategy(t *testing.T) {
	testCases := []struct {
		description       string
		needsScheduler    bool
		suppliesScheduler bool
		expect            strategy
	}{
		{"completion options and supplied loop", true, true, strategyDriveSupplied},
		{"completion options only", true, false, strategyOwnAndRun},
		{"supplied loop only", false, true, strategyBlockingSupplied},
		{"neither capability", false, false, strategyBlockingPlain},
	}
	for _, testCase := range testCases {
		// Selection is total and stable under repeated evaluation
		for i := 0; i < 3; i++ {
			selected := selectStrategy(testCase.needsScheduler, testCase.suppliesScheduler)
			assert.Equal(t, testCase.expect, selected, testCase.description)
		}
	}
}

func TestStrategyNames(t *testing.T) {
	assert.Equal(t, "drive-supplied", strategyDriveSupplied.String())
	assert.Equal(t, "own-and-run", strategyOwnAndRun.String())
	assert.Equal(t, "blocking-supplied", strategyBlockingSupplied.String())
	assert.Equal(t, "blocking-plain", strategyBlockingPlain.String())
}

// captureOwnedScheduler stubs loop creation so a test can inspect the loop a
// launch owned after the launch has returned.
func captureOwnedScheduler(t *testing.T) *[]*scheduler.Service {
	t.Helper()
	var owned []*scheduler.Service
	restore := newScheduler
	newScheduler = func(config scheduler.Config) *scheduler.Service {
		loop := scheduler.New(config)
		owned = append(owned, loop)
		return loop
	}
	t.Cleanup(func() { newScheduler = restore })
	return &owned
}

func TestOwnAndRunTeardown(t *testing.T) {
	requireShell(t)
	owned := captureOwnedScheduler(t)

	var hookCode int
	code := Run(context.Background(), "/bin/sh",
		WithArgs("-c", "exit 5"),
		WithOnExit(func(code int, err error) { hookCode = code }))

	assert.Equal(t, 5, code)
	assert.Equal(t, 5, hookCode)

	// Exactly one loop was created, fully drained and shut down
	require.Len(t, *owned, 1)
	loop := (*owned)[0]
	assert.True(t, loop.Closed())
	assert.Equal(t, 0, loop.Pending())
	assert.Equal(t, 0, loop.Held())
}

func TestOwnAndRunTeardownOnCreationFailure(t *testing.T) {
	owned := captureOwnedScheduler(t)

	code := Run(context.Background(), "/no/such/binary",
		WithOnExit(func(int, error) { t.Fatal("hook must not fire for a child that never started") }))

	assert.Equal(t, ExitFailure, code)

	// The owned loop is torn down on the failure path as well
	require.Len(t, *owned, 1)
	assert.True(t, (*owned)[0].Closed())
}

func TestOwnAndRunSchedulerConfig(t *testing.T) {
	requireShell(t)
	owned := captureOwnedScheduler(t)

	code := Run(context.Background(), "/bin/sh",
		WithArgs("-c", "true"),
		WithSchedulerConfig(scheduler.Config{InitialCapacity: 64}),
		WithOnExit(func(int, error) {}))

	assert.Equal(t, 0, code)
	require.Len(t, *owned, 1)
}

func TestDriveSuppliedDrainsCallerLoop(t *testing.T) {
	requireShell(t)

	loop := scheduler.New(scheduler.DefaultConfig())
	markerRan := false
	require.NoError(t, loop.Post(func() { markerRan = true }))

	handled := false
	code := Run(context.Background(), "/bin/sh",
		WithArgs("-c", "exit 0"),
		WithScheduler(loop),
		WithOnExit(func(code int, err error) { handled = true }))

	assert.Equal(t, 0, code)
	assert.True(t, handled)

	// Work queued on the caller's loop before the launch was drained by it
	assert.True(t, markerRan)

	// The supplied loop survives the launch untouched
	assert.False(t, loop.Closed())
	assert.Equal(t, 0, loop.Pending())
}

func TestBlockingSuppliedLeavesLoopAlone(t *testing.T) {
	requireShell(t)

	loop := scheduler.New(scheduler.DefaultConfig())
	require.NoError(t, loop.Post(func() { t.Fatal("blocking launch must not drain the supplied loop") }))

	code := Run(context.Background(), "/bin/sh",
		WithArgs("-c", "exit 4"),
		WithScheduler(loop))

	assert.Equal(t, 4, code)

	// The pre-posted task is still pending: nothing polled, nothing posted
	assert.Equal(t, 1, loop.Pending())
	assert.False(t, loop.Closed())
}
