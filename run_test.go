package spawnly

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	stdruntime "runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/spawnly/child"
	"github.com/viant/spawnly/policy"
	"github.com/viant/spawnly/scheduler"
)

func requireShell(t *testing.T) {
	t.Helper()
	if stdruntime.GOOS == "windows" {
		t.Skip("launch tests require a POSIX shell")
	}
}

// Scenario: completion handler with a caller-supplied loop; the launch drives
// that loop until the handler has been delivered.
func TestRunWithHandlerAndSuppliedScheduler(t *testing.T) {
	requireShell(t)

	loop := scheduler.New(scheduler.DefaultConfig())
	var gotCode int
	handled := false

	code := Run(context.Background(), "/bin/sh",
		WithArgs("-c", "exit 9"),
		WithScheduler(loop),
		WithOnExit(func(code int, err error) {
			handled = true
			gotCode = code
		}))

	assert.Equal(t, 9, code)
	assert.True(t, handled)
	assert.Equal(t, 9, gotCode)
	assert.False(t, loop.Closed())
}

// Scenario: completion handler without a loop; the launch owns one for the
// duration of the call.
func TestRunWithHandlerOnly(t *testing.T) {
	requireShell(t)

	handled := false
	code := Run(context.Background(), "/bin/sh",
		WithArgs("-c", "exit 2"),
		WithOnExit(func(code int, err error) {
			handled = true
			assert.Equal(t, 2, code)
		}))

	assert.Equal(t, 2, code)
	// The handler completed before Run returned
	assert.True(t, handled)
}

// Scenario: a loop without completion options; plain blocking wait.
func TestRunWithSchedulerOnly(t *testing.T) {
	requireShell(t)

	loop := scheduler.New(scheduler.DefaultConfig())
	code := Run(context.Background(), "/bin/sh",
		WithArgs("-c", "exit 3"),
		WithScheduler(loop))

	assert.Equal(t, 3, code)
	assert.False(t, loop.Closed())
}

// Scenario: no options at all; plain blocking wait with default disposition.
func TestRunPlain(t *testing.T) {
	requireShell(t)

	assert.Equal(t, 0, Run(context.Background(), "/bin/sh", WithArgs("-c", "true")))
	assert.Equal(t, 1, Run(context.Background(), "/bin/sh", WithArgs("-c", "false")))
}

func TestRunCreationFailure(t *testing.T) {
	loop := scheduler.New(scheduler.DefaultConfig())
	_ = loop.Post(func() { t.Fatal("creation failure must not drain the supplied loop") })

	// Every strategy returns the failure sentinel without waiting or draining
	testCases := []struct {
		description string
		options     []Option
	}{
		{"plain", nil},
		{"handler only", []Option{WithOnExit(func(int, error) {})}},
		{"scheduler only", []Option{WithScheduler(loop)}},
		{"handler and scheduler", []Option{WithScheduler(loop), WithOnExit(func(int, error) {})}},
	}
	for _, testCase := range testCases {
		code := Run(context.Background(), "/no/such/binary", testCase.options...)
		assert.Equal(t, ExitFailure, code, testCase.description)
	}
	assert.Equal(t, 1, loop.Pending())
}

func TestRunResumesToken(t *testing.T) {
	requireShell(t)

	token := scheduler.NewToken()
	code := Run(context.Background(), "/bin/sh",
		WithArgs("-c", "exit 0"),
		WithToken(token))

	assert.Equal(t, 0, code)
	assert.True(t, token.Resumed())
}

func TestRunEnvAndOutput(t *testing.T) {
	requireShell(t)

	var stdout bytes.Buffer
	code := Run(context.Background(), "/bin/sh",
		WithArgs("-c", `printf '%s' "$SPAWNLY_RUN"`),
		WithEnv(map[string]string{"SPAWNLY_RUN": "facade"}),
		WithStdout(&stdout))

	assert.Equal(t, 0, code)
	assert.Equal(t, "facade", stdout.String())
}

func TestRunWorkingDirectory(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	code := Run(context.Background(), "/bin/sh",
		WithArgs("-c", "touch launched"),
		WithDir(dir))

	assert.Equal(t, 0, code)
	_, err := os.Stat(filepath.Join(dir, "launched"))
	assert.NoError(t, err)
}

func TestRunSignalledChild(t *testing.T) {
	requireShell(t)

	// A child terminated by a signal has no exit status
	code := Run(context.Background(), "/bin/sh", WithArgs("-c", "kill -TERM $$"))
	assert.Equal(t, ExitFailure, code)
}

func TestStartNotify(t *testing.T) {
	requireShell(t)

	fired := make(chan int, 1)
	p, err := Start(context.Background(), "/bin/sh",
		WithArgs("-c", "exit 6"),
		WithOnExit(func(code int, err error) { fired <- code }))
	require.NoError(t, err)

	code, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, code)

	select {
	case got := <-fired:
		assert.Equal(t, 6, got)
	case <-time.After(time.Second):
		t.Fatal("completion handler not delivered")
	}
}

func TestStartWithSchedulerAndToken(t *testing.T) {
	requireShell(t)

	loop := scheduler.New(scheduler.DefaultConfig())
	token := scheduler.NewToken()

	p, err := Start(context.Background(), "/bin/sh",
		WithArgs("-c", "exit 0"),
		WithScheduler(loop),
		WithToken(token))
	require.NoError(t, err)

	// Completion is parked on the loop until the caller drives it
	<-p.Done()
	assert.False(t, token.Resumed())

	loop.Run()
	assert.True(t, token.Resumed())
	assert.Equal(t, 0, p.ExitCode())
}

func TestStartCreationFailure(t *testing.T) {
	p, err := Start(context.Background(), "/no/such/binary")
	assert.Error(t, err)
	assert.Nil(t, p)
}

func TestRunDeniedByPolicy(t *testing.T) {
	requireShell(t)

	ctx := policy.WithPolicy(context.Background(), &policy.Policy{BlockList: []string{"sh"}})

	// A rejected launch is a creation failure: the sentinel comes back, the
	// handler never runs and a supplied loop is left untouched.
	loop := scheduler.New(scheduler.DefaultConfig())
	code := Run(ctx, "/bin/sh",
		WithArgs("-c", "true"),
		WithScheduler(loop),
		WithOnExit(func(int, error) { t.Fatal("handler must not run for a denied launch") }))
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, 0, loop.Pending())

	p, err := Start(ctx, "/bin/sh", WithArgs("-c", "true"))
	assert.ErrorIs(t, err, child.ErrDenied)
	assert.Nil(t, p)

	// Executables outside the block list launch as usual.
	assert.Equal(t, 0, Run(ctx, "true"))
}
