package child

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/viant/spawnly/internal/clock"
	"github.com/viant/spawnly/internal/idgen"
	"github.com/viant/spawnly/policy"
	"github.com/viant/spawnly/scheduler"
)

// ErrDenied is returned by Start when a context policy rejects the launch.
var ErrDenied = errors.New("launch denied by policy")

// ExitFunc handles child completion. code carries the exit status and err the
// underlying wait error, if any.
type ExitFunc func(code int, err error)

// Config describes a child process to start
type Config struct {
	// Name is the executable to run
	Name string

	// Args are passed to the executable verbatim
	Args []string

	// Env entries override or extend the parent environment
	Env map[string]string

	// Dir is the working directory; empty means inherit
	Dir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Isolate places the child in its own process group (POSIX only)
	Isolate bool

	// Scheduler, when set, receives the exit hook as a posted task so that it
	// executes on the goroutine driving the loop
	Scheduler *scheduler.Service

	// OnExit is invoked exactly once after the child exits
	OnExit ExitFunc
}

// Process is a started child process handle
type Process struct {
	id        string
	name      string
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time

	mu       sync.Mutex
	exitCode int
	exitedAt time.Time
	waitErr  error

	done chan struct{}
}

// Start launches the configured child and begins observing it.  Creation
// failures (missing executable, bad working directory, a policy rejection)
// are reported as an error before any waiting takes place.  Cancelling ctx
// kills a still-running child.
func Start(ctx context.Context, config Config) (*Process, error) {
	if config.Name == "" {
		return nil, errors.New("executable name is required")
	}
	if !policy.FromContext(ctx).Allows(ctx, config.Name, config.Args) {
		return nil, fmt.Errorf("%w: %s", ErrDenied, config.Name)
	}
	cmd := exec.CommandContext(ctx, config.Name, config.Args...)
	if config.Dir != "" {
		cmd.Dir = config.Dir
	}

	env := os.Environ()
	if len(config.Env) > 0 {
		overrides := make([]string, 0, len(config.Env))
		for k, v := range config.Env {
			overrides = append(overrides, fmt.Sprintf("%s=%s", k, v))
		}
		env = append(env, overrides...)
	}
	cmd.Env = env

	cmd.Stdin = config.Stdin
	cmd.Stdout = config.Stdout
	cmd.Stderr = config.Stderr

	if config.Isolate {
		isolate(cmd)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", config.Name, err)
	}

	p := &Process{
		id:        idgen.New(),
		name:      config.Name,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startedAt: clock.Now(),
		exitCode:  -1,
		done:      make(chan struct{}),
	}

	// The hold keeps a run-to-completion loop alive until the exit hook has
	// been posted.
	release := func() {}
	if config.Scheduler != nil {
		release = config.Scheduler.Hold()
	}
	go p.wait(config, release)
	return p, nil
}

// wait observes the child and delivers the completion hook exactly once.
func (p *Process) wait(config Config, release func()) {
	err := p.cmd.Wait()
	code := exitStatus(p.cmd, err)

	p.mu.Lock()
	p.exitCode = code
	p.exitedAt = clock.Now()
	p.waitErr = err
	p.mu.Unlock()

	hook := func() {
		if config.OnExit != nil {
			config.OnExit(code, err)
		}
	}
	if config.Scheduler != nil {
		// Post before releasing the hold so the loop cannot drain empty
		// between child exit and hook delivery.
		if postErr := config.Scheduler.Post(hook); postErr != nil {
			// Loop already shut down; deliver inline rather than losing the
			// completion.
			hook()
		}
		release()
		close(p.done)
		return
	}

	hook()
	close(p.done)
}

// ID returns the process identifier
func (p *Process) ID() string { return p.id }

// Name returns the executable name the process was started with
func (p *Process) Name() string { return p.name }

// Pid returns the operating-system process id
func (p *Process) Pid() int { return p.pid }

// StartedAt returns the time the child was started
func (p *Process) StartedAt() time.Time { return p.startedAt }

// ExitedAt returns the time the exit was observed; zero while running
func (p *Process) ExitedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitedAt
}

// Elapsed returns the child run time so far, or the total run time once it
// has exited.
func (p *Process) Elapsed() time.Duration {
	p.mu.Lock()
	exitedAt := p.exitedAt
	p.mu.Unlock()
	if exitedAt.IsZero() {
		return clock.Since(p.startedAt)
	}
	return exitedAt.Sub(p.startedAt)
}

// Done returns a channel closed once the child has exited and its completion
// hook has been delivered or posted.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether the child has exited
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the child exit status, -1 until the child has exited or
// when it was terminated by a signal.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Err returns the wait error recorded at exit; nil while running and after a
// clean exit.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Wait blocks until the child exits or ctx is done and returns the exit
// code.  A non-zero child exit is not an error here; the returned error
// reports interrupted waiting only.
func (p *Process) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.done:
		return p.ExitCode(), nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Signal sends sig to the child process.
func (p *Process) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return errors.New("process not started")
	}
	return p.cmd.Process.Signal(sig)
}

// exitStatus maps a wait outcome to the child exit code.
func exitStatus(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
