package manifest

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	"golang.org/x/sync/errgroup"

	"github.com/viant/spawnly"
	"github.com/viant/spawnly/child"
	"github.com/viant/spawnly/internal/clock"
	"github.com/viant/spawnly/policy"
	"github.com/viant/spawnly/progress"
)

// TaskResult records the outcome of a single manifest task
type TaskResult struct {
	Task    *Task
	Code    int
	Elapsed time.Duration

	// Err is set when the task could not run at all, for example when the
	// shell session could not be created
	Err error
}

// Failed reports whether the task ended with a non-zero status
func (r *TaskResult) Failed() bool {
	return r.Code != 0
}

// Runner executes manifest tasks.  Regular tasks run as dedicated child
// processes through the blocking launch facade; session tasks share one
// local shell so that state such as the working directory persists between
// them.
type Runner struct {
	concurrency int
	stdout      io.Writer
	stderr      io.Writer

	mux     sync.Mutex
	session *gosh.Service
}

// RunnerOption customises a runner
type RunnerOption func(r *Runner)

// WithConcurrency sets how many tasks may run at once.  Values above one
// switch the runner to parallel execution; session tasks are then rejected.
func WithConcurrency(concurrency int) RunnerOption {
	return func(r *Runner) {
		r.concurrency = concurrency
	}
}

// WithOutput redirects task output away from the parent's stdout and stderr
func WithOutput(stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// NewRunner creates a runner with the supplied options
func NewRunner(options ...RunnerOption) *Runner {
	r := &Runner{
		concurrency: 1,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
	for _, option := range options {
		option(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	return r
}

// Run executes every manifest task and returns their results.  A task that
// exits non-zero stops the run unless it is marked continueOnError; the
// returned error names the failed task.  A manifest policy takes precedence
// over one already carried by ctx, and a progress tracker in ctx is kept up
// to date as tasks move through the run.
func (r *Runner) Run(ctx context.Context, m *Manifest) ([]*TaskResult, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Policy != nil {
		ctx = policy.WithPolicy(ctx, policy.FromConfig(m.Policy))
	}
	progress.UpdateCtx(ctx, progress.Delta{Total: len(m.Tasks)})
	if r.concurrency > 1 {
		return r.runParallel(ctx, m)
	}
	return r.runSequential(ctx, m)
}

func (r *Runner) runSequential(ctx context.Context, m *Manifest) ([]*TaskResult, error) {
	var results []*TaskResult
	for i, task := range m.Tasks {
		result := r.runTask(ctx, m, task)
		results = append(results, result)
		if result.Failed() && !task.ContinueOnError {
			progress.UpdateCtx(ctx, progress.Delta{Skipped: len(m.Tasks) - i - 1})
			return results, fmt.Errorf("task %q failed with exit code %d", task.Name, result.Code)
		}
	}
	return results, nil
}

// runParallel fans tasks out over an errgroup; the first failure without
// continueOnError cancels the group context, which kills still-running
// children.
func (r *Runner) runParallel(ctx context.Context, m *Manifest) ([]*TaskResult, error) {
	for _, task := range m.Tasks {
		if task.Session {
			return nil, fmt.Errorf("session task %q requires sequential execution", task.Name)
		}
	}
	results := make([]*TaskResult, len(m.Tasks))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for i, task := range m.Tasks {
		i, task := i, task
		group.Go(func() error {
			result := r.runTask(groupCtx, m, task)
			results[i] = result
			if result.Failed() && !task.ContinueOnError {
				return fmt.Errorf("task %q failed with exit code %d", task.Name, result.Code)
			}
			return nil
		})
	}
	err := group.Wait()
	return results, err
}

// runTask executes one task and never returns nil
func (r *Runner) runTask(ctx context.Context, m *Manifest, task *Task) *TaskResult {
	progress.UpdateCtx(ctx, progress.Delta{Running: 1})
	result := r.launchTask(ctx, m, task)
	delta := progress.Delta{Running: -1, Completed: 1}
	if result.Failed() {
		delta = progress.Delta{Running: -1, Failed: 1}
	}
	progress.UpdateCtx(ctx, delta)
	return result
}

func (r *Runner) launchTask(ctx context.Context, m *Manifest, task *Task) *TaskResult {
	if task.Session {
		return r.runInSession(ctx, m, task)
	}
	options := []spawnly.Option{
		spawnly.WithArgs(task.Command[1:]...),
		spawnly.WithStdout(r.stdout),
		spawnly.WithStderr(r.stderr),
	}
	if env := mergeEnv(m.Env, task.Env); len(env) > 0 {
		options = append(options, spawnly.WithEnv(env))
	}
	if task.Dir != "" {
		options = append(options, spawnly.WithDir(task.Dir))
	}
	if task.Isolated {
		options = append(options, spawnly.WithIsolation())
	}

	started := clock.Now()
	code := spawnly.Run(ctx, task.Command[0], options...)
	return &TaskResult{
		Task:    task,
		Code:    code,
		Elapsed: clock.Since(started),
	}
}

// runInSession executes the task command line inside the shared shell
func (r *Runner) runInSession(ctx context.Context, m *Manifest, task *Task) *TaskResult {
	// Session lines bypass the launch facade, so the policy gate applies here.
	if !policy.FromContext(ctx).Allows(ctx, task.Command[0], task.Command[1:]) {
		return &TaskResult{Task: task, Code: spawnly.ExitFailure, Err: fmt.Errorf("%w: %s", child.ErrDenied, task.Command[0])}
	}
	session, err := r.getSession(ctx, m)
	if err != nil {
		return &TaskResult{Task: task, Code: spawnly.ExitFailure, Err: err}
	}
	if task.Dir != "" {
		if _, _, err := session.Run(ctx, fmt.Sprintf("cd %s", task.Dir)); err != nil {
			return &TaskResult{Task: task, Code: spawnly.ExitFailure, Err: fmt.Errorf("failed to change directory: %w", err)}
		}
	}

	started := clock.Now()
	stdout, status, err := session.Run(ctx, task.Line)
	result := &TaskResult{
		Task:    task,
		Code:    status,
		Elapsed: clock.Since(started),
		Err:     err,
	}
	if stdout != "" {
		stdout = strings.TrimSpace(stdout)
		_, _ = fmt.Fprintln(r.stdout, stdout)
	}
	return result
}

// getSession returns the shared local shell, creating it on first use with
// the manifest-wide environment.
func (r *Runner) getSession(ctx context.Context, m *Manifest) (*gosh.Service, error) {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.session != nil {
		return r.session, nil
	}
	var options []runner.Option
	if len(m.Env) > 0 {
		options = append(options, runner.WithEnvironment(m.Env))
	}
	service, err := gosh.New(ctx, local.New(options...))
	if err != nil {
		return nil, fmt.Errorf("failed to create shell session: %w", err)
	}
	r.session = service
	return service, nil
}

// Close releases the shell session held by the runner, if any
func (r *Runner) Close() error {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.session == nil {
		return nil
	}
	err := r.session.Close()
	r.session = nil
	return err
}

// mergeEnv overlays task entries over manifest-wide entries
func mergeEnv(base, overrides map[string]string) map[string]string {
	if len(base) == 0 {
		return overrides
	}
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
