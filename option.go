package spawnly

import (
	"io"

	"github.com/viant/spawnly/child"
	"github.com/viant/spawnly/scheduler"
	"github.com/viant/spawnly/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures a single launch
type Option func(o *options)

// options captures the capabilities requested for one launch.  The same set
// drives both strategy classification and the child configuration, so the
// order in which options are supplied never changes the outcome.
type options struct {
	args    []string
	env     map[string]string
	dir     string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	isolate bool

	scheduler       *scheduler.Service
	schedulerConfig scheduler.Config
	onExit          []child.ExitFunc
	token           *scheduler.Token
}

// newOptions applies opts over the launch defaults
func newOptions(opts []Option) *options {
	o := &options{
		schedulerConfig: scheduler.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// needsScheduler reports whether any supplied option requires completion
// delivery through a scheduler loop.
func (o *options) needsScheduler() bool {
	return len(o.onExit) > 0 || o.token != nil
}

// suppliesScheduler reports whether the caller provided a loop of its own.
func (o *options) suppliesScheduler() bool {
	return o.scheduler != nil
}

// childConfig renders the launch options as a child configuration.  Strategy
// code wires the scheduler and exit hook in afterwards; blocking strategies
// leave both unset.
func (o *options) childConfig(name string) child.Config {
	return child.Config{
		Name:    name,
		Args:    o.args,
		Env:     o.env,
		Dir:     o.dir,
		Stdin:   o.stdin,
		Stdout:  o.stdout,
		Stderr:  o.stderr,
		Isolate: o.isolate,
	}
}

// exitHook composes user handlers and token resumption into a single child
// hook.  extra, when set, runs last - the drive strategy uses it to raise its
// exit flag after the user handlers completed.
func (o *options) exitHook(extra func()) child.ExitFunc {
	return func(code int, err error) {
		for _, fn := range o.onExit {
			fn(code, err)
		}
		if o.token != nil {
			o.token.Resume()
		}
		if extra != nil {
			extra()
		}
	}
}

// WithArgs sets the arguments passed to the executable
func WithArgs(args ...string) Option {
	return func(o *options) {
		o.args = args
	}
}

// WithEnv sets environment entries merged over the parent environment
func WithEnv(env map[string]string) Option {
	return func(o *options) {
		o.env = env
	}
}

// WithDir sets the child working directory
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithStdin binds the child standard input
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

// WithStdout binds the child standard output
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// WithStderr binds the child standard error
func WithStderr(w io.Writer) Option {
	return func(o *options) {
		o.stderr = w
	}
}

// WithIsolation places the child in its own process group (POSIX only)
func WithIsolation() Option {
	return func(o *options) {
		o.isolate = true
	}
}

// WithScheduler supplies the completion loop the caller already drives.  At
// most one scheduler is retained; the last one wins.
func WithScheduler(svc *scheduler.Service) Option {
	return func(o *options) {
		o.scheduler = svc
	}
}

// WithSchedulerConfig tunes the loop a launch creates when it owns one.  It
// carries no completion requirement of its own.
func WithSchedulerConfig(config scheduler.Config) Option {
	return func(o *options) {
		o.schedulerConfig = config
	}
}

// WithOnExit registers a completion handler invoked once the child exits.
// Handlers run in registration order on the goroutine driving the completion
// loop.
func WithOnExit(fn func(code int, err error)) Option {
	return func(o *options) {
		o.onExit = append(o.onExit, fn)
	}
}

// WithToken attaches a suspension token resumed once the child exits
func WithToken(token *scheduler.Token) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithTracing configures OpenTelemetry tracing for launches. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The function is
// safe to call multiple times – the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(o *options) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The function is safe to call multiple times – the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(o *options) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
