package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/viant/spawnly"
	"github.com/viant/spawnly/manifest"
	"github.com/viant/spawnly/progress"
)

// doExec launches the command line after -- and adopts its exit status.
func doExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := args[0]

	options := []spawnly.Option{
		spawnly.WithArgs(args[1:]...),
		spawnly.WithStdin(os.Stdin),
		spawnly.WithStdout(os.Stdout),
		spawnly.WithStderr(os.Stderr),
	}
	env, err := parseEnv(flagEnv)
	if err != nil {
		return err
	}
	if len(env) > 0 {
		options = append(options, spawnly.WithEnv(env))
	}
	if flagDir != "" {
		options = append(options, spawnly.WithDir(flagDir))
	}
	if flagIsolate {
		options = append(options, spawnly.WithIsolation())
	}
	if flagNotify {
		options = append(options, spawnly.WithOnExit(func(code int, err error) {
			slog.Info("child exited", "name", name, "code", code)
		}))
	}

	p, err := spawnly.Start(ctx, name, options...)
	if err != nil {
		return err
	}
	slog.Debug("child started", "name", name, "pid", p.Pid())

	// Forward interrupts to the child instead of dying with it; the child
	// decides when the run is over.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			_ = p.Signal(sig)
		case <-p.Done():
			slog.Debug("child finished", "name", name, "pid", p.Pid(), "code", p.ExitCode(), "elapsed", p.Elapsed())
			exitCode = cliExitCode(p.ExitCode())
			return nil
		}
	}
}

// doRun loads a manifest and executes its tasks.
func doRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := manifest.New().Load(ctx, args[0])
	if err != nil {
		return err
	}

	runner := manifest.NewRunner(manifest.WithConcurrency(flagParallel))
	defer func() {
		if err := runner.Close(); err != nil {
			slog.Warn("failed to close shell session", "err", err)
		}
	}()

	ctx, tracker := progress.WithNewTracker(ctx, m.Name, nil)
	slog.Info("manifest started", "name", m.Name, "tasks", len(m.Tasks))
	results, runErr := runner.Run(ctx, m)
	for _, result := range results {
		if result == nil {
			continue
		}
		if result.Failed() {
			slog.Error("task failed", "task", result.Task.Name, "code", result.Code, "elapsed", result.Elapsed, "err", result.Err)
			continue
		}
		slog.Info("task finished", "task", result.Task.Name, "code", result.Code, "elapsed", result.Elapsed)
	}
	snapshot := tracker.Snapshot()
	slog.Info("manifest finished",
		"name", m.Name,
		"completed", snapshot.CompletedTasks,
		"failed", snapshot.FailedTasks,
		"skipped", snapshot.SkippedTasks,
	)
	return runErr
}

// parseEnv converts repeated KEY=VALUE flags into a map.
func parseEnv(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid env entry %q, expected KEY=VALUE", entry)
		}
		env[key] = value
	}
	return env, nil
}

// cliExitCode maps a child exit status to the process exit code; a child that
// could not run or died on a signal maps to a plain failure.
func cliExitCode(code int) int {
	if code < 0 {
		return 1
	}
	return code
}
