package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/viant/spawnly/tracing"
)

var (
	flagVerbose bool   // value of --verbose flag
	flagTrace   string // value of --trace flag

	flagEnv     []string // exec: --env KEY=VALUE overrides
	flagDir     string   // exec: --dir working directory
	flagIsolate bool     // exec: --isolate process group
	flagNotify  bool     // exec: --notify completion log

	flagParallel int // run: --parallel task limit

	exitCode int // propagated child exit status
)

func main() {
	// root flags
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagTrace, "trace", "", "write launch spans to the given file")

	execCmd.Flags().StringArrayVar(&flagEnv, "env", nil, "environment override in KEY=VALUE form, repeatable")
	execCmd.Flags().StringVar(&flagDir, "dir", "", "working directory of the child")
	execCmd.Flags().BoolVar(&flagIsolate, "isolate", false, "place the child in its own process group")
	execCmd.Flags().BoolVar(&flagNotify, "notify", false, "log a completion notification when the child exits")

	runCmd.Flags().IntVar(&flagParallel, "parallel", 1, "how many tasks may run at once")

	// never print messages
	rootCmd.SilenceErrors = true

	// set up logging and tracing
	rootCmd.PersistentPreRunE = initSpawnly

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("spawnly failed", "err", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

var rootCmd = &cobra.Command{
	Use:          "spawnly",
	Short:        "Launch child processes and adopt their exit status",
	SilenceUsage: true,
}

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- command [args...]",
	Short: "exec launches a single child process and exits with its status",
	Args:  cobra.MinimumNArgs(1),
	RunE:  doExec,
}

var runCmd = &cobra.Command{
	Use:   "run [flags] MANIFEST",
	Short: "run executes every task of a manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  doRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version prints build information",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("spawnly: version info not available")
			return
		}
		fmt.Printf("spawnly: %s\n", info.Main.Version)
		fmt.Printf("go:      %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:  %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:    %s\n", s.Value)
			}
		}
	},
}

func initSpawnly(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	})
	slog.SetDefault(slog.New(handler))

	if flagTrace != "" {
		if err := tracing.Init("spawnly", version(), flagTrace); err != nil {
			return fmt.Errorf("failed to initialise tracing: %w", err)
		}
	}
	return nil
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	return "unknown"
}
