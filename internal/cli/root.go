// Package cli defines the go-demo-viewer command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-demo-viewer/internal/config"
	"github.com/randomizedcoder/go-demo-viewer/internal/logging"
)

// ExitError carries a process exit status out of a command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// options is shared by every subcommand of one root.
type options struct {
	version string
	out     io.Writer
	err     io.Writer
	getenv  func(string) string

	cfgFile string
	flags   *config.Config // flag destinations
	cfg     *config.Config // resolved in PersistentPreRunE
	logger  *slog.Logger
}

// NewRootCommand builds the command tree. Output goes to stdout and
// stderr; getenv supplies environment overrides.
func NewRootCommand(version string, stdout, stderr io.Writer, getenv func(string) string) *cobra.Command {
	if getenv == nil {
		getenv = os.Getenv
	}
	o := &options{
		version: version,
		out:     stdout,
		err:     stderr,
		getenv:  getenv,
		flags:   config.DefaultConfig(),
	}

	root := &cobra.Command{
		Use:   "go-demo-viewer",
		Short: "Browse, run and live-reload numbered demo programs",
		Long: `go-demo-viewer lists the demo units in a directory, runs a selected
one as a child process and re-runs it whenever its source file changes.

Use 'serve' for the browser viewer, 'watch' for the terminal client.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: o.resolve,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&o.cfgFile, "config", "", "config file (default is ./demo-viewer.yaml)")
	config.BindLogFlags(root.PersistentFlags(), o.flags)

	root.AddCommand(
		newServeCommand(o),
		newListCommand(o),
		newRunCommand(o),
		newWatchCommand(o),
		newVersionCommand(o),
	)
	return root
}

// resolve layers defaults, the config file, the environment and explicit
// flags, in that order, then validates the result.
func (o *options) resolve(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	config.ApplyEnv(cfg, o.getenv)
	config.ApplyFlags(cfg, o.flags, cmd.Flags())

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	o.cfg = cfg
	o.logger = logging.NewLoggerWithWriter(o.err, cfg.LogFormat, level)
	logging.SetDefault(o.logger)
	return nil
}

// Execute runs the CLI against the process environment and returns the
// exit status.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(version, os.Stdout, os.Stderr, os.Getenv)
	return exitCode(root.ExecuteContext(ctx), os.Stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func newVersionCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Skips config resolution so a broken config still reports a version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(o.out, "go-demo-viewer %s\n", o.version)
			return nil
		},
	}
}
