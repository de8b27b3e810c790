package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-demo-viewer/internal/apiclient"
	"github.com/randomizedcoder/go-demo-viewer/internal/config"
	"github.com/randomizedcoder/go-demo-viewer/internal/gateway"
	"github.com/randomizedcoder/go-demo-viewer/internal/process"
)

func newRunCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Run one demo and print its output",
		Long: `Run one demo and print its output. Stdout goes to stdout, the error
text to stderr. The command exits with the demo's exit status.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				result gateway.Result
				err    error
			)
			if cmd.Flags().Changed("server") {
				result, err = apiclient.New(o.cfg.ServerURL, o.cfg.Timeout).Run(cmd.Context(), args[0])
			} else {
				result, err = newGateway(o).Run(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			printResult(o.out, o.err, result)
			if !result.Success {
				return &ExitError{Code: failureCode(result)}
			}
			return nil
		},
	}
	config.BindDemoFlags(cmd.Flags(), o.flags)
	cmd.Flags().StringVar(&o.flags.ServerURL, "server", o.flags.ServerURL, "Run on this viewer server instead of locally")
	return cmd
}

func newGateway(o *options) *gateway.Gateway {
	return gateway.New(gateway.Config{
		Registry: newRegistry(o),
		Runner:   process.NewInterpreterRunner(o.cfg.RunnerArgs(), o.cfg.Root),
		WorkDir:  o.cfg.Root,
		Timeout:  o.cfg.Timeout,
		Logger:   o.logger,
		Verbose:  o.cfg.Verbose,
	})
}

func printResult(stdout, stderr io.Writer, r gateway.Result) {
	fmt.Fprint(stdout, r.Output)
	if r.Error != "" {
		fmt.Fprint(stderr, r.Error)
		if !strings.HasSuffix(r.Error, "\n") {
			fmt.Fprintln(stderr)
		}
	}
}

// failureCode maps a failed run to a non-zero exit status.
func failureCode(r gateway.Result) int {
	if r.ExitCode > 0 {
		return r.ExitCode
	}
	return 1
}
