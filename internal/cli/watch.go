package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-demo-viewer/internal/apiclient"
	"github.com/randomizedcoder/go-demo-viewer/internal/config"
	"github.com/randomizedcoder/go-demo-viewer/internal/gateway"
	"github.com/randomizedcoder/go-demo-viewer/internal/logging"
	"github.com/randomizedcoder/go-demo-viewer/internal/metrics"
	"github.com/randomizedcoder/go-demo-viewer/internal/poller"
	"github.com/randomizedcoder/go-demo-viewer/internal/tui"
)

func newWatchCommand(o *options) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "watch [id]",
		Short: "Watch a running server in the terminal",
		Long: `Watch a running server in the terminal. The selected demo is re-run
whenever its source file changes.

With --plain no dashboard is drawn: the demo named by id is run and every
result is printed as it arrives.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := apiclient.New(o.cfg.ServerURL, o.cfg.Timeout)
			if err := client.Health(ctx); err != nil {
				return fmt.Errorf("server %s is not reachable: %w", client.BaseURL(), err)
			}

			var id string
			if len(args) == 1 {
				id = args[0]
			}
			if plain {
				if id == "" {
					return errors.New("watch --plain needs a demo id")
				}
				return watchPlain(ctx, o, client, id)
			}
			return watchTUI(ctx, o, client, id)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Print results instead of drawing the dashboard")
	config.BindClientFlags(cmd.Flags(), o.flags)
	return cmd
}

func watchPlain(ctx context.Context, o *options, api poller.API, id string) error {
	driver := poller.NewDriver(poller.DriverConfig{
		API:        api,
		Interval:   o.cfg.PollInterval,
		LiveReload: o.cfg.LiveReload,
		Logger:     o.logger,
		OnResult: func(id string, r gateway.Result, err error) {
			printWatchResult(o.out, o.err, id, r, err)
		},
	})

	// Watch only returns once ctx is done, which is a normal stop.
	if err := driver.Watch(ctx, id); ctx.Err() == nil {
		return err
	}
	return nil
}

func printWatchResult(stdout, stderr io.Writer, id string, r gateway.Result, err error) {
	if err != nil {
		fmt.Fprintf(stderr, "── %s: %v\n", id, err)
		return
	}
	status := fmt.Sprintf("exit %d", r.ExitCode)
	if r.TimedOut {
		status = "timed out"
	}
	fmt.Fprintf(stdout, "── %s (%s, %d ms) ──\n", id, status, r.DurationMs)
	printResult(stdout, stderr, r)
}

func watchTUI(ctx context.Context, o *options, client *apiclient.Client, id string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Logs would tear the dashboard; the scraper reports through the TUI.
	scraper := metrics.NewScraper(client.BaseURL(), o.cfg.PollInterval, logging.Discard())
	go scraper.Run(ctx)

	model := tui.New(tui.Config{
		Context:    ctx,
		API:        client,
		ServerURL:  client.BaseURL(),
		Interval:   o.cfg.PollInterval,
		LiveReload: o.cfg.LiveReload,
		InitialID:  id,
		Scraper:    scraper,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		tui.SendQuit(p)
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
