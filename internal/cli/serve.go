package cli

import (
	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-demo-viewer/internal/config"
	"github.com/randomizedcoder/go-demo-viewer/internal/viewer"
)

func newServeCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser viewer and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.logger.Info("starting",
				"version", o.version,
				"addr", o.cfg.Addr,
				"demo_dir", o.cfg.DemoPath(),
				"runner", o.cfg.Runner,
				"timeout", o.cfg.Timeout.String(),
			)
			app := viewer.New(o.cfg, o.logger, viewer.Options{
				Version: o.version,
				Out:     o.out,
			})
			return app.Run(cmd.Context())
		},
	}
	config.BindServerFlags(cmd.Flags(), o.flags)
	config.BindDemoFlags(cmd.Flags(), o.flags)
	return cmd
}
