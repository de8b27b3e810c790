package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-demo-viewer/internal/apiclient"
	"github.com/randomizedcoder/go-demo-viewer/internal/config"
	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
)

func newListCommand(o *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List demos, locally or from a running server (--server)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var units []registry.Unit
			if cmd.Flags().Changed("server") {
				client := apiclient.New(o.cfg.ServerURL, o.cfg.Timeout)
				var err error
				units, err = client.Demos(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				units = newRegistry(o).List()
			}

			if asJSON {
				enc := json.NewEncoder(o.out)
				enc.SetIndent("", "  ")
				return enc.Encode(units)
			}

			if len(units) == 0 {
				fmt.Fprintln(o.out, "No demos found")
				return nil
			}
			tw := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tFILE")
			for _, u := range units {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Name, u.File)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the listing as JSON")
	config.BindDemoFlags(cmd.Flags(), o.flags)
	cmd.Flags().StringVar(&o.flags.ServerURL, "server", o.flags.ServerURL, "Query this viewer server instead of the local directory")
	return cmd
}

func newRegistry(o *options) *registry.Registry {
	return registry.New(registry.Config{
		Dir:       o.cfg.DemoPath(),
		Suffix:    o.cfg.Suffix,
		Extension: o.cfg.Extension,
		Logger:    o.logger,
	})
}
