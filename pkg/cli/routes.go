package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/getmockd/rxmux/pkg/logging"
)

var routesConfigPath string

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the routes of the demo server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(&serveFlags{configPath: routesConfigPath})
		if err != nil {
			return err
		}
		app, err := NewApp(cfg, logging.Nop())
		if err != nil {
			return err
		}
		routes := app.Routes()

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(routes)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "METHOD\tPATTERN\tKIND")
		for _, rt := range routes {
			kind := "route"
			if rt.Mount {
				kind = "middleware"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", rt.Method, rt.Pattern, kind)
		}
		return tw.Flush()
	},
}

func init() {
	routesCmd.Flags().StringVarP(&routesConfigPath, "config", "c", "", "Path to config file (YAML or JSON)")
	rootCmd.AddCommand(routesCmd)
}
