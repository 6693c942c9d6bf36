package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/navigator/internal/model"
	"github.com/sells-group/navigator/internal/planner"
)

var (
	planMaxResults int
	planFormat     string
)

var planCmd = &cobra.Command{
	Use:   "plan <query>",
	Short: "Print the plan a query would run, without executing it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan := planner.FromQuery(strings.Join(args, " "), planMaxResults)

		switch strings.ToLower(planFormat) {
		case "json":
			return writeJSON(os.Stdout, plan)
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(plan); err != nil {
				return eris.Wrap(err, "encode plan")
			}
			return eris.Wrap(enc.Close(), "encode plan")
		default:
			return eris.Errorf("unknown format %q (json or yaml)", planFormat)
		}
	},
}

func init() {
	planCmd.Flags().IntVar(&planMaxResults, "max-results", model.DefaultMaxResults, "maximum listings per step")
	planCmd.Flags().StringVar(&planFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(planCmd)
}
