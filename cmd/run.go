package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/navigator/internal/export"
	"github.com/sells-group/navigator/internal/model"
	"github.com/sells-group/navigator/internal/planner"
)

var (
	runMaxResults int
	runSite       string
	runBudget     int
	runMinPrice   int
	runInclude    string
	runExclude    string
	runPlanFile   string
	runExport     string
	runNoHistory  bool
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Plan and execute a listing search",
	Example: `  navigator run "top 5 laptops under 50k on flipkart"
  navigator run "gaming laptops" --site amazon --budget 80000 --include rtx --export csv,xlsx
  navigator run --plan plan.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req, err := runRequestFromFlags(cmd, args)
		if err != nil {
			return err
		}
		plan, err := resolvePlan(req, runPlanFile)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "run", !runNoHistory)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("running plan", zap.String("query", req.Query), zap.Int("steps", len(plan.Steps)))
		res := env.execute(ctx, req.Query, plan)

		if formats := export.ParseFormats(runExport); len(formats) > 0 {
			if _, err := env.exportResults(&res, formats); err != nil {
				zap.L().Error("export failed", zap.Error(err))
			}
		}

		if err := writeJSON(os.Stdout, res); err != nil {
			return err
		}
		if !res.OK {
			return eris.Errorf("run failed: %s", res.Error)
		}
		return nil
	},
}

// runRequestFromFlags builds a request from the run flags. Only flags the
// user set become overrides.
func runRequestFromFlags(cmd *cobra.Command, args []string) (runRequest, error) {
	req := runRequest{
		Query:      strings.Join(args, " "),
		MaxResults: runMaxResults,
		Site:       runSite,
		Include:    model.ParseKeywords(runInclude),
		Exclude:    model.ParseKeywords(runExclude),
	}
	if cmd.Flags().Changed("budget") {
		req.Budget = model.IntPtr(runBudget)
	}
	if cmd.Flags().Changed("min-price") {
		req.MinPrice = model.IntPtr(runMinPrice)
	}

	if runPlanFile != "" && strings.TrimSpace(req.Query) == "" {
		// The plan file supplies the work; the query only labels the run.
		req.Query = "plan:" + runPlanFile
	}
	if err := req.validate(); err != nil {
		return req, err
	}
	return req, nil
}

// resolvePlan loads planFile when set, otherwise plans from the query.
// Overrides apply either way.
func resolvePlan(req runRequest, planFile string) (model.Plan, error) {
	if planFile == "" {
		return req.plan(), nil
	}
	plan, err := planner.LoadFile(planFile)
	if err != nil {
		return model.Plan{}, err
	}
	return planner.Apply(plan, req.overrides()), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return eris.Wrap(enc.Encode(v), "encode output")
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runMaxResults, "max-results", model.DefaultMaxResults, "maximum listings per step")
	f.StringVar(&runSite, "site", "", "force a site (e.g. flipkart, amazon)")
	f.IntVar(&runBudget, "budget", 0, "maximum price in INR")
	f.IntVar(&runMinPrice, "min-price", 0, "minimum price in INR")
	f.StringVar(&runInclude, "include", "", "comma-separated keywords a title must contain")
	f.StringVar(&runExclude, "exclude", "", "comma-separated keywords a title must not contain")
	f.StringVar(&runPlanFile, "plan", "", "execute a YAML or JSON plan file instead of planning from the query")
	f.StringVar(&runExport, "export", "csv,json", "export formats: csv, json, xlsx (empty to skip)")
	f.BoolVar(&runNoHistory, "no-history", false, "do not record the run in history")
	rootCmd.AddCommand(runCmd)
}
