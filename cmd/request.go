package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/navigator/internal/export"
	"github.com/sells-group/navigator/internal/model"
	"github.com/sells-group/navigator/internal/planner"
)

// maxRequestResults bounds max_results on requests.
const maxRequestResults = 20

// runRequest is a query plus the overrides a caller may apply on top of the
// generated plan. The CLI fills it from flags, the server from JSON.
type runRequest struct {
	Query      string         `json:"query"`
	MaxResults int            `json:"max_results,omitempty"`
	Site       string         `json:"site,omitempty"`
	Budget     *int           `json:"budget,omitempty"`
	MinPrice   *int           `json:"min_price,omitempty"`
	Include    model.Keywords `json:"include,omitempty"`
	Exclude    model.Keywords `json:"exclude,omitempty"`
	Format     string         `json:"fmt,omitempty"`
}

// validate checks the request and fills defaults.
func (r *runRequest) validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return eris.New("query is required")
	}
	if r.MaxResults == 0 {
		r.MaxResults = model.DefaultMaxResults
	}
	if r.MaxResults < 1 || r.MaxResults > maxRequestResults {
		return eris.Errorf("max_results must be between 1 and %d", maxRequestResults)
	}
	if r.Budget != nil && *r.Budget < 0 {
		return eris.New("budget must be >= 0")
	}
	if r.MinPrice != nil && *r.MinPrice < 0 {
		return eris.New("min_price must be >= 0")
	}
	return nil
}

func (r runRequest) overrides() planner.Overrides {
	return planner.Overrides{
		Site:     r.Site,
		Budget:   r.Budget,
		MinPrice: r.MinPrice,
		Include:  r.Include,
		Exclude:  r.Exclude,
	}
}

// plan builds the plan for r from its query.
func (r runRequest) plan() model.Plan {
	return planner.Apply(planner.FromQuery(r.Query, r.MaxResults), r.overrides())
}

// execute runs plan and records it in history when a store is configured.
func (e *appEnv) execute(ctx context.Context, query string, plan model.Plan) model.RunResult {
	res := e.Runner.Run(ctx, query, plan)
	e.recordHistory(ctx, query, res)
	return res
}

// recordHistory saves a run record. Failures are logged only.
func (e *appEnv) recordHistory(ctx context.Context, query string, res model.RunResult) {
	if e.Store == nil {
		return
	}
	rec, err := e.Store.SaveRun(ctx, model.NewRunRecord(query, res))
	if err != nil {
		zap.L().Warn("save run history", zap.Error(err))
		return
	}
	zap.L().Debug("run recorded", zap.String("run_id", rec.ID))
}

// exportResults writes res.Results next to the run's artifacts and records
// the paths on res. It returns the paths keyed by format.
func (e *appEnv) exportResults(res *model.RunResult, formats []string) (map[string]string, error) {
	if len(formats) == 0 {
		formats = []string{export.FormatCSV, export.FormatJSON}
	}
	dir := res.Artifacts.RunDir
	if dir == "" {
		dir = e.RunsDir
	}
	paths, err := export.Save(dir, res.Results, e.Scorer, formats...)
	for _, f := range formats {
		if p, ok := paths[f]; ok {
			res.Artifacts.Exports = append(res.Artifacts.Exports, p)
		}
	}
	if err != nil {
		return paths, eris.Wrap(err, "export results")
	}
	return paths, nil
}
