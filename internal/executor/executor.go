// Package executor runs plan steps against site extractors: it checks the
// result cache, extracts with retries, post-processes and scores listings,
// and records a report and artifacts for every step.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/navigator/internal/cache"
	"github.com/sells-group/navigator/internal/extract"
	"github.com/sells-group/navigator/internal/model"
	"github.com/sells-group/navigator/internal/postprocess"
	"github.com/sells-group/navigator/internal/resilience"
	"github.com/sells-group/navigator/internal/scorer"
)

// ErrSessionOpen is returned when no session could be opened for a run.
// It is the only failure that aborts a plan.
var ErrSessionOpen = eris.New("executor: open session")

// SessionOpenError carries the provider failure behind ErrSessionOpen.
// errors.Is matches both ErrSessionOpen and the underlying cause.
type SessionOpenError struct {
	Err error
}

func (e *SessionOpenError) Error() string {
	return ErrSessionOpen.Error() + ": " + e.Err.Error()
}

func (e *SessionOpenError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSessionOpen.
func (e *SessionOpenError) Is(target error) bool { return target == ErrSessionOpen }

// Options wires an Executor.
type Options struct {
	Registry *extract.Registry
	Sessions extract.SessionProvider
	Cache    cache.Cache
	CacheTTL time.Duration
	Scorer   *scorer.Scorer
	RunsDir  string

	// Sleep replaces the backoff sleep between extraction attempts.
	Sleep func(time.Duration)
}

// Executor runs plans step by step.
type Executor struct {
	registry *extract.Registry
	sessions extract.SessionProvider
	cache    cache.Cache
	cacheTTL time.Duration
	scorer   *scorer.Scorer
	runsDir  string
	sleep    func(time.Duration)
	nowFunc  func() time.Time
}

// New returns an Executor. Nil collaborators get offline defaults.
func New(opts Options) *Executor {
	e := &Executor{
		registry: opts.Registry,
		sessions: opts.Sessions,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		scorer:   opts.Scorer,
		runsDir:  opts.RunsDir,
		sleep:    opts.Sleep,
		nowFunc:  time.Now,
	}
	if e.registry == nil {
		e.registry = extract.NewRegistry()
	}
	if e.sessions == nil {
		e.sessions = extract.NopProvider{}
	}
	if e.cache == nil {
		e.cache = cache.Nop{}
	}
	if e.cacheTTL <= 0 {
		e.cacheTTL = cache.DefaultTTL
	}
	if e.scorer == nil {
		e.scorer = scorer.New(scorer.DefaultScoringConfig())
	}
	return e
}

// Execute runs plan and returns everything gathered.
func (e *Executor) Execute(ctx context.Context, plan model.Plan) ([]model.Listing, model.Artifacts, error) {
	p := NewProgress()
	err := e.ExecuteInto(ctx, plan, p)
	res, art := p.Snapshot()
	return res, art, err
}

// ExecuteInto runs plan, recording into p as it goes. Step failures are
// recorded and execution continues; only run directory and session setup
// failures are returned.
func (e *Executor) ExecuteInto(ctx context.Context, plan model.Plan, p *Progress) error {
	runDir, err := MakeRunDir(e.runsDir, e.nowFunc())
	if err != nil {
		return err
	}
	p.setRunDir(runDir)

	zap.L().Info("executing plan",
		zap.Int("steps", len(plan.Steps)),
		zap.String("run_dir", runDir),
	)

	sess, err := e.sessions.Open(ctx, runDir)
	if err != nil {
		return &SessionOpenError{Err: err}
	}
	defer sess.Close() //nolint:errcheck

	for i, step := range plan.Steps {
		e.runStep(ctx, sess, runDir, i+1, step, p)
	}

	p.setLastURL(sess.URL())
	return nil
}

func (e *Executor) runStep(ctx context.Context, sess extract.Session, runDir string, idx int, raw model.PlanStep, p *Progress) {
	label := raw.Action
	if label == "" {
		label = fmt.Sprintf("step%d", idx)
	}

	defer func() {
		if r := recover(); r != nil {
			e.fail(ctx, sess, runDir, idx, raw.Action, label, eris.Errorf("panic: %v", r), p)
		}
	}()

	step := raw.Normalize()
	if step.Action != model.ActionExtractProducts {
		zap.L().Warn("unknown action", zap.Int("step", idx), zap.String("action", step.Action))
		p.addStep(model.StepReport{
			Index:  idx,
			Action: step.Action,
			Status: model.StepStatusSkipped,
			Reason: "unknown action",
		})
		e.captureInfo(ctx, sess, runDir, idx, fmt.Sprintf("unknown_%d", idx), p)
		return
	}

	if err := validateStep(step); err != nil {
		e.fail(ctx, sess, runDir, idx, step.Action, label, err, p)
		return
	}

	site := e.registry.Canonical(step.Site)
	opts := postprocess.OptionsFromStep(step, site)
	log := zap.L().With(zap.Int("step", idx), zap.String("site", site))
	log.Info("extract_products",
		zap.String("query", step.Query),
		zap.Int("max_results", step.MaxResults),
		zap.Intp("min_price", step.MinPrice),
		zap.Intp("max_price", step.MaxPrice),
		zap.Strings("include", step.Include),
		zap.Strings("exclude", step.Exclude),
	)

	fp := cache.Fingerprint(step, site)
	if hit, ok := e.cache.Get(ctx, fp); ok && len(hit) > 0 {
		out := e.scorer.EnrichAll(postprocess.Run(hit, opts), step.MaxPrice)
		log.Info("cache hit", zap.String("key", cache.KeyHash(fp)), zap.Int("count", len(out)))
		p.addResults(out)
		p.addStep(model.StepReport{
			Index:       idx,
			Action:      step.Action,
			Site:        site,
			Status:      model.StepStatusCached,
			Count:       len(out),
			Cached:      true,
			CacheTTLSec: int(e.cacheTTL.Seconds()),
		})
		return
	}

	_, ex, retryCfg, ok := e.registry.Lookup(site)
	if !ok {
		log.Warn("unsupported site")
		p.addStep(model.StepReport{
			Index:  idx,
			Action: step.Action,
			Site:   site,
			Status: model.StepStatusUnsupported,
			Reason: "unsupported site",
		})
		return
	}
	if e.sleep != nil {
		retryCfg.Sleep = e.sleep
	}

	req := extract.Request{Query: step.Query, MaxResults: step.MaxResults, MaxPrice: step.MaxPrice}
	recs, outcome := resilience.RetryExtract(ctx, func(ctx context.Context) ([]model.ListingRecord, error) {
		return ex.Extract(ctx, sess, req)
	}, sess, retryCfg)

	out := e.scorer.EnrichAll(postprocess.Run(model.FromRecords(recs), opts), step.MaxPrice)
	e.cache.Set(ctx, fp, out)
	e.captureInfo(ctx, sess, runDir, idx, site+"_products", p)

	status := model.StepStatusOK
	if len(out) == 0 && outcome.Attempts > 1 {
		status = model.StepStatusPartial
	}
	log.Info("step finished",
		zap.String("status", string(status)),
		zap.Int("count", len(out)),
		zap.Int("attempts", outcome.Attempts),
	)

	p.addResults(out)
	p.addStep(model.StepReport{
		Index:     idx,
		Action:    step.Action,
		Site:      site,
		Status:    status,
		Count:     len(out),
		Attempts:  outcome.Attempts,
		Durations: outcome.AttemptDurations,
		LastError: outcome.LastError,
		ErrorType: outcome.ErrorType,
	})
}

func validateStep(step model.PlanStep) error {
	if step.MinPrice != nil && *step.MinPrice < 0 {
		return eris.Errorf("executor: min_price %d is negative", *step.MinPrice)
	}
	if step.MaxPrice != nil && *step.MaxPrice < 0 {
		return eris.Errorf("executor: max_price %d is negative", *step.MaxPrice)
	}
	if step.MinPrice != nil && step.MaxPrice != nil && *step.MinPrice > *step.MaxPrice {
		return eris.Errorf("executor: min_price %d exceeds max_price %d", *step.MinPrice, *step.MaxPrice)
	}
	return nil
}

func (e *Executor) fail(ctx context.Context, sess extract.Session, runDir string, idx int, action, label string, err error, p *Progress) {
	zap.L().Error("step failed", zap.Int("step", idx), zap.String("action", action), zap.Error(err))

	var shot, html string
	if c, ok := sess.(extract.Capturer); ok {
		base := filepath.Join(runDir, fmt.Sprintf("error_step%d_%s", idx, label))
		if cerr := c.Screenshot(ctx, base+".png"); cerr == nil {
			shot = base + ".png"
		} else {
			zap.L().Warn("error screenshot failed", zap.Error(cerr))
		}
		if cerr := c.SaveHTML(ctx, base+".html"); cerr == nil {
			html = base + ".html"
		} else {
			zap.L().Warn("error html capture failed", zap.Error(cerr))
		}
	}

	p.update(func(_ *[]model.Listing, art *model.Artifacts) {
		if shot != "" {
			art.Screenshots = append(art.Screenshots, shot)
		}
		if html != "" {
			art.ErrorHTML = html
		}
		art.Error = err.Error()
		art.Steps = append(art.Steps, model.StepReport{
			Index:  idx,
			Action: action,
			Status: model.StepStatusError,
			Error:  err.Error(),
		})
	})
}

func (e *Executor) captureInfo(ctx context.Context, sess extract.Session, runDir string, idx int, label string, p *Progress) {
	c, ok := sess.(extract.Capturer)
	if !ok {
		return
	}
	base := filepath.Join(runDir, fmt.Sprintf("step%d_%s", idx, label))
	if err := c.Screenshot(ctx, base+".png"); err != nil {
		zap.L().Debug("screenshot failed", zap.Error(err))
		return
	}
	if err := c.SaveHTML(ctx, base+".html"); err != nil {
		zap.L().Debug("html capture failed", zap.Error(err))
		p.update(func(_ *[]model.Listing, art *model.Artifacts) {
			art.Screenshots = append(art.Screenshots, base+".png")
		})
		return
	}
	p.update(func(_ *[]model.Listing, art *model.Artifacts) {
		art.Screenshots = append(art.Screenshots, base+".png")
		art.HTML = append(art.HTML, base+".html")
	})
}
