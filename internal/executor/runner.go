package executor

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/navigator/internal/model"
	"github.com/sells-group/navigator/internal/scorer"
)

// DefaultTimeout bounds a run when none is configured.
const DefaultTimeout = 90 * time.Second

// Runner executes a plan on one worker goroutine under a deadline.
type Runner struct {
	exec    *Executor
	timeout time.Duration
}

// NewRunner returns a Runner. A non-positive timeout means DefaultTimeout.
func NewRunner(exec *Executor, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{exec: exec, timeout: timeout}
}

// Timeout returns the run deadline.
func (r *Runner) Timeout() time.Duration { return r.timeout }

// Run executes plan and waits at most the runner timeout. On timeout the
// worker is left running and the result carries whatever it gathered so
// far with OK=false. Completed runs come back ranked by score.
func (r *Runner) Run(ctx context.Context, query string, plan model.Plan) model.RunResult {
	p := NewProgress()
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- eris.Errorf("executor: panic: %v", rec)
			}
		}()
		done <- r.exec.ExecuteInto(ctx, plan, p)
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	var runErr error
	select {
	case runErr = <-done:
	case <-timer.C:
		runErr = eris.Errorf("timed out after %ds", int(r.timeout.Seconds()))
		zap.L().Error("run timed out", zap.Duration("timeout", r.timeout))
	case <-ctx.Done():
		runErr = eris.Wrap(ctx.Err(), "run cancelled")
	}

	results, art := p.Snapshot()
	res := model.RunResult{
		OK:        runErr == nil,
		Query:     query,
		Plan:      plan,
		Results:   scorer.Rank(results),
		Artifacts: art,
	}
	if runErr != nil {
		res.Error = runErr.Error()
		if res.Artifacts.Error == "" {
			res.Artifacts.Error = res.Error
		}
	}
	return res
}
