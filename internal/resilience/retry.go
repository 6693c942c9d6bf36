package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/navigator/internal/model"
)

// RetryConfig controls request-level retries with exponential backoff and
// jitter. It is used for single HTTP calls inside an extractor.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// Default: 3.
	MaxAttempts int

	// InitialBackoff is the base delay before the first retry. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: 30s.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64

	// JitterFraction adds ±fraction random jitter. Default: 0.
	JitterFraction float64

	// ShouldRetry overrides the IsTransient check.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the request retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, attempts run
// out, or ctx is done.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(lastErr) || attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(computeBackoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	delay = math.Min(delay, float64(cfg.MaxBackoff))

	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}
	return time.Duration(math.Max(delay, 0))
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

// ExtractFunc performs one extraction attempt.
type ExtractFunc func(ctx context.Context) ([]model.ListingRecord, error)

// Reloader recovers a page between extraction attempts.
type Reloader interface {
	Reload(ctx context.Context) error
}

// MaxExtractDelay caps the sleep between extraction attempts.
const MaxExtractDelay = 6 * time.Second

// ExtractRetryConfig controls page-level extraction retries.
type ExtractRetryConfig struct {
	// Retries is the total number of attempts. Values below 1 mean 1.
	Retries int
	// BackoffBase is raised to the attempt number to get the delay in
	// seconds. Default: 1.6.
	BackoffBase float64
	// MaxDelay caps each sleep. Default: MaxExtractDelay.
	MaxDelay time.Duration
	// Label names the site in logs.
	Label string

	// Sleep and Now are swapped out in tests.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// ExtractBackoff returns min(base^attempt, maxDelay), with the exponent
// rounded to hundredths of a second.
func ExtractBackoff(attempt int, base float64, maxDelay time.Duration) time.Duration {
	secs := math.Round(math.Pow(base, float64(attempt))*100) / 100
	d := time.Duration(math.Round(secs * float64(time.Second)))
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// RetryExtract calls fn until it yields at least one listing or attempts
// run out. Between attempts it sleeps without interruption and asks the
// reloader to refresh the page, ignoring reload failures. Errors and panics
// from fn are recorded in the outcome, never returned. After the last
// attempt it returns the most recent listings obtained, possibly none.
func RetryExtract(ctx context.Context, fn ExtractFunc, reloader Reloader, cfg ExtractRetryConfig) ([]model.ListingRecord, model.RetryOutcome) {
	tries := max(cfg.Retries, 1)
	base := cfg.BackoffBase
	if base <= 0 {
		base = 1.6
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = MaxExtractDelay
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := zap.L().With(zap.String("site", cfg.Label))

	outcome := model.RetryOutcome{AttemptDurations: []float64{}}
	var results []model.ListingRecord

	for attempt := 1; attempt <= tries; attempt++ {
		outcome.Attempts = attempt
		log.Info("extract attempt", zap.Int("attempt", attempt), zap.Int("of", tries))

		start := now()
		got, err := safeExtract(ctx, fn)
		outcome.AttemptDurations = append(outcome.AttemptDurations, roundMillis(now().Sub(start)))

		if err != nil {
			outcome.LastError = err.Error()
			outcome.ErrorType = ClassifyError(err)
			log.Warn("extract attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		} else {
			results = got
			if len(results) > 0 {
				log.Info("extract attempt succeeded", zap.Int("attempt", attempt), zap.Int("count", len(results)))
				return results, outcome
			}
		}

		if attempt == tries {
			break
		}

		delay := ExtractBackoff(attempt, base, maxDelay)
		log.Warn("extract attempt returned nothing, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
		sleep(delay)

		if reloader != nil {
			if rerr := reloader.Reload(ctx); rerr != nil {
				log.Debug("page reload failed", zap.Error(rerr))
			}
		}
	}

	log.Warn("extract attempts exhausted", zap.Int("attempts", outcome.Attempts), zap.Int("count", len(results)))
	return results, outcome
}

func safeExtract(ctx context.Context, fn ExtractFunc) (recs []model.ListingRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			recs, err = nil, fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return fn(ctx)
}

func roundMillis(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
