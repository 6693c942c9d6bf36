package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/navigator/internal/config"
	"github.com/sells-group/navigator/internal/model"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(), func(context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("503"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(), func(context.Context) error {
		calls++
		return NewTransientError(errors.New("429"), 429)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorNoRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(), func(context.Context) error {
		calls++
		return errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := fastRetry()
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour
	cfg.OnRetry = func(int, error) { cancel() }

	err := Do(ctx, cfg, func(context.Context) error {
		calls++
		return NewTransientError(errors.New("503"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal(t *testing.T) {
	t.Parallel()

	var retries []int
	cfg := fastRetry()
	cfg.OnRetry = func(attempt int, _ error) { retries = append(retries, attempt) }
	cfg.ShouldRetry = func(error) bool { return true }

	calls := 0
	v, err := DoVal(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, []int{1}, retries)
}

func TestComputeBackoff(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, computeBackoff(0, cfg))
	assert.Equal(t, 400*time.Millisecond, computeBackoff(2, cfg))
	assert.Equal(t, time.Second, computeBackoff(10, cfg))

	cfg.JitterFraction = 0.5
	for range 50 {
		d := computeBackoff(0, cfg)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestExtractBackoff(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1600*time.Millisecond, ExtractBackoff(1, 1.6, MaxExtractDelay))
	assert.Equal(t, 2560*time.Millisecond, ExtractBackoff(2, 1.6, MaxExtractDelay))
	assert.Equal(t, 4100*time.Millisecond, ExtractBackoff(3, 1.6, MaxExtractDelay))
	assert.Equal(t, MaxExtractDelay, ExtractBackoff(4, 1.6, MaxExtractDelay))
}

type fakeReloader struct {
	calls int
	err   error
}

func (f *fakeReloader) Reload(context.Context) error {
	f.calls++
	return f.err
}

func recs(n int) []model.ListingRecord {
	out := make([]model.ListingRecord, n)
	for i := range out {
		out[i] = model.ListingRecord{Title: "Laptop", Price: "₹40,000"}
	}
	return out
}

func TestRetryExtract_FirstAttempt(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	rl := &fakeReloader{}
	got, out := RetryExtract(context.Background(),
		func(context.Context) ([]model.ListingRecord, error) { return recs(2), nil },
		rl,
		ExtractRetryConfig{Retries: 3, Sleep: func(d time.Duration) { slept = append(slept, d) }},
	)

	assert.Len(t, got, 2)
	assert.Equal(t, 1, out.Attempts)
	assert.Len(t, out.AttemptDurations, 1)
	assert.Empty(t, out.LastError)
	assert.Empty(t, slept)
	assert.Zero(t, rl.calls)
}

func TestRetryExtract_EmptyThenSuccess(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	rl := &fakeReloader{err: errors.New("reload failed")}
	calls := 0
	got, out := RetryExtract(context.Background(),
		func(context.Context) ([]model.ListingRecord, error) {
			calls++
			if calls < 3 {
				return nil, nil
			}
			return recs(1), nil
		},
		rl,
		ExtractRetryConfig{Retries: 3, BackoffBase: 1.6, Sleep: func(d time.Duration) { slept = append(slept, d) }},
	)

	assert.Len(t, got, 1)
	assert.Equal(t, 3, out.Attempts)
	assert.Len(t, out.AttemptDurations, 3)
	assert.Equal(t, []time.Duration{1600 * time.Millisecond, 2560 * time.Millisecond}, slept)
	assert.Equal(t, 2, rl.calls)
}

func TestRetryExtract_ErrorsThenSuccess(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	rl := &fakeReloader{}
	calls := 0
	got, out := RetryExtract(context.Background(),
		func(context.Context) ([]model.ListingRecord, error) {
			calls++
			switch calls {
			case 1:
				return nil, errors.New("product grid missing")
			case 2:
				return nil, errors.New("price selector stale")
			}
			return recs(2), nil
		},
		rl,
		ExtractRetryConfig{Retries: 3, Sleep: func(d time.Duration) { slept = append(slept, d) }},
	)

	assert.Len(t, got, 2)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, out.Attempts)
	assert.Len(t, out.AttemptDurations, 3)
	assert.Equal(t, "price selector stale", out.LastError)
	assert.Equal(t, ErrorPermanent, out.ErrorType)
	assert.Len(t, slept, 2)
	assert.Equal(t, 2, rl.calls)
}

func TestRetryExtract_ErrorsAndPanicsRecorded(t *testing.T) {
	t.Parallel()

	calls := 0
	got, out := RetryExtract(context.Background(),
		func(context.Context) ([]model.ListingRecord, error) {
			calls++
			switch calls {
			case 1:
				return nil, NewTransientError(errors.New("timeout waiting for grid"), 0)
			case 2:
				panic("selector blew up")
			}
			return nil, nil
		},
		nil,
		ExtractRetryConfig{Retries: 3, Sleep: func(time.Duration) {}},
	)

	assert.Empty(t, got)
	assert.Equal(t, 3, out.Attempts)
	assert.Contains(t, out.LastError, "selector blew up")
	assert.Equal(t, ErrorPermanent, out.ErrorType)
}

func TestRetryExtract_ErrorKeepsEarlierResults(t *testing.T) {
	t.Parallel()

	calls := 0
	got, out := RetryExtract(context.Background(),
		func(context.Context) ([]model.ListingRecord, error) {
			calls++
			if calls == 1 {
				return []model.ListingRecord{}, nil
			}
			return nil, errors.New("detached frame")
		},
		nil,
		ExtractRetryConfig{Retries: 2, Sleep: func(time.Duration) {}},
	)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, "detached frame", out.LastError)
}

func TestRetryExtract_MinimumOneAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	_, out := RetryExtract(context.Background(),
		func(context.Context) ([]model.ListingRecord, error) { calls++; return nil, nil },
		nil,
		ExtractRetryConfig{Retries: 0, Sleep: func(time.Duration) { t.Fatal("unexpected sleep") }},
	)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, out.Attempts)
}

func TestRetryExtract_DurationsRounded(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(1234567 * time.Microsecond)}
	i := 0
	_, out := RetryExtract(context.Background(),
		func(context.Context) ([]model.ListingRecord, error) { return recs(1), nil },
		nil,
		ExtractRetryConfig{Retries: 1, Now: func() time.Time { v := ticks[i]; i++; return v }},
	)
	assert.Equal(t, []float64{1.235}, out.AttemptDurations)
}

func TestFromSiteConfig(t *testing.T) {
	t.Parallel()

	ec := config.ExtractConfig{Retries: 3, BackoffBase: 1.6}
	cfg := FromSiteConfig("flipkart", config.SiteConfig{}, ec)
	assert.Equal(t, 3, cfg.Retries)
	assert.InDelta(t, 1.6, cfg.BackoffBase, 1e-9)
	assert.Equal(t, "flipkart", cfg.Label)

	cfg = FromSiteConfig("amazon", config.SiteConfig{Retries: 5, BackoffBase: 2}, ec)
	assert.Equal(t, 5, cfg.Retries)
	assert.InDelta(t, 2.0, cfg.BackoffBase, 1e-9)
}

func TestCircuitConfigFor(t *testing.T) {
	t.Parallel()

	cfg := CircuitConfigFor("shop")
	assert.Equal(t, "shop", cfg.Name)
	assert.True(t, cfg.ShouldTrip(NewTransientError(errBoom, 503)))
	assert.False(t, cfg.ShouldTrip(errBoom))
}
