package resilience

import (
	"github.com/sells-group/navigator/internal/config"
)

// FromSiteConfig builds the page-level retry settings for one site, falling
// back to the extract-wide defaults where the site leaves a value unset.
func FromSiteConfig(site string, sc config.SiteConfig, ec config.ExtractConfig) ExtractRetryConfig {
	cfg := ExtractRetryConfig{
		Retries:     ec.Retries,
		BackoffBase: ec.BackoffBase,
		MaxDelay:    MaxExtractDelay,
		Label:       site,
	}
	if sc.Retries > 0 {
		cfg.Retries = sc.Retries
	}
	if sc.BackoffBase > 0 {
		cfg.BackoffBase = sc.BackoffBase
	}
	return cfg
}

// RequestRetryConfig returns the HTTP request retry settings for a remote
// site. Only the first attempt and one retry are made per page attempt.
func RequestRetryConfig(site string) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 2
	cfg.OnRetry = RetryLogger(site, "search")
	return cfg
}

// CircuitConfigFor returns the breaker settings for a remote site.
func CircuitConfigFor(site string) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	cfg.Name = site
	cfg.ShouldTrip = IsTransient
	return cfg
}
