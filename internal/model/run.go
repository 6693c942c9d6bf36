package model

import "time"

// StepStatus is the terminal state of a plan step.
type StepStatus string

const (
	StepStatusOK          StepStatus = "ok"
	StepStatusPartial     StepStatus = "partial"
	StepStatusCached      StepStatus = "cached"
	StepStatusSkipped     StepStatus = "skipped"
	StepStatusUnsupported StepStatus = "unsupported"
	StepStatusError       StepStatus = "error"
)

// RetryOutcome records how an extraction went across its attempts.
type RetryOutcome struct {
	Attempts         int       `json:"attempts"`
	AttemptDurations []float64 `json:"attempt_durations"`
	LastError        string    `json:"last_error,omitempty"`
	ErrorType        string    `json:"error_type,omitempty"`
}

// StepReport describes what happened to one plan step.
type StepReport struct {
	Index       int        `json:"index"`
	Action      string     `json:"action"`
	Site        string     `json:"site,omitempty"`
	Status      StepStatus `json:"status"`
	Count       int        `json:"count"`
	Attempts    int        `json:"attempts,omitempty"`
	Durations   []float64  `json:"durations,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	ErrorType   string     `json:"error_type,omitempty"`
	Cached      bool       `json:"cached"`
	CacheTTLSec int        `json:"cache_ttl_sec,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Artifacts collects the side outputs of a run.
type Artifacts struct {
	RunDir      string       `json:"run_dir"`
	Screenshots []string     `json:"screenshots"`
	HTML        []string     `json:"html,omitempty"`
	ErrorHTML   string       `json:"error_html,omitempty"`
	Error       string       `json:"error,omitempty"`
	LastURL     string       `json:"last_url,omitempty"`
	Steps       []StepReport `json:"steps"`
	Exports     []string     `json:"exports,omitempty"`
}

// RunResult is the outcome of executing a plan under a deadline.
type RunResult struct {
	OK        bool      `json:"ok"`
	Query     string    `json:"query,omitempty"`
	Plan      Plan      `json:"plan"`
	Results   []Listing `json:"results"`
	Artifacts Artifacts `json:"artifacts"`
	Error     string    `json:"error,omitempty"`
}

// RunRecord is a persisted history entry for a run.
type RunRecord struct {
	ID         string       `json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	Query      string       `json:"query"`
	Site       string       `json:"site"`
	MaxResults int          `json:"max_results"`
	MinPrice   *int         `json:"min_price"`
	MaxPrice   *int         `json:"max_price"`
	Count      int          `json:"count"`
	OK         bool         `json:"ok"`
	Error      string       `json:"error,omitempty"`
	RunDir     string       `json:"run_dir"`
	LastURL    string       `json:"last_url,omitempty"`
	Steps      []StepReport `json:"steps"`
}

// NewRunRecord summarizes a run result for history.
func NewRunRecord(query string, res RunResult) RunRecord {
	rec := RunRecord{
		Query:   query,
		Count:   len(res.Results),
		OK:      res.OK,
		Error:   res.Error,
		RunDir:  res.Artifacts.RunDir,
		LastURL: res.Artifacts.LastURL,
		Steps:   res.Artifacts.Steps,
	}
	if len(res.Plan.Steps) > 0 {
		first := res.Plan.Steps[0]
		rec.Site = first.Site
		rec.MaxResults = first.MaxResults
		rec.MinPrice = first.MinPrice
		rec.MaxPrice = first.MaxPrice
	}
	return rec
}
