package executor

import (
	"slices"
	"sync"

	"github.com/sells-group/navigator/internal/model"
)

// Progress accumulates results and artifacts while a plan runs. It is safe
// for concurrent use, so a caller that stopped waiting can still read what
// the worker gathered.
type Progress struct {
	mu        sync.Mutex
	results   []model.Listing
	artifacts model.Artifacts
}

// NewProgress returns an empty Progress.
func NewProgress() *Progress {
	return &Progress{
		results: []model.Listing{},
		artifacts: model.Artifacts{
			Screenshots: []string{},
			Steps:       []model.StepReport{},
		},
	}
}

// Snapshot returns copies of the results and artifacts gathered so far.
func (p *Progress) Snapshot() ([]model.Listing, model.Artifacts) {
	p.mu.Lock()
	defer p.mu.Unlock()

	art := p.artifacts
	art.Screenshots = slices.Clone(p.artifacts.Screenshots)
	art.HTML = slices.Clone(p.artifacts.HTML)
	art.Steps = slices.Clone(p.artifacts.Steps)
	return slices.Clone(p.results), art
}

func (p *Progress) update(fn func(res *[]model.Listing, art *model.Artifacts)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.results, &p.artifacts)
}

func (p *Progress) addResults(ls []model.Listing) {
	p.update(func(res *[]model.Listing, _ *model.Artifacts) { *res = append(*res, ls...) })
}

func (p *Progress) addStep(r model.StepReport) {
	p.update(func(_ *[]model.Listing, art *model.Artifacts) { art.Steps = append(art.Steps, r) })
}

func (p *Progress) setRunDir(dir string) {
	p.update(func(_ *[]model.Listing, art *model.Artifacts) { art.RunDir = dir })
}

func (p *Progress) setLastURL(u string) {
	p.update(func(_ *[]model.Listing, art *model.Artifacts) { art.LastURL = u })
}
