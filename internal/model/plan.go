package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActionExtractProducts is the only action the executor knows how to run.
const ActionExtractProducts = "extract_products"

// Default values applied by PlanStep.Normalize.
const (
	DefaultSite       = "flipkart"
	DefaultMaxResults = 5
)

// Keywords is a list of title keywords. It decodes from either a list or a
// comma-joined string and is always lowercased, trimmed, and free of empties.
type Keywords []string

// ParseKeywords splits a comma-joined string into normalized keywords.
func ParseKeywords(s string) Keywords {
	return NormalizeKeywords(strings.Split(s, ","))
}

// NormalizeKeywords lowercases and trims each entry, dropping empties.
func NormalizeKeywords(in []string) Keywords {
	out := make(Keywords, 0, len(in))
	for _, w := range in {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// UnmarshalJSON accepts a string, a list of strings, or null.
func (k *Keywords) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*k = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = ParseKeywords(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*k = NormalizeKeywords(list)
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence.
func (k *Keywords) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*k = ParseKeywords(node.Value)
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*k = NormalizeKeywords(list)
	return nil
}

// PlanStep is one extraction request.
type PlanStep struct {
	Action     string   `json:"action" yaml:"action"`
	Site       string   `json:"site" yaml:"site"`
	Query      string   `json:"query" yaml:"query"`
	MaxResults int      `json:"max_results" yaml:"max_results"`
	MaxPrice   *int     `json:"max_price" yaml:"max_price"`
	MinPrice   *int     `json:"min_price,omitempty" yaml:"min_price,omitempty"`
	Include    Keywords `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude    Keywords `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// Normalize returns a copy with defaults applied and text fields cleaned.
func (s PlanStep) Normalize() PlanStep {
	out := s
	out.Action = strings.TrimSpace(s.Action)
	out.Site = strings.ToLower(strings.TrimSpace(s.Site))
	if out.Site == "" {
		out.Site = DefaultSite
	}
	out.Query = strings.TrimSpace(s.Query)
	if out.MaxResults <= 0 {
		out.MaxResults = DefaultMaxResults
	}
	out.Include = NormalizeKeywords(s.Include)
	out.Exclude = NormalizeKeywords(s.Exclude)
	return out
}

// Plan is an ordered list of steps.
type Plan struct {
	Steps []PlanStep `json:"plan" yaml:"plan"`
}
