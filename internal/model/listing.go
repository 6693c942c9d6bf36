package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PriceText is the raw price string shown by a store. Extractors sometimes
// emit it as a JSON number, so both shapes decode into text.
type PriceText string

// UnmarshalJSON accepts a string, a number, or null.
func (p *PriceText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PriceText(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PriceText(n.String())
	return nil
}

// Specs holds structured hardware fields. Numeric fields are nil and string
// fields empty when unknown.
type Specs struct {
	Brand        string   `json:"brand"`
	CPU          string   `json:"cpu"`
	CPUBrand     string   `json:"cpu_brand,omitempty"`
	RAMGB        *int     `json:"ram_gb"`
	StorageSSDGB *int     `json:"storage_ssd_gb"`
	StorageHDDGB *int     `json:"storage_hdd_gb"`
	GPU          string   `json:"gpu"`
	OS           string   `json:"os"`
	ScreenInches *float64 `json:"screen_inches"`
}

// Fill returns a copy of s where every absent field takes the value from
// inferred. Fields already present are never replaced.
func (s Specs) Fill(inferred Specs) Specs {
	out := s
	if out.Brand == "" {
		out.Brand = inferred.Brand
	}
	if out.CPU == "" {
		out.CPU = inferred.CPU
	}
	if out.CPUBrand == "" {
		out.CPUBrand = inferred.CPUBrand
	}
	if out.RAMGB == nil {
		out.RAMGB = inferred.RAMGB
	}
	if out.StorageSSDGB == nil {
		out.StorageSSDGB = inferred.StorageSSDGB
	}
	if out.StorageHDDGB == nil {
		out.StorageHDDGB = inferred.StorageHDDGB
	}
	if out.GPU == "" {
		out.GPU = inferred.GPU
	}
	if out.OS == "" {
		out.OS = inferred.OS
	}
	if out.ScreenInches == nil {
		out.ScreenInches = inferred.ScreenInches
	}
	return out
}

// IsZero reports whether no field is known.
func (s Specs) IsZero() bool {
	return s.Brand == "" && s.CPU == "" && s.CPUBrand == "" && s.GPU == "" && s.OS == "" &&
		s.RAMGB == nil && s.StorageSSDGB == nil && s.StorageHDDGB == nil && s.ScreenInches == nil
}

// ListingRecord is a single product entry as returned by a site extractor.
type ListingRecord struct {
	Title      string    `json:"title"`
	Price      PriceText `json:"price"`
	PriceValue *int      `json:"price_value"`
	Link       string    `json:"link"`
	Source     string    `json:"source"`
	Image      string    `json:"image,omitempty"`
	Specs
}

// Listing is a ListingRecord after enrichment and scoring.
type Listing struct {
	ListingRecord
	WhyChoose string   `json:"why_choose"`
	Score     float64  `json:"score"`
	Pros      []string `json:"pros"`
	Cons      []string `json:"cons"`
}

// FromRecords wraps raw extractor output for the post-processing stages.
func FromRecords(recs []ListingRecord) []Listing {
	out := make([]Listing, 0, len(recs))
	for _, r := range recs {
		out = append(out, Listing{ListingRecord: r})
	}
	return out
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }
