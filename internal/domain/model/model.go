// Package model contains domain models passed between layers.
package model

import "time"

// DatasetKind identifies which side of the book a record belongs to.
type DatasetKind string

// Supported dataset kinds.
const (
	KindSales  DatasetKind = "sales"
	KindClaims DatasetKind = "claims"
)

// Valid reports whether k is a known dataset kind.
func (k DatasetKind) Valid() bool {
	return k == KindSales || k == KindClaims
}

// Record is one raw row as submitted by a partner: arbitrary key/value
// fields tagged with partner, dataset kind, and an optional batch id.
// Records are immutable once stored.
type Record struct {
	Partner string         `json:"partner"`
	Kind    DatasetKind    `json:"dataset_kind"`
	BatchID string         `json:"batch_id,omitempty"`
	Data    map[string]any `json:"data"`
}

// AggregateRow is one output row of a dimension aggregation:
// a dimension label and a summed metric (or a loss ratio).
type AggregateRow struct {
	Dimension string
	Value     float64
	// Month carries the parsed bucket when the dimension is temporal,
	// used for chronological ordering; zero otherwise.
	Month time.Time
	// Extra holds partner-specific companion values (e.g. reliance's
	// extended-warranty unit count merged into quantity rows).
	Extra map[string]float64
}

// Summary is the no-dimension rollup returned by ComputeSummary.
type Summary struct {
	GrossPremium        float64 `json:"gross_premium"`
	EarnedPremium       float64 `json:"earned_premium"`
	SharedEarnedPremium float64 `json:"shared_earned_premium"`
	UnitCount           int     `json:"unit_count"`
}

// Add accumulates another summary into s, used when a partner overview
// merges several sub-variants.
func (s *Summary) Add(o Summary) {
	s.GrossPremium += o.GrossPremium
	s.EarnedPremium += o.EarnedPremium
	s.SharedEarnedPremium += o.SharedEarnedPremium
	s.UnitCount += o.UnitCount
}

// Freshness reports when a (partner, kind, batch) tag last received writes
// and the date bounds observed inside the data itself.
type Freshness struct {
	Partner     string      `json:"partner"`
	Kind        DatasetKind `json:"dataset_kind"`
	BatchKey    string      `json:"batch_key,omitempty"`
	LastUpdated time.Time   `json:"last_updated"`
	DataFrom    time.Time   `json:"data_from,omitempty"`
	DataTo      time.Time   `json:"data_to,omitempty"`
}
