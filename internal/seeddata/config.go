// Package seeddata generates synthetic partner sales and claims batches
// and submits them to a running service, then reads back the summary for
// each partner as a smoke check.
package seeddata

import "time"

// Config holds seeding run parameters.
type Config struct {
	BaseURL      string
	RowsPerBatch int
	Workers      int
	Timeout      time.Duration
	Partners     []string
	Verbose      bool
}

// Stats tracks what a run generated and stored.
type Stats struct {
	BatchesSubmitted int
	RowsGenerated    int
	RowsStored       int
	BatchesFailed    int
	Duration         time.Duration
}

// DefaultPartners are seeded when no partner list is given.
func DefaultPartners() []string {
	return []string{"samsung_vs", "samsung_croma", "godrej", "reliance"}
}
