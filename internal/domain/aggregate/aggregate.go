// Package aggregate groups resolved, apportioned rows by a business
// dimension and sums a metric. Dirty categorical labels collapse into an
// explicit "Unknown" bucket; output ordering follows the dimension kind:
// chronological for months, the fixed plan-tier rank for ranked categories,
// sorted keys otherwise.
package aggregate

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/domain/temporal"
)

// UnknownBucket is the label dirty categorical values collapse into.
const UnknownBucket = "Unknown"

// tierOrder is the known finite ordering applied when the dimension is a
// ranked plan category.
var tierOrder = []string{
	"mass",
	"mid",
	"high",
	"premium",
	"super premium",
	"luxury flip",
	"luxury fold",
}

var tierIndex = func() map[string]int {
	m := make(map[string]int, len(tierOrder))
	for i, v := range tierOrder {
		m[v] = i
	}
	return m
}()

var wsRe = strings.NewReplacer("\t", " ", "\n", " ")

// Spec describes one aggregation request: per-row labels (or month keys for
// temporal dimensions) aligned with per-row metric values.
type Spec struct {
	// Labels holds the categorical dimension value per row. Ignored when
	// Months is set.
	Labels []string
	// Months holds the parsed month bucket per row for temporal
	// dimensions; rows with a zero month are excluded.
	Months []time.Time
	// Values is the metric value per row.
	Values []float64
	// Clean applies Unknown-bucketing to categorical labels.
	Clean bool
	// Ranked applies the plan-tier rank order to the output.
	Ranked bool
}

// Aggregate groups the spec's rows and sums values per dimension bucket.
// An empty or inconsistent spec yields an empty result, never an error.
func Aggregate(s Spec) []model.AggregateRow {
	if s.Months != nil {
		return byMonth(s.Months, s.Values)
	}
	return byLabel(s)
}

func byMonth(months []time.Time, values []float64) []model.AggregateRow {
	if len(months) == 0 || len(months) != len(values) {
		return nil
	}
	sums := make(map[time.Time]float64)
	for i, m := range months {
		if m.IsZero() {
			continue
		}
		sums[m] += values[i]
	}
	keys := make([]time.Time, 0, len(sums))
	for m := range sums {
		keys = append(keys, m)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	out := make([]model.AggregateRow, 0, len(keys))
	for _, m := range keys {
		out = append(out, model.AggregateRow{
			Dimension: temporal.FormatMonth(m),
			Value:     finite(sums[m]),
			Month:     m,
		})
	}
	return out
}

func byLabel(s Spec) []model.AggregateRow {
	if len(s.Labels) == 0 || len(s.Labels) != len(s.Values) {
		return nil
	}
	sums := make(map[string]float64)
	var keys []string
	for i, label := range s.Labels {
		if s.Clean {
			label = CleanLabel(label)
		} else {
			label = strings.TrimSpace(label)
		}
		if _, ok := sums[label]; !ok {
			keys = append(keys, label)
		}
		sums[label] += s.Values[i]
	}
	if s.Ranked {
		sort.SliceStable(keys, func(i, j int) bool {
			ri, iok := tierIndex[NormalizeTier(keys[i])]
			rj, jok := tierIndex[NormalizeTier(keys[j])]
			switch {
			case iok && jok:
				return ri < rj
			case iok:
				return true
			case jok:
				return false
			default:
				return keys[i] < keys[j]
			}
		})
	} else {
		sort.Strings(keys)
	}
	out := make([]model.AggregateRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, model.AggregateRow{Dimension: k, Value: finite(sums[k])})
	}
	return out
}

// CleanLabel trims a categorical value and collapses the blank tokens
// partners ship ("", "0", "nan", "none") into the Unknown bucket.
func CleanLabel(s string) string {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "", "0", "nan", "none", "null":
		return UnknownBucket
	}
	return v
}

// NormalizeTier lower-cases a plan-tier label, collapses whitespace, and
// fixes the flip/fold spelling inversions seen in partner files.
func NormalizeTier(s string) string {
	v := strings.ToLower(strings.TrimSpace(wsRe.Replace(s)))
	v = strings.Join(strings.Fields(v), " ")
	v = strings.ReplaceAll(v, "flip luxury", "luxury flip")
	v = strings.ReplaceAll(v, "fold luxury", "luxury fold")
	return v
}

// LooksRanked reports whether any label matches a known plan tier, the
// signal that plan_category output should use the rank order.
func LooksRanked(labels []string) bool {
	for _, l := range labels {
		if _, ok := tierIndex[NormalizeTier(l)]; ok {
			return true
		}
	}
	return false
}

// finite maps NaN and infinities to 0; non-finite numbers never leave the
// engine.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
