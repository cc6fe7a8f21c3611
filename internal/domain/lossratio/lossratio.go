// Package lossratio joins independently aggregated claims and sales series
// into loss ratios. The two sides rarely label dimensions identically, so a
// normalized join key distinct from the display label bridges them; a zero
// earned-premium denominator is the defined "no exposure, no ratio" case
// and yields 0, not an error.
package lossratio

import (
	"math"
	"regexp"
	"strings"

	"github.com/zopper/recon/internal/domain/model"
)

const percent = 100

// ordinalPrefixRe strips leading ordinal prefixes like "12 - " that some
// partners prepend to dimension labels for spreadsheet sort order.
var ordinalPrefixRe = regexp.MustCompile(`^\d+\s*-\s*`)

// JoinKey normalizes a dimension label into the key both sides join on:
// lower-cased, ordinal prefix stripped, underscores as spaces, whitespace
// collapsed.
func JoinKey(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = ordinalPrefixRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Join left-joins aggregated net-claims rows onto aggregated earned-premium
// rows by join key and computes ratio = claims / premium * 100. The claims
// side's label is used for display when both sides match. Sales buckets
// with no claims are appended with ratio 0 so the output covers the full
// sold book.
func Join(claims, sales []model.AggregateRow) []model.AggregateRow {
	premiums := make(map[string]float64, len(sales))
	matched := make(map[string]bool, len(sales))
	for _, s := range sales {
		key := JoinKey(s.Dimension)
		if _, ok := premiums[key]; !ok {
			premiums[key] = s.Value
		} else {
			premiums[key] += s.Value
		}
	}

	out := make([]model.AggregateRow, 0, len(claims)+len(sales))
	for _, c := range claims {
		key := JoinKey(c.Dimension)
		matched[key] = true
		out = append(out, model.AggregateRow{
			Dimension: c.Dimension,
			Month:     c.Month,
			Value:     Ratio(c.Value, premiums[key]),
		})
	}
	for _, s := range sales {
		if matched[JoinKey(s.Dimension)] {
			continue
		}
		matched[JoinKey(s.Dimension)] = true
		out = append(out, model.AggregateRow{
			Dimension: s.Dimension,
			Month:     s.Month,
			Value:     0,
		})
	}
	return out
}

// Ratio computes a loss ratio percentage with the zero-denominator and
// non-finite cases defined as 0.
func Ratio(netClaims, earnedPremium float64) float64 {
	if earnedPremium == 0 {
		return 0
	}
	r := netClaims / earnedPremium * percent
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
