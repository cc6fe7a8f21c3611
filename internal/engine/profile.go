package engine

import (
	"time"

	"github.com/zopper/recon/internal/domain/apportion"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/domain/schema"
	"github.com/zopper/recon/internal/domain/table"
	"github.com/zopper/recon/internal/domain/temporal"
)

// Metric names accepted by ComputeByDimension.
const (
	MetricGrossPremium        = "gross_premium"
	MetricEarnedPremium       = "earned_premium"
	MetricSharedEarnedPremium = "shared_earned_premium"
	MetricQuantity            = "quantity"
	MetricClaims              = "claims"
	MetricNetClaims           = "net_claims"
	MetricLossRatio           = "loss_ratio"
)

// dimensionFields maps request dimension names to canonical fields. Unknown
// dimension names fall back to a literal column lookup.
var dimensionFields = map[string]schema.Field{
	"month":                schema.FieldMonth,
	"state":                schema.FieldState,
	"channel":              schema.FieldChannel,
	"brand":                schema.FieldBrand,
	"plan_category":        schema.FieldPlanCategory,
	"device_plan_category": schema.FieldDeviceCategory,
	"product_category":     schema.FieldProductCat,
}

// profile is everything partner-specific: alias tables, the reporting
// window policy, and the prepare hooks that derive per-row metric series.
// The orchestration around a profile is shared by all partners.
type profile struct {
	key string

	// sourcePattern returns the storage partner filter per kind. A "%"
	// suffix widens the read to sub-variant rows.
	sourcePattern func(e *engine, kind model.DatasetKind) string

	// window derives the effective reporting window from request bounds
	// and reports whether rows should be filtered by it.
	window func(from, to time.Time) (apportion.Window, bool)

	// defaultYear stamps month-only values during period parsing.
	defaultYear func(win apportion.Window) int

	salesAliases  schema.AliasTable
	claimsAliases schema.AliasTable

	prepareSales  func(e *engine, f *frame)
	prepareClaims func(e *engine, f *frame)

	// cleanDims lists fields whose dirty labels collapse into Unknown.
	cleanDims map[schema.Field]bool

	// policyDedupe lists fields aggregated per unique (policy, label)
	// pair instead of per row.
	policyDedupe map[schema.Field]bool

	// relabel rewrites dimension labels after resolution (brand fixups,
	// warranty-type renames). Nil when the partner ships clean labels.
	relabel func(kind model.DatasetKind, field schema.Field, labels []string) []string

	// alignPlanToDevice substitutes the device category column for
	// plan_category in loss ratios when present.
	alignPlanToDevice bool

	// summaryUnitsRaw counts summary units before the date filter.
	summaryUnitsRaw bool
}

func (p *profile) aliasesFor(kind model.DatasetKind) schema.AliasTable {
	if kind == model.KindClaims {
		return p.claimsAliases
	}
	return p.salesAliases
}

// frame is one prepared dataset: the filtered table, per-row derived metric
// series keyed by metric name, and the per-row month bucket.
type frame struct {
	tbl     *table.Table
	kind    model.DatasetKind
	derived map[string][]float64
	months  []time.Time

	// rawRows is the row count before the date filter.
	rawRows int

	// ew holds rows excluded from the main frame but still counted for
	// quantity (extended-warranty plans for partners that split them out).
	ew *frame
}

func newFrame(tbl *table.Table, kind model.DatasetKind) *frame {
	return &frame{
		tbl:     tbl,
		kind:    kind,
		derived: make(map[string][]float64),
		rawRows: tbl.Len(),
	}
}

// metric returns the per-row series for a metric name. Quantity is always
// available; anything else must have been derived during prepare.
func (f *frame) metric(name string) ([]float64, bool) {
	if name == MetricQuantity {
		return ones(f.tbl.Len()), true
	}
	v, ok := f.derived[name]
	return v, ok
}

// apply subsets the frame in place, keeping months and derived series
// aligned with the table rows.
func (f *frame) apply(keep []bool) {
	f.tbl = f.tbl.Filter(keep)
	if f.months != nil {
		f.months = filterTimes(f.months, keep)
	}
	for name, vals := range f.derived {
		f.derived[name] = filterFloats(vals, keep)
	}
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func sum(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

// keepMask marks rows whose date falls inside the window. Rows with no
// parseable date fail the filter.
func keepMask(dates []time.Time, win apportion.Window) []bool {
	keep := make([]bool, len(dates))
	for i, d := range dates {
		keep[i] = win.In(d)
	}
	return keep
}

func filterTimes(ts []time.Time, keep []bool) []time.Time {
	out := ts[:0:0]
	for i, k := range keep {
		if k {
			out = append(out, ts[i])
		}
	}
	return out
}

func filterFloats(vals []float64, keep []bool) []float64 {
	out := vals[:0:0]
	for i, k := range keep {
		if k {
			out = append(out, vals[i])
		}
	}
	return out
}

// ewMask flags rows whose category column marks an extended-warranty plan.
// The first candidate column present decides for the whole frame.
func ewMask(tbl *table.Table, candidates []string) []bool {
	out := make([]bool, tbl.Len())
	col, ok := schema.ResolveLiteral(tbl.Columns(), candidates)
	if !ok {
		return out
	}
	for i, v := range tbl.Strings(col) {
		switch aggregateNormalize(v) {
		case "ew", "extended warranty", "extendedwarranty":
			out[i] = true
		}
	}
	return out
}

// aggregateNormalize lower-cases and collapses non-alphanumerics to single
// spaces, the comparison form for plan-category values.
func aggregateNormalize(s string) string {
	var b []rune
	lastSpace := true
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
			fallthrough
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b = append(b, r)
			lastSpace = false
		default:
			if !lastSpace {
				b = append(b, ' ')
				lastSpace = true
			}
		}
	}
	for len(b) > 0 && b[len(b)-1] == ' ' {
		b = b[:len(b)-1]
	}
	return string(b)
}

// monthsFrom truncates a date series to month buckets.
func monthsFrom(dates []time.Time) []time.Time {
	return temporal.MonthKeys(dates)
}
