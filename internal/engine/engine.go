// Package engine computes reconciliation aggregates per partner. One engine
// instance serves one request tag (partner, kind, batch, window); partner
// differences live in data-driven profiles while the orchestration - load a
// snapshot, derive metric series, aggregate by dimension - is shared.
//
// Dirty data never fails a computation: unknown metrics and unresolvable
// dimensions degrade to empty results. The only propagating failures are an
// unknown partner and snapshot load errors.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zopper/recon/internal/adapters/snapshot"
	"github.com/zopper/recon/internal/domain/aggregate"
	"github.com/zopper/recon/internal/domain/apportion"
	"github.com/zopper/recon/internal/domain/lossratio"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/domain/schema"
	"github.com/zopper/recon/internal/domain/temporal"
	"github.com/zopper/recon/pkg/logger"
	"github.com/zopper/recon/pkg/metrics"
)

// Engine computes aggregates for one request tag.
type Engine interface {
	// ComputeByDimension groups the tagged dataset by a dimension and sums
	// a metric. Unknown metrics or dimensions yield an empty result.
	ComputeByDimension(ctx context.Context, dimension, metric string) ([]model.AggregateRow, error)
	// ComputeSummary returns the no-dimension rollup.
	ComputeSummary(ctx context.Context) (model.Summary, error)
}

// Params tags a computation request. Zero From/To leave the partner's
// default reporting window in force.
type Params struct {
	Partner string
	Kind    model.DatasetKind
	BatchID string
	From    time.Time
	To      time.Time
}

// Option applies a configuration option to an engine.
type Option func(*engine)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(e *engine) {
		if log != nil {
			e.log = log
		}
	}
}

type engine struct {
	prof    *profile
	partner string
	kind    model.DatasetKind
	batchID string

	window      apportion.Window
	filtered    bool
	defaultYear int

	snapshots *snapshot.Cache
	log       logger.Logger

	// frames memoizes prepared datasets per kind for the lifetime of the
	// request, so a loss ratio does not prepare the same side twice.
	frames map[model.DatasetKind]*frame
}

// partnerAliases maps the spellings seen in requests and uploads to
// canonical partner names, compared with separators collapsed to spaces.
var partnerAliases = map[string]string{
	"samsung vs":          "samsung_vs",
	"samsung vijay sales": "samsung_vs",
	"vijay sales":         "samsung_vs",
	"samsung croma":       "samsung_croma",
	"croma":               "samsung_croma",
	"reliance resq":       "reliance",
	"resq":                "reliance",
	"goodrej":             "godrej",
	"goddrej":             "godrej",
}

var profiles = map[string]*profile{
	"samsung":  samsungProfile,
	"godrej":   godrejProfile,
	"reliance": relianceProfile,
}

// NormalizePartner canonicalizes a partner name: lower-cased, separators as
// spaces, known aliases and misspellings resolved. The result uses
// underscores ("samsung_vs").
func NormalizePartner(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "_", " ")
	v = strings.ReplaceAll(v, "-", " ")
	v = strings.Join(strings.Fields(v), " ")
	if canon, ok := partnerAliases[v]; ok {
		return canon
	}
	return strings.ReplaceAll(v, " ", "_")
}

// New builds an engine for a request tag. The partner is normalized first;
// a partner no profile covers returns ErrUnknownPartner. Construction does
// no IO - snapshots load lazily on the first compute call.
func New(p Params, snapshots *snapshot.Cache, opts ...Option) (Engine, error) {
	partner := NormalizePartner(p.Partner)
	family, _, _ := strings.Cut(partner, "_")
	prof, ok := profiles[family]
	if !ok {
		metrics.RecordUnknownPartner()
		return nil, fmt.Errorf("%w: %q", ErrUnknownPartner, p.Partner)
	}

	kind := p.Kind
	if kind == "" {
		kind = model.KindSales
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, p.Kind)
	}

	e := &engine{
		prof:      prof,
		partner:   partner,
		kind:      kind,
		batchID:   p.BatchID,
		snapshots: snapshots,
		log:       logger.Get().Named("engine"),
		frames:    make(map[model.DatasetKind]*frame),
	}
	e.window, e.filtered = prof.window(p.From, p.To)
	e.defaultYear = prof.defaultYear(e.window)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *engine) ComputeByDimension(ctx context.Context, dimension, metric string) ([]model.AggregateRow, error) {
	dimension = strings.ToLower(strings.TrimSpace(dimension))
	metric = strings.ToLower(strings.TrimSpace(metric))
	start := time.Now()
	defer func() {
		metrics.RecordQuery(e.prof.key, metric, time.Since(start))
	}()

	if metric == MetricLossRatio {
		return e.lossRatio(ctx, dimension)
	}

	f, err := e.frame(ctx, e.kind)
	if err != nil {
		return nil, err
	}
	rows := e.aggregateFrame(f, dimension, metric)

	if metric == MetricQuantity && f.ew != nil && f.ew.tbl.Len() > 0 {
		rows = mergeEWCounts(rows, e.aggregateFrame(f.ew, dimension, MetricQuantity))
	}

	if len(rows) == 0 {
		metrics.RecordEmptyResult()
		e.log.Debug(ctx, "aggregation degraded to empty result",
			logger.String("partner", e.partner),
			logger.String("dimension", dimension),
			logger.String("metric", metric))
	}
	return rows, nil
}

func (e *engine) ComputeSummary(ctx context.Context) (model.Summary, error) {
	start := time.Now()
	defer func() {
		metrics.RecordQuery(e.prof.key, "summary", time.Since(start))
	}()

	f, err := e.frame(ctx, e.kind)
	if err != nil {
		return model.Summary{}, err
	}

	var s model.Summary
	if e.kind == model.KindClaims {
		net := sum(f.derived[MetricNetClaims])
		s.GrossPremium = sum(f.derived[MetricClaims])
		s.EarnedPremium = net
		s.SharedEarnedPremium = net
		s.UnitCount = f.tbl.Len()
	} else {
		s.GrossPremium = sum(f.derived[MetricGrossPremium])
		s.EarnedPremium = sum(f.derived[MetricEarnedPremium])
		s.SharedEarnedPremium = sum(f.derived[MetricSharedEarnedPremium])
		s.UnitCount = f.tbl.Len()
		if e.prof.summaryUnitsRaw {
			s.UnitCount = f.rawRows
		}
	}
	if s == (model.Summary{}) {
		metrics.RecordEmptyResult()
	}
	return s, nil
}

// frame loads and prepares the dataset of a kind, memoized per engine.
func (e *engine) frame(ctx context.Context, kind model.DatasetKind) (*frame, error) {
	if f, ok := e.frames[kind]; ok {
		return f, nil
	}
	pattern := e.prof.sourcePattern(e, kind)
	tbl, err := e.snapshots.GetOrLoad(ctx, pattern, kind, e.batchID)
	if err != nil {
		return nil, fmt.Errorf("loading %s frame for %s: %w", kind, e.partner, err)
	}
	f := newFrame(tbl, kind)
	prepare := e.prof.prepareSales
	if kind == model.KindClaims {
		prepare = e.prof.prepareClaims
	}
	if prepare != nil && tbl.Len() > 0 {
		prepare(e, f)
	}
	e.frames[kind] = f
	return f, nil
}

// aggregateFrame resolves the dimension on a prepared frame and sums a
// metric per bucket. Anything unresolvable returns nil.
func (e *engine) aggregateFrame(f *frame, dimension, metric string) []model.AggregateRow {
	if f == nil || f.tbl.Len() == 0 {
		return nil
	}
	values, ok := f.metric(metric)
	if !ok {
		return nil
	}

	if dimension == "month" {
		if len(f.months) == 0 || temporal.AllZero(f.months) {
			return nil
		}
		return aggregate.Aggregate(aggregate.Spec{Months: f.months, Values: values})
	}

	field, labels, ok := e.resolveLabels(f, dimension)
	if !ok {
		return nil
	}
	labels, values = e.dedupeByPolicy(f, field, labels, values)
	return aggregate.Aggregate(aggregate.Spec{
		Labels: labels,
		Values: values,
		Clean:  e.prof.cleanDims[field],
		Ranked: field == schema.FieldDeviceCategory ||
			(field == schema.FieldPlanCategory && aggregate.LooksRanked(labels)),
	})
}

// resolveLabels maps a dimension name to a column on the frame and returns
// its per-row labels. Unknown dimension names try a literal column match.
func (e *engine) resolveLabels(f *frame, dimension string) (schema.Field, []string, bool) {
	cols := f.tbl.Columns()
	field, known := dimensionFields[dimension]
	if !known {
		col, ok := schema.ResolveLiteral(cols, []string{dimension})
		if !ok {
			return "", nil, false
		}
		return schema.Field(dimension), f.tbl.Strings(col), true
	}
	col, ok := schema.Resolve(cols, field, e.prof.aliasesFor(f.kind))
	if !ok {
		return field, nil, false
	}
	labels := f.tbl.Strings(col)
	if e.prof.relabel != nil {
		labels = e.prof.relabel(f.kind, field, labels)
	}
	return field, labels, true
}

// dedupeByPolicy collapses category rows to one per (policy, label) pair
// and drops unlabeled rows, for partners whose uploads repeat a policy
// across category breakdowns.
func (e *engine) dedupeByPolicy(f *frame, field schema.Field, labels []string, values []float64) ([]string, []float64) {
	if !e.prof.policyDedupe[field] {
		return labels, values
	}
	policyCol, ok := schema.Resolve(f.tbl.Columns(), schema.FieldPolicyID, e.prof.aliasesFor(f.kind))
	if !ok {
		return labels, values
	}
	policies := f.tbl.Strings(policyCol)
	seen := make(map[string]bool, len(labels))
	outLabels := make([]string, 0, len(labels))
	outValues := make([]float64, 0, len(values))
	for i, label := range labels {
		if strings.TrimSpace(label) == "" {
			continue
		}
		key := policies[i] + "|" + label
		if seen[key] {
			continue
		}
		seen[key] = true
		outLabels = append(outLabels, label)
		outValues = append(outValues, values[i])
	}
	return outLabels, outValues
}

// lossRatio aggregates net claims and shared earned premium independently
// and joins them by normalized dimension key.
func (e *engine) lossRatio(ctx context.Context, dimension string) ([]model.AggregateRow, error) {
	cf, err := e.frame(ctx, model.KindClaims)
	if err != nil {
		return nil, err
	}
	sf, err := e.frame(ctx, model.KindSales)
	if err != nil {
		return nil, err
	}

	claimsDim, salesDim := dimension, dimension
	if e.prof.alignPlanToDevice && dimension == "plan_category" {
		if _, ok := schema.Resolve(cf.tbl.Columns(), schema.FieldDeviceCategory, e.prof.claimsAliases); ok {
			claimsDim = "device_plan_category"
		}
		if _, ok := schema.Resolve(sf.tbl.Columns(), schema.FieldDeviceCategory, e.prof.salesAliases); ok {
			salesDim = "device_plan_category"
		}
	}

	claimsRows := e.aggregateFrame(cf, claimsDim, MetricNetClaims)
	salesRows := e.aggregateFrame(sf, salesDim, MetricSharedEarnedPremium)
	if len(claimsRows) == 0 && len(salesRows) == 0 {
		metrics.RecordEmptyResult()
		return nil, nil
	}
	return lossratio.Join(claimsRows, salesRows), nil
}

// parseDateChain parses the first field in the chain whose column yields at
// least one usable date, falling back to the provided series when none does.
func (e *engine) parseDateChain(f *frame, fallback []time.Time, fields ...schema.Field) []time.Time {
	aliases := e.prof.aliasesFor(f.kind)
	for _, field := range fields {
		col, ok := schema.Resolve(f.tbl.Columns(), field, aliases)
		if !ok {
			continue
		}
		raw := f.tbl.Strings(col)
		parsed := temporal.ParsePeriod(raw, fallback, e.defaultYear)
		if temporal.AllZero(parsed) {
			metrics.RecordUnusableColumn()
			continue
		}
		unparsed := 0
		for i, ts := range parsed {
			if ts.IsZero() && strings.TrimSpace(raw[i]) != "" {
				unparsed++
			}
		}
		metrics.RecordUnparsedDates(unparsed)
		return parsed
	}
	return fallback
}

// fieldDates parses a single resolved date column, zero times where the
// field is absent or a value is unreadable.
func (e *engine) fieldDates(f *frame, field schema.Field) []time.Time {
	col, ok := schema.Resolve(f.tbl.Columns(), field, e.prof.aliasesFor(f.kind))
	if !ok {
		return make([]time.Time, f.tbl.Len())
	}
	return temporal.ParsePeriod(f.tbl.Strings(col), nil, e.defaultYear)
}

// fieldNumbers coerces a resolved amount column, zeros where the field is
// absent or a value is dirty beyond cleaning.
func (e *engine) fieldNumbers(f *frame, field schema.Field) []float64 {
	col, ok := schema.Resolve(f.tbl.Columns(), field, e.prof.aliasesFor(f.kind))
	if !ok {
		return make([]float64, f.tbl.Len())
	}
	return f.tbl.Numbers(col)
}

// mergeEWCounts attaches per-bucket extended-warranty unit counts to a
// quantity aggregation. Buckets present only on the excluded side are
// appended with a zero main count.
func mergeEWCounts(rows, ewRows []model.AggregateRow) []model.AggregateRow {
	if len(ewRows) == 0 {
		return rows
	}
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		index[r.Dimension] = i
	}
	for _, ew := range ewRows {
		if i, ok := index[ew.Dimension]; ok {
			if rows[i].Extra == nil {
				rows[i].Extra = make(map[string]float64, 1)
			}
			rows[i].Extra["ew_count"] = ew.Value
			continue
		}
		rows = append(rows, model.AggregateRow{
			Dimension: ew.Dimension,
			Month:     ew.Month,
			Value:     0,
			Extra:     map[string]float64{"ew_count": ew.Value},
		})
	}
	return rows
}
