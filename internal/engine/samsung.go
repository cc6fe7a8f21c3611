package engine

import (
	"strings"
	"time"

	"github.com/zopper/recon/internal/domain/apportion"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/domain/schema"
)

// gstMultiplier grosses shared premium up for GST.
const gstMultiplier = 1.18

// Samsung reports against an effectively unbounded window; request bounds
// narrow it.
var (
	samsungReportStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	samsungReportEnd   = time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC)
)

// samsungEWCandidates are the category columns checked for extended-warranty
// plans, which shift their coverage window forward a year.
var samsungEWCandidates = []string{"Plan_Category", "Plan Category", "Device Plan Category"}

var samsungProfile = &profile{
	key: "samsung",

	// Claims files carry all sub-variants with the seller in a partner-name
	// column, so claims always read samsung-wide and split in prepare. A
	// sub-variant's sales read its own rows, except when serving a claims
	// engine's loss ratio, which joins against the samsung-wide book.
	sourcePattern: func(e *engine, kind model.DatasetKind) string {
		if kind == model.KindClaims || e.kind == model.KindClaims || e.partner == "samsung" {
			return "samsung%"
		}
		return e.partner
	},

	window: func(from, to time.Time) (apportion.Window, bool) {
		win := apportion.Window{Start: samsungReportStart, End: samsungReportEnd}
		filtered := false
		if !from.IsZero() {
			win.Start = from
			filtered = true
		}
		if !to.IsZero() {
			win.End = to
			filtered = true
		}
		return win, filtered
	},

	defaultYear: func(apportion.Window) int { return samsungReportStart.Year() },

	salesAliases: schema.AliasTable{
		schema.FieldPremiumAmount: {"Amount", "Premium", "Premium Amount"},
		schema.FieldShareAmount:   {"Zopper Share", "Share Amount"},
		schema.FieldCoverageStart: {"Start_Date", "Start Date", "Plan Start Date"},
		schema.FieldCoverageEnd:   {"End_Date", "End Date", "Plan End Date"},
		schema.FieldMonth:         {"Month", "Month Name", "Fiscal Month"},
		schema.FieldDate:          {"Date"},
		schema.FieldState: {
			"State", "State Name", "State/UT", "State_UT", "State_UT_Name",
			"State / City", "State/City",
		},
		schema.FieldChannel:        {"Channel", "Channel Name"},
		schema.FieldPlanCategory:   {"Plan_Category", "Plan Category"},
		schema.FieldDeviceCategory: {"Device_Plan_Category", "Device Plan Category"},
		schema.FieldProductCat:     {"Product_Category", "Product Category"},
		schema.FieldBrand:          {"Brand"},
		schema.FieldPolicyID: {
			"Policy Number", "Policy No", "Policy_ID", "Plan ID", "Order ID",
		},
	},

	claimsAliases: schema.AliasTable{
		schema.FieldClaimAmount: {"Net Amount"},
		schema.FieldDeductible:  {"OTD Amount", "One Time Deductible"},
		schema.FieldCallDate:    {"Day of Call_Date", "Call Date", "Call_Date"},
		schema.FieldMonth:       {"Month", "Month Name", "Fiscal Month"},
		schema.FieldPartnerName: {"Partner Name"},
		schema.FieldState: {
			"State", "State Name", "State/UT", "State_UT", "State_UT_Name",
			"State / City", "State/City",
		},
		schema.FieldPlanCategory: {"Plan_Category", "Plan Category"},
		// Claims files often ship only Plan Category; it stands in for the
		// device category there.
		schema.FieldDeviceCategory: {"Device_Plan_Category", "Device Plan Category", "Plan Category"},
		schema.FieldProductCat:     {"Product_Category", "Product Category"},
		schema.FieldBrand:          {"Brand"},
		schema.FieldPolicyID: {
			"Policy Number", "Policy No", "Policy_ID", "Plan ID", "Order ID",
		},
	},

	prepareSales:  samsungPrepareSales,
	prepareClaims: samsungPrepareClaims,

	policyDedupe: map[schema.Field]bool{
		schema.FieldPlanCategory:   true,
		schema.FieldDeviceCategory: true,
	},

	alignPlanToDevice: true,
	summaryUnitsRaw:   true,
}

func samsungPrepareSales(e *engine, f *frame) {
	covStart := e.fieldDates(f, schema.FieldCoverageStart)
	covEnd := e.fieldDates(f, schema.FieldCoverageEnd)

	// Extended-warranty plans activate a year after sale; shift their
	// coverage window so earning starts then.
	ew := ewMask(f.tbl, samsungEWCandidates)
	for i, isEW := range ew {
		if !isEW {
			continue
		}
		if !covStart[i].IsZero() {
			covStart[i] = covStart[i].AddDate(1, 0, 0)
		}
		if !covEnd[i].IsZero() {
			covEnd[i] = covEnd[i].AddDate(1, 0, 0)
		}
	}

	dates := e.parseDateChain(f, covStart, schema.FieldMonth, schema.FieldDate)
	if e.filtered {
		keep := keepMask(dates, e.window)
		f.tbl = f.tbl.Filter(keep)
		dates = filterTimes(dates, keep)
		covStart = filterTimes(covStart, keep)
		covEnd = filterTimes(covEnd, keep)
	}

	gross := e.fieldNumbers(f, schema.FieldPremiumAmount)
	share := e.fieldNumbers(f, schema.FieldShareAmount)
	earned := make([]float64, len(gross))
	shared := make([]float64, len(share))
	for i := range gross {
		earned[i] = apportion.Earned(gross[i], covStart[i], covEnd[i], e.window)
		shared[i] = apportion.Earned(share[i], covStart[i], covEnd[i], e.window) * gstMultiplier
	}

	f.months = monthsFrom(dates)
	f.derived[MetricGrossPremium] = gross
	f.derived[MetricEarnedPremium] = earned
	f.derived[MetricSharedEarnedPremium] = shared
}

func samsungPrepareClaims(e *engine, f *frame) {
	// Split the samsung-wide claims file by seller for sub-variant engines.
	// Bulk uploads suffix the seller name.
	if variant := samsungVariantName(e.partner); variant != "" {
		if col, ok := schema.Resolve(f.tbl.Columns(), schema.FieldPartnerName, e.prof.claimsAliases); ok {
			names := f.tbl.Strings(col)
			keep := make([]bool, len(names))
			for i, n := range names {
				n = strings.TrimSpace(strings.ReplaceAll(n, " Bulk", ""))
				keep[i] = strings.EqualFold(n, variant)
			}
			f.tbl = f.tbl.Filter(keep)
		}
	}

	dates := e.parseDateChain(f, nil, schema.FieldCallDate, schema.FieldMonth)
	if e.filtered && dates != nil {
		keep := keepMask(dates, e.window)
		f.tbl = f.tbl.Filter(keep)
		dates = filterTimes(dates, keep)
	}

	net := e.fieldNumbers(f, schema.FieldClaimAmount)
	otd := e.fieldNumbers(f, schema.FieldDeductible)
	netClaims := make([]float64, len(net))
	for i := range net {
		netClaims[i] = net[i] - otd[i]
	}

	f.months = monthsFrom(dates)
	f.derived[MetricClaims] = net
	f.derived[MetricNetClaims] = netClaims
}

// samsungVariantName maps a sub-variant partner to the seller name its
// claims rows carry.
func samsungVariantName(partner string) string {
	switch {
	case strings.Contains(partner, "vijay") || partner == "samsung_vs":
		return "Vijay Sales"
	case strings.Contains(partner, "croma"):
		return "Croma"
	default:
		return ""
	}
}
