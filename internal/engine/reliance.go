package engine

import (
	"strings"
	"time"

	"github.com/zopper/recon/internal/domain/apportion"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/domain/schema"
)

// The reliance book reports a fixed half-year; request bounds may only
// narrow it, never widen it.
var (
	relianceStart     = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	relianceEnd       = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	relianceValuation = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
)

// relianceDefaultDeductible applies when a claims file ships no deductible
// column at all.
const relianceDefaultDeductible = 999

var relianceEWCandidates = []string{"Plan Category", "Plan Type", "Device Plan Category"}

// relianceBrandFix repairs the mislabeled brands in sales uploads.
var relianceBrandFix = map[string]string{
	"Idea":        "Lenovo",
	"Pad":         "Redmi",
	"GooglePixel": "Google",
}

var relianceClaimsBrandFix = map[string]string{
	"OPPO": "Oppo",
}

var relianceWarrantyFix = map[string]string{
	"Screen Protection": "Cracked Screen",
}

var relianceProfile = &profile{
	key: "reliance",

	sourcePattern: func(e *engine, _ model.DatasetKind) string {
		return "reliance%"
	},

	window: func(from, to time.Time) (apportion.Window, bool) {
		win := apportion.Window{Start: relianceStart, End: relianceEnd}
		if !from.IsZero() && from.After(win.Start) {
			win.Start = from
		}
		if !to.IsZero() && to.Before(win.End) {
			win.End = to
		}
		if win.End.Before(win.Start) {
			win.End = win.Start
		}
		return win, true
	},

	defaultYear: func(win apportion.Window) int { return win.Start.Year() },

	salesAliases: schema.AliasTable{
		schema.FieldPremiumAmount: {"Plan Selling Price", "Selling Price"},
		schema.FieldShareAmount: {
			"Zopper Shared ( Transfer Price )", "Zopper Shared (Transfer Price)",
			"Transfer Price",
		},
		schema.FieldCoverageStart: {"Plan Start Date", "Start Date", "Start_Date"},
		schema.FieldCoverageEnd:   {"Plan End Date", "End Date", "End_Date"},
		schema.FieldMonth:         {"Month"},
		schema.FieldDate:          {"Date"},
		schema.FieldState: {
			"State", "State Name", "State_Name", "State/City", "State / City",
			"Region", "Region Name", "Region_Name", "Zone", "Zone Name",
			"Location",
		},
		schema.FieldBrand:        {"Brand"},
		schema.FieldPlanCategory: {"Plan Type"},
		schema.FieldDeviceCategory: {
			"Device Plan Category", "Device Category", "Product Brand(Group)",
			"Product Brand (Group)", "Product Brand", "Brand", "Plan_Category",
			"Plan Category",
		},
		schema.FieldProductCat: {"Product_Category", "Product Category"},
	},

	claimsAliases: schema.AliasTable{
		schema.FieldClaimAmount:  {"Zopper's Cost", "Zoppers Cost", "Cost"},
		schema.FieldDeductible:   {"One time deductible", "One Time Deductible", "OTD Amount"},
		schema.FieldCustomerPaid: {"Customer Paid"},
		schema.FieldCallDate:     {"Day of Call_Date", "Call Date", "Call_Date"},
		schema.FieldMonth:        {"Month"},
		schema.FieldState: {
			"State", "State Name", "State_Name", "State/City", "State / City",
			"Region", "Region Name", "Region_Name", "Zone", "Zone Name",
			"Location",
		},
		schema.FieldBrand: {
			"Product Brand(Group)", "Product Brand (Group)", "Product Brand",
			"Brand",
		},
		schema.FieldPlanCategory: {"Warranty Type"},
		schema.FieldDeviceCategory: {
			"Product Brand(Group)", "Product Brand (Group)", "Product Brand",
			"Brand", "Device Plan Category", "Device Category",
		},
	},

	prepareSales:  reliancePrepareSales,
	prepareClaims: reliancePrepareClaims,

	relabel: relianceRelabel,
}

func relianceRelabel(kind model.DatasetKind, field schema.Field, labels []string) []string {
	var fix map[string]string
	switch {
	case kind == model.KindSales && (field == schema.FieldBrand || field == schema.FieldDeviceCategory):
		fix = relianceBrandFix
	case kind == model.KindClaims && field == schema.FieldPlanCategory:
		fix = relianceWarrantyFix
	case kind == model.KindClaims && (field == schema.FieldBrand || field == schema.FieldDeviceCategory):
		fix = relianceClaimsBrandFix
	default:
		return labels
	}
	out := make([]string, len(labels))
	for i, l := range labels {
		if v, ok := fix[strings.TrimSpace(l)]; ok {
			out[i] = v
		} else {
			out[i] = l
		}
	}
	return out
}

func reliancePrepareSales(e *engine, f *frame) {
	covStart := e.fieldDates(f, schema.FieldCoverageStart)
	covEnd := e.fieldDates(f, schema.FieldCoverageEnd)

	dates := e.parseDateChain(f, covStart, schema.FieldMonth)
	keep := keepMask(dates, e.window)
	f.tbl = f.tbl.Filter(keep)
	dates = filterTimes(dates, keep)
	covStart = filterTimes(covStart, keep)
	covEnd = filterTimes(covEnd, keep)

	// Extended-warranty plans are excluded from premium entirely but kept
	// aside so quantity can still report them.
	ew := ewMask(f.tbl, relianceEWCandidates)
	main := make([]bool, len(ew))
	for i, isEW := range ew {
		main[i] = !isEW
	}
	ewFrame := newFrame(f.tbl.Filter(ew), f.kind)
	ewFrame.months = monthsFrom(filterTimes(dates, ew))
	f.ew = ewFrame

	f.tbl = f.tbl.Filter(main)
	dates = filterTimes(dates, main)
	covStart = filterTimes(covStart, main)
	covEnd = filterTimes(covEnd, main)

	gross := e.fieldNumbers(f, schema.FieldPremiumAmount)
	transfer := e.fieldNumbers(f, schema.FieldShareAmount)

	valWin := apportion.Window{End: relianceValuation}
	earned := make([]float64, len(gross))
	shared := make([]float64, len(gross))
	for i := range gross {
		earned[i] = apportion.Earned(gross[i], covStart[i], covEnd[i], valWin)
		shared[i] = apportion.Earned(transfer[i]*gstMultiplier, covStart[i], covEnd[i], valWin)
	}

	f.months = monthsFrom(dates)
	f.derived[MetricGrossPremium] = gross
	f.derived[MetricEarnedPremium] = earned
	f.derived[MetricSharedEarnedPremium] = shared
}

func reliancePrepareClaims(e *engine, f *frame) {
	dates := e.parseDateChain(f, nil, schema.FieldMonth, schema.FieldCallDate)
	if dates != nil {
		keep := keepMask(dates, e.window)
		f.tbl = f.tbl.Filter(keep)
		dates = filterTimes(dates, keep)
	}

	cost := e.fieldNumbers(f, schema.FieldClaimAmount)
	paid := e.fieldNumbers(f, schema.FieldCustomerPaid)

	var deductible []float64
	if _, ok := schema.Resolve(f.tbl.Columns(), schema.FieldDeductible, e.prof.claimsAliases); ok {
		deductible = e.fieldNumbers(f, schema.FieldDeductible)
	} else {
		deductible = make([]float64, f.tbl.Len())
		for i := range deductible {
			deductible[i] = relianceDefaultDeductible
		}
	}

	net := make([]float64, len(cost))
	for i := range cost {
		net[i] = cost[i] - deductible[i] - paid[i]
	}

	f.months = monthsFrom(dates)
	f.derived[MetricClaims] = cost
	f.derived[MetricNetClaims] = net
}
