package engine

import (
	"strings"
	"time"

	"github.com/zopper/recon/internal/domain/apportion"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/domain/schema"
)

// godrejValuation is the date premium is earned up to for the godrej book.
var godrejValuation = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

// planDurationDays converts a plan duration in months to coverage days when
// the file ships no warranty end date.
const planDurationDays = 30

// revenueSplit is the earned-premium split between the sales channel,
// godrej, and zopper.
type revenueSplit struct {
	channel float64
	godrej  float64
	zopper  float64
}

// godrejRevenueSplit keys are compared case-insensitively with whitespace
// collapsed. A channel outside the table earns no share for anyone.
var godrejRevenueSplit = map[string]revenueSplit{
	"d2d":             {channel: 0.25, godrej: 0.35, zopper: 0.40},
	"pos":             {channel: 0.25, godrej: 0.35, zopper: 0.40},
	"calling process": {channel: 0.30, godrej: 0.35, zopper: 0.35},
	"pod":             {channel: 0.20, godrej: 0.35, zopper: 0.45},
	"amazon":          {channel: 0.40, godrej: 0.35, zopper: 0.25},
}

func godrejZopperShare(channel string) float64 {
	key := strings.ToLower(strings.Join(strings.Fields(channel), " "))
	return godrejRevenueSplit[key].zopper
}

var godrejProfile = &profile{
	key: "godrej",

	sourcePattern: func(e *engine, _ model.DatasetKind) string {
		return "godrej%"
	},

	// No default bounds; the whole book reports unless the request narrows
	// it.
	window: func(from, to time.Time) (apportion.Window, bool) {
		return apportion.Window{Start: from, End: to}, !from.IsZero() || !to.IsZero()
	},

	defaultYear: func(win apportion.Window) int {
		if !win.Start.IsZero() {
			return win.Start.Year()
		}
		return time.Now().UTC().Year()
	},

	salesAliases: schema.AliasTable{
		schema.FieldPremiumAmount: {"Customer Premium", "Premium"},
		schema.FieldCoverageStart: {"Warranty Start Date", "Start Date", "Start_Date"},
		schema.FieldCoverageEnd:   {"Warranty End Date", "End Date", "End_Date"},
		schema.FieldPlanDuration:  {"Zopper Plan Duration", "Plan Duration"},
		schema.FieldMonth:         {"Month"},
		schema.FieldDate:          {"Date"},
		schema.FieldChannel: {
			"Channel", "Channel Name",
			"State", "State Name", "State/City", "State / City", "Region",
		},
		schema.FieldState: {
			"State", "State Name", "State/City", "State / City", "Region",
			"Channel",
		},
		schema.FieldProductCat: {
			"Product_Category", "Product Category", "Product Category Name",
			"Category",
		},
		schema.FieldPlanCategory: {
			"Plan Category", "Plan_Category", "Product_Category",
			"Product Category", "Category",
		},
		schema.FieldDeviceCategory: {
			"Device Plan Category", "Device_Plan_Category", "Product_Category",
			"Product Category", "Category",
		},
		schema.FieldBrand: {"Brand", "Appliance Brand"},
	},

	claimsAliases: schema.AliasTable{
		schema.FieldClaimAmount: {"Claim_Amount", "Claim Amount"},
		schema.FieldCallDate: {
			"Claim Date", "Claim_Date", "Day of Call_Date", "Call_Date",
			"Date of Claim",
		},
		schema.FieldMonth: {"Month"},
		schema.FieldDate:  {"Date"},
		schema.FieldChannel: {
			"Channel", "Channel Name",
			"State", "State Name", "State/City", "State / City", "Region",
		},
		schema.FieldState: {
			"State", "State Name", "State/City", "State / City", "Region",
			"Channel",
		},
		schema.FieldProductCat: {
			"Product_Category", "Product Category", "Product Category Name",
			"Category",
		},
		schema.FieldPlanCategory: {
			"Plan Category", "Plan_Category", "Product_Category",
			"Product Category", "Category",
		},
		schema.FieldDeviceCategory: {
			"Device Plan Category", "Device_Plan_Category", "Product_Category",
			"Product Category", "Category",
		},
		schema.FieldBrand: {"Brand", "Appliance Brand"},
	},

	prepareSales:  godrejPrepareSales,
	prepareClaims: godrejPrepareClaims,

	cleanDims: map[schema.Field]bool{
		schema.FieldChannel:    true,
		schema.FieldProductCat: true,
	},
}

func godrejPrepareSales(e *engine, f *frame) {
	covStart := e.fieldDates(f, schema.FieldCoverageStart)
	covEnd := e.fieldDates(f, schema.FieldCoverageEnd)

	// Files without a warranty end date carry the plan duration in months.
	durations := e.fieldNumbers(f, schema.FieldPlanDuration)
	for i := range covEnd {
		if covEnd[i].IsZero() && !covStart[i].IsZero() && durations[i] > 0 {
			covEnd[i] = covStart[i].AddDate(0, 0, int(durations[i])*planDurationDays)
		}
	}

	dates := e.parseDateChain(f, covStart, schema.FieldMonth, schema.FieldDate)
	if e.filtered {
		keep := keepMask(dates, e.window)
		f.tbl = f.tbl.Filter(keep)
		dates = filterTimes(dates, keep)
		covStart = filterTimes(covStart, keep)
		covEnd = filterTimes(covEnd, keep)
		durations = filterFloats(durations, keep)
	}

	gross := e.fieldNumbers(f, schema.FieldPremiumAmount)
	var channels []string
	if col, ok := schema.Resolve(f.tbl.Columns(), schema.FieldChannel, e.prof.salesAliases); ok {
		channels = f.tbl.Strings(col)
	}

	valWin := apportion.Window{End: godrejValuation}
	earned := make([]float64, len(gross))
	shared := make([]float64, len(gross))
	for i := range gross {
		earned[i] = apportion.Earned(gross[i], covStart[i], covEnd[i], valWin)
		if channels != nil {
			shared[i] = earned[i] * godrejZopperShare(channels[i])
		}
	}

	f.months = monthsFrom(dates)
	f.derived[MetricGrossPremium] = gross
	f.derived[MetricEarnedPremium] = earned
	f.derived[MetricSharedEarnedPremium] = shared
}

func godrejPrepareClaims(e *engine, f *frame) {
	dates := e.parseDateChain(f, nil, schema.FieldCallDate, schema.FieldMonth, schema.FieldDate)
	if e.filtered && dates != nil {
		keep := keepMask(dates, e.window)
		f.tbl = f.tbl.Filter(keep)
		dates = filterTimes(dates, keep)
	}

	// Godrej claims carry no deductible; claim amount is already net.
	amounts := e.fieldNumbers(f, schema.FieldClaimAmount)
	f.months = monthsFrom(dates)
	f.derived[MetricClaims] = amounts
	f.derived[MetricNetClaims] = amounts
}
