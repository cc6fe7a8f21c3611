// Package apportion computes pro-rata earned values from coverage windows
// clipped to a reporting horizon. The policy is deliberately conservative:
// unknown or inverted coverage never credits revenue, and an earned value
// never exceeds the written value.
package apportion

import "time"

// hoursPerDay converts a duration between day-truncated timestamps to days.
const hoursPerDay = 24

// Window is the reporting horizon exposure is measured against.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the window fully contains [from, to].
func (w Window) Contains(from, to time.Time) bool {
	return !w.Start.After(from) && !w.End.Before(to)
}

// In reports whether a single timestamp falls inside the window.
// Zero bounds are open on that side.
func (w Window) In(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Days returns whole days between two day-granularity timestamps.
func Days(from, to time.Time) int {
	return int(to.Sub(from).Hours() / hoursPerDay)
}

// Exposure returns the coverage and exposure day counts for a coverage
// window clipped to win. Coverage floors at 1 so that a same-day policy
// still carries a day of coverage; exposure is inclusive of both ends and
// clamped to [0, coverage]. Both are 0 when either date is missing or the
// coverage is inverted.
func Exposure(covStart, covEnd time.Time, win Window) (coverage, exposure int) {
	if covStart.IsZero() || covEnd.IsZero() {
		return 0, 0
	}
	raw := Days(covStart, covEnd)
	if raw < 0 {
		return 0, 0
	}
	coverage = raw
	if coverage < 1 {
		coverage = 1
	}
	effStart := covStart
	if !win.Start.IsZero() && win.Start.After(effStart) {
		effStart = win.Start
	}
	effEnd := covEnd
	if !win.End.IsZero() && win.End.Before(effEnd) {
		effEnd = win.End
	}
	exposure = Days(effStart, effEnd) + 1
	if exposure < 0 {
		exposure = 0
	}
	if exposure > coverage {
		exposure = coverage
	}
	return coverage, exposure
}

// Earned apportions a written value across the part of its coverage that
// falls inside the reporting window. The result is capped at the written
// value and floored at 0; missing or inverted coverage earns 0.
func Earned(written float64, covStart, covEnd time.Time, win Window) float64 {
	coverage, exposure := Exposure(covStart, covEnd, win)
	if coverage <= 0 {
		return 0
	}
	earned := written * float64(exposure) / float64(coverage)
	if earned > written {
		earned = written
	}
	if earned < 0 {
		earned = 0
	}
	return earned
}
