package temporal_test

import (
	"testing"
	"time"

	"github.com/zopper/recon/internal/domain/temporal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParsePeriod(t *testing.T) {
	Convey("Given a column of period text", t, func() {
		Convey("When values are six-digit month codes", func() {
			out := temporal.ParsePeriod([]string{"202507", "202512"}, nil, 2000)

			Convey("Then each parses to the first of its month", func() {
				So(out[0], ShouldResemble, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
				So(out[1], ShouldResemble, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When a month code survived a float round-trip", func() {
			out := temporal.ParsePeriod([]string{"202507.0"}, nil, 2000)

			Convey("Then the trailing .0 is tolerated", func() {
				So(out[0], ShouldResemble, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When values are spreadsheet month labels", func() {
			out := temporal.ParsePeriod([]string{"Jul-25", "Jan-2024"}, nil, 2000)

			Convey("Then the explicit layouts apply", func() {
				So(out[0].Year(), ShouldEqual, 2025)
				So(out[0].Month(), ShouldEqual, time.July)
				So(out[1].Year(), ShouldEqual, 2024)
				So(out[1].Month(), ShouldEqual, time.January)
			})
		})

		Convey("When a value is a bare month name with trailing text", func() {
			out := temporal.ParsePeriod([]string{"Jan (till 10)"}, nil, 2023)

			Convey("Then the month combines with the default year", func() {
				So(out[0], ShouldResemble, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When a value is a bare month number", func() {
			out := temporal.ParsePeriod([]string{"7"}, nil, 2024)

			So(out[0], ShouldResemble, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
		})

		Convey("When a parsed year predates 2000", func() {
			fallback := []time.Time{time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}
			out := temporal.ParsePeriod([]string{"Jul-99"}, fallback, 2000)

			Convey("Then the year is re-stamped from the fallback row", func() {
				So(out[0], ShouldResemble, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When a sub-2000 year has no fallback", func() {
			out := temporal.ParsePeriod([]string{"Jul-99"}, nil, 2022)

			Convey("Then the default year applies", func() {
				So(out[0], ShouldResemble, time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When a value is unreadable", func() {
			out := temporal.ParsePeriod([]string{"not a date", ""}, nil, 2000)

			Convey("Then it becomes the zero time instead of failing", func() {
				So(out[0].IsZero(), ShouldBeTrue)
				So(out[1].IsZero(), ShouldBeTrue)
			})
		})
	})
}

func TestParseDate(t *testing.T) {
	Convey("Given single date strings", t, func() {
		Convey("Then ISO dates parse", func() {
			ts, ok := temporal.ParseDate("2025-07-15")
			So(ok, ShouldBeTrue)
			So(ts, ShouldResemble, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC))
		})

		Convey("Then six-digit month codes parse to the first of the month", func() {
			ts, ok := temporal.ParseDate("202507")
			So(ok, ShouldBeTrue)
			So(ts, ShouldResemble, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
		})

		Convey("Then an invalid month code is rejected", func() {
			_, ok := temporal.ParseDate("202513")
			So(ok, ShouldBeFalse)
		})

		Convey("Then garbage is rejected", func() {
			_, ok := temporal.ParseDate("soon")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestMonthKey(t *testing.T) {
	Convey("Given timestamps", t, func() {
		Convey("Then MonthKey truncates to the first of the month", func() {
			ts := time.Date(2025, 7, 19, 13, 45, 0, 0, time.UTC)
			So(temporal.MonthKey(ts), ShouldResemble, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
		})

		Convey("Then the zero time stays zero", func() {
			So(temporal.MonthKey(time.Time{}).IsZero(), ShouldBeTrue)
		})

		Convey("Then FormatMonth renders the display label", func() {
			So(temporal.FormatMonth(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)), ShouldEqual, "Jul-25")
			So(temporal.FormatMonth(time.Time{}), ShouldEqual, "")
		})
	})
}

func TestAllZero(t *testing.T) {
	Convey("Given parsed columns", t, func() {
		So(temporal.AllZero([]time.Time{{}, {}}), ShouldBeTrue)
		So(temporal.AllZero([]time.Time{{}, time.Now()}), ShouldBeFalse)
		So(temporal.AllZero(nil), ShouldBeTrue)
	})
}
