package lossratio_test

import (
	"testing"

	"github.com/zopper/recon/internal/domain/lossratio"
	"github.com/zopper/recon/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestJoinKey(t *testing.T) {
	Convey("Given labels the two sides spell differently", t, func() {
		So(lossratio.JoinKey("Plan_Category"), ShouldEqual, "plan category")
		So(lossratio.JoinKey("12 - Super Premium"), ShouldEqual, "super premium")
		So(lossratio.JoinKey("  MAHARASHTRA  "), ShouldEqual, "maharashtra")
		So(lossratio.JoinKey("Tamil   Nadu"), ShouldEqual, "tamil nadu")
	})
}

func TestJoin(t *testing.T) {
	Convey("Given aggregated claims and sales rows", t, func() {
		claims := []model.AggregateRow{
			{Dimension: "Maharashtra", Value: 50},
			{Dimension: "DELHI", Value: 30},
		}
		sales := []model.AggregateRow{
			{Dimension: "maharashtra", Value: 200},
			{Dimension: "Delhi", Value: 0},
			{Dimension: "Karnataka", Value: 100},
		}

		rows := lossratio.Join(claims, sales)

		Convey("Then matched buckets carry claims over premium times 100", func() {
			So(rows[0].Dimension, ShouldEqual, "Maharashtra")
			So(rows[0].Value, ShouldEqual, 25)
		})

		Convey("And a zero premium denominator yields 0, not infinity", func() {
			So(rows[1].Dimension, ShouldEqual, "DELHI")
			So(rows[1].Value, ShouldEqual, 0)
		})

		Convey("And sold buckets with no claims are appended at 0", func() {
			So(rows, ShouldHaveLength, 3)
			So(rows[2].Dimension, ShouldEqual, "Karnataka")
			So(rows[2].Value, ShouldEqual, 0)
		})

		Convey("And the claims side's label wins for display", func() {
			So(rows[0].Dimension, ShouldNotEqual, "maharashtra")
		})
	})

	Convey("Given sales rows with ordinal prefixes", t, func() {
		claims := []model.AggregateRow{{Dimension: "Super Premium", Value: 10}}
		sales := []model.AggregateRow{{Dimension: "12 - Super Premium", Value: 100}}

		rows := lossratio.Join(claims, sales)

		Convey("Then the prefix is invisible to the join", func() {
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Value, ShouldEqual, 10)
		})
	})

	Convey("Given empty inputs", t, func() {
		So(lossratio.Join(nil, nil), ShouldBeEmpty)
	})
}

func TestRatio(t *testing.T) {
	Convey("Given claim and premium values", t, func() {
		So(lossratio.Ratio(50, 200), ShouldEqual, 25)
		So(lossratio.Ratio(50, 0), ShouldEqual, 0)
		So(lossratio.Ratio(0, 200), ShouldEqual, 0)
		So(lossratio.Ratio(-10, 100), ShouldEqual, -10)
	})
}
