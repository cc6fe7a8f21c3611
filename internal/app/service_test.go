package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/zopper/recon/internal/adapters/repository"
	service "github.com/zopper/recon/internal/app"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/engine"
	. "github.com/smartystreets/goconvey/convey"
)

func startedService(opts ...service.Option) *service.Service {
	opts = append([]service.Option{service.WithStore(repository.NewMemoryStore())}, opts...)
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func saleRow(state string, amount, share any) map[string]any {
	return map[string]any{
		"Policy Number": "P-" + state,
		"State":         state,
		"Plan_Category": "Mass",
		"Month":         "Jul-25",
		"Start_Date":    "2025-07-01",
		"End_Date":      "2026-06-30",
		"Amount":        amount,
		"Zopper Share":  share,
	}
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given an unstarted service", t, func() {
		svc := service.New(service.WithStore(repository.NewMemoryStore()))
		ctx := context.Background()

		Convey("Reads and writes are rejected before Start", func() {
			_, err := svc.ByDimension(ctx, service.Query{Partner: "godrej"})
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.IngestRecords(ctx, "godrej", model.KindSales, "", []map[string]any{{"a": 1}})
			So(err, ShouldEqual, service.ErrNotStarted)
		})

		Convey("Start is idempotent and Stop makes it unready again", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()
			_, err := svc.Summary(ctx, service.Query{Partner: "godrej"})
			So(err, ShouldEqual, service.ErrNotStarted)
		})
	})
}

func TestServiceIngestValidation(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService(service.WithMaxUploadRows(2))
		defer svc.Stop()
		ctx := context.Background()

		Convey("An invalid kind is rejected", func() {
			_, err := svc.IngestRecords(ctx, "godrej", "refunds", "", []map[string]any{{"a": 1}})
			So(err, ShouldWrap, engine.ErrInvalidKind)
		})

		Convey("An empty upload is rejected", func() {
			_, err := svc.IngestRecords(ctx, "godrej", model.KindSales, "", nil)
			So(err, ShouldEqual, service.ErrNoRecords)
		})

		Convey("An upload of only empty rows is rejected", func() {
			_, err := svc.IngestRecords(ctx, "godrej", model.KindSales, "", []map[string]any{{}, {}})
			So(err, ShouldEqual, service.ErrNoRecords)
		})

		Convey("An oversized upload is rejected", func() {
			rows := []map[string]any{{"a": 1}, {"a": 2}, {"a": 3}}
			_, err := svc.IngestRecords(ctx, "godrej", model.KindSales, "", rows)
			So(err, ShouldWrap, service.ErrTooManyRows)
		})

		Convey("Empty rows are skipped, not stored", func() {
			n, err := svc.IngestRecords(ctx, "godrej", model.KindSales, "", []map[string]any{
				{"Customer Premium": "100"},
				{},
			})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})
	})
}

func TestServiceReadPath(t *testing.T) {
	Convey("Given a service with an ingested samsung book", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()

		n, err := svc.IngestRecords(ctx, "Vijay Sales", model.KindSales, "b1", []map[string]any{
			saleRow("Delhi", "1000", "100"),
			saleRow("Karnataka", "500", "50"),
		})
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 2)

		Convey("The partner alias resolves to the canonical tag on read", func() {
			rows, err := svc.ByDimension(ctx, service.Query{
				Partner:   "samsung_vs",
				Dimension: "state",
				Metric:    "gross_premium",
			})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
		})

		Convey("Replacing a batch is visible on the next read", func() {
			before, err := svc.ByDimension(ctx, service.Query{
				Partner: "samsung_vs", Dimension: "month", Metric: "gross_premium",
			})
			So(err, ShouldBeNil)
			So(before[0].Value, ShouldEqual, 1500)

			_, err = svc.ReplaceBatch(ctx, "samsung_vs", model.KindSales, "b1", []map[string]any{
				saleRow("Delhi", "2000", "200"),
			})
			So(err, ShouldBeNil)

			after, err := svc.ByDimension(ctx, service.Query{
				Partner: "samsung_vs", Dimension: "month", Metric: "gross_premium",
			})
			So(err, ShouldBeNil)
			So(after[0].Value, ShouldEqual, 2000)
		})

		Convey("Deleting the tag empties subsequent reads", func() {
			removed, err := svc.DeleteRecords(ctx, "samsung_vs", model.KindSales, "")
			So(err, ShouldBeNil)
			So(removed, ShouldEqual, 2)

			rows, err := svc.ByDimension(ctx, service.Query{
				Partner: "samsung_vs", Dimension: "state", Metric: "gross_premium",
			})
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("An unknown partner propagates from the engine", func() {
			_, err := svc.ByDimension(ctx, service.Query{Partner: "nokia", Dimension: "state", Metric: "quantity"})
			So(err, ShouldWrap, engine.ErrUnknownPartner)
		})

		Convey("Explicit invalidation reports evictions", func() {
			_, err := svc.ByDimension(ctx, service.Query{
				Partner: "samsung_vs", Dimension: "state", Metric: "quantity",
			})
			So(err, ShouldBeNil)

			n, err := svc.InvalidateCache("Vijay Sales", model.KindSales, "")
			So(err, ShouldBeNil)
			So(n, ShouldBeGreaterThanOrEqualTo, 1)
		})
	})
}

func TestServiceMergedSummary(t *testing.T) {
	Convey("Given sales under both samsung sub-variants", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()

		_, err := svc.IngestRecords(ctx, "samsung_vs", model.KindSales, "", []map[string]any{
			saleRow("Delhi", "1000", "100"),
		})
		So(err, ShouldBeNil)
		_, err = svc.IngestRecords(ctx, "samsung_croma", model.KindSales, "", []map[string]any{
			saleRow("Mumbai", "2000", "200"),
		})
		So(err, ShouldBeNil)

		Convey("The samsung overview sums the variants", func() {
			s, err := svc.Summary(ctx, service.Query{Partner: "samsung"})
			So(err, ShouldBeNil)
			So(s.GrossPremium, ShouldEqual, 3000)
			So(s.UnitCount, ShouldEqual, 2)
		})

		Convey("A single variant reports only its own book", func() {
			s, err := svc.Summary(ctx, service.Query{Partner: "samsung_croma"})
			So(err, ShouldBeNil)
			So(s.GrossPremium, ShouldEqual, 2000)
		})
	})
}

func TestServiceFreshness(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("An invalid kind is rejected", func() {
			_, err := svc.Freshness(ctx, "godrej", "refunds")
			So(err, ShouldWrap, engine.ErrInvalidKind)
		})

		Convey("A tag with no writes has no marker and no bounds", func() {
			f, err := svc.Freshness(ctx, "godrej", model.KindSales)
			So(err, ShouldBeNil)
			So(f.LastUpdated.IsZero(), ShouldBeTrue)
			So(f.DataFrom.IsZero(), ShouldBeTrue)
		})

		Convey("After a write the marker and data bounds are set", func() {
			_, err := svc.IngestRecords(ctx, "godrej", model.KindSales, "", []map[string]any{
				{"Customer Premium": "100", "Month": "Jan-25"},
				{"Customer Premium": "200", "Month": "Mar-25"},
			})
			So(err, ShouldBeNil)

			f, err := svc.Freshness(ctx, "godrej", model.KindSales)
			So(err, ShouldBeNil)
			So(f.LastUpdated.IsZero(), ShouldBeFalse)
			So(f.DataFrom, ShouldResemble, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
			So(f.DataTo, ShouldResemble, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
		})
	})
}
