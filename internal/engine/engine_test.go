package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/zopper/recon/internal/adapters/repository"
	"github.com/zopper/recon/internal/adapters/snapshot"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/engine"
	. "github.com/smartystreets/goconvey/convey"
)

func newCache(recs ...model.Record) *snapshot.Cache {
	store := repository.NewMemoryStore()
	if err := store.InsertRecords(context.Background(), recs); err != nil {
		panic(err)
	}
	return snapshot.New(store)
}

// rowIndex keys aggregation output by dimension label for order-free asserts.
func rowIndex(rows []model.AggregateRow) map[string]model.AggregateRow {
	out := make(map[string]model.AggregateRow, len(rows))
	for _, r := range rows {
		out[r.Dimension] = r
	}
	return out
}

func samsungSale(policy, state, plan, month, start, end string, amount, share any) model.Record {
	return model.Record{
		Partner: "samsung_vs",
		Kind:    model.KindSales,
		Data: map[string]any{
			"Policy Number": policy,
			"State":         state,
			"Plan_Category": plan,
			"Month":         month,
			"Start_Date":    start,
			"End_Date":      end,
			"Amount":        amount,
			"Zopper Share":  share,
		},
	}
}

func TestNormalizePartner(t *testing.T) {
	Convey("Partner names canonicalize across spellings and separators", t, func() {
		cases := map[string]string{
			"Samsung_VS":          "samsung_vs",
			"samsung-vs":          "samsung_vs",
			"Vijay Sales":         "samsung_vs",
			"samsung vijay sales": "samsung_vs",
			"Croma":               "samsung_croma",
			"Samsung Croma":       "samsung_croma",
			"ResQ":                "reliance",
			"Reliance ResQ":       "reliance",
			"Goodrej":             "godrej",
			"goddrej":             "godrej",
			"  godrej  ":          "godrej",
			"Acme Corp":           "acme_corp",
		}
		for in, want := range cases {
			So(engine.NormalizePartner(in), ShouldEqual, want)
		}
	})
}

func TestNewEngine(t *testing.T) {
	Convey("Given a snapshot cache", t, func() {
		cache := newCache()

		Convey("An unknown partner is rejected", func() {
			_, err := engine.New(engine.Params{Partner: "nokia"}, cache)
			So(err, ShouldWrap, engine.ErrUnknownPartner)
		})

		Convey("An invalid kind is rejected", func() {
			_, err := engine.New(engine.Params{Partner: "godrej", Kind: "refunds"}, cache)
			So(err, ShouldWrap, engine.ErrInvalidKind)
		})

		Convey("An empty kind defaults to sales", func() {
			e, err := engine.New(engine.Params{Partner: "godrej"}, cache)
			So(err, ShouldBeNil)
			s, err := e.ComputeSummary(context.Background())
			So(err, ShouldBeNil)
			So(s, ShouldResemble, model.Summary{})
		})
	})
}

func TestSamsungSales(t *testing.T) {
	Convey("Given a samsung_vs sales book", t, func() {
		cache := newCache(
			samsungSale("P1", "Delhi", "Mass", "Jul-25", "2025-07-01", "2026-06-30", "1000", "100"),
			samsungSale("P1", "Delhi", "Mass", "Jul-25", "2025-07-01", "2026-06-30", "1000", "100"),
			samsungSale("P2", "Delhi", "Mid", "Aug-25", "2025-08-01", "2026-07-31", "2000", "200"),
			samsungSale("P3", "Karnataka", "Mass", "Jul-25", "2025-07-15", "2026-07-14", "500", "50"),
		)
		ctx := context.Background()

		Convey("With no request window", func() {
			e, err := engine.New(engine.Params{Partner: "samsung_vs"}, cache)
			So(err, ShouldBeNil)

			Convey("Gross premium by state sums the amount column", func() {
				rows, err := e.ComputeByDimension(ctx, "state", "gross_premium")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				idx := rowIndex(rows)
				So(idx["Delhi"].Value, ShouldEqual, 4000)
				So(idx["Karnataka"].Value, ShouldEqual, 500)
			})

			Convey("Earned premium equals written when the window is open", func() {
				rows, err := e.ComputeByDimension(ctx, "state", "earned_premium")
				So(err, ShouldBeNil)
				idx := rowIndex(rows)
				So(idx["Delhi"].Value, ShouldAlmostEqual, 4000, 1e-9)
				So(idx["Karnataka"].Value, ShouldAlmostEqual, 500, 1e-9)
			})

			Convey("Shared earned premium carries the GST gross-up", func() {
				rows, err := e.ComputeByDimension(ctx, "state", "shared_earned_premium")
				So(err, ShouldBeNil)
				idx := rowIndex(rows)
				So(idx["Delhi"].Value, ShouldAlmostEqual, 400*1.18, 1e-9)
				So(idx["Karnataka"].Value, ShouldAlmostEqual, 50*1.18, 1e-9)
			})

			Convey("Month buckets come back chronological", func() {
				rows, err := e.ComputeByDimension(ctx, "month", "gross_premium")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Dimension, ShouldEqual, "Jul-25")
				So(rows[0].Value, ShouldEqual, 2500)
				So(rows[0].Month, ShouldResemble, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
				So(rows[1].Dimension, ShouldEqual, "Aug-25")
				So(rows[1].Value, ShouldEqual, 2000)
			})

			Convey("Plan category quantity dedupes by policy and ranks tiers", func() {
				rows, err := e.ComputeByDimension(ctx, "plan_category", "quantity")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Dimension, ShouldEqual, "Mass")
				So(rows[0].Value, ShouldEqual, 2)
				So(rows[1].Dimension, ShouldEqual, "Mid")
				So(rows[1].Value, ShouldEqual, 1)
			})

			Convey("An unknown dimension falls back to a literal column", func() {
				rows, err := e.ComputeByDimension(ctx, "policy number", "quantity")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 3)
			})

			Convey("A bogus metric degrades to an empty result", func() {
				rows, err := e.ComputeByDimension(ctx, "state", "refund_total")
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})

			Convey("A bogus dimension degrades to an empty result", func() {
				rows, err := e.ComputeByDimension(ctx, "constellation", "gross_premium")
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})
		})

		Convey("With a July-only request window", func() {
			e, err := engine.New(engine.Params{
				Partner: "samsung_vs",
				From:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
				To:      time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
			}, cache)
			So(err, ShouldBeNil)

			Convey("August rows drop out and earning is pro-rata", func() {
				rows, err := e.ComputeByDimension(ctx, "state", "earned_premium")
				So(err, ShouldBeNil)
				idx := rowIndex(rows)
				So(idx["Delhi"].Value, ShouldAlmostEqual, 2*(1000.0*31/364), 1e-9)
				So(idx["Karnataka"].Value, ShouldAlmostEqual, 500.0*17/364, 1e-9)
			})
		})
	})
}

func TestSamsungExtendedWarrantyShift(t *testing.T) {
	Convey("Given a book with an extended-warranty plan", t, func() {
		cache := newCache(
			samsungSale("P1", "Delhi", "Mass", "Jul-25", "2025-07-01", "2025-12-31", "1000", "100"),
			samsungSale("P2", "Delhi", "EW", "Jul-25", "2025-07-01", "2025-12-31", "1200", "120"),
		)
		ctx := context.Background()
		e, err := engine.New(engine.Params{
			Partner: "samsung_vs",
			From:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			To:      time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		}, cache)
		So(err, ShouldBeNil)

		Convey("The EW coverage shifts a year out and earns nothing yet", func() {
			s, err := e.ComputeSummary(ctx)
			So(err, ShouldBeNil)
			So(s.GrossPremium, ShouldEqual, 2200)
			So(s.EarnedPremium, ShouldAlmostEqual, 1000, 1e-9)
			So(s.SharedEarnedPremium, ShouldAlmostEqual, 100*1.18, 1e-9)

			Convey("And summary units count rows before the date filter", func() {
				So(s.UnitCount, ShouldEqual, 2)
			})
		})
	})
}

func TestSamsungClaims(t *testing.T) {
	claim := func(seller, state string, net, otd any) model.Record {
		return model.Record{
			Partner: "samsung",
			Kind:    model.KindClaims,
			Data: map[string]any{
				"Partner Name": seller,
				"State":        state,
				"Net Amount":   net,
				"OTD Amount":   otd,
				"Month":        "Jul-25",
			},
		}
	}

	Convey("Given a samsung-wide claims file", t, func() {
		cache := newCache(
			claim("Vijay Sales", "Delhi", "500", "100"),
			claim("Croma", "Delhi", "300", "0"),
			claim("Vijay Sales Bulk", "Karnataka", "200", "50"),
		)
		ctx := context.Background()

		Convey("A sub-variant engine sees only its seller's rows", func() {
			e, err := engine.New(engine.Params{Partner: "samsung_vs", Kind: model.KindClaims}, cache)
			So(err, ShouldBeNil)

			rows, err := e.ComputeByDimension(ctx, "state", "claims")
			So(err, ShouldBeNil)
			idx := rowIndex(rows)
			So(idx["Delhi"].Value, ShouldEqual, 500)
			So(idx["Karnataka"].Value, ShouldEqual, 200)

			Convey("And net claims subtract the deductible", func() {
				rows, err := e.ComputeByDimension(ctx, "state", "net_claims")
				So(err, ShouldBeNil)
				idx := rowIndex(rows)
				So(idx["Delhi"].Value, ShouldEqual, 400)
				So(idx["Karnataka"].Value, ShouldEqual, 150)
			})

			Convey("And the claims summary rolls up net amounts", func() {
				s, err := e.ComputeSummary(ctx)
				So(err, ShouldBeNil)
				So(s.GrossPremium, ShouldEqual, 700)
				So(s.EarnedPremium, ShouldEqual, 550)
				So(s.SharedEarnedPremium, ShouldEqual, 550)
				So(s.UnitCount, ShouldEqual, 2)
			})
		})

		Convey("The family engine sees every seller", func() {
			e, err := engine.New(engine.Params{Partner: "samsung", Kind: model.KindClaims}, cache)
			So(err, ShouldBeNil)

			rows, err := e.ComputeByDimension(ctx, "state", "claims")
			So(err, ShouldBeNil)
			idx := rowIndex(rows)
			So(idx["Delhi"].Value, ShouldEqual, 800)
			So(idx["Karnataka"].Value, ShouldEqual, 200)
		})
	})
}

func TestSamsungLossRatio(t *testing.T) {
	Convey("Given sales and claims for the same book", t, func() {
		cache := newCache(
			samsungSale("P1", "Delhi", "Mass", "Jul-25", "2025-07-01", "2026-06-30", "5000", "1000"),
			samsungSale("P2", "Karnataka", "Mid", "Jul-25", "2025-07-01", "2026-06-30", "2500", "500"),
			model.Record{
				Partner: "samsung",
				Kind:    model.KindClaims,
				Data: map[string]any{
					"Partner Name": "Vijay Sales",
					"State":        "Delhi",
					"Net Amount":   "500",
					"OTD Amount":   "100",
					"Month":        "Jul-25",
				},
			},
		)
		ctx := context.Background()
		e, err := engine.New(engine.Params{Partner: "samsung_vs", Kind: model.KindClaims}, cache)
		So(err, ShouldBeNil)

		Convey("The ratio joins net claims onto shared earned premium", func() {
			rows, err := e.ComputeByDimension(ctx, "state", "loss_ratio")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			idx := rowIndex(rows)
			So(idx["Delhi"].Value, ShouldAlmostEqual, 400.0/(1000*1.18)*100, 1e-9)

			Convey("And sold states with no claims report zero", func() {
				So(idx["Karnataka"].Value, ShouldEqual, 0)
			})
		})
	})
}

func TestSamsungPlanAlignsToDevice(t *testing.T) {
	Convey("Given claims labeled by device and sales carrying both columns", t, func() {
		sale := samsungSale("P1", "Delhi", "Mass", "Jul-25", "2025-07-01", "2026-06-30", "5000", "1000")
		sale.Data["Device_Plan_Category"] = "Smartphone"
		cache := newCache(
			sale,
			model.Record{
				Partner: "samsung",
				Kind:    model.KindClaims,
				Data: map[string]any{
					"Partner Name":  "Vijay Sales",
					"Plan Category": "Smartphone",
					"Net Amount":    "236",
					"OTD Amount":    "0",
					"Month":         "Jul-25",
				},
			},
		)
		e, err := engine.New(engine.Params{Partner: "samsung_vs", Kind: model.KindClaims}, cache)
		So(err, ShouldBeNil)

		Convey("A plan_category loss ratio joins on the device column", func() {
			rows, err := e.ComputeByDimension(context.Background(), "plan_category", "loss_ratio")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Dimension, ShouldEqual, "Smartphone")
			So(rows[0].Value, ShouldAlmostEqual, 236.0/(1000*1.18)*100, 1e-9)
		})
	})
}

func godrejSale(channel string, premium any) model.Record {
	return model.Record{
		Partner: "godrej",
		Kind:    model.KindSales,
		Data: map[string]any{
			"Customer Premium":    premium,
			"Warranty Start Date": "2025-01-01",
			"Warranty End Date":   "2025-06-30",
			"Month":               "Jan-25",
			"Channel":             channel,
			"Product_Category":    "Refrigerator",
			"Brand":               "Godrej",
		},
	}
}

func TestGodrejRevenueSplit(t *testing.T) {
	Convey("Given sales across godrej channels", t, func() {
		cache := newCache(
			godrejSale("D2D", "1000"),
			godrejSale("Calling Process", "1000"),
			godrejSale("POD", "1000"),
			godrejSale("Amazon", "1000"),
			godrejSale("Retail", "1000"),
		)
		ctx := context.Background()
		e, err := engine.New(engine.Params{Partner: "godrej"}, cache)
		So(err, ShouldBeNil)

		Convey("Zopper's share follows the per-channel split", func() {
			rows, err := e.ComputeByDimension(ctx, "channel", "shared_earned_premium")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 5)
			idx := rowIndex(rows)
			So(idx["D2D"].Value, ShouldAlmostEqual, 400, 1e-9)
			So(idx["Calling Process"].Value, ShouldAlmostEqual, 350, 1e-9)
			So(idx["POD"].Value, ShouldAlmostEqual, 450, 1e-9)
			So(idx["Amazon"].Value, ShouldAlmostEqual, 250, 1e-9)

			Convey("And an unlisted channel earns no share", func() {
				So(idx["Retail"].Value, ShouldEqual, 0)
			})
		})

		Convey("The summary rolls the whole book up", func() {
			s, err := e.ComputeSummary(ctx)
			So(err, ShouldBeNil)
			So(s.GrossPremium, ShouldEqual, 5000)
			So(s.EarnedPremium, ShouldAlmostEqual, 5000, 1e-9)
			So(s.SharedEarnedPremium, ShouldAlmostEqual, 1450, 1e-9)
			So(s.UnitCount, ShouldEqual, 5)
		})
	})
}

func TestGodrejDurationFallback(t *testing.T) {
	Convey("Given a sale shipping a plan duration instead of an end date", t, func() {
		cache := newCache(model.Record{
			Partner: "godrej",
			Kind:    model.KindSales,
			Data: map[string]any{
				"Customer Premium":     "1000",
				"Warranty Start Date":  "2025-07-01",
				"Zopper Plan Duration": "12",
				"Month":                "Jul-25",
				"Channel":              "D2D",
			},
		})
		e, err := engine.New(engine.Params{Partner: "godrej"}, cache)
		So(err, ShouldBeNil)

		Convey("Coverage derives from the duration and earns to valuation", func() {
			s, err := e.ComputeSummary(context.Background())
			So(err, ShouldBeNil)
			So(s.EarnedPremium, ShouldAlmostEqual, 1000.0*184/360, 1e-9)
			So(s.SharedEarnedPremium, ShouldAlmostEqual, 1000.0*184/360*0.40, 1e-9)
		})
	})
}

func TestGodrejLossRatio(t *testing.T) {
	Convey("Given claims against one channel", t, func() {
		cache := newCache(
			godrejSale("D2D", "1000"),
			godrejSale("Amazon", "1000"),
			model.Record{
				Partner: "godrej",
				Kind:    model.KindClaims,
				Data: map[string]any{
					"Claim_Amount": "100",
					"Claim Date":   "2025-03-10",
					"Month":        "Mar-25",
					"Channel":      "d2d",
				},
			},
		)
		e, err := engine.New(engine.Params{Partner: "godrej", Kind: model.KindClaims}, cache)
		So(err, ShouldBeNil)

		Convey("The join key bridges the label casing", func() {
			rows, err := e.ComputeByDimension(context.Background(), "channel", "loss_ratio")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			idx := rowIndex(rows)
			So(idx["d2d"].Value, ShouldAlmostEqual, 100.0/400*100, 1e-6)
			So(idx["Amazon"].Value, ShouldEqual, 0)
		})
	})
}

func relianceSale(month, state, brand, planType string, price, transfer any) model.Record {
	return model.Record{
		Partner: "reliance",
		Kind:    model.KindSales,
		Data: map[string]any{
			"Plan Selling Price":               price,
			"Zopper Shared ( Transfer Price )": transfer,
			"Plan Start Date":                  "2025-07-01",
			"Plan End Date":                    "2025-12-31",
			"Month":                            month,
			"State":                            state,
			"Brand":                            brand,
			"Plan Type":                        planType,
		},
	}
}

func TestRelianceSales(t *testing.T) {
	Convey("Given a reliance sales book straddling the reporting window", t, func() {
		r2 := relianceSale("202508", "Maharashtra", "Pad", "Combo", "3000", "1500")
		r2.Data["Plan Start Date"] = "2025-08-01"
		r2.Data["Plan End Date"] = "2026-07-31"
		cache := newCache(
			relianceSale("202507", "Delhi", "Idea", "Combo", "2000", "1000"),
			r2,
			relianceSale("202506", "Gujarat", "Idea", "Combo", "100", "50"),
			relianceSale("202507", "Delhi", "Samsung", "EW", "500", "250"),
		)
		ctx := context.Background()
		e, err := engine.New(engine.Params{Partner: "reliance"}, cache)
		So(err, ShouldBeNil)

		Convey("Months before the window never report", func() {
			rows, err := e.ComputeByDimension(ctx, "month", "gross_premium")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].Dimension, ShouldEqual, "Jul-25")
			So(rows[1].Dimension, ShouldEqual, "Aug-25")
		})

		Convey("Quantity carries the excluded EW units as an extra", func() {
			rows, err := e.ComputeByDimension(ctx, "state", "quantity")
			So(err, ShouldBeNil)
			idx := rowIndex(rows)
			So(idx["Delhi"].Value, ShouldEqual, 1)
			So(idx["Delhi"].Extra["ew_count"], ShouldEqual, 1)
			So(idx["Maharashtra"].Value, ShouldEqual, 1)
			So(idx["Maharashtra"].Extra, ShouldBeNil)
		})

		Convey("A bucket sold only as EW appears with a zero main count", func() {
			rows, err := e.ComputeByDimension(ctx, "brand", "quantity")
			So(err, ShouldBeNil)
			idx := rowIndex(rows)
			So(idx["Lenovo"].Value, ShouldEqual, 1)
			So(idx["Redmi"].Value, ShouldEqual, 1)
			So(idx["Samsung"].Value, ShouldEqual, 0)
			So(idx["Samsung"].Extra["ew_count"], ShouldEqual, 1)
		})

		Convey("The summary excludes EW premium and clips earning", func() {
			s, err := e.ComputeSummary(ctx)
			So(err, ShouldBeNil)
			So(s.GrossPremium, ShouldEqual, 5000)
			So(s.EarnedPremium, ShouldAlmostEqual, 2000+3000.0*153/364, 1e-9)
			So(s.SharedEarnedPremium, ShouldAlmostEqual, 1000*1.18+1500*1.18*153/364, 1e-6)
			So(s.UnitCount, ShouldEqual, 2)
		})
	})
}

func TestRelianceClaims(t *testing.T) {
	Convey("Given a claims file with no deductible column", t, func() {
		cache := newCache(model.Record{
			Partner: "reliance",
			Kind:    model.KindClaims,
			Data: map[string]any{
				"Zopper's Cost":        "1500",
				"Customer Paid":        "100",
				"Month":                "202507",
				"Warranty Type":        "Screen Protection",
				"Product Brand(Group)": "OPPO",
				"State":                "Delhi",
			},
		})
		ctx := context.Background()
		e, err := engine.New(engine.Params{Partner: "reliance", Kind: model.KindClaims}, cache)
		So(err, ShouldBeNil)

		Convey("The default deductible applies", func() {
			rows, err := e.ComputeByDimension(ctx, "state", "net_claims")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Value, ShouldEqual, 1500-999-100)
		})

		Convey("Warranty types are relabeled", func() {
			rows, err := e.ComputeByDimension(ctx, "plan_category", "claims")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Dimension, ShouldEqual, "Cracked Screen")
		})

		Convey("Brand casing is repaired", func() {
			rows, err := e.ComputeByDimension(ctx, "brand", "claims")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Dimension, ShouldEqual, "Oppo")
		})
	})

	Convey("Given a claims file shipping its own deductible", t, func() {
		cache := newCache(model.Record{
			Partner: "reliance",
			Kind:    model.KindClaims,
			Data: map[string]any{
				"Zopper's Cost":       "1200",
				"One time deductible": "200",
				"Customer Paid":       "0",
				"Month":               "202507",
				"State":               "Delhi",
			},
		})
		e, err := engine.New(engine.Params{Partner: "reliance", Kind: model.KindClaims}, cache)
		So(err, ShouldBeNil)

		Convey("The shipped column wins over the default", func() {
			rows, err := e.ComputeByDimension(context.Background(), "state", "net_claims")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Value, ShouldEqual, 1000)
		})
	})
}
