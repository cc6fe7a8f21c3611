package schema_test

import (
	"testing"

	"github.com/zopper/recon/internal/domain/schema"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given raw column names", t, func() {
		So(schema.Normalize("Plan_Category"), ShouldEqual, "plancategory")
		So(schema.Normalize(" Plan Category "), ShouldEqual, "plancategory")
		So(schema.Normalize("plan-category"), ShouldEqual, "plancategory")
		So(schema.Normalize("Zopper Shared ( Transfer Price )"), ShouldEqual, "zoppersharedtransferprice")
	})
}

func TestResolve(t *testing.T) {
	aliases := schema.AliasTable{
		schema.FieldPremiumAmount: {"Amount", "Premium"},
		schema.FieldState:         {"State", "Region", "Channel"},
	}

	Convey("Given a partner's columns", t, func() {
		columns := []string{"amount ", "Region", "Extra"}

		Convey("When the first alias is present under fuzzy spelling", func() {
			col, ok := schema.Resolve(columns, schema.FieldPremiumAmount, aliases)

			Convey("Then the raw column name comes back", func() {
				So(ok, ShouldBeTrue)
				So(col, ShouldEqual, "amount ")
			})
		})

		Convey("When only a lower-priority alias is present", func() {
			col, ok := schema.Resolve(columns, schema.FieldState, aliases)

			So(ok, ShouldBeTrue)
			So(col, ShouldEqual, "Region")
		})

		Convey("When no alias matches", func() {
			_, ok := schema.Resolve(columns, schema.FieldBrand, aliases)

			So(ok, ShouldBeFalse)
		})

		Convey("When two aliases are present", func() {
			col, ok := schema.Resolve([]string{"Premium", "Amount"}, schema.FieldPremiumAmount, aliases)

			Convey("Then table order wins, not column order", func() {
				So(ok, ShouldBeTrue)
				So(col, ShouldEqual, "Amount")
			})
		})
	})
}

func TestResolveLiteral(t *testing.T) {
	Convey("Given ad-hoc candidate lists", t, func() {
		col, ok := schema.ResolveLiteral([]string{"Plan Category", "Brand"}, []string{"plan_category"})

		So(ok, ShouldBeTrue)
		So(col, ShouldEqual, "Plan Category")
	})
}
