package seeddata

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Value ranges for generated premiums and claims.
const (
	premiumMin       = 500.0
	premiumRange     = 4500.0
	claimMin         = 200.0
	claimRange       = 2800.0
	deductible       = 99.0
	shareOfPremium   = 0.35
	randomDivisor    = 1000000
	coverageYearsMin = 1
	coverageYearsTop = 3
)

var (
	states   = []string{"Maharashtra", "Karnataka", "Delhi", "Tamil Nadu", "Gujarat", "West Bengal"}
	channels = []string{"D2D", "POS", "Calling Process", "POD", "Amazon"}
	brands   = []string{"Samsung", "LG", "Whirlpool", "Oppo", "Vivo", "Xiaomi"}
	plans    = []string{"Mass", "Mid", "High", "Premium", "Super Premium", "EW"}
	products = []string{"Refrigerator", "Washing Machine", "Air Conditioner", "Television"}
)

// randomFloat returns a random float64 in [0, 1) using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomDivisor))
	return float64(n.Int64()) / float64(randomDivisor)
}

func pick(options []string) string {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(options))))
	return options[n.Int64()]
}

// batch is one upload destined for POST /records.
type batch struct {
	Partner string
	Kind    string
	BatchID string
	Rows    []map[string]any
}

// generateBatches builds one sales and one claims batch per partner.
func generateBatches(config *Config, batchID string) []batch {
	batches := make([]batch, 0, len(config.Partners)*2)
	for _, partner := range config.Partners {
		family, _, _ := strings.Cut(partner, "_")
		batches = append(batches,
			batch{Partner: partner, Kind: "sales", BatchID: batchID, Rows: salesRows(family, config.RowsPerBatch)},
			batch{Partner: partner, Kind: "claims", BatchID: batchID, Rows: claimsRows(family, partner, config.RowsPerBatch)},
		)
	}
	return batches
}

// saleDates returns a coverage start spread across 2025 plus a matching end.
func saleDates(i int) (time.Time, time.Time) {
	start := time.Date(2025, time.Month(1+i%12), 1+i%28, 0, 0, 0, 0, time.UTC)
	years := coverageYearsMin + i%coverageYearsTop
	return start, start.AddDate(years, 0, 0)
}

func salesRows(family string, n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		start, end := saleDates(i)
		premium := premiumMin + randomFloat()*premiumRange
		share := premium * shareOfPremium

		switch family {
		case "godrej":
			rows[i] = map[string]any{
				"Customer Premium":    fmt.Sprintf("%.2f", premium),
				"Warranty Start Date": start.Format("2006-01-02"),
				"Warranty End Date":   end.Format("2006-01-02"),
				"Month":               start.Format("Jan-06"),
				"Channel":             pick(channels),
				"State":               pick(states),
				"Product_Category":    pick(products),
				"Brand":               pick(brands),
			}
		case "reliance":
			rows[i] = map[string]any{
				"Plan Selling Price":               fmt.Sprintf("%.2f", premium),
				"Zopper Shared ( Transfer Price )": fmt.Sprintf("%.2f", share),
				"Plan Start Date":                  start.Format("2006-01-02"),
				"Plan End Date":                    end.Format("2006-01-02"),
				"Month":                            start.Format("200601"),
				"State":                            pick(states),
				"Product Brand(Group)":             pick(brands),
				"Plan Type":                        pick(plans),
			}
		default: // samsung
			rows[i] = map[string]any{
				"Amount":               fmt.Sprintf("%.2f", premium),
				"Zopper Share":         fmt.Sprintf("%.2f", share),
				"Start_Date":           start.Format("2006-01-02"),
				"End_Date":             end.Format("2006-01-02"),
				"Month":                start.Format("Jan-06"),
				"State":                pick(states),
				"Plan_Category":        pick(plans),
				"Device_Plan_Category": pick(plans),
				"Brand":                "Samsung",
				"Policy Number":        fmt.Sprintf("POL-%s-%06d", strings.ToUpper(family), i),
			}
		}
	}
	return rows
}

func claimsRows(family, partner string, n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		callDate := time.Date(2025, time.Month(1+i%12), 1+i%28, 0, 0, 0, 0, time.UTC)
		amount := claimMin + randomFloat()*claimRange

		switch family {
		case "godrej":
			rows[i] = map[string]any{
				"Claim_Amount":     fmt.Sprintf("%.2f", amount),
				"Claim Date":       callDate.Format("2006-01-02"),
				"Channel":          pick(channels),
				"State":            pick(states),
				"Product_Category": pick(products),
			}
		case "reliance":
			rows[i] = map[string]any{
				"Zopper's Cost":        fmt.Sprintf("%.2f", amount),
				"One time deductible":  fmt.Sprintf("%.2f", deductible),
				"Customer Paid":        "0",
				"Day of Call_Date":     callDate.Format("2006-01-02"),
				"State":                pick(states),
				"Product Brand(Group)": pick(brands),
				"Warranty Type":        pick(plans),
			}
		default: // samsung: claims carry the selling partner's display name
			name := "Samsung"
			if strings.Contains(partner, "vs") {
				name = "Vijay Sales"
			} else if strings.Contains(partner, "croma") {
				name = "Croma"
			}
			rows[i] = map[string]any{
				"Net Amount":       fmt.Sprintf("%.2f", amount),
				"OTD Amount":       fmt.Sprintf("%.2f", deductible),
				"Day of Call_Date": callDate.Format("2006-01-02"),
				"Partner Name":     name,
				"Plan Category":    pick(plans),
			}
		}
	}
	return rows
}
