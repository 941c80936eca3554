package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/salesql/salesql/internal/schema"
)

const (
	DefaultSeed = 42
	DefaultRows = 1000
	DefaultYear = 2023

	dateLayout = "2006-01-02"
)

// Sale is one row of the sales table. Field order matches schema.Sales().
type Sale struct {
	OrderID       string  `parquet:"order_id" json:"order_id"`
	CustomerID    string  `parquet:"customer_id" json:"customer_id"`
	OrderDate     string  `parquet:"order_date" json:"order_date"`
	Product       string  `parquet:"product" json:"product"`
	Category      string  `parquet:"category" json:"category"`
	Region        string  `parquet:"region" json:"region"`
	Quantity      int64   `parquet:"quantity" json:"quantity"`
	UnitPrice     float64 `parquet:"unit_price" json:"unit_price"`
	TotalSales    float64 `parquet:"total_sales" json:"total_sales"`
	CostPrice     float64 `parquet:"cost_price" json:"cost_price"`
	Profit        float64 `parquet:"profit" json:"profit"`
	PaymentMethod string  `parquet:"payment_method" json:"payment_method"`
	CustomerType  string  `parquet:"customer_type" json:"customer_type"`
	Discount      float64 `parquet:"discount" json:"discount"`
}

func (s Sale) Values() []any {
	return []any{
		s.OrderID, s.CustomerID, s.OrderDate, s.Product, s.Category, s.Region,
		s.Quantity, s.UnitPrice, s.TotalSales, s.CostPrice, s.Profit,
		s.PaymentMethod, s.CustomerType, s.Discount,
	}
}

// Month returns the YYYY-MM prefix of the order date.
func (s Sale) Month() string {
	if len(s.OrderDate) < 7 {
		return ""
	}
	return s.OrderDate[:7]
}

type Generator struct {
	rnd      *rand.Rand
	start    time.Time
	days     int
	sequence int
}

// NewGenerator returns a deterministic generator of orders placed during
// year. The same seed and year always yield the same rows.
func NewGenerator(seed int64, year int) *Generator {
	if year <= 0 {
		year = DefaultYear
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &Generator{
		rnd:   rand.New(rand.NewSource(seed)),
		start: start,
		days:  daysInYear(year),
	}
}

func (g *Generator) Next() Sale {
	sequence := g.sequence
	g.sequence++

	orderDate := g.start.AddDate(0, 0, g.rnd.Intn(g.days))
	quantity := int64(g.rnd.Intn(5) + 1)
	unitPrice := round2(50 + g.rnd.Float64()*1950)
	costPrice := round2(unitPrice * (0.4 + g.rnd.Float64()*0.3))

	return Sale{
		OrderID:       fmt.Sprintf("ORD%d", 10000+sequence),
		CustomerID:    fmt.Sprintf("CUST%d", 1000+g.rnd.Intn(9000)),
		OrderDate:     orderDate.Format(dateLayout),
		Product:       pickOne(g.rnd, schema.Products),
		Category:      pickOne(g.rnd, schema.Categories),
		Region:        pickOne(g.rnd, schema.Regions),
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		TotalSales:    round2(float64(quantity) * unitPrice),
		CostPrice:     costPrice,
		Profit:        round2((unitPrice - costPrice) * float64(quantity)),
		PaymentMethod: pickOne(g.rnd, schema.PaymentMethods),
		CustomerType:  pickOne(g.rnd, schema.CustomerTypes),
		Discount:      round2(g.rnd.Float64() * 0.3),
	}
}

func (g *Generator) Generate(n int) []Sale {
	if n <= 0 {
		return nil
	}
	rows := make([]Sale, 0, n)
	for range n {
		rows = append(rows, g.Next())
	}
	return rows
}

// Generate is shorthand for NewGenerator(seed, year).Generate(n).
func Generate(seed int64, year, n int) []Sale {
	return NewGenerator(seed, year).Generate(n)
}

func daysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
