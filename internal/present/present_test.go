package present

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesql/salesql/internal/nl2sql"
	"github.com/salesql/salesql/internal/schema"
)

func newBuilder() *Builder {
	return NewBuilder(schema.Sales(), Options{})
}

func TestSingleValueBecomesMetric(t *testing.T) {
	view := newBuilder().Build(nl2sql.ShapeScalar, []string{"total_sales"}, [][]any{{1234567.891}})
	require.Equal(t, KindMetric, view.Kind)
	require.NotNil(t, view.Metric)
	assert.Equal(t, "Total Sales", view.Metric.Label)
	assert.Equal(t, "$1,234,567.89", view.Metric.Formatted)
	assert.Nil(t, view.Chart)
	assert.Empty(t, view.Summary)

	view = newBuilder().Build(nl2sql.ShapeScalar, []string{"order_count"}, [][]any{{int64(1042)}})
	require.NotNil(t, view.Metric)
	assert.Equal(t, "1,042", view.Metric.Formatted)

	view = newBuilder().Build(nl2sql.ShapeScalar, []string{"avg_discount"}, [][]any{{0.1534}})
	require.NotNil(t, view.Metric)
	assert.Equal(t, "0.15", view.Metric.Formatted)
}

func TestMonthlySeriesGetsLineChart(t *testing.T) {
	rows := make([][]any, 0, 24)
	for i := range 24 {
		rows = append(rows, []any{"2023-01", float64(i)})
	}
	view := newBuilder().Build(nl2sql.ShapeTimeSeries, []string{"month", "total_sales"}, rows)
	require.NotNil(t, view.Chart)
	assert.Equal(t, Chart{Type: ChartLine, X: "month", Y: "total_sales"}, *view.Chart)
	assert.Equal(t, KindTable, view.Kind)
}

func TestCategoricalResultGetsBarChart(t *testing.T) {
	columns := []string{"region", "total_sales", "order_count"}
	rows := [][]any{
		{"North America", 100.0, int64(3)},
		{"Europe", 80.0, int64(2)},
		{"Asia", 60.0, int64(4)},
	}
	view := newBuilder().Build(nl2sql.ShapeCategoricalAggregate, columns, rows)
	require.NotNil(t, view.Chart)
	assert.Equal(t, Chart{Type: ChartBar, X: "region", Y: "total_sales"}, *view.Chart)
	require.Len(t, view.Summary, 2)
	assert.Equal(t, "total_sales", view.Summary[0].Column)
	assert.Equal(t, "order_count", view.Summary[1].Column)
}

func TestChartRules(t *testing.T) {
	builder := NewBuilder(schema.Sales(), Options{MaxCategories: 3})

	single := builder.Build(nl2sql.ShapeCategoricalAggregate, []string{"region", "total_sales"}, [][]any{{"Asia", 1.0}})
	assert.Nil(t, single.Chart)

	many := make([][]any, 4)
	for i := range many {
		many[i] = []any{"Asia", float64(i)}
	}
	assert.Nil(t, builder.Build(nl2sql.ShapeCategoricalAggregate, []string{"region", "total_sales"}, many).Chart)

	text := builder.Build(nl2sql.ShapeTable, []string{"region"}, [][]any{{"Asia"}, {"Europe"}})
	assert.Nil(t, text.Chart)
	assert.Empty(t, text.Summary)

	comparison := builder.Build(nl2sql.ShapeCategoricalAggregate, []string{"period", "total_sales"}, [][]any{{"Q1", 1.0}, {"Q2", 2.0}})
	require.NotNil(t, comparison.Chart)
	assert.Equal(t, ChartBar, comparison.Chart.Type)
}

func TestEmptyResult(t *testing.T) {
	view := newBuilder().Build(nl2sql.ShapeTable, []string{"order_id"}, nil)
	assert.Equal(t, KindEmpty, view.Kind)
	assert.NotNil(t, view.Rows)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, view))
	assert.Equal(t, "(no rows)\n", buf.String())
}

func TestSummarizeMatchesDescribe(t *testing.T) {
	summary := Summarize([]string{"x"}, [][]any{{1.0}, {2.0}, {3.0}, {4.0}}, []int{0})
	require.Len(t, summary, 1)
	s := summary[0]
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.InDelta(t, 1.2909944, s.Std, 1e-6)
	assert.InDelta(t, 1.0, s.Min, 1e-9)
	assert.InDelta(t, 1.75, s.P25, 1e-9)
	assert.InDelta(t, 2.5, s.P50, 1e-9)
	assert.InDelta(t, 3.25, s.P75, 1e-9)
	assert.InDelta(t, 4.0, s.Max, 1e-9)
}

func TestNumericColumnsIgnoreNulls(t *testing.T) {
	rows := [][]any{{"a", nil, int64(1)}, {"b", 2.5, "x"}}
	assert.Equal(t, []int{1}, numericColumns([]string{"s", "n", "mixed"}, rows))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "$12.50", FormatValue("unit_price", 12.5))
	assert.Equal(t, "-$1,000.00", FormatValue("profit", -1000.0))
	assert.Equal(t, "1,234.50", FormatValue("quantity", 1234.5))
	assert.Equal(t, "North America", FormatValue("region", "North America"))
	assert.Equal(t, "", FormatValue("region", nil))
	assert.Equal(t, "Customer Type", Label("customer_type"))
}

func TestRenderTable(t *testing.T) {
	view := newBuilder().Build(nl2sql.ShapeCategoricalAggregate,
		[]string{"region", "total_sales"},
		[][]any{{"Asia", 1500.0}, {"Europe", 25.5}})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, view))
	out := buf.String()
	assert.Contains(t, out, "region  total_sales")
	assert.Contains(t, out, "Asia    $1,500.00")
	assert.Contains(t, out, "chart: bar total_sales by region")
	assert.Contains(t, out, "column       count")
}
