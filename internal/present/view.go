// Package present turns query results into what a client shows: a single
// metric, a table, a chart suggestion and summary statistics.
package present

import (
	"slices"
	"strings"

	"github.com/salesql/salesql/internal/nl2sql"
	"github.com/salesql/salesql/internal/schema"
)

const DefaultMaxCategories = 20

type Kind string

const (
	KindMetric Kind = "metric"
	KindTable  Kind = "table"
	KindEmpty  Kind = "empty"
)

type ChartType string

const (
	ChartLine ChartType = "line"
	ChartBar  ChartType = "bar"
)

type Metric struct {
	Label     string `json:"label"`
	Column    string `json:"column"`
	Value     any    `json:"value"`
	Formatted string `json:"formatted"`
}

// Chart names the columns to plot. Rendering is left to the client.
type Chart struct {
	Type ChartType `json:"type"`
	X    string    `json:"x"`
	Y    string    `json:"y"`
}

type View struct {
	Kind    Kind            `json:"kind"`
	Metric  *Metric         `json:"metric,omitempty"`
	Chart   *Chart          `json:"chart,omitempty"`
	Columns []string        `json:"columns"`
	Rows    [][]any         `json:"rows"`
	Summary []ColumnSummary `json:"summary,omitempty"`
}

type Options struct {
	MaxCategories int
}

// Builder classifies result columns with a schema descriptor.
type Builder struct {
	timeColumns     []string
	categoryColumns []string
	maxCategories   int
}

func NewBuilder(desc *schema.Descriptor, opts Options) *Builder {
	b := &Builder{maxCategories: opts.MaxCategories}
	if b.maxCategories <= 0 {
		b.maxCategories = DefaultMaxCategories
	}
	for _, granularity := range []nl2sql.Granularity{nl2sql.GranularityMonth, nl2sql.GranularityDay, nl2sql.GranularityQuarter, nl2sql.GranularityYear} {
		b.timeColumns = append(b.timeColumns, string(granularity))
	}
	if desc != nil {
		if date, ok := desc.DateColumn(); ok {
			b.timeColumns = append(b.timeColumns, date.Name)
		}
		for _, column := range desc.Dimensions() {
			b.categoryColumns = append(b.categoryColumns, column.Name)
		}
	}
	b.categoryColumns = append(b.categoryColumns, "period")
	return b
}

func (b *Builder) Build(shape nl2sql.Shape, columns []string, rows [][]any) View {
	view := View{Kind: KindTable, Columns: columns, Rows: rows}
	if view.Rows == nil {
		view.Rows = [][]any{}
	}
	if len(rows) == 0 {
		view.Kind = KindEmpty
		return view
	}

	numeric := numericColumns(columns, rows)
	if len(rows) == 1 && len(columns) == 1 && len(numeric) == 1 {
		view.Kind = KindMetric
		view.Metric = &Metric{
			Label:     Label(columns[0]),
			Column:    columns[0],
			Value:     rows[0][0],
			Formatted: FormatValue(columns[0], rows[0][0]),
		}
	}
	if len(numeric) > 0 && view.Kind != KindMetric {
		view.Summary = Summarize(columns, rows, numeric)
	}
	view.Chart = b.chart(shape, columns, rows, numeric)
	return view
}

func (b *Builder) chart(shape nl2sql.Shape, columns []string, rows [][]any, numeric []int) *Chart {
	if len(rows) < 2 || len(numeric) == 0 {
		return nil
	}
	if x := firstColumn(columns, b.timeColumns); x >= 0 && (shape == nl2sql.ShapeTimeSeries || len(rows) <= b.maxCategories) {
		if y := firstNumericExcept(numeric, x); y >= 0 {
			return &Chart{Type: ChartLine, X: columns[x], Y: columns[y]}
		}
	}
	if len(rows) > b.maxCategories {
		return nil
	}
	if x := firstColumn(columns, b.categoryColumns); x >= 0 {
		if y := firstNumericExcept(numeric, x); y >= 0 {
			return &Chart{Type: ChartBar, X: columns[x], Y: columns[y]}
		}
	}
	return nil
}

// Label turns a column alias into a display label: total_sales -> Total Sales.
func Label(column string) string {
	parts := strings.Fields(strings.ReplaceAll(column, "_", " "))
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func firstColumn(columns []string, candidates []string) int {
	for i, column := range columns {
		if slices.Contains(candidates, column) {
			return i
		}
	}
	return -1
}

func firstNumericExcept(numeric []int, skip int) int {
	for _, index := range numeric {
		if index != skip {
			return index
		}
	}
	return -1
}
