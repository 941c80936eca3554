package nl2sql

import (
	"strconv"
	"strings"

	"github.com/salesql/salesql/internal/schema"
)

// Statement is a single SELECT assembled by a rule template.
type Statement struct {
	Distinct bool
	Fields   []string
	From     string
	Where    []string
	GroupBy  []string
	OrderBy  []string
	Limit    int
}

func (s Statement) SQL() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.Fields) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.Fields, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(s.From)
	if len(s.Where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(s.Where, " AND "))
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.GroupBy, ", "))
	}
	if len(s.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(s.OrderBy, ", "))
	}
	if s.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.Limit))
	}
	return b.String()
}

// Scope is what a template may use to build a statement. Column references
// go through Col so the translator knows which columns a statement touches.
type Scope struct {
	Schema    *schema.Descriptor
	Dialect   Dialect
	ListLimit int

	used *[]string
}

func newScope(desc *schema.Descriptor, dialect Dialect, listLimit int) Scope {
	return Scope{Schema: desc, Dialect: dialect, ListLimit: listLimit, used: &[]string{}}
}

func (s Scope) Col(name string) string {
	if s.used != nil {
		for _, existing := range *s.used {
			if existing == name {
				return name
			}
		}
		*s.used = append(*s.used, name)
	}
	return name
}

func (s Scope) columns() []string {
	if s.used == nil {
		return nil
	}
	return append([]string(nil), (*s.used)...)
}

func (s Scope) Table() string {
	return s.Schema.Table()
}

func (s Scope) measure(p Params) string {
	if p.Measure != "" {
		return p.Measure
	}
	column, _ := s.Schema.DefaultMeasure()
	return column.Name
}

func (s Scope) dimension(p Params) string {
	if p.Dimension != "" {
		return p.Dimension
	}
	column, _ := s.Schema.DefaultDimension()
	return column.Name
}

func (s Scope) dateColumn() (string, bool) {
	column, ok := s.Schema.DateColumn()
	return column.Name, ok
}

func (s Scope) allColumns() []string {
	names := s.Schema.ColumnNames()
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, s.Col(name))
	}
	return out
}

// metric renders the aggregate expression and its output alias.
func (s Scope) metric(p Params) (string, string) {
	switch p.Aggregate {
	case AggregateCount:
		return "COUNT(*)", "order_count"
	case AggregateCountDistinct:
		column := s.Col(p.CountColumn)
		return "COUNT(DISTINCT " + column + ")", strings.TrimSuffix(column, "_id") + "_count"
	}
	measure := s.Col(s.measure(p))
	switch p.Aggregate {
	case AggregateAvg:
		return "AVG(" + measure + ")", "avg_" + measure
	case AggregateMin:
		return "MIN(" + measure + ")", "min_" + measure
	case AggregateMax:
		return "MAX(" + measure + ")", "max_" + measure
	default:
		if strings.HasPrefix(measure, "total_") {
			return "SUM(" + measure + ")", measure
		}
		return "SUM(" + measure + ")", "total_" + measure
	}
}

// filters renders the WHERE conditions shared by every template.
func (s Scope) filters(p Params) []string {
	var where []string
	for _, filter := range p.Filters {
		if len(filter.Values) == 0 {
			continue
		}
		column := s.Col(filter.Column)
		if len(filter.Values) == 1 {
			where = append(where, column+" = "+quoteLiteral(filter.Values[0]))
			continue
		}
		literals := make([]string, 0, len(filter.Values))
		for _, value := range filter.Values {
			literals = append(literals, quoteLiteral(value))
		}
		where = append(where, column+" IN ("+strings.Join(literals, ", ")+")")
	}

	date, ok := s.dateColumn()
	if !ok {
		return where
	}
	if p.DateFrom != "" || p.DateTo != "" || len(p.Months) > 0 || p.MonthFrom > 0 || len(p.Quarters) > 0 || len(p.Years) > 0 {
		date = s.Col(date)
	}
	d := s.Dialect
	switch {
	case p.DateFrom != "" && p.DateTo != "" && p.DateFrom == p.DateTo:
		where = append(where, d.Date(date)+" = "+d.DateLiteral(p.DateFrom))
	case p.DateFrom != "" && p.DateTo != "":
		where = append(where, d.Date(date)+" BETWEEN "+d.DateLiteral(p.DateFrom)+" AND "+d.DateLiteral(p.DateTo))
	case p.DateFrom != "":
		where = append(where, d.Date(date)+" >= "+d.DateLiteral(p.DateFrom))
	case p.DateTo != "":
		where = append(where, d.Date(date)+" <= "+d.DateLiteral(p.DateTo))
	}
	if p.MonthFrom > 0 && p.MonthTo > 0 {
		where = append(where, d.Month(date)+" BETWEEN "+strconv.Itoa(p.MonthFrom)+" AND "+strconv.Itoa(p.MonthTo))
	}
	if cond := intCondition(d.Month(date), p.Months); cond != "" {
		where = append(where, cond)
	}
	if cond := intCondition(d.Quarter(date), p.Quarters); cond != "" {
		where = append(where, cond)
	}
	if cond := intCondition(d.Year(date), p.Years); cond != "" {
		where = append(where, cond)
	}
	return where
}

func intCondition(expr string, values []int) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return expr + " = " + strconv.Itoa(values[0])
	default:
		return expr + " IN (" + joinInts(values) + ")"
	}
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		parts = append(parts, strconv.Itoa(value))
	}
	return strings.Join(parts, ", ")
}
