package nl2sql

import (
	"fmt"
	"strings"

	"github.com/salesql/salesql/internal/schema"
)

const (
	RuleTopN            = "top_n"
	RuleComparison      = "comparison"
	RuleTrend           = "trend"
	RuleBreakdown       = "breakdown"
	RuleDistinctValues  = "distinct_values"
	RuleAverage         = "average"
	RuleCount           = "count"
	RuleTotal           = "total"
	RuleFilterCategory  = "filter_category"
	RuleFilterDateRange = "filter_date_range"
	RuleSampleRows      = "sample_rows"
	RuleFallback        = "fallback"
)

const (
	defaultRankLimit = 5
	sampleRowLimit   = 10
)

// DefaultBank returns the rules for the sales schema, most specific first.
func DefaultBank() Bank {
	return NewBank(
		Rule{
			ID:          RuleTopN,
			Description: "Top or bottom entities ranked by a measure",
			Example:     "Top 5 products by revenue",
			Shape:       ShapeTable,
			Match:       matchTopN,
			Extract:     []Extractor{extractMeasure, extractRankAggregate, extractEntity, extractRank, extractValues, extractPeriod},
			Build:       buildTopN,
			Requires:    []Requirement{{Role: schema.RoleMeasure}, {Role: schema.RoleDimension}},
		},
		Rule{
			ID:          RuleComparison,
			Description: "Compare a measure between two periods or two values",
			Example:     "Compare sales between Q1 and Q2",
			Shape:       ShapeTable,
			Match:       matchComparison,
			Extract:     []Extractor{extractMeasure, extractAggregate, extractValues, extractComparison},
			Build:       buildComparison,
			Requires:    []Requirement{{Role: schema.RoleMeasure}, {Role: schema.RoleDate}, {Role: schema.RoleDimension}},
		},
		Rule{
			ID:          RuleTrend,
			Description: "Trend of a measure over time",
			Example:     "Show the monthly sales trend",
			Shape:       ShapeTimeSeries,
			Match:       matchTrend,
			Extract:     []Extractor{extractMeasure, extractAggregate, extractGranularity, extractSplit, extractValues, extractPeriod},
			Build:       buildTrend,
			Requires:    []Requirement{{Role: schema.RoleMeasure}, {Role: schema.RoleDate}},
		},
		Rule{
			ID:          RuleBreakdown,
			Description: "Breakdown of a measure by a dimension",
			Example:     "Show sales by category",
			Shape:       ShapeCategoricalAggregate,
			Match:       matchBreakdown,
			Extract:     []Extractor{extractMeasure, extractAggregate, extractGroupBy, extractSummary, extractValues, extractPeriod},
			Build:       buildBreakdown,
			Requires:    []Requirement{{Role: schema.RoleMeasure}, {Role: schema.RoleDimension}},
		},
		Rule{
			ID:          RuleDistinctValues,
			Description: "Distinct values of a dimension",
			Example:     "Which payment methods are available?",
			Shape:       ShapeTable,
			Match:       matchDistinctValues,
			Extract:     []Extractor{extractDistinct, extractValues, extractPeriod},
			Build:       buildDistinctValues,
			Requires:    []Requirement{{Role: schema.RoleDimension}},
		},
		Rule{
			ID:          RuleAverage,
			Description: "Average of a measure",
			Example:     "What is the average discount?",
			Shape:       ShapeScalar,
			Match:       matchAverage,
			Extract:     []Extractor{extractMeasure, extractValues, extractPeriod},
			Build:       buildAverage,
			Requires:    []Requirement{{Role: schema.RoleMeasure}},
		},
		Rule{
			ID:          RuleCount,
			Description: "Count of orders or distinct entities",
			Example:     "How many orders were placed in March?",
			Shape:       ShapeScalar,
			Match:       matchCount,
			Extract:     []Extractor{extractAggregate, extractValues, extractPeriod},
			Build:       buildCount,
		},
		Rule{
			ID:          RuleTotal,
			Description: "Total of a measure",
			Example:     "What were total sales in March?",
			Shape:       ShapeScalar,
			Match:       matchTotal,
			Extract:     []Extractor{extractMeasure, extractAggregate, extractValues, extractPeriod},
			Build:       buildTotal,
			Requires:    []Requirement{{Role: schema.RoleMeasure}},
		},
		Rule{
			ID:          RuleFilterCategory,
			Description: "Orders filtered by a named category value",
			Example:     "Show orders from Europe",
			Shape:       ShapeTable,
			Match:       matchFilterCategory,
			Extract:     []Extractor{extractValues, extractPeriod},
			Build:       buildListing,
			Requires:    []Requirement{{Role: schema.RoleDimension}},
		},
		Rule{
			ID:          RuleFilterDateRange,
			Description: "Orders filtered by a date range or period",
			Example:     "Show transactions between 2023-03-01 and 2023-03-31",
			Shape:       ShapeTable,
			Match:       matchFilterDateRange,
			Extract:     []Extractor{extractValues, extractPeriod},
			Build:       buildListing,
			Requires:    []Requirement{{Role: schema.RoleDate}},
		},
		Rule{
			ID:          RuleSampleRows,
			Description: "Sample rows of the dataset",
			Example:     "Show me a sample of the data",
			Shape:       ShapeTable,
			Match:       matchSampleRows,
			Build:       buildSampleRows,
		},
		Rule{
			ID:          RuleFallback,
			Description: "Anything else",
			Shape:       ShapeUnrecognized,
			Match:       func(Question, *schema.Descriptor) bool { return true },
		},
	)
}

func matchTopN(q Question, desc *schema.Descriptor) bool {
	if q.HasAny(rankWords...) {
		return true
	}
	if !q.HasAny(superlativeWords...) {
		return false
	}
	if hasMention(q, desc, schema.RoleDimension, schema.RoleIdentifier) {
		return true
	}
	for _, tok := range q.tokens {
		if _, ok := timeUnits[tok]; ok {
			return true
		}
	}
	return false
}

func matchComparison(q Question, desc *schema.Descriptor) bool {
	return q.HasAny(compareWords...) && comparable(q, desc)
}

func matchTrend(q Question, _ *schema.Descriptor) bool {
	return q.HasAny(trendWords...)
}

func matchBreakdown(q Question, desc *schema.Descriptor) bool {
	if !q.HasAny(groupWords...) {
		return false
	}
	target := countTarget(q, desc)
	for _, m := range findMentions(q, desc, schema.RoleDimension, schema.RoleIdentifier) {
		if m.column != target {
			return true
		}
	}
	return false
}

func matchDistinctValues(q Question, desc *schema.Descriptor) bool {
	return q.HasAny(distinctWords...) &&
		!q.HasAny(countWords...) &&
		!hasMention(q, desc, schema.RoleMeasure) &&
		hasMention(q, desc, schema.RoleDimension, schema.RoleIdentifier)
}

func matchAverage(q Question, _ *schema.Descriptor) bool {
	return q.HasAny(averageWords...)
}

func matchCount(q Question, _ *schema.Descriptor) bool {
	return q.HasAny(countWords...)
}

func matchTotal(q Question, desc *schema.Descriptor) bool {
	if q.HasAny(totalWords...) {
		return true
	}
	return hasMention(q, desc, schema.RoleMeasure) && !q.HasAny(listingWords...)
}

func matchFilterCategory(q Question, desc *schema.Descriptor) bool {
	return len(mentionedValues(q, desc)) > 0
}

func matchFilterDateRange(q Question, _ *schema.Descriptor) bool {
	return hasPeriod(q)
}

func matchSampleRows(q Question, _ *schema.Descriptor) bool {
	if q.HasAny("sample", "preview", "first rows") {
		return true
	}
	return q.HasAny(showWords...) && q.HasAny(sampleNouns...)
}

func buildTopN(s Scope, p Params) Statement {
	expr, alias := s.metric(p)
	entity, group := "", ""
	date, hasDate := s.dateColumn()
	if p.Dimension == "" && p.Granularity != "" && hasDate {
		group = s.Dialect.Bucket(s.Col(date), p.Granularity)
		entity = group + " AS " + string(p.Granularity)
	} else {
		entity = s.Col(s.dimension(p))
		group = entity
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultRankLimit
	}
	return Statement{
		Fields:  []string{entity, expr + " AS " + alias},
		From:    s.Table(),
		Where:   s.filters(p),
		GroupBy: []string{group},
		OrderBy: []string{alias + " " + sortDirection(p.Order)},
		Limit:   limit,
	}
}

func buildComparison(s Scope, p Params) Statement {
	expr, alias := s.metric(p)
	date, hasDate := s.dateColumn()
	if len(p.Periods) >= 2 && hasDate {
		date = s.Col(date)
		part := s.Dialect.Month(date)
		switch p.Periods[0].Kind {
		case PeriodQuarter:
			part = s.Dialect.Quarter(date)
		case PeriodYear:
			part = s.Dialect.Year(date)
		}
		cases := make([]string, 0, len(p.Periods))
		values := make([]int, 0, len(p.Periods))
		for _, period := range p.Periods {
			cases = append(cases, fmt.Sprintf("WHEN %s = %d THEN %s", part, period.Value, quoteLiteral(period.Label())))
			values = append(values, period.Value)
		}
		return Statement{
			Fields:  []string{"CASE " + strings.Join(cases, " ") + " END AS period", expr + " AS " + alias},
			From:    s.Table(),
			Where:   append([]string{intCondition(part, values)}, s.filters(p)...),
			GroupBy: []string{"period"},
			OrderBy: []string{"MIN(" + part + ")"},
		}
	}
	dim := s.Col(s.dimension(p))
	return Statement{
		Fields:  []string{dim, expr + " AS " + alias},
		From:    s.Table(),
		Where:   s.filters(p),
		GroupBy: []string{dim},
		OrderBy: []string{alias + " DESC"},
	}
}

func buildTrend(s Scope, p Params) Statement {
	date, _ := s.dateColumn()
	granularity := p.Granularity
	if granularity == "" {
		granularity = GranularityMonth
	}
	bucket := s.Dialect.Bucket(s.Col(date), granularity)
	label := string(granularity)

	fields := []string{bucket + " AS " + label}
	group := []string{bucket}
	order := []string{label}
	if p.SplitBy != "" {
		split := s.Col(p.SplitBy)
		fields = append(fields, split)
		group = append(group, split)
		order = append(order, split)
	}
	expr, alias := s.metric(p)
	return Statement{
		Fields:  append(fields, expr+" AS "+alias),
		From:    s.Table(),
		Where:   s.filters(p),
		GroupBy: group,
		OrderBy: order,
	}
}

func buildBreakdown(s Scope, p Params) Statement {
	dim := s.Col(s.dimension(p))
	fields := []string{dim}
	group := []string{dim}
	if p.SplitBy != "" {
		split := s.Col(p.SplitBy)
		fields = append(fields, split)
		group = append(group, split)
	}
	expr, alias := s.metric(p)
	fields = append(fields, expr+" AS "+alias)
	if p.WithCount && p.Aggregate != AggregateCount && p.Aggregate != AggregateCountDistinct {
		fields = append(fields, "COUNT(*) AS order_count")
	}
	return Statement{
		Fields:  fields,
		From:    s.Table(),
		Where:   s.filters(p),
		GroupBy: group,
		OrderBy: []string{alias + " DESC"},
	}
}

func buildDistinctValues(s Scope, p Params) Statement {
	dim := s.Col(s.dimension(p))
	return Statement{
		Distinct: true,
		Fields:   []string{dim},
		From:     s.Table(),
		Where:    s.filters(p),
		OrderBy:  []string{dim},
		Limit:    s.ListLimit,
	}
}

func buildAverage(s Scope, p Params) Statement {
	p.Aggregate = AggregateAvg
	return scalar(s, p)
}

func buildCount(s Scope, p Params) Statement {
	if p.Aggregate != AggregateCountDistinct {
		p.Aggregate = AggregateCount
	}
	return scalar(s, p)
}

func buildTotal(s Scope, p Params) Statement {
	if p.Aggregate == "" {
		p.Aggregate = AggregateSum
	}
	return scalar(s, p)
}

func scalar(s Scope, p Params) Statement {
	expr, alias := s.metric(p)
	return Statement{
		Fields: []string{expr + " AS " + alias},
		From:   s.Table(),
		Where:  s.filters(p),
	}
}

func buildListing(s Scope, p Params) Statement {
	stmt := Statement{
		Fields: s.allColumns(),
		From:   s.Table(),
		Where:  s.filters(p),
		Limit:  s.ListLimit,
	}
	if date, ok := s.dateColumn(); ok {
		stmt.OrderBy = []string{s.Col(date)}
	}
	return stmt
}

func buildSampleRows(s Scope, _ Params) Statement {
	return Statement{
		Fields: s.allColumns(),
		From:   s.Table(),
		Limit:  sampleRowLimit,
	}
}

func sortDirection(order Order) string {
	if order == OrderAsc {
		return "ASC"
	}
	return "DESC"
}
