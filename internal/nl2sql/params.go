package nl2sql

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Aggregate string

const (
	AggregateSum           Aggregate = "sum"
	AggregateAvg           Aggregate = "avg"
	AggregateCount         Aggregate = "count"
	AggregateCountDistinct Aggregate = "count_distinct"
	AggregateMin           Aggregate = "min"
	AggregateMax           Aggregate = "max"
)

type Order string

const (
	OrderDesc Order = "desc"
	OrderAsc  Order = "asc"
)

type PeriodKind string

const (
	PeriodMonth   PeriodKind = "month"
	PeriodQuarter PeriodKind = "quarter"
	PeriodYear    PeriodKind = "year"
)

// Period is one side of a period comparison.
type Period struct {
	Kind  PeriodKind `json:"kind"`
	Value int        `json:"value"`
}

func (p Period) Label() string {
	switch p.Kind {
	case PeriodMonth:
		if p.Value >= 1 && p.Value <= 12 {
			return time.Month(p.Value).String()
		}
	case PeriodQuarter:
		return "Q" + strconv.Itoa(p.Value)
	}
	return strconv.Itoa(p.Value)
}

// Filter restricts a dimension to one or more canonical values.
type Filter struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// Params holds everything the extractors understood. Zero values mean the
// parameter was absent and the template default applies.
type Params struct {
	Measure     string      `json:"measure,omitempty"`
	Aggregate   Aggregate   `json:"aggregate,omitempty"`
	CountColumn string      `json:"count_column,omitempty"`
	Dimension   string      `json:"dimension,omitempty"`
	SplitBy     string      `json:"split_by,omitempty"`
	Limit       int         `json:"limit,omitempty"`
	Order       Order       `json:"order,omitempty"`
	Granularity Granularity `json:"granularity,omitempty"`
	Months      []int       `json:"months,omitempty"`
	MonthFrom   int         `json:"month_from,omitempty"`
	MonthTo     int         `json:"month_to,omitempty"`
	Quarters    []int       `json:"quarters,omitempty"`
	Years       []int       `json:"years,omitempty"`
	DateFrom    string      `json:"date_from,omitempty"`
	DateTo      string      `json:"date_to,omitempty"`
	Filters     []Filter    `json:"filters,omitempty"`
	Periods     []Period    `json:"periods,omitempty"`
	WithCount   bool        `json:"with_count,omitempty"`
}

func (p Params) describe() string {
	var parts []string
	add := func(key string, value any) {
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	if p.Measure != "" {
		add("measure", p.Measure)
	}
	if p.Aggregate != "" {
		add("aggregate", p.Aggregate)
	}
	if p.CountColumn != "" {
		add("count", p.CountColumn)
	}
	if p.Dimension != "" {
		add("dimension", p.Dimension)
	}
	if p.SplitBy != "" {
		add("split_by", p.SplitBy)
	}
	if p.WithCount {
		add("with_count", true)
	}
	if p.Granularity != "" {
		add("granularity", p.Granularity)
	}
	if p.Limit > 0 {
		add("limit", p.Limit)
	}
	if p.Order != "" {
		add("order", p.Order)
	}
	for _, period := range p.Periods {
		add(string(period.Kind), period.Label())
	}
	if len(p.Months) > 0 {
		add("months", joinInts(p.Months))
	}
	if p.MonthFrom > 0 {
		add("months", fmt.Sprintf("%d-%d", p.MonthFrom, p.MonthTo))
	}
	if len(p.Quarters) > 0 {
		add("quarters", joinInts(p.Quarters))
	}
	if len(p.Years) > 0 {
		add("years", joinInts(p.Years))
	}
	if p.DateFrom != "" {
		add("from", p.DateFrom)
	}
	if p.DateTo != "" {
		add("to", p.DateTo)
	}
	for _, filter := range p.Filters {
		add(filter.Column, strings.Join(filter.Values, "|"))
	}
	return strings.Join(parts, ", ")
}
