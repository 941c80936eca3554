package nl2sql

import (
	"fmt"
	"strings"
)

type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// Dialect renders the date expressions that differ between engines. Every
// other part of a generated statement is portable SQL.
type Dialect interface {
	Name() string
	Bucket(column string, granularity Granularity) string
	Month(column string) string
	Quarter(column string) string
	Year(column string) string
	Date(column string) string
	DateLiteral(value string) string
}

var (
	DuckDB Dialect = duckDBDialect{}
	SQLite Dialect = sqliteDialect{}
)

func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "duckdb":
		return DuckDB, nil
	case "sqlite":
		return SQLite, nil
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

type duckDBDialect struct{}

func (duckDBDialect) Name() string { return "duckdb" }

func (d duckDBDialect) Bucket(column string, granularity Granularity) string {
	date := d.Date(column)
	switch granularity {
	case GranularityDay:
		return fmt.Sprintf("strftime(%s, '%%Y-%%m-%%d')", date)
	case GranularityQuarter:
		return fmt.Sprintf("CAST(year(%s) AS VARCHAR) || '-Q' || CAST(quarter(%s) AS VARCHAR)", date, date)
	case GranularityYear:
		return fmt.Sprintf("year(%s)", date)
	default:
		return fmt.Sprintf("strftime(%s, '%%Y-%%m')", date)
	}
}

func (d duckDBDialect) Month(column string) string   { return "month(" + d.Date(column) + ")" }
func (d duckDBDialect) Quarter(column string) string { return "quarter(" + d.Date(column) + ")" }
func (d duckDBDialect) Year(column string) string    { return "year(" + d.Date(column) + ")" }

func (duckDBDialect) Date(column string) string {
	return "CAST(" + column + " AS DATE)"
}

func (duckDBDialect) DateLiteral(value string) string {
	return "DATE " + quoteLiteral(value)
}

// sqliteDialect expects dates stored as ISO-8601 text.
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (s sqliteDialect) Bucket(column string, granularity Granularity) string {
	switch granularity {
	case GranularityDay:
		return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
	case GranularityQuarter:
		return fmt.Sprintf("strftime('%%Y', %s) || '-Q' || %s", column, s.Quarter(column))
	case GranularityYear:
		return s.Year(column)
	default:
		return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
	}
}

func (sqliteDialect) Month(column string) string {
	return fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER)", column)
}

func (s sqliteDialect) Quarter(column string) string {
	return fmt.Sprintf("((%s + 2) / 3)", s.Month(column))
}

func (sqliteDialect) Year(column string) string {
	return fmt.Sprintf("CAST(strftime('%%Y', %s) AS INTEGER)", column)
}

func (sqliteDialect) Date(column string) string {
	return column
}

func (sqliteDialect) DateLiteral(value string) string {
	return quoteLiteral(value)
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
