package present

import (
	"math"
	"slices"
)

// ColumnSummary mirrors the usual describe() output for one numeric column.
// Std is the sample standard deviation and is zero for a single value.
type ColumnSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

func Summarize(columns []string, rows [][]any, numeric []int) []ColumnSummary {
	out := make([]ColumnSummary, 0, len(numeric))
	for _, index := range numeric {
		values := make([]float64, 0, len(rows))
		for _, row := range rows {
			if index >= len(row) {
				continue
			}
			if number, ok := toFloat(row[index]); ok {
				values = append(values, number)
			}
		}
		if len(values) == 0 {
			continue
		}
		out = append(out, describe(columns[index], values))
	}
	return out
}

func describe(column string, values []float64) ColumnSummary {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}
	mean := sum / float64(len(sorted))

	var std float64
	if len(sorted) > 1 {
		var squares float64
		for _, value := range sorted {
			squares += (value - mean) * (value - mean)
		}
		std = math.Sqrt(squares / float64(len(sorted)-1))
	}

	return ColumnSummary{
		Column: column,
		Count:  len(sorted),
		Mean:   mean,
		Std:    std,
		Min:    sorted[0],
		P25:    quantile(sorted, 0.25),
		P50:    quantile(sorted, 0.5),
		P75:    quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	position := q * float64(len(sorted)-1)
	lower := int(math.Floor(position))
	upper := int(math.Ceil(position))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (sorted[upper]-sorted[lower])*(position-float64(lower))
}

// numericColumns returns the indexes of columns holding at least one number
// and nothing but numbers or NULLs.
func numericColumns(columns []string, rows [][]any) []int {
	var out []int
	for index := range columns {
		seen := false
		numeric := true
		for _, row := range rows {
			if index >= len(row) || row[index] == nil {
				continue
			}
			if _, ok := toFloat(row[index]); !ok {
				numeric = false
				break
			}
			seen = true
		}
		if numeric && seen {
			out = append(out, index)
		}
	}
	return out
}
