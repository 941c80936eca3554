package present

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

var currencyMarkers = []string{"sales", "price", "profit"}

// IsCurrency reports whether values of column are money amounts.
func IsCurrency(column string) bool {
	lower := strings.ToLower(column)
	for _, marker := range currencyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// FormatValue renders a cell for humans. Numbers get thousands separators
// and two decimals; money columns are prefixed with a dollar sign.
func FormatValue(column string, value any) string {
	if value == nil {
		return ""
	}
	number, ok := toFloat(value)
	if !ok {
		return fmt.Sprint(value)
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return fmt.Sprint(number)
	}
	if IsCurrency(column) {
		if number < 0 {
			return "-$" + humanize.FormatFloat("#,###.##", -number)
		}
		return "$" + humanize.FormatFloat("#,###.##", number)
	}
	if isInteger(value) {
		return humanize.Comma(int64(number))
	}
	return humanize.FormatFloat("#,###.##", number)
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	default:
		return 0, false
	}
}

func isInteger(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}
