package format

import (
	"fmt"
	"math"
	"strings"
)

const integerTolerance = 1e-6

// Price renders euro amounts: 13 -> "13€", 13.5 -> "13,50€", nil -> "".
func Price(value *float64) string {
	if value == nil {
		return ""
	}
	x := *value
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ""
	}

	rounded := math.Round(x)
	if math.Abs(x-rounded) < integerTolerance {
		return fmt.Sprintf("%d€", int64(rounded))
	}
	return strings.Replace(fmt.Sprintf("%.2f", x), ".", ",", 1) + "€"
}
