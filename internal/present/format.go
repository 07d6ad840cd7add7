// Package present renders backend results as terminal tables and CSV.
package present

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// NA is shown for any metric the backend did not supply or could not compute.
const NA = "N/A"

func valid(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// Fixed formats v with two decimals.
func Fixed(v *float64) string {
	if !valid(v) {
		return NA
	}
	return fmt.Sprintf("%.2f", *v)
}

// Percent formats v as a two-decimal percentage.
func Percent(v *float64) string {
	if !valid(v) {
		return NA
	}
	return fmt.Sprintf("%.2f%%", *v)
}

// Yen formats v as a yen amount with thousands separators and at most three
// fraction digits.
func Yen(v *float64) string {
	if !valid(v) {
		return NA
	}
	return FormatAmount(decimal.NewFromFloat(*v))
}

// FormatAmount formats d as a yen amount.
func FormatAmount(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.Round(3).String()
	intPart, frac, hasFrac := strings.Cut(s, ".")
	out := sign + "¥" + groupThousands(intPart)
	if hasFrac {
		out += "." + frac
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Str dereferences s, falling back to def.
func Str(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

// Int dereferences v, falling back to def.
func Int(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
