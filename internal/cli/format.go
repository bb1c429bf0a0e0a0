// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is appended to money values when none is configured.
const DefaultCurrency = "TL"

// FormatMoney formats an amount with thousands separators and two decimals.
// e.g., 1234.567 -> "1,234.57 TL"
func FormatMoney(v float64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return groupThousands(decimal.NewFromFloat(v).StringFixed(2)) + " " + currency
}

// FormatSignedMoney is FormatMoney with an explicit sign.
func FormatSignedMoney(v float64, currency string) string {
	if v >= 0 {
		return "+" + FormatMoney(v, currency)
	}
	return FormatMoney(v, currency)
}

// FormatCompactMoney abbreviates large amounts for cards and charts.
// e.g., 1234 -> "1.2K", 2500000 -> "2.5M"
func FormatCompactMoney(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// groupThousands inserts commas into the integer part of a decimal string.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) > 3 {
		var b strings.Builder
		remainder := len(intPart) % 3
		if remainder > 0 {
			b.WriteString(intPart[:remainder])
		}
		for i := remainder; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}
	if hasFrac {
		return sign + intPart + "." + frac
	}
	return sign + intPart
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return groupThousands(fmt.Sprintf("%d", n))
}

// FormatPercent formats a value already expressed in percent.
// e.g., 12.345 -> "12.3%"
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatSignedPercent formats a percent change with an explicit sign.
func FormatSignedPercent(p float64) string {
	if p >= 0 {
		return fmt.Sprintf("+%.1f%%", p)
	}
	return fmt.Sprintf("%.1f%%", p)
}

// FormatRatio formats a 0-1 float as a percentage string.
func FormatRatio(f float64) string {
	return FormatPercent(f * 100)
}

// FormatPeriod renders a month as YYYY-MM.
func FormatPeriod(t time.Time) string {
	return t.Format("2006-01")
}

// FormatMonthShort renders a month as "Jan 06" for chart axes.
func FormatMonthShort(t time.Time) string {
	return t.Format("Jan 06")
}

// TrendArrow maps a -1/0/+1 direction onto an arrow.
func TrendArrow(dir int) string {
	switch {
	case dir > 0:
		return "↑"
	case dir < 0:
		return "↓"
	default:
		return "→"
	}
}
