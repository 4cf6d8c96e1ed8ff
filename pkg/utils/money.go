package utils

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// CurrencyScale is the number of fractional digits money carries at rest.
	CurrencyScale int32 = 2
	// InternalScale bounds intermediate quotients and powers inside calculations.
	InternalScale int32 = 20
)

var (
	// CurrencyTolerance is the default reconciliation tolerance (1 cent).
	CurrencyTolerance = decimal.New(1, -CurrencyScale)

	one             = decimal.NewFromInt(1)
	percentPerMonth = decimal.NewFromInt(1200)
)

// RoundCurrency rounds half-up to 2 places. Apply only at output boundaries.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyScale)
}

// Div divides a by b at InternalScale, rounding half-up.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, InternalScale)
}

// Pow raises base to a non-negative integer power by repeated squaring.
// Every intermediate product is rounded to InternalScale so long terms stay bounded.
func Pow(base decimal.Decimal, exponent int) decimal.Decimal {
	result := one
	for exponent > 0 {
		if exponent&1 == 1 {
			result = result.Mul(base).Round(InternalScale)
		}
		base = base.Mul(base).Round(InternalScale)
		exponent >>= 1
	}
	return result
}

// MonthlyRate converts an annual nominal rate in percent (5 for 5%) to the monthly fraction.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return Div(annualRatePercent, percentPerMonth)
}

// WithinTolerance reports whether |a-b| <= tolerance.
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// SafeDecimal converts loosely typed input to a decimal, falling back to def
// for nil, empty, non-numeric or non-finite values.
func SafeDecimal(value interface{}, def decimal.Decimal) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return def
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v == nil {
			return def
		}
		return *v
	case string:
		return parseOr(v, def)
	case json.Number:
		return parseOr(v.String(), def)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case float32:
		return fromFloatOr(float64(v), def)
	case float64:
		return fromFloatOr(v, def)
	default:
		return def
	}
}

func parseOr(s string, def decimal.Decimal) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return def
	}
	return d
}

func fromFloatOr(f float64, def decimal.Decimal) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return decimal.NewFromFloat(f)
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
