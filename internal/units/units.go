package units

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DomainError indicates a scalar function received a value outside its domain,
// such as NaN or an infinity. Aggregations propagate it to their caller instead
// of producing a silently wrong number.
type DomainError struct {
	Op    string
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: non-numeric input %v", e.Op, e.Value)
}

// FahrenheitToCelsius converts a temperature in degrees Fahrenheit to Celsius.
// Any finite input is accepted; the function is not domain-restricted.
func FahrenheitToCelsius(f float64) (float64, error) {
	if !isFinite(f) {
		return 0, &DomainError{Op: "fahrenheit_to_celsius", Value: f}
	}
	return (f - 32) * 5 / 9, nil
}

// InchToMillimeter converts a length in inches to millimeters.
func InchToMillimeter(inch float64) (float64, error) {
	if !isFinite(inch) {
		return 0, &DomainError{Op: "inch_to_millimeter", Value: inch}
	}
	return inch * 25.4, nil
}

// Round2 rounds to 2 decimal places, half away from zero. It is applied once
// to a finished aggregate, never to intermediate per-row values. Rounding
// happens in decimal space: scaling the float by 100 first would misplace
// halves like 1.005, whose scaled value sits just below 100.5.
func Round2(v float64) float64 {
	if !isFinite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
