package harmonize

import (
	"strings"
	"time"
)

// NormalizeKey trims surrounding whitespace and canonicalizes case so join
// comparisons are exact-match equality on normalized strings.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// DateOnly truncates a timestamp to its calendar date in UTC. Order
// timestamps are truncated before any date comparison.
func DateOnly(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// cityCountryDate is the correlation join key
type cityCountryDate struct {
	date    time.Time
	city    string
	country string
}

func correlationKey(date time.Time, city, country string) cityCountryDate {
	return cityCountryDate{
		date:    DateOnly(date),
		city:    NormalizeKey(city),
		country: NormalizeKey(country),
	}
}
