package harmonize

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tkellerman/salesweather/internal/audit"
)

// OrderSale is the sales side of one correlated day
type OrderSale struct {
	OrderID int64
	Total   decimal.Decimal
}

// WeatherMetrics is one observation's measurements within a correlated day.
// A city spans multiple postal codes, so a day usually carries several.
type WeatherMetrics struct {
	PostalCode           string
	AvgTemperatureF      *float64
	TotalPrecipitationIn *float64
	MaxWindSpeedMPH      *float64
}

// SalesWeatherDay correlates one (date, city, country) key: every enriched
// weather observation for the key plus all valid orders placed there that
// day. Orders may be empty: the weather side drives the join, so every
// weather-day survives with or without sales.
type SalesWeatherDay struct {
	Date         time.Time
	City         string
	Country      string
	Observations []WeatherMetrics
	Orders       []OrderSale
}

// Correlate left-joins enriched weather (driving side) to enriched orders on
// (date, city, country). Days that have orders but no resolvable weather do
// not survive; they are counted so the business can audit the join direction.
func Correlate(
	ctx context.Context,
	weather []EnrichedWeather,
	orders []EnrichedOrder,
	recorder audit.Recorder,
) []SalesWeatherDay {
	days := make(map[cityCountryDate]*SalesWeatherDay)
	var order []cityCountryDate

	for _, w := range weather {
		key := correlationKey(w.Date, w.City, w.CountryName)
		day, ok := days[key]
		if !ok {
			day = &SalesWeatherDay{
				Date:    DateOnly(w.Date),
				City:    w.City,
				Country: w.CountryName,
			}
			days[key] = day
			order = append(order, key)
		}
		day.Observations = append(day.Observations, WeatherMetrics{
			PostalCode:           w.PostalCode,
			AvgTemperatureF:      w.AvgTemperatureF,
			TotalPrecipitationIn: w.TotalPrecipitationIn,
			MaxWindSpeedMPH:      w.MaxWindSpeedMPH,
		})
	}

	var salesOnly int64
	for _, o := range orders {
		key := correlationKey(o.OrderDate, o.City, o.Country)
		day, ok := days[key]
		if !ok {
			salesOnly++
			continue
		}
		day.Orders = append(day.Orders, OrderSale{OrderID: o.OrderID, Total: o.OrderTotal})
	}

	if salesOnly > 0 {
		recorder.Exclude(ctx, audit.ReasonSalesOnlyDay, salesOnly)
	}

	result := make([]SalesWeatherDay, 0, len(order))
	for _, key := range order {
		result = append(result, *days[key])
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		if result[i].Country != result[j].Country {
			return result[i].Country < result[j].Country
		}
		return result[i].City < result[j].City
	})

	return result
}
