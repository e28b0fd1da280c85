package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tkellerman/salesweather/internal/harmonize"
	"github.com/tkellerman/salesweather/internal/units"
)

// DailyCityMetric is one row of the daily_city_metrics derived dataset.
// The (Date, City, Country) key is unique. DailySales is zero-filled when a
// key has no matching orders; weather metrics are nil when a key carries no
// measured values.
type DailyCityMetric struct {
	Date        time.Time
	City        string
	Country     string
	DailySales  decimal.Decimal
	AvgTempF    *float64
	AvgTempC    *float64
	AvgPrecipIn *float64
	AvgPrecipMM *float64
	MaxWindMPH  *float64
}

// Daily groups correlated sales/weather days by (date, city, country) and
// computes the rounded, zero-filled metrics. Unit conversions apply per
// observation before averaging; rounding applies once, after the aggregate.
// Domain errors from the scalar functions propagate to the caller.
func Daily(ctx context.Context, days []harmonize.SalesWeatherDay) ([]DailyCityMetric, error) {
	metrics := make([]DailyCityMetric, 0, len(days))

	for _, day := range days {
		m := DailyCityMetric{
			Date:       day.Date,
			City:       day.City,
			Country:    day.Country,
			DailySales: decimal.Zero,
		}

		for _, o := range day.Orders {
			m.DailySales = m.DailySales.Add(o.Total)
		}

		var tempF, tempC, precipIn, precipMM, wind []float64
		for _, obs := range day.Observations {
			if obs.AvgTemperatureF != nil {
				f := *obs.AvgTemperatureF
				c, err := units.FahrenheitToCelsius(f)
				if err != nil {
					return nil, fmt.Errorf("daily aggregation for %s/%s on %s: %w",
						day.City, day.Country, day.Date.Format("2006-01-02"), err)
				}
				tempF = append(tempF, f)
				tempC = append(tempC, c)
			}
			if obs.TotalPrecipitationIn != nil {
				in := *obs.TotalPrecipitationIn
				mm, err := units.InchToMillimeter(in)
				if err != nil {
					return nil, fmt.Errorf("daily aggregation for %s/%s on %s: %w",
						day.City, day.Country, day.Date.Format("2006-01-02"), err)
				}
				precipIn = append(precipIn, in)
				precipMM = append(precipMM, mm)
			}
			if obs.MaxWindSpeedMPH != nil {
				wind = append(wind, *obs.MaxWindSpeedMPH)
			}
		}

		m.AvgTempF = roundedAvg(tempF)
		m.AvgTempC = roundedAvg(tempC)
		m.AvgPrecipIn = roundedAvg(precipIn)
		m.AvgPrecipMM = roundedAvg(precipMM)
		m.MaxWindMPH = maxOf(wind)

		metrics = append(metrics, m)
	}

	return metrics, nil
}

func roundedAvg(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := units.Round2(sum / float64(len(values)))
	return &avg
}

func maxOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return &m
}
