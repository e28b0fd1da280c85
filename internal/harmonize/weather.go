package harmonize

import (
	"context"
	"time"

	"github.com/tkellerman/salesweather/internal/audit"
	"github.com/tkellerman/salesweather/internal/source"
)

// EnrichedWeather is one weather observation resolved to a canonical city and
// display country name
type EnrichedWeather struct {
	Date                 time.Time
	PostalCode           string
	ISOCountry           string
	City                 string
	CountryName          string
	AvgTemperatureF      *float64
	TotalPrecipitationIn *float64
	MaxWindSpeedMPH      *float64
}

// EnrichWeather inner-joins weather observations to geo references on
// (postal_code, country), then inner-joins country references on
// (iso_country, city). A row failing either join is excluded: weather data
// not resolvable to a known city and country is unusable downstream, not
// silently zero-filled.
func EnrichWeather(
	ctx context.Context,
	observations []source.WeatherObservation,
	geo []source.GeoReference,
	countries []source.CountryReference,
	recorder audit.Recorder,
) []EnrichedWeather {
	type postalCountry struct{ postal, country string }
	geoByPostal := make(map[postalCountry]source.GeoReference, len(geo))
	for _, g := range geo {
		key := postalCountry{NormalizeKey(g.PostalCode), NormalizeKey(g.Country)}
		if _, exists := geoByPostal[key]; !exists {
			geoByPostal[key] = g
		}
	}

	type isoCity struct{ iso, city string }
	countryByCity := make(map[isoCity]source.CountryReference, len(countries))
	for _, c := range countries {
		key := isoCity{NormalizeKey(c.ISOCountry), NormalizeKey(c.City)}
		if _, exists := countryByCity[key]; !exists {
			countryByCity[key] = c
		}
	}

	var unresolvedPostal, unresolvedCountry int64
	enriched := make([]EnrichedWeather, 0, len(observations))
	for _, obs := range observations {
		g, ok := geoByPostal[postalCountry{NormalizeKey(obs.PostalCode), NormalizeKey(obs.Country)}]
		if !ok {
			unresolvedPostal++
			continue
		}

		c, ok := countryByCity[isoCity{NormalizeKey(obs.Country), NormalizeKey(g.CityName)}]
		if !ok {
			unresolvedCountry++
			continue
		}

		enriched = append(enriched, EnrichedWeather{
			Date:                 DateOnly(obs.Date),
			PostalCode:           obs.PostalCode,
			ISOCountry:           obs.Country,
			City:                 g.CityName,
			CountryName:          c.CountryName,
			AvgTemperatureF:      obs.AvgTemperatureF,
			TotalPrecipitationIn: obs.TotalPrecipitationIn,
			MaxWindSpeedMPH:      obs.MaxWindSpeedMPH,
		})
	}

	if unresolvedPostal > 0 {
		recorder.Exclude(ctx, audit.ReasonUnresolvedPostal, unresolvedPostal)
	}
	if unresolvedCountry > 0 {
		recorder.Exclude(ctx, audit.ReasonUnresolvedCountry, unresolvedCountry)
	}

	return enriched
}
