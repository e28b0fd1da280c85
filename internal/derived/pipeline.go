package derived

import (
	"context"
	"fmt"

	"github.com/tkellerman/salesweather/internal/aggregate"
	"github.com/tkellerman/salesweather/internal/audit"
	"github.com/tkellerman/salesweather/internal/harmonize"
	"github.com/tkellerman/salesweather/internal/source"
)

// Pipeline composes the source adapters, harmonization engine and
// aggregation engine into the derived datasets. Every call re-derives from
// current source state; there is no materialization state to reconcile.
type Pipeline struct {
	adapters *source.Adapters
	recorder audit.Recorder
}

// NewPipeline creates the derivation pipeline
func NewPipeline(adapters *source.Adapters, recorder audit.Recorder) *Pipeline {
	return &Pipeline{adapters: adapters, recorder: recorder}
}

// HarmonizedOrders computes the enriched per-order dataset
func (p *Pipeline) HarmonizedOrders(ctx context.Context) ([]harmonize.EnrichedOrder, error) {
	orders, err := p.adapters.ValidOrders(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := p.adapters.UniqueCustomers(ctx)
	if err != nil {
		return nil, err
	}
	geo, err := p.adapters.GeoReferences(ctx)
	if err != nil {
		return nil, err
	}
	items, err := p.adapters.OrderLineItems(ctx)
	if err != nil {
		return nil, err
	}

	return harmonize.EnrichOrders(ctx, orders, customers, geo, items, p.recorder), nil
}

// HarmonizedWeather computes the enriched per-weather-day dataset
func (p *Pipeline) HarmonizedWeather(ctx context.Context) ([]harmonize.EnrichedWeather, error) {
	observations, err := p.adapters.WeatherObservations(ctx)
	if err != nil {
		return nil, err
	}
	geo, err := p.adapters.GeoReferences(ctx)
	if err != nil {
		return nil, err
	}
	countries, err := p.adapters.CountryReferences(ctx)
	if err != nil {
		return nil, err
	}

	return harmonize.EnrichWeather(ctx, observations, geo, countries, p.recorder), nil
}

// SalesWeatherCorrelation computes the correlated sales/weather days
func (p *Pipeline) SalesWeatherCorrelation(ctx context.Context) ([]harmonize.SalesWeatherDay, error) {
	weather, err := p.HarmonizedWeather(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := p.HarmonizedOrders(ctx)
	if err != nil {
		return nil, err
	}

	return harmonize.Correlate(ctx, weather, orders, p.recorder), nil
}

// DailyCityMetrics computes the daily_city_metrics derived dataset
func (p *Pipeline) DailyCityMetrics(ctx context.Context) ([]aggregate.DailyCityMetric, error) {
	days, err := p.SalesWeatherCorrelation(ctx)
	if err != nil {
		return nil, err
	}

	metrics, err := aggregate.Daily(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("failed to derive daily city metrics: %w", err)
	}
	return metrics, nil
}

// Customers exposes the deduplicated customer dataset for masked reads
func (p *Pipeline) Customers(ctx context.Context) ([]source.Customer, error) {
	return p.adapters.UniqueCustomers(ctx)
}
