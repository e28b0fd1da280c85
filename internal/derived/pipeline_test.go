package derived

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tkellerman/salesweather/internal/aggregate"
	"github.com/tkellerman/salesweather/internal/audit"
	"github.com/tkellerman/salesweather/internal/source"
)

type fixtureStore struct {
	orders       []source.Order
	items        []source.OrderLineItem
	customers    []source.Customer
	observations []source.WeatherObservation
	geo          []source.GeoReference
	countries    []source.CountryReference
}

func (f *fixtureStore) Orders(ctx context.Context) ([]source.Order, error) { return f.orders, nil }
func (f *fixtureStore) OrderLineItems(ctx context.Context) ([]source.OrderLineItem, error) {
	return f.items, nil
}
func (f *fixtureStore) Customers(ctx context.Context) ([]source.Customer, error) {
	return f.customers, nil
}
func (f *fixtureStore) WeatherObservations(ctx context.Context) ([]source.WeatherObservation, error) {
	return f.observations, nil
}
func (f *fixtureStore) GeoReferences(ctx context.Context) ([]source.GeoReference, error) {
	return f.geo, nil
}
func (f *fixtureStore) CountryReferences(ctx context.Context) ([]source.CountryReference, error) {
	return f.countries, nil
}

func ptr(v float64) *float64 { return &v }

func id(v int64) *int64 { return &v }

var feb10 = time.Date(2022, 2, 10, 0, 0, 0, 0, time.UTC)

func hamburgStore() *fixtureStore {
	return &fixtureStore{
		customers: []source.Customer{
			{CustomerID: 7, FirstName: "Maria", LastName: "Keller", City: "Hamburg", Country: "DE", Email: "maria@example.com"},
		},
		observations: []source.WeatherObservation{
			{PostalCode: "20095", Country: "DE", Date: feb10, AvgTemperatureF: ptr(41.0)},
		},
		geo: []source.GeoReference{
			{PostalCode: "20095", Country: "DE", CityName: "Hamburg"},
		},
		countries: []source.CountryReference{
			{ISOCountry: "DE", City: "Hamburg", CountryName: "Germany"},
		},
	}
}

func metricsFor(t *testing.T, store *fixtureStore) []aggregate.DailyCityMetric {
	t.Helper()
	recorder := audit.NewMemoryRecorder()
	pipeline := NewPipeline(source.NewAdapters(store, recorder), recorder)

	metrics, err := pipeline.DailyCityMetrics(context.Background())
	if err != nil {
		t.Fatalf("DailyCityMetrics failed: %v", err)
	}
	return metrics
}

func TestEndToEndHamburgWithOrder(t *testing.T) {
	store := hamburgStore()
	store.orders = []source.Order{
		{OrderID: 1, OrderTotal: decimal.NewFromFloat(15.50), OrderTS: feb10.Add(12 * time.Hour), TruckID: 3, CustomerID: id(7), PrimaryCity: "Hamburg", Country: "Germany"},
	}
	store.items = []source.OrderLineItem{
		{OrderID: 1, MenuItemName: "Bratwurst", Quantity: 1, UnitPrice: decimal.NewFromFloat(15.50)},
	}

	metrics := metricsFor(t, store)

	if len(metrics) != 1 {
		t.Fatalf("Expected 1 metric row, got %d", len(metrics))
	}
	m := metrics[0]
	if !m.Date.Equal(feb10) || m.City != "Hamburg" || m.Country != "Germany" {
		t.Errorf("Unexpected key: %v %s/%s", m.Date, m.City, m.Country)
	}
	if !m.DailySales.Equal(decimal.NewFromFloat(15.50)) {
		t.Errorf("Expected daily_sales 15.50, got %s", m.DailySales)
	}
	if m.AvgTempF == nil || *m.AvgTempF != 41.0 {
		t.Errorf("Expected avg_temperature_fahrenheit 41.0, got %v", m.AvgTempF)
	}
	if m.AvgTempC == nil || *m.AvgTempC != 5.0 {
		t.Errorf("Expected avg_temperature_celsius 5.0, got %v", m.AvgTempC)
	}
}

func TestEndToEndHamburgZeroOrders(t *testing.T) {
	metrics := metricsFor(t, hamburgStore())

	if len(metrics) != 1 {
		t.Fatalf("Expected 1 metric row, got %d", len(metrics))
	}
	m := metrics[0]
	if !m.DailySales.Equal(decimal.Zero) {
		t.Errorf("Expected daily_sales 0, got %s", m.DailySales)
	}
	if m.AvgTempF == nil || *m.AvgTempF != 41.0 {
		t.Errorf("Expected weather fields unchanged, got %v", m.AvgTempF)
	}
}

func TestEndToEndUnresolvablePostalCodeExcluded(t *testing.T) {
	store := hamburgStore()
	store.observations = append(store.observations,
		source.WeatherObservation{PostalCode: "99999", Country: "DE", Date: feb10, AvgTemperatureF: ptr(60.0)},
	)

	metrics := metricsFor(t, store)

	// The unknown postal code contributes nothing: no row with a null city.
	if len(metrics) != 1 {
		t.Fatalf("Expected 1 metric row, got %d", len(metrics))
	}
	if metrics[0].City != "Hamburg" {
		t.Errorf("Expected only Hamburg, got %s", metrics[0].City)
	}
	if *metrics[0].AvgTempF != 41.0 {
		t.Errorf("Expected excluded row not to pollute the average, got %v", *metrics[0].AvgTempF)
	}
}

func TestEndToEndNonPositiveOrdersNeverAppear(t *testing.T) {
	store := hamburgStore()
	store.orders = []source.Order{
		{OrderID: 1, OrderTotal: decimal.NewFromFloat(-15.50), OrderTS: feb10, CustomerID: id(7), PrimaryCity: "Hamburg", Country: "Germany"},
		{OrderID: 2, OrderTotal: decimal.Zero, OrderTS: feb10, CustomerID: id(7), PrimaryCity: "Hamburg", Country: "Germany"},
	}
	store.items = []source.OrderLineItem{
		{OrderID: 1, MenuItemName: "Bratwurst", Quantity: 1},
		{OrderID: 2, MenuItemName: "Pretzel", Quantity: 1},
	}

	metrics := metricsFor(t, store)

	if !metrics[0].DailySales.Equal(decimal.Zero) {
		t.Errorf("Expected invalid orders filtered, daily_sales %s", metrics[0].DailySales)
	}
}

func TestRegistryResolvesDatasets(t *testing.T) {
	recorder := audit.NewMemoryRecorder()
	pipeline := NewPipeline(source.NewAdapters(hamburgStore(), recorder), recorder)
	registry := NewRegistry(pipeline)

	d, err := registry.Resolve(DatasetDailyCityMetrics)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	result, err := d.Compute(context.Background())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	metrics, ok := result.([]aggregate.DailyCityMetric)
	if !ok {
		t.Fatalf("Expected []aggregate.DailyCityMetric, got %T", result)
	}
	if len(metrics) != 1 {
		t.Errorf("Expected 1 row, got %d", len(metrics))
	}

	if _, err := registry.Resolve("nope"); err == nil {
		t.Error("Expected error for unknown dataset")
	}
}
