package source

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tkellerman/salesweather/internal/audit"
)

type fixtureStore struct {
	orders    []Order
	customers []Customer
}

func (f *fixtureStore) Orders(ctx context.Context) ([]Order, error)       { return f.orders, nil }
func (f *fixtureStore) Customers(ctx context.Context) ([]Customer, error) { return f.customers, nil }
func (f *fixtureStore) OrderLineItems(ctx context.Context) ([]OrderLineItem, error) {
	return nil, nil
}
func (f *fixtureStore) WeatherObservations(ctx context.Context) ([]WeatherObservation, error) {
	return nil, nil
}
func (f *fixtureStore) GeoReferences(ctx context.Context) ([]GeoReference, error) {
	return nil, nil
}
func (f *fixtureStore) CountryReferences(ctx context.Context) ([]CountryReference, error) {
	return nil, nil
}

func TestValidOrdersFiltersNonPositiveTotals(t *testing.T) {
	ts := time.Date(2022, 2, 10, 12, 0, 0, 0, time.UTC)
	store := &fixtureStore{
		orders: []Order{
			{OrderID: 1, OrderTotal: decimal.NewFromFloat(15.50), OrderTS: ts},
			{OrderID: 2, OrderTotal: decimal.Zero, OrderTS: ts},
			{OrderID: 3, OrderTotal: decimal.NewFromFloat(-4.25), OrderTS: ts},
		},
	}
	recorder := audit.NewMemoryRecorder()
	adapters := NewAdapters(store, recorder)

	valid, err := adapters.ValidOrders(context.Background())
	if err != nil {
		t.Fatalf("ValidOrders failed: %v", err)
	}

	if len(valid) != 1 {
		t.Fatalf("Expected 1 valid order, got %d", len(valid))
	}
	if valid[0].OrderID != 1 {
		t.Errorf("Expected order 1 to survive, got %d", valid[0].OrderID)
	}

	count, err := recorder.Count(context.Background(), audit.ReasonNonPositiveTotal)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 exclusions recorded, got %d", count)
	}
}

func TestUniqueCustomersIsRowIdentityBased(t *testing.T) {
	base := Customer{
		CustomerID: 7,
		FirstName:  "Maria",
		LastName:   "Keller",
		City:       "Hamburg",
		Country:    "Germany",
		Email:      "maria@example.com",
	}
	changedEmail := base
	changedEmail.Email = "maria.keller@example.com"

	store := &fixtureStore{customers: []Customer{base, base, changedEmail}}
	adapters := NewAdapters(store, audit.NewMemoryRecorder())

	unique, err := adapters.UniqueCustomers(context.Background())
	if err != nil {
		t.Fatalf("UniqueCustomers failed: %v", err)
	}

	// Two fully identical rows collapse to one; the row differing only in a
	// non-key field stays distinct despite the matching customer_id.
	if len(unique) != 2 {
		t.Fatalf("Expected 2 unique customers, got %d", len(unique))
	}
}
