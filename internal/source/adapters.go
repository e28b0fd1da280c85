package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/tkellerman/salesweather/internal/audit"
)

// Store is the set-based read access the adapters require from the storage
// layer. *database.DB implements it; tests supply fixture stores.
type Store interface {
	Orders(ctx context.Context) ([]Order, error)
	OrderLineItems(ctx context.Context) ([]OrderLineItem, error)
	Customers(ctx context.Context) ([]Customer, error)
	WeatherObservations(ctx context.Context) ([]WeatherObservation, error)
	GeoReferences(ctx context.Context) ([]GeoReference, error)
	CountryReferences(ctx context.Context) ([]CountryReference, error)
}

// Adapters are the typed read-only accessors over the raw datasets. The only
// transformation logic here is validity filtering and deduplication; joins
// belong to the harmonization engine.
type Adapters struct {
	store    Store
	recorder audit.Recorder
}

// NewAdapters creates the source adapter layer
func NewAdapters(store Store, recorder audit.Recorder) *Adapters {
	return &Adapters{store: store, recorder: recorder}
}

// ValidOrders returns orders passing the validity predicate order_total > 0.
// Non-positive orders are counted as exclusions, never errors.
func (a *Adapters) ValidOrders(ctx context.Context) ([]Order, error) {
	orders, err := a.store.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	valid := make([]Order, 0, len(orders))
	var excluded int64
	for _, o := range orders {
		if !o.OrderTotal.IsPositive() {
			excluded++
			continue
		}
		valid = append(valid, o)
	}

	if excluded > 0 {
		a.recorder.Exclude(ctx, audit.ReasonNonPositiveTotal, excluded)
	}
	return valid, nil
}

// UniqueCustomers returns customers deduplicated on full-row identity. Two
// rows identical in every field collapse to one; rows differing in any field
// remain distinct even when customer_id matches. This mirrors a set-based
// dedup, not a keyed upsert.
func (a *Adapters) UniqueCustomers(ctx context.Context) ([]Customer, error) {
	customers, err := a.store.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read customers: %w", err)
	}

	seen := make(map[string]bool, len(customers))
	unique := make([]Customer, 0, len(customers))
	for _, c := range customers {
		key := customerIdentity(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}
	return unique, nil
}

// WeatherObservations returns the raw marketplace weather rows
func (a *Adapters) WeatherObservations(ctx context.Context) ([]WeatherObservation, error) {
	obs, err := a.store.WeatherObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read weather observations: %w", err)
	}
	return obs, nil
}

// GeoReferences returns the postal code lookup table
func (a *Adapters) GeoReferences(ctx context.Context) ([]GeoReference, error) {
	refs, err := a.store.GeoReferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read geo references: %w", err)
	}
	return refs, nil
}

// CountryReferences returns the country display-name lookup table
func (a *Adapters) CountryReferences(ctx context.Context) ([]CountryReference, error) {
	refs, err := a.store.CountryReferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read country references: %w", err)
	}
	return refs, nil
}

// OrderLineItems returns the menu line items for all orders
func (a *Adapters) OrderLineItems(ctx context.Context) ([]OrderLineItem, error) {
	items, err := a.store.OrderLineItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read order line items: %w", err)
	}
	return items, nil
}

// customerIdentity builds a canonical string over every field of the row.
// Unit separator keeps adjacent fields from colliding.
func customerIdentity(c Customer) string {
	return strings.Join([]string{
		fmt.Sprintf("%d", c.CustomerID),
		c.FirstName,
		c.LastName,
		c.City,
		c.Country,
		c.Email,
		c.PhoneNumber,
		c.LoyaltyTier,
	}, "\x1f")
}
