package harmonize

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tkellerman/salesweather/internal/audit"
	"github.com/tkellerman/salesweather/internal/source"
)

// EnrichedOrder is one valid order correlated with its customer, the geo
// reference for the customer's city, and its menu line items
type EnrichedOrder struct {
	OrderID       int64
	OrderDate     time.Time
	OrderTotal    decimal.Decimal
	TruckID       int64
	CustomerID    int64
	FirstName     string
	LastName      string
	Email         string
	PhoneNumber   string
	LoyaltyTier   string
	City          string
	Country       string
	PostalCode    string // empty when the customer's city has no geo reference
	MenuItemNames []string
}

// EnrichOrders inner-joins valid orders to unique customers on customer_id,
// left-joins the result to geo references on the customer city, and
// inner-joins line items on order id. An order without an identifiable
// customer or without line items is dropped and counted; a missing geo
// reference only leaves the postal code empty.
func EnrichOrders(
	ctx context.Context,
	orders []source.Order,
	customers []source.Customer,
	geo []source.GeoReference,
	items []source.OrderLineItem,
	recorder audit.Recorder,
) []EnrichedOrder {
	customersByID := make(map[int64]source.Customer, len(customers))
	for _, c := range customers {
		customersByID[c.CustomerID] = c
	}

	// Geo lookup is keyed on the normalized (city, country) of the reference
	type cityCountry struct{ city, country string }
	geoByCity := make(map[cityCountry]source.GeoReference, len(geo))
	for _, g := range geo {
		key := cityCountry{NormalizeKey(g.CityName), NormalizeKey(g.Country)}
		if _, exists := geoByCity[key]; !exists {
			geoByCity[key] = g
		}
	}

	itemsByOrder := make(map[int64][]string)
	for _, it := range items {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it.MenuItemName)
	}

	var noCustomer, noItems int64
	enriched := make([]EnrichedOrder, 0, len(orders))
	for _, o := range orders {
		if o.CustomerID == nil {
			noCustomer++
			continue
		}
		customer, ok := customersByID[*o.CustomerID]
		if !ok {
			noCustomer++
			continue
		}

		names, ok := itemsByOrder[o.OrderID]
		if !ok {
			noItems++
			continue
		}

		eo := EnrichedOrder{
			OrderID:       o.OrderID,
			OrderDate:     DateOnly(o.OrderTS),
			OrderTotal:    o.OrderTotal,
			TruckID:       o.TruckID,
			CustomerID:    customer.CustomerID,
			FirstName:     customer.FirstName,
			LastName:      customer.LastName,
			Email:         customer.Email,
			PhoneNumber:   customer.PhoneNumber,
			LoyaltyTier:   customer.LoyaltyTier,
			City:          o.PrimaryCity,
			Country:       o.Country,
			MenuItemNames: names,
		}

		if g, ok := geoByCity[cityCountry{NormalizeKey(customer.City), NormalizeKey(customer.Country)}]; ok {
			eo.PostalCode = g.PostalCode
		}

		enriched = append(enriched, eo)
	}

	if noCustomer > 0 {
		recorder.Exclude(ctx, audit.ReasonNoCustomerMatch, noCustomer)
	}
	if noItems > 0 {
		recorder.Exclude(ctx, audit.ReasonNoLineItems, noItems)
	}

	return enriched
}
