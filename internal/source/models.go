package source

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a point-of-sale order header
type Order struct {
	OrderID     int64
	OrderTotal  decimal.Decimal
	OrderTS     time.Time
	TruckID     int64
	CustomerID  *int64
	PrimaryCity string
	Country     string
}

// OrderLineItem represents one menu item on an order
type OrderLineItem struct {
	OrderID      int64
	MenuItemName string
	Quantity     int
	UnitPrice    decimal.Decimal
}

// Customer represents a loyalty program customer record
type Customer struct {
	CustomerID  int64
	FirstName   string
	LastName    string
	City        string
	Country     string
	Email       string
	PhoneNumber string
	LoyaltyTier string
}

// WeatherObservation represents one marketplace weather row,
// keyed by (postal_code, country, date)
type WeatherObservation struct {
	PostalCode           string
	Country              string
	Date                 time.Time
	AvgTemperatureF      *float64
	TotalPrecipitationIn *float64
	MaxWindSpeedMPH      *float64
}

// GeoReference maps a postal code to its canonical city name
type GeoReference struct {
	PostalCode string
	Country    string
	CityName   string
}

// CountryReference maps an ISO country code and city to a display country name
type CountryReference struct {
	ISOCountry  string
	City        string
	CountryName string
}
