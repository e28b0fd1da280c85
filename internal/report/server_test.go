package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tkellerman/salesweather/internal/audit"
	"github.com/tkellerman/salesweather/internal/derived"
	"github.com/tkellerman/salesweather/internal/masking"
	"github.com/tkellerman/salesweather/internal/source"
	"github.com/tkellerman/salesweather/pkg/config"
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

func testServer(t *testing.T) *Server {
	t.Helper()

	feb10 := time.Date(2022, 2, 10, 0, 0, 0, 0, time.UTC)
	feb11 := feb10.AddDate(0, 0, 1)
	store := &fixtureStore{
		customers: []source.Customer{
			{CustomerID: 7, FirstName: "Maria", LastName: "Keller", City: "Hamburg", Country: "DE",
				Email: "maria@example.com", PhoneNumber: "+49 40 1234", LoyaltyTier: "gold"},
		},
		observations: []source.WeatherObservation{
			{PostalCode: "20095", Country: "DE", Date: feb10, AvgTemperatureF: ptr(41.0)},
			{PostalCode: "20095", Country: "DE", Date: feb11, AvgTemperatureF: ptr(50.0)},
		},
		geo: []source.GeoReference{
			{PostalCode: "20095", Country: "DE", CityName: "Hamburg"},
		},
		countries: []source.CountryReference{
			{ISOCountry: "DE", City: "Hamburg", CountryName: "Germany"},
		},
	}

	recorder := audit.NewMemoryRecorder()
	pipeline := derived.NewPipeline(source.NewAdapters(store, recorder), recorder)
	masker := masking.NewEngine(
		[]string{masking.ColumnFirstName, masking.ColumnLastName, masking.ColumnEmail,
			masking.ColumnPhoneNumber, masking.ColumnDailySales},
		[]masking.RoleConfig{
			{Name: "admin", PermittedColumns: []string{masking.ColumnFirstName, masking.ColumnLastName,
				masking.ColumnEmail, masking.ColumnPhoneNumber, masking.ColumnDailySales}},
			{Name: "analyst", PermittedColumns: []string{masking.ColumnDailySales}},
		},
	)

	cfg := &config.ReportServerConfig{Port: 0, MaxSessions: 10}
	return NewServer(cfg, NewSessionManager(10), nil, pipeline, masker)
}

func TestQueryDailyCityMetricsDateFilter(t *testing.T) {
	s := testServer(t)

	rows, err := s.queryDailyCityMetrics(&QueryMessage{
		Dataset: derived.DatasetDailyCityMetrics,
		From:    "2022-02-11",
		To:      "2022-02-11",
	})
	if err != nil {
		t.Fatalf("queryDailyCityMetrics failed: %v", err)
	}

	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0]["date"] != "2022-02-11" {
		t.Errorf("Expected 2022-02-11, got %v", rows[0]["date"])
	}
}

func TestQueryDailyCityMetricsRejectsMalformedDateBound(t *testing.T) {
	s := testServer(t)

	for _, msg := range []*QueryMessage{
		{Dataset: derived.DatasetDailyCityMetrics, From: "02/10/2022"},
		{Dataset: derived.DatasetDailyCityMetrics, To: "not-a-date"},
	} {
		if _, err := s.queryDailyCityMetrics(msg); err == nil {
			t.Errorf("Expected error for bounds %q..%q", msg.From, msg.To)
		}
	}
}

func TestQueryDailyCityMetricsCityFilterIsNormalized(t *testing.T) {
	s := testServer(t)

	rows, err := s.queryDailyCityMetrics(&QueryMessage{
		Dataset: derived.DatasetDailyCityMetrics,
		City:    "  hamburg ",
	})
	if err != nil {
		t.Fatalf("queryDailyCityMetrics failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected 2 rows for normalized city filter, got %d", len(rows))
	}
}

func TestQueryCustomersMaskedForAnalyst(t *testing.T) {
	s := testServer(t)

	rows, err := s.queryCustomers(&QueryMessage{Dataset: derived.DatasetCustomers})
	if err != nil {
		t.Fatalf("queryCustomers failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 customer, got %d", len(rows))
	}

	masked := s.masker.MaskRecord(rows[0], "analyst")
	if masked[masking.ColumnEmail] != masking.RedactedMarker {
		t.Errorf("Expected masked email, got %v", masked[masking.ColumnEmail])
	}
	if masked["city"] != "Hamburg" {
		t.Errorf("Expected unprotected city visible, got %v", masked["city"])
	}

	visible := s.masker.MaskRecord(rows[0], "admin")
	if visible[masking.ColumnEmail] != "maria@example.com" {
		t.Errorf("Expected admin to see email, got %v", visible[masking.ColumnEmail])
	}
}

func TestQueryCustomersMaskedForUnknownRole(t *testing.T) {
	s := testServer(t)

	rows, err := s.queryCustomers(&QueryMessage{Dataset: derived.DatasetCustomers})
	if err != nil {
		t.Fatalf("queryCustomers failed: %v", err)
	}

	masked := s.masker.MaskRecord(rows[0], "intern")
	for _, col := range []string{masking.ColumnFirstName, masking.ColumnLastName,
		masking.ColumnEmail, masking.ColumnPhoneNumber} {
		if masked[col] != masking.RedactedMarker {
			t.Errorf("Expected %s masked for unknown role, got %v", col, masked[col])
		}
	}
}

func TestDailyCityMetricsRowCarriesSalesColumn(t *testing.T) {
	s := testServer(t)

	rows, err := s.queryDailyCityMetrics(&QueryMessage{Dataset: derived.DatasetDailyCityMetrics})
	if err != nil {
		t.Fatalf("queryDailyCityMetrics failed: %v", err)
	}

	sales, ok := rows[0][masking.ColumnDailySales].(decimal.Decimal)
	if !ok {
		t.Fatalf("Expected decimal daily_sales, got %T", rows[0][masking.ColumnDailySales])
	}
	if !sales.Equal(decimal.Zero) {
		t.Errorf("Expected zero-filled daily_sales, got %s", sales)
	}

	masked := s.masker.MaskRecord(rows[0], "analyst")
	if _, ok := masked[masking.ColumnDailySales].(decimal.Decimal); !ok {
		t.Errorf("Expected analyst to see daily_sales, got %v", masked[masking.ColumnDailySales])
	}
}
