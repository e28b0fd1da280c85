package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tkellerman/salesweather/internal/source"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// Orders returns all raw order headers
func (db *DB) Orders(ctx context.Context) ([]source.Order, error) {
	query := `
		SELECT order_id, order_total, order_ts, truck_id, customer_id, primary_city, country
		FROM orders
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []source.Order
	for rows.Next() {
		var o source.Order
		var customerID sql.NullInt64
		if err := rows.Scan(
			&o.OrderID,
			&o.OrderTotal,
			&o.OrderTS,
			&o.TruckID,
			&customerID,
			&o.PrimaryCity,
			&o.Country,
		); err != nil {
			return nil, err
		}
		if customerID.Valid {
			o.CustomerID = &customerID.Int64
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// OrderLineItems returns all menu line items
func (db *DB) OrderLineItems(ctx context.Context) ([]source.OrderLineItem, error) {
	query := `
		SELECT order_id, menu_item_name, quantity, unit_price
		FROM order_line_items
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []source.OrderLineItem
	for rows.Next() {
		var it source.OrderLineItem
		if err := rows.Scan(&it.OrderID, &it.MenuItemName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// Customers returns all raw loyalty customer rows, duplicates included.
// Deduplication is the source adapter's job.
func (db *DB) Customers(ctx context.Context) ([]source.Customer, error) {
	query := `
		SELECT customer_id, first_name, last_name, city, country, email, phone_number, loyalty_tier
		FROM customers
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []source.Customer
	for rows.Next() {
		var c source.Customer
		if err := rows.Scan(
			&c.CustomerID,
			&c.FirstName,
			&c.LastName,
			&c.City,
			&c.Country,
			&c.Email,
			&c.PhoneNumber,
			&c.LoyaltyTier,
		); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	return customers, rows.Err()
}

// WeatherObservations returns all marketplace weather rows
func (db *DB) WeatherObservations(ctx context.Context) ([]source.WeatherObservation, error) {
	query := `
		SELECT postal_code, country, date, avg_temperature_f, total_precipitation_in, max_wind_speed_mph
		FROM weather_observations
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []source.WeatherObservation
	for rows.Next() {
		var w source.WeatherObservation
		if err := rows.Scan(
			&w.PostalCode,
			&w.Country,
			&w.Date,
			&w.AvgTemperatureF,
			&w.TotalPrecipitationIn,
			&w.MaxWindSpeedMPH,
		); err != nil {
			return nil, err
		}
		obs = append(obs, w)
	}

	return obs, rows.Err()
}

// GeoReferences returns the postal code lookup table
func (db *DB) GeoReferences(ctx context.Context) ([]source.GeoReference, error) {
	query := `SELECT postal_code, country, city_name FROM geo_references`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []source.GeoReference
	for rows.Next() {
		var g source.GeoReference
		if err := rows.Scan(&g.PostalCode, &g.Country, &g.CityName); err != nil {
			return nil, err
		}
		refs = append(refs, g)
	}

	return refs, rows.Err()
}

// CountryReferences returns the country display-name lookup table
func (db *DB) CountryReferences(ctx context.Context) ([]source.CountryReference, error) {
	query := `SELECT iso_country, city, country_name FROM country_references`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []source.CountryReference
	for rows.Next() {
		var c source.CountryReference
		if err := rows.Scan(&c.ISOCountry, &c.City, &c.CountryName); err != nil {
			return nil, err
		}
		refs = append(refs, c)
	}

	return refs, rows.Err()
}

// UpsertGeoReference inserts or updates a geo reference row from the feed
func (db *DB) UpsertGeoReference(ref *source.GeoReference) error {
	query := `
		INSERT INTO geo_references (postal_code, country, city_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (postal_code, country) DO UPDATE
		SET city_name = EXCLUDED.city_name,
		    updated_at = CURRENT_TIMESTAMP
	`
	_, err := db.Exec(query, ref.PostalCode, ref.Country, ref.CityName)
	return err
}

// UpsertWeatherObservation inserts or replaces the observation for its
// (postal_code, country, date) key
func (db *DB) UpsertWeatherObservation(obs *source.WeatherObservation) error {
	query := `
		INSERT INTO weather_observations (
			postal_code, country, date,
			avg_temperature_f, total_precipitation_in, max_wind_speed_mph
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (postal_code, country, date) DO UPDATE
		SET avg_temperature_f = EXCLUDED.avg_temperature_f,
		    total_precipitation_in = EXCLUDED.total_precipitation_in,
		    max_wind_speed_mph = EXCLUDED.max_wind_speed_mph,
		    updated_at = CURRENT_TIMESTAMP
	`
	_, err := db.Exec(query, obs.PostalCode, obs.Country, obs.Date,
		obs.AvgTemperatureF, obs.TotalPrecipitationIn, obs.MaxWindSpeedMPH)
	return err
}

// MetricSnapshot is one precomputed daily_city_metrics row written by the
// refresher for dashboard consumers. The canonical read path recomputes from
// sources; this table only trades staleness for read cost.
type MetricSnapshot struct {
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

// UpsertMetricSnapshot inserts or updates one snapshot row
func (db *DB) UpsertMetricSnapshot(m *MetricSnapshot) error {
	query := `
		INSERT INTO daily_city_metrics_snapshot (
			date, city, country, daily_sales,
			avg_temperature_fahrenheit, avg_temperature_celsius,
			avg_precipitation_inches, avg_precipitation_millimeters,
			max_wind_speed_mph
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (date, city, country) DO UPDATE
		SET daily_sales = EXCLUDED.daily_sales,
		    avg_temperature_fahrenheit = EXCLUDED.avg_temperature_fahrenheit,
		    avg_temperature_celsius = EXCLUDED.avg_temperature_celsius,
		    avg_precipitation_inches = EXCLUDED.avg_precipitation_inches,
		    avg_precipitation_millimeters = EXCLUDED.avg_precipitation_millimeters,
		    max_wind_speed_mph = EXCLUDED.max_wind_speed_mph,
		    updated_at = CURRENT_TIMESTAMP
	`
	_, err := db.Exec(query, m.Date, m.City, m.Country, m.DailySales,
		m.AvgTempF, m.AvgTempC, m.AvgPrecipIn, m.AvgPrecipMM, m.MaxWindMPH)
	return err
}

// SaveDatasetDefinition durably records a derived dataset's name, description
// and dependencies so later callers can resolve it by name
func (db *DB) SaveDatasetDefinition(name, description string, dependsOn []string) error {
	query := `
		INSERT INTO derived_datasets (name, description, depends_on)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description,
		    depends_on = EXCLUDED.depends_on,
		    updated_at = CURRENT_TIMESTAMP
	`
	_, err := db.Exec(query, name, description, strings.Join(dependsOn, ","))
	return err
}

// QualityThreshold represents an exclusion-rate alert configuration
type QualityThreshold struct {
	ID              int
	Reason          string
	Operator        string
	ThresholdValue  float64
	DurationMinutes int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GetActiveQualityThresholds retrieves all active thresholds
func (db *DB) GetActiveQualityThresholds() ([]*QualityThreshold, error) {
	query := `
		SELECT id, reason, operator, threshold_value, duration_minutes,
		       is_active, created_at, updated_at
		FROM quality_thresholds
		WHERE is_active = true
		ORDER BY reason
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var thresholds []*QualityThreshold
	for rows.Next() {
		var t QualityThreshold
		if err := rows.Scan(
			&t.ID,
			&t.Reason,
			&t.Operator,
			&t.ThresholdValue,
			&t.DurationMinutes,
			&t.IsActive,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		thresholds = append(thresholds, &t)
	}

	return thresholds, rows.Err()
}

// QualityAlertLog represents a logged data-quality alert
type QualityAlertLog struct {
	AlertID         int64
	Reason          string
	BreachValue     float64
	ThresholdConfig string // JSON
	StartTime       time.Time
	EndTime         *time.Time
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const (
	AlertStatusActive  = "ACTIVE"
	AlertStatusCleared = "CLEARED"
)

// InsertQualityAlertLog inserts a new alert log entry
func (db *DB) InsertQualityAlertLog(alert *QualityAlertLog) error {
	query := `
		INSERT INTO quality_alerts_log (
			reason, breach_value, threshold_config, start_time, status
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING alert_id
	`

	return db.QueryRow(
		query,
		alert.Reason,
		alert.BreachValue,
		alert.ThresholdConfig,
		alert.StartTime,
		alert.Status,
	).Scan(&alert.AlertID)
}

// UpdateQualityAlertCleared updates an alert log to cleared status
func (db *DB) UpdateQualityAlertCleared(alertID int64, endTime time.Time) error {
	query := `
		UPDATE quality_alerts_log
		SET status = $1, end_time = $2, updated_at = CURRENT_TIMESTAMP
		WHERE alert_id = $3
	`

	_, err := db.Exec(query, AlertStatusCleared, endTime, alertID)
	return err
}
