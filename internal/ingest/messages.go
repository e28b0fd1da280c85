package ingest

import (
	"encoding/json"
	"fmt"
	"time"
)

// Feed row types delivered by the marketplace vendor
const (
	RowTypeWeatherObservation = "weather_observation"
	RowTypeGeoReference       = "geo_reference"
)

// FeedMessage is the envelope for one marketplace feed row
type FeedMessage struct {
	MessageID  string          `json:"message_id"`
	RowType    string          `json:"row_type"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// WeatherRow is the feed payload for one weather observation
type WeatherRow struct {
	PostalCode           string   `json:"postal_code"`
	Country              string   `json:"country"`
	Date                 string   `json:"date"` // 2006-01-02
	AvgTemperatureF      *float64 `json:"avg_temperature_air_2m_f"`
	TotalPrecipitationIn *float64 `json:"tot_precipitation_in"`
	MaxWindSpeedMPH      *float64 `json:"max_wind_speed_100m_mph"`
}

// ParsedDate returns the observation's calendar date
func (w *WeatherRow) ParsedDate() (time.Time, error) {
	ts, err := time.Parse("2006-01-02", w.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", w.Date, err)
	}
	return ts, nil
}

// GeoRow is the feed payload for one postal code reference
type GeoRow struct {
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	CityName   string `json:"city_name"`
}

// EncodeFeedMessage encodes a FeedMessage to JSON
func EncodeFeedMessage(msg *FeedMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeFeedMessage decodes JSON to FeedMessage
func DecodeFeedMessage(data []byte) (*FeedMessage, error) {
	var msg FeedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RowType != RowTypeWeatherObservation && msg.RowType != RowTypeGeoReference {
		return nil, fmt.Errorf("unknown feed row type: %s", msg.RowType)
	}
	return &msg, nil
}

// DecodeWeatherRow decodes a weather observation payload
func DecodeWeatherRow(payload json.RawMessage) (*WeatherRow, error) {
	var row WeatherRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return nil, err
	}
	if row.PostalCode == "" || row.Country == "" {
		return nil, fmt.Errorf("weather row missing postal_code or country")
	}
	return &row, nil
}

// DecodeGeoRow decodes a geo reference payload
func DecodeGeoRow(payload json.RawMessage) (*GeoRow, error) {
	var row GeoRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return nil, err
	}
	if row.PostalCode == "" || row.Country == "" || row.CityName == "" {
		return nil, fmt.Errorf("geo row missing postal_code, country or city_name")
	}
	return &row, nil
}
