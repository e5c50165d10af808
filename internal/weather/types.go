package weather

import (
	"context"
	"time"
)

// PlaceIdentity is a resolved, located place.
type PlaceIdentity struct {
	Name      string  `json:"name"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Candidate is one match returned by a geocoding provider.
type Candidate struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RawForecastSample is one 3-hour step of a provider forecast. Temperatures
// are in Kelvin and Timestamp is the provider's wall-clock "2006-01-02 15:04:05".
type RawForecastSample struct {
	Timestamp            string  `json:"timestamp"`
	TemperatureK         float64 `json:"temperature_k"`
	FeelsLikeK           float64 `json:"feels_like_k"`
	HumidityPercent      int     `json:"humidity_percent"`
	PressureHPa          float64 `json:"pressure_hpa"`
	WindSpeedMS          float64 `json:"wind_speed_ms"`
	ConditionMain        string  `json:"condition_main"`
	ConditionDescription string  `json:"condition_description"`
	IconCode             string  `json:"icon_code"`
}

// NormalizedDay is the first sample seen for a calendar date.
type NormalizedDay struct {
	Date   time.Time         `json:"date"`
	Sample RawForecastSample `json:"sample"`
}

// DateString returns the day as "2006-01-02".
func (d NormalizedDay) DateString() string {
	return d.Date.Format(dateLayout)
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) ([]Candidate, error)
}

type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) ([]Candidate, error)
}

type ForecastSource interface {
	Forecast(ctx context.Context, lat, lon float64) ([]RawForecastSample, error)
}

// Provider is a full weather backend: forward and reverse geocoding plus a
// forecast feed.
type Provider interface {
	Geocoder
	ReverseGeocoder
	ForecastSource
	Name() string
}
