package weather

import (
	"fmt"
	"strings"
)

type ProviderConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	GeoURL         string
	Language       string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewProvider builds the configured backend, rate limited when RPS is set.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	var p Provider
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openweather", "openweathermap":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openweather is selected but no api key provided")
		}
		p = NewOpenWeatherClient(cfg.APIKey, cfg.BaseURL)
	case "openmeteo", "open-meteo", "open_meteo":
		p = NewOpenMeteoClient(cfg.BaseURL, cfg.GeoURL, cfg.Language)
	default:
		return nil, fmt.Errorf("weather provider not supported: %s", cfg.Provider)
	}

	if cfg.RateLimitRPS > 0 {
		return NewRateLimitedProvider(p, cfg.RateLimitRPS, cfg.RateLimitBurst), nil
	}
	return p, nil
}
