package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultOpenMeteoURL          = "https://api.open-meteo.com"
	DefaultOpenMeteoGeocodingURL = "https://geocoding-api.open-meteo.com"
)

// OpenMeteoClient needs no API key. Open-Meteo has no reverse geocoding, so
// ReverseGeocode always fails with an unavailable error.
type OpenMeteoClient struct {
	baseURL  string
	geoURL   string
	language string
	client   *http.Client
	tracer   trace.Tracer
}

func NewOpenMeteoClient(baseURL, geoURL, language string) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	if geoURL == "" {
		geoURL = DefaultOpenMeteoGeocodingURL
	}
	if language == "" {
		language = "en"
	}
	return &OpenMeteoClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		geoURL:   strings.TrimRight(geoURL, "/"),
		language: language,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		tracer: otel.GetTracerProvider().Tracer("weather-widget/openmeteo"),
	}
}

func (c *OpenMeteoClient) Name() string { return "openmeteo" }

type openMeteoGeoResponse struct {
	Results []struct {
		Name        string  `json:"name"`
		CountryCode string  `json:"country_code"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
	} `json:"results"`
}

type openMeteoResponse struct {
	Hourly *struct {
		Time         []string  `json:"time"`
		Temperature  []float64 `json:"temperature_2m"`
		ApparentTemp []float64 `json:"apparent_temperature"`
		Humidity     []int     `json:"relative_humidity_2m"`
		Pressure     []float64 `json:"surface_pressure"`
		WindSpeed    []float64 `json:"wind_speed_10m"`
		WeatherCode  []int     `json:"weather_code"`
		IsDay        []int     `json:"is_day"`
	} `json:"hourly"`
}

func (c *OpenMeteoClient) Geocode(ctx context.Context, query string) ([]Candidate, error) {
	ctx, span := c.tracer.Start(ctx, "openmeteo geocoding")
	defer span.End()

	// Open-Meteo searches by name only; drop any ", country" suffix.
	name := query
	if i := strings.Index(name, ","); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}

	params := url.Values{}
	params.Set("name", name)
	params.Set("count", "1")
	params.Set("language", c.language)
	params.Set("format", "json")

	var payload openMeteoGeoResponse
	if err := c.getJSON(ctx, c.geoURL+"/v1/search", params, &payload); err != nil {
		span.RecordError(err)
		return nil, err
	}

	candidates := make([]Candidate, 0, len(payload.Results))
	for _, r := range payload.Results {
		candidates = append(candidates, Candidate{
			Name:      r.Name,
			Country:   r.CountryCode,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}
	return candidates, nil
}

func (c *OpenMeteoClient) ReverseGeocode(ctx context.Context, lat, lon float64) ([]Candidate, error) {
	return nil, newError(KindUpstreamUnavailable, nil, "open-meteo has no reverse geocoding")
}

// Forecast requests 3-hourly steps so the feed has the same shape as
// OpenWeather's; Celsius values are shifted to Kelvin.
func (c *OpenMeteoClient) Forecast(ctx context.Context, lat, lon float64) ([]RawForecastSample, error) {
	ctx, span := c.tracer.Start(ctx, "openmeteo forecast")
	defer span.End()

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.6f", lat))
	params.Set("longitude", fmt.Sprintf("%.6f", lon))
	params.Set("hourly", "temperature_2m,apparent_temperature,relative_humidity_2m,surface_pressure,wind_speed_10m,weather_code,is_day")
	params.Set("wind_speed_unit", "ms")
	params.Set("timezone", "auto")
	params.Set("forecast_days", "5")

	var payload openMeteoResponse
	if err := c.getJSON(ctx, c.baseURL+"/v1/forecast", params, &payload); err != nil {
		span.RecordError(err)
		return nil, err
	}

	h := payload.Hourly
	if h == nil || h.Time == nil {
		return nil, newError(KindUpstreamFormat, nil, "open-meteo hourly data missing")
	}
	n := len(h.Time)
	if len(h.Temperature) != n {
		return nil, newError(KindUpstreamFormat, nil, "open-meteo hourly series lengths differ")
	}

	samples := make([]RawForecastSample, 0, n/3+1)
	for i := 0; i < n; i += 3 {
		code := intAt(h.WeatherCode, i)
		condition, description := openMeteoDescribe(code)
		samples = append(samples, RawForecastSample{
			Timestamp:            strings.Replace(h.Time[i], "T", " ", 1) + ":00",
			TemperatureK:         h.Temperature[i] + kelvinOffset,
			FeelsLikeK:           floatAt(h.ApparentTemp, i, h.Temperature[i]) + kelvinOffset,
			HumidityPercent:      intAt(h.Humidity, i),
			PressureHPa:          floatAt(h.Pressure, i, 0),
			WindSpeedMS:          floatAt(h.WindSpeed, i, 0),
			ConditionMain:        condition,
			ConditionDescription: description,
			IconCode:             openMeteoIcon(code, intAt(h.IsDay, i) == 1),
		})
	}
	return samples, nil
}

func (c *OpenMeteoClient) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return newError(KindUpstreamUnavailable, err, "open-meteo request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return newError(KindUpstreamUnavailable, err, "open-meteo request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(KindUpstreamUnavailable, nil, "open-meteo bad status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newError(KindUpstreamFormat, err, "open-meteo decode")
	}
	return nil
}

func intAt(values []int, i int) int {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func floatAt(values []float64, i int, fallback float64) float64 {
	if i < len(values) {
		return values[i]
	}
	return fallback
}

func openMeteoDescribe(code int) (string, string) {
	switch code {
	case 0:
		return "Clear", "clear sky"
	case 1:
		return "Clouds", "mainly clear"
	case 2:
		return "Clouds", "partly cloudy"
	case 3:
		return "Clouds", "overcast"
	case 45, 48:
		return "Fog", "fog"
	case 51, 53, 55, 56, 57:
		return "Drizzle", "drizzle"
	case 61, 63, 65, 66, 67:
		return "Rain", "rain"
	case 71, 73, 75, 77:
		return "Snow", "snow"
	case 80, 81, 82:
		return "Rain", "rain showers"
	case 85, 86:
		return "Snow", "snow showers"
	case 95:
		return "Thunderstorm", "thunderstorm"
	case 96, 99:
		return "Thunderstorm", "thunderstorm with hail"
	default:
		return "Unknown", "unknown conditions"
	}
}

// openMeteoIcon maps a WMO code onto the OpenWeather icon set so renderers
// only deal with one icon scheme.
func openMeteoIcon(code int, day bool) string {
	suffix := "n"
	if day {
		suffix = "d"
	}
	base := "01"
	switch {
	case code == 1:
		base = "02"
	case code == 2:
		base = "03"
	case code == 3:
		base = "04"
	case code == 45 || code == 48:
		base = "50"
	case code >= 51 && code <= 57:
		base = "09"
	case code >= 61 && code <= 67:
		base = "10"
	case code >= 71 && code <= 77, code == 85, code == 86:
		base = "13"
	case code >= 80 && code <= 82:
		base = "09"
	case code >= 95:
		base = "11"
	}
	return base + suffix
}

var _ Provider = (*OpenMeteoClient)(nil)
