package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultOpenWeatherURL = "https://api.openweathermap.org"

type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	tracer  trace.Tracer
}

func NewOpenWeatherClient(apiKey, baseURL string) *OpenWeatherClient {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	return &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		tracer: otel.GetTracerProvider().Tracer("weather-widget/openweather"),
	}
}

func (c *OpenWeatherClient) Name() string { return "openweather" }

type openWeatherGeoResult struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type openWeatherForecastResponse struct {
	Cod  json.RawMessage `json:"cod"`
	List json.RawMessage `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

type openWeatherForecastItem struct {
	Dt    int64  `json:"dt"`
	DtTxt string `json:"dt_txt"`
	Main  struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  float64 `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (c *OpenWeatherClient) Geocode(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "1")
	return c.geocode(ctx, "/geo/1.0/direct", params)
}

func (c *OpenWeatherClient) ReverseGeocode(ctx context.Context, lat, lon float64) ([]Candidate, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%.6f", lat))
	params.Set("lon", fmt.Sprintf("%.6f", lon))
	params.Set("limit", "1")
	return c.geocode(ctx, "/geo/1.0/reverse", params)
}

func (c *OpenWeatherClient) geocode(ctx context.Context, path string, params url.Values) ([]Candidate, error) {
	var payload []openWeatherGeoResult
	if err := c.getJSON(ctx, path, params, &payload); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(payload))
	for _, r := range payload {
		candidates = append(candidates, Candidate{
			Name:      r.Name,
			Country:   r.Country,
			Latitude:  r.Lat,
			Longitude: r.Lon,
		})
	}
	return candidates, nil
}

func (c *OpenWeatherClient) Forecast(ctx context.Context, lat, lon float64) ([]RawForecastSample, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%.6f", lat))
	params.Set("lon", fmt.Sprintf("%.6f", lon))

	var payload openWeatherForecastResponse
	if err := c.getJSON(ctx, "/data/2.5/forecast", params, &payload); err != nil {
		return nil, err
	}

	list := bytes.TrimSpace(payload.List)
	if len(list) == 0 || list[0] != '[' {
		return nil, newError(KindUpstreamFormat, nil, "openweather forecast list missing")
	}

	var items []openWeatherForecastItem
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, newError(KindUpstreamFormat, err, "openweather forecast list")
	}

	samples := make([]RawForecastSample, 0, len(items))
	for _, item := range items {
		sample := RawForecastSample{
			Timestamp:       item.DtTxt,
			TemperatureK:    item.Main.Temp,
			FeelsLikeK:      item.Main.FeelsLike,
			HumidityPercent: item.Main.Humidity,
			PressureHPa:     item.Main.Pressure,
			WindSpeedMS:     item.Wind.Speed,
		}
		if len(item.Weather) > 0 {
			sample.ConditionMain = item.Weather[0].Main
			sample.ConditionDescription = item.Weather[0].Description
			sample.IconCode = item.Weather[0].Icon
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func (c *OpenWeatherClient) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.apiKey == "" {
		return newError(KindUpstreamUnavailable, nil, "openweather api key is empty")
	}

	ctx, span := c.tracer.Start(ctx, "openweather "+path)
	defer span.End()

	params.Set("appid", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return newError(KindUpstreamUnavailable, err, "openweather request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return newError(KindUpstreamUnavailable, err, "openweather request failed")
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(KindUpstreamUnavailable, nil, "openweather bad status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		return newError(KindUpstreamFormat, err, "openweather decode")
	}
	return nil
}

var _ Provider = (*OpenWeatherClient)(nil)
