package widget

import (
	"context"

	"weather-widget/internal/weather"
)

// Geolocator reports the user's position.
type Geolocator interface {
	Locate(ctx context.Context) (lat, lon float64, err error)
}

type GeolocatorFunc func(ctx context.Context) (float64, float64, error)

func (f GeolocatorFunc) Locate(ctx context.Context) (float64, float64, error) {
	return f(ctx)
}

// StaticPosition is a fixed position, e.g. from configuration or from a
// position the browser already resolved. The zero value has no position.
type StaticPosition struct {
	Latitude  float64
	Longitude float64
	Known     bool
}

func (p StaticPosition) Locate(ctx context.Context) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if !p.Known {
		return 0, 0, weather.ErrPositionUnavailable
	}
	return p.Latitude, p.Longitude, nil
}

// DeniedPosition reports a geolocation failure of the given kind, as sent
// back by the browser.
type DeniedPosition struct {
	Kind weather.Kind
}

func (d DeniedPosition) Locate(ctx context.Context) (float64, float64, error) {
	switch d.Kind {
	case weather.KindPermissionDenied:
		return 0, 0, weather.ErrPermissionDenied
	case weather.KindTimeout:
		return 0, 0, weather.ErrTimeout
	}
	return 0, 0, weather.ErrPositionUnavailable
}
