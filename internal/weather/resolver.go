package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const minQueryLength = 2

type ResolverConfig struct {
	Geocoder        Geocoder
	ReverseGeocoder ReverseGeocoder
	// StrictNameMatch rejects the top candidate when its name is not a
	// case-insensitive prefix match of the query.
	StrictNameMatch bool
}

// Resolver turns a city name or a position into a PlaceIdentity.
type Resolver struct {
	geocoder        Geocoder
	reverse         ReverseGeocoder
	strictNameMatch bool
	tracer          trace.Tracer
}

func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{
		geocoder:        cfg.Geocoder,
		reverse:         cfg.ReverseGeocoder,
		strictNameMatch: cfg.StrictNameMatch,
		tracer:          otel.GetTracerProvider().Tracer("weather-widget/resolver"),
	}
}

// ValidateQuery trims a city search and checks it locally.
func ValidateQuery(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", newError(KindInvalidInput, nil, "Please enter a city name")
	}
	if utf8.RuneCountInString(trimmed) < minQueryLength {
		return "", newError(KindInvalidInput, nil, "City name must be at least %d characters", minQueryLength)
	}
	for _, r := range trimmed {
		if unicode.IsLetter(r) || r == ' ' || r == ',' || r == '\'' || r == '-' {
			continue
		}
		return "", newError(KindInvalidInput, nil, "City name contains an invalid character %q", r)
	}
	return trimmed, nil
}

func (r *Resolver) ResolveByName(ctx context.Context, name string) (PlaceIdentity, error) {
	query, err := ValidateQuery(name)
	if err != nil {
		return PlaceIdentity{}, err
	}
	if r.geocoder == nil {
		return PlaceIdentity{}, newError(KindUpstreamUnavailable, nil, "no geocoding provider configured")
	}

	ctx, span := r.tracer.Start(ctx, "resolve-by-name")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	candidates, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		span.RecordError(err)
		return PlaceIdentity{}, upstream(err, "geocoding %q", query)
	}
	if len(candidates) == 0 {
		return PlaceIdentity{}, newError(KindNotFound, nil, "no coordinates found for %s", query)
	}

	top := candidates[0]
	if r.strictNameMatch && !prefixMatch(top.Name, query) {
		return PlaceIdentity{}, newError(KindAmbiguousMatch, nil, "%q matched %q", query, top.Name)
	}

	place := PlaceIdentity{
		Name:      top.Name,
		Country:   top.Country,
		Latitude:  top.Latitude,
		Longitude: top.Longitude,
	}
	if err := validateCoordinates(place.Latitude, place.Longitude); err != nil {
		return PlaceIdentity{}, newError(KindUpstreamFormat, err, "geocoding %q", query)
	}

	span.SetAttributes(attribute.String("place", place.Name))
	return place, nil
}

func (r *Resolver) ResolveByCoordinates(ctx context.Context, lat, lon float64) (PlaceIdentity, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return PlaceIdentity{}, newError(KindInvalidInput, nil, "%v", err)
	}
	if r.reverse == nil {
		return PlaceIdentity{}, newError(KindUpstreamUnavailable, nil, "no reverse geocoding provider configured")
	}

	ctx, span := r.tracer.Start(ctx, "resolve-by-coordinates")
	defer span.End()
	span.SetAttributes(attribute.Float64("lat", lat), attribute.Float64("lon", lon))

	candidates, err := r.reverse.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		span.RecordError(err)
		return PlaceIdentity{}, upstream(err, "reverse geocoding %.4f,%.4f", lat, lon)
	}
	if len(candidates) == 0 {
		return PlaceIdentity{}, newError(KindNotFound, nil, "no city found at %.4f,%.4f", lat, lon)
	}

	return PlaceIdentity{
		Name:      candidates[0].Name,
		Country:   candidates[0].Country,
		Latitude:  lat,
		Longitude: lon,
	}, nil
}

// validateCoordinates rejects NaN and infinities along with out of range values.
func validateCoordinates(lat, lon float64) error {
	if !(lat >= -90 && lat <= 90) {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if !(lon >= -180 && lon <= 180) {
		return fmt.Errorf("longitude %v out of range", lon)
	}
	return nil
}

// prefixMatch compares the candidate against the city part of the query,
// so "London, GB" matches "London".
func prefixMatch(candidate, query string) bool {
	city := query
	if i := strings.Index(city, ","); i >= 0 {
		city = city[:i]
	}
	city = strings.ToLower(strings.TrimSpace(city))
	return city != "" && strings.HasPrefix(strings.ToLower(strings.TrimSpace(candidate)), city)
}

// upstream keeps provider errors that already carry a kind and classifies
// everything else as unavailable.
func upstream(err error, format string, args ...interface{}) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(KindUpstreamUnavailable, err, format, args...)
}
