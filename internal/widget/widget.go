package widget

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"weather-widget/internal/weather"
)

const DefaultGeolocationTimeout = 10 * time.Second

// PlaceResolver is satisfied by *weather.Resolver.
type PlaceResolver interface {
	ResolveByName(ctx context.Context, name string) (weather.PlaceIdentity, error)
	ResolveByCoordinates(ctx context.Context, lat, lon float64) (weather.PlaceIdentity, error)
}

// Renderer receives every view the widget produces and every failure of the
// latest action.
type Renderer interface {
	Render(view View)
	RenderError(err error)
}

type Config struct {
	Resolver           PlaceResolver
	Forecasts          weather.ForecastSource
	Store              *Store
	Units              *Units
	Renderers          []Renderer
	GeolocationTimeout time.Duration
	Now                func() time.Time
}

// Widget runs one lookup chain per user action: resolve the place, fetch
// its forecast, normalize it, store it and render it.
type Widget struct {
	resolver   PlaceResolver
	forecasts  weather.ForecastSource
	store      *Store
	units      *Units
	renderers  []Renderer
	geoTimeout time.Duration
	now        func() time.Time

	// mu orders commit+render against unit changes.
	mu sync.Mutex
}

func New(cfg Config) *Widget {
	w := &Widget{
		resolver:   cfg.Resolver,
		forecasts:  cfg.Forecasts,
		store:      cfg.Store,
		units:      cfg.Units,
		renderers:  cfg.Renderers,
		geoTimeout: cfg.GeolocationTimeout,
		now:        cfg.Now,
	}
	if w.store == nil {
		w.store = NewStore()
	}
	if w.units == nil {
		w.units = NewUnits(weather.Celsius, nil)
	}
	if w.geoTimeout <= 0 {
		w.geoTimeout = DefaultGeolocationTimeout
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// AddRenderer registers r for subsequent renders.
func (w *Widget) AddRenderer(r Renderer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.renderers = append(w.renderers, r)
}

// Search looks up a city by name.
func (w *Widget) Search(ctx context.Context, city string) (View, error) {
	ticket := w.store.Begin()
	return w.run(ctx, ticket, func(ctx context.Context) (weather.PlaceIdentity, error) {
		return w.resolver.ResolveByName(ctx, city)
	})
}

// SearchCoordinates looks up the place at a known position.
func (w *Widget) SearchCoordinates(ctx context.Context, lat, lon float64) (View, error) {
	ticket := w.store.Begin()
	return w.run(ctx, ticket, func(ctx context.Context) (weather.PlaceIdentity, error) {
		return w.resolver.ResolveByCoordinates(ctx, lat, lon)
	})
}

// UseLocation asks geo for the user's position, bounded by the geolocation
// timeout, then looks up that position.
func (w *Widget) UseLocation(ctx context.Context, geo Geolocator) (View, error) {
	ticket := w.store.Begin()
	return w.run(ctx, ticket, func(ctx context.Context) (weather.PlaceIdentity, error) {
		lat, lon, err := w.locate(ctx, geo)
		if err != nil {
			return weather.PlaceIdentity{}, err
		}
		return w.resolver.ResolveByCoordinates(ctx, lat, lon)
	})
}

func (w *Widget) locate(ctx context.Context, geo Geolocator) (float64, float64, error) {
	if geo == nil {
		return 0, 0, weather.ErrPositionUnavailable
	}
	geoCtx, cancel := context.WithTimeout(ctx, w.geoTimeout)
	defer cancel()

	lat, lon, err := geo.Locate(geoCtx)
	if err == nil {
		return lat, lon, nil
	}
	if weather.KindOf(err) != "" {
		return 0, 0, err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return 0, 0, &weather.Error{Kind: weather.KindTimeout, Msg: "geolocation", Err: err}
	}
	return 0, 0, &weather.Error{Kind: weather.KindPositionUnavailable, Msg: "geolocation", Err: err}
}

func (w *Widget) run(ctx context.Context, ticket Ticket, resolve func(context.Context) (weather.PlaceIdentity, error)) (View, error) {
	place, err := resolve(ctx)
	if err != nil {
		return View{}, w.fail(ticket, err)
	}

	samples, err := w.forecasts.Forecast(ctx, place.Latitude, place.Longitude)
	if err != nil {
		if weather.KindOf(err) == "" {
			err = &weather.Error{Kind: weather.KindUpstreamUnavailable, Msg: "forecast", Err: err}
		}
		return View{}, w.fail(ticket, err)
	}

	days, err := weather.Normalize(samples)
	if err != nil {
		return View{}, w.fail(ticket, err)
	}

	result := Result{Place: place, Days: days, FetchedAt: w.now()}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.store.Commit(ticket, result); err != nil {
		log.Printf("Dropping forecast for %s: %v", place.Name, err)
		return View{}, err
	}

	view := BuildView(result, w.units.Get())
	for _, r := range w.renderers {
		r.Render(view)
	}
	log.Printf("Forecast for %s (%.4f,%.4f): %d days", place.Name, place.Latitude, place.Longitude, len(days))
	return view, nil
}

// fail reports err for the latest action only; the held result is never
// touched.
func (w *Widget) fail(ticket Ticket, err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.store.IsLatest(ticket) {
		log.Printf("Dropping error from superseded request: %v", err)
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	log.Printf("Lookup failed: %v", err)
	for _, r := range w.renderers {
		r.RenderError(err)
	}
	return err
}

func (w *Widget) Unit() weather.Unit {
	return w.units.Get()
}

// SetUnit changes the display unit and re-renders the held result, if any,
// without contacting any provider. The returned error is a persistence
// warning; the unit is applied regardless.
func (w *Widget) SetUnit(unit weather.Unit) (View, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applyUnit(unit)
}

// ToggleUnit flips between Celsius and Fahrenheit.
func (w *Widget) ToggleUnit() (View, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applyUnit(w.units.Get().Toggle())
}

func (w *Widget) applyUnit(unit weather.Unit) (View, bool, error) {
	persistErr := w.units.Set(unit)
	if persistErr != nil {
		log.Printf("Warning: %v", persistErr)
	}

	result, ok := w.store.Get()
	if !ok {
		return View{}, false, persistErr
	}
	view := BuildView(result, unit)
	for _, r := range w.renderers {
		r.Render(view)
	}
	return view, true, persistErr
}

// Current returns the held result in the current unit.
func (w *Widget) Current() (View, bool) {
	result, ok := w.store.Get()
	if !ok {
		return View{}, false
	}
	return BuildView(result, w.units.Get()), true
}
