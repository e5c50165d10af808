package widget

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"weather-widget/internal/weather"
)

var places = map[string]weather.PlaceIdentity{
	"London": {Name: "London", Country: "GB", Latitude: 51.5, Longitude: -0.12},
	"Paris":  {Name: "Paris", Country: "FR", Latitude: 48.85, Longitude: 2.35},
}

type fakeResolver struct{}

func (fakeResolver) ResolveByName(ctx context.Context, name string) (weather.PlaceIdentity, error) {
	if _, err := weather.ValidateQuery(name); err != nil {
		return weather.PlaceIdentity{}, err
	}
	place, ok := places[name]
	if !ok {
		return weather.PlaceIdentity{}, &weather.Error{Kind: weather.KindNotFound, Msg: name}
	}
	return place, nil
}

func (fakeResolver) ResolveByCoordinates(ctx context.Context, lat, lon float64) (weather.PlaceIdentity, error) {
	return weather.PlaceIdentity{Name: "Here", Latitude: lat, Longitude: lon}, nil
}

// fakeForecasts serves two days per place. A gate registered for a latitude
// holds that fetch until the gate is closed.
type fakeForecasts struct {
	mu    sync.Mutex
	calls int
	err   error
	gates map[float64]chan struct{}
}

func (f *fakeForecasts) Forecast(ctx context.Context, lat, lon float64) ([]weather.RawForecastSample, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	gate := f.gates[lat]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return []weather.RawForecastSample{
		{Timestamp: "2024-01-01 00:00:00", TemperatureK: 280.15 + lat/1000, HumidityPercent: 80, WindSpeedMS: 3.5, ConditionMain: "Clouds", IconCode: "04d"},
		{Timestamp: "2024-01-01 03:00:00", TemperatureK: 290},
		{Timestamp: "2024-01-02 00:00:00", TemperatureK: 275.15, ConditionMain: "Rain", ConditionDescription: "light rain"},
	}, nil
}

func (f *fakeForecasts) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeForecasts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recorder struct {
	mu     sync.Mutex
	views  []View
	errors []error
}

func (r *recorder) Render(view View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
}

func (r *recorder) RenderError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

// seed commits r as if an earlier lookup had produced it.
func seed(t *testing.T, w *Widget, r Result) {
	t.Helper()
	if err := w.store.Commit(w.store.Begin(), r); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func newTestWidget(forecasts *fakeForecasts, rec *recorder) *Widget {
	return New(Config{
		Resolver:  fakeResolver{},
		Forecasts: forecasts,
		Renderers: []Renderer{rec},
		Now:       func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) },
	})
}

func TestSearchRendersForecast(t *testing.T) {
	forecasts := &fakeForecasts{}
	rec := &recorder{}
	w := newTestWidget(forecasts, rec)

	view, err := w.Search(context.Background(), "London")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if view.Place.Name != "London" {
		t.Errorf("place = %q", view.Place.Name)
	}
	if view.Current == nil || view.Current.Date != "2024-01-01" {
		t.Fatalf("unexpected current card: %+v", view.Current)
	}
	if len(view.Forecast) != 1 || view.Forecast[0].Date != "2024-01-02" {
		t.Fatalf("unexpected forecast cards: %+v", view.Forecast)
	}
	if len(rec.views) != 1 {
		t.Fatalf("rendered %d times, want 1", len(rec.views))
	}

	if _, ok := w.Current(); !ok {
		t.Fatal("result should be held after a successful search")
	}
}

func TestUnitToggleReRendersWithoutFetching(t *testing.T) {
	forecasts := &fakeForecasts{}
	rec := &recorder{}
	w := newTestWidget(forecasts, rec)

	if _, err := w.Search(context.Background(), "Paris"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	celsius := rec.views[0].Current.Temperature

	view, ok, err := w.ToggleUnit()
	if err != nil || !ok {
		t.Fatalf("ToggleUnit = %v, %v", ok, err)
	}
	if forecasts.callCount() != 1 {
		t.Fatalf("toggle fetched again: %d calls", forecasts.callCount())
	}
	if view.Unit != "fahrenheit" || view.Symbol != "°F" {
		t.Errorf("unexpected unit in view: %s %s", view.Unit, view.Symbol)
	}
	want := celsius*9/5 + 32
	if got := view.Current.Temperature; got < want-0.015 || got > want+0.015 {
		t.Errorf("fahrenheit = %v, want about %v", got, want)
	}
	if len(rec.views) != 2 {
		t.Errorf("rendered %d times, want 2", len(rec.views))
	}

	view, _, _ = w.ToggleUnit()
	if view.Current.Temperature != celsius {
		t.Errorf("toggling back gave %v, want %v", view.Current.Temperature, celsius)
	}
}

func TestUnitToggleDuringFetchAppliesOnCompletion(t *testing.T) {
	gate := make(chan struct{})
	forecasts := &fakeForecasts{gates: map[float64]chan struct{}{places["London"].Latitude: gate}}
	rec := &recorder{}
	w := newTestWidget(forecasts, rec)

	type outcome struct {
		view View
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		view, err := w.Search(context.Background(), "London")
		done <- outcome{view, err}
	}()
	for forecasts.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	if _, ok, err := w.ToggleUnit(); ok || err != nil {
		t.Fatalf("ToggleUnit = %v, %v; nothing is held yet", ok, err)
	}
	close(gate)

	res := <-done
	if res.err != nil {
		t.Fatalf("Search failed: %v", res.err)
	}
	if res.view.Unit != "fahrenheit" || res.view.Current.TemperatureText != "44.69°F" {
		t.Fatalf("view = %s %s, want the unit chosen during the fetch", res.view.Unit, res.view.Current.TemperatureText)
	}
	if len(rec.views) != 1 || rec.views[0].Unit != "fahrenheit" {
		t.Fatalf("rendered %d views, want one in fahrenheit", len(rec.views))
	}
	if forecasts.callCount() != 1 {
		t.Fatalf("forecast fetched %d times, want 1", forecasts.callCount())
	}
	if current, _ := w.Current(); current.Unit != "fahrenheit" {
		t.Fatalf("held view unit = %s", current.Unit)
	}
}

func TestSetUnitWithoutResult(t *testing.T) {
	rec := &recorder{}
	w := newTestWidget(&fakeForecasts{}, rec)

	_, ok, err := w.SetUnit(weather.Fahrenheit)
	if err != nil || ok {
		t.Fatalf("SetUnit = %v, %v", ok, err)
	}
	if w.Unit() != weather.Fahrenheit {
		t.Errorf("unit = %s", w.Unit())
	}
	if len(rec.views) != 0 {
		t.Errorf("nothing should render without a result")
	}
}

func TestFailedFetchKeepsPreviousResult(t *testing.T) {
	forecasts := &fakeForecasts{}
	rec := &recorder{}
	w := newTestWidget(forecasts, rec)

	if _, err := w.Search(context.Background(), "London"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	forecasts.setErr(errors.New("connection refused"))
	_, err := w.Search(context.Background(), "Paris")
	if !errors.Is(err, weather.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want upstream unavailable", err)
	}
	if len(rec.errors) != 1 {
		t.Fatalf("rendered %d errors, want 1", len(rec.errors))
	}

	view, ok := w.Current()
	if !ok || view.Place.Name != "London" {
		t.Fatalf("previous result lost: %+v", view.Place)
	}
}

func TestInvalidSearchKeepsPreviousResult(t *testing.T) {
	forecasts := &fakeForecasts{}
	rec := &recorder{}
	w := newTestWidget(forecasts, rec)

	if _, err := w.Search(context.Background(), "London"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	for _, query := range []string{"", "x", "Atlantis"} {
		if _, err := w.Search(context.Background(), query); err == nil {
			t.Errorf("Search(%q) should fail", query)
		}
	}
	if forecasts.callCount() != 1 {
		t.Errorf("failed searches fetched forecasts: %d calls", forecasts.callCount())
	}
	if view, _ := w.Current(); view.Place.Name != "London" {
		t.Errorf("previous result lost: %+v", view.Place)
	}
}

func TestInvalidSamplesKeepPreviousResult(t *testing.T) {
	rec := &recorder{}
	w := New(Config{
		Resolver: fakeResolver{},
		Forecasts: forecastFunc(func(ctx context.Context, lat, lon float64) ([]weather.RawForecastSample, error) {
			return []weather.RawForecastSample{{Timestamp: "yesterday"}}, nil
		}),
		Renderers: []Renderer{rec},
	})
	seed(t, w, Result{Place: places["London"]})

	if _, err := w.Search(context.Background(), "Paris"); !errors.Is(err, weather.ErrInvalidSample) {
		t.Fatalf("err = %v, want invalid sample", err)
	}
	if view, _ := w.Current(); view.Place.Name != "London" {
		t.Errorf("previous result lost: %+v", view.Place)
	}
}

type forecastFunc func(ctx context.Context, lat, lon float64) ([]weather.RawForecastSample, error)

func (f forecastFunc) Forecast(ctx context.Context, lat, lon float64) ([]weather.RawForecastSample, error) {
	return f(ctx, lat, lon)
}

func TestLateResultIsDropped(t *testing.T) {
	gate := make(chan struct{})
	forecasts := &fakeForecasts{gates: map[float64]chan struct{}{places["London"].Latitude: gate}}
	rec := &recorder{}
	w := newTestWidget(forecasts, rec)

	slow := make(chan error, 1)
	go func() {
		_, err := w.Search(context.Background(), "London")
		slow <- err
	}()

	// Wait until the London fetch is in flight before starting Paris.
	for forecasts.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	if _, err := w.Search(context.Background(), "Paris"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	close(gate)

	if err := <-slow; !errors.Is(err, ErrStale) {
		t.Fatalf("late search err = %v, want ErrStale", err)
	}

	view, _ := w.Current()
	if view.Place.Name != "Paris" {
		t.Fatalf("held result = %s, want Paris", view.Place.Name)
	}
	if len(rec.views) != 1 || rec.views[0].Place.Name != "Paris" {
		t.Fatalf("only the newest result should render, got %d views", len(rec.views))
	}
}

func TestLateErrorIsDropped(t *testing.T) {
	gate := make(chan struct{})
	forecasts := &fakeForecasts{gates: map[float64]chan struct{}{places["London"].Latitude: gate}}
	rec := &recorder{}
	w := newTestWidget(forecasts, rec)

	seed(t, w, Result{Place: places["Paris"]})
	forecasts.setErr(errors.New("timeout"))

	slow := make(chan error, 1)
	go func() {
		_, err := w.Search(context.Background(), "London")
		slow <- err
	}()
	for forecasts.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	// A newer action supersedes the pending one.
	w.store.Begin()
	close(gate)

	err := <-slow
	if !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
	if len(rec.errors) != 0 {
		t.Fatalf("stale error was rendered: %v", rec.errors)
	}
}

func TestUseLocation(t *testing.T) {
	rec := &recorder{}
	w := newTestWidget(&fakeForecasts{}, rec)

	view, err := w.UseLocation(context.Background(), StaticPosition{Latitude: 10, Longitude: 20, Known: true})
	if err != nil {
		t.Fatalf("UseLocation failed: %v", err)
	}
	if view.Place.Latitude != 10 || view.Place.Longitude != 20 {
		t.Errorf("unexpected place: %+v", view.Place)
	}
}

func TestUseLocationFailures(t *testing.T) {
	tests := []struct {
		name string
		geo  Geolocator
		want error
	}{
		{"unknown", StaticPosition{}, weather.ErrPositionUnavailable},
		{"nil", nil, weather.ErrPositionUnavailable},
		{"denied", DeniedPosition{Kind: weather.KindPermissionDenied}, weather.ErrPermissionDenied},
		{"browser timeout", DeniedPosition{Kind: weather.KindTimeout}, weather.ErrTimeout},
		{"plain error", GeolocatorFunc(func(ctx context.Context) (float64, float64, error) {
			return 0, 0, fmt.Errorf("gps off")
		}), weather.ErrPositionUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forecasts := &fakeForecasts{}
			rec := &recorder{}
			w := newTestWidget(forecasts, rec)

			_, err := w.UseLocation(context.Background(), tt.geo)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if forecasts.callCount() != 0 {
				t.Errorf("forecast fetched after geolocation failure")
			}
			if len(rec.errors) != 1 {
				t.Errorf("rendered %d errors, want 1", len(rec.errors))
			}
		})
	}
}

func TestUseLocationTimeout(t *testing.T) {
	w := New(Config{
		Resolver:           fakeResolver{},
		Forecasts:          &fakeForecasts{},
		GeolocationTimeout: 20 * time.Millisecond,
	})

	hang := GeolocatorFunc(func(ctx context.Context) (float64, float64, error) {
		<-ctx.Done()
		return 0, 0, ctx.Err()
	})

	_, err := w.UseLocation(context.Background(), hang)
	if !errors.Is(err, weather.ErrTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if got := weather.Message(err); got != "Locating your position timed out" {
		t.Errorf("message = %q", got)
	}
}

type memoryPrefs struct {
	values map[string]string
	err    error
}

func (m *memoryPrefs) GetPreference(key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryPrefs) SetPreference(key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func TestUnitsPersistence(t *testing.T) {
	prefs := &memoryPrefs{values: map[string]string{}}

	units := NewUnits(weather.Celsius, prefs)
	if err := units.Set(weather.Fahrenheit); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if prefs.values[unitPreferenceKey] != "fahrenheit" {
		t.Fatalf("stored value = %q", prefs.values[unitPreferenceKey])
	}

	reloaded := NewUnits(weather.Celsius, prefs)
	if reloaded.Get() != weather.Fahrenheit {
		t.Fatalf("reloaded unit = %s, want fahrenheit", reloaded.Get())
	}
}

func TestUnitsIgnoresBadStoredValue(t *testing.T) {
	prefs := &memoryPrefs{values: map[string]string{unitPreferenceKey: "rankine"}}
	if got := NewUnits(weather.Fahrenheit, prefs).Get(); got != weather.Fahrenheit {
		t.Fatalf("unit = %s, want the default", got)
	}
}

func TestSetUnitPersistFailureStillApplies(t *testing.T) {
	prefs := &memoryPrefs{values: map[string]string{}, err: errors.New("disk full")}
	rec := &recorder{}
	w := New(Config{
		Resolver:  fakeResolver{},
		Forecasts: &fakeForecasts{},
		Units:     NewUnits(weather.Celsius, prefs),
		Renderers: []Renderer{rec},
	})
	if _, err := w.Search(context.Background(), "London"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	view, ok, err := w.SetUnit(weather.Fahrenheit)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want persistence warning", err)
	}
	if !ok || view.Unit != "fahrenheit" || w.Unit() != weather.Fahrenheit {
		t.Fatalf("unit not applied: %+v", view)
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	w := New(Config{
		Resolver:  fakeResolver{},
		Forecasts: &fakeForecasts{},
		Renderers: []Renderer{TextRenderer{Out: &buf}},
	})

	if _, err := w.Search(context.Background(), "London"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"London (Monday, Jan 1)", "Temperature: 7.05°C", "Humidity:    80%", "Tuesday, Jan 2", "2.00°C"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	w.Search(context.Background(), "Atlantis")
	if !strings.HasPrefix(buf.String(), "Error: No location found") {
		t.Errorf("unexpected error output %q", buf.String())
	}
}

func TestSearchCoordinates(t *testing.T) {
	rec := &recorder{}
	w := newTestWidget(&fakeForecasts{}, rec)

	view, err := w.SearchCoordinates(context.Background(), 48.85, 2.35)
	if err != nil {
		t.Fatalf("SearchCoordinates failed: %v", err)
	}
	if view.Place.Name != "Here" || view.Place.Latitude != 48.85 {
		t.Errorf("unexpected place: %+v", view.Place)
	}
}
