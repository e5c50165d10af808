package weather

import (
	"errors"
	"math"
	"testing"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		kelvin float64
		unit   Unit
		want   float64
	}{
		{280.15, Celsius, 7.00},
		{280.15, Fahrenheit, 44.60},
		{273.15, Celsius, 0},
		{273.15, Fahrenheit, 32},
		{0, Celsius, -273.15},
		{300.123, Celsius, 26.97},
	}

	for _, tt := range tests {
		if got := Convert(tt.kelvin, tt.unit); got != tt.want {
			t.Errorf("Convert(%v, %s) = %v, want %v", tt.kelvin, tt.unit, got, tt.want)
		}
	}
}

func TestFahrenheitFollowsCelsius(t *testing.T) {
	for k := 200.0; k < 330; k += 0.37 {
		c := Convert(k, Celsius)
		f := Convert(k, Fahrenheit)
		if diff := math.Abs(f - (c*9/5 + 32)); diff > 0.015 {
			t.Fatalf("at %vK: F=%v C=%v differ by %v", k, f, c, diff)
		}
	}
}

func TestFormatTemperature(t *testing.T) {
	if got := FormatTemperature(280.15, Celsius); got != "7.00°C" {
		t.Errorf("got %q", got)
	}
	if got := FormatTemperature(280.15, Fahrenheit); got != "44.60°F" {
		t.Errorf("got %q", got)
	}
}

func TestParseUnit(t *testing.T) {
	tests := map[string]Unit{
		"":             Celsius,
		"C":            Celsius,
		"celsius":      Celsius,
		"metric":       Celsius,
		"f":            Fahrenheit,
		" Fahrenheit ": Fahrenheit,
		"imperial":     Fahrenheit,
	}
	for in, want := range tests {
		got, err := ParseUnit(in)
		if err != nil {
			t.Errorf("ParseUnit(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseUnit(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseUnit("kelvin"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseUnit(kelvin) err = %v, want invalid input", err)
	}
}

func TestUnitToggle(t *testing.T) {
	if Celsius.Toggle() != Fahrenheit || Fahrenheit.Toggle() != Celsius {
		t.Fatal("toggle should swap units")
	}
}
