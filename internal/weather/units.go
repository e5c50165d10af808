package weather

import (
	"fmt"
	"math"
	"strings"
)

type Unit int

const (
	Celsius Unit = iota
	Fahrenheit
)

const kelvinOffset = 273.15

func (u Unit) String() string {
	if u == Fahrenheit {
		return "fahrenheit"
	}
	return "celsius"
}

// Symbol is the display suffix for a converted temperature.
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// Toggle returns the other unit.
func (u Unit) Toggle() Unit {
	if u == Fahrenheit {
		return Celsius
	}
	return Fahrenheit
}

// ParseUnit accepts the unit names as well as the provider style
// "metric"/"imperial" values used in configuration.
func ParseUnit(value string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "c", "celsius", "metric":
		return Celsius, nil
	case "f", "fahrenheit", "imperial":
		return Fahrenheit, nil
	}
	return Celsius, newError(KindInvalidInput, nil, "unknown temperature unit %q", value)
}

// Convert turns a Kelvin reading into unit, rounded to 2 decimals.
func Convert(kelvin float64, unit Unit) float64 {
	celsius := kelvin - kelvinOffset
	if unit == Fahrenheit {
		return round2(celsius*9/5 + 32)
	}
	return round2(celsius)
}

// FormatTemperature renders a Kelvin reading as e.g. "7.00°C".
func FormatTemperature(kelvin float64, unit Unit) string {
	return fmt.Sprintf("%.2f%s", Convert(kelvin, unit), unit.Symbol())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
