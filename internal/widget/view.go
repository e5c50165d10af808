package widget

import (
	"fmt"
	"strings"
	"time"

	"weather-widget/internal/weather"
)

const iconURLFormat = "https://openweathermap.org/img/wn/%s@2x.png"

// View is the render-ready form of a Result in one unit. The first day is
// the current-conditions card, the rest are forecast cards.
type View struct {
	Place     weather.PlaceIdentity `json:"place"`
	Unit      string                `json:"unit"`
	Symbol    string                `json:"symbol"`
	Current   *Card                 `json:"current"`
	Forecast  []Card                `json:"forecast"`
	FetchedAt time.Time             `json:"fetched_at"`
}

type Card struct {
	Date            string  `json:"date"`
	Label           string  `json:"label"`
	Temperature     float64 `json:"temperature"`
	FeelsLike       float64 `json:"feels_like"`
	TemperatureText string  `json:"temperature_text"`
	WindSpeedMS     float64 `json:"wind_speed_ms"`
	HumidityPercent int     `json:"humidity_percent"`
	PressureHPa     float64 `json:"pressure_hpa"`
	Condition       string  `json:"condition"`
	Description     string  `json:"description"`
	Summary         string  `json:"summary"`
	IconURL         string  `json:"icon_url,omitempty"`
}

// BuildView converts every temperature in r to unit.
func BuildView(r Result, unit weather.Unit) View {
	view := View{
		Place:     r.Place,
		Unit:      unit.String(),
		Symbol:    unit.Symbol(),
		Forecast:  make([]Card, 0, len(r.Days)),
		FetchedAt: r.FetchedAt,
	}

	for i, day := range r.Days {
		card := buildCard(day, unit)
		if i == 0 {
			view.Current = &card
			continue
		}
		view.Forecast = append(view.Forecast, card)
	}
	return view
}

func buildCard(day weather.NormalizedDay, unit weather.Unit) Card {
	s := day.Sample
	card := Card{
		Date:            day.DateString(),
		Label:           day.Date.Format("Monday, Jan 2"),
		Temperature:     weather.Convert(s.TemperatureK, unit),
		FeelsLike:       weather.Convert(s.FeelsLikeK, unit),
		TemperatureText: weather.FormatTemperature(s.TemperatureK, unit),
		WindSpeedMS:     s.WindSpeedMS,
		HumidityPercent: s.HumidityPercent,
		PressureHPa:     s.PressureHPa,
		Condition:       s.ConditionMain,
		Description:     s.ConditionDescription,
		Summary:         summarize(s),
	}
	if s.IconCode != "" {
		card.IconURL = fmt.Sprintf(iconURLFormat, s.IconCode)
	}
	return card
}

func summarize(s weather.RawForecastSample) string {
	condition := strings.ToLower(s.ConditionMain)
	description := strings.ToLower(s.ConditionDescription)

	switch {
	case strings.Contains(condition, "thunder"):
		return "storm"
	case strings.Contains(description, "heavy") && (condition == "rain" || condition == "snow"):
		return "heavy " + condition
	case condition == "rain" || condition == "drizzle":
		return "rain"
	case condition == "snow":
		return "snow"
	case condition == "fog" || condition == "mist" || condition == "haze":
		return "fog"
	case strings.Contains(description, "overcast"):
		return "overcast"
	case condition == "clouds":
		return "cloudy"
	case condition == "clear":
		return "clear sky"
	}
	return description
}
