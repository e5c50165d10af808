package widget

import (
	"fmt"
	"io"

	"weather-widget/internal/weather"
)

// TextRenderer prints views as plain text cards.
type TextRenderer struct {
	Out io.Writer
}

func (t TextRenderer) Render(view View) {
	if view.Current == nil {
		fmt.Fprintf(t.Out, "%s: no forecast data\n", view.Place.Name)
		return
	}

	c := view.Current
	fmt.Fprintf(t.Out, "%s (%s)\n", view.Place.Name, c.Label)
	fmt.Fprintf(t.Out, "  Temperature: %s\n", c.TemperatureText)
	fmt.Fprintf(t.Out, "  Wind:        %.2f M/S\n", c.WindSpeedMS)
	fmt.Fprintf(t.Out, "  Humidity:    %d%%\n", c.HumidityPercent)
	if c.Description != "" {
		fmt.Fprintf(t.Out, "  Conditions:  %s\n", c.Description)
	}

	if len(view.Forecast) == 0 {
		return
	}
	fmt.Fprintf(t.Out, "\nForecast:\n")
	for _, card := range view.Forecast {
		fmt.Fprintf(t.Out, "  %-22s %10s  wind %5.2f M/S  humidity %3d%%  %s\n",
			card.Label, card.TemperatureText, card.WindSpeedMS, card.HumidityPercent, card.Summary)
	}
}

func (t TextRenderer) RenderError(err error) {
	fmt.Fprintf(t.Out, "Error: %s\n", weather.Message(err))
}
