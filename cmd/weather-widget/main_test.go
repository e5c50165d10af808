package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"weather-widget/internal/weather"
	"weather-widget/internal/widget"
)

func TestRootCommandSilencesUsageAndErrors(t *testing.T) {
	root := newRootCmd()
	if !root.SilenceUsage || !root.SilenceErrors {
		t.Fatalf("usage and error printing should be left to main")
	}
	for _, name := range []string{"serve", "lookup", "locate"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestExitMessage(t *testing.T) {
	notFound := fmt.Errorf("lookup: %w", &weather.Error{Kind: weather.KindNotFound, Msg: "Nonexistentville"})
	if got := exitMessage(notFound); got != "" {
		t.Errorf("rendered lookup failure printed again: %q", got)
	}

	if got := exitMessage(errors.New("failed to load config: bad yaml")); got != "failed to load config: bad yaml" {
		t.Errorf("exitMessage = %q", got)
	}
}

func TestApplyUnitFlagMessage(t *testing.T) {
	w := widget.New(widget.Config{})

	err := applyUnitFlag(w, "kelvin")
	if err == nil {
		t.Fatal("expected an error for an unknown unit")
	}
	msg := exitMessage(err)
	if !strings.HasPrefix(msg, "invalid --unit: unknown temperature unit") {
		t.Errorf("message = %q", msg)
	}

	if err := applyUnitFlag(w, "f"); err != nil {
		t.Fatalf("applyUnitFlag failed: %v", err)
	}
	if w.Unit() != weather.Fahrenheit {
		t.Errorf("unit = %s", w.Unit())
	}
}
