package widget

import (
	"fmt"
	"log"
	"sync"

	"weather-widget/internal/weather"
)

const unitPreferenceKey = "temperature_unit"

// PreferenceStore is an optional key/value store for user settings.
type PreferenceStore interface {
	GetPreference(key string) (string, bool, error)
	SetPreference(key, value string) error
}

// Units holds the display unit, optionally persisted.
type Units struct {
	mu    sync.RWMutex
	unit  weather.Unit
	prefs PreferenceStore
}

// NewUnits starts from def, or from the persisted value when prefs has one.
func NewUnits(def weather.Unit, prefs PreferenceStore) *Units {
	u := &Units{unit: def, prefs: prefs}
	if prefs == nil {
		return u
	}

	value, ok, err := prefs.GetPreference(unitPreferenceKey)
	if err != nil {
		log.Printf("Warning: failed to load unit preference: %v", err)
		return u
	}
	if !ok {
		return u
	}
	unit, err := weather.ParseUnit(value)
	if err != nil {
		log.Printf("Warning: ignoring stored unit preference %q", value)
		return u
	}
	u.unit = unit
	return u
}

func (u *Units) Get() weather.Unit {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.unit
}

// Set applies unit in memory first; a persistence failure is returned but
// does not undo the change.
func (u *Units) Set(unit weather.Unit) error {
	u.mu.Lock()
	u.unit = unit
	u.mu.Unlock()

	if u.prefs == nil {
		return nil
	}
	if err := u.prefs.SetPreference(unitPreferenceKey, unit.String()); err != nil {
		return fmt.Errorf("unit applied but not persisted: %w", err)
	}
	return nil
}
