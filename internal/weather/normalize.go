package weather

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var sampleLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Normalize keeps the first sample of every calendar date, in input order.
// One unparsable timestamp rejects the whole batch.
func Normalize(samples []RawForecastSample) ([]NormalizedDay, error) {
	days := make([]NormalizedDay, 0, len(samples))
	seen := make(map[string]struct{}, len(samples))

	for i, sample := range samples {
		date, err := SampleDate(sample.Timestamp)
		if err != nil {
			return nil, newError(KindInvalidSample, err, "sample %d has timestamp %q", i, sample.Timestamp)
		}

		key := date.Format(dateLayout)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, NormalizedDay{Date: date, Sample: sample})
	}

	return days, nil
}

// SampleDate returns the wall-clock calendar date of a sample timestamp.
// No timezone conversion is applied.
func SampleDate(timestamp string) (time.Time, error) {
	value := strings.TrimSpace(timestamp)
	var lastErr error
	for _, layout := range sampleLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
