package utils

import (
	"errors"
	"time"
)

// scheduleLayouts covers RFC3339 plus the value an HTML datetime-local
// input submits.
var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseScheduleTime parses a schedule timestamp and normalizes it to UTC.
// Layouts without a zone are interpreted as local time, matching what a
// datetime-local form field means to the person filling it in.
func ParseScheduleTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty schedule time")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range scheduleLayouts[1:] {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unparsable schedule time: " + raw)
}
