package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTime accepts RFC3339 timestamps or unix epoch seconds.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", s)
}

// ParseTimeDefault parses like ParseTime but falls back to def on empty input.
func ParseTimeDefault(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def.UTC(), nil
	}
	return ParseTime(s)
}
