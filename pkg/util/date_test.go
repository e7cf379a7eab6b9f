package util

import (
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	got, err := ParseTime("2026-03-01T14:30:00Z")
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	want := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseTimeUnixSeconds(t *testing.T) {
	got, err := ParseTime("1700000000")
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if got.Unix() != 1700000000 {
		t.Fatalf("got %d, want 1700000000", got.Unix())
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", got.Location())
	}
}

func TestParseTimeOffsetNormalizedToUTC(t *testing.T) {
	got, err := ParseTime("2026-03-01T09:30:00-05:00")
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	want := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("got %v, want %v in UTC", got, want)
	}
}

func TestParseTimeInvalid(t *testing.T) {
	if _, err := ParseTime("not-a-time"); err == nil {
		t.Fatal("expected error for invalid input")
	}
	if _, err := ParseTime(""); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := ParseTimeDefault("", def)
	if err != nil {
		t.Fatalf("ParseTimeDefault: %v", err)
	}
	if !got.Equal(def) {
		t.Fatalf("got %v, want default %v", got, def)
	}
}
