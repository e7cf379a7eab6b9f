package analytics

import (
	"testing"
	"time"

	"BuzzRadar/internal/domain/models"
)

func TestBucketForAlignsToEpoch(t *testing.T) {
	ts := time.Date(2026, 3, 1, 14, 37, 22, 0, time.UTC)
	iv, err := BucketFor(ts, time.Hour)
	if err != nil {
		t.Fatalf("BucketFor: %v", err)
	}
	wantStart := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	if !iv.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", iv.Start, wantStart)
	}
	if !iv.End.Equal(wantStart.Add(time.Hour)) {
		t.Fatalf("end = %v, want %v", iv.End, wantStart.Add(time.Hour))
	}
}

func TestBucketForBoundaryBelongsToStartingInterval(t *testing.T) {
	boundary := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	iv, err := BucketFor(boundary, time.Hour)
	if err != nil {
		t.Fatalf("BucketFor: %v", err)
	}
	if !iv.Start.Equal(boundary) {
		t.Fatalf("boundary timestamp should start its own interval, got start %v", iv.Start)
	}
	if !iv.Contains(boundary) {
		t.Fatal("interval should contain its own start")
	}
	if iv.Contains(iv.End) {
		t.Fatal("interval must not contain its end (half-open)")
	}
}

func TestBucketForNormalizesZone(t *testing.T) {
	zone := time.FixedZone("EST", -5*3600)
	local := time.Date(2026, 3, 1, 9, 30, 0, 0, zone)
	iv, err := BucketFor(local, time.Hour)
	if err != nil {
		t.Fatalf("BucketFor: %v", err)
	}
	wantStart := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	if !iv.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", iv.Start, wantStart)
	}
}

func TestBucketForRejectsBadInput(t *testing.T) {
	if _, err := BucketFor(time.Time{}, time.Hour); err == nil {
		t.Fatal("expected error for zero timestamp")
	}
	if _, err := BucketFor(time.Now(), 0); err == nil {
		t.Fatal("expected error for zero width")
	}
	if _, err := BucketFor(time.Now(), -time.Hour); err == nil {
		t.Fatal("expected error for negative width")
	}
}

func TestElapsedBucketsChronological(t *testing.T) {
	// Watermark at 10:00, now 13:30: intervals 10-11, 11-12, 12-13 are due;
	// 13-14 has not elapsed.
	from := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)

	got, err := ElapsedBuckets(from, now, time.Hour, 0)
	if err != nil {
		t.Fatalf("ElapsedBuckets: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d intervals, want 3", len(got))
	}
	for i, iv := range got {
		wantStart := from.Add(time.Duration(i) * time.Hour)
		if !iv.Start.Equal(wantStart) {
			t.Fatalf("interval %d start = %v, want %v", i, iv.Start, wantStart)
		}
		if iv.End.After(now) {
			t.Fatalf("interval %d ends after now", i)
		}
	}
}

func TestElapsedBucketsZeroWatermark(t *testing.T) {
	now := time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)
	got, err := ElapsedBuckets(time.Time{}, now, time.Hour, 0)
	if err != nil {
		t.Fatalf("ElapsedBuckets: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d intervals, want 1", len(got))
	}
	want := models.Interval{
		Start: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
	}
	if !got[0].Start.Equal(want.Start) || !got[0].End.Equal(want.End) {
		t.Fatalf("got %v, want %v", got[0], want)
	}
}

func TestElapsedBucketsLimit(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	got, err := ElapsedBuckets(from, now, time.Hour, 5)
	if err != nil {
		t.Fatalf("ElapsedBuckets: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d intervals, want 5", len(got))
	}
	// Oldest first: catch-up resumes from the watermark.
	if !got[0].Start.Equal(from) {
		t.Fatalf("first interval start = %v, want %v", got[0].Start, from)
	}
}

func TestElapsedBucketsNoneDue(t *testing.T) {
	from := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)
	got, err := ElapsedBuckets(from, now, time.Hour, 0)
	if err != nil {
		t.Fatalf("ElapsedBuckets: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d intervals, want 0", len(got))
	}
}
