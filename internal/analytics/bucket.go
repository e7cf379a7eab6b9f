package analytics

import (
	"fmt"
	"time"

	"BuzzRadar/internal/domain/models"
)

// BucketFor maps a timestamp to its half-open interval [start, start+width)
// aligned to the UTC epoch. Inputs in any zone are normalized to UTC first;
// a timestamp exactly on a boundary belongs to the interval it starts.
func BucketFor(ts time.Time, width time.Duration) (models.Interval, error) {
	if width <= 0 {
		return models.Interval{}, fmt.Errorf("bucket width must be positive, got %v", width)
	}
	if ts.IsZero() {
		return models.Interval{}, fmt.Errorf("zero timestamp")
	}
	utc := ts.UTC()
	start := utc.Truncate(width)
	return models.Interval{Start: start, End: start.Add(width)}, nil
}

// PrevBucket returns the interval immediately preceding iv.
func PrevBucket(iv models.Interval) models.Interval {
	width := iv.End.Sub(iv.Start)
	return models.Interval{Start: iv.Start.Add(-width), End: iv.Start}
}

// NextBucket returns the interval immediately following iv.
func NextBucket(iv models.Interval) models.Interval {
	width := iv.End.Sub(iv.Start)
	return models.Interval{Start: iv.End, End: iv.End.Add(width)}
}

// ElapsedBuckets returns, in chronological order, every interval of the given
// width whose end is at or before now, starting with the interval containing
// from. A zero from yields only the most recent fully-elapsed interval,
// bounded by limit either way.
func ElapsedBuckets(from, now time.Time, width time.Duration, limit int) ([]models.Interval, error) {
	if width <= 0 {
		return nil, fmt.Errorf("bucket width must be positive, got %v", width)
	}
	last, err := BucketFor(now.UTC(), width)
	if err != nil {
		return nil, err
	}
	// The interval containing now has not elapsed yet.
	last = PrevBucket(last)
	if last.End.After(now.UTC()) {
		return nil, nil
	}

	var first models.Interval
	if from.IsZero() {
		first = last
	} else {
		first, err = BucketFor(from, width)
		if err != nil {
			return nil, err
		}
	}
	if first.Start.After(last.Start) {
		return nil, nil
	}

	var out []models.Interval
	for iv := first; !iv.Start.After(last.Start); iv = NextBucket(iv) {
		out = append(out, iv)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
