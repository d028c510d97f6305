package sim

import "time"

// Bucket floors t to the start of its interval-sized window in UTC.
// An account commits at most one evaluation outcome per bucket: a tick
// whose bucket equals the stored marker is skipped, and every evaluated
// tick (HOLD and INSUFFICIENT_DATA included) advances the marker.
func Bucket(t time.Time, interval time.Duration) time.Time {
	return t.UTC().Truncate(interval)
}

// Throttled reports whether the account's stored marker already covers
// the given bucket.
func Throttled(marker, bucket time.Time) bool {
	return !marker.IsZero() && marker.Equal(bucket)
}
