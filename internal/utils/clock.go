package utils

import "time"

// Clock is the single source of "now" shared by every expiry check
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// TimestampPrecision is the finest resolution every store keeps.
// MongoDB dates hold milliseconds, PostgreSQL timestamps microseconds.
const TimestampPrecision = time.Millisecond

// StorageTime returns t in UTC truncated to TimestampPrecision, so a value
// read back from any store compares equal to the one that was written
func StorageTime(t time.Time) time.Time {
	return t.UTC().Truncate(TimestampPrecision)
}
