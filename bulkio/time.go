package bulkio

import (
	"math"
	"time"
)

// Time is a sample timestamp split into whole and fractional seconds.
type Time struct {
	WholeSecs int64   `json:"twsec"`
	FracSecs  float64 `json:"tfsec"`
}

// Now returns the current wall-clock time.
func Now() Time {
	return FromTime(time.Now())
}

// FromTime converts a time.Time.
func FromTime(t time.Time) Time {
	return Time{WholeSecs: t.Unix(), FracSecs: float64(t.Nanosecond()) / 1e9}
}

// FromSeconds splits a float timestamp.
func FromSeconds(secs float64) Time {
	whole, frac := math.Modf(secs)
	if frac < 0 {
		whole--
		frac++
	}
	return Time{WholeSecs: int64(whole), FracSecs: frac}
}

// Seconds returns the timestamp as a float.
func (t Time) Seconds() float64 {
	return float64(t.WholeSecs) + t.FracSecs
}

// IsZero reports whether t is the zero timestamp.
func (t Time) IsZero() bool {
	return t.WholeSecs == 0 && t.FracSecs == 0
}
