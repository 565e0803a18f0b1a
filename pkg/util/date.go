package util

import (
	"strconv"
	"time"
)

// Hours converts a fractional hour count into a duration.
func Hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// FormatHours renders a window length the way insight messages show it ("72", "1.5").
func FormatHours(d time.Duration) string {
	return strconv.FormatFloat(d.Hours(), 'f', -1, 64)
}
