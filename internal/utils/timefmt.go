package utils

import (
	"time"
)

// FormatDuration rounds a duration for display: milliseconds below one
// second, tenths of a second below a minute, whole seconds otherwise.
func FormatDuration(value time.Duration) string {
	if value <= 0 {
		return "0s"
	}
	switch {
	case value < time.Second:
		return value.Round(time.Millisecond).String()
	case value < time.Minute:
		return value.Round(100 * time.Millisecond).String()
	default:
		return value.Round(time.Second).String()
	}
}
