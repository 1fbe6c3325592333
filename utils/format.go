package utils

import (
	"fmt"
	"time"
)

// FormatDuration prints check timings, which are mostly sub-second
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000)
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1e6)
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

// FormatSize prints a byte count using binary units
func FormatSize(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	value, suffix := float64(n)/unit, "KB"
	if value >= unit {
		value, suffix = value/unit, "MB"
	}
	return fmt.Sprintf("%.1f%s", value, suffix)
}
