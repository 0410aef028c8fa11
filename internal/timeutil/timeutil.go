// Package timeutil provides time formatting utilities for FFmpeg commands.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
)

// FormatSeconds converts seconds to HH:MM:SS.ffffff for FFmpeg time options.
//
// Values are rounded to the nearest microsecond before being split, so a
// frame boundary like 154/30 never renders as "60.000000" seconds.
//
// Example:
//
//	FormatSeconds(0)          // "00:00:00.000000"
//	FormatSeconds(90)         // "00:01:30.000000"
//	FormatSeconds(154.0/30)   // "00:00:05.133333"
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	micros := int64(math.Round(seconds * 1e6))
	hours := micros / 3_600_000_000
	micros -= hours * 3_600_000_000
	minutes := micros / 60_000_000
	micros -= minutes * 60_000_000
	return fmt.Sprintf("%02d:%02d:%02d.%06d", hours, minutes, micros/1_000_000, micros%1_000_000)
}

// FormatDecimal renders seconds as a plain decimal with microsecond precision.
//
//	FormatDecimal(4.8125) // "4.812500"
func FormatDecimal(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 6, 64)
}
