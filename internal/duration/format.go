// Package duration formats elapsed session time for display.
package duration

import "fmt"

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Format renders elapsed seconds as MM:SS under an hour, HH:MM:SS under a day,
// and "Xd HH:MM" from one day on. Negative values render as zero.
func Format(elapsedSeconds int64) string {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	days := elapsedSeconds / secondsPerDay
	hours := (elapsedSeconds % secondsPerDay) / secondsPerHour
	minutes := (elapsedSeconds % secondsPerHour) / secondsPerMinute
	seconds := elapsedSeconds % secondsPerMinute

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %02d:%02d", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	default:
		return fmt.Sprintf("%02d:%02d", minutes, seconds)
	}
}
