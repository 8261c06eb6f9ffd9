package timer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xraph/reps"
)

// FormatClock renders whole seconds as MM:SS, or HH:MM:SS when
// includeHours is set or the value reaches an hour. Every component is
// zero-padded to two digits. Negative input renders as zero.
func FormatClock(seconds int, includeHours bool) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if includeHours || hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// ParseClock is the inverse of FormatClock: it accepts MM:SS or
// HH:MM:SS and returns total seconds. Malformed input returns an error
// wrapping reps.ErrValidation.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: clock %q must have 2 or 3 components", reps.ErrValidation, s)
	}

	values := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: clock %q has a bad component %q", reps.ErrValidation, s, part)
		}
		values[i] = n
	}

	if len(values) == 2 {
		return values[0]*60 + values[1], nil
	}
	return values[0]*3600 + values[1]*60 + values[2], nil
}
