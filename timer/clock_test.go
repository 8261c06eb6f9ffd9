package timer

import (
	"errors"
	"testing"

	"github.com/xraph/reps"
)

func TestFormatClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		seconds      int
		includeHours bool
		want         string
	}{
		{"zero", 0, false, "00:00"},
		{"under a minute", 45, false, "00:45"},
		{"minutes and seconds", 90, false, "01:30"},
		{"just under an hour", 3599, false, "59:59"},
		{"hour rolls over automatically", 3600, false, "01:00:00"},
		{"hours mixed", 3725, false, "01:02:05"},
		{"forced hours", 90, true, "00:01:30"},
		{"negative clamps to zero", -5, false, "00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatClock(tt.seconds, tt.includeHours); got != tt.want {
				t.Errorf("FormatClock(%d, %v) = %q, want %q", tt.seconds, tt.includeHours, got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"minutes seconds", "01:30", 90, false},
		{"hours minutes seconds", "01:02:05", 3725, false},
		{"zero", "00:00", 0, false},
		{"unpadded components", "1:5", 65, false},
		{"surrounding space", " 02:00 ", 120, false},
		{"single component", "90", 0, true},
		{"four components", "1:2:3:4", 0, true},
		{"non-numeric", "aa:bb", 0, true},
		{"negative component", "-1:30", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseClock(%q) expected error", tt.in)
				}
				if !errors.Is(err, reps.ErrValidation) {
					t.Errorf("ParseClock(%q) error = %v, want ErrValidation", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestClockRoundTrip(t *testing.T) {
	t.Parallel()

	for _, seconds := range []int{0, 1, 59, 60, 61, 599, 3599, 3600, 7325, 86399} {
		for _, hours := range []bool{false, true} {
			got, err := ParseClock(FormatClock(seconds, hours))
			if err != nil {
				t.Fatalf("round trip %d (hours=%v): %v", seconds, hours, err)
			}
			if got != seconds {
				t.Errorf("round trip %d (hours=%v) = %d", seconds, hours, got)
			}
		}
	}
}
