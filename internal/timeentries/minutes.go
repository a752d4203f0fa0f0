package timeentries

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the end-of-day value; "24:00" parses to it.
const MinutesPerDay = 24 * 60

// ParseClock converts an HH:MM time of day into minutes since midnight.
// "24:00" is accepted and denotes the end of the day.
func ParseClock(value string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return 0, invalidf("time %q is not HH:MM", value)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, invalidf("time %q is not HH:MM", value)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, invalidf("time %q is not HH:MM", value)
	}
	if minutes > 59 || hours > 24 || (hours == 24 && minutes != 0) {
		return 0, invalidf("time %q is out of range", value)
	}
	return hours*60 + minutes, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// GrossMinutes is end minus start, before breaks. Entries ending before they
// start would span midnight and are rejected.
func GrossMinutes(c Candidate) (int, error) {
	start, err := ParseClock(c.Start)
	if err != nil {
		return 0, err
	}
	end, err := ParseClock(c.End)
	if err != nil {
		return 0, err
	}
	if end < start {
		return 0, invalidf("end %s lies before start %s; shifts across midnight are not supported", c.End, c.Start)
	}
	return end - start, nil
}

// NetMinutes is gross minutes minus break minutes.
func NetMinutes(c Candidate) (int, error) {
	gross, err := GrossMinutes(c)
	if err != nil {
		return 0, err
	}
	if c.BreakMinutes < 0 {
		return 0, invalidf("break minutes must not be negative, got %d", c.BreakMinutes)
	}
	if c.BreakMinutes > gross {
		return 0, invalidf("break of %d minutes exceeds the %d minutes worked", c.BreakMinutes, gross)
	}
	return gross - c.BreakMinutes, nil
}

// Check validates the structure of c without computing totals.
func Check(c Candidate) error {
	if c.EmployeeID <= 0 {
		return invalidf("employee id must be positive")
	}
	if c.Date.IsZero() {
		return invalidf("date is required")
	}
	_, err := NetMinutes(c)
	return err
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
