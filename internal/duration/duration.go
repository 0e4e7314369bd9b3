// Package duration parses the time-of-day and duration strings people type
// into the entry form, and the duration labels read back from the store.
package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

var (
	ErrInvalidTime     = errors.New("invalid time of day")
	ErrInvalidDuration = errors.New("invalid duration")
)

// ParseError reports the input that failed to parse. Kind is one of the
// package's sentinel errors.
type ParseError struct {
	Kind  error
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %q", e.Kind, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, &ParseError{Kind: ErrInvalidTime, Input: fmt.Sprintf("%02d:%02d", hour, minute)}
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// Minutes returns the minutes elapsed since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

var colonTime = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseTimeOfDay accepts "1422", "14:22" and "9:05". The boolean is false
// when the input has neither shape, which covers empty and half-typed
// fields; that is not an error. An error is returned only when the input
// has an accepted shape but the hour or minute is out of range.
func ParseTimeOfDay(input string) (TimeOfDay, bool, error) {
	stripped := strings.TrimSpace(strings.ReplaceAll(input, ":", ""))
	if len(stripped) == 4 && isDigits(stripped) {
		h, _ := strconv.Atoi(stripped[:2])
		m, _ := strconv.Atoi(stripped[2:])
		t, err := newParsed(h, m, input)
		return t, err == nil, err
	}

	if match := colonTime.FindStringSubmatch(strings.TrimSpace(input)); match != nil {
		h, _ := strconv.Atoi(match[1])
		m, _ := strconv.Atoi(match[2])
		t, err := newParsed(h, m, input)
		return t, err == nil, err
	}

	return TimeOfDay{}, false, nil
}

func newParsed(h, m int, input string) (TimeOfDay, error) {
	if _, err := NewTimeOfDay(h, m); err != nil {
		return TimeOfDay{}, &ParseError{Kind: ErrInvalidTime, Input: input}
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Preview returns the minutes between from and to. Without the overnight
// flag the difference wraps at midnight; with it, to is taken on the
// following day.
func Preview(from, to TimeOfDay, overnight bool) int {
	if overnight {
		return to.Minutes() + minutesPerDay - from.Minutes()
	}
	diff := (to.Minutes() - from.Minutes()) % minutesPerDay
	if diff < 0 {
		diff += minutesPerDay
	}
	return diff
}

// Hour-marker and minute-unit spellings, longest first.
var (
	hourSuffixes   = []string{"ours", "our", "rs", "r"}
	minuteSuffixes = []string{"minutes", "minute", "mins", "min", "m"}
)

// ParseLabel decodes a stored duration label such as "1h 33m",
// "1 hr 33 min" or "2h" into minutes. A missing or unreadable minute part
// counts as zero. Totals that would overflow an int are rejected.
func ParseLabel(label string) (int, error) {
	s := strings.ToLower(strings.Join(strings.Fields(label), ""))

	idx := strings.Index(s, "h")
	if idx < 0 {
		return 0, &ParseError{Kind: ErrInvalidDuration, Input: label}
	}

	hours, err := strconv.Atoi(s[:idx])
	if err != nil || hours < 0 || hours > math.MaxInt/60 {
		return 0, &ParseError{Kind: ErrInvalidDuration, Input: label}
	}

	rest := s[idx+1:]
	for _, suffix := range hourSuffixes {
		if strings.HasPrefix(rest, suffix) {
			rest = rest[len(suffix):]
			break
		}
	}
	for _, suffix := range minuteSuffixes {
		if strings.HasSuffix(rest, suffix) {
			rest = rest[:len(rest)-len(suffix)]
			break
		}
	}

	minutes := 0
	if rest != "" {
		if m, err := strconv.Atoi(rest); err == nil {
			if m < 0 || m > math.MaxInt-hours*60 {
				return 0, &ParseError{Kind: ErrInvalidDuration, Input: label}
			}
			minutes = m
		}
	}

	return hours*60 + minutes, nil
}

// FormatLabel renders minutes as "1h 33m".
func FormatLabel(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// FormatLegacyLabel renders minutes the way the spreadsheet formula does,
// "1 hr 33 min".
func FormatLegacyLabel(minutes int) string {
	return fmt.Sprintf("%d hr %d min", minutes/60, minutes%60)
}
