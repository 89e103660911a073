// Package dateparser extracts capture timestamps embedded in image filenames.
package dateparser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateParseErrorType represents the type of date parsing error.
type DateParseErrorType string

const (
	InvalidFormat DateParseErrorType = "INVALID_FORMAT"
	InvalidDate   DateParseErrorType = "INVALID_DATE"
)

// DateParseError represents an error that occurred during date parsing.
type DateParseError struct {
	Type   DateParseErrorType
	Reason string
}

func (e *DateParseError) Error() string {
	switch e.Type {
	case InvalidFormat:
		if e.Reason != "" {
			return "no timestamp found: " + e.Reason
		}
		return "no timestamp found"
	case InvalidDate:
		return fmt.Sprintf("invalid date: %s", e.Reason)
	default:
		return fmt.Sprintf("date parse error: %s", e.Reason)
	}
}

// Filename timestamp layouts, tried in order. Groups are year, month, day and
// optionally hour, minute, second.
var stampPatterns = []*regexp.Regexp{
	// 2024-03-09_14-05-33, 2024-03-09T14:05:33, 2024-03-09 14.05.33
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[_T ](\d{2})[-:.](\d{2})[-:.](\d{2})`),
	// 20240309_140533, 20240309-140533
	regexp.MustCompile(`(?:^|\D)(\d{4})(\d{2})(\d{2})[_-](\d{2})(\d{2})(\d{2})(?:\D|$)`),
	// 2024-03-09
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),
}

// epochPattern matches Unix seconds (10 digits) or milliseconds (13 digits).
var epochPattern = regexp.MustCompile(`(?:^|\D)(\d{13}|\d{10})(?:\D|$)`)

// ExtractTimestamp finds a capture timestamp in the base name of path.
// Calendar layouts win over bare epoch numbers. Times are interpreted as UTC.
func ExtractTimestamp(path string) (time.Time, error) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	for _, pattern := range stampPatterns {
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		parts := make([]int, 6)
		for i := 1; i < len(m) && i <= 6; i++ {
			parts[i-1], _ = strconv.Atoi(m[i])
		}
		if err := validateDate(parts[0], parts[1], parts[2]); err != nil {
			return time.Time{}, err
		}
		if err := validateClock(parts[3], parts[4], parts[5]); err != nil {
			return time.Time{}, err
		}
		return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC), nil
	}

	if m := epochPattern.FindStringSubmatch(name); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, &DateParseError{Type: InvalidDate, Reason: err.Error()}
		}
		if len(m[1]) == 13 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	return time.Time{}, &DateParseError{Type: InvalidFormat, Reason: name}
}

func validateDate(year, month, day int) error {
	if month < 1 || month > 12 {
		return &DateParseError{
			Type:   InvalidDate,
			Reason: fmt.Sprintf("month %02d is out of range (01-12)", month),
		}
	}
	maxDay := daysInMonth(year, month)
	if day < 1 || day > maxDay {
		return &DateParseError{
			Type:   InvalidDate,
			Reason: fmt.Sprintf("day %02d is out of range for month %02d (01-%02d)", day, month, maxDay),
		}
	}
	return nil
}

func validateClock(hour, minute, second int) error {
	if hour > 23 || minute > 59 || second > 59 {
		return &DateParseError{
			Type:   InvalidDate,
			Reason: fmt.Sprintf("time %02d:%02d:%02d is out of range", hour, minute, second),
		}
	}
	return nil
}

// daysInMonth returns the number of days in the given month for the given year.
func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

// isLeapYear returns true if the given year is a leap year.
func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || (year%400 == 0)
}
