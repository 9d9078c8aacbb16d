// Package dateutil holds the date formatting helpers shared by the booking
// flow, the API client and the CLI.
package dateutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// APILayout is the yyyy-MM-dd layout the scheduling service expects.
const APILayout = "2006-01-02"

// ErrInvalidDate is returned when no supported layout matches.
var ErrInvalidDate = errors.New("dateutil: invalid date")

var dateLayouts = []string{
	APILayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"01/02/2006",
	"1/2/2006",
}

// FormatForAPI formats t as yyyy-MM-dd. The zero time formats as "".
func FormatForAPI(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(APILayout)
}

// FormatDisplay formats t for humans ("Jan 2, 2006").
func FormatDisplay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// ParseDate parses the date formats users and the service commonly produce.
// Dates without a zone are interpreted in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsPastDate reports whether t falls on a day before now's day.
func IsPastDate(t, now time.Time) bool {
	return t.Before(StartOfDay(now.In(t.Location())))
}

// NextDays returns n consecutive days starting at from's day.
func NextDays(from time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	start := StartOfDay(from)
	days := make([]time.Time, n)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// FormatTimeSlot renders a 24-hour "HH:MM" slot as "h:MM AM". Slots already
// carrying AM/PM are returned unchanged.
func FormatTimeSlot(slot string) string {
	s := strings.TrimSpace(slot)
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	if strings.Contains(upper, "AM") || strings.Contains(upper, "PM") {
		return s
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return s
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return s
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return s
	}
	period := "AM"
	if hours >= 12 {
		period = "PM"
	}
	display := hours
	switch {
	case hours == 0:
		display = 12
	case hours > 12:
		display = hours - 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minutes, period)
}

// NormalizeTimeSlot converts "2:00 PM" or "9:00" into 24-hour "HH:MM". Input it
// cannot read is returned trimmed and unchanged.
func NormalizeTimeSlot(slot string) string {
	s := strings.TrimSpace(slot)
	upper := strings.ToUpper(s)
	period := ""
	switch {
	case strings.HasSuffix(upper, "AM"):
		period = "AM"
	case strings.HasSuffix(upper, "PM"):
		period = "PM"
	}
	clock := strings.TrimSpace(s[:len(s)-len(period)])
	hh, mm, ok := strings.Cut(clock, ":")
	if !ok {
		return s
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return s
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 || minutes > 59 {
		return s
	}
	switch period {
	case "AM":
		if hours == 12 {
			hours = 0
		}
	case "PM":
		if hours < 12 {
			hours += 12
		}
	}
	if hours < 0 || hours > 23 {
		return s
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// FormatRelative renders a short "5m ago" style label.
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
	return FormatDisplay(t)
}
