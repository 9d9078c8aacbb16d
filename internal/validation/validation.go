// Package validation holds the pure field checks run before an appointment
// draft may be submitted.
package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/vetbot/internal/appointments"
	"github.com/wolfman30/vetbot/internal/dateutil"
)

const (
	minNameLength = 2
	maxNameLength = 100
)

var (
	phoneStrip   = regexp.MustCompile(`[\s\-.()]`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	time24       = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
	time12       = regexp.MustCompile(`(?i)^(1[0-2]|0?[1-9]):[0-5][0-9] ?(AM|PM)$`)
)

// Result is the outcome of a single field check.
type Result struct {
	IsValid bool
	Error   string
}

func ok() Result                 { return Result{IsValid: true} }
func fail(message string) Result { return Result{Error: message} }

// AppointmentResult aggregates field checks keyed by field name.
type AppointmentResult struct {
	IsValid bool
	Errors  map[string]string
}

// ValidateName requires a trimmed length within [2,100]. label names the field in messages.
func ValidateName(name, label string) Result {
	if label == "" {
		label = "Name"
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fail(label + " is required")
	}
	n := utf8.RuneCountInString(trimmed)
	if n < minNameLength {
		return fail(label + " must be at least 2 characters")
	}
	if n > maxNameLength {
		return fail(label + " is too long")
	}
	return ok()
}

// ValidatePhone strips separators and expects 10-15 digits with an optional leading +.
func ValidatePhone(phone string) Result {
	if strings.TrimSpace(phone) == "" {
		return fail("Phone number is required")
	}
	if !phonePattern.MatchString(NormalizePhone(phone)) {
		return fail("Please enter a valid phone number")
	}
	return ok()
}

// NormalizePhone removes spaces, dashes, dots and parentheses.
func NormalizePhone(phone string) string {
	return phoneStrip.ReplaceAllString(strings.TrimSpace(phone), "")
}

// ValidateEmail accepts an empty value; otherwise it expects local@domain.tld.
func ValidateEmail(email string) Result {
	email = strings.TrimSpace(email)
	if email == "" {
		return ok()
	}
	if !emailPattern.MatchString(email) {
		return fail("Please enter a valid email address")
	}
	return ok()
}

// ValidateFutureDate requires a date no earlier than today.
func ValidateFutureDate(raw string) Result {
	return ValidateFutureDateAt(raw, time.Now())
}

// ValidateFutureDateAt is ValidateFutureDate against an explicit clock.
func ValidateFutureDateAt(raw string, now time.Time) Result {
	if strings.TrimSpace(raw) == "" {
		return fail("Date is required")
	}
	date, err := dateutil.ParseDate(raw, now.Location())
	if err != nil {
		return fail("Please enter a valid date")
	}
	if dateutil.IsPastDate(date, now) {
		return fail("Please select a future date")
	}
	return ok()
}

// ValidateTimeSlot accepts 24-hour HH:MM or 12-hour H:MM AM/PM.
func ValidateTimeSlot(slot string) Result {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return fail("Time is required")
	}
	if time24.MatchString(slot) || time12.MatchString(slot) {
		return ok()
	}
	return fail("Please enter a valid time")
}

// ValidateAppointment runs every applicable field check over d.
func ValidateAppointment(d appointments.Draft) AppointmentResult {
	return ValidateAppointmentAt(d, time.Now())
}

// ValidateAppointmentAt is ValidateAppointment against an explicit clock.
func ValidateAppointmentAt(d appointments.Draft, now time.Time) AppointmentResult {
	errs := make(map[string]string)
	check := func(field string, r Result) {
		if !r.IsValid {
			errs[field] = r.Error
		}
	}

	check(appointments.FieldOwnerName, ValidateName(d.OwnerName, "Owner name"))
	check(appointments.FieldPetName, ValidateName(d.PetName, "Pet name"))
	check(appointments.FieldPhone, ValidatePhone(d.Phone))
	check(appointments.FieldEmail, ValidateEmail(d.Email))
	check(appointments.FieldScheduledDate, ValidateFutureDateAt(d.ScheduledDate, now))
	check(appointments.FieldScheduledTimeSlot, ValidateTimeSlot(d.ScheduledTimeSlot))

	return AppointmentResult{IsValid: len(errs) == 0, Errors: errs}
}
