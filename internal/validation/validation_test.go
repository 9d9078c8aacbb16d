package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wolfman30/vetbot/internal/appointments"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
		err   string
	}{
		{"empty", "", false, "Owner name is required"},
		{"whitespace", "   ", false, "Owner name is required"},
		{"too short", " J ", false, "Owner name must be at least 2 characters"},
		{"min length", "Jo", true, ""},
		{"too long", strings.Repeat("a", 101), false, "Owner name is too long"},
		{"max length", strings.Repeat("a", 100), true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ValidateName(tt.input, "Owner name")
			assert.Equal(t, tt.valid, r.IsValid)
			assert.Equal(t, tt.err, r.Error)
		})
	}
	assert.Equal(t, "Name is required", ValidateName("", "").Error)
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"+14155550123", "(415) 555-0123", "415.555.0123", "415 555 0123", "+44 20 7946 0958"}
	for _, p := range valid {
		assert.True(t, ValidatePhone(p).IsValid, p)
	}
	invalid := []string{"555-0123", "phone", "+1415555012345678", "415-555-012a"}
	for _, p := range invalid {
		r := ValidatePhone(p)
		assert.False(t, r.IsValid, p)
		assert.Equal(t, "Please enter a valid phone number", r.Error)
	}
	assert.Equal(t, "Phone number is required", ValidatePhone("").Error)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+14155550123", NormalizePhone(" +1 (415) 555-0123 "))
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("").IsValid)
	assert.True(t, ValidateEmail("jane@example.com").IsValid)
	assert.False(t, ValidateEmail("jane@example").IsValid)
	assert.False(t, ValidateEmail("jane example@x.com").IsValid)
}

func TestValidateFutureDateAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 17, 45, 0, 0, time.UTC)
	assert.True(t, ValidateFutureDateAt("2026-03-10", now).IsValid, "today is allowed")
	assert.True(t, ValidateFutureDateAt("March 11, 2026", now).IsValid)
	assert.Equal(t, "Please select a future date", ValidateFutureDateAt("2026-03-09", now).Error)
	assert.Equal(t, "Please enter a valid date", ValidateFutureDateAt("next tuesday", now).Error)
	assert.Equal(t, "Date is required", ValidateFutureDateAt("", now).Error)
}

func TestValidateTimeSlot(t *testing.T) {
	for _, s := range []string{"14:00", "9:30", "09:30", "23:59", "2:00 PM", "2:00PM", "12:15 am", "11:45 Pm"} {
		assert.True(t, ValidateTimeSlot(s).IsValid, s)
	}
	for _, s := range []string{"24:00", "13:00 PM", "2 PM", "noon", "9:60"} {
		assert.False(t, ValidateTimeSlot(s).IsValid, s)
	}
	assert.Equal(t, "Time is required", ValidateTimeSlot("").Error)
}

func validDraft(now time.Time) appointments.Draft {
	return appointments.Draft{
		OwnerName:         "Jane Doe",
		PetName:           "Rex",
		Phone:             "+14155550123",
		ScheduledDate:     now.AddDate(0, 0, 1).Format("2006-01-02"),
		ScheduledTimeSlot: "2:00 PM",
	}
}

func TestValidateAppointmentValid(t *testing.T) {
	now := time.Now()
	r := ValidateAppointmentAt(validDraft(now), now)
	assert.True(t, r.IsValid)
	assert.Empty(t, r.Errors)

	assert.True(t, ValidateAppointment(validDraft(time.Now())).IsValid)
}

func TestValidateAppointmentMissingPhone(t *testing.T) {
	now := time.Now()
	d := validDraft(now)
	d.Phone = ""
	r := ValidateAppointmentAt(d, now)
	assert.False(t, r.IsValid)
	assert.Equal(t, map[string]string{"phone": "Phone number is required"}, r.Errors)
}

func TestValidateAppointmentCollectsEveryField(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	r := ValidateAppointmentAt(appointments.Draft{Email: "bad"}, now)
	assert.False(t, r.IsValid)
	for _, field := range []string{"ownerName", "petName", "phone", "email", "scheduledDate", "scheduledTimeSlot"} {
		assert.Contains(t, r.Errors, field)
	}
}
