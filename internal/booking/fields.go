package booking

import (
	"time"

	"github.com/wolfman30/vetbot/internal/appointments"
	"github.com/wolfman30/vetbot/internal/validation"
)

// Field describes one value collected from the user.
type Field struct {
	Key    string
	Label  string
	Prompt string
}

// Fields is the fixed collection order.
var Fields = []Field{
	{Key: appointments.FieldOwnerName, Label: "Pet Owner Name", Prompt: "What's your name?"},
	{Key: appointments.FieldPetName, Label: "Pet Name", Prompt: "What's your pet's name?"},
	{Key: appointments.FieldPhone, Label: "Phone Number", Prompt: "What's your phone number?"},
	{Key: appointments.FieldScheduledDate, Label: "Preferred Date", Prompt: "What date would you prefer? (e.g., January 30, 2026)"},
	{Key: appointments.FieldScheduledTimeSlot, Label: "Preferred Time", Prompt: "What time works best for you? (e.g., 2:00 PM)"},
}

// ErrorKeySubmit keys failures that belong to no single field.
const ErrorKeySubmit = "submit"

func fieldIndex(key string) int {
	for i, f := range Fields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

func checkField(key, value string, now time.Time) validation.Result {
	switch key {
	case appointments.FieldOwnerName:
		return validation.ValidateName(value, "Owner name")
	case appointments.FieldPetName:
		return validation.ValidateName(value, "Pet name")
	case appointments.FieldPhone:
		return validation.ValidatePhone(value)
	case appointments.FieldEmail:
		return validation.ValidateEmail(value)
	case appointments.FieldScheduledDate:
		return validation.ValidateFutureDateAt(value, now)
	case appointments.FieldScheduledTimeSlot:
		return validation.ValidateTimeSlot(value)
	}
	return validation.Result{IsValid: true}
}
