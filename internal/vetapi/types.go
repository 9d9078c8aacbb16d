package vetapi

import (
	"encoding/json"
	"time"

	"github.com/wolfman30/vetbot/internal/appointments"
)

// FieldError is a server-side validation failure for one field.
type FieldError = appointments.FieldError

// FieldErrors decodes either [{field,message}] or a bare list of messages.
type FieldErrors []FieldError

func (f *FieldErrors) UnmarshalJSON(data []byte) error {
	var structured []FieldError
	if err := json.Unmarshal(data, &structured); err == nil {
		*f = structured
		return nil
	}
	var messages []string
	if err := json.Unmarshal(data, &messages); err != nil {
		return err
	}
	out := make(FieldErrors, 0, len(messages))
	for _, m := range messages {
		out = append(out, FieldError{Message: m})
	}
	*f = out
	return nil
}

// ChatReply is the assistant's answer to one user message. IsBookingFlow is nil
// when the service expressed no opinion about the booking flow.
type ChatReply struct {
	Response          string `json:"response"`
	SessionID         string `json:"sessionId,omitempty"`
	IsBookingFlow     *bool  `json:"isBookingFlow"`
	IsBookingComplete bool   `json:"isBookingComplete"`
	AppointmentID     string `json:"appointmentId"`
}

// BookingFlow reports the declared flag, treating "no opinion" as false.
func (r ChatReply) BookingFlow() bool {
	return r.IsBookingFlow != nil && *r.IsBookingFlow
}

// HistoryMessage is one stored turn of a session.
type HistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
