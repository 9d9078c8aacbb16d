package booking

import (
	"fmt"

	"github.com/wolfman30/vetbot/internal/appointments"
)

// State is the booking flow's current position. Exactly one of the types
// below implements it, so a type switch covers every reachable state.
type State interface {
	isState()
	String() string
}

// Idle means no booking is in progress.
type Idle struct{}

// CollectingField means the flow waits for the value of Fields[Index].
type CollectingField struct {
	Index int
}

// Confirming means every field is collected and the draft awaits confirmation.
type Confirming struct{}

// Submitting means the draft is being sent to the scheduling service.
type Submitting struct{}

// Success holds the appointment the service booked.
type Success struct {
	Appointment *appointments.Appointment
}

// Error holds field-keyed failures from validation or the service. SlotTaken
// marks a rejection the user can recover from by picking another time.
type Error struct {
	Errors    map[string]string
	SlotTaken bool
}

func (Idle) isState()            {}
func (CollectingField) isState() {}
func (Confirming) isState()      {}
func (Submitting) isState()      {}
func (Success) isState()         {}
func (Error) isState()           {}

func (Idle) String() string              { return "idle" }
func (s CollectingField) String() string { return fmt.Sprintf("collecting_info(%s)", Fields[s.Index].Key) }
func (Confirming) String() string        { return "confirming" }
func (Submitting) String() string        { return "submitting" }
func (Success) String() string           { return "success" }
func (Error) String() string             { return "error" }
