// Package booking drives the guided appointment dialogue: it collects the
// required fields one at a time, validates the draft and submits it.
package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/vetbot/internal/appointments"
	"github.com/wolfman30/vetbot/internal/dateutil"
	"github.com/wolfman30/vetbot/internal/observability/metrics"
	"github.com/wolfman30/vetbot/internal/validation"
	"github.com/wolfman30/vetbot/internal/vetapi"
	"github.com/wolfman30/vetbot/pkg/logging"
)

const (
	defaultSubmitFailure = "Failed to book appointment"
	slotTakenMessage     = "That time slot is no longer available. Please choose a different time."
)

// Scheduler is the remote scheduling service. *vetapi.Client satisfies it.
type Scheduler interface {
	CreateAppointment(ctx context.Context, draft appointments.Draft) (*appointments.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*appointments.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, draft appointments.Draft) (*appointments.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status appointments.Status) (*appointments.Appointment, error)
	CancelAppointment(ctx context.Context, id, reason string) (*appointments.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
	ListAppointments(ctx context.Context, opts appointments.ListOptions) (*appointments.Page, error)
	SessionAppointments(ctx context.Context) ([]appointments.Appointment, error)
	Today(ctx context.Context) ([]appointments.Appointment, error)
	Upcoming(ctx context.Context, limit int) ([]appointments.Appointment, error)
	ByDate(ctx context.Context, date string) ([]appointments.Appointment, error)
	Stats(ctx context.Context) (*appointments.Stats, error)
	AvailableDates(ctx context.Context, days int) ([]appointments.AvailableDate, error)
	AvailableSlots(ctx context.Context, date string) (*appointments.SlotAvailability, error)
	Services(ctx context.Context) (*appointments.ServiceCatalog, error)
}

// Options tunes a Controller.
type Options struct {
	Logger  *logging.Logger
	Metrics *metrics.ClientMetrics
	Now     func() time.Time
}

// Step is the result of feeding a value into the flow. While fields remain,
// Field and Prompt name the next one; once complete, Draft holds everything
// collected.
type Step struct {
	Field      *Field
	Prompt     string
	IsComplete bool
	Draft      appointments.Draft
}

// Outcome is the result of ConfirmAppointment.
type Outcome struct {
	Success     bool
	Appointment *appointments.Appointment
	Errors      map[string]string
	Message     string
	SlotTaken   bool
}

// Controller is the booking state machine plus the operator data fetches.
// Public operations never return errors; failures land in State and Errors.
type Controller struct {
	api     Scheduler
	logger  *logging.Logger
	metrics *metrics.ClientMetrics
	now     func() time.Time

	mu    sync.Mutex
	state State
	draft appointments.Draft
	// queue holds indexes into Fields still to collect; pos points into it.
	queue []int
	pos   int
	gen   uint64

	loading int
}

// NewController builds an idle Controller.
func NewController(api Scheduler, opts Options) *Controller {
	if api == nil {
		panic("booking: scheduler is nil")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		api:     api,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
		state:   Idle{},
		draft:   appointments.DefaultDraft(),
	}
}

// StartBooking begins a fresh flow seeded with seed and returns the first prompt.
func (c *Controller) StartBooking(seed appointments.Draft) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.draft = appointments.DefaultDraft().Overlay(seed)
	c.queue = allFields()
	c.pos = 0
	c.state = CollectingField{Index: c.queue[0]}
	return Fields[c.queue[0]].Prompt
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentField returns the field awaiting a value, or nil when none is.
func (c *Controller) CurrentField() *Field {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentField()
}

// CurrentFieldIndex returns the collection pointer. It equals the number of
// queued fields once every one has been answered.
func (c *Controller) CurrentFieldIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *Controller) currentField() *Field {
	if _, ok := c.state.(CollectingField); !ok || c.pos >= len(c.queue) {
		return nil
	}
	f := Fields[c.queue[c.pos]]
	return &f
}

// CheckCurrent validates value against the field awaiting input without
// changing any state. With no current field it reports valid.
func (c *Controller) CheckCurrent(value string) validation.Result {
	c.mu.Lock()
	f := c.currentField()
	c.mu.Unlock()
	if f == nil {
		return validation.Result{IsValid: true}
	}
	return checkField(f.Key, value, c.now())
}

// UpdateField stores value for the current field and advances. It returns nil
// and changes nothing when no field is awaiting input.
func (c *Controller) UpdateField(value string) *Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := c.currentField()
	if f == nil {
		return nil
	}
	c.draft.Set(f.Key, strings.TrimSpace(value))
	c.pos++

	if c.pos < len(c.queue) {
		next := Fields[c.queue[c.pos]]
		c.state = CollectingField{Index: c.queue[c.pos]}
		return &Step{Field: &next, Prompt: next.Prompt}
	}
	c.state = Confirming{}
	return &Step{IsComplete: true, Draft: c.draft}
}

// SetField edits any draft field outside of submission, for corrections made
// while confirming. It reports false for unknown keys or while submitting.
func (c *Controller) SetField(key, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state.(type) {
	case Idle, Submitting, Success:
		return false
	}
	return c.draft.Set(key, strings.TrimSpace(value))
}

// ConfirmAppointment validates the draft and, when valid, submits it. It is
// accepted while Confirming or after an Error.
func (c *Controller) ConfirmAppointment(ctx context.Context) Outcome {
	c.mu.Lock()
	switch c.state.(type) {
	case Confirming, Error:
	default:
		state := c.state
		c.mu.Unlock()
		return Outcome{Message: fmt.Sprintf("booking is %s, nothing to confirm", state)}
	}

	now := c.now()
	result := validation.ValidateAppointmentAt(c.draft, now)
	if !result.IsValid {
		c.state = Error{Errors: result.Errors}
		c.mu.Unlock()
		c.metrics.ObserveBooking("invalid")
		return Outcome{Errors: copyErrors(result.Errors), Message: "Please correct the highlighted fields"}
	}

	draft := c.draft
	if d, err := dateutil.ParseDate(draft.ScheduledDate, now.Location()); err == nil {
		draft.ScheduledDate = dateutil.FormatForAPI(d)
	}
	draft.ScheduledTimeSlot = dateutil.NormalizeTimeSlot(draft.ScheduledTimeSlot)
	draft.Phone = validation.NormalizePhone(draft.Phone)
	c.state = Submitting{}
	gen := c.gen
	c.mu.Unlock()

	apt, err := c.api.CreateAppointment(ctx, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.logger.Info("booking: discarding submission result after reset")
		return Outcome{Message: "booking was cancelled"}
	}

	if err != nil {
		errs, message, slotTaken := rejection(err)
		c.state = Error{Errors: errs, SlotTaken: slotTaken}
		outcome := "rejected"
		if slotTaken {
			outcome = "slot_taken"
		}
		c.metrics.ObserveBooking(outcome)
		c.logger.Warn("booking: submission failed", "error", err, "slot_taken", slotTaken)
		return Outcome{Errors: copyErrors(errs), Message: message, SlotTaken: slotTaken}
	}

	c.state = Success{Appointment: apt}
	c.metrics.ObserveBooking("success")
	c.logger.Info("booking: appointment created", "appointment_id", apt.ID)
	return Outcome{Success: true, Appointment: apt}
}

// rejection maps a submission failure into field-keyed errors.
func rejection(err error) (map[string]string, string, bool) {
	errs := make(map[string]string)
	apiErr, ok := vetapi.AsAPIError(err)
	if !ok {
		errs[ErrorKeySubmit] = defaultSubmitFailure
		return errs, defaultSubmitFailure, false
	}

	message := strings.TrimSpace(apiErr.Message)
	if message == "" {
		message = defaultSubmitFailure
	}
	for _, fe := range apiErr.ValidationErrors {
		if fe.Field != "" {
			errs[fe.Field] = fe.Message
		}
	}
	if apiErr.SlotTaken {
		errs[appointments.FieldScheduledTimeSlot] = slotTakenMessage
		message = slotTakenMessage
	}
	if len(errs) == 0 {
		errs[ErrorKeySubmit] = message
	}
	return errs, message, apiErr.SlotTaken
}

// Retry leaves the Error state. Errored fields from the collection order are
// asked again (only the time when the slot was taken); if none are, the flow
// returns to Confirming. It returns nil outside the Error state.
func (c *Controller) Retry() *Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.state.(Error)
	if !ok {
		return nil
	}
	var queue []int
	if st.SlotTaken {
		queue = []int{fieldIndex(appointments.FieldScheduledTimeSlot)}
	} else {
		for i, f := range Fields {
			if _, bad := st.Errors[f.Key]; bad {
				queue = append(queue, i)
			}
		}
	}
	c.gen++
	if len(queue) == 0 {
		c.queue, c.pos = nil, 0
		c.state = Confirming{}
		return &Step{IsComplete: true, Draft: c.draft}
	}
	c.queue, c.pos = queue, 0
	c.state = CollectingField{Index: queue[0]}
	f := Fields[queue[0]]
	return &Step{Field: &f, Prompt: f.Prompt}
}

// CancelBooking returns to Idle and forgets the draft.
func (c *Controller) CancelBooking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state = Idle{}
	c.draft = appointments.DefaultDraft()
	c.queue, c.pos = nil, 0
}

// ResetBooking is CancelBooking under the name used after a completed booking.
func (c *Controller) ResetBooking() {
	c.CancelBooking()
}

// IsBookingActive reports whether a flow is underway (any state but Idle and Success).
func (c *Controller) IsBookingActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state.(type) {
	case Idle, Success:
		return false
	}
	return true
}

// Draft returns a copy of the draft being collected.
func (c *Controller) Draft() appointments.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Errors returns the field-keyed errors of the Error state, or nil.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.state.(Error); ok {
		return copyErrors(st.Errors)
	}
	return nil
}

// ConfirmedAppointment returns the booked appointment after Success, or nil.
func (c *Controller) ConfirmedAppointment() *appointments.Appointment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.state.(Success); ok {
		return st.Appointment
	}
	return nil
}

// Summary renders the draft for the confirmation prompt.
func (c *Controller) Summary() string {
	c.mu.Lock()
	d := c.draft
	c.mu.Unlock()

	date := d.ScheduledDate
	if t, err := dateutil.ParseDate(date, c.now().Location()); err == nil {
		date = dateutil.FormatDisplay(t)
	}
	lines := []string{
		"📋 Appointment Details:",
		"- Owner Name: " + d.OwnerName,
		"- Pet Name: " + d.PetName,
		"- Phone: " + d.Phone,
		"- Date: " + date,
		"- Time: " + dateutil.FormatTimeSlot(d.ScheduledTimeSlot),
	}
	if d.Service != "" {
		lines = append(lines, "- Service: "+d.Service)
	}
	if d.Reason != "" {
		lines = append(lines, "- Reason: "+d.Reason)
	}
	return strings.Join(lines, "\n")
}

func allFields() []int {
	q := make([]int, len(Fields))
	for i := range q {
		q[i] = i
	}
	return q
}

func copyErrors(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
