// Package assistant wires the conversation engine and the booking controller
// into the single input surface the visitor talks to.
package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wolfman30/vetbot/internal/appointments"
	"github.com/wolfman30/vetbot/internal/booking"
	"github.com/wolfman30/vetbot/internal/chat"
	"github.com/wolfman30/vetbot/internal/session"
	"github.com/wolfman30/vetbot/pkg/logging"
)

// Route says who handled an utterance.
type Route int

const (
	RouteIgnored Route = iota
	RouteRemote
	RouteLocal
)

func (r Route) String() string {
	switch r {
	case RouteRemote:
		return "remote"
	case RouteLocal:
		return "local"
	}
	return "ignored"
}

const remoteBookingNotice = "I'm already helping you book an appointment. Please keep answering my questions here."

// Sessions is the part of the session manager the widget needs.
type Sessions interface {
	Context(ctx context.Context) *session.Context
	Reset(ctx context.Context)
}

// Options tunes a Widget.
type Options struct {
	// LocalBooking lets the widget collect booking fields itself when the
	// service expresses no opinion about the booking flow.
	LocalBooking bool
	Logger       *logging.Logger
}

// Widget routes visitor input. The service's isBookingFlow declaration always
// wins; the local collector only runs while the service has not claimed the
// booking dialogue.
type Widget struct {
	engine       *chat.Engine
	booking      *booking.Controller
	sessions     Sessions
	localBooking bool
	logger       *logging.Logger

	// prefill is set during the first pass over the fields, when seeded
	// values may stand in for answers. Retries always ask.
	prefill bool
}

// New builds a Widget over an engine and a booking controller.
func New(engine *chat.Engine, controller *booking.Controller, sessions Sessions, opts Options) *Widget {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Widget{
		engine:       engine,
		booking:      controller,
		sessions:     sessions,
		localBooking: opts.LocalBooking,
		logger:       opts.Logger,
	}
}

func (w *Widget) Engine() *chat.Engine { return w.engine }

func (w *Widget) Booking() *booking.Controller { return w.booking }

func (w *Widget) Messages() []chat.Message { return w.engine.Messages() }

// Busy reports whether a remote send is in flight.
func (w *Widget) Busy() bool { return w.engine.Busy() }

// Open initializes the conversation.
func (w *Widget) Open(ctx context.Context) { w.engine.InitializeChat(ctx) }

// Close cancels any in-flight send.
func (w *Widget) Close() { w.engine.Close() }

// Handle routes one utterance and reports who handled it. Errors come only
// from the remote engine and are already recorded in the transcript.
func (w *Widget) Handle(ctx context.Context, text string) (Route, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return RouteIgnored, nil
	}
	if w.booking.IsBookingActive() && !w.engine.BookingFlow() {
		w.engine.AddUserMessage(text)
		w.handleLocal(ctx, text)
		return RouteLocal, nil
	}

	reply, err := w.engine.SendMessage(ctx, text)
	if err != nil {
		return RouteRemote, err
	}
	if reply == nil {
		return RouteRemote, nil
	}
	switch {
	case reply.IsBookingFlow != nil && *reply.IsBookingFlow:
		if w.booking.IsBookingActive() {
			w.logger.Info("assistant: service took over booking, dropping local collection")
			w.booking.CancelBooking()
		}
	case reply.IsBookingFlow == nil && w.localBooking && !w.booking.IsBookingActive() && bookingIntent(text):
		w.StartLocalBooking(ctx, appointments.Draft{})
	}
	return RouteRemote, nil
}

// StartLocalBooking begins client-side collection. Name and pet are seeded
// from the visitor context and explicit seed values override them; seeded
// fields that already validate are not asked again. While the service runs
// its own booking dialogue the request is refused with a notice.
func (w *Widget) StartLocalBooking(ctx context.Context, seed appointments.Draft) string {
	if w.engine.BookingFlow() {
		w.engine.AddBotMessage(remoteBookingNotice)
		return ""
	}
	base := appointments.Draft{}
	if uc := w.sessions.Context(ctx); uc != nil {
		base.OwnerName = uc.UserName
		base.PetName = uc.PetName
	}
	w.booking.StartBooking(base.Overlay(seed))
	w.prefill = true
	prompt := w.skipSeeded()
	if prompt == "" {
		w.askConfirmation()
		return ""
	}
	w.engine.AddBotMessage("Let's book an appointment. You can type \"cancel\" at any time.\n" + prompt)
	return prompt
}

// Reset clears the transcript and any booking; forget also drops the session.
func (w *Widget) Reset(ctx context.Context, forget bool) {
	w.booking.ResetBooking()
	w.engine.ClearChat(ctx)
	if forget {
		w.sessions.Reset(ctx)
	}
}

func (w *Widget) handleLocal(ctx context.Context, text string) {
	if isCancel(text) {
		w.booking.CancelBooking()
		w.engine.AddBotMessage("No problem, I've cancelled the booking. Is there anything else I can help with?")
		return
	}

	switch w.booking.State().(type) {
	case booking.CollectingField:
		w.collect(text)
	case booking.Confirming:
		switch {
		case isYes(text):
			w.submit(ctx)
		case isNo(text):
			w.booking.CancelBooking()
			w.engine.AddBotMessage("Okay, I won't book it. Let me know if you'd like to start again.")
		default:
			w.engine.AddBotMessage("Please reply \"yes\" to book this appointment or \"no\" to cancel.")
		}
	case booking.Error:
		w.retry()
	case booking.Submitting:
		w.engine.AddBotMessage("Still booking your appointment, one moment...")
	}
}

func (w *Widget) collect(text string) {
	if check := w.booking.CheckCurrent(text); !check.IsValid {
		w.engine.AddErrorMessage(check.Error)
		if f := w.booking.CurrentField(); f != nil {
			w.engine.AddBotMessage(f.Prompt)
		}
		return
	}
	if w.booking.UpdateField(text) == nil {
		return
	}
	if f := w.booking.CurrentField(); f != nil && !w.prefill {
		w.engine.AddBotMessage(f.Prompt)
		return
	}
	if next := w.skipSeeded(); next != "" {
		w.engine.AddBotMessage(next)
		return
	}
	w.askConfirmation()
}

// skipSeeded answers queued fields whose seeded value already validates. It
// returns the prompt of the first field that still needs the visitor.
func (w *Widget) skipSeeded() string {
	for {
		f := w.booking.CurrentField()
		if f == nil {
			return ""
		}
		value := w.booking.Draft().Get(f.Key)
		if value == "" || !w.booking.CheckCurrent(value).IsValid {
			return f.Prompt
		}
		w.booking.UpdateField(value)
	}
}

func (w *Widget) askConfirmation() {
	w.engine.AddBotMessage(w.booking.Summary() + "\n\nShall I book this appointment? (yes/no)")
}

func (w *Widget) submit(ctx context.Context) {
	out := w.booking.ConfirmAppointment(ctx)
	if out.Success {
		id := ""
		if out.Appointment != nil {
			id = out.Appointment.ID
		}
		w.engine.AddSystemMessage(fmt.Sprintf("✅ Your appointment has been booked successfully! (ID: %s)", id))
		return
	}
	if _, errored := w.booking.State().(booking.Error); !errored {
		return
	}
	w.engine.AddErrorMessage(describe(out))
	w.retry()
}

// retry leaves the Error state and asks for whatever needs fixing.
func (w *Widget) retry() {
	step := w.booking.Retry()
	if step == nil {
		return
	}
	w.prefill = false
	if step.IsComplete {
		w.askConfirmation()
		return
	}
	w.engine.AddBotMessage(step.Prompt)
}

func describe(out booking.Outcome) string {
	if out.SlotTaken || len(out.Errors) == 0 {
		return out.Message
	}
	if len(out.Errors) == 1 {
		for _, msg := range out.Errors {
			return msg
		}
	}
	keys := make([]string, 0, len(out.Errors))
	for k := range out.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, "- "+out.Errors[k])
	}
	return "Please fix the following:\n" + strings.Join(lines, "\n")
}

func normalize(text string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(text)), ".!")
}

func isCancel(text string) bool {
	switch normalize(text) {
	case "cancel", "stop", "quit booking", "cancel booking", "nevermind", "never mind":
		return true
	}
	return false
}

func isYes(text string) bool {
	switch normalize(text) {
	case "yes", "y", "yeah", "yep", "sure", "ok", "okay", "confirm", "book it", "yes please":
		return true
	}
	return false
}

func isNo(text string) bool {
	switch normalize(text) {
	case "no", "n", "nope", "don't", "do not":
		return true
	}
	return false
}

func bookingIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range []string{"book", "appointment", "schedule"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
