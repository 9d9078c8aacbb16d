package assistant

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetbot/internal/appointments"
	"github.com/wolfman30/vetbot/internal/booking"
	"github.com/wolfman30/vetbot/internal/chat"
	"github.com/wolfman30/vetbot/internal/session"
	"github.com/wolfman30/vetbot/internal/vetapi"
	"github.com/wolfman30/vetbot/pkg/logging"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeAssistant struct {
	sends  []string
	resets int
	reply  func(msg string) *vetapi.ChatReply
}

func (f *fakeAssistant) InitSession(context.Context) (string, error) { return "Hi! How can I help?", nil }

func (f *fakeAssistant) SendMessage(_ context.Context, msg string) (*vetapi.ChatReply, error) {
	f.sends = append(f.sends, msg)
	if f.reply != nil {
		return f.reply(msg), nil
	}
	return &vetapi.ChatReply{Response: "ok"}, nil
}

func (f *fakeAssistant) History(context.Context, int) ([]vetapi.HistoryMessage, error) {
	return nil, nil
}

func (f *fakeAssistant) ResetSession(context.Context) error {
	f.resets++
	return nil
}

// fakeScheduler only implements submission; the widget never fetches.
type fakeScheduler struct {
	booking.Scheduler
	drafts   []appointments.Draft
	createFn func(d appointments.Draft) (*appointments.Appointment, error)
}

func (f *fakeScheduler) CreateAppointment(_ context.Context, d appointments.Draft) (*appointments.Appointment, error) {
	f.drafts = append(f.drafts, d)
	if f.createFn != nil {
		return f.createFn(d)
	}
	return &appointments.Appointment{ID: "apt-100", Draft: d, Status: appointments.StatusPending}, nil
}

type fakeSessions struct {
	uc     *session.Context
	resets int
}

func (f *fakeSessions) Context(context.Context) *session.Context { return f.uc }
func (f *fakeSessions) Reset(context.Context)                    { f.resets++ }

type harness struct {
	widget    *Widget
	remote    *fakeAssistant
	scheduler *fakeScheduler
	sessions  *fakeSessions
}

func newHarness(t *testing.T, local bool, uc *session.Context) *harness {
	t.Helper()
	h := &harness{
		remote:    &fakeAssistant{},
		scheduler: &fakeScheduler{},
		sessions:  &fakeSessions{uc: uc},
	}
	engine := chat.NewEngine(h.remote, h.sessions, chat.Options{Logger: logging.Discard(), Now: func() time.Time { return fixedNow }})
	controller := booking.NewController(h.scheduler, booking.Options{Logger: logging.Discard(), Now: func() time.Time { return fixedNow }})
	h.widget = New(engine, controller, h.sessions, Options{LocalBooking: local, Logger: logging.Discard()})
	t.Cleanup(h.widget.Close)
	return h
}

func (h *harness) say(t *testing.T, text string) Route {
	t.Helper()
	route, err := h.widget.Handle(context.Background(), text)
	require.NoError(t, err)
	return route
}

func lastMessage(w *Widget) chat.Message {
	msgs := w.Messages()
	return msgs[len(msgs)-1]
}

func boolPtr(b bool) *bool { return &b }

func TestRemoteRoutingWithoutBooking(t *testing.T) {
	h := newHarness(t, true, nil)
	h.widget.Open(context.Background())

	assert.Equal(t, RouteRemote, h.say(t, "what should my puppy eat?"))
	assert.Equal(t, RouteIgnored, h.say(t, "   "))

	assert.Equal(t, []string{"what should my puppy eat?"}, h.remote.sends)
	assert.False(t, h.widget.Booking().IsBookingActive())
	assert.Equal(t, chat.TypeBot, lastMessage(h.widget).Type)
}

func TestBookingIntentStartsLocalCollectionSeededFromContext(t *testing.T) {
	h := newHarness(t, true, &session.Context{UserName: "Jane Doe", PetName: "Rex"})

	assert.Equal(t, RouteRemote, h.say(t, "I'd like to book an appointment"))

	require.True(t, h.widget.Booking().IsBookingActive())
	field := h.widget.Booking().CurrentField()
	require.NotNil(t, field)
	assert.Equal(t, appointments.FieldPhone, field.Key)
	assert.Contains(t, lastMessage(h.widget).Content, "What's your phone number?")
	assert.Equal(t, "Jane Doe", h.widget.Booking().Draft().OwnerName)
}

func TestLocalBookingDisabled(t *testing.T) {
	h := newHarness(t, false, nil)
	h.say(t, "book an appointment please")
	assert.False(t, h.widget.Booking().IsBookingActive())
}

func TestServerDeclaredBookingFlowIsNotInterrupted(t *testing.T) {
	h := newHarness(t, true, nil)
	h.remote.reply = func(string) *vetapi.ChatReply {
		return &vetapi.ChatReply{Response: "Sure! What's your name?", IsBookingFlow: boolPtr(true)}
	}
	h.say(t, "book an appointment")
	assert.False(t, h.widget.Booking().IsBookingActive(), "server owns the flow")

	h.remote.reply = func(string) *vetapi.ChatReply {
		return &vetapi.ChatReply{Response: "Thanks, Jane.", IsBookingFlow: boolPtr(true)}
	}
	assert.Equal(t, RouteRemote, h.say(t, "Jane"))
	assert.Equal(t, []string{"book an appointment", "Jane"}, h.remote.sends)
}

func TestServerTakeoverCancelsLocalCollection(t *testing.T) {
	h := newHarness(t, true, nil)
	h.remote.reply = func(string) *vetapi.ChatReply {
		return &vetapi.ChatReply{Response: "Let's get you booked.", IsBookingFlow: boolPtr(true)}
	}
	h.say(t, "hello")
	h.widget.Booking().StartBooking(appointments.Draft{})
	require.True(t, h.widget.Booking().IsBookingActive())

	assert.Equal(t, RouteRemote, h.say(t, "Jane"))
	assert.False(t, h.widget.Booking().IsBookingActive())
}

func TestStartLocalBookingRefusedWhileServiceBooks(t *testing.T) {
	h := newHarness(t, true, nil)
	h.remote.reply = func(string) *vetapi.ChatReply {
		return &vetapi.ChatReply{Response: "Sure! What's your name?", IsBookingFlow: boolPtr(true)}
	}
	h.say(t, "book an appointment")

	prompt := h.widget.StartLocalBooking(context.Background(), appointments.Draft{})

	assert.Empty(t, prompt)
	assert.False(t, h.widget.Booking().IsBookingActive())
	assert.Equal(t, remoteBookingNotice, lastMessage(h.widget).Content)

	assert.Equal(t, RouteRemote, h.say(t, "Jane"))
	assert.Equal(t, []string{"book an appointment", "Jane"}, h.remote.sends)
}

func TestFullLocalBooking(t *testing.T) {
	h := newHarness(t, true, nil)
	h.widget.StartLocalBooking(context.Background(), appointments.Draft{})

	for _, answer := range []string{"Jane Doe", "Rex", "415-555-0123", "March 3, 2026", "10:00 AM"} {
		assert.Equal(t, RouteLocal, h.say(t, answer))
	}
	last := lastMessage(h.widget)
	assert.Contains(t, last.Content, "📋 Appointment Details:")
	assert.True(t, strings.HasSuffix(last.Content, "Shall I book this appointment? (yes/no)"))

	h.say(t, "maybe")
	assert.Contains(t, lastMessage(h.widget).Content, "Please reply")

	h.say(t, "yes")
	assert.Equal(t, chat.TypeSystem, lastMessage(h.widget).Type)
	assert.Equal(t, "✅ Your appointment has been booked successfully! (ID: apt-100)", lastMessage(h.widget).Content)
	require.Len(t, h.scheduler.drafts, 1)
	assert.Equal(t, "2026-03-03", h.scheduler.drafts[0].ScheduledDate)
	assert.Equal(t, "10:00", h.scheduler.drafts[0].ScheduledTimeSlot)
	assert.False(t, h.widget.Booking().IsBookingActive())
	assert.Empty(t, h.remote.sends, "local turns never reach the service")

	assert.Equal(t, RouteRemote, h.say(t, "thanks!"))
}

func TestInvalidAnswerIsRepromptedWithoutAdvancing(t *testing.T) {
	h := newHarness(t, true, nil)
	h.widget.StartLocalBooking(context.Background(), appointments.Draft{})

	h.say(t, "J")

	msgs := h.widget.Messages()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, chat.TypeError, msgs[len(msgs)-2].Type)
	assert.Equal(t, "What's your name?", msgs[len(msgs)-1].Content)
	assert.Equal(t, 0, h.widget.Booking().CurrentFieldIndex())
}

func TestSlotTakenRepromptsForTime(t *testing.T) {
	h := newHarness(t, true, &session.Context{UserName: "Jane Doe", PetName: "Rex"})
	calls := 0
	h.scheduler.createFn = func(d appointments.Draft) (*appointments.Appointment, error) {
		calls++
		if calls == 1 {
			return nil, &vetapi.APIError{Status: http.StatusConflict, Message: "Slot unavailable", SlotTaken: true}
		}
		return &appointments.Appointment{ID: "apt-101", Draft: d}, nil
	}
	h.widget.StartLocalBooking(context.Background(), appointments.Draft{})
	h.say(t, "415-555-0123")
	h.say(t, "2026-03-03")
	h.say(t, "9:00 AM")
	h.say(t, "yes")

	msgs := h.widget.Messages()
	assert.Equal(t, chat.TypeError, msgs[len(msgs)-2].Type)
	assert.Equal(t, "What time works best for you? (e.g., 2:00 PM)", msgs[len(msgs)-1].Content)
	require.True(t, h.widget.Booking().IsBookingActive())

	h.say(t, "11:00 AM")
	assert.Contains(t, lastMessage(h.widget).Content, "Shall I book")
	h.say(t, "y")

	assert.Contains(t, lastMessage(h.widget).Content, "apt-101")
	require.Len(t, h.scheduler.drafts, 2)
	assert.Equal(t, "11:00", h.scheduler.drafts[1].ScheduledTimeSlot)
	assert.Equal(t, "Jane Doe", h.scheduler.drafts[1].OwnerName)
}

func TestCancelDuringCollection(t *testing.T) {
	h := newHarness(t, true, nil)
	h.widget.StartLocalBooking(context.Background(), appointments.Draft{})
	h.say(t, "Jane Doe")

	assert.Equal(t, RouteLocal, h.say(t, "Cancel"))
	assert.False(t, h.widget.Booking().IsBookingActive())
	assert.Contains(t, lastMessage(h.widget).Content, "cancelled the booking")
}

func TestDeclineAtConfirmation(t *testing.T) {
	h := newHarness(t, true, &session.Context{UserName: "Jane Doe", PetName: "Rex"})
	h.widget.StartLocalBooking(context.Background(), appointments.Draft{Phone: "415-555-0123", ScheduledDate: "2026-03-03", ScheduledTimeSlot: "09:00"})

	assert.Contains(t, lastMessage(h.widget).Content, "Shall I book", "every field was seeded")
	h.say(t, "no")
	assert.False(t, h.widget.Booking().IsBookingActive())
	assert.Empty(t, h.scheduler.drafts)
}

func TestReset(t *testing.T) {
	h := newHarness(t, true, nil)
	h.widget.Open(context.Background())
	h.widget.StartLocalBooking(context.Background(), appointments.Draft{})

	h.widget.Reset(context.Background(), true)

	assert.False(t, h.widget.Booking().IsBookingActive())
	assert.Len(t, h.widget.Messages(), 1)
	assert.Equal(t, 1, h.remote.resets)
	assert.Equal(t, 1, h.sessions.resets)

	h.widget.Reset(context.Background(), false)
	assert.Equal(t, 1, h.sessions.resets)
}

func TestRouteString(t *testing.T) {
	assert.Equal(t, "local", RouteLocal.String())
	assert.Equal(t, "remote", RouteRemote.String())
	assert.Equal(t, "ignored", RouteIgnored.String())
}
