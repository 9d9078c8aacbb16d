package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/vetbot/internal/observability/metrics"
	"github.com/wolfman30/vetbot/internal/session"
	"github.com/wolfman30/vetbot/internal/vetapi"
	"github.com/wolfman30/vetbot/pkg/logging"
)

const (
	defaultHistoryLimit = 50
	defaultWelcome      = "Hello! I'm your virtual veterinary assistant. I can help you with pet care questions, vaccination schedules, diet and nutrition advice, and booking vet appointments. How can I help you today?"
	genericFailure      = "Sorry, I encountered an error. Please try again."
)

// ErrClosed is returned by SendMessage after Close.
var ErrClosed = errors.New("chat: engine closed")

// Assistant is the remote conversation service. *vetapi.Client satisfies it.
type Assistant interface {
	InitSession(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, message string) (*vetapi.ChatReply, error)
	History(ctx context.Context, limit int) ([]vetapi.HistoryMessage, error)
	ResetSession(ctx context.Context) error
}

// ContextSource provides the visitor context used to personalize greetings.
type ContextSource interface {
	Context(ctx context.Context) *session.Context
}

// Options tunes an Engine.
type Options struct {
	WelcomeMessage string
	HistoryLimit   int
	Logger         *logging.Logger
	Metrics        *metrics.ClientMetrics
	Now            func() time.Time
}

// Engine owns the transcript of one conversation. Only the most recently
// issued send may write its result to the transcript.
type Engine struct {
	client       Assistant
	contexts     ContextSource
	welcome      string
	historyLimit int
	logger       *logging.Logger
	metrics      *metrics.ClientMetrics
	now          func() time.Time

	mu           sync.Mutex
	messages     []Message
	loading      bool
	lastErr      error
	bookingFlow  bool
	initialized  bool
	initializing bool
	closed       bool
	inflight     *pendingSend
	// generation advances on every ClearChat.
	generation uint64
}

// pendingSend is compared by identity when a response returns.
type pendingSend struct {
	cancel context.CancelFunc
}

// NewEngine builds an Engine. contexts may be nil, in which case greetings are
// never personalized.
func NewEngine(client Assistant, contexts ContextSource, opts Options) *Engine {
	if client == nil {
		panic("chat: assistant client is nil")
	}
	if strings.TrimSpace(opts.WelcomeMessage) == "" {
		opts.WelcomeMessage = defaultWelcome
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		client:       client,
		contexts:     contexts,
		welcome:      opts.WelcomeMessage,
		historyLimit: opts.HistoryLimit,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
}

// InitializeChat seeds the transcript with a greeting and replays stored
// history. It runs once per engine; later calls return immediately. Remote
// failures fall back to the local greeting and are never surfaced.
func (e *Engine) InitializeChat(ctx context.Context) {
	e.mu.Lock()
	if e.initialized || e.initializing || e.closed {
		e.mu.Unlock()
		return
	}
	e.initializing = true
	e.loading = true
	e.mu.Unlock()

	greeting, err := e.client.InitSession(ctx)
	if err != nil {
		e.logger.Debug("chat: init session failed, using local greeting", "error", err)
	}
	if err != nil || strings.TrimSpace(greeting) == "" {
		greeting = e.localGreeting(ctx)
	}

	e.mu.Lock()
	welcome := newMessage(e.now(), greeting, TypeBot)
	e.messages = []Message{welcome}
	e.initialized = true
	e.initializing = false
	e.loading = false
	gen := e.generation
	e.mu.Unlock()

	history, err := e.client.History(ctx, e.historyLimit)
	if err != nil {
		e.logger.Debug("chat: history unavailable", "error", err)
		return
	}
	if len(history) == 0 {
		return
	}

	replayed := make([]Message, 0, len(history))
	for _, h := range history {
		kind := TypeBot
		if h.Role == "user" {
			kind = TypeUser
		}
		msg := newMessage(e.now(), h.Content, kind)
		if !h.Timestamp.IsZero() {
			msg.Timestamp = h.Timestamp
		}
		replayed = append(replayed, msg)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.generation != gen {
		return
	}
	if len(e.messages) == 0 || e.messages[0].ID != welcome.ID {
		return
	}
	// History replaces the greeting; turns added during the fetch stay after it.
	e.messages = append(replayed, e.messages[1:]...)
}

// SendMessage appends the user's text and forwards it to the assistant. A send
// issued while another is in flight cancels the earlier one; cancelled or
// superseded sends return (nil, nil) and leave no trace beyond their user
// message. Other failures are appended as an error message, recorded in Err
// and returned.
func (e *Engine) SendMessage(ctx context.Context, content string) (*vetapi.ChatReply, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, nil
	}

	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := &pendingSend{cancel: cancel}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if e.inflight != nil {
		e.inflight.cancel()
		e.metrics.ObserveSuperseded()
	}
	e.inflight = p
	e.messages = append(e.messages, newMessage(e.now(), text, TypeUser))
	e.loading = true
	e.lastErr = nil
	e.mu.Unlock()

	reply, err := e.client.SendMessage(sendCtx, text)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight != p {
		e.logger.Debug("chat: discarding superseded response")
		return nil, nil
	}
	e.inflight = nil
	e.loading = false

	if err != nil {
		if errors.Is(err, context.Canceled) && sendCtx.Err() != nil {
			return nil, nil
		}
		e.lastErr = err
		e.messages = append(e.messages, newMessage(e.now(), failureText(err), TypeError))
		e.logger.Warn("chat: send failed", "error", err)
		return nil, fmt.Errorf("chat: send message: %w", err)
	}

	e.bookingFlow = reply.BookingFlow()
	bot := newMessage(e.now(), reply.Response, TypeBot)
	bot.IsBookingFlow = reply.IsBookingFlow
	bot.IsBookingComplete = reply.IsBookingComplete
	bot.AppointmentID = reply.AppointmentID
	e.messages = append(e.messages, bot)

	if reply.IsBookingComplete && reply.AppointmentID != "" {
		e.messages = append(e.messages, newMessage(e.now(),
			fmt.Sprintf("✅ Your appointment has been booked successfully! (ID: %s)", reply.AppointmentID), TypeSystem))
	}
	return reply, nil
}

// ClearChat resets the remote session on a best-effort basis and restarts the
// transcript from a single greeting. Any in-flight send is cancelled.
func (e *Engine) ClearChat(ctx context.Context) {
	if err := e.client.ResetSession(ctx); err != nil {
		e.logger.Debug("chat: reset session failed", "error", err)
	}
	greeting := e.localGreeting(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight != nil {
		e.inflight.cancel()
		e.inflight = nil
	}
	e.generation++
	e.messages = []Message{newMessage(e.now(), greeting, TypeBot)}
	e.loading = false
	e.lastErr = nil
	e.bookingFlow = false
}

// AddSystemMessage appends a system notice.
func (e *Engine) AddSystemMessage(content string) Message {
	return e.add(content, TypeSystem)
}

// AddUserMessage appends a user turn that is handled locally.
func (e *Engine) AddUserMessage(content string) Message {
	return e.add(strings.TrimSpace(content), TypeUser)
}

// AddBotMessage appends a locally produced assistant turn.
func (e *Engine) AddBotMessage(content string) Message {
	return e.add(content, TypeBot)
}

// AddErrorMessage appends an error notice without touching Err.
func (e *Engine) AddErrorMessage(content string) Message {
	return e.add(content, TypeError)
}

func (e *Engine) add(content string, kind MessageType) Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	msg := newMessage(e.now(), content, kind)
	e.messages = append(e.messages, msg)
	return msg
}

// Close cancels any in-flight send. Later sends fail with ErrClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.inflight != nil {
		e.inflight.cancel()
		e.inflight = nil
	}
	e.loading = false
}

// Messages returns a copy of the transcript.
func (e *Engine) Messages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.messages))
	copy(out, e.messages)
	return out
}

func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Err returns the failure of the most recent send, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// BookingFlow reports whether the service declared a booking flow on its last reply.
func (e *Engine) BookingFlow() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bookingFlow
}

func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Busy reports whether a send is in flight. Input surfaces use it to hold
// new messages until the current one resolves.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight != nil
}

func (e *Engine) localGreeting(ctx context.Context) string {
	var uc *session.Context
	if e.contexts != nil {
		uc = e.contexts.Context(ctx)
	}
	return Greeting(uc, e.welcome)
}

func failureText(err error) string {
	if apiErr, ok := vetapi.AsAPIError(err); ok {
		if strings.TrimSpace(apiErr.Message) != "" {
			return apiErr.Message
		}
		if len(apiErr.ValidationErrors) > 0 && apiErr.ValidationErrors[0].Message != "" {
			return apiErr.ValidationErrors[0].Message
		}
	}
	return genericFailure
}
