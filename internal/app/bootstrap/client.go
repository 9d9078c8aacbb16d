package bootstrap

import (
	"context"
	"fmt"

	"github.com/wolfman30/vetbot/internal/assistant"
	"github.com/wolfman30/vetbot/internal/booking"
	"github.com/wolfman30/vetbot/internal/chat"
	appconfig "github.com/wolfman30/vetbot/internal/config"
	"github.com/wolfman30/vetbot/internal/observability/metrics"
	"github.com/wolfman30/vetbot/internal/session"
	"github.com/wolfman30/vetbot/internal/vetapi"
	"github.com/wolfman30/vetbot/pkg/logging"
)

// Runtime is the assembled client: session scope, remote client, engine,
// booking controller and the widget routing between them.
type Runtime struct {
	Sessions *session.Manager
	Client   *vetapi.Client
	Engine   *chat.Engine
	Booking  *booking.Controller
	Widget   *assistant.Widget
	Metrics  *metrics.ClientMetrics

	closeStorage func() error
}

// HostContext converts the configured embedding context into a session context.
func HostContext(cfg *appconfig.Config) session.Context {
	if cfg == nil || !cfg.HasHostContext() {
		return session.Context{}
	}
	return session.Context{
		UserID:   cfg.UserID,
		UserName: cfg.UserName,
		PetName:  cfg.PetName,
		Source:   cfg.Source,
	}
}

// BuildRuntime wires the client stack. storage may be nil, in which case the
// backend named by the config is opened. m may be nil to skip metrics.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, storage session.Storage, m *metrics.ClientMetrics, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	closeStorage := func() error { return nil }
	if storage == nil {
		var err error
		storage, closeStorage, err = BuildStorage(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	sessions := session.NewManager(storage, session.Options{
		SessionKey: cfg.SessionKey,
		ContextKey: cfg.ContextKey,
		Host:       session.StaticHost(HostContext(cfg)),
		Logger:     logger,
	})
	client, err := vetapi.NewClient(vetapi.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Logger:  logger,
		Metrics: m,
	}, sessions)
	if err != nil {
		_ = closeStorage()
		return nil, fmt.Errorf("bootstrap: build client: %w", err)
	}

	engine := chat.NewEngine(client, sessions, chat.Options{
		WelcomeMessage: cfg.WelcomeMessage,
		HistoryLimit:   cfg.HistoryLimit,
		Logger:         logger,
		Metrics:        m,
	})
	controller := booking.NewController(client, booking.Options{Logger: logger, Metrics: m})
	widget := assistant.New(engine, controller, sessions, assistant.Options{
		LocalBooking: cfg.LocalBooking,
		Logger:       logger,
	})

	logger.Info("vetbot client ready",
		"api", cfg.APIBaseURL,
		"storage", cfg.StorageBackend,
		"local_booking", cfg.LocalBooking,
	)
	return &Runtime{
		Sessions:     sessions,
		Client:       client,
		Engine:       engine,
		Booking:      controller,
		Widget:       widget,
		Metrics:      m,
		closeStorage: closeStorage,
	}, nil
}

// Close cancels any in-flight chat request and releases the storage backend.
func (r *Runtime) Close() error {
	r.Widget.Close()
	return r.closeStorage()
}
