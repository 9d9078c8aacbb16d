// Package cli provides command-line interface setup for vetbot.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wolfman30/vetbot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/vetbot/internal/config"
	"github.com/wolfman30/vetbot/internal/observability/metrics"
	"github.com/wolfman30/vetbot/internal/session"
	"github.com/wolfman30/vetbot/pkg/logging"
)

// App represents the vetbot CLI application
type App struct {
	Config *appconfig.Config
	Theme  Theme

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Storage overrides the configured session backend when set.
	Storage session.Storage

	noColor  bool
	registry *prometheus.Registry
	metrics  *metrics.ClientMetrics
	logger   *logging.Logger
}

// NewApp creates a new vetbot CLI application
func NewApp(cfg *appconfig.Config) *App {
	if cfg == nil {
		cfg = appconfig.Load()
	}
	reg := prometheus.NewRegistry()
	return &App{
		Config:   cfg,
		Theme:    DefaultTheme(),
		In:       os.Stdin,
		Out:      os.Stdout,
		Err:      os.Stderr,
		registry: reg,
		metrics:  metrics.NewClientMetrics(reg),
	}
}

// CreateRootCommand creates and configures the root command
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vetbot",
		Short: "Chat with the veterinary assistant and book appointments",
		Long: `vetbot is a terminal client for the veterinary assistant service. It keeps a
durable session, replays conversation history, collects booking details step by
step and exposes the clinic's appointment views.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if app.noColor {
				app.Theme = PlainTheme()
			}
			app.logger = logging.NewWithWriter(app.Config.LogLevel, app.Err)
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&app.Config.APIBaseURL, "api-url", app.Config.APIBaseURL, "Assistant service base URL")
	rootCmd.PersistentFlags().StringVar(&app.Config.StorageBackend, "storage", app.Config.StorageBackend, "Session storage backend (memory, file, redis)")
	rootCmd.PersistentFlags().StringVar(&app.Config.StoragePath, "storage-path", app.Config.StoragePath, "Session file for the file backend")
	rootCmd.PersistentFlags().StringVar(&app.Config.LogLevel, "log-level", app.Config.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&app.noColor, "no-color", false, "Disable colored output")

	// Add all subcommands
	app.addChatCommand(rootCmd)
	app.addBookCommand(rootCmd)
	app.addAppointmentCommands(rootCmd)
	app.addAvailabilityCommands(rootCmd)
	app.addSessionCommands(rootCmd)
	app.addDevServerCommand(rootCmd)

	return rootCmd
}

// connect wires the client stack for one command run.
func (app *App) connect(ctx context.Context) (*bootstrap.Runtime, error) {
	if app.logger == nil {
		app.logger = logging.NewWithWriter(app.Config.LogLevel, app.Err)
	}
	rt, err := bootstrap.BuildRuntime(ctx, app.Config, app.Storage, app.metrics, app.logger)
	if err != nil {
		return nil, fmt.Errorf("vetbot: %w", err)
	}
	return rt, nil
}

func (app *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(app.Out, format, args...)
}

func (app *App) println(s string) {
	_, _ = fmt.Fprintln(app.Out, s)
}
