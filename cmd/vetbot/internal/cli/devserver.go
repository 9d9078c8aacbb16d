package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/wolfman30/vetbot/internal/app/bootstrap"
)

// addDevServerCommand adds the local assistant stub
func (app *App) addDevServerCommand(rootCmd *cobra.Command) {
	devCmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local stand-in for the assistant service",
		Long: `Serve the chat and appointment API from memory with canned replies, for
trying the client without the real service. Point --api-url at
http://localhost:<port>/api.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runDevServer(cmd.Context())
		},
	}
	devCmd.Flags().StringVar(&app.Config.DevServerPort, "port", app.Config.DevServerPort, "Port to listen on")

	rootCmd.AddCommand(devCmd)
}

func (app *App) runDevServer(ctx context.Context) error {
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv := bootstrap.BuildDevServer(app.Config, app.registry, app.logger)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("dev server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info("shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("dev server forced to shutdown", "error", err)
		return err
	}
	app.logger.Info("dev server exited")
	return nil
}
