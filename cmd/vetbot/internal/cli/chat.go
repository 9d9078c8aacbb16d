package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/vetbot/internal/app/bootstrap"
	"github.com/wolfman30/vetbot/internal/appointments"
	"github.com/wolfman30/vetbot/internal/chat"
)

const chatHelp = `Commands:
  /book     start booking an appointment
  /summary  show the booking details collected so far
  /reset    clear the conversation (keeps your session)
  /new      clear the conversation and start a new session
  /quit     leave`

// addChatCommand adds the interactive chat command
func (app *App) addChatCommand(rootCmd *cobra.Command) {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Open the assistant in the terminal. The previous conversation for this session
is replayed when the service still has it. Booking details can be collected
locally; type /help for the available commands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := app.connect(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			stop := app.serveMetrics()
			defer stop()

			return app.runChat(ctx, rt)
		},
	}
	chatCmd.Flags().BoolVar(&app.Config.LocalBooking, "local-booking", app.Config.LocalBooking, "Collect booking details locally when the service does not")

	rootCmd.AddCommand(chatCmd)
}

// serveMetrics exposes client metrics while a long-running command is active.
func (app *App) serveMetrics() func() {
	srv := bootstrap.BuildMetricsServer(app.Config.MetricsAddr, app.registry)
	if srv == nil {
		return func() {}
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Warn("metrics server error", "error", err)
		}
	}()
	return func() { _ = srv.Close() }
}

func (app *App) runChat(ctx context.Context, rt *bootstrap.Runtime) error {
	w := rt.Widget
	view := &transcript{theme: app.Theme, out: app.println}

	w.Open(ctx)
	view.flush(w.Messages(), false)
	app.println(app.Theme.Muted.Render("Type /help for commands."))

	lines, readErr := readLines(ctx, app.In)
	for {
		app.printf("%s", app.Theme.Label.Render("you> "))
		var line string
		select {
		case <-ctx.Done():
			app.println("")
			return nil
		case raw, ok := <-lines:
			if !ok {
				return *readErr
			}
			line = strings.TrimSpace(raw)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			app.println(app.Theme.Muted.Render(chatHelp))
			continue
		case "/book":
			w.StartLocalBooking(ctx, appointments.Draft{})
		case "/summary":
			if !w.Booking().IsBookingActive() {
				app.println(app.Theme.Muted.Render("No booking in progress."))
				continue
			}
			app.println(w.Booking().Summary())
			continue
		case "/reset":
			w.Reset(ctx, false)
			view.flush(w.Messages(), false)
			continue
		case "/new":
			w.Reset(ctx, true)
			view.flush(w.Messages(), false)
			continue
		default:
			route, err := w.Handle(ctx, line)
			if err != nil {
				app.logger.Debug("chat turn failed", "route", route.String(), "error", err)
			}
		}
		view.flush(w.Messages(), true)
	}
}

// readLines feeds in line by line so a blocked read never holds up shutdown.
// The reader stops once ctx is done. The error is valid once the channel is
// closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, *error) {
	out := make(chan string)
	var err error
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(in)
		for ctx.Err() == nil && scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err = scanner.Err()
	}()
	return out, &err
}

// transcript prints engine messages incrementally. A transcript that no
// longer extends what was printed (clear, replay) is printed from the start.
type transcript struct {
	theme  Theme
	out    func(string)
	shown  int
	lastID string
}

func (t *transcript) flush(msgs []chat.Message, skipUser bool) {
	if t.shown > len(msgs) || (t.shown > 0 && msgs[t.shown-1].ID != t.lastID) {
		t.shown = 0
		skipUser = false
	}
	for _, m := range msgs[t.shown:] {
		if skipUser && m.Type == chat.TypeUser {
			continue
		}
		t.out(t.theme.RenderMessage(m))
	}
	t.shown = len(msgs)
	if t.shown > 0 {
		t.lastID = msgs[t.shown-1].ID
	}
}
