package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolfman30/vetbot/internal/appointments"
	"github.com/wolfman30/vetbot/internal/booking"
	"github.com/wolfman30/vetbot/internal/dateutil"
)

// errAborted is returned when input ends before the booking completes.
var errAborted = errors.New("vetbot: booking aborted")

// addBookCommand adds the guided booking command
func (app *App) addBookCommand(rootCmd *cobra.Command) {
	var (
		seed appointments.Draft
		yes  bool
	)
	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment step by step",
		Long: `Collect the owner's name, pet's name, phone, date and time, then submit the
appointment. Values passed as flags are used without asking; anything missing or
invalid is asked for interactively. When the chosen time is taken, the open slots
for that date are listed and only the time is asked again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := app.connect(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if uc := rt.Sessions.Context(ctx); uc != nil {
				seed = appointments.Draft{OwnerName: uc.UserName, PetName: uc.PetName}.Overlay(seed)
			}
			return app.runBooking(ctx, rt.Booking, seed, yes)
		},
	}
	bookCmd.Flags().StringVar(&seed.OwnerName, "name", "", "Owner's name")
	bookCmd.Flags().StringVar(&seed.PetName, "pet", "", "Pet's name")
	bookCmd.Flags().StringVar(&seed.Phone, "phone", "", "Contact phone number")
	bookCmd.Flags().StringVar(&seed.Email, "email", "", "Contact email")
	bookCmd.Flags().StringVar(&seed.PetType, "pet-type", "", "Pet type (dog, cat, ...)")
	bookCmd.Flags().StringVar(&seed.ScheduledDate, "date", "", "Preferred date")
	bookCmd.Flags().StringVar(&seed.ScheduledTimeSlot, "time", "", "Preferred time")
	bookCmd.Flags().StringVar(&seed.Service, "service", "", "Service to book")
	bookCmd.Flags().StringVar(&seed.Reason, "reason", "", "Reason for the visit")
	bookCmd.Flags().StringVar(&seed.Notes, "notes", "", "Notes for the clinic")
	bookCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Submit without asking for confirmation")

	rootCmd.AddCommand(bookCmd)
}

func (app *App) runBooking(ctx context.Context, ctrl *booking.Controller, seed appointments.Draft, autoConfirm bool) error {
	in := bufio.NewScanner(app.In)
	ctrl.StartBooking(seed)
	prefill := true

	for {
		switch st := ctrl.State().(type) {
		case booking.CollectingField:
			f := ctrl.CurrentField()
			if v := ctrl.Draft().Get(f.Key); prefill && v != "" && ctrl.CheckCurrent(v).IsValid {
				ctrl.UpdateField(v)
				continue
			}
			app.println(app.Theme.Bot.Render(f.Prompt))
			line, ok := app.ask(in)
			if !ok {
				ctrl.CancelBooking()
				return errAborted
			}
			if res := ctrl.CheckCurrent(line); !res.IsValid {
				app.println(app.Theme.Warning.Render(res.Error))
				continue
			}
			ctrl.UpdateField(line)

		case booking.Confirming:
			app.println(ctrl.Summary())
			if !autoConfirm {
				app.println(app.Theme.Bot.Render("Shall I book this appointment? (yes/no)"))
				line, ok := app.ask(in)
				if !ok || !affirmative(line) {
					ctrl.CancelBooking()
					app.println(app.Theme.Muted.Render("Booking cancelled."))
					return nil
				}
			}
			out := ctrl.ConfirmAppointment(ctx)
			if out.Success {
				app.println(app.Theme.Success.Render(fmt.Sprintf("✅ Appointment booked! (ID: %s)", out.Appointment.ID)))
				return nil
			}
			if err := app.reportRejection(ctx, ctrl, out); err != nil {
				return err
			}

		case booking.Error:
			if ctrl.Retry() == nil {
				return fmt.Errorf("vetbot: booking stuck in %s", st)
			}
			prefill = false

		default:
			return fmt.Errorf("vetbot: unexpected booking state %s", st)
		}
	}
}

// reportRejection prints why a submission failed. It returns an error when
// no collected field can be asked again to fix it.
func (app *App) reportRejection(ctx context.Context, ctrl *booking.Controller, out booking.Outcome) error {
	app.println(app.Theme.Error.Render(out.Message))
	keys := make([]string, 0, len(out.Errors))
	for k := range out.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fixable := false
	for _, k := range keys {
		if k == booking.ErrorKeySubmit {
			continue
		}
		fixable = fixable || asked(k)
		if out.Errors[k] != out.Message {
			app.println(app.Theme.Warning.Render("- " + out.Errors[k]))
		}
	}
	if !fixable {
		ctrl.CancelBooking()
		return fmt.Errorf("vetbot: %s", out.Message)
	}
	if out.SlotTaken {
		app.showOpenSlots(ctx, ctrl, ctrl.Draft().ScheduledDate)
	}
	return nil
}

// asked reports whether key is one of the fields the flow asks for again.
func asked(key string) bool {
	for _, f := range booking.Fields {
		if f.Key == key {
			return true
		}
	}
	return false
}

func (app *App) showOpenSlots(ctx context.Context, ctrl *booking.Controller, date string) {
	if d, err := dateutil.ParseDate(date, time.Local); err == nil {
		date = dateutil.FormatForAPI(d)
	}
	avail := ctrl.AvailableSlots(ctx, date)
	if avail == nil {
		return
	}
	open := avail.Open()
	if len(open) == 0 {
		app.println(app.Theme.Muted.Render("No other times are open that day."))
		return
	}
	labels := make([]string, len(open))
	for i, slot := range open {
		labels[i] = dateutil.FormatTimeSlot(slot)
	}
	app.println(app.Theme.Muted.Render("Open times: " + strings.Join(labels, ", ")))
}

func (app *App) ask(in *bufio.Scanner) (string, bool) {
	app.printf("%s", app.Theme.Label.Render("> "))
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

func affirmative(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "yeah", "yep", "sure", "ok", "confirm":
		return true
	}
	return false
}
