package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/wolfman30/vetbot/internal/appointments"
	"github.com/wolfman30/vetbot/internal/booking"
	"github.com/wolfman30/vetbot/internal/dateutil"
)

// errNoData is returned when an operator fetch fails; the cause is logged.
var errNoData = errors.New("vetbot: request failed, see log for details")

// addAppointmentCommands adds the clinic appointment views
func (app *App) addAppointmentCommands(rootCmd *cobra.Command) {
	aptCmd := &cobra.Command{
		Use:     "appointments",
		Aliases: []string{"apt"},
		Short:   "View and manage booked appointments",
	}

	var opts appointments.ListOptions
	var status string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List appointments with filters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" {
				s, ok := appointments.ParseStatus(status)
				if !ok {
					return fmt.Errorf("vetbot: unknown status %q", status)
				}
				opts.Status = s
			}
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				page := ctrl.Appointments(cmd.Context(), opts)
				if page == nil {
					return errNoData
				}
				app.renderAppointments(page.Appointments)
				p := page.Pagination
				app.println(app.Theme.Muted.Render(fmt.Sprintf("page %d of %d (%d total)", p.Page, p.Pages, p.Total)))
				return nil
			})
		},
	}
	listCmd.Flags().IntVar(&opts.Page, "page", 1, "Page number")
	listCmd.Flags().IntVar(&opts.Limit, "limit", 20, "Results per page")
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status")
	listCmd.Flags().StringVar(&opts.Date, "date", "", "Filter by date (yyyy-mm-dd)")
	listCmd.Flags().StringVar(&opts.StartDate, "from", "", "Start of date range")
	listCmd.Flags().StringVar(&opts.EndDate, "to", "", "End of date range")
	listCmd.Flags().StringVar(&opts.Search, "search", "", "Search owner, pet or phone")
	listCmd.Flags().StringVar(&opts.SortBy, "sort", "", "Sort field")
	listCmd.Flags().StringVar(&opts.SortOrder, "order", "", "Sort order (asc, desc)")

	todayCmd := &cobra.Command{
		Use:   "today",
		Short: "Appointments scheduled for today",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				app.renderAppointments(ctrl.Today(cmd.Context()))
				return nil
			})
		},
	}

	var upcomingLimit int
	upcomingCmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Next scheduled appointments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				app.renderAppointments(ctrl.Upcoming(cmd.Context(), upcomingLimit))
				return nil
			})
		},
	}
	upcomingCmd.Flags().IntVar(&upcomingLimit, "limit", 10, "Maximum results")

	onCmd := &cobra.Command{
		Use:   "on <date>",
		Short: "Appointments on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := apiDate(args[0])
			if err != nil {
				return err
			}
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				app.renderAppointments(ctrl.ByDate(cmd.Context(), date))
				return nil
			})
		},
	}

	mineCmd := &cobra.Command{
		Use:   "mine",
		Short: "Appointments booked from this session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				app.renderAppointments(ctrl.SessionAppointments(cmd.Context()))
				return nil
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				apt := ctrl.Appointment(cmd.Context(), args[0])
				if apt == nil {
					return errNoData
				}
				app.renderAppointment(*apt)
				return nil
			})
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Dashboard counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				stats := ctrl.Stats(cmd.Context())
				if stats == nil {
					return errNoData
				}
				t := app.table("Total", "Today", "Upcoming", "Pending", "Confirmed", "Cancelled", "Completed").
					Row(itoa(stats.Total), itoa(stats.Today), itoa(stats.Upcoming), itoa(stats.Pending),
						itoa(stats.Confirmed), itoa(stats.Cancelled), itoa(stats.Completed))
				app.println(t.Render())
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change an appointment's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := appointments.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("vetbot: unknown status %q", args[1])
			}
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				apt, ok := ctrl.UpdateStatus(cmd.Context(), args[0], s)
				if !ok {
					return errNoData
				}
				app.renderAppointment(*apt)
				return nil
			})
		},
	}

	var reason string
	cancelCmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				apt, ok := ctrl.CancelAppointment(cmd.Context(), args[0], reason)
				if !ok {
					return errNoData
				}
				app.renderAppointment(*apt)
				return nil
			})
		},
	}
	cancelCmd.Flags().StringVar(&reason, "reason", "", "Cancellation reason")

	var edit appointments.Draft
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an appointment's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				current := ctrl.Appointment(cmd.Context(), args[0])
				if current == nil {
					return errNoData
				}
				apt, ok := ctrl.UpdateAppointment(cmd.Context(), args[0], current.Draft.Overlay(edit))
				if !ok {
					return errNoData
				}
				app.renderAppointment(*apt)
				return nil
			})
		},
	}
	updateCmd.Flags().StringVar(&edit.OwnerName, "name", "", "Owner's name")
	updateCmd.Flags().StringVar(&edit.PetName, "pet", "", "Pet's name")
	updateCmd.Flags().StringVar(&edit.Phone, "phone", "", "Contact phone number")
	updateCmd.Flags().StringVar(&edit.ScheduledDate, "date", "", "New date")
	updateCmd.Flags().StringVar(&edit.ScheduledTimeSlot, "time", "", "New time")
	updateCmd.Flags().StringVar(&edit.Notes, "notes", "", "Notes for the clinic")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				if !ctrl.DeleteAppointment(cmd.Context(), args[0]) {
					return errNoData
				}
				app.println(app.Theme.Success.Render("Deleted " + args[0]))
				return nil
			})
		},
	}

	aptCmd.AddCommand(listCmd, todayCmd, upcomingCmd, onCmd, mineCmd, showCmd, statsCmd, statusCmd, cancelCmd, updateCmd, deleteCmd)
	rootCmd.AddCommand(aptCmd)
}

// withBooking runs fn against a connected booking controller.
func (app *App) withBooking(cmd *cobra.Command, fn func(*booking.Controller) error) error {
	rt, err := app.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt.Booking)
}

func (app *App) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(app.Theme.Muted).
		Headers(headers...)
}

func (app *App) renderAppointments(list []appointments.Appointment) {
	if len(list) == 0 {
		app.println(app.Theme.Muted.Render("No appointments."))
		return
	}
	t := app.table("ID", "Date", "Time", "Owner", "Pet", "Phone", "Status")
	for _, a := range list {
		t.Row(a.ID, a.ScheduledDate, dateutil.FormatTimeSlot(a.ScheduledTimeSlot), a.OwnerName, a.PetName, a.Phone, string(a.Status))
	}
	app.println(t.Render())
}

func (app *App) renderAppointment(a appointments.Appointment) {
	rows := [][]string{
		{"ID", a.ID},
		{"Status", string(a.Status)},
		{"Owner", a.OwnerName},
		{"Pet", a.PetName + " (" + a.PetType + ")"},
		{"Phone", a.Phone},
		{"Date", a.ScheduledDate},
		{"Time", dateutil.FormatTimeSlot(a.ScheduledTimeSlot)},
		{"Service", a.Service},
	}
	if a.Reason != "" {
		rows = append(rows, []string{"Reason", a.Reason})
	}
	if a.Notes != "" {
		rows = append(rows, []string{"Notes", a.Notes})
	}
	if a.CancellationReason != "" {
		rows = append(rows, []string{"Cancelled", a.CancellationReason})
	}
	for _, r := range rows {
		app.printf("%s %s\n", app.Theme.Label.Render(fmt.Sprintf("%-10s", r[0]+":")), r[1])
	}
}

// apiDate accepts any supported date spelling and returns yyyy-mm-dd.
func apiDate(raw string) (string, error) {
	d, err := dateutil.ParseDate(raw, time.Local)
	if err != nil {
		return "", fmt.Errorf("vetbot: %w", err)
	}
	return dateutil.FormatForAPI(d), nil
}

func itoa(n int) string { return strconv.Itoa(n) }
