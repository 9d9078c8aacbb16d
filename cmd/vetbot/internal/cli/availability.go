package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/vetbot/internal/booking"
	"github.com/wolfman30/vetbot/internal/dateutil"
)

// addAvailabilityCommands adds the schedule lookup commands
func (app *App) addAvailabilityCommands(rootCmd *cobra.Command) {
	var days int
	datesCmd := &cobra.Command{
		Use:   "dates",
		Short: "Upcoming dates with open slots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				dates := ctrl.AvailableDates(cmd.Context(), days)
				if len(dates) == 0 {
					app.println(app.Theme.Muted.Render("No dates available."))
					return nil
				}
				t := app.table("Date", "Day", "Open slots")
				for _, d := range dates {
					t.Row(d.Date, d.DayOfWeek, itoa(d.SlotsAvailable))
				}
				app.println(t.Render())
				return nil
			})
		},
	}
	datesCmd.Flags().IntVar(&days, "days", 14, "Number of days to look ahead")

	slotsCmd := &cobra.Command{
		Use:   "slots <date>",
		Short: "Open times on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := apiDate(args[0])
			if err != nil {
				return err
			}
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				avail := ctrl.AvailableSlots(cmd.Context(), date)
				if avail == nil {
					return errNoData
				}
				open := avail.Open()
				if len(open) == 0 {
					app.println(app.Theme.Muted.Render("No open times on " + date + "."))
					return nil
				}
				labels := make([]string, len(open))
				for i, s := range open {
					labels[i] = dateutil.FormatTimeSlot(s)
				}
				app.println(strings.Join(labels, "\n"))
				return nil
			})
		},
	}

	servicesCmd := &cobra.Command{
		Use:   "services",
		Short: "Services offered by the clinic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withBooking(cmd, func(ctrl *booking.Controller) error {
				catalog := ctrl.Services(cmd.Context())
				if catalog == nil {
					return errNoData
				}
				t := app.table("ID", "Service", "Minutes", "Description")
				for _, s := range catalog.Services {
					t.Row(s.ID, s.Name, itoa(s.DurationMin), s.Description)
				}
				app.println(t.Render())
				if len(catalog.PetTypes) > 0 {
					app.println(app.Theme.Muted.Render("Pet types: " + strings.Join(catalog.PetTypes, ", ")))
				}
				return nil
			})
		},
	}

	rootCmd.AddCommand(datesCmd, slotsCmd, servicesCmd)
}
