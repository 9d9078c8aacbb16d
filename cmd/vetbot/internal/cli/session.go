package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wolfman30/vetbot/internal/session"
)

// addSessionCommands adds commands for the durable session scope
func (app *App) addSessionCommands(rootCmd *cobra.Command) {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the stored session",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the session id and visitor context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := app.connect(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			app.printSession(rt.Sessions.SessionID(ctx), rt.Sessions.Context(ctx))
			return nil
		},
	}

	var patch session.Context
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update the stored visitor context",
		Long:  `Update the visitor context. Only the flags given are changed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if patch.IsZero() {
				return fmt.Errorf("vetbot: nothing to update")
			}
			ctx := cmd.Context()
			rt, err := app.connect(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			merged := rt.Sessions.UpdateContext(ctx, patch)
			app.printSession(rt.Sessions.SessionID(ctx), &merged)
			return nil
		},
	}
	setCmd.Flags().StringVar(&patch.UserID, "user-id", "", "Visitor id")
	setCmd.Flags().StringVar(&patch.UserName, "name", "", "Visitor name")
	setCmd.Flags().StringVar(&patch.PetName, "pet", "", "Pet name")
	setCmd.Flags().StringVar(&patch.Source, "source", "", "Where the visitor came from")

	var remote bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the session id and visitor context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := app.connect(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if remote {
				if err := rt.Client.ResetSession(ctx); err != nil {
					return fmt.Errorf("vetbot: reset remote session: %w", err)
				}
			}
			rt.Sessions.Reset(ctx)
			app.println(app.Theme.Success.Render("Session reset."))
			return nil
		},
	}
	resetCmd.Flags().BoolVar(&remote, "remote", false, "Also clear the conversation on the service")

	sessionCmd.AddCommand(showCmd, setCmd, resetCmd)
	rootCmd.AddCommand(sessionCmd)
}

func (app *App) printSession(id string, uc *session.Context) {
	app.printf("%s %s\n", app.Theme.Label.Render("session:"), id)
	if uc == nil {
		app.println(app.Theme.Muted.Render("no visitor context"))
		return
	}
	for _, kv := range [][2]string{
		{"user id", uc.UserID},
		{"name", uc.UserName},
		{"pet", uc.PetName},
		{"source", uc.Source},
	} {
		if kv[1] != "" {
			app.printf("%s %s\n", app.Theme.Label.Render(kv[0]+":"), kv[1])
		}
	}
}
