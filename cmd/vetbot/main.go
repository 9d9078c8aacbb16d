// Package main provides the vetbot CLI: a terminal front end for the
// veterinary assistant, its booking flow and the clinic's appointment views.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wolfman30/vetbot/cmd/vetbot/internal/cli"
	appconfig "github.com/wolfman30/vetbot/internal/config"
)

func main() {
	// Best effort; a missing .env is normal outside development.
	_ = godotenv.Load()

	app := cli.NewApp(appconfig.Load())
	rootCmd := app.CreateRootCommand()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
