package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/liuran001/LFGBot-Go/bot/app"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the configured chat platforms and serve commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		application, err := app.New(ctx, configFile, build)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}

		runErr := application.Run(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := application.Shutdown(shutdownCtx); err != nil && runErr == nil {
			return err
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	// A bare "lfgbot" starts the bot.
	rootCmd.RunE = runCmd.RunE
}
