package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/liuran001/LFGBot-Go/bot/app"
	"github.com/spf13/cobra"
)

var (
	configFile string
	build      app.BuildInfo
)

var rootCmd = &cobra.Command{
	Use:           "lfgbot [flags]",
	Short:         "Looking-for-group subscription bot for Discord and Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line with a context cancelled on SIGINT or
// SIGTERM.
func Execute(info app.BuildInfo) {
	build = info

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.ini", "config file (.ini, .yaml, .toml or .json)")
}
