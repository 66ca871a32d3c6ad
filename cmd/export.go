package cmd

import (
	"fmt"
	"time"

	"github.com/liuran001/LFGBot-Go/bot/app"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <server-id>",
	Short: "Print every subscription of a server as game, user and created_at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := app.NewCore(cmd.Context(), configFile)
		if err != nil {
			return err
		}
		defer core.Close()

		subs, err := core.Store.Subscriptions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range subs {
			fmt.Fprintf(out, "%s\t%s\t%s\n", s.Game, s.UserID, s.CreatedAt.UTC().Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
