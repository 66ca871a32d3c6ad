package cmd

import (
	"fmt"

	"github.com/liuran001/LFGBot-Go/bot/app"
	"github.com/liuran001/LFGBot-Go/bot/lfg"
	"github.com/spf13/cobra"
)

// serverRequest is a command request made by the operator on behalf of a
// server.
type serverRequest struct {
	server string
}

func (r serverRequest) ServerID() string { return r.server }
func (r serverRequest) UserID() string   { return "cli" }

var suggestLimit int

var suggestCmd = &cobra.Command{
	Use:   "suggest <server-id> [partial]",
	Short: "Print autocomplete suggestions for a server",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := app.NewCore(cmd.Context(), configFile)
		if err != nil {
			return err
		}
		defer core.Close()

		partial := ""
		if len(args) == 2 {
			partial = args[1]
		}
		limit := suggestLimit
		if limit <= 0 {
			limit = core.Settings.SuggestLimit
		}
		seq, err := core.Service.Suggest(cmd.Context(), serverRequest{server: args[0]}, partial, limit)
		if err != nil {
			return err
		}
		for s := range seq {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

var listGamesCmd = &cobra.Command{
	Use:   "listgames <server-id>",
	Short: "Print the games with subscribers in a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := app.NewCore(cmd.Context(), configFile)
		if err != nil {
			return err
		}
		defer core.Close()

		counts, err := core.Service.ListGames(cmd.Context(), serverRequest{server: args[0]})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), lfg.ListGamesText(lfg.PlainMarkup{}, counts))
		return nil
	},
}

func init() {
	suggestCmd.Flags().IntVarP(&suggestLimit, "limit", "n", 0, "maximum suggestions (default SuggestLimit from config)")
	rootCmd.AddCommand(suggestCmd, listGamesCmd)
}
