package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/liuran001/LFGBot-Go/bot/lfg"
	"github.com/liuran001/LFGBot-Go/bot/slug"
)

const (
	cmdHelp       = "help"
	cmdAddGame    = "addgame"
	cmdRemoveGame = "removegame"
	cmdLFG        = "lfg"
	cmdMyGames    = "mygames"
	cmdListGames  = "listgames"

	optGame    = "game"
	optMessage = "message"
)

func gameOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         optGame,
		Description:  description,
		Required:     true,
		Autocomplete: true,
		MaxLength:    slug.MaxLength,
	}
}

// commandDefinitions returns the slash commands registered on startup.
func commandDefinitions() []*discordgo.ApplicationCommand {
	dmAllowed := false
	return []*discordgo.ApplicationCommand{
		{
			Name:         cmdHelp,
			Description:  "Explains the bot's function and lists all commands.",
			DMPermission: &dmAllowed,
		},
		{
			Name:         cmdAddGame,
			Description:  "Subscribe to notifications for a specific game.",
			DMPermission: &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				gameOption("The name of the game you want to follow (e.g., Helldivers 2)"),
			},
		},
		{
			Name:         cmdRemoveGame,
			Description:  "Unsubscribe from notifications for a specific game.",
			DMPermission: &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				gameOption("The name of the game you want to unfollow"),
			},
		},
		{
			Name:         cmdLFG,
			Description:  "Ping all subscribers for a specific game to start a group.",
			DMPermission: &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				gameOption("The name of the game you want to play"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optMessage,
					Description: "An optional message for your LFG (e.g., 'Need 2 more')",
					MaxLength:   lfg.MaxMessageLength,
				},
			},
		},
		{
			Name:         cmdMyGames,
			Description:  "List all the games you are currently subscribed to.",
			DMPermission: &dmAllowed,
		},
		{
			Name:         cmdListGames,
			Description:  "List all games that have at least one subscriber.",
			DMPermission: &dmAllowed,
		},
	}
}

// registerCommands replaces the application's commands. With a guild id
// the commands are scoped to that guild and show up immediately.
func (b *Bot) registerCommands() error {
	if b.appID == "" {
		return fmt.Errorf("discord application id unknown")
	}
	created, err := b.session.ApplicationCommandBulkOverwrite(b.appID, b.guildID, commandDefinitions())
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	b.logger.Info("registered slash commands", "count", len(created), "guild_id", b.guildID)
	return nil
}
