package discord

import (
	"context"
	"iter"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/liuran001/LFGBot-Go/bot/lfg"
	"github.com/liuran001/LFGBot-Go/bot/slug"
)

const (
	// maxChoices is Discord's limit for autocomplete results.
	maxChoices = 25

	threadArchiveMinutes = 1440
	maxThreadName        = 100
	maxChoiceName        = 100
)

var markup = Markup{}

// interactionRequest adapts an interaction to lfg.Request.
type interactionRequest struct {
	i *discordgo.Interaction
}

func (r interactionRequest) ServerID() string { return r.i.GuildID }

func (r interactionRequest) UserID() string {
	if r.i.Member != nil && r.i.Member.User != nil {
		return r.i.Member.User.ID
	}
	if r.i.User != nil {
		return r.i.User.ID
	}
	return ""
}

func (b *Bot) dispatch(ctx context.Context, i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(ctx, i)
	}
}

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	req := interactionRequest{i}
	logger := b.logger.With("command", data.Name, "guild_id", i.GuildID, "user_id", req.UserID())
	logger.Debug("received command")

	if i.GuildID == "" {
		b.respond(i, "LFG commands only work inside a server.", true)
		return
	}

	switch data.Name {
	case cmdHelp:
		b.respond(i, lfg.HelpText(markup), true)
	case cmdAddGame:
		b.private(i, func() (string, error) {
			game, err := b.service.AddGame(ctx, req, stringOption(data.Options, optGame))
			if err != nil {
				return "", err
			}
			return lfg.SubscribedText(markup, game), nil
		})
	case cmdRemoveGame:
		b.private(i, func() (string, error) {
			game, err := b.service.RemoveGame(ctx, req, stringOption(data.Options, optGame))
			if err != nil {
				return "", err
			}
			return lfg.UnsubscribedText(markup, game), nil
		})
	case cmdMyGames:
		b.private(i, func() (string, error) {
			games, err := b.service.MyGames(ctx, req)
			if err != nil {
				return "", err
			}
			return lfg.MyGamesText(markup, games), nil
		})
	case cmdListGames:
		b.private(i, func() (string, error) {
			counts, err := b.service.ListGames(ctx, req)
			if err != nil {
				return "", err
			}
			return lfg.ListGamesText(markup, counts), nil
		})
	case cmdLFG:
		b.handleLFG(ctx, i, req, data)
	default:
		logger.Warn("unknown command")
	}
}

// private defers an ephemeral reply, runs fn and edits the reply with its
// result or the user-facing error.
func (b *Bot) private(i *discordgo.Interaction, fn func() (string, error)) {
	if err := b.deferReply(i, true); err != nil {
		return
	}
	text, err := fn()
	if err != nil {
		b.logCommandError(i, err)
		text = lfg.UserMessage(markup, err)
	}
	b.edit(i, text)
}

// handleLFG answers publicly, opens a thread on the answer and pings the
// subscribers inside it.
func (b *Bot) handleLFG(ctx context.Context, i *discordgo.Interaction, req interactionRequest, data discordgo.ApplicationCommandInteractionData) {
	if err := b.deferReply(i, false); err != nil {
		return
	}

	call, err := b.service.StartLFG(ctx, req, stringOption(data.Options, optGame), stringOption(data.Options, optMessage))
	if err != nil {
		b.logCommandError(i, err)
		b.edit(i, lfg.UserMessage(markup, err))
		return
	}

	msg := b.edit(i, lfg.AnnounceText(markup, call))
	if msg == nil {
		var getErr error
		msg, getErr = b.session.InteractionResponse(i)
		if getErr != nil {
			b.logger.Error("fetch lfg response failed", "interaction_id", i.ID, "error", getErr)
			return
		}
	}

	thread, err := b.session.MessageThreadStart(i.ChannelID, msg.ID, truncate(call.ThreadName, maxThreadName), threadArchiveMinutes)
	if err != nil {
		// Post in the channel instead so the pings still go out.
		b.logger.Error("start lfg thread failed", "channel_id", i.ChannelID, "game", call.Game, "error", err)
		b.sendCall(i.ChannelID, call)
		return
	}
	b.sendCall(thread.ID, call)
}

// Discord rejects message content over 2000 characters and ignores
// allowed user mentions past 100.
var callLimits = lfg.MessageLimits{MaxRunes: 2000, MaxMentions: 100}

func (b *Bot) sendCall(channelID string, call *lfg.Call) {
	msgs := lfg.CallMessages(markup, call, callLimits)
	for n, msg := range msgs {
		_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content: msg.Text,
			AllowedMentions: &discordgo.MessageAllowedMentions{
				Users: slices.Clone(msg.Ping),
			},
		})
		if err != nil {
			b.logger.Error("send lfg call failed", "channel_id", channelID, "game", call.Game, "part", n+1, "parts", len(msgs), "error", err)
			return
		}
	}
	b.logger.Info("lfg call sent", "channel_id", channelID, "game", call.Game, "pinged", len(call.Ping), "parts", len(msgs))
}

func (b *Bot) handleAutocomplete(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	partial := ""
	for _, opt := range data.Options {
		if opt.Focused && opt.Type == discordgo.ApplicationCommandOptionString {
			partial = opt.StringValue()
			break
		}
	}

	choices := []*discordgo.ApplicationCommandOptionChoice{}
	if i.GuildID != "" {
		seq, err := b.service.Suggest(ctx, interactionRequest{i}, partial, b.suggestLimit)
		if err != nil {
			b.logger.Warn("autocomplete failed", "guild_id", i.GuildID, "error", err)
		} else {
			choices = gameChoices(seq)
		}
	}

	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		b.logger.Warn("autocomplete respond failed", "interaction_id", i.ID, "error", err)
	}
}

// gameChoices renders slugs as choices named by their display form.
func gameChoices(seq iter.Seq[string]) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxChoices)
	for s := range seq {
		if len(choices) == maxChoices {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(slug.Display(s), maxChoiceName),
			Value: s,
		})
	}
	return choices
}

func (b *Bot) respond(i *discordgo.Interaction, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Error("respond failed", "interaction_id", i.ID, "error", err)
	}
}

func (b *Bot) deferReply(i *discordgo.Interaction, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Error("defer failed", "interaction_id", i.ID, "error", err)
	}
	return err
}

func (b *Bot) edit(i *discordgo.Interaction, content string) *discordgo.Message {
	msg, err := b.session.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Content:         &content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		b.logger.Error("edit response failed", "interaction_id", i.ID, "error", err)
		return nil
	}
	return msg
}

func (b *Bot) logCommandError(i *discordgo.Interaction, err error) {
	b.logger.Warn("command failed", "interaction_id", i.ID, "guild_id", i.GuildID, "error", err)
}

func stringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range opts {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
