package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/liuran001/LFGBot-Go/bot/lfg"
	"github.com/mymmrac/telego"
)

const (
	cmdHelp       = "help"
	cmdStart      = "start"
	cmdAddGame    = "addgame"
	cmdRemoveGame = "removegame"
	cmdLFG        = "lfg"
	cmdMyGames    = "mygames"
	cmdListGames  = "listgames"
	cmdSuggest    = "suggest"

	suggestDescription = "Suggest game names matching what you typed."
	maxTopicName       = 128
)

// chatRequest scopes commands to the chat they were sent in.
type chatRequest struct {
	chatID int64
	userID int64
}

func (r chatRequest) ServerID() string { return formatID(r.chatID) }
func (r chatRequest) UserID() string   { return formatID(r.userID) }

// parseCommand splits "/cmd@bot args" into the command and its arguments.
// Commands addressed to another bot yield an empty name.
func parseCommand(text, botName string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, args, _ := strings.Cut(text, " ")
	command := strings.TrimPrefix(head, "/")
	if name, target, found := strings.Cut(command, "@"); found {
		if botName != "" && target != "" && !strings.EqualFold(target, botName) {
			return "", ""
		}
		command = name
	}
	return strings.ToLower(command), strings.TrimSpace(args)
}

// splitLFGArgs separates "<game> | <message>".
func splitLFGArgs(args string) (string, string) {
	game, message, _ := strings.Cut(args, "|")
	return strings.TrimSpace(game), strings.TrimSpace(message)
}

func isGroup(chat telego.Chat) bool {
	return chat.Type == telego.ChatTypeGroup || chat.Type == telego.ChatTypeSupergroup
}

func (b *Bot) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}
	command, args := parseCommand(msg.Text, b.botName)
	if command == "" {
		return
	}

	m := htmlMarkup{names: map[string]string{
		formatID(msg.From.ID): displayName(msg.From.FirstName, msg.From.LastName, msg.From.Username),
	}}

	if !isGroup(msg.Chat) {
		switch command {
		case cmdHelp, cmdStart:
			b.reply(ctx, msg, b.helpText(m)+"\n\nAdd me to a group to start using these commands.")
		default:
			b.reply(ctx, msg, "LFG commands only work inside a group.")
		}
		return
	}

	req := chatRequest{chatID: msg.Chat.ID, userID: msg.From.ID}
	b.logger.Debug("received command", "command", command, "chat_id", msg.Chat.ID, "user_id", msg.From.ID)

	var text string
	var err error
	switch command {
	case cmdHelp, cmdStart:
		text = b.helpText(m)
	case cmdAddGame:
		if args == "" {
			text = "Usage: " + m.Code("/addgame <game>")
			break
		}
		var game string
		if game, err = b.service.AddGame(ctx, req, args); err == nil {
			text = lfg.SubscribedText(m, game)
		}
	case cmdRemoveGame:
		if args == "" {
			text = "Usage: " + m.Code("/removegame <game>")
			break
		}
		var game string
		if game, err = b.service.RemoveGame(ctx, req, args); err == nil {
			text = lfg.UnsubscribedText(m, game)
		}
	case cmdMyGames:
		var games []string
		if games, err = b.service.MyGames(ctx, req); err == nil {
			text = lfg.MyGamesText(m, games)
		}
	case cmdListGames:
		var counts []bot.GameCount
		if counts, err = b.service.ListGames(ctx, req); err == nil {
			text = lfg.ListGamesText(m, counts)
		}
	case cmdSuggest:
		text, err = b.suggest(ctx, req, args, m)
	case cmdLFG:
		if args == "" {
			text = "Usage: " + m.Code("/lfg <game> | optional message")
			break
		}
		b.handleLFG(ctx, msg, req, args, m)
		return
	default:
		return
	}

	if err != nil {
		b.logCommandError(command, msg, err)
		text = lfg.UserMessage(m, err)
	}
	b.reply(ctx, msg, text)
}

func (b *Bot) helpText(m htmlMarkup) string {
	return lfg.HelpText(m) +
		"\n- " + m.Code("/suggest <partial>") + ": " + suggestDescription +
		"\n\nAdd a message to an LFG with " + m.Code("/lfg <game> | <message>") + "."
}

func (b *Bot) suggest(ctx context.Context, req chatRequest, partial string, m htmlMarkup) (string, error) {
	seq, err := b.service.Suggest(ctx, req, partial, b.suggestLimit)
	if err != nil {
		return "", err
	}
	var lines []string
	for s := range seq {
		lines = append(lines, "- "+m.Code(s))
	}
	if len(lines) == 0 {
		return "No matching games.", nil
	}
	return "Suggestions:\n" + strings.Join(lines, "\n"), nil
}

// handleLFG opens a forum topic for the call when the group has topics
// enabled; otherwise the call replies to the command.
func (b *Bot) handleLFG(ctx context.Context, msg *telego.Message, req chatRequest, args string, m htmlMarkup) {
	game, message := splitLFGArgs(args)
	call, err := b.service.StartLFG(ctx, req, game, message)
	if err != nil {
		b.logCommandError(cmdLFG, msg, err)
		b.reply(ctx, msg, lfg.UserMessage(m, err))
		return
	}

	parts := lfg.CallMessages(m, call, callLimits)
	if msg.Chat.IsForum {
		topic, topicErr := CreateForumTopicWithRetry(ctx, b.limiter, b.client, &telego.CreateForumTopicParams{
			ChatID: telego.ChatID{ID: msg.Chat.ID},
			Name:   truncate(call.ThreadName, maxTopicName),
		})
		if topicErr == nil {
			b.reply(ctx, msg, lfg.AnnounceText(m, call))
			for _, part := range parts {
				b.send(ctx, msg.Chat.ID, topic.MessageThreadID, part.Text)
			}
			b.logger.Info("lfg call sent", "chat_id", msg.Chat.ID, "game", call.Game, "topic", topic.MessageThreadID, "pinged", len(call.Ping), "parts", len(parts))
			return
		}
		b.logger.Warn("create forum topic failed, replying in chat", "chat_id", msg.Chat.ID, "error", topicErr)
	}

	b.reply(ctx, msg, parts[0].Text)
	threadID := 0
	if msg.IsTopicMessage {
		threadID = msg.MessageThreadID
	}
	for _, part := range parts[1:] {
		b.send(ctx, msg.Chat.ID, threadID, part.Text)
	}
	b.logger.Info("lfg call sent", "chat_id", msg.Chat.ID, "game", call.Game, "pinged", len(call.Ping), "parts", len(parts))
}

// Telegram rejects message text over 4096 characters.
var callLimits = lfg.MessageLimits{MaxRunes: 4096}

func (b *Bot) reply(ctx context.Context, msg *telego.Message, text string) {
	params := &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: msg.Chat.ID},
		Text:      text,
		ParseMode: telego.ModeHTML,
		ReplyParameters: &telego.ReplyParameters{
			MessageID:                msg.MessageID,
			AllowSendingWithoutReply: true,
		},
	}
	if msg.IsTopicMessage {
		params.MessageThreadID = msg.MessageThreadID
	}
	if _, err := SendMessageWithRetry(ctx, b.limiter, b.client, params); err != nil {
		b.logger.Error("reply failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, threadID int, text string) {
	params := &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: chatID},
		MessageThreadID: threadID,
		Text:            text,
		ParseMode:       telego.ModeHTML,
	}
	if _, err := SendMessageWithRetry(ctx, b.limiter, b.client, params); err != nil {
		b.logger.Error("send failed", "chat_id", chatID, "thread_id", threadID, "error", err)
	}
}

func (b *Bot) logCommandError(command string, msg *telego.Message, err error) {
	if errors.Is(err, lfg.ErrNoSubscribers) || errors.Is(err, lfg.ErrCooldown) {
		b.logger.Debug("command rejected", "command", command, "chat_id", msg.Chat.ID, "error", err)
		return
	}
	b.logger.Warn("command failed", "command", command, "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "error", err)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
