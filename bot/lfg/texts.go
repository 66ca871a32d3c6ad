package lfg

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/liuran001/LFGBot-Go/bot"
)

// Markup renders rich text for one platform.
type Markup interface {
	Bold(s string) string
	Code(s string) string
	Quote(s string) string
	Mention(userID string) string
}

// CommandPrefix is "/" on every supported platform.
const CommandPrefix = "/"

// HelpText describes the bot and its commands.
func HelpText(m Markup) string {
	var b strings.Builder
	b.WriteString(m.Bold("LFG SUBSCRIPTION BOT HELP") + "\n\n")
	b.WriteString("Subscribe to the games you play. When someone starts a looking-for-group call, ")
	b.WriteString("only the players who " + m.Bold("explicitly subscribed") + " to that game are pinged.\n\n")
	b.WriteString("Game names are standardized (\"Deep Rock Galactic\" becomes " + m.Code("deep-rock-galactic") + "), ")
	b.WriteString("so casing and punctuation never create duplicate lists.\n\n")
	b.WriteString(m.Bold("Commands") + "\n")
	for _, c := range Commands {
		b.WriteString("- " + m.Code(CommandPrefix+c.Usage) + ": " + c.Description + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Command describes one command for help output and registration.
type Command struct {
	Name        string
	Usage       string
	Description string
}

// Commands is the command list shared by every transport.
var Commands = []Command{
	{Name: "addgame", Usage: "addgame <game>", Description: "Subscribe to a game's notification list."},
	{Name: "removegame", Usage: "removegame <game>", Description: "Unsubscribe from a game."},
	{Name: "lfg", Usage: "lfg <game> [message]", Description: "Ping everyone subscribed to a game in a new thread."},
	{Name: "mygames", Usage: "mygames", Description: "List the games you are subscribed to."},
	{Name: "listgames", Usage: "listgames", Description: "List the games in this server that have subscribers."},
	{Name: "help", Usage: "help", Description: "Show this help message."},
}

func SubscribedText(m Markup, game string) string {
	return fmt.Sprintf("You are now subscribed to notifications for %s!", m.Bold(game))
}

func UnsubscribedText(m Markup, game string) string {
	return fmt.Sprintf("You are no longer subscribed to %s (if you were).", m.Bold(game))
}

func MyGamesText(m Markup, games []string) string {
	if len(games) == 0 {
		return fmt.Sprintf("You are not subscribed to any games yet. Use %s to subscribe!", m.Code(CommandPrefix+"addgame"))
	}
	return "You are subscribed to:\n- " + strings.Join(games, "\n- ")
}

func ListGamesText(m Markup, counts []bot.GameCount) string {
	if len(counts) == 0 {
		return "There are no games with subscribers yet."
	}
	var b strings.Builder
	b.WriteString("Here are the current games with subscribers:")
	for _, c := range counts {
		fmt.Fprintf(&b, "\n- %s (%s)", m.Bold(c.Game), Plural(c.Subscribers, "subscriber", "subscribers"))
	}
	return b.String()
}

// AnnounceText is posted where the command was issued.
func AnnounceText(m Markup, call *Call) string {
	return fmt.Sprintf("LFG for %s started! Join the thread...", m.Bold(call.Game))
}

// CallMessage is one message of a call together with the users it mentions.
type CallMessage struct {
	Text string
	Ping []string
}

// MessageLimits bounds a single platform message. Zero fields are
// unlimited.
type MessageLimits struct {
	MaxRunes    int
	MaxMentions int
}

// CallMessages renders the call posted inside its thread, split so that
// every message stays within limits. The first message carries the header;
// mentions that do not fit follow in continuation messages. Every pinged
// user appears exactly once.
func CallMessages(m Markup, call *Call, limits MessageLimits) []CallMessage {
	var b strings.Builder
	b.WriteString(m.Bold("LFG for "+call.Game+"!") + "\n")
	b.WriteString("Started by " + m.Mention(call.Host) + "\n\n")
	b.WriteString(m.Quote(call.Message) + "\n\n")
	if len(call.Ping) == 0 {
		b.WriteString("Pinging subscribers... (no one else subscribed)")
		return []CallMessage{{Text: b.String()}}
	}
	b.WriteString("Pinging subscribers:")

	var (
		out   []CallMessage
		ping  []string
		runes = utf8.RuneCountInString(b.String())
	)
	for _, id := range call.Ping {
		mention := " " + m.Mention(id)
		n := utf8.RuneCountInString(mention)
		full := (limits.MaxRunes > 0 && runes+n > limits.MaxRunes) ||
			(limits.MaxMentions > 0 && len(ping) >= limits.MaxMentions)
		if full && len(ping) > 0 {
			out = append(out, CallMessage{Text: b.String(), Ping: ping})
			b.Reset()
			b.WriteString("More subscribers:")
			runes = utf8.RuneCountInString(b.String())
			ping = nil
		}
		b.WriteString(mention)
		runes += n
		ping = append(ping, id)
	}
	return append(out, CallMessage{Text: b.String(), Ping: ping})
}

// UserMessage maps a command error to a short reply for the caller.
func UserMessage(m Markup, err error) string {
	var cooldown *CooldownError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, bot.ErrInvalidInput):
		return "That doesn't look like a game name. Use letters or digits."
	case errors.As(err, &cooldown):
		return fmt.Sprintf("You started an LFG recently. Try again in %s.", formatWait(cooldown.Wait))
	case errors.Is(err, ErrCooldown):
		return "You started an LFG recently. Try again later."
	case errors.Is(err, ErrNoSubscribers):
		return fmt.Sprintf("Sorry, no one is subscribed to that game yet. Be the first with %s!", m.Code(CommandPrefix+"addgame"))
	case errors.Is(err, bot.ErrStorageUnavailable):
		return "The subscription database is unavailable right now. Please try again in a moment."
	default:
		return "An error occurred while handling that command."
	}
}

// Plural formats n with the singular or plural noun.
func Plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func formatWait(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if secs < 60 {
		return Plural(secs, "second", "seconds")
	}
	return Plural((secs+59)/60, "minute", "minutes")
}

// PlainMarkup renders without formatting. Used by the CLI and in logs.
type PlainMarkup struct{}

func (PlainMarkup) Bold(s string) string         { return s }
func (PlainMarkup) Code(s string) string         { return s }
func (PlainMarkup) Quote(s string) string        { return "> " + s }
func (PlainMarkup) Mention(userID string) string { return "@" + userID }
