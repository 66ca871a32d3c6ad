package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/liuran001/LFGBot-Go/bot/autocomplete"
	"github.com/liuran001/LFGBot-Go/bot/db"
	"github.com/liuran001/LFGBot-Go/bot/lfg"
	logpkg "github.com/liuran001/LFGBot-Go/bot/logger"
	"github.com/liuran001/LFGBot-Go/bot/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

type fakeSession struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []string
	threads   []string
	sent      map[string][]*discordgo.MessageSend
	commands  []*discordgo.ApplicationCommand
	guildID   string
	threadErr error
	opened    bool
	closed    bool
	handlers  int
}

func newFakeSession() *fakeSession {
	return &fakeSession{sent: make(map[string][]*discordgo.MessageSend)}
}

// lastSent returns the most recent message posted to channelID.
func (f *fakeSession) lastSent(channelID string) *discordgo.MessageSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.sent[channelID]
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (f *fakeSession) Open() error  { f.opened = true; return nil }
func (f *fakeSession) Close() error { f.closed = true; return nil }

func (f *fakeSession) AddHandler(handler interface{}) func() {
	f.handlers++
	return func() { f.handlers-- }
}

func (f *fakeSession) ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.commands = commands
	f.guildID = guildID
	return commands, nil
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponse(_ *discordgo.Interaction, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ID: "response-msg"}, nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, *edit.Content)
	return &discordgo.Message{ID: "edited-msg", Content: *edit.Content}, nil
}

func (f *fakeSession) MessageThreadStart(channelID, messageID, name string, _ int, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	f.threads = append(f.threads, name)
	return &discordgo.Channel{ID: "thread-" + messageID, Name: name}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[channelID] = append(f.sent[channelID], data)
	return &discordgo.Message{ID: "sent", ChannelID: channelID}, nil
}

// inlinePool runs tasks on the caller's goroutine.
type inlinePool struct{}

func (inlinePool) Submit(task func()) error           { task(); return nil }
func (inlinePool) SubmitWait(task func() error) error { return task() }
func (inlinePool) Shutdown(ctx context.Context) error { return nil }
func (inlinePool) Size() int                          { return 1 }

func newTestBot(t *testing.T) (*Bot, *fakeSession) {
	t.Helper()
	base := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, err := db.NewSQLiteRepository(filepath.Join(t.TempDir(), "discord.db"), logpkg.NewGormLogger(base, logger.Silent))
	require.NoError(t, err)
	guarded := store.New(repo, store.Options{})
	t.Cleanup(func() { _ = guarded.Close() })

	log := logpkg.NewWithWriter(io.Discard, "error", "text", false)
	index := autocomplete.New(guarded, []string{"Valorant", "Valheim", "Deep Rock Galactic"}, log)
	service := lfg.NewService(guarded, index, nil, log)

	session := newFakeSession()
	b := New(session, service, inlinePool{}, log, Options{AppID: "app", GuildID: "guild"})
	return b, session
}

func command(user, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "i-" + name,
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild",
		ChannelID: "channel",
		Member:    &discordgo.Member{User: &discordgo.User{ID: user}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: opts,
		},
	}
}

func strOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func TestAddGameRepliesPrivately(t *testing.T) {
	b, session := newTestBot(t)
	b.dispatch(context.Background(), command("alice", cmdAddGame, strOpt(optGame, "Deep Rock Galactic")))

	require.Len(t, session.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, session.responses[0].Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, session.responses[0].Data.Flags)
	require.Len(t, session.edits, 1)
	assert.Equal(t, "You are now subscribed to notifications for **deep-rock-galactic**!", session.edits[0])
}

func TestAddGameInvalidName(t *testing.T) {
	b, session := newTestBot(t)
	b.dispatch(context.Background(), command("alice", cmdAddGame, strOpt(optGame, "!!!")))

	require.Len(t, session.edits, 1)
	assert.Equal(t, lfg.UserMessage(markup, bot.ErrInvalidInput), session.edits[0])
}

func TestMyGamesAndListGames(t *testing.T) {
	b, session := newTestBot(t)
	ctx := context.Background()
	b.dispatch(ctx, command("alice", cmdAddGame, strOpt(optGame, "Valheim")))
	b.dispatch(ctx, command("bob", cmdAddGame, strOpt(optGame, "valheim")))
	b.dispatch(ctx, command("bob", cmdAddGame, strOpt(optGame, "Rust")))

	b.dispatch(ctx, command("bob", cmdMyGames))
	assert.Equal(t, "You are subscribed to:\n- rust\n- valheim", session.edits[len(session.edits)-1])

	b.dispatch(ctx, command("bob", cmdListGames))
	assert.Equal(t, "Here are the current games with subscribers:\n- **valheim** (2 subscribers)\n- **rust** (1 subscriber)", session.edits[len(session.edits)-1])
}

func TestLFGOpensThreadAndPings(t *testing.T) {
	b, session := newTestBot(t)
	ctx := context.Background()
	for _, user := range []string{"alice", "bob", "carol"} {
		b.dispatch(ctx, command(user, cmdAddGame, strOpt(optGame, "Valorant")))
	}
	session.responses = nil
	session.edits = nil

	b.dispatch(ctx, command("alice", cmdLFG, strOpt(optGame, "valorant"), strOpt(optMessage, "need 2")))

	require.Len(t, session.responses, 1)
	assert.Equal(t, discordgo.MessageFlags(0), session.responses[0].Data.Flags)
	assert.Equal(t, []string{"LFG for **valorant** started! Join the thread..."}, session.edits)
	require.Len(t, session.threads, 1)
	assert.True(t, strings.HasPrefix(session.threads[0], "LFG for valorant ("))

	sent := session.lastSent("thread-edited-msg")
	require.NotNil(t, sent)
	assert.Contains(t, sent.Content, "Started by <@alice>")
	assert.Contains(t, sent.Content, "> need 2")
	assert.Contains(t, sent.Content, "Pinging subscribers: <@bob> <@carol>")
	assert.Equal(t, []string{"bob", "carol"}, sent.AllowedMentions.Users)
}

func TestLFGFallsBackToChannel(t *testing.T) {
	b, session := newTestBot(t)
	ctx := context.Background()
	b.dispatch(ctx, command("bob", cmdAddGame, strOpt(optGame, "Valorant")))
	session.threadErr = errors.New("missing permissions")

	b.dispatch(ctx, command("alice", cmdLFG, strOpt(optGame, "valorant")))

	sent := session.lastSent("channel")
	require.NotNil(t, sent)
	assert.Contains(t, sent.Content, "> "+lfg.DefaultMessage)
}

func TestLFGSplitsLargePingList(t *testing.T) {
	b, session := newTestBot(t)
	ctx := context.Background()

	var want []string
	for n := 0; n < 150; n++ {
		user := fmt.Sprintf("%018d", 100000000000000000+n)
		b.dispatch(ctx, command(user, cmdAddGame, strOpt(optGame, "Valorant")))
		want = append(want, user)
	}

	b.dispatch(ctx, command("alice", cmdLFG, strOpt(optGame, "valorant"), strOpt(optMessage, strings.Repeat("x", 5000))))

	msgs := session.sent["thread-edited-msg"]
	require.Greater(t, len(msgs), 1)
	assert.Contains(t, msgs[0].Content, "Started by <@alice>")

	seen := make(map[string]int)
	var got []string
	for _, msg := range msgs {
		assert.LessOrEqual(t, utf8.RuneCountInString(msg.Content), 2000)
		assert.LessOrEqual(t, len(msg.AllowedMentions.Users), 100)
		for _, id := range msg.AllowedMentions.Users {
			assert.Contains(t, msg.Content, "<@"+id+">")
			seen[id]++
			got = append(got, id)
		}
	}
	assert.Equal(t, want, got)
	for id, n := range seen {
		assert.Equal(t, 1, n, "user %s pinged %d times", id, n)
	}
}

func TestLFGNoSubscribers(t *testing.T) {
	b, session := newTestBot(t)
	b.dispatch(context.Background(), command("alice", cmdLFG, strOpt(optGame, "chess")))

	assert.Empty(t, session.threads)
	require.Len(t, session.edits, 1)
	assert.Contains(t, session.edits[0], "no one is subscribed")
}

func TestCommandOutsideGuild(t *testing.T) {
	b, session := newTestBot(t)
	i := command("alice", cmdMyGames)
	i.GuildID = ""
	b.dispatch(context.Background(), i)

	require.Len(t, session.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, session.responses[0].Type)
	assert.Contains(t, session.responses[0].Data.Content, "only work inside a server")
}

func TestHelp(t *testing.T) {
	b, session := newTestBot(t)
	b.dispatch(context.Background(), command("alice", cmdHelp))

	require.Len(t, session.responses, 1)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, session.responses[0].Data.Flags)
	assert.Contains(t, session.responses[0].Data.Content, "`/lfg <game> [message]`")
}

func TestAutocompleteChoices(t *testing.T) {
	b, session := newTestBot(t)
	i := command("alice", cmdAddGame)
	i.Type = discordgo.InteractionApplicationCommandAutocomplete
	opt := strOpt(optGame, "val")
	opt.Focused = true
	i.Data = discordgo.ApplicationCommandInteractionData{Name: cmdAddGame, Options: []*discordgo.ApplicationCommandInteractionDataOption{opt}}

	b.dispatch(context.Background(), i)

	require.Len(t, session.responses, 1)
	resp := session.responses[0]
	assert.Equal(t, discordgo.InteractionApplicationCommandAutocompleteResult, resp.Type)
	require.Len(t, resp.Data.Choices, 2)
	assert.Equal(t, "Valheim", resp.Data.Choices[0].Name)
	assert.Equal(t, "valheim", resp.Data.Choices[0].Value)
	assert.Equal(t, "Valorant", resp.Data.Choices[1].Name)
}

func TestGameChoicesCapped(t *testing.T) {
	seq := func(yield func(string) bool) {
		for n := 0; n < 40; n++ {
			if !yield("game") {
				return
			}
		}
	}
	assert.Len(t, gameChoices(seq), maxChoices)
}

func TestStartRegistersCommands(t *testing.T) {
	b, session := newTestBot(t)
	require.NoError(t, b.Start(context.Background()))
	assert.True(t, session.opened)
	assert.Equal(t, "guild", session.guildID)
	assert.Equal(t, 2, session.handlers)

	names := make([]string, 0, len(session.commands))
	for _, c := range session.commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"help", "addgame", "removegame", "lfg", "mygames", "listgames"}, names)

	require.NoError(t, b.Stop())
	assert.True(t, session.closed)
	assert.Equal(t, 0, session.handlers)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestQuoteMultiline(t *testing.T) {
	assert.Equal(t, "> a\n> b", Markup{}.Quote("a\nb"))
}
