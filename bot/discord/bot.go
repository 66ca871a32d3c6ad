// Package discord serves the LFG commands as Discord slash commands.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/liuran001/LFGBot-Go/bot/lfg"
)

// Options configures the Discord transport.
type Options struct {
	AppID          string
	GuildID        string
	SuggestLimit   int
	CommandTimeout time.Duration
}

// Bot dispatches interactions to the command service.
type Bot struct {
	session      Session
	service      *lfg.Service
	pool         bot.WorkerPool
	logger       bot.Logger
	appID        string
	guildID      string
	suggestLimit int
	timeout      time.Duration

	mu       sync.Mutex
	baseCtx  context.Context
	handlers []func()
}

// New builds the transport on an existing session.
func New(session Session, service *lfg.Service, pool bot.WorkerPool, logger bot.Logger, opts Options) *Bot {
	if opts.SuggestLimit <= 0 || opts.SuggestLimit > maxChoices {
		opts.SuggestLimit = maxChoices
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 10 * time.Second
	}
	return &Bot{
		session:      session,
		service:      service,
		pool:         pool,
		logger:       logger.With("component", "discord"),
		appID:        opts.AppID,
		guildID:      opts.GuildID,
		suggestLimit: opts.SuggestLimit,
		timeout:      opts.CommandTimeout,
		baseCtx:      context.Background(),
	}
}

// Run connects, registers commands and serves until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return b.Stop()
}

// Start opens the gateway connection and registers commands.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	b.baseCtx = ctx
	b.handlers = append(b.handlers,
		b.session.AddHandler(b.onInteraction),
		b.session.AddHandler(b.onReady),
	)
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	if b.appID == "" {
		if s, ok := b.session.(*discordgo.Session); ok && s.State != nil && s.State.User != nil {
			b.appID = s.State.User.ID
		}
	}
	return b.registerCommands()
}

// Stop removes handlers and closes the gateway connection.
func (b *Bot) Stop() error {
	b.mu.Lock()
	for _, remove := range b.handlers {
		remove()
	}
	b.handlers = nil
	b.mu.Unlock()

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord ready", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (b *Bot) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	interaction := i.Interaction
	err := b.pool.Submit(func() {
		b.mu.Lock()
		base := b.baseCtx
		b.mu.Unlock()

		ctx, cancel := context.WithTimeout(base, b.timeout)
		defer cancel()
		b.dispatch(ctx, interaction)
	})
	if err != nil {
		b.logger.Warn("dropping interaction", "interaction_id", interaction.ID, "error", err)
	}
}
