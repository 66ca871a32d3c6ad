// Package telegram serves the LFG commands in Telegram group chats.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/liuran001/LFGBot-Go/bot/lfg"
	"github.com/mymmrac/telego"
)

// Client is the part of *telego.Bot the transport uses.
type Client interface {
	Sender
	GetMe(ctx context.Context) (*telego.User, error)
	SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error
	UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, options ...telego.LongPollingOption) (<-chan telego.Update, error)
}

var _ Client = (*telego.Bot)(nil)

// NewClient creates a telego client with a long-poll friendly HTTP client.
func NewClient(token, apiServer string, logger bot.Logger) (*telego.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token required")
	}

	pollClient := &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	options := []telego.BotOption{
		telego.WithHTTPClient(pollClient),
		telego.WithLogger(telegoLogger{logger: logger}),
	}
	if apiServer != "" {
		options = append(options, telego.WithAPIServer(apiServer))
	}
	return telego.NewBot(token, options...)
}

// Options configures the Telegram transport.
type Options struct {
	SuggestLimit   int
	CommandTimeout time.Duration
}

// Bot dispatches group chat commands to the command service.
type Bot struct {
	client       Client
	service      *lfg.Service
	pool         bot.WorkerPool
	limiter      *RateLimiter
	logger       bot.Logger
	botName      string
	suggestLimit int
	timeout      time.Duration
}

func New(client Client, service *lfg.Service, pool bot.WorkerPool, limiter *RateLimiter, logger bot.Logger, opts Options) *Bot {
	if opts.SuggestLimit <= 0 {
		opts.SuggestLimit = 10
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 30 * time.Second
	}
	return &Bot{
		client:       client,
		service:      service,
		pool:         pool,
		limiter:      limiter,
		logger:       logger.With("component", "telegram"),
		suggestLimit: opts.SuggestLimit,
		timeout:      opts.CommandTimeout,
	}
}

// Run polls updates until ctx is cancelled. Each update is handled on the
// worker pool.
func (b *Bot) Run(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	b.botName = me.Username
	b.logger.Info("telegram connected", "username", me.Username)

	if err := b.client.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: botCommands()}); err != nil {
		b.logger.Warn("set telegram commands failed", "error", err)
	}

	updates, err := b.client.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("telegram long polling: %w", err)
	}

	for update := range updates {
		if update.Message == nil {
			continue
		}
		msg := update.Message
		if err := b.pool.Submit(func() {
			cmdCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			b.handleMessage(cmdCtx, msg)
		}); err != nil {
			b.logger.Warn("dropping update", "update_id", update.UpdateID, "error", err)
		}
	}
	return nil
}

func botCommands() []telego.BotCommand {
	commands := make([]telego.BotCommand, 0, len(lfg.Commands)+1)
	for _, c := range lfg.Commands {
		commands = append(commands, telego.BotCommand{Command: c.Name, Description: c.Description})
	}
	return append(commands, telego.BotCommand{Command: cmdSuggest, Description: suggestDescription})
}

type telegoLogger struct {
	logger bot.Logger
}

func (l telegoLogger) Debugf(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l telegoLogger) Errorf(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Error(fmt.Sprintf(format, args...))
}
