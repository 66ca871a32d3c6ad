// Package lfg implements the bot's commands independent of any chat
// platform. Transports adapt their events to Request and render the
// returned values.
package lfg

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/liuran001/LFGBot-Go/bot/autocomplete"
	"github.com/liuran001/LFGBot-Go/bot/slug"
)

var (
	// ErrNoSubscribers is returned by StartLFG when the game's subscriber
	// set is empty.
	ErrNoSubscribers = errors.New("no subscribers")

	// ErrCooldown is returned by StartLFG when the caller started a call
	// too recently.
	ErrCooldown = errors.New("lfg cooldown")
)

const (
	// DefaultMessage is used when a call is started without a message.
	DefaultMessage = "Anyone want to play?"
	// MaxMessageLength caps a call message in runes; longer ones are cut.
	MaxMessageLength = 1000
)

// Request identifies who issued a command and in which server.
type Request interface {
	ServerID() string
	UserID() string
}

// Call is a started LFG ready to be announced.
type Call struct {
	Game       string
	Message    string
	Host       string
	Ping       []string
	ThreadName string
	StartedAt  time.Time
}

// Service runs commands against a subscription store.
type Service struct {
	store    bot.SubscriptionStore
	index    *autocomplete.Index
	cooldown *Cooldown
	logger   bot.Logger
	now      func() time.Time
}

// NewService builds a service. cooldown may be nil to disable call limits.
func NewService(store bot.SubscriptionStore, index *autocomplete.Index, cooldown *Cooldown, logger bot.Logger) *Service {
	return &Service{
		store:    store,
		index:    index,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// AddGame subscribes the caller to raw's slug and returns the slug.
func (s *Service) AddGame(ctx context.Context, req Request, raw string) (string, error) {
	game, err := slug.Normalize(raw)
	if err != nil {
		return "", err
	}
	if err := s.store.Subscribe(ctx, req.ServerID(), game, req.UserID()); err != nil {
		return game, fmt.Errorf("add game %s: %w", game, err)
	}
	s.debug("subscribed", req, "game", game)
	return game, nil
}

// RemoveGame unsubscribes the caller from raw's slug. Removing a game the
// caller never followed succeeds.
func (s *Service) RemoveGame(ctx context.Context, req Request, raw string) (string, error) {
	game, err := slug.Normalize(raw)
	if err != nil {
		return "", err
	}
	if err := s.store.Unsubscribe(ctx, req.ServerID(), game, req.UserID()); err != nil {
		return game, fmt.Errorf("remove game %s: %w", game, err)
	}
	s.debug("unsubscribed", req, "game", game)
	return game, nil
}

// MyGames lists the caller's games.
func (s *Service) MyGames(ctx context.Context, req Request) ([]string, error) {
	games, err := s.store.ListSubscriptionsForUser(ctx, req.ServerID(), req.UserID())
	if err != nil {
		return nil, fmt.Errorf("my games: %w", err)
	}
	return games, nil
}

// ListGames lists the server's active games, most subscribers first.
func (s *Service) ListGames(ctx context.Context, req Request) ([]bot.GameCount, error) {
	counts, err := s.store.CountActiveGames(ctx, req.ServerID())
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return counts, nil
}

// StartLFG prepares a call for raw's game. The caller is never pinged. A
// game whose only subscriber is the caller still starts a call with an
// empty ping list.
func (s *Service) StartLFG(ctx context.Context, req Request, raw, message string) (*Call, error) {
	game, err := slug.Normalize(raw)
	if err != nil {
		return nil, err
	}

	subscribers, err := s.store.ListSubscribers(ctx, req.ServerID(), game)
	if err != nil {
		return nil, fmt.Errorf("start lfg %s: %w", game, err)
	}
	if len(subscribers) == 0 {
		return nil, fmt.Errorf("start lfg %s: %w", game, ErrNoSubscribers)
	}

	if s.cooldown != nil {
		if wait, ok := s.cooldown.Allow(req.ServerID(), req.UserID()); !ok {
			return nil, &CooldownError{Wait: wait}
		}
	}

	ping := slices.DeleteFunc(slices.Clone(subscribers), func(id string) bool {
		return id == req.UserID()
	})
	if message == "" {
		message = DefaultMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		message = string([]rune(message)[:MaxMessageLength])
	}
	now := s.now().UTC()

	s.debug("lfg started", req, "game", game, "pinged", len(ping))
	return &Call{
		Game:       game,
		Message:    message,
		Host:       req.UserID(),
		Ping:       ping,
		ThreadName: ThreadName(game, now),
		StartedAt:  now,
	}, nil
}

// Suggest returns autocomplete candidates for the request's server.
func (s *Service) Suggest(ctx context.Context, req Request, partial string, limit int) (iter.Seq[string], error) {
	return s.index.Suggest(ctx, req.ServerID(), partial, limit)
}

// ThreadName is the title of the conversation opened for a call.
func ThreadName(game string, at time.Time) string {
	return fmt.Sprintf("LFG for %s (%s)", game, at.UTC().Format("15:04"))
}

func (s *Service) debug(msg string, req Request, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Debug(msg, append([]any{"server_id", req.ServerID(), "user_id", req.UserID()}, args...)...)
}
