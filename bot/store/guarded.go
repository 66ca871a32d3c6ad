// Package store wraps a subscription backend with argument validation,
// per-call timeouts, a circuit breaker and a short-lived cache of each
// server's active games.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

// Options tunes the guard. Zero values fall back to defaults; a negative
// CacheTTL disables the active-games cache.
type Options struct {
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
	CacheTTL    time.Duration
	Logger      bot.Logger
}

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxFailures = 5
	defaultOpenTimeout = 30 * time.Second
	defaultCacheTTL    = 30 * time.Second
)

type cacheEntry struct {
	games   []string
	expires time.Time
}

// Guarded is a bot.SubscriptionStore that every command goes through.
type Guarded struct {
	backend bot.SubscriptionStore
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	ttl     time.Duration
	logger  bot.Logger

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]cacheEntry
	gen   map[string]uint64
	now   func() time.Time
}

var (
	_ bot.SubscriptionStore    = (*Guarded)(nil)
	_ bot.SubscriptionExporter = (*Guarded)(nil)
	_ bot.Pinger               = (*Guarded)(nil)
)

// New wraps backend.
func New(backend bot.SubscriptionStore, opts Options) *Guarded {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	g := &Guarded{
		backend: backend,
		timeout: opts.Timeout,
		ttl:     opts.CacheTTL,
		logger:  opts.Logger,
		cache:   make(map[string]cacheEntry),
		gen:     make(map[string]uint64),
		now:     time.Now,
	}

	maxFailures := opts.MaxFailures
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "subscription-store",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if g.logger != nil {
				g.logger.Warn("store breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return g
}

// BreakerState reports the breaker state ("closed", "half-open", "open").
func (g *Guarded) BreakerState() string {
	return g.breaker.State().String()
}

func (g *Guarded) Subscribe(ctx context.Context, serverID, game, userID string) error {
	if err := requireIDs("server id", serverID, "game", game, "user id", userID); err != nil {
		return err
	}
	err := g.exec(ctx, "subscribe", serverID, func(ctx context.Context) error {
		return g.backend.Subscribe(ctx, serverID, game, userID)
	})
	if err == nil {
		g.invalidate(serverID)
	}
	return err
}

func (g *Guarded) Unsubscribe(ctx context.Context, serverID, game, userID string) error {
	if err := requireIDs("server id", serverID, "game", game, "user id", userID); err != nil {
		return err
	}
	err := g.exec(ctx, "unsubscribe", serverID, func(ctx context.Context) error {
		return g.backend.Unsubscribe(ctx, serverID, game, userID)
	})
	if err == nil {
		g.invalidate(serverID)
	}
	return err
}

func (g *Guarded) ListSubscriptionsForUser(ctx context.Context, serverID, userID string) ([]string, error) {
	if err := requireIDs("server id", serverID, "user id", userID); err != nil {
		return nil, err
	}
	var games []string
	err := g.exec(ctx, "list subscriptions", serverID, func(ctx context.Context) error {
		var err error
		games, err = g.backend.ListSubscriptionsForUser(ctx, serverID, userID)
		return err
	})
	return games, err
}

func (g *Guarded) ListSubscribers(ctx context.Context, serverID, game string) ([]string, error) {
	if err := requireIDs("server id", serverID, "game", game); err != nil {
		return nil, err
	}
	var users []string
	err := g.exec(ctx, "list subscribers", serverID, func(ctx context.Context) error {
		var err error
		users, err = g.backend.ListSubscribers(ctx, serverID, game)
		return err
	})
	return users, err
}

// ListActiveGames serves from the per-server cache when fresh. Concurrent
// misses for one server share a single backend read.
func (g *Guarded) ListActiveGames(ctx context.Context, serverID string) ([]string, error) {
	if err := requireIDs("server id", serverID); err != nil {
		return nil, err
	}
	if games, ok := g.cached(serverID); ok {
		return games, nil
	}

	g.mu.Lock()
	gen := g.gen[serverID]
	g.mu.Unlock()

	// The shared read must not die with whichever caller started it, so it
	// runs detached and every caller waits on its own ctx instead.
	readCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(serverID, func() (interface{}, error) {
		var games []string
		err := g.exec(readCtx, "list active games", serverID, func(ctx context.Context) error {
			var err error
			games, err = g.backend.ListActiveGames(ctx, serverID)
			return err
		})
		if err != nil {
			return nil, err
		}
		g.store(serverID, gen, games)
		return games, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]string)), nil
	}
}

func (g *Guarded) CountActiveGames(ctx context.Context, serverID string) ([]bot.GameCount, error) {
	if err := requireIDs("server id", serverID); err != nil {
		return nil, err
	}
	var counts []bot.GameCount
	err := g.exec(ctx, "count active games", serverID, func(ctx context.Context) error {
		var err error
		counts, err = g.backend.CountActiveGames(ctx, serverID)
		return err
	})
	return counts, err
}

// Subscriptions exports every subscription of serverID. Backends that
// cannot export fail with errors.ErrUnsupported.
func (g *Guarded) Subscriptions(ctx context.Context, serverID string) ([]*bot.Subscription, error) {
	if err := requireIDs("server id", serverID); err != nil {
		return nil, err
	}
	exporter, ok := g.backend.(bot.SubscriptionExporter)
	if !ok {
		return nil, fmt.Errorf("export subscriptions: %w", errors.ErrUnsupported)
	}
	var subs []*bot.Subscription
	err := g.exec(ctx, "export subscriptions", serverID, func(ctx context.Context) error {
		var err error
		subs, err = exporter.Subscriptions(ctx, serverID)
		return err
	})
	return subs, err
}

// Ping checks the backend connection with the per-call timeout. It bypasses
// the breaker so that health checks see the backend itself and do not count
// towards tripping it. Backends without a Ping are assumed reachable.
func (g *Guarded) Ping(ctx context.Context) error {
	pinger, ok := g.backend.(bot.Pinger)
	if !ok {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := pinger.Ping(callCtx); err != nil {
		return bot.NewStoreError("ping", "", err)
	}
	return nil
}

func (g *Guarded) Close() error {
	return g.backend.Close()
}

// exec runs fn under the breaker with the per-call timeout. Cancellation
// by the caller is returned as is; everything else becomes a StoreError.
func (g *Guarded) exec(ctx context.Context, op, serverID string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn(callCtx)
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	if g.logger != nil {
		g.logger.Error("store operation failed", "op", op, "server_id", serverID, "error", err)
	}
	return bot.NewStoreError(op, serverID, err)
}

func (g *Guarded) cached(serverID string) ([]string, bool) {
	if g.ttl < 0 {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.cache[serverID]
	if !ok || !g.now().Before(entry.expires) {
		return nil, false
	}
	return slices.Clone(entry.games), true
}

// store keeps games unless a write for serverID happened after the read
// started.
func (g *Guarded) store(serverID string, gen uint64, games []string) {
	if g.ttl < 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen[serverID] != gen {
		return
	}
	g.cache[serverID] = cacheEntry{games: slices.Clone(games), expires: g.now().Add(g.ttl)}
}

func (g *Guarded) invalidate(serverID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen[serverID]++
	delete(g.cache, serverID)
}

// requireIDs takes (name, value) pairs and rejects the first empty value.
func requireIDs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return bot.InvalidInputf("%s is empty", pairs[i])
		}
	}
	return nil
}
