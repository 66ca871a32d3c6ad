package bot

import "context"

// Logger is the minimal logging abstraction used across modules.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Config provides typed access to configuration values.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetStringSlice(key string) []string
}

// SubscriptionStore owns the persisted mapping from (server, game) to the
// set of subscribed user ids. Every call is scoped by exactly one server.
// Subscribe and Unsubscribe are idempotent and durable once they return nil.
type SubscriptionStore interface {
	Subscribe(ctx context.Context, serverID, game, userID string) error
	Unsubscribe(ctx context.Context, serverID, game, userID string) error
	ListSubscriptionsForUser(ctx context.Context, serverID, userID string) ([]string, error)
	ListSubscribers(ctx context.Context, serverID, game string) ([]string, error)
	ListActiveGames(ctx context.Context, serverID string) ([]string, error)
	CountActiveGames(ctx context.Context, serverID string) ([]GameCount, error)
	Close() error
}

// Pinger is implemented by backends that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SubscriptionExporter is implemented by backends that can dump every
// subscription of a server, ordered by game and then user.
type SubscriptionExporter interface {
	Subscriptions(ctx context.Context, serverID string) ([]*Subscription, error)
}

// GameLister is the read side the autocomplete index depends on.
type GameLister interface {
	ListActiveGames(ctx context.Context, serverID string) ([]string, error)
}

// WorkerPool limits concurrency for background tasks.
type WorkerPool interface {
	Submit(task func()) error
	SubmitWait(task func() error) error
	Shutdown(ctx context.Context) error
	Size() int
}
