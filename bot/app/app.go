package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/liuran001/LFGBot-Go/bot/autocomplete"
	"github.com/liuran001/LFGBot-Go/bot/config"
	"github.com/liuran001/LFGBot-Go/bot/db"
	"github.com/liuran001/LFGBot-Go/bot/discord"
	"github.com/liuran001/LFGBot-Go/bot/health"
	"github.com/liuran001/LFGBot-Go/bot/lfg"
	logpkg "github.com/liuran001/LFGBot-Go/bot/logger"
	"github.com/liuran001/LFGBot-Go/bot/mongostore"
	"github.com/liuran001/LFGBot-Go/bot/store"
	"github.com/liuran001/LFGBot-Go/bot/telegram"
	"github.com/liuran001/LFGBot-Go/bot/worker"
	"golang.org/x/sync/errgroup"
)

const connectTimeout = 15 * time.Second

// BuildInfo provides build-time metadata.
type BuildInfo struct {
	RuntimeVer string
	BinVersion string
	CommitSHA  string
	BuildTime  string
	BuildArch  string
}

// Core holds the transport independent parts: configuration, logging, the
// guarded subscription store and the command service.
type Core struct {
	Settings *config.Settings
	Logger   *logpkg.Logger
	Store    *store.Guarded
	Index    *autocomplete.Index
	Service  *lfg.Service
}

// NewCore loads configuration and opens the subscription store.
func NewCore(ctx context.Context, configPath string) (*Core, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	settings, err := conf.Settings()
	if err != nil {
		return nil, err
	}

	log, err := logpkg.New(settings.LogLevel, settings.LogFormat, settings.LogDir, settings.LogSource)
	if err != nil {
		return nil, err
	}

	backend, err := openBackend(ctx, settings, log)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	guarded := store.New(backend, store.Options{
		Timeout:     settings.StoreTimeout,
		MaxFailures: uint32(settings.BreakerMaxFailures),
		OpenTimeout: settings.BreakerOpen,
		CacheTTL:    settings.ActiveGamesCache,
		Logger:      log.With("component", "store"),
	})

	known, err := autocomplete.LoadKnownGames(settings.GamesFile)
	if err != nil {
		_ = guarded.Close()
		_ = log.Close()
		return nil, fmt.Errorf("load known games: %w", err)
	}
	index := autocomplete.New(guarded, known, log)
	service := lfg.NewService(guarded, index, lfg.NewCooldown(settings.LFGCooldown), log)

	log.Info("subscription store ready", "backend", settings.StoreBackend, "known_games", len(index.KnownGames()))
	return &Core{
		Settings: settings,
		Logger:   log,
		Store:    guarded,
		Index:    index,
		Service:  service,
	}, nil
}

func openBackend(ctx context.Context, s *config.Settings, log *logpkg.Logger) (bot.SubscriptionStore, error) {
	switch s.StoreBackend {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		st, err := mongostore.Connect(connectCtx, s.MongoURI, s.MongoDatabase, s.MongoCollection, logpkg.NewMongoSink(log.Slog()))
		if err != nil {
			return nil, fmt.Errorf("init mongo store: %w", err)
		}
		return st, nil
	case "postgres":
		repo, err := db.NewPostgresRepository(s.PostgresDSN, gormLogger(s, log))
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		if err := repo.ConfigurePool(s.DBMaxOpenConns, s.DBMaxIdleConns, s.DBConnMaxLifetime); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("configure db pool: %w", err)
		}
		return repo, nil
	default:
		repo, err := db.NewSQLiteRepository(s.Database, gormLogger(s, log))
		if err != nil {
			return nil, fmt.Errorf("init db: %w", err)
		}
		if err := repo.ConfigurePool(s.DBMaxOpenConns, s.DBMaxIdleConns, s.DBConnMaxLifetime); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("configure db pool: %w", err)
		}
		return repo, nil
	}
}

func gormLogger(s *config.Settings, log *logpkg.Logger) *logpkg.GormLogger {
	return logpkg.NewGormLogger(log.Slog(), logpkg.MapGormLevel(s.GormLogLevel))
}

// Close releases the store and the log file.
func (c *Core) Close() error {
	var errs []error
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if c.Logger != nil {
		if err := c.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close logger: %w", err))
		}
	}
	return errors.Join(errs...)
}

// App wires all application dependencies.
type App struct {
	*Core
	Pool     *worker.Pool
	Discord  *discord.Bot
	Telegram *telegram.Bot
	Health   *health.Server
	Build    BuildInfo
}

// New builds the application container.
func New(ctx context.Context, configPath string, build BuildInfo) (*App, error) {
	core, err := NewCore(ctx, configPath)
	if err != nil {
		return nil, err
	}
	s := core.Settings
	log := core.Logger

	a := &App{
		Core:  core,
		Pool:  worker.New(s.WorkerPoolSize, log.With("component", "worker")),
		Build: build,
	}

	if s.UsesDiscord() {
		discordgo.Logger = logpkg.DiscordgoLogFunc(log.Slog())
		session, err := discord.NewSession(s.DiscordToken, log.With("component", "discord-http"))
		if err != nil {
			_ = a.Shutdown(context.Background())
			return nil, fmt.Errorf("init discord: %w", err)
		}
		a.Discord = discord.New(session, core.Service, a.Pool, log, discord.Options{
			AppID:        s.DiscordAppID,
			GuildID:      s.DiscordGuildID,
			SuggestLimit: s.SuggestLimit,
		})
	}

	if s.UsesTelegram() {
		client, err := telegram.NewClient(s.TelegramToken, s.BotAPI, log)
		if err != nil {
			_ = a.Shutdown(context.Background())
			return nil, fmt.Errorf("init telegram: %w", err)
		}
		limiter := telegram.NewRateLimiter(s.RateLimitPerSecond, s.RateLimitBurst, log)
		a.Telegram = telegram.New(client, core.Service, a.Pool, limiter, log, telegram.Options{
			SuggestLimit: s.SuggestLimit,
		})
	}

	if s.HealthListen != "" {
		a.Health = health.New(s.HealthListen, core.Store, build.BinVersion, log)
	}

	return a, nil
}

// Run serves every configured transport until ctx is cancelled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if a.Discord != nil {
		g.Go(func() error { return a.Discord.Run(ctx) })
	}
	if a.Telegram != nil {
		g.Go(func() error { return a.Telegram.Run(ctx) })
	}
	if a.Health != nil {
		g.Go(func() error { return a.Health.ListenAndServe(ctx) })
	}
	a.Logger.Info("lfg bot started",
		"platform", a.Settings.Platform,
		"version", a.Build.BinVersion,
		"workers", a.Pool.Size())
	return g.Wait()
}

// Shutdown drains the worker pool and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.Pool != nil {
		if err := a.Pool.Shutdown(ctx); err != nil {
			a.Pool.StopNow()
			errs = append(errs, fmt.Errorf("shutdown worker pool: %w", err))
		}
	}
	if a.Core != nil {
		if err := a.Core.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
