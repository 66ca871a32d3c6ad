package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/liuran001/LFGBot-Go/bot"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Repository stores subscriptions in a SQL database through gorm.
type Repository struct {
	db *gorm.DB
}

var (
	_ bot.SubscriptionStore    = (*Repository)(nil)
	_ bot.SubscriptionExporter = (*Repository)(nil)
	_ bot.Pinger               = (*Repository)(nil)
)

// NewSQLiteRepository creates a repository backed by SQLite.
func NewSQLiteRepository(dsn string, gormLogger logger.Interface) (*Repository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn required")
	}

	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	dbDir := filepath.Dir(dsn)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 gormLogger,
	})
	if err != nil {
		return nil, err
	}

	if err := applySQLitePragmas(db); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SubscriptionModel{}); err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Repository{db: db}, nil
}

// NewPostgresRepository creates a repository backed by PostgreSQL.
func NewPostgresRepository(dsn string, gormLogger logger.Interface) (*Repository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn required")
	}
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormLogger,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SubscriptionModel{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// ConfigurePool updates the database connection pool settings.
func (r *Repository) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) error {
	if r == nil || r.db == nil {
		return errors.New("repository not configured")
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if maxOpen >= 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime >= 0 {
		sqlDB.SetConnMaxLifetime(maxLifetime)
	}
	return nil
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("repository not configured")
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Subscribe adds userID to the (serverID, game) set. Existing members are
// left untouched.
func (r *Repository) Subscribe(ctx context.Context, serverID, game, userID string) error {
	model := &SubscriptionModel{
		ServerID:  serverID,
		Game:      game,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "server_id"},
			{Name: "game"},
			{Name: "user_id"},
		},
		DoNothing: true,
	}).Create(model).Error
}

// Unsubscribe removes userID from the (serverID, game) set. Removing a
// non-member is a no-op.
func (r *Repository) Unsubscribe(ctx context.Context, serverID, game, userID string) error {
	return r.db.WithContext(ctx).
		Where("server_id = ? AND game = ? AND user_id = ?", serverID, game, userID).
		Delete(&SubscriptionModel{}).Error
}

// ListSubscriptionsForUser returns the games userID follows in serverID.
func (r *Repository) ListSubscriptionsForUser(ctx context.Context, serverID, userID string) ([]string, error) {
	games := make([]string, 0)
	err := r.db.WithContext(ctx).Model(&SubscriptionModel{}).
		Where("server_id = ? AND user_id = ?", serverID, userID).
		Order("game ASC").
		Pluck("game", &games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

// ListSubscribers returns the subscriber set of (serverID, game); unknown
// games yield an empty set.
func (r *Repository) ListSubscribers(ctx context.Context, serverID, game string) ([]string, error) {
	users := make([]string, 0)
	err := r.db.WithContext(ctx).Model(&SubscriptionModel{}).
		Where("server_id = ? AND game = ?", serverID, game).
		Order("user_id ASC").
		Pluck("user_id", &users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListActiveGames returns every game in serverID with at least one subscriber.
func (r *Repository) ListActiveGames(ctx context.Context, serverID string) ([]string, error) {
	games := make([]string, 0)
	err := r.db.WithContext(ctx).Model(&SubscriptionModel{}).
		Where("server_id = ?", serverID).
		Group("game").
		Order("game ASC").
		Pluck("game", &games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

// CountActiveGames returns the active games of serverID with their
// subscriber counts, most popular first.
func (r *Repository) CountActiveGames(ctx context.Context, serverID string) ([]bot.GameCount, error) {
	rows := make([]gameCountRow, 0)
	err := r.db.WithContext(ctx).Model(&SubscriptionModel{}).
		Select("game, COUNT(*) AS subscribers").
		Where("server_id = ?", serverID).
		Group("game").
		Order("subscribers DESC").
		Order("game ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]bot.GameCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, bot.GameCount{Game: row.Game, Subscribers: row.Subscribers})
	}
	return result, nil
}

// Subscriptions returns every record of serverID ordered by game and user.
func (r *Repository) Subscriptions(ctx context.Context, serverID string) ([]*bot.Subscription, error) {
	var models []SubscriptionModel
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("game ASC").
		Order("user_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	results := make([]*bot.Subscription, 0, len(models))
	for _, model := range models {
		results = append(results, toInternal(model))
	}
	return results, nil
}

func applySQLitePragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA cache_size=-16000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, stmt := range pragmas {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}
