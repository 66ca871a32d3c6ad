package db

import (
	"time"

	"github.com/liuran001/LFGBot-Go/bot"
)

// SubscriptionModel is one member of a (server, game) subscriber set.
// The composite unique index makes set-add a conflict-free insert.
type SubscriptionModel struct {
	ID        uint      `gorm:"primaryKey"`
	ServerID  string    `gorm:"not null;size:64;uniqueIndex:idx_server_game_user,priority:1;index:idx_server_user,priority:1"`
	Game      string    `gorm:"not null;size:128;uniqueIndex:idx_server_game_user,priority:2"`
	UserID    string    `gorm:"not null;size:64;uniqueIndex:idx_server_game_user,priority:3;index:idx_server_user,priority:2"`
	CreatedAt time.Time `gorm:"not null"`
}

func (SubscriptionModel) TableName() string {
	return "lfg_subscriptions"
}

func toInternal(model SubscriptionModel) *bot.Subscription {
	return &bot.Subscription{
		ServerID:  model.ServerID,
		Game:      model.Game,
		UserID:    model.UserID,
		CreatedAt: model.CreatedAt,
	}
}

// gameCountRow is the scan target for grouped subscriber counts.
type gameCountRow struct {
	Game        string
	Subscribers int
}
