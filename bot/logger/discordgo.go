package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// discordgo log levels (discordgo.LogError .. discordgo.LogDebug).
var discordgoLevels = map[int]slog.Level{
	0: slog.LevelError,
	1: slog.LevelWarn,
	2: slog.LevelInfo,
	3: slog.LevelDebug,
}

// DiscordgoLogFunc returns a function matching discordgo.Logger that
// forwards the library's printf-style logs to base.
func DiscordgoLogFunc(base *slog.Logger) func(msgL, caller int, format string, a ...interface{}) {
	log := base.With("component", "discordgo")
	return func(msgL, _ int, format string, a ...interface{}) {
		level, ok := discordgoLevels[msgL]
		if !ok {
			level = slog.LevelInfo
		}
		log.Log(context.Background(), level, strings.ReplaceAll(fmt.Sprintf(format, a...), "\n", " "))
	}
}
