package logger

import (
	"context"
	"log/slog"
)

// MongoSink adapts slog.Logger to the mongo-driver options.LogSink
// interface. The driver reports level 1 for info and 2 for debug.
type MongoSink struct {
	logger *slog.Logger
}

// NewMongoSink creates a sink tagged with component=mongo.
func NewMongoSink(base *slog.Logger) *MongoSink {
	return &MongoSink{logger: base.With("component", "mongo")}
}

func (s *MongoSink) Info(level int, message string, keysAndValues ...interface{}) {
	lvl := slog.LevelInfo
	if level > 1 {
		lvl = slog.LevelDebug
	}
	s.logger.Log(context.Background(), lvl, message, keysAndValues...)
}

func (s *MongoSink) Error(err error, message string, keysAndValues ...interface{}) {
	args := append([]interface{}{Err(err)}, keysAndValues...)
	s.logger.Error(message, args...)
}
