package telegram

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing messages per chat. Telegram allows roughly
// one message per second in a chat before answering 429.
type RateLimiter struct {
	limiters map[int64]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	logger   bot.Logger
}

func NewRateLimiter(msgPerSec float64, burst int, logger bot.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[int64]*rate.Limiter),
		rate:     rate.Limit(msgPerSec),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *RateLimiter) getLimiter(chatID int64) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[chatID]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[chatID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[chatID] = limiter
	return limiter
}

func (rl *RateLimiter) Wait(ctx context.Context, chatID int64) error {
	return rl.getLimiter(chatID).Wait(ctx)
}

// ErrRetriesExhausted is returned when Telegram kept answering 429.
var ErrRetriesExhausted = errors.New("telegram: max retries exceeded")

const maxSendAttempts = 3

var retryAfterPattern = regexp.MustCompile(`(?i)retry\s+after[:\s]+(\d+)`)

// retryAfter extracts the flood-wait from a Telegram error, either from the
// structured response parameters or from the description text.
func retryAfter(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) && apiErr.Parameters != nil && apiErr.Parameters.RetryAfter > 0 {
		return time.Duration(apiErr.Parameters.RetryAfter) * time.Second, true
	}

	if matches := retryAfterPattern.FindStringSubmatch(err.Error()); len(matches) == 2 {
		if secs, parseErr := strconv.Atoi(matches[1]); parseErr == nil && secs > 0 {
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}

// withRetry waits for the chat's limiter before every attempt and retries
// only flood-wait errors.
func withRetry[T any](ctx context.Context, rl *RateLimiter, chatID int64, op string, fn func() (T, error)) (T, error) {
	var zero T
	if rl == nil {
		return fn()
	}

	var lastErr error
	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		if err := rl.Wait(ctx, chatID); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		wait, ok := retryAfter(err)
		if !ok {
			break
		}
		if attempt == maxSendAttempts-1 {
			lastErr = errors.Join(ErrRetriesExhausted, err)
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	if rl.logger != nil {
		rl.logger.Error("telegram request failed", "op", op, "chat_id", chatID, "error", lastErr)
	}
	return zero, lastErr
}

// Sender is the part of the Telegram client used for outgoing messages.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	CreateForumTopic(ctx context.Context, params *telego.CreateForumTopicParams) (*telego.ForumTopic, error)
}

func SendMessageWithRetry(ctx context.Context, rl *RateLimiter, b Sender, params *telego.SendMessageParams) (*telego.Message, error) {
	return withRetry(ctx, rl, params.ChatID.ID, "sendMessage", func() (*telego.Message, error) {
		return b.SendMessage(ctx, params)
	})
}

func CreateForumTopicWithRetry(ctx context.Context, rl *RateLimiter, b Sender, params *telego.CreateForumTopicParams) (*telego.ForumTopic, error) {
	return withRetry(ctx, rl, params.ChatID.ID, "createForumTopic", func() (*telego.ForumTopic, error) {
		return b.CreateForumTopic(ctx, params)
	})
}
