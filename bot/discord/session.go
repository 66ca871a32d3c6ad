package discord

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/go-retryablehttp"
)

// Session is the subset of *discordgo.Session the bot uses, so handlers
// can run against a fake in tests.
type Session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()

	ApplicationCommandBulkOverwrite(
		appID string,
		guildID string,
		commands []*discordgo.ApplicationCommand,
		options ...discordgo.RequestOption,
	) ([]*discordgo.ApplicationCommand, error)

	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error

	InteractionResponse(
		interaction *discordgo.Interaction,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	InteractionResponseEdit(
		interaction *discordgo.Interaction,
		newresp *discordgo.WebhookEdit,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	MessageThreadStart(
		channelID, messageID string,
		name string,
		archiveDuration int,
		options ...discordgo.RequestOption,
	) (*discordgo.Channel, error)

	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

var _ Session = (*discordgo.Session)(nil)

const (
	retryWaitMin = 250 * time.Millisecond
	retryWaitMax = 3 * time.Second
)

// NewSession creates a gateway session for a bot token. Idempotent REST
// calls go through a retrying client that backs off on 5xx and connection
// errors; POSTs are sent once so a slow response never posts twice.
func NewSession(token string, logger retryablehttp.LeveledLogger) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	session.StateEnabled = true
	session.Client = newHTTPClient(logger)
	return session, nil
}

func newHTTPClient(logger retryablehttp.LeveledLogger) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = logger
	// discordgo handles 429 itself from the rate-limit headers.
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return &http.Client{Transport: &idempotentRetry{
		retry: &retryablehttp.RoundTripper{Client: client},
		once:  client.HTTPClient.Transport,
	}}
}

// idempotentRetry sends requests whose method may be repeated safely
// through retry and everything else through once.
type idempotentRetry struct {
	retry http.RoundTripper
	once  http.RoundTripper
}

func (t *idempotentRetry) RoundTrip(req *http.Request) (*http.Response, error) {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return t.retry.RoundTrip(req)
	default:
		return t.once.RoundTrip(req)
	}
}
