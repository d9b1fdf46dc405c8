// Package slackapi wraps the Slack Web API behind a rate-limited, retrying
// client. Transient failures (rate limits, network timeouts) are retried here
// so that any error reaching the collector is terminal for that call.
package slackapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"time"

	"github.com/slack-go/slack"
)

const maxRetries = 3

// historyPageSize is the per-request page size for conversations.history and
// conversations.replies; Slack caps both at 1000.
const historyPageSize = 200

// Config configures the Slack client.
type Config struct {
	Token           string
	RateLimitPerMin float64
	Burst           int
	Logger          *slog.Logger
}

// Client talks to the Slack Web API.
type Client struct {
	api     *slack.Client
	limiter *RateLimiter
	logger  *slog.Logger
}

// New creates a Slack client from a bot or user token.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("slack token not provided (set SLACK_API_TOKEN or the slack.token config key)")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:     slack.New(cfg.Token),
		limiter: NewRateLimiter(cfg.Burst, cfg.RateLimitPerMin),
		logger:  logger,
	}, nil
}

// FetchChannelMessages returns up to limit messages from a channel's history,
// newest first, following cursors across pages. oldest and latest are Slack
// timestamp strings bounding the window; either may be empty.
func (c *Client) FetchChannelMessages(ctx context.Context, channelID string, limit int, oldest, latest string) ([]slack.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var messages []slack.Message
	cursor := ""
	for {
		pageLimit := historyPageSize
		if remaining := limit - len(messages); remaining < pageLimit {
			pageLimit = remaining
		}

		var resp *slack.GetConversationHistoryResponse
		err := c.withRetry(ctx, "conversations.history", func() error {
			var err error
			resp, err = c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
				ChannelID: channelID,
				Cursor:    cursor,
				Limit:     pageLimit,
				Oldest:    oldest,
				Latest:    latest,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch messages for channel %s: %w", channelID, err)
		}

		messages = append(messages, resp.Messages...)
		if len(messages) >= limit || !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			break
		}
		cursor = resp.ResponseMetaData.NextCursor
	}
	if len(messages) > limit {
		messages = messages[:limit]
	}
	c.logger.Debug("fetched channel history", "channel", channelID, "messages", len(messages))
	return messages, nil
}

// FetchThreadMessages returns all messages of a thread, parent first, replies
// in chronological order.
func (c *Client) FetchThreadMessages(ctx context.Context, channelID, threadTS string) ([]slack.Message, error) {
	var messages []slack.Message
	cursor := ""
	for {
		var (
			page       []slack.Message
			hasMore    bool
			nextCursor string
		)
		err := c.withRetry(ctx, "conversations.replies", func() error {
			var err error
			page, hasMore, nextCursor, err = c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
				ChannelID: channelID,
				Timestamp: threadTS,
				Cursor:    cursor,
				Limit:     historyPageSize,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch thread %s in channel %s: %w", threadTS, channelID, err)
		}

		messages = append(messages, page...)
		if !hasMore || nextCursor == "" {
			break
		}
		cursor = nextCursor
	}
	c.logger.Debug("fetched thread", "channel", channelID, "thread_ts", threadTS, "messages", len(messages))
	return messages, nil
}

// FetchUserInfo returns the raw user record for a user ID.
func (c *Client) FetchUserInfo(ctx context.Context, userID string) (*slack.User, error) {
	var user *slack.User
	err := c.withRetry(ctx, "users.info", func() error {
		var err error
		user, err = c.api.GetUserInfoContext(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", userID, err)
	}
	return user, nil
}

// FetchChannelInfo returns the raw channel record for a channel ID.
func (c *Client) FetchChannelInfo(ctx context.Context, channelID string) (*slack.Channel, error) {
	var channel *slack.Channel
	err := c.withRetry(ctx, "conversations.info", func() error {
		var err error
		channel, err = c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
			ChannelID:         channelID,
			IncludeNumMembers: true,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	return channel, nil
}

// withRetry runs fn after acquiring a rate-limit token, retrying transient
// failures with exponential backoff and jitter. Slack rate-limit responses
// are waited out for the server-advised duration instead.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}

		delay, retryable := retryDelay(err, attempt)
		if !retryable {
			return err
		}
		if attempt == maxRetries {
			return fmt.Errorf("%s failed after %d attempts: %w", op, maxRetries+1, err)
		}
		c.logger.Warn("slack api call failed, will retry",
			"op", op, "attempt", attempt+1, "backoff", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// retryDelay classifies an error and, when retryable, returns how long to
// wait before the given attempt is repeated.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var rle *slack.RateLimitedError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		base := time.Duration(attempt+1) * time.Second
		jitter := time.Duration(rand.Int64N(int64(base/2 + 1)))
		return base + jitter, true
	}
	return 0, false
}
