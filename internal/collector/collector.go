// Package collector turns flat Slack channel histories into parent/reply
// threads, memoizing user and channel lookups along the way.
package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"slackthreads/internal/model"
)

// Fetcher is the remote messaging client the collector depends on. Every call
// blocks; implementations are expected to retry transient failures internally
// so that any returned error is terminal for that call.
type Fetcher interface {
	FetchChannelMessages(ctx context.Context, channelID string, limit int, oldest, latest string) ([]slack.Message, error)
	FetchThreadMessages(ctx context.Context, channelID, threadTS string) ([]slack.Message, error)
	FetchUserInfo(ctx context.Context, userID string) (*slack.User, error)
	FetchChannelInfo(ctx context.Context, channelID string) (*slack.Channel, error)
}

// Collector aggregates Slack threads. It owns a per-instance user and channel
// cache; the cache is not safe for concurrent use — callers running parallel
// collections must synchronize externally or use one Collector per goroutine.
type Collector struct {
	fetcher  Fetcher
	users    map[string]model.User
	channels map[string]model.Channel
	logger   *slog.Logger
}

// New creates a Collector on top of a fetch client.
func New(fetcher Fetcher, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		fetcher:  fetcher,
		users:    make(map[string]model.User),
		channels: make(map[string]model.Channel),
		logger:   logger,
	}
}

// GetUser returns the user for an ID, fetching it at most once. Fetch errors
// propagate unchanged and leave the cache untouched.
func (c *Collector) GetUser(ctx context.Context, userID string) (model.User, error) {
	if u, ok := c.users[userID]; ok {
		return u, nil
	}
	raw, err := c.fetcher.FetchUserInfo(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	u := model.NewUserFromAPI(raw)
	c.users[userID] = u
	return u, nil
}

// GetChannel returns the channel for an ID, fetching it at most once. Fetch
// errors propagate unchanged and leave the cache untouched.
func (c *Collector) GetChannel(ctx context.Context, channelID string) (model.Channel, error) {
	if ch, ok := c.channels[channelID]; ok {
		return ch, nil
	}
	raw, err := c.fetcher.FetchChannelInfo(ctx, channelID)
	if err != nil {
		return model.Channel{}, err
	}
	ch := model.NewChannelFromAPI(raw)
	c.channels[channelID] = ch
	return ch, nil
}

// CollectOptions bounds a thread collection.
type CollectOptions struct {
	// Limit caps how many channel messages are scanned for thread roots.
	// Zero or negative means 100.
	Limit int
	// Oldest and Latest are Slack timestamp strings bounding the history
	// window; either may be empty.
	Oldest string
	Latest string
	// MinThreadLength is the minimum reply count for a root to be collected.
	// Zero or negative means 1.
	MinThreadLength int
}

func (o CollectOptions) normalized() CollectOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.MinThreadLength <= 0 {
		o.MinThreadLength = 1
	}
	return o
}

// RootResult records the outcome of fetching one thread root.
type RootResult struct {
	ThreadTS string
	Err      error // nil on success
}

// Report accounts for every thread root a collection attempted, so callers
// can tell "no threads existed" apart from "every fetch failed".
type Report struct {
	Results []RootResult
	// Err is the terminal error for a whole channel in multi-channel
	// collection; nil when the channel's history was at least scanned.
	Err error
}

// Failed returns the results whose fetch failed.
func (r *Report) Failed() []RootResult {
	var out []RootResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// CollectThreads collects the threads rooted in a channel's recent history.
// Threads are returned in first-seen history order (deterministic). A failure
// fetching one root is recorded in the report and skipped; only channel
// resolution or history fetch failures are terminal.
func (c *Collector) CollectThreads(ctx context.Context, channelID string, opts CollectOptions) ([]model.Thread, *Report, error) {
	opts = opts.normalized()
	c.logger.Info("collecting threads", "channel", channelID, "limit", opts.Limit)

	channel, err := c.GetChannel(ctx, channelID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve channel %s: %w", channelID, err)
	}
	if channel.IsArchived {
		c.logger.Warn("channel is archived", "channel", channel.Name, "id", channelID)
	}

	history, err := c.fetcher.FetchChannelMessages(ctx, channelID, opts.Limit, opts.Oldest, opts.Latest)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch history for channel %s: %w", channelID, err)
	}

	roots := selectRoots(history, opts.MinThreadLength)

	threads := make([]model.Thread, 0, len(roots))
	report := &Report{Results: make([]RootResult, 0, len(roots))}
	for _, threadTS := range roots {
		raw, err := c.fetcher.FetchThreadMessages(ctx, channelID, threadTS)
		if err != nil {
			c.logger.Error("failed to fetch thread", "channel", channelID, "thread_ts", threadTS, "error", err)
			report.Results = append(report.Results, RootResult{ThreadTS: threadTS, Err: err})
			continue
		}
		if len(raw) == 0 {
			report.Results = append(report.Results, RootResult{ThreadTS: threadTS, Err: fmt.Errorf("thread %s returned no messages", threadTS)})
			continue
		}

		parent := model.NewMessageFromAPI(raw[0], channelID)
		replies := make([]model.Message, 0, len(raw)-1)
		for _, m := range raw[1:] {
			replies = append(replies, model.NewMessageFromAPI(m, channelID))
		}

		threads = append(threads, model.Thread{
			ChannelID: channelID,
			ThreadTS:  threadTS,
			Parent:    parent,
			Replies:   replies,
		})
		report.Results = append(report.Results, RootResult{ThreadTS: threadTS})
		c.logger.Debug("collected thread", "thread_ts", threadTS, "replies", len(replies))
	}

	c.logger.Info("collected threads", "channel", channelID, "threads", len(threads), "failed_roots", len(report.Failed()))
	return threads, report, nil
}

// CollectThreadsMany collects threads from several channels. A terminal
// failure in one channel yields an empty slice and a report carrying the
// error for that channel only; the remaining channels still proceed.
func (c *Collector) CollectThreadsMany(ctx context.Context, channelIDs []string, opts CollectOptions) (map[string][]model.Thread, map[string]*Report) {
	threads := make(map[string][]model.Thread, len(channelIDs))
	reports := make(map[string]*Report, len(channelIDs))

	for _, channelID := range channelIDs {
		chThreads, report, err := c.CollectThreads(ctx, channelID, opts)
		if err != nil {
			c.logger.Error("failed to collect channel", "channel", channelID, "error", err)
			threads[channelID] = []model.Thread{}
			reports[channelID] = &Report{Err: err}
			continue
		}
		threads[channelID] = chThreads
		reports[channelID] = report
	}
	return threads, reports
}

// selectRoots returns the deduplicated thread-root timestamps of a history
// slice in first-seen order. A message is a root iff its thread_ts equals its
// own ts and it has at least minReplies replies.
func selectRoots(history []slack.Message, minReplies int) []string {
	seen := make(map[string]struct{}, len(history))
	var roots []string
	for _, m := range history {
		if m.ThreadTimestamp == "" || m.ThreadTimestamp != m.Timestamp {
			continue
		}
		if m.ReplyCount < minReplies {
			continue
		}
		if _, ok := seen[m.Timestamp]; ok {
			continue
		}
		seen[m.Timestamp] = struct{}{}
		roots = append(roots, m.Timestamp)
	}
	return roots
}
