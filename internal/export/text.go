package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"slackthreads/internal/model"
)

// Directory resolves user and channel IDs to their entities. Resolution
// failures make the text exporter fall back to printing raw IDs; they never
// abort an export. *collector.Collector satisfies this.
type Directory interface {
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetChannel(ctx context.Context, channelID string) (model.Channel, error)
}

// TextOptions tunes the human-readable export.
type TextOptions struct {
	// IncludeUserInfo resolves message authors through the Directory and
	// prints their names; when false only raw user IDs are printed.
	IncludeUserInfo bool
	// Separator is the line written between consecutive threads. Empty means
	// a line of 80 "=".
	Separator string
}

const timeLayout = "2006-01-02 15:04:05"

// WriteText writes a human-readable rendering of threads to a borrowed
// stream.
func WriteText(ctx context.Context, w io.Writer, threads []model.Thread, dir Directory, opts TextOptions) error {
	separator := opts.Separator
	if separator == "" {
		separator = strings.Repeat("=", 80)
	}

	for i, t := range threads {
		if i > 0 {
			if _, err := fmt.Fprintf(w, "\n%s\n\n", separator); err != nil {
				return fmt.Errorf("write separator: %w", err)
			}
		}

		header := channelLabel(ctx, dir, t.ChannelID)
		if _, err := fmt.Fprintf(w, "Thread in #%s (Timestamp: %s)\n\n", header, t.ThreadTS); err != nil {
			return fmt.Errorf("write thread header: %w", err)
		}

		for _, m := range t.Messages() {
			label := userLabel(ctx, dir, m, opts.IncludeUserInfo)
			when := m.Timestamp.Format(timeLayout)
			if _, err := fmt.Fprintf(w, "%s - %s:\n%s\n\n", when, label, m.Text); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
		}
	}
	return nil
}

// SaveText writes a human-readable rendering of threads to a file it owns.
func SaveText(ctx context.Context, path string, threads []model.Thread, dir Directory, opts TextOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create text file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close text file: %w", cerr)
		}
	}()
	return WriteText(ctx, f, threads, dir, opts)
}

func channelLabel(ctx context.Context, dir Directory, channelID string) string {
	channel, err := dir.GetChannel(ctx, channelID)
	if err != nil {
		return fmt.Sprintf("Channel: %s", channelID)
	}
	return channel.Name
}

func userLabel(ctx context.Context, dir Directory, m model.Message, includeUserInfo bool) string {
	if m.UserID == "" {
		return "System Message"
	}
	if !includeUserInfo {
		return fmt.Sprintf("User: %s", m.UserID)
	}
	user, err := dir.GetUser(ctx, m.UserID)
	if err != nil {
		return fmt.Sprintf("User: %s", m.UserID)
	}
	name := user.RealName
	if name == "" {
		name = user.DisplayName
	}
	if name == "" {
		name = user.Name
	}
	return fmt.Sprintf("%s (@%s)", name, user.Name)
}
