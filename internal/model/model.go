// Package model defines the value types the collector works with: users,
// channels, messages and threads, converted once from raw Slack API payloads
// and never mutated afterwards.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// User is a Slack workspace member.
type User struct {
	ID          string `json:"id" msgpack:"id"`
	Name        string `json:"name" msgpack:"name"`
	RealName    string `json:"real_name,omitempty" msgpack:"real_name"`
	DisplayName string `json:"display_name,omitempty" msgpack:"display_name"`
	Email       string `json:"email,omitempty" msgpack:"email"`
	IsBot       bool   `json:"is_bot" msgpack:"is_bot"`
}

// NewUserFromAPI converts a raw Slack user payload.
func NewUserFromAPI(u *slack.User) User {
	return User{
		ID:          u.ID,
		Name:        u.Name,
		RealName:    u.RealName,
		DisplayName: u.Profile.DisplayName,
		Email:       u.Profile.Email,
		IsBot:       u.IsBot,
	}
}

// Channel is a Slack conversation (public or private channel).
type Channel struct {
	ID          string `json:"id" msgpack:"id"`
	Name        string `json:"name" msgpack:"name"`
	IsPrivate   bool   `json:"is_private" msgpack:"is_private"`
	IsArchived  bool   `json:"is_archived" msgpack:"is_archived"`
	Topic       string `json:"topic,omitempty" msgpack:"topic"`
	Purpose     string `json:"purpose,omitempty" msgpack:"purpose"`
	MemberCount int    `json:"member_count,omitempty" msgpack:"member_count"`
}

// NewChannelFromAPI converts a raw Slack channel payload.
func NewChannelFromAPI(c *slack.Channel) Channel {
	return Channel{
		ID:          c.ID,
		Name:        c.Name,
		IsPrivate:   c.IsPrivate,
		IsArchived:  c.IsArchived,
		Topic:       c.Topic.Value,
		Purpose:     c.Purpose.Value,
		MemberCount: c.NumMembers,
	}
}

// File is a file attached to a message.
type File struct {
	ID         string `json:"id" msgpack:"id"`
	Name       string `json:"name" msgpack:"name"`
	Mimetype   string `json:"mimetype,omitempty" msgpack:"mimetype"`
	URLPrivate string `json:"url_private,omitempty" msgpack:"url_private"`
}

// Reaction is an emoji reaction on a message.
type Reaction struct {
	Name  string   `json:"name" msgpack:"name"`
	Count int      `json:"count" msgpack:"count"`
	Users []string `json:"users,omitempty" msgpack:"users"`
}

// Message is a single Slack message. TS is the Slack timestamp string, which
// doubles as the message's unique, lexically sortable ID within a channel.
// ThreadTS is set when the message belongs to a thread; it equals TS on the
// thread's parent.
type Message struct {
	ChannelID  string     `json:"channel_id" msgpack:"channel_id"`
	TS         string     `json:"ts" msgpack:"ts"`
	UserID     string     `json:"user_id,omitempty" msgpack:"user_id"`
	Text       string     `json:"text" msgpack:"text"`
	ThreadTS   string     `json:"thread_ts,omitempty" msgpack:"thread_ts"`
	ReplyCount int        `json:"reply_count,omitempty" msgpack:"reply_count"`
	Files      []File     `json:"files,omitempty" msgpack:"files"`
	Reactions  []Reaction `json:"reactions,omitempty" msgpack:"reactions"`
	IsParent   bool       `json:"is_parent" msgpack:"is_parent"`
	Timestamp  time.Time  `json:"timestamp" msgpack:"timestamp"`
}

// NewMessageFromAPI converts a raw Slack message payload. The wall-clock
// Timestamp is derived from the ts string; a ts Slack did not generate (and
// that therefore fails to parse) yields a zero Timestamp rather than an
// error, since everything else about the message is still usable.
func NewMessageFromAPI(m slack.Message, channelID string) Message {
	ts, _ := ParseTS(m.Timestamp)

	files := make([]File, 0, len(m.Files))
	for _, f := range m.Files {
		files = append(files, File{
			ID:         f.ID,
			Name:       f.Name,
			Mimetype:   f.Mimetype,
			URLPrivate: f.URLPrivate,
		})
	}
	reactions := make([]Reaction, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		reactions = append(reactions, Reaction{
			Name:  r.Name,
			Count: r.Count,
			Users: append([]string(nil), r.Users...),
		})
	}

	return Message{
		ChannelID:  channelID,
		TS:         m.Timestamp,
		UserID:     m.User,
		Text:       m.Text,
		ThreadTS:   m.ThreadTimestamp,
		ReplyCount: m.ReplyCount,
		Files:      files,
		Reactions:  reactions,
		IsParent:   m.ThreadTimestamp != "" && m.ThreadTimestamp == m.Timestamp,
		Timestamp:  ts,
	}
}

// ParseTS parses a Slack timestamp string ("1609459200.123456") into a
// wall-clock instant, preserving the fractional seconds exactly. Parsing the
// parts separately avoids the float rounding a naive ParseFloat would cost at
// this magnitude.
func ParseTS(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slack timestamp %q: %w", ts, err)
	}
	var nsec int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		nsec, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse slack timestamp %q: %w", ts, err)
		}
		for i := len(fracPart); i < 9; i++ {
			nsec *= 10
		}
	}
	return time.Unix(sec, nsec), nil
}

// Thread is a parent message together with its replies, in the chronological
// order Slack returned them. ThreadTS equals the parent's TS.
type Thread struct {
	ChannelID string    `json:"channel_id" msgpack:"channel_id"`
	ThreadTS  string    `json:"thread_ts" msgpack:"thread_ts"`
	Parent    Message   `json:"parent_message" msgpack:"parent_message"`
	Replies   []Message `json:"replies" msgpack:"replies"`
}

// ReplyCount returns the number of replies in the thread.
func (t Thread) ReplyCount() int { return len(t.Replies) }

// Messages returns the parent followed by the replies.
func (t Thread) Messages() []Message {
	out := make([]Message, 0, 1+len(t.Replies))
	out = append(out, t.Parent)
	return append(out, t.Replies...)
}

// ParticipantIDs returns the deduplicated user IDs appearing across the
// parent and replies, in first-seen order. System messages (no user ID) are
// skipped.
func (t Thread) ParticipantIDs() []string {
	seen := make(map[string]struct{}, 1+len(t.Replies))
	var out []string
	for _, m := range t.Messages() {
		if m.UserID == "" {
			continue
		}
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		out = append(out, m.UserID)
	}
	return out
}

// CombinedText joins the text of the parent and all replies with single
// spaces. Filters use it as the thread's search corpus.
func (t Thread) CombinedText() string {
	parts := make([]string, 0, 1+len(t.Replies))
	for _, m := range t.Messages() {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, " ")
}
