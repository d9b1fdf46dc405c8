// Package filter provides composable predicates over thread slices. Filters
// only remove threads, never reorder or mutate them, so chaining filters is a
// logical AND of their predicates.
package filter

import (
	"regexp"
	"strings"
	"time"

	"slackthreads/internal/model"
)

// Filter narrows a thread slice. The input slice is never modified.
type Filter func([]model.Thread) []model.Thread

// Chain applies filters left to right.
func Chain(filters ...Filter) Filter {
	return func(threads []model.Thread) []model.Thread {
		for _, f := range filters {
			threads = f(threads)
		}
		return threads
	}
}

// DateRange keeps threads whose parent message falls within [start, end],
// bounds inclusive. A zero time leaves that bound open; both zero is the
// identity filter.
func DateRange(start, end time.Time) Filter {
	if start.IsZero() && end.IsZero() {
		return identity
	}
	return func(threads []model.Thread) []model.Thread {
		out := make([]model.Thread, 0, len(threads))
		for _, t := range threads {
			ts := t.Parent.Timestamp
			if !start.IsZero() && ts.Before(start) {
				continue
			}
			if !end.IsZero() && ts.After(end) {
				continue
			}
			out = append(out, t)
		}
		return out
	}
}

// KeywordOptions tunes keyword matching.
type KeywordOptions struct {
	// MatchAll requires every keyword to appear; otherwise any one suffices.
	MatchAll bool
	// CaseSensitive disables the default lower-casing of corpus and keywords.
	CaseSensitive bool
}

// Keywords keeps threads whose combined text contains the given substrings.
// An empty keyword list is the identity filter.
func Keywords(keywords []string, opts KeywordOptions) Filter {
	if len(keywords) == 0 {
		return identity
	}
	search := keywords
	if !opts.CaseSensitive {
		search = make([]string, len(keywords))
		for i, k := range keywords {
			search[i] = strings.ToLower(k)
		}
	}
	return func(threads []model.Thread) []model.Thread {
		out := make([]model.Thread, 0, len(threads))
		for _, t := range threads {
			text := t.CombinedText()
			if !opts.CaseSensitive {
				text = strings.ToLower(text)
			}
			if matchKeywords(text, search, opts.MatchAll) {
				out = append(out, t)
			}
		}
		return out
	}
}

func matchKeywords(text string, keywords []string, matchAll bool) bool {
	for _, k := range keywords {
		found := strings.Contains(text, k)
		if matchAll && !found {
			return false
		}
		if !matchAll && found {
			return true
		}
	}
	return matchAll
}

// Regexp keeps threads whose combined text matches pattern. The pattern is
// compiled once here, so an invalid pattern fails at construction rather than
// during filtering. Flags ride in the pattern itself ("(?i)..." etc).
func Regexp(pattern string) (Filter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return func(threads []model.Thread) []model.Thread {
		out := make([]model.Thread, 0, len(threads))
		for _, t := range threads {
			if re.MatchString(t.CombinedText()) {
				out = append(out, t)
			}
		}
		return out
	}, nil
}

// Participants keeps threads whose participant set intersects the given user
// IDs, or fully contains them when requireAll is set. An empty ID list is the
// identity filter.
func Participants(userIDs []string, requireAll bool) Filter {
	if len(userIDs) == 0 {
		return identity
	}
	return func(threads []model.Thread) []model.Thread {
		out := make([]model.Thread, 0, len(threads))
		for _, t := range threads {
			participants := make(map[string]struct{})
			for _, id := range t.ParticipantIDs() {
				participants[id] = struct{}{}
			}
			if matchParticipants(participants, userIDs, requireAll) {
				out = append(out, t)
			}
		}
		return out
	}
}

func matchParticipants(participants map[string]struct{}, userIDs []string, requireAll bool) bool {
	for _, id := range userIDs {
		_, found := participants[id]
		if requireAll && !found {
			return false
		}
		if !requireAll && found {
			return true
		}
	}
	return requireAll
}

// Predicate keeps threads for which keep returns true, letting callers plug
// in arbitrary logic.
func Predicate(keep func(model.Thread) bool) Filter {
	return func(threads []model.Thread) []model.Thread {
		out := make([]model.Thread, 0, len(threads))
		for _, t := range threads {
			if keep(t) {
				out = append(out, t)
			}
		}
		return out
	}
}

func identity(threads []model.Thread) []model.Thread { return threads }
