package filter

import (
	"testing"
	"time"

	"slackthreads/internal/model"
)

func thread(ts string, when time.Time, users []string, texts ...string) model.Thread {
	parent := model.Message{TS: ts, Text: texts[0], Timestamp: when}
	if len(users) > 0 {
		parent.UserID = users[0]
	}
	var replies []model.Message
	for i, text := range texts[1:] {
		m := model.Message{Text: text}
		if i+1 < len(users) {
			m.UserID = users[i+1]
		}
		replies = append(replies, m)
	}
	return model.Thread{ChannelID: "C1", ThreadTS: ts, Parent: parent, Replies: replies}
}

var t0 = time.Unix(1609459200, 0)

func fixtures() []model.Thread {
	return []model.Thread{
		thread("1.0", t0, []string{"U1", "U2"}, "apple banana", "nice"),
		thread("2.0", t0.Add(200*time.Second), []string{"U3"}, "cherry date", "elderberry"),
	}
}

func tsOf(threads []model.Thread) []string {
	out := make([]string, len(threads))
	for i, t := range threads {
		out[i] = t.ThreadTS
	}
	return out
}

func TestDateRange_Identity(t *testing.T) {
	in := fixtures()
	out := DateRange(time.Time{}, time.Time{})(in)
	if len(out) != len(in) {
		t.Fatalf("both bounds zero should return input unchanged, got %v", tsOf(out))
	}
}

func TestDateRange_StartOnly(t *testing.T) {
	out := DateRange(t0.Add(60*time.Second), time.Time{})(fixtures())
	if len(out) != 1 || out[0].ThreadTS != "2.0" {
		t.Fatalf("expected only the later thread, got %v", tsOf(out))
	}
}

func TestDateRange_EndOnly(t *testing.T) {
	out := DateRange(time.Time{}, t0.Add(100*time.Second))(fixtures())
	if len(out) != 1 || out[0].ThreadTS != "1.0" {
		t.Fatalf("expected only the earlier thread, got %v", tsOf(out))
	}
}

func TestDateRange_BoundsInclusive(t *testing.T) {
	out := DateRange(t0, t0)(fixtures())
	if len(out) != 1 || out[0].ThreadTS != "1.0" {
		t.Fatalf("timestamp equal to both bounds must be kept, got %v", tsOf(out))
	}
	out = DateRange(time.Time{}, t0.Add(200*time.Second))(fixtures())
	if len(out) != 2 {
		t.Fatalf("timestamp equal to end bound must be kept, got %v", tsOf(out))
	}
}

func TestKeywords_AnyMatch(t *testing.T) {
	out := Keywords([]string{"banana"}, KeywordOptions{})(fixtures())
	if len(out) != 1 || out[0].ThreadTS != "1.0" {
		t.Fatalf("expected only the banana thread, got %v", tsOf(out))
	}
	out = Keywords([]string{"banana", "elderberry"}, KeywordOptions{})(fixtures())
	if len(out) != 2 {
		t.Fatalf("any-match should keep both (elderberry is in a reply), got %v", tsOf(out))
	}
}

func TestKeywords_MatchAll(t *testing.T) {
	out := Keywords([]string{"apple", "banana"}, KeywordOptions{MatchAll: true})(fixtures())
	if len(out) != 1 || out[0].ThreadTS != "1.0" {
		t.Fatalf("expected only the thread containing both, got %v", tsOf(out))
	}
	out = Keywords([]string{"apple", "elderberry"}, KeywordOptions{MatchAll: true})(fixtures())
	if len(out) != 0 {
		t.Fatalf("no thread contains both, got %v", tsOf(out))
	}
}

func TestKeywords_CaseSensitivity(t *testing.T) {
	out := Keywords([]string{"APPLE"}, KeywordOptions{})(fixtures())
	if len(out) != 1 {
		t.Fatalf("case-insensitive APPLE should match, got %v", tsOf(out))
	}
	out = Keywords([]string{"APPLE"}, KeywordOptions{CaseSensitive: true})(fixtures())
	if len(out) != 0 {
		t.Fatalf("case-sensitive APPLE should match nothing, got %v", tsOf(out))
	}
}

func TestKeywords_EmptyListIdentity(t *testing.T) {
	in := fixtures()
	out := Keywords(nil, KeywordOptions{})(in)
	if len(out) != len(in) {
		t.Fatalf("empty keyword list should return input unchanged, got %v", tsOf(out))
	}
}

func TestRegexp_Match(t *testing.T) {
	f, err := Regexp(`ban\w+a`)
	if err != nil {
		t.Fatalf("Regexp: %v", err)
	}
	out := f(fixtures())
	if len(out) != 1 || out[0].ThreadTS != "1.0" {
		t.Fatalf("expected only the banana thread, got %v", tsOf(out))
	}
}

func TestRegexp_CaseInsensitiveFlag(t *testing.T) {
	f, err := Regexp(`(?i)CHERRY`)
	if err != nil {
		t.Fatalf("Regexp: %v", err)
	}
	out := f(fixtures())
	if len(out) != 1 || out[0].ThreadTS != "2.0" {
		t.Fatalf("expected the cherry thread, got %v", tsOf(out))
	}
}

func TestRegexp_InvalidPatternFailsAtConstruction(t *testing.T) {
	if _, err := Regexp(`(unclosed`); err == nil {
		t.Fatal("expected compile error at construction time")
	}
}

func TestParticipants_AnyAndAll(t *testing.T) {
	out := Participants([]string{"U2", "U3"}, false)(fixtures())
	if len(out) != 2 {
		t.Fatalf("any-match should keep both threads, got %v", tsOf(out))
	}
	out = Participants([]string{"U1", "U2"}, true)(fixtures())
	if len(out) != 1 || out[0].ThreadTS != "1.0" {
		t.Fatalf("require-all should keep only the first thread, got %v", tsOf(out))
	}
	out = Participants(nil, true)(fixtures())
	if len(out) != 2 {
		t.Fatalf("empty ID list should return input unchanged, got %v", tsOf(out))
	}
}

func TestPredicate(t *testing.T) {
	out := Predicate(func(th model.Thread) bool { return th.Parent.UserID == "U3" })(fixtures())
	if len(out) != 1 || out[0].ThreadTS != "2.0" {
		t.Fatalf("expected only U3's thread, got %v", tsOf(out))
	}
}

func TestChain_OrderIndependentResult(t *testing.T) {
	kw := Keywords([]string{"e"}, KeywordOptions{})
	date := DateRange(time.Time{}, t0.Add(300*time.Second))

	a := Chain(kw, date)(fixtures())
	b := Chain(date, kw)(fixtures())
	if len(a) != len(b) {
		t.Fatalf("independent filters must commute in effect: %v vs %v", tsOf(a), tsOf(b))
	}
	for i := range a {
		if a[i].ThreadTS != b[i].ThreadTS {
			t.Fatalf("independent filters must commute in effect: %v vs %v", tsOf(a), tsOf(b))
		}
	}
}

func TestFilters_PreserveInputOrderAndSlice(t *testing.T) {
	in := fixtures()
	out := Keywords([]string{"e"}, KeywordOptions{})(in) // matches both
	if len(out) != 2 || out[0].ThreadTS != "1.0" || out[1].ThreadTS != "2.0" {
		t.Fatalf("filters must preserve input order, got %v", tsOf(out))
	}
	if in[0].ThreadTS != "1.0" || in[1].ThreadTS != "2.0" {
		t.Fatal("filters must not mutate the input slice")
	}
}
