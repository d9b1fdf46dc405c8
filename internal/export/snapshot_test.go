package export

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"slackthreads/internal/model"
)

func writeVersioned(w io.Writer, version int) error {
	return msgpack.NewEncoder(w).Encode(snapshot{Version: version})
}

func snapshotFixture(t *testing.T) []model.Thread {
	t.Helper()
	parentTS, err := model.ParseTS("1609459200.123456")
	if err != nil {
		t.Fatalf("ParseTS: %v", err)
	}
	replyTS, err := model.ParseTS("1609459250.654321")
	if err != nil {
		t.Fatalf("ParseTS: %v", err)
	}
	return []model.Thread{
		{
			ChannelID: "C1",
			ThreadTS:  "1609459200.123456",
			Parent: model.Message{
				ChannelID:  "C1",
				TS:         "1609459200.123456",
				UserID:     "U1",
				Text:       "parent",
				ThreadTS:   "1609459200.123456",
				ReplyCount: 1,
				IsParent:   true,
				Timestamp:  parentTS,
				Files:      []model.File{{ID: "F1", Name: "notes.txt"}},
				Reactions:  []model.Reaction{{Name: "eyes", Count: 1, Users: []string{"U2"}}},
			},
			Replies: []model.Message{
				{
					ChannelID: "C1",
					TS:        "1609459250.654321",
					UserID:    "U2",
					Text:      "reply",
					ThreadTS:  "1609459200.123456",
					Timestamp: replyTS,
				},
			},
		},
		{
			ChannelID: "C2",
			ThreadTS:  "1609459300.000001",
			Parent:    model.Message{ChannelID: "C2", TS: "1609459300.000001", Text: "system parent"},
		},
	}
}

func assertThreadsEqual(t *testing.T, want, got []model.Thread) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d threads, got %d", len(want), len(got))
	}
	for i := range want {
		w, g := want[i], got[i]
		if g.ChannelID != w.ChannelID || g.ThreadTS != w.ThreadTS {
			t.Fatalf("thread %d identity mismatch: %+v vs %+v", i, w, g)
		}
		wm, gm := w.Messages(), g.Messages()
		if len(gm) != len(wm) {
			t.Fatalf("thread %d message count mismatch: %d vs %d", i, len(wm), len(gm))
		}
		for j := range wm {
			if gm[j].TS != wm[j].TS || gm[j].UserID != wm[j].UserID || gm[j].Text != wm[j].Text {
				t.Fatalf("thread %d message %d mismatch: %+v vs %+v", i, j, wm[j], gm[j])
			}
			if gm[j].IsParent != wm[j].IsParent || gm[j].ReplyCount != wm[j].ReplyCount {
				t.Fatalf("thread %d message %d flags mismatch: %+v vs %+v", i, j, wm[j], gm[j])
			}
			if !gm[j].Timestamp.Equal(wm[j].Timestamp) {
				t.Fatalf("thread %d message %d timestamp drift: %v vs %v", i, j, wm[j].Timestamp, gm[j].Timestamp)
			}
			if len(gm[j].Files) != len(wm[j].Files) || len(gm[j].Reactions) != len(wm[j].Reactions) {
				t.Fatalf("thread %d message %d attachments mismatch: %+v vs %+v", i, j, wm[j], gm[j])
			}
		}
	}
}

func TestSnapshot_RoundTripStream(t *testing.T) {
	want := snapshotFixture(t)

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, want); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, err := ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	assertThreadsEqual(t, want, got)
}

func TestSnapshot_RoundTripFile(t *testing.T) {
	want := snapshotFixture(t)
	path := filepath.Join(t.TempDir(), "threads.snapshot")

	if err := SaveSnapshot(path, want); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	got, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	assertThreadsEqual(t, want, got)
}

func TestSnapshot_RejectsUnknownVersion(t *testing.T) {
	var future bytes.Buffer
	if err := writeVersioned(&future, 99); err != nil {
		t.Fatalf("writeVersioned: %v", err)
	}
	if _, err := ReadSnapshot(&future); err == nil {
		t.Fatal("expected version mismatch error")
	}
}

func TestLoadSnapshot_MissingFile(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.snapshot")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
