package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteJSON_ShapeAndTimestamps(t *testing.T) {
	threads := snapshotFixture(t)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, threads, false); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal exported json: %v", err)
	}
	if len(decoded) != len(threads) {
		t.Fatalf("expected %d threads in export, got %d", len(threads), len(decoded))
	}
	for i, entry := range decoded {
		if entry["thread_ts"] != threads[i].ThreadTS {
			t.Fatalf("thread %d: expected thread_ts %q, got %v", i, threads[i].ThreadTS, entry["thread_ts"])
		}
	}

	parent, ok := decoded[0]["parent_message"].(map[string]any)
	if !ok {
		t.Fatalf("parent_message missing: %v", decoded[0])
	}
	stamp, ok := parent["timestamp"].(string)
	if !ok {
		t.Fatalf("timestamp should render as a string, got %T", parent["timestamp"])
	}
	if _, err := time.Parse(time.RFC3339, stamp); err != nil {
		t.Fatalf("timestamp %q is not RFC 3339: %v", stamp, err)
	}
}

func TestWriteJSON_PrettyIndentation(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, snapshotFixture(t), true); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buf.String(), "\n    {") {
		t.Fatal("pretty output should use four-space indentation")
	}
}

func TestSaveJSON_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.json")
	if err := SaveJSON(path, snapshotFixture(t), false); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal exported file: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(decoded))
	}
}
