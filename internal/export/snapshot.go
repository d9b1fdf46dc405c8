// Package export serializes thread collections: a binary snapshot for exact
// round-trips, JSON for downstream tooling, and a human-readable text form.
//
// Every format comes as a pair: Save/Load take a path and own opening and
// closing the file on all paths, Write/Read take a borrowed stream and never
// close it.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"slackthreads/internal/model"
)

// snapshotVersion is bumped whenever the snapshot schema changes; Load
// rejects snapshots written by an incompatible version.
const snapshotVersion = 1

type snapshot struct {
	Version int            `msgpack:"version"`
	Threads []model.Thread `msgpack:"threads"`
}

// WriteSnapshot writes the binary snapshot of threads to a borrowed stream.
func WriteSnapshot(w io.Writer, threads []model.Thread) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(snapshot{Version: snapshotVersion, Threads: threads}); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot reads a binary snapshot from a borrowed stream.
func ReadSnapshot(r io.Reader) ([]model.Thread, error) {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d (want %d)", snap.Version, snapshotVersion)
	}
	return snap.Threads, nil
}

// SaveSnapshot writes the binary snapshot of threads to a file it owns.
func SaveSnapshot(path string, threads []model.Thread) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close snapshot file: %w", cerr)
		}
	}()
	return WriteSnapshot(f, threads)
}

// LoadSnapshot reads a binary snapshot from a file it owns.
func LoadSnapshot(path string) ([]model.Thread, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}
