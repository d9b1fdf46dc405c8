package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"slackthreads/internal/model"
)

// WriteJSON writes threads as JSON to a borrowed stream. Timestamps render as
// RFC 3339 strings; pretty enables four-space indentation.
func WriteJSON(w io.Writer, threads []model.Thread, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "    ")
	}
	if err := enc.Encode(threads); err != nil {
		return fmt.Errorf("encode threads: %w", err)
	}
	return nil
}

// SaveJSON writes threads as JSON to a file it owns.
func SaveJSON(path string, threads []model.Thread, pretty bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close json file: %w", cerr)
		}
	}()
	return WriteJSON(f, threads, pretty)
}
