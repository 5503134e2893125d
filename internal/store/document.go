package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"msgboard/relay/internal/types"
)

var (
	errInvalidJSON = errors.New("invalid json")
	errNotMapping  = errors.New("top-level value is not an object")
)

// rawDocument keeps entry values undecoded so an append never rewrites
// entries it does not understand.
type rawDocument map[string]json.RawMessage

// records decodes every entry that is an object of strings. Other values
// stay on disk but are not listed.
func (d rawDocument) records(log *slog.Logger) types.Document {
	out := make(types.Document, len(d))
	for key, raw := range d {
		var rec types.Record
		if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
			log.Debug("skipping entry that is not a record", "key", key)
			continue
		}
		out[key] = rec
	}
	return out
}

func (s *Store) load() (rawDocument, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: got %T", errNotMapping, v)
	}
	var doc rawDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return doc, nil
}

// write replaces the document atomically: readers see the old file or
// the new one, never a partial write.
func (s *Store) write(doc rawDocument) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".data-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}

	success = true
	return nil
}

func mustRaw(rec types.Record) json.RawMessage {
	if rec == nil {
		rec = types.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// A map of strings always encodes; invalid UTF-8 is replaced, not rejected.
	_ = enc.Encode(rec)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
