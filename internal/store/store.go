package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"msgboard/relay/internal/types"
)

// Store owns the JSON document that maps entry timestamps to records.
//
// Reads are corruption tolerant: a missing, unreadable or malformed
// document is reported as absent and the next Append replaces it. This
// drops whatever the corrupt file held.
type Store struct {
	path string
	now  func() time.Time
	log  *slog.Logger

	// serializes the read-modify-write in Append
	mu sync.Mutex
}

type Option func(*Store)

// WithClock overrides the clock used to generate entry keys.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func New(path string, opts ...Option) *Store {
	s := &Store{path: path, now: time.Now, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Path() string { return s.path }

// EnsureExists creates the storage directory and an empty document when
// they are missing. Safe to call on every startup.
func (s *Store) EnsureExists() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	if err := s.write(rawDocument{}); err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	return nil
}

// ReadAll returns the parsed document. ok is false when the file is
// missing or does not hold a JSON object of records; callers treat both
// cases as "no data".
func (s *Store) ReadAll() (doc types.Document, ok bool) {
	raw, err := s.load()
	if err != nil {
		return nil, false
	}
	return raw.records(s.log), true
}

// Append stores rec under a fresh timestamp key and rewrites the whole
// document. Failures are logged, never returned: losing one record must
// not stop the caller.
func (s *Store) Append(rec types.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.EntryKey(s.now())

	doc, err := s.load()
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		doc = rawDocument{}
	case errors.Is(err, errNotMapping):
		s.log.Warn("stored document is not a mapping; starting a new one", "path", s.path, "err", err)
		metricCorruptResets.Inc()
		doc = rawDocument{}
	case errors.Is(err, errInvalidJSON):
		s.log.Warn("stored document is not valid json; starting a new one", "path", s.path, "err", err)
		metricCorruptResets.Inc()
		doc = rawDocument{}
	default:
		metricAppends.WithLabelValues("error").Inc()
		s.log.Error("read document failed; record dropped", "path", s.path, "key", key, "err", err)
		return
	}

	doc[key] = mustRaw(rec)

	if err := s.write(doc); err != nil {
		metricAppends.WithLabelValues("error").Inc()
		s.log.Error("append failed; record dropped", "path", s.path, "key", key, "err", err)
		return
	}
	metricAppends.WithLabelValues("ok").Inc()
	s.log.Debug("record stored", "key", key, "fields", len(rec))
}
