package types

import (
	"sort"
	"time"
)

// TimestampLayout is the key format of a stored entry: local ISO-8601 with
// microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Record is one decoded form submission: field name to field value.
type Record map[string]string

// Document is the whole persisted store, keyed by entry timestamp.
type Document map[string]Record

// EntryKey formats t as a document key.
func EntryKey(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Entry is a Record paired with the key it is stored under.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Record    Record `json:"record"`
}

// Entries returns the document as a slice ordered by timestamp. Keys share
// one fixed-width layout, so lexical order is chronological order.
func (d Document) Entries() []Entry {
	out := make([]Entry, 0, len(d))
	for ts, rec := range d {
		out = append(out, Entry{Timestamp: ts, Record: rec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}
