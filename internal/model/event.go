package model

import (
	"sort"
	"time"
)

// KeyLayout formats event keys. Keys are UTC, so lexical order is chronological.
const KeyLayout = "2006-01-02T15:04:05Z"

// LogEvent is one accepted download taken from an access log line.
type LogEvent struct {
	Timestamp time.Time `json:"ts"`
	IP        string    `json:"ip"`
	Path      string    `json:"path"`
	Bytes     int64     `json:"bytes"`
	UserAgent string    `json:"user_agent"`
	Status    int       `json:"status"`
}

// Key returns the store key of the event.
func (e LogEvent) Key() string {
	return KeyFor(e.Timestamp)
}

// KeyFor returns the store key for a timestamp.
func KeyFor(t time.Time) string {
	return t.UTC().Format(KeyLayout)
}

// EventStore maps a timestamp key to the event recorded at that second.
type EventStore map[string]LogEvent

// NewEventStore returns an empty store.
func NewEventStore() EventStore {
	return make(EventStore)
}

// Put records an event, overwriting any event with the same timestamp.
func (s EventStore) Put(e LogEvent) {
	s[e.Key()] = e
}

// Merge adds every event of other into s. Entries of s are never removed.
func (s EventStore) Merge(other EventStore) {
	for k, e := range other {
		s[k] = e
	}
}

// Keys returns the store keys in encounter (chronological) order.
func (s EventStore) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Events returns the stored events in encounter order.
func (s EventStore) Events() []LogEvent {
	keys := s.Keys()
	out := make([]LogEvent, 0, len(keys))
	for _, k := range keys {
		out = append(out, s[k])
	}
	return out
}

// RawLine is a single unparsed line read from a log file.
type RawLine struct {
	Text   string
	Source string // originating file path
	Number int    // 1-based line number within Source
}
