package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/atikulmunna/dlcount/internal/fsutil"
	"github.com/atikulmunna/dlcount/internal/model"
)

// schemaVersion is bumped whenever the on-disk documents change shape.
const schemaVersion = 1

// eventsDocument is the on-disk JSON structure of the event store.
type eventsDocument struct {
	Version int              `json:"version"`
	Events  []model.LogEvent `json:"events"`
}

// countsDocument is the on-disk JSON structure of the count table.
type countsDocument struct {
	Version     int                 `json:"version"`
	GeneratedAt time.Time           `json:"generated_at"`
	Counts      []model.RankedCount `json:"counts"`
}

// JSON keeps the event store and count table in two JSON documents.
type JSON struct {
	path       string
	countsPath string
}

// NewJSON creates a JSON backend for the given files.
func NewJSON(path, countsPath string) *JSON {
	return &JSON{path: path, countsPath: countsPath}
}

func (s *JSON) Load() (model.EventStore, error) {
	var doc eventsDocument
	if err := readDocument(s.path, &doc); err != nil {
		return nil, err
	}
	events := model.NewEventStore()
	for _, ev := range doc.Events {
		events.Put(ev)
	}
	return events, nil
}

func (s *JSON) Save(events model.EventStore) error {
	return writeDocument(s.path, eventsDocument{
		Version: schemaVersion,
		Events:  events.Events(),
	})
}

func (s *JSON) LoadCounts() (*model.CountTable, error) {
	var doc countsDocument
	if err := readDocument(s.countsPath, &doc); err != nil {
		return nil, err
	}
	return model.CountTableFrom(doc.Counts), nil
}

func (s *JSON) SaveCounts(counts *model.CountTable) error {
	return writeDocument(s.countsPath, countsDocument{
		Version:     schemaVersion,
		GeneratedAt: time.Now().UTC(),
		Counts:      counts.Entries(),
	})
}

func (s *JSON) CountsLocation() string { return s.countsPath }

func (s *JSON) Close() error { return nil }

// readDocument decodes path into v and checks its schema version.
func readDocument(path string, v interface{ version() int }) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrStorageMissing)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if got := v.version(); got != schemaVersion {
		return fmt.Errorf("decode %s: unsupported schema version %d", path, got)
	}
	return nil
}

func (d *eventsDocument) version() int { return d.Version }
func (d *countsDocument) version() int { return d.Version }

// writeDocument writes v to path atomically: a temp file in the same
// directory is synced and then renamed over the target.
func writeDocument(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return writeErr("encode", path, err)
	}
	if err := fsutil.WriteFileAtomic(path, raw); err != nil {
		return writeErr("replace", path, err)
	}
	return nil
}
