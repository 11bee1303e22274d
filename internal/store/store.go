package store

import (
	"errors"
	"fmt"

	"github.com/atikulmunna/dlcount/internal/model"
)

var (
	// ErrStorageMissing is returned by Load when nothing has been persisted yet.
	ErrStorageMissing = errors.New("storage missing")
	// ErrStorageWrite wraps any failure while persisting. Previously saved
	// state is left untouched when it is returned.
	ErrStorageWrite = errors.New("storage write failed")
)

// Store persists the event store and the derived count table.
type Store interface {
	Load() (model.EventStore, error)
	Save(events model.EventStore) error
	LoadCounts() (*model.CountTable, error)
	SaveCounts(counts *model.CountTable) error
	// CountsLocation is the file that changes when counts are saved.
	CountsLocation() string
	Close() error
}

// Drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Options selects and locates a backend.
type Options struct {
	Driver     string
	Path       string // event store file, or the database for sqlite
	CountsPath string // count table file; unused by sqlite
}

// Open returns the backend named by opts.Driver. Nothing is read or created
// until the first call on the returned Store.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverJSON:
		return NewJSON(opts.Path, opts.CountsPath), nil
	case DriverSQLite:
		return NewSQLite(opts.Path), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func writeErr(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrStorageWrite, op, path, err)
}
