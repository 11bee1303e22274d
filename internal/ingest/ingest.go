package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"github.com/atikulmunna/dlcount/internal/model"
	"github.com/atikulmunna/dlcount/internal/parser"
)

// ErrInputNotFound is returned when no log file exists for the given path or pattern.
var ErrInputNotFound = errors.New("log file not found")

// maxLineSize bounds a single log line. Longer lines are skipped as malformed.
const maxLineSize = 1 << 20

// Result counts what happened to every line read during ingestion.
type Result struct {
	Files       []string
	Lines       int
	ParseErrors int
	Accepted    int
	Rejected    map[Reason]int
}

func newResult() *Result {
	return &Result{Rejected: make(map[Reason]int)}
}

// Ingester reads access logs and merges accepted download events into a store.
type Ingester struct {
	parser parser.Parser
}

// New creates an Ingester using the given line parser.
func New(p parser.Parser) *Ingester {
	return &Ingester{parser: p}
}

// Resolve expands a path or doublestar glob into the sorted list of matching files.
func Resolve(pattern string) ([]string, error) {
	if fi, err := os.Stat(pattern); err == nil && !fi.IsDir() {
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s: %w", pattern, ErrInputNotFound)
	}
	sort.Strings(matches)
	return matches, nil
}

// Ingest reads every file matching pattern and adds accepted events to store.
// The store is updated in place and also returned. Malformed lines are counted
// and skipped; only a missing input or an I/O failure aborts ingestion.
func (in *Ingester) Ingest(pattern string, store model.EventStore) (model.EventStore, *Result, error) {
	files, err := Resolve(pattern)
	if err != nil {
		return store, nil, err
	}
	return in.IngestFiles(files, store)
}

// IngestFiles is Ingest for an already resolved list of files.
func (in *Ingester) IngestFiles(files []string, store model.EventStore) (model.EventStore, *Result, error) {
	if store == nil {
		store = model.NewEventStore()
	}

	res := newResult()
	for _, path := range files {
		if err := in.ingestFile(path, store, res); err != nil {
			return store, res, err
		}
		res.Files = append(res.Files, path)
	}
	return store, res, nil
}

// IngestReader adds accepted events from r to store. source names r in errors.
func (in *Ingester) IngestReader(r io.Reader, source string, store model.EventStore) (*Result, error) {
	res := newResult()
	if err := in.scan(r, source, store, res); err != nil {
		return res, err
	}
	return res, nil
}

func (in *Ingester) ingestFile(path string, store model.EventStore, res *Result) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrInputNotFound)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	log.Debug().Str("file", path).Msg("ingesting log file")
	return in.scan(r, path, store, res)
}

func (in *Ingester) scan(r io.Reader, source string, store model.EventStore, res *Result) error {
	br := bufio.NewReaderSize(r, 64*1024)

	n := 0
	for {
		text, tooLong, err := readLine(br)
		last := errors.Is(err, io.EOF)
		if err != nil && !last {
			return fmt.Errorf("read %s: %w", source, err)
		}
		if last && text == "" && !tooLong {
			return nil
		}
		n++

		in.handleLine(model.RawLine{Text: text, Source: source, Number: n}, tooLong, store, res)
		if last {
			return nil
		}
	}
}

func (in *Ingester) handleLine(raw model.RawLine, tooLong bool, store model.EventStore, res *Result) {
	if !tooLong && strings.TrimSpace(raw.Text) == "" {
		return
	}
	res.Lines++

	if tooLong {
		res.ParseErrors++
		log.Debug().Str("source", raw.Source).Int("line", raw.Number).Msg("skipping over-long line")
		return
	}

	ev, err := in.parser.Parse(raw)
	if err != nil {
		res.ParseErrors++
		log.Debug().Err(err).Msg("skipping malformed line")
		return
	}

	if reason := Classify(ev); reason != Accepted {
		res.Rejected[reason]++
		return
	}
	store.Put(ev)
	res.Accepted++
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed up to its end and reported as tooLong with no text.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	tooLong := false
	for {
		frag, isPrefix, err := br.ReadLine()
		if err != nil {
			return string(buf), tooLong, err
		}
		if !tooLong {
			if len(buf)+len(frag) > maxLineSize {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, frag...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}
