package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/atikulmunna/dlcount/internal/aggregator"
	"github.com/atikulmunna/dlcount/internal/config"
	"github.com/atikulmunna/dlcount/internal/ingest"
	"github.com/atikulmunna/dlcount/internal/output"
	"github.com/atikulmunna/dlcount/internal/parser"
	"github.com/atikulmunna/dlcount/internal/store"
)

// Publisher uploads a rendered artifact somewhere outside the host.
type Publisher interface {
	Put(ctx context.Context, name, contentType string, body []byte) error
}

// Summary describes one completed run.
type Summary struct {
	Ingest      *ingest.Result
	Diagnostics aggregator.Diagnostics
	StoreSize   int
	Report      output.Report
}

// Pipeline runs the batch: ingest, persist, count, report.
type Pipeline struct {
	cfg       config.Config
	store     store.Store
	ingester  *ingest.Ingester
	publisher Publisher
	now       func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithPublisher uploads the report after every successful run.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithClock replaces time.Now for the report timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline persisting through st.
func New(cfg config.Config, st store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		store:    st,
		ingester: ingest.New(parser.NewCombinedParser()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests logPath into the persisted store and rewrites counts and report.
// A missing store is an error unless force is set, in which case the run
// starts from an empty store. Nothing is written when the input is missing.
func (p *Pipeline) Run(ctx context.Context, logPath string, force bool) (*Summary, error) {
	files, err := ingest.Resolve(logPath)
	if err != nil {
		return nil, err
	}

	events, err := p.store.Load()
	switch {
	case errors.Is(err, store.ErrStorageMissing) && force:
		log.Warn().Str("store", p.cfg.Store.Path).Msg("no event store found, starting fresh")
		events = nil
	case err != nil:
		return nil, err
	}

	events, res, err := p.ingester.IngestFiles(files, events)
	if err != nil {
		return nil, err
	}
	log.Info().
		Strs("files", res.Files).
		Int("lines", res.Lines).
		Int("accepted", res.Accepted).
		Int("parse_errors", res.ParseErrors).
		Interface("rejected", res.Rejected).
		Msg("log ingested")

	if err := p.store.Save(events); err != nil {
		return nil, err
	}

	agg := aggregator.Count(events)
	if err := p.store.SaveCounts(agg.Counts); err != nil {
		return nil, err
	}
	if n := agg.Diagnostics.Total(); n > 0 {
		log.Info().Interface("skipped", agg.Diagnostics.Skipped).Msg("events not attributed to an artifact")
	}
	if n := agg.Diagnostics.EmptyKey; n > 0 {
		log.Warn().Int("events", n).Msg("filenames starting with a hyphen counted under the empty name")
	}

	rep := output.Report{
		Start:       p.cfg.Report.Start,
		Total:       aggregator.Total(agg.Counts),
		GeneratedAt: p.now(),
		Ranked:      agg.Counts.Ranked(),
		Bytes:       aggregator.BytesServed(events),
	}
	if err := p.emit(ctx, rep); err != nil {
		return nil, err
	}

	log.Info().
		Int("events", len(events)).
		Int("downloads", rep.Total).
		Str("served", humanize.Bytes(rep.Bytes)).
		Msg("statistics updated")

	return &Summary{
		Ingest:      res,
		Diagnostics: agg.Diagnostics,
		StoreSize:   len(events),
		Report:      rep,
	}, nil
}

// Rerender rebuilds the report from the persisted counts without reading any log.
func (p *Pipeline) Rerender(ctx context.Context) (output.Report, error) {
	counts, err := p.store.LoadCounts()
	if err != nil {
		return output.Report{}, err
	}
	rep := output.Report{
		Start:       p.cfg.Report.Start,
		Total:       aggregator.Total(counts),
		GeneratedAt: p.now(),
		Ranked:      counts.Ranked(),
	}
	return rep, p.emit(ctx, rep)
}

// emit writes the report file and publishes it when a publisher is set.
func (p *Pipeline) emit(ctx context.Context, rep output.Report) error {
	if err := output.WriteReport(p.cfg.Report.Path, rep); err != nil {
		return err
	}
	if p.publisher == nil {
		return nil
	}

	if err := p.publisher.Put(ctx, filepath.Base(p.cfg.Report.Path), "text/plain; charset=utf-8", []byte(rep.String())); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	var buf bytes.Buffer
	if err := output.NewJSONRenderer(&buf).Render(rep); err != nil {
		return err
	}
	if err := p.publisher.Put(ctx, "downloads.json", "application/json", buf.Bytes()); err != nil {
		return fmt.Errorf("publish counts: %w", err)
	}
	return nil
}
