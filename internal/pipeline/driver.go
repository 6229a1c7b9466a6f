package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-harvester/internal/assemble"
	"github.com/JakeFAU/recipe-harvester/internal/clock/system"
	"github.com/JakeFAU/recipe-harvester/internal/extract"
	"github.com/JakeFAU/recipe-harvester/internal/fetcher"
	"github.com/JakeFAU/recipe-harvester/internal/htmldoc"
	"github.com/JakeFAU/recipe-harvester/internal/id/uuid"
	"github.com/JakeFAU/recipe-harvester/internal/jsonld"
	"github.com/JakeFAU/recipe-harvester/internal/logging"
	"github.com/JakeFAU/recipe-harvester/internal/recipe"
	"github.com/JakeFAU/recipe-harvester/internal/store"
)

// Run modes reported on events.
const (
	ModePages   = "pages"
	ModeListing = "listing"
)

const tracerName = "github.com/JakeFAU/recipe-harvester/internal/pipeline"

// ErrNoRecords is returned by RunListing when no card produced a valid record.
var ErrNoRecords = errors.New("no valid recipes collected")

// Config holds the site details the driver needs.
type Config struct {
	BaseOrigin     string            `mapstructure:"base_origin"`
	DefaultDietary string            `mapstructure:"default_dietary"`
	Selectors      extract.Selectors `mapstructure:"selectors"`
}

// Deps are the collaborators of a Driver. Fetcher, Store and Assembler are required.
type Deps struct {
	Fetcher   fetcher.Fetcher
	Store     store.Writer
	Assembler *assemble.Assembler
	Mirrors   []Mirror
	Archiver  Archiver
	Observer  Observer
	Clock     Clock
	IDs       IDGenerator
	Logger    *zap.Logger
	Tracer    trace.Tracer
}

// Summary counts the outcome of a run.
type Summary struct {
	RunID      string
	Saved      int
	Skipped    int
	Failed     int
	BackupPath string
	ArchiveURI string
}

// Driver runs the harvest pipeline. A Driver runs one URL at a time and must not be used
// by concurrent runs against the same store.
type Driver struct {
	cfg       Config
	fetcher   fetcher.Fetcher
	store     store.Writer
	assembler *assemble.Assembler
	mirrors   []Mirror
	archiver  Archiver
	observer  Observer
	clock     Clock
	ids       IDGenerator
	logger    *zap.Logger
	tracer    trace.Tracer
}

// New validates deps and builds a Driver.
func New(cfg Config, deps Deps) (*Driver, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Assembler == nil {
		return nil, errors.New("assembler is required")
	}
	if cfg.BaseOrigin == "" {
		return nil, errors.New("base origin is required")
	}
	cfg.Selectors = cfg.Selectors.WithDefaults()

	d := &Driver{
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		store:     deps.Store,
		assembler: deps.Assembler,
		mirrors:   deps.Mirrors,
		archiver:  deps.Archiver,
		observer:  deps.Observer,
		clock:     deps.Clock,
		ids:       deps.IDs,
		logger:    deps.Logger,
		tracer:    deps.Tracer,
	}
	if d.observer == nil {
		d.observer = Observers(nil)
	}
	if d.clock == nil {
		d.clock = system.New()
	}
	if d.ids == nil {
		d.ids = uuid.New()
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(tracerName)
	}
	return d, nil
}

// run carries the per-run state.
type run struct {
	id     string
	mode   string
	logger *zap.Logger
	span   trace.Span
	sum    Summary
}

func (d *Driver) start(ctx context.Context, mode string) (context.Context, *run, error) {
	id, err := d.ids.NewID()
	if err != nil {
		return ctx, nil, fmt.Errorf("run id: %w", err)
	}
	ctx, span := d.tracer.Start(ctx, "run."+mode, trace.WithAttributes(
		attribute.String("run_id", id),
		attribute.String("store", d.store.Path()),
	))
	r := &run{
		id:     id,
		mode:   mode,
		logger: logging.ForRun(d.logger, id).With(zap.String("mode", mode)),
		span:   span,
		sum:    Summary{RunID: id},
	}
	d.emit(r, Event{Stage: StageRunStart, Note: d.store.Path()})
	return ctx, r, nil
}

func (d *Driver) emit(r *run, evt Event) {
	evt.RunID = r.id
	evt.Mode = r.mode
	evt.TS = d.clock.Now()
	d.observer.Observe(evt)
}

func (d *Driver) finish(r *run, err error) (Summary, error) {
	defer r.span.End()
	r.span.SetAttributes(
		attribute.Int("saved", r.sum.Saved),
		attribute.Int("skipped", r.sum.Skipped),
		attribute.Int("failed", r.sum.Failed),
	)
	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, "run failed")
		d.emit(r, Event{Stage: StageRunError, Err: err})
		return r.sum, err
	}
	d.emit(r, Event{
		Stage: StageRunDone,
		Note:  fmt.Sprintf("saved=%d skipped=%d failed=%d", r.sum.Saved, r.sum.Skipped, r.sum.Failed),
	})
	return r.sum, nil
}

// RunPages harvests each URL and upserts its record. Fetch failures and incomplete
// records skip the URL. A store failure restores the backup and ends the run.
func (d *Driver) RunPages(ctx context.Context, urls []string) (Summary, error) {
	ctx, r, err := d.start(ctx, ModePages)
	if err != nil {
		return Summary{}, err
	}
	if err := d.backup(r); err != nil {
		return d.finish(r, err)
	}

	for _, raw := range urls {
		if err := ctx.Err(); err != nil {
			return d.finish(r, fmt.Errorf("run canceled: %w", err))
		}
		url := extract.ResolveURL(d.cfg.BaseOrigin, raw)
		if url == "" {
			continue
		}
		res, ok := d.harvest(ctx, r, url, nil)
		if !ok {
			continue
		}
		if err := d.store.Upsert(res.Record); err != nil {
			r.sum.Failed++
			d.emit(r, Event{Stage: StageFailed, URL: url, Title: res.Record.Title, Err: err})
			return d.finish(r, d.restore(r, fmt.Errorf("save %q: %w", res.Record.Title, err)))
		}
		d.saved(ctx, r, url, res.Record)
	}

	d.archive(ctx, r)
	return d.finish(r, nil)
}

// RunListing enumerates the recipe cards of a listing page, harvests each recipe with its
// card as the last-resort source, and appends all records in one batch.
func (d *Driver) RunListing(ctx context.Context, listingURL string) (Summary, error) {
	ctx, r, err := d.start(ctx, ModeListing)
	if err != nil {
		return Summary{}, err
	}
	listingURL = extract.ResolveURL(d.cfg.BaseOrigin, listingURL)

	listing, err := d.load(ctx, r, listingURL)
	if err != nil {
		return d.finish(r, fmt.Errorf("fetch listing: %w", err))
	}
	cards, skipped := extract.ParseCards(listing.Doc, d.cfg.Selectors, d.cfg.BaseOrigin)
	r.logger.Info("listing parsed", zap.Int("cards", len(cards)), zap.Int("skipped", skipped))
	r.sum.Skipped += skipped

	if err := d.backup(r); err != nil {
		return d.finish(r, err)
	}

	seen := make(map[string]struct{}, len(cards))
	var recs []recipe.Record
	for i := range cards {
		if err := ctx.Err(); err != nil {
			return d.finish(r, fmt.Errorf("run canceled: %w", err))
		}
		card := cards[i]
		if _, dup := seen[card.URL]; dup {
			continue
		}
		seen[card.URL] = struct{}{}

		res, ok := d.harvest(ctx, r, card.URL, &card)
		if ok {
			recs = append(recs, res.Record)
		}
	}

	if len(recs) == 0 {
		return d.finish(r, ErrNoRecords)
	}
	if err := d.store.AppendBatch(recs, true); err != nil {
		r.sum.Failed += len(recs)
		d.emit(r, Event{Stage: StageFailed, URL: listingURL, Err: err})
		return d.finish(r, d.restore(r, fmt.Errorf("append batch: %w", err)))
	}
	for _, rec := range recs {
		d.saved(ctx, r, listingURL, rec)
	}

	d.archive(ctx, r)
	return d.finish(r, nil)
}

// harvest fetches and assembles one recipe. It reports false when the URL was skipped.
func (d *Driver) harvest(ctx context.Context, r *run, url string, card *extract.Card) (assemble.Result, bool) {
	ctx, span := d.tracer.Start(ctx, "harvest", trace.WithAttributes(attribute.String("url", url)))
	defer span.End()
	skip := func(err error, note string) (assemble.Result, bool) {
		r.sum.Skipped++
		span.RecordError(err)
		span.SetStatus(codes.Error, note)
		d.emit(r, Event{Stage: StageSkipped, URL: url, Err: err, Note: note})
		return assemble.Result{}, false
	}

	primary, err := d.load(ctx, r, url)
	if err != nil {
		return skip(err, "fetch failed")
	}

	fields := d.assembler.ResolvePrimary(primary)
	in := assemble.Input{URL: url, Primary: primary, Card: card, DefaultDietary: d.cfg.DefaultDietary, PrimaryFields: fields}
	if chefURL := d.assembler.ChefPageURL(fields, card); chefURL != "" {
		chef, err := d.load(ctx, r, chefURL)
		if err != nil {
			r.logger.Warn("chef page unavailable", zap.String("url", url), zap.String("chef_url", chefURL), zap.Error(err))
		} else {
			in.Chef = chef
		}
	}

	res, err := d.assembler.Build(in)
	if err != nil {
		if errors.Is(err, assemble.ErrPlaceholder) {
			return skip(err, "placeholder record")
		}
		return skip(err, "incomplete record")
	}
	span.SetAttributes(attribute.String("title", res.Record.Title))

	for _, f := range extract.Fields() {
		src := res.Sources[f]
		if src != "" && !strings.HasPrefix(src, "hero-") {
			d.emit(r, Event{Stage: StageFallback, URL: url, Field: string(f), Source: src})
		}
	}
	return res, true
}

// load fetches and parses a page.
func (d *Driver) load(ctx context.Context, r *run, url string) (*extract.Page, error) {
	body, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	d.emit(r, Event{Stage: StageFetched, URL: url, Bytes: len(body)})

	doc, err := htmldoc.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	objects := jsonld.Extract(htmldoc.ScriptBlocks(doc), func(err error) {
		d.emit(r, Event{Stage: StageMetadata, URL: url, Err: err})
	})
	return &extract.Page{URL: url, Doc: doc, Objects: objects}, nil
}

func (d *Driver) saved(ctx context.Context, r *run, url string, rec recipe.Record) {
	r.sum.Saved++
	d.emit(r, Event{Stage: StageSaved, URL: url, Title: rec.Title})
	for _, m := range d.mirrors {
		if err := m.Save(ctx, rec); err != nil {
			d.emit(r, Event{Stage: StageMirrorFailed, URL: url, Title: rec.Title, Err: err, Note: m.Name()})
		}
	}
}

func (d *Driver) backup(r *run) error {
	path, err := d.store.Backup()
	if err != nil {
		return fmt.Errorf("backup store: %w", err)
	}
	r.sum.BackupPath = path
	if path != "" {
		r.logger.Info("store backed up", zap.String("backup", path))
	}
	return nil
}

// restore puts the backup back after a failed store write and returns cause, joined with
// the restore error if that failed too.
func (d *Driver) restore(r *run, cause error) error {
	if r.sum.BackupPath == "" {
		return cause
	}
	if err := d.store.Restore(r.sum.BackupPath); err != nil {
		return errors.Join(cause, fmt.Errorf("restore backup: %w", err))
	}
	d.emit(r, Event{Stage: StageRestored, Note: r.sum.BackupPath})
	return cause
}

func (d *Driver) archive(ctx context.Context, r *run) {
	if d.archiver == nil || r.sum.BackupPath == "" {
		return
	}
	uri, err := d.archiver.Archive(ctx, r.sum.BackupPath)
	if err != nil {
		r.logger.Warn("backup archive failed", zap.String("backup", r.sum.BackupPath), zap.Error(err))
		return
	}
	r.sum.ArchiveURI = uri
	r.logger.Info("backup archived", zap.String("uri", uri))
}
