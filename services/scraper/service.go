// Package scraper orchestrates the pipeline for one source run: plan
// targets, fetch, extract, normalize, persist, and journal the outcome.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"streamvault/config"
	"streamvault/internal/database"
	"streamvault/models"
	"streamvault/services/evasion"
	"streamvault/services/fetch"
	"streamvault/services/normalize"
	"streamvault/services/sources"
	"streamvault/utils/titles"
)

// ErrSourceBusy is returned when a run for the same source is in flight.
// Runs are serialized per source so one site never sees overlapping crawls.
var ErrSourceBusy = errors.New("scrape already running for source")

// Phase is the run state, advanced strictly forward.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseFetching    Phase = "fetching"
	PhaseExtracting  Phase = "extracting"
	PhaseNormalizing Phase = "normalizing"
	PhasePersisting  Phase = "persisting"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Request describes one scrape invocation.
type Request struct {
	Source   string
	Kind     sources.Kind // defaults to list
	Query    string       // search query or detail id, per Kind
	Limit    int
	Timeout  time.Duration
	Detailed bool // follow detail pages for list results
	Fallback bool // synthesize placeholder records when the run fails
}

// Result is what a finished (or failed-with-fallback) run produced.
type Result struct {
	Records []models.ContentRecord
	Run     models.ScrapeRun
	Phase   Phase
}

// Service wires the adapter registry, fetch paths, normalizer and sink
// into a per-source pipeline.
type Service struct {
	registry   *sources.Registry
	dispatcher *fetch.Dispatcher
	normalizer *normalize.Normalizer
	db         *database.DB
	delay      evasion.DelayPolicy
	pacer      *evasion.Pacer
	diagFS     afero.Fs
	settings   config.ScraperSettings

	mu    sync.Mutex
	inRun map[string]bool
}

func NewService(
	registry *sources.Registry,
	dispatcher *fetch.Dispatcher,
	normalizer *normalize.Normalizer,
	db *database.DB,
	delay evasion.DelayPolicy,
	diagFS afero.Fs,
	settings config.ScraperSettings,
) *Service {
	if delay == nil {
		delay = evasion.HumanDelay{}
	}
	if diagFS == nil {
		diagFS = afero.NewOsFs()
	}
	return &Service{
		registry:   registry,
		dispatcher: dispatcher,
		normalizer: normalizer,
		db:         db,
		delay:      delay,
		pacer:      evasion.NewPacer(),
		diagFS:     diagFS,
		settings:   settings,
		inRun:      make(map[string]bool),
	}
}

// Sources lists the registered source names.
func (s *Service) Sources() []string { return s.registry.Names() }

// EnabledSources lists the sources batch walks may visit.
func (s *Service) EnabledSources() []string { return s.registry.EnabledNames() }

// Scrape runs the full pipeline for one source. The run races the timeout:
// whatever was persisted before the deadline stays, and the run is reported
// as a timeout, never left hanging.
func (s *Service) Scrape(ctx context.Context, req Request) (*Result, error) {
	adapter, cfg, err := s.registry.Get(req.Source)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.inRun[req.Source] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSourceBusy, req.Source)
	}
	s.inRun[req.Source] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inRun, req.Source)
		s.mu.Unlock()
	}()

	if req.Limit <= 0 {
		req.Limit = s.settings.DefaultLimit
	}
	if req.Timeout <= 0 {
		req.Timeout = time.Duration(s.settings.DefaultTimeoutSeconds) * time.Second
	}
	if req.Kind == "" {
		req.Kind = sources.KindList
	}

	runCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	runID, err := s.db.StartRun(ctx, req.Source, adapter.Category())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ch := make(chan outcome, 1)
	go func() {
		res, err := s.run(runCtx, adapter, cfg, req, runID)
		ch <- outcome{res, err}
	}()

	out, timedOut := awaitOutcome(runCtx, ch)
	if timedOut {
		// The pipeline goroutine unwinds on its own once its fetches see
		// the cancelled context; whatever it persisted already stays.
		err := fmt.Errorf("scrape of %s timed out after %s", req.Source, req.Timeout)
		s.finalize(ctx, runID, adapter.Category(), models.RunStatusError, 0, start, []models.RunError{{Kind: "timeout", Message: err.Error()}})
		if req.Fallback {
			return s.fallbackResult(req, adapter.Category(), runID), nil
		}
		return nil, err
	}
	if out.err != nil {
		s.finalize(ctx, runID, adapter.Category(), models.RunStatusError, 0, start, []models.RunError{errDetail(out.err)})
		if req.Fallback {
			return s.fallbackResult(req, adapter.Category(), runID), nil
		}
		return nil, out.err
	}
	return out.result, nil
}

type outcome struct {
	result *Result
	err    error
}

// awaitOutcome waits for the pipeline or the deadline, whichever comes
// first. When both are ready the pipeline's outcome wins: it has already
// journaled the run, and stamping a timeout over a finished run would
// misreport persisted records.
func awaitOutcome(ctx context.Context, ch <-chan outcome) (outcome, bool) {
	select {
	case out := <-ch:
		return out, false
	case <-ctx.Done():
		select {
		case out := <-ch:
			return out, false
		default:
			return outcome{}, true
		}
	}
}

func (s *Service) run(ctx context.Context, adapter sources.Adapter, cfg config.SourceSettings, req Request, runID string) (*Result, error) {
	start := time.Now()
	fetcher := s.dispatcher.For(cfg.FetchPath)
	var runErrs []models.RunError

	log.Printf("[scraper] %s: %s (kind=%s limit=%d)", req.Source, PhaseFetching, req.Kind, req.Limit)

	raws, fetchErrs := s.collect(ctx, adapter, cfg, fetcher, adapter.Targets(req.Kind, req.Query, req.Limit))
	runErrs = append(runErrs, fetchErrs...)

	if len(raws) == 0 {
		err := fmt.Errorf("%s yielded no items: %w", req.Source, firstError(runErrs))
		return nil, err
	}

	if len(raws) > req.Limit {
		raws = raws[:req.Limit]
	}

	if req.Detailed && req.Kind == sources.KindList {
		detailed, detailErrs := s.enrich(ctx, adapter, cfg, fetcher, raws)
		raws = detailed
		runErrs = append(runErrs, detailErrs...)
	}

	log.Printf("[scraper] %s: %s (%d raw items)", req.Source, PhaseNormalizing, len(raws))
	records, normErrs := s.normalizer.NormalizeBatch(raws, cfg, adapter.Category())
	for _, err := range normErrs {
		runErrs = append(runErrs, errDetail(err))
	}

	if req.Kind == sources.KindSearch && req.Query != "" {
		rankByQuery(records, req.Query)
	}

	log.Printf("[scraper] %s: %s (%d records)", req.Source, PhasePersisting, len(records))
	if err := s.db.UpsertBatch(ctx, adapter.Category(), records); err != nil {
		return nil, err
	}

	status := models.RunStatusCompleted
	if len(runErrs) > 0 {
		status = models.RunStatusPartial
	}
	run := s.finalize(ctx, runID, adapter.Category(), status, len(records), start, runErrs)

	log.Printf("[scraper] %s: %s (%d records, %d errors, %dms)",
		req.Source, PhaseDone, len(records), len(runErrs), run.DurationMS)
	return &Result{Records: records, Run: run, Phase: PhaseDone}, nil
}

// collect fetches and extracts every planned target sequentially, pacing
// between pages. Per-target failures are collected, never fatal, as long
// as at least one target produced items.
func (s *Service) collect(ctx context.Context, adapter sources.Adapter, cfg config.SourceSettings, fetcher fetch.Fetcher, targets []sources.FetchTarget) ([]models.RawItem, []models.RunError) {
	var (
		raws    []models.RawItem
		runErrs []models.RunError
	)
	for i, target := range targets {
		if i > 0 {
			if err := s.delay.Wait(ctx, evasion.DelayKindPaging); err != nil {
				runErrs = append(runErrs, errDetail(err))
				break
			}
		}
		if err := s.pacer.Wait(ctx, adapter.Name(), minInterval(cfg)); err != nil {
			runErrs = append(runErrs, errDetail(err))
			break
		}

		res, err := fetcher.Fetch(ctx, fetch.Request{
			URL:          target.URL,
			Fallbacks:    cfg.FallbackURLs,
			Headers:      cfg.Headers,
			Referer:      cfg.Referer,
			WaitSelector: target.WaitSelector(),
			Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			runErrs = append(runErrs, errDetail(err))
			continue
		}

		items, err := adapter.Extract(res.Body, target)
		if err != nil {
			if errors.Is(err, models.ErrExtractionEmpty) {
				s.saveDiagnostic(adapter.Name(), target, res.Body)
			}
			runErrs = append(runErrs, models.RunError{Kind: "extraction", URL: target.URL, Message: err.Error()})
			continue
		}
		raws = append(raws, items...)
	}
	return raws, runErrs
}

// enrich follows each list item's detail page, bounded by the global
// concurrency ceiling. Items whose detail fetch fails keep their list data.
func (s *Service) enrich(ctx context.Context, adapter sources.Adapter, cfg config.SourceSettings, fetcher fetch.Fetcher, raws []models.RawItem) ([]models.RawItem, []models.RunError) {
	limit := s.settings.GlobalConcurrency
	if limit < 1 {
		limit = 1
	}

	var (
		mu      sync.Mutex
		runErrs []models.RunError
	)
	out := make([]models.RawItem, len(raws))
	copy(out, raws)

	p := pool.New().WithMaxGoroutines(limit).WithContext(ctx)
	for i := range raws {
		idx := i
		sourceID, _ := raws[idx].Fields["source_id"].(string)
		if sourceID == "" {
			continue
		}
		p.Go(func(ctx context.Context) error {
			if err := s.delay.Wait(ctx, evasion.DelayKindReading); err != nil {
				return nil
			}
			target := adapter.Targets(sources.KindDetail, sourceID, 1)
			if len(target) == 0 {
				return nil
			}
			// The pool's ceiling bounds parallelism, not spacing; the
			// pacer keeps concurrent detail fetches off the same host.
			if err := s.pacer.Wait(ctx, adapter.Name(), minInterval(cfg)); err != nil {
				return nil
			}
			res, err := fetcher.Fetch(ctx, fetch.Request{
				URL:          target[0].URL,
				Fallbacks:    cfg.FallbackURLs,
				Headers:      cfg.Headers,
				Referer:      cfg.Referer,
				WaitSelector: target[0].WaitSelector(),
				Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
			})
			if err != nil {
				mu.Lock()
				runErrs = append(runErrs, errDetail(err))
				mu.Unlock()
				return nil
			}
			items, err := adapter.Extract(res.Body, target[0])
			if err != nil || len(items) == 0 {
				return nil
			}
			// Merge: detail fields override list fields.
			merged := models.RawItem{Fields: make(map[string]any), SourceURL: items[0].SourceURL}
			for k, v := range raws[idx].Fields {
				merged.Fields[k] = v
			}
			for k, v := range items[0].Fields {
				merged.Fields[k] = v
			}
			mu.Lock()
			out[idx] = merged
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait()
	return out, runErrs
}

// saveDiagnostic dumps the page that defeated every selector chain, so the
// chains can be repaired against the real markup.
func (s *Service) saveDiagnostic(source string, target sources.FetchTarget, body []byte) {
	if s.settings.DiagnosticDir == "" {
		return
	}
	if err := s.diagFS.MkdirAll(s.settings.DiagnosticDir, 0755); err != nil {
		log.Printf("[scraper] diagnostic dir: %v", err)
		return
	}
	name := fmt.Sprintf("%s_%s_%d.html", source, target.Kind, time.Now().Unix())
	path := filepath.Join(s.settings.DiagnosticDir, name)
	if err := afero.WriteFile(s.diagFS, path, body, 0644); err != nil {
		log.Printf("[scraper] diagnostic write: %v", err)
		return
	}
	log.Printf("[scraper] %s: empty extraction, page saved to %s", source, path)
}

func (s *Service) finalize(ctx context.Context, runID string, ct models.ContentType, status models.RunStatus, items int, start time.Time, details []models.RunError) models.ScrapeRun {
	run := models.ScrapeRun{
		ID:          runID,
		ContentType: ct,
		Status:      status,
		ItemsCount:  items,
		ErrorsCount: len(details),
		DurationMS:  time.Since(start).Milliseconds(),
		Details:     details,
		StartedAt:   start,
	}
	if err := s.db.FinalizeRun(ctx, run); err != nil {
		log.Printf("[scraper] finalize run %s: %v", runID, err)
	}
	return run
}

// fallbackResult synthesizes clearly tagged placeholder records so callers
// that opted in never receive an empty payload. Placeholders are returned,
// not persisted.
func (s *Service) fallbackResult(req Request, ct models.ContentType, runID string) *Result {
	now := time.Now().UTC()
	count := req.Limit
	if count > 5 {
		count = 5
	}
	records := make([]models.ContentRecord, 0, count)
	for i := 1; i <= count; i++ {
		sourceID := fmt.Sprintf("fallback-%d", i)
		records = append(records, models.ContentRecord{
			ID:          req.Source + ":" + sourceID,
			Title:       fmt.Sprintf("Placeholder %d", i),
			ContentType: ct,
			Source:      req.Source,
			SourceID:    sourceID,
			IsFallback:  true,
			ScrapedAt:   now,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return &Result{
		Records: records,
		Run:     models.ScrapeRun{ID: runID, ContentType: ct, Status: models.RunStatusError},
		Phase:   PhaseFailed,
	}
}

func errDetail(err error) models.RunError {
	var (
		netErr  *models.NetworkError
		chalErr *models.ChallengeError
		persErr *models.PersistenceError
		normErr *models.NormalizationError
	)
	switch {
	case errors.As(err, &chalErr):
		return models.RunError{Kind: "challenge", URL: chalErr.URL, Message: err.Error()}
	case errors.As(err, &netErr):
		return models.RunError{Kind: "network", URL: netErr.URL, Message: err.Error()}
	case errors.As(err, &persErr):
		return models.RunError{Kind: "persistence", Message: err.Error()}
	case errors.As(err, &normErr):
		return models.RunError{Kind: "normalization", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return models.RunError{Kind: "timeout", Message: err.Error()}
	default:
		return models.RunError{Kind: "internal", Message: err.Error()}
	}
}

// rankByQuery orders search results best-match-first. Sites return their
// own relevance ordering, which for fuzzy site search engines is often
// noise; scoring against the query gives callers a stable ordering.
func rankByQuery(records []models.ContentRecord, query string) {
	type scored struct {
		rec   models.ContentRecord
		score float64
	}
	ranked := make([]scored, len(records))
	for i, rec := range records {
		ranked[i] = scored{rec: rec, score: titles.Score(rec.Title, query)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	for i := range ranked {
		records[i] = ranked[i].rec
	}
}

// minInterval is the source's configured hard floor between requests.
func minInterval(cfg config.SourceSettings) time.Duration {
	return time.Duration(cfg.MinIntervalMS) * time.Millisecond
}

func firstError(errs []models.RunError) error {
	if len(errs) == 0 {
		return models.ErrExtractionEmpty
	}
	return errors.New(errs[0].Message)
}
