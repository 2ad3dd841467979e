package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/pauljones0/property-scanner/internal/filter"
	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/ranking"
)

// ErrRunInProgress is returned by Run while another run holds the gate.
var ErrRunInProgress = models.ErrRunInProgress

const defaultFetchTimeout = 45 * time.Second

// Options configures a Scanner.
type Options struct {
	Sites        []Site
	Store        SeenStore
	Notifier     ListingNotifier
	Criteria     models.FilterCriteria
	SortType     models.SortStrategy
	BypassSeen   bool
	FetchTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Scanner runs the fetch, dedup, filter, sort and notify pipeline.
type Scanner struct {
	sites        []Site
	store        SeenStore
	notifier     ListingNotifier
	criteria     models.FilterCriteria
	sortType     models.SortStrategy
	bypassSeen   bool
	fetchTimeout time.Duration
	now          func() time.Time

	gate *semaphore.Weighted

	mu   sync.RWMutex
	last *RunReport
}

func New(opts Options) *Scanner {
	s := &Scanner{
		sites:        opts.Sites,
		store:        opts.Store,
		notifier:     opts.Notifier,
		criteria:     opts.Criteria,
		sortType:     opts.SortType,
		bypassSeen:   opts.BypassSeen,
		fetchTimeout: opts.FetchTimeout,
		now:          opts.Now,
		gate:         semaphore.NewWeighted(1),
	}
	if s.sortType == "" {
		s.sortType = models.SortDefault
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = defaultFetchTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// LastReport returns the report of the most recent completed run, or nil.
func (s *Scanner) LastReport() *RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Run executes one scan. It returns ErrRunInProgress without blocking when
// another run is active, and a *models.PersistenceError when the seen store
// cannot be read. Source, notification and write failures are recorded in
// the report instead.
func (s *Scanner) Run(ctx context.Context) (*RunReport, error) {
	if !s.gate.TryAcquire(1) {
		return nil, ErrRunInProgress
	}
	defer s.gate.Release(1)

	report := &RunReport{
		RunID:   uuid.NewString(),
		Started: s.now(),
		Stage:   StageIdle,
	}
	logger := slog.With("run_id", report.RunID)

	seen, err := s.loadSeen(ctx)
	if err != nil {
		return nil, err
	}

	s.advance(logger, report, StageFetchingAll, "sources", len(s.sites))
	results, batches := s.fetchAll(ctx, logger)
	report.Sources = results

	merged := s.merge(batches, report.Started)
	report.Merged = len(merged)
	s.advance(logger, report, StageMerged, "listings", report.Merged)

	fresh := make([]models.Listing, 0, len(merged))
	for _, l := range merged {
		if _, ok := seen[l.Key()]; ok {
			report.AlreadySeen++
			continue
		}
		fresh = append(fresh, l)
	}
	report.New = len(fresh)
	s.advance(logger, report, StageDeduped, "new", report.New, "already_seen", report.AlreadySeen)

	matched, reasons := filter.Apply(fresh, s.criteria)
	report.FilteredOut = len(fresh) - len(matched)
	if report.FilteredOut > 0 {
		logger.Debug("Filter rejections", "reasons", reasons)
	}
	s.advance(logger, report, StageFiltered, "matched", len(matched), "filtered_out", report.FilteredOut)

	report.Listings = ranking.Sort(matched, s.sortType)
	s.advance(logger, report, StageSorted, "sort_type", s.sortType)

	if len(report.Listings) > 0 && s.notifier != nil {
		if err := s.notifier.Notify(ctx, report.Listings); err != nil {
			logger.Error("Notification failed", "error", err)
			report.NotifyErr = err
		} else {
			report.Notified = len(report.Listings)
		}
	}
	s.advance(logger, report, StageNotified, "notified", report.Notified)

	// Every new listing is recorded, including the ones the filter rejected.
	s.markSeen(ctx, logger, fresh, report)

	report.Finished = s.now()
	report.Stage = StageIdle
	logger.Info("Scan finished", "duration", report.Finished.Sub(report.Started), "summary", report.Summary())

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report, nil
}

func (s *Scanner) advance(logger *slog.Logger, report *RunReport, stage Stage, args ...any) {
	report.Stage = stage
	logger.Info("Scan stage", append([]any{"stage", stage}, args...)...)
}

func (s *Scanner) loadSeen(ctx context.Context) (map[string]models.SeenRecord, error) {
	if s.bypassSeen {
		slog.Warn("Seen check bypassed; every fetched listing is treated as new")
		return map[string]models.SeenRecord{}, nil
	}
	if s.store == nil {
		return map[string]models.SeenRecord{}, nil
	}
	seen, err := s.store.LoadAll(ctx)
	if err != nil {
		var pe *models.PersistenceError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &models.PersistenceError{Op: "load", Err: err}
	}
	return seen, nil
}

// fetchAll runs every adapter concurrently. Failures are stored per source
// and never returned to the group, so one source cannot cancel another.
func (s *Scanner) fetchAll(ctx context.Context, logger *slog.Logger) ([]SourceResult, [][]models.Listing) {
	results := make([]SourceResult, len(s.sites))
	batches := make([][]models.Listing, len(s.sites))

	var g errgroup.Group
	for i, site := range s.sites {
		i, site := i, site
		g.Go(func() error {
			start := time.Now()
			listings, err := s.fetchSite(ctx, site)
			results[i] = SourceResult{
				Source:   site.Adapter.Source(),
				Count:    len(listings),
				Err:      err,
				Duration: time.Since(start),
			}
			if err != nil {
				logger.Warn("Source failed", "source", site.Adapter.Source(), "error", err)
				return nil
			}
			batches[i] = listings
			logger.Info("Source fetched", "source", site.Adapter.Source(), "count", len(listings))
			return nil
		})
	}
	_ = g.Wait()
	return results, batches
}

func (s *Scanner) fetchSite(ctx context.Context, site Site) (listings []models.Listing, err error) {
	source := site.Adapter.Source()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Adapter panicked", "source", source, "panic", r, "stack", string(debug.Stack()))
			listings, err = nil, fmt.Errorf("%s adapter panicked: %v", source, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	cfg := site.Config
	if cfg.SortType == "" {
		cfg.SortType = s.sortType
	}
	payload, err := site.Adapter.Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return site.Adapter.Parse(payload)
}

// merge concatenates batches in site order, drops repeated keys and stamps
// each listing with the ingestion time.
func (s *Scanner) merge(batches [][]models.Listing, at time.Time) []models.Listing {
	var total int
	for _, b := range batches {
		total += len(b)
	}
	merged := make([]models.Listing, 0, total)
	keys := make(map[string]struct{}, total)
	for _, batch := range batches {
		for _, l := range batch {
			if _, dup := keys[l.Key()]; dup {
				continue
			}
			keys[l.Key()] = struct{}{}
			l.AddedOn = at
			merged = append(merged, l)
		}
	}
	return merged
}

func (s *Scanner) markSeen(ctx context.Context, logger *slog.Logger, listings []models.Listing, report *RunReport) {
	if s.store == nil {
		return
	}
	ts := s.now()
	for _, l := range listings {
		if err := s.store.MarkSeen(ctx, l.Source, l.ID, ts); err != nil {
			logger.Warn("Failed to mark listing seen", "source", l.Source, "id", l.ID, "error", err)
			report.PersistErrs = append(report.PersistErrs, &models.PersistenceError{
				Op:  "mark_seen " + l.Key(),
				Err: err,
			})
		}
	}
}
