// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zopper/recon/internal/adapters/mq/queue"
	"github.com/zopper/recon/internal/adapters/mq/worker"
	"github.com/zopper/recon/internal/adapters/repository"
	"github.com/zopper/recon/internal/adapters/snapshot"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/domain/table"
	"github.com/zopper/recon/internal/domain/temporal"
	"github.com/zopper/recon/internal/engine"
	"github.com/zopper/recon/pkg/logger"
	"github.com/zopper/recon/pkg/metrics"
)

// Query tags one analytics request.
type Query struct {
	Partner   string
	Kind      model.DatasetKind
	BatchID   string
	Dimension string
	Metric    string
	From      time.Time
	To        time.Time
}

// dateColumnCandidates are scanned for snapshot date bounds, in priority
// order.
var dateColumnCandidates = []string{
	"Month",
	"Date",
	"Plan Start Date",
	"Start_Date",
	"Warranty Start Date",
	"Day of Call_Date",
	"Call_Date",
	"Claim Date",
}

// Service wires the record store, the snapshot cache, and the partner
// engines together. The write path synchronously invalidates affected
// snapshots before returning, so a completed write is never followed by a
// stale read beyond the cache TTL.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	snapshots *snapshot.Cache
	prewarmQ  *queue.InMemoryQueue
	prewarm   *worker.Pool

	// Configuration
	dbPath         string
	snapshotTTL    time.Duration
	maxUploadRows  int
	prewarmWorkers int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDBPath sets the SQLite store path. Empty selects the in-memory store.
func WithDBPath(path string) Option {
	return func(s *Service) {
		s.dbPath = path
	}
}

// WithSnapshotTTL sets the snapshot cache expiry window.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.snapshotTTL = ttl
		}
	}
}

// WithMaxUploadRows caps a single upload.
func WithMaxUploadRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadRows = n
		}
	}
}

// WithPrewarmWorkers sets how many background workers rebuild snapshots
// after writes.
func WithPrewarmWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.prewarmWorkers = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithStore injects a prebuilt record store, used by tests and the seed
// tool. Overrides WithDBPath.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		snapshotTTL:    300 * time.Second,
		maxUploadRows:  50_000,
		prewarmWorkers: 2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting reconciliation service...")

	if s.store == nil {
		if s.dbPath == "" {
			s.store = repository.NewMemoryStore()
			s.logger.Info(ctx, "using in-memory record store")
		} else {
			store, err := repository.NewSQLiteStore(s.dbPath)
			if err != nil {
				return fmt.Errorf("opening record store: %w", err)
			}
			s.store = store
			s.logger.Info(ctx, "using sqlite record store",
				logger.String("path", s.dbPath))
		}
	}
	s.snapshots = snapshot.New(s.store, snapshot.WithTTL(s.snapshotTTL))

	s.prewarmQ = queue.NewInMemoryQueue()
	s.prewarm = worker.NewPool(s.prewarmWorkers, s.prewarmQ, s.snapshots)
	s.prewarm.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "reconciliation service started",
		logger.Int("snapshotTTLSeconds", int(s.snapshotTTL.Seconds())),
		logger.Int("maxUploadRows", s.maxUploadRows),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping reconciliation service...")
	if s.prewarm != nil {
		if err := s.prewarm.Shutdown(context.Background()); err != nil {
			s.logger.Warn(context.Background(), "stopping prewarm pool", logger.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing record store", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "reconciliation service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// ByDimension computes one dimension aggregation.
func (s *Service) ByDimension(ctx context.Context, q Query) ([]model.AggregateRow, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	eng, err := s.engineFor(q)
	if err != nil {
		return nil, err
	}
	return eng.ComputeByDimension(ctx, q.Dimension, q.Metric)
}

// Summary computes the no-dimension rollup. The samsung sales overview is
// the sum of its sub-variants, computed concurrently.
func (s *Service) Summary(ctx context.Context, q Query) (model.Summary, error) {
	if err := s.ready(); err != nil {
		return model.Summary{}, err
	}
	partner := engine.NormalizePartner(q.Partner)
	kind := q.Kind
	if kind == "" {
		kind = model.KindSales
	}

	if partner == "samsung" && kind == model.KindSales {
		return s.mergedSummary(ctx, q, "samsung_vs", "samsung_croma")
	}
	eng, err := s.engineFor(q)
	if err != nil {
		return model.Summary{}, err
	}
	return eng.ComputeSummary(ctx)
}

// mergedSummary sums per-variant summaries computed in parallel.
func (s *Service) mergedSummary(ctx context.Context, q Query, variants ...string) (model.Summary, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		total   model.Summary
		firstEr error
	)
	for _, variant := range variants {
		wg.Add(1)
		go func(partner string) {
			defer wg.Done()
			vq := q
			vq.Partner = partner
			eng, err := s.engineFor(vq)
			if err == nil {
				var sub model.Summary
				sub, err = eng.ComputeSummary(ctx)
				if err == nil {
					mu.Lock()
					total.Add(sub)
					mu.Unlock()
					return
				}
			}
			mu.Lock()
			if firstEr == nil {
				firstEr = err
			}
			mu.Unlock()
		}(variant)
	}
	wg.Wait()
	if firstEr != nil {
		return model.Summary{}, firstEr
	}
	return total, nil
}

func (s *Service) engineFor(q Query) (engine.Engine, error) {
	return engine.New(engine.Params{
		Partner: q.Partner,
		Kind:    q.Kind,
		BatchID: q.BatchID,
		From:    q.From,
		To:      q.To,
	}, s.snapshots, engine.WithLogger(s.logger))
}

// IngestRecords stores raw rows under a tag, refreshes the freshness
// marker, and evicts affected snapshots. Returns the number of rows stored.
func (s *Service) IngestRecords(ctx context.Context, partner string, kind model.DatasetKind, batchID string, rows []map[string]any) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", engine.ErrInvalidKind, kind)
	}
	if len(rows) == 0 {
		return 0, ErrNoRecords
	}
	if len(rows) > s.maxUploadRows {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyRows, len(rows), s.maxUploadRows)
	}

	partner = engine.NormalizePartner(partner)
	recs := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		recs = append(recs, model.Record{
			Partner: partner,
			Kind:    kind,
			BatchID: batchID,
			Data:    row,
		})
	}
	if len(recs) == 0 {
		return 0, ErrNoRecords
	}

	if err := s.store.InsertRecords(ctx, recs); err != nil {
		return 0, fmt.Errorf("storing records: %w", err)
	}
	s.afterWrite(ctx, partner, kind, batchID)
	metrics.RecordRecordsIngested(len(recs))
	s.logger.Info(ctx, "records ingested",
		logger.String("partner", partner),
		logger.String("kind", string(kind)),
		logger.String("batchID", batchID),
		logger.Int("rows", len(recs)),
	)
	return len(recs), nil
}

// ReplaceBatch swaps a batch's rows atomically, then refreshes markers and
// evicts snapshots.
func (s *Service) ReplaceBatch(ctx context.Context, partner string, kind model.DatasetKind, batchID string, rows []map[string]any) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", engine.ErrInvalidKind, kind)
	}
	if len(rows) > s.maxUploadRows {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyRows, len(rows), s.maxUploadRows)
	}

	partner = engine.NormalizePartner(partner)
	recs := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		recs = append(recs, model.Record{Partner: partner, Kind: kind, BatchID: batchID, Data: row})
	}
	if err := s.store.ReplaceBatch(ctx, partner, kind, batchID, recs); err != nil {
		return 0, fmt.Errorf("replacing batch: %w", err)
	}
	s.afterWrite(ctx, partner, kind, batchID)
	metrics.RecordRecordsIngested(len(recs))
	return len(recs), nil
}

// DeleteRecords removes a tag's rows and evicts snapshots. Returns how many
// rows were removed.
func (s *Service) DeleteRecords(ctx context.Context, partner string, kind model.DatasetKind, batchID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", engine.ErrInvalidKind, kind)
	}
	partner = engine.NormalizePartner(partner)
	removed, err := s.store.DeleteBatch(ctx, partner, kind, batchID)
	if err != nil {
		return 0, fmt.Errorf("deleting records: %w", err)
	}
	s.snapshots.Invalidate(partner, kind, batchID)
	metrics.RecordRecordsDeleted(removed)
	s.logger.Info(ctx, "records deleted",
		logger.String("partner", partner),
		logger.String("kind", string(kind)),
		logger.Int("rows", int(removed)),
	)
	return removed, nil
}

// afterWrite refreshes the freshness marker and evicts affected snapshots.
// Marker failures are logged, not propagated: the write itself succeeded.
func (s *Service) afterWrite(ctx context.Context, partner string, kind model.DatasetKind, batchID string) {
	batchKey := batchID
	if batchKey == "" {
		batchKey = "all"
	}
	if err := s.store.Touch(ctx, partner, kind, batchKey); err != nil {
		s.logger.Warn(ctx, "updating freshness marker", logger.Error(err))
	}
	s.snapshots.Invalidate(partner, kind, batchID)
	if batchID != "" {
		// Batch-less snapshots may have absorbed this batch via the soft
		// fallback.
		s.snapshots.Invalidate(partner, kind, "")
	}
	// Warm the batch-less snapshot in the background; reads use it most.
	// A full queue just means the next read pays the build cost itself.
	s.prewarmQ.Enqueue(ctx, queue.Job{Pattern: partner, Kind: kind})
}

// InvalidateCache explicitly evicts snapshots matching a tag; empty
// dimensions are wildcards. Returns the eviction count.
func (s *Service) InvalidateCache(partner string, kind model.DatasetKind, batchID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if partner != "" {
		partner = engine.NormalizePartner(partner)
	}
	return s.snapshots.Invalidate(partner, kind, batchID), nil
}

// Freshness reports when a (partner, kind) tag last received writes and the
// date bounds observed inside its current snapshot.
func (s *Service) Freshness(ctx context.Context, partner string, kind model.DatasetKind) (model.Freshness, error) {
	if err := s.ready(); err != nil {
		return model.Freshness{}, err
	}
	if !kind.Valid() {
		return model.Freshness{}, fmt.Errorf("%w: %q", engine.ErrInvalidKind, kind)
	}
	partner = engine.NormalizePartner(partner)

	out := model.Freshness{Partner: partner, Kind: kind}
	updated, err := s.store.LastUpdated(ctx, partner, kind)
	switch {
	case err == nil:
		out.LastUpdated = updated
	case errors.Is(err, repository.ErrNoMarker):
		// No writes yet; date bounds may still exist from seeded data.
	default:
		return model.Freshness{}, fmt.Errorf("reading freshness marker: %w", err)
	}

	tbl, err := s.snapshots.GetOrLoad(ctx, partner+"%", kind, "")
	if err != nil {
		return model.Freshness{}, fmt.Errorf("loading snapshot for date bounds: %w", err)
	}
	out.DataFrom, out.DataTo = dateBounds(tbl)
	return out, nil
}

// dateBounds scans known date columns and returns the earliest and latest
// parsed dates. Months parsed into the future are re-stamped to the
// previous year; partners routinely label files with bare month names.
func dateBounds(tbl *table.Table) (from, to time.Time) {
	year := time.Now().UTC().Year()
	now := time.Now().UTC()
	for _, col := range dateColumnCandidates {
		if !tbl.Has(col) {
			continue
		}
		parsed := temporal.ParsePeriod(tbl.Strings(col), nil, year)
		if temporal.AllZero(parsed) {
			continue
		}
		for _, ts := range parsed {
			if ts.IsZero() {
				continue
			}
			if ts.After(now) {
				ts = ts.AddDate(-1, 0, 0)
			}
			if from.IsZero() || ts.Before(from) {
				from = ts
			}
			if ts.After(to) {
				to = ts
			}
		}
		return from, to
	}
	return from, to
}
