package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/sources"
	"github.com/Ramsey-B/fern/pkg/syncer"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/google/uuid"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("a reconciliation run is already in progress")

// lockKey is the advisory lock name shared by every instance of the service.
const lockKey = "reconciliation"

// CounterpartyLister loads the counterparty registry snapshot.
type CounterpartyLister interface {
	List(ctx context.Context) ([]models.Counterparty, error)
}

// CostCenterLister loads the cost center registry snapshot.
type CostCenterLister interface {
	List(ctx context.Context) ([]models.CostCenter, error)
}

// Service runs the reconciliation pipeline end to end: load registries, read
// sources, compute entries, plan and apply the sync, emit events. Runs are
// serialized; a second request while one is in flight fails fast.
type Service struct {
	logger         ectologger.Logger
	counterparties CounterpartyLister
	costCenters    CostCenterLister
	readers        []sources.Reader
	pipeline       *Pipeline
	driver         *syncer.Driver
	emitter        *events.Emitter
	locker         *redis.Locker
	lockTTL        time.Duration

	mu      sync.Mutex
	running bool
	last    *models.Report
}

// NewService wires a reconciliation service. The manifest must declare exactly
// one payment-role source; its rows become the authoritative overlay during
// the merge. A nil locker disables the distributed lock, leaving only the
// in-process guard.
func NewService(
	manifest *sources.Manifest,
	counterparties CounterpartyLister,
	costCenters CostCenterLister,
	driver *syncer.Driver,
	emitter *events.Emitter,
	locker *redis.Locker,
	lockTTL time.Duration,
	logger ectologger.Logger,
) (*Service, error) {
	var authoritativeTag string
	readers := make([]sources.Reader, 0, len(manifest.Sources))
	for _, cfg := range manifest.Sources {
		reader, err := sources.New(cfg)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)

		if cfg.Role == sources.RolePayment {
			if authoritativeTag != "" {
				return nil, fmt.Errorf("source manifest declares more than one payment source (%s, %s)", authoritativeTag, cfg.Tag)
			}
			authoritativeTag = cfg.Tag
		}
	}
	if authoritativeTag == "" {
		return nil, errors.New("source manifest declares no payment source")
	}

	return &Service{
		logger:         logger,
		counterparties: counterparties,
		costCenters:    costCenters,
		readers:        readers,
		pipeline:       NewPipeline(authoritativeTag, logger),
		driver:         driver,
		emitter:        emitter,
		locker:         locker,
		lockTTL:        lockTTL,
	}, nil
}

// Pipeline exposes the pipeline for floor and tolerance configuration.
func (s *Service) Pipeline() *Pipeline {
	return s.pipeline
}

// Run executes one reconciliation pass. With dryRun set, the plan is computed
// and reported but nothing is written or emitted.
func (s *Service) Run(ctx context.Context, dryRun bool) (*models.Report, error) {
	if !s.begin() {
		return nil, ErrRunInProgress
	}
	defer s.end()

	if s.locker == nil {
		return s.run(ctx, dryRun)
	}

	var report *models.Report
	err := s.locker.WithLock(ctx, lockKey, s.lockTTL, func() error {
		var runErr error
		report, runErr = s.run(ctx, dryRun)
		return runErr
	})
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// LastReport returns the report of the most recent run, nil before the first.
func (s *Service) LastReport() *models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Service) run(ctx context.Context, dryRun bool) (*models.Report, error) {
	runID := uuid.New().String()
	ctx = fernctx.SetRunID(ctx, runID)
	ctx, span := tracing.StartSpan(ctx, "ReconciliationService.Run")
	defer span.End()

	started := time.Now()
	report := models.NewReport()
	report.DryRun = dryRun

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":  runID,
		"dry_run": dryRun,
	}).Info("reconciliation run started")

	counterparties, err := s.counterparties.List(ctx)
	if err != nil {
		s.fail(ctx, dryRun, started, err)
		return nil, fmt.Errorf("failed to load counterparty registry: %w", err)
	}
	costCenters, err := s.costCenters.List(ctx)
	if err != nil {
		s.fail(ctx, dryRun, started, err)
		return nil, fmt.Errorf("failed to load cost center registry: %w", err)
	}

	var rows []*models.SourceRow
	for _, reader := range s.readers {
		sourceRows, err := reader.Read(ctx)
		if err != nil {
			s.fail(ctx, dryRun, started, err)
			return nil, fmt.Errorf("failed to read source %s: %w", reader.Tag(), err)
		}
		metrics.SourceRowsTotal.WithLabelValues(reader.Tag()).Add(float64(len(sourceRows)))
		rows = append(rows, sourceRows...)
	}

	entries := s.pipeline.Run(ctx, Input{
		Counterparties: counterparties,
		CostCenters:    costCenters,
		Rows:           rows,
	}, report)

	plan, err := s.driver.BuildPlan(ctx, entries)
	if err != nil {
		s.fail(ctx, dryRun, started, err)
		return nil, err
	}
	for _, change := range plan.Changes {
		switch change.Action {
		case models.SyncActionInsert:
			report.Inserted++
		case models.SyncActionUpdate:
			report.Updated++
		}
	}
	report.Unchanged = plan.Unchanged

	if !dryRun {
		if err := s.driver.Apply(ctx, plan); err != nil {
			s.fail(ctx, dryRun, started, err)
			return nil, err
		}
		if err := s.emitter.EmitChanges(ctx, plan.Changes); err != nil {
			s.logger.WithContext(ctx).WithError(err).Error("failed to emit entry events")
		}
	}

	report.FinishedAt = time.Now().UTC()
	s.record(report)
	s.observe(report, started)

	if err := s.emitter.EmitRunCompleted(ctx, runID, report); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to emit run completed event")
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":    runID,
		"dry_run":   dryRun,
		"inserted":  report.Inserted,
		"updated":   report.Updated,
		"unchanged": report.Unchanged,
		"dropped":   report.RowsDropped,
	}).Info("reconciliation run finished")

	return report, nil
}

func (s *Service) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Service) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Service) record(report *models.Report) {
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
}

func (s *Service) observe(report *models.Report, started time.Time) {
	metrics.RecordRun("ok", strconv.FormatBool(report.DryRun), time.Since(started).Seconds())
	metrics.RecordSyncActions(report.Inserted, report.Updated, report.Unchanged)
	metrics.RowsDroppedTotal.Add(float64(report.RowsDropped))
	for _, count := range report.UnresolvedCounterparties {
		metrics.UnresolvedNamesTotal.WithLabelValues("counterparty").Add(float64(count))
	}
	for _, count := range report.UnresolvedCostCenters {
		metrics.UnresolvedNamesTotal.WithLabelValues("cost_center").Add(float64(count))
	}
	for st, count := range report.EntriesByStatus {
		metrics.EntriesByStatus.WithLabelValues(string(st)).Set(float64(count))
	}
}

func (s *Service) fail(ctx context.Context, dryRun bool, started time.Time, err error) {
	metrics.RecordRun("error", strconv.FormatBool(dryRun), time.Since(started).Seconds())
	s.logger.WithContext(ctx).WithError(err).Error("reconciliation run failed")
}
