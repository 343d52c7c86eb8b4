package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
	"github.com/couchcryptid/snodas-swe-etl/internal/observability"
	"github.com/couchcryptid/snodas-swe-etl/internal/store"
)

// Publisher pushes one date's published records to an external sink.
// Publish failures never fail the run; the local stores are the source of
// truth and a sink can catch up on the next cycle.
type Publisher interface {
	Name() string
	PublishDate(ctx context.Context, date time.Time, recs []domain.DerivedRecord) error
}

// GraphRenderer regenerates the static time-series graphs after a run.
type GraphRenderer interface {
	Render(ctx context.Context) error
}

// Runner drives whole processing runs: it drains the date backlog through
// the orchestrator, then performs the per-run maintenance passes
// (deduplication, manifest, latest-date snapshot, graphs, publishing).
type Runner struct {
	orch       *Orchestrator
	store      *store.Store
	publishers []Publisher
	graphs     GraphRenderer
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// NewRunner wires a runner. graphs may be nil to disable graph
// regeneration; publishers may be empty.
func NewRunner(orch *Orchestrator, st *store.Store, publishers []Publisher, graphs GraphRenderer, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		orch:       orch,
		store:      st,
		publishers: publishers,
		graphs:     graphs,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once at least one run has completed, or an
// error describing why the service is not yet ready.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no processing run has completed yet")
	}
	return nil
}

// RunBacklog processes every pending date in the trailing window ending at
// today, oldest first. A failed date is skipped and reported; later dates
// still run so a single bad archive cannot stall the backlog.
func (r *Runner) RunBacklog(ctx context.Context, today time.Time) error {
	r.metrics.RunActive.Set(1)
	defer r.metrics.RunActive.Set(0)

	processed, err := r.store.Dates()
	if err != nil {
		return fmt.Errorf("scanning processed dates: %w", err)
	}
	pending := PendingDates(today, processed)
	r.logger.Info("run started", "pending", len(pending))

	var failures []error
	for _, date := range pending {
		if ctx.Err() != nil {
			failures = append(failures, ctx.Err())
			break
		}
		recs, err := r.orch.ProcessDate(ctx, date)
		if err != nil {
			r.logger.Error("date failed", "date", date.Format(domain.DateLayout), "error", err)
			failures = append(failures, err)
			continue
		}
		r.publish(ctx, date, recs)
	}

	// Maintenance failures surface in the run error but are not failed
	// dates; the per-date stores already committed.
	var maintenance error
	if err := r.finishRun(ctx); err != nil {
		r.logger.Error("run maintenance failed", "error", err)
		maintenance = err
	}

	r.ready.Store(true)
	r.logger.Info("run finished", "failed_dates", len(failures))
	return errors.Join(append(failures, maintenance)...)
}

// RunDate processes a single explicit date, then performs the same per-run
// maintenance as a backlog run.
func (r *Runner) RunDate(ctx context.Context, date time.Time) error {
	r.metrics.RunActive.Set(1)
	defer r.metrics.RunActive.Set(0)

	recs, err := r.orch.ProcessDate(ctx, date)
	if err != nil {
		return err
	}
	r.publish(ctx, date, recs)

	if err := r.finishRun(ctx); err != nil {
		return err
	}
	r.ready.Store(true)
	return nil
}

// finishRun performs the per-run maintenance: the duplicate-row safety net,
// the manifest rewrite, the latest-date snapshot, and graph regeneration.
func (r *Runner) finishRun(ctx context.Context) error {
	if err := r.store.Deduplicate(); err != nil {
		r.metrics.StoreWriteErrors.Inc()
		return fmt.Errorf("deduplicating basin tables: %w", err)
	}
	if err := r.store.WriteManifest(); err != nil {
		r.metrics.StoreWriteErrors.Inc()
		return fmt.Errorf("writing manifest: %w", err)
	}

	dates, err := r.store.Dates()
	if err != nil {
		return err
	}
	if len(dates) > 0 {
		latest := dates[len(dates)-1]
		if err := r.store.PromoteLatest(latest); err != nil {
			r.metrics.StoreWriteErrors.Inc()
			return fmt.Errorf("promoting latest date: %w", err)
		}
	}

	if r.graphs != nil {
		if err := r.graphs.Render(ctx); err != nil {
			// Graphs are a cosmetic byproduct; log and move on.
			r.logger.Error("graph regeneration failed", "error", err)
		}
	}
	return nil
}

func (r *Runner) publish(ctx context.Context, date time.Time, recs []domain.DerivedRecord) {
	for _, p := range r.publishers {
		if err := p.PublishDate(ctx, date, recs); err != nil {
			r.logger.Error("publish failed", "sink", p.Name(),
				"date", date.Format(domain.DateLayout), "error", err)
			r.metrics.PublishOutcomes.WithLabelValues(p.Name(), "error").Inc()
			continue
		}
		r.metrics.PublishOutcomes.WithLabelValues(p.Name(), "success").Inc()
	}
}
