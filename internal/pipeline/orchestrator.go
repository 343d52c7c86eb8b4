package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
	"github.com/couchcryptid/snodas-swe-etl/internal/observability"
	"github.com/couchcryptid/snodas-swe-etl/internal/store"
)

// Fetcher produces the prepared raster pair for one observation date.
type Fetcher interface {
	Fetch(ctx context.Context, date time.Time) (*domain.RasterPair, error)
}

// BasinSource supplies the basin set and the boundary layer's projection
// text for geometry emission.
type BasinSource interface {
	Basins() []domain.Basin
	PrjWKT() string
}

// Orchestrator runs the full per-date cycle: fetch rasters, aggregate each
// basin, derive and round the published record, and replace that date's
// entries in both stores. A date either completes entirely or leaves the
// stores untouched.
type Orchestrator struct {
	fetcher  Fetcher
	basins   BasinSource
	engine   *domain.StatsEngine
	store    *store.Store
	resolver *WeekChangeResolver
	opts     domain.OptionalStats
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewOrchestrator wires the per-date cycle.
func NewOrchestrator(f Fetcher, basins BasinSource, engine *domain.StatsEngine, st *store.Store, logger *slog.Logger, metrics *observability.Metrics, opts domain.OptionalStats) *Orchestrator {
	return &Orchestrator{
		fetcher:  f,
		basins:   basins,
		engine:   engine,
		store:    st,
		resolver: NewWeekChangeResolver(st),
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

// ProcessDate runs one observation date to completion and returns the
// published records. On any error nothing is written for the date.
func (o *Orchestrator) ProcessDate(ctx context.Context, date time.Time) ([]domain.DerivedRecord, error) {
	start := time.Now()
	day := date.Format(domain.DateLayout)
	o.logger.Info("processing date", "date", day, "state", "downloading")

	pair, err := o.fetcher.Fetch(ctx, date)
	if err != nil {
		o.metrics.DatesFailed.Inc()
		return nil, fmt.Errorf("fetching rasters for %s: %w", day, err)
	}

	o.logger.Info("processing date", "date", day, "state", "aggregating",
		"basins", len(o.basins.Basins()))

	recs, err := o.deriveAll(ctx, date, pair)
	if err != nil {
		o.metrics.DatesFailed.Inc()
		return nil, err
	}

	o.logger.Info("processing date", "date", day, "state", "storing")
	if err := o.storeAll(date, recs); err != nil {
		o.metrics.DatesFailed.Inc()
		return nil, err
	}

	o.metrics.DatesProcessed.Inc()
	o.metrics.DateProcessingDuration.Observe(time.Since(start).Seconds())
	o.logger.Info("processing date", "date", day, "state", "done",
		"records", len(recs), "elapsed", time.Since(start))
	return recs, nil
}

func (o *Orchestrator) deriveAll(ctx context.Context, date time.Time, pair *domain.RasterPair) ([]domain.DerivedRecord, error) {
	basins := o.basins.Basins()
	recs := make([]domain.DerivedRecord, 0, len(basins))
	for _, b := range basins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		zonalStart := time.Now()
		agg, err := o.engine.Aggregate(b, pair)
		if err != nil {
			return nil, fmt.Errorf("aggregating basin %s: %w", b.ID, err)
		}
		o.metrics.ZonalDuration.Observe(time.Since(zonalStart).Seconds())

		rec := domain.Derive(agg, date, b, pair.SWE.Dx, pair.SWE.Dy, o.opts)

		change, err := o.resolver.Resolve(ctx, b.ID, date, rec.VolumeAcFt)
		if err != nil {
			var missing *domain.MissingBasinRowError
			if !errors.As(err, &missing) {
				return nil, fmt.Errorf("resolving week change for basin %s: %w", b.ID, err)
			}
			o.logger.Warn("week change unavailable", "basin", b.ID,
				"date", date.Format(domain.DateLayout), "reason", missing.Error())
		}
		if change == nil {
			o.metrics.WeekChangeMisses.Inc()
		}
		rec.VolumeChangeAcFt = change

		rec.Round()
		recs = append(recs, rec)
		o.metrics.BasinsProcessed.Inc()
	}
	return recs, nil
}

func (o *Orchestrator) storeAll(date time.Time, recs []domain.DerivedRecord) error {
	if err := o.store.WriteDate(date, recs); err != nil {
		o.metrics.StoreWriteErrors.Inc()
		return err
	}
	if err := o.store.UpsertForDate(date, recs); err != nil {
		o.metrics.StoreWriteErrors.Inc()
		return err
	}

	byID := make(map[string]domain.DerivedRecord, len(recs))
	for _, rec := range recs {
		byID[rec.BasinID] = rec
	}
	if err := o.store.EmitGeometry(date, o.basins.Basins(), byID, o.basins.PrjWKT()); err != nil {
		o.metrics.StoreWriteErrors.Inc()
		return err
	}
	return nil
}
