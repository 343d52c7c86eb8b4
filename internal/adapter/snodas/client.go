package snodas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ctessum/geom/proj"

	"github.com/couchcryptid/snodas-swe-etl/internal/config"
	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
	"github.com/couchcryptid/snodas-swe-etl/internal/observability"
)

// The masked-CONUS grids are published in geographic WGS84 coordinates.
const sourceProjection = "+proj=longlat +datum=WGS84 +no_defs"

// ErrArchiveMissing reports a date whose archive is not (or not yet)
// available upstream.
var ErrArchiveMissing = errors.New("snodas: archive not available")

const maxDownloadRetries = 3

// Client downloads daily SNODAS archives and prepares the SWE raster pair
// on the analysis grid.
type Client struct {
	baseURL  string
	http     *http.Client
	workDir  string
	sourceSR *proj.SR
	targetSR *proj.SR
	extent   *[4]float64
	cellSize float64
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewClient builds a client from configuration. targetSR is the basin
// layer's spatial reference; when nil, rasters stay on the native grid and
// the configured clip extent (if any) is applied in native coordinates.
func NewClient(cfg *config.Config, targetSR *proj.SR, logger *slog.Logger, metrics *observability.Metrics) (*Client, error) {
	srcSR, err := proj.Parse(sourceProjection)
	if err != nil {
		return nil, fmt.Errorf("snodas: parsing source projection: %w", err)
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("snodas: creating work dir: %w", err)
	}

	c := &Client{
		baseURL:  cfg.SnodasBaseURL,
		http:     &http.Client{Timeout: cfg.SnodasTimeout},
		workDir:  cfg.WorkDir,
		sourceSR: srcSR,
		targetSR: targetSR,
		cellSize: cfg.CellSize,
		logger:   logger,
		metrics:  metrics,
	}
	if cfg.HasClipExtent() {
		c.extent = &[4]float64{cfg.ClipXMin, cfg.ClipYMin, cfg.ClipXMax, cfg.ClipYMax}
	}
	return c, nil
}

// Fetch downloads, decodes, and prepares the raster pair for one date.
func (c *Client) Fetch(ctx context.Context, date time.Time) (*domain.RasterPair, error) {
	path, err := c.download(ctx, c.archiveURL(date))
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	headerRaw, dataRaw, err := extractSWE(f)
	if err != nil {
		return nil, err
	}
	h, err := parseGridHeader(headerRaw)
	if err != nil {
		return nil, err
	}
	raw, err := decodeRaster(h, dataRaw, c.sourceSR)
	if err != nil {
		return nil, err
	}

	swe, err := c.prepare(raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("snodas rasters prepared",
		"date", date.Format(domain.DateLayout), "rows", swe.Rows(), "cols", swe.Cols())

	return &domain.RasterPair{
		Date:      date,
		SWE:       swe,
		SnowCover: domain.SnowCoverFromSWE(swe),
	}, nil
}

// archiveURL follows the NSIDC layout: <base>/YYYY/MM_Mon/SNODAS_YYYYMMDD.tar.
func (c *Client) archiveURL(date time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d_%s/SNODAS_%s.tar",
		c.baseURL, date.Year(), int(date.Month()), date.Format("Jan"),
		date.Format(domain.DateLayout))
}

// download fetches the archive to a temp file in the work dir, retrying
// transient failures. A 404 means the date is not published and is not
// retried.
func (c *Client) download(ctx context.Context, url string) (string, error) {
	start := time.Now()
	var path string

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrArchiveMissing, url))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("snodas: unexpected status %s for %s", resp.Status, url)
		}

		f, err := os.CreateTemp(c.workDir, "snodas_*.tar")
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := io.Copy(f, resp.Body); err != nil {
			f.Close()
			os.Remove(f.Name())
			return err
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return err
		}
		path = f.Name()
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxDownloadRetries), ctx)
	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		c.logger.Warn("snodas download retrying", "url", url, "wait", wait, "error", err)
	})
	if err != nil {
		if errors.Is(err, ErrArchiveMissing) {
			c.metrics.Downloads.WithLabelValues("missing").Inc()
		} else {
			c.metrics.Downloads.WithLabelValues("error").Inc()
		}
		return "", err
	}

	c.metrics.Downloads.WithLabelValues("success").Inc()
	c.metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	return path, nil
}

// prepare moves the decoded raster onto the analysis grid: clip on the
// native grid when no basin projection exists, warp otherwise.
func (c *Client) prepare(r *domain.Raster) (*domain.Raster, error) {
	if c.targetSR == nil {
		r.SR = nil
		if c.extent != nil {
			r = r.Clip(c.extent[0], c.extent[1], c.extent[2], c.extent[3])
		}
		return r, nil
	}

	var xmin, ymin, xmax, ymax float64
	if c.extent != nil {
		xmin, ymin, xmax, ymax = c.extent[0], c.extent[1], c.extent[2], c.extent[3]
	} else {
		var err error
		xmin, ymin, xmax, ymax, err = deriveExtent(r, c.targetSR)
		if err != nil {
			return nil, err
		}
	}
	return warp(r, c.targetSR, xmin, ymin, xmax, ymax, c.cellSize)
}
