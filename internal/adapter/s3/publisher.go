// Package s3 mirrors published products to an S3 bucket so downstream map
// viewers can serve them without touching the pipeline host.
package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	gopath "path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/couchcryptid/snodas-swe-etl/internal/config"
	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// datedExtensions are the per-date product files mirrored for each
// observation date, when present.
var datedExtensions = []string{".csv", ".shp", ".shx", ".dbf", ".prj", ".geojson"}

type uploaderAPI interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// Publisher uploads one date's product files plus the date manifest.
// It implements pipeline.Publisher.
type Publisher struct {
	uploader  uploaderAPI
	bucket    string
	prefix    string
	outputDir string
	logger    *slog.Logger
}

// NewPublisher builds an S3 publisher from configuration. Credentials come
// from the standard AWS chain (environment, shared config, instance role).
func NewPublisher(cfg *config.Config, outputDir string, logger *slog.Logger) (*Publisher, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.S3Region)})
	if err != nil {
		return nil, fmt.Errorf("s3: creating session: %w", err)
	}
	return &Publisher{
		uploader:  s3manager.NewUploader(sess),
		bucket:    cfg.S3Bucket,
		prefix:    cfg.S3Prefix,
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// Name identifies the sink in logs and metrics.
func (p *Publisher) Name() string { return "s3" }

// PublishDate uploads the date's product files and the current manifest.
// Files not present locally (for example a .prj when the basin layer had
// none) are skipped; individual upload failures are collected so one bad
// object does not hide the rest.
func (p *Publisher) PublishDate(ctx context.Context, date time.Time, _ []domain.DerivedRecord) error {
	names := make([]string, 0, len(datedExtensions)+1)
	token := date.Format(domain.DateLayout)
	for _, ext := range datedExtensions {
		names = append(names, "SnowpackStatisticsByDate_"+token+ext)
	}
	names = append(names, "ListOfDates.txt")

	var errs []error
	for _, name := range names {
		if err := p.uploadFile(ctx, name); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			errs = append(errs, fmt.Errorf("uploading %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Publisher) uploadFile(ctx context.Context, name string) error {
	f, err := os.Open(filepath.Join(p.outputDir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	key := p.objectKey(name)
	_, err = p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return err
	}
	p.logger.Debug("uploaded product", "bucket", p.bucket, "key", key)
	return nil
}

func (p *Publisher) objectKey(name string) string {
	if p.prefix == "" {
		return name
	}
	return gopath.Join(p.prefix, name)
}
