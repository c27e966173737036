// Package objectstore uploads observatory products as Parquet objects to an
// S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/couchcryptid/geomag-sv-etl/internal/adapter/parquetout"
	"github.com/couchcryptid/geomag-sv-etl/internal/config"
	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
	"golang.org/x/time/rate"
)

const putTimeout = 2 * time.Minute

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader implements pipeline.Loader. Objects are keyed
// <prefix>/<OBS>/<OBS>_<kind>.parquet, so every run replaces the previous
// products of the observatory.
type Uploader struct {
	client  putObjectAPI
	bucket  string
	prefix  string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewUploader builds an S3 client from the default AWS credential chain,
// overridden by static keys and a custom endpoint when configured.
func NewUploader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Uploader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3PathStyle
	})

	return newUploader(client, cfg.S3Bucket, cfg.S3Prefix, cfg.S3PutsPerSecond, logger), nil
}

func newUploader(client putObjectAPI, bucket, prefix string, putsPerSecond float64, logger *slog.Logger) *Uploader {
	return &Uploader{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		limiter: rate.NewLimiter(rate.Limit(putsPerSecond), 1),
		logger:  logger,
	}
}

func (u *Uploader) Name() string { return "s3" }

func (u *Uploader) Load(ctx context.Context, products domain.ObservatoryProducts) error {
	tables := parquetout.Tables(products)
	for _, t := range tables {
		var buf bytes.Buffer
		if err := parquetout.Encode(&buf, t.Rows); err != nil {
			return fmt.Errorf("encode %s: %w", t.Name, err)
		}
		if err := u.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := u.put(ctx, u.Key(products.Observatory, t.Name), products, buf.Bytes()); err != nil {
			return err
		}
	}

	u.logger.Info("products uploaded", "observatory", products.Observatory, "bucket", u.bucket, "objects", len(tables))
	return nil
}

// Key returns the object key for a product file.
func (u *Uploader) Key(observatory, name string) string {
	return path.Join(u.prefix, strings.ToUpper(observatory), name)
}

func (u *Uploader) put(ctx context.Context, key string, products domain.ObservatoryProducts, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, putTimeout)
	defer cancel()

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/vnd.apache.parquet"),
		Metadata: map[string]string{
			"run-id":       products.RunID,
			"processed-at": products.ProcessedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", u.bucket, key, err)
	}
	return nil
}
