// Package minio stores uploaded reaction files and the files produced from
// them by the batch worker.
package minio

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// inputRetentionDays bounds how long uploaded inputs are kept.
const inputRetentionDays = 30

// ObjectReader is the part of *minio.Object the store reads.
type ObjectReader interface {
	io.ReadCloser
	Stat() (minio.ObjectInfo, error)
}

// API is the subset of *minio.Client in use, with GetObject narrowed to
// ObjectReader so it can be faked.
type API interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, cfg *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (ObjectReader, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

type clientAPI struct{ *minio.Client }

func (c clientAPI) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (ObjectReader, error) {
	return c.Client.GetObject(ctx, bucket, object, opts)
}

// Client owns the connection and the two buckets.
type Client struct {
	api    API
	cfg    config.MinIOConfig
	logger logging.Logger
}

// NewClient connects, then creates missing buckets and the input
// retention rule.
func NewClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to create minio client")
	}

	c := newClient(clientAPI{mc}, cfg, log)
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.api.ListBuckets(initCtx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}
	if err := c.EnsureBuckets(initCtx); err != nil {
		return nil, err
	}
	c.logger.Info("minio client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func newClient(api API, cfg config.MinIOConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{api: api, cfg: cfg, logger: log}
}

func (c *Client) buckets() []string {
	return []string{c.cfg.InputBucket, c.cfg.OutputBucket}
}

// EnsureBuckets creates missing buckets. A lifecycle rule failure is only
// logged since some S3 implementations do not support it.
func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, b := range c.buckets() {
		exists, err := c.api.BucketExists(ctx, b)
		if err != nil {
			return errors.Wrapf(err, errors.ErrCodeStorage, "failed to check bucket %s", b)
		}
		if exists {
			continue
		}
		if err := c.api.MakeBucket(ctx, b, minio.MakeBucketOptions{Region: c.cfg.Region}); err != nil {
			return errors.Wrapf(err, errors.ErrCodeStorage, "failed to create bucket %s", b)
		}
		c.logger.Info("created bucket", logging.String("bucket", b))
	}

	rules := lifecycle.NewConfiguration()
	rules.Rules = []lifecycle.Rule{{
		ID:         "input-expiry",
		Status:     "Enabled",
		Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(inputRetentionDays)},
	}}
	if err := c.api.SetBucketLifecycle(ctx, c.cfg.InputBucket, rules); err != nil {
		c.logger.Warn("failed to set input bucket lifecycle", logging.Error(err))
	}
	return nil
}

// HealthCheck lists buckets and checks both exist.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.ListBuckets(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio unreachable")
	}
	for _, b := range c.buckets() {
		ok, err := c.api.BucketExists(ctx, b)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "bucket check failed")
		}
		if !ok {
			return errors.Newf(errors.ErrCodeStorage, "bucket %s missing", b)
		}
	}
	return nil
}
