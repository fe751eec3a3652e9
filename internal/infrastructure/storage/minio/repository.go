package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// DefaultMaxObjectSize caps reads. Reaction files are text; RD files with
// thousands of reactions stay well below it.
const DefaultMaxObjectSize = 256 << 20

// Bucket selects one of the two configured buckets.
type Bucket int

const (
	Input Bucket = iota
	Output
)

func (b Bucket) String() string {
	if b == Output {
		return "output"
	}
	return "input"
}

// Object describes a stored file.
type Object struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store reads and writes reaction files.
type Store struct {
	client  *Client
	maxSize int64
	metrics *prometheus.AppMetrics
}

func NewStore(c *Client, m *prometheus.AppMetrics) *Store {
	if m == nil {
		m = prometheus.NewNopMetrics()
	}
	return &Store{client: c, maxSize: DefaultMaxObjectSize, metrics: m}
}

func (s *Store) bucket(b Bucket) string {
	if b == Output {
		return s.client.cfg.OutputBucket
	}
	return s.client.cfg.InputBucket
}

func (s *Store) observe(op string, start time.Time, err error) {
	if errors.IsNotFound(err) {
		err = nil
	}
	prometheus.RecordDBQuery(s.metrics, "minio", op, time.Since(start), err)
	if err != nil {
		s.client.logger.Error("object storage call failed", logging.String("op", op), logging.Error(err))
	}
}

// Put stores data under key. The content type is sniffed when empty.
func (s *Store) Put(ctx context.Context, b Bucket, key string, data []byte, contentType string, meta map[string]string) (obj *Object, err error) {
	defer func(start time.Time) { s.observe("put", start, err) }(time.Now())

	if key == "" {
		return nil, errors.InvalidParam("object key required")
	}
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(512, len(data))])
	}
	info, err := s.client.api.PutObject(ctx, s.bucket(b), key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorage, "upload of %s failed", key)
	}
	return &Object{
		Key:          key,
		Size:         info.Size,
		ContentType:  contentType,
		ETag:         info.ETag,
		Metadata:     meta,
		LastModified: time.Now().UTC(),
	}, nil
}

// Get reads the whole object. Objects above the size cap are rejected.
func (s *Store) Get(ctx context.Context, b Bucket, key string) (data []byte, err error) {
	defer func(start time.Time) { s.observe("get", start, err) }(time.Now())

	obj, err := s.client.api.GetObject(ctx, s.bucket(b), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, key)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, mapError(err, key)
	}
	if info.Size > s.maxSize {
		return nil, errors.Newf(errors.ErrCodeValidation, "object %s is %d bytes, limit is %d", key, info.Size, s.maxSize)
	}
	data, err = io.ReadAll(io.LimitReader(obj, s.maxSize+1))
	if err != nil {
		return nil, mapError(err, key)
	}
	return data, nil
}

func (s *Store) Stat(ctx context.Context, b Bucket, key string) (obj *Object, err error) {
	defer func(start time.Time) { s.observe("stat", start, err) }(time.Now())

	info, err := s.client.api.StatObject(ctx, s.bucket(b), key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, key)
	}
	return &Object{
		Key:          key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		Metadata:     info.UserMetadata,
		LastModified: info.LastModified,
	}, nil
}

func (s *Store) Delete(ctx context.Context, b Bucket, key string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())

	if err := s.client.api.RemoveObject(ctx, s.bucket(b), key, minio.RemoveObjectOptions{}); err != nil {
		return mapError(err, key)
	}
	return nil
}

// PresignGet returns a time-limited download URL.
func (s *Store) PresignGet(ctx context.Context, b Bucket, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = time.Hour
	}
	u, err := s.client.api.PresignedGetObject(ctx, s.bucket(b), key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorage, "presign failed")
	}
	return u.String(), nil
}

func mapError(err error, key string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return errors.New(errors.ErrCodeObjectNotFound, "object not found").WithDetail(key)
	}
	return errors.Wrapf(err, errors.ErrCodeStorage, "object storage error for %s", key)
}
