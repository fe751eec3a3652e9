package minio

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *mockAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *mockAPI) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *mockAPI) SetBucketLifecycle(ctx context.Context, bucket string, cfg *lifecycle.Configuration) error {
	return m.Called(ctx, bucket, cfg).Error(0)
}

func (m *mockAPI) PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucket, object, r, size, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *mockAPI) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (ObjectReader, error) {
	args := m.Called(ctx, bucket, object, opts)
	r, _ := args.Get(0).(ObjectReader)
	return r, args.Error(1)
}

func (m *mockAPI) StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucket, object, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *mockAPI) RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucket, object, opts).Error(0)
}

func (m *mockAPI) PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucket, object, expiry, params)
	u, _ := args.Get(0).(*url.URL)
	return u, args.Error(1)
}

// memObject serves a string body and a fixed stat.
type memObject struct {
	*strings.Reader
	info    minio.ObjectInfo
	statErr error
	closed  bool
}

func (o *memObject) Stat() (minio.ObjectInfo, error) { return o.info, o.statErr }
func (o *memObject) Close() error                    { o.closed = true; return nil }

func testMinIOConfig() config.MinIOConfig {
	return config.MinIOConfig{
		Endpoint:     "localhost:9000",
		InputBucket:  config.DefaultInputBucket,
		OutputBucket: config.DefaultOutputBucket,
	}
}

type ClientTestSuite struct {
	suite.Suite
	api    *mockAPI
	client *Client
	ctx    context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(mockAPI)
	s.client = newClient(s.api, testMinIOConfig(), logging.NewNopLogger())
	s.ctx = context.Background()
}

func (s *ClientTestSuite) TestEnsureBuckets_CreatesMissing() {
	s.api.On("BucketExists", s.ctx, config.DefaultInputBucket).Return(true, nil)
	s.api.On("BucketExists", s.ctx, config.DefaultOutputBucket).Return(false, nil)
	s.api.On("MakeBucket", s.ctx, config.DefaultOutputBucket, mock.Anything).Return(nil)
	s.api.On("SetBucketLifecycle", s.ctx, config.DefaultInputBucket, mock.MatchedBy(func(c *lifecycle.Configuration) bool {
		return len(c.Rules) == 1 && c.Rules[0].Expiration.Days == inputRetentionDays
	})).Return(nil)

	s.NoError(s.client.EnsureBuckets(s.ctx))
	s.api.AssertNumberOfCalls(s.T(), "MakeBucket", 1)
}

func (s *ClientTestSuite) TestEnsureBuckets_LifecycleFailureTolerated() {
	s.api.On("BucketExists", s.ctx, mock.Anything).Return(true, nil)
	s.api.On("SetBucketLifecycle", s.ctx, mock.Anything, mock.Anything).Return(assert.AnError)

	s.NoError(s.client.EnsureBuckets(s.ctx))
}

func (s *ClientTestSuite) TestEnsureBuckets_MakeFails() {
	s.api.On("BucketExists", s.ctx, mock.Anything).Return(false, nil)
	s.api.On("MakeBucket", s.ctx, config.DefaultInputBucket, mock.Anything).Return(assert.AnError)

	err := s.client.EnsureBuckets(s.ctx)
	s.True(errors.IsCode(err, errors.ErrCodeStorage))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("ListBuckets", s.ctx).Return([]minio.BucketInfo{}, nil)
	s.api.On("BucketExists", s.ctx, config.DefaultInputBucket).Return(true, nil)
	s.api.On("BucketExists", s.ctx, config.DefaultOutputBucket).Return(false, nil)

	err := s.client.HealthCheck(s.ctx)
	s.Error(err)
	s.Contains(err.Error(), config.DefaultOutputBucket)
}

func (s *ClientTestSuite) TestHealthCheck_Unreachable() {
	s.api.On("ListBuckets", s.ctx).Return([]minio.BucketInfo(nil), assert.AnError)

	err := s.client.HealthCheck(s.ctx)
	s.True(errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
