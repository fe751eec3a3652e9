package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/IUPAC-InChI/RInChI/internal/application/registry"
	"github.com/IUPAC-InChI/RInChI/internal/application/rinchi"
	"github.com/IUPAC-InChI/RInChI/internal/application/worker"
	"github.com/IUPAC-InChI/RInChI/internal/domain/job"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
)

type mockRInChIService struct{ mock.Mock }

func (m *mockRInChIService) FromFileText(ctx context.Context, in *rinchi.FileInput) (*rinchi.Identifiers, error) {
	args := m.Called(ctx, in)
	ids, _ := args.Get(0).(*rinchi.Identifiers)
	return ids, args.Error(1)
}

func (m *mockRInChIService) KeyFromFileText(ctx context.Context, in *rinchi.FileInput, keyType string) (string, error) {
	args := m.Called(ctx, in, keyType)
	return args.String(0), args.Error(1)
}

func (m *mockRInChIService) FileTextFromRInChI(ctx context.Context, rinchiStr, rauxinfo, format string) (string, error) {
	args := m.Called(ctx, rinchiStr, rauxinfo, format)
	return args.String(0), args.Error(1)
}

func (m *mockRInChIService) Decompose(ctx context.Context, rinchiStr, rauxinfo string) (*rinchi.Decomposition, error) {
	args := m.Called(ctx, rinchiStr, rauxinfo)
	d, _ := args.Get(0).(*rinchi.Decomposition)
	return d, args.Error(1)
}

func (m *mockRInChIService) FromInChIs(ctx context.Context, in *rinchi.InChIsInput) (*rinchi.Identifiers, error) {
	args := m.Called(ctx, in)
	ids, _ := args.Get(0).(*rinchi.Identifiers)
	return ids, args.Error(1)
}

func (m *mockRInChIService) KeyFromRInChI(ctx context.Context, rinchiStr, keyType string) (string, error) {
	args := m.Called(ctx, rinchiStr, keyType)
	return args.String(0), args.Error(1)
}

func (m *mockRInChIService) Keys(ctx context.Context, rinchiStr string) (*rinchi.Identifiers, error) {
	args := m.Called(ctx, rinchiStr)
	ids, _ := args.Get(0).(*rinchi.Identifiers)
	return ids, args.Error(1)
}

func (m *mockRInChIService) Record(ctx context.Context, in *rinchi.FileInput, source string) (*reaction.Record, error) {
	args := m.Called(ctx, in, source)
	rec, _ := args.Get(0).(*reaction.Record)
	return rec, args.Error(1)
}

type mockRegistry struct{ mock.Mock }

func (m *mockRegistry) Register(ctx context.Context, in *rinchi.FileInput, source string) (*reaction.Record, error) {
	args := m.Called(ctx, in, source)
	rec, _ := args.Get(0).(*reaction.Record)
	return rec, args.Error(1)
}

func (m *mockRegistry) Get(ctx context.Context, id string) (*reaction.Record, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*reaction.Record)
	return rec, args.Error(1)
}

func (m *mockRegistry) Lookup(ctx context.Context, key string) (*reaction.Record, error) {
	args := m.Called(ctx, key)
	rec, _ := args.Get(0).(*reaction.Record)
	return rec, args.Error(1)
}

func (m *mockRegistry) ByComponent(ctx context.Context, inchiKey string, limit int) ([]*reaction.Record, error) {
	args := m.Called(ctx, inchiKey, limit)
	recs, _ := args.Get(0).([]*reaction.Record)
	return recs, args.Error(1)
}

func (m *mockRegistry) List(ctx context.Context, in *registry.ListInput) (*registry.ListResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*registry.ListResult)
	return res, args.Error(1)
}

func (m *mockRegistry) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRegistry) Participations(ctx context.Context, inchiKey string) ([]reaction.Participation, error) {
	args := m.Called(ctx, inchiKey)
	ps, _ := args.Get(0).([]reaction.Participation)
	return ps, args.Error(1)
}

func (m *mockRegistry) Successors(ctx context.Context, key string, limit int) ([]string, error) {
	args := m.Called(ctx, key, limit)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

type mockJobService struct{ mock.Mock }

func (m *mockJobService) Submit(ctx context.Context, in *worker.SubmitInput) (*job.Job, error) {
	args := m.Called(ctx, in)
	j, _ := args.Get(0).(*job.Job)
	return j, args.Error(1)
}

func (m *mockJobService) Status(ctx context.Context, id string) (*job.Job, error) {
	args := m.Called(ctx, id)
	j, _ := args.Get(0).(*job.Job)
	return j, args.Error(1)
}

func (m *mockJobService) ResultURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, id, expiry)
	return args.String(0), args.Error(1)
}

// serve runs one request through a chi router so URL parameters resolve.
func serve(pattern, method string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
