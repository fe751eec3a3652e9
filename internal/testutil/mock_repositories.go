package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/IUPAC-InChI/RInChI/internal/domain/job"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
)

type MockReactionRepository struct {
	mock.Mock
}

func (m *MockReactionRepository) Save(ctx context.Context, rec *reaction.Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockReactionRepository) FindByID(ctx context.Context, id string) (*reaction.Record, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*reaction.Record)
	return rec, args.Error(1)
}

func (m *MockReactionRepository) FindByKey(ctx context.Context, key string) (*reaction.Record, error) {
	args := m.Called(ctx, key)
	rec, _ := args.Get(0).(*reaction.Record)
	return rec, args.Error(1)
}

func (m *MockReactionRepository) FindByComponent(ctx context.Context, inchiKey string, limit int) ([]*reaction.Record, error) {
	args := m.Called(ctx, inchiKey, limit)
	recs, _ := args.Get(0).([]*reaction.Record)
	return recs, args.Error(1)
}

func (m *MockReactionRepository) List(ctx context.Context, offset, limit int) ([]*reaction.Record, int64, error) {
	args := m.Called(ctx, offset, limit)
	recs, _ := args.Get(0).([]*reaction.Record)
	return recs, args.Get(1).(int64), args.Error(2)
}

func (m *MockReactionRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockNetwork struct {
	mock.Mock
}

func (m *MockNetwork) Project(ctx context.Context, rec *reaction.Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockNetwork) Participations(ctx context.Context, inchiKey string) ([]reaction.Participation, error) {
	args := m.Called(ctx, inchiKey)
	ps, _ := args.Get(0).([]reaction.Participation)
	return ps, args.Error(1)
}

func (m *MockNetwork) Successors(ctx context.Context, longKey string, limit int) ([]string, error) {
	args := m.Called(ctx, longKey, limit)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *MockNetwork) Remove(ctx context.Context, longKey string) error {
	return m.Called(ctx, longKey).Error(0)
}

// MockJobRepository copies jobs on Get and Update so recorded calls keep the
// state the job had at the time of the call.
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, j *job.Job) error {
	return m.Called(ctx, j).Error(0)
}

func (m *MockJobRepository) Get(ctx context.Context, id string) (*job.Job, error) {
	args := m.Called(ctx, id)
	j, _ := args.Get(0).(*job.Job)
	if j != nil {
		cp := *j
		j = &cp
	}
	return j, args.Error(1)
}

func (m *MockJobRepository) Update(ctx context.Context, j *job.Job) error {
	cp := *j
	return m.Called(ctx, &cp).Error(0)
}
