package worker

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/internal/application/rinchi"
	"github.com/IUPAC-InChI/RInChI/internal/domain/job"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/messaging/kafka"
	objstore "github.com/IUPAC-InChI/RInChI/internal/infrastructure/storage/minio"
	"github.com/IUPAC-InChI/RInChI/internal/testutil"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

const (
	resultTopic = "rinchi.job.completed"
	jobID       = "3f9a1c52-8d1e-4a55-9b53-0c0d2f6f7b11"
	inputKey    = "jobs/" + jobID + "/esterification.rxn"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Get(_ context.Context, b objstore.Bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.objects[b.String()+"/"+key]
	if !ok {
		return nil, errors.New(errors.ErrCodeObjectNotFound, "object not found")
	}
	return data, nil
}

func (s *memStore) Put(_ context.Context, b objstore.Bucket, key string, data []byte, contentType string, _ map[string]string) (*objstore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[b.String()+"/"+key] = append([]byte(nil), data...)
	return &objstore.Object{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *memStore) PresignGet(_ context.Context, b objstore.Bucket, key string, _ time.Duration) (string, error) {
	return "http://minio.local/" + b.String() + "/" + key + "?sig=x", nil
}

func (s *memStore) object(b objstore.Bucket, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.objects[b.String()+"/"+key])
}

type stubRegistrar struct {
	rec *reaction.Record
	err error
	in  *rinchi.FileInput
}

func (r *stubRegistrar) Register(_ context.Context, in *rinchi.FileInput, _ string) (*reaction.Record, error) {
	r.in = in
	return r.rec, r.err
}

type stubReconstructor struct {
	rinchi, aux, format string
	text                string
}

func (r *stubReconstructor) FileTextFromRInChI(_ context.Context, rinchi, aux, format string) (string, error) {
	r.rinchi, r.aux, r.format = rinchi, aux, format
	return r.text, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*kafka.ProducerMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *kafka.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) completed(t *testing.T) kafka.JobCompleted {
	t.Helper()
	require.Len(t, p.msgs, 1)
	env, err := kafka.MessageToEventEnvelope(&kafka.Message{Value: p.msgs[0].Value})
	require.NoError(t, err)
	var done kafka.JobCompleted
	require.NoError(t, env.DecodePayload(&done))
	return done
}

type heldLock struct{ held bool }

func (l *heldLock) TryLock(context.Context, string) (func(), bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func() { l.held = false }, true, nil
}

func requestMessage(t *testing.T, req kafka.JobRequested) *kafka.Message {
	t.Helper()
	env, err := kafka.NewEventEnvelope(kafka.EventJobRequested, "test", req)
	require.NoError(t, err)
	pm, err := env.ToMessage("rinchi.job.requested", req.JobID, nil)
	require.NoError(t, err)
	return &kafka.Message{Topic: pm.Topic, Key: pm.Key, Value: pm.Value, Headers: pm.Headers}
}

func pendingJob(kind job.Kind) *job.Job {
	j := job.New(kind, inputKey)
	j.ID = jobID
	return j
}

func withStatus(s job.Status) interface{} {
	return mock.MatchedBy(func(j *job.Job) bool { return j.Status == s })
}

type fixture struct {
	jobs  *testutil.MockJobRepository
	store *memStore
	reg   *stubRegistrar
	rebld *stubReconstructor
	pub   *recordingPublisher
	proc  *Processor
}

func newFixture(t *testing.T, opts ...ProcessorOption) *fixture {
	t.Helper()
	f := &fixture{
		jobs:  new(testutil.MockJobRepository),
		store: newMemStore(),
		reg: &stubRegistrar{rec: &reaction.Record{
			ID:       "rec-1",
			RInChI:   "RInChI=1.00.1S/CH4O/c1-2/h2H,1H3<>H2O/h1H2/d+",
			RAuxInfo: "RAuxInfo=1.00.1/0/N:1,2<>0/N:1",
			LongKey:  "Long-RInChIKey=SA-FUHFF-OKFIPGDVKPMDHG-UHFFFAOYSA-N--XLYOFNOQVPJJNP-UHFFFAOYSA-N",
			ShortKey: "Short-RInChIKey=SA-FUHFF-OKFIPGDVKP-XLYOFNOQVP-NUHFF-NUHFF-NUHFF-ZZZ",
			WebKey:   "Web-RInChIKey=KZJWDPNRJALLNSMKV-NUHFFFADPSCTJSA",
		}},
		rebld: &stubReconstructor{text: "$RXN\n\n  RInChI\n\n  1  1\n"},
		pub:   &recordingPublisher{},
	}
	f.proc = NewProcessor(ProcessorConfig{ResultTopic: resultTopic, JobTimeout: time.Second},
		f.jobs, f.store, f.reg, f.rebld, f.pub, append([]ProcessorOption{WithProcessorLogger(testutil.NewMockLogger())}, opts...)...)
	t.Cleanup(func() { f.jobs.AssertExpectations(t) })
	return f
}

func TestProcessor_Compute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.store.Put(ctx, objstore.Input, inputKey, []byte("$RXN\n..."), "", nil)

	f.jobs.On("Get", mock.Anything, jobID).Return(pendingJob(job.KindCompute), nil)
	f.jobs.On("Update", mock.Anything, withStatus(job.StatusRunning)).Return(nil).Once()
	f.jobs.On("Update", mock.Anything, mock.MatchedBy(func(j *job.Job) bool {
		return j.Status == job.StatusSucceeded && j.ReactionID == "rec-1" && j.Attempts == 1
	})).Return(nil).Once()

	err := f.proc.Handle(ctx, requestMessage(t, kafka.JobRequested{JobID: jobID, Kind: "compute", InputKey: inputKey}))
	require.NoError(t, err)

	assert.Equal(t, "esterification.rxn", f.reg.in.Name)
	out := f.store.object(objstore.Output, "jobs/"+jobID+"/identifiers.txt")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, f.reg.rec.RInChI, lines[0])
	assert.Equal(t, f.reg.rec.WebKey, lines[4])

	done := f.pub.completed(t)
	assert.Equal(t, "succeeded", done.Status)
	assert.Equal(t, f.reg.rec.LongKey, done.LongKey)
	assert.Equal(t, "rec-1", done.ReactionID)
	assert.Equal(t, resultTopic, f.pub.msgs[0].Topic)
	assert.Equal(t, jobID, f.pub.msgs[0].Headers[kafka.HeaderJobID])
}

func TestProcessor_ReconstructCreatesUnknownJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.store.Put(ctx, objstore.Input, inputKey, []byte("RInChI=1.00.1S/CH4O/c1-2/h2H,1H3<>H2O/h1H2/d+\r\nRAuxInfo=1.00.1/0/N:1,2<>0/N:1\r\n"), "", nil)

	f.jobs.On("Get", mock.Anything, jobID).Return(nil, errors.NotFound("job not found"))
	f.jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *job.Job) bool {
		return j.ID == jobID && j.Kind == job.KindReconstruct && j.Format == "RXN"
	})).Return(nil)
	f.jobs.On("Update", mock.Anything, withStatus(job.StatusRunning)).Return(nil).Once()
	f.jobs.On("Update", mock.Anything, withStatus(job.StatusSucceeded)).Return(nil).Once()

	err := f.proc.Handle(ctx, requestMessage(t, kafka.JobRequested{JobID: jobID, Kind: "reconstruct", InputKey: inputKey, Format: "RXN"}))
	require.NoError(t, err)

	assert.Equal(t, "RInChI=1.00.1S/CH4O/c1-2/h2H,1H3<>H2O/h1H2/d+", f.rebld.rinchi)
	assert.Equal(t, "RAuxInfo=1.00.1/0/N:1,2<>0/N:1", f.rebld.aux)
	assert.Equal(t, "RXN", f.rebld.format)
	assert.Equal(t, f.rebld.text, f.store.object(objstore.Output, "jobs/"+jobID+"/reaction.rxn"))
	assert.Equal(t, "jobs/"+jobID+"/reaction.rxn", f.pub.completed(t).OutputKey)
}

func TestProcessor_PermanentFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.store.Put(ctx, objstore.Input, inputKey, []byte("garbage"), "", nil)
	f.reg.err = errors.New(errors.ErrCodeRDfile, "no $RFMT in the first 1000 lines")

	f.jobs.On("Get", mock.Anything, jobID).Return(pendingJob(job.KindCompute), nil)
	f.jobs.On("Update", mock.Anything, withStatus(job.StatusRunning)).Return(nil).Once()
	f.jobs.On("Update", mock.Anything, mock.MatchedBy(func(j *job.Job) bool {
		return j.Status == job.StatusFailed && strings.Contains(j.Error, "$RFMT")
	})).Return(nil).Once()

	err := f.proc.Handle(ctx, requestMessage(t, kafka.JobRequested{JobID: jobID, Kind: "compute", InputKey: inputKey}))
	require.Error(t, err)
	assert.False(t, Retryable(err))

	done := f.pub.completed(t)
	assert.Equal(t, "failed", done.Status)
	assert.Contains(t, done.Error, "$RFMT")
}

func TestProcessor_TransientFailureIsNotPublished(t *testing.T) {
	f := newFixture(t)
	f.store.getErr = errors.New(errors.ErrCodeStorage, "connection reset")

	f.jobs.On("Get", mock.Anything, jobID).Return(pendingJob(job.KindCompute), nil)
	f.jobs.On("Update", mock.Anything, withStatus(job.StatusRunning)).Return(nil).Once()
	f.jobs.On("Update", mock.Anything, withStatus(job.StatusFailed)).Return(nil).Once()

	err := f.proc.Handle(context.Background(), requestMessage(t, kafka.JobRequested{JobID: jobID, Kind: "compute", InputKey: inputKey}))
	require.Error(t, err)
	assert.True(t, Retryable(err))
	assert.Empty(t, f.pub.msgs)
}

func TestProcessor_SkipsFinishedJob(t *testing.T) {
	f := newFixture(t)
	j := pendingJob(job.KindCompute)
	j.Succeed("jobs/x/identifiers.txt", "rec-1")
	f.jobs.On("Get", mock.Anything, jobID).Return(j, nil)

	err := f.proc.Handle(context.Background(), requestMessage(t, kafka.JobRequested{JobID: jobID, Kind: "compute", InputKey: inputKey}))
	require.NoError(t, err)
	f.jobs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestProcessor_LockHeld(t *testing.T) {
	lock := &heldLock{held: true}
	f := newFixture(t, WithJobLock(lock))

	err := f.proc.Handle(context.Background(), requestMessage(t, kafka.JobRequested{JobID: jobID, Kind: "compute", InputKey: inputKey}))
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
	assert.True(t, Retryable(err))
}

func TestProcessor_ReleasesLock(t *testing.T) {
	lock := &heldLock{}
	f := newFixture(t, WithJobLock(lock))
	j := pendingJob(job.KindCompute)
	j.Succeed("k", "")
	f.jobs.On("Get", mock.Anything, jobID).Return(j, nil)

	require.NoError(t, f.proc.Handle(context.Background(), requestMessage(t, kafka.JobRequested{JobID: jobID, Kind: "compute", InputKey: inputKey})))
	assert.False(t, lock.held)
}

func TestProcessor_BadMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.proc.Handle(ctx, &kafka.Message{Value: []byte("{")})
	assert.False(t, Retryable(err))

	err = f.proc.Handle(ctx, requestMessage(t, kafka.JobRequested{Kind: "compute"}))
	assert.True(t, errors.IsValidation(err))

	f.jobs.On("Get", mock.Anything, jobID).Return(nil, errors.NotFound("job not found"))
	err = f.proc.Handle(ctx, requestMessage(t, kafka.JobRequested{JobID: jobID, Kind: "index", InputKey: inputKey}))
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	env, err := kafka.NewEventEnvelope(kafka.EventJobCompleted, "test", kafka.JobCompleted{JobID: jobID})
	require.NoError(t, err)
	pm, err := env.ToMessage("t", jobID, nil)
	require.NoError(t, err)
	assert.NoError(t, f.proc.Handle(ctx, &kafka.Message{Value: pm.Value}))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New(errors.ErrCodeStorage, "s"), true},
		{errors.New(errors.ErrCodeDatabaseError, "d"), true},
		{errors.New(errors.ErrCodeGraphError, "g"), true},
		{errors.New(errors.ErrCodeConflict, "c"), true},
		{context.DeadlineExceeded, true},
		{errors.NewFormatError("f"), false},
		{errors.NewPreconditionError("p"), false},
		{errors.New(errors.ErrCodeMolfile, "m"), false},
		{errors.New(errors.ErrCodeObjectNotFound, "o"), false},
		{errors.New(errors.ErrCodeSerialization, "s"), false},
		{errors.New(errors.ErrCodeEngineUnsupported, "e"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Retryable(tt.err), "%v", tt.err)
	}
}
