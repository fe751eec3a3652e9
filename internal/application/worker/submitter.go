package worker

import (
	"context"
	"path"
	"time"

	"github.com/IUPAC-InChI/RInChI/internal/domain/job"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/mdl"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/messaging/kafka"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	objstore "github.com/IUPAC-InChI/RInChI/internal/infrastructure/storage/minio"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// SubmitInput is an uploaded file to process.
type SubmitInput struct {
	Kind             string
	FileName         string
	Data             []byte
	Format           string
	ForceEquilibrium bool
}

// Presigner issues download links for job outputs.
type Presigner interface {
	PresignGet(ctx context.Context, b objstore.Bucket, key string, expiry time.Duration) (string, error)
}

// Submitter stores uploads, registers jobs and announces them.
type Submitter struct {
	jobs      job.Repository
	store     ObjectStore
	presign   Presigner
	publisher kafka.Publisher
	topic     string
	logger    logging.Logger
}

func NewSubmitter(jobs job.Repository, store ObjectStore, presign Presigner, publisher kafka.Publisher, jobTopic string, logger logging.Logger) *Submitter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Submitter{jobs: jobs, store: store, presign: presign, publisher: publisher, topic: jobTopic, logger: logger}
}

// Submit uploads the input and queues a job for it. The job is created
// before the event is published so status queries never miss it.
func (s *Submitter) Submit(ctx context.Context, in *SubmitInput) (*job.Job, error) {
	if in == nil || len(in.Data) == 0 {
		return nil, errors.NewValidationError("input file is empty")
	}
	kind, err := job.ParseKind(in.Kind)
	if err != nil {
		return nil, err
	}
	if _, err := mdl.ParseFormat(in.Format); err != nil {
		return nil, err
	}

	name := path.Base(in.FileName)
	if name == "." || name == "/" || name == "" {
		name = "input"
	}
	j := job.New(kind, "")
	j.InputKey = "jobs/" + j.ID + "/" + name
	j.Format = in.Format
	j.ForceEq = in.ForceEquilibrium

	if _, err := s.store.Put(ctx, objstore.Input, j.InputKey, in.Data, "", map[string]string{"job-id": j.ID}); err != nil {
		return nil, err
	}
	if err := s.jobs.Create(ctx, j); err != nil {
		return nil, err
	}

	env, err := kafka.NewEventEnvelope(kafka.EventJobRequested, "apiserver", kafka.JobRequested{
		JobID:            j.ID,
		Kind:             string(j.Kind),
		InputKey:         j.InputKey,
		Format:           j.Format,
		ForceEquilibrium: j.ForceEq,
	})
	if err != nil {
		return nil, err
	}
	msg, err := env.ToMessage(s.topic, j.ID, map[string]string{
		kafka.HeaderKind:  string(j.Kind),
		kafka.HeaderJobID: j.ID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		j.Fail(err)
		if uerr := s.jobs.Update(ctx, j); uerr != nil {
			s.logger.Error("failed to mark unqueued job", logging.String("job_id", j.ID), logging.Error(uerr))
		}
		return nil, err
	}
	s.logger.Info("job submitted", logging.String("job_id", j.ID), logging.String("kind", string(j.Kind)))
	return j, nil
}

func (s *Submitter) Status(ctx context.Context, id string) (*job.Job, error) {
	return s.jobs.Get(ctx, id)
}

// ResultURL returns a download link for a finished job's output.
func (s *Submitter) ResultURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	j, err := s.jobs.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if j.Status != job.StatusSucceeded || j.OutputKey == "" {
		return "", errors.NewPreconditionErrorf("job %s has no output (status %s)", j.ID, j.Status)
	}
	if s.presign == nil {
		return "", errors.New(errors.ErrCodeServiceUnavailable, "object storage links are not available")
	}
	return s.presign.PresignGet(ctx, objstore.Output, j.OutputKey, expiry)
}
