// Package worker runs batch jobs: reaction files or RInChIs uploaded to
// object storage, announced on the job topic and processed here.
package worker

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"github.com/IUPAC-InChI/RInChI/internal/application/rinchi"
	"github.com/IUPAC-InChI/RInChI/internal/domain/job"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/mdl"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/messaging/kafka"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	objstore "github.com/IUPAC-InChI/RInChI/internal/infrastructure/storage/minio"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

const source = "worker"

// ObjectStore is the part of the MinIO store jobs use.
type ObjectStore interface {
	Get(ctx context.Context, b objstore.Bucket, key string) ([]byte, error)
	Put(ctx context.Context, b objstore.Bucket, key string, data []byte, contentType string, meta map[string]string) (*objstore.Object, error)
}

// Registrar stores computed reactions.
type Registrar interface {
	Register(ctx context.Context, in *rinchi.FileInput, source string) (*reaction.Record, error)
}

// Reconstructor writes reaction files back from identifiers.
type Reconstructor interface {
	FileTextFromRInChI(ctx context.Context, rinchi, rauxinfo, format string) (string, error)
}

// JobLock keeps two workers off the same job.
type JobLock interface {
	TryLock(ctx context.Context, jobID string) (unlock func(), ok bool, err error)
}

// Retryable reports whether a failed job may succeed on another attempt.
// Input problems never do.
func Retryable(err error) bool {
	code := errors.GetCode(err)
	switch code {
	case errors.ErrCodeConflict:
		return true
	case errors.ErrCodeSerialization, errors.ErrCodeEngineUnsupported:
		return false
	}
	return !errors.IsClientError(code)
}

type ProcessorConfig struct {
	ResultTopic string
	JobTimeout  time.Duration
}

// Processor handles job.requested events.
type Processor struct {
	cfg       ProcessorConfig
	jobs      job.Repository
	store     ObjectStore
	registry  Registrar
	rebuild   Reconstructor
	publisher kafka.Publisher
	lock      JobLock
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

type ProcessorOption func(*Processor)

func WithJobLock(l JobLock) ProcessorOption {
	return func(p *Processor) { p.lock = l }
}

func WithProcessorLogger(l logging.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithProcessorMetrics(m *prometheus.AppMetrics) ProcessorOption {
	return func(p *Processor) {
		if m != nil {
			p.metrics = m
		}
	}
}

func NewProcessor(cfg ProcessorConfig, jobs job.Repository, store ObjectStore, registry Registrar,
	rebuild Reconstructor, publisher kafka.Publisher, opts ...ProcessorOption) *Processor {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	p := &Processor{
		cfg:       cfg,
		jobs:      jobs,
		store:     store,
		registry:  registry,
		rebuild:   rebuild,
		publisher: publisher,
		logger:    logging.NewNopLogger(),
		metrics:   prometheus.NewNopMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle is a kafka.Handler. Permanent failures are reported on the result
// topic and returned so the consumer dead-letters the message.
func (p *Processor) Handle(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	if env.EventType != kafka.EventJobRequested {
		p.logger.Warn("ignoring unexpected event", logging.String("event_type", env.EventType))
		return nil
	}
	var req kafka.JobRequested
	if err := env.DecodePayload(&req); err != nil {
		return err
	}
	if req.JobID == "" || req.InputKey == "" {
		return errors.NewValidationError("job id and input key are required")
	}

	if p.lock != nil {
		unlock, ok, err := p.lock.TryLock(ctx, req.JobID)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Newf(errors.ErrCodeConflict, "job %s is being processed elsewhere", req.JobID)
		}
		defer unlock()
	}

	j, err := p.load(ctx, &req)
	if err != nil {
		return err
	}
	if j.Status == job.StatusSucceeded {
		p.logger.Info("job already done, skipping", logging.String("job_id", j.ID))
		return nil
	}

	log := p.logger.With(logging.String("job_id", j.ID), logging.String("kind", string(j.Kind)))
	j.Start()
	if err := p.jobs.Update(ctx, j); err != nil {
		return err
	}

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	outKey, rec, err := p.run(runCtx, j)
	cancel()
	prometheus.RecordJob(p.metrics, string(j.Kind), time.Since(start), err)

	if err != nil {
		log.Warn("job failed", logging.Int("attempt", j.Attempts), logging.Error(err))
		j.Fail(err)
		if uerr := p.jobs.Update(ctx, j); uerr != nil {
			log.Error("failed to record job failure", logging.Error(uerr))
		}
		if !Retryable(err) {
			p.publish(ctx, j, nil)
		}
		return err
	}

	reactionID := ""
	if rec != nil {
		reactionID = rec.ID
	}
	j.Succeed(outKey, reactionID)
	if err := p.jobs.Update(ctx, j); err != nil {
		return err
	}
	p.publish(ctx, j, rec)
	log.Info("job succeeded", logging.String("output_key", outKey), logging.Duration("elapsed", time.Since(start)))
	return nil
}

// load fetches the job, creating it when the event came from a producer
// that did not register it.
func (p *Processor) load(ctx context.Context, req *kafka.JobRequested) (*job.Job, error) {
	j, err := p.jobs.Get(ctx, req.JobID)
	if err == nil {
		return j, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}
	kind, err := job.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	j = job.New(kind, req.InputKey)
	j.ID = req.JobID
	j.Format = req.Format
	j.ForceEq = req.ForceEquilibrium
	if err := p.jobs.Create(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

func (p *Processor) run(ctx context.Context, j *job.Job) (string, *reaction.Record, error) {
	raw, err := p.store.Get(ctx, objstore.Input, j.InputKey)
	if err != nil {
		return "", nil, err
	}
	text, err := mdl.ReadText(bytes.NewReader(raw))
	if err != nil {
		return "", nil, err
	}
	meta := map[string]string{"job-id": j.ID, "kind": string(j.Kind)}

	switch j.Kind {
	case job.KindCompute:
		rec, err := p.registry.Register(ctx, &rinchi.FileInput{
			Text:             text,
			Name:             inputName(j.InputKey),
			Format:           j.Format,
			ForceEquilibrium: j.ForceEq,
		}, source+":"+j.InputKey)
		if err != nil {
			return "", nil, err
		}
		out := strings.Join([]string{rec.RInChI, rec.RAuxInfo, rec.LongKey, rec.ShortKey, rec.WebKey}, "\n") + "\n"
		key := outputKey(j.ID, "identifiers.txt")
		if _, err := p.store.Put(ctx, objstore.Output, key, []byte(out), "text/plain; charset=utf-8", meta); err != nil {
			return "", nil, err
		}
		return key, rec, nil

	case job.KindReconstruct:
		lines := strings.SplitN(text, "\n", 3)
		aux := ""
		if len(lines) > 1 {
			aux = strings.TrimRight(lines[1], "\r")
		}
		format := j.Format
		if format == "" {
			format = string(mdl.FormatAuto)
		}
		file, err := p.rebuild.FileTextFromRInChI(ctx, strings.TrimRight(lines[0], "\r"), aux, format)
		if err != nil {
			return "", nil, err
		}
		name, ct := "reaction.rdf", "chemical/x-mdl-rdfile"
		if strings.HasPrefix(file, "$RXN") {
			name, ct = "reaction.rxn", "chemical/x-mdl-rxnfile"
		}
		key := outputKey(j.ID, name)
		if _, err := p.store.Put(ctx, objstore.Output, key, []byte(file), ct, meta); err != nil {
			return "", nil, err
		}
		return key, nil, nil
	}
	return "", nil, errors.InvalidParam("unknown job kind").WithDetail(string(j.Kind))
}

// publish reports the job outcome. A lost completion event does not fail
// the job; its state is in the registry.
func (p *Processor) publish(ctx context.Context, j *job.Job, rec *reaction.Record) {
	if p.publisher == nil || p.cfg.ResultTopic == "" {
		return
	}
	done := kafka.JobCompleted{
		JobID:      j.ID,
		Kind:       string(j.Kind),
		Status:     string(j.Status),
		OutputKey:  j.OutputKey,
		ReactionID: j.ReactionID,
		Error:      j.Error,
		FinishedAt: j.UpdatedAt,
	}
	if rec != nil {
		done.RInChI = rec.RInChI
		done.LongKey = rec.LongKey
	}
	env, err := kafka.NewEventEnvelope(kafka.EventJobCompleted, source, done)
	if err == nil {
		var msg *kafka.ProducerMessage
		msg, err = env.ToMessage(p.cfg.ResultTopic, j.ID, map[string]string{
			kafka.HeaderKind:  string(j.Kind),
			kafka.HeaderJobID: j.ID,
		})
		if err == nil {
			err = p.publisher.Publish(ctx, msg)
		}
	}
	if err != nil {
		p.logger.Error("failed to publish job completion", logging.String("job_id", j.ID), logging.Error(err))
	}
}

func inputName(key string) string {
	return strings.TrimSuffix(path.Base(key), ".xz")
}

func outputKey(jobID, name string) string {
	return "jobs/" + jobID + "/" + name
}
