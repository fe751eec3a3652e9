// Package job describes batch jobs: a reaction file or RInChI stored in
// object storage, processed by a worker and tracked in the registry.
package job

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// Kind selects what a worker does with the input object.
type Kind string

const (
	// KindCompute reads an RXN or RD file and registers its identifiers.
	KindCompute Kind = "compute"
	// KindReconstruct reads an RInChI (and optional RAuxInfo) and writes
	// the reconstructed reaction file.
	KindReconstruct Kind = "reconstruct"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCompute, KindReconstruct:
		return k, nil
	}
	return "", errors.InvalidParam("unknown job kind").WithDetail(s)
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool { return s == StatusSucceeded || s == StatusFailed }

// Job is one unit of batch work.
type Job struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Status     Status    `json:"status"`
	InputKey   string    `json:"input_key"`
	OutputKey  string    `json:"output_key,omitempty"`
	Format     string    `json:"format,omitempty"`
	ForceEq    bool      `json:"force_equilibrium,omitempty"`
	ReactionID string    `json:"reaction_id,omitempty"`
	Attempts   int       `json:"attempts"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// New returns a pending job with a fresh ID.
func New(kind Kind, inputKey string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPending,
		InputKey:  inputKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Start marks the job running and counts the attempt.
func (j *Job) Start() {
	j.Status = StatusRunning
	j.Attempts++
	j.Error = ""
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) Succeed(outputKey, reactionID string) {
	j.Status = StatusSucceeded
	j.OutputKey = outputKey
	j.ReactionID = reactionID
	j.Error = ""
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) Fail(err error) {
	j.Status = StatusFailed
	if err != nil {
		j.Error = err.Error()
	}
	j.UpdatedAt = time.Now().UTC()
}

// Repository tracks job state.
type Repository interface {
	Create(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, j *Job) error
}
