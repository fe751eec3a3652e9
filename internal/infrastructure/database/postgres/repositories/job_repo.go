package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/IUPAC-InChI/RInChI/internal/domain/job"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/postgres"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

type postgresJobRepo struct {
	baseRepo
}

func NewJobRepository(conn *postgres.Connection, log logging.Logger, m *prometheus.AppMetrics) job.Repository {
	return &postgresJobRepo{baseRepo: newBaseRepo(conn, log, m)}
}

func (r *postgresJobRepo) Create(ctx context.Context, j *job.Job) (err error) {
	defer func(start time.Time) { r.observe("job_create", start, err) }(time.Now())

	if _, err := parseID(j.ID); err != nil {
		return err
	}
	err = r.db().QueryRowContext(ctx, `
		INSERT INTO jobs (id, kind, status, input_key, format, force_eq)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		j.ID, string(j.Kind), string(j.Status), j.InputKey, j.Format, j.ForceEq,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return dbError(err, "failed to create job")
	}
	return nil
}

func (r *postgresJobRepo) Get(ctx context.Context, id string) (j *job.Job, err error) {
	defer func(start time.Time) { r.observe("job_get", start, err) }(time.Now())

	if _, err := parseID(id); err != nil {
		return nil, err
	}
	var (
		out        job.Job
		kind       string
		status     string
		reactionID sql.NullString
	)
	err = r.db().QueryRowContext(ctx, `
		SELECT id, kind, status, input_key, output_key, format, force_eq, reaction_id,
			attempts, error, created_at, updated_at
		FROM jobs WHERE id = $1`, id,
	).Scan(&out.ID, &kind, &status, &out.InputKey, &out.OutputKey, &out.Format, &out.ForceEq, &reactionID,
		&out.Attempts, &out.Error, &out.CreatedAt, &out.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("job not found").WithDetail(id)
	}
	if err != nil {
		return nil, dbError(err, "failed to load job")
	}
	out.Kind = job.Kind(kind)
	out.Status = job.Status(status)
	out.ReactionID = reactionID.String
	return &out, nil
}

func (r *postgresJobRepo) Update(ctx context.Context, j *job.Job) (err error) {
	defer func(start time.Time) { r.observe("job_update", start, err) }(time.Now())

	reactionID := sql.NullString{String: j.ReactionID, Valid: j.ReactionID != ""}
	res, err := r.db().ExecContext(ctx, `
		UPDATE jobs SET
			status = $2, output_key = $3, reaction_id = $4, attempts = $5, error = $6, updated_at = $7
		WHERE id = $1`,
		j.ID, string(j.Status), j.OutputKey, reactionID, j.Attempts, j.Error, j.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "failed to update job")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("job not found").WithDetail(j.ID)
	}
	return nil
}
