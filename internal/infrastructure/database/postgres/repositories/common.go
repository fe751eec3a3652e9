// Package repositories implements the registry's domain repositories on
// top of the postgres connection.
package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/postgres"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// queryExecutor is satisfied by *sql.DB and *sql.Tx.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

const uniqueViolation = "23505"

type baseRepo struct {
	conn    *postgres.Connection
	log     logging.Logger
	metrics *prometheus.AppMetrics
}

func newBaseRepo(conn *postgres.Connection, log logging.Logger, m *prometheus.AppMetrics) baseRepo {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if m == nil {
		m = prometheus.NewNopMetrics()
	}
	return baseRepo{conn: conn, log: log, metrics: m}
}

func (r *baseRepo) db() queryExecutor { return r.conn.DB() }

// observe records the duration and outcome of one repository operation.
func (r *baseRepo) observe(op string, start time.Time, err error) {
	if errors.IsNotFound(err) {
		err = nil
	}
	prometheus.RecordDBQuery(r.metrics, "postgres", op, time.Since(start), err)
	if err != nil {
		r.log.Error("postgres query failed", logging.String("operation", op), logging.Error(err))
	}
}

// dbError maps driver errors onto application codes.
func dbError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Wrap(err, errors.ErrCodeConflict, msg).WithDetail(pgErr.ConstraintName)
	}
	return errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
}

func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, errors.InvalidParam("invalid id").WithDetail(id)
	}
	return u, nil
}
