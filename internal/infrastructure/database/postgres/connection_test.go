package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

func stubOpen(t *testing.T, db *sql.DB, err error) *string {
	t.Helper()
	var gotDSN string
	original := sqlOpen
	t.Cleanup(func() { sqlOpen = original })
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, driverName, driver)
		gotDSN = dsn
		return db, err
	}
	return &gotDSN
}

func TestNewConnection_Success(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	dsn := stubOpen(t, db, nil)
	mock.ExpectPing()

	cfg := config.PostgresConfig{Host: "localhost", Port: 5432, User: "rinchi", Password: "pw", DBName: "rinchi"}
	conn, err := NewConnection(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Same(t, db, conn.DB())
	assert.Equal(t, "postgres://rinchi:pw@localhost:5432/rinchi?sslmode=disable", *dsn)
	assert.Equal(t, 25, db.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewConnection_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	stubOpen(t, db, nil)
	mock.ExpectPing().WillReturnError(stderrors.New("connection refused"))
	mock.ExpectClose()

	conn, err := NewConnection(context.Background(), config.PostgresConfig{Host: "localhost"}, nil)
	require.Error(t, err)
	assert.Nil(t, conn)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errors.ErrCodeDatabaseError, appErr.Code)
	assert.Equal(t, "database connection failed", appErr.Message)
	assert.Contains(t, appErr.Cause.Error(), "connection refused")
}

func TestNewConnection_OpenFailure(t *testing.T) {
	stubOpen(t, nil, stderrors.New("open failed"))

	conn, err := NewConnection(context.Background(), config.PostgresConfig{}, nil)
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestConnection_HealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	conn := NewConnectionWithDB(db, nil)

	mock.ExpectPing()
	assert.NoError(t, conn.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(stderrors.New("timeout"))
	err = conn.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnection_WithTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	conn := NewConnectionWithDB(db, nil)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM reactions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err = conn.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM reactions WHERE id = $1", "x")
		return err
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = conn.WithTx(ctx, func(*sql.Tx) error { return stderrors.New("abort") })
	assert.EqualError(t, err, "abort")

	mock.ExpectBegin()
	mock.ExpectRollback()
	assert.Panics(t, func() {
		_ = conn.WithTx(ctx, func(*sql.Tx) error { panic("boom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := NewConnectionWithDB(db, logging.NewNopLogger())

	mock.ExpectClose()
	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
