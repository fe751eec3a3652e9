package postgres

import (
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationStatus is the schema version recorded by golang-migrate.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m      *migrate.Migrate
	logger logging.Logger
}

// NewMigrator prepares a migrator on conn's pool. Closing the migrator does
// not close conn.
func (c *Connection) NewMigrator() (*Migrator, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMigration, "failed to open embedded migrations")
	}
	driver, err := migratepg.WithInstance(c.db, &migratepg.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMigration, "failed to create migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMigration, "failed to create migrate instance")
	}
	return &Migrator{m: m, logger: c.logger}, nil
}

// Up applies every pending migration. No pending migration is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		st, _ := mg.Status()
		return errors.Wrapf(err, errors.ErrCodeMigration, "failed to run migrations (current version: %d)", st.Version)
	}
	st, err := mg.Status()
	if err != nil {
		return err
	}
	mg.logger.Info("database migrations completed",
		logging.Int64("version", int64(st.Version)), logging.Bool("dirty", st.Dirty))
	return nil
}

// Down rolls back steps migrations.
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return errors.Newf(errors.ErrCodeBadRequest, "steps must be greater than 0, got %d", steps)
	}
	if err := mg.m.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeMigration, "no migrations to roll back")
		}
		return errors.Wrapf(err, errors.ErrCodeMigration, "failed to roll back %d step(s)", steps)
	}
	return nil
}

// Status reports the applied version; 0 when nothing has been applied.
func (mg *Migrator) Status() (MigrationStatus, error) {
	v, dirty, err := mg.m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, errors.Wrap(err, errors.ErrCodeMigration, "failed to get migration version")
	}
	return MigrationStatus{Version: v, Dirty: dirty}, nil
}

// Force records version as applied without running anything. It is the
// way out of a dirty state after a failed migration has been fixed by hand.
func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return errors.Wrapf(err, errors.ErrCodeMigration, "failed to force version %d", version)
	}
	return nil
}

// Close releases the migration source. The database pool stays open.
func (mg *Migrator) Close() error {
	srcErr, _ := mg.m.Close()
	return srcErr
}

// Migrate is Up on a fresh migrator.
func (c *Connection) Migrate() error {
	mg, err := c.NewMigrator()
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}
