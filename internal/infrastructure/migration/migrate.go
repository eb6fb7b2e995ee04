// Package migration wraps golang-migrate for the schema lifecycle of the
// fiscal platform: the document and alert tables, the credit ledger, and
// whatever follows them. Plain SQL file pairs under migrations/.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator applies file-based SQL migrations against an open connection
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New wires a Migrator over db, sourcing files from migrationsPath
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}

	return &Migrator{m: m, logger: logger}, nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error {
	applied, err := mg.run("up", mg.m.Up())
	if err != nil || !applied {
		return err
	}
	return mg.logVersion("Migrations applied")
}

// Down rolls every migration back
func (mg *Migrator) Down() error {
	applied, err := mg.run("down", mg.m.Down())
	if err != nil || !applied {
		return err
	}
	mg.logger.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations forward, or -n backward
func (mg *Migrator) Steps(n int) error {
	applied, err := mg.run(fmt.Sprintf("steps(%d)", n), mg.m.Steps(n))
	if err != nil || !applied {
		return err
	}
	return mg.logVersion("Migration steps applied")
}

// GoTo migrates up or down until the schema sits at version
func (mg *Migrator) GoTo(version uint) error {
	applied, err := mg.run(fmt.Sprintf("goto(%d)", version), mg.m.Migrate(version))
	if err != nil || !applied {
		return err
	}
	mg.logger.Info("Migrated to version", zap.Uint("version", version))
	return nil
}

// Version reports the current schema version. A pristine database reports
// version 0 and no error.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded version without running any SQL. Only for
// recovering a dirty schema after a failed migration.
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop destroys every object in the database
func (mg *Migrator) Drop() error {
	mg.logger.Warn("Dropping all database objects")
	if err := mg.m.Drop(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	return nil
}

// Close releases the source and database handles
func (mg *Migrator) Close() error {
	sourceErr, dbErr := mg.m.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}

// run normalizes ErrNoChange into a logged no-op. The bool reports whether
// anything actually changed.
func (mg *Migrator) run(op string, err error) (bool, error) {
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("Nothing to migrate", zap.String("op", op))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migration %s: %w", op, err)
	}
	return true, nil
}

func (mg *Migrator) logVersion(msg string) error {
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
