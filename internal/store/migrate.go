package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationResult reports what a migration run did.
type MigrationResult struct {
	From    uint
	To      uint
	Changed bool
}

// Migrate runs schema migrations on the store's database.
//   - If targetVersion < 0, it migrates to the latest version.
//   - If targetVersion == 0, it rolls back all migrations.
//   - If targetVersion > 0, it migrates to the specified version.
func (s *SQLStore) Migrate(targetVersion int) (MigrationResult, error) {
	var (
		driver database.Driver
		err    error
	)
	switch s.backend {
	case BackendSQLite:
		driver, err = sqlite.WithInstance(s.db.DB, &sqlite.Config{})
	case BackendMySQL:
		driver, err = mysql.WithInstance(s.db.DB, &mysql.Config{})
	case BackendPostgres:
		driver, err = postgres.WithInstance(s.db.DB, &postgres.Config{})
	default:
		return MigrationResult{}, fmt.Errorf("%w: %q", ErrUnsupportedBackend, s.backend)
	}
	if err != nil {
		return MigrationResult{}, fmt.Errorf("create %s migrate driver: %w", s.backend, err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations/"+string(s.backend))
	if err != nil {
		return MigrationResult{}, fmt.Errorf("access migrations directory: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return MigrationResult{}, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(s.backend), driver)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("create migrate instance: %w", err)
	}

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("get current migration version: %w", err)
	}
	if dirty {
		return MigrationResult{}, fmt.Errorf("database is in a dirty state at version %d", current)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return MigrationResult{From: current, To: current}, nil
	}
	if err != nil {
		return MigrationResult{}, fmt.Errorf("migrate to version %d: %w", targetVersion, err)
	}

	next, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("get migration version: %w", err)
	}
	s.logger.Info("schema migrated",
		zap.String("backend", string(s.backend)),
		zap.Uint("from", current),
		zap.Uint("to", next))
	return MigrationResult{From: current, To: next, Changed: true}, nil
}
