package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	pkgerrors "github.com/pkg/errors"

	"github.com/Ramsey-B/sage/db"
)

var upMigration = regexp.MustCompile(`^(\d+)_.*\.up\.sql$`)

// migrateLogger routes golang-migrate output through ectologger
type migrateLogger struct {
	ectologger.Logger
}

func (l migrateLogger) Verbose() bool { return false }

func (l migrateLogger) Printf(format string, v ...any) {
	l.Infof(strings.TrimSuffix(format, "\n"), v...)
}

// MigrationConfig controls a schema migration run
type MigrationConfig struct {
	// Folder overrides the embedded migrations with a directory on disk
	Folder string
	// Version migrates to an exact version instead of the latest
	Version uint
	// Force marks the database clean at this version before migrating
	Force int
	// AutoRollback forces a dirty database back to the version it had before the run
	AutoRollback bool
}

type MigrationService struct {
	config MigrationConfig
	logger ectologger.Logger
}

func NewMigrationService(logger ectologger.Logger, config MigrationConfig) *MigrationService {
	return &MigrationService{config: config, logger: logger}
}

func (ms *MigrationService) source() fs.FS {
	if ms.config.Folder != "" {
		return os.DirFS(ms.config.Folder)
	}
	return db.Postgres()
}

// Migrate brings the schema of databaseName up to date
func (ms *MigrationService) Migrate(conn DB, databaseName string) error {
	files := ms.source()

	src, err := iofs.New(files, ".")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to open migrations")
	}

	driver, err := postgres.WithInstance(conn.SQL(), &postgres.Config{DatabaseName: databaseName})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, databaseName, driver)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create migrator")
	}
	m.Log = migrateLogger{Logger: ms.logger}

	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			return pkgerrors.Wrapf(err, "failed to force schema to version %d", ms.config.Force)
		}
	}

	before, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return pkgerrors.Wrap(err, "failed to read schema version")
	}

	start := time.Now()
	if ms.config.Version != 0 {
		err = m.Migrate(ms.config.Version)
	} else {
		err = m.Up()
	}

	switch {
	case err == nil:
		after, _, _ := m.Version()
		ms.logger.WithFields(map[string]any{
			"from":     before,
			"to":       after,
			"duration": time.Since(start).String(),
		}).Info("Applied schema migrations")
		return nil
	case errors.Is(err, migrate.ErrNoChange):
		ms.logger.WithField("version", before).Info("Schema is up to date")
		return nil
	}

	return ms.recover(m, files, before, err)
}

// recover handles a failed run. A database ahead of the embedded files (after a
// rollback deploy) is pinned to the newest known version; a dirty one is optionally
// forced back. The migration error is returned either way except in the first case.
func (ms *MigrationService) recover(m *migrate.Migrate, files fs.FS, before uint, runErr error) error {
	if strings.Contains(runErr.Error(), "no migration found for version") {
		latest, err := latestVersion(files)
		if err != nil {
			return pkgerrors.Wrap(err, "failed to find latest migration")
		}
		ms.logger.Warnf("Schema version %d has no migration file, pinning to %d", before, latest)
		return m.Force(latest)
	}

	current, dirty, err := m.Version()
	if err != nil {
		return pkgerrors.Wrap(runErr, "migration failed")
	}

	if dirty && ms.config.AutoRollback {
		target := int(before)
		if before == 0 && current > 0 {
			target = int(current) - 1
		}
		ms.logger.Warnf("Schema is dirty at version %d, forcing back to %d", current, target)
		if err := m.Force(target); err != nil {
			return pkgerrors.Wrapf(err, "failed to force schema to version %d", target)
		}
	}

	return pkgerrors.Wrap(runErr, "migration failed")
}

func latestVersion(files fs.FS) (int, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return 0, err
	}

	latest := 0
	for _, entry := range entries {
		match := upMigration.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		v, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, err
		}
		latest = max(latest, v)
	}
	if latest == 0 {
		return 0, fmt.Errorf("no up migrations found")
	}
	return latest, nil
}
