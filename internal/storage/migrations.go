package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hsh7097/MoneyTalk-sub002/internal/storage/migrations"
	"github.com/pressly/goose/v3"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 2

// Migrate applies all pending goose migrations embedded in the migrations package.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if err := configureGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version < ExpectedSchemaVersion {
		return fmt.Errorf("schema version %d is older than expected %d", version, ExpectedSchemaVersion)
	}

	slog.Debug("Database schema up to date", "version", version)
	return nil
}

// SchemaVersion returns the current goose schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := configureGoose(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// configureGoose points goose at the embedded migrations. goose keeps this
// configuration in package globals.
func configureGoose() error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	return nil
}
