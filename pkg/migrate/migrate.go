package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where the repo keeps its goose SQL migrations.
const DefaultDir = "pkg/migrate/migrations"

func setDialect() error {
	// Postgres is the only supported backend.
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Run executes a goose command that needs a live connection, such as
// up, down, or status. goose prints its own status output to stdout.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("nil database handle")
	}
	if dir == "" {
		return fmt.Errorf("migrations dir is empty")
	}
	if err := setDialect(); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("run goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema to the exact target version,
// walking up or down from wherever the database currently sits.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	if db == nil {
		return fmt.Errorf("nil database handle")
	}
	target, err := parseVersion(targetVersion)
	if err != nil {
		return err
	}
	if err := setDialect(); err != nil {
		return err
	}

	current, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("read current schema version: %w", err)
	}
	if current == target {
		return nil
	}

	move := goose.UpToContext
	if current > target {
		move = goose.DownToContext
	}
	if err := move(ctx, db, dir, target); err != nil {
		return fmt.Errorf("migrate schema %d to %d: %w", current, target, err)
	}
	return nil
}

func parseVersion(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("target version is empty")
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("version %q is not numeric (want YYYYMMDDHHMMSS): %w", raw, err)
	}
	return version, nil
}
