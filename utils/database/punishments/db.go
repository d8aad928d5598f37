package punishments

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type migration struct {
	version    int
	statements []string
}

// migrations are applied in order; each version is recorded in schema_version once done.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS punishments (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				punishment_type INTEGER NOT NULL,
				target_id TEXT NOT NULL,
				punisher_id TEXT NOT NULL,
				reason TEXT,
				lifted INTEGER NOT NULL DEFAULT 0,
				lifted_by_id TEXT,
				created_at INTEGER NOT NULL,
				duration INTEGER,
				silent INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_punishments_target ON punishments (target_id, created_at)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS user_names (
				user_id TEXT NOT NULL,
				name TEXT NOT NULL,
				first_seen INTEGER NOT NULL,
				PRIMARY KEY (user_id, name)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_name ON users (name COLLATE NOCASE)`,
		},
	},
	{
		version: 3,
		statements: []string{
			`ALTER TABLE punishments ADD COLUMN lifted_at INTEGER`,
		},
	},
}

// Init connects to the punishment database, bounds its connection pool and brings the
// schema up to date.
func Init(dbPath string, maxConns int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}

	if err := Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var current int
	if err := db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		log.Printf("Migrating punishment database to version %d...", m.version)
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to execute migration %d statement %q: %w", m.version, stmt, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
