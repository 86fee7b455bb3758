package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hpungsan/wortal/internal/config"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// FileName is the sandbox database file inside the base directory.
const FileName = "wortal.db"

// Init initializes the SQLite database at baseDir/wortal.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.wortal.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: players, social graph, contexts, session, player data
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS players (
		  id          TEXT PRIMARY KEY,
		  name        TEXT NOT NULL,
		  photo       TEXT NOT NULL DEFAULT '',
		  has_played  INTEGER NOT NULL DEFAULT 0,
		  created_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS connections (
		  player_id   TEXT NOT NULL REFERENCES players(id),
		  friend_id   TEXT NOT NULL REFERENCES players(id),
		  created_at  INTEGER NOT NULL,
		  PRIMARY KEY (player_id, friend_id)
		);

		CREATE TABLE IF NOT EXISTS contexts (
		  id          TEXT PRIMARY KEY,
		  type        TEXT NOT NULL,
		  created_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS context_members (
		  context_id  TEXT NOT NULL REFERENCES contexts(id),
		  player_id   TEXT NOT NULL REFERENCES players(id),
		  joined_at   INTEGER NOT NULL,
		  PRIMARY KEY (context_id, player_id)
		);

		CREATE TABLE IF NOT EXISTS session (
		  id          INTEGER PRIMARY KEY CHECK (id = 1),
		  player_id   TEXT NOT NULL REFERENCES players(id),
		  context_id  TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS player_data (
		  player_id   TEXT NOT NULL REFERENCES players(id),
		  key         TEXT NOT NULL,
		  value_json  TEXT NOT NULL,
		  updated_at  INTEGER NOT NULL,
		  PRIMARY KEY (player_id, key)
		);

		CREATE TABLE IF NOT EXISTS messages (
		  id           TEXT PRIMARY KEY,
		  context_id   TEXT NOT NULL DEFAULT '',
		  sender_id    TEXT NOT NULL,
		  kind         TEXT NOT NULL,
		  payload_json TEXT NOT NULL,
		  created_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_context_created
		ON messages(context_id, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Migration 1 -> 2: leaderboards
	if version < 2 {
		schema := `
		CREATE TABLE IF NOT EXISTS leaderboards (
		  name        TEXT PRIMARY KEY,
		  context_id  TEXT NOT NULL DEFAULT '',
		  created_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS leaderboard_entries (
		  leaderboard  TEXT NOT NULL REFERENCES leaderboards(name),
		  player_id    TEXT NOT NULL REFERENCES players(id),
		  score        INTEGER NOT NULL,
		  details      TEXT NOT NULL DEFAULT '',
		  timestamp    INTEGER NOT NULL,
		  PRIMARY KEY (leaderboard, player_id)
		);

		CREATE INDEX IF NOT EXISTS idx_entries_rank
		ON leaderboard_entries(leaderboard, score DESC, timestamp ASC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 2 failed: %w", err)
		}
		if err := SetUserVersion(db, 2); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
