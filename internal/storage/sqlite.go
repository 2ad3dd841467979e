package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/pauljones0/property-scanner/internal/models"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// Fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps seen listings and favorites in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// One connection serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	version, err := runMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("SQLite store ready", "path", path, "schema_version", version)

	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) (uint, error) {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadAll returns every seen record keyed by models.ListingKey.
func (s *SQLiteStore) LoadAll(ctx context.Context) (map[string]models.SeenRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, listing_id, first_seen FROM seen_listings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen listings: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]models.SeenRecord)
	for rows.Next() {
		var rec models.SeenRecord
		var source, firstSeen string
		if err := rows.Scan(&source, &rec.ID, &firstSeen); err != nil {
			return nil, fmt.Errorf("failed to scan seen listing: %w", err)
		}
		rec.Source = models.Source(source)
		rec.FirstSeen, err = time.Parse(timeLayout, firstSeen)
		if err != nil {
			return nil, fmt.Errorf("invalid first_seen %q for %s:%s: %w", firstSeen, source, rec.ID, err)
		}
		seen[models.ListingKey(rec.Source, rec.ID)] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seen listings: %w", err)
	}
	return seen, nil
}

// Contains reports whether source:id has been seen.
func (s *SQLiteStore) Contains(ctx context.Context, source models.Source, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM seen_listings WHERE source = ? AND listing_id = ?`, string(source), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check seen listing %s:%s: %w", source, id, err)
	}
	return true, nil
}

// MarkSeen records source:id. Marking an existing key keeps the original
// first-seen time and adds no row.
func (s *SQLiteStore) MarkSeen(ctx context.Context, source models.Source, id string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_listings (source, listing_id, first_seen) VALUES (?, ?, ?)
		 ON CONFLICT (source, listing_id) DO NOTHING`,
		string(source), id, ts.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to mark %s:%s seen: %w", source, id, err)
	}
	return nil
}

// Count returns the number of seen records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count seen listings: %w", err)
	}
	return n, nil
}
