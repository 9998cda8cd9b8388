package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"receipt-diagnoser/internal/domain"
)

// InMemoryCachePath opens a private in-memory cache, used by tests.
const InMemoryCachePath = ":memory:"

var cacheMigrations = []string{
	`CREATE TABLE IF NOT EXISTS diagnosis_cache (
		fingerprint TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// SQLiteDiagnosisCache implements the DiagnosisCache interface on SQLite.
// Reports are stored as JSON keyed by input fingerprint.
type SQLiteDiagnosisCache struct {
	db *sql.DB
}

// NewSQLiteDiagnosisCache opens (or creates) the cache database at dbPath and
// applies the schema.
func NewSQLiteDiagnosisCache(ctx context.Context, dbPath string) (*SQLiteDiagnosisCache, error) {
	if dbPath == "" {
		return nil, domain.NewConfigurationError("cache.path", dbPath, "is required")
	}

	dsn := dbPath
	if dbPath != InMemoryCachePath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	c := &SQLiteDiagnosisCache{db: db}
	if err := c.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteDiagnosisCache) migrate(ctx context.Context) error {
	for i, stmt := range cacheMigrations {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("cache migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (c *SQLiteDiagnosisCache) Close() error {
	return c.db.Close()
}

// Get returns the stored report for fingerprint. A miss is (nil, false, nil).
func (c *SQLiteDiagnosisCache) Get(ctx context.Context, fingerprint string) (*domain.DiagnosisReport, bool, error) {
	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM diagnosis_cache WHERE fingerprint = ?`, fingerprint).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query diagnosis cache: %w", err)
	}

	var report domain.DiagnosisReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached diagnosis %s: %w", fingerprint, err)
	}
	return &report, true, nil
}

// Put stores report under fingerprint, replacing any previous entry.
func (c *SQLiteDiagnosisCache) Put(ctx context.Context, fingerprint string, report *domain.DiagnosisReport) error {
	if report == nil {
		return domain.NewValidationError("report", nil, "is required")
	}
	stored := *report
	stored.Cached = false
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode diagnosis: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO diagnosis_cache (fingerprint, payload, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		fingerprint, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store diagnosis: %w", err)
	}
	return nil
}

// Len reports how many diagnoses are stored.
func (c *SQLiteDiagnosisCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM diagnosis_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cached diagnoses: %w", err)
	}
	return n, nil
}

// Purge deletes entries created before cutoff and returns how many were removed.
func (c *SQLiteDiagnosisCache) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM diagnosis_cache WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge diagnosis cache: %w", err)
	}
	return res.RowsAffected()
}
