package proxy

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// Store persists the validated proxy working set in SQLite so a restart
// does not begin with an empty pool. Reloading reproduces an equivalent
// working set; records are keyed by (host, port).
type Store struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS proxies (
	host         TEXT NOT NULL,
	port         INTEGER NOT NULL,
	protocol     TEXT NOT NULL DEFAULT 'http',
	latency_ms   INTEGER NOT NULL DEFAULT 0,
	validated_at DATETIME,
	source       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (host, port)
)`

// OpenStore opens (or creates) the proxy database in dataDir.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func OpenStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "proxies.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating proxies table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the given records. Existing (host, port) rows are replaced,
// so saving the same working set twice is a no-op.
func (s *Store) Save(records []*models.ProxyRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO proxies
		(host, port, protocol, latency_ms, validated_at, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(host, port) DO UPDATE SET
			protocol = excluded.protocol,
			latency_ms = excluded.latency_ms,
			validated_at = excluded.validated_at,
			source = excluded.source`)
	if err != nil {
		return fmt.Errorf("prepare save: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Host, r.Port, r.Protocol,
			r.Latency.Milliseconds(), r.ValidatedAt, r.Source); err != nil {
			return fmt.Errorf("saving %s: %w", r.Key(), err)
		}
	}
	return tx.Commit()
}

// Delete removes one record by key.
func (s *Store) Delete(host string, port int) error {
	_, err := s.db.Exec(`DELETE FROM proxies WHERE host = ? AND port = ?`, host, port)
	return err
}

// Load returns all persisted records ordered by latency ascending.
func (s *Store) Load() ([]*models.ProxyRecord, error) {
	rows, err := s.db.Query(`SELECT host, port, protocol, latency_ms, validated_at, source
		FROM proxies ORDER BY latency_ms ASC, host ASC, port ASC`)
	if err != nil {
		return nil, fmt.Errorf("loading proxies: %w", err)
	}
	defer rows.Close()

	var out []*models.ProxyRecord
	for rows.Next() {
		var r models.ProxyRecord
		var latencyMs int64
		var validatedAt sql.NullTime
		if err := rows.Scan(&r.Host, &r.Port, &r.Protocol, &latencyMs, &validatedAt, &r.Source); err != nil {
			return nil, fmt.Errorf("scanning proxy row: %w", err)
		}
		r.Latency = time.Duration(latencyMs) * time.Millisecond
		if validatedAt.Valid {
			r.ValidatedAt = validatedAt.Time
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
