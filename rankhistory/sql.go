package rankhistory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Connection pool defaults
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS rank_history (
	id         BIGSERIAL PRIMARY KEY,
	domain     TEXT NOT NULL,
	entry_date TEXT NOT NULL,
	ranks      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_rank_history_domain_date ON rank_history (domain, entry_date);`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rank_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	domain     TEXT NOT NULL,
	entry_date TEXT NOT NULL,
	ranks      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_rank_history_domain_date ON rank_history (domain, entry_date);`

// SQLStore persists entries in a rank_history table. Dates are stored as
// YYYY-MM-DD text so range filters compare lexically on both dialects.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open connection
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Open connects with driver ("postgres" or "sqlite3"), applies pool
// settings and verifies the connection.
func Open(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported rank history driver %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// a single writer avoids "database is locked" under concurrent appends
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(DefaultMaxOpenConns)
		db.SetMaxIdleConns(DefaultMaxIdleConns)
	}
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return NewSQLStore(db), nil
}

// Migrate creates the table and index if they do not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.db.DriverName() == "sqlite3" {
		schema = sqliteSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate rank_history: %w", err)
	}
	return nil
}

func (s *SQLStore) Append(ctx context.Context, domain string, e Entry) error {
	ranks, err := json.Marshal(e.Ranks)
	if err != nil {
		return fmt.Errorf("encode ranks: %w", err)
	}
	query := s.db.Rebind(`INSERT INTO rank_history (domain, entry_date, ranks) VALUES (?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, domain, Day(e.Date).Format(DateLayout), string(ranks)); err != nil {
		return fmt.Errorf("insert rank history: %w", err)
	}
	return nil
}

type entryRow struct {
	EntryDate string `db:"entry_date"`
	Ranks     string `db:"ranks"`
}

func (s *SQLStore) Entries(ctx context.Context, domain string, from, to time.Time) ([]Entry, error) {
	query := s.db.Rebind(`
		SELECT entry_date, ranks
		FROM rank_history
		WHERE domain = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date ASC, id ASC`)

	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows, query, domain, Day(from).Format(DateLayout), Day(to).Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("select rank history: %w", err)
	}

	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		date, err := time.Parse(DateLayout, r.EntryDate)
		if err != nil {
			return nil, fmt.Errorf("decode entry date %q: %w", r.EntryDate, err)
		}
		var ranks map[string]int
		if err := json.Unmarshal([]byte(r.Ranks), &ranks); err != nil {
			return nil, fmt.Errorf("decode ranks: %w", err)
		}
		out = append(out, Entry{Date: date, Ranks: ranks})
	}
	return out, nil
}

// Close closes the underlying connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
