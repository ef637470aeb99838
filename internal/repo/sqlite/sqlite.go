package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hamed0406/apimonitor/internal/domain"
	"github.com/hamed0406/apimonitor/internal/repo"
)

var _ repo.ResultStore = (*Store)(nil)

const driverName = "sqlite3"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS monitoring_results (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	url              TEXT    NOT NULL,
	status_code      INTEGER NULL,
	response_time_ms REAL    NULL,
	is_healthy       INTEGER NOT NULL DEFAULT 0,
	error_message    TEXT    NULL,
	created_at       TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_monitoring_results_url ON monitoring_results(url);
`

const selectCols = `id, url, status_code, response_time_ms, is_healthy, error_message, created_at`

// created_at is stamped inside the INSERT so it is ordered the same way as
// the AUTOINCREMENT id under SQLite's single writer.
const insertSQL = `
INSERT INTO monitoring_results (url, status_code, response_time_ms, is_healthy, error_message, created_at)
VALUES (?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
RETURNING id, created_at`

type config struct {
	path         string
	maxOpenConns int
	log          *zap.Logger
}

// Option configures Open.
type Option func(*config)

// WithPath sets the database file. Use ":memory:" for an in-memory database.
func WithPath(path string) Option {
	return func(c *config) { c.path = path }
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) Option {
	return func(c *config) { c.maxOpenConns = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// Store is the SQLite-backed ResultStore.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger
}

// Open connects to the database file (creating it and its parent directory
// if needed) and creates the schema if absent.
func Open(ctx context.Context, opts ...Option) (*Store, error) {
	cfg := &config{path: "monitoring.db", log: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	var dsn string
	if cfg.path == ":memory:" {
		// every connection would get its own empty database
		cfg.maxOpenConns = 1
		dsn = "file::memory:?_busy_timeout=5000"
	} else {
		if dir := filepath.Dir(cfg.path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("ensure parent directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", cfg.path)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.maxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.maxOpenConns)
	}

	s, err := New(ctx, db, cfg.log)
	if err != nil {
		db.Close()
		return nil, err
	}
	cfg.log.Info("store_open", zap.String("driver", driverName), zap.String("path", cfg.path))
	return s, nil
}

// New wraps an existing connection pool and applies the schema.
func New(ctx context.Context, db *sqlx.DB, log *zap.Logger) (*Store, error) {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// withConn runs fn on a connection held for the duration of the call only.
func (s *Store) withConn(ctx context.Context, fn func(*sqlx.Conn) error) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

func (s *Store) Insert(ctx context.Context, r *domain.ProbeResult) error {
	return s.withConn(ctx, func(c *sqlx.Conn) error {
		var (
			id        int64
			createdAt string
		)
		err := c.QueryRowxContext(ctx, insertSQL,
			r.URL, r.StatusCode, r.ResponseTimeMS, r.IsHealthy, r.ErrorMessage,
		).Scan(&id, &createdAt)
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		ts, err := parseTime(createdAt)
		if err != nil {
			return err
		}
		r.ID, r.CreatedAt = id, ts
		return nil
	})
}

func (s *Store) GetByID(ctx context.Context, id int64) (*domain.ProbeResult, error) {
	var out *domain.ProbeResult
	err := s.withConn(ctx, func(c *sqlx.Conn) error {
		var rw row
		err := c.GetContext(ctx, &rw, `SELECT `+selectCols+` FROM monitoring_results WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return repo.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get result %d: %w", id, err)
		}
		r, err := rw.toDomain()
		if err != nil {
			return err
		}
		out = &r
		return nil
	})
	return out, err
}

func (s *Store) GetPage(ctx context.Context, f repo.Filter, offset, limit int) ([]domain.ProbeResult, error) {
	where, args := f.Where("instr")
	q := `SELECT ` + selectCols + ` FROM monitoring_results` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	out := make([]domain.ProbeResult, 0, limit)
	err := s.withConn(ctx, func(c *sqlx.Conn) error {
		var rows []row
		if err := c.SelectContext(ctx, &rows, q, args...); err != nil {
			return fmt.Errorf("list results: %w", err)
		}
		for _, rw := range rows {
			r, err := rw.toDomain()
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (s *Store) Count(ctx context.Context, f repo.Filter) (int, error) {
	where, args := f.Where("instr")
	var n int
	err := s.withConn(ctx, func(c *sqlx.Conn) error {
		if err := c.GetContext(ctx, &n, `SELECT COUNT(*) FROM monitoring_results`+where, args...); err != nil {
			return fmt.Errorf("count results: %w", err)
		}
		return nil
	})
	return n, err
}

func (s *Store) Aggregates(ctx context.Context) (domain.Aggregates, error) {
	var a domain.Aggregates
	err := s.withConn(ctx, func(c *sqlx.Conn) error {
		var agg struct {
			Total   int             `db:"total"`
			Healthy int             `db:"healthy"`
			Avg     sql.NullFloat64 `db:"avg_ms"`
			Min     sql.NullFloat64 `db:"min_ms"`
			Max     sql.NullFloat64 `db:"max_ms"`
		}
		err := c.GetContext(ctx, &agg, `
SELECT COUNT(*) AS total,
       COALESCE(SUM(CASE WHEN is_healthy THEN 1 ELSE 0 END), 0) AS healthy,
       AVG(response_time_ms) AS avg_ms,
       MIN(response_time_ms) AS min_ms,
       MAX(response_time_ms) AS max_ms
  FROM monitoring_results`)
		if err != nil {
			return fmt.Errorf("aggregate results: %w", err)
		}
		a.Total, a.Healthy = agg.Total, agg.Healthy
		a.AvgMS, a.MinMS, a.MaxMS = floatPtr(agg.Avg), floatPtr(agg.Min), floatPtr(agg.Max)

		var top string
		err = c.GetContext(ctx, &top, `
SELECT url FROM monitoring_results
 GROUP BY url
 ORDER BY COUNT(*) DESC, MIN(id) ASC
 LIMIT 1`)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("most monitored url: %w", err)
		default:
			a.TopURL = &top
		}
		return nil
	})
	return a, err
}

type row struct {
	ID             int64           `db:"id"`
	URL            string          `db:"url"`
	StatusCode     sql.NullInt64   `db:"status_code"`
	ResponseTimeMS sql.NullFloat64 `db:"response_time_ms"`
	IsHealthy      bool            `db:"is_healthy"`
	ErrorMessage   sql.NullString  `db:"error_message"`
	CreatedAt      string          `db:"created_at"`
}

func (rw row) toDomain() (domain.ProbeResult, error) {
	ts, err := parseTime(rw.CreatedAt)
	if err != nil {
		return domain.ProbeResult{}, err
	}
	r := domain.ProbeResult{
		ID:             rw.ID,
		URL:            rw.URL,
		ResponseTimeMS: floatPtr(rw.ResponseTimeMS),
		IsHealthy:      rw.IsHealthy,
		CreatedAt:      ts,
	}
	if rw.StatusCode.Valid {
		v := int(rw.StatusCode.Int64)
		r.StatusCode = &v
	}
	if rw.ErrorMessage.Valid {
		v := rw.ErrorMessage.String
		r.ErrorMessage = &v
	}
	return r, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t.UTC(), nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
