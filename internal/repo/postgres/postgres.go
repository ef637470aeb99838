package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/hamed0406/apimonitor/internal/domain"
	"github.com/hamed0406/apimonitor/internal/repo"
)

var _ repo.ResultStore = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS monitoring_results (
  id               BIGSERIAL PRIMARY KEY,
  url              TEXT NOT NULL,
  status_code      INTEGER NULL,
  response_time_ms DOUBLE PRECISION NULL,
  is_healthy       BOOLEAN NOT NULL DEFAULT FALSE,
  error_message    TEXT NULL,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);

CREATE INDEX IF NOT EXISTS idx_monitoring_results_url ON monitoring_results (url);
`

const selectCols = `id, url, status_code, response_time_ms, is_healthy, error_message, created_at`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info("store_open", zap.String("driver", "pgx"))
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// withConn runs fn on a pooled connection that is released when fn returns.
func (s *Store) withConn(ctx context.Context, fn func(*pgxpool.Conn) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}

func (s *Store) Insert(ctx context.Context, r *domain.ProbeResult) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		err := c.QueryRow(ctx,
			`INSERT INTO monitoring_results
			   (url, status_code, response_time_ms, is_healthy, error_message)
			 VALUES
			   ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			r.URL, r.StatusCode, r.ResponseTimeMS, r.IsHealthy, r.ErrorMessage,
		).Scan(&r.ID, &r.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		return nil
	})
}

func (s *Store) GetByID(ctx context.Context, id int64) (*domain.ProbeResult, error) {
	var out *domain.ProbeResult
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		row := c.QueryRow(ctx, `SELECT `+selectCols+` FROM monitoring_results WHERE id = $1`, id)
		r, err := scanResult(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get result %d: %w", id, err)
		}
		out = &r
		return nil
	})
	return out, err
}

func (s *Store) GetPage(ctx context.Context, f repo.Filter, offset, limit int) ([]domain.ProbeResult, error) {
	where, args := f.Where("strpos")
	q := sqlx.Rebind(sqlx.DOLLAR,
		`SELECT `+selectCols+` FROM monitoring_results`+where+` ORDER BY id DESC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	out := make([]domain.ProbeResult, 0, limit)
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		rows, err := c.Query(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("list results: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanResult(rows)
			if err != nil {
				return fmt.Errorf("scan result: %w", err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) Count(ctx context.Context, f repo.Filter) (int, error) {
	where, args := f.Where("strpos")
	q := sqlx.Rebind(sqlx.DOLLAR, `SELECT COUNT(*) FROM monitoring_results`+where)
	var n int
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		if err := c.QueryRow(ctx, q, args...).Scan(&n); err != nil {
			return fmt.Errorf("count results: %w", err)
		}
		return nil
	})
	return n, err
}

func (s *Store) Aggregates(ctx context.Context) (domain.Aggregates, error) {
	var a domain.Aggregates
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		err := c.QueryRow(ctx, `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE is_healthy),
       AVG(response_time_ms),
       MIN(response_time_ms),
       MAX(response_time_ms)
  FROM monitoring_results`).Scan(&a.Total, &a.Healthy, &a.AvgMS, &a.MinMS, &a.MaxMS)
		if err != nil {
			return fmt.Errorf("aggregate results: %w", err)
		}

		var top string
		err = c.QueryRow(ctx, `
SELECT url FROM monitoring_results
 GROUP BY url
 ORDER BY COUNT(*) DESC, MIN(id) ASC
 LIMIT 1`).Scan(&top)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return fmt.Errorf("most monitored url: %w", err)
		default:
			a.TopURL = &top
		}
		return nil
	})
	return a, err
}

func scanResult(row pgx.Row) (domain.ProbeResult, error) {
	var (
		r      domain.ProbeResult
		status *int32
	)
	if err := row.Scan(&r.ID, &r.URL, &status, &r.ResponseTimeMS, &r.IsHealthy, &r.ErrorMessage, &r.CreatedAt); err != nil {
		return domain.ProbeResult{}, err
	}
	if status != nil {
		v := int(*status)
		r.StatusCode = &v
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}
