package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// slowQueryThreshold marks queries worth surfacing at warn level.
const slowQueryThreshold = 250 * time.Millisecond

// TracedDB wraps a connection pool with per-query duration logging. It
// satisfies the repository's DatabasePool interface, so repositories can be
// wired against either the raw pool or the traced wrapper.
type TracedDB struct {
	Pool   *pgxpool.Pool
	logger *logrus.Logger
}

// NewTracedDB creates a traced database wrapper.
func NewTracedDB(pool *pgxpool.Pool, logger *logrus.Logger) *TracedDB {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TracedDB{Pool: pool, logger: logger}
}

func (db *TracedDB) observe(operation, sql string, start time.Time, err error) {
	duration := time.Since(start)
	fields := logrus.Fields{
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		db.logger.WithFields(fields).WithError(err).Warn("database operation failed")
		return
	}
	if duration >= slowQueryThreshold {
		fields["sql"] = sql
		db.logger.WithFields(fields).Warn("slow database operation")
		return
	}
	db.logger.WithFields(fields).Debug("database operation")
}

// Query executes a query and logs its duration.
func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	start := time.Now()
	rows, err := db.Pool.Query(ctx, sql, args...)
	db.observe("query", sql, start, err)
	return rows, err
}

// QueryRow executes a single-row query and logs its duration.
func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	start := time.Now()
	row := db.Pool.QueryRow(ctx, sql, args...)
	db.observe("query_row", sql, start, nil)
	return row
}

// Exec executes a statement and logs its duration.
func (db *TracedDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := db.Pool.Exec(ctx, sql, args...)
	db.observe("exec", sql, start, err)
	return tag, err
}

// Ping verifies the connection.
func (db *TracedDB) Ping(ctx context.Context) error {
	start := time.Now()
	err := db.Pool.Ping(ctx)
	db.observe("ping", "", start, err)
	return err
}

// Close closes the underlying pool.
func (db *TracedDB) Close() {
	db.Pool.Close()
}
