// Package repository is the index store: pipeline runs and the extraction records they produced.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/Alisasanian/PDFsorter/internal/common"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// ErrDisabled is returned by Open when the configured driver is "none".
var ErrDisabled = errors.New("index store disabled")

// Store wraps the database handle shared by the repositories.
type Store struct {
	db     *sql.DB
	pool   *pgxpool.Pool // postgres only
	driver string
	logger *slog.Logger

	Runs    RunRepository
	Records RecordRepository
}

// Open connects to the configured database and applies pending migrations.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		s   *Store
		err error
	)
	switch cfg.Driver {
	case "", DriverSQLite:
		s, err = openSQLite(ctx, cfg, logger)
	case DriverPostgres:
		s, err = openPostgres(ctx, cfg, logger)
	case DriverNone:
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown store driver %q: %w", cfg.Driver, common.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, s.driver, cfg.DSN); err != nil {
		s.Close()
		return nil, err
	}
	s.Runs = NewRunRepository(s.db, logger)
	s.Records = NewRecordRepository(s.db, logger)
	return s, nil
}

func openSQLite(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlite path is required: %w", common.ErrInvalidInput)
	}
	logger.Info("opening index store", "driver", DriverSQLite, "path", cfg.DSN)
	db, err := openSQLiteDB(ctx, cfg.DSN)
	if err != nil {
		logger.Error("failed to open index store", "error", err)
		return nil, err
	}
	return &Store{db: db, driver: DriverSQLite, logger: logger}, nil
}

// openSQLiteDB opens a single-connection handle; pragmas are per connection.
func openSQLiteDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	pragmas := []struct{ name, stmt string }{
		{"journal_mode", "PRAGMA journal_mode=WAL"},
		{"busy_timeout", "PRAGMA busy_timeout=5000"},
		{"foreign_keys", "PRAGMA foreign_keys=ON"},
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s pragma: %w", p.name, err)
		}
	}
	return db, nil
}

func openPostgres(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Store, error) {
	logger.Info("connecting to database", "driver", DriverPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "pdfsorter"

	dialCtx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	// database/sql view of the pool, shared with the sqlite code paths
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &Store{db: db, pool: pool, driver: DriverPostgres, logger: logger}, nil
}

// Driver names the backing database.
func (s *Store) Driver() string { return s.driver }

// DB exposes the handle for ad hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

// HealthCheck pings the database within timeout.
func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration) error {
	s.logger.Debug("pinging database")
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.db.PingContext(ctx)
}

// Close closes the database connections.
func (s *Store) Close() {
	s.logger.Info("closing database connections")
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close database", "error", err)
	}
	if s.pool != nil {
		s.pool.Close()
	}
	s.logger.Info("database connections closed")
}
