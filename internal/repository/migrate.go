package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Alisasanian/PDFsorter/db"
)

// Migrate applies pending migrations for driver. The migrator owns and closes its own
// connection, so the store handle is never shared with it.
func Migrate(ctx context.Context, driver, dsn string) error {
	conn, closePool, err := migrationConn(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer closePool()

	var inst database.Driver
	switch driver {
	case DriverPostgres:
		inst, err = pgxmigrate.WithInstance(conn, &pgxmigrate.Config{})
	default:
		inst, err = sqlite.WithInstance(conn, &sqlite.Config{})
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(db.Migrations, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, inst)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func migrationConn(ctx context.Context, driver, dsn string) (*sql.DB, func(), error) {
	if driver != DriverPostgres {
		conn, err := openSQLiteDB(ctx, dsn)
		return conn, func() {}, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return stdlib.OpenDBFromPool(pool), pool.Close, nil
}
