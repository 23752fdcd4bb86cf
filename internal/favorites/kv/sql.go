package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQL is a Store backed by a single blobs table. Sqlite covers the
// embedded single-process deployment; postgres covers shared ones.
type SQL struct {
	db     *sql.DB
	driver string
	sql    sq.StatementBuilderType
}

var _ Store = (*SQL)(nil)

func OpenSQL(ctx context.Context, driver, dsn string, autoMigrate bool, migrationsDir string) (*SQL, error) {
	driver = normalizeDriver(driver)
	if dsn == "" {
		return nil, fmt.Errorf("dsn is empty")
	}

	db, err := sql.Open(driverName(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if autoMigrate {
		switch driver {
		case "postgres":
			if migrationsDir == "" {
				migrationsDir = "migrations"
			}
			if err := goose.SetDialect("postgres"); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("set goose dialect: %w", err)
			}
			if err := goose.Up(db, migrationsDir); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		case "sqlite":
			if err := initSQLiteSchema(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("init sqlite schema: %w", err)
			}
		default:
			_ = db.Close()
			return nil, fmt.Errorf("unsupported driver %q", driver)
		}
	}

	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == "postgres" {
		placeholder = sq.Dollar
	}

	return &SQL{
		db:     db,
		driver: driver,
		sql:    sq.StatementBuilder.PlaceholderFormat(placeholder),
	}, nil
}

func normalizeDriver(driver string) string {
	d := strings.ToLower(strings.TrimSpace(driver))
	switch d {
	case "postgres", "pgx":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return d
	}
}

func driverName(driver string) string {
	if driver == "postgres" {
		return "pgx"
	}
	return driver
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	q := s.sql.Select("value").From("kv_blobs").Where(sq.Eq{"key": key})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var value []byte
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return value, nil
}

func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	q := s.sql.Insert("kv_blobs").
		Columns("key", "value", "updated_at").
		Values(key, value, nowExpr(s.driver)).
		Suffix("ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("set blob: %w", err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	q := s.sql.Delete("kv_blobs").Where(sq.Eq{"key": key})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQL) DB() *sql.DB {
	return s.db
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS kv_blobs (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func nowExpr(driver string) any {
	if driver == "postgres" {
		return sq.Expr("NOW()")
	}
	return sq.Expr("CURRENT_TIMESTAMP")
}
