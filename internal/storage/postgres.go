package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	getQuery    = "SELECT value FROM kv_store WHERE key = $1"
	upsertQuery = "INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, $3) " +
		"ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at"
	deleteQuery = "DELETE FROM kv_store WHERE key = $1"
	keysQuery   = "SELECT key FROM kv_store ORDER BY key"
)

type PgStore struct {
	conn *sql.DB
}

func NewPgStore(dsn string) (*PgStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &PgStore{conn: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("new migrate: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func (s *PgStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, getQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

func (s *PgStore) Set(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx, upsertQuery, key, value, time.Now().UTC())
	return err
}

func (s *PgStore) Delete(ctx context.Context, key string) error {
	_, err := s.conn.ExecContext(ctx, deleteQuery, key)
	return err
}

func (s *PgStore) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, keysQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return keys, nil
}

func (s *PgStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
