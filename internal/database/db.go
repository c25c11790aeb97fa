package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"todo-api/internal/config"
	"todo-api/pkg/logger"

	_ "github.com/lib/pq"
)

var (
	pool *sql.DB
	once sync.Once
)

// DB returns the global database connection pool (initialized on first use).
// It returns nil when DATABASE_URL is not set or the pool cannot be opened.
func DB(ctx context.Context) *sql.DB {
	once.Do(func() {
		cfg := config.Get()
		if cfg.DatabaseURL == "" {
			logger.Error(ctx, "DATABASE_URL is not set")
			return
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error(ctx, "Failed to open database", "error", err)
			return
		}
		db.SetMaxOpenConns(cfg.DBPoolSize)
		db.SetMaxIdleConns(cfg.DBPoolSize / 2)
		pool = db
		logger.Info(ctx, "Database pool initialized", "max_open", cfg.DBPoolSize)
	})
	return pool
}

const schema = `
CREATE TABLE IF NOT EXISTS todos (
	seq          BIGSERIAL,
	id           TEXT PRIMARY KEY,
	title        VARCHAR(200) NOT NULL,
	description  VARCHAR(2000),
	is_completed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	CHECK (created_at <= updated_at)
);
CREATE UNIQUE INDEX IF NOT EXISTS todos_seq_idx ON todos (seq);
`

// MigrateOrCreateSchema creates the todos table and its ordering index if they do not exist.
func MigrateOrCreateSchema(ctx context.Context) error {
	db := DB(ctx)
	if db == nil {
		return errors.New("database not initialized")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	logger.Info(ctx, "Database schema ensured")
	return nil
}
