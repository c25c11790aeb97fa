package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo-api/internal/models"
	"todo-api/pkg/logger"

	"github.com/lib/pq"
)

const todoColumns = `id, title, description, is_completed, created_at, updated_at`

// PostgresStore keeps todos in the todos table. Insertion order comes from the seq column.
type PostgresStore struct {
	db   *sql.DB
	opts options
}

func NewPostgresStore(db *sql.DB, opts ...Option) *PostgresStore {
	return &PostgresStore{db: db, opts: buildOptions(opts)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(r rowScanner) (models.Todo, error) {
	var t models.Todo
	var desc sql.NullString
	if err := r.Scan(&t.ID, &t.Title, &desc, &t.IsCompleted, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Todo{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// Create inserts a new todo.
func (p *PostgresStore) Create(ctx context.Context, in models.TodoCreate) (models.Todo, error) {
	if err := in.Validate(); err != nil {
		return models.Todo{}, err
	}
	now := p.opts.clock()
	todo := models.Todo{
		ID:          p.opts.newID(),
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO todos (id, title, description, is_completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		todo.ID, todo.Title, nullString(todo.Description), todo.IsCompleted, todo.CreatedAt, todo.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.Todo{}, errIDCollision
		}
		logger.Error(ctx, "Repository Create failed", "error", err)
		return models.Todo{}, err
	}
	return todo.Clone(), nil
}

// Get returns one todo by id.
func (p *PostgresStore) Get(ctx context.Context, id string) (models.Todo, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, id)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, models.ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository Get failed", "error", err, "id", id)
		return models.Todo{}, err
	}
	return t, nil
}

// Update applies a partial update inside a transaction holding the row lock.
func (p *PostgresStore) Update(ctx context.Context, id string, in models.TodoUpdate) (models.Todo, error) {
	return p.mutate(ctx, id, func(t *models.Todo) error {
		if err := in.Validate(); err != nil {
			return err
		}
		in.Apply(t)
		return nil
	})
}

// Toggle flips is_completed.
func (p *PostgresStore) Toggle(ctx context.Context, id string) (models.Todo, error) {
	return p.mutate(ctx, id, func(t *models.Todo) error {
		t.IsCompleted = !t.IsCompleted
		return nil
	})
}

func (p *PostgresStore) mutate(ctx context.Context, id string, apply func(*models.Todo) error) (models.Todo, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error(ctx, "Repository begin tx failed", "error", err)
		return models.Todo{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, models.ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository select for update failed", "error", err, "id", id)
		return models.Todo{}, err
	}
	if err := apply(&t); err != nil {
		return models.Todo{}, err
	}
	t.UpdatedAt = touch(p.opts.clock(), t.UpdatedAt)

	_, err = tx.ExecContext(ctx,
		`UPDATE todos SET title = $1, description = $2, is_completed = $3, updated_at = $4 WHERE id = $5`,
		t.Title, nullString(t.Description), t.IsCompleted, t.UpdatedAt, id)
	if err != nil {
		logger.Error(ctx, "Repository Update failed", "error", err, "id", id)
		return models.Todo{}, err
	}
	if err := tx.Commit(); err != nil {
		logger.Error(ctx, "Repository commit failed", "error", err, "id", id)
		return models.Todo{}, err
	}
	return t, nil
}

// Delete removes a todo by id.
func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		logger.Error(ctx, "Repository Delete failed", "error", err, "id", id)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListAll returns all todos in insertion order.
func (p *PostgresStore) ListAll(ctx context.Context) ([]models.Todo, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+todoColumns+` FROM todos ORDER BY seq ASC`)
	if err != nil {
		logger.Error(ctx, "Repository ListAll failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	todos := []models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			logger.Error(ctx, "Repository scan todo failed", "error", err)
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
