package repository

import (
	"context"
	"time"

	"todo-api/internal/models"

	"github.com/google/uuid"
)

// Store is the authoritative keeper of todo records.
// ListAll must return records in insertion order.
type Store interface {
	Create(ctx context.Context, in models.TodoCreate) (models.Todo, error)
	Get(ctx context.Context, id string) (models.Todo, error)
	Update(ctx context.Context, id string, in models.TodoUpdate) (models.Todo, error)
	Toggle(ctx context.Context, id string) (models.Todo, error)
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]models.Todo, error)
}

// Clock returns the current time.
type Clock func() time.Time

// SystemClock is the default clock (UTC wall time).
func SystemClock() time.Time {
	return time.Now().UTC()
}

type options struct {
	clock Clock
	newID func() string
}

// Option configures a store.
type Option func(*options)

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(f func() string) Option {
	return func(o *options) { o.newID = f }
}

func buildOptions(opts []Option) options {
	o := options{clock: SystemClock, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// touch returns now, or prev when the clock went backwards, so updated_at never decreases.
func touch(now, prev time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
