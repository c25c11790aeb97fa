package repository

import (
	"context"
	"errors"
	"sync"

	"todo-api/internal/models"
)

const maxIDAttempts = 3

var errIDCollision = errors.New("could not allocate a unique todo id")

// MemoryStore keeps todos in process memory. Writers hold the exclusive lock
// for the whole validate→apply→timestamp step; readers take the shared lock.
type MemoryStore struct {
	mu    sync.RWMutex
	todos map[string]*models.Todo
	order []string
	// issued holds every id ever handed out, deleted ones included.
	issued map[string]struct{}
	opts   options
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		todos:  make(map[string]*models.Todo),
		issued: make(map[string]struct{}),
		opts:   buildOptions(opts),
	}
}

func (m *MemoryStore) Create(_ context.Context, in models.TodoCreate) (models.Todo, error) {
	if err := in.Validate(); err != nil {
		return models.Todo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := ""
	for i := 0; i < maxIDAttempts; i++ {
		candidate := m.opts.newID()
		if _, taken := m.issued[candidate]; !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		return models.Todo{}, errIDCollision
	}
	now := m.opts.clock()
	todo := models.Todo{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}.Clone()
	m.issued[id] = struct{}{}
	m.todos[id] = &todo
	m.order = append(m.order, id)
	return todo.Clone(), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (models.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.todos[id]
	if !ok {
		return models.Todo{}, models.ErrNotFound
	}
	return t.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, in models.TodoUpdate) (models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.todos[id]
	if !ok {
		return models.Todo{}, models.ErrNotFound
	}
	if err := in.Validate(); err != nil {
		return models.Todo{}, err
	}
	in.Apply(t)
	t.UpdatedAt = touch(m.opts.clock(), t.UpdatedAt)
	return t.Clone(), nil
}

func (m *MemoryStore) Toggle(_ context.Context, id string) (models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.todos[id]
	if !ok {
		return models.Todo{}, models.ErrNotFound
	}
	t.IsCompleted = !t.IsCompleted
	t.UpdatedAt = touch(m.opts.clock(), t.UpdatedAt)
	return t.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.todos[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.todos, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListAll returns a snapshot of every todo in insertion order.
func (m *MemoryStore) ListAll(_ context.Context) ([]models.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Todo, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.todos[id].Clone())
	}
	return out, nil
}
