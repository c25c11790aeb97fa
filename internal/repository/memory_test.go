package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"todo-api/internal/models"

	"github.com/stretchr/testify/require"
)

// stepClock advances by one second on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func strPtr(s string) *string { return &s }

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	s := NewMemoryStore(WithClock(clock.Now))

	created, err := s.Create(ctx, models.TodoCreate{Title: "Buy milk", Description: strPtr("2 litres")})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.IsCompleted)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)

	updated, err := s.Update(ctx, created.ID, models.TodoUpdate{Title: strPtr("Buy oat milk")})
	require.NoError(t, err)
	require.Equal(t, "Buy oat milk", updated.Title)
	require.Equal(t, "2 litres", *updated.Description)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	toggled, err := s.Toggle(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, toggled.IsCompleted)
	require.True(t, toggled.UpdatedAt.After(updated.UpdatedAt))

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStoreCreateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	cases := []models.TodoCreate{
		{Title: ""},
		{Title: strings.Repeat("x", 201)},
		{Title: "ok", Description: strPtr(strings.Repeat("d", 2001))},
	}
	for _, in := range cases {
		_, err := s.Create(ctx, in)
		var verr *models.ValidationError
		require.True(t, errors.As(err, &verr))
	}
	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestMemoryStoreUpdateIsAtomicOnValidationFailure(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	created, err := s.Create(ctx, models.TodoCreate{Title: "keep"})
	require.NoError(t, err)

	done := true
	_, err = s.Update(ctx, created.ID, models.TodoUpdate{Title: strPtr(""), IsCompleted: &done})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestMemoryStoreUpdateClearsDescriptionOnNull(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	created, err := s.Create(ctx, models.TodoCreate{Title: "t", Description: strPtr("d")})
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.ID, models.TodoUpdate{Description: models.NullableString{Set: true}})
	require.NoError(t, err)
	require.Nil(t, updated.Description)
}

func TestMemoryStoreMissingID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "nope")
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.Update(ctx, "nope", models.TodoUpdate{})
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.Toggle(ctx, "nope")
	require.ErrorIs(t, err, models.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "nope"), models.ErrNotFound)
}

func TestMemoryStoreListAllKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	var ids []string
	for i := 0; i < 5; i++ {
		td, err := s.Create(ctx, models.TodoCreate{Title: fmt.Sprintf("todo %d", i)})
		require.NoError(t, err)
		ids = append(ids, td.ID)
	}
	require.NoError(t, s.Delete(ctx, ids[2]))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, []string{ids[0], ids[1], ids[3], ids[4]}, []string{all[0].ID, all[1].ID, all[2].ID, all[3].ID})
}

func TestMemoryStoreUpdatedAtNeverGoesBackwards(t *testing.T) {
	ctx := context.Background()
	times := []time.Time{
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	i := 0
	clock := func() time.Time {
		ts := times[i]
		if i < len(times)-1 {
			i++
		}
		return ts
	}
	s := NewMemoryStore(WithClock(clock))
	created, err := s.Create(ctx, models.TodoCreate{Title: "t"})
	require.NoError(t, err)

	toggled, err := s.Toggle(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.UpdatedAt, toggled.UpdatedAt)
}

func TestMemoryStoreNeverReusesIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(WithIDGenerator(func() string { return "fixed" }))

	first, err := s.Create(ctx, models.TodoCreate{Title: "a"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, first.ID))

	_, err = s.Create(ctx, models.TodoCreate{Title: "b"})
	require.Error(t, err)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	created, err := s.Create(ctx, models.TodoCreate{Title: "t", Description: strPtr("d")})
	require.NoError(t, err)

	*created.Description = "mutated"
	created.Title = "mutated"

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "t", got.Title)
	require.Equal(t, "d", *got.Description)
}

func TestMemoryStoreConcurrentToggles(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	created, err := s.Create(ctx, models.TodoCreate{Title: "t"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Toggle(ctx, created.ID)
			_, _ = s.ListAll(ctx)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, got.IsCompleted)
}
