package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"todo-api/internal/cache"
	"todo-api/internal/models"
	"todo-api/internal/query"
	"todo-api/internal/repository"
	"todo-api/pkg/logger"
	"todo-api/pkg/metrics"

	"golang.org/x/sync/singleflight"
)

// EventPublisher receives a notification after every successful mutation.
type EventPublisher interface {
	Publish(ctx context.Context, ev *models.TodoEvent) error
}

// Service is the todo API's business layer: store mutations, cached reads,
// change events and operation metrics.
type Service struct {
	store  repository.Store
	eval   *query.Evaluator
	cache  *cache.Cache
	events EventPublisher
	now    func() time.Time

	reads singleflight.Group
	// version changes on every local mutation; reads never join a flight started before it.
	version atomic.Uint64
}

type Option func(*Service)

// WithCache enables the Redis read cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPublisher sets the event sink for mutations.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		eval:  query.NewEvaluator(store),
		now:   repository.SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, in models.TodoCreate) (models.Todo, error) {
	t, err := s.store.Create(ctx, in)
	record("create", err)
	if err != nil {
		return models.Todo{}, err
	}
	s.changed(ctx, models.EventCreated, t.ID, &t)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Todo, error) {
	t, err := s.store.Get(ctx, id)
	record("get", err)
	return t, err
}

func (s *Service) Update(ctx context.Context, id string, in models.TodoUpdate) (models.Todo, error) {
	t, err := s.store.Update(ctx, id, in)
	record("update", err)
	if err != nil {
		return models.Todo{}, err
	}
	s.changed(ctx, models.EventUpdated, t.ID, &t)
	return t, nil
}

func (s *Service) Toggle(ctx context.Context, id string) (models.Todo, error) {
	t, err := s.store.Toggle(ctx, id)
	record("toggle", err)
	if err != nil {
		return models.Todo{}, err
	}
	s.changed(ctx, models.EventToggled, t.ID, &t)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	record("delete", err)
	if err != nil {
		return err
	}
	s.changed(ctx, models.EventDeleted, id, nil)
	return nil
}

// Query returns a filtered, searched and paginated page of todos.
func (s *Service) Query(ctx context.Context, p query.Params) ([]models.Todo, error) {
	p = p.Normalize()
	out := []models.Todo{}
	err := s.read(ctx, "query?"+p.Key(), &out, func(ctx context.Context) (any, error) {
		return s.eval.Query(ctx, p)
	})
	record("query", err)
	return out, err
}

// Stats returns the collection summary.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	var out models.Stats
	err := s.read(ctx, "stats", &out, func(ctx context.Context) (any, error) {
		return s.eval.Stats(ctx)
	})
	record("stats", err)
	return out, err
}

// read serves key from the cache, or computes it once for all concurrent
// callers of the same generation and caches the result. The cache is bypassed
// while its generation is unknown.
func (s *Service) read(ctx context.Context, key string, dst any, compute func(context.Context) (any, error)) error {
	gen, cached := s.cache.Generation(ctx)
	if cached {
		if b, ok := s.cache.Get(ctx, gen, key); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return json.Unmarshal(b, dst)
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	flight := strconv.FormatUint(s.version.Load(), 10) + ":" + strconv.FormatInt(gen, 10) + ":" + key
	v, err, _ := s.reads.Do(flight, func() (any, error) {
		res, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	})
	if err != nil {
		return err
	}
	b := v.([]byte)
	if cached {
		s.cache.Set(ctx, gen, key, b)
	}
	return json.Unmarshal(b, dst)
}

// Invalidate is called for mutations made by other replicas. Reads issued
// after it never join a computation that started before it.
func (s *Service) Invalidate(context.Context) {
	s.version.Add(1)
}

func (s *Service) changed(ctx context.Context, typ, id string, t *models.Todo) {
	s.version.Add(1)
	s.cache.Invalidate(ctx)
	if s.events == nil {
		return
	}
	ev := &models.TodoEvent{Type: typ, ID: id, OccurredAt: s.now()}
	if t != nil {
		c := t.Clone()
		ev.Todo = &c
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		logger.Error(ctx, "Publish todo event failed", "error", err, "type", typ, "id", id)
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}

func record(op string, err error) {
	metrics.TodoOperations.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	var verr *models.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.As(err, &verr):
		return "invalid"
	default:
		return "error"
	}
}
