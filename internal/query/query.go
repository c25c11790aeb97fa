// Package query derives filtered, searched and paginated views of the todo
// collection, plus summary statistics, without mutating the store.
package query

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"todo-api/internal/models"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// Params selects a page of todos. A nil Completed and an empty Search mean no filter.
type Params struct {
	Skip      int
	Limit     int
	Completed *bool
	Search    string
}

// Normalize clamps Skip to >= 0 and Limit to [1, MaxLimit].
func (p Params) Normalize() Params {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Key is a stable identifier of the normalized params, used as a cache key.
func (p Params) Key() string {
	p = p.Normalize()
	v := url.Values{}
	v.Set("skip", strconv.Itoa(p.Skip))
	v.Set("limit", strconv.Itoa(p.Limit))
	if p.Completed != nil {
		v.Set("completed", strconv.FormatBool(*p.Completed))
	}
	if p.Search != "" {
		v.Set("search", strings.ToLower(p.Search))
	}
	return v.Encode()
}

// Lister is the read side of the store the evaluator depends on.
type Lister interface {
	ListAll(ctx context.Context) ([]models.Todo, error)
}

// Evaluator answers list queries and stats over a store.
type Evaluator struct {
	store Lister
}

func NewEvaluator(store Lister) *Evaluator {
	return &Evaluator{store: store}
}

// Query returns the page of todos selected by p, in store order.
func (e *Evaluator) Query(ctx context.Context, p Params) ([]models.Todo, error) {
	all, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(all, p), nil
}

// Stats summarizes the whole collection.
func (e *Evaluator) Stats(ctx context.Context) (models.Stats, error) {
	all, err := e.store.ListAll(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return Summarize(all), nil
}

// Apply filters by completion, then by search text, then paginates.
// The relative order of todos is preserved. The result is never nil.
func Apply(todos []models.Todo, p Params) []models.Todo {
	p = p.Normalize()
	needle := strings.ToLower(p.Search)

	out := make([]models.Todo, 0)
	matched := 0
	for _, t := range todos {
		if p.Completed != nil && t.IsCompleted != *p.Completed {
			continue
		}
		if needle != "" && !matches(t, needle) {
			continue
		}
		matched++
		if matched <= p.Skip {
			continue
		}
		out = append(out, t)
		if len(out) == p.Limit {
			break
		}
	}
	return out
}

// matches reports whether needle (already lower-cased) occurs in the title or description.
func matches(t models.Todo, needle string) bool {
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle)
}

// Summarize counts todos and computes the completion rate as a percentage
// rounded to one decimal place (0 for an empty collection).
func Summarize(todos []models.Todo) models.Stats {
	s := models.Stats{Total: len(todos)}
	for _, t := range todos {
		if t.IsCompleted {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRate = roundTenths(float64(s.Completed) / float64(s.Total) * 100)
	}
	return s
}

// roundTenths rounds the exact binary value of x to one decimal place,
// halves to even. Scaling by 10 first would round an already-rounded product.
func roundTenths(x float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	return r
}
