package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Todo represents a todo item.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no memory with t.
func (t Todo) Clone() Todo {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	return t
}

// TodoCreate is the input of a create operation.
type TodoCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// TodoUpdate is a partial update: only fields that are present are applied.
type TodoUpdate struct {
	Title       *string        `json:"title"`
	Description NullableString `json:"description"`
	IsCompleted *bool          `json:"is_completed"`
}

// Apply writes the present fields of u onto t. It does not validate or touch timestamps.
func (u TodoUpdate) Apply(t *Todo) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description.Set {
		if u.Description.Value == nil {
			t.Description = nil
		} else {
			d := *u.Description.Value
			t.Description = &d
		}
	}
	if u.IsCompleted != nil {
		t.IsCompleted = *u.IsCompleted
	}
}

// NullableString tells an absent JSON field (Set == false) apart from an
// explicit null (Set == true, Value == nil).
type NullableString struct {
	Set   bool
	Value *string
}

// NewNullableString returns a present, non-null value.
func NewNullableString(s string) NullableString {
	return NullableString{Set: true, Value: &s}
}

func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// Stats is the summary returned by GET /todos/stats/summary.
type Stats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completion_rate"`
}

// Event types published after a successful mutation.
const (
	EventCreated = "todo.created"
	EventUpdated = "todo.updated"
	EventToggled = "todo.toggled"
	EventDeleted = "todo.deleted"
)

// TodoEvent is the message payload for Kafka. Todo is nil for deletions.
type TodoEvent struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	Todo       *Todo     `json:"todo,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
