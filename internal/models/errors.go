package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound is returned when no todo with the requested id exists.
var ErrNotFound = errors.New("todo not found")

// FieldViolation describes a single failed constraint.
type FieldViolation struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

// ValidationError is returned when input fails field constraints.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-violation error, for callers outside the
// validator path (e.g. unparsable query parameters).
func NewValidationError(field, constraint, message string) *ValidationError {
	return &ValidationError{Violations: []FieldViolation{{Field: field, Constraint: constraint, Message: message}}}
}

const (
	titleRule       = "min=1,max=200"
	descriptionRule = "max=2000"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type fieldCheck struct {
	field string
	value string
	rule  string
}

func check(checks ...fieldCheck) error {
	v := validatorInstance()
	var out []FieldViolation
	for _, c := range checks {
		err := v.Var(c.value, c.rule)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			out = append(out, violation(c.field, fe))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &ValidationError{Violations: out}
}

func violation(field string, fe validator.FieldError) FieldViolation {
	constraint := fe.Tag()
	if fe.Param() != "" {
		constraint += "=" + fe.Param()
	}
	var msg string
	switch fe.Tag() {
	case "min":
		msg = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		msg = fmt.Sprintf("%s failed %s", field, constraint)
	}
	return FieldViolation{Field: field, Constraint: constraint, Message: msg}
}

// Validate checks the title and description constraints of a create request.
func (in TodoCreate) Validate() error {
	checks := []fieldCheck{{field: "title", value: in.Title, rule: titleRule}}
	if in.Description != nil {
		checks = append(checks, fieldCheck{field: "description", value: *in.Description, rule: descriptionRule})
	}
	return check(checks...)
}

// Validate checks only the fields present in the update.
func (u TodoUpdate) Validate() error {
	var checks []fieldCheck
	if u.Title != nil {
		checks = append(checks, fieldCheck{field: "title", value: *u.Title, rule: titleRule})
	}
	if u.Description.Set && u.Description.Value != nil {
		checks = append(checks, fieldCheck{field: "description", value: *u.Description.Value, rule: descriptionRule})
	}
	return check(checks...)
}
