package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is a named check a candidate snapshot must satisfy before it
// becomes visible. Required validators block the write when they fail;
// non-required ones only produce a logged warning.
type Validator[S any] struct {
	ID       string
	Check    func(S) error
	Required bool
}

// Predicate builds a Validator from a boolean predicate and a fixed
// failure message.
func Predicate[S any](id, message string, fn func(S) bool, required bool) Validator[S] {
	return Validator[S]{
		ID: id,
		Check: func(s S) error {
			if !fn(s) {
				return errors.New(message)
			}
			return nil
		},
		Required: required,
	}
}

// StructValidator builds a required Validator that checks the snapshot's
// `validate` struct tags (go-playground/validator semantics).
func StructValidator[S any](id string) Validator[S] {
	v := validator.New(validator.WithRequiredStructEnabled())
	return Validator[S]{
		ID: id,
		Check: func(s S) error {
			return v.Struct(s)
		},
		Required: true,
	}
}

// Failure records one validator rejecting a candidate snapshot.
type Failure struct {
	ValidatorID string
	Message     string
}

// ValidationError is returned when at least one required validator
// rejected a candidate snapshot. It is a result, not a panic: the prior
// snapshot stays installed.
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.ValidatorID, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Messages returns the failing validator messages in evaluation order.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Message)
	}
	return out
}
