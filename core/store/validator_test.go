package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type taggedState struct {
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age" validate:"gte=0,lte=130"`
}

func TestStructValidator(t *testing.T) {
	v := StructValidator[taggedState]("struct-tags")
	require.True(t, v.Required)

	require.NoError(t, v.Check(taggedState{Email: "a@b.co", Age: 30}))
	require.Error(t, v.Check(taggedState{Email: "not-an-email", Age: 30}))
	require.Error(t, v.Check(taggedState{Email: "a@b.co", Age: 200}))
}

func TestStructValidator_InStore(t *testing.T) {
	s := New(Config[taggedState]{
		Initial:    taggedState{Email: "a@b.co"},
		Validators: []Validator[taggedState]{StructValidator[taggedState]("struct-tags")},
	})
	t.Cleanup(s.Close)

	require.Error(t, s.SetState(taggedState{Email: "nope"}))
	require.NoError(t, s.SetState(taggedState{Email: "x@y.dev", Age: 1}))
	require.Equal(t, "x@y.dev", s.GetState().Email)
}

func TestValidationError_Messages(t *testing.T) {
	err := &ValidationError{Failures: []Failure{
		{ValidatorID: "a", Message: "first"},
		{ValidatorID: "b", Message: "second"},
	}}

	require.Equal(t, []string{"first", "second"}, err.Messages())
	require.Contains(t, err.Error(), "a: first")
	require.Contains(t, err.Error(), "b: second")
}

func TestPredicate(t *testing.T) {
	v := Predicate[int]("positive", "must be positive", func(n int) bool { return n > 0 }, true)

	require.NoError(t, v.Check(1))
	err := v.Check(-1)
	require.Error(t, err)
	require.Equal(t, "must be positive", err.Error())
}
