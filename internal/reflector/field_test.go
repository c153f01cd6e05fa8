package reflector

import (
	"errors"
	"testing"
)

type sample struct {
	Name    string `json:"name"`
	Count   int    `json:"count,omitempty"`
	Metrics map[string]int
	hidden  string
}

func TestSetField_ByName(t *testing.T) {
	s := sample{}
	if err := SetField(&s, "Name", "hello"); err != nil {
		t.Fatal(err)
	}
	if s.Name != "hello" {
		t.Errorf("Name = %q", s.Name)
	}
}

func TestSetField_ByJSONTag(t *testing.T) {
	s := sample{}
	if err := SetField(&s, "count", 7); err != nil {
		t.Fatal(err)
	}
	if s.Count != 7 {
		t.Errorf("Count = %d", s.Count)
	}
}

func TestSetField_NilToNilable(t *testing.T) {
	s := sample{Metrics: map[string]int{"a": 1}}
	if err := SetField(&s, "Metrics", nil); err != nil {
		t.Fatal(err)
	}
	if s.Metrics != nil {
		t.Error("expected nil map")
	}
}

func TestSetField_NilToScalarFails(t *testing.T) {
	s := sample{Count: 3}
	err := SetField(&s, "Count", nil)
	if !errors.Is(err, ErrNotAssignable) {
		t.Errorf("err = %v, want ErrNotAssignable", err)
	}
	if s.Count != 3 {
		t.Error("field changed on failed set")
	}
}

func TestSetField_Unknown(t *testing.T) {
	s := sample{}
	if err := SetField(&s, "nope", 1); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("err = %v, want ErrFieldNotFound", err)
	}
}

func TestSetField_WrongType(t *testing.T) {
	s := sample{}
	if err := SetField(&s, "Name", 42); !errors.Is(err, ErrNotAssignable) {
		t.Errorf("err = %v, want ErrNotAssignable", err)
	}
}

func TestSetField_NumericConversion(t *testing.T) {
	s := sample{}
	if err := SetField(&s, "Count", int64(5)); err != nil {
		t.Fatal(err)
	}
	if s.Count != 5 {
		t.Errorf("Count = %d", s.Count)
	}
}

func TestSetField_NonPointer(t *testing.T) {
	s := sample{}
	if err := SetField(s, "Name", "x"); !errors.Is(err, ErrNotAddressable) {
		t.Errorf("err = %v, want ErrNotAddressable", err)
	}
}

func TestSetField_Unexported(t *testing.T) {
	s := sample{}
	if err := SetField(&s, "hidden", "x"); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("err = %v, want ErrFieldNotFound", err)
	}
}
