package state

import (
	"fmt"
	"reflect"

	"github.com/codewandler/statebus-go/internal/codec"
)

// Cloner is implemented by snapshot types that know how to produce an
// isolated structural copy of themselves. Implementing it is the
// supported way to carry non-plain-data fields (keyed collections,
// custom time types) through transactional copying without corruption.
type Cloner[S any] interface {
	Clone() S
}

// Clone returns an isolated copy of snap. Types implementing [Cloner]
// are cloned structurally; everything else goes through a JSON
// round-trip, which is only loss-free for plain-data values.
func Clone[S any](snap S) (S, error) {
	if c, ok := any(snap).(Cloner[S]); ok {
		return c.Clone(), nil
	}
	out, err := codec.Roundtrip(codec.JSONCodec{}, snap)
	if err != nil {
		return out, fmt.Errorf("clone snapshot: %w", err)
	}
	return out, nil
}

// isNil reports whether v is nil either directly or through a nil-able
// kind (pointer, map, slice, interface).
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
