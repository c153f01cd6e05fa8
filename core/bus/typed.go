package bus

import (
	"fmt"

	"github.com/codewandler/statebus-go/internal/reflector"
)

// Handle registers a handler that expects a single payload of type T.
// The dynamic dispatch-by-name stays intact; only the payload boundary
// is type-checked. A mismatched or missing payload is routed to the
// registration's error handler (or the bus logger) instead of the
// handler.
func Handle[T any](b *Bus, event string, fn func(T), opts ...HandlerOption) Unsubscribe {
	want := reflector.TypeInfoFor[T]().Name

	wrapped := func(args ...any) {
		if len(args) == 0 {
			panic(fmt.Sprintf("expected payload of type %s, got none", want))
		}
		payload, ok := args[0].(T)
		if !ok {
			panic(fmt.Sprintf("expected payload of type %s, got %T", want, args[0]))
		}
		fn(payload)
	}
	return b.On(event, wrapped, opts...)
}
