package bus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type orderPlaced struct {
	ID string
}

func TestHandle_TypedPayload(t *testing.T) {
	b, _ := newTestBus(t, Config{})

	var got []orderPlaced
	Handle(b, "order:placed", func(p orderPlaced) { got = append(got, p) })

	b.Emit("order:placed", orderPlaced{ID: "o-1"})

	require.Len(t, got, 1)
	require.Equal(t, "o-1", got[0].ID)
}

func TestHandle_MismatchedPayloadRoutedToErrorHandler(t *testing.T) {
	b, _ := newTestBus(t, Config{})

	calls := 0
	var handled error
	Handle(b, "order:placed",
		func(orderPlaced) { calls++ },
		WithErrorHandler(func(_ string, err error) { handled = err }),
	)

	b.Emit("order:placed", "not a struct")

	require.Equal(t, 0, calls)
	require.Error(t, handled)
	require.Contains(t, handled.Error(), "orderPlaced")
}

func TestHandle_MissingPayloadRoutedToErrorHandler(t *testing.T) {
	b, _ := newTestBus(t, Config{})

	var handled error
	Handle(b, "order:placed",
		func(orderPlaced) {},
		WithErrorHandler(func(_ string, err error) { handled = err }),
	)

	b.Emit("order:placed")

	require.Error(t, handled)
	require.Contains(t, handled.Error(), "got none")
}

func TestHandle_Unsubscribe(t *testing.T) {
	b, _ := newTestBus(t, Config{})

	calls := 0
	unsub := Handle(b, "ev", func(orderPlaced) { calls++ })
	unsub()

	b.Emit("ev", orderPlaced{})
	require.Equal(t, 0, calls)
}
