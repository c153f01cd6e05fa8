package bus

import (
	"io"
	"log/slog"
	"testing"
)

func BenchmarkEmit(b *testing.B) {
	bus := New(Config{Log: slog.New(slog.NewTextHandler(io.Discard, nil))})
	defer bus.Cleanup()

	bus.On("bench", func(...any) {})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Emit("bench", i)
	}
}

func BenchmarkEmit_TenHandlers(b *testing.B) {
	bus := New(Config{Log: slog.New(slog.NewTextHandler(io.Discard, nil)), LeakWarnCeiling: 100})
	defer bus.Cleanup()

	for i := 0; i < 10; i++ {
		bus.On("bench", func(...any) {})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Emit("bench", i)
	}
}
