// Package bus provides a named-event publish/subscribe bus with
// reentrancy protection, handler expiry and bounded queuing.
//
// # Overview
//
// Handlers are registered against string event names and invoked in
// registration order. A handler can be one-shot, carry a max lifetime
// after which it expires, and bring its own error handler.
//
//	b := bus.New(bus.Config{})
//	defer b.Cleanup()
//
//	unsub := b.On("order:placed", func(args ...any) {
//	    fmt.Println("placed:", args[0])
//	})
//	defer unsub()
//
//	b.Emit("order:placed", "order-42")
//
// # Reentrancy
//
// An Emit issued while a dispatch pass is already in progress is never
// dispatched synchronously nested. It is queued (FIFO, bounded; oldest
// dropped with a warning when full) and runs only after the outer pass
// and any emissions already queued ahead of it complete. The queue is
// drained in batches; an overflowing drain is deferred onto a zero-delay
// timer to bound per-pass work.
//
// # Error isolation
//
// Each handler runs inside its own recover. A panicking handler is
// routed to its error handler (or the bus logger) and the remaining
// handlers in the pass still run.
//
// # Expiry
//
// Handlers registered with a max lifetime are removed either lazily
// during dispatch or by a periodic sweep, whichever notices first. A
// handler mid-invocation always finishes before removal applies.
package bus
