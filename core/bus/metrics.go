package bus

import "github.com/codewandler/statebus-go/core/metrics"

// BusMetrics defines the instrumentation surface of the event bus.
// Implementations must be safe for concurrent use.
type BusMetrics interface {
	// Dispatch
	EmitTotal(event string)
	DispatchDuration(event string) metrics.Timer
	HandlerInvoked(event string, success bool)

	// Queue
	EmissionQueued(event string)
	EmissionDropped(event string)
	QueueDepth(depth int)

	// Registry
	HandlerCount(event string, count int)
	HandlersExpired(count int)
}

// nopBusMetrics is a no-op implementation of BusMetrics.
type nopBusMetrics struct{}

func (nopBusMetrics) EmitTotal(string)                      {}
func (nopBusMetrics) DispatchDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopBusMetrics) HandlerInvoked(string, bool)           {}
func (nopBusMetrics) EmissionQueued(string)                 {}
func (nopBusMetrics) EmissionDropped(string)                {}
func (nopBusMetrics) QueueDepth(int)                        {}
func (nopBusMetrics) HandlerCount(string, int)              {}
func (nopBusMetrics) HandlersExpired(int)                   {}

// NopBusMetrics returns a no-op BusMetrics implementation.
func NopBusMetrics() BusMetrics { return nopBusMetrics{} }
