package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/statebus-go/core/bus"
	"github.com/codewandler/statebus-go/core/metrics"
)

// busMetrics implements bus.BusMetrics using Prometheus.
type busMetrics struct {
	emitsTotal       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	handlersInvoked  *prometheus.CounterVec
	emissionsQueued  *prometheus.CounterVec
	emissionsDropped *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	handlerCount     *prometheus.GaugeVec
	handlersExpired  prometheus.Counter
}

// NewBusMetrics creates a new Prometheus implementation of bus.BusMetrics.
func NewBusMetrics(reg prometheus.Registerer) bus.BusMetrics {
	m := &busMetrics{
		emitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statebus_bus_emits_total",
			Help: "Total number of emissions per event name",
		}, []string{"event"}),

		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statebus_bus_dispatch_duration_seconds",
			Help:    "Time spent dispatching one emission to all handlers",
			Buckets: defaultBuckets,
		}, []string{"event"}),

		handlersInvoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statebus_bus_handlers_invoked_total",
			Help: "Total number of handler invocations",
		}, []string{"event", "success"}),

		emissionsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statebus_bus_emissions_queued_total",
			Help: "Total number of emissions queued behind an in-progress dispatch",
		}, []string{"event"}),

		emissionsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statebus_bus_emissions_dropped_total",
			Help: "Total number of queued emissions dropped due to the queue cap",
		}, []string{"event"}),

		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "statebus_bus_queue_depth",
			Help: "Current pending emission queue depth",
		}),

		handlerCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statebus_bus_handlers",
			Help: "Current number of registered handlers per event name",
		}, []string{"event"}),

		handlersExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statebus_bus_handlers_expired_total",
			Help: "Total number of handlers removed by lifetime expiry",
		}),
	}

	reg.MustRegister(
		m.emitsTotal,
		m.dispatchDuration,
		m.handlersInvoked,
		m.emissionsQueued,
		m.emissionsDropped,
		m.queueDepth,
		m.handlerCount,
		m.handlersExpired,
	)

	return m
}

func (m *busMetrics) EmitTotal(event string) {
	m.emitsTotal.WithLabelValues(event).Inc()
}

func (m *busMetrics) DispatchDuration(event string) metrics.Timer {
	return newTimer(m.dispatchDuration.WithLabelValues(event))
}

func (m *busMetrics) HandlerInvoked(event string, success bool) {
	m.handlersInvoked.WithLabelValues(event, boolToStr(success)).Inc()
}

func (m *busMetrics) EmissionQueued(event string) {
	m.emissionsQueued.WithLabelValues(event).Inc()
}

func (m *busMetrics) EmissionDropped(event string) {
	m.emissionsDropped.WithLabelValues(event).Inc()
}

func (m *busMetrics) QueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *busMetrics) HandlerCount(event string, count int) {
	m.handlerCount.WithLabelValues(event).Set(float64(count))
}

func (m *busMetrics) HandlersExpired(count int) {
	m.handlersExpired.Add(float64(count))
}

var _ bus.BusMetrics = (*busMetrics)(nil)
