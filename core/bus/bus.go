package bus

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/codewandler/statebus-go/internal/ordered"
)

const (
	DefaultLeakWarnCeiling = 10
	DefaultMaxPending      = 100
	DefaultDrainBatchSize  = 25
	DefaultSweepInterval   = 60 * time.Second
)

type (
	// Handler receives the arguments passed to Emit.
	Handler func(args ...any)

	// ErrorHandler receives failures of a single handler invocation.
	ErrorHandler func(event string, err error)

	// Unsubscribe removes a handler registration. Calling it more than
	// once is safe.
	Unsubscribe func()

	// HandlerOption configures a single registration.
	HandlerOption func(*entry)

	entry struct {
		id           int64
		fn           Handler
		once         bool
		registeredAt time.Time
		maxLifetime  time.Duration // 0 = unlimited
		onError      ErrorHandler
		context      any
	}

	pendingEmission struct {
		event    string
		args     []any
		queuedAt time.Time
		id       int64
	}

	eventHandlers struct {
		entries []*entry
		warned  bool
	}

	emitStat struct {
		count       uint64
		lastEmitted time.Time
	}

	Config struct {
		Log     *slog.Logger
		Metrics BusMetrics

		// LeakWarnCeiling is the per-event handler count above which a
		// possible-leak warning is logged once. Default 10.
		LeakWarnCeiling int
		// MaxPending bounds the reentrant emission queue. Default 100.
		MaxPending int
		// DrainBatchSize bounds how many queued emissions are dispatched
		// per drain before the remainder is deferred. Default 25.
		DrainBatchSize int
		// SweepInterval is the period of the handler expiry sweep.
		// Default 60s.
		SweepInterval time.Duration
	}

	// Bus is a named-event publish/subscribe bus. The zero value is not
	// usable; construct with New and release with Cleanup.
	Bus struct {
		mu            sync.Mutex
		log           *slog.Logger
		metrics       BusMetrics
		handlers      *ordered.Map[string, *eventHandlers]
		stats         map[string]*emitStat
		pending       []pendingEmission
		dispatching   bool
		closed        bool
		nextEntryID   int64
		nextPendingID int64
		leakCeiling   int
		maxPending    int
		drainBatch    int
		drainTimer    *time.Timer

		sweepStop   chan struct{}
		sweepDone   chan struct{}
		cleanupOnce sync.Once
	}
)

// WithOnce marks the handler for removal after its first invocation.
func WithOnce() HandlerOption {
	return func(e *entry) { e.once = true }
}

// WithErrorHandler routes invocation failures of this handler to fn
// instead of the bus logger.
func WithErrorHandler(fn ErrorHandler) HandlerOption {
	return func(e *entry) { e.onError = fn }
}

// WithMaxLifetime expires the handler once d has elapsed since
// registration. 0 means unlimited.
func WithMaxLifetime(d time.Duration) HandlerOption {
	return func(e *entry) { e.maxLifetime = d }
}

// WithContext attaches an opaque value to the registration, retrievable
// through Debug output and error logs.
func WithContext(v any) HandlerOption {
	return func(e *entry) { e.context = v }
}

func New(config Config) *Bus {
	log := config.Log
	if log == nil {
		log = slog.Default()
	}
	m := config.Metrics
	if m == nil {
		m = NopBusMetrics()
	}
	if config.LeakWarnCeiling <= 0 {
		config.LeakWarnCeiling = DefaultLeakWarnCeiling
	}
	if config.MaxPending <= 0 {
		config.MaxPending = DefaultMaxPending
	}
	if config.DrainBatchSize <= 0 {
		config.DrainBatchSize = DefaultDrainBatchSize
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}

	b := &Bus{
		log:         log.With(slog.String("component", "bus")),
		metrics:     m,
		handlers:    ordered.NewMap[string, *eventHandlers](),
		stats:       map[string]*emitStat{},
		leakCeiling: config.LeakWarnCeiling,
		maxPending:  config.MaxPending,
		drainBatch:  config.DrainBatchSize,
		sweepStop:   make(chan struct{}),
		sweepDone:   make(chan struct{}),
	}
	go b.sweepLoop(config.SweepInterval)
	return b
}

// On registers a handler for event and returns an idempotent unsubscribe
// closure. Registration always succeeds; crossing the leak ceiling only
// logs a warning.
func (b *Bus) On(event string, fn Handler, opts ...HandlerOption) Unsubscribe {
	b.mu.Lock()
	b.nextEntryID++
	e := &entry{
		id:           b.nextEntryID,
		fn:           fn,
		registeredAt: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}

	hs, ok := b.handlers.Get(event)
	if !ok {
		hs = &eventHandlers{}
		b.handlers.Set(event, hs)
	}
	hs.entries = append(hs.entries, e)
	count := len(hs.entries)
	warn := count > b.leakCeiling && !hs.warned
	if warn {
		hs.warned = true
	}
	b.metrics.HandlerCount(event, count)
	b.mu.Unlock()

	if warn {
		b.log.Warn("possible handler leak",
			slog.String("event", event),
			slog.Int("handlers", count),
			slog.Int("ceiling", b.leakCeiling),
		)
	}

	id := e.id
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.removeEntriesLocked(event, map[int64]struct{}{id: {}})
		})
	}
}

// Once registers a handler that is removed after its first invocation.
func (b *Bus) Once(event string, fn Handler, opts ...HandlerOption) Unsubscribe {
	return b.On(event, fn, append(opts, WithOnce())...)
}

// Emit dispatches event to its handlers in registration order. If any
// dispatch is already in progress the emission is queued instead and
// runs after the outer pass completes; handlers are never invoked
// synchronously nested.
func (b *Bus) Emit(event string, args ...any) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.log.Debug("emit after cleanup ignored", slog.String("event", event))
		return
	}
	st, ok := b.stats[event]
	if !ok {
		st = &emitStat{}
		b.stats[event] = st
	}
	st.count++
	st.lastEmitted = time.Now()
	b.mu.Unlock()

	b.metrics.EmitTotal(event)

	if b.dispatchOrQueue(event, args) {
		b.drainPending()
	}
}

// dispatchOrQueue runs one dispatch pass for event, or queues the
// emission if a pass is already in progress. Returns true if a pass ran.
func (b *Bus) dispatchOrQueue(event string, args []any) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	if b.dispatching {
		b.enqueueLocked(event, args)
		b.mu.Unlock()
		return false
	}
	b.dispatching = true
	var entries []*entry
	if hs, ok := b.handlers.Get(event); ok {
		entries = make([]*entry, len(hs.entries))
		copy(entries, hs.entries)
	}
	b.mu.Unlock()

	timer := b.metrics.DispatchDuration(event)
	now := time.Now()
	remove := map[int64]struct{}{}
	expired := 0
	for _, e := range entries {
		if e.maxLifetime > 0 && now.Sub(e.registeredAt) > e.maxLifetime {
			remove[e.id] = struct{}{}
			expired++
			continue
		}
		err := b.invoke(event, e, args)
		b.metrics.HandlerInvoked(event, err == nil)
		if e.once {
			remove[e.id] = struct{}{}
		}
	}
	timer.ObserveDuration()

	b.mu.Lock()
	if len(remove) > 0 {
		b.removeEntriesLocked(event, remove)
	}
	if expired > 0 {
		b.metrics.HandlersExpired(expired)
	}
	b.dispatching = false
	b.mu.Unlock()
	return true
}

// enqueueLocked appends a pending emission, dropping the oldest when the
// queue is full. Caller holds b.mu.
func (b *Bus) enqueueLocked(event string, args []any) {
	if len(b.pending) >= b.maxPending {
		dropped := b.pending[0]
		b.pending = b.pending[1:]
		b.metrics.EmissionDropped(dropped.event)
		b.log.Warn("pending emission dropped",
			slog.String("event", dropped.event),
			slog.Int64("emission", dropped.id),
			slog.Int("queue", len(b.pending)),
		)
	}
	b.nextPendingID++
	b.pending = append(b.pending, pendingEmission{
		event:    event,
		args:     args,
		queuedAt: time.Now(),
		id:       b.nextPendingID,
	})
	b.metrics.EmissionQueued(event)
	b.metrics.QueueDepth(len(b.pending))
}

// drainPending dispatches queued emissions FIFO in batches. When a batch
// completes with work left over, the remainder is deferred onto a
// zero-delay timer so a single pass cannot monopolize the caller.
func (b *Bus) drainPending() {
	processed := 0
	for {
		b.mu.Lock()
		if b.closed || b.dispatching || len(b.pending) == 0 {
			b.mu.Unlock()
			return
		}
		if processed >= b.drainBatch {
			b.scheduleDrainLocked()
			b.mu.Unlock()
			return
		}
		p := b.pending[0]
		b.pending = b.pending[1:]
		b.metrics.QueueDepth(len(b.pending))
		b.mu.Unlock()

		b.dispatchOrQueue(p.event, p.args)
		processed++
	}
}

func (b *Bus) scheduleDrainLocked() {
	if b.drainTimer != nil {
		return
	}
	b.drainTimer = time.AfterFunc(0, func() {
		b.mu.Lock()
		b.drainTimer = nil
		b.mu.Unlock()
		b.drainPending()
	})
}

// invoke runs one handler, isolating panics so a misbehaving handler
// cannot abort the rest of the pass.
func (b *Bus) invoke(event string, e *entry, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			if e.onError != nil {
				e.onError(event, err)
				return
			}
			b.log.Error("handler failed",
				slog.String("event", event),
				slog.Int64("handler", e.id),
				slog.Any("context", e.context),
				slog.Any("error", err),
			)
		}
	}()
	e.fn(args...)
	return nil
}

// removeEntriesLocked drops the given entry ids for event. Caller holds
// b.mu.
func (b *Bus) removeEntriesLocked(event string, ids map[int64]struct{}) {
	hs, ok := b.handlers.Get(event)
	if !ok {
		return
	}
	kept := hs.entries[:0]
	for _, e := range hs.entries {
		if _, drop := ids[e.id]; !drop {
			kept = append(kept, e)
		}
	}
	hs.entries = kept
	if len(kept) <= b.leakCeiling {
		hs.warned = false
	}
	if len(kept) == 0 {
		b.handlers.Delete(event)
	}
	b.metrics.HandlerCount(event, len(kept))
}

// Off removes one handler for event, or all handlers for event when fn
// is nil. Handlers are matched by function identity.
func (b *Bus) Off(event string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hs, ok := b.handlers.Get(event)
	if !ok {
		return
	}
	if fn == nil {
		b.handlers.Delete(event)
		b.metrics.HandlerCount(event, 0)
		return
	}
	target := reflect.ValueOf(fn).Pointer()
	ids := map[int64]struct{}{}
	for _, e := range hs.entries {
		if reflect.ValueOf(e.fn).Pointer() == target {
			ids[e.id] = struct{}{}
		}
	}
	b.removeEntriesLocked(event, ids)
}

// RemoveAllListeners removes all handlers for the given events, or every
// handler on the bus when called with no arguments.
func (b *Bus) RemoveAllListeners(events ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(events) == 0 {
		b.handlers.Clear()
		return
	}
	for _, ev := range events {
		if b.handlers.Delete(ev) {
			b.metrics.HandlerCount(ev, 0)
		}
	}
}

// ListenerCount returns the number of handlers registered for event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hs, ok := b.handlers.Get(event); ok {
		return len(hs.entries)
	}
	return 0
}

// HasListeners reports whether at least one handler is registered for
// event.
func (b *Bus) HasListeners(event string) bool {
	return b.ListenerCount(event) > 0
}

// EventNames returns the names with registered handlers, in first
// registration order.
func (b *Bus) EventNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handlers.Keys()
}

// sweepLoop periodically removes handlers whose max lifetime elapsed
// even if their event never fired again.
func (b *Bus) sweepLoop(interval time.Duration) {
	defer close(b.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.sweepStop:
			return
		case <-ticker.C:
			b.sweepExpired()
		}
	}
}

func (b *Bus) sweepExpired() {
	b.mu.Lock()
	now := time.Now()
	expired := 0
	for _, event := range b.handlers.Keys() {
		hs, ok := b.handlers.Get(event)
		if !ok {
			continue
		}
		ids := map[int64]struct{}{}
		for _, e := range hs.entries {
			if e.maxLifetime > 0 && now.Sub(e.registeredAt) > e.maxLifetime {
				ids[e.id] = struct{}{}
			}
		}
		if len(ids) > 0 {
			b.removeEntriesLocked(event, ids)
			expired += len(ids)
		}
	}
	b.mu.Unlock()

	if expired > 0 {
		b.metrics.HandlersExpired(expired)
		b.log.Debug("expired handlers swept", slog.Int("count", expired))
	}
}

// Cleanup stops the expiry sweep and any deferred drain, clears all
// handlers, pending emissions and statistics. Safe to call once per
// instance; later calls are no-ops.
func (b *Bus) Cleanup() {
	b.cleanupOnce.Do(func() {
		close(b.sweepStop)
		<-b.sweepDone

		b.mu.Lock()
		b.closed = true
		if b.drainTimer != nil {
			b.drainTimer.Stop()
			b.drainTimer = nil
		}
		b.handlers.Clear()
		b.pending = nil
		b.stats = map[string]*emitStat{}
		b.mu.Unlock()

		b.log.Debug("bus cleaned up")
	})
}
