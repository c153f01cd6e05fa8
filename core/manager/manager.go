// Package manager wires a transactional store and an event bus into one
// convenience surface.
//
// A Manager is an explicitly constructed instance: multiple independent
// managers (per test, per logical session) coexist without shared global
// state. Pass it through your application context instead of reaching
// for a singleton.
//
//	m, err := manager.New(manager.Config[AppState]{
//	    Initial: AppState{},
//	})
//	if err != nil { ... }
//	defer m.Cleanup()
//
//	m.On("state:changed", func(args ...any) { ... })
//	m.SetState(AppState{Count: 1})
package manager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/statebus-go/core/bus"
	"github.com/codewandler/statebus-go/core/state"
	"github.com/codewandler/statebus-go/core/store"
)

type (
	Config[S any] struct {
		// Context, when set, bounds the manager's lifetime: Cleanup runs
		// when it is cancelled.
		Context context.Context
		Log     *slog.Logger
		Initial S

		// Bus, when set, is used instead of an internally owned bus. An
		// externally provided bus is not cleaned up by Manager.Cleanup.
		Bus *bus.Bus
		// BusConfig configures the internally owned bus. Ignored when
		// Bus is set.
		BusConfig bus.Config

		Validators             []store.Validator[S]
		StoreMetrics           store.StoreMetrics
		MaxTransactionLifetime time.Duration
		DisableTransactions    bool
	}

	// Manager combines a transactional store with an event bus.
	Manager[S any] struct {
		id          string
		log         *slog.Logger
		store       *store.Store[S]
		bus         *bus.Bus
		ownsBus     bool
		cleanupOnce sync.Once
	}
)

func New[S any](config Config[S]) (*Manager[S], error) {
	id := gonanoid.Must(6)

	log := config.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("manager", id))

	m := &Manager[S]{id: id, log: log}

	m.bus = config.Bus
	if m.bus == nil {
		bc := config.BusConfig
		if bc.Log == nil {
			bc.Log = log
		}
		m.bus = bus.New(bc)
		m.ownsBus = true
	}

	m.store = store.New(store.Config[S]{
		Log:                    log,
		Metrics:                config.StoreMetrics,
		Initial:                config.Initial,
		Publisher:              m.bus,
		Validators:             config.Validators,
		MaxTransactionLifetime: config.MaxTransactionLifetime,
		DisableTransactions:    config.DisableTransactions,
	})

	if config.Context != nil {
		context.AfterFunc(config.Context, m.Cleanup)
	}

	m.log.Debug("manager created")
	return m, nil
}

func (m *Manager[S]) ID() string             { return m.id }
func (m *Manager[S]) Store() *store.Store[S] { return m.store }
func (m *Manager[S]) Bus() *bus.Bus          { return m.bus }

// === State surface ===

func (m *Manager[S]) GetState() S { return m.store.GetState() }

func (m *Manager[S]) Subscribe(fn state.Listener[S], opts ...state.SubscribeOption[S]) state.Unsubscribe {
	return m.store.Subscribe(fn, opts...)
}

func (m *Manager[S]) SetState(next S) error { return m.store.SetState(next) }

func (m *Manager[S]) UpdateState(fn func(S) (S, error)) error { return m.store.UpdateState(fn) }

func (m *Manager[S]) UpdateProperty(name string, value any) error {
	return m.store.UpdateProperty(name, value)
}

func (m *Manager[S]) AddValidator(v store.Validator[S]) { m.store.AddValidator(v) }

func (m *Manager[S]) RemoveValidator(id string) bool { return m.store.RemoveValidator(id) }

// === Transaction surface ===

func (m *Manager[S]) BeginTransaction(id string) (string, error) {
	return m.store.BeginTransaction(id)
}

func (m *Manager[S]) UpdateTransaction(id string, fn func(S) (S, error)) error {
	return m.store.UpdateTransaction(id, fn)
}

func (m *Manager[S]) CommitTransaction(id string) error { return m.store.CommitTransaction(id) }

func (m *Manager[S]) RollbackTransaction(id string) error { return m.store.RollbackTransaction(id) }

// === Bus surface ===

func (m *Manager[S]) On(event string, fn bus.Handler, opts ...bus.HandlerOption) bus.Unsubscribe {
	return m.bus.On(event, fn, opts...)
}

func (m *Manager[S]) Once(event string, fn bus.Handler, opts ...bus.HandlerOption) bus.Unsubscribe {
	return m.bus.Once(event, fn, opts...)
}

func (m *Manager[S]) Emit(event string, args ...any) { m.bus.Emit(event, args...) }

func (m *Manager[S]) Off(event string, fn bus.Handler) { m.bus.Off(event, fn) }

func (m *Manager[S]) HasListeners(event string) bool { return m.bus.HasListeners(event) }

func (m *Manager[S]) ListenerCount(event string) int { return m.bus.ListenerCount(event) }

// Cleanup publishes a final cleanup event, stops both background sweeps
// and clears all handler maps and pending queues. Safe to call once per
// instance; later calls are no-ops.
func (m *Manager[S]) Cleanup() {
	m.cleanupOnce.Do(func() {
		m.bus.Emit(bus.EventCleanup, m.id)
		m.store.Close()
		if m.ownsBus {
			m.bus.Cleanup()
		}
		m.log.Debug("manager cleaned up")
	})
}
