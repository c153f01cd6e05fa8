package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/statebus-go/core/bus"
	"github.com/codewandler/statebus-go/core/store"
)

type sessionState struct {
	Active int            `json:"active"`
	Labels map[string]int `json:"labels"`
}

func newTestManager(t *testing.T, config Config[sessionState]) *Manager[sessionState] {
	t.Helper()
	if config.Initial.Labels == nil {
		config.Initial.Labels = map[string]int{}
	}
	m, err := New(config)
	require.NoError(t, err)
	t.Cleanup(m.Cleanup)
	return m
}

func TestManager_StateChangesReachBus(t *testing.T) {
	m := newTestManager(t, Config[sessionState]{})

	var got []sessionState
	m.On(store.EventStateChanged, func(args ...any) {
		got = append(got, args[0].(store.Changed[sessionState]).State)
	})

	require.NoError(t, m.SetState(sessionState{Active: 2, Labels: map[string]int{}}))
	require.Len(t, got, 1)
	require.Equal(t, 2, got[0].Active)
}

func TestManager_TransactionLifecycleOverBus(t *testing.T) {
	m := newTestManager(t, Config[sessionState]{})

	var committed []store.Committed[sessionState]
	m.On(store.EventTransactionCommitted, func(args ...any) {
		committed = append(committed, args[0].(store.Committed[sessionState]))
	})

	id, err := m.BeginTransaction("")
	require.NoError(t, err)
	require.NoError(t, m.UpdateTransaction(id, func(s sessionState) (sessionState, error) {
		s.Active = 9
		return s, nil
	}))
	require.NoError(t, m.CommitTransaction(id))

	require.Len(t, committed, 1)
	require.Equal(t, id, committed[0].TxID)
	require.Equal(t, 9, committed[0].State.Active)
	require.Equal(t, 9, m.GetState().Active)
}

func TestManager_IndependentInstances(t *testing.T) {
	m1 := newTestManager(t, Config[sessionState]{})
	m2 := newTestManager(t, Config[sessionState]{})

	require.NotEqual(t, m1.ID(), m2.ID())

	require.NoError(t, m1.SetState(sessionState{Active: 1, Labels: map[string]int{}}))
	require.Equal(t, 0, m2.GetState().Active)

	calls := 0
	m1.On("ping", func(...any) { calls++ })
	m2.Emit("ping")
	require.Equal(t, 0, calls)
}

func TestManager_ExternalBusNotCleanedUp(t *testing.T) {
	b := bus.New(bus.Config{})
	defer b.Cleanup()

	m := newTestManager(t, Config[sessionState]{Bus: b})

	calls := 0
	b.On("still:alive", func(...any) { calls++ })

	m.Cleanup()

	b.Emit("still:alive")
	require.Equal(t, 1, calls)
}

func TestManager_CleanupEmitsAndStops(t *testing.T) {
	m := newTestManager(t, Config[sessionState]{})

	var cleanupSeen []any
	m.On(bus.EventCleanup, func(args ...any) { cleanupSeen = append(cleanupSeen, args[0]) })

	m.Cleanup()
	m.Cleanup() // once per lifetime

	require.Len(t, cleanupSeen, 1)
	require.Equal(t, m.ID(), cleanupSeen[0])
	require.False(t, m.HasListeners(bus.EventCleanup))
}

func TestManager_ContextBoundCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newTestManager(t, Config[sessionState]{Context: ctx})

	m.On("never", func(...any) {})
	cancel()

	require.Eventually(t, func() bool {
		return !m.HasListeners("never")
	}, time.Second, 5*time.Millisecond)
}

func TestManager_SubscribeAndUpdateProperty(t *testing.T) {
	m := newTestManager(t, Config[sessionState]{})

	var last sessionState
	m.Subscribe(func(s sessionState) { last = s })

	require.NoError(t, m.UpdateProperty("active", 4))
	require.Equal(t, 4, last.Active)
	require.Equal(t, 4, m.GetState().Active)
}

func TestManager_ValidatorSurface(t *testing.T) {
	m := newTestManager(t, Config[sessionState]{
		Validators: []store.Validator[sessionState]{
			store.Predicate[sessionState]("labels-set", "labels must be set",
				func(s sessionState) bool { return s.Labels != nil }, true),
		},
	})

	err := m.SetState(sessionState{Active: 1})
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)

	require.True(t, m.RemoveValidator("labels-set"))
	require.NoError(t, m.SetState(sessionState{Active: 1}))
}
