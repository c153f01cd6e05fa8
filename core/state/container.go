package state

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/codewandler/statebus-go/internal/reflector"
)

var (
	ErrNilSnapshot = errors.New("snapshot must be a non-nil value")
)

type (
	// Listener receives each newly installed snapshot.
	Listener[S any] func(S)

	// Unsubscribe removes a listener. Calling it more than once is safe.
	Unsubscribe func()

	subscription[S any] struct {
		id      int64
		fn      Listener[S]
		onError func(error)
	}

	// SubscribeOption configures a single subscription.
	SubscribeOption[S any] func(*subscription[S])

	Config[S any] struct {
		Log     *slog.Logger
		Initial S
	}

	// Container holds the current snapshot and notifies listeners when a
	// new one is installed.
	Container[S any] struct {
		mu        sync.Mutex
		log       *slog.Logger
		current   S
		subs      []*subscription[S]
		nextSubID int64
		notifying atomic.Bool
	}
)

// WithListenerErrorHandler routes failures of this listener to fn instead
// of the container's logger.
func WithListenerErrorHandler[S any](fn func(error)) SubscribeOption[S] {
	return func(s *subscription[S]) { s.onError = fn }
}

func NewContainer[S any](config Config[S]) *Container[S] {
	log := config.Log
	if log == nil {
		log = slog.Default()
	}
	return &Container[S]{
		log:     log.With(slog.String("component", "state")),
		current: config.Initial,
	}
}

// GetState returns the current snapshot. Callers must treat it as
// read-only; writes go through SetState, UpdateState or UpdateProperty.
func (c *Container[S]) GetState() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe registers fn, immediately replays the current snapshot to it
// once, and returns an idempotent unsubscribe closure.
func (c *Container[S]) Subscribe(fn Listener[S], opts ...SubscribeOption[S]) Unsubscribe {
	c.mu.Lock()
	c.nextSubID++
	sub := &subscription[S]{id: c.nextSubID, fn: fn}
	for _, opt := range opts {
		opt(sub)
	}
	c.subs = append(c.subs, sub)
	cur := c.current
	c.mu.Unlock()

	c.invoke(sub, cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == sub.id {
					c.subs = append(c.subs[:i], c.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// SetState replaces the snapshot with a defensive copy of next and
// notifies listeners. A nil next is rejected and the prior snapshot is
// retained.
func (c *Container[S]) SetState(next S) error {
	if isNil(any(next)) {
		c.log.Warn("rejected state write", slog.Any("error", ErrNilSnapshot))
		return ErrNilSnapshot
	}
	copied, err := Clone(next)
	if err != nil {
		c.log.Warn("rejected state write", slog.Any("error", err))
		return err
	}
	c.install(copied)
	return nil
}

// UpdateState applies fn to a defensive copy of the current snapshot and
// installs the result. If fn returns an error, panics, or produces a nil
// snapshot, the update is rejected and the prior snapshot is retained.
func (c *Container[S]) UpdateState(fn func(S) (S, error)) error {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()

	working, err := Clone(cur)
	if err != nil {
		c.log.Warn("rejected state update", slog.Any("error", err))
		return err
	}

	next, err := applyUpdate(working, fn)
	if err != nil {
		c.log.Warn("rejected state update", slog.Any("error", err))
		return err
	}
	if isNil(any(next)) {
		c.log.Warn("rejected state update", slog.Any("error", ErrNilSnapshot))
		return ErrNilSnapshot
	}

	c.install(next)
	return nil
}

// UpdateProperty replaces a single named field of the snapshot. The name
// matches either the exported Go field name or its json tag.
func (c *Container[S]) UpdateProperty(name string, value any) error {
	return c.UpdateState(func(s S) (S, error) {
		if err := reflector.SetField(&s, name, value); err != nil {
			return s, err
		}
		return s, nil
	})
}

// install replaces the snapshot and runs one notification pass.
func (c *Container[S]) install(next S) {
	c.mu.Lock()
	c.current = next
	subs := make([]*subscription[S], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	c.notify(subs, next)
}

// notify invokes every listener in subs with snap. A pass triggered
// while another pass is in progress is skipped with a warning; the
// snapshot itself was already installed.
func (c *Container[S]) notify(subs []*subscription[S], snap S) {
	if !c.notifying.CompareAndSwap(false, true) {
		c.log.Warn("nested notification skipped", slog.Int("listeners", len(subs)))
		return
	}
	defer c.notifying.Store(false)

	for _, sub := range subs {
		c.invoke(sub, snap)
	}
}

// invoke runs one listener, isolating panics so a misbehaving listener
// cannot abort the rest of the pass.
func (c *Container[S]) invoke(sub *subscription[S], snap S) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("listener panic: %v", r)
			if sub.onError != nil {
				sub.onError(err)
				return
			}
			c.log.Error("listener failed", slog.Int64("subscription", sub.id), slog.Any("error", err))
		}
	}()
	sub.fn(snap)
}

// ListenerCount returns the number of registered listeners.
func (c *Container[S]) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func applyUpdate[S any](working S, fn func(S) (S, error)) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("update panic: %v", r)
		}
	}()
	return fn(working)
}
