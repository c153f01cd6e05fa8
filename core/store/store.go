package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/statebus-go/core/state"
	"github.com/codewandler/statebus-go/internal/ordered"
	"github.com/codewandler/statebus-go/internal/reflector"
)

// Lifecycle event names published by the store.
const (
	EventStateChanged          = "state:changed"
	EventValidationFailed      = "state:validation-failed"
	EventTransactionCommitted  = "state:transaction-committed"
	EventTransactionRolledBack = "state:transaction-rolled-back"
)

const DefaultMaxTransactionLifetime = 5 * time.Minute

var (
	ErrTransactionsDisabled = errors.New("transactions are disabled")
	ErrTransactionExists    = errors.New("transaction id already exists")
	ErrTransactionNotFound  = errors.New("transaction not found")
)

type (
	// Publisher receives the store's lifecycle events. A *bus.Bus
	// satisfies it; the store runs fine without one attached.
	Publisher interface {
		Emit(event string, args ...any)
	}

	// Changed is the payload of EventStateChanged.
	Changed[S any] struct {
		State S
	}

	// Committed is the payload of EventTransactionCommitted.
	Committed[S any] struct {
		TxID  string
		State S
	}

	// RolledBack is the payload of EventTransactionRolledBack. Forced is
	// true when the stale-transaction sweep rolled the transaction back.
	RolledBack struct {
		TxID   string
		Forced bool
	}

	Config[S any] struct {
		Log     *slog.Logger
		Metrics StoreMetrics
		Initial S

		// Publisher, when set, receives lifecycle events.
		Publisher Publisher
		// Validators seeds the validator set.
		Validators []Validator[S]
		// MaxTransactionLifetime bounds how long a transaction may stay
		// open before the sweep force-rolls it back. Default 5m.
		MaxTransactionLifetime time.Duration
		// DisableTransactions makes BeginTransaction fail; direct writes
		// still work.
		DisableTransactions bool
	}

	// Stats is a point-in-time view of store bookkeeping.
	Stats struct {
		OpenTransactions int
		Validators       int
	}

	// Store wraps a state container with validated writes and
	// copy-isolated transactions. Construct with New, release with Close.
	Store[S any] struct {
		mu            sync.Mutex
		log           *slog.Logger
		metrics       StoreMetrics
		container     *state.Container[S]
		validators    *ordered.Map[string, Validator[S]]
		txs           *ordered.Map[string, *transaction[S]]
		pub           Publisher
		maxTxLifetime time.Duration
		txDisabled    bool

		sweepStop chan struct{}
		sweepDone chan struct{}
		closeOnce sync.Once
	}
)

func New[S any](config Config[S]) *Store[S] {
	log := config.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "store"))

	m := config.Metrics
	if m == nil {
		m = NopStoreMetrics()
	}
	if config.MaxTransactionLifetime <= 0 {
		config.MaxTransactionLifetime = DefaultMaxTransactionLifetime
	}

	s := &Store[S]{
		log:     log,
		metrics: m,
		container: state.NewContainer(state.Config[S]{
			Log:     log,
			Initial: config.Initial,
		}),
		validators:    ordered.NewMap[string, Validator[S]](),
		txs:           ordered.NewMap[string, *transaction[S]](),
		pub:           config.Publisher,
		maxTxLifetime: config.MaxTransactionLifetime,
		txDisabled:    config.DisableTransactions,
		sweepStop:     make(chan struct{}),
		sweepDone:     make(chan struct{}),
	}
	for _, v := range config.Validators {
		s.AddValidator(v)
	}

	go s.sweepLoop(sweepInterval(s.maxTxLifetime))

	return s
}

// sweepInterval is half the transaction lifetime, capped at one minute.
func sweepInterval(maxLifetime time.Duration) time.Duration {
	interval := maxLifetime / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return interval
}

// === Validators ===

// AddValidator registers v. A validator with a duplicate id replaces the
// existing one.
func (s *Store[S]) AddValidator(v Validator[S]) {
	s.mu.Lock()
	replaced := s.validators.Set(v.ID, v)
	s.mu.Unlock()
	if replaced {
		s.log.Info("validator replaced", slog.String("validator", v.ID))
	}
}

// RemoveValidator removes the validator with the given id.
func (s *Store[S]) RemoveValidator(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validators.Delete(id)
}

// validate runs every validator against candidate. Required failures are
// collected into a ValidationError and published; soft failures only log.
func (s *Store[S]) validate(candidate S) error {
	s.mu.Lock()
	validators := s.validators.Values()
	s.mu.Unlock()

	var required []Failure
	for _, v := range validators {
		err := runCheck(v, candidate)
		if err == nil {
			continue
		}
		s.metrics.ValidationFailure(v.ID, v.Required)
		if !v.Required {
			s.log.Warn("soft validation failure",
				slog.String("validator", v.ID),
				slog.String("message", err.Error()),
			)
			continue
		}
		required = append(required, Failure{ValidatorID: v.ID, Message: err.Error()})
	}
	if len(required) == 0 {
		return nil
	}

	verr := &ValidationError{Failures: required}
	s.log.Warn("validation failed", slog.Any("failures", verr.Messages()))
	s.emit(EventValidationFailed, required)
	return verr
}

// runCheck isolates a panicking validator; the panic counts as a failure
// of that validator rather than escaping to the caller.
func runCheck[S any](v Validator[S], candidate S) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return v.Check(candidate)
}

// === Direct writes ===

// GetState returns the current snapshot. Callers must treat it as
// read-only.
func (s *Store[S]) GetState() S { return s.container.GetState() }

// Subscribe registers a listener on the underlying container; the
// current snapshot is replayed to it immediately.
func (s *Store[S]) Subscribe(fn state.Listener[S], opts ...state.SubscribeOption[S]) state.Unsubscribe {
	return s.container.Subscribe(fn, opts...)
}

// SetState validates next and, if every required validator passes,
// installs it and publishes EventStateChanged. On failure the prior
// snapshot is untouched.
func (s *Store[S]) SetState(next S) error {
	if err := s.validate(next); err != nil {
		s.metrics.StateWrite(false)
		return err
	}
	if err := s.container.SetState(next); err != nil {
		s.metrics.StateWrite(false)
		return err
	}
	s.metrics.StateWrite(true)
	s.emit(EventStateChanged, Changed[S]{State: s.container.GetState()})
	return nil
}

// UpdateState applies fn to a copy of the current snapshot and runs the
// result through SetState.
func (s *Store[S]) UpdateState(fn func(S) (S, error)) error {
	cur := s.container.GetState()
	working, err := state.Clone(cur)
	if err != nil {
		s.metrics.StateWrite(false)
		return err
	}
	next, err := applyFn(working, fn)
	if err != nil {
		s.log.Warn("rejected state update", slog.Any("error", err))
		s.metrics.StateWrite(false)
		return err
	}
	return s.SetState(next)
}

// UpdateProperty replaces a single named field of the snapshot, going
// through the full validation path.
func (s *Store[S]) UpdateProperty(name string, value any) error {
	return s.UpdateState(func(snap S) (S, error) {
		if err := reflector.SetField(&snap, name, value); err != nil {
			return snap, err
		}
		return snap, nil
	})
}

// === Transactions ===

// BeginTransaction opens a transaction seeded with a deep copy of the
// current snapshot. An empty id generates one of the shape
// tx-<unix-ms>-<random>. Fails if transactions are disabled or the id is
// already in flight.
func (s *Store[S]) BeginTransaction(id string) (string, error) {
	if s.txDisabled {
		return "", ErrTransactionsDisabled
	}
	if id == "" {
		id = fmt.Sprintf("tx-%d-%s", time.Now().UnixMilli(), gonanoid.Must(8))
	}

	cur := s.container.GetState()
	original, err := state.Clone(cur)
	if err != nil {
		return "", err
	}
	working, err := state.Clone(cur)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if _, exists := s.txs.Get(id); exists {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrTransactionExists, id)
	}
	s.txs.Set(id, &transaction[S]{
		id:        id,
		original:  original,
		working:   working,
		status:    TxOpen,
		startedAt: time.Now(),
	})
	open := s.txs.Len()
	s.mu.Unlock()

	s.metrics.TransactionBegun()
	s.metrics.OpenTransactions(open)
	s.log.Debug("transaction begun", slog.String("tx", id))
	return id, nil
}

// UpdateTransaction applies fn to the transaction's working copy only;
// the shared container is untouched. On validation failure the
// transaction stays open and unmodified so the caller may retry with
// corrected data.
func (s *Store[S]) UpdateTransaction(id string, fn func(S) (S, error)) error {
	s.mu.Lock()
	tx, ok := s.txs.Get(id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}

	working, err := state.Clone(tx.working)
	if err != nil {
		return err
	}
	next, err := applyFn(working, fn)
	if err != nil {
		s.log.Warn("transaction update rejected", slog.String("tx", id), slog.Any("error", err))
		return err
	}
	if err := s.validate(next); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.txs.Get(id); !ok || cur != tx {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	tx.working = next
	return nil
}

// CommitTransaction re-validates the final working copy and, on success,
// atomically installs it, publishes EventTransactionCommitted and
// deletes the transaction record. On validation failure the transaction
// stays open; the caller may fix and retry or roll back explicitly.
func (s *Store[S]) CommitTransaction(id string) error {
	s.mu.Lock()
	tx, ok := s.txs.Get(id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}

	timer := s.metrics.CommitDuration()
	defer timer.ObserveDuration()

	if err := s.validate(tx.working); err != nil {
		return err
	}

	// Last-writer-wins: the working copy replaces whatever is current,
	// with no comparison against the snapshot at begin time.
	if err := s.container.SetState(tx.working); err != nil {
		return err
	}

	s.mu.Lock()
	tx.status = TxCommitted
	s.txs.Delete(id)
	open := s.txs.Len()
	s.mu.Unlock()

	s.metrics.TransactionCommitted()
	s.metrics.OpenTransactions(open)
	s.log.Debug("transaction committed", slog.String("tx", id))
	s.emit(EventTransactionCommitted, Committed[S]{TxID: id, State: s.container.GetState()})
	return nil
}

// RollbackTransaction discards the transaction's working copy and
// publishes EventTransactionRolledBack. The shared container is
// untouched. Fails if the id is unknown.
func (s *Store[S]) RollbackTransaction(id string) error {
	return s.rollback(id, false)
}

func (s *Store[S]) rollback(id string, forced bool) error {
	s.mu.Lock()
	tx, ok := s.txs.Get(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	tx.status = TxRolledBack
	s.txs.Delete(id)
	open := s.txs.Len()
	s.mu.Unlock()

	s.metrics.TransactionRolledBack(forced)
	s.metrics.OpenTransactions(open)
	if forced {
		s.log.Warn("stale transaction rolled back",
			slog.String("tx", id),
			slog.Duration("age", time.Since(tx.startedAt)),
		)
	} else {
		s.log.Debug("transaction rolled back", slog.String("tx", id))
	}
	s.emit(EventTransactionRolledBack, RolledBack{TxID: id, Forced: forced})
	return nil
}

// === Background sweep ===

func (s *Store[S]) sweepLoop(interval time.Duration) {
	defer close(s.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.sweepStop:
			return
		case <-ticker.C:
			s.sweepStale()
		}
	}
}

// sweepStale force-rolls-back every open transaction older than the
// configured lifetime.
func (s *Store[S]) sweepStale() {
	now := time.Now()

	s.mu.Lock()
	var stale []string
	for _, tx := range s.txs.Values() {
		if now.Sub(tx.startedAt) > s.maxTxLifetime {
			stale = append(stale, tx.id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		if err := s.rollback(id, true); err != nil {
			s.log.Debug("stale transaction already gone", slog.String("tx", id))
		}
	}
}

// === Bookkeeping ===

func (s *Store[S]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		OpenTransactions: s.txs.Len(),
		Validators:       s.validators.Len(),
	}
}

func (s *Store[S]) emit(event string, args ...any) {
	if s.pub == nil {
		return
	}
	s.pub.Emit(event, args...)
}

// Close stops the stale-transaction sweep and discards any open
// transactions. Safe to call once per instance; later calls are no-ops.
func (s *Store[S]) Close() {
	s.closeOnce.Do(func() {
		close(s.sweepStop)
		<-s.sweepDone

		s.mu.Lock()
		discarded := s.txs.Len()
		s.txs.Clear()
		s.mu.Unlock()

		if discarded > 0 {
			s.log.Debug("open transactions discarded on close", slog.Int("count", discarded))
		}
	})
}

func applyFn[S any](working S, fn func(S) (S, error)) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("update panic: %v", r)
		}
	}()
	return fn(working)
}
