// Package store provides a transactional wrapper around a state
// container: validated writes, copy-isolated transactions with
// commit/rollback, and lifecycle event publication.
//
// # Overview
//
// A [Store] composes a [state.Container] with a set of named validators
// and a map of in-flight transactions. Every write, direct or
// transactional, must pass all required validators before it becomes
// visible through GetState.
//
//	s := store.New(store.Config[AppState]{Initial: AppState{}})
//	defer s.Close()
//
//	s.AddValidator(store.Predicate("metrics-set",
//	    "metrics must be set",
//	    func(st AppState) bool { return st.Metrics != nil },
//	    true,
//	))
//
//	txID, _ := s.BeginTransaction("")
//	s.UpdateTransaction(txID, func(st AppState) (AppState, error) {
//	    st.Count++
//	    return st, nil
//	})
//	s.CommitTransaction(txID)
//
// # Transactions
//
// BeginTransaction deep-copies the current snapshot into a private
// working copy. UpdateTransaction mutates only that copy; the shared
// container is untouched until CommitTransaction re-validates the final
// copy and installs it atomically. RollbackTransaction discards the
// copy. A periodic sweep force-rolls-back transactions that outlive
// their configured lifetime.
//
// Two transactions opened concurrently and both committed follow
// last-writer-wins: there is no merge or conflict detection between
// their independent working copies. This is a deliberate, documented
// semantic, not an oversight.
//
// # Events
//
// When a publisher is attached the store emits [EventStateChanged],
// [EventValidationFailed], [EventTransactionCommitted] and
// [EventTransactionRolledBack]. The store runs fine without one.
package store
