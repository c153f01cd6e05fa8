// Package state provides an observable container holding a single
// snapshot value that is replaced wholesale on every write.
//
// # Overview
//
// A [Container] owns the current snapshot of type S and notifies
// subscribers whenever a new snapshot is installed. Snapshots are never
// mutated in place: every write installs a brand-new value, so readers
// holding a reference to an old snapshot are unaffected by later writes.
//
//	c := state.NewContainer(state.Config[AppState]{Initial: AppState{Count: 0}})
//
//	unsub := c.Subscribe(func(s AppState) {
//	    fmt.Println("count is now", s.Count)
//	})
//	defer unsub()
//
//	c.UpdateState(func(s AppState) (AppState, error) {
//	    s.Count++
//	    return s, nil
//	})
//
// # Subscriptions
//
// Subscribe immediately replays the current snapshot to the new listener
// and returns an idempotent unsubscribe closure. A panicking listener is
// isolated: its own error handler (or the container's logger) receives
// the failure and the remaining listeners still run.
//
// # Reentrancy
//
// A notification triggered while another notification pass is already in
// progress is skipped with a logged warning rather than nested. Writes
// from inside a listener still install their snapshot; only the extra
// notification pass is suppressed.
//
// # Cloning
//
// Isolation copies prefer an explicit structural clone: snapshot types
// implementing [Cloner] are cloned via their Clone method. Plain-data
// snapshots fall back to a JSON round-trip. See [Clone].
package state
