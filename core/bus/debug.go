package bus

import "time"

// EventDebug is a diagnostic view of one event name.
type EventDebug struct {
	HandlerCount int
	OnceCount    int
	OldestAt     time.Time
	NewestAt     time.Time
	LastEmitted  time.Time
	EmitCount    uint64
}

// Debug returns per-event diagnostics. Events that were emitted but have
// no handlers, and events with handlers that were never emitted, are
// both included. Diagnostic only; no behavioral effect.
func (b *Bus) Debug() map[string]EventDebug {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := map[string]EventDebug{}
	for _, event := range b.handlers.Keys() {
		hs, ok := b.handlers.Get(event)
		if !ok {
			continue
		}
		d := EventDebug{HandlerCount: len(hs.entries)}
		for _, e := range hs.entries {
			if e.once {
				d.OnceCount++
			}
			if d.OldestAt.IsZero() || e.registeredAt.Before(d.OldestAt) {
				d.OldestAt = e.registeredAt
			}
			if e.registeredAt.After(d.NewestAt) {
				d.NewestAt = e.registeredAt
			}
		}
		out[event] = d
	}
	for event, st := range b.stats {
		d := out[event]
		d.LastEmitted = st.lastEmitted
		d.EmitCount = st.count
		out[event] = d
	}
	return out
}
