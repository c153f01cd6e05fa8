package store

import "github.com/codewandler/statebus-go/core/metrics"

// StoreMetrics defines the instrumentation surface of the transactional
// store. Implementations must be safe for concurrent use.
type StoreMetrics interface {
	// Writes
	StateWrite(success bool)
	ValidationFailure(validatorID string, required bool)

	// Transactions
	TransactionBegun()
	TransactionCommitted()
	TransactionRolledBack(forced bool)
	OpenTransactions(count int)
	CommitDuration() metrics.Timer
}

// nopStoreMetrics is a no-op implementation of StoreMetrics.
type nopStoreMetrics struct{}

func (nopStoreMetrics) StateWrite(bool)                {}
func (nopStoreMetrics) ValidationFailure(string, bool) {}
func (nopStoreMetrics) TransactionBegun()              {}
func (nopStoreMetrics) TransactionCommitted()          {}
func (nopStoreMetrics) TransactionRolledBack(bool)     {}
func (nopStoreMetrics) OpenTransactions(int)           {}
func (nopStoreMetrics) CommitDuration() metrics.Timer  { return metrics.NopTimer() }

// NopStoreMetrics returns a no-op StoreMetrics implementation.
func NopStoreMetrics() StoreMetrics { return nopStoreMetrics{} }
