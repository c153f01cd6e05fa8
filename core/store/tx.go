package store

import "time"

// TxStatus is the lifecycle state of a transaction. Committed and
// RolledBack are terminal; the transaction record is deleted immediately
// after reaching either.
type TxStatus int

const (
	TxOpen TxStatus = iota
	TxCommitted
	TxRolledBack
)

func (s TxStatus) String() string {
	switch s {
	case TxOpen:
		return "open"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// transaction is an isolated working area for staged edits. original is
// the snapshot at begin time, working the private copy mutated through
// UpdateTransaction. Only open transactions are mutable.
type transaction[S any] struct {
	id        string
	original  S
	working   S
	status    TxStatus
	startedAt time.Time
}
