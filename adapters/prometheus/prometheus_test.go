package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusMetrics(reg)

	require.NotNil(t, m)

	m.EmitTotal("state:changed")

	timer := m.DispatchDuration("state:changed")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.HandlerInvoked("state:changed", true)
	m.HandlerInvoked("state:changed", false)

	m.EmissionQueued("state:changed")
	m.EmissionDropped("state:changed")
	m.QueueDepth(3)

	m.HandlerCount("state:changed", 2)
	m.HandlersExpired(1)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)

	require.NotNil(t, m)

	m.StateWrite(true)
	m.StateWrite(false)
	m.ValidationFailure("metrics-set", true)

	m.TransactionBegun()
	m.TransactionCommitted()
	m.TransactionRolledBack(false)
	m.TransactionRolledBack(true)
	m.OpenTransactions(1)

	timer := m.CommitDuration()
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	all := NewAllMetrics(reg)

	require.NotNil(t, all.Bus)
	require.NotNil(t, all.Store)
}
