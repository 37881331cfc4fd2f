package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
)

type ledgerStoreStub struct {
	minutes  map[string]int
	computed map[string]int
	writes   int
	failSet  error
}

func (s *ledgerStoreStub) GetAssignedMinutes(ctx context.Context, exec sqlx.ExtContext, id string) (int, error) {
	return s.minutes[id], nil
}

func (s *ledgerStoreStub) SetAssignedMinutes(ctx context.Context, exec sqlx.ExtContext, id string, minutes int) error {
	if s.failSet != nil {
		return s.failSet
	}
	s.writes++
	s.minutes[id] = minutes
	return nil
}

func (s *ledgerStoreStub) ComputedMinutes(ctx context.Context, exec sqlx.ExtContext, id string) (int, error) {
	return s.computed[id], nil
}

func (s *ledgerStoreStub) Drift(ctx context.Context) ([]models.LedgerDrift, error) {
	var out []models.LedgerDrift
	for id, stored := range s.minutes {
		if s.computed[id] != stored {
			out = append(out, models.LedgerDrift{InstructorID: id, StoredMinutes: stored, ComputedMinutes: s.computed[id]})
		}
	}
	return out, nil
}

type clampCounter struct{ count int }

func (c *clampCounter) RecordLedgerClamp() { c.count++ }

func TestHourLedgerApply(t *testing.T) {
	store := &ledgerStoreStub{minutes: map[string]int{"i1": 60}}
	ledger := NewHourLedger(store, nil, zap.NewNop())

	require.NoError(t, ledger.Apply(context.Background(), nil, "i1", 120))
	assert.Equal(t, 180, store.minutes["i1"])

	require.NoError(t, ledger.Apply(context.Background(), nil, "i1", -90))
	assert.Equal(t, 90, store.minutes["i1"])
}

func TestHourLedgerApplyZeroDeltaSkipsWrite(t *testing.T) {
	store := &ledgerStoreStub{minutes: map[string]int{"i1": 60}}
	ledger := NewHourLedger(store, nil, nil)

	require.NoError(t, ledger.Apply(context.Background(), nil, "i1", 0))
	assert.Zero(t, store.writes)
}

func TestHourLedgerClampsAtZero(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := &ledgerStoreStub{minutes: map[string]int{"i1": 30}}
	clamps := &clampCounter{}
	ledger := NewHourLedger(store, clamps, zap.New(core))

	require.NoError(t, ledger.Apply(context.Background(), nil, "i1", -120))
	assert.Equal(t, 0, store.minutes["i1"])
	assert.Equal(t, 1, clamps.count)

	entries := logs.FilterMessage("hour ledger clamped at zero").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 90, entries[0].ContextMap()["drift_minutes"])
}

func TestHourLedgerApplyWrapsStoreError(t *testing.T) {
	boom := errors.New("disk full")
	store := &ledgerStoreStub{minutes: map[string]int{}, failSet: boom}
	ledger := NewHourLedger(store, nil, nil)

	err := ledger.Apply(context.Background(), nil, "i1", 60)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestHourLedgerApplyMove(t *testing.T) {
	store := &ledgerStoreStub{minutes: map[string]int{"i1": 120, "i3": 0}}
	ledger := NewHourLedger(store, nil, nil)
	ctx := context.Background()

	// same instructor, slot grows from 120 to 150 minutes
	require.NoError(t, ledger.ApplyMove(ctx, nil, "i1", 120, "i1", 150))
	assert.Equal(t, 150, store.minutes["i1"])

	require.NoError(t, ledger.ApplyMove(ctx, nil, "i1", 150, "i3", 150))
	assert.Equal(t, 0, store.minutes["i1"])
	assert.Equal(t, 150, store.minutes["i3"])

	// delete
	require.NoError(t, ledger.ApplyMove(ctx, nil, "i3", 150, "", 0))
	assert.Equal(t, 0, store.minutes["i3"])

	// create
	require.NoError(t, ledger.ApplyMove(ctx, nil, "", 0, "i1", 90))
	assert.Equal(t, 90, store.minutes["i1"])
}

func TestHourLedgerReconcile(t *testing.T) {
	store := &ledgerStoreStub{
		minutes:  map[string]int{"i1": 300, "i2": 60},
		computed: map[string]int{"i1": 240, "i2": 60},
	}
	ledger := NewHourLedger(store, nil, nil)

	drift, err := ledger.Drift(context.Background())
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, "i1", drift[0].InstructorID)

	before, after, err := ledger.Reconcile(context.Background(), nil, "i1")
	require.NoError(t, err)
	assert.Equal(t, 300, before)
	assert.Equal(t, 240, after)
	assert.Equal(t, 240, store.minutes["i1"])

	writes := store.writes
	_, _, err = ledger.Reconcile(context.Background(), nil, "i2")
	require.NoError(t, err)
	assert.Equal(t, writes, store.writes)
}
