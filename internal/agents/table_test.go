package agents

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTreasury/internal/fault"
)

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	tbl := New()

	a, err := tbl.Register("alpha", "0xa", 2500)
	require.NoError(t, err)
	b, err := tbl.Register("beta", "0xb", 10000)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), a.ID)
	assert.Equal(t, uint64(2), b.ID)
	assert.True(t, a.Active)
	assert.Zero(t, a.TotalTrades)
	assert.True(t, a.TotalPnL.IsZero())
}

func TestRegisterRejectsOverAllocation(t *testing.T) {
	tbl := New()

	_, err := tbl.Register("greedy", "0xg", 15000)
	require.ErrorIs(t, err, fault.ErrValidation)
	assert.Contains(t, err.Error(), "allocation exceeds 100%")
	assert.Zero(t, tbl.Len())

	// the id is not consumed by a rejected registration
	a, err := tbl.Register("ok", "0xo", 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.ID)
}

func TestAllocationsAreAdvisory(t *testing.T) {
	tbl := New()
	for i := 0; i < 3; i++ {
		_, err := tbl.Register("agent", "0x", 6000)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(18000), tbl.TotalAllocation())

	_, err := tbl.SetStatus(2, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(12000), tbl.TotalAllocation())
}

func TestUpdateAllocation(t *testing.T) {
	tbl := New()
	_, err := tbl.Register("alpha", "0xa", 100)
	require.NoError(t, err)

	_, err = tbl.UpdateAllocation(1, 10001)
	assert.ErrorIs(t, err, fault.ErrValidation)
	_, err = tbl.UpdateAllocation(9, 10)
	assert.ErrorIs(t, err, fault.ErrNotFound)

	a, err := tbl.UpdateAllocation(1, 10000)
	require.NoError(t, err)
	assert.Equal(t, uint32(10000), a.AllocationBps)
}

func TestSetStatusIdempotent(t *testing.T) {
	tbl := New()
	_, err := tbl.Register("alpha", "0xa", 100)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		a, err := tbl.SetStatus(1, false)
		require.NoError(t, err)
		assert.False(t, a.Active)
	}
	_, err = tbl.SetStatus(42, true)
	assert.ErrorIs(t, err, fault.ErrNotFound)
}

func TestRecordTradeAccumulatesSignedPnL(t *testing.T) {
	tbl := New()
	_, err := tbl.Register("alpha", "0xa", 100)
	require.NoError(t, err)

	for _, pnl := range []int64{1000, -500, 750} {
		_, err := tbl.RecordTrade(1, decimal.NewFromInt(pnl))
		require.NoError(t, err)
	}

	a, err := tbl.Get(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), a.TotalTrades)
	assert.Equal(t, "1250", a.TotalPnL.String())

	_, err = tbl.RecordTrade(1, decimal.NewFromInt(-5000))
	require.NoError(t, err)
	pnl, err := tbl.PnL(1)
	require.NoError(t, err)
	assert.Equal(t, "-3750", pnl.String())
}

func TestRecordTradeRejections(t *testing.T) {
	tbl := New()
	_, err := tbl.Register("alpha", "0xa", 100)
	require.NoError(t, err)

	_, err = tbl.RecordTrade(2, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, fault.ErrNotFound)

	_, err = tbl.RecordTrade(1, decimal.RequireFromString("0.5"))
	assert.ErrorIs(t, err, fault.ErrValidation)

	for _, huge := range []string{"1e50000000", "-1e50000000", "1e-50000000"} {
		_, err = tbl.RecordTrade(1, decimal.RequireFromString(huge))
		assert.ErrorIsf(t, err, fault.ErrValidation, "pnl %s", huge)
	}

	_, err = tbl.SetStatus(1, false)
	require.NoError(t, err)
	_, err = tbl.RecordTrade(1, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, fault.ErrState)

	a, _ := tbl.Get(1)
	assert.Zero(t, a.TotalTrades)
	assert.True(t, a.TotalPnL.IsZero())
}

func TestTop(t *testing.T) {
	tbl := New()
	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := tbl.Register(name, "0x", 0)
		require.NoError(t, err)
	}
	scores := map[uint64]float64{1: 10, 2: 90, 3: 90}

	got := tbl.Top(3, scores)
	ids := make([]uint64, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]uint64{2, 3, 1}, ids); diff != "" {
		t.Errorf("top ids mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, tbl.Top(10, scores), 4)
	assert.Empty(t, tbl.Top(0, scores))
	assert.Equal(t, uint64(4), tbl.Top(4, scores)[3].ID, "unscored agent ranks last")
}

func TestFromState(t *testing.T) {
	src := New()
	_, err := src.Register("a", "0x", 1)
	require.NoError(t, err)
	_, err = src.Register("b", "0x", 2)
	require.NoError(t, err)

	tbl, err := FromState(src.List(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tbl.NextID())

	_, err = FromState(append(src.List(), src.List()[0]), 5)
	assert.ErrorIs(t, err, fault.ErrValidation)

	rows := src.List()
	rows[1].TotalPnL = decimal.RequireFromString("1e90")
	_, err = FromState(rows, 0)
	assert.ErrorIs(t, err, fault.ErrValidation)
}
