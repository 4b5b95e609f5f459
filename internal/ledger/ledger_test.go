package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTreasury/internal/fault"
	"AgentTreasury/internal/model"
)

const (
	investor1 = model.Address("investor1")
	investor2 = model.Address("investor2")
)

func units(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func assertDec(t *testing.T, want int64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, got.Equal(units(want)), "%s: want %d, got %s", msg, want, got)
}

func sumShares(l *Ledger) decimal.Decimal {
	sum := decimal.Zero
	for _, inv := range l.Investors() {
		sum = sum.Add(inv.Shares)
	}
	return sum
}

func TestScenarioTwoDepositorsAtPar(t *testing.T) {
	l := New()

	r, err := l.Deposit(investor1, units(10))
	require.NoError(t, err)
	assertDec(t, 10, r.Shares, "first deposit shares")
	assertDec(t, 10, l.Totals().TotalShares, "total shares")
	assertDec(t, 10, l.Totals().TotalAssets, "total assets")

	r, err = l.Deposit(investor2, units(5))
	require.NoError(t, err)
	assertDec(t, 5, r.Shares, "second deposit shares")
	assertDec(t, 15, l.Totals().TotalShares, "total shares")
	assertDec(t, 15, l.Totals().TotalAssets, "total assets")

	inv, ok := l.Investor(investor2)
	require.True(t, ok)
	assertDec(t, 5, inv.Shares, "investor2 shares")
	assertDec(t, 5, inv.DepositedAmount, "investor2 deposited")
}

func TestFirstDepositBootstrapsOneToOne(t *testing.T) {
	l := New()
	r, err := l.Deposit(investor1, units(123456789))
	require.NoError(t, err)
	assertDec(t, 123456789, r.Shares, "shares")
	assert.Equal(t, "1", l.SharePrice().String())
}

func TestDepositValidation(t *testing.T) {
	l := New()

	_, err := l.Deposit(investor1, decimal.Zero)
	assert.ErrorIs(t, err, fault.ErrValidation)
	_, err = l.Deposit(investor1, units(-3))
	assert.ErrorIs(t, err, fault.ErrValidation)
	_, err = l.Deposit(investor1, decimal.RequireFromString("1.5"))
	assert.ErrorIs(t, err, fault.ErrValidation)
	_, err = l.Deposit("", units(1))
	assert.ErrorIs(t, err, fault.ErrValidation)

	assert.True(t, l.Totals().TotalShares.IsZero())
	assert.Empty(t, l.Investors())
}

func TestOversizedInputsRejectedQuickly(t *testing.T) {
	l := New()
	_, err := l.Deposit(investor1, units(10))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, s := range []string{"1e50000000", "1e-50000000", "1e79"} {
			_, err := l.Deposit(investor2, decimal.RequireFromString(s))
			assert.ErrorIsf(t, err, fault.ErrValidation, "deposit %s", s)
			_, err = l.Withdraw(investor1, decimal.RequireFromString(s))
			assert.ErrorIsf(t, err, fault.ErrValidation, "withdraw %s", s)
			assert.Truef(t, l.PreviewDeposit(decimal.RequireFromString(s)).IsZero(), "preview %s", s)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("oversized inputs were not rejected before arithmetic")
	}
	assertDec(t, 10, l.Totals().TotalAssets, "unchanged assets")
}

func TestMinFirstDeposit(t *testing.T) {
	l := New(WithMinFirstDeposit(units(1000)))

	_, err := l.Deposit(investor1, units(1))
	assert.ErrorIs(t, err, fault.ErrValidation)

	_, err = l.Deposit(investor1, units(1000))
	require.NoError(t, err)
	// the floor only applies to the bootstrap deposit
	_, err = l.Deposit(investor2, units(1))
	require.NoError(t, err)
}

func TestZeroShareDepositRejected(t *testing.T) {
	l := New()
	_, err := l.Deposit(investor1, units(1))
	require.NoError(t, err)
	// Simulate value accruing to the pool: 1 share now backs 1000 units.
	l.totals.TotalAssets = units(1000)

	_, err = l.Deposit(investor2, units(999))
	assert.ErrorIs(t, err, fault.ErrValidation)
	_, ok := l.Investor(investor2)
	assert.False(t, ok)
}

func TestWithdrawRoundTripNeverExceedsDeposit(t *testing.T) {
	l := New()
	_, err := l.Deposit(investor1, units(7))
	require.NoError(t, err)
	l.totals.TotalAssets = units(10) // price 10/7

	r, err := l.Deposit(investor2, units(5))
	require.NoError(t, err)
	// 5 * 7 / 10 = 3.5 -> 3 shares
	assertDec(t, 3, r.Shares, "minted")

	out, err := l.Withdraw(investor2, r.Shares)
	require.NoError(t, err)
	// 3 * 15 / 10 = 4.5 -> 4
	assertDec(t, 4, out.Amount, "redeemed")
	assert.True(t, out.Amount.LessThanOrEqual(units(5)))
}

func TestWithdrawValidation(t *testing.T) {
	l := New()
	_, err := l.Deposit(investor1, units(10))
	require.NoError(t, err)

	_, err = l.Withdraw(investor1, decimal.Zero)
	assert.ErrorIs(t, err, fault.ErrValidation)
	_, err = l.Withdraw(investor1, units(11))
	assert.ErrorIs(t, err, fault.ErrState)
	_, err = l.Withdraw(investor2, units(1))
	assert.ErrorIs(t, err, fault.ErrState)

	assertDec(t, 10, l.Totals().TotalShares, "unchanged shares")
	assertDec(t, 10, l.Totals().TotalAssets, "unchanged assets")
}

func TestFullExitLeavesHistoricalRow(t *testing.T) {
	l := New()
	_, err := l.Deposit(investor1, units(10))
	require.NoError(t, err)
	_, err = l.Withdraw(investor1, units(10))
	require.NoError(t, err)

	inv, ok := l.Investor(investor1)
	require.True(t, ok)
	assert.True(t, inv.Shares.IsZero())
	assertDec(t, 10, inv.DepositedAmount, "deposited is cumulative")
	assert.Equal(t, "1", l.SharePrice().String())
}

func TestReceiptRevert(t *testing.T) {
	l := New()
	_, err := l.Deposit(investor1, units(10))
	require.NoError(t, err)
	before := l.Totals()
	beforeRow, _ := l.Investor(investor1)

	r, err := l.Deposit(investor2, units(4))
	require.NoError(t, err)
	r.Revert()
	_, ok := l.Investor(investor2)
	assert.False(t, ok, "new row removed on revert")
	assert.Equal(t, before, l.Totals())

	r, err = l.Withdraw(investor1, units(3))
	require.NoError(t, err)
	r.Revert()
	row, _ := l.Investor(investor1)
	assert.Equal(t, beforeRow, row)
	assert.Equal(t, before, l.Totals())
}

func TestCloneAndSync(t *testing.T) {
	live := New()
	_, err := live.Deposit(investor1, units(100))
	require.NoError(t, err)
	view := live.Clone()

	_, err = live.Deposit(investor2, units(50))
	require.NoError(t, err)
	_, err = live.Withdraw(investor1, units(30))
	require.NoError(t, err)

	// the copy does not see conversions until synced
	assertDec(t, 100, view.Totals().TotalAssets, "view assets")
	_, ok := view.Investor(investor2)
	assert.False(t, ok)

	view.Sync(live, investor2)
	view.Sync(live, investor1)
	assert.Equal(t, live.Totals(), view.Totals())
	assert.Equal(t, live.Investors(), view.Investors())

	// a reverted first deposit drops the row from the copy too
	rc, err := live.Deposit("investor3", units(5))
	require.NoError(t, err)
	view.Sync(live, "investor3")
	rc.Revert()
	view.Sync(live, "investor3")
	_, ok = view.Investor("investor3")
	assert.False(t, ok)
	assert.Equal(t, live.Totals(), view.Totals())
}

func TestSharePriceNonDecreasingWithoutWithdrawals(t *testing.T) {
	l := New()
	rng := rand.New(rand.NewSource(7))
	_, err := l.Deposit(investor1, units(1000))
	require.NoError(t, err)
	l.totals.TotalAssets = units(1337)

	price := l.SharePrice()
	for i := 0; i < 200; i++ {
		_, err := l.Deposit(investor2, units(rng.Int63n(5000)+10))
		require.NoError(t, err)
		next := l.SharePrice()
		require.Truef(t, next.GreaterThanOrEqual(price), "step %d: price fell from %s to %s", i, price, next)
		price = next
	}
}

func TestInvariantsUnderRandomSequence(t *testing.T) {
	l := New()
	rng := rand.New(rand.NewSource(42))
	addrs := []model.Address{"a", "b", "c", "d"}
	net := decimal.Zero
	ops := 0

	for i := 0; i < 2000; i++ {
		who := addrs[rng.Intn(len(addrs))]
		if rng.Intn(3) > 0 {
			amt := units(rng.Int63n(1_000_000) + 1)
			r, err := l.Deposit(who, amt)
			if err != nil {
				require.ErrorIs(t, err, fault.ErrValidation)
				continue
			}
			net = net.Add(r.Amount)
		} else {
			inv, ok := l.Investor(who)
			if !ok || inv.Shares.IsZero() {
				continue
			}
			burn := units(rng.Int63n(inv.Shares.IntPart()) + 1)
			r, err := l.Withdraw(who, burn)
			require.NoError(t, err)
			net = net.Sub(r.Amount)
		}
		ops++

		require.True(t, l.Totals().TotalShares.Equal(sumShares(l)), "share total matches investor sum")
	}

	// Assets track net flows exactly; dust stays in the pool and is never paid out.
	assert.True(t, l.Totals().TotalAssets.Equal(net))
	for _, inv := range l.Investors() {
		assert.True(t, inv.Shares.Sign() >= 0)
	}
	redeemAll := decimal.Zero
	for _, inv := range l.Investors() {
		redeemAll = redeemAll.Add(l.PreviewRedeem(inv.Shares))
	}
	dust := l.Totals().TotalAssets.Sub(redeemAll)
	assert.True(t, dust.Sign() >= 0)
	assert.True(t, dust.LessThanOrEqual(units(int64(ops))), "dust bounded by operation count")
}

func TestFromStateRejectsMismatch(t *testing.T) {
	_, err := FromState(model.Totals{TotalShares: units(11), TotalAssets: units(11)}, []model.Investor{
		{Address: investor1, Shares: units(10), DepositedAmount: units(10)},
	})
	assert.ErrorIs(t, err, fault.ErrValidation)

	l, err := FromState(model.Totals{TotalShares: units(10), TotalAssets: units(12)}, []model.Investor{
		{Address: investor1, Shares: units(10), DepositedAmount: units(10)},
	})
	require.NoError(t, err)
	assert.Equal(t, "1.2", l.SharePrice().String())

	// shares with no assets behind them would let the next deposit mint at 1:1
	_, err = FromState(model.Totals{TotalShares: units(10), TotalAssets: decimal.Zero}, []model.Investor{
		{Address: investor1, Shares: units(10), DepositedAmount: units(10)},
	})
	assert.ErrorIs(t, err, fault.ErrValidation)
}
