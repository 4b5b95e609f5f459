// Package ledger implements share accounting for the pooled asset balance.
//
// Deposits mint shares at the current price and withdrawals burn shares for a
// proportional slice of the assets. Both conversions floor, so rounding dust
// always stays in the pool and accrues to the remaining holders. That is the
// rounding policy, not an error.
package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"AgentTreasury/internal/calculator"
	"AgentTreasury/internal/fault"
	"AgentTreasury/internal/model"
)

// Ledger is not safe for concurrent use; the treasury serializes access.
type Ledger struct {
	investors       map[model.Address]*model.Investor
	totals          model.Totals
	minFirstDeposit decimal.Decimal
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMinFirstDeposit rejects a bootstrap deposit smaller than min.
// The default of one unit leaves the 1:1 bootstrap unrestricted.
func WithMinFirstDeposit(min decimal.Decimal) Option {
	return func(l *Ledger) {
		if min.Sign() > 0 {
			l.minFirstDeposit = min
		}
	}
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		investors:       make(map[model.Address]*model.Investor),
		totals:          model.Totals{TotalShares: decimal.Zero, TotalAssets: decimal.Zero},
		minFirstDeposit: decimal.NewFromInt(1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromState rebuilds a ledger from persisted rows. It rejects snapshots whose
// share total does not match the investor table, and snapshots with shares
// outstanding against an empty pool.
func FromState(totals model.Totals, investors []model.Investor, opts ...Option) (*Ledger, error) {
	l := New(opts...)
	sum := decimal.Zero
	for _, inv := range investors {
		if inv.Address.IsZero() {
			return nil, fault.Invalid("restore", "investor without address")
		}
		if !calculator.IsWhole(inv.Shares) || !calculator.IsWhole(inv.DepositedAmount) {
			return nil, fault.Invalid("restore", fmt.Sprintf("investor %s has malformed balances", inv.Address))
		}
		inv := inv
		l.investors[inv.Address] = &inv
		sum = sum.Add(inv.Shares)
	}
	if !calculator.IsWhole(totals.TotalShares) || !calculator.IsWhole(totals.TotalAssets) {
		return nil, fault.Invalid("restore", "malformed totals")
	}
	if totals.TotalShares.Sign() > 0 && totals.TotalAssets.IsZero() {
		return nil, fault.Invalid("restore", "outstanding shares with no assets")
	}
	if !sum.Equal(totals.TotalShares) {
		return nil, fault.Invalid("restore", fmt.Sprintf("share total %s does not match investor sum %s", totals.TotalShares, sum))
	}
	l.totals = totals
	return l, nil
}

// Clone returns an independent copy of l.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		investors:       make(map[model.Address]*model.Investor, len(l.investors)),
		totals:          l.totals,
		minFirstDeposit: l.minFirstDeposit,
	}
	for addr, row := range l.investors {
		row := *row
		c.investors[addr] = &row
	}
	return c
}

// Sync copies the totals and the row of investor from src. It brings l up to
// date after src applied conversions for that investor only.
func (l *Ledger) Sync(src *Ledger, investor model.Address) {
	l.totals = src.totals
	row, ok := src.investors[investor]
	if !ok {
		delete(l.investors, investor)
		return
	}
	cp := *row
	l.investors[investor] = &cp
}

// Receipt describes an applied conversion and can undo it.
type Receipt struct {
	Investor model.Address
	Amount   decimal.Decimal
	Shares   decimal.Decimal
	revert   func()
}

// Revert restores the ledger to its state before the conversion. It must be
// called before any other mutation.
func (r Receipt) Revert() {
	if r.revert != nil {
		r.revert()
	}
}

// Deposit credits amount to investor and mints shares at the current price.
func (l *Ledger) Deposit(investor model.Address, amount decimal.Decimal) (Receipt, error) {
	const op = "deposit"
	if investor.IsZero() {
		return Receipt{}, fault.Invalid(op, "investor address required")
	}
	if amount.Sign() <= 0 {
		return Receipt{}, fault.Invalid(op, "amount must be positive")
	}
	if !calculator.Bounded(amount) {
		return Receipt{}, fault.Invalid(op, "amount out of range")
	}
	if !amount.IsInteger() {
		return Receipt{}, fault.Invalid(op, "amount must be a whole number of units")
	}
	if l.totals.TotalShares.IsZero() && amount.LessThan(l.minFirstDeposit) {
		return Receipt{}, fault.Invalid(op, fmt.Sprintf("first deposit must be at least %s", l.minFirstDeposit))
	}

	minted := l.PreviewDeposit(amount)
	if minted.IsZero() {
		return Receipt{}, fault.Invalid(op, "amount too small to mint a share")
	}

	prevTotals := l.totals
	prev, existed := l.investors[investor]
	var prevRow model.Investor
	if existed {
		prevRow = *prev
	}

	row := l.row(investor)
	row.Shares = row.Shares.Add(minted)
	row.DepositedAmount = row.DepositedAmount.Add(amount)
	l.totals.TotalShares = l.totals.TotalShares.Add(minted)
	l.totals.TotalAssets = l.totals.TotalAssets.Add(amount)

	return Receipt{
		Investor: investor,
		Amount:   amount,
		Shares:   minted,
		revert: func() {
			l.totals = prevTotals
			if existed {
				*l.investors[investor] = prevRow
			} else {
				delete(l.investors, investor)
			}
		},
	}, nil
}

// Withdraw burns shares from investor and returns the proportional amount.
func (l *Ledger) Withdraw(investor model.Address, shares decimal.Decimal) (Receipt, error) {
	const op = "withdraw"
	if shares.Sign() <= 0 {
		return Receipt{}, fault.Invalid(op, "shares must be positive")
	}
	if !calculator.Bounded(shares) {
		return Receipt{}, fault.Invalid(op, "shares out of range")
	}
	if !shares.IsInteger() {
		return Receipt{}, fault.Invalid(op, "shares must be a whole number")
	}
	row, ok := l.investors[investor]
	if !ok || row.Shares.LessThan(shares) {
		return Receipt{}, fault.State(op, "insufficient shares")
	}

	amount := l.PreviewRedeem(shares)

	prevTotals := l.totals
	prevRow := *row

	row.Shares = row.Shares.Sub(shares)
	l.totals.TotalShares = l.totals.TotalShares.Sub(shares)
	l.totals.TotalAssets = l.totals.TotalAssets.Sub(amount)

	return Receipt{
		Investor: investor,
		Amount:   amount,
		Shares:   shares,
		revert: func() {
			l.totals = prevTotals
			*l.investors[investor] = prevRow
		},
	}, nil
}

// PreviewDeposit returns the shares amount would mint now.
func (l *Ledger) PreviewDeposit(amount decimal.Decimal) decimal.Decimal {
	if amount.Sign() <= 0 || !calculator.Bounded(amount) {
		return decimal.Zero
	}
	if l.totals.TotalShares.IsZero() || l.totals.TotalAssets.IsZero() {
		return amount
	}
	return calculator.MulDivFloor(amount, l.totals.TotalShares, l.totals.TotalAssets)
}

// PreviewRedeem returns the amount shares would redeem now.
func (l *Ledger) PreviewRedeem(shares decimal.Decimal) decimal.Decimal {
	if shares.Sign() <= 0 || !calculator.Bounded(shares) || l.totals.TotalShares.IsZero() {
		return decimal.Zero
	}
	return calculator.MulDivFloor(shares, l.totals.TotalAssets, l.totals.TotalShares)
}

// SharePrice returns totalAssets / totalShares, or 1 for an empty pool.
func (l *Ledger) SharePrice() decimal.Decimal {
	if l.totals.TotalShares.IsZero() {
		return decimal.NewFromInt(1)
	}
	return calculator.Ratio(l.totals.TotalAssets, l.totals.TotalShares, calculator.PricePlaces)
}

// Totals returns the global scalars.
func (l *Ledger) Totals() model.Totals { return l.totals }

// Investor returns a copy of the investor row.
func (l *Ledger) Investor(addr model.Address) (model.Investor, bool) {
	row, ok := l.investors[addr]
	if !ok {
		return model.Investor{}, false
	}
	return *row, true
}

// Investors returns all rows ordered by address, including zero-share rows.
func (l *Ledger) Investors() []model.Investor {
	out := make([]model.Investor, 0, len(l.investors))
	for _, row := range l.investors {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (l *Ledger) row(addr model.Address) *model.Investor {
	row, ok := l.investors[addr]
	if !ok {
		row = &model.Investor{Address: addr, Shares: decimal.Zero, DepositedAmount: decimal.Zero}
		l.investors[addr] = row
	}
	return row
}
