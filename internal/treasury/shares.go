package treasury

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"AgentTreasury/internal/fault"
	"AgentTreasury/internal/model"
)

// Deposit mints shares for amount and pulls the asset from investor into the
// pool. It returns the shares minted.
func (t *Treasury) Deposit(ctx context.Context, investor model.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	const op = "deposit"
	ctx, leave, err := t.enter(ctx, op)
	if err != nil {
		t.observe(op, investor, err)
		return decimal.Zero, err
	}
	defer leave()

	minted, err := t.deposit(ctx, investor, amount)
	t.observe(op, investor, err)
	return minted, err
}

func (t *Treasury) deposit(ctx context.Context, investor model.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	const op = "deposit"
	if err := t.policy.RequireRunning(op); err != nil {
		return decimal.Zero, err
	}

	rc, err := t.live.Deposit(investor, amount)
	if err != nil {
		return decimal.Zero, err
	}

	if err := t.custody.Receive(ctx, investor, amount); err != nil {
		rc.Revert()
		return decimal.Zero, fault.Wrap(fault.KindState, op, "asset transfer failed", err)
	}

	evt := t.settle(investor, model.Event{
		Kind:     model.EventDeposit,
		Actor:    investor,
		Investor: investor,
		Amount:   rc.Amount,
		Shares:   rc.Shares,
	})
	t.log.Info("deposit",
		zap.Uint64("seq", evt.Seq),
		zap.String("investor", investor.String()),
		zap.String("amount", rc.Amount.String()),
		zap.String("shares", rc.Shares.String()))
	return rc.Shares, nil
}

// Withdraw burns shares from investor and pushes the proportional amount out
// of the pool. It returns the amount paid.
func (t *Treasury) Withdraw(ctx context.Context, investor model.Address, shares decimal.Decimal) (decimal.Decimal, error) {
	const op = "withdraw"
	ctx, leave, err := t.enter(ctx, op)
	if err != nil {
		t.observe(op, investor, err)
		return decimal.Zero, err
	}
	defer leave()

	amount, err := t.withdraw(ctx, investor, shares)
	t.observe(op, investor, err)
	return amount, err
}

func (t *Treasury) withdraw(ctx context.Context, investor model.Address, shares decimal.Decimal) (decimal.Decimal, error) {
	const op = "withdraw"
	if err := t.policy.RequireRunning(op); err != nil {
		return decimal.Zero, err
	}

	rc, err := t.live.Withdraw(investor, shares)
	if err != nil {
		return decimal.Zero, err
	}

	if rc.Amount.Sign() > 0 {
		if err := t.custody.Send(ctx, investor, rc.Amount); err != nil {
			rc.Revert()
			return decimal.Zero, fault.Wrap(fault.KindState, op, "asset transfer failed", err)
		}
	}

	evt := t.settle(investor, model.Event{
		Kind:     model.EventWithdrawal,
		Actor:    investor,
		Investor: investor,
		Amount:   rc.Amount,
		Shares:   rc.Shares,
	})
	t.log.Info("withdrawal",
		zap.Uint64("seq", evt.Seq),
		zap.String("investor", investor.String()),
		zap.String("shares", rc.Shares.String()),
		zap.String("amount", rc.Amount.String()))
	return rc.Amount, nil
}

// settle publishes the live conversion for investor to readers together with
// its event sequence number.
func (t *Treasury) settle(investor model.Address, evt model.Event) model.Event {
	t.mu.Lock()
	t.ledger.Sync(t.live, investor)
	evt = t.stamp(evt)
	t.mu.Unlock()
	t.publish(evt)
	return evt
}

// SharePrice returns totalAssets / totalShares, 1 for an empty pool.
func (t *Treasury) SharePrice() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.SharePrice()
}

// PreviewDeposit returns the shares amount would mint at the current price.
func (t *Treasury) PreviewDeposit(amount decimal.Decimal) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.PreviewDeposit(amount)
}

// PreviewRedeem returns the amount shares would redeem at the current price.
func (t *Treasury) PreviewRedeem(shares decimal.Decimal) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.PreviewRedeem(shares)
}

// Investor returns one investor row and its current redeemable value.
func (t *Treasury) Investor(addr model.Address) (model.Investor, decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	inv, ok := t.ledger.Investor(addr)
	if !ok {
		return model.Investor{}, decimal.Zero, fault.NotFound("getInvestor", "investor "+addr.String()+" not found")
	}
	return inv, t.ledger.PreviewRedeem(inv.Shares), nil
}

// Totals returns the global ledger scalars.
func (t *Treasury) Totals() model.Totals {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.Totals()
}
