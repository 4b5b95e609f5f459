// Package custody moves the underlying asset between investor wallets and
// the pool. The treasury calls it as the last step of a deposit or withdrawal.
package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"AgentTreasury/internal/model"
)

// ErrInsufficientFunds is returned when a wallet or the pool cannot cover a transfer.
var ErrInsufficientFunds = errors.New("custody: insufficient funds")

// Custody performs the external value transfer. Implementations must pass
// the ctx they receive to anything that can call back into the treasury.
type Custody interface {
	// Receive pulls amount from an investor wallet into the pool.
	Receive(ctx context.Context, from model.Address, amount decimal.Decimal) error
	// Send pushes amount from the pool out to an investor wallet.
	Send(ctx context.Context, to model.Address, amount decimal.Decimal) error
}

// Direction of a transfer, seen from the pool.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Hook runs after a Vault transfer has settled. A non-nil error fails the
// transfer and undoes it.
type Hook func(ctx context.Context, dir Direction, who model.Address, amount decimal.Decimal) error

// Vault is an in-memory Custody holding wallet balances and the pool balance.
type Vault struct {
	mu      sync.Mutex
	wallets map[model.Address]decimal.Decimal
	pool    decimal.Decimal
	hook    Hook
}

func NewVault() *Vault {
	return &Vault{wallets: make(map[model.Address]decimal.Decimal), pool: decimal.Zero}
}

// SetHook installs a post-transfer hook.
func (v *Vault) SetHook(h Hook) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hook = h
}

// Fund credits a wallet from outside the system.
func (v *Vault) Fund(who model.Address, amount decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.wallets[who] = v.balance(who).Add(amount)
}

// FundPool credits the pool directly, as when resuming from a snapshot whose
// assets are already held.
func (v *Vault) FundPool(amount decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pool = v.pool.Add(amount)
}

// Balance returns a wallet balance.
func (v *Vault) Balance(who model.Address) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance(who)
}

// Pool returns the pooled balance.
func (v *Vault) Pool() decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pool
}

func (v *Vault) Receive(ctx context.Context, from model.Address, amount decimal.Decimal) error {
	v.mu.Lock()
	bal := v.balance(from)
	if bal.LessThan(amount) {
		v.mu.Unlock()
		return fmt.Errorf("receive %s from %s: %w", amount, from, ErrInsufficientFunds)
	}
	v.wallets[from] = bal.Sub(amount)
	v.pool = v.pool.Add(amount)
	hook := v.hook
	v.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, In, from, amount); err != nil {
			v.mu.Lock()
			v.wallets[from] = v.balance(from).Add(amount)
			v.pool = v.pool.Sub(amount)
			v.mu.Unlock()
			return err
		}
	}
	return nil
}

func (v *Vault) Send(ctx context.Context, to model.Address, amount decimal.Decimal) error {
	v.mu.Lock()
	if v.pool.LessThan(amount) {
		v.mu.Unlock()
		return fmt.Errorf("send %s to %s: %w", amount, to, ErrInsufficientFunds)
	}
	v.pool = v.pool.Sub(amount)
	v.wallets[to] = v.balance(to).Add(amount)
	hook := v.hook
	v.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, Out, to, amount); err != nil {
			v.mu.Lock()
			v.pool = v.pool.Add(amount)
			v.wallets[to] = v.balance(to).Sub(amount)
			v.mu.Unlock()
			return err
		}
	}
	return nil
}

func (v *Vault) balance(who model.Address) decimal.Decimal {
	if b, ok := v.wallets[who]; ok {
		return b
	}
	return decimal.Zero
}
