package custody

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTreasury/internal/model"
)

var ctx = context.Background()

func TestVaultTransfers(t *testing.T) {
	v := NewVault()
	v.Fund("alice", decimal.NewFromInt(100))

	require.NoError(t, v.Receive(ctx, "alice", decimal.NewFromInt(60)))
	assert.Equal(t, "40", v.Balance("alice").String())
	assert.Equal(t, "60", v.Pool().String())

	err := v.Receive(ctx, "alice", decimal.NewFromInt(41))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	require.NoError(t, v.Send(ctx, "bob", decimal.NewFromInt(10)))
	assert.Equal(t, "10", v.Balance("bob").String())
	assert.ErrorIs(t, v.Send(ctx, "bob", decimal.NewFromInt(51)), ErrInsufficientFunds)
}

func TestVaultHookFailureUndoes(t *testing.T) {
	v := NewVault()
	v.Fund("alice", decimal.NewFromInt(10))
	boom := errors.New("callback rejected")
	v.SetHook(func(context.Context, Direction, model.Address, decimal.Decimal) error { return boom })

	assert.ErrorIs(t, v.Receive(ctx, "alice", decimal.NewFromInt(10)), boom)
	assert.Equal(t, "10", v.Balance("alice").String())
	assert.True(t, v.Pool().IsZero())
}

func TestFundPoolBacksWithdrawals(t *testing.T) {
	v := NewVault()
	v.FundPool(decimal.NewFromInt(25))
	require.NoError(t, v.Send(ctx, "carol", decimal.NewFromInt(25)))
	assert.True(t, v.Pool().IsZero())
}
