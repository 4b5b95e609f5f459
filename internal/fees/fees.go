// Package fees holds the bounded fee configuration.
//
// Fee rates are configuration only: nothing in the treasury deducts them.
// The quote helpers let external fee logic compute amounts with the same
// floor rounding the ledger uses.
package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"AgentTreasury/internal/calculator"
	"AgentTreasury/internal/fault"
	"AgentTreasury/internal/model"
)

const (
	MaxPerformanceFeeBps = 5000
	MaxManagementFeeBps  = 1000
)

// Config is not safe for concurrent use; the treasury serializes access.
type Config struct {
	performanceBps uint32
	managementBps  uint32
}

// New returns a zero fee configuration.
func New() *Config { return &Config{} }

// FromModel validates and loads a persisted configuration.
func FromModel(fc model.FeeConfig) (*Config, error) {
	c := New()
	if err := c.SetPerformanceFee(fc.PerformanceFeeBps); err != nil {
		return nil, err
	}
	if err := c.SetManagementFee(fc.ManagementFeeBps); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) SetPerformanceFee(bps uint32) error {
	if bps > MaxPerformanceFeeBps {
		return fault.Invalid("setPerformanceFee", fmt.Sprintf("fee %d bps exceeds max %d", bps, MaxPerformanceFeeBps))
	}
	c.performanceBps = bps
	return nil
}

func (c *Config) SetManagementFee(bps uint32) error {
	if bps > MaxManagementFeeBps {
		return fault.Invalid("setManagementFee", fmt.Sprintf("fee %d bps exceeds max %d", bps, MaxManagementFeeBps))
	}
	c.managementBps = bps
	return nil
}

// Snapshot returns the current rates.
func (c *Config) Snapshot() model.FeeConfig {
	return model.FeeConfig{PerformanceFeeBps: c.performanceBps, ManagementFeeBps: c.managementBps}
}

// PerformanceFee quotes the fee on a profit. Losses yield zero.
func PerformanceFee(fc model.FeeConfig, profit decimal.Decimal) decimal.Decimal {
	if profit.Sign() <= 0 {
		return decimal.Zero
	}
	return calculator.ApplyBps(profit, fc.PerformanceFeeBps)
}

// ManagementFee quotes one period's management fee on an asset balance.
func ManagementFee(fc model.FeeConfig, assets decimal.Decimal) decimal.Decimal {
	if assets.Sign() <= 0 {
		return decimal.Zero
	}
	return calculator.ApplyBps(assets, fc.ManagementFeeBps)
}
