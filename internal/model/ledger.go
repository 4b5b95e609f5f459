package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BpsDenominator is 100% expressed in basis points.
const BpsDenominator = 10000

// Address identifies an investor, agent controller or privileged role holder.
type Address string

// IsZero reports whether the address is empty or blank.
func (a Address) IsZero() bool { return strings.TrimSpace(string(a)) == "" }

func (a Address) String() string { return string(a) }

// Investor is one row of the investor table.
// DepositedAmount is cumulative and informational only.
type Investor struct {
	Address         Address         `json:"address"`
	Shares          decimal.Decimal `json:"shares"`
	DepositedAmount decimal.Decimal `json:"deposited_amount"`
}

// Totals holds the global ledger scalars.
type Totals struct {
	TotalShares decimal.Decimal `json:"total_shares"`
	TotalAssets decimal.Decimal `json:"total_assets"`
}

// FeeConfig holds the two bounded fee rates in basis points.
type FeeConfig struct {
	PerformanceFeeBps uint32 `json:"performance_fee_bps"`
	ManagementFeeBps  uint32 `json:"management_fee_bps"`
}

// Roles is a read-only view of the access policy.
type Roles struct {
	Admin         Address `json:"admin"`
	Governance    Address `json:"governance"`
	EmergencyStop bool    `json:"emergency_stop"`
}
