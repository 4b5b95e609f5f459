package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Agent is a trading agent record. Agents are never deleted.
type Agent struct {
	ID            uint64          `json:"id"`
	Name          string          `json:"name"`
	Controller    Address         `json:"controller"`
	AllocationBps uint32          `json:"allocation_bps"`
	Active        bool            `json:"active"`
	TotalTrades   uint64          `json:"total_trades"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	RegisteredAt  time.Time       `json:"registered_at"`
}

// RankedAgent pairs an agent with the reputation score used to rank it.
type RankedAgent struct {
	Agent
	Reputation float64 `json:"reputation"`
}
