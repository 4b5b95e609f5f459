package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind names a committed ledger mutation.
type EventKind string

const (
	EventDeposit                EventKind = "DEPOSIT"
	EventWithdrawal             EventKind = "WITHDRAWAL"
	EventAgentRegistered        EventKind = "AGENT_REGISTERED"
	EventAgentStatusChanged     EventKind = "AGENT_STATUS_CHANGED"
	EventAgentAllocationUpdated EventKind = "AGENT_ALLOCATION_UPDATED"
	EventTradeRecorded          EventKind = "TRADE_RECORDED"
	EventFeeUpdated             EventKind = "FEE_UPDATED"
	EventEmergencyStopActivated EventKind = "EMERGENCY_STOP_ACTIVATED"
	EventGovernanceUpdated      EventKind = "GOVERNANCE_UPDATED"
)

// FeeKind selects one of the two fee rates.
type FeeKind string

const (
	FeePerformance FeeKind = "performance"
	FeeManagement  FeeKind = "management"
)

// Event is emitted once per successful mutation, after the state change and
// any asset transfer have completed. Fields not relevant to Kind are zero.
type Event struct {
	ID    uuid.UUID `json:"id"`
	Seq   uint64    `json:"seq"`
	Kind  EventKind `json:"kind"`
	At    time.Time `json:"at"`
	Actor Address   `json:"actor"`

	// deposit / withdrawal
	Investor Address         `json:"investor,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Shares   decimal.Decimal `json:"shares"`

	// agent lifecycle and trades
	AgentID       uint64          `json:"agent_id,omitempty"`
	AgentName     string          `json:"agent_name,omitempty"`
	Active        bool            `json:"active,omitempty"`
	AllocationBps uint32          `json:"allocation_bps,omitempty"`
	PnL           decimal.Decimal `json:"pnl"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`

	// fees and roles
	Fee        FeeKind `json:"fee,omitempty"`
	Bps        uint32  `json:"bps,omitempty"`
	Governance Address `json:"governance,omitempty"`
}
