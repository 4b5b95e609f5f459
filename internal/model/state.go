package model

import "time"

// State is a complete, self-contained snapshot of a treasury. It is what the
// state file stores and what Restore accepts.
type State struct {
	Totals
	Roles
	Fees        FeeConfig  `json:"fees"`
	Investors   []Investor `json:"investors"`
	Agents      []Agent    `json:"agents"`
	NextAgentID uint64     `json:"next_agent_id"`
	Seq         uint64     `json:"seq"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
