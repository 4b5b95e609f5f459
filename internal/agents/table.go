// Package agents keeps the agent allocation table: advisory weights, activity
// flags and cumulative trade results per trading agent.
package agents

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"AgentTreasury/internal/calculator"
	"AgentTreasury/internal/fault"
	"AgentTreasury/internal/model"
)

// MaxAllocationBps is 100%.
const MaxAllocationBps = model.BpsDenominator

// Table is not safe for concurrent use; the treasury serializes access.
type Table struct {
	agents map[uint64]*model.Agent
	nextID uint64
	now    func() time.Time
}

// New returns an empty table. Ids start at 1.
func New() *Table {
	return &Table{agents: make(map[uint64]*model.Agent), nextID: 1, now: time.Now}
}

// FromState rebuilds a table from persisted rows.
func FromState(rows []model.Agent, nextID uint64) (*Table, error) {
	t := New()
	var maxID uint64
	for _, a := range rows {
		if a.ID == 0 {
			return nil, fault.Invalid("restore", "agent id 0 is reserved")
		}
		if _, dup := t.agents[a.ID]; dup {
			return nil, fault.Invalid("restore", fmt.Sprintf("duplicate agent id %d", a.ID))
		}
		if a.AllocationBps > MaxAllocationBps {
			return nil, fault.Invalid("restore", fmt.Sprintf("agent %d allocation out of range", a.ID))
		}
		if !calculator.Bounded(a.TotalPnL) || !a.TotalPnL.IsInteger() {
			return nil, fault.Invalid("restore", fmt.Sprintf("agent %d has malformed pnl", a.ID))
		}
		a := a
		t.agents[a.ID] = &a
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	if nextID <= maxID {
		nextID = maxID + 1
	}
	t.nextID = nextID
	return t, nil
}

// Register creates an active agent with the next sequential id.
func (t *Table) Register(name string, controller model.Address, allocationBps uint32) (model.Agent, error) {
	if allocationBps > MaxAllocationBps {
		return model.Agent{}, fault.Invalid("registerAgent", "allocation exceeds 100%")
	}
	a := &model.Agent{
		ID:            t.nextID,
		Name:          name,
		Controller:    controller,
		AllocationBps: allocationBps,
		Active:        true,
		TotalPnL:      decimal.Zero,
		RegisteredAt:  t.now().UTC(),
	}
	t.agents[a.ID] = a
	t.nextID++
	return *a, nil
}

// SetStatus sets the active flag. Setting the current value is a no-op.
func (t *Table) SetStatus(id uint64, active bool) (model.Agent, error) {
	a, err := t.lookup("setAgentStatus", id)
	if err != nil {
		return model.Agent{}, err
	}
	a.Active = active
	return *a, nil
}

// UpdateAllocation changes an agent's advisory weight.
func (t *Table) UpdateAllocation(id uint64, allocationBps uint32) (model.Agent, error) {
	const op = "updateAllocation"
	if allocationBps > MaxAllocationBps {
		return model.Agent{}, fault.Invalid(op, "allocation exceeds 100%")
	}
	a, err := t.lookup(op, id)
	if err != nil {
		return model.Agent{}, err
	}
	a.AllocationBps = allocationBps
	return *a, nil
}

// RecordTrade counts one trade and adds pnl, which may be negative, to the
// agent's cumulative result. There is no floor on the total.
func (t *Table) RecordTrade(id uint64, pnl decimal.Decimal) (model.Agent, error) {
	const op = "recordTrade"
	if !calculator.Bounded(pnl) {
		return model.Agent{}, fault.Invalid(op, "pnl out of range")
	}
	if !pnl.IsInteger() {
		return model.Agent{}, fault.Invalid(op, "pnl must be a whole number of units")
	}
	a, err := t.lookup(op, id)
	if err != nil {
		return model.Agent{}, err
	}
	if !a.Active {
		return model.Agent{}, fault.State(op, fmt.Sprintf("agent %d is inactive", id))
	}
	a.TotalTrades++
	a.TotalPnL = a.TotalPnL.Add(pnl)
	return *a, nil
}

// PnL returns the agent's cumulative signed result.
func (t *Table) PnL(id uint64) (decimal.Decimal, error) {
	a, err := t.lookup("getAgentPnL", id)
	if err != nil {
		return decimal.Zero, err
	}
	return a.TotalPnL, nil
}

// Get returns a copy of one agent.
func (t *Table) Get(id uint64) (model.Agent, error) {
	a, err := t.lookup("getAgent", id)
	if err != nil {
		return model.Agent{}, err
	}
	return *a, nil
}

// List returns all agents ordered by id.
func (t *Table) List() []model.Agent {
	out := make([]model.Agent, 0, len(t.agents))
	for _, a := range t.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered agents.
func (t *Table) Len() int { return len(t.agents) }

// NextID returns the id the next registration will receive.
func (t *Table) NextID() uint64 { return t.nextID }

// TotalAllocation sums the allocation of active agents. The sum is not
// bounded: allocations are advisory weights, not a custody split.
func (t *Table) TotalAllocation() uint64 {
	var sum uint64
	for _, a := range t.agents {
		if a.Active {
			sum += uint64(a.AllocationBps)
		}
	}
	return sum
}

// Top returns at most n agents ranked by score, highest first. Agents without
// a score rank as zero; ties break by ascending id.
func (t *Table) Top(n int, scores map[uint64]float64) []model.RankedAgent {
	if n <= 0 {
		return []model.RankedAgent{}
	}
	ranked := make([]model.RankedAgent, 0, len(t.agents))
	for _, a := range t.agents {
		ranked = append(ranked, model.RankedAgent{Agent: *a, Reputation: scores[a.ID]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Reputation != ranked[j].Reputation {
			return ranked[i].Reputation > ranked[j].Reputation
		}
		return ranked[i].ID < ranked[j].ID
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

func (t *Table) lookup(op string, id uint64) (*model.Agent, error) {
	a, ok := t.agents[id]
	if !ok {
		return nil, fault.NotFound(op, fmt.Sprintf("agent %d not found", id))
	}
	return a, nil
}
