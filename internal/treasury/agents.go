package treasury

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"AgentTreasury/internal/access"
	"AgentTreasury/internal/model"
)

// RegisterAgent creates an active agent. Governance only.
func (t *Treasury) RegisterAgent(ctx context.Context, caller model.Address, name string, controller model.Address, allocationBps uint32) (model.Agent, error) {
	const op = "registerAgent"
	return t.mutateAgent(ctx, op, caller, func() (model.Agent, error) {
		return t.agents.Register(name, controller, allocationBps)
	}, func(a model.Agent) model.Event {
		return model.Event{Kind: model.EventAgentRegistered, AgentName: a.Name, AllocationBps: a.AllocationBps, Active: a.Active}
	})
}

// SetAgentStatus activates or deactivates an agent. Governance only.
func (t *Treasury) SetAgentStatus(ctx context.Context, caller model.Address, id uint64, active bool) (model.Agent, error) {
	const op = "setAgentStatus"
	return t.mutateAgent(ctx, op, caller, func() (model.Agent, error) {
		return t.agents.SetStatus(id, active)
	}, func(a model.Agent) model.Event {
		return model.Event{Kind: model.EventAgentStatusChanged, AgentName: a.Name, Active: a.Active}
	})
}

// UpdateAllocation changes an agent's advisory weight. Governance only.
func (t *Treasury) UpdateAllocation(ctx context.Context, caller model.Address, id uint64, allocationBps uint32) (model.Agent, error) {
	const op = "updateAllocation"
	return t.mutateAgent(ctx, op, caller, func() (model.Agent, error) {
		return t.agents.UpdateAllocation(id, allocationBps)
	}, func(a model.Agent) model.Event {
		return model.Event{Kind: model.EventAgentAllocationUpdated, AgentName: a.Name, AllocationBps: a.AllocationBps, Active: a.Active}
	})
}

// RecordTrade adds one trade result to an active agent. Governance only.
func (t *Treasury) RecordTrade(ctx context.Context, caller model.Address, id uint64, pnl decimal.Decimal) (model.Agent, error) {
	const op = "recordTrade"
	return t.mutateAgent(ctx, op, caller, func() (model.Agent, error) {
		return t.agents.RecordTrade(id, pnl)
	}, func(a model.Agent) model.Event {
		return model.Event{Kind: model.EventTradeRecorded, AgentName: a.Name, PnL: pnl, TotalPnL: a.TotalPnL, Active: a.Active}
	})
}

func (t *Treasury) mutateAgent(ctx context.Context, op string, caller model.Address, apply func() (model.Agent, error), event func(model.Agent) model.Event) (model.Agent, error) {
	_, leave, err := t.enter(ctx, op)
	if err != nil {
		t.observe(op, caller, err)
		return model.Agent{}, err
	}
	defer leave()

	if err := t.policy.Require(op, caller, access.RoleGovernance); err != nil {
		t.observe(op, caller, err)
		return model.Agent{}, err
	}

	t.mu.Lock()
	a, err := apply()
	t.mu.Unlock()
	if err != nil {
		t.observe(op, caller, err)
		return model.Agent{}, err
	}

	evt := event(a)
	evt.Actor = caller
	evt.AgentID = a.ID
	evt = t.commit(evt)
	t.log.Info(op,
		zap.Uint64("seq", evt.Seq),
		zap.Uint64("agent", a.ID),
		zap.Bool("active", a.Active),
		zap.Uint32("allocation_bps", a.AllocationBps),
		zap.Uint64("trades", a.TotalTrades),
		zap.String("total_pnl", a.TotalPnL.String()))
	t.observe(op, caller, nil)
	return a, nil
}

// AgentPnL returns an agent's cumulative signed result.
func (t *Treasury) AgentPnL(id uint64) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.agents.PnL(id)
}

// Agent returns one agent.
func (t *Treasury) Agent(id uint64) (model.Agent, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.agents.Get(id)
}

// Agents returns all agents ordered by id.
func (t *Treasury) Agents() []model.Agent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.agents.List()
}

// TotalAllocation sums the active agents' weights. It may exceed 10000.
func (t *Treasury) TotalAllocation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.agents.TotalAllocation()
}

// TopAgents returns at most n agents ranked by the external reputation
// signal, highest first.
func (t *Treasury) TopAgents(ctx context.Context, n int) ([]model.RankedAgent, error) {
	t.mu.RLock()
	list := t.agents.List()
	t.mu.RUnlock()

	ids := make([]uint64, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	scores, err := t.reputation.Scores(ctx, ids)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.agents.Top(n, scores), nil
}
