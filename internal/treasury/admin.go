package treasury

import (
	"context"

	"go.uber.org/zap"

	"AgentTreasury/internal/access"
	"AgentTreasury/internal/model"
)

// SetPerformanceFee sets the performance fee rate. Admin only, at most 5000 bps.
func (t *Treasury) SetPerformanceFee(ctx context.Context, caller model.Address, bps uint32) error {
	return t.setFee(ctx, "setPerformanceFee", caller, model.FeePerformance, bps)
}

// SetManagementFee sets the management fee rate. Admin only, at most 1000 bps.
func (t *Treasury) SetManagementFee(ctx context.Context, caller model.Address, bps uint32) error {
	return t.setFee(ctx, "setManagementFee", caller, model.FeeManagement, bps)
}

func (t *Treasury) setFee(ctx context.Context, op string, caller model.Address, kind model.FeeKind, bps uint32) error {
	err := t.admin(ctx, op, caller, func() error {
		t.mu.Lock()
		defer t.mu.Unlock()
		if kind == model.FeePerformance {
			return t.fees.SetPerformanceFee(bps)
		}
		return t.fees.SetManagementFee(bps)
	}, model.Event{Kind: model.EventFeeUpdated, Fee: kind, Bps: bps})
	if err == nil {
		t.log.Info("fee updated", zap.String("fee", string(kind)), zap.Uint32("bps", bps))
	}
	return err
}

// ActivateEmergencyStop halts deposits and withdrawals for good. Admin only.
// Agent management and fee configuration keep working.
func (t *Treasury) ActivateEmergencyStop(ctx context.Context, caller model.Address) error {
	err := t.admin(ctx, "activateEmergencyStop", caller, func() error {
		return t.policy.ActivateEmergencyStop(caller)
	}, model.Event{Kind: model.EventEmergencyStopActivated})
	if err == nil {
		t.log.Warn("emergency stop activated", zap.String("by", caller.String()))
	}
	return err
}

// SetGovernance rotates the governance identity. Admin only.
func (t *Treasury) SetGovernance(ctx context.Context, caller, next model.Address) error {
	err := t.admin(ctx, "setGovernance", caller, func() error {
		return t.policy.SetGovernance(caller, next)
	}, model.Event{Kind: model.EventGovernanceUpdated, Governance: next})
	if err == nil {
		t.log.Info("governance updated", zap.String("governance", next.String()))
	}
	return err
}

func (t *Treasury) admin(ctx context.Context, op string, caller model.Address, apply func() error, evt model.Event) error {
	_, leave, err := t.enter(ctx, op)
	if err != nil {
		t.observe(op, caller, err)
		return err
	}
	defer leave()

	if err := t.policy.Require(op, caller, access.RoleAdmin); err != nil {
		t.observe(op, caller, err)
		return err
	}
	if err := apply(); err != nil {
		t.observe(op, caller, err)
		return err
	}
	evt.Actor = caller
	t.commit(evt)
	t.observe(op, caller, nil)
	return nil
}

// Fees returns the current fee rates.
func (t *Treasury) Fees() model.FeeConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fees.Snapshot()
}

// Roles returns the current role assignment and emergency-stop flag.
func (t *Treasury) Roles() model.Roles {
	return t.policy.Roles()
}

// Snapshot returns a complete copy of the treasury state.
func (t *Treasury) Snapshot() model.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return model.State{
		Totals:      t.ledger.Totals(),
		Roles:       t.policy.Roles(),
		Fees:        t.fees.Snapshot(),
		Investors:   t.ledger.Investors(),
		Agents:      t.agents.List(),
		NextAgentID: t.agents.NextID(),
		Seq:         t.seq,
		UpdatedAt:   t.now().UTC(),
	}
}
