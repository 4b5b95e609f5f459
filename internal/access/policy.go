// Package access holds the two privileged identities and the emergency stop.
//
// Admin and governance are independent capabilities, not a hierarchy: admin
// cannot record trades and governance cannot change fees.
package access

import (
	"sync"

	"AgentTreasury/internal/fault"
	"AgentTreasury/internal/model"
)

// Role is a capability an operation requires.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleGovernance
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleGovernance:
		return "governance"
	default:
		return "unknown"
	}
}

// Policy is safe for concurrent use.
type Policy struct {
	mu         sync.RWMutex
	admin      model.Address
	governance model.Address
	stopped    bool
}

// NewPolicy creates a policy. The admin identity is fixed for the policy's lifetime.
func NewPolicy(admin, governance model.Address) (*Policy, error) {
	if admin.IsZero() {
		return nil, fault.Invalid("newPolicy", "admin address required")
	}
	if governance.IsZero() {
		return nil, fault.Invalid("newPolicy", "governance address required")
	}
	return &Policy{admin: admin, governance: governance}, nil
}

// FromRoles rebuilds a policy from a persisted snapshot.
func FromRoles(r model.Roles) (*Policy, error) {
	p, err := NewPolicy(r.Admin, r.Governance)
	if err != nil {
		return nil, err
	}
	p.stopped = r.EmergencyStop
	return p, nil
}

// Require fails with an AuthorizationError unless caller holds role.
func (p *Policy) Require(op string, caller model.Address, role Role) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.require(op, caller, role)
}

func (p *Policy) require(op string, caller model.Address, role Role) error {
	var holder model.Address
	switch role {
	case RoleAdmin:
		holder = p.admin
	case RoleGovernance:
		holder = p.governance
	default:
		return fault.Unauthorized(op, "unknown role")
	}
	if caller.IsZero() || caller != holder {
		return fault.Unauthorized(op, role.String()+" role required")
	}
	return nil
}

// RequireRunning fails with a StateError while the emergency stop is active.
func (p *Policy) RequireRunning(op string) error {
	if p.Stopped() {
		return fault.State(op, "emergency stop active")
	}
	return nil
}

// SetGovernance rotates the governance identity. Admin only.
func (p *Policy) SetGovernance(caller, next model.Address) error {
	const op = "setGovernance"
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.require(op, caller, RoleAdmin); err != nil {
		return err
	}
	if next.IsZero() {
		return fault.Invalid(op, "governance address required")
	}
	p.governance = next
	return nil
}

// ActivateEmergencyStop halts deposits and withdrawals. Admin only.
// There is no way back: the breaker is one-way.
func (p *Policy) ActivateEmergencyStop(caller model.Address) error {
	const op = "activateEmergencyStop"
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.require(op, caller, RoleAdmin); err != nil {
		return err
	}
	p.stopped = true
	return nil
}

// Stopped reports whether the emergency stop is active.
func (p *Policy) Stopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// Roles returns a copy of the current role assignment.
func (p *Policy) Roles() model.Roles {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return model.Roles{Admin: p.admin, Governance: p.governance, EmergencyStop: p.stopped}
}
