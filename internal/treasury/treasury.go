// Package treasury is the public accounting engine. It puts the share ledger,
// fee configuration and agent table behind the access policy and the
// emergency stop, moves assets through custody and emits one event per
// committed mutation.
//
// Mutating operations are serialized. Each runs checks, then effects, then
// the external transfer; a failed transfer reverts the effects, so a failed
// call leaves no trace. A call made from inside a transfer (a custody
// callback re-entering the treasury with the ctx it was given) is rejected
// with a StateError.
//
// Readers see only committed state. Effects of a deposit or withdrawal become
// visible to them once its transfer has settled; until then only
// InFlightTotals, called with the operation's ctx, shows them.
package treasury

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"AgentTreasury/internal/access"
	"AgentTreasury/internal/agents"
	"AgentTreasury/internal/custody"
	"AgentTreasury/internal/fault"
	"AgentTreasury/internal/fees"
	"AgentTreasury/internal/ledger"
	"AgentTreasury/internal/model"
	"AgentTreasury/internal/reputation"
)

// Publisher receives committed events in commit order.
type Publisher interface {
	Publish(evt model.Event)
}

// Observer is told the outcome of every mutating operation.
type Observer interface {
	ObserveOperation(op string, err error)
}

// Options holds the treasury's collaborators. Custody is required.
type Options struct {
	Custody         custody.Custody
	Reputation      reputation.Source
	Publisher       Publisher
	Observer        Observer
	Logger          *zap.Logger
	MinFirstDeposit decimal.Decimal
	Clock           func() time.Time
}

// Treasury is safe for concurrent use.
//
// A custody callback must re-enter with the ctx it was handed. A mutating call
// made from the callback with any other ctx waits for the running operation,
// which is waiting for the callback, and deadlocks.
type Treasury struct {
	// opMu serializes mutating operations, transfers included.
	opMu sync.Mutex
	// live is touched only by the operation holding opMu.
	live *ledger.Ledger

	// mu guards the committed state below for readers.
	mu     sync.RWMutex
	ledger *ledger.Ledger
	agents *agents.Table
	fees   *fees.Config
	seq    uint64

	policy     *access.Policy
	custody    custody.Custody
	reputation reputation.Source
	pub        Publisher
	obs        Observer
	log        *zap.Logger
	now        func() time.Time
}

// New creates an empty treasury governed by policy.
func New(policy *access.Policy, opts Options) (*Treasury, error) {
	if policy == nil {
		return nil, fault.Invalid("newTreasury", "access policy required")
	}
	if opts.Custody == nil {
		return nil, fault.Invalid("newTreasury", "custody required")
	}
	live := ledger.New(ledger.WithMinFirstDeposit(opts.MinFirstDeposit))
	t := &Treasury{
		live:       live,
		ledger:     live.Clone(),
		agents:     agents.New(),
		fees:       fees.New(),
		policy:     policy,
		custody:    opts.Custody,
		reputation: opts.Reputation,
		pub:        opts.Publisher,
		obs:        opts.Observer,
		log:        opts.Logger,
		now:        opts.Clock,
	}
	if t.reputation == nil {
		t.reputation = reputation.NewStatic(nil)
	}
	if t.log == nil {
		t.log = zap.NewNop()
	}
	t.log = t.log.Named("treasury")
	if t.now == nil {
		t.now = time.Now
	}
	return t, nil
}

// Restore creates a treasury from a persisted snapshot.
func Restore(st model.State, opts Options) (*Treasury, error) {
	policy, err := access.FromRoles(st.Roles)
	if err != nil {
		return nil, err
	}
	t, err := New(policy, opts)
	if err != nil {
		return nil, err
	}
	l, err := ledger.FromState(st.Totals, st.Investors, ledger.WithMinFirstDeposit(opts.MinFirstDeposit))
	if err != nil {
		return nil, err
	}
	a, err := agents.FromState(st.Agents, st.NextAgentID)
	if err != nil {
		return nil, err
	}
	f, err := fees.FromModel(st.Fees)
	if err != nil {
		return nil, err
	}
	t.live, t.ledger, t.agents, t.fees, t.seq = l, l.Clone(), a, f, st.Seq
	return t, nil
}

type guardKey struct{}

// enter acquires the operation lock, rejecting calls made from inside an
// operation of the same treasury. The returned ctx carries the guard marker
// and must be handed to custody.
func (t *Treasury) enter(ctx context.Context, op string) (context.Context, func(), error) {
	if owner, _ := ctx.Value(guardKey{}).(*Treasury); owner == t {
		return nil, nil, fault.State(op, "reentrant call rejected")
	}
	t.opMu.Lock()
	return context.WithValue(ctx, guardKey{}, t), t.opMu.Unlock, nil
}

// InFlightTotals returns the ledger totals as seen by the operation that owns
// ctx, its effects applied before its transfer settles. It is meant for
// custody callbacks. For any other ctx it returns Totals.
func (t *Treasury) InFlightTotals(ctx context.Context) model.Totals {
	if owner, _ := ctx.Value(guardKey{}).(*Treasury); owner == t {
		return t.live.Totals()
	}
	return t.Totals()
}

// commit stamps and publishes an event. Callers hold opMu.
func (t *Treasury) commit(evt model.Event) model.Event {
	t.mu.Lock()
	evt = t.stamp(evt)
	t.mu.Unlock()
	t.publish(evt)
	return evt
}

// stamp assigns the next sequence number. Callers hold mu.
func (t *Treasury) stamp(evt model.Event) model.Event {
	t.seq++
	evt.Seq = t.seq
	evt.ID = uuid.New()
	evt.At = t.now().UTC()
	return evt
}

func (t *Treasury) publish(evt model.Event) {
	if t.pub != nil {
		t.pub.Publish(evt)
	}
}

func (t *Treasury) observe(op string, caller model.Address, err error) {
	if t.obs != nil {
		t.obs.ObserveOperation(op, err)
	}
	if err != nil {
		code := "internal"
		if k := fault.KindOf(err); k != fault.KindUnknown {
			code = k.Code()
		}
		t.log.Warn("operation rejected",
			zap.String("op", op),
			zap.String("caller", caller.String()),
			zap.String("code", code),
			zap.Error(err))
	}
}
