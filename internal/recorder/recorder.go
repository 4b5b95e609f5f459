package recorder

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"AgentTreasury/internal/model"
)

// Snapshot is a point-in-time summary of the pool, written by the scheduler.
type Snapshot struct {
	TotalShares decimal.Decimal
	TotalAssets decimal.Decimal
	SharePrice  decimal.Decimal
	Investors   int
	Agents      int
	Stopped     bool
}

// Recorder journals committed events and periodic snapshots for analysis.
type Recorder interface {
	RecordEvent(evt model.Event) error
	RecordSnapshot(snap Snapshot) error
	// Recent returns up to n events, newest first.
	Recent(n int) ([]model.Event, error)
	Close() error
}

// Handler adapts r into an event bus subscriber. Write failures are logged;
// the journal is best effort and never blocks the ledger.
func Handler(r Recorder, log *zap.Logger) func(model.Event) {
	if log == nil {
		log = zap.NewNop()
	}
	return func(evt model.Event) {
		if err := r.RecordEvent(evt); err != nil {
			log.Error("failed to journal event",
				zap.Uint64("seq", evt.Seq),
				zap.String("kind", string(evt.Kind)),
				zap.Error(err))
		}
	}
}
