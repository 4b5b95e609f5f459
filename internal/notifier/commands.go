package notifier

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"AgentTreasury/internal/model"
)

// Reader is the read surface the chat commands need.
type Reader interface {
	Snapshot() model.State
	SharePrice() decimal.Decimal
	Agents() []model.Agent
	TopAgents(ctx context.Context, n int) ([]model.RankedAgent, error)
}

const helpText = "Commands:\n/state - pool totals and share price\n/agents - all agents\n/top [n] - best agents by reputation"

// NewCommandHandler answers /state, /agents and /top from r.
func NewCommandHandler(r Reader, log *zap.Logger) CommandHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, command string) string {
		fields := strings.Fields(command)
		if len(fields) == 0 {
			return ""
		}
		// Telegram appends @botname in group chats.
		name, _, _ := strings.Cut(fields[0], "@")
		switch name {
		case "/state":
			return FormatState(r.Snapshot(), r.SharePrice())
		case "/agents":
			return FormatAgents(r.Agents())
		case "/top":
			n := 5
			if len(fields) > 1 {
				v, err := strconv.Atoi(fields[1])
				if err != nil || v <= 0 {
					return "Usage: /top [n], n must be a positive number"
				}
				n = v
			}
			ranked, err := r.TopAgents(ctx, n)
			if err != nil {
				log.Warn("top agents failed", zap.Error(err))
				return "⚠️ ranking unavailable: " + err.Error()
			}
			return FormatTop(ranked)
		case "/help", "/start":
			return helpText
		default:
			return "Unknown command.\n" + helpText
		}
	}
}

// EventHandler returns an event bus subscriber that forwards every event to
// the chat.
func (t *TelegramNotifier) EventHandler(ctx context.Context) func(model.Event) {
	return func(evt model.Event) {
		if err := t.SendWithRetry(ctx, FormatEvent(evt), 2); err != nil {
			t.log.Error("event notification failed",
				zap.Uint64("seq", evt.Seq),
				zap.String("kind", string(evt.Kind)),
				zap.Error(err))
		}
	}
}
