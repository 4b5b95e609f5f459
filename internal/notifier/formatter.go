package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"AgentTreasury/internal/model"
)

func short(a model.Address) string {
	s := a.String()
	if r := []rune(s); len(r) > 12 {
		s = string(r[:6]) + "…" + string(r[len(r)-4:])
	}
	return html.EscapeString(s)
}

func pct(bps uint32) string {
	return decimal.New(int64(bps), -2).StringFixed(2) + "%"
}

// FormatEvent renders one committed event as a Telegram message.
func FormatEvent(evt model.Event) string {
	var b strings.Builder
	switch evt.Kind {
	case model.EventDeposit:
		b.WriteString("💰 <b>Deposit</b>\n")
		b.WriteString(fmt.Sprintf("Investor: %s\nAmount: %s\nShares minted: %s\n", short(evt.Investor), evt.Amount, evt.Shares))
	case model.EventWithdrawal:
		b.WriteString("💸 <b>Withdrawal</b>\n")
		b.WriteString(fmt.Sprintf("Investor: %s\nShares burned: %s\nAmount paid: %s\n", short(evt.Investor), evt.Shares, evt.Amount))
	case model.EventAgentRegistered:
		b.WriteString("🤖 <b>Agent registered</b>\n")
		b.WriteString(fmt.Sprintf("#%d %s\nBy: %s\nAllocation: %s\n",
			evt.AgentID, html.EscapeString(evt.AgentName), short(evt.Actor), pct(evt.AllocationBps)))
	case model.EventAgentStatusChanged:
		status := "paused ⏸"
		if evt.Active {
			status = "active ▶️"
		}
		b.WriteString("🔁 <b>Agent status</b>\n")
		b.WriteString(fmt.Sprintf("#%d %s is now %s\n", evt.AgentID, html.EscapeString(evt.AgentName), status))
	case model.EventAgentAllocationUpdated:
		b.WriteString("⚖️ <b>Allocation updated</b>\n")
		b.WriteString(fmt.Sprintf("#%d %s: %s\n", evt.AgentID, html.EscapeString(evt.AgentName), pct(evt.AllocationBps)))
	case model.EventTradeRecorded:
		icon := "📈"
		if evt.PnL.Sign() < 0 {
			icon = "📉"
		}
		b.WriteString(fmt.Sprintf("%s <b>Trade recorded</b>\n", icon))
		b.WriteString(fmt.Sprintf("#%d %s\nPnL: %s\nCumulative: %s\n",
			evt.AgentID, html.EscapeString(evt.AgentName), signed(evt.PnL), signed(evt.TotalPnL)))
	case model.EventFeeUpdated:
		b.WriteString("🧾 <b>Fee updated</b>\n")
		b.WriteString(fmt.Sprintf("%s fee: %s\n", evt.Fee, pct(evt.Bps)))
	case model.EventEmergencyStopActivated:
		b.WriteString("🚨 <b>EMERGENCY STOP ACTIVATED</b>\n")
		b.WriteString("Deposits and withdrawals are halted.\n")
	case model.EventGovernanceUpdated:
		b.WriteString("🏛 <b>Governance updated</b>\n")
		b.WriteString(fmt.Sprintf("New governance: %s\n", short(evt.Governance)))
	default:
		b.WriteString(fmt.Sprintf("ℹ️ <b>%s</b>\n", html.EscapeString(string(evt.Kind))))
	}
	b.WriteString(fmt.Sprintf("<i>#%d · %s</i>", evt.Seq, evt.At.UTC().Format("2006-01-02 15:04:05")))
	return b.String()
}

func signed(d decimal.Decimal) string {
	if d.Sign() > 0 {
		return "+" + d.String()
	}
	return d.String()
}

// FormatState formats the pool state for display.
func FormatState(st model.State, price decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("📦 <b>Treasury state</b>\n\n")
	b.WriteString(fmt.Sprintf("Total assets: %s\n", st.TotalAssets))
	b.WriteString(fmt.Sprintf("Total shares: %s\n", st.TotalShares))
	b.WriteString(fmt.Sprintf("Share price: %s\n", price.StringFixed(6)))
	b.WriteString(fmt.Sprintf("Investors: %d | Agents: %d\n", len(st.Investors), len(st.Agents)))
	b.WriteString(fmt.Sprintf("Fees: performance %s, management %s\n",
		pct(st.Fees.PerformanceFeeBps), pct(st.Fees.ManagementFeeBps)))
	if st.EmergencyStop {
		b.WriteString("🚨 Emergency stop is active\n")
	}
	if !st.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Updated: %s\n", st.UpdatedAt.UTC().Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatAgents lists every agent.
func FormatAgents(agents []model.Agent) string {
	if len(agents) == 0 {
		return "🤖 No agents registered."
	}
	var b strings.Builder
	b.WriteString("🤖 <b>Agents</b>\n\n")
	for _, a := range agents {
		status := "⏸"
		if a.Active {
			status = "▶️"
		}
		b.WriteString(fmt.Sprintf("%s #%d %s | alloc %s | trades %d | PnL %s\n",
			status, a.ID, html.EscapeString(a.Name), pct(a.AllocationBps), a.TotalTrades, signed(a.TotalPnL)))
	}
	return b.String()
}

// FormatTop lists ranked agents, best first.
func FormatTop(ranked []model.RankedAgent) string {
	if len(ranked) == 0 {
		return "🏆 No agents to rank."
	}
	var b strings.Builder
	b.WriteString("🏆 <b>Top agents</b>\n\n")
	for i, r := range ranked {
		b.WriteString(fmt.Sprintf("%d. #%d %s | reputation %.2f | PnL %s\n",
			i+1, r.ID, html.EscapeString(r.Name), r.Reputation, signed(r.TotalPnL)))
	}
	return b.String()
}

// FormatDailySummary formats the daily report sent by the scheduler.
func FormatDailySummary(st model.State, price decimal.Decimal, recent []model.Event, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Daily summary</b> | %s\n\n", now.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Total assets: %s\n", st.TotalAssets))
	b.WriteString(fmt.Sprintf("Share price: %s\n", price.StringFixed(6)))

	counts := map[model.EventKind]int{}
	since := now.Add(-24 * time.Hour)
	for _, evt := range recent {
		if evt.At.After(since) {
			counts[evt.Kind]++
		}
	}
	b.WriteString(fmt.Sprintf("Deposits (24h): %d | Withdrawals (24h): %d | Trades (24h): %d\n",
		counts[model.EventDeposit], counts[model.EventWithdrawal], counts[model.EventTradeRecorded]))

	pnl := decimal.Zero
	active := 0
	for _, a := range st.Agents {
		pnl = pnl.Add(a.TotalPnL)
		if a.Active {
			active++
		}
	}
	b.WriteString(fmt.Sprintf("Active agents: %d/%d | Cumulative PnL: %s\n", active, len(st.Agents), signed(pnl)))
	if st.EmergencyStop {
		b.WriteString("\n🚨 Emergency stop is active")
	}
	return b.String()
}
