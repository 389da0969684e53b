package risk

// controller.go — stateful authorization gate for trade execution.
//
// Single logical owner of RiskState: every mutation and every guard check runs
// under one mutex, so CanTrade/RecordTrade observe a consistent, monotonic
// view. Persistence of risk events is best-effort with a bounded timeout —
// state correctness is prioritized over audit-log completeness.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/triarb/internal/domain"
	"github.com/alejandrodnm/triarb/internal/ports"
)

const (
	// tradeRateWindow is the trailing real-time window for the hourly guard.
	tradeRateWindow = time.Hour

	// lossStreakAdvisory: at this streak an advisory (non-blocking) risk
	// event is persisted, before the hard consecutive-loss guard trips.
	lossStreakAdvisory = 3

	// persistTimeout bounds risk-event writes so persistence can never
	// stall the decision path.
	persistTimeout = 2 * time.Second
)

// Controller is the stateful risk gate. Zero value is not usable; build with
// NewController.
type Controller struct {
	mu         sync.Mutex
	limits     domain.RiskLimits
	state      domain.RiskState
	tradeTimes []time.Time
	store      ports.Storage
	now        func() time.Time
}

// NewController validates the seed limits and returns an Active controller.
// store may be nil (dry-run): events are then log-only.
func NewController(limits domain.RiskLimits, store ports.Storage) (*Controller, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("risk.NewController: %w", err)
	}
	return &Controller{
		limits: limits,
		store:  store,
		now:    time.Now,
	}, nil
}

// Rehydrate restores today's PnL and the trailing loss streak from storage.
// Called once at startup, before the first CanTrade.
func (c *Controller) Rehydrate(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	agg, err := c.store.DailyAggregate(ctx, now)
	if err != nil {
		return fmt.Errorf("risk.Rehydrate: daily aggregate: %w", err)
	}
	c.state.DailyPnl = agg.DailyPnl

	outcomes, err := c.store.RecentOutcomes(ctx, 50)
	if err != nil {
		return fmt.Errorf("risk.Rehydrate: recent outcomes: %w", err)
	}

	// Outcomes arrive most recent first; the streak is the maximal trailing
	// run of non-winning trades.
	streak := 0
	for _, o := range outcomes {
		if !o.IsLoss() {
			break
		}
		streak++
	}
	c.state.ConsecutiveLosses = streak

	if len(outcomes) > 0 {
		c.state.LastTradeTime = outcomes[0].ExecutedAt
		if outcomes[0].IsLoss() {
			c.state.LastLossTime = outcomes[0].ExecutedAt
		}
	}

	// The rehydrated PnL may already sit past the ceiling (crash after a
	// losing day): latch immediately instead of trading into it.
	if c.state.DailyPnl <= -c.limits.MaxDailyLossUsd {
		c.killLocked(domain.RiskEventDailyLossKill,
			fmt.Sprintf("rehydrated daily pnl %.2f at or below -%.2f", c.state.DailyPnl, c.limits.MaxDailyLossUsd))
	}

	slog.Info("risk controller rehydrated",
		"daily_pnl", c.state.DailyPnl,
		"consecutive_losses", c.state.ConsecutiveLosses,
		"killed", c.state.IsKilled,
	)
	return nil
}

// CanTrade evaluates the authorization guards in order; the first failure
// short-circuits. Only guard 3 (projected daily-loss breach) mutates state:
// it latches the kill switch instead of merely returning false, the stricter
// of the two semantics the original system mixed.
//
// Guards never raise. Advisory data failures degrade to the most permissive
// safe value; the Killed flag is authoritative local state and never bypassed.
func (c *Controller) CanTrade(notionalUsd, expectedProfitUsd float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsKilled {
		return false
	}
	if notionalUsd > c.limits.MaxNotionalUsd {
		return false
	}
	if c.state.DailyPnl+expectedProfitUsd <= -c.limits.MaxDailyLossUsd {
		c.killLocked(domain.RiskEventDailyLossKill,
			fmt.Sprintf("projected daily pnl %.2f would breach -%.2f",
				c.state.DailyPnl+expectedProfitUsd, c.limits.MaxDailyLossUsd))
		return false
	}
	if c.state.ConsecutiveLosses >= c.limits.MaxConsecutiveLosses {
		return false
	}

	now := c.now()
	if !c.state.LastLossTime.IsZero() && now.Sub(c.state.LastLossTime) < c.limits.CooldownAfterLoss {
		return false
	}
	if !c.state.LastTradeTime.IsZero() && now.Sub(c.state.LastTradeTime) < c.limits.MinTimeBetweenTrades {
		return false
	}
	if c.tradesInWindowLocked(now) >= c.limits.MaxTradesPerHour {
		return false
	}
	return true
}

// RecordTrade folds a realized outcome into the state: daily PnL, loss streak
// and timestamps update unconditionally, and only then is the daily-loss
// ceiling re-checked against realized PnL.
func (c *Controller) RecordTrade(outcome domain.TradeOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.state.DailyPnl += outcome.RealizedProfit
	c.state.LastTradeTime = now

	if outcome.IsLoss() {
		c.state.ConsecutiveLosses++
		c.state.LastLossTime = now
	} else {
		c.state.ConsecutiveLosses = 0
	}

	c.tradeTimes = append(c.tradeTimes, now)
	c.pruneWindowLocked(now)

	if c.state.ConsecutiveLosses >= lossStreakAdvisory {
		c.persistEventLocked(domain.RiskEventLossStreak,
			fmt.Sprintf("%d consecutive losses", c.state.ConsecutiveLosses))
	}

	if !c.state.IsKilled && c.state.DailyPnl <= -c.limits.MaxDailyLossUsd {
		c.killLocked(domain.RiskEventDailyLossKill,
			fmt.Sprintf("daily pnl %.2f at or below -%.2f", c.state.DailyPnl, c.limits.MaxDailyLossUsd))
	}
}

// KillSwitch latches the kill switch with an operator-supplied reason.
func (c *Controller) KillSwitch(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsKilled {
		return
	}
	c.killLocked(domain.RiskEventManualKill, reason)
}

// EmergencyStop latches the kill switch for an emergency halt.
func (c *Controller) EmergencyStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsKilled {
		return
	}
	c.killLocked(domain.RiskEventEmergencyStop, "emergency stop")
}

// ResetKillSwitch clears the latch. This is the only Killed→Active transition.
func (c *Controller) ResetKillSwitch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsKilled {
		return
	}
	prevReason := c.state.KillReason
	c.state.IsKilled = false
	c.state.KillReason = ""
	c.persistEventLocked(domain.RiskEventKillReset, "kill switch reset (was: "+prevReason+")")
	slog.Warn("kill switch reset", "previous_reason", prevReason)
}

// ResetDaily zeroes the daily PnL counter at the day boundary. Atomic with
// respect to concurrent CanTrade/RecordTrade.
func (c *Controller) ResetDaily() {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.state.DailyPnl
	c.state.DailyPnl = 0
	c.persistEventLocked(domain.RiskEventDailyReset, fmt.Sprintf("daily pnl reset (was %.2f)", prev))
	slog.Info("daily pnl reset", "previous", prev)
}

// State returns a read-only snapshot of the current risk state.
func (c *Controller) State() domain.RiskState {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.state
	snap.TradesInLastHour = c.tradesInWindowLocked(c.now())
	return snap
}

// Limits returns a copy of the current limits.
func (c *Controller) Limits() domain.RiskLimits {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limits
}

// UpdateLimits merges the patch into the limits, effective immediately.
// Structurally invalid results are rejected.
func (c *Controller) UpdateLimits(patch domain.LimitPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := patch.Apply(c.limits)
	if err := merged.Validate(); err != nil {
		return fmt.Errorf("risk.UpdateLimits: %w", err)
	}
	c.limits = merged
	c.persistEventLocked(domain.RiskEventLimitsUpdated,
		fmt.Sprintf("limits updated: daily_loss=%.2f notional=%.2f trades/h=%d streak=%d",
			merged.MaxDailyLossUsd, merged.MaxNotionalUsd, merged.MaxTradesPerHour, merged.MaxConsecutiveLosses))
	return nil
}

// --- internal, callers hold c.mu ---

// killLocked latches the kill switch and persists the transition.
func (c *Controller) killLocked(evType domain.RiskEventType, reason string) {
	c.state.IsKilled = true
	c.state.KillReason = reason
	c.persistEventLocked(evType, reason)
	slog.Error("kill switch engaged", "type", string(evType), "reason", reason)
}

// persistEventLocked writes a risk event with a state snapshot. Best-effort:
// a storage failure is logged and never blocks or rolls back the mutation.
func (c *Controller) persistEventLocked(evType domain.RiskEventType, description string) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	event := domain.RiskEvent{
		Type:        evType,
		Description: description,
		Snapshot:    c.state,
		Timestamp:   c.now(),
	}
	if err := c.store.SaveRiskEvent(ctx, event); err != nil {
		slog.Warn("risk event not persisted", "type", string(evType), "err", err)
	}
}

// tradesInWindowLocked counts trades in the trailing window without mutating.
func (c *Controller) tradesInWindowLocked(now time.Time) int {
	count := 0
	for _, t := range c.tradeTimes {
		if now.Sub(t) < tradeRateWindow {
			count++
		}
	}
	return count
}

// pruneWindowLocked drops timestamps older than the window.
func (c *Controller) pruneWindowLocked(now time.Time) {
	kept := c.tradeTimes[:0]
	for _, t := range c.tradeTimes {
		if now.Sub(t) < tradeRateWindow {
			kept = append(kept, t)
		}
	}
	c.tradeTimes = kept
}
