package engine

// retune.go — periodic risk-limit retuning from persisted daily aggregates.
//
// Pure domain transforms (volatility, performance, time-of-day) are applied
// over the BASE limits, never over the previous adjustment, so repeated
// retunes cannot compound into zero.

import (
	"context"
	"fmt"
	"math"

	"github.com/alejandrodnm/triarb/internal/domain"
)

// retuneHistoryDays is how many daily aggregates feed the adjustment.
const retuneHistoryDays = 14

// Retune recomputes the controller limits from recent history and the clock.
func (e *Engine) Retune(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	dailies, err := e.store.RecentDailyAggregates(ctx, retuneHistoryDays)
	if err != nil {
		return fmt.Errorf("engine.Retune: daily aggregates: %w", err)
	}
	if len(dailies) == 0 {
		return nil // sin historial no hay nada que ajustar
	}

	returns := make([]float64, 0, len(dailies))
	for _, d := range dailies {
		returns = append(returns, d.DailyPnl)
	}

	vol := volatilityScore(returns, e.cfg.BaseLimits.MaxDailyLossUsd)
	winRate := dailies[0].WinRate
	pnl := dailies[0].DailyPnl
	hour := e.now().UTC().Hour()

	limits := domain.AdjustForVolatility(e.cfg.BaseLimits, vol)
	limits = domain.AdjustForPerformance(limits, winRate, pnl)
	limits = domain.AdjustForTimeOfDay(limits, hour, e.cfg.Windows)

	if err := e.riskCtl.UpdateLimits(domain.FullPatch(limits)); err != nil {
		return fmt.Errorf("engine.Retune: %w", err)
	}
	return nil
}

// PortfolioMetrics summarizes recent performance for the ops surface.
type PortfolioMetrics struct {
	Sharpe      float64
	Sortino     float64
	VaR95       float64
	MaxDrawdown float64
	Days        int
}

// Metrics computes the portfolio metrics over the recent daily aggregates.
func (e *Engine) Metrics(ctx context.Context) (PortfolioMetrics, error) {
	if e.store == nil {
		return PortfolioMetrics{}, nil
	}
	dailies, err := e.store.RecentDailyAggregates(ctx, retuneHistoryDays)
	if err != nil {
		return PortfolioMetrics{}, fmt.Errorf("engine.Metrics: %w", err)
	}

	returns := make([]float64, 0, len(dailies))
	for _, d := range dailies {
		returns = append(returns, d.DailyPnl)
	}

	return PortfolioMetrics{
		Sharpe:      domain.SharpeRatio(returns, e.cfg.RiskFreeRate),
		Sortino:     domain.SortinoRatio(returns, e.cfg.RiskFreeRate),
		VaR95:       domain.ValueAtRisk(returns, 0.95),
		MaxDrawdown: domain.MaxDrawdown(returns),
		Days:        len(returns),
	}, nil
}

// volatilityScore maps the dispersion of daily PnL to [0,1]: a standard
// deviation at or above the daily loss ceiling scores 1.
func volatilityScore(returns []float64, maxDailyLoss float64) float64 {
	if len(returns) < 2 || maxDailyLoss <= 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sum float64
	for _, r := range returns {
		d := r - mean
		sum += d * d
	}
	sd := math.Sqrt(sum / float64(len(returns)-1))
	return math.Min(1, sd/maxDailyLoss)
}
