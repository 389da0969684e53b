package engine

// engine.go — opportunity orchestrator: per market update it drives the AMM
// simulation, profit accounting, confidence scoring and risk gate across all
// configured routes, emitting at most one authorized candidate per route.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/triarb/internal/application/risk"
	"github.com/alejandrodnm/triarb/internal/domain"
	"github.com/alejandrodnm/triarb/internal/ports"
)

// Config contains the orchestrator configuration.
type Config struct {
	Routes            []domain.Route
	CandidateSizesUsd []float64 // ascending candidate notionals
	MinProfitUsd      float64
	ScoreThreshold    float64
	SlippageBps       int64
	BaseDecimals      int
	Interval          time.Duration
	RouteWorkers      int // goroutines for parallel route evaluation (0 = NumCPU)
	DryRun            bool

	// Retuning of risk limits from persisted history.
	BaseLimits     domain.RiskLimits
	RetuneInterval time.Duration
	RiskFreeRate   float64
	Windows        domain.TradingWindows
}

// Engine is the per-update orchestrator with all collaborators injected.
type Engine struct {
	cfg      Config
	reserves ports.ReserveReader
	gas      ports.GasEstimator
	scorer   ports.ConfidenceScorer
	riskCtl  *risk.Controller
	store    ports.Storage
	notifier ports.Notifier
	now      func() time.Time
}

// New builds an Engine. Routes are validated once here: an invalid route in
// the generated set is fatal at startup.
func New(
	cfg Config,
	reserves ports.ReserveReader,
	gas ports.GasEstimator,
	scorer ports.ConfidenceScorer,
	riskCtl *risk.Controller,
	store ports.Storage,
	notifier ports.Notifier,
) (*Engine, error) {
	if len(cfg.Routes) == 0 {
		return nil, fmt.Errorf("engine.New: %w: no routes configured", domain.ErrInvalidConfig)
	}
	for _, r := range cfg.Routes {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("engine.New: %w", err)
		}
	}
	if len(cfg.CandidateSizesUsd) == 0 {
		return nil, fmt.Errorf("engine.New: %w: no candidate sizes", domain.ErrInvalidConfig)
	}
	if cfg.BaseDecimals <= 0 {
		cfg.BaseDecimals = 6
	}
	return &Engine{
		cfg:      cfg,
		reserves: reserves,
		gas:      gas,
		scorer:   scorer,
		riskCtl:  riskCtl,
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}, nil
}

// Risk exposes the controller handle for out-of-scope callers (ops API, CLI).
func (e *Engine) Risk() *risk.Controller {
	return e.riskCtl
}

// Run processes market updates until the context is cancelled. With DryRun it
// evaluates a single cycle and returns.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting",
		"routes", len(e.cfg.Routes),
		"sizes", len(e.cfg.CandidateSizesUsd),
		"interval", e.cfg.Interval,
		"dry_run", e.cfg.DryRun,
	)

	if err := e.runCycle(ctx); err != nil {
		slog.Error("cycle failed", "err", err)
		if e.cfg.DryRun {
			return err
		}
	}
	if e.cfg.DryRun {
		return nil
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	var retuneCh <-chan time.Time
	if e.cfg.RetuneInterval > 0 {
		retune := time.NewTicker(e.cfg.RetuneInterval)
		defer retune.Stop()
		retuneCh = retune.C
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped")
			return nil
		case <-ticker.C:
			if err := e.runCycle(ctx); err != nil {
				slog.Error("cycle failed", "err", err)
			}
		case <-retuneCh:
			if err := e.Retune(ctx); err != nil {
				slog.Warn("limit retune failed", "err", err)
			}
		}
	}
}

// RunOnce evaluates exactly one cycle and returns the authorized candidates.
func (e *Engine) RunOnce(ctx context.Context) ([]domain.TradeCandidate, error) {
	return e.cycle(ctx)
}

// runCycle evaluates one cycle, then notifies and persists the results.
func (e *Engine) runCycle(ctx context.Context) error {
	start := e.now()

	candidates, err := e.cycle(ctx)
	if err != nil {
		return err
	}

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, candidates, e.riskCtl.State()); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	e.persistCandidates(ctx, candidates)

	slog.Info("cycle complete",
		"routes", len(e.cfg.Routes),
		"authorized", len(candidates),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// cycle evaluates every route concurrently against the current snapshots.
func (e *Engine) cycle(ctx context.Context) ([]domain.TradeCandidate, error) {
	return evaluateRoutesConcurrent(ctx, e, e.cfg.Routes, e.cfg.RouteWorkers), nil
}

// persistCandidates appends a trade record per authorized candidate.
// PersistenceFailure is logged and never blocks the decision path.
func (e *Engine) persistCandidates(ctx context.Context, candidates []domain.TradeCandidate) {
	if e.store == nil {
		return
	}
	for _, cand := range candidates {
		record := domain.TradeRecord{
			ID:             uuid.NewString(),
			Route:          cand.Route.String(),
			NotionalUsd:    cand.NotionalUsd,
			ExpectedProfit: cand.NetProfitUsd,
			GasCostUsd:     rawToUsd(cand.GasCost, e.cfg.BaseDecimals),
			Score:          cand.Score,
			Status:         domain.TradeStatusAuthorized,
			CreatedAt:      e.now(),
		}
		if err := e.store.SaveTrade(ctx, record); err != nil {
			slog.Warn("trade record not persisted", "route", record.Route, "err", err)
		}
	}
}
