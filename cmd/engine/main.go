package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/triarb/config"
	"github.com/alejandrodnm/triarb/internal/adapters/api"
	"github.com/alejandrodnm/triarb/internal/adapters/gas"
	"github.com/alejandrodnm/triarb/internal/adapters/notify"
	"github.com/alejandrodnm/triarb/internal/adapters/reserves"
	"github.com/alejandrodnm/triarb/internal/adapters/scorer"
	"github.com/alejandrodnm/triarb/internal/adapters/storage"
	"github.com/alejandrodnm/triarb/internal/application/engine"
	"github.com/alejandrodnm/triarb/internal/application/risk"
	"github.com/alejandrodnm/triarb/internal/domain"
	"github.com/alejandrodnm/triarb/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one evaluation cycle and exit")
	dryRun := flag.Bool("dry-run", false, "use local fixtures instead of live feeds, no persistence")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full candidate table (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("triarb starting",
		"config", *configPath,
		"interval", cfg.CycleInterval(),
		"dry_run", *dryRun,
		"once", *once,
	)

	venues := make([]domain.Venue, len(cfg.Engine.Venues))
	for i, v := range cfg.Engine.Venues {
		venues[i] = domain.Venue(v)
	}

	routes, err := domain.GenerateRoutes(cfg.Engine.BaseToken, cfg.Engine.Tokens, venues)
	if err != nil {
		slog.Error("failed to generate routes", "err", err)
		os.Exit(1)
	}

	var store *storage.SQLiteStorage
	if !*dryRun {
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	baseLimits := domain.RiskLimits{
		MaxDailyLossUsd:      cfg.Risk.MaxDailyLossUsd,
		MaxNotionalUsd:       cfg.Risk.MaxNotionalUsd,
		MaxTradesPerHour:     cfg.Risk.MaxTradesPerHour,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
		CooldownAfterLoss:    time.Duration(cfg.Risk.CooldownAfterLossMs) * time.Millisecond,
		MinTimeBetweenTrades: time.Duration(cfg.Risk.MinTimeBetweenTradesMs) * time.Millisecond,
	}

	// ports.Storage es una interfaz: un *SQLiteStorage nil sería un
	// interface no-nil, así que solo lo pasamos cuando existe.
	var riskStore ports.Storage
	if store != nil {
		riskStore = store
	}

	riskCtl, err := risk.NewController(baseLimits, riskStore)
	if err != nil {
		slog.Error("failed to build risk controller", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := riskCtl.Rehydrate(ctx); err != nil {
		slog.Error("risk rehydration failed", "err", err)
		os.Exit(1)
	}

	reserveStore := reserves.NewStore()
	if *dryRun {
		// Sin feed on-chain: snapshots locales con una discrepancia rentable.
		reserves.SeedFixtures(reserveStore, venues[0], venues[1])
	}

	var oracle ports.FeeOracle
	if cfg.Gas.OracleURL != "" {
		oracle = gas.NewOracle(cfg.Gas.OracleURL)
	}
	estimator := gas.NewEstimator(gas.Config{
		GasPerLeg:    cfg.Gas.GasPerLeg,
		BaseGas:      cfg.Gas.BaseGas,
		InflationPct: cfg.Gas.InflationPct,
		FallbackGwei: cfg.Gas.FallbackGwei,
		NativeUsd:    cfg.Gas.NativeUsd,
	}, oracle)

	var confScorer ports.ConfidenceScorer
	if cfg.Scorer.URL != "" && !*dryRun {
		confScorer = scorer.NewClient(cfg.Scorer.URL)
	} else {
		confScorer = scorer.NewStatic()
	}

	notifier := notify.NewConsole(*table)

	engCfg := engine.Config{
		Routes:            routes,
		CandidateSizesUsd: cfg.Engine.CandidateSizesUsd,
		MinProfitUsd:      cfg.Engine.MinProfitUsd,
		ScoreThreshold:    cfg.Engine.ScoreThreshold,
		SlippageBps:       cfg.Engine.SlippageBps,
		BaseDecimals:      cfg.Engine.BaseDecimals,
		Interval:          cfg.CycleInterval(),
		RouteWorkers:      cfg.Engine.RouteWorkers,
		DryRun:            *dryRun || *once,
		BaseLimits:        baseLimits,
		RetuneInterval:    cfg.RetuneInterval(),
		RiskFreeRate:      cfg.Analytics.RiskFreeRate,
		Windows:           tradingWindows(cfg.Analytics),
	}

	eng, err := engine.New(engCfg, reserveStore, estimator, confScorer, riskCtl, riskStore, notifier)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}

	if cfg.API.ListenAddr != "" {
		server := api.NewServer(cfg.API.ListenAddr, riskCtl, eng, riskStore)
		go func() {
			slog.Info("ops API listening", "addr", cfg.API.ListenAddr)
			if err := server.Run(ctx); err != nil {
				slog.Error("ops API exited with error", "err", err)
			}
		}()
	}

	go runDailyReset(ctx, riskCtl)

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("triarb stopped cleanly")
}

// runDailyReset pone el PnL diario a cero en cada medianoche UTC.
func runDailyReset(ctx context.Context, riskCtl *risk.Controller) {
	for {
		now := time.Now().UTC()
		next := now.Truncate(24 * time.Hour).Add(24 * time.Hour)

		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
			riskCtl.ResetDaily()
		}
	}
}

func tradingWindows(cfg config.AnalyticsConfig) domain.TradingWindows {
	toWindows := func(ranges []config.HourRange) []domain.HourWindow {
		out := make([]domain.HourWindow, len(ranges))
		for i, r := range ranges {
			out[i] = domain.HourWindow{From: r.From, To: r.To}
		}
		return out
	}
	return domain.TradingWindows{
		LowLiquidity: toWindows(cfg.LowLiquidityHours),
		Peak:         toWindows(cfg.PeakHours),
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
