package api

// server.go — superficie HTTP de operaciones sobre el risk controller.
//
// Solo expone control y observación: estado y límites de riesgo, kill switch,
// historial de trades y métricas de cartera. La decisión de trading nunca pasa
// por aquí.

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alejandrodnm/triarb/internal/application/engine"
	"github.com/alejandrodnm/triarb/internal/application/risk"
	"github.com/alejandrodnm/triarb/internal/domain"
	"github.com/alejandrodnm/triarb/internal/ports"
)

const shutdownGrace = 5 * time.Second

// Server es el servidor HTTP de operaciones.
type Server struct {
	riskCtl *risk.Controller
	eng     *engine.Engine
	store   ports.Storage
	http    *http.Server
}

// NewServer construye el servidor con sus rutas. store puede ser nil
// (dry-run): los endpoints de historial devuelven 503.
func NewServer(addr string, riskCtl *risk.Controller, eng *engine.Engine, store ports.Storage) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{riskCtl: riskCtl, eng: eng, store: store}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	router.GET("/risk/state", s.handleRiskState)
	router.GET("/risk/limits", s.handleRiskLimits)
	router.PATCH("/risk/limits", s.handlePatchLimits)
	router.POST("/risk/kill", s.handleKill)
	router.POST("/risk/emergency-stop", s.handleEmergencyStop)
	router.POST("/risk/reset", s.handleReset)
	router.GET("/trades/recent", s.handleRecentTrades)
	router.GET("/metrics/portfolio", s.handlePortfolioMetrics)

	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Run sirve hasta que el contexto se cancela, luego apaga con gracia.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// Handler expone el router para tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// --- handlers ---

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRiskState(c *gin.Context) {
	state := s.riskCtl.State()
	c.JSON(http.StatusOK, gin.H{
		"is_killed":           state.IsKilled,
		"kill_reason":         state.KillReason,
		"daily_pnl":           state.DailyPnl,
		"consecutive_losses":  state.ConsecutiveLosses,
		"last_trade_time":     nullableTime(state.LastTradeTime),
		"last_loss_time":      nullableTime(state.LastLossTime),
		"trades_in_last_hour": state.TradesInLastHour,
	})
}

func (s *Server) handleRiskLimits(c *gin.Context) {
	c.JSON(http.StatusOK, limitsPayload(s.riskCtl.Limits()))
}

// patchRequest es el body del PATCH: solo los campos presentes se aplican.
type patchRequest struct {
	MaxDailyLossUsd        *float64 `json:"max_daily_loss_usd"`
	MaxNotionalUsd         *float64 `json:"max_notional_usd"`
	MaxTradesPerHour       *int     `json:"max_trades_per_hour"`
	MaxConsecutiveLosses   *int     `json:"max_consecutive_losses"`
	CooldownAfterLossMs    *int64   `json:"cooldown_after_loss_ms"`
	MinTimeBetweenTradesMs *int64   `json:"min_time_between_trades_ms"`
}

func (s *Server) handlePatchLimits(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := domain.LimitPatch{
		MaxDailyLossUsd:      req.MaxDailyLossUsd,
		MaxNotionalUsd:       req.MaxNotionalUsd,
		MaxTradesPerHour:     req.MaxTradesPerHour,
		MaxConsecutiveLosses: req.MaxConsecutiveLosses,
	}
	if req.CooldownAfterLossMs != nil {
		d := time.Duration(*req.CooldownAfterLossMs) * time.Millisecond
		patch.CooldownAfterLoss = &d
	}
	if req.MinTimeBetweenTradesMs != nil {
		d := time.Duration(*req.MinTimeBetweenTradesMs) * time.Millisecond
		patch.MinTimeBetweenTrades = &d
	}

	if err := s.riskCtl.UpdateLimits(patch); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, limitsPayload(s.riskCtl.Limits()))
}

func (s *Server) handleKill(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason required"})
		return
	}
	s.riskCtl.KillSwitch(req.Reason)
	c.JSON(http.StatusOK, gin.H{"is_killed": true, "reason": req.Reason})
}

func (s *Server) handleEmergencyStop(c *gin.Context) {
	s.riskCtl.EmergencyStop()
	c.JSON(http.StatusOK, gin.H{"is_killed": true})
}

func (s *Server) handleReset(c *gin.Context) {
	s.riskCtl.ResetKillSwitch()
	c.JSON(http.StatusOK, gin.H{"is_killed": false})
}

func (s *Server) handleRecentTrades(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage disabled"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	trades, err := s.store.RecentTrades(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}

func (s *Server) handlePortfolioMetrics(c *gin.Context) {
	metrics, err := s.eng.Metrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sharpe":       metrics.Sharpe,
		"sortino":      metrics.Sortino,
		"var_95":       metrics.VaR95,
		"max_drawdown": metrics.MaxDrawdown,
		"days":         metrics.Days,
	})
}

// --- helpers ---

func limitsPayload(l domain.RiskLimits) gin.H {
	return gin.H{
		"max_daily_loss_usd":         l.MaxDailyLossUsd,
		"max_notional_usd":           l.MaxNotionalUsd,
		"max_trades_per_hour":        l.MaxTradesPerHour,
		"max_consecutive_losses":     l.MaxConsecutiveLosses,
		"cooldown_after_loss_ms":     l.CooldownAfterLoss.Milliseconds(),
		"min_time_between_trades_ms": l.MinTimeBetweenTrades.Milliseconds(),
	}
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
