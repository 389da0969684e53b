package domain

import (
	"fmt"
	"time"
)

// RiskLimits es la configuración mutable del risk controller. Se siembra en
// el arranque y es ajustable en runtime (operador o retuning de analytics).
type RiskLimits struct {
	MaxDailyLossUsd      float64
	MaxNotionalUsd       float64
	MaxTradesPerHour     int
	MaxConsecutiveLosses int
	CooldownAfterLoss    time.Duration
	MinTimeBetweenTrades time.Duration
}

// Validate detecta límites estructuralmente inválidos — fatal al arrancar.
func (l RiskLimits) Validate() error {
	if l.MaxDailyLossUsd <= 0 {
		return fmt.Errorf("%w: max daily loss must be positive", ErrInvalidConfig)
	}
	if l.MaxNotionalUsd <= 0 {
		return fmt.Errorf("%w: max notional must be positive", ErrInvalidConfig)
	}
	if l.MaxTradesPerHour <= 0 {
		return fmt.Errorf("%w: max trades per hour must be positive", ErrInvalidConfig)
	}
	if l.MaxConsecutiveLosses <= 0 {
		return fmt.Errorf("%w: max consecutive losses must be positive", ErrInvalidConfig)
	}
	if l.CooldownAfterLoss < 0 || l.MinTimeBetweenTrades < 0 {
		return fmt.Errorf("%w: negative cooldown", ErrInvalidConfig)
	}
	return nil
}

// LimitPatch es una actualización parcial de RiskLimits: solo los campos
// no-nil se aplican.
type LimitPatch struct {
	MaxDailyLossUsd      *float64
	MaxNotionalUsd       *float64
	MaxTradesPerHour     *int
	MaxConsecutiveLosses *int
	CooldownAfterLoss    *time.Duration
	MinTimeBetweenTrades *time.Duration
}

// Apply devuelve una copia de l con los campos del patch mergeados.
func (p LimitPatch) Apply(l RiskLimits) RiskLimits {
	if p.MaxDailyLossUsd != nil {
		l.MaxDailyLossUsd = *p.MaxDailyLossUsd
	}
	if p.MaxNotionalUsd != nil {
		l.MaxNotionalUsd = *p.MaxNotionalUsd
	}
	if p.MaxTradesPerHour != nil {
		l.MaxTradesPerHour = *p.MaxTradesPerHour
	}
	if p.MaxConsecutiveLosses != nil {
		l.MaxConsecutiveLosses = *p.MaxConsecutiveLosses
	}
	if p.CooldownAfterLoss != nil {
		l.CooldownAfterLoss = *p.CooldownAfterLoss
	}
	if p.MinTimeBetweenTrades != nil {
		l.MinTimeBetweenTrades = *p.MinTimeBetweenTrades
	}
	return l
}

// FullPatch convierte límites completos en un patch que sobreescribe todo.
// Lo usa el retuning de analytics, que recalcula el set entero.
func FullPatch(l RiskLimits) LimitPatch {
	return LimitPatch{
		MaxDailyLossUsd:      &l.MaxDailyLossUsd,
		MaxNotionalUsd:       &l.MaxNotionalUsd,
		MaxTradesPerHour:     &l.MaxTradesPerHour,
		MaxConsecutiveLosses: &l.MaxConsecutiveLosses,
		CooldownAfterLoss:    &l.CooldownAfterLoss,
		MinTimeBetweenTrades: &l.MinTimeBetweenTrades,
	}
}

// RiskState es el snapshot de solo-lectura del estado del controller.
// El único dueño lógico del estado mutable es el Risk Controller; los callers
// reciben copias.
type RiskState struct {
	IsKilled          bool
	KillReason        string
	DailyPnl          float64
	ConsecutiveLosses int
	LastTradeTime     time.Time
	LastLossTime      time.Time
	TradesInLastHour  int
}

// RiskEventType clasifica los eventos de riesgo persistidos.
type RiskEventType string

const (
	RiskEventDailyLossKill RiskEventType = "daily_loss_kill"
	RiskEventManualKill    RiskEventType = "manual_kill"
	RiskEventEmergencyStop RiskEventType = "emergency_stop"
	RiskEventKillReset     RiskEventType = "kill_reset"
	RiskEventLossStreak    RiskEventType = "loss_streak"
	RiskEventLimitsUpdated RiskEventType = "limits_updated"
	RiskEventDailyReset    RiskEventType = "daily_reset"
)

// RiskEvent es el registro append-only de una transición o aviso de riesgo.
type RiskEvent struct {
	Type        RiskEventType
	Description string
	Snapshot    RiskState
	Timestamp   time.Time
}
