package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/triarb/internal/domain"
)

func testLimits() domain.RiskLimits {
	return domain.RiskLimits{
		MaxDailyLossUsd:      100,
		MaxNotionalUsd:       5000,
		MaxTradesPerHour:     10,
		MaxConsecutiveLosses: 3,
		CooldownAfterLoss:    60 * time.Second,
		MinTimeBetweenTrades: 5 * time.Second,
	}
}

// fakeClock permite avanzar el tiempo del controller de forma determinista.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// memStore captura eventos de riesgo; el resto de ports.Storage devuelve datos
// fijos para la rehidratación.
type memStore struct {
	events   []domain.RiskEvent
	agg      domain.DailyAggregate
	outcomes []domain.TradeOutcome
}

func (s *memStore) SaveTrade(context.Context, domain.TradeRecord) error { return nil }
func (s *memStore) UpdateTradeResult(context.Context, string, float64, domain.TradeStatus, *string, *string) error {
	return nil
}
func (s *memStore) SaveRiskEvent(_ context.Context, ev domain.RiskEvent) error {
	s.events = append(s.events, ev)
	return nil
}
func (s *memStore) DailyAggregate(context.Context, time.Time) (domain.DailyAggregate, error) {
	return s.agg, nil
}
func (s *memStore) RecentDailyAggregates(context.Context, int) ([]domain.DailyAggregate, error) {
	return nil, nil
}
func (s *memStore) RecentOutcomes(context.Context, int) ([]domain.TradeOutcome, error) {
	return s.outcomes, nil
}
func (s *memStore) RecentTrades(context.Context, int) ([]domain.TradeRecord, error) {
	return nil, nil
}
func (s *memStore) Close() error { return nil }

func (s *memStore) eventTypes() []domain.RiskEventType {
	types := make([]domain.RiskEventType, len(s.events))
	for i, ev := range s.events {
		types[i] = ev.Type
	}
	return types
}

func newTestController(t *testing.T, store *memStore) (*Controller, *fakeClock) {
	t.Helper()
	var ctl *Controller
	var err error
	if store != nil {
		ctl, err = NewController(testLimits(), store)
	} else {
		ctl, err = NewController(testLimits(), nil)
	}
	require.NoError(t, err)

	clock := newFakeClock()
	ctl.now = clock.now
	return ctl, clock
}

// --- construcción ---

func TestNewController_RejectsInvalidLimits(t *testing.T) {
	bad := testLimits()
	bad.MaxDailyLossUsd = -1
	_, err := NewController(bad, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNewController_StartsActive(t *testing.T) {
	ctl, _ := newTestController(t, nil)
	state := ctl.State()
	assert.False(t, state.IsKilled)
	assert.Equal(t, 0.0, state.DailyPnl)
}

// --- loss streak ---

func TestRecordTrade_WinResetsStreak(t *testing.T) {
	ctl, clock := newTestController(t, nil)

	for _, profit := range []float64{2, -1, -2, -1.5} {
		ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: profit})
		clock.advance(time.Minute)
	}
	assert.Equal(t, 3, ctl.State().ConsecutiveLosses)

	ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: 5})
	assert.Equal(t, 0, ctl.State().ConsecutiveLosses)
}

func TestRecordTrade_BreakEvenCountsAsLoss(t *testing.T) {
	ctl, clock := newTestController(t, nil)

	for _, profit := range []float64{-1, 0, -1} {
		ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: profit})
		clock.advance(time.Minute)
	}
	assert.Equal(t, 3, ctl.State().ConsecutiveLosses)
}

func TestCanTrade_BlocksAtMaxStreak(t *testing.T) {
	ctl, clock := newTestController(t, nil)

	for i := 0; i < 3; i++ {
		ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: -1})
		clock.advance(2 * time.Minute) // fuera del cooldown
	}
	assert.False(t, ctl.CanTrade(100, 5))
}

// --- daily loss ceiling ---

func TestRecordTrade_DailyLossKills(t *testing.T) {
	store := &memStore{}
	ctl, clock := newTestController(t, store)

	ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: -60})
	clock.advance(2 * time.Minute)
	assert.False(t, ctl.State().IsKilled)

	ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: -40})
	state := ctl.State()
	assert.True(t, state.IsKilled)
	assert.InDelta(t, -100.0, state.DailyPnl, 1e-9)
	assert.Contains(t, store.eventTypes(), domain.RiskEventDailyLossKill)
}

func TestCanTrade_ProjectedBreachLatchesKill(t *testing.T) {
	ctl, clock := newTestController(t, nil)

	ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: -95})
	clock.advance(2 * time.Minute)

	// Proyección -95 + (-10) = -105 <= -100: no solo rechaza, latchea el kill.
	assert.False(t, ctl.CanTrade(100, -10))
	assert.True(t, ctl.State().IsKilled)

	// El latch persiste aunque la siguiente proyección fuese sana.
	assert.False(t, ctl.CanTrade(100, 50))
}

func TestCanTrade_HealthyProjectionPasses(t *testing.T) {
	ctl, clock := newTestController(t, nil)

	ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: -95})
	clock.advance(2 * time.Minute)

	assert.True(t, ctl.CanTrade(100, 5))
	assert.False(t, ctl.State().IsKilled)
}

// --- cooldowns ---

func TestCanTrade_CooldownAfterLoss(t *testing.T) {
	ctl, clock := newTestController(t, nil)

	ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: -1})

	clock.advance(30 * time.Second)
	assert.False(t, ctl.CanTrade(100, 5))

	clock.advance(30*time.Second + time.Millisecond)
	assert.True(t, ctl.CanTrade(100, 5))
}

func TestCanTrade_MinTimeBetweenTrades(t *testing.T) {
	ctl, clock := newTestController(t, nil)

	ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: 2})

	clock.advance(3 * time.Second)
	assert.False(t, ctl.CanTrade(100, 5))

	clock.advance(3 * time.Second)
	assert.True(t, ctl.CanTrade(100, 5))
}

// --- notional y rate ---

func TestCanTrade_NotionalCap(t *testing.T) {
	ctl, _ := newTestController(t, nil)
	assert.True(t, ctl.CanTrade(5000, 5))
	assert.False(t, ctl.CanTrade(5001, 5))
}

func TestCanTrade_HourlyRateWindow(t *testing.T) {
	ctl, clock := newTestController(t, nil)

	for i := 0; i < 10; i++ {
		ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: 1})
		clock.advance(time.Minute)
	}
	assert.False(t, ctl.CanTrade(100, 5))
	assert.Equal(t, 10, ctl.State().TradesInLastHour)

	// La ventana es deslizante: pasada una hora desde los primeros trades,
	// vuelven a caber.
	clock.advance(time.Hour)
	assert.True(t, ctl.CanTrade(100, 5))
}

// --- kill switch ---

func TestKillSwitch_ManualAndReset(t *testing.T) {
	store := &memStore{}
	ctl, _ := newTestController(t, store)

	ctl.KillSwitch("operator says stop")
	assert.True(t, ctl.State().IsKilled)
	assert.Equal(t, "operator says stop", ctl.State().KillReason)
	assert.False(t, ctl.CanTrade(100, 5))

	ctl.ResetKillSwitch()
	assert.False(t, ctl.State().IsKilled)
	assert.Equal(t, "", ctl.State().KillReason)
	assert.True(t, ctl.CanTrade(100, 5))

	assert.Equal(t,
		[]domain.RiskEventType{domain.RiskEventManualKill, domain.RiskEventKillReset},
		store.eventTypes())
}

func TestEmergencyStop(t *testing.T) {
	store := &memStore{}
	ctl, _ := newTestController(t, store)

	ctl.EmergencyStop()
	assert.True(t, ctl.State().IsKilled)
	assert.Contains(t, store.eventTypes(), domain.RiskEventEmergencyStop)
}

func TestKillSwitch_IdempotentWhileKilled(t *testing.T) {
	store := &memStore{}
	ctl, _ := newTestController(t, store)

	ctl.KillSwitch("first")
	ctl.KillSwitch("second")
	assert.Equal(t, "first", ctl.State().KillReason)
	assert.Len(t, store.events, 1)
}

// --- daily reset ---

func TestResetDaily_ZeroesPnlOnly(t *testing.T) {
	store := &memStore{}
	ctl, clock := newTestController(t, store)

	ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: -50})
	ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: -10})
	clock.advance(time.Minute)

	ctl.ResetDaily()
	state := ctl.State()
	assert.Equal(t, 0.0, state.DailyPnl)
	assert.Equal(t, 2, state.ConsecutiveLosses) // el streak cruza días
	assert.Contains(t, store.eventTypes(), domain.RiskEventDailyReset)
}

// --- advisory loss streak event ---

func TestRecordTrade_LossStreakAdvisory(t *testing.T) {
	store := &memStore{}
	ctl, clock := newTestController(t, store)

	for i := 0; i < 3; i++ {
		ctl.RecordTrade(domain.TradeOutcome{RealizedProfit: -1})
		clock.advance(2 * time.Minute)
	}
	assert.Contains(t, store.eventTypes(), domain.RiskEventLossStreak)
}

// --- límites en runtime ---

func TestUpdateLimits_PartialPatch(t *testing.T) {
	store := &memStore{}
	ctl, _ := newTestController(t, store)

	newLoss := 250.0
	require.NoError(t, ctl.UpdateLimits(domain.LimitPatch{MaxDailyLossUsd: &newLoss}))

	limits := ctl.Limits()
	assert.Equal(t, 250.0, limits.MaxDailyLossUsd)
	assert.Equal(t, testLimits().MaxNotionalUsd, limits.MaxNotionalUsd)
	assert.Contains(t, store.eventTypes(), domain.RiskEventLimitsUpdated)
}

func TestUpdateLimits_RejectsInvalidMerge(t *testing.T) {
	ctl, _ := newTestController(t, nil)

	bad := -5.0
	err := ctl.UpdateLimits(domain.LimitPatch{MaxDailyLossUsd: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Equal(t, testLimits().MaxDailyLossUsd, ctl.Limits().MaxDailyLossUsd)
}

// --- rehidratación ---

func TestRehydrate_RestoresStreakAndPnl(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	store := &memStore{
		agg: domain.DailyAggregate{DailyPnl: -40, TradeCount: 5, WinRate: 0.4},
		outcomes: []domain.TradeOutcome{
			{RealizedProfit: -2, ExecutedAt: now.Add(-time.Minute)},
			{RealizedProfit: -1, ExecutedAt: now.Add(-2 * time.Minute)},
			{RealizedProfit: 3, ExecutedAt: now.Add(-3 * time.Minute)},
			{RealizedProfit: -1, ExecutedAt: now.Add(-4 * time.Minute)},
		},
	}
	ctl, _ := newTestController(t, store)

	require.NoError(t, ctl.Rehydrate(context.Background()))
	state := ctl.State()
	assert.InDelta(t, -40.0, state.DailyPnl, 1e-9)
	assert.Equal(t, 2, state.ConsecutiveLosses) // el win en la posición 3 corta el run
	assert.Equal(t, now.Add(-time.Minute), state.LastTradeTime)
	assert.False(t, state.IsKilled)
}

func TestRehydrate_LatchesIfAlreadyPastCeiling(t *testing.T) {
	store := &memStore{agg: domain.DailyAggregate{DailyPnl: -150}}
	ctl, _ := newTestController(t, store)

	require.NoError(t, ctl.Rehydrate(context.Background()))
	assert.True(t, ctl.State().IsKilled)
	assert.Contains(t, store.eventTypes(), domain.RiskEventDailyLossKill)
}
