package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func baseLimits() RiskLimits {
	return RiskLimits{
		MaxDailyLossUsd:      500,
		MaxNotionalUsd:       5000,
		MaxTradesPerHour:     20,
		MaxConsecutiveLosses: 5,
		CooldownAfterLoss:    time.Minute,
		MinTimeBetweenTrades: 5 * time.Second,
	}
}

// --- AdjustForVolatility ---

func TestAdjustForVolatility_Zero(t *testing.T) {
	assert.Equal(t, baseLimits(), AdjustForVolatility(baseLimits(), 0))
}

func TestAdjustForVolatility_Full(t *testing.T) {
	out := AdjustForVolatility(baseLimits(), 1)
	assert.InDelta(t, 250.0, out.MaxDailyLossUsd, 1e-9)
	assert.InDelta(t, 2500.0, out.MaxNotionalUsd, 1e-9)
	assert.Equal(t, 10, out.MaxTradesPerHour)
	assert.Equal(t, 2*time.Minute, out.CooldownAfterLoss)
	assert.Equal(t, 10*time.Second, out.MinTimeBetweenTrades)
}

func TestAdjustForVolatility_StreakFloor(t *testing.T) {
	l := baseLimits()
	l.MaxConsecutiveLosses = 3
	out := AdjustForVolatility(l, 1)
	assert.Equal(t, 2, out.MaxConsecutiveLosses)
}

func TestAdjustForVolatility_ClampsScore(t *testing.T) {
	assert.Equal(t, AdjustForVolatility(baseLimits(), 1), AdjustForVolatility(baseLimits(), 5))
	assert.Equal(t, baseLimits(), AdjustForVolatility(baseLimits(), -1))
}

// --- AdjustForPerformance ---

func TestAdjustForPerformance_WinningDay(t *testing.T) {
	// mult = clamp(0.5, 1.5, 0.7·2)·1.1 = 1.4·1.1 = 1.54
	out := AdjustForPerformance(baseLimits(), 0.7, 100)
	assert.InDelta(t, 770.0, out.MaxDailyLossUsd, 1e-9)
	assert.InDelta(t, 7700.0, out.MaxNotionalUsd, 1e-9)
	assert.Equal(t, 31, out.MaxTradesPerHour)
}

func TestAdjustForPerformance_LosingDay(t *testing.T) {
	// mult = clamp(0.5, 1.5, 0.2·2)·0.9 = 0.5·0.9 = 0.45
	out := AdjustForPerformance(baseLimits(), 0.2, -50)
	assert.InDelta(t, 225.0, out.MaxDailyLossUsd, 1e-9)
	assert.Equal(t, baseLimits().MaxConsecutiveLosses, out.MaxConsecutiveLosses)
	assert.Equal(t, baseLimits().CooldownAfterLoss, out.CooldownAfterLoss)
}

// --- HourWindow / AdjustForTimeOfDay ---

func TestHourWindow_Contains(t *testing.T) {
	w := HourWindow{From: 9, To: 17}
	assert.True(t, w.Contains(9))
	assert.True(t, w.Contains(16))
	assert.False(t, w.Contains(17))
	assert.False(t, w.Contains(3))
}

func TestHourWindow_WrapsMidnight(t *testing.T) {
	w := HourWindow{From: 22, To: 6}
	assert.True(t, w.Contains(23))
	assert.True(t, w.Contains(2))
	assert.False(t, w.Contains(12))
}

func TestHourWindow_EmptyRange(t *testing.T) {
	assert.False(t, HourWindow{From: 5, To: 5}.Contains(5))
}

func TestAdjustForTimeOfDay_LowLiquidity(t *testing.T) {
	windows := TradingWindows{LowLiquidity: []HourWindow{{From: 0, To: 6}}}
	out := AdjustForTimeOfDay(baseLimits(), 3, windows)
	assert.InDelta(t, 2500.0, out.MaxNotionalUsd, 1e-9)
	assert.Equal(t, 10, out.MaxTradesPerHour)
	assert.Equal(t, 2*time.Minute, out.CooldownAfterLoss)
	assert.Equal(t, baseLimits().MaxDailyLossUsd, out.MaxDailyLossUsd)
}

func TestAdjustForTimeOfDay_Peak(t *testing.T) {
	windows := TradingWindows{Peak: []HourWindow{{From: 13, To: 21}}}
	out := AdjustForTimeOfDay(baseLimits(), 15, windows)
	assert.InDelta(t, 6250.0, out.MaxNotionalUsd, 1e-9)
	assert.Equal(t, 25, out.MaxTradesPerHour)
	assert.Equal(t, baseLimits().CooldownAfterLoss, out.CooldownAfterLoss)
}

func TestAdjustForTimeOfDay_OutsideWindows(t *testing.T) {
	windows := TradingWindows{
		LowLiquidity: []HourWindow{{From: 0, To: 6}},
		Peak:         []HourWindow{{From: 13, To: 21}},
	}
	assert.Equal(t, baseLimits(), AdjustForTimeOfDay(baseLimits(), 10, windows))
}

// --- SharpeRatio / SortinoRatio ---

func TestSharpeRatio_KnownValue(t *testing.T) {
	// mean = 2, sd muestral de {1,2,3} = 1 ⇒ sharpe = (2-0)/1 = 2
	assert.InDelta(t, 2.0, SharpeRatio([]float64{1, 2, 3}, 0), 1e-9)
}

func TestSharpeRatio_TooFewSamples(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{5}, 0))
	assert.Equal(t, 0.0, SharpeRatio(nil, 0))
}

func TestSharpeRatio_ZeroStdDev(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{2, 2, 2}, 0))
}

func TestSortinoRatio_OnlyPenalizesDownside(t *testing.T) {
	withDownside := SortinoRatio([]float64{10, -2, 8, -4}, 0)
	assert.False(t, math.IsInf(withDownside, 1))
	assert.Greater(t, withDownside, 0.0)
}

func TestSortinoRatio_NoDownsideIsInf(t *testing.T) {
	assert.True(t, math.IsInf(SortinoRatio([]float64{1, 2, 3}, 0), 1))
}

func TestSortinoRatio_TooFewSamples(t *testing.T) {
	assert.Equal(t, 0.0, SortinoRatio([]float64{-1}, 0))
}

// --- ValueAtRisk ---

func TestValueAtRisk_Basic(t *testing.T) {
	// 20 retornos, confianza 0.95 ⇒ idx = floor(0.05·20) = 1 de la muestra
	// ordenada: el segundo peor.
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = float64(i + 1) // 1..20
	}
	returns[0] = -10
	returns[1] = -8
	assert.InDelta(t, -8.0, ValueAtRisk(returns, 0.95), 1e-9)
}

func TestValueAtRisk_SmallSampleWorstCase(t *testing.T) {
	// floor(0.05·4) = 0: el peor retorno de la muestra.
	assert.InDelta(t, -0.10, ValueAtRisk([]float64{-0.10, 0.02, 0.05, -0.03}, 0.95), 1e-9)
}

func TestValueAtRisk_Empty(t *testing.T) {
	assert.Equal(t, 0.0, ValueAtRisk(nil, 0.95))
}

// --- MaxDrawdown ---

func TestMaxDrawdown_Basic(t *testing.T) {
	// equity: 10, 5, 12, 4, 9 ⇒ peak 12, valle 4 ⇒ dd = 8
	assert.InDelta(t, 8.0, MaxDrawdown([]float64{10, -5, 7, -8, 5}), 1e-9)
}

func TestMaxDrawdown_MonotoneGains(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1, 2, 3}))
}

func TestMaxDrawdown_ImmediateLoss(t *testing.T) {
	// Sin pico previo, el peak arranca en 0: dd = 6.
	assert.InDelta(t, 6.0, MaxDrawdown([]float64{-4, -2}), 1e-9)
}

func TestMaxDrawdown_Empty(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}
