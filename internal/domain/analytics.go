package domain

// analytics.go — transformaciones puras para ajustar límites de riesgo y
// métricas de portfolio. Sin estado: el retuning del orquestador las aplica
// sobre los límites base y empuja el resultado al controller.

import (
	"math"
	"sort"
	"time"
)

// AdjustForVolatility escala los límites según el score de volatilidad [0,1]:
// reducción lineal hasta el 50% con volatilidad 1, ninguna con 0. Los
// cooldowns se alargan en la misma proporción. El límite de pérdidas
// consecutivas nunca baja de 2.
func AdjustForVolatility(l RiskLimits, volScore float64) RiskLimits {
	v := clamp01(volScore)
	factor := 1 - 0.5*v
	stretch := 1 + v

	out := l
	out.MaxDailyLossUsd = l.MaxDailyLossUsd * factor
	out.MaxNotionalUsd = l.MaxNotionalUsd * factor
	out.MaxTradesPerHour = int(math.Round(float64(l.MaxTradesPerHour) * factor))
	out.MaxConsecutiveLosses = max(2, int(math.Round(float64(l.MaxConsecutiveLosses)*factor)))
	out.CooldownAfterLoss = time.Duration(float64(l.CooldownAfterLoss) * stretch)
	out.MinTimeBetweenTrades = time.Duration(float64(l.MinTimeBetweenTrades) * stretch)
	return out
}

// AdjustForPerformance multiplica loss/notional/hourly por
// clamp(0.5, 1.5, winRate·2) · (pnl>0 ? 1.1 : 0.9). El límite de pérdidas
// consecutivas no se toca.
func AdjustForPerformance(l RiskLimits, winRate, pnl float64) RiskLimits {
	mult := math.Max(0.5, math.Min(1.5, winRate*2))
	if pnl > 0 {
		mult *= 1.1
	} else {
		mult *= 0.9
	}

	out := l
	out.MaxDailyLossUsd = l.MaxDailyLossUsd * mult
	out.MaxNotionalUsd = l.MaxNotionalUsd * mult
	out.MaxTradesPerHour = int(math.Round(float64(l.MaxTradesPerHour) * mult))
	return out
}

// TradingWindows define las franjas horarias UTC de baja liquidez y pico.
type TradingWindows struct {
	LowLiquidity []HourWindow
	Peak         []HourWindow
}

// HourWindow es un rango horario [From, To); soporta wrap por medianoche
// (From=22, To=6).
type HourWindow struct {
	From int
	To   int
}

// Contains devuelve true si la hora cae dentro de la ventana.
func (w HourWindow) Contains(hour int) bool {
	if w.From == w.To {
		return false
	}
	if w.From < w.To {
		return hour >= w.From && hour < w.To
	}
	return hour >= w.From || hour < w.To
}

func inAny(windows []HourWindow, hour int) bool {
	for _, w := range windows {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}

// AdjustForTimeOfDay encoge notional y rate horario y alarga el cooldown en
// las franjas de baja liquidez, y los amplía en las de pico. Los límites de
// pérdida diaria y pérdidas consecutivas no se tocan.
func AdjustForTimeOfDay(l RiskLimits, hour int, w TradingWindows) RiskLimits {
	out := l
	switch {
	case inAny(w.LowLiquidity, hour):
		out.MaxNotionalUsd = l.MaxNotionalUsd * 0.5
		out.MaxTradesPerHour = int(math.Round(float64(l.MaxTradesPerHour) * 0.5))
		out.CooldownAfterLoss = l.CooldownAfterLoss * 2
	case inAny(w.Peak, hour):
		out.MaxNotionalUsd = l.MaxNotionalUsd * 1.25
		out.MaxTradesPerHour = int(math.Round(float64(l.MaxTradesPerHour) * 1.25))
	}
	return out
}

// --- métricas de portfolio ---

// SharpeRatio = (mean(returns) - riskFree) / stdDev(returns).
// 0 con menos de 2 muestras o stdDev 0.
func SharpeRatio(returns []float64, riskFree float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := meanOf(returns)
	sd := stdDev(returns, mean)
	if sd == 0 {
		return 0
	}
	return (mean - riskFree) / sd
}

// SortinoRatio usa el mismo numerador que Sharpe sobre la desviación estándar
// de solo los retornos negativos. +Inf si no hay observaciones negativas: sin
// downside no hay riesgo que penalizar.
func SortinoRatio(returns []float64, riskFree float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return math.Inf(1)
	}

	dd := stdDev(downside, meanOf(downside))
	if dd == 0 {
		return math.Inf(1)
	}
	return (meanOf(returns) - riskFree) / dd
}

// ValueAtRisk devuelve el valor en el índice floor((1-c)·n) de la muestra
// ordenada ascendente. 0 con muestra vacía.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// MaxDrawdown devuelve la máxima caída pico-valle de la curva de equity
// acumulada de los retornos, como magnitud positiva.
func MaxDrawdown(returns []float64) float64 {
	equity := 0.0
	peak := 0.0
	maxDD := 0.0
	for _, r := range returns {
		equity += r
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// --- helpers ---

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev es la desviación estándar muestral (n-1) salvo con una sola muestra.
func stdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
