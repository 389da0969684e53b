package domain

// profit.go — contabilidad de profit neto y heurísticas de sizing.
//
// Esta capa trabaja en USD float para veredictos y display. La decisión de
// rentabilidad del orquestador se toma ANTES, sobre el NetProfit entero del
// candidato — aquí nunca se recalcula nada que pueda cambiar ese signo.

import "math"

// kellyMaxFraction limita el sizing de Kelly al 10% del capital: por muy
// grande que parezca el edge, los inputs son estimaciones ruidosas.
const kellyMaxFraction = 0.1

// ProfitCalc es el veredicto de profit neto de un candidato.
type ProfitCalc struct {
	NetProfitUsd    float64
	ProfitMarginBps float64
	BreakEvenUsd    float64 // tamaño mínimo que cubre los costes fijos al margen observado
}

// NetProfit combina profit bruto y costes en un veredicto.
// marginBps = netProfit/tradeSize·10000, 0 si tradeSize es 0.
func NetProfit(grossUsd, gasUsd, slippageUsd, tradeSizeUsd float64) ProfitCalc {
	net := grossUsd - gasUsd - slippageUsd

	calc := ProfitCalc{NetProfitUsd: net}
	if tradeSizeUsd == 0 {
		return calc
	}
	calc.ProfitMarginBps = net / tradeSizeUsd * BpsDenominator

	// Break-even: el tamaño al que el margen bruto observado paga justo los
	// costes fijos. Solo tiene sentido con margen bruto positivo.
	grossMargin := grossUsd / tradeSizeUsd
	if grossMargin > 0 {
		calc.BreakEvenUsd = (gasUsd + slippageUsd) / grossMargin
	}
	return calc
}

// IsProfitable devuelve true si el profit neto alcanza el mínimo (inclusivo).
func IsProfitable(calc ProfitCalc, minProfitUsd float64) bool {
	return calc.NetProfitUsd >= minProfitUsd
}

// CalculateOptimalSize devuelve el menor tamaño que cubre el break-even de gas
// y el profit mínimo al spread observado, limitado a maxSize. 0 si el spread
// no es positivo o si ni maxSize alcanza el profit mínimo.
func CalculateOptimalSize(spreadBps, gasCostUsd, maxSizeUsd, minProfitUsd float64) float64 {
	if spreadBps <= 0 || maxSizeUsd <= 0 {
		return 0
	}

	// profit(size) = size·spread/10000 - gas  ⇒  size mínimo que lo cubre:
	required := (minProfitUsd + gasCostUsd) * BpsDenominator / spreadBps
	if required > maxSizeUsd {
		return 0
	}
	if required < 0 {
		required = 0
	}
	return required
}

// KellySize devuelve el capital a arriesgar según el criterio de Kelly:
//
//	fraction = clamp(0, 0.1, (p·win - (1-p)·loss) / loss)
//
// Siempre ≥ 0 y nunca más del 10% del capital. Devuelve 0 si no hay
// probabilidad de ganar o si la pérdida media es 0 (sin datos, sin sizing).
func KellySize(capitalUsd, winProbability, avgWinUsd, avgLossUsd float64) float64 {
	if capitalUsd <= 0 || winProbability <= 0 || avgLossUsd <= 0 {
		return 0
	}

	edge := winProbability*avgWinUsd - (1-winProbability)*avgLossUsd
	fraction := edge / avgLossUsd
	fraction = math.Max(0, math.Min(kellyMaxFraction, fraction))
	return capitalUsd * fraction
}
