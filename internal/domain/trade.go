package domain

import (
	"math/big"
	"time"
)

// TradeCandidate es el resultado de simular una ruta con un notional concreto.
// Todos los importes van en unidades crudas del token base (aritmética entera):
// el signo de NetProfit nunca depende de redondeo float. Se crea por
// simulación y se descarta tras la decisión.
type TradeCandidate struct {
	Route           Route
	NotionalIn      *big.Int   // input en unidades crudas del token base
	PerLegAmountOut []*big.Int // output de cada leg, en unidades del token de salida del leg
	GrossProfit     *big.Int   // output final - input
	GasCost         *big.Int   // coste de gas convertido a unidades del token base
	SlippageCost    *big.Int   // slippage modelado en bps del notional
	NetProfit       *big.Int   // GrossProfit - GasCost - SlippageCost

	NotionalUsd  float64 // notional en USD para el risk controller
	NetProfitUsd float64 // NetProfit convertido a USD (solo para display/risk)
	Score        float64 // confidence score [0,1] del scorer externo
}

// TradeOutcome es el resultado realizado de un trade ejecutado, tal y como lo
// reporta el executor. El risk controller lo pliega en su estado.
type TradeOutcome struct {
	Notional       float64
	RealizedProfit float64
	ExecutedAt     time.Time
}

// IsLoss devuelve true si el outcome cuenta como pérdida para el streak.
// El break-even cuenta como pérdida: un trade que no gana, quema gas.
func (o TradeOutcome) IsLoss() bool {
	return o.RealizedProfit <= 0
}

// TradeStatus es el estado de un trade record persistido.
type TradeStatus string

const (
	TradeStatusAuthorized TradeStatus = "authorized"
	TradeStatusExecuted   TradeStatus = "executed"
	TradeStatusFailed     TradeStatus = "failed"
)

// TradeRecord es el registro append-only que se persiste por cada candidato
// autorizado. El executor (fuera de alcance) actualiza realized/tx al ejecutar.
type TradeRecord struct {
	ID             string // UUID local
	Route          string
	NotionalUsd    float64
	ExpectedProfit float64
	RealizedProfit *float64 // nil hasta que el executor reporta
	GasCostUsd     float64
	Score          float64
	Status         TradeStatus
	TxRef          *string
	Error          *string
	CreatedAt      time.Time
}

// DailyAggregate es el agregado diario que usa la rehidratación del risk
// controller y el retuning de límites.
type DailyAggregate struct {
	Date       time.Time
	DailyPnl   float64
	TradeCount int
	WinRate    float64
}

// ScoreFeatures es el feature vector que se envía al confidence scorer.
// Todos los valores se computan de datos reales del reserve reader — nada
// de placeholders.
type ScoreFeatures struct {
	SpreadBps       float64 // spread de precio entre venues para el par de entrada
	PriceImpactPct  float64 // impacto del primer leg al notional candidato
	DepthRatio      float64 // notional / reserva de entrada del primer leg
	ProfitMarginBps float64 // margen neto del candidato en bps
}

// GasEstimate es la estimación conservadora de coste de transacción.
type GasEstimate struct {
	GasLimit  uint64
	PriceGwei float64
	CostUsd   float64
}
