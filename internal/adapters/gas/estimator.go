package gas

// estimator.go — estimación conservadora de coste de transacción.
//
// La estimación infla el precio del oráculo y, si el oráculo no responde,
// sustituye un fallback fijo alto en vez de propagar el fallo: perder una
// oportunidad es mejor que operar con un coste desconocido.

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/triarb/internal/domain"
	"github.com/alejandrodnm/triarb/internal/ports"
)

// Config del estimador.
type Config struct {
	GasPerLeg    uint64  // gas por swap
	BaseGas      uint64  // overhead fijo de la transacción
	InflationPct int64   // margen sobre el precio del oráculo
	FallbackGwei float64 // precio fijo si el oráculo falla
	NativeUsd    float64 // precio USD del token nativo
}

// Estimator implementa ports.GasEstimator sobre un FeeOracle.
type Estimator struct {
	cfg    Config
	oracle ports.FeeOracle
}

// NewEstimator crea un Estimator. oracle puede ser nil: siempre fallback.
func NewEstimator(cfg Config, oracle ports.FeeOracle) *Estimator {
	return &Estimator{cfg: cfg, oracle: oracle}
}

// Estimate devuelve la estimación inflada para una ruta de `legs` swaps.
// Nunca falla.
func (e *Estimator) Estimate(ctx context.Context, legs int) domain.GasEstimate {
	if legs <= 0 {
		legs = 1
	}
	gasLimit := e.cfg.BaseGas + e.cfg.GasPerLeg*uint64(legs)

	price := e.cfg.FallbackGwei
	if e.oracle != nil {
		if p, err := e.oracle.GasPriceGwei(ctx); err != nil {
			slog.Warn("fee oracle unavailable, using fallback",
				"fallback_gwei", e.cfg.FallbackGwei, "err", err)
		} else {
			price = p
		}
	}

	// Inflar el precio: estimación conservadora por diseño del presupuesto.
	price = price * (1 + float64(e.cfg.InflationPct)/100)

	// gwei·gas → coste USD con aritmética decimal exacta; el float solo
	// sale al final, para la capa de veredicto.
	costUsd, _ := decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(int64(gasLimit))).
		Shift(-9). // gwei → unidad nativa
		Mul(decimal.NewFromFloat(e.cfg.NativeUsd)).
		Float64()

	return domain.GasEstimate{
		GasLimit:  gasLimit,
		PriceGwei: price,
		CostUsd:   costUsd,
	}
}
