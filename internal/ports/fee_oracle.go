package ports

import (
	"context"

	"github.com/alejandrodnm/triarb/internal/domain"
)

// FeeOracle consulta el nivel actual de fees de la red.
type FeeOracle interface {
	// GasPriceGwei devuelve el gas price actual. ErrUnavailable si el
	// oráculo no responde — el estimador sustituye su fallback fijo.
	GasPriceGwei(ctx context.Context) (float64, error)
}

// GasEstimator produce estimaciones conservadoras de coste de transacción.
// Nunca falla: ante un oráculo caído devuelve el fallback — es preferible
// perder una oportunidad que operar con un coste desconocido.
type GasEstimator interface {
	Estimate(ctx context.Context, legs int) domain.GasEstimate
}
