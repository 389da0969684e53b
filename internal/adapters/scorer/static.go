package scorer

// static.go — scorer determinista para dry-run y tests, sin servicio externo.

import (
	"context"
	"math"

	"github.com/alejandrodnm/triarb/internal/domain"
)

// Static implementa ports.ConfidenceScorer con una heurística local:
// margen ancho y poco impacto puntúan alto, sin red por medio.
type Static struct{}

// NewStatic crea el scorer local.
func NewStatic() *Static {
	return &Static{}
}

// Score devuelve una confianza determinista en [0,1] a partir del feature
// vector. Nunca falla.
func (Static) Score(_ context.Context, f domain.ScoreFeatures) (float64, error) {
	// Margen neto saturando en 50bps; impacto y profundidad penalizan.
	margin := math.Min(1, math.Max(0, f.ProfitMarginBps/50))
	impact := math.Min(1, math.Max(0, f.PriceImpactPct/5))
	depth := math.Min(1, math.Max(0, f.DepthRatio*10))

	score := margin*0.6 + (1-impact)*0.25 + (1-depth)*0.15
	return math.Min(1, math.Max(0, score)), nil
}
