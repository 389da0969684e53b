package ports

import (
	"context"

	"github.com/alejandrodnm/triarb/internal/domain"
)

// ConfidenceScorer es el scorer externo (modelo ML suplementario) que puntúa
// un candidato en [0,1].
type ConfidenceScorer interface {
	// Score devuelve la confianza para el feature vector dado.
	// ErrUnavailable si el servicio no responde; el orquestador salta la ruta.
	Score(ctx context.Context, features domain.ScoreFeatures) (float64, error)
}
