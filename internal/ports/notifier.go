package ports

import (
	"context"

	"github.com/alejandrodnm/triarb/internal/domain"
)

// Notifier presenta los candidatos autorizados de cada ciclo al operador.
type Notifier interface {
	// Notify muestra los candidatos emitidos junto al estado de riesgo.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, candidates []domain.TradeCandidate, state domain.RiskState) error
}
