package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/triarb/internal/domain"
)

// Storage persiste trades, eventos de riesgo y agregados diarios.
// Los fallos de escritura se loggean y nunca bloquean ni revierten la
// mutación en memoria que los disparó: la corrección del estado va por
// delante de la completitud del audit log.
type Storage interface {
	// SaveTrade añade un trade record append-only.
	SaveTrade(ctx context.Context, record domain.TradeRecord) error

	// UpdateTradeResult completa un trade con el resultado del executor.
	UpdateTradeResult(ctx context.Context, id string, realizedProfit float64, status domain.TradeStatus, txRef, execError *string) error

	// SaveRiskEvent añade un evento de riesgo append-only.
	SaveRiskEvent(ctx context.Context, event domain.RiskEvent) error

	// DailyAggregate devuelve el agregado del día dado (rehidratación).
	DailyAggregate(ctx context.Context, date time.Time) (domain.DailyAggregate, error)

	// RecentDailyAggregates devuelve los últimos días con actividad,
	// más reciente primero (retuning de analytics).
	RecentDailyAggregates(ctx context.Context, days int) ([]domain.DailyAggregate, error)

	// RecentOutcomes devuelve los últimos outcomes realizados, más reciente
	// primero (reconstrucción del loss streak al arrancar).
	RecentOutcomes(ctx context.Context, limit int) ([]domain.TradeOutcome, error)

	// RecentTrades devuelve los últimos trade records (API de operaciones).
	RecentTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
