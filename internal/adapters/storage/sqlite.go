package storage

// sqlite.go — persistencia del audit trail en SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - `trades`: una fila por candidato autorizado (append-only). El executor
//     completa realized_profit/status/tx_ref con UpdateTradeResult.
//   - `risk_events`: transiciones del risk controller, con snapshot JSON del
//     estado en el momento del evento. Nunca se reescriben.
//   - Agregados diarios calculados con SQL sobre trades realizados: no hay
//     tabla de agregados que mantener consistente.
//   - Prune automático al arrancar: trades y eventos > 90 días.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/triarb/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Un candidato autorizado por fila; el executor completa el resultado
CREATE TABLE IF NOT EXISTS trades (
    id              TEXT PRIMARY KEY,
    route           TEXT     NOT NULL,
    notional_usd    REAL     NOT NULL,
    expected_profit REAL     NOT NULL,
    realized_profit REAL,
    gas_cost_usd    REAL     NOT NULL DEFAULT 0,
    score           REAL     NOT NULL DEFAULT 0,
    status          TEXT     NOT NULL,
    tx_ref          TEXT,
    error           TEXT,
    created_at      DATETIME NOT NULL
);

-- Transiciones de estado del risk controller, append-only
CREATE TABLE IF NOT EXISTS risk_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    event_type  TEXT     NOT NULL,
    description TEXT     NOT NULL,
    snapshot    TEXT     NOT NULL,
    created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_created ON trades(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_status  ON trades(status);
CREATE INDEX IF NOT EXISTS idx_events_created ON risk_events(created_at DESC);
`

const retention = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveTrade persiste un trade record recién autorizado.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, r domain.TradeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, route, notional_usd, expected_profit, realized_profit,
			 gas_cost_usd, score, status, tx_ref, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.Route, r.NotionalUsd, r.ExpectedProfit, r.RealizedProfit,
		r.GasCostUsd, r.Score, string(r.Status), r.TxRef, r.Error,
		r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: insert %s: %w", r.ID, err)
	}
	return nil
}

// UpdateTradeResult completa un trade con el resultado reportado por el
// executor. Error si el id no existe.
func (s *SQLiteStorage) UpdateTradeResult(ctx context.Context, id string, realizedProfit float64, status domain.TradeStatus, txRef, execError *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades
		SET realized_profit = ?, status = ?, tx_ref = ?, error = ?
		WHERE id = ?
	`, realizedProfit, string(status), txRef, execError, id)
	if err != nil {
		return fmt.Errorf("storage.UpdateTradeResult: update %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.UpdateTradeResult: trade %s not found", id)
	}
	return nil
}

// SaveRiskEvent persiste un evento de riesgo con el snapshot serializado.
func (s *SQLiteStorage) SaveRiskEvent(ctx context.Context, ev domain.RiskEvent) error {
	snapshot, err := json.Marshal(ev.Snapshot)
	if err != nil {
		return fmt.Errorf("storage.SaveRiskEvent: marshal snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_events (event_type, description, snapshot, created_at)
		VALUES (?, ?, ?, ?)
	`, string(ev.Type), ev.Description, string(snapshot), ev.Timestamp.UTC()); err != nil {
		return fmt.Errorf("storage.SaveRiskEvent: insert: %w", err)
	}
	return nil
}

// DailyAggregate calcula el agregado del día dado sobre los trades con
// resultado realizado. Un día sin actividad devuelve el agregado en cero.
func (s *SQLiteStorage) DailyAggregate(ctx context.Context, date time.Time) (domain.DailyAggregate, error) {
	day := date.UTC().Format("2006-01-02")

	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(realized_profit), 0),
		       COUNT(*),
		       COALESCE(AVG(CASE WHEN realized_profit > 0 THEN 1.0 ELSE 0.0 END), 0)
		FROM trades
		WHERE realized_profit IS NOT NULL AND date(created_at) = ?
	`, day)

	agg := domain.DailyAggregate{Date: date.UTC().Truncate(24 * time.Hour)}
	if err := row.Scan(&agg.DailyPnl, &agg.TradeCount, &agg.WinRate); err != nil {
		return domain.DailyAggregate{}, fmt.Errorf("storage.DailyAggregate: scan %s: %w", day, err)
	}
	return agg, nil
}

// RecentDailyAggregates devuelve los últimos días con actividad realizada,
// más reciente primero.
func (s *SQLiteStorage) RecentDailyAggregates(ctx context.Context, days int) ([]domain.DailyAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(created_at),
		       SUM(realized_profit),
		       COUNT(*),
		       AVG(CASE WHEN realized_profit > 0 THEN 1.0 ELSE 0.0 END)
		FROM trades
		WHERE realized_profit IS NOT NULL
		GROUP BY date(created_at)
		ORDER BY date(created_at) DESC
		LIMIT ?
	`, days)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentDailyAggregates: query: %w", err)
	}
	defer rows.Close()

	var aggs []domain.DailyAggregate
	for rows.Next() {
		var agg domain.DailyAggregate
		var day string
		if err := rows.Scan(&day, &agg.DailyPnl, &agg.TradeCount, &agg.WinRate); err != nil {
			return nil, fmt.Errorf("storage.RecentDailyAggregates: scan row: %w", err)
		}
		agg.Date, _ = time.Parse("2006-01-02", day)
		aggs = append(aggs, agg)
	}
	return aggs, rows.Err()
}

// RecentOutcomes devuelve los últimos outcomes realizados, más reciente primero.
func (s *SQLiteStorage) RecentOutcomes(ctx context.Context, limit int) ([]domain.TradeOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT notional_usd, realized_profit, created_at
		FROM trades
		WHERE realized_profit IS NOT NULL
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentOutcomes: query: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.TradeOutcome
	for rows.Next() {
		var o domain.TradeOutcome
		var executedAt string
		if err := rows.Scan(&o.Notional, &o.RealizedProfit, &executedAt); err != nil {
			return nil, fmt.Errorf("storage.RecentOutcomes: scan row: %w", err)
		}
		o.ExecutedAt = parseStoredTime(executedAt)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// RecentTrades devuelve los últimos trade records, más reciente primero.
func (s *SQLiteStorage) RecentTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, route, notional_usd, expected_profit, realized_profit,
		       gas_cost_usd, score, status, tx_ref, error, created_at
		FROM trades
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentTrades: query: %w", err)
	}
	defer rows.Close()

	var records []domain.TradeRecord
	for rows.Next() {
		var r domain.TradeRecord
		var status, createdAt string
		if err := rows.Scan(
			&r.ID, &r.Route, &r.NotionalUsd, &r.ExpectedProfit, &r.RealizedProfit,
			&r.GasCostUsd, &r.Score, &status, &r.TxRef, &r.Error, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentTrades: scan row: %w", err)
		}
		r.Status = domain.TradeStatus(status)
		r.CreatedAt = parseStoredTime(createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retention)
	s.db.ExecContext(ctx, `DELETE FROM trades WHERE created_at < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM risk_events WHERE created_at < ?`, cutoff)
}

// parseStoredTime acepta los dos formatos con los que el driver devuelve
// DATETIME según cómo se insertó la fila.
func parseStoredTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
