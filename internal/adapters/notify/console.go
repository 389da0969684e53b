package notify

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/triarb/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime los candidatos autorizados del ciclo en el modo configurado.
func (c *Console) Notify(_ context.Context, candidates []domain.TradeCandidate, state domain.RiskState) error {
	if state.IsKilled {
		fmt.Fprintf(c.out, "[%s] KILLED (%s) — no trading until reset\n",
			time.Now().Format("15:04:05"), state.KillReason)
		return nil
	}

	if len(candidates) == 0 {
		fmt.Fprintf(c.out, "[%s] no profitable candidates | pnl $%.2f | streak %d | %d trades/h\n",
			time.Now().Format("15:04:05"), state.DailyPnl,
			state.ConsecutiveLosses, state.TradesInLastHour)
		return nil
	}

	if c.table {
		c.printFull(candidates, state)
	} else {
		c.printCompact(candidates, state)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(candidates []domain.TradeCandidate, state domain.RiskState) {
	now := time.Now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d candidates | pnl $%.2f | streak %d",
		now, len(candidates), state.DailyPnl, state.ConsecutiveLosses)

	shown := 0
	for _, cand := range candidates {
		if shown >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | %s $%.0f → +$%.2f (%.2f)",
			compactRoute(cand.Route.String(), 30),
			cand.NotionalUsd, cand.NetProfitUsd, cand.Score)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa con desglose de costes por candidato.
func (c *Console) printFull(candidates []domain.TradeCandidate, state domain.RiskState) {
	now := time.Now().Format("15:04:05")

	fmt.Fprintf(c.out, "\n[%s] %d authorized candidates — daily pnl $%.2f, streak %d, %d trades last hour\n",
		now, len(candidates), state.DailyPnl, state.ConsecutiveLosses, state.TradesInLastHour)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Route", "Notional", "Gross", "Gas", "Slip", "Net", "Score")

	for i, cand := range candidates {
		table.Append(
			fmt.Sprintf("%d", i+1),
			cand.Route.String(),
			fmt.Sprintf("$%.0f", cand.NotionalUsd),
			rawLabel(cand.GrossProfit),
			rawLabel(cand.GasCost),
			rawLabel(cand.SlippageCost),
			fmt.Sprintf("$%.2f", cand.NetProfitUsd),
			fmt.Sprintf("%.2f", cand.Score),
		)
	}

	table.Render()
	fmt.Fprintln(c.out, "  Gross/Gas/Slip en unidades crudas del token base | Net en USD")
}

// --- helpers ---

func compactRoute(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}

func rawLabel(v *big.Int) string {
	if v == nil {
		return "-"
	}
	return v.String()
}
