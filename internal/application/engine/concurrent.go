package engine

// concurrent.go — worker pool para evaluar rutas en paralelo.
//
// Los snapshots de ReservePair son de solo lectura y no hay estado mutable
// compartido entre rutas, así que cada evento de mercado puede abrirse en
// paralelo. Las mutaciones del risk controller ya van serializadas por su
// propio lock.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/triarb/internal/domain"
)

// evaluateRoutesConcurrent evalúa todas las rutas usando un worker pool.
// Si workers <= 0 usa runtime.NumCPU().
func evaluateRoutesConcurrent(ctx context.Context, e *Engine, routes []domain.Route, workers int) []domain.TradeCandidate {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	workCh := make(chan domain.Route, len(routes))
	resultCh := make(chan domain.TradeCandidate, len(routes))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for route := range workCh {
				if cand, ok := e.evaluateRoute(ctx, route); ok {
					resultCh <- cand
				}
			}
		}()
	}

	for _, route := range routes {
		workCh <- route
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	candidates := make([]domain.TradeCandidate, 0, len(routes))
	for cand := range resultCh {
		candidates = append(candidates, cand)
	}

	slog.Debug("route evaluation complete",
		"routes", len(routes),
		"candidates", len(candidates),
		"workers", workers,
	)

	return candidates
}
