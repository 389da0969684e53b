package gas

// oracle.go — cliente HTTP del fee oracle (estilo gas station JSON).
// Rate limiting y retries con backoff, igual que el resto de clientes HTTP
// del proyecto. Cualquier fallo se reporta como ports.ErrUnavailable: el
// estimador decide el fallback, no este cliente.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/triarb/internal/ports"
)

const (
	oracleTimeout = 2 * time.Second
	oracleRate    = 2 // requests/segundo: el gas price no cambia más rápido
	maxRetries    = 2
	baseRetryWait = 200 * time.Millisecond
)

// Oracle implementa ports.FeeOracle contra un endpoint HTTP.
type Oracle struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewOracle crea un cliente para el endpoint dado.
func NewOracle(baseURL string) *Oracle {
	return &Oracle{
		http:    &http.Client{Timeout: oracleTimeout},
		baseURL: baseURL,
		limiter: rate.NewLimiter(oracleRate, 1),
	}
}

type oracleResponse struct {
	FastGwei float64 `json:"fast_gwei"`
}

// GasPriceGwei consulta el gas price con timeout acotado: la ruta de decisión
// nunca se queda colgada esperando al oráculo.
func (o *Oracle) GasPriceGwei(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, oracleTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := o.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("%w: %v", ports.ErrUnavailable, err)
		}

		price, err := o.fetch(ctx)
		if err == nil {
			return price, nil
		}
		lastErr = err

		select {
		case <-time.After(time.Duration(attempt+1) * baseRetryWait):
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %v", ports.ErrUnavailable, ctx.Err())
		}
	}
	return 0, fmt.Errorf("%w: %v", ports.ErrUnavailable, lastErr)
}

func (o *Oracle) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("oracle status %d", resp.StatusCode)
	}

	var body oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if body.FastGwei <= 0 {
		return 0, fmt.Errorf("oracle returned non-positive price %v", body.FastGwei)
	}
	return body.FastGwei, nil
}
