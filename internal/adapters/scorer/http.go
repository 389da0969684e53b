package scorer

// http.go — cliente del servicio de confidence scoring.
// Mismo patrón que el cliente del fee oracle: rate limiting, timeout acotado
// y todo fallo colapsado en ports.ErrUnavailable para que el orquestador
// salte la ruta.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/triarb/internal/domain"
	"github.com/alejandrodnm/triarb/internal/ports"
)

const (
	scorerTimeout = 1500 * time.Millisecond
	scorerRate    = 10 // requests/segundo
)

// Client implementa ports.ConfidenceScorer contra un endpoint HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient crea un cliente para el endpoint dado.
func NewClient(baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: scorerTimeout},
		baseURL: baseURL,
		limiter: rate.NewLimiter(scorerRate, 2),
	}
}

type scoreRequest struct {
	SpreadBps       float64 `json:"spread_bps"`
	PriceImpactPct  float64 `json:"price_impact_pct"`
	DepthRatio      float64 `json:"depth_ratio"`
	ProfitMarginBps float64 `json:"profit_margin_bps"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// Score envía el feature vector y devuelve la confianza en [0,1].
func (c *Client) Score(ctx context.Context, features domain.ScoreFeatures) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, scorerTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ports.ErrUnavailable, err)
	}

	payload, err := json.Marshal(scoreRequest{
		SpreadBps:       features.SpreadBps,
		PriceImpactPct:  features.PriceImpactPct,
		DepthRatio:      features.DepthRatio,
		ProfitMarginBps: features.ProfitMarginBps,
	})
	if err != nil {
		return 0, fmt.Errorf("scorer.Score: marshal features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("scorer.Score: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ports.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: scorer status %d", ports.ErrUnavailable, resp.StatusCode)
	}

	var body scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", ports.ErrUnavailable, err)
	}
	if body.Score < 0 || body.Score > 1 {
		return 0, fmt.Errorf("scorer.Score: score %v out of range", body.Score)
	}
	return body.Score, nil
}
