package engine

// evaluate.go — per-route simulation: three-leg (or two-leg) integer AMM
// simulation, net profit accounting, confidence scoring and the risk gate.
// The first qualifying size wins; larger sizes are not also emitted.

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/alejandrodnm/triarb/internal/domain"
)

// evaluateRoute simulates the route over ascending candidate sizes and returns
// the single authorized candidate, if any. A missing reserve snapshot for any
// leg aborts only this route, never the batch.
func (e *Engine) evaluateRoute(ctx context.Context, route domain.Route) (domain.TradeCandidate, bool) {
	pairs := make([]domain.ReservePair, 0, len(route.Legs))
	for _, leg := range route.Legs {
		pair, err := e.reserves.Reserves(ctx, leg.TokenIn, leg.TokenOut, leg.Venue)
		if err != nil {
			slog.Debug("missing reserves, skipping route",
				"route", route.String(), "leg", leg.TokenIn+"→"+leg.TokenOut, "err", err)
			return domain.TradeCandidate{}, false
		}
		pairs = append(pairs, pair)
	}

	// One gas estimate per route evaluation; the estimator already degrades
	// to its conservative fallback on oracle failure.
	gasEst := e.gas.Estimate(ctx, len(route.Legs))
	gasRaw := usdToRaw(gasEst.CostUsd, e.cfg.BaseDecimals)
	minProfitRaw := usdToRaw(e.cfg.MinProfitUsd, e.cfg.BaseDecimals)

	for _, sizeUsd := range e.cfg.CandidateSizesUsd {
		notionalRaw := usdToRaw(sizeUsd, e.cfg.BaseDecimals)

		legOuts, finalOut := simulateLegs(notionalRaw, pairs)
		if finalOut == nil {
			continue // a leg produced no output at this size
		}

		gross := new(big.Int).Sub(finalOut, notionalRaw)
		slipRaw := slippageCost(notionalRaw, e.cfg.SlippageBps)

		net := new(big.Int).Sub(gross, gasRaw)
		net.Sub(net, slipRaw)

		// Profitability is decided on the integer net profit, in the same
		// precision as the leg simulation. Floats enter only afterwards.
		if net.Cmp(minProfitRaw) < 0 {
			continue
		}

		netUsd := rawToUsd(net, e.cfg.BaseDecimals)

		features := e.computeFeatures(ctx, route, pairs[0], notionalRaw, netUsd, sizeUsd)
		score, err := e.scorer.Score(ctx, features)
		if err != nil {
			slog.Debug("scorer unavailable, skipping route", "route", route.String(), "err", err)
			return domain.TradeCandidate{}, false
		}
		if score < e.cfg.ScoreThreshold {
			slog.Debug("score below threshold",
				"route", route.String(), "score", score, "threshold", e.cfg.ScoreThreshold)
			return domain.TradeCandidate{}, false
		}

		if !e.riskCtl.CanTrade(sizeUsd, netUsd) {
			slog.Debug("risk controller rejected candidate",
				"route", route.String(), "notional", sizeUsd, "expected_profit", netUsd)
			return domain.TradeCandidate{}, false
		}

		return domain.TradeCandidate{
			Route:           route,
			NotionalIn:      notionalRaw,
			PerLegAmountOut: legOuts,
			GrossProfit:     gross,
			GasCost:         gasRaw,
			SlippageCost:    slipRaw,
			NetProfit:       net,
			NotionalUsd:     sizeUsd,
			NetProfitUsd:    netUsd,
			Score:           score,
		}, true
	}

	return domain.TradeCandidate{}, false
}

// simulateLegs runs the notional through every leg with exact integer
// arithmetic. Returns nil final output if any leg produces 0.
func simulateLegs(notional *big.Int, pairs []domain.ReservePair) ([]*big.Int, *big.Int) {
	outs := make([]*big.Int, 0, len(pairs))
	amt := notional
	for _, pair := range pairs {
		amt = domain.AmountOut(amt, pair)
		if amt.Sign() == 0 {
			return nil, nil
		}
		outs = append(outs, amt)
	}
	return outs, amt
}

// slippageCost models execution slippage as bps of the notional.
func slippageCost(notional *big.Int, bps int64) *big.Int {
	if bps <= 0 {
		return new(big.Int)
	}
	cost := new(big.Int).Mul(notional, big.NewInt(bps))
	return cost.Div(cost, big.NewInt(domain.BpsDenominator))
}

// computeFeatures builds the scorer feature vector from real reserve data:
// cross-venue spread for the entry pair, first-leg price impact, depth ratio
// and the candidate's own net margin. Spread degrades to 0 when the opposite
// venue has no snapshot — advisory input, never a reason to abort.
func (e *Engine) computeFeatures(
	ctx context.Context,
	route domain.Route,
	first domain.ReservePair,
	notionalRaw *big.Int,
	netUsd, sizeUsd float64,
) domain.ScoreFeatures {
	features := domain.ScoreFeatures{
		PriceImpactPct: domain.PriceImpactPct(notionalRaw, first),
		DepthRatio:     ratio(notionalRaw, first.ReserveIn),
	}
	if sizeUsd > 0 {
		features.ProfitMarginBps = netUsd / sizeUsd * domain.BpsDenominator
	}

	if other, ok := otherVenue(route); ok {
		leg := route.Legs[0]
		if pair, err := e.reserves.Reserves(ctx, leg.TokenIn, leg.TokenOut, other); err == nil {
			here := domain.MidPrice(first)
			there := domain.MidPrice(pair)
			if there > 0 {
				features.SpreadBps = (here/there - 1) * domain.BpsDenominator
			}
		}
	}
	return features
}

// otherVenue finds the first venue in the route distinct from the first leg's.
func otherVenue(route domain.Route) (domain.Venue, bool) {
	firstVenue := route.Legs[0].Venue
	for _, leg := range route.Legs[1:] {
		if leg.Venue != firstVenue {
			return leg.Venue, true
		}
	}
	return "", false
}

// usdToRaw converts a USD float into raw base-token units.
func usdToRaw(usd float64, decimals int) *big.Int {
	scale := new(big.Float).SetInt(pow10(decimals))
	raw, _ := new(big.Float).Mul(big.NewFloat(usd), scale).Int(nil)
	return raw
}

// rawToUsd converts raw base-token units into a USD float (display/risk only).
func rawToUsd(raw *big.Int, decimals int) float64 {
	f := new(big.Float).SetInt(raw)
	f.Quo(f, new(big.Float).SetInt(pow10(decimals)))
	v, _ := f.Float64()
	return v
}

func ratio(num, den *big.Int) float64 {
	if den == nil || den.Sign() == 0 {
		return 0
	}
	v, _ := new(big.Float).Quo(new(big.Float).SetInt(num), new(big.Float).SetInt(den)).Float64()
	return v
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
