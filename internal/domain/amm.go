package domain

// amm.go — primitivas de matemática de producto constante (x·y = k).
//
// Toda la ruta contable usa aritmética entera exacta con math/big: las reservas
// de pools reales (500e18) no caben en uint64 y un redondeo float podría
// cambiar el signo de la rentabilidad. Los floats quedan reservados para
// comparaciones de magnitud (precio, impacto) que nunca tocan la contabilidad.

import (
	"errors"
	"math/big"
)

// ErrInsufficientLiquidity indica que el output pedido iguala o excede la
// reserva del pool. Se expone a los callers de AmountIn, nunca se clampa.
var ErrInsufficientLiquidity = errors.New("insufficient liquidity")

// BpsDenominator es el denominador de basis points: 10000 bps = 100%.
const BpsDenominator = 10_000

// ReservePair es el snapshot inmutable de un pool de dos tokens en un instante,
// orientado en la dirección del swap: ReserveIn es la reserva del token que
// entra, ReserveOut la del token que sale.
type ReservePair struct {
	ReserveIn  *big.Int
	ReserveOut *big.Int
	FeeBps     int64
}

// NewReservePair construye un snapshot con copias defensivas de las reservas.
func NewReservePair(reserveIn, reserveOut *big.Int, feeBps int64) ReservePair {
	return ReservePair{
		ReserveIn:  new(big.Int).Set(reserveIn),
		ReserveOut: new(big.Int).Set(reserveOut),
		FeeBps:     feeBps,
	}
}

// Reversed devuelve el snapshot orientado en la dirección contraria.
func (p ReservePair) Reversed() ReservePair {
	return ReservePair{ReserveIn: p.ReserveOut, ReserveOut: p.ReserveIn, FeeBps: p.FeeBps}
}

func (p ReservePair) hasLiquidity() bool {
	return p.ReserveIn != nil && p.ReserveOut != nil &&
		p.ReserveIn.Sign() > 0 && p.ReserveOut.Sign() > 0
}

// AmountOut calcula el output de un swap de producto constante con el fee
// descontado del input:
//
//	effIn = amountIn·(10000-feeBps)
//	out   = floor(effIn·reserveOut / (reserveIn·10000 + effIn))
//
// Devuelve 0 si cualquier operando es 0. Solo aritmética entera.
func AmountOut(amountIn *big.Int, pair ReservePair) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 || !pair.hasLiquidity() {
		return new(big.Int)
	}
	if pair.FeeBps < 0 || pair.FeeBps >= BpsDenominator {
		return new(big.Int)
	}

	effIn := new(big.Int).Mul(amountIn, big.NewInt(BpsDenominator-pair.FeeBps))
	num := new(big.Int).Mul(effIn, pair.ReserveOut)
	den := new(big.Int).Mul(pair.ReserveIn, big.NewInt(BpsDenominator))
	den.Add(den, effIn)
	return num.Div(num, den)
}

// AmountIn calcula el input necesario para obtener exactamente amountOut.
// Es la inversa de AmountOut redondeada hacia arriba más una unidad de
// holgura: pasar el resultado por AmountOut garantiza al menos el output
// pedido. Falla con ErrInsufficientLiquidity si amountOut >= reserveOut.
func AmountIn(amountOut *big.Int, pair ReservePair) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 || !pair.hasLiquidity() {
		return new(big.Int), nil
	}
	if pair.FeeBps < 0 || pair.FeeBps >= BpsDenominator {
		return new(big.Int), nil
	}
	if amountOut.Cmp(pair.ReserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}

	num := new(big.Int).Mul(pair.ReserveIn, amountOut)
	num.Mul(num, big.NewInt(BpsDenominator))
	den := new(big.Int).Sub(pair.ReserveOut, amountOut)
	den.Mul(den, big.NewInt(BpsDenominator-pair.FeeBps))

	in := ceilDiv(num, den)
	return in.Add(in, big.NewInt(1)), nil
}

// MidPrice devuelve el precio marginal reserveOut/reserveIn como float64.
// Solo para comparaciones de magnitud — nunca en la ruta contable.
func MidPrice(pair ReservePair) float64 {
	if !pair.hasLiquidity() {
		return 0
	}
	return bigRatio(pair.ReserveOut, pair.ReserveIn)
}

// PriceImpactPct devuelve el impacto en precio (%) de ejecutar amountIn contra
// el pool: cuánto peor es el precio efectivo frente al precio marginal.
// Monótonamente no-decreciente en amountIn para reservas fijas.
func PriceImpactPct(amountIn *big.Int, pair ReservePair) float64 {
	mid := MidPrice(pair)
	if mid == 0 || amountIn == nil || amountIn.Sign() <= 0 {
		return 0
	}

	out := AmountOut(amountIn, pair)
	if out.Sign() == 0 {
		return 100
	}

	exec := bigRatio(out, amountIn)
	impact := (1 - exec/mid) * 100
	if impact < 0 {
		return 0
	}
	return impact
}

// OptimalAmount busca por bisección el input en [0, maxAmount] que maximiza el
// profit del two-hop A→B. La curva de profit de producto constante es cóncava,
// así que la búsqueda sobre la derivada discreta es un heurístico sólido: más
// iteraciones nunca empeoran el resultado, y si no existe input rentable
// devuelve 0.
func OptimalAmount(a, b ReservePair, maxAmount *big.Int, iterations int) *big.Int {
	if maxAmount == nil || maxAmount.Sign() <= 0 || !a.hasLiquidity() || !b.hasLiquidity() {
		return new(big.Int)
	}

	lo := big.NewInt(1)
	hi := new(big.Int).Set(maxAmount)
	one := big.NewInt(1)
	two := big.NewInt(2)

	best := new(big.Int)
	bestProfit := new(big.Int)
	consider := func(x *big.Int) {
		p := twoHopProfit(x, a, b)
		if p.Cmp(bestProfit) > 0 {
			best.Set(x)
			bestProfit.Set(p)
		}
	}
	consider(hi)

	for i := 0; i < iterations && lo.Cmp(hi) < 0; i++ {
		mid := new(big.Int).Add(lo, hi)
		mid.Div(mid, two)
		next := new(big.Int).Add(mid, one)

		consider(mid)
		consider(next)

		// Derivada discreta: si el profit sigue subiendo en mid, el óptimo
		// está a la derecha.
		if twoHopProfit(next, a, b).Cmp(twoHopProfit(mid, a, b)) > 0 {
			lo = next
		} else {
			hi = mid
		}
	}

	if bestProfit.Sign() <= 0 {
		return new(big.Int)
	}
	return best
}

// twoHopProfit simula input→A→B y devuelve output-input (puede ser negativo).
func twoHopProfit(amountIn *big.Int, a, b ReservePair) *big.Int {
	mid := AmountOut(amountIn, a)
	out := AmountOut(mid, b)
	return out.Sub(out, amountIn)
}

// ceilDiv divide redondeando hacia arriba. Asume den > 0.
func ceilDiv(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// bigRatio devuelve num/den como float64 vía big.Float para no perder
// precisión intermedia en enteros grandes.
func bigRatio(num, den *big.Int) float64 {
	if den.Sign() == 0 {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(num), new(big.Float).SetInt(den)).Float64()
	return f
}
