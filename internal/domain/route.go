package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig marca configuración estructuralmente inválida (límites o
// rutas). Fatal en el arranque; una ruta inválida en runtime se loggea y salta.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrInvalidRoute marca una ruta estructuralmente inválida.
var ErrInvalidRoute = fmt.Errorf("%w: invalid route", ErrInvalidConfig)

// Venue identifica una de las dos AMMs de producto constante configuradas.
type Venue string

// Leg es un hop de la ruta: un swap tokenIn→tokenOut contra el pool de una venue.
type Leg struct {
	TokenIn  string
	TokenOut string
	Venue    Venue
}

// Route es un ciclo cerrado de swaps que empieza y termina en el token base.
// Inmutable: se genera una vez en el arranque y nunca se muta.
type Route struct {
	Legs []Leg
}

// BaseToken devuelve el token de entrada (y salida) de la ruta.
func (r Route) BaseToken() string {
	if len(r.Legs) == 0 {
		return ""
	}
	return r.Legs[0].TokenIn
}

// String devuelve la ruta en formato legible: USDC→WETH@uni→USDC@sushi.
func (r Route) String() string {
	if len(r.Legs) == 0 {
		return "(empty route)"
	}
	var sb strings.Builder
	sb.WriteString(r.Legs[0].TokenIn)
	for _, leg := range r.Legs {
		fmt.Fprintf(&sb, "→%s@%s", leg.TokenOut, leg.Venue)
	}
	return sb.String()
}

// Validate comprueba que la ruta sea un ciclo cerrado bien formado.
func (r Route) Validate() error {
	if len(r.Legs) == 0 {
		return fmt.Errorf("%w: route has no legs", ErrInvalidRoute)
	}
	for i, leg := range r.Legs {
		if leg.TokenIn == "" || leg.TokenOut == "" {
			return fmt.Errorf("%w: leg %d has empty token", ErrInvalidRoute, i)
		}
		if leg.TokenIn == leg.TokenOut {
			return fmt.Errorf("%w: leg %d swaps %s against itself", ErrInvalidRoute, i, leg.TokenIn)
		}
		if leg.Venue == "" {
			return fmt.Errorf("%w: leg %d has empty venue", ErrInvalidRoute, i)
		}
		if i > 0 && r.Legs[i-1].TokenOut != leg.TokenIn {
			return fmt.Errorf("%w: leg %d input %s does not chain with previous output %s",
				ErrInvalidRoute, i, leg.TokenIn, r.Legs[i-1].TokenOut)
		}
	}
	if last := r.Legs[len(r.Legs)-1]; last.TokenOut != r.BaseToken() {
		return fmt.Errorf("%w: route does not close the loop (ends in %s, starts in %s)",
			ErrInvalidRoute, last.TokenOut, r.BaseToken())
	}
	return nil
}

// GenerateRoutes genera todas las rutas cerradas desde el token base usando
// permutaciones del set de tokens configurado:
//
//   - 2 legs: base→t en una venue, t→base en la otra (ambos órdenes de venue).
//   - 3 legs: base→t1→t2→base triangular, alternando venues por leg
//     (empezando en cualquiera de las dos).
//
// Requiere exactamente dos venues; devuelve ErrInvalidRoute si la
// configuración no permite generar ninguna ruta.
func GenerateRoutes(base string, tokens []string, venues []Venue) ([]Route, error) {
	if base == "" {
		return nil, fmt.Errorf("%w: empty base token", ErrInvalidRoute)
	}
	if len(venues) != 2 || venues[0] == "" || venues[1] == "" || venues[0] == venues[1] {
		return nil, fmt.Errorf("%w: expected two distinct venues, got %v", ErrInvalidRoute, venues)
	}

	mids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" && t != base {
			mids = append(mids, t)
		}
	}
	if len(mids) == 0 {
		return nil, fmt.Errorf("%w: no intermediate tokens besides base %q", ErrInvalidRoute, base)
	}

	venuePairs := [][2]Venue{{venues[0], venues[1]}, {venues[1], venues[0]}}
	var routes []Route

	// Cross-venue directo: comprar en una venue, vender en la otra.
	for _, t := range mids {
		for _, vp := range venuePairs {
			routes = append(routes, Route{Legs: []Leg{
				{TokenIn: base, TokenOut: t, Venue: vp[0]},
				{TokenIn: t, TokenOut: base, Venue: vp[1]},
			}})
		}
	}

	// Triangular: todas las permutaciones ordenadas de dos intermedios.
	for _, t1 := range mids {
		for _, t2 := range mids {
			if t1 == t2 {
				continue
			}
			for _, vp := range venuePairs {
				routes = append(routes, Route{Legs: []Leg{
					{TokenIn: base, TokenOut: t1, Venue: vp[0]},
					{TokenIn: t1, TokenOut: t2, Venue: vp[1]},
					{TokenIn: t2, TokenOut: base, Venue: vp[0]},
				}})
			}
		}
	}

	return routes, nil
}
