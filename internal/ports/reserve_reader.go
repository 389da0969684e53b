package ports

import (
	"context"
	"errors"

	"github.com/alejandrodnm/triarb/internal/domain"
)

// ErrUnavailable indica que un colaborador externo (reservas, fee oracle,
// scorer) no pudo responder. Nunca es fatal: el orquestador salta la ruta o
// sustituye un fallback conservador; jamás se propaga más arriba.
var ErrUnavailable = errors.New("data unavailable")

// ReserveReader obtiene el snapshot de reservas de un par en una venue.
// La suscripción on-chain queda fuera de alcance: quien alimente los
// snapshots implementa este puerto.
type ReserveReader interface {
	// Reserves devuelve el snapshot orientado tokenIn→tokenOut.
	// Devuelve ErrUnavailable si no hay snapshot para ese par/venue.
	Reserves(ctx context.Context, tokenIn, tokenOut string, venue domain.Venue) (domain.ReservePair, error)
}
