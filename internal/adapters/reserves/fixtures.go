package reserves

// fixtures.go — snapshots locales para dry-run, sin feed on-chain.
// Dos venues con el mismo par USDC/WETH a precios distintos: la discrepancia
// deja una ruta cross-venue rentable para ejercitar el pipeline completo.

import (
	"math/big"

	"github.com/alejandrodnm/triarb/internal/domain"
)

// SeedFixtures publica un set de snapshots de ejemplo en el store.
func SeedFixtures(s *Store, venueA, venueB domain.Venue) {
	usdc := func(units int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(units), big.NewInt(1_000_000))
	}
	wei := func(units int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(units), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	}

	// USDC/WETH: 500 WETH en A, 510 en B sobre el mismo millón de USDC.
	s.Put("USDC", "WETH", venueA, domain.NewReservePair(usdc(1_000_000), wei(500), 30))
	s.Put("USDC", "WETH", venueB, domain.NewReservePair(usdc(1_000_000), wei(510), 30))

	// USDC/WBTC y WETH/WBTC para rutas triangulares.
	s.Put("USDC", "WBTC", venueA, domain.NewReservePair(usdc(2_000_000), big.NewInt(30_00000000), 30))
	s.Put("USDC", "WBTC", venueB, domain.NewReservePair(usdc(2_000_000), big.NewInt(30_30000000), 30))
	s.Put("WETH", "WBTC", venueA, domain.NewReservePair(wei(400), big.NewInt(12_00000000), 30))
	s.Put("WETH", "WBTC", venueB, domain.NewReservePair(wei(400), big.NewInt(12_10000000), 30))
}
