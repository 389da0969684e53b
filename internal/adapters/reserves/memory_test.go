package reserves_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/alejandrodnm/triarb/internal/adapters/reserves"
	"github.com/alejandrodnm/triarb/internal/domain"
	"github.com/alejandrodnm/triarb/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutAndGet(t *testing.T) {
	s := reserves.NewStore()
	pair := domain.NewReservePair(big.NewInt(1000), big.NewInt(500), 30)
	s.Put("USDC", "WETH", "uni", pair)

	got, err := s.Reserves(context.Background(), "USDC", "WETH", "uni")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.ReserveIn.Int64())
	assert.Equal(t, int64(500), got.ReserveOut.Int64())
	assert.Equal(t, int64(30), got.FeeBps)
}

func TestStore_ReversedOrientation(t *testing.T) {
	s := reserves.NewStore()
	s.Put("USDC", "WETH", "uni", domain.NewReservePair(big.NewInt(1000), big.NewInt(500), 30))

	// El pool es el mismo: pedir la orientación contraria invierte las reservas.
	got, err := s.Reserves(context.Background(), "WETH", "USDC", "uni")
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.ReserveIn.Int64())
	assert.Equal(t, int64(1000), got.ReserveOut.Int64())
}

func TestStore_MissingPair(t *testing.T) {
	s := reserves.NewStore()
	_, err := s.Reserves(context.Background(), "USDC", "WETH", "uni")
	assert.ErrorIs(t, err, ports.ErrUnavailable)
}

func TestStore_VenueIsolation(t *testing.T) {
	s := reserves.NewStore()
	s.Put("USDC", "WETH", "uni", domain.NewReservePair(big.NewInt(1000), big.NewInt(500), 30))

	_, err := s.Reserves(context.Background(), "USDC", "WETH", "sushi")
	assert.ErrorIs(t, err, ports.ErrUnavailable)
}

func TestStore_OverwriteSnapshot(t *testing.T) {
	s := reserves.NewStore()
	s.Put("USDC", "WETH", "uni", domain.NewReservePair(big.NewInt(1000), big.NewInt(500), 30))
	s.Put("USDC", "WETH", "uni", domain.NewReservePair(big.NewInt(2000), big.NewInt(400), 30))

	got, err := s.Reserves(context.Background(), "USDC", "WETH", "uni")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.ReserveIn.Int64())
	assert.Equal(t, 1, s.Len())
}

func TestSeedFixtures_CoversConfiguredRoutes(t *testing.T) {
	s := reserves.NewStore()
	reserves.SeedFixtures(s, "uni", "sushi")

	routes, err := domain.GenerateRoutes("USDC", []string{"WETH", "WBTC"}, []domain.Venue{"uni", "sushi"})
	require.NoError(t, err)

	// Cada leg de cada ruta generada tiene snapshot en los fixtures.
	for _, route := range routes {
		for _, leg := range route.Legs {
			_, err := s.Reserves(context.Background(), leg.TokenIn, leg.TokenOut, leg.Venue)
			assert.NoError(t, err, "route %s leg %s→%s", route, leg.TokenIn, leg.TokenOut)
		}
	}
}

func TestSeedFixtures_HasProfitableDiscrepancy(t *testing.T) {
	s := reserves.NewStore()
	reserves.SeedFixtures(s, "uni", "sushi")

	buy, err := s.Reserves(context.Background(), "USDC", "WETH", "sushi")
	require.NoError(t, err)
	sell, err := s.Reserves(context.Background(), "WETH", "USDC", "uni")
	require.NoError(t, err)

	in := new(big.Int).Mul(big.NewInt(1000), big.NewInt(1_000_000)) // 1000 USDC
	out := domain.AmountOut(domain.AmountOut(in, buy), sell)
	assert.Positive(t, new(big.Int).Sub(out, in).Sign())
}
