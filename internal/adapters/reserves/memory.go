package reserves

// memory.go — snapshot store en memoria que implementa ports.ReserveReader.
//
// El feed on-chain (fuera de alcance) publica snapshots con Put; el
// orquestador lee copias inmutables con Reserves. Guardamos una sola
// orientación por par y derivamos la inversa al leer: el pool es el mismo.

import (
	"context"
	"fmt"
	"sync"

	"github.com/alejandrodnm/triarb/internal/domain"
	"github.com/alejandrodnm/triarb/internal/ports"
)

type pairKey struct {
	tokenA string
	tokenB string
	venue  domain.Venue
}

// Store es un ReserveReader respaldado por un mapa en memoria.
type Store struct {
	mu    sync.RWMutex
	pairs map[pairKey]domain.ReservePair
}

// NewStore crea un Store vacío.
func NewStore() *Store {
	return &Store{pairs: make(map[pairKey]domain.ReservePair)}
}

// Put publica el snapshot del pool tokenIn/tokenOut en la venue dada,
// orientado tokenIn→tokenOut. Sobreescribe el snapshot anterior.
func (s *Store) Put(tokenIn, tokenOut string, venue domain.Venue, pair domain.ReservePair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[pairKey{tokenA: tokenIn, tokenB: tokenOut, venue: venue}] = pair
}

// Reserves devuelve el snapshot orientado tokenIn→tokenOut, derivando la
// orientación inversa si solo existe la contraria. ErrUnavailable si el par
// no tiene snapshot en esa venue.
func (s *Store) Reserves(_ context.Context, tokenIn, tokenOut string, venue domain.Venue) (domain.ReservePair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pair, ok := s.pairs[pairKey{tokenA: tokenIn, tokenB: tokenOut, venue: venue}]; ok {
		return pair, nil
	}
	if pair, ok := s.pairs[pairKey{tokenA: tokenOut, tokenB: tokenIn, venue: venue}]; ok {
		return pair.Reversed(), nil
	}
	return domain.ReservePair{}, fmt.Errorf("%w: no snapshot for %s/%s@%s",
		ports.ErrUnavailable, tokenIn, tokenOut, venue)
}

// Len devuelve cuántos snapshots hay publicados.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}
