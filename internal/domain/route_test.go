package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLegRoute() Route {
	return Route{Legs: []Leg{
		{TokenIn: "USDC", TokenOut: "WETH", Venue: "uni"},
		{TokenIn: "WETH", TokenOut: "USDC", Venue: "sushi"},
	}}
}

// --- Validate ---

func TestRouteValidate_TwoLegOK(t *testing.T) {
	assert.NoError(t, twoLegRoute().Validate())
}

func TestRouteValidate_TriangularOK(t *testing.T) {
	r := Route{Legs: []Leg{
		{TokenIn: "USDC", TokenOut: "WETH", Venue: "uni"},
		{TokenIn: "WETH", TokenOut: "WBTC", Venue: "sushi"},
		{TokenIn: "WBTC", TokenOut: "USDC", Venue: "uni"},
	}}
	assert.NoError(t, r.Validate())
}

func TestRouteValidate_Empty(t *testing.T) {
	assert.ErrorIs(t, Route{}.Validate(), ErrInvalidRoute)
}

func TestRouteValidate_BrokenChain(t *testing.T) {
	r := Route{Legs: []Leg{
		{TokenIn: "USDC", TokenOut: "WETH", Venue: "uni"},
		{TokenIn: "WBTC", TokenOut: "USDC", Venue: "sushi"},
	}}
	assert.ErrorIs(t, r.Validate(), ErrInvalidRoute)
}

func TestRouteValidate_OpenLoop(t *testing.T) {
	r := Route{Legs: []Leg{
		{TokenIn: "USDC", TokenOut: "WETH", Venue: "uni"},
		{TokenIn: "WETH", TokenOut: "WBTC", Venue: "sushi"},
	}}
	assert.ErrorIs(t, r.Validate(), ErrInvalidRoute)
}

func TestRouteValidate_SelfSwap(t *testing.T) {
	r := Route{Legs: []Leg{{TokenIn: "USDC", TokenOut: "USDC", Venue: "uni"}}}
	assert.ErrorIs(t, r.Validate(), ErrInvalidRoute)
}

func TestRouteValidate_WrapsInvalidConfig(t *testing.T) {
	// Toda ruta inválida es también configuración inválida.
	assert.ErrorIs(t, Route{}.Validate(), ErrInvalidConfig)
}

// --- String / BaseToken ---

func TestRouteString(t *testing.T) {
	assert.Equal(t, "USDC→WETH@uni→USDC@sushi", twoLegRoute().String())
	assert.Equal(t, "(empty route)", Route{}.String())
}

func TestRouteBaseToken(t *testing.T) {
	assert.Equal(t, "USDC", twoLegRoute().BaseToken())
	assert.Equal(t, "", Route{}.BaseToken())
}

// --- GenerateRoutes ---

func TestGenerateRoutes_SingleToken(t *testing.T) {
	routes, err := GenerateRoutes("USDC", []string{"WETH"}, []Venue{"uni", "sushi"})
	require.NoError(t, err)

	// Un intermedio: solo las dos rutas cross-venue (ambos órdenes).
	require.Len(t, routes, 2)
	for _, r := range routes {
		assert.NoError(t, r.Validate())
		assert.Len(t, r.Legs, 2)
		assert.NotEqual(t, r.Legs[0].Venue, r.Legs[1].Venue)
	}
}

func TestGenerateRoutes_TwoTokens(t *testing.T) {
	routes, err := GenerateRoutes("USDC", []string{"WETH", "WBTC"}, []Venue{"uni", "sushi"})
	require.NoError(t, err)

	// 2 cross-venue por token (4) + 2 triangulares por par ordenado (4).
	require.Len(t, routes, 8)
	twoLeg, threeLeg := 0, 0
	for _, r := range routes {
		require.NoError(t, r.Validate())
		assert.Equal(t, "USDC", r.BaseToken())
		switch len(r.Legs) {
		case 2:
			twoLeg++
		case 3:
			threeLeg++
		}
	}
	assert.Equal(t, 4, twoLeg)
	assert.Equal(t, 4, threeLeg)
}

func TestGenerateRoutes_FiltersBaseFromIntermediates(t *testing.T) {
	routes, err := GenerateRoutes("USDC", []string{"USDC", "WETH"}, []Venue{"uni", "sushi"})
	require.NoError(t, err)
	assert.Len(t, routes, 2)
}

func TestGenerateRoutes_InvalidVenues(t *testing.T) {
	_, err := GenerateRoutes("USDC", []string{"WETH"}, []Venue{"uni"})
	assert.ErrorIs(t, err, ErrInvalidRoute)

	_, err = GenerateRoutes("USDC", []string{"WETH"}, []Venue{"uni", "uni"})
	assert.ErrorIs(t, err, ErrInvalidRoute)
}

func TestGenerateRoutes_NoIntermediates(t *testing.T) {
	_, err := GenerateRoutes("USDC", []string{"USDC"}, []Venue{"uni", "sushi"})
	assert.ErrorIs(t, err, ErrInvalidRoute)
}

func TestGenerateRoutes_EmptyBase(t *testing.T) {
	_, err := GenerateRoutes("", []string{"WETH"}, []Venue{"uni", "sushi"})
	assert.ErrorIs(t, err, ErrInvalidRoute)
}
