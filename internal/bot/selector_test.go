package bot

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kh4rit/kh-domino-game/internal/engine"
)

func TestIsBot(t *testing.T) {
	require.True(t, IsBot(-1))
	require.True(t, IsBot(-4))
	require.False(t, IsBot(0))
	require.False(t, IsBot(12345))
}

func TestSeatIdentities(t *testing.T) {
	seen := map[int64]bool{}
	for i := 0; i < MaxBots; i++ {
		info := Seat(i)
		require.Negative(t, info.ID, "bot %d", i)
		require.False(t, seen[info.ID], "duplicate bot id %d", info.ID)
		require.NotEmpty(t, info.Name, "bot %d", i)
		seen[info.ID] = true
	}
}

func TestPickPrefersHeavyDoubles(t *testing.T) {
	// The double outscores the alternative by more than the jitter can
	// make up: 6+6+10 vs 0+1+3.
	moves := []engine.Move{
		{Tile: engine.NewTile(0, 1), Side: engine.SideLeft},
		{Tile: engine.NewTile(6, 6), Side: engine.SideRight},
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		require.Equal(t, engine.NewTile(6, 6), Pick(moves, rng).Tile, "iteration %d", i)
	}
}

func TestPickSingleOption(t *testing.T) {
	moves := []engine.Move{{Tile: engine.NewTile(2, 3), Side: engine.SideLeft}}
	rng := rand.New(rand.NewSource(1))
	require.Equal(t, moves[0], Pick(moves, rng))
}
