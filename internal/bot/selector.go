// Package bot provides the move-choice policy shared by bot seats and the
// AI takeover of timed-out humans.
package bot

import (
	"math/rand"

	"github.com/kh4rit/kh-domino-game/internal/engine"
)

// Bot seats use negative IDs so they can never collide with real players.
var botNames = []string{"Bot Alice", "Bot Bob", "Bot Charlie", "Bot Diana"}

// MaxBots is the number of bot identities available.
const MaxBots = 4

func IsBot(id int64) bool { return id < 0 }

// Seat returns the identity for the i-th bot (0-based).
func Seat(i int) engine.SeatInfo {
	return engine.SeatInfo{ID: -int64(i + 1), Name: botNames[i%len(botNames)]}
}

// doubleBonus keeps doubles flowing out early; jitterMax bounds the random
// tie-breaker so a score margin above it is always decisive.
const (
	doubleBonus = 10
	jitterMax   = 3
)

// Pick chooses the highest-scoring legal move: pip sum, plus a bonus for
// doubles, plus bounded jitter.
func Pick(moves []engine.Move, rng *rand.Rand) engine.Move {
	best := moves[0]
	bestScore := -1.0
	for _, m := range moves {
		score := float64(m.Tile.PipSum())
		if m.Tile.IsDouble() {
			score += doubleBonus
		}
		score += rng.Float64() * jitterMax
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	return best
}
