package engine

import (
	"fmt"
	"math/rand"
)

// Tile is one domino from the double-six set. It is always stored in
// canonical (min,max) order, so a tile equals its reverse by construction.
type Tile struct {
	Left  int
	Right int
}

func NewTile(a, b int) Tile {
	if a > b {
		a, b = b, a
	}
	return Tile{Left: a, Right: b}
}

func (t Tile) Has(v int) bool { return t.Left == v || t.Right == v }

func (t Tile) IsDouble() bool { return t.Left == t.Right }

func (t Tile) PipSum() int { return t.Left + t.Right }

func (t Tile) String() string { return fmt.Sprintf("[%d|%d]", t.Left, t.Right) }

// FullSet returns the standard 28-tile double-six set.
func FullSet() []Tile {
	tiles := make([]Tile, 0, 28)
	for i := 0; i <= 6; i++ {
		for j := i; j <= 6; j++ {
			tiles = append(tiles, Tile{Left: i, Right: j})
		}
	}
	return tiles
}

// ShuffledSet returns a freshly shuffled full set.
func ShuffledSet() []Tile {
	tiles := FullSet()
	rand.Shuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })
	return tiles
}

// BoardTile is a tile placed on the chain with its orientation. ExposedLeft
// faces the left end of the chain, ExposedRight the right end.
type BoardTile struct {
	Tile         Tile
	ExposedLeft  int
	ExposedRight int
}
