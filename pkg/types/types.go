// Package types holds the wire contract shared with the mini-app client
// and the push transport. Shapes here must stay stable.
package types

import "github.com/kh4rit/kh-domino-game/internal/engine"

type Tile struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

type BoardTile struct {
	Tile         Tile `json:"tile"`
	ExposedLeft  int  `json:"exposedLeft"`
	ExposedRight int  `json:"exposedRight"`
}

type Player struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	TileCount      int    `json:"tileCount"`
	PassedLastTurn bool   `json:"passedLastTurn"`
	Hand           []Tile `json:"hand,omitempty"`
}

// Snapshot is the personalized game state pushed after every mutation.
// Only the receiving seat's hand is revealed.
type Snapshot struct {
	Players         []Player    `json:"players"`
	Board           []BoardTile `json:"board"`
	LeftEnd         *int        `json:"leftEnd"`
	RightEnd        *int        `json:"rightEnd"`
	Status          string      `json:"status"`
	WinnerID        *int64      `json:"winnerId"`
	IsFish          bool        `json:"isFish"`
	BoneyardCount   int         `json:"boneyardCount"`
	CurrentPlayerID int64       `json:"currentPlayerId"`
	GameID          string      `json:"gameId,omitempty"`
	GameNumber      int         `json:"gameNumber,omitempty"`
	TotalGames      int         `json:"totalGames,omitempty"`
}

// MoveRequest is the client's play request body.
type MoveRequest struct {
	Tile Tile   `json:"tile"`
	Side string `json:"side"`
}

type Move struct {
	Tile Tile   `json:"tile"`
	Side string `json:"side"`
}

// ActionResult answers play and pass requests.
type ActionResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	GameOver bool   `json:"gameOver,omitempty"`
	IsFish   bool   `json:"isFish,omitempty"`
}

// DrawResult answers draw requests.
type DrawResult struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	Tile          *Tile  `json:"tile,omitempty"`
	BoneyardCount int    `json:"boneyardCount"`
}

// GameResult is one finished game within a session.
type GameResult struct {
	GameNumber int    `json:"gameNumber"`
	WinnerID   *int64 `json:"winnerId"`
	IsFish     bool   `json:"isFish"`
}

// LeaderboardRow ranks a player (or the fish pseudo-entry) by wins.
type LeaderboardRow struct {
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	IsFish bool   `json:"isFish"`
}

// Push event payloads.

type PushMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type GameOverEvent struct {
	GameResult GameResult `json:"gameResult"`
	NextGame   bool       `json:"nextGame"`
	GameNumber int        `json:"gameNumber,omitempty"`
}

type SessionEndEvent struct {
	Results []GameResult `json:"results"`
}

func TileFromEngine(t engine.Tile) Tile { return Tile{Left: t.Left, Right: t.Right} }

func (t Tile) ToEngine() engine.Tile { return engine.NewTile(t.Left, t.Right) }

func MovesFromEngine(moves []engine.Move) []Move {
	out := make([]Move, 0, len(moves))
	for _, m := range moves {
		out = append(out, Move{Tile: TileFromEngine(m.Tile), Side: string(m.Side)})
	}
	return out
}

// SnapshotFor serializes the game as seen by one seat: the viewer's own
// hand is included, everyone else shows only a tile count.
func SnapshotFor(g *engine.Game, viewerID int64) *Snapshot {
	snap := &Snapshot{
		Status:          string(g.Status),
		IsFish:          g.IsFish,
		BoneyardCount:   len(g.Boneyard),
		CurrentPlayerID: g.CurrentSeat().ID,
		Board:           make([]BoardTile, 0, len(g.Board)),
		Players:         make([]Player, 0, len(g.Seats)),
	}

	for _, s := range g.Seats {
		p := Player{
			ID:             s.ID,
			Name:           s.Name,
			TileCount:      s.TileCount(),
			PassedLastTurn: s.PassedLastTurn,
		}
		if s.ID == viewerID {
			p.Hand = make([]Tile, 0, len(s.Hand))
			for _, t := range s.Hand {
				p.Hand = append(p.Hand, TileFromEngine(t))
			}
		}
		snap.Players = append(snap.Players, p)
	}

	for _, bt := range g.Board {
		snap.Board = append(snap.Board, BoardTile{
			Tile:         TileFromEngine(bt.Tile),
			ExposedLeft:  bt.ExposedLeft,
			ExposedRight: bt.ExposedRight,
		})
	}

	if left, right, ok := g.Ends(); ok {
		snap.LeftEnd, snap.RightEnd = &left, &right
	}
	if g.Status == engine.StatusFinished && !g.IsFish {
		w := g.WinnerID
		snap.WinnerID = &w
	}
	return snap
}
