package engine

import "errors"

var ErrGameNotActive = errors.New("game is not active")
var ErrNotInGame = errors.New("player not in game")
var ErrNotYourTurn = errors.New("not your turn")
var ErrTileNotHeld = errors.New("tile not in hand")
var ErrEndMismatch = errors.New("tile does not match that end")
var ErrInvalidSide = errors.New("invalid side")
var ErrHasPlayableTile = errors.New("playable tile in hand")
var ErrBoneyardEmpty = errors.New("boneyard is empty")
var ErrBoneyardNotEmpty = errors.New("boneyard is not empty, draw first")
var ErrSeatCount = errors.New("need 3-5 players")

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// TilesPerSeat maps seat count to dealt hand size.
var TilesPerSeat = map[int]int{3: 7, 4: 5, 5: 4}

// SeatInfo identifies a participant joining a game. Bot seats carry
// negative IDs.
type SeatInfo struct {
	ID   int64
	Name string
}

// Seat is one player slot with its hand.
type Seat struct {
	ID             int64
	Name           string
	Hand           []Tile
	PassedLastTurn bool
}

func (s *Seat) TileCount() int { return len(s.Hand) }

func (s *Seat) holds(t Tile) bool {
	for _, h := range s.Hand {
		if h == t {
			return true
		}
	}
	return false
}

func (s *Seat) remove(t Tile) bool {
	for i, h := range s.Hand {
		if h == t {
			s.Hand = append(s.Hand[:i], s.Hand[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Seat) hasPlayable(leftEnd, rightEnd int) bool {
	for _, h := range s.Hand {
		if h.Has(leftEnd) || h.Has(rightEnd) {
			return true
		}
	}
	return false
}

// Move is one legal placement option.
type Move struct {
	Tile Tile
	Side Side
}

// PlayOutcome reports the result of a successful play.
type PlayOutcome struct {
	GameOver bool
	IsFish   bool
}

// PassOutcome reports the result of a successful pass.
type PassOutcome struct {
	GameOver bool
	IsFish   bool
}

// DrawOutcome reports a successful draw.
type DrawOutcome struct {
	Tile          Tile
	BoneyardCount int
}

// Game holds the full state of one domino game. All mutation goes through
// Play, Draw and Pass; callers must serialize those per game.
type Game struct {
	Seats             []*Seat
	Board             []BoardTile
	Boneyard          []Tile
	Current           int
	Status            Status
	WinnerID          int64 // valid only when finished and not fish
	IsFish            bool
	ConsecutivePasses int

	// Qualifying lowest double, nil when no hand was dealt a double.
	forcedOpening *Tile
}

// New deals a fresh game for 3-5 seats and determines the opening seat.
func New(infos []SeatInfo) (*Game, error) {
	if len(infos) < 3 || len(infos) > 5 {
		return nil, ErrSeatCount
	}
	return newFromDeck(infos, ShuffledSet()), nil
}

func newFromDeck(infos []SeatInfo, deck []Tile) *Game {
	perSeat := TilesPerSeat[len(infos)]

	g := &Game{Status: StatusWaiting}
	for i, info := range infos {
		hand := make([]Tile, perSeat)
		copy(hand, deck[i*perSeat:(i+1)*perSeat])
		g.Seats = append(g.Seats, &Seat{ID: info.ID, Name: info.Name, Hand: hand})
	}
	g.Boneyard = append(g.Boneyard, deck[len(infos)*perSeat:]...)

	g.determineOpener()
	g.Status = StatusActive
	return g
}

// determineOpener picks the seat holding the lowest double; that double is
// then the forced first move. With no doubles anywhere, the seat holding
// the highest pip-sum tile opens and any tile is legal.
func (g *Game) determineOpener() {
	best := 0
	bestDouble := 7 // above max pip

	for i, seat := range g.Seats {
		for _, t := range seat.Hand {
			if t.IsDouble() && t.Left < bestDouble {
				bestDouble = t.Left
				best = i
			}
		}
	}

	if bestDouble < 7 {
		forced := NewTile(bestDouble, bestDouble)
		g.forcedOpening = &forced
	} else {
		bestSum := -1
		for i, seat := range g.Seats {
			for _, t := range seat.Hand {
				if t.PipSum() > bestSum {
					bestSum = t.PipSum()
					best = i
				}
			}
		}
	}

	g.Current = best
}

func (g *Game) CurrentSeat() *Seat { return g.Seats[g.Current] }

// Ends reports the two open pip values. ok is false on an empty board.
func (g *Game) Ends() (left, right int, ok bool) {
	if len(g.Board) == 0 {
		return 0, 0, false
	}
	return g.Board[0].ExposedLeft, g.Board[len(g.Board)-1].ExposedRight, true
}

func (g *Game) seatByID(id int64) *Seat {
	for _, s := range g.Seats {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// ValidMoves lists every legal placement for the seat. On an empty board
// the forced opening double is the only option while it remains in hand.
// When both open ends expose the same pip and a tile matches it, the tile
// is offered on both sides.
func (g *Game) ValidMoves(seatID int64) []Move {
	seat := g.seatByID(seatID)
	if seat == nil {
		return nil
	}

	var moves []Move
	left, right, ok := g.Ends()
	if !ok {
		if g.forcedOpening != nil && seat.holds(*g.forcedOpening) {
			return []Move{{Tile: *g.forcedOpening, Side: SideLeft}}
		}
		for _, t := range seat.Hand {
			moves = append(moves, Move{Tile: t, Side: SideLeft})
		}
		return moves
	}

	for _, t := range seat.Hand {
		if t.Has(left) {
			moves = append(moves, Move{Tile: t, Side: SideLeft})
		}
		if t.Has(right) {
			moves = append(moves, Move{Tile: t, Side: SideRight})
		}
	}
	return moves
}

// Play places a tile against the given end. Validation fully precedes
// mutation; a returned error means the state is untouched.
func (g *Game) Play(seatID int64, tile Tile, side Side) (PlayOutcome, error) {
	if g.Status != StatusActive {
		return PlayOutcome{}, ErrGameNotActive
	}
	seat := g.seatByID(seatID)
	if seat == nil {
		return PlayOutcome{}, ErrNotInGame
	}
	if seat != g.CurrentSeat() {
		return PlayOutcome{}, ErrNotYourTurn
	}
	tile = NewTile(tile.Left, tile.Right)
	if !seat.holds(tile) {
		return PlayOutcome{}, ErrTileNotHeld
	}
	if side != SideLeft && side != SideRight {
		return PlayOutcome{}, ErrInvalidSide
	}

	left, right, boardOK := g.Ends()
	if !boardOK {
		// Opening move: the qualifying double, when dealt, is the only
		// legal tile.
		if g.forcedOpening != nil && tile != *g.forcedOpening {
			return PlayOutcome{}, ErrEndMismatch
		}
		g.Board = append(g.Board, BoardTile{Tile: tile, ExposedLeft: tile.Left, ExposedRight: tile.Right})
		seat.remove(tile)
		seat.PassedLastTurn = false
		g.ConsecutivePasses = 0
		return g.afterPlay(seat), nil
	}

	target := left
	if side == SideRight {
		target = right
	}
	if !tile.Has(target) {
		return PlayOutcome{}, ErrEndMismatch
	}

	// Orient so the matching pip attaches to the target end and the other
	// pip becomes the new open end.
	bt := BoardTile{Tile: tile, ExposedLeft: tile.Left, ExposedRight: tile.Right}
	if side == SideLeft {
		if tile.Right != target {
			bt.ExposedLeft, bt.ExposedRight = tile.Right, tile.Left
		}
		g.Board = append([]BoardTile{bt}, g.Board...)
	} else {
		if tile.Left != target {
			bt.ExposedLeft, bt.ExposedRight = tile.Right, tile.Left
		}
		g.Board = append(g.Board, bt)
	}

	seat.remove(tile)
	seat.PassedLastTurn = false
	g.ConsecutivePasses = 0
	return g.afterPlay(seat), nil
}

// Draw takes one tile from the boneyard. Legal only when the caller holds
// no playable tile. The turn does not advance.
func (g *Game) Draw(seatID int64) (DrawOutcome, error) {
	if g.Status != StatusActive {
		return DrawOutcome{}, ErrGameNotActive
	}
	seat := g.seatByID(seatID)
	if seat == nil {
		return DrawOutcome{}, ErrNotInGame
	}
	if seat != g.CurrentSeat() {
		return DrawOutcome{}, ErrNotYourTurn
	}
	if len(g.Boneyard) == 0 {
		return DrawOutcome{}, ErrBoneyardEmpty
	}
	if left, right, ok := g.Ends(); ok && seat.hasPlayable(left, right) {
		return DrawOutcome{}, ErrHasPlayableTile
	}

	drawn := g.Boneyard[len(g.Boneyard)-1]
	g.Boneyard = g.Boneyard[:len(g.Boneyard)-1]
	seat.Hand = append(seat.Hand, drawn)
	return DrawOutcome{Tile: drawn, BoneyardCount: len(g.Boneyard)}, nil
}

// Pass gives up the turn. Legal only when the caller has no playable tile
// and the boneyard is exhausted.
func (g *Game) Pass(seatID int64) (PassOutcome, error) {
	if g.Status != StatusActive {
		return PassOutcome{}, ErrGameNotActive
	}
	seat := g.seatByID(seatID)
	if seat == nil {
		return PassOutcome{}, ErrNotInGame
	}
	if seat != g.CurrentSeat() {
		return PassOutcome{}, ErrNotYourTurn
	}
	if left, right, ok := g.Ends(); ok && seat.hasPlayable(left, right) {
		return PassOutcome{}, ErrHasPlayableTile
	}
	if len(g.Boneyard) > 0 {
		return PassOutcome{}, ErrBoneyardNotEmpty
	}

	seat.PassedLastTurn = true
	g.ConsecutivePasses++

	if g.ConsecutivePasses >= len(g.Seats) {
		g.finishFish()
		return PassOutcome{GameOver: true, IsFish: true}, nil
	}

	g.nextTurn()
	g.autoSkipBlocked()
	return PassOutcome{GameOver: g.Status == StatusFinished, IsFish: g.IsFish}, nil
}

func (g *Game) afterPlay(seat *Seat) PlayOutcome {
	if seat.TileCount() == 0 {
		g.Status = StatusFinished
		g.WinnerID = seat.ID
		return PlayOutcome{GameOver: true}
	}

	g.nextTurn()
	g.autoSkipBlocked()
	return PlayOutcome{GameOver: g.Status == StatusFinished, IsFish: g.IsFish}
}

func (g *Game) nextTurn() {
	g.Current = (g.Current + 1) % len(g.Seats)
}

func (g *Game) finishFish() {
	g.Status = StatusFinished
	g.IsFish = true
	g.WinnerID = 0
}

// autoSkipBlocked passes over seats that can neither play nor draw. A
// blocked seat with a non-empty boneyard is left in place so it can draw.
// Bounded by the seat count, so it terminates at an actionable seat or at
// fish.
func (g *Game) autoSkipBlocked() {
	if g.Status != StatusActive {
		return
	}

	for checked := 0; checked < len(g.Seats); checked++ {
		left, right, ok := g.Ends()
		if !ok {
			return
		}
		cur := g.CurrentSeat()
		if cur.hasPlayable(left, right) {
			return
		}
		if len(g.Boneyard) > 0 {
			return
		}

		cur.PassedLastTurn = true
		g.ConsecutivePasses++
		if g.ConsecutivePasses >= len(g.Seats) {
			g.finishFish()
			return
		}
		g.nextTurn()
	}
}
