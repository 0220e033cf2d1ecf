// Package room runs one game identifier end to end: lobby formation, the
// session of games between the same roster, turn timeouts with AI
// takeover, bot pacing and state fan-out.
//
// A room is a single goroutine owning all mutable state; every entry
// point, including timer fires, is a message into its inbox. That makes
// the single-writer-per-game guarantee structural: two mutations for the
// same game can never interleave.
package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kh4rit/kh-domino-game/internal/bot"
	"github.com/kh4rit/kh-domino-game/internal/engine"
	"github.com/kh4rit/kh-domino-game/pkg/types"
)

var ErrLobbyClosed = errors.New("no open lobby")
var ErrLobbyFull = errors.New("game is full")
var ErrAlreadyJoined = errors.New("already in the game")
var ErrNotEnoughPlayers = errors.New("not enough players")
var ErrNoActiveGame = errors.New("no active game")
var ErrRoomClosed = errors.New("room is closed")

type Stage string

const (
	StageLobby   Stage = "lobby"
	StagePlaying Stage = "playing"
	StageClosed  Stage = "closed"
)

// Gateway fans personalized snapshots and events out to connected seats.
// Delivery is fire-and-forget; implementations must never block the room.
type Gateway interface {
	Connected(gameID string) []int64
	SendState(gameID string, playerID int64, snap *types.Snapshot)
	SendEvent(gameID string, event string, data any)
	CleanupGame(gameID string)
}

// ResultStore persists a finished session's per-game results.
type ResultStore interface {
	SaveSessionResults(ctx context.Context, groupID int64, results []types.GameResult) error
}

// Notifier receives human-readable messages for the chat collaborator to
// render.
type Notifier interface {
	Notify(gameID string, groupID int64, text string)
}

// Options are the per-room game settings.
type Options struct {
	MinPlayers      int
	MaxPlayers      int
	GamesPerSession int
	LobbyTimeout    time.Duration
	TurnTimeout     time.Duration
}

// Deps are the collaborators a room talks to.
type Deps struct {
	Log     *zap.Logger
	Gateway Gateway
	Store   ResultStore
	Notify  Notifier
	// OnClose detaches the room from its registry once it is done.
	OnClose func()
}

// LobbyPlayer is a roster entry before the game starts.
type LobbyPlayer struct {
	ID       int64
	Name     string
	Username string
}

type msg interface{ isRoomMsg() }

type joinMsg struct {
	player LobbyPlayer
	reply  chan joinReply
}
type joinReply struct {
	text string
	err  error
}
type startNowMsg struct{ reply chan error }
type playMsg struct {
	playerID int64
	tile     engine.Tile
	side     engine.Side
	reply    chan playReply
}
type playReply struct {
	outcome engine.PlayOutcome
	err     error
}
type drawMsg struct {
	playerID int64
	reply    chan drawReply
}
type drawReply struct {
	outcome engine.DrawOutcome
	err     error
}
type passMsg struct {
	playerID int64
	reply    chan passReply
}
type passReply struct {
	outcome engine.PassOutcome
	err     error
}
type snapshotMsg struct {
	playerID int64
	reply    chan *types.Snapshot
}
type movesMsg struct {
	playerID int64
	reply    chan []engine.Move
}
type shutdownMsg struct{}

// Internal, timer-driven messages. Each carries the generation it was
// armed under; the loop drops fires from a superseded generation.
type beginMsg struct{ firstAuto time.Duration }
type lobbyExpiredMsg struct{}
type turnExpiredMsg struct{ gen int }
type autoStepMsg struct {
	gen    int
	seatID int64
}
type nextGameMsg struct{ gen int }

func (joinMsg) isRoomMsg()        {}
func (startNowMsg) isRoomMsg()    {}
func (playMsg) isRoomMsg()        {}
func (drawMsg) isRoomMsg()        {}
func (passMsg) isRoomMsg()        {}
func (snapshotMsg) isRoomMsg()    {}
func (movesMsg) isRoomMsg()       {}
func (shutdownMsg) isRoomMsg()    {}
func (beginMsg) isRoomMsg()       {}
func (lobbyExpiredMsg) isRoomMsg() {}
func (turnExpiredMsg) isRoomMsg() {}
func (autoStepMsg) isRoomMsg()    {}
func (nextGameMsg) isRoomMsg()    {}

// Room owns the live state for one game identifier.
type Room struct {
	ID      string
	GroupID int64

	inbox  chan msg
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
	opts   Options
	deps   Deps
	rng    *rand.Rand

	stage      Stage
	players    []LobbyPlayer
	lobbyTimer *time.Timer

	game       *engine.Game
	gameNumber int
	results    []types.GameResult

	// gen increments on every accepted mutation; scheduled callbacks
	// carry the gen they were armed under and stale ones are dropped.
	gen       int
	turnTimer *time.Timer
}

// New opens a lobby with its creator seated and the countdown running.
func New(parent context.Context, id string, groupID int64, creator LobbyPlayer, opts Options, deps Deps) *Room {
	r := newRoom(parent, id, groupID, opts, deps)
	r.stage = StageLobby
	r.players = []LobbyPlayer{creator}
	r.lobbyTimer = time.AfterFunc(opts.LobbyTimeout, func() { r.post(lobbyExpiredMsg{}) })
	go r.loop()
	return r
}

// NewTestGame skips the lobby: one human against 2-4 bots, playing
// immediately. The first bot turn is delayed so the client can attach.
func NewTestGame(parent context.Context, id string, groupID int64, human LobbyPlayer, numBots int, opts Options, deps Deps) *Room {
	r := newRoom(parent, id, groupID, opts, deps)
	r.stage = StagePlaying
	r.players = []LobbyPlayer{human}
	for i := 0; i < numBots; i++ {
		info := bot.Seat(i)
		r.players = append(r.players, LobbyPlayer{ID: info.ID, Name: info.Name})
	}
	go r.loop()
	r.post(beginMsg{firstAuto: 2 * time.Second})
	return r
}

func newRoom(parent context.Context, id string, groupID int64, opts Options, deps Deps) *Room {
	ctx, cancel := context.WithCancel(parent)
	return &Room{
		ID:      id,
		GroupID: groupID,
		inbox:   make(chan msg, 64),
		ctx:     ctx,
		cancel:  cancel,
		log:     deps.Log.With(zap.String("game_id", id), zap.Int64("group_id", groupID)),
		opts:    opts,
		deps:    deps,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// post delivers a message unless the room has shut down.
func (r *Room) post(m msg) {
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
	}
}

// --- synchronous API (each call is one message round trip) ---

func (r *Room) Join(p LobbyPlayer) (string, error) {
	reply := make(chan joinReply, 1)
	r.post(joinMsg{player: p, reply: reply})
	select {
	case res := <-reply:
		return res.text, res.err
	case <-r.ctx.Done():
		return "", ErrRoomClosed
	}
}

func (r *Room) StartNow() error {
	reply := make(chan error, 1)
	r.post(startNowMsg{reply: reply})
	select {
	case err := <-reply:
		return err
	case <-r.ctx.Done():
		return ErrRoomClosed
	}
}

func (r *Room) PlayTile(playerID int64, tile engine.Tile, side engine.Side) (engine.PlayOutcome, error) {
	reply := make(chan playReply, 1)
	r.post(playMsg{playerID: playerID, tile: tile, side: side, reply: reply})
	select {
	case res := <-reply:
		return res.outcome, res.err
	case <-r.ctx.Done():
		return engine.PlayOutcome{}, ErrRoomClosed
	}
}

func (r *Room) DrawTile(playerID int64) (engine.DrawOutcome, error) {
	reply := make(chan drawReply, 1)
	r.post(drawMsg{playerID: playerID, reply: reply})
	select {
	case res := <-reply:
		return res.outcome, res.err
	case <-r.ctx.Done():
		return engine.DrawOutcome{}, ErrRoomClosed
	}
}

func (r *Room) PassTurn(playerID int64) (engine.PassOutcome, error) {
	reply := make(chan passReply, 1)
	r.post(passMsg{playerID: playerID, reply: reply})
	select {
	case res := <-reply:
		return res.outcome, res.err
	case <-r.ctx.Done():
		return engine.PassOutcome{}, ErrRoomClosed
	}
}

// Snapshot returns the game as seen by one seat, or nil before the first
// deal or after close.
func (r *Room) Snapshot(playerID int64) *types.Snapshot {
	reply := make(chan *types.Snapshot, 1)
	r.post(snapshotMsg{playerID: playerID, reply: reply})
	select {
	case snap := <-reply:
		return snap
	case <-r.ctx.Done():
		return nil
	}
}

func (r *Room) Moves(playerID int64) []engine.Move {
	reply := make(chan []engine.Move, 1)
	r.post(movesMsg{playerID: playerID, reply: reply})
	select {
	case moves := <-reply:
		return moves
	case <-r.ctx.Done():
		return nil
	}
}

func (r *Room) Shutdown() { r.post(shutdownMsg{}) }

// --- actor loop ---

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.stopTimers()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case joinMsg:
				msg.reply <- r.handleJoin(msg.player)

			case startNowMsg:
				msg.reply <- r.handleStartNow()

			case playMsg:
				outcome, err := r.handlePlay(msg.playerID, msg.tile, msg.side)
				msg.reply <- playReply{outcome: outcome, err: err}

			case drawMsg:
				outcome, err := r.handleDraw(msg.playerID)
				msg.reply <- drawReply{outcome: outcome, err: err}

			case passMsg:
				outcome, err := r.handlePass(msg.playerID)
				msg.reply <- passReply{outcome: outcome, err: err}

			case snapshotMsg:
				msg.reply <- r.buildSnapshot(msg.playerID)

			case movesMsg:
				if r.game == nil {
					msg.reply <- nil
				} else {
					msg.reply <- r.game.ValidMoves(msg.playerID)
				}

			case beginMsg:
				r.gameNumber = 1
				r.startGame(msg.firstAuto)

			case lobbyExpiredMsg:
				r.handleLobbyExpired()

			case turnExpiredMsg:
				if r.liveGen(msg.gen) {
					r.log.Info("turn timeout, AI takeover",
						zap.Int64("player_id", r.game.CurrentSeat().ID))
					r.autoAct(r.game.CurrentSeat().ID)
				}

			case autoStepMsg:
				if r.liveGen(msg.gen) && r.game.CurrentSeat().ID == msg.seatID {
					r.autoAct(msg.seatID)
				}

			case nextGameMsg:
				if msg.gen == r.gen && r.stage == StagePlaying {
					r.gameNumber++
					r.startGame(r.botPace())
				}

			case shutdownMsg:
				r.closeRoom()
				return
			}
		}
	}
}

// liveGen reports whether a scheduled callback is still current.
func (r *Room) liveGen(gen int) bool {
	return gen == r.gen && r.stage == StagePlaying &&
		r.game != nil && r.game.Status == engine.StatusActive
}

// --- lobby ---

func (r *Room) handleJoin(p LobbyPlayer) joinReply {
	if r.stage != StageLobby {
		return joinReply{err: ErrLobbyClosed}
	}
	for _, existing := range r.players {
		if existing.ID == p.ID {
			return joinReply{err: ErrAlreadyJoined}
		}
	}
	if len(r.players) >= r.opts.MaxPlayers {
		return joinReply{err: ErrLobbyFull}
	}

	r.players = append(r.players, p)
	text := fmt.Sprintf("%s joined! (%d/%d players)", p.Name, len(r.players), r.opts.MaxPlayers)
	r.deps.Notify.Notify(r.ID, r.GroupID, text)
	return joinReply{text: text}
}

func (r *Room) handleStartNow() error {
	if r.stage != StageLobby {
		return ErrLobbyClosed
	}
	if len(r.players) < r.opts.MinPlayers {
		return ErrNotEnoughPlayers
	}
	r.startSession()
	return nil
}

func (r *Room) handleLobbyExpired() {
	if r.stage != StageLobby {
		return
	}
	if len(r.players) >= r.opts.MinPlayers {
		r.startSession()
		return
	}
	r.deps.Notify.Notify(r.ID, r.GroupID, "Not enough players, game cancelled.")
	r.closeRoom()
}

func (r *Room) startSession() {
	if r.lobbyTimer != nil {
		r.lobbyTimer.Stop()
		r.lobbyTimer = nil
	}
	r.stage = StagePlaying
	r.gameNumber = 1

	names := make([]string, 0, len(r.players))
	for _, p := range r.players {
		names = append(names, p.Name)
	}
	r.deps.Notify.Notify(r.ID, r.GroupID, "Game started! Players: "+strings.Join(names, ", "))

	r.startGame(r.botPace())
}

func (r *Room) startGame(firstAuto time.Duration) {
	infos := make([]engine.SeatInfo, 0, len(r.players))
	for _, p := range r.players {
		infos = append(infos, engine.SeatInfo{ID: p.ID, Name: p.Name})
	}
	g, err := engine.New(infos)
	if err != nil {
		// Roster size is enforced at the lobby; this is unreachable.
		r.log.Error("deal failed", zap.Error(err))
		r.closeRoom()
		return
	}
	r.game = g
	r.gen++
	r.log.Info("game dealt",
		zap.Int("game_number", r.gameNumber),
		zap.Int("players", len(r.players)),
		zap.Int64("opener", g.CurrentSeat().ID))

	r.broadcastState()
	r.armTurnTimer()
	r.scheduleAuto(firstAuto)
}

// --- seat actions ---

func (r *Room) handlePlay(playerID int64, tile engine.Tile, side engine.Side) (engine.PlayOutcome, error) {
	if r.game == nil {
		return engine.PlayOutcome{}, ErrNoActiveGame
	}
	outcome, err := r.game.Play(playerID, tile, side)
	if err != nil {
		return outcome, err
	}
	r.gen++
	r.afterAction(outcome.GameOver)
	return outcome, nil
}

func (r *Room) handleDraw(playerID int64) (engine.DrawOutcome, error) {
	if r.game == nil {
		return engine.DrawOutcome{}, ErrNoActiveGame
	}
	outcome, err := r.game.Draw(playerID)
	if err != nil {
		return outcome, err
	}
	r.gen++
	// The seat keeps the turn but gets a fresh clock after drawing.
	r.broadcastState()
	r.armTurnTimer()
	return outcome, nil
}

func (r *Room) handlePass(playerID int64) (engine.PassOutcome, error) {
	if r.game == nil {
		return engine.PassOutcome{}, ErrNoActiveGame
	}
	outcome, err := r.game.Pass(playerID)
	if err != nil {
		return outcome, err
	}
	r.gen++
	r.afterAction(outcome.GameOver)
	return outcome, nil
}

// afterAction runs after every committed play or pass: fan out state, then
// either settle the finished game or hand the clock to the next seat.
func (r *Room) afterAction(gameOver bool) {
	r.broadcastState()
	if gameOver {
		r.stopTurnTimer()
		r.finishGame()
		return
	}
	r.armTurnTimer()
	r.scheduleAuto(r.botPace())
}

// autoAct plays one turn on behalf of seatID: best heuristic move, or a
// single draw (rescheduling itself so draws stay paced and cancellable),
// or a pass once the boneyard is gone.
func (r *Room) autoAct(seatID int64) {
	moves := r.game.ValidMoves(seatID)
	if len(moves) > 0 {
		m := bot.Pick(moves, r.rng)
		outcome, err := r.game.Play(seatID, m.Tile, m.Side)
		if err != nil {
			r.log.Error("auto play rejected", zap.Int64("player_id", seatID), zap.Error(err))
			return
		}
		r.gen++
		r.log.Info("auto play",
			zap.Int64("player_id", seatID),
			zap.String("tile", m.Tile.String()),
			zap.String("side", string(m.Side)))
		r.afterAction(outcome.GameOver)
		return
	}

	if outcome, err := r.game.Draw(seatID); err == nil {
		r.gen++
		r.log.Info("auto draw",
			zap.Int64("player_id", seatID),
			zap.Int("boneyard", outcome.BoneyardCount))
		r.broadcastState()
		r.scheduleAutoFor(seatID, r.drawPace())
		return
	}

	outcome, err := r.game.Pass(seatID)
	if err != nil {
		r.log.Error("auto pass rejected", zap.Int64("player_id", seatID), zap.Error(err))
		return
	}
	r.gen++
	r.log.Info("auto pass", zap.Int64("player_id", seatID))
	r.afterAction(outcome.GameOver)
}

// scheduleAuto arms a bot step when the new current seat is bot-controlled.
func (r *Room) scheduleAuto(d time.Duration) {
	if r.game == nil || r.game.Status != engine.StatusActive {
		return
	}
	cur := r.game.CurrentSeat().ID
	if !bot.IsBot(cur) {
		return
	}
	r.scheduleAutoFor(cur, d)
}

func (r *Room) scheduleAutoFor(seatID int64, d time.Duration) {
	gen := r.gen
	time.AfterFunc(d, func() { r.post(autoStepMsg{gen: gen, seatID: seatID}) })
}

func (r *Room) botPace() time.Duration {
	return time.Second + time.Duration(r.rng.Int63n(int64(500*time.Millisecond)))
}

func (r *Room) drawPace() time.Duration {
	return 300*time.Millisecond + time.Duration(r.rng.Int63n(int64(200*time.Millisecond)))
}

// --- game and session end ---

func (r *Room) finishGame() {
	res := types.GameResult{GameNumber: r.gameNumber, IsFish: r.game.IsFish}
	if !r.game.IsFish {
		w := r.game.WinnerID
		res.WinnerID = &w
	}
	r.results = append(r.results, res)
	r.log.Info("game finished",
		zap.Int("game_number", r.gameNumber),
		zap.Bool("is_fish", res.IsFish))

	if r.gameNumber < r.opts.GamesPerSession {
		r.deps.Gateway.SendEvent(r.ID, "game_over", types.GameOverEvent{
			GameResult: res,
			NextGame:   true,
			GameNumber: r.gameNumber + 1,
		})
		gen := r.gen
		time.AfterFunc(time.Second, func() { r.post(nextGameMsg{gen: gen}) })
		return
	}

	r.deps.Gateway.SendEvent(r.ID, "game_over", types.GameOverEvent{GameResult: res})
	r.deps.Gateway.SendEvent(r.ID, "session_end", types.SessionEndEvent{Results: r.results})
	r.deps.Notify.Notify(r.ID, r.GroupID, r.sessionSummary())

	// Results are already committed in memory; persistence must not block
	// the room.
	results := append([]types.GameResult(nil), r.results...)
	groupID := r.GroupID
	store, log := r.deps.Store, r.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.SaveSessionResults(ctx, groupID, results); err != nil {
			log.Error("save session results", zap.Error(err))
		}
	}()

	r.closeRoom()
}

func (r *Room) sessionSummary() string {
	var b strings.Builder
	b.WriteString("Session over!")
	for _, res := range r.results {
		if res.IsFish {
			fmt.Fprintf(&b, " Game %d: fish.", res.GameNumber)
			continue
		}
		name := fmt.Sprintf("player %d", *res.WinnerID)
		for _, p := range r.players {
			if p.ID == *res.WinnerID {
				name = p.Name
				break
			}
		}
		fmt.Fprintf(&b, " Game %d: %s won.", res.GameNumber, name)
	}
	return b.String()
}

// --- plumbing ---

func (r *Room) buildSnapshot(playerID int64) *types.Snapshot {
	if r.game == nil {
		return nil
	}
	snap := types.SnapshotFor(r.game, playerID)
	snap.GameID = r.ID
	snap.GameNumber = r.gameNumber
	snap.TotalGames = r.opts.GamesPerSession
	return snap
}

func (r *Room) broadcastState() {
	if r.game == nil {
		return
	}
	for _, id := range r.deps.Gateway.Connected(r.ID) {
		r.deps.Gateway.SendState(r.ID, id, r.buildSnapshot(id))
	}
}

func (r *Room) armTurnTimer() {
	r.stopTurnTimer()
	gen := r.gen
	r.turnTimer = time.AfterFunc(r.opts.TurnTimeout, func() { r.post(turnExpiredMsg{gen: gen}) })
}

func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
}

func (r *Room) stopTimers() {
	r.stopTurnTimer()
	if r.lobbyTimer != nil {
		r.lobbyTimer.Stop()
		r.lobbyTimer = nil
	}
}

func (r *Room) closeRoom() {
	r.stage = StageClosed
	r.stopTimers()
	r.deps.Gateway.CleanupGame(r.ID)
	if r.deps.OnClose != nil {
		r.deps.OnClose()
	}
	r.cancel()
}
