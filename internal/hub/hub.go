// Package hub is the registry of live rooms: one lobby or session per
// chat group, addressable by game id. Like the rooms it owns, the hub is
// a single goroutine fed by a typed inbox.
package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/kh4rit/kh-domino-game/internal/room"
)

var ErrLobbyExists = errors.New("a game is already open in this group")
var ErrNotFound = errors.New("game not found")

type hubMsg interface{ isHubMsg() }

type createLobbyMsg struct {
	groupID int64
	creator room.LobbyPlayer
	reply   chan createReply
}
type createReply struct {
	gameID string
	rm     *room.Room
	err    error
}
type createTestMsg struct {
	human   room.LobbyPlayer
	numBots int
	reply   chan createReply
}
type getRoomMsg struct {
	gameID string
	reply  chan *room.Room
}
type getByGroupMsg struct {
	groupID int64
	reply   chan *room.Room
}
type removeMsg struct{ gameID string }
type shutdownMsg struct{}

func (createLobbyMsg) isHubMsg() {}
func (createTestMsg) isHubMsg()  {}
func (getRoomMsg) isHubMsg()     {}
func (getByGroupMsg) isHubMsg()  {}
func (removeMsg) isHubMsg()      {}
func (shutdownMsg) isHubMsg()    {}

type Hub struct {
	inbox  chan hubMsg
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger

	opts room.Options
	deps room.Deps

	rooms  map[string]*room.Room // game id -> room
	groups map[int64]string      // group id -> game id (one per group)
	seq    int64                 // counter for synthetic test-game groups
}

// New starts the hub loop. deps.OnClose is managed per room by the hub
// itself and may be left nil.
func New(parent context.Context, opts room.Options, deps room.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan hubMsg, 64),
		ctx:    ctx,
		cancel: cancel,
		log:    deps.Log,
		opts:   opts,
		deps:   deps,
		rooms:  make(map[string]*room.Room),
		groups: make(map[int64]string),
	}
	go h.loop()
	return h
}

// CreateLobby opens a lobby for the group with the creator seated.
// Returns the new game id and the lobby announcement text.
func (h *Hub) CreateLobby(groupID int64, creator room.LobbyPlayer) (string, string, error) {
	reply := make(chan createReply, 1)
	h.post(createLobbyMsg{groupID: groupID, creator: creator, reply: reply})
	res, ok := h.await(reply)
	if !ok {
		return "", "", ErrNotFound
	}
	if res.err != nil {
		return "", "", res.err
	}
	return res.gameID, fmt.Sprintf("%s started a game! Waiting for players...", creator.Name), nil
}

// CreateTestGame starts an instant session against bots, no lobby.
func (h *Hub) CreateTestGame(human room.LobbyPlayer, numBots int) (string, error) {
	reply := make(chan createReply, 1)
	h.post(createTestMsg{human: human, numBots: numBots, reply: reply})
	res, ok := h.await(reply)
	if !ok {
		return "", ErrNotFound
	}
	return res.gameID, res.err
}

// Room returns the live room for a game id, or nil.
func (h *Hub) Room(gameID string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.post(getRoomMsg{gameID: gameID, reply: reply})
	select {
	case rm := <-reply:
		return rm
	case <-h.ctx.Done():
		return nil
	}
}

// RoomByGroup returns the group's live room (lobby or session), or nil.
func (h *Hub) RoomByGroup(groupID int64) *room.Room {
	reply := make(chan *room.Room, 1)
	h.post(getByGroupMsg{groupID: groupID, reply: reply})
	select {
	case rm := <-reply:
		return rm
	case <-h.ctx.Done():
		return nil
	}
}

func (h *Hub) Shutdown() { h.post(shutdownMsg{}) }

func (h *Hub) post(m hubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func (h *Hub) await(reply chan createReply) (createReply, bool) {
	select {
	case res := <-reply:
		return res, true
	case <-h.ctx.Done():
		return createReply{}, false
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case createLobbyMsg:
				if _, taken := h.groups[msg.groupID]; taken {
					msg.reply <- createReply{err: ErrLobbyExists}
					break
				}
				gameID := h.newGameID()
				rm := room.New(h.ctx, gameID, msg.groupID, msg.creator, h.opts, h.roomDeps(gameID))
				h.rooms[gameID] = rm
				h.groups[msg.groupID] = gameID
				h.log.Info("lobby created",
					zap.String("game_id", gameID), zap.Int64("group_id", msg.groupID))
				msg.reply <- createReply{gameID: gameID, rm: rm}

			case createTestMsg:
				gameID := h.newGameID()
				// Synthetic group so test games never collide with chats.
				h.seq++
				groupID := -h.seq
				rm := room.NewTestGame(h.ctx, gameID, groupID, msg.human, msg.numBots,
					h.opts, h.roomDeps(gameID))
				h.rooms[gameID] = rm
				h.groups[groupID] = gameID
				h.log.Info("test game created",
					zap.String("game_id", gameID), zap.Int("bots", msg.numBots))
				msg.reply <- createReply{gameID: gameID, rm: rm}

			case getRoomMsg:
				msg.reply <- h.rooms[msg.gameID] // may be nil

			case getByGroupMsg:
				if gameID, ok := h.groups[msg.groupID]; ok {
					msg.reply <- h.rooms[gameID]
				} else {
					msg.reply <- nil
				}

			case removeMsg:
				if rm, ok := h.rooms[msg.gameID]; ok {
					delete(h.groups, rm.GroupID)
					delete(h.rooms, msg.gameID)
				}

			case shutdownMsg:
				for _, rm := range h.rooms {
					rm.Shutdown()
				}
				clear(h.rooms)
				clear(h.groups)
				h.cancel()
			}
		}
	}
}

// roomDeps gives each room a close hook that deregisters it.
func (h *Hub) roomDeps(gameID string) room.Deps {
	deps := h.deps
	deps.OnClose = func() { h.post(removeMsg{gameID: gameID}) }
	return deps
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (h *Hub) newGameID() string {
	for {
		code := make([]byte, 8)
		for i := range code {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
			if err != nil {
				// crypto/rand failing is unrecoverable for id generation
				panic(err)
			}
			code[i] = codeCharset[n.Int64()]
		}
		if _, exists := h.rooms[string(code)]; !exists {
			return string(code)
		}
	}
}
