// Package ws implements the push gateway over websockets: one connection
// per seat per game, server-push only, best-effort delivery.
package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/kh4rit/kh-domino-game/pkg/types"
)

// client is one attached connection with a buffered outbox. The writer
// goroutine drains the outbox; a full outbox means the client is too slow
// and gets dropped rather than blocking the game.
type client struct {
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newClient() *client {
	return &client{out: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// Gateway tracks connections per game and seat. It satisfies the room's
// broadcast contract; sends never block and never fail the caller.
type Gateway struct {
	mu    sync.RWMutex
	games map[string]map[int64]*client
	log   *zap.Logger
}

func NewGateway(log *zap.Logger) *Gateway {
	return &Gateway{games: make(map[string]map[int64]*client), log: log}
}

func (g *Gateway) attach(gameID string, playerID int64) *client {
	c := newClient()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.games[gameID] == nil {
		g.games[gameID] = make(map[int64]*client)
	}
	if old := g.games[gameID][playerID]; old != nil {
		old.close()
	}
	g.games[gameID][playerID] = c
	return c
}

func (g *Gateway) detach(gameID string, playerID int64, c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.games[gameID][playerID] == c {
		delete(g.games[gameID], playerID)
		if len(g.games[gameID]) == 0 {
			delete(g.games, gameID)
		}
	}
	c.close()
}

// Connected lists the seats currently attached to a game.
func (g *Gateway) Connected(gameID string) []int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]int64, 0, len(g.games[gameID]))
	for id := range g.games[gameID] {
		ids = append(ids, id)
	}
	return ids
}

// SendState pushes a personalized snapshot to one seat.
func (g *Gateway) SendState(gameID string, playerID int64, snap *types.Snapshot) {
	g.send(gameID, playerID, types.PushMessage{Type: "game_state", Data: snap})
}

// SendEvent pushes the same event to every seat in the game.
func (g *Gateway) SendEvent(gameID string, event string, data any) {
	g.mu.RLock()
	conns := make(map[int64]*client, len(g.games[gameID]))
	for id, c := range g.games[gameID] {
		conns[id] = c
	}
	g.mu.RUnlock()

	payload, err := json.Marshal(types.PushMessage{Type: event, Data: data})
	if err != nil {
		g.log.Error("marshal push event", zap.String("event", event), zap.Error(err))
		return
	}
	for id, c := range conns {
		g.deliver(gameID, id, c, payload)
	}
}

// CleanupGame drops every connection for a finished game.
func (g *Gateway) CleanupGame(gameID string) {
	g.mu.Lock()
	conns := g.games[gameID]
	delete(g.games, gameID)
	g.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

func (g *Gateway) send(gameID string, playerID int64, msg types.PushMessage) {
	g.mu.RLock()
	c := g.games[gameID][playerID]
	g.mu.RUnlock()
	if c == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		g.log.Error("marshal push message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	g.deliver(gameID, playerID, c, payload)
}

func (g *Gateway) deliver(gameID string, playerID int64, c *client, payload []byte) {
	select {
	case c.out <- payload:
	default:
		// Slow consumer: drop the connection, never the game.
		g.log.Warn("dropping slow client",
			zap.String("game_id", gameID), zap.Int64("player_id", playerID))
		g.detach(gameID, playerID, c)
	}
}
