package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kh4rit/kh-domino-game/internal/room"
)

// RoomSource locates live rooms; the hub satisfies it.
type RoomSource interface {
	Room(gameID string) *room.Room
}

// Handler upgrades /ws/{gameID}/{playerID}, sends the initial snapshot and
// then pushes until the client goes away. Moves travel over REST; the
// reader only answers pings.
func Handler(gw *Gateway, rooms RoomSource, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		playerID, err := strconv.ParseInt(chi.URLParam(r, "playerID"), 10, 64)
		if err != nil {
			http.Error(w, "bad player id", http.StatusBadRequest)
			return
		}

		rm := rooms.Room(gameID)
		if rm == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := gw.attach(gameID, playerID)
		defer gw.detach(gameID, playerID, c)
		log.Info("ws connected", zap.String("game_id", gameID), zap.Int64("player_id", playerID))

		if snap := rm.Snapshot(playerID); snap != nil {
			gw.SendState(gameID, playerID, snap)
		}

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case payload := <-c.out:
					ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
					err := conn.Write(ctx, websocket.MessageText, payload)
					cancel()
					if err != nil {
						writeCancel()
						return
					}
				case <-c.done:
					return
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				log.Info("ws disconnected",
					zap.String("game_id", gameID), zap.Int64("player_id", playerID))
				return
			}

			var in struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(data, &in) == nil && in.Type == "ping" {
				select {
				case c.out <- []byte(`{"type":"pong"}`):
				default:
				}
			}
		}
	}
}
