package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kh4rit/kh-domino-game/internal/auth"
	"github.com/kh4rit/kh-domino-game/internal/bot"
	"github.com/kh4rit/kh-domino-game/internal/engine"
	"github.com/kh4rit/kh-domino-game/internal/hub"
	"github.com/kh4rit/kh-domino-game/internal/room"
	"github.com/kh4rit/kh-domino-game/pkg/types"
)

// Records is the player and results store behind the API. A nil Records
// means the server runs without persistence.
type Records interface {
	EnsurePlayer(ctx context.Context, playerID, groupID int64, displayName, username string) error
	Leaderboard(ctx context.Context, groupID int64) ([]types.LeaderboardRow, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// userMessage maps engine and room errors to strings the client shows as-is.
func userMessage(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, engine.ErrTileNotHeld):
		return "You don't have this tile"
	case errors.Is(err, engine.ErrEndMismatch):
		return "Tile does not match that end"
	case errors.Is(err, engine.ErrInvalidSide):
		return "Invalid side"
	case errors.Is(err, engine.ErrHasPlayableTile):
		return "You have playable tiles, cannot draw"
	case errors.Is(err, engine.ErrBoneyardEmpty):
		return "Boneyard is empty"
	case errors.Is(err, engine.ErrBoneyardNotEmpty):
		return "Boneyard is not empty, draw a tile first"
	case errors.Is(err, engine.ErrNotInGame):
		return "You are not in this game"
	case errors.Is(err, engine.ErrGameNotActive), errors.Is(err, room.ErrNoActiveGame):
		return "Game is not active"
	case errors.Is(err, room.ErrLobbyClosed):
		return "The game has already started"
	case errors.Is(err, room.ErrLobbyFull):
		return "Game is full"
	case errors.Is(err, room.ErrAlreadyJoined):
		return "You are already in the game"
	case errors.Is(err, room.ErrNotEnoughPlayers):
		return "Not enough players to start"
	case errors.Is(err, room.ErrRoomClosed):
		return "Game is over"
	default:
		return err.Error()
	}
}

type lobbyRequest struct {
	GroupID  int64  `json:"groupId"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

func decodeLobbyRequest(w http.ResponseWriter, r *http.Request) (lobbyRequest, bool) {
	var req lobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return lobbyRequest{}, false
	}
	if req.Name == "" {
		req.Name = "Player"
	}
	return req, true
}

func ensurePlayer(rec Records, log *zap.Logger, r *http.Request, p room.LobbyPlayer, groupID int64) {
	if rec == nil {
		return
	}
	if err := rec.EnsurePlayer(r.Context(), p.ID, groupID, p.Name, p.Username); err != nil {
		log.Warn("ensure player", zap.Int64("playerID", p.ID), zap.Error(err))
	}
}

// CreateLobby opens a group lobby; one open game per group at a time.
func CreateLobby(h *hub.Hub, rec Records, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeLobbyRequest(w, r)
		if !ok {
			return
		}
		creator := room.LobbyPlayer{ID: auth.PlayerID(r), Name: req.Name, Username: req.Username}
		ensurePlayer(rec, log, r, creator, req.GroupID)
		gameID, text, err := h.CreateLobby(req.GroupID, creator)
		if err != nil {
			if errors.Is(err, hub.ErrLobbyExists) {
				writeJSON(w, http.StatusConflict, types.ActionResult{Error: "A game is already running in this group"})
				return
			}
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			GameID  string `json:"gameId"`
			Message string `json:"message"`
		}{GameID: gameID, Message: text})
	}
}

func JoinLobby(h *hub.Hub, rec Records, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeLobbyRequest(w, r)
		if !ok {
			return
		}
		rm := h.RoomByGroup(req.GroupID)
		if rm == nil {
			writeJSON(w, http.StatusNotFound, types.ActionResult{Error: "No open game in this group"})
			return
		}
		p := room.LobbyPlayer{ID: auth.PlayerID(r), Name: req.Name, Username: req.Username}
		ensurePlayer(rec, log, r, p, req.GroupID)
		text, err := rm.Join(p)
		if err != nil {
			writeJSON(w, http.StatusOK, types.ActionResult{Error: userMessage(err)})
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}{Success: true, Message: text})
	}
}

func StartLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeLobbyRequest(w, r)
		if !ok {
			return
		}
		rm := h.RoomByGroup(req.GroupID)
		if rm == nil {
			writeJSON(w, http.StatusNotFound, types.ActionResult{Error: "No open game in this group"})
			return
		}
		if err := rm.StartNow(); err != nil {
			writeJSON(w, http.StatusOK, types.ActionResult{Error: userMessage(err)})
			return
		}
		writeJSON(w, http.StatusOK, types.ActionResult{Success: true})
	}
}

func GetGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := h.Room(chi.URLParam(r, "gameID"))
		if rm == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		snap := rm.Snapshot(auth.PlayerID(r))
		if snap == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func GetMoves(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := h.Room(chi.URLParam(r, "gameID"))
		if rm == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		moves := rm.Moves(auth.PlayerID(r))
		writeJSON(w, http.StatusOK, struct {
			Moves []types.Move `json:"moves"`
		}{Moves: types.MovesFromEngine(moves)})
	}
}

func PostMove(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := h.Room(chi.URLParam(r, "gameID"))
		if rm == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		var req types.MoveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, types.ActionResult{Error: "invalid request body"})
			return
		}
		out, err := rm.PlayTile(auth.PlayerID(r), req.Tile.ToEngine(), engine.Side(req.Side))
		if err != nil {
			writeJSON(w, http.StatusOK, types.ActionResult{Error: userMessage(err)})
			return
		}
		writeJSON(w, http.StatusOK, types.ActionResult{
			Success:  true,
			GameOver: out.GameOver,
			IsFish:   out.IsFish,
		})
	}
}

func PostPass(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := h.Room(chi.URLParam(r, "gameID"))
		if rm == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		out, err := rm.PassTurn(auth.PlayerID(r))
		if err != nil {
			writeJSON(w, http.StatusOK, types.ActionResult{Error: userMessage(err)})
			return
		}
		writeJSON(w, http.StatusOK, types.ActionResult{
			Success:  true,
			GameOver: out.GameOver,
			IsFish:   out.IsFish,
		})
	}
}

func PostDraw(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := h.Room(chi.URLParam(r, "gameID"))
		if rm == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		out, err := rm.DrawTile(auth.PlayerID(r))
		if err != nil {
			writeJSON(w, http.StatusOK, types.DrawResult{
				Error:         userMessage(err),
				BoneyardCount: out.BoneyardCount,
			})
			return
		}
		t := types.TileFromEngine(out.Tile)
		writeJSON(w, http.StatusOK, types.DrawResult{
			Success:       true,
			Tile:          &t,
			BoneyardCount: out.BoneyardCount,
		})
	}
}

// CreateTestGame seats the caller against bots, for playing without a group.
func CreateTestGame(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    string `json:"name"`
			NumBots int    `json:"numBots"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			req.Name = "Player"
		}
		if req.NumBots < 2 {
			req.NumBots = 2
		}
		if req.NumBots > bot.MaxBots {
			req.NumBots = bot.MaxBots
		}
		human := room.LobbyPlayer{ID: auth.PlayerID(r), Name: req.Name}
		gameID, err := h.CreateTestGame(human, req.NumBots)
		if err != nil {
			http.Error(w, "failed to create game", http.StatusInternalServerError)
			return
		}
		log.Info("test game created",
			zap.String("gameID", gameID),
			zap.Int64("playerID", human.ID),
			zap.Int("numBots", req.NumBots))
		writeJSON(w, http.StatusCreated, struct {
			GameID string `json:"gameId"`
		}{GameID: gameID})
	}
}

func GetLeaderboard(rec Records) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid group id", http.StatusBadRequest)
			return
		}
		rows, err := rec.Leaderboard(r.Context(), groupID)
		if err != nil {
			http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Rows []types.LeaderboardRow `json:"rows"`
		}{Rows: rows})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
