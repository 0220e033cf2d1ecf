package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kh4rit/kh-domino-game/internal/hub"
	"github.com/kh4rit/kh-domino-game/internal/room"
	"github.com/kh4rit/kh-domino-game/internal/ws"
	"github.com/kh4rit/kh-domino-game/pkg/types"
)

func testServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	log := zap.NewNop()
	gw := ws.NewGateway(log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.New(ctx, room.Options{
		MinPlayers:      3,
		MaxPlayers:      5,
		GamesPerSession: 2,
		LobbyTimeout:    time.Hour,
		TurnTimeout:     time.Hour,
	}, room.Deps{
		Log:     log,
		Gateway: gw,
		Store:   nopStore{},
		Notify:  nopNotifier{},
	})
	t.Cleanup(h.Shutdown)

	srv := httptest.NewServer(SetupRoutes(h, gw, nil, "test-token", log))
	t.Cleanup(srv.Close)
	return srv, h
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, int64, string) {}

type nopStore struct{}

func (nopStore) SaveSessionResults(context.Context, int64, []types.GameResult) error { return nil }

func doJSON(t *testing.T, method, url string, playerID string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if playerID != "" {
		req.Header.Set("X-Player-Id", playerID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestAPIRequiresIdentity(t *testing.T) {
	srv, _ := testServer(t)
	resp, err := http.Get(srv.URL + "/api/game/NOPE1234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}

func TestGameEndpoints(t *testing.T) {
	srv, _ := testServer(t)

	var created struct {
		GameID string `json:"gameId"`
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/test/create", "7",
		map[string]any{"name": "Anna", "numBots": 2}, &created)
	if resp.StatusCode != http.StatusCreated || created.GameID == "" {
		t.Fatalf("create: status=%d body=%+v", resp.StatusCode, created)
	}

	var snap types.Snapshot
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/game/"+created.GameID, "7", nil, &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get game: status %d", resp.StatusCode)
	}
	if len(snap.Players) != 3 || snap.Status != "active" {
		t.Fatalf("snapshot %+v", snap)
	}
	var me *types.Player
	for i := range snap.Players {
		if snap.Players[i].ID == 7 {
			me = &snap.Players[i]
		}
	}
	if me == nil || len(me.Hand) == 0 {
		t.Fatalf("own hand missing from snapshot")
	}

	var moves struct {
		Moves []types.Move `json:"moves"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/game/"+created.GameID+"/moves", "7", nil, &moves)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get moves: status %d", resp.StatusCode)
	}

	// A tile the player cannot legally place comes back as a user-facing
	// error, not an HTTP failure.
	var result types.ActionResult
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/game/"+created.GameID+"/move", "7",
		types.MoveRequest{Tile: types.Tile{Left: 0, Right: 0}, Side: "left"}, &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post move: status %d", resp.StatusCode)
	}
	if snap.CurrentPlayerID != 7 && result.Success {
		t.Fatalf("move accepted out of turn")
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/game/MISSING1", "7", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing game: status %d", resp.StatusCode)
	}
}

func TestLobbyEndpoints(t *testing.T) {
	srv, _ := testServer(t)

	var created struct {
		GameID  string `json:"gameId"`
		Message string `json:"message"`
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/lobby/create", "1",
		map[string]any{"groupId": 100, "name": "Anna"}, &created)
	if resp.StatusCode != http.StatusCreated || created.GameID == "" {
		t.Fatalf("create lobby: status=%d body=%+v", resp.StatusCode, created)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/lobby/create", "2",
		map[string]any{"groupId": 100, "name": "Ben"}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second lobby: status %d, want 409", resp.StatusCode)
	}

	var joined types.ActionResult
	doJSON(t, http.MethodPost, srv.URL+"/api/lobby/join", "2",
		map[string]any{"groupId": 100, "name": "Ben"}, &joined)
	if joined.Error != "" {
		t.Fatalf("join: %q", joined.Error)
	}

	// Starting short of quorum is refused with a readable reason.
	var started types.ActionResult
	doJSON(t, http.MethodPost, srv.URL+"/api/lobby/start", "1",
		map[string]any{"groupId": 100, "name": "Anna"}, &started)
	if started.Success || started.Error == "" {
		t.Fatalf("start below quorum: %+v", started)
	}

	doJSON(t, http.MethodPost, srv.URL+"/api/lobby/join", "3",
		map[string]any{"groupId": 100, "name": "Cleo"}, nil)
	doJSON(t, http.MethodPost, srv.URL+"/api/lobby/start", "1",
		map[string]any{"groupId": 100, "name": "Anna"}, &started)
	if !started.Success {
		t.Fatalf("start with quorum: %+v", started)
	}
}

func TestLeaderboardUnavailableWithoutStore(t *testing.T) {
	srv, _ := testServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/leaderboard/100", "1", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", resp.StatusCode)
	}
}
