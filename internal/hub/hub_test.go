package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kh4rit/kh-domino-game/internal/room"
	"github.com/kh4rit/kh-domino-game/pkg/types"
)

type nopGateway struct{}

func (nopGateway) Connected(string) []int64                 { return nil }
func (nopGateway) SendState(string, int64, *types.Snapshot) {}
func (nopGateway) SendEvent(string, string, any)            {}
func (nopGateway) CleanupGame(string)                       {}

type nopNotifier struct{}

func (nopNotifier) Notify(string, int64, string) {}

type nopStore struct{}

func (nopStore) SaveSessionResults(context.Context, int64, []types.GameResult) error { return nil }

func testHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := New(ctx, room.Options{
		MinPlayers:      3,
		MaxPlayers:      5,
		GamesPerSession: 2,
		LobbyTimeout:    time.Hour,
		TurnTimeout:     time.Hour,
	}, room.Deps{
		Log:     zap.NewNop(),
		Gateway: nopGateway{},
		Store:   nopStore{},
		Notify:  nopNotifier{},
	})
	t.Cleanup(h.Shutdown)
	return h
}

func TestHub_CreateAndLookup(t *testing.T) {
	h := testHub(t)

	gameID, text, err := h.CreateLobby(100, room.LobbyPlayer{ID: 1, Name: "Anna"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(gameID) != 8 {
		t.Fatalf("game id %q, want 8 chars", gameID)
	}
	if text == "" {
		t.Fatalf("empty announcement")
	}

	byID := h.Room(gameID)
	byGroup := h.RoomByGroup(100)
	if byID == nil || byID != byGroup {
		t.Fatalf("lookups disagree: %p vs %p", byID, byGroup)
	}
}

func TestHub_OneLobbyPerGroup(t *testing.T) {
	h := testHub(t)

	if _, _, err := h.CreateLobby(100, room.LobbyPlayer{ID: 1, Name: "Anna"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := h.CreateLobby(100, room.LobbyPlayer{ID: 2, Name: "Ben"}); !errors.Is(err, ErrLobbyExists) {
		t.Fatalf("second create: want ErrLobbyExists, got %v", err)
	}

	// A different group is unaffected.
	if _, _, err := h.CreateLobby(200, room.LobbyPlayer{ID: 2, Name: "Ben"}); err != nil {
		t.Fatalf("other group create: %v", err)
	}
}

func TestHub_UnknownLookupsReturnNil(t *testing.T) {
	h := testHub(t)

	if rm := h.Room("NOPE1234"); rm != nil {
		t.Fatalf("unknown game id returned %p", rm)
	}
	if rm := h.RoomByGroup(999); rm != nil {
		t.Fatalf("unknown group returned %p", rm)
	}
}

func TestHub_TestGamesGetDistinctGroups(t *testing.T) {
	h := testHub(t)

	a, err := h.CreateTestGame(room.LobbyPlayer{ID: 1, Name: "Anna"}, 2)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := h.CreateTestGame(room.LobbyPlayer{ID: 1, Name: "Anna"}, 3)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	if a == b {
		t.Fatalf("test games share a game id")
	}
	ra, rb := h.Room(a), h.Room(b)
	if ra == nil || rb == nil || ra == rb {
		t.Fatalf("test game rooms not independently registered")
	}
	if ra.GroupID == rb.GroupID {
		t.Fatalf("test games share synthetic group %d", ra.GroupID)
	}
}
