package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ADDR", "DATABASE_URL", "BOT_TOKEN", "MIN_PLAYERS", "MAX_PLAYERS",
		"GAMES_PER_SESSION", "LOBBY_TIMEOUT_SEC", "TURN_TIMEOUT_SEC",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("addr %q", cfg.Addr)
	}
	if cfg.MinPlayers != 3 || cfg.MaxPlayers != 5 || cfg.GamesPerSession != 2 {
		t.Fatalf("game settings %+v", cfg)
	}
	if cfg.LobbyTimeout != 60*time.Second || cfg.TurnTimeout != 60*time.Second {
		t.Fatalf("timeouts %v %v", cfg.LobbyTimeout, cfg.TurnTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("MIN_PLAYERS", "4")
	t.Setenv("TURN_TIMEOUT_SEC", "15")
	t.Setenv("GAMES_PER_SESSION", "not-a-number")

	cfg := Load()
	if cfg.Addr != ":9090" || cfg.MinPlayers != 4 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.TurnTimeout != 15*time.Second {
		t.Fatalf("turn timeout %v", cfg.TurnTimeout)
	}
	if cfg.GamesPerSession != 2 {
		t.Fatalf("bad integer should fall back to default, got %d", cfg.GamesPerSession)
	}
}
