package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all runtime settings. Values come from the environment,
// optionally seeded from a .env file.
type Config struct {
	Addr        string
	DatabaseURL string
	BotToken    string

	MinPlayers      int
	MaxPlayers      int
	GamesPerSession int

	LobbyTimeout time.Duration
	TurnTimeout  time.Duration
}

func Load() Config {
	_ = godotenv.Load() // missing .env is fine

	return Config{
		Addr:            getenv("ADDR", ":8080"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		BotToken:        getenv("BOT_TOKEN", ""),
		MinPlayers:      getint("MIN_PLAYERS", 3),
		MaxPlayers:      getint("MAX_PLAYERS", 5),
		GamesPerSession: getint("GAMES_PER_SESSION", 2),
		LobbyTimeout:    time.Duration(getint("LOBBY_TIMEOUT_SEC", 60)) * time.Second,
		TurnTimeout:     time.Duration(getint("TURN_TIMEOUT_SEC", 60)) * time.Second,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
