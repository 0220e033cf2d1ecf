package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kh4rit/kh-domino-game/internal/auth"
	"github.com/kh4rit/kh-domino-game/internal/hub"
	"github.com/kh4rit/kh-domino-game/internal/ws"
)

// SetupRoutes builds the HTTP surface. rec may be nil when the server runs
// without a database; the leaderboard route then reports unavailable.
func SetupRoutes(h *hub.Hub, gw *ws.Gateway, rec Records, botToken string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/ws/{gameID}/{playerID}", ws.Handler(gw, h, log))

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(botToken))

		r.Post("/test/create", CreateTestGame(h, log))

		r.Route("/lobby", func(r chi.Router) {
			r.Post("/create", CreateLobby(h, rec, log))
			r.Post("/join", JoinLobby(h, rec, log))
			r.Post("/start", StartLobby(h))
		})

		r.Route("/game/{gameID}", func(r chi.Router) {
			r.Get("/", GetGame(h))
			r.Get("/moves", GetMoves(h))
			r.Post("/move", PostMove(h))
			r.Post("/pass", PostPass(h))
			r.Post("/draw", PostDraw(h))
		})

		r.Get("/leaderboard/{groupID}", leaderboardRoute(rec))
	})

	return r
}

func leaderboardRoute(rec Records) http.HandlerFunc {
	if rec == nil {
		return func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
		}
	}
	return GetLeaderboard(rec)
}
