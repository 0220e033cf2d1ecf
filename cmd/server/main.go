package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kh4rit/kh-domino-game/internal/config"
	"github.com/kh4rit/kh-domino-game/internal/httpapi"
	"github.com/kh4rit/kh-domino-game/internal/hub"
	"github.com/kh4rit/kh-domino-game/internal/messaging"
	"github.com/kh4rit/kh-domino-game/internal/room"
	"github.com/kh4rit/kh-domino-game/internal/store"
	"github.com/kh4rit/kh-domino-game/internal/ws"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		results room.ResultStore = store.Discard{}
		records httpapi.Records
	)
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		results = db
		records = db
	} else {
		log.Warn("DATABASE_URL not set, results will not be persisted")
	}

	gw := ws.NewGateway(log)
	notify := messaging.NewLogNotifier(log)

	h := hub.New(ctx, room.Options{
		MinPlayers:      cfg.MinPlayers,
		MaxPlayers:      cfg.MaxPlayers,
		GamesPerSession: cfg.GamesPerSession,
		LobbyTimeout:    cfg.LobbyTimeout,
		TurnTimeout:     cfg.TurnTimeout,
	}, room.Deps{
		Log:     log,
		Gateway: gw,
		Store:   results,
		Notify:  notify,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, gw, records, cfg.BotToken, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		h.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
