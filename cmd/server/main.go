package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/devaloi/chatterbox-cleaner/internal/bot"
	"github.com/devaloi/chatterbox-cleaner/internal/cleaner"
	"github.com/devaloi/chatterbox-cleaner/internal/config"
	"github.com/devaloi/chatterbox-cleaner/internal/handler"
	"github.com/devaloi/chatterbox-cleaner/internal/hub"
	"github.com/devaloi/chatterbox-cleaner/internal/middleware"
	"github.com/devaloi/chatterbox-cleaner/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	s, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer s.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, err := cleaner.New(cfg.CleanerLimit, cleaner.WithMetrics(cleaner.MustNewMetrics(reg)))
	if err != nil {
		log.Fatalf("cleaner: %v", err)
	}

	h := hub.New(s, cfg.MaxRooms, cfg.MaxHistory)
	b := bot.New(cfg.BotName, h, bot.CleanerMiddleware(c, hub.NewTransport(h, cfg.BotName)))
	h.OnMessage(b)
	go h.Run()
	defer h.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handler.Health())
	mux.HandleFunc("GET /api/rooms", handler.ListRooms(h, c))
	mux.HandleFunc("GET /api/rooms/{name}", handler.RoomInfo(h, c))
	mux.HandleFunc("GET /api/rooms/{name}/tracked", handler.Tracked(c))
	mux.Handle("/metrics", handler.Metrics(reg))
	mux.HandleFunc("/ws", handler.ServeWS(h, cfg.BotName))
	mux.Handle("/", http.FileServer(http.Dir("static")))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: middleware.Logging(middleware.CORS(mux)),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("chatterbox listening on %s (%s, cleaner limit %d)", srv.Addr, cfg.BotName, c.Limit())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("server error: %v", err)
	}
	log.Printf("chatterbox stopped")
}
