package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/playmatatu/pinball/internal/api"
	"github.com/playmatatu/pinball/internal/config"
	"github.com/playmatatu/pinball/internal/pinball"
	"github.com/playmatatu/pinball/internal/redis"
	"github.com/playmatatu/pinball/internal/sim"
	"github.com/playmatatu/pinball/internal/ws"
)

func main() {
	// Initialize configuration (loads .env if present)
	cfg := config.Load()

	opts, err := cfg.SessionOptions()
	if err != nil {
		log.Fatalf("Invalid pinball tuning: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Game events go to the log always, and to websocket clients either
	// directly or through redis when it is configured.
	var hub *ws.Hub
	var rdb *goredis.Client
	notifiers := pinball.MultiNotifier{pinball.LogNotifier{Verbose: cfg.Debug}}

	if cfg.RedisURL != "" {
		rdb, err = redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Printf("[REDIS] Publishing game events to %s", cfg.EventsChannel)
		publisher := redis.NewEventPublisher(rdb, cfg.EventsChannel, cfg.EventsQueueSize)
		publisher.Start(ctx)
		notifiers = append(notifiers, publisher)
	} else {
		log.Println("[REDIS] REDIS_URL not set; events go straight to websocket clients")
		notifiers = append(notifiers, pinball.NotifierFunc(func(ev pinball.GameEvent) { hub.Notify(ev) }))
	}

	simOpts := sim.DefaultOptions()
	simOpts.Debug = cfg.Debug
	engine := sim.New(simOpts)
	session, err := pinball.NewSession(engine, opts, notifiers)
	if err != nil {
		log.Fatalf("Failed to build pinball session: %v", err)
	}

	hub = ws.NewHub(session)
	go hub.Run(ctx)
	if rdb != nil {
		ws.StartEventRelay(ctx, rdb, cfg.EventsChannel, hub)
	}

	runner := pinball.NewRunner(session, cfg.BroadcastEvery)
	runner.Observe(hub.BroadcastSnapshot)
	runner.Start(ctx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, session, hub, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		log.Printf("Starting pinball server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
