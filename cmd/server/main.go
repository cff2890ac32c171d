package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-stock-reservation/internal/checkout"
	"github.com/iliyamo/pos-stock-reservation/internal/config"
	"github.com/iliyamo/pos-stock-reservation/internal/database"
	"github.com/iliyamo/pos-stock-reservation/internal/handler"
	"github.com/iliyamo/pos-stock-reservation/internal/middleware"
	"github.com/iliyamo/pos-stock-reservation/internal/queue"
	"github.com/iliyamo/pos-stock-reservation/internal/reclaim"
	"github.com/iliyamo/pos-stock-reservation/internal/repository"
	"github.com/iliyamo/pos-stock-reservation/internal/reservation"
	"github.com/iliyamo/pos-stock-reservation/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env vars directly

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	st := repository.NewStore(db)
	mgr := reservation.NewManager(st)
	coord := checkout.NewCoordinator(st)

	// The reclaimer is the backstop for sessions that never say goodbye.
	rec := reclaim.New(st, mgr, cfg.ExpiryThreshold, cfg.SweepInterval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	// Movement audit consumer; reconnects on its own, never returns.
	go func() {
		if err := queue.StartMovementConsumer(); err != nil {
			log.Printf("movement consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient() // may be nil; limiter and cache degrade gracefully
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and availability cache disabled")
	}

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	sessionH := handler.NewSessionHandler(mgr, cfg)
	stockH := handler.NewStockHandler(mgr, st, rdb)
	pairH := handler.NewPairHandler(mgr)
	scanH := handler.NewScanHandler(st, cfg.ScanDebounce)
	checkoutH := handler.NewCheckoutHandler(coord, mgr)

	router.RegisterRoutes(e, sessionH)
	router.RegisterSession(e, cfg.JWTSecret, sessionH, stockH, pairH, scanH, checkoutH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
