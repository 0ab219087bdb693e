package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/attendly/ticketing/internal/checkout"
	"github.com/attendly/ticketing/internal/clock"
	"github.com/attendly/ticketing/internal/config"
	"github.com/attendly/ticketing/internal/database"
	"github.com/attendly/ticketing/internal/handler"
	"github.com/attendly/ticketing/internal/hold"
	"github.com/attendly/ticketing/internal/inventory"
	appmw "github.com/attendly/ticketing/internal/middleware"
	"github.com/attendly/ticketing/internal/payment"
	"github.com/attendly/ticketing/internal/queue"
	"github.com/attendly/ticketing/internal/repository"
	"github.com/attendly/ticketing/internal/router"
	queue_publisher "github.com/attendly/ticketing/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)
	reviews := repository.NewReviewRepo(db)
	commission := repository.NewCommissionRepo(db)
	stats := repository.NewStatsRepo(db)

	// Warm the in-memory ledger from the catalog so holds can be taken
	// against live availability immediately.
	ledger := inventory.NewLedger()
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		counts, err := events.TierAvailability(ctx)
		cancel()
		if err != nil {
			log.Fatalf("warm ledger: %v", err)
		}
		for tierID, c := range counts {
			ledger.Register(tierID, c[0], c[1])
		}
		log.Printf("ledger warmed with %d tiers", len(counts))
	}

	clk := clock.Real{}
	holds := hold.NewManager(ledger, clk, cfg.HoldTTL, cfg.MaxTicketsPerOrder)
	processor := &payment.Simulated{
		MinDelay:    cfg.PaymentMinDelay,
		MaxDelay:    cfg.PaymentMaxDelay,
		DeclineRate: cfg.PaymentDeclineRate,
	}
	notifier := &queue_publisher.BookingNotifier{}
	checkoutSvc := checkout.NewService(holds, ledger, events, bookings, notifier, processor, clk)

	// The consumers own their reconnect loops and only log failures.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartEmailConsumer(); err != nil {
			log.Printf("email consumer stopped: %v", err)
		}
	}()

	// Redis is optional: when it is unreachable the limiter and the
	// response cache both degrade to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}
	limiter := appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := appmw.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	h := router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, tokens),
		Public:    &handler.PublicHandler{Events: events, Reviews: reviews},
		Organizer: &handler.OrganizerHandler{Events: events, Bookings: bookings},
		Admin: &handler.AdminHandler{
			Events: events, Bookings: bookings, Reviews: reviews,
			Users: users, Commission: commission, Stats: stats, Ledger: ledger,
		},
		Checkout: &handler.CheckoutHandler{Checkout: checkoutSvc},
		Bookings: &handler.BookingHandler{Bookings: bookings},
		Reviews:  &handler.ReviewHandler{Reviews: reviews, Events: events},
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, h.Auth, cfg.JWTSecret)
	router.RegisterPublic(e, h.Public, cache)
	router.RegisterCheckout(e, h, cfg.JWTSecret, limiter)
	router.RegisterOrganizer(e, h.Organizer, cfg.JWTSecret)
	router.RegisterAdmin(e, h.Admin, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, hold_ttl=%s)", addr, cfg.Env, cfg.HoldTTL)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
