package main // Entry point package

import (
	"context"
	"errors"
	"log" // Logging library
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/bus-ticket-reservation/internal/config"   // Internal config loader
	"github.com/iliyamo/bus-ticket-reservation/internal/database" // MySQL connection
	"github.com/iliyamo/bus-ticket-reservation/internal/handler"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/router" // Internal router setup
	"github.com/iliyamo/bus-ticket-reservation/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis backs the search cache and the booking rate limiter; both
	// degrade to pass-through when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	stations := repository.NewStationRepo(db)
	routes := repository.NewRouteRepo(db)
	trips := repository.NewTripRepo(db)
	bookings := repository.NewBookingRepo(db)
	store := repository.NewLedgerStore(db)

	stops := service.NewStopGraph(routes, cfg.Search.StopCacheSize, cfg.Search.StopCacheTTL)
	search := service.NewSearchService(trips, stops, cfg.Search)
	avail := service.NewAvailability(trips)
	events := queue.NewPublisher(cfg.RabbitURL)
	ledger := service.NewLedger(store, bookings, stops, events, cfg.BookingAttempts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunConsumer {
		go func() {
			if err := queue.NewConsumer(cfg.RabbitURL).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("booking consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, handler.Health(db)) // Register application routes
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e,
		handler.NewSearchHandler(search, avail, cfg.RequestTimeout),
		handler.NewReferenceHandler(stations, stops, cfg.RequestTimeout),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	router.RegisterBookings(e, handler.NewBookingHandler(ledger, cfg.RequestTimeout), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterPayments(e, handler.NewPaymentHandler(ledger, cfg.PaymentSecret, cfg.RequestTimeout))

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) { // Start HTTP server
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
