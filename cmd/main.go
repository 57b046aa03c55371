package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/cart"
	"github.com/fjod/go_cart/marketplace-client/internal/checkout"
	"github.com/fjod/go_cart/marketplace-client/internal/config"
	"github.com/fjod/go_cart/marketplace-client/internal/events"
	h "github.com/fjod/go_cart/marketplace-client/internal/http"
	"github.com/fjod/go_cart/marketplace-client/internal/orders"
	"github.com/fjod/go_cart/marketplace-client/internal/receipt"
	"github.com/fjod/go_cart/marketplace-client/internal/remote"
	"github.com/fjod/go_cart/marketplace-client/internal/session"
	"github.com/fjod/go_cart/marketplace-client/internal/store"
	"github.com/fjod/go_cart/marketplace-client/internal/wishlist"
	"github.com/fjod/go_cart/marketplace-client/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	cfg := config.Load()
	log := logger.New("marketplace-client", cfg.LogLevel)
	slog.SetDefault(log)

	// W3C trace context on inbound requests and outbound API calls
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	kv, err := store.Open(ctx, store.Options{
		Driver:        cfg.StoreDriver,
		SQLitePath:    cfg.SQLitePath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		log.Error("failed to open local store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	sessions := session.NewManager(ctx, kv, log)

	api := remote.New(remote.Config{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		RateLimit: cfg.APIRateLimit,
		RateBurst: cfg.APIRateBurst,
		Breaker:   cfg.Breaker(),
	}, sessions, log)

	cartLedger := cart.NewLedger(ctx, kv, log)
	wishlistLedger := wishlist.NewLedger(api, log)
	history := orders.NewHistoryCache(ctx, api, kv, log)

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaTopic, log, cfg.KafkaBrokers...)
		kp.Start(ctx)
		defer kp.Close()
		publisher = kp
	}

	orch := checkout.New(checkout.Config{
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
		Pricing: checkout.Pricing{
			FreeShippingThreshold: cfg.FreeShippingThreshold,
			ShippingFee:           cfg.ShippingFee,
		},
	}, api, cartLedger, history, sessions, publisher, log)

	// per-user state does not survive a sign out; the cart does
	sessions.OnLogout(func(context.Context) { orch.Cancel() })
	sessions.OnLogout(func(context.Context) { wishlistLedger.Clear() })
	sessions.OnLogout(func(context.Context) { history.Clear() })

	router := h.NewRouter(h.RouterConfig{
		AllowedOrigins:     cfg.AllowedOrigins,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, h.Handlers{
		Cart:      h.NewCartHandler(cartLedger, cfg.MaxRequestBodySize),
		Wishlist:  h.NewWishlistHandler(wishlistLedger, cfg.RequestTimeout, cfg.MaxRequestBodySize),
		Orders:    h.NewOrdersHandler(history, receipt.NewRenderer(cfg.ReceiptBrand), cfg.RequestTimeout, log),
		Checkout:  h.NewCheckoutHandler(orch, cfg.RequestTimeout, cfg.MaxRequestBodySize, allowOrigins(cfg.AllowedOrigins), log),
		Dashboard: h.NewDashboardHandler(api, cfg.RequestTimeout),
		Session:   h.NewSessionHandler(sessions, cfg.MaxRequestBodySize),
	}, sessions, api, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("marketplace gateway starting", "port", cfg.HTTPPort, "api", cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	orch.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	stop()

	log.Info("server exited")
}

func allowOrigins(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
