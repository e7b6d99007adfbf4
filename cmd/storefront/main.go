package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/cache"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/config"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/database"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/events"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/handler"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/mw"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/service"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/worker"
)

func main() {
	cfg := config.New()

	db, err := database.NewDB(cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(db)

	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}

	rdb, err := cache.New(context.Background(), cfg.RedisAddr)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	producer, err := events.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("failed to connect to kafka", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	// Services
	authSvc := service.NewAuthService(db)
	catalogSvc := service.NewCatalogService(db, rdb)
	cartSvc := service.NewCartService(db)
	gateway := service.NewSnapClient(cfg)
	orderSvc := service.NewOrderService(db, gateway, producer, cfg.PaymentTimeout)
	notificationSvc := service.NewNotificationService(db, cfg.ServerKey, producer)

	// Worker
	expiryWorker := worker.NewExpiryWorker(orderSvc, cfg.SweepInterval, cfg.SweepBatchSize)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Post("/api/user/register", handler.RegisterHandler(authSvc, cfg.JWTSecret))
	r.Post("/api/user/login", handler.LoginHandler(authSvc, cfg.JWTSecret))
	r.Get("/api/products", handler.ListProductsHandler(catalogSvc))
	r.Get("/api/products/{id}", handler.GetProductHandler(catalogSvc))

	// Provider webhook; the signature key is the authentication.
	r.Post("/api/payments/notification", handler.NotificationHandler(notificationSvc))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/api/cart", handler.GetCartHandler(cartSvc))
		r.Post("/api/cart", handler.PutCartHandler(cartSvc))
		r.Delete("/api/cart/{productID}", handler.RemoveCartItemHandler(cartSvc))

		r.Post("/api/orders", handler.CheckoutHandler(orderSvc))
		r.Get("/api/orders", handler.ListOrdersHandler(orderSvc))
		r.Get("/api/orders/{number}", handler.GetOrderHandler(orderSvc))
		r.Get("/api/orders/{number}/status", handler.GetPaymentStatusHandler(orderSvc))
		r.Post("/api/orders/{number}/pay", handler.PayOrderHandler(orderSvc))
		r.Post("/api/orders/{number}/cancel", handler.CancelOrderHandler(orderSvc))
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go expiryWorker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress, "environment", cfg.Environment)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop worker
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
