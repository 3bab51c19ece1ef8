package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/elonaire/templates-backend/internal/cart"
	"github.com/elonaire/templates-backend/internal/clients"
	"github.com/elonaire/templates-backend/internal/config"
	"github.com/elonaire/templates-backend/internal/db"
	"github.com/elonaire/templates-backend/internal/gateway"
	"github.com/elonaire/templates-backend/internal/httpapi"
	"github.com/elonaire/templates-backend/internal/identity"
	"github.com/elonaire/templates-backend/internal/orders"
	"github.com/elonaire/templates-backend/pkg/logger"
)

func main() {
	log.Println("orders-service starting...")

	cfg := config.LoadOrders()
	slogger := logger.New("orders-service")

	conn, err := db.ConnectPostgres(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(conn, cfg.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	gw := gateway.New(cfg.RequestTimeout)
	authClient := clients.NewAuthClient(gw, cfg.OauthService, "", "")
	productsClient := clients.NewProductsClient(gw, cfg.ProductsService)
	paymentsClient := clients.NewPaymentsClient(gw, cfg.PaymentsService)

	resolver := identity.NewResolver(
		identity.NewPostgresRepository(conn),
		identity.NewRedisCache(redisClient),
		slogger,
	)

	cartManager := cart.NewManager(
		cart.NewPostgresRepository(conn),
		resolver, authClient, productsClient, slogger,
	)
	orchestrator := orders.NewOrchestrator(
		orders.NewPostgresRepository(conn),
		cartManager, resolver, authClient, paymentsClient,
		cfg.ServiceSubject, slogger,
	)

	cartHandler := httpapi.NewCartHandler(cartManager)
	ordersHandler := httpapi.NewOrdersHandler(orchestrator)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpapi.RequestLogger(slogger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/cart", cartHandler.CreateOrUpdate)
		r.Get("/cart", cartHandler.Get)
		r.Post("/orders", ordersHandler.Create)
		r.Get("/orders", ordersHandler.List)
	})
	r.Route("/internal", func(r chi.Router) {
		r.Post("/orders/update", ordersHandler.Update)
		r.Get("/orders/{order_id}/artifacts", ordersHandler.Artifacts)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: otelhttp.NewHandler(r, "orders-service"),
	}

	go func() {
		log.Printf("Orders service listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down orders-service...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("orders-service stopped")
}
