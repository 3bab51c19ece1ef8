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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/elonaire/templates-backend/internal/clients"
	"github.com/elonaire/templates-backend/internal/config"
	"github.com/elonaire/templates-backend/internal/gateway"
	"github.com/elonaire/templates-backend/internal/httpapi"
	"github.com/elonaire/templates-backend/internal/payments"
	"github.com/elonaire/templates-backend/pkg/logger"
)

func main() {
	log.Println("payments-service starting...")

	cfg := config.LoadPayments()
	slogger := logger.New("payments-service")

	if cfg.PaystackSecret == "" && cfg.Environment != "dev" {
		log.Fatal("PAYSTACK_SECRET is required outside dev")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoCtx, mongoCancel := context.WithTimeout(ctx, 10*time.Second)
	defer mongoCancel()
	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to mongo: %v", err)
	}
	if err := mongoClient.Ping(mongoCtx, nil); err != nil {
		log.Fatalf("Failed to ping mongo: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Mongo disconnect error: %v", err)
		}
	}()

	ledger := payments.NewMongoLedger(mongoClient.Database(cfg.MongoDBName))

	kafkaWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    payments.LedgerTopic,
		Balancer: &kafka.Hash{},
	}
	defer kafkaWriter.Close()

	publisher := payments.NewPublisher(ledger, kafkaWriter, 5*time.Second, slogger)
	go publisher.Run(ctx)

	gw := gateway.New(cfg.RequestTimeout)
	authClient := clients.NewAuthClient(gw, cfg.OauthService, cfg.ServiceUser, cfg.ServicePassword)
	ordersClient := clients.NewOrdersClient(gw, cfg.OrdersService)
	filesClient := clients.NewFilesClient(gw, cfg.FilesService)
	emailClient := clients.NewEmailClient(gw, cfg.EmailService)

	pipeline := payments.NewPipeline(authClient, ordersClient, filesClient, emailClient, ledger, slogger)
	provider := payments.NewProvider(cfg.PaystackBaseURL, cfg.PaystackSecret, cfg.RequestTimeout)

	handler := httpapi.NewPaymentsHandler(
		[]byte(cfg.PaystackSecret), cfg.Environment,
		pipeline, provider, authClient, slogger,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpapi.RequestLogger(slogger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Post("/payments/webhook", handler.Webhook)
	r.Post("/internal/payments/initiate", handler.Initiate)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: otelhttp.NewHandler(r, "payments-service"),
	}

	go func() {
		log.Printf("Payments service listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down payments-service...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("payments-service stopped")
}
