// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Postgres holds the connection settings for a service database.
type Postgres struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Orders configures the orders service (carts, checkout, internal order RPC).
type Orders struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	DB            Postgres
	RedisAddr     string
	RedisPassword string

	OauthService    string
	ProductsService string
	PaymentsService string

	// Subject of the service account; requests authenticated as this subject
	// may update any order (webhook settlement path).
	ServiceSubject string
}

// Payments configures the payments service (initiation, webhook, settlement).
type Payments struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	MongoURI     string
	MongoDBName  string
	KafkaBrokers []string

	OauthService  string
	OrdersService string
	FilesService  string
	EmailService  string

	PaystackSecret  string
	PaystackBaseURL string

	// Environment is "production" unless set otherwise. Webhook signature
	// verification is skipped only when this is exactly "dev".
	Environment string

	ServiceUser     string
	ServicePassword string
}

func LoadOrders() *Orders {
	return &Orders{
		HTTPPort:        getEnv("ORDERS_HTTP_PORT", "8081"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DB: Postgres{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnvInt("POSTGRES_PORT", 5432),
			User:              getEnv("POSTGRES_USER", "postgres"),
			Password:          getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:            getEnv("POSTGRES_DB", "ordersdb"),
			MigrationsDirPath: getEnv("MIGRATIONS_DIR", "migrations"),
		},
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		OauthService:    getEnv("OAUTH_SERVICE", "http://localhost:8082"),
		ProductsService: getEnv("PRODUCTS_SERVICE", "http://localhost:8083"),
		PaymentsService: getEnv("PAYMENTS_SERVICE", "http://localhost:8084"),
		ServiceSubject:  getEnv("SERVICE_SUBJECT", "service@templates"),
	}
}

func LoadPayments() *Payments {
	return &Payments{
		HTTPPort:        getEnv("PAYMENTS_HTTP_PORT", "8084"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "paymentsdb"),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OauthService:    getEnv("OAUTH_SERVICE", "http://localhost:8082"),
		OrdersService:   getEnv("ORDERS_SERVICE", "http://localhost:8081"),
		FilesService:    getEnv("FILES_SERVICE", "http://localhost:8085"),
		EmailService:    getEnv("EMAIL_SERVICE", "http://localhost:8086"),
		PaystackSecret:  getEnv("PAYSTACK_SECRET", ""),
		PaystackBaseURL: getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		Environment:     getEnv("APP_ENV", "production"),
		ServiceUser:     getEnv("SERVICE_USER", ""),
		ServicePassword: getEnv("SERVICE_PASSWORD", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
