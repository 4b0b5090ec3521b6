package config

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/gofrs/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Config is the environment both services run with.
type Config struct {
	LedgerPort     string
	SocketPort     string
	RateLimit      int // requests per IP per minute
	JWTSecret      string
	StoreBackend   string // postgres, mongo or memory
	PostgresURL    string
	MongoURI       string
	NatsURL        string
	NatsToken      string
	ChipValue      decimal.Decimal
	ChipParse      string // strict or lenient
	AllowedOrigins []string
	LogLevel       log.Level
}

// LoadEnv reads ./.env when present. A missing file is fine; the real
// environment always wins.
func LoadEnv(service string) {
	log.Infof("%s service configuration and env variables loading started ...", service)
	if err := godotenv.Load("./.env"); err != nil {
		log.Warnf("no .env file loaded: %s", err)
		return
	}
	log.Info(".env file loaded.")
}

// Load reads the Config from the environment.
func Load() (Config, error) {
	cfg := Config{
		LedgerPort:     getenv("LEDGER_SERVICE_PORT", "8080"),
		SocketPort:     getenv("SOCKET_SERVICE_PORT", "8081"),
		JWTSecret:      os.Getenv("JWT_SECRET_KEY"),
		StoreBackend:   strings.ToLower(getenv("STORE_BACKEND", "postgres")),
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		MongoURI:       os.Getenv("MONGODB_URI"),
		NatsURL:        os.Getenv("NATS_URL"),
		NatsToken:      os.Getenv("NATS_TOKEN"),
		ChipParse:      strings.ToLower(getenv("CHIP_PARSE", "strict")),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	rateLimit, err := strconv.Atoi(getenv("RATE_LIMIT", "100"))
	if err != nil || rateLimit <= 0 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT value %q", os.Getenv("RATE_LIMIT"))
	}
	cfg.RateLimit = rateLimit

	cfg.ChipValue, err = decimal.NewFromString(getenv("CHIP_VALUE", "1"))
	if err != nil || cfg.ChipValue.IsNegative() {
		return Config{}, fmt.Errorf("invalid CHIP_VALUE value %q", os.Getenv("CHIP_VALUE"))
	}

	cfg.LogLevel, err = log.ParseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	switch cfg.StoreBackend {
	case "postgres":
		if cfg.PostgresURL == "" {
			return Config{}, fmt.Errorf("POSTGRES_URL is required for the postgres backend")
		}
	case "mongo":
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGODB_URI is required for the mongo backend")
		}
	case "memory":
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.ChipParse {
	case "strict", "lenient":
	default:
		return Config{}, fmt.Errorf("unknown CHIP_PARSE %q", cfg.ChipParse)
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY is required")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func CreateUniqueInstance(service string) (string, error) {
	id, err := uuid.NewV4() // instance identifier
	if err != nil {
		return "", fmt.Errorf("error generating instanceId: %w", err)
	}
	log.Infof(service+" service with Instance ID: %s is ready", id)
	return id.String(), nil
}

func CORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})
}

// Logging sends the standard logger to .l_g/<service>.log at level.
func Logging(service string, level log.Level) {
	logFolder := ".l_g"

	if err := os.MkdirAll(logFolder, 0755); err != nil {
		log.Warnf("unable to create folder for log %s", err)
		return
	}

	logFilePath := filepath.Join(logFolder, service+".log")

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Warnf("Failed to open log file, logging to stderr: %s", err)
		return
	}

	log.SetOutput(file)
	log.SetFormatter(&log.TextFormatter{})
	log.SetLevel(level)

	log.Infof("log to file started for service: %s", service)
}

func CustomLoggerMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.WithFields(log.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"status":     ww.Status(),
					"duration":   time.Since(start),
				}).Infof("%s %s %s", r.Method, r.RequestURI, r.RemoteAddr)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
