package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/coder/quartz"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/chipledger-services/configs"
	"github.com/avvvet/chipledger-services/internal/auth"
	"github.com/avvvet/chipledger-services/internal/comm"
	mongodb "github.com/avvvet/chipledger-services/internal/db"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/broker"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/db"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/handlers"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/service"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/store"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/table"
	"github.com/avvvet/chipledger-services/internal/nats"
)

const SERVICE_NAME = "ledger"

func main() {
	config.LoadEnv(SERVICE_NAME)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	instanceId, err := config.CreateUniqueInstance(SERVICE_NAME)
	if err != nil {
		log.Fatal(err)
	}
	config.Logging(SERVICE_NAME+"_service_"+instanceId[:8], cfg.LogLevel)

	sessionStore, playerStore, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer closeStore()
	log.Printf("%s store ready", cfg.StoreBackend)

	// Connect to NATS
	n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"-"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	b := broker.NewBroker(n.Conn)

	sessionService := service.NewSessionService(sessionStore, quartz.NewReal())
	tableService := service.NewTableService(sessionStore, playerStore,
		service.WithPublisher(b),
		service.WithParsePolicy(table.PolicyByName(cfg.ChipParse)),
		service.WithChipValue(cfg.ChipValue),
	)
	b.TableService = tableService

	// subscribe to socket service
	sub, err := b.Subscribe(n.Conn, comm.SocketSubject)
	if err != nil {
		log.Errorf("Error: unable to subscribe to %s %v", comm.SocketSubject, err)
		os.Exit(1)
	}

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(config.CORS(cfg.AllowedOrigins).Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	h := handlers.NewHandler(auth.New(cfg.JWTSecret), cfg.LedgerPort, sessionService, tableService)
	h.SetRoutes(r)

	server := &http.Server{
		Addr:         ":" + cfg.LedgerPort,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	if err := sub.Unsubscribe(); err != nil {
		log.Warnf("unsubscribe: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
		return
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

// openStore connects the configured backend and prepares its schema.
func openStore(cfg config.Config) (service.SessionStore, service.PlayerStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.StoreBackend {
	case "postgres":
		pool, err := db.Connect(cfg.PostgresURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			db.ClosePool()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return store.NewSessionStore(pool), store.NewPlayerStore(pool), db.ClosePool, nil
	case "mongo":
		database, err := mongodb.ConnectToDB(cfg.MongoURI)
		if err != nil {
			return nil, nil, nil, err
		}
		s := store.NewMongoStore(database)
		if err := s.EnsureIndexes(ctx); err != nil {
			mongodb.Disconnect(database)
			return nil, nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return s, s, func() { mongodb.Disconnect(database) }, nil
	default:
		s := store.NewMemoryStore()
		return s, s, func() {}, nil
	}
}
