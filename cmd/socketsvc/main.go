package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/chipledger-services/configs"
	"github.com/avvvet/chipledger-services/internal/auth"
	"github.com/avvvet/chipledger-services/internal/comm"
	"github.com/avvvet/chipledger-services/internal/nats"
	"github.com/avvvet/chipledger-services/internal/socketsvc/broker"
	"github.com/avvvet/chipledger-services/internal/socketsvc/handlers"
	"github.com/avvvet/chipledger-services/internal/socketsvc/routes"
	"github.com/avvvet/chipledger-services/internal/socketsvc/ws"
)

const SERVICE_NAME = "socket"

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

	// Connect to NATS
	n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"-"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(config.CORS(cfg.AllowedOrigins).Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	s := ws.NewWs()
	b := broker.NewBroker(n.Conn, s)
	s.Broker = b

	h := handlers.NewHandler(s, cfg.SocketPort, cfg.AllowedOrigins)
	routes.SetRoutes(r, h, auth.New(cfg.JWTSecret))

	// subscribe to ledger service
	sub, err := b.Subscribe(comm.LedgerSubject)
	if err != nil {
		log.Errorf("Error: unable to subscribe to %s %v", comm.LedgerSubject, err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:        ":" + cfg.SocketPort,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

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
