package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/ZBugge/nfl-playoff-predictor/internal/analytics"
	"github.com/ZBugge/nfl-playoff-predictor/internal/auth"
	"github.com/ZBugge/nfl-playoff-predictor/internal/config"
	"github.com/ZBugge/nfl-playoff-predictor/internal/dal"
	grpcserver "github.com/ZBugge/nfl-playoff-predictor/internal/grpc"
	"github.com/ZBugge/nfl-playoff-predictor/internal/handlers"
	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
	"github.com/ZBugge/nfl-playoff-predictor/internal/metrics"
	"github.com/ZBugge/nfl-playoff-predictor/internal/mocks"
	"github.com/ZBugge/nfl-playoff-predictor/internal/playoffs"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
	"github.com/ZBugge/nfl-playoff-predictor/internal/scores"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize logger first
	logger.Init()

	cfg, err := config.Load(".env")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Info("Starting NFL playoff predictor", "environment", cfg.Environment, "gate", cfg.GatePolicy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg)
	defer store.Close()

	if cfg.SeedDemo {
		seeded, err := dal.SeedDemo(ctx, store, cfg.ScoresSeason)
		if err != nil {
			logger.Error("Failed to seed demo data", "error", err)
			log.Fatalf("Failed to seed demo data: %v", err)
		}
		if seeded {
			logger.Info("Seeded demo playoff field", "season", cfg.ScoresSeason)
		}
	}

	// Embedded NATS in development, real NATS JetStream in production
	var upstream pubsub.Upstream
	if cfg.IsDevelopment() {
		logger.Info("Starting embedded NATS server for local development")
		opts := pubsub.DefaultEmbeddedNATSOptions()
		opts.Subject = cfg.NATSSubject
		embedded, err := pubsub.NewEmbeddedNATSPubSub(opts)
		if err != nil {
			logger.Error("Failed to initialize embedded NATS", "error", err)
			log.Fatalf("Failed to initialize embedded NATS: %v", err)
		}
		logger.Info("Embedded NATS server ready", "url", embedded.ServerURL())
		upstream = embedded
	} else {
		natsPubSub, err := pubsub.NewNATSPubSub(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Error("Failed to initialize NATS", "error", err)
			log.Fatalf("Failed to initialize NATS: %v", err)
		}
		logger.Info("Connected to NATS", "url", cfg.NATSURL)
		upstream = natsPubSub
	}
	bus := pubsub.NewWithUpstream(upstream)
	defer bus.Close()

	// Mock ClickHouse in development
	var audit analytics.Sink
	if cfg.IsDevelopment() {
		logger.Info("Using mock ClickHouse for local development (no ClickHouse server required)")
		audit = mocks.NewMockAnalytics()
	} else {
		client, err := analytics.NewClient(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePassword)
		if err != nil {
			logger.Error("Failed to initialize ClickHouse", "error", err, "address", cfg.ClickHouseAddr)
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		if err := client.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to create ClickHouse schema", "error", err)
			log.Fatalf("Failed to create ClickHouse schema: %v", err)
		}
		logger.Info("Connected to ClickHouse", "address", cfg.ClickHouseAddr, "database", cfg.ClickHouseDB)
		audit = client
	}
	defer audit.Close()

	guard := auth.NewGuard(newAuthProvider(cfg), cfg.AdminGroups)
	rec := metrics.NewRecorder()

	svc := playoffs.New(store, playoffs.Options{
		Gate:      cfg.GatePolicy,
		Weights:   cfg.Weights,
		Publisher: bus,
		Audit:     audit,
		Metrics:   rec,
	})

	checks := map[string]handlers.Check{"database": store.Ping}

	if cfg.ScoresEnabled {
		provider := scores.NewRetryingProvider(scores.NewESPNProvider(cfg.ScoresURL, nil), 0, 0)
		poller := scores.NewPoller(provider, svc, rec, cfg.ScoresSeason, cfg.ScoresInterval)
		poller.Start(ctx)
		defer poller.Stop()
		checks["scores"] = poller.Check
		logger.Info("Score feed enabled", "url", cfg.ScoresURL, "season", cfg.ScoresSeason)
	} else {
		logger.Info("Score feed disabled, winners are entered by admins")
	}

	// gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(guard.UnaryInterceptor(grpcserver.AdminMethods...)))
	grpcserver.RegisterBracketServiceServer(grpcServer, grpcserver.NewServer(svc, bus))
	go func() {
		lis, err := net.Listen("tcp", "0.0.0.0:"+cfg.GRPCPort)
		if err != nil {
			logger.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPCPort)
			log.Fatalf("Failed to listen for gRPC: %v", err)
		}
		logger.Info("gRPC server starting", "address", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
		}
	}()

	// Metrics server
	metricsServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.MetricsPort,
		Handler:           rec.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go serve(metricsServer, "metrics")

	// API server
	server := &http.Server{
		Addr: "0.0.0.0:" + cfg.Port,
		Handler: handlers.NewRouter(handlers.RouterConfig{
			API:     handlers.NewAPIHandlers(svc, bus),
			Guard:   guard,
			Metrics: rec,
			Checks:  checks,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go serve(server, "api")

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
}

func serve(srv *http.Server, name string) {
	logger.Info("Server starting", "server", name, "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "server", name, "error", err)
		log.Fatal(err)
	}
}

func openStore(cfg *config.Config) dal.PlayoffDAL {
	switch cfg.DBDriver {
	case "sqlite":
		store, err := dal.NewSQLiteDAL(cfg.SQLiteFile)
		if err != nil {
			logger.Error("Failed to initialize SQLite", "error", err)
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		logger.Info("Connected to SQLite database", "file", cfg.SQLiteFile)
		return store
	case "postgres":
		if cfg.DatabaseURL == "" {
			store, err := mocks.NewMockPostgresDAL(cfg.SQLiteFile)
			if err != nil {
				logger.Error("Failed to initialize mock Postgres", "error", err)
				log.Fatalf("Failed to initialize mock Postgres: %v", err)
			}
			return store
		}
		store, err := dal.NewPostgresDAL(cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to initialize Postgres", "error", err)
			log.Fatalf("Failed to initialize Postgres: %v", err)
		}
		logger.Info("Connected to Postgres database")
		return store
	default:
		logger.Info("Using in-memory data store")
		return dal.NewMemoryDAL()
	}
}

// newAuthProvider uses mock auth in development and Authentik OAuth2 otherwise
func newAuthProvider(cfg *config.Config) auth.AuthProvider {
	if cfg.IsDevelopment() {
		mock := auth.NewMockAuth()
		logger.Info("Issued development admin token", "token", mock.IssueToken(nil))
		return mock
	}
	logger.Info("Using Authentik", "url", cfg.AuthentikBaseURL)
	return auth.NewAuthentikAuth(&auth.AuthentikConfig{
		BaseURL:      cfg.AuthentikBaseURL,
		ClientID:     cfg.AuthentikClientID,
		ClientSecret: cfg.AuthentikClientSecret,
		RedirectURL:  cfg.AuthentikRedirectURL,
		Scopes:       []string{"openid", "profile", "email"},
	})
}
