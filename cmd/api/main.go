package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/quantumleap-finance/staking-service/internal/config"
	"github.com/quantumleap-finance/staking-service/internal/directory"
	"github.com/quantumleap-finance/staking-service/internal/events"
	eventskafka "github.com/quantumleap-finance/staking-service/internal/events/kafka"
	"github.com/quantumleap-finance/staking-service/internal/handler"
	"github.com/quantumleap-finance/staking-service/internal/middleware"
	"github.com/quantumleap-finance/staking-service/internal/scheduler"
	"github.com/quantumleap-finance/staking-service/internal/service"
	"github.com/quantumleap-finance/staking-service/internal/session"
	"github.com/quantumleap-finance/staking-service/internal/settlement"
	emailutil "github.com/quantumleap-finance/staking-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	plan, err := cfg.StakingPlan()
	if err != nil {
		logger.Fatalf("Failed to load staking plan: %v", err)
	}
	initial, err := cfg.InitialBalance()
	if err != nil {
		logger.Fatalf("Failed to load starting balance: %v", err)
	}

	// Initialize the account directory
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	dir := directory.NewPostgresDirectory(db)

	// Event publisher: Kafka when brokers are configured, no-op otherwise
	var publisher events.Publisher = events.NoopPublisher{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafkaPublisher := eventskafka.NewPublisher(brokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Infof("Publishing ledger events to %v", brokers)
	}

	// Email notifications are optional
	var mailer *emailutil.Sender
	if cfg.SMTPHost != "" {
		mailer = emailutil.NewSender(cfg, logger)
	}

	// Initialize layers
	sessions := session.NewManager(cfg.JWTSecret, plan, initial)
	verifier := settlement.NewExplorerClient(cfg.ExplorerURL, logger)
	broadcaster := settlement.NewGatewayClient(cfg.GatewayURL, logger)
	svc := service.NewService(dir, sessions, verifier, broadcaster, publisher, cfg.KafkaTopic, mailer, logger)
	h := handler.NewHandler(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartWorker(ctx)

	// Scheduled dividend sync
	sched, err := scheduler.New(cfg.DividendSyncSpec, svc, logger)
	if err != nil {
		logger.Fatalf("Failed to set up scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/logout", h.Logout).Methods("POST")
	authRouter.HandleFunc("/summary", h.Summary).Methods("GET")
	authRouter.HandleFunc("/wallet/deposit", h.Deposit).Methods("POST")
	authRouter.HandleFunc("/wallet/withdraw", h.Withdraw).Methods("POST")
	authRouter.HandleFunc("/settlements/callback", h.SettlementCallback).Methods("POST")
	authRouter.HandleFunc("/stakes", h.OpenStake).Methods("POST")
	authRouter.HandleFunc("/stakes", h.ListStakes).Methods("GET")
	authRouter.HandleFunc("/stakes/sync", h.SyncDividends).Methods("POST")
	if cfg.EnableStakeRelease {
		authRouter.HandleFunc("/stakes/{id}/release", h.ReleaseStake).Methods("POST")
	}
	authRouter.HandleFunc("/transactions", h.Transactions).Methods("GET")
	authRouter.HandleFunc("/portfolio/history", h.PortfolioHistory).Methods("GET")
	authRouter.HandleFunc("/statements/export", h.ExportStatement).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
