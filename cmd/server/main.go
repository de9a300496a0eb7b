// Command server wires the credential subsystem into an HTTP service:
// config from the environment, PostgreSQL or in-memory stores, Redis or
// in-memory grants, optional Kafka security-event publishing, graceful
// shutdown. Business logic lives in the internal service packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/platform/config"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/platform/httpserver"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/platform/logger"
	platformredis "github.com/randeepajayasekara/HealthSphere-sub000/internal/platform/redis"
	httptransport "github.com/randeepajayasekara/HealthSphere-sub000/internal/transport/http"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/credential"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/grant"
	umidhandler "github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/handler"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/identity"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/ledger"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/metrics"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/secrets"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/stafftoken"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	keeper, err := secrets.NewKeeper(cfg.MasterKey)
	if err != nil {
		log.Error("invalid master key", "error", err)
		os.Exit(1)
	}

	var (
		identityStore identity.Store = identity.NewInMemory()
		ledgerStore   ledger.Store   = ledger.NewInMemory()
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(context.Background()); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		identityStore = identity.NewPostgres(db)
		ledgerStore = ledger.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var grantStore grant.Store = grant.NewInMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		grantStore = grant.NewRedis(redisClient.Client)
		log.Info("using redis grant store")
	} else {
		log.Warn("REDIS_URL not set, using in-memory grant store")
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	var ledgerOpts []ledger.Option
	ledgerOpts = append(ledgerOpts, ledger.WithLogger(log))
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.KafkaBrokers...),
			kgo.DefaultProduceTopic(cfg.KafkaTopic),
		)
		if err != nil {
			log.Error("failed to create kafka client", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		publisher, err := ledger.NewPublisher(kafkaClient, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("failed to create security event publisher", "error", err)
			os.Exit(1)
		}
		sink := make(chan models.AccessLogEntry, 1024)
		ledgerOpts = append(ledgerOpts, ledger.WithEventSink(sink))
		go func() {
			if err := ledger.NewWorker(publisher, sink).Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("security event worker stopped", "error", err)
			}
		}()
		log.Info("publishing security events", "topic", cfg.KafkaTopic)
	}

	ledgerSvc, err := ledger.New(ledgerStore, ledgerOpts...)
	if err != nil {
		log.Error("failed to build ledger service", "error", err)
		os.Exit(1)
	}

	credentialSvc, err := credential.New(identityStore, ledgerSvc, keeper, grantStore,
		credential.WithLogger(log),
		credential.WithMetrics(metrics.New()),
		credential.WithGrantTTL(cfg.GrantTTL),
		credential.WithSingleActiveIdentity(cfg.SingleActiveIdentity),
	)
	if err != nil {
		log.Error("failed to build credential service", "error", err)
		os.Exit(1)
	}

	staffTokens := stafftoken.NewJWTService(cfg.JWTSigningKey, "healthsphere-umid", "umid-admin")

	router := httptransport.NewRouter(httptransport.Deps{
		Credentials:    umidhandler.New(credentialSvc, log),
		StaffValidator: staffTokens,
		Logger:         log,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting umid credential service", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	stopWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
