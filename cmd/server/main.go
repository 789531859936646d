package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access/gate"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/approval"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/audit"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/enforce"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/gateway"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/config"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/db"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/httpserver"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/logger"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/metrics"
	platformredis "github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/redis"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/punish"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/sweeper"
	httptransport "github.com/viniciuscfreitas/primeleague18-sub003/internal/transport/http"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/trust"
)

// main wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		records     access.Store
		punishments punish.Store
	)
	conn, err := db.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if conn != nil {
		defer conn.Close()
		accessPG := access.NewPostgres(conn)
		punishPG := punish.NewPostgres(conn)
		if err := accessPG.EnsureSchema(ctx); err != nil {
			log.Error("access schema setup failed", "error", err)
			os.Exit(1)
		}
		if err := punishPG.EnsureSchema(ctx); err != nil {
			log.Error("punishment schema setup failed", "error", err)
			os.Exit(1)
		}
		records, punishments = accessPG, punishPG
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		records, punishments = access.NewInMemoryStore(), punish.NewInMemoryStore()
	}

	// Dispatch claims: shared via redis when configured.
	var claims trust.ClaimStore = trust.NewInMemoryClaimStore()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		claims = trust.NewRedisClaimStore(redisClient.Client)
	}

	// Audit trail: always the in-memory store, plus kafka when configured.
	auditStore := audit.NewInMemoryStore()
	sinks := []audit.Sink{auditStore}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka audit sink setup failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	auditor := audit.NewPublisher(sinks, audit.WithLogger(log))
	defer auditor.Close()

	fingerprints := identity.NewFingerprinter(cfg.FingerprintSalt)

	gateSvc, err := gate.New(records, fingerprints, cfg.AccessCodes,
		gate.WithLogger(log), gate.WithAuditPublisher(auditor), gate.WithMetrics(m))
	if err != nil {
		log.Error("gate setup failed", "error", err)
		os.Exit(1)
	}

	var channel approval.Channel
	if cfg.ApprovalWebhookURL != "" {
		channel = approval.NewWebhookChannel(cfg.ApprovalWebhookURL)
	} else {
		log.Warn("no approval webhook configured, approval requests go to the log")
		channel = approval.NewLogChannel(log)
	}

	tokens := trust.NewTokenIssuer(cfg.JWTSigningKey)
	trustSvc, err := trust.New(records, fingerprints, channel, claims, tokens, cfg.ApprovalTimeout,
		trust.WithLogger(log), trust.WithAuditPublisher(auditor), trust.WithMetrics(m))
	if err != nil {
		log.Error("trust setup failed", "error", err)
		os.Exit(1)
	}

	enforceSvc, err := enforce.New(punishments,
		enforce.WithLogger(log), enforce.WithAuditPublisher(auditor), enforce.WithMetrics(m))
	if err != nil {
		log.Error("enforcement setup failed", "error", err)
		os.Exit(1)
	}
	joinChain := enforce.NewJoinChain(enforce.NewBanInterceptor(enforceSvc))
	chatChain := enforce.NewChatChain(
		enforce.NewMuteInterceptor(enforceSvc),
		enforce.NewCooldownFilter(cfg.ChatLimit, cfg.ChatWindow),
		enforce.NewProfanityFilter(cfg.BlockedWords),
	)

	gw, err := gateway.New(records, gateSvc, trustSvc, fingerprints, joinChain, chatChain,
		gateway.WithLogger(log), gateway.WithAuditPublisher(auditor), gateway.WithMetrics(m))
	if err != nil {
		log.Error("gateway setup failed", "error", err)
		os.Exit(1)
	}

	sweep := sweeper.New(records, cfg.SweepInterval,
		sweeper.WithLogger(log), sweeper.WithAuditPublisher(auditor), sweeper.WithMetrics(m))
	sweep.Start(ctx)
	defer sweep.Stop()

	handler := httptransport.NewHandler(gw, trustSvc, gateSvc, records, punishments,
		httptransport.WithLogger(log),
		httptransport.WithAuditPublisher(auditor),
		httptransport.WithAdminKeyHash(cfg.AdminKeyHash))
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	if err := httpserver.Shutdown(srv, 10*time.Second); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
