// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/wardenlog/wardenlog/internal/audit"
	"github.com/wardenlog/wardenlog/internal/auth"
	"github.com/wardenlog/wardenlog/internal/authz"
	"github.com/wardenlog/wardenlog/internal/bus"
	"github.com/wardenlog/wardenlog/internal/cache"
	"github.com/wardenlog/wardenlog/internal/collector"
	"github.com/wardenlog/wardenlog/internal/config"
	"github.com/wardenlog/wardenlog/internal/detection"
	"github.com/wardenlog/wardenlog/internal/dispatcher"
	"github.com/wardenlog/wardenlog/internal/eventprocessor"
	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
	"github.com/wardenlog/wardenlog/internal/response"
	"github.com/wardenlog/wardenlog/internal/storage"
	"github.com/wardenlog/wardenlog/internal/supervisor"
	"github.com/wardenlog/wardenlog/internal/supervisor/services"
	"github.com/wardenlog/wardenlog/internal/threatintel"
	"github.com/wardenlog/wardenlog/internal/wal"
	ws "github.com/wardenlog/wardenlog/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if cfg.Server.Environment != "production" {
		logging.Warn().Str("environment", cfg.Server.Environment).
			Msg("running outside production mode; rate limits and lockouts still enforce, but double-check this is intentional before exposing the server")
	}
	if len(cfg.Security.CORSOrigins) == 1 && cfg.Security.CORSOrigins[0] == "*" {
		logging.Warn().Msg("====================================================")
		logging.Warn().Msg("CORS_ORIGINS=* allows any origin to call this API from a browser")
		logging.Warn().Msg("====================================================")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.NewRedisClient(cfg.Redis.URL, cfg.Redis.MaxConnections)
	if err != nil {
		logging.Fatal().Err(err).Msg("connect redis")
	}
	rateLimiter := cache.NewRedisRateLimiter(redisClient, "ratelimit")
	lockoutStore := cache.NewRedisLockoutStore(redisClient, "lockout")

	busURL := cfg.Bus.URL
	var embeddedNATS *eventprocessor.EmbeddedServer
	if cfg.Bus.EmbeddedServer {
		embeddedNATS, err = eventprocessor.NewEmbeddedServer(&eventprocessor.ServerConfig{
			Host:     cfg.Server.Host,
			StoreDir: cfg.Bus.StoreDir,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("start embedded bus server")
		}
		busURL = embeddedNATS.ClientURL()
	}

	nc, err := natsgo.Connect(busURL, natsgo.RetryOnFailedConnect(true), natsgo.MaxReconnects(-1))
	if err != nil {
		logging.Fatal().Err(err).Msg("connect to bus")
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		logging.Fatal().Err(err).Msg("create jetstream context")
	}
	streamInit, err := bus.NewStreamInitializer(js)
	if err != nil {
		logging.Fatal().Err(err).Msg("create stream initializer")
	}
	if err := streamInit.EnsureStreams(ctx, bus.DefaultStreamConfigs(cfg.Bus.ClientIDPrefix, 7*24*time.Hour)); err != nil {
		logging.Fatal().Err(err).Msg("provision bus streams")
	}
	streamName := func(topic string) string { return cfg.Bus.ClientIDPrefix + "_" + topic }

	rawProducer, err := bus.NewProducer(bus.DefaultProducerConfig(busURL), 4)
	if err != nil {
		logging.Fatal().Err(err).Msg("create raw logs producer")
	}
	enrichedProducer, err := bus.NewProducer(bus.DefaultProducerConfig(busURL), 4)
	if err != nil {
		logging.Fatal().Err(err).Msg("create enriched logs producer")
	}
	alertsProducer, err := bus.NewProducer(bus.DefaultProducerConfig(busURL), 4)
	if err != nil {
		logging.Fatal().Err(err).Msg("create alerts producer")
	}

	rawLogsConsumerCfg := bus.DefaultConsumerConfig(busURL, "processor", "processor")
	rawLogsConsumerCfg.StreamName = streamName(bus.TopicRawLogs)
	rawLogsConsumer, err := bus.NewConsumer(rawLogsConsumerCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("create raw logs consumer")
	}

	enrichedLogsConsumerCfg := bus.DefaultConsumerConfig(busURL, "detection", "detection")
	enrichedLogsConsumerCfg.StreamName = streamName(bus.TopicEnrichedLogs)
	enrichedLogsConsumer, err := bus.NewConsumer(enrichedLogsConsumerCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("create enriched logs consumer")
	}

	alertsConsumerResponse := mustAlertsConsumer(busURL, streamName(bus.TopicAlerts), "response")
	alertsConsumerDispatch := mustAlertsConsumer(busURL, streamName(bus.TopicAlerts), "dispatcher")
	alertsConsumerWS := mustAlertsConsumer(busURL, streamName(bus.TopicAlerts), "alerts-ws-bridge")

	idx, err := storage.New(cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("open storage index")
	}
	policy := storage.PolicyFromConfig(cfg.Storage)
	idx.StartSweeper(ctx, policy, 24*time.Hour)

	auditDB, err := sql.Open("duckdb", cfg.Storage.DataDir+"/audit.duckdb")
	if err != nil {
		logging.Fatal().Err(err).Msg("open audit database")
	}
	auditStore := audit.NewDuckDBStore(auditDB)
	if err := auditStore.CreateTable(ctx); err != nil {
		logging.Fatal().Err(err).Msg("create audit table")
	}
	auditLogger := audit.NewLogger(auditStore, audit.DefaultConfig())
	auditLogger.StartCleanupRoutine(ctx)

	dlqDB, err := sql.Open("duckdb", cfg.Storage.DataDir+"/dlq.duckdb")
	if err != nil {
		logging.Fatal().Err(err).Msg("open dead-letter database")
	}
	dlqStore := eventprocessor.NewDuckDBDLQStore(dlqDB)
	if err := dlqStore.CreateTable(ctx); err != nil {
		logging.Fatal().Err(err).Msg("create dead-letter table")
	}
	dlqHandler, err := eventprocessor.NewPersistentDLQHandler(eventprocessor.DefaultDLQConfig(), dlqStore)
	if err != nil {
		logging.Fatal().Err(err).Msg("create dead-letter handler")
	}

	procCfg := eventprocessor.DefaultProcessorConfig()
	intel := threatintel.New(cfg.Detection.ThreatIntelPaths)
	enricher := eventprocessor.NewEnricherFromConfig(procCfg, intel)
	processor := eventprocessor.NewProcessor(procCfg, rawLogsConsumer, enrichedProducer, idx, enricher, dlqHandler)

	ruleStore, err := detection.NewFileRuleStore(cfg.Detection.RulesDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("open rule store")
	}
	engine := detection.NewEngine(ruleStore, cfg.Detection.DefaultThrottle)
	engine.RegisterEvaluator(detection.NewCustomEvaluator())
	engine.RegisterEvaluator(detection.NewSigmaEvaluator())
	engine.RegisterEvaluator(detection.NewYaraEvaluator())
	engine.RegisterEvaluator(detection.NewAnomalyEvaluator())
	detectionService := detection.NewService(enrichedLogsConsumer, alertsProducer, engine, ruleStore)
	if cfg.Detection.ReloadOnSignal {
		go func() {
			if err := ruleStore.Watch(ctx); err != nil && ctx.Err() == nil {
				logging.Err(err).Msg("rule store file watch stopped")
			}
		}()
	}

	playbookStore, err := response.NewFilePlaybookStore(cfg.Response.PlaybooksDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("open playbook store")
	}
	runLogStore, err := response.OpenRunLogStore(cfg.Response.RunLogPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("open playbook run log")
	}
	runner := response.NewRunner(playbookStore, runLogStore, cfg.Response.ActionTimeout)
	for _, d := range response.DefaultDrivers(cfg.Response) {
		runner.RegisterDriver(d)
	}
	responseService := response.NewService(alertsConsumerResponse, runner, playbookStore)
	if cfg.Response.ReloadOnSignal {
		go func() {
			if err := playbookStore.Watch(ctx); err != nil && ctx.Err() == nil {
				logging.Err(err).Msg("playbook store file watch stopped")
			}
		}()
	}

	dispatchRouter := dispatcher.NewDispatcher(cfg.Dispatcher)
	dispatchService := dispatcher.NewService(alertsConsumerDispatch, dispatchRouter)

	hub := ws.NewHub()
	alertsBridge := ws.NewNATSSubscriber(hub, alertsConsumerWS, bus.TopicAlerts)

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		logging.Fatal().Err(err).Msg("load authorization policy")
	}
	authzAuditLog := authz.NewAuditLog()

	tokens, err := auth.NewTokenManager(cfg.Security.JWTSecretKey, cfg.Security.AccessTokenExpire)
	if err != nil {
		logging.Fatal().Err(err).Msg("create token manager")
	}

	var seedUsers []*models.User
	if cfg.Security.AdminUsername != "" {
		hash, err := auth.HashPassword(cfg.Security.AdminPassword)
		if err != nil {
			logging.Fatal().Err(err).Msg("hash admin password")
		}
		scopes := cfg.Security.AdminScopes
		if len(scopes) == 0 {
			scopes = []string{"logs:write", "logs:read", "logs:admin", "rules:write"}
		}
		seedUsers = append(seedUsers, &models.User{
			Username:       cfg.Security.AdminUsername,
			Scopes:         scopes,
			CredentialHash: hash,
		})
	}
	userStore := auth.NewInMemoryUserStore(seedUsers...)

	lockoutManager := auth.NewLockoutManager(lockoutStore, auth.LockoutConfig{
		MaxAttempts: cfg.Security.LoginFailThreshold,
		Window:      cfg.Security.LoginLockoutWindow,
	})
	lockoutManager.StartCleanupRoutine(ctx)

	walCfg := wal.DefaultConfig()
	walCfg.Path = cfg.Bus.StoreDir + "/wal"
	badgerWAL, err := wal.Open(&walCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("open durability log")
	}
	durablePub := newDurablePublisher(badgerWAL, rawProducer)
	retryLoop := wal.NewRetryLoop(badgerWAL, &walBusPublisher{producer: rawProducer})
	compactor := wal.NewCompactor(badgerWAL)

	trustedProxies := make(map[string]bool, len(cfg.Security.TrustedProxies))
	for _, p := range cfg.Security.TrustedProxies {
		trustedProxies[p] = true
	}

	collectorCfg := collector.Config{
		RawLogsTopic:   bus.TopicRawLogs,
		TrustedProxies: trustedProxies,
		RequiredScope:  "logs:write",
		RequestQuota:   collector.Quota{Limit: cfg.RateLimit.DefaultTimes, Window: cfg.RateLimit.DefaultSeconds},
		BatchQuota:     collector.Quota{Limit: cfg.RateLimit.BatchTimes, Window: cfg.RateLimit.BatchSeconds},
		EventQuota:     collector.Quota{Limit: cfg.RateLimit.EventTimes, Window: cfg.RateLimit.EventSeconds},
		LoginQuota:     collector.Quota{Limit: cfg.RateLimit.LoginTimes, Window: cfg.RateLimit.LoginSeconds},
		MaxBatchEvents: cfg.RateLimit.BatchMaxEvents,
	}

	healthChecks := map[string]collector.HealthCheck{
		"bus": func(ctx context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("bus not connected")
			}
			return nil
		},
		"cache": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
		"storage": func(ctx context.Context) error {
			return idx.Ping(ctx)
		},
	}

	col := collector.New(collectorCfg, tokens, userStore, lockoutManager, durablePub, rateLimiter, healthChecks)
	col.SetAuditLogger(auditLogger)
	col.SetAdminSurface(collector.AdminSurface{
		Hub:       hub,
		Rules:     ruleStore,
		Playbooks: playbookStore,
		DLQ:       dlqHandler,
		RunLog:    runLogStore,
		Enforcer:  enforcer,
		AuthzLog:  authzAuditLog,
	})
	router := col.Router(collector.CORSConfig{AllowedOrigins: cfg.Security.CORSOrigins})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("create supervisor tree")
	}

	tree.AddDataService(services.NewWALRetryLoopService(retryLoop))
	tree.AddDataService(services.NewWALCompactorService(compactor))

	tree.AddMessagingService(services.NewRunnerService("processor", processor))
	tree.AddMessagingService(services.NewRunnerService("detection", detectionService))
	tree.AddMessagingService(services.NewRunnerService("response", responseService))
	tree.AddMessagingService(services.NewRunnerService("dispatcher", dispatchService))
	tree.AddMessagingService(services.NewRunnerService("alerts-ws-bridge", alertsBridge))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	logging.Info().Str("addr", httpServer.Addr).Msg("wardenlog starting")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logging.Err(err).Msg("supervisor tree stopped with error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("services failed to stop within shutdown timeout")
	}

	_ = rawProducer.Close()
	_ = enrichedProducer.Close()
	_ = alertsProducer.Close()
	_ = rawLogsConsumer.Close()
	_ = enrichedLogsConsumer.Close()
	_ = alertsConsumerResponse.Close()
	_ = alertsConsumerDispatch.Close()
	_ = alertsConsumerWS.Close()
	_ = badgerWAL.Close()
	_ = playbookStore.Close()
	_ = runLogStore.Close()
	_ = auditDB.Close()
	_ = dlqDB.Close()
	idx.Close()
	if embeddedNATS != nil {
		_ = embeddedNATS.Shutdown(shutdownCtx)
	}

	logging.Info().Msg("wardenlog stopped")
}

// mustAlertsConsumer creates an independent consumer group bound to the
// alerts stream. Response, the dispatcher, and the live WebSocket bridge
// each need their own durable name so one slow consumer never steals
// deliveries meant for another.
func mustAlertsConsumer(busURL, streamName, durableName string) *bus.Consumer {
	cfg := bus.DefaultConsumerConfig(busURL, durableName, durableName)
	cfg.StreamName = streamName
	c, err := bus.NewConsumer(cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("consumer", durableName).Msg("create alerts consumer")
	}
	return c
}
