package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/meridian-cg/coding-portal/internal/config"
	"github.com/meridian-cg/coding-portal/internal/export"
	"github.com/meridian-cg/coding-portal/internal/handlers"
	"github.com/meridian-cg/coding-portal/internal/queue"
	"github.com/meridian-cg/coding-portal/internal/repository"
	"github.com/meridian-cg/coding-portal/internal/services"
	xhttp "github.com/meridian-cg/coding-portal/pkg/http"
	"github.com/meridian-cg/coding-portal/pkg/logger"
	"github.com/meridian-cg/coding-portal/pkg/pg"
	"github.com/meridian-cg/coding-portal/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	progressQueue, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().ProgressQueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating progress queue", "error", err)
		return
	}

	erpClient, err := export.NewClient(erpConfig())
	if err != nil {
		logger.Error("failed creating erp client", "error", err)
		return
	}

	transactionRepo := repository.NewTransactionRepository(db)
	statementRepo := repository.NewStatementRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)

	// services
	codingService := services.NewCodingService(transactionRepo, statementRepo, db, progressQueue)
	statementService := services.NewStatementService(statementRepo)
	referenceService := services.NewReferenceService(referenceRepo)
	exportService := services.NewExportService(transactionRepo, erpClient, db)
	healthService := services.NewHealthService(services.PingerFunc(func(ctx context.Context) error {
		return redisAdap.Client().Ping(ctx).Err()
	}))

	// v1 handlers
	codingHandler := handlers.NewCodingHandler(codingService)
	statementHandler := handlers.NewStatementHandler(statementService, exportService)
	referenceHandler := handlers.NewReferenceHandler(referenceService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterCodingRoutes(g, codingHandler)
	handlers.RegisterStatementRoutes(g, statementHandler)
	handlers.RegisterReferenceRoutes(g, referenceHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
		erpClient.Close()
	}
}

func erpConfig() *export.Config {
	endpoints := []export.EndpointConfig{
		{Name: "primary", URL: config.Get().ErpPrimaryUrl, Weight: 100},
	}
	if config.Get().ErpSecondaryUrl != "" {
		endpoints = append(endpoints, export.EndpointConfig{
			Name: "secondary", URL: config.Get().ErpSecondaryUrl, Weight: 60,
		})
	}
	return &export.Config{
		Endpoints:               endpoints,
		Timeout:                 time.Second * 10,
		MaxRetries:              3,
		RetryDelay:              time.Millisecond * 250,
		MaxConns:                100,
		HealthCheckInterval:     30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
