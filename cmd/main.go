package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"payment-bridge-service/internal/api"
	"payment-bridge-service/internal/cache"
	"payment-bridge-service/internal/config"
	"payment-bridge-service/internal/dedup"
	"payment-bridge-service/internal/events"
	"payment-bridge-service/internal/mailer"
	"payment-bridge-service/internal/maintenance"
	"payment-bridge-service/internal/platform"
	"payment-bridge-service/internal/processor"
	"payment-bridge-service/internal/repository"
	"payment-bridge-service/internal/service"
	"payment-bridge-service/migrations"
)

func connectDB(host, port, user, pass, dbname string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Printf("Connected to DB %s", dbname)
				return db, nil
			}
		}
		log.Printf("Retry %d: failed to connect to DB %s (%s:%s): %v", i+1, dbname, host, port, err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %v", dbname, host, port, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	store := cache.New(rdb)

	// The audit trail is optional; the pipeline runs without it.
	var recorder api.EventRecorder
	if cfg.MySQLHost != "" {
		db, err := connectDB(cfg.MySQLHost, cfg.MySQLPort, cfg.MySQLUser, cfg.MySQLPass, cfg.MySQLName)
		if err != nil {
			log.Fatalf("Audit DB unavailable: %v", err)
		}
		if err := migrations.AutoMigrateWebhookEvents(3, db); err != nil {
			log.Fatalf("Failed to migrate webhook_events table: %v", err)
		}
		recorder = repository.NewWebhookEventRepository(db)
	}

	kafkaWriter := config.NewKafkaWriter(cfg.KafkaTopic)
	publisher := events.NewKafkaPublisher(kafkaWriter)

	invoiceClient := processor.NewClient(processor.Credentials{
		MasterKey:  cfg.ProcessorMasterKey,
		PrivateKey: cfg.ProcessorPrivateKey,
		PublicKey:  cfg.ProcessorPublicKey,
		Token:      cfg.ProcessorToken,
		Mode:       cfg.ProcessorMode,
	})
	platformClient := platform.NewClient(cfg.ShopDomain, cfg.AccessToken, cfg.APIVersion)
	smtp := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)
	gate := dedup.NewGate(store, cfg.DedupTTL)

	bridgeService := service.NewBridgeService(gate, invoiceClient, smtp, publisher, cfg.Store, cfg.GatewayLabel)
	settlementService := service.NewSettlementService(platformClient, cfg.ProcessorMasterKey, publisher)
	handler := api.NewHandler(bridgeService, settlementService, store, recorder, cfg.WebhookSecret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler := maintenance.NewScheduler(store, cfg.CacheBudgetBytes)
	go scheduler.Run(ctx)

	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(10),
				Burst:     30,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.Request().RemoteAddr, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	handler.Register(e, cfg.AdminJWTSecret)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
