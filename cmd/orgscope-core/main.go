package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/orgscope-labs/orgscope-core/internal/adapters/driven/postgres"
	redisadapter "github.com/orgscope-labs/orgscope-core/internal/adapters/driven/redis"
	"github.com/orgscope-labs/orgscope-core/internal/adapters/driven/salesforce"
	httpadapter "github.com/orgscope-labs/orgscope-core/internal/adapters/driving/http"
	"github.com/orgscope-labs/orgscope-core/internal/config"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driven"
	"github.com/orgscope-labs/orgscope-core/internal/core/services"
)

var version = "dev"

// redisPinger adapts a redis client to the server's readiness probe
type redisPinger struct {
	client *redis.Client
}

func (p *redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Version == "dev" {
		cfg.Version = version
	}

	mode := cfg.Mode
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	log.Printf("orgscope-core %s starting in %s mode", cfg.Version, mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== Stores =====
	// Redis, when available, carries the hot auth path and the janitor
	// lock; postgres remains the fallback.
	var stateStore driven.OAuthStateStore
	var sessionStore driven.SessionStore
	var lock driven.DistributedLock
	if redisClient != nil {
		stateStore = redisadapter.NewOAuthStateStore(redisClient)
		sessionStore = redisadapter.NewSessionStore(redisClient)
		lock = redisadapter.NewLock(redisClient)
	} else {
		stateStore = postgres.NewOAuthStateStore(db)
		sessionStore = postgres.NewSessionStore(db)
	}

	// ===== Services =====
	authService := services.NewAuthFlowService(services.AuthFlowServiceConfig{
		OAuthStateStore: stateStore,
		SessionStore:    sessionStore,
		Provider:        salesforce.NewProvider(),
	})

	janitor := services.NewJanitor(services.JanitorConfig{
		OAuthStateStore: stateStore,
		SessionStore:    sessionStore,
		Lock:            lock,
		SweepInterval:   cfg.SweepInterval,
	})

	if mode == "janitor" || mode == "all" {
		if err := janitor.Start(ctx); err != nil {
			log.Fatalf("Failed to start janitor: %v", err)
		}
		defer janitor.Stop()
	}

	if mode == "janitor" {
		// Janitor-only instances have no HTTP surface; block until shutdown.
		<-ctx.Done()
		return
	}

	// ===== HTTP server =====
	var redisHealth httpadapter.Pinger
	if redisClient != nil {
		redisHealth = &redisPinger{client: redisClient}
	}

	server := httpadapter.NewServer(httpadapter.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		CronSecret:     cfg.CronSecret,
		SecureCookies:  cfg.SecureCookies,
		AllowedOrigins: cfg.AllowedOrigins,
	}, authService, janitor, db, redisHealth)

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
