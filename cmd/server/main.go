package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/precosal/backend/config"
	"github.com/precosal/backend/internal/auth"
	httpDelivery "github.com/precosal/backend/internal/delivery/http"
	"github.com/precosal/backend/internal/domain"
	"github.com/precosal/backend/internal/infrastructure/cache"
	"github.com/precosal/backend/internal/infrastructure/economiza"
	"github.com/precosal/backend/internal/infrastructure/postgres"
	"github.com/precosal/backend/internal/usecase"
)

func main() {
	// Local development reads secrets from a .env file; in production the
	// environment is set by the platform and the file simply is not there.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Precos AL Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache Type: %s", cfg.Cache.Type)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Database
	db, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("Database connected (max %d conns)", cfg.Database.MaxConns)

	// Cache
	var priceCache domain.CacheRepository
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Username: cfg.Cache.RedisUsername,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		priceCache = redisCache
		log.Printf("Redis cache connected: %s", cfg.Cache.RedisAddr)
	default:
		priceCache = cache.NewMemoryCache()
	}
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	// Price API client
	priceClient := economiza.NewClient(
		cfg.PriceAPI.Token,
		cfg.PriceAPI.BaseURL,
		cfg.PriceAPI.SearchDays,
		cfg.PriceAPI.PageSize,
		cfg.RateLimit.Upstream,
		cfg.RateLimit.Burst,
	)
	if cfg.Server.Environment == "development" {
		priceClient.SetDebug(true)
		log.Printf("Price API client debug mode enabled")
	}
	log.Printf("Price API configured: %s (window: %d days)", cfg.PriceAPI.BaseURL, cfg.PriceAPI.SearchDays)

	// Repositories
	marketRepo := postgres.NewMarketRepository(db)
	basketRepo := postgres.NewBasketRepository(db)
	recordRepo := postgres.NewPriceRecordRepository(db)
	runRepo := postgres.NewCollectionRunRepository(db)
	logRepo := postgres.NewSearchLogRepository(db)

	// Usecase layer
	searchService := usecase.NewSearchService(priceCache, priceClient, priceClient, logRepo,
		usecase.SearchServiceConfig{CacheTTL: cfg.Cache.TTL})
	comparisonService := usecase.NewComparisonService(searchService.Fetcher())
	basketService := usecase.NewBasketService(basketRepo)
	marketService := usecase.NewMarketService(marketRepo)
	dashboardService := usecase.NewDashboardService(recordRepo, runRepo, marketRepo)
	collectorService := usecase.NewCollectorService(priceClient, recordRepo, runRepo,
		usecase.CollectorServiceConfig{
			SearchTerms:   cfg.Collector.SearchTerms,
			SearchDays:    cfg.PriceAPI.SearchDays,
			MarketTimeout: cfg.Collector.MarketTimeout,
		})
	log.Printf("Collector: %d search terms, %s per-market timeout",
		len(cfg.Collector.SearchTerms), cfg.Collector.MarketTimeout)

	// HTTP layer
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	handler := httpDelivery.NewHandler(
		searchService,
		comparisonService,
		basketService,
		marketService,
		dashboardService,
		collectorService,
	)
	router := httpDelivery.SetupRouter(cfg, handler, tokens)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
