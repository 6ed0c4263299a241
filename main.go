package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bastionhq/bastion/api/audit"
	"github.com/bastionhq/bastion/api/auth"
	"github.com/bastionhq/bastion/api/auth/breaker"
	"github.com/bastionhq/bastion/api/auth/cache"
	"github.com/bastionhq/bastion/api/auth/fallback"
	"github.com/bastionhq/bastion/api/auth/remote"
	"github.com/bastionhq/bastion/api/config"
	"github.com/bastionhq/bastion/api/controller"
	"github.com/bastionhq/bastion/api/db"
	logger "github.com/bastionhq/bastion/api/logging"
	"github.com/bastionhq/bastion/api/router"
	"github.com/bastionhq/bastion/api/service"
	"github.com/bastionhq/bastion/api/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Initialize utilities
	validationUtil := util.NewValidationUtil()
	notificationService := util.NewNotificationService()

	// Initialize the audit trail
	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize Elasticsearch audit repository", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)

	// Initialize the decision pipeline
	cacheConfig := cache.Config{
		MaxEntries:      config.GetInt("auth.cache.maxEntries"),
		BaseTTL:         config.GetDuration("auth.cache.baseTTL"),
		ExtendedTTL:     config.GetDuration("auth.cache.extendedTTL"),
		CleanupInterval: config.GetDuration("auth.cache.cleanupInterval"),
	}
	var decisionCache cache.Store
	if config.GetString("auth.cache.backend") == "redis" {
		decisionCache = cache.NewRedisStore(db.RedisClient)
	} else {
		decisionCache = cache.NewMemoryStore(cacheConfig)
	}
	defer decisionCache.Close()

	remoteClient := remote.NewHTTPClient(remote.Config{
		Endpoint: config.GetString("auth.remote.endpoint"),
		Timeout:  config.GetDuration("auth.remote.timeout"),
		APIKey:   config.GetString("auth.remote.apiKey"),
	})

	circuitBreaker := breaker.New(breaker.Config{
		FailureThreshold: config.GetInt("auth.breaker.failureThreshold"),
		SuccessThreshold: config.GetInt("auth.breaker.successThreshold"),
		CallTimeout:      config.GetDuration("auth.breaker.callTimeout"),
		OpenTimeout:      config.GetDuration("auth.breaker.openTimeout"),
	})

	authorizer := auth.NewAuthorizer(auth.Config{
		Cache:       decisionCache,
		Breaker:     circuitBreaker,
		Remote:      remoteClient,
		Fallback:    fallback.New(),
		Audit:       auditService,
		BaseTTL:     cacheConfig.BaseTTL,
		ExtendedTTL: cacheConfig.ExtendedTTL,
	})

	// Initialize services
	authzService := service.NewAuthorizationService(
		authorizer,
		auditService,
		validationUtil,
		notificationService,
		eventBus,
	)

	// Initialize controllers
	checkController := controller.NewCheckController(authzService)
	healthController := controller.NewHealthController(authzService)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	engine := router.SetupRouter(
		checkController,
		healthController,
		config.GetInt("ratelimit.requests"),
		config.GetDuration("ratelimit.window"),
	)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engine,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
