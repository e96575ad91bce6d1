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

	"meetspace-backend/internal/database"
	meetingHandler "meetspace-backend/internal/handler/http/meeting"
	pushHandler "meetspace-backend/internal/handler/http/push"
	wsHandler "meetspace-backend/internal/handler/ws"
	"meetspace-backend/internal/middleware"
	"meetspace-backend/internal/repository/cassandra"
	"meetspace-backend/internal/repository/cockroach"
	"meetspace-backend/internal/repository/redis"
	"meetspace-backend/internal/service/media"
	"meetspace-backend/internal/service/meeting"
	"meetspace-backend/pkg/audit"
	"meetspace-backend/pkg/config"
	"meetspace-backend/pkg/env"
	"meetspace-backend/pkg/jwt"
	"meetspace-backend/pkg/logger"
	"meetspace-backend/pkg/metrics"
	"meetspace-backend/pkg/push"
)

func main() {
	// 1. Load configuration and logger
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 2. Setup JWT Manager
	jwtSecret := env.GetStringFromFile("JWT_SECRET", cfg.JWT.Secret)
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters")
	}

	jwtManager := jwt.NewJWTManager(jwtSecret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)

	// 3. Connect to Cassandra with authentication
	cassandraConfig := &database.CassandraConfig{
		Hosts:    cfg.Cassandra.Hosts,
		Keyspace: cfg.Cassandra.Keyspace,
		Username: env.GetStringFromFile("CASSANDRA_USER", ""),
		Password: env.GetStringFromFile("CASSANDRA_PASSWORD", ""),
		Timeout:  10 * time.Second,
	}
	cassandraDB, err := database.NewCassandraDBWithConfig(cassandraConfig)
	if err != nil {
		log.Fatalf("Failed to connect to Cassandra: %v", err)
	}
	defer cassandraDB.Close()

	log.Println("✅ Connected to Cassandra")

	// Initialize Redis metrics before connecting to Redis
	database.InitRedisMetrics()

	// 4. Connect to Redis with degraded mode support
	redisConfig := &database.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: env.GetStringFromFile("REDIS_PASSWORD", cfg.Redis.Password),
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	}

	redisDB, err := database.NewRedisDB(redisConfig)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisDB.Close()

	log.Println("✅ Connected to Redis")

	// Start background Redis health check
	go redisDB.StartHealthCheck(context.Background(), 10*time.Second)

	// 5. Connect to CockroachDB
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User,
		env.GetStringFromFile("DB_PASSWORD", cfg.Database.Password),
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)

	dbConfig := database.DefaultDBConfig()
	dbConfig.MaxOpenConns = cfg.Database.MaxConns

	cockroachDB, err := database.NewDB(context.Background(), connString, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to CockroachDB: %v", err)
	}
	defer cockroachDB.Close()

	log.Println("✅ Connected to CockroachDB")

	// 6. Initialize Repositories
	chatRepo := cassandra.NewChatRepository(cassandraDB.Session)
	roomRepo := cockroach.NewRoomRepository(cockroachDB.Pool)
	presenceRepo := redis.NewPresenceRepository(redisDB)
	tokenRepo := redis.NewPushTokenRepository(redisDB.Client)

	// 7. Initialize Push Service
	pushProvider, err := push.NewProvider()
	if err != nil {
		log.Fatalf("Failed to initialize push provider: %v", err)
	}
	pushSvc := push.NewService(pushProvider, tokenRepo)

	// 8. Initialize Meeting Coordinator
	allocator := media.NewTrackAllocator()
	coordinator := meeting.NewCoordinator(meeting.Config{
		AutoRevokeScreenShare: cfg.Meeting.AutoRevokeScreenShare,
		MediaAcquireTimeout:   cfg.Meeting.MediaAcquireTimeout,
		MaxParticipants:       cfg.Meeting.MaxParticipants,
	}, allocator)

	coordinator.SetRoomArchiver(roomRepo)
	coordinator.SetChatArchiver(chatRepo)
	coordinator.SetInviteSender(meeting.NewPushInviteSender(pushSvc))
	coordinator.SetAuditLogger(audit.NewAuditLogger(redisDB.Client))

	// 9. Initialize WebSocket Hub (delivers coordinator notifications)
	roomHub := wsHandler.NewRoomHub(redisDB.Client, coordinator, presenceRepo)
	coordinator.AddNotifier(roomHub)

	// 10. Initialize Metrics
	appMetrics := metrics.NewMetrics("meeting-service")
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 11. Initialize Handlers
	meetingHdlr := meetingHandler.NewHandler(coordinator)
	historyHdlr := meetingHandler.NewHistoryHandler(roomRepo, chatRepo)
	pushHdlr := pushHandler.NewHandler(pushSvc)

	// 12. Setup Gin Router
	router := gin.New() // Don't use Default() to have full control

	// Configure trusted proxies for production
	trustedProxies := []string{}
	if cfg.Server.Environment == "production" {
		trustedProxies = []string{
			"https://api.meetspace.app",
			"https://*.meetspace.app",
		}
	} else {
		trustedProxies = []string{
			"http://localhost:3000",
			"http://localhost:8080",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:8080",
		}
	}
	router.SetTrustedProxies(trustedProxies)

	// Apply global middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())
	router.Use(middleware.NewTimeoutMiddleware(nil).Middleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "meeting-service",
			"time":    time.Now().UTC(),
		})
	})

	// Metrics endpoint (for Prometheus scraping)
	router.GET("/metrics", middleware.MetricsHandler(appMetrics))

	// Revocation checker
	revocationChecker := middleware.NewRedisRevocationChecker(redisDB.Client)

	// Rate limiter shared by all authenticated routes; falls back to
	// in-memory counting while Redis is degraded
	rateLimiter := middleware.NewRateLimiterWithFallback(middleware.RateLimiterConfig{
		RedisClient:            redisDB,
		RequestsPerMin:         env.GetInt("RATE_LIMIT_REQUESTS", 120),
		Window:                 time.Minute,
		EnableInMemoryFallback: true,
	})

	// DB pool guard sheds load before the archive pool is exhausted
	dbPoolLimiter := middleware.NewDBPoolLimiter(cockroachDB)

	// Meeting routes (all require authentication)
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtManager, revocationChecker))
	v1.Use(rateLimiter.Middleware())
	v1.Use(dbPoolLimiter.Middleware())
	{
		// Meeting lifecycle
		v1.POST("/meetings", meetingHdlr.CreateRoom)
		v1.GET("/meetings/:id", meetingHdlr.GetRoom)
		v1.POST("/meetings/:id/join", meetingHdlr.JoinRoom)
		v1.POST("/meetings/:id/leave", meetingHdlr.LeaveRoom)
		v1.POST("/meetings/:id/end", meetingHdlr.EndRoom)

		// Media and flags
		v1.POST("/meetings/:id/screenshare", meetingHdlr.ToggleScreenShare)
		v1.PATCH("/meetings/:id/flags", meetingHdlr.UpdateFlags)
		v1.POST("/meetings/:id/media", meetingHdlr.BindMedia)
		v1.DELETE("/meetings/:id/media/:kind", meetingHdlr.UnbindMedia)

		// Chat
		v1.POST("/meetings/:id/messages", meetingHdlr.SendMessage)
		v1.GET("/meetings/:id/messages", meetingHdlr.GetMessages)

		// Meeting code resolution (join screens)
		v1.GET("/meeting-codes/:code", meetingHdlr.ResolveCode)

		// Archive reads (closed rooms)
		v1.GET("/meetings/history", historyHdlr.GetParticipantHistory)
		v1.GET("/meetings/:id/attendance", historyHdlr.GetAttendance)
		v1.GET("/meetings/:id/archive", historyHdlr.GetArchivedRoom)

		// Push notification tokens
		v1.POST("/push/tokens", pushHdlr.RegisterToken)
		v1.GET("/push/tokens", pushHdlr.GetTokens)
		v1.DELETE("/push/tokens", pushHdlr.UnregisterAllTokens)
		v1.POST("/push/test", pushHdlr.TestNotification)

		// WebSocket endpoint (room event stream)
		v1.GET("/ws/meetings/:id", roomHub.ServeWS)
	}

	// 13. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Meeting Service starting on port %d\n", cfg.Server.Port)
		log.Println("📡 WebSocket endpoint: /v1/ws/meetings/:id")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 14. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// End remaining rooms so observers see a final Ending snapshot
	// before connections drop.
	coordinator.EndAll(shutdownCtx)

	log.Println("Server exited")
}
