package routes

import (
	"log/slog"
	"time"

	"north-backend/internal/adapters/googleapi"
	"north-backend/internal/adapters/storage"
	"north-backend/internal/api/handlers"
	"north-backend/internal/api/middleware"
	"north-backend/internal/config"
	"north-backend/internal/relay"
	"north-backend/internal/repositories/postgres"
	"north-backend/internal/services"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Router struct {
	engine       *gin.Engine
	authHandler  *handlers.AuthHandler
	roomHandler  *handlers.RoomHandler
	driveHandler *handlers.DriveHandler
	wsHandler    *handlers.WebSocketHandler
	rateLimitMW  *middleware.RateLimitMiddleware
	authMW       *middleware.AuthMiddleware
}

func NewRouter(
	cfg *config.Config,
	db *gorm.DB,
	chatRelay *relay.Relay,
	redisService *services.RedisService,
	staging *storage.StagingStore,
	logger *slog.Logger,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	roomRepo := postgres.NewRoomRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	driveRepo := postgres.NewDriveFileRepository(db)

	// Initialize services
	googleClient := googleapi.NewClient(&cfg.Google)
	authService := services.NewAuthService(userRepo, googleClient, redisService, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	roomService := services.NewRoomService(roomRepo, messageRepo, userRepo, chatRelay)
	driveService := services.NewDriveService(userRepo, driveRepo, googleClient, staging, &cfg.Google)

	return &Router{
		engine:       engine,
		authHandler:  handlers.NewAuthHandler(authService),
		roomHandler:  handlers.NewRoomHandler(roomService),
		driveHandler: handlers.NewDriveHandler(driveService),
		wsHandler:    handlers.NewWebSocketHandler(chatRelay, roomService, redisService, logger),
		rateLimitMW:  middleware.NewRateLimitMiddleware(redisService),
		authMW:       middleware.NewAuthMiddleware(cfg.JWT.Secret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/kaithhealthcheck", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// Public routes (no authentication required)
	authRoutes := api.Group("/auth")
	authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute)) // 50 requests per minute per IP
	{
		authRoutes.GET("/google/auth-url", r.authHandler.GoogleAuthURL)
		authRoutes.GET("/google/callback", r.authHandler.GoogleAuthCallback)
	}

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		// WebSocket endpoint; token arrives via the query string here
		// because browsers cannot set headers on WebSocket upgrades.
		auth.GET("/chat/ws/:roomID", r.wsHandler.HandleWebSocket)

		users := auth.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute)) // 100 requests per minute
		{
			users.GET("/profile", r.authHandler.Profile)
		}

		chat := auth.Group("/chat")
		chat.Use(r.rateLimitMW.RateLimit(200, time.Minute)) // 200 requests per minute
		{
			chat.GET("/rooms", r.roomHandler.ListRooms)
			chat.POST("/rooms", r.roomHandler.CreateRoom)
			chat.GET("/rooms/:roomID", r.roomHandler.GetRoom)
			chat.GET("/rooms/:roomID/messages", r.roomHandler.ListMessages)
			chat.POST("/rooms/:roomID/messages", r.roomHandler.SendMessage)
			chat.GET("/users", r.roomHandler.ListUsers)
		}

		drive := auth.Group("/drive")
		drive.Use(r.rateLimitMW.RateLimit(100, time.Minute)) // 100 requests per minute
		{
			drive.GET("/files", r.driveHandler.ListFiles)
			drive.POST("/files/upload", r.driveHandler.Upload)
			drive.GET("/files/direct", r.driveHandler.DirectList)
			drive.POST("/files/import", r.driveHandler.ImportFile)
			drive.GET("/files/:id/download", r.driveHandler.Download)
			drive.GET("/picker-config", r.driveHandler.PickerConfig)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
