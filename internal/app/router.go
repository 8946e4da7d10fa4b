package app

import (
	"fmt"
	"log"
	"regexp"
	"time"

	"chatapp/internal/config"
	"chatapp/internal/middleware"
	"chatapp/internal/model"
	"chatapp/internal/repository"
	"chatapp/internal/service"
	"chatapp/internal/util"
	"chatapp/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// registerValidators adds the custom binding rules used by request structs
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// NewRouter wires the full application: database, cache, broker,
// repositories, services, handlers and routes.
func NewRouter(cfg *config.Config) (*gin.Engine, error) {
	db, err := initDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient := initRedisWithRetry(cfg, 5)
	rabbitMQ := initRabbitMQWithRetry(cfg, 5)

	hub := websocket.NewHub()
	go hub.Run()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	friendshipRepo := repository.NewFriendshipRepository(db, redisClient)
	roomRepo := repository.NewChatRoomRepository(db, redisClient)
	messageRepo := repository.NewMessageRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	// Services
	notifService := service.NewNotificationService(notifRepo, rabbitMQ)
	notifService.SetWSHub(hub)
	friendshipService := service.NewFriendshipService(friendshipRepo, userRepo, notifService)
	chatRoomService := service.NewChatRoomService(roomRepo, userRepo, notifService)
	messageService := service.NewMessageService(messageRepo, roomRepo, userRepo)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)

	if rabbitMQ != nil {
		worker := service.NewNotificationWorker(rabbitMQ, hub)
		if err := worker.Start(); err != nil {
			log.Printf("Failed to start notification worker: %v", err)
		}
	}

	// Handlers
	authHandler := NewAuthHandler(authService)
	friendshipHandler := NewFriendshipHandler(friendshipService)
	chatRoomHandler := NewChatRoomHandler(chatRoomService)
	messageHandler := NewMessageHandler(messageService)
	notificationHandler := NewNotificationHandler(notifService)

	registerValidators()

	router := gin.Default()
	router.Use(middleware.CORS(cfg.ClientURL))

	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		router.Use(limiter.Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/ws", gin.WrapF(websocket.ServeWS(hub, cfg.JWTSecret)))

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.Auth(cfg.JWTSecret), authHandler.GetMe)
	}

	authed := v1.Group("")
	authed.Use(middleware.Auth(cfg.JWTSecret))
	{
		authed.GET("/users/search", authHandler.SearchUsers)

		friends := authed.Group("/friends")
		{
			friends.GET("", friendshipHandler.GetFriends)
			friends.GET("/pinned", friendshipHandler.GetPinnedFriends)
			friends.GET("/blocked", friendshipHandler.GetBlockedUsers)
			friends.GET("/search", friendshipHandler.SearchFriends)
			friends.GET("/count", friendshipHandler.GetFriendCount)
			friends.POST("/requests", friendshipHandler.SendRequest)
			friends.GET("/requests", friendshipHandler.GetPendingRequests)
			friends.GET("/requests/sent", friendshipHandler.GetSentRequests)
			friends.POST("/requests/:userId/accept", friendshipHandler.AcceptRequest)
			friends.POST("/requests/:userId/decline", friendshipHandler.DeclineRequest)
			friends.DELETE("/:userId", friendshipHandler.RemoveFriend)
			friends.POST("/:userId/block", friendshipHandler.BlockUser)
			friends.DELETE("/:userId/block", friendshipHandler.UnblockUser)
			friends.PUT("/:userId/alias", friendshipHandler.SetAlias)
			friends.PUT("/:userId/pin", friendshipHandler.TogglePin)
			friends.GET("/:userId/status", friendshipHandler.GetStatus)
		}

		rooms := authed.Group("/rooms")
		{
			rooms.GET("", chatRoomHandler.GetUserRooms)
			rooms.GET("/search", chatRoomHandler.SearchRooms)
			rooms.POST("/private", chatRoomHandler.CreatePrivateChat)
			rooms.POST("/group", chatRoomHandler.CreateGroupChat)
			rooms.GET("/:id", chatRoomHandler.GetRoom)
			rooms.PUT("/:id", chatRoomHandler.UpdateRoom)
			rooms.DELETE("/:id", chatRoomHandler.DeleteRoom)
			rooms.POST("/:id/join", chatRoomHandler.JoinRoom)
			rooms.POST("/:id/leave", chatRoomHandler.LeaveRoom)
			rooms.PUT("/:id/nickname", chatRoomHandler.SetNickname)
			rooms.GET("/:id/members", chatRoomHandler.GetMembers)
			rooms.DELETE("/:id/members/:userId", chatRoomHandler.KickMember)
			rooms.PUT("/:id/members/:userId/admin", chatRoomHandler.ToggleAdmin)
			rooms.PUT("/:id/members/:userId/mute", chatRoomHandler.ToggleMute)
			rooms.POST("/:id/messages", messageHandler.SendMessage)
			rooms.GET("/:id/messages", messageHandler.GetMessages)
			rooms.POST("/:id/read", messageHandler.MarkRead)
		}

		messages := authed.Group("/messages")
		{
			messages.GET("/unread-counts", messageHandler.GetUnreadCounts)
			messages.POST("/:id/recall", messageHandler.RecallMessage)
		}

		notifications := authed.Group("/notifications")
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.GET("/unread", notificationHandler.GetUnread)
			notifications.GET("/unread/count", notificationHandler.GetUnreadCount)
			notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
			notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
			notifications.DELETE("/:id", notificationHandler.DeleteNotification)
		}
	}

	return router, nil
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser,
			cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresSSLMode,
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Friendship{},
		&model.ChatRoom{},
		&model.ChatRoomMember{},
		&model.Message{},
		&model.Notification{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database connected and migrated")
	return db, nil
}

// initRedisWithRetry attempts to connect with exponential backoff.
// The app degrades to uncached reads when Redis is unreachable.
func initRedisWithRetry(cfg *config.Config, maxAttempts int) *util.RedisClient {
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := util.NewRedisClient(cfg)
		if err == nil {
			log.Println("Redis connected")
			return client
		}

		log.Printf("Redis connection attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	log.Println("Redis unavailable, continuing without cache")
	return nil
}

// initRabbitMQWithRetry attempts to connect with exponential backoff.
// Notifications fall back to WebSocket-only delivery without the broker.
func initRabbitMQWithRetry(cfg *config.Config, maxAttempts int) *util.RabbitMQClient {
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := util.NewRabbitMQClient(cfg)
		if err == nil {
			log.Println("RabbitMQ connected")
			return client
		}

		log.Printf("RabbitMQ connection attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	log.Println("RabbitMQ unavailable, continuing without message broker")
	return nil
}
