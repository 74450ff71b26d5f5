package configuration

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"blogchat/internal/auth"
	"blogchat/internal/db"
	"blogchat/internal/handler"
	"blogchat/internal/hub"
	"blogchat/internal/model"
	"blogchat/internal/repo"
	"blogchat/internal/service"
)

type Container struct {
	Config Config
	Logger *zap.Logger

	Gate           *auth.Gate
	Hub            *hub.Hub
	MessageHandler handler.MessageHandler
	UserHandler    handler.UserHandler
	MonitorHandler handler.MonitorHandler

	// private - for cleanup
	mongoClient *mongo.Database
	redisClient *redis.Client
}

func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := NewLogger(config.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	con, err := db.OpenConnection(config.Mongo.Uri, config.Mongo.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to mongo", zap.String("database", config.Mongo.Database))

	messageStore := db.NewRepository[repo.MessageDocument](con, config.Mongo.MessagesCollection)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := messageStore.EnsureIndexes(ctx, repo.MessageIndexes()...); err != nil {
		logger.Warn("failed to ensure message indexes", zap.Error(err))
	}

	userRepo := repo.NewUserRepository(db.NewRepository[model.User](con, config.Mongo.UsersCollection), logger)
	messageRepo := repo.NewMessageRepository(messageStore, userRepo, logger)

	lastSeen, rdb := buildLastSeen(ctx, config.Redis, logger)

	gate := auth.NewGate(auth.NewJWTVerifier(config.Auth.JWTSecret, userRepo))

	// one registry, shared by the router, typing relay, notification relay and hub
	conns := hub.NewConnections()
	rooms := hub.NewRooms()
	presence := hub.NewPresenceRegistry(conns, logger)

	h := hub.NewHub(hub.Options{
		Gate:           gate,
		Connections:    conns,
		Rooms:          rooms,
		Presence:       presence,
		Router:         hub.NewRouter(messageRepo, presence, rooms, logger),
		Typing:         hub.NewTypingCoordinator(presence, rooms),
		Notifications:  hub.NewNotificationRelay(presence),
		Users:          userRepo,
		LastSeen:       lastSeen,
		Logger:         logger,
		AllowedOrigins: config.Server.AllowedOrigins,
		InboundBuffer:  config.Chat.InboundBuffer,
		SendBuffer:     config.Chat.SendBuffer,
	})

	messageService := service.NewMessageService(messageRepo, config.Chat.DefaultHistoryLimit, config.Chat.MaxHistoryLimit)
	userService := service.NewUserService(userRepo, presence, lastSeen, logger)

	return &Container{
		Config:         *config,
		Logger:         logger,
		Gate:           gate,
		Hub:            h,
		MessageHandler: handler.NewMessageHandler(messageService, logger),
		UserHandler:    handler.NewUserHandler(userService),
		MonitorHandler: handler.NewMonitorHandler(hub.NewMonitorService(conns, rooms, presence)),
		mongoClient:    con,
		redisClient:    rdb,
	}, nil
}

// buildLastSeen prefers Redis and falls back to process memory when Redis is not
// configured or not reachable at startup.
func buildLastSeen(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (repo.LastSeenRepository, *redis.Client) {
	if cfg.Addr == "" {
		logger.Info("redis not configured, keeping last-seen in memory")
		return repo.NewMemoryLastSeenRepository(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, keeping last-seen in memory",
			zap.String("addr", cfg.Addr),
			zap.Error(err))
		_ = rdb.Close()
		return repo.NewMemoryLastSeenRepository(), nil
	}

	logger.Info("last-seen mirrored to redis", zap.String("addr", cfg.Addr))
	return repo.NewRedisLastSeenRepository(rdb, logger), rdb
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.Logger.Warn("failed to close redis client", zap.Error(err))
		}
	}

	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	return nil
}
