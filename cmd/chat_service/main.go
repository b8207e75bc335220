package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	chatapp "legal_marketplace_service/internal/chat/app"
	"legal_marketplace_service/internal/chat/bus"
	chatrepo "legal_marketplace_service/internal/chat/repository"
	"legal_marketplace_service/internal/chat/router"
	memberapp "legal_marketplace_service/internal/member/app"
	memberdomain "legal_marketplace_service/internal/member/domain"
	memberrepo "legal_marketplace_service/internal/member/repository"
	"legal_marketplace_service/internal/taskqueue"
	"legal_marketplace_service/pkg/config"
	"legal_marketplace_service/pkg/database"
	"legal_marketplace_service/pkg/logger"
	testtool "legal_marketplace_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const sessionTTL = 24 * time.Hour

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	testtool.StartPprof()

	ctx := context.Background()

	// Mongo stores the messages
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// Redis carries the cross-process fan-out and the sessions
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// Postgres holds the member accounts
	pgURI := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database)
	pgPool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    pgURI,
		RetryCount:    cfg.Postgres.RetryCount,
		RetryInterval: time.Duration(cfg.Postgres.RetryInterval) * time.Second,
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect postgres err : %v", err))
	}
	defer pgPool.Close()

	msgRepo := chatrepo.NewMongoChatMessageRepository(mongo.Database)
	backplane := chatrepo.NewRedisPubSub(redisClient)
	roomBus := bus.NewRoomBus(ctx, backplane)

	memberRepo := memberrepo.NewMemberRepository(pgPool)
	memberUC := memberapp.NewMemberUseCase(memberRepo, sessionTTL,
		database.NewRedisRepository[memberdomain.MemberSession](redisClient),
		database.NewRedisRepository[string](redisClient))

	messageUC := chatapp.NewMessageUseCase(msgRepo, roomBus)

	analysisQueue := taskqueue.New(cfg.Analysis.Timeout)
	defer analysisQueue.Close()
	analysisUC := chatapp.NewCaseAnalysisUseCase(msgRepo, analysisQueue, &fasthttp.Client{}, cfg.Analysis)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		memberapp.NewMemberHandler(memberUC),
		chatapp.NewChatHTTPHandler(messageUC, analysisUC),
		chatapp.NewChatWebsocketHandler(messageUC, roomBus, memberUC),
	)

	port := ":" + cfg.Port
	log.Printf("Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
