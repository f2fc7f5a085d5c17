package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"CBProject/global"
	"CBProject/logger"
	"CBProject/middleware"
	chatapi "CBProject/module/chat"
	"CBProject/module/chat/model"
	"CBProject/module/notify"
	"CBProject/module/user"
	"CBProject/service/chat"
	"CBProject/service/chat/handlers"
	"CBProject/service/mgo"
	"CBProject/service/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := global.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := mgo.Init(ctx, &mgo.Config{URI: cfg.MongoURI, Database: cfg.MongoDB}); err != nil {
		logger.Errorf("mongo init: %v", err)
		os.Exit(1)
	}
	if err := mgo.EnsureIndexes(ctx); err != nil {
		logger.Warnf("ensure indexes: %v", err)
	}

	// Presence mirroring degrades to local-only when redis is unreachable.
	redisUp := true
	if err := storage.InitRedis(storage.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); err != nil {
		logger.Warnf("redis unavailable, presence mirror disabled: %v", err)
		redisUp = false
	}

	users := model.NewUserStore()
	chats := model.NewChatStore()
	msgs := model.NewMessageStore()
	notifs := model.NewNotificationStore()

	srv := chat.NewServer(chat.Options{
		GatewayID:      cfg.GatewayID,
		FanoutWorkers:  cfg.FanoutWorkers,
		FanoutQueue:    cfg.FanoutQueue,
		SendQueueSize:  cfg.SendQueueSize,
		PresenceMirror: redisUp,
		RecentCache:    redisUp,
	}, users, chats, msgs, notifs)
	srv.Disp().Register(handlers.RegisterHandler{})
	srv.Disp().Register(handlers.JoinChatHandler{})
	srv.Disp().Register(handlers.SendMessageHandler{})

	if strings.ToLower(cfg.Env) == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/chat", srv.HandleWS)

	notifH := notify.NewHandler(notifs, users)
	middleware.GET(r, "/notifications", notifH.HandlerList, middleware.RouteOpt{IsAuth: true})
	middleware.POST(r, "/notifications/read/:id", notifH.HandlerMarkRead, middleware.RouteOpt{IsAuth: true})
	middleware.POST(r, "/notifications/markChatRead", notifH.HandlerMarkChatRead, middleware.RouteOpt{IsAuth: true})
	middleware.POST(r, "/notifications/markAllRead", notifH.HandlerMarkAllRead, middleware.RouteOpt{IsAuth: true})

	chatH := chatapi.NewHandler(chats, msgs, users)
	middleware.POST(r, "/chat/open", chatH.HandlerOpen, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/chat/:chatId/messages", chatH.HandlerHistory, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/chat/:chatId/recent", chatH.HandlerRecent, middleware.RouteOpt{IsAuth: true})

	userH := user.NewHandler(srv.Reg().IsOnline)
	middleware.GET(r, "/users/:userId/presence", userH.HandlerPresence, middleware.RouteOpt{IsAuth: true})

	go func() {
		logger.Infof("gateway %s listening on :%s", cfg.GatewayID, cfg.Port)
		if err := r.Run(":" + cfg.Port); err != nil {
			logger.Errorf("http server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("shutting down")
	srv.Close()
	if redisUp {
		storage.CloseRedis()
	}
	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	mgo.Close(sctx)
	logger.Sync()
}
