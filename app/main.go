package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Guyuepp/go-comment-service/internal/config"
	"github.com/Guyuepp/go-comment-service/internal/metrics"
	"github.com/Guyuepp/go-comment-service/internal/realtime"
	"github.com/Guyuepp/go-comment-service/internal/repository"
	mysqlRepo "github.com/Guyuepp/go-comment-service/internal/repository/mysql"
	myRedisCache "github.com/Guyuepp/go-comment-service/internal/repository/redis"
	"github.com/Guyuepp/go-comment-service/internal/rest"
	"github.com/Guyuepp/go-comment-service/internal/rest/middleware"
	"github.com/Guyuepp/go-comment-service/internal/rest/response"
	"github.com/Guyuepp/go-comment-service/internal/usecase/comment"
	"github.com/Guyuepp/go-comment-service/internal/workers"
)

const (
	dbMaxRetry         = 10
	dbRetryIntervalSec = 2
)

func init() {
	// .env 是可选的，容器里直接用环境变量
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to load .env file: %v", err)
	}
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if cfg.Auth.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET is required")
	}

	// prepare database
	var db *gorm.DB
	for i := range dbMaxRetry {
		db, err = gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			logrus.Warnf("failed to open connection to database (attempt %d/%d): %v", i+1, dbMaxRetry, err)
		} else {
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				err = dbErr
				logrus.Warnf("failed to get sql.DB from gorm.DB (attempt %d/%d): %v", i+1, dbMaxRetry, err)
				continue
			}
			if err = sqlDB.Ping(); err == nil {
				break
			}
			logrus.Warnf("failed to ping database (attempt %d/%d): %v", i+1, dbMaxRetry, err)
			_ = sqlDB.Close()
		}

		time.Sleep(dbRetryIntervalSec * time.Second)
	}
	if err != nil {
		logrus.Fatalf("could not connect to database after retries: %v", err)
	}
	defer func() {
		sqlDB, err := db.DB()
		if err != nil {
			logrus.Errorf("got error when getting sql.DB from gorm.DB: %v", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			logrus.Errorf("got error when closing the DB connection: %v", err)
		}
	}()

	// prepare cache
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Addr(),
		Password: cfg.Cache.Pass,
		DB:       cfg.Cache.DB,
	})
	defer func() {
		if err := client.Close(); err != nil {
			logrus.Errorf("got error when closing the cache connection: %v", err)
		}
	}()
	if err := client.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("failed to open connection to cache: %v", err)
	}

	node, err := snowflake.NewNode(cfg.Server.SnowflakeNode)
	if err != nil {
		logrus.Fatalf("invalid snowflake node %d: %v", cfg.Server.SnowflakeNode, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Comment相关的三层架构
	// 1. DB层
	commentStore := mysqlRepo.NewCommentStore(db, node, cfg.Database.Timeout())
	if err := commentStore.EnsureSchema(ctx); err != nil {
		logrus.Fatalf("failed to prepare comment table: %v", err)
	}
	// 2. Cache层
	commentCache := myRedisCache.NewCommentCache(client)
	bloomRepo := myRedisCache.NewCommentBloom(client, cfg.Cache.BloomBitSize, cfg.Cache.BloomHashes)
	// 3. Repository协调层
	commentRepo := repository.NewCommentRepository(commentStore, commentCache, bloomRepo)

	// Prepare bloom filter
	if err := commentRepo.InitBloomFilter(ctx); err != nil {
		logrus.Fatalf("failed to init bloom filter: %v", err)
	}

	// Start worker
	if cfg.Cache.BloomReseed != "" {
		reseeder, err := workers.NewBloomReseedWorker(commentRepo, cfg.Cache.BloomReseed)
		if err != nil {
			logrus.Fatalf("failed to schedule bloom reseed: %v", err)
		}
		go reseeder.Start(ctx)
	}

	publisher := myRedisCache.NewEventPublisher(client, cfg.Events.Channel)
	dispatcher := workers.NewEventDispatchWorker(publisher, cfg.Events.BufferSize, m)
	go dispatcher.Start(ctx)

	hub := realtime.NewHub(cfg.Server.AllowedOrigins, m)
	go func() {
		err := myRedisCache.Subscribe(ctx, client, cfg.Events.Channel, func(em myRedisCache.EventMessage) {
			hub.Broadcast(em.PostID, response.NewEventFrame(em.Event, em.CommentID, em.PostID, em.Comment))
		})
		if err != nil {
			logrus.Errorf("comment event subscription stopped: %v", err)
		}
	}()

	// Build service Layer
	commentSvc := comment.NewService(commentRepo, dispatcher, m)
	commentHandler := rest.NewCommentHandler(commentSvc)

	// prepare gin
	gin.SetMode(gin.ReleaseMode)
	route := gin.New()
	route.Use(gin.Recovery())
	route.Use(middleware.Logger(m))
	route.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	route.Use(middleware.SetRequestContextWithTimeout(cfg.Server.RequestTimeout()))

	// Register routes
	rest.RegisterCommentRoutes(route, commentHandler, middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	route.GET("/ws", hub.ServeWS)
	route.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Start Server
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: route,
	}
	go func() {
		logrus.Infof("Server is running on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("listen: %s", err)
		}
	}()

	// shutdown
	<-ctx.Done()
	logrus.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	hub.Close()

	logrus.Info("Waiting for worker to cleanup...")
	time.Sleep(2 * time.Second)

	logrus.Info("Server exiting")
}
