// Package main 是服务端的入口点
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chuan-dai/internal/cache"
	"chuan-dai/internal/config"
	"chuan-dai/internal/events"
	"chuan-dai/internal/handler"
	"chuan-dai/internal/middleware"
	"chuan-dai/internal/repository"
	"chuan-dai/internal/seed"
	"chuan-dai/internal/service"
	"chuan-dai/internal/storage"
	"chuan-dai/internal/websocket"
	"chuan-dai/pkg/jwt"
	"chuan-dai/pkg/logger"
	"chuan-dai/pkg/validate"
)

const (
	janitorInterval      = time.Minute
	sessionPurgeInterval = time.Hour
)

func main() {
	// 加载配置
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zlog, err := logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	validate.Setup()

	// 初始化数据库并迁移
	db, err := repository.OpenDatabase(cfg)
	if err != nil {
		zap.L().Fatal("failed to init database", zap.Error(err))
	}
	if err := repository.AutoMigrate(db); err != nil {
		zap.L().Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 初始化 Repository 层
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	dishRepo := repository.NewDishRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	gatheringRepo := repository.NewGatheringRepository(db)

	if cfg.Seed.Dishes {
		n, err := seed.Dishes(ctx, dishRepo)
		if err != nil {
			zap.L().Fatal("failed to seed dishes", zap.Error(err))
		}
		if n > 0 {
			zap.L().Info("seeded dishes", zap.Int("count", n))
		}
	}

	// 初始化键值存储
	store, redisCache, err := initStore(ctx, cfg)
	if err != nil {
		zap.L().Fatal("failed to init cache", zap.Error(err))
	}

	// 初始化图片存储
	objects, err := storage.New(cfg.Storage)
	if err != nil {
		zap.L().Fatal("failed to init storage", zap.Error(err))
	}

	// 初始化后厨事件发布
	publisher, err := events.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		zap.L().Fatal("failed to connect rabbitmq", zap.Error(err))
	}

	// 初始化 WebSocket Hub
	// 配置 Redis 时通知经由频道广播到所有实例
	wsHub := websocket.NewHub(redisCache)
	go wsHub.Run(ctx)
	if err := wsHub.StartBroker(ctx); err != nil {
		zap.L().Fatal("failed to subscribe notifications", zap.Error(err))
	}

	// 初始化 JWT 服务
	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpire,
		cfg.JWT.RefreshExpire,
	)

	// 初始化 Service 层
	sessionService := service.NewSessionService(sessionRepo, cfg.Session.TTL)
	otpService := service.NewOTPService(store, service.LogSMSSender{}, cfg.OTP.TTL, cfg.OTP.ResendInterval)
	authService := service.NewAuthService(userRepo, sessionService, otpService, store, jwtService)
	userService := service.NewUserService(userRepo, sessionService)
	dishService := service.NewDishService(dishRepo)
	orderService := service.NewOrderService(orderRepo, dishRepo, userRepo, gatheringRepo, publisher, wsHub)
	photoService := service.NewPhotoService(photoRepo, userRepo, gatheringRepo, objects, wsHub, cfg.Storage)
	gatheringService := service.NewGatheringService(gatheringRepo)

	go purgeSessions(ctx, sessionService)

	auth := middleware.NewAuthenticator(
		sessionService,
		jwtService,
		authService,
		cfg.Session.CookieName,
		cfg.Server.IsRelease(),
	)

	// 设置 Gin 模式
	if cfg.Server.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	router := gin.New()

	// 全局中间件
	router.Use(middleware.RecoveryMiddleware())            // 恢复 panic
	router.Use(middleware.LoggerMiddleware())              // 请求日志
	router.Use(middleware.CORSMiddleware(cfg.Server.CORS)) // CORS

	// 注册路由
	handler.RegisterRoutes(router, &handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, auth),
		User:      handler.NewUserHandler(userService),
		Dish:      handler.NewDishHandler(dishService),
		Order:     handler.NewOrderHandler(orderService),
		Photo:     handler.NewPhotoHandler(photoService),
		Gathering: handler.NewGatheringHandler(gatheringService),
		Upload:    handler.NewUploadHandler(photoService, auth),
	}, auth)
	websocket.NewHandler(wsHub, auth, cfg.Server.CORS).RegisterRoutes(router)

	// local 驱动的图片由服务端直接提供
	if local, ok := objects.(*storage.LocalStorage); ok {
		router.Static("/uploads", local.Dir())
	}

	// 创建 HTTP 服务器
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // 上传接口携带 base64 图片
	}

	// 在 goroutine 中启动服务器
	go func() {
		zap.L().Info("server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server failed", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server forced to shutdown", zap.Error(err))
	}
	stop()

	if err := publisher.Close(); err != nil {
		zap.L().Warn("failed to close publisher", zap.Error(err))
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			zap.L().Warn("failed to close redis", zap.Error(err))
		}
	}

	zap.L().Info("server exited")
}

// initStore 按配置选择键值存储
// 返回的 RedisCache 在 memory 模式下为 nil
func initStore(ctx context.Context, cfg *config.Config) (cache.Store, *cache.RedisCache, error) {
	if cfg.Cache.Driver == "redis" {
		redisCache, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisCache, redisCache, nil
	}

	if cfg.Server.IsRelease() {
		zap.L().Warn("using in-memory cache, OTP and token blacklist are not shared between instances")
	}
	memory := cache.NewMemoryStore()
	go memory.RunJanitor(ctx, janitorInterval)
	return memory, nil, nil
}

// purgeSessions 定期删除过期会话
func purgeSessions(ctx context.Context, sessions *service.SessionService) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				zap.L().Warn("purge sessions failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Info("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}
