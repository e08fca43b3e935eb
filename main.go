// @title           Looking HTTP Service API
// @version         1.0
// @description     设备锁屏状态与屏幕使用时长监控服务，支持保活超时自动锁定
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.yourcompany.com/support
// @contact.email  support@yourcompany.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/huanxin996/looking-http-service/config"
	"github.com/huanxin996/looking-http-service/routes"
	"github.com/huanxin996/looking-http-service/services"
	"github.com/huanxin996/looking-http-service/services/container"
)

func main() {
	// 初始化日志配置
	if err := config.SetupLogger(); err != nil {
		fmt.Printf("初始化日志配置失败: %v\n", err)
		os.Exit(1)
	}
	defer config.Sync()

	// 加载.env文件
	if err := godotenv.Load(); err != nil {
		config.Warning("无法加载.env文件: %v", err)
		// 即使加载失败也继续执行，可能环境变量已经通过其他方式设置
	} else {
		config.Info("成功加载.env文件")
	}

	// 获取配置
	cfg := config.GetConfig()

	// 初始化存储
	store, err := initStore(cfg)
	if err != nil {
		config.Error("无法初始化存储: %v", err)
		os.Exit(1)
	}

	// 创建服务容器
	serviceContainer := container.NewServiceContainer(cfg, store)

	// 启动保活监控
	aliveService := serviceContainer.GetAliveService()
	aliveService.Start()

	// 初始化路由
	r := routes.SetupRouter(serviceContainer, cfg)

	port := cfg.ServerPort
	if port == "" {
		port = "8080" // 默认端口
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 启动服务器
	go func() {
		config.Info("服务器启动在: http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			config.Error("启动服务器失败: %v", err)
			os.Exit(1)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	config.Info("收到退出信号，正在关闭服务器...")

	// 先停保活监控，再关HTTP服务
	aliveService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		config.Error("服务器关闭失败: %v", err)
	}

	if err := store.Close(); err != nil {
		config.Warning("关闭存储失败: %v", err)
	}
	config.Info("服务器已退出")
}

// initStore 根据配置初始化KV存储后端
func initStore(cfg *config.Config) (services.InterfaceKVStore, error) {
	clock := services.NewBeijingClock()

	switch cfg.StoreDriver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			// 连接失败不阻断启动，请求时会重试
			config.Warning("Redis连接检查失败: %v", err)
		} else {
			config.Info("Redis连接成功: %s", cfg.GetRedisAddr())
		}
		return services.NewRedisKVStore(client), nil
	default:
		store, err := services.NewGormKVStore(cfg, clock)
		if err != nil {
			return nil, fmt.Errorf("初始化数据库存储失败: %w", err)
		}
		config.Info("数据库存储初始化成功, 驱动: %s", cfg.StoreDriver)
		return store, nil
	}
}
