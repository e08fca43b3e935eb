package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/huanxin996/looking-http-service/config"
	"github.com/huanxin996/looking-http-service/controllers"
	"github.com/huanxin996/looking-http-service/middleware"
	"github.com/huanxin996/looking-http-service/services/container"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(serviceContainer *container.ServiceContainer, cfg *config.Config) *gin.Engine {
	// 初始化 Gin
	r := gin.Default()

	// 添加 CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Accept, Origin, Cache-Control, X-Requested-With, x-signature, x-device-id, x-event-type, x-timestamp")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
	// 设置正确的Content-Type，确保UTF-8编码
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		c.Next()
	})
	// 添加 Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 注册路由
	registerRoutes(r, serviceContainer)
	return r
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	// API 路由根路径
	api := r.Group("/api")
	// 设备监控路由
	registerLookingRoutes(api, container)
	// 保活监控路由
	registerAliveRoutes(api, container)
}

// registerLookingRoutes 注册设备监控路由
func registerLookingRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 健康检查
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	looking := api.Group("/looking")
	// 上报接口校验设备签名，校验结果随响应返回
	looking.Use(middleware.DeviceSignature())

	looking.POST("/device-event", controllers.HandleDeviceFunc(container, "deviceEvent"))
	looking.POST("/keep-alive", controllers.HandleDeviceFunc(container, "keepAlive"))
	looking.POST("/device-status", controllers.HandleDeviceFunc(container, "deviceStatus"))
	looking.GET("/device-summary/:device_id", controllers.HandleDeviceFunc(container, "deviceSummary"))
	looking.GET("/device-list", controllers.HandleDeviceFunc(container, "deviceList"))
	looking.GET("/device-status/:device_id", controllers.HandleDeviceFunc(container, "latestDeviceStatus"))
}

// registerAliveRoutes 注册保活监控路由
func registerAliveRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	alive := api.Group("/alive")

	alive.GET("/status", controllers.HandleAliveFunc(container, "getStatus"))
	alive.GET("/device/:device_id", controllers.HandleAliveFunc(container, "getDeviceAliveInfo"))
	alive.POST("/check/:device_id", controllers.HandleAliveFunc(container, "forceCheck"))
	alive.POST("/configure", controllers.HandleAliveFunc(container, "configure"))
}
