package container

import (
	"sync"

	"github.com/huanxin996/looking-http-service/config"
	"github.com/huanxin996/looking-http-service/services"
)

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	config *config.Config
	store  services.InterfaceKVStore
	clock  services.InterfaceClock

	// 业务服务
	deviceStatusService services.InterfaceDeviceStatusService
	aliveService        services.InterfaceAliveService

	// MQTT事件接入（可选）
	mqttEventService services.InterfaceMQTTEventService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器
func NewServiceContainer(cfg *config.Config, store services.InterfaceKVStore) *ServiceContainer {
	if cfg == nil {
		panic("配置为空")
	}
	if store == nil {
		panic("存储为空")
	}

	container := &ServiceContainer{
		config: cfg,
		store:  store,
		clock:  services.NewBeijingClock(),
	}
	container.initializeServices()
	return container
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	repo := services.NewDeviceRepository(c.store, c.clock)

	// 初始化业务服务
	c.deviceStatusService = services.NewDeviceStatusService(repo, c.clock)
	c.aliveService = services.NewAliveService(c.deviceStatusService, repo, c.clock, c.config)

	// 初始化MQTT事件接入
	if c.config.MQTTBrokerURL != "" {
		c.mqttEventService = services.NewMQTTEventService(c.config, c.deviceStatusService, c.aliveService)
		if err := c.mqttEventService.Connect(); err != nil {
			config.Warning("MQTT服务连接失败: %v", err)
		}
	}
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "store":
		return c.store
	case "clock":
		return c.clock
	case "device_status":
		return c.deviceStatusService
	case "alive":
		return c.aliveService
	case "mqtt_event":
		return c.mqttEventService
	default:
		return nil
	}
}

// GetDeviceStatusService 获取设备状态服务
func (c *ServiceContainer) GetDeviceStatusService() services.InterfaceDeviceStatusService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceStatusService
}

// GetAliveService 获取保活监控服务
func (c *ServiceContainer) GetAliveService() services.InterfaceAliveService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aliveService
}

// GetMQTTEventService 获取MQTT事件接入服务，未启用时返回nil
func (c *ServiceContainer) GetMQTTEventService() services.InterfaceMQTTEventService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttEventService
}
