package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/huanxin996/looking-http-service/config"
)

const (
	lockEventTopic = "devices/+/lock_event"
	keepAliveTopic = "devices/+/keep_alive"
)

// InterfaceMQTTEventService MQTT事件接入服务接口
type InterfaceMQTTEventService interface {
	Connect() error
	Disconnect()
	IsConnected() bool
}

// mqttEventPayload 设备经MQTT上报的锁屏事件载荷
type mqttEventPayload struct {
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

// MQTTEventService 订阅设备锁屏事件与保活主题，汇入与webhook相同的处理入口
type MQTTEventService struct {
	client        mqtt.Client
	deviceService InterfaceDeviceStatusService
	aliveService  InterfaceAliveService
	cfg           *config.Config
}

// NewMQTTEventService 创建MQTT事件接入服务
func NewMQTTEventService(cfg *config.Config, deviceService InterfaceDeviceStatusService, aliveService InterfaceAliveService) InterfaceMQTTEventService {
	s := &MQTTEventService{
		deviceService: deviceService,
		aliveService:  aliveService,
		cfg:           cfg,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID(cfg.MQTTClientID).
		SetUsername(cfg.MQTTUsername).
		SetPassword(cfg.MQTTPassword).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			config.Warning("MQTT连接断开: %v", err)
		}).
		SetOnConnectHandler(func(client mqtt.Client) {
			config.Info("MQTT连接成功，订阅设备事件主题")
			s.subscribe(client)
		})

	s.client = mqtt.NewClient(opts)
	return s
}

// Connect 连接MQTT服务器
func (s *MQTTEventService) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("MQTT连接超时")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT连接失败: %w", err)
	}
	return nil
}

// Disconnect 断开MQTT连接
func (s *MQTTEventService) Disconnect() {
	s.client.Disconnect(250)
}

// IsConnected 当前是否已连接
func (s *MQTTEventService) IsConnected() bool {
	return s.client.IsConnected()
}

func (s *MQTTEventService) subscribe(client mqtt.Client) {
	if token := client.Subscribe(lockEventTopic, 1, s.handleLockEvent); token.Wait() && token.Error() != nil {
		config.Error("订阅 %s 失败: %v", lockEventTopic, token.Error())
	}
	if token := client.Subscribe(keepAliveTopic, 1, s.handleKeepAlive); token.Wait() && token.Error() != nil {
		config.Error("订阅 %s 失败: %v", keepAliveTopic, token.Error())
	}
}

// deviceIDFromTopic 从 devices/<id>/<event> 主题中提取设备ID
func deviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

func (s *MQTTEventService) handleLockEvent(_ mqtt.Client, msg mqtt.Message) {
	deviceID := deviceIDFromTopic(msg.Topic())
	if deviceID == "" {
		config.Warning("无法从主题解析设备ID: %s", msg.Topic())
		return
	}

	var payload mqttEventPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		config.Warning("解析MQTT事件载荷失败: %s: %v", deviceID, err)
		return
	}

	if err := s.deviceService.ApplyEvent(deviceID, payload.Action, payload.Timestamp); err != nil {
		config.Error("处理MQTT设备事件失败: %s: %v", deviceID, err)
	}
}

func (s *MQTTEventService) handleKeepAlive(_ mqtt.Client, msg mqtt.Message) {
	deviceID := deviceIDFromTopic(msg.Topic())
	if deviceID == "" {
		config.Warning("无法从主题解析设备ID: %s", msg.Topic())
		return
	}

	if err := s.deviceService.UpdateKeepAlive(deviceID); err != nil {
		config.Error("处理MQTT保活失败: %s: %v", deviceID, err)
		return
	}
	s.aliveService.RegisterAliveDevice(deviceID)
}
