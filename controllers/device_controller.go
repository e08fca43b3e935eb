package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/huanxin996/looking-http-service/config"
	"github.com/huanxin996/looking-http-service/internal/error/code"
	"github.com/huanxin996/looking-http-service/internal/error/response"
	"github.com/huanxin996/looking-http-service/middleware"
	"github.com/huanxin996/looking-http-service/services"
	"github.com/huanxin996/looking-http-service/services/container"
)

// InterfaceDeviceController 定义设备监控控制器接口
type InterfaceDeviceController interface {
	DeviceEvent()
	KeepAlive()
	DeviceSummary()
	DeviceList()
	DeviceStatus()
	LatestDeviceStatus()
}

// DeviceController 处理设备锁屏事件与状态上报相关的请求
type DeviceController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewDeviceController 创建一个新的设备监控控制器
func NewDeviceController(ctx *gin.Context, container *container.ServiceContainer) *DeviceController {
	return &DeviceController{
		Ctx:       ctx,
		Container: container,
	}
}

// DeviceEventRequest 设备锁屏事件请求
type DeviceEventRequest struct {
	EventType   string `json:"event_type" binding:"required" example:"lock_event"`
	Timestamp   int64  `json:"timestamp" binding:"required" example:"1756709200000"` // 毫秒
	Date        string `json:"date" example:"2025-09-01"`
	Action      string `json:"action" binding:"required" example:"android.intent.action.SCREEN_UNLOCKED"`
	Description string `json:"description" example:"用户解锁屏幕"`
}

// KeepAliveRequest 保活请求
type KeepAliveRequest struct {
	Live int `json:"live" example:"1"`
}

// HandleDeviceFunc 返回一个处理设备监控请求的Gin处理函数
func HandleDeviceFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewDeviceController(ctx, container)

		switch method {
		case "deviceEvent":
			controller.DeviceEvent()
		case "keepAlive":
			controller.KeepAlive()
		case "deviceSummary":
			controller.DeviceSummary()
		case "deviceList":
			controller.DeviceList()
		case "deviceStatus":
			controller.DeviceStatus()
		case "latestDeviceStatus":
			controller.LatestDeviceStatus()
		default:
			response.Fail(ctx, code.ErrValidation, nil)
		}
	}
}

func (c *DeviceController) deviceStatusService() services.InterfaceDeviceStatusService {
	return c.Container.GetService("device_status").(services.InterfaceDeviceStatusService)
}

func (c *DeviceController) aliveService() services.InterfaceAliveService {
	return c.Container.GetService("alive").(services.InterfaceAliveService)
}

// headerDeviceID 读取请求头中的设备ID，缺失时返回Unknown
func (c *DeviceController) headerDeviceID() string {
	deviceID := c.Ctx.GetHeader("x-device-id")
	if deviceID == "" {
		return "Unknown"
	}
	return deviceID
}

// logDeviceInfo 记录请求头中的设备信息
func (c *DeviceController) logDeviceInfo() {
	h := c.Ctx.GetHeader
	config.Info("设备信息 - 型号: %s, 品牌: %s, Android版本: %s, SDK版本: %s, 应用版本: %s",
		orUnknown(h("x-device-model")), orUnknown(h("x-device-brand")),
		orUnknown(h("x-android-version")), orUnknown(h("x-sdk-int")),
		orUnknown(h("x-app-version")))
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}

// 1. DeviceEvent 接收设备锁屏事件
// @Summary 接收设备锁屏事件
// @Description 接收lock_event类型的锁屏/解锁事件，维护设备状态并按北京时间累计亮屏时长
// @Tags looking
// @Accept json
// @Produce json
// @Param event body DeviceEventRequest true "事件内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /looking/device-event [post]
func (c *DeviceController) DeviceEvent() {
	var req DeviceEventRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err)
		return
	}

	if req.EventType != "lock_event" {
		config.Warning("未知事件类型: %s", req.EventType)
		response.FailWithMessage(c.Ctx, code.ErrEventTypeInvalid, "未知事件类型: "+req.EventType, nil)
		return
	}

	deviceID := c.headerDeviceID()

	// header与body不一致仅告警，以body为准
	if headerType := c.Ctx.GetHeader("x-event-type"); headerType != "" && headerType != req.EventType {
		config.Warning("Header中的事件类型(%s)与Body中的事件类型(%s)不一致", headerType, req.EventType)
	}
	if headerTs := c.Ctx.GetHeader("x-timestamp"); headerTs != "" {
		if ts, err := strconv.ParseInt(headerTs, 10, 64); err == nil && ts != req.Timestamp {
			config.Warning("Header中的时间戳(%d)与Body中的时间戳(%d)不一致", ts, req.Timestamp)
		}
	}

	if deviceID != "Unknown" {
		if err := c.deviceStatusService().ApplyEvent(deviceID, req.Action, req.Timestamp); err != nil {
			config.Error("处理设备事件失败: %s: %v", deviceID, err)
			response.FailWithMessage(c.Ctx, code.ErrDatabase, "处理设备事件失败: "+err.Error(), nil)
			return
		}
	}

	var summary interface{}
	if deviceID != "Unknown" {
		if s, err := c.deviceStatusService().Summarize(deviceID); err == nil {
			summary = s
			config.Info("设备摘要: %s - 今日亮屏 %s", deviceID, s.TodaySummary.FormattedScreenTime)
		}
	}

	c.logDeviceInfo()

	clock := c.Container.GetService("clock").(services.InterfaceClock)
	response.Success(c.Ctx, gin.H{
		"event_type":            req.EventType,
		"processed_at":          services.DatetimeStr(clock.Now()),
		"processed_at_timezone": "Asia/Shanghai",
		"timestamp":             req.Timestamp,
		"device_id":             deviceID,
		"signature_verified":    middleware.IsSignatureVerified(c.Ctx),
		"action":                req.Action,
		"description":           req.Description,
		"summary":               summary,
	})
}

// 2. KeepAlive 接收设备保活请求
// @Summary 接收设备保活请求
// @Description 记录设备最后活跃时间并登记为活跃设备
// @Tags looking
// @Accept json
// @Produce json
// @Param body body KeepAliveRequest true "保活内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /looking/keep-alive [post]
func (c *DeviceController) KeepAlive() {
	if eventType := c.Ctx.GetHeader("x-event-type"); eventType != "keep_alive" {
		response.FailWithMessage(c.Ctx, code.ErrEventTypeInvalid, "保活请求事件类型必须为keep_alive", nil)
		return
	}

	var req KeepAliveRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err)
		return
	}

	deviceID := c.headerDeviceID()
	clock := c.Container.GetService("clock").(services.InterfaceClock)
	config.Info("收到保活请求 - 设备ID: %s, 时间: %s", deviceID, services.DatetimeStr(clock.Now()))

	if err := c.deviceStatusService().UpdateKeepAlive(deviceID); err != nil {
		config.Error("处理保活请求失败: %s: %v", deviceID, err)
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "处理保活请求失败: "+err.Error(), nil)
		return
	}
	c.aliveService().RegisterAliveDevice(deviceID)

	response.Success(c.Ctx, gin.H{
		"device_id":          deviceID,
		"server_time":        services.DatetimeStr(clock.Now()),
		"timezone":           "Asia/Shanghai",
		"signature_verified": middleware.IsSignatureVerified(c.Ctx),
	})
}

// 3. DeviceSummary 获取指定设备的使用摘要
// @Summary 获取设备使用摘要
// @Description 基于北京时间返回当日亮屏时长、事件计数与当前会话时长
// @Tags looking
// @Produce json
// @Param device_id path string true "设备ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /looking/device-summary/{device_id} [get]
func (c *DeviceController) DeviceSummary() {
	deviceID := c.Ctx.Param("device_id")
	if !c.deviceStatusService().HasDevice(deviceID) {
		response.FailWithMessage(c.Ctx, code.ErrDeviceNotFound, "设备 "+deviceID+" 未找到记录", nil)
		return
	}

	summary, err := c.deviceStatusService().Summarize(deviceID)
	if err != nil {
		config.Error("获取设备摘要失败: %s: %v", deviceID, err)
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "获取设备摘要失败: "+err.Error(), nil)
		return
	}

	clock := c.Container.GetService("clock").(services.InterfaceClock)
	response.Success(c.Ctx, gin.H{
		"summary":              summary,
		"current_beijing_time": services.DatetimeStr(clock.Now()),
		"timezone":             "Asia/Shanghai",
	})
}

// 4. DeviceList 获取所有设备列表
// @Summary 获取所有设备列表
// @Description 枚举所有出现过的设备ID
// @Tags looking
// @Produce json
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /looking/device-list [get]
func (c *DeviceController) DeviceList() {
	deviceIDs, err := c.deviceStatusService().ListDeviceIDs()
	if err != nil {
		config.Error("获取设备列表失败: %v", err)
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "获取设备列表失败: "+err.Error(), nil)
		return
	}
	if len(deviceIDs) == 0 {
		response.FailWithMessage(c.Ctx, code.ErrDeviceNotFound, "没有找到任何设备记录", nil)
		return
	}

	clock := c.Container.GetService("clock").(services.InterfaceClock)
	response.Success(c.Ctx, gin.H{
		"device_count":         len(deviceIDs),
		"device_list":          deviceIDs,
		"current_beijing_time": services.DatetimeStr(clock.Now()),
		"timezone":             "Asia/Shanghai",
	})
}

// 5. DeviceStatus 接收设备状态信息
// @Summary 接收设备状态信息
// @Description 存储设备上报的运行状态快照（网络、电池、前台应用等）
// @Tags looking
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /looking/device-status [post]
func (c *DeviceController) DeviceStatus() {
	if eventType := c.Ctx.GetHeader("x-event-type"); eventType != "device_status" {
		response.FailWithMessage(c.Ctx, code.ErrEventTypeInvalid, "设备状态请求事件类型必须为device_status", nil)
		return
	}

	var payload map[string]interface{}
	if err := c.Ctx.ShouldBindJSON(&payload); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "请求体JSON格式错误", nil)
		return
	}

	// 必要字段校验
	for _, field := range []string{"timestamp", "device_id"} {
		if _, ok := payload[field]; !ok {
			config.Warning("设备状态数据缺少必要字段: %s", field)
			response.Fail(c.Ctx, code.ErrEventDataInvalid, nil)
			return
		}
	}

	deviceID := c.headerDeviceID()

	var snapshotSummary interface{}
	if deviceID != "Unknown" {
		if err := c.deviceStatusService().StoreStatusSnapshot(deviceID, payload); err != nil {
			config.Error("存储设备状态失败: %s: %v", deviceID, err)
			response.FailWithMessage(c.Ctx, code.ErrDatabase, "处理设备状态失败: "+err.Error(), nil)
			return
		}
		snapshotSummary = c.deviceStatusService().FormatSnapshotSummary(payload)
	}

	c.logDeviceInfo()

	clock := c.Container.GetService("clock").(services.InterfaceClock)
	response.Success(c.Ctx, gin.H{
		"device_id":             deviceID,
		"processed_at":          services.DatetimeStr(clock.Now()),
		"processed_at_timezone": "Asia/Shanghai",
		"signature_verified":    middleware.IsSignatureVerified(c.Ctx),
		"status_summary":        snapshotSummary,
	})
}

// 6. LatestDeviceStatus 获取指定设备的最新状态信息
// @Summary 获取设备最新状态
// @Description 返回设备最近一次上报的状态快照与摘要
// @Tags looking
// @Produce json
// @Param device_id path string true "设备ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /looking/device-status/{device_id} [get]
func (c *DeviceController) LatestDeviceStatus() {
	deviceID := c.Ctx.Param("device_id")
	if !c.deviceStatusService().HasDevice(deviceID) {
		response.FailWithMessage(c.Ctx, code.ErrDeviceNotFound, "设备 "+deviceID+" 未找到记录", nil)
		return
	}

	latest, err := c.deviceStatusService().GetLatestSnapshot(deviceID)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDeviceStatusNotFound, "设备 "+deviceID+" 未找到状态记录", nil)
		return
	}

	clock := c.Container.GetService("clock").(services.InterfaceClock)
	response.Success(c.Ctx, gin.H{
		"device_id":            deviceID,
		"latest_status":        latest,
		"status_summary":       c.deviceStatusService().FormatSnapshotSummary(latest),
		"current_beijing_time": services.DatetimeStr(clock.Now()),
		"timezone":             "Asia/Shanghai",
	})
}
