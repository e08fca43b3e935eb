package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/huanxin996/looking-http-service/config"
	"github.com/huanxin996/looking-http-service/internal/error/code"
	"github.com/huanxin996/looking-http-service/internal/error/response"
	"github.com/huanxin996/looking-http-service/services"
	"github.com/huanxin996/looking-http-service/services/container"
)

// InterfaceAliveController 定义保活监控控制器接口
type InterfaceAliveController interface {
	GetStatus()
	GetDeviceAliveInfo()
	ForceCheck()
	Configure()
}

// AliveController 处理保活监控器相关的请求
type AliveController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAliveController 创建一个新的保活监控控制器
func NewAliveController(ctx *gin.Context, container *container.ServiceContainer) *AliveController {
	return &AliveController{
		Ctx:       ctx,
		Container: container,
	}
}

// ConfigureRequest 保活监控器配置请求
type ConfigureRequest struct {
	CheckInterval *int `json:"check_interval" example:"60"`
	AliveTimeout  *int `json:"alive_timeout" example:"301"`
}

// HandleAliveFunc 返回一个处理保活监控请求的Gin处理函数
func HandleAliveFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAliveController(ctx, container)

		switch method {
		case "getStatus":
			controller.GetStatus()
		case "getDeviceAliveInfo":
			controller.GetDeviceAliveInfo()
		case "forceCheck":
			controller.ForceCheck()
		case "configure":
			controller.Configure()
		default:
			response.Fail(ctx, code.ErrValidation, nil)
		}
	}
}

func (c *AliveController) aliveService() services.InterfaceAliveService {
	return c.Container.GetService("alive").(services.InterfaceAliveService)
}

// 1. GetStatus 获取保活监控器运行状态
// @Summary 获取保活监控器状态
// @Description 返回监控器运行参数与当前活跃设备集合
// @Tags alive
// @Produce json
// @Success 200 {object} response.Response
// @Router /alive/status [get]
func (c *AliveController) GetStatus() {
	status := c.aliveService().GetStatus()
	response.Success(c.Ctx, status)
}

// 2. GetDeviceAliveInfo 获取指定设备的保活信息
// @Summary 获取设备保活信息
// @Description 返回设备最后保活时间与距今秒数
// @Tags alive
// @Produce json
// @Param device_id path string true "设备ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /alive/device/{device_id} [get]
func (c *AliveController) GetDeviceAliveInfo() {
	deviceID := c.Ctx.Param("device_id")
	info, err := c.aliveService().GetDeviceAliveInfo(deviceID)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDeviceNotFound, "设备 "+deviceID+" 未找到记录", nil)
		return
	}
	response.Success(c.Ctx, info)
}

// 3. ForceCheck 立即对指定设备执行一次保活检查
// @Summary 强制检查设备保活状态
// @Description 立即执行一次保活超时判定，超时且未锁定的设备会被自动锁定
// @Tags alive
// @Produce json
// @Param device_id path string true "设备ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /alive/check/{device_id} [post]
func (c *AliveController) ForceCheck() {
	deviceID := c.Ctx.Param("device_id")
	result, err := c.aliveService().ForceCheckDevice(deviceID)
	if err != nil {
		config.Warning("强制检查设备失败: %s: %v", deviceID, err)
		response.FailWithMessage(c.Ctx, code.ErrMonitorCheckFailed, "检查设备失败: "+err.Error(), nil)
		return
	}
	response.Success(c.Ctx, result)
}

// 4. Configure 更新保活监控器参数
// @Summary 配置保活监控器
// @Description 在线调整检查间隔与保活超时，低于最小值的参数会被拒绝
// @Tags alive
// @Accept json
// @Produce json
// @Param config body ConfigureRequest true "配置内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /alive/configure [post]
func (c *AliveController) Configure() {
	var req ConfigureRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(c.Ctx, err)
		return
	}
	if req.CheckInterval == nil && req.AliveTimeout == nil {
		response.Fail(c.Ctx, code.ErrMonitorConfigInvalid, nil)
		return
	}

	result := c.aliveService().Configure(req.CheckInterval, req.AliveTimeout)
	response.Success(c.Ctx, gin.H{
		"result": result,
		"status": c.aliveService().GetStatus(),
	})
}
