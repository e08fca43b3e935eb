package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huanxin996/looking-http-service/config"
	"github.com/huanxin996/looking-http-service/models"
)

// AutoLockAction 保活超时触发的合成锁定动作
const AutoLockAction = "auto_locked_by_alive_timeout"

const (
	defaultCheckInterval = 60  // 默认检查间隔（秒）
	defaultAliveTimeout  = 301 // 默认保活超时（秒）
	minCheckInterval     = 10
	minAliveTimeout      = 30

	stopJoinTimeout = 5 * time.Second
	errorRetryDelay = 5 * time.Second
)

// InterfaceAliveService 保活监控服务接口
type InterfaceAliveService interface {
	Start()
	Stop()
	RegisterAliveDevice(deviceID string)
	ForceCheckDevice(deviceID string) (*models.AliveCheckResult, error)
	GetStatus() *models.AliveStatus
	GetDeviceAliveInfo(deviceID string) (*models.DeviceAliveInfo, error)
	SetCheckInterval(seconds int) bool
	SetAliveTimeout(seconds int) bool
	Configure(checkInterval, aliveTimeout *int) models.ConfigureResult
}

// AliveService 保活连接监控器。
// 唯一的后台协程周期性扫描所有设备，保活超时且处于解锁状态的设备
// 通过与webhook相同的状态机入口合成auto_locked事件完成自动锁定。
type AliveService struct {
	deviceService InterfaceDeviceStatusService
	repo          *DeviceRepository
	clock         InterfaceClock

	mu            sync.Mutex // 保护运行状态与参数
	running       bool
	checkInterval int
	aliveTimeout  int
	stopCh        chan struct{}
	doneCh        chan struct{}

	// 活跃设备集合仅用于状态上报，不参与超时判定
	aliveMu      sync.Mutex
	aliveDevices map[string]struct{}
}

// NewAliveService 创建保活监控器
func NewAliveService(deviceService InterfaceDeviceStatusService, repo *DeviceRepository, clock InterfaceClock, cfg *config.Config) InterfaceAliveService {
	checkInterval := defaultCheckInterval
	aliveTimeout := defaultAliveTimeout
	if cfg != nil {
		if cfg.AliveCheckInterval >= minCheckInterval {
			checkInterval = cfg.AliveCheckInterval
		}
		if cfg.AliveTimeout >= minAliveTimeout {
			aliveTimeout = cfg.AliveTimeout
		}
	}

	config.Info("保活管理器初始化完成")
	return &AliveService{
		deviceService: deviceService,
		repo:          repo,
		clock:         clock,
		checkInterval: checkInterval,
		aliveTimeout:  aliveTimeout,
		aliveDevices:  make(map[string]struct{}),
	}
}

// Start 启动保活检查服务，重复调用为no-op
func (s *AliveService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		config.Warning("保活管理器已经在运行中")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	interval, timeout := s.checkInterval, s.aliveTimeout
	s.mu.Unlock()

	go s.runCheckLoop(stopCh, doneCh)
	config.Info("保活管理器启动成功 - 检查间隔: %d秒, 超时阈值: %d秒", interval, timeout)
}

// Stop 停止保活检查服务，等待后台协程退出（最多5秒）
func (s *AliveService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		config.Warning("保活管理器未在运行")
		return
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	select {
	case <-doneCh:
	case <-time.After(stopJoinTimeout):
		config.Warning("保活检查循环未在超时时间内退出")
	}
	config.Info("保活管理器已停止")
}

// runCheckLoop 后台检查循环。出错不自我终止，仅在Stop时退出
func (s *AliveService) runCheckLoop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	config.Info("保活检查循环开始运行")

	ticker := time.NewTicker(s.currentInterval())
	defer ticker.Stop()

	for {
		s.performAliveCheckSafe(stopCh)

		select {
		case <-stopCh:
			config.Info("保活检查循环结束")
			return
		case <-ticker.C:
			// 运行时调整的间隔在下一轮生效
			ticker.Reset(s.currentInterval())
		}
	}
}

func (s *AliveService) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.checkInterval) * time.Second
}

func (s *AliveService) currentTimeout() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.aliveTimeout)
}

// performAliveCheckSafe 执行一轮检查，panic被捕获并短暂等待后继续
func (s *AliveService) performAliveCheckSafe(stopCh chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			config.Error("保活检查循环异常: %v", r)
			select {
			case <-stopCh:
			case <-time.After(errorRetryDelay):
			}
		}
	}()
	s.performAliveCheck()
}

// performAliveCheck 扫描所有已知设备并汇总一行检查结果日志
func (s *AliveService) performAliveCheck() {
	now := s.clock.Now()
	nowSec := EpochSeconds(now)
	config.Debug("开始执行保活检查 - 当前时间: %s", DatetimeStr(now))

	deviceIDs, err := s.deviceService.ListDeviceIDs()
	if err != nil {
		config.Error("枚举设备列表失败: %v", err)
		return
	}
	if len(deviceIDs) == 0 {
		config.Debug("未找到任何设备记录")
		return
	}

	passID := uuid.NewString()
	checked, timeouts, autoLocked := 0, 0, 0
	for _, deviceID := range deviceIDs {
		outcome := s.checkSingleDevice(deviceID, nowSec)
		checked++
		if outcome.IsTimeout {
			timeouts++
		}
		if outcome.AutoLocked {
			autoLocked++
		}
	}

	if timeouts > 0 || autoLocked > 0 {
		config.Info("保活检查完成 [%s] - 总检查: %d, 超时设备: %d, 自动锁定: %d",
			passID, checked, timeouts, autoLocked)
	} else {
		config.Debug("保活检查完成 [%s] - 总检查: %d, 所有设备状态正常", passID, checked)
	}
}

// checkSingleDevice 检查单台设备的保活状态。
// 单台设备的异常在此捕获，不影响同一轮的其他设备。
func (s *AliveService) checkSingleDevice(deviceID string, nowSec float64) models.AliveCheckOutcome {
	var outcome models.AliveCheckOutcome

	status, err := s.repo.GetStatus(deviceID)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			config.Error("检查设备 %s 状态时异常: %v", deviceID, err)
		}
		return outcome
	}

	if status.LastKeepAlive == nil {
		config.Debug("设备 %s 无保活记录", deviceID)
		return outcome
	}

	timeSinceAlive := nowSec - *status.LastKeepAlive
	timeout := s.currentTimeout()
	if timeSinceAlive <= timeout {
		config.Debug("设备 %s 保活正常: 距离上次保活 %.1f秒", deviceID, timeSinceAlive)
		return outcome
	}

	outcome.IsTimeout = true
	config.Debug("设备 %s 保活超时: %.1f秒 > %.0f秒", deviceID, timeSinceAlive, timeout)

	if !status.IsLocked {
		s.autoLockDevice(deviceID, nowSec, timeSinceAlive)
		outcome.AutoLocked = true
	} else {
		config.Debug("设备 %s 已为锁定状态，跳过自动锁定", deviceID)
	}
	return outcome
}

// autoLockDevice 合成auto_locked事件走标准状态机入口，并移出活跃设备集合
func (s *AliveService) autoLockDevice(deviceID string, nowSec, timeoutDuration float64) {
	lockTimestamp := int64(nowSec * 1000)

	if err := s.deviceService.ApplyEvent(deviceID, AutoLockAction, lockTimestamp); err != nil {
		config.Error("自动锁定设备 %s 时发生异常: %v", deviceID, err)
		return
	}

	s.aliveMu.Lock()
	delete(s.aliveDevices, deviceID)
	s.aliveMu.Unlock()

	currentSession := "0秒"
	if summary, err := s.deviceService.Summarize(deviceID); err == nil {
		currentSession = summary.CurrentSessionTime
	}
	config.Warning("自动锁定设备: %s - 保活超时 %.1f秒 > %.0f秒, 当前会话时间: %s",
		deviceID, timeoutDuration, s.currentTimeout(), currentSession)
}

// RegisterAliveDevice 注册活跃设备（仅用于状态上报）
func (s *AliveService) RegisterAliveDevice(deviceID string) {
	if isInvalidDeviceID(deviceID) {
		return
	}
	s.aliveMu.Lock()
	s.aliveDevices[deviceID] = struct{}{}
	s.aliveMu.Unlock()
	config.Debug("注册活跃设备: %s", deviceID)
}

// ForceCheckDevice 同步执行单台设备的保活检查并返回检查结论与最新摘要
func (s *AliveService) ForceCheckDevice(deviceID string) (*models.AliveCheckResult, error) {
	if isInvalidDeviceID(deviceID) {
		return nil, fmt.Errorf("无效的设备ID")
	}

	now := s.clock.Now()
	outcome := s.checkSingleDevice(deviceID, EpochSeconds(now))

	result := &models.AliveCheckResult{
		DeviceID:   deviceID,
		CheckID:    uuid.NewString(),
		CheckTime:  DatetimeStr(now),
		IsTimeout:  outcome.IsTimeout,
		AutoLocked: outcome.AutoLocked,
		Timezone:   models.TimezoneName,
	}
	if summary, err := s.deviceService.Summarize(deviceID); err == nil {
		result.DeviceSummary = summary
	} else {
		config.Error("强制检查设备 %s 时获取摘要异常: %v", deviceID, err)
	}
	return result, nil
}

// GetStatus 获取保活监控器运行状态
func (s *AliveService) GetStatus() *models.AliveStatus {
	s.mu.Lock()
	running := s.running
	interval := s.checkInterval
	timeout := s.aliveTimeout
	s.mu.Unlock()

	s.aliveMu.Lock()
	devices := make([]string, 0, len(s.aliveDevices))
	for id := range s.aliveDevices {
		devices = append(devices, id)
	}
	s.aliveMu.Unlock()
	sort.Strings(devices)

	return &models.AliveStatus{
		IsRunning:            running,
		CheckIntervalSeconds: interval,
		AliveTimeoutSeconds:  timeout,
		AliveDevicesCount:    len(devices),
		AliveDevices:         devices,
		CurrentBeijingTime:   DatetimeStr(s.clock.Now()),
		Timezone:             models.TimezoneName,
	}
}

// GetDeviceAliveInfo 获取设备保活详情
func (s *AliveService) GetDeviceAliveInfo(deviceID string) (*models.DeviceAliveInfo, error) {
	status, err := s.repo.GetStatus(deviceID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	nowSec := EpochSeconds(now)

	info := &models.DeviceAliveInfo{
		DeviceID:                deviceID,
		LastKeepAliveTimestamp:  status.LastKeepAlive,
		LastKeepAliveStr:        status.LastKeepAliveStr,
		TimeoutThresholdSeconds: int(s.currentTimeout()),
		CurrentTime:             DatetimeStr(now),
		IsLocked:                status.IsLocked,
		Timezone:                models.TimezoneName,
	}
	if info.LastKeepAliveStr == "" {
		info.LastKeepAliveStr = "未知"
	}

	if status.LastKeepAlive != nil {
		elapsed := nowSec - *status.LastKeepAlive
		rounded := float64(int(elapsed*100)) / 100
		info.TimeSinceAliveSeconds = &rounded
		info.IsTimeout = elapsed > s.currentTimeout()
		info.LastAliveTime = FormatDatetime(*status.LastKeepAlive)
	} else {
		info.IsTimeout = true
	}

	s.aliveMu.Lock()
	_, info.IsRegistered = s.aliveDevices[deviceID]
	s.aliveMu.Unlock()

	return info, nil
}

// SetCheckInterval 设置检查间隔，低于最小值时拒绝
func (s *AliveService) SetCheckInterval(seconds int) bool {
	if seconds < minCheckInterval {
		config.Warning("检查间隔不能小于%d秒，当前设置: %d秒", minCheckInterval, seconds)
		return false
	}
	s.mu.Lock()
	s.checkInterval = seconds
	s.mu.Unlock()
	config.Info("检查间隔已更新为: %d秒", seconds)
	return true
}

// SetAliveTimeout 设置保活超时阈值，低于最小值时拒绝
func (s *AliveService) SetAliveTimeout(seconds int) bool {
	if seconds < minAliveTimeout {
		config.Warning("保活超时时间不能小于%d秒，当前设置: %d秒", minAliveTimeout, seconds)
		return false
	}
	s.mu.Lock()
	s.aliveTimeout = seconds
	s.mu.Unlock()
	config.Info("保活超时时间已更新为: %d秒", seconds)
	return true
}

// Configure 批量调整监控参数，nil表示该项保持不变
func (s *AliveService) Configure(checkInterval, aliveTimeout *int) models.ConfigureResult {
	var result models.ConfigureResult
	if checkInterval != nil {
		ok := s.SetCheckInterval(*checkInterval)
		result.IntervalUpdated = &ok
	}
	if aliveTimeout != nil {
		ok := s.SetAliveTimeout(*aliveTimeout)
		result.TimeoutUpdated = &ok
	}
	return result
}
