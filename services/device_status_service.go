package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/huanxin996/looking-http-service/config"
	"github.com/huanxin996/looking-http-service/models"
	"github.com/huanxin996/looking-http-service/utils"
)

// ActionKind 动作分类结果
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionLock
	ActionUnlock
)

// ClassifyAction 对自由文本动作分类。规则有先后顺序：
// 包含locked且不含unlocked为锁定；包含unlocked或authenticated为解锁；其余未知。
func ClassifyAction(action string) ActionKind {
	lower := strings.ToLower(action)
	switch {
	case strings.Contains(lower, "locked") && !strings.Contains(lower, "unlocked"):
		return ActionLock
	case strings.Contains(lower, "unlocked") || strings.Contains(lower, "authenticated"):
		return ActionUnlock
	default:
		return ActionUnknown
	}
}

// InterfaceDeviceStatusService 设备锁屏状态与亮屏时间统计服务接口
type InterfaceDeviceStatusService interface {
	ApplyEvent(deviceID, action string, timestampMs int64) error
	RegisterDevice(deviceID string) error
	UpdateKeepAlive(deviceID string) error
	GetStatus(deviceID string) (*models.DeviceStatus, error)
	Summarize(deviceID string) (*models.DeviceSummary, error)
	ListDeviceIDs() ([]string, error)
	HasDevice(deviceID string) bool
	StoreStatusSnapshot(deviceID string, payload map[string]interface{}) error
	GetLatestSnapshot(deviceID string) (map[string]interface{}, error)
	FormatSnapshotSummary(payload map[string]interface{}) *models.SnapshotSummary
}

// DeviceStatusService 设备状态机与每日统计的实现。
// 单台设备的"读状态-读当日记录-变更-持久化"全程持有该设备的互斥锁，
// webhook路径与保活监控路径的并发变更由此串行化。
type DeviceStatusService struct {
	repo  *DeviceRepository
	clock InterfaceClock

	deviceLocks sync.Map // device_id -> *sync.Mutex
}

// NewDeviceStatusService 创建设备状态服务
func NewDeviceStatusService(repo *DeviceRepository, clock InterfaceClock) InterfaceDeviceStatusService {
	return &DeviceStatusService{
		repo:  repo,
		clock: clock,
	}
}

// lockDevice 获取并锁定该设备的互斥锁
func (s *DeviceStatusService) lockDevice(deviceID string) *sync.Mutex {
	v, _ := s.deviceLocks.LoadOrStore(deviceID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu
}

func isInvalidDeviceID(deviceID string) bool {
	return deviceID == "" || deviceID == "Unknown"
}

// ApplyEvent 应用一条锁定/解锁事件，更新设备状态与当日记录并持久化。
// 未识别的动作仅记录日志，不触碰任何状态。
func (s *DeviceStatusService) ApplyEvent(deviceID, action string, timestampMs int64) error {
	if isInvalidDeviceID(deviceID) {
		config.Warning("忽略无效设备ID的事件: 动作: %s", action)
		return nil
	}

	kind := ClassifyAction(action)
	if kind == ActionUnknown {
		config.Warning("未识别的动作类型: %s - 动作: %s", deviceID, action)
		return nil
	}

	mu := s.lockDevice(deviceID)
	defer mu.Unlock()

	if err := s.repo.EnsureDevice(deviceID); err != nil {
		return err
	}
	status, err := s.repo.GetStatus(deviceID)
	if err != nil {
		return err
	}

	if isDuplicateEvent(status, kind, action, timestampMs) {
		config.Warning("丢弃重复事件: %s - 动作: %s, 时间戳: %d", deviceID, action, timestampMs)
		return nil
	}

	record, dateKey, err := s.getOrCreateToday(deviceID)
	if err != nil {
		return err
	}

	event := models.EventInfo{
		Timestamp: timestampMs,
		Time:      FormatEventTime(timestampMs),
		Action:    action,
	}

	switch kind {
	case ActionLock:
		s.handleLockEvent(deviceID, status, record, event)
	case ActionUnlock:
		s.handleUnlockEvent(deviceID, status, record, event)
	}

	now := s.clock.Now()
	nowSec := EpochSeconds(now)
	nowStr := DatetimeStr(now)
	status.LastUpdate = nowSec
	status.LastUpdateStr = nowStr
	status.LastEvent = action
	record.LastUpdate = nowSec
	record.LastUpdateStr = nowStr

	if err := s.repo.SaveStatus(deviceID, status); err != nil {
		return err
	}
	if err := s.repo.SaveDailyRecord(deviceID, dateKey, record); err != nil {
		return err
	}

	config.Info("更新设备状态: %s - 锁定状态: %t - 动作: %s (北京时间: %s)",
		deviceID, status.IsLocked, action, nowStr)
	return nil
}

// isDuplicateEvent 重复投递判定：动作与对应方向的最近时间戳完全一致则丢弃
func isDuplicateEvent(status *models.DeviceStatus, kind ActionKind, action string, timestampMs int64) bool {
	if status.LastEvent != action {
		return false
	}
	switch kind {
	case ActionLock:
		return status.LastLockTime != nil && *status.LastLockTime == timestampMs
	case ActionUnlock:
		return status.LastUnlockTime != nil && *status.LastUnlockTime == timestampMs
	}
	return false
}

// handleLockEvent 处理锁屏事件：关闭进行中的会话并累计亮屏时长
func (s *DeviceStatusService) handleLockEvent(deviceID string, status *models.DeviceStatus, record *models.DailyRecord, event models.EventInfo) {
	if !status.IsLocked {
		if status.LastUnlockTime != nil {
			duration := float64(event.Timestamp-*status.LastUnlockTime) / 1000
			if duration < 0 {
				config.Warning("忽略乱序使用会话: %s - 解锁时间 %d 晚于锁定时间 %d",
					deviceID, *status.LastUnlockTime, event.Timestamp)
			} else {
				session := models.UsageSession{
					UnlockTime:    *status.LastUnlockTime,
					LockTime:      event.Timestamp,
					Duration:      duration,
					UnlockTimeStr: FormatEventTime(*status.LastUnlockTime),
					LockTimeStr:   FormatEventTime(event.Timestamp),
					DurationStr:   DurationStr(duration),
				}
				record.ScreenOnTime += session.Duration
				record.UsageSessions = append(record.UsageSessions, session)
				config.Info("记录使用会话: %s - 使用时长: %.1f秒 (%s - %s)",
					deviceID, session.Duration, session.UnlockTimeStr, session.LockTimeStr)
			}
		} else {
			config.Warning("设备 %s 处于解锁状态但缺少解锁时间戳，跳过会话统计", deviceID)
		}
	}

	status.IsLocked = true
	lockTime := event.Timestamp
	status.LastLockTime = &lockTime
	record.LockEvents = append(record.LockEvents, event)

	config.Info("设备锁定: %s - 动作: %s", deviceID, event.Action)
}

// handleUnlockEvent 处理解锁事件。已有未关闭会话时以最新解锁时间为准
func (s *DeviceStatusService) handleUnlockEvent(deviceID string, status *models.DeviceStatus, record *models.DailyRecord, event models.EventInfo) {
	if status.HasOpenSession() {
		config.Warning("设备 %s 存在未关闭的使用会话，以最新解锁时间为准", deviceID)
	}

	status.IsLocked = false
	unlockTime := event.Timestamp
	status.LastUnlockTime = &unlockTime
	record.UnlockEvents = append(record.UnlockEvents, event)

	config.Info("设备解锁: %s - 动作: %s", deviceID, event.Action)
}

// getOrCreateToday 获取当日记录，不存在则按北京日期新建
func (s *DeviceStatusService) getOrCreateToday(deviceID string) (*models.DailyRecord, string, error) {
	dateKey := DateKey(s.clock.Now())
	record, err := s.repo.GetDailyRecord(deviceID, dateKey)
	if errors.Is(err, ErrKeyNotFound) {
		record, err = s.repo.CreateDailyRecord(deviceID, dateKey)
	}
	if err != nil {
		return nil, "", err
	}
	return record, dateKey, nil
}

// RegisterDevice 确保设备表与默认状态存在
func (s *DeviceStatusService) RegisterDevice(deviceID string) error {
	if isInvalidDeviceID(deviceID) {
		return nil
	}
	mu := s.lockDevice(deviceID)
	defer mu.Unlock()
	return s.repo.EnsureDevice(deviceID)
}

// UpdateKeepAlive 更新设备保活时间戳，独立于锁屏事件路径
func (s *DeviceStatusService) UpdateKeepAlive(deviceID string) error {
	if isInvalidDeviceID(deviceID) {
		return nil
	}

	mu := s.lockDevice(deviceID)
	defer mu.Unlock()

	if !s.repo.HasDevice(deviceID) {
		return nil
	}
	status, err := s.repo.GetStatus(deviceID)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil
		}
		return err
	}

	now := s.clock.Now()
	keepAlive := EpochSeconds(now)
	status.LastKeepAlive = &keepAlive
	status.LastKeepAliveStr = DatetimeStr(now)

	if err := s.repo.SaveStatus(deviceID, status); err != nil {
		return err
	}
	config.Info("更新设备保活时间: %s", deviceID)
	return nil
}

// GetStatus 读取设备当前状态
func (s *DeviceStatusService) GetStatus(deviceID string) (*models.DeviceStatus, error) {
	return s.repo.GetStatus(deviceID)
}

// Summarize 计算设备使用摘要：已完成亮屏时长 + 进行中会话时长
func (s *DeviceStatusService) Summarize(deviceID string) (*models.DeviceSummary, error) {
	mu := s.lockDevice(deviceID)
	defer mu.Unlock()

	if err := s.repo.EnsureDevice(deviceID); err != nil {
		return nil, err
	}
	status, err := s.repo.GetStatus(deviceID)
	if err != nil {
		return nil, err
	}
	record, _, err := s.getOrCreateToday(deviceID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	currentSession := 0.0
	if status.HasOpenSession() {
		currentSession = float64(now.UnixMilli()-*status.LastUnlockTime) / 1000
	}
	totalScreenTime := record.ScreenOnTime + currentSession

	currentSessionStr := "0秒"
	if currentSession > 0 {
		currentSessionStr = fmt.Sprintf("%.1f秒", currentSession)
	}

	return &models.DeviceSummary{
		DeviceID:           deviceID,
		CurrentStatus:      status,
		CurrentSessionTime: currentSessionStr,
		TodaySummary: models.TodaySummary{
			Date:                record.Date,
			BeijingDate:         DateStr(now),
			TotalScreenTime:     fmt.Sprintf("%.1f秒", totalScreenTime),
			FormattedScreenTime: utils.FormatScreenTime(totalScreenTime),
			CompletedScreenTime: fmt.Sprintf("%.1f秒", record.ScreenOnTime),
			LockCount:           len(record.LockEvents),
			UnlockCount:         len(record.UnlockEvents),
			UsageSessions:       len(record.UsageSessions),
			Timezone:            models.TimezoneName,
		},
	}, nil
}

// ListDeviceIDs 枚举所有已知设备
func (s *DeviceStatusService) ListDeviceIDs() ([]string, error) {
	return s.repo.ListDeviceIDs()
}

// HasDevice 设备是否已有记录
func (s *DeviceStatusService) HasDevice(deviceID string) bool {
	return s.repo.HasDevice(deviceID)
}

// StoreStatusSnapshot 存储设备上报的状态快照
func (s *DeviceStatusService) StoreStatusSnapshot(deviceID string, payload map[string]interface{}) error {
	if isInvalidDeviceID(deviceID) {
		return nil
	}
	mu := s.lockDevice(deviceID)
	defer mu.Unlock()

	if err := s.repo.EnsureDevice(deviceID); err != nil {
		return err
	}
	return s.repo.SaveStatusSnapshot(deviceID, payload)
}

// GetLatestSnapshot 读取设备最新状态快照
func (s *DeviceStatusService) GetLatestSnapshot(deviceID string) (map[string]interface{}, error) {
	return s.repo.GetLatestSnapshot(deviceID)
}

// FormatSnapshotSummary 从快照原始数据提取关键字段摘要
func (s *DeviceStatusService) FormatSnapshotSummary(payload map[string]interface{}) *models.SnapshotSummary {
	summary := &models.SnapshotSummary{
		LastUpdate: "未知",
	}

	if v, ok := payload["device_id"].(string); ok {
		summary.DeviceID = v
	}
	if v, ok := asInt64(payload["timestamp"]); ok {
		summary.Timestamp = &v
	}
	if v, ok := payload["server_processed_at_str"].(string); ok {
		summary.LastUpdate = v
	}
	if network, ok := payload["network"].(map[string]interface{}); ok {
		if t, ok := network["type"].(string); ok {
			summary.NetworkType = &t
		}
	}
	if battery, ok := payload["battery"].(map[string]interface{}); ok {
		if level, ok := asInt64(battery["level_percentage"]); ok {
			l := int(level)
			summary.BatteryLevel = &l
		}
		if charging, ok := battery["is_charging"].(bool); ok {
			summary.IsCharging = &charging
		}
	}
	if app, ok := payload["foreground_app"].(map[string]interface{}); ok {
		if pkg, ok := app["package_name"].(string); ok {
			summary.ForegroundApp = &pkg
		} else if st, ok := app["status"].(string); ok {
			summary.ForegroundApp = &st
		}
	}
	if uptime, ok := payload["uptime"].(map[string]interface{}); ok {
		if formatted, ok := uptime["formatted_string"].(string); ok {
			summary.UptimeFormatted = &formatted
		}
	}
	return summary
}

// asInt64 JSON反序列化的数字可能是float64或json.Number
func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
