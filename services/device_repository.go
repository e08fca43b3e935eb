package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/huanxin996/looking-http-service/config"
	"github.com/huanxin996/looking-http-service/models"
)

const (
	deviceTablePrefix = "device_"
	dailyRecordPrefix = "daily_"
	deviceStatusKey   = "device_status"
	latestStatusKey   = "latest_device_status"
)

// DeviceRepository 设备数据的强类型访问层。
// 负责表名/键名约定与序列化，损坏的持久化数据在此修复为默认值。
type DeviceRepository struct {
	store InterfaceKVStore
	clock InterfaceClock
}

// NewDeviceRepository 创建设备数据访问层
func NewDeviceRepository(store InterfaceKVStore, clock InterfaceClock) *DeviceRepository {
	return &DeviceRepository{store: store, clock: clock}
}

// TableName 根据设备ID生成表名
func (r *DeviceRepository) TableName(deviceID string) string {
	return deviceTablePrefix + deviceID
}

// DailyRecordKey 生成每日记录的键名
func DailyRecordKey(dateKey string) string {
	return dailyRecordPrefix + dateKey
}

// HasDevice 设备是否已有记录
func (r *DeviceRepository) HasDevice(deviceID string) bool {
	exists, err := r.store.Exists(r.TableName(deviceID))
	if err != nil {
		config.Error("检查设备表失败: %s: %v", deviceID, err)
		return false
	}
	return exists
}

// EnsureDevice 初始化设备表和默认状态（首次出现的设备默认处于锁定状态）
func (r *DeviceRepository) EnsureDevice(deviceID string) error {
	table := r.TableName(deviceID)
	exists, err := r.store.Exists(table)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.store.Create(table); err != nil {
			return err
		}
		config.Info("创建设备表: %s", table)
	}

	if _, err := r.store.Get(table, deviceStatusKey); errors.Is(err, ErrKeyNotFound) {
		if err := r.SaveStatus(deviceID, r.defaultStatus(deviceID)); err != nil {
			return err
		}
		config.Info("初始化设备状态: %s", deviceID)
	}
	return nil
}

func (r *DeviceRepository) defaultStatus(deviceID string) *models.DeviceStatus {
	now := r.clock.Now()
	lockTime := now.UnixMilli()
	return &models.DeviceStatus{
		DeviceID:     deviceID,
		IsLocked:     true,
		LastLockTime: &lockTime,
		LastUpdate:   EpochSeconds(now),
		LastEvent:    "initialized",
		CreatedTime:  DatetimeStr(now),
		Timezone:     models.TimezoneName,
	}
}

// GetStatus 读取设备状态。记录不存在返回ErrKeyNotFound；
// 持久化数据损坏时告警并修复为默认状态。
func (r *DeviceRepository) GetStatus(deviceID string) (*models.DeviceStatus, error) {
	raw, err := r.store.Get(r.TableName(deviceID), deviceStatusKey)
	if err != nil {
		return nil, err
	}

	var status models.DeviceStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		config.Warning("设备 %s 状态数据损坏，重置为默认状态: %v", deviceID, err)
		status = *r.defaultStatus(deviceID)
		if err := r.SaveStatus(deviceID, &status); err != nil {
			return nil, err
		}
		return &status, nil
	}
	if status.DeviceID == "" {
		status.DeviceID = deviceID
	}
	return &status, nil
}

// SaveStatus 持久化设备状态
func (r *DeviceRepository) SaveStatus(deviceID string, status *models.DeviceStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return r.store.Set(r.TableName(deviceID), deviceStatusKey, raw, 0)
}

// GetDailyRecord 读取指定日期的每日记录，不存在返回ErrKeyNotFound
func (r *DeviceRepository) GetDailyRecord(deviceID, dateKey string) (*models.DailyRecord, error) {
	raw, err := r.store.Get(r.TableName(deviceID), DailyRecordKey(dateKey))
	if err != nil {
		return nil, err
	}

	var record models.DailyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		config.Warning("设备 %s 每日记录数据损坏 (%s)，重置为空记录: %v", deviceID, dateKey, err)
		record = *r.newDailyRecord()
		if err := r.SaveDailyRecord(deviceID, dateKey, &record); err != nil {
			return nil, err
		}
	}
	return &record, nil
}

// CreateDailyRecord 创建当日空记录并持久化
func (r *DeviceRepository) CreateDailyRecord(deviceID, dateKey string) (*models.DailyRecord, error) {
	record := r.newDailyRecord()
	if err := r.SaveDailyRecord(deviceID, dateKey, record); err != nil {
		return nil, err
	}
	config.Info("创建今日记录: %s - %s (北京时间)", deviceID, record.Date)
	return record, nil
}

func (r *DeviceRepository) newDailyRecord() *models.DailyRecord {
	now := r.clock.Now()
	return &models.DailyRecord{
		Date:           DateStr(now),
		ScreenOnTime:   0,
		LockEvents:     []models.EventInfo{},
		UnlockEvents:   []models.EventInfo{},
		UsageSessions:  []models.UsageSession{},
		CreatedTime:    EpochSeconds(now),
		CreatedTimeStr: DatetimeStr(now),
		LastUpdate:     EpochSeconds(now),
		Timezone:       models.TimezoneName,
	}
}

// SaveDailyRecord 持久化每日记录
func (r *DeviceRepository) SaveDailyRecord(deviceID, dateKey string, record *models.DailyRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.store.Set(r.TableName(deviceID), DailyRecordKey(dateKey), raw, 0)
}

// ListDeviceIDs 按表名约定枚举所有已知设备
func (r *DeviceRepository) ListDeviceIDs() ([]string, error) {
	tables, err := r.store.ListTables()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(tables))
	for _, table := range tables {
		if strings.HasPrefix(table, deviceTablePrefix) {
			ids = append(ids, strings.TrimPrefix(table, deviceTablePrefix))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveStatusSnapshot 存储设备状态快照：带时间戳的历史键 + 最新状态键
func (r *DeviceRepository) SaveStatusSnapshot(deviceID string, payload map[string]interface{}) error {
	now := r.clock.Now()
	payload["server_processed_at"] = EpochSeconds(now)
	payload["server_processed_at_str"] = DatetimeStr(now)
	payload["timezone"] = models.TimezoneName

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	table := r.TableName(deviceID)
	recordKey := fmt.Sprintf("device_status_%s", now.Format("20060102_150405"))
	if err := r.store.Set(table, recordKey, raw, 0); err != nil {
		return err
	}
	if err := r.store.Set(table, latestStatusKey, raw, 0); err != nil {
		return err
	}
	config.Info("存储设备状态数据: %s - 记录键: %s", deviceID, recordKey)
	return nil
}

// GetLatestSnapshot 读取设备最新状态快照
func (r *DeviceRepository) GetLatestSnapshot(deviceID string) (map[string]interface{}, error) {
	raw, err := r.store.Get(r.TableName(deviceID), latestStatusKey)
	if err != nil {
		return nil, err
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
