package models

// TimezoneName 服务固定使用的时区标识（北京时间）
const TimezoneName = "Asia/Shanghai"

// DeviceStatus 设备当前状态，每台设备一份，最后写入者生效
type DeviceStatus struct {
	DeviceID         string   `json:"device_id"`
	IsLocked         bool     `json:"is_locked"`
	LastUnlockTime   *int64   `json:"last_unlock_time"`          // 最近一次解锁时间戳（毫秒）
	LastLockTime     *int64   `json:"last_lock_time"`            // 最近一次锁定时间戳（毫秒）
	LastUpdate       float64  `json:"last_update"`               // 最近一次变更时间戳（秒）
	LastUpdateStr    string   `json:"last_update_str,omitempty"` // 北京时间字符串
	LastEvent        string   `json:"last_event"`
	LastKeepAlive    *float64 `json:"last_keep_alive,omitempty"` // 最近保活时间戳（秒），仅由保活路径写入
	LastKeepAliveStr string   `json:"last_keep_alive_str,omitempty"`
	CreatedTime      string   `json:"created_time,omitempty"`
	Timezone         string   `json:"timezone"`
}

// HasOpenSession 是否存在进行中的使用会话。
// is_locked 是会话开启与否的唯一判断依据；解锁状态下 last_unlock_time 必须已设置。
func (s *DeviceStatus) HasOpenSession() bool {
	return !s.IsLocked && s.LastUnlockTime != nil
}

// EventInfo 单条锁屏/解锁事件，创建后不再修改
type EventInfo struct {
	Timestamp int64  `json:"timestamp"` // 事件时间戳（毫秒）
	Time      string `json:"time"`      // HH:MM:SS（北京时间）
	Action    string `json:"action"`
}

// UsageSession 一次完整的解锁到锁定的使用会话
type UsageSession struct {
	UnlockTime    int64   `json:"unlock_time"` // 毫秒
	LockTime      int64   `json:"lock_time"`   // 毫秒
	Duration      float64 `json:"duration"`    // 秒
	UnlockTimeStr string  `json:"unlock_time_str"`
	LockTimeStr   string  `json:"lock_time_str"`
	DurationStr   string  `json:"duration_str"`
}

// DailyRecord 每台设备每个北京时间自然日一份的使用记录。
// 日期切换后旧记录不再被修改，新的一天在新的键下另起一份。
type DailyRecord struct {
	Date           string         `json:"date"`
	ScreenOnTime   float64        `json:"screen_on_time"` // 已完成会话的累计亮屏秒数
	LockEvents     []EventInfo    `json:"lock_events"`
	UnlockEvents   []EventInfo    `json:"unlock_events"`
	UsageSessions  []UsageSession `json:"usage_sessions"`
	CreatedTime    float64        `json:"created_time"`
	CreatedTimeStr string         `json:"created_time_str,omitempty"`
	LastUpdate     float64        `json:"last_update"`
	LastUpdateStr  string         `json:"last_update_str,omitempty"`
	Timezone       string         `json:"timezone"`
}
