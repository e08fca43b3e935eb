package models

// TodaySummary 今日使用统计
type TodaySummary struct {
	Date                string `json:"date"`
	BeijingDate         string `json:"beijing_date"`
	TotalScreenTime     string `json:"total_screen_time"`     // 含进行中会话
	FormattedScreenTime string `json:"formatted_screen_time"` // 按秒/分钟/小时阈值格式化
	CompletedScreenTime string `json:"completed_screen_time"` // 仅已完成会话
	LockCount           int    `json:"lock_count"`
	UnlockCount         int    `json:"unlock_count"`
	UsageSessions       int    `json:"usage_sessions"`
	Timezone            string `json:"timezone"`
}

// DeviceSummary 设备使用摘要
type DeviceSummary struct {
	DeviceID           string        `json:"device_id"`
	CurrentStatus      *DeviceStatus `json:"current_status"`
	CurrentSessionTime string        `json:"current_session_time"`
	TodaySummary       TodaySummary  `json:"today_summary"`
}

// AliveStatus 保活监控器运行状态
type AliveStatus struct {
	IsRunning            bool     `json:"is_running"`
	CheckIntervalSeconds int      `json:"check_interval_seconds"`
	AliveTimeoutSeconds  int      `json:"alive_timeout_seconds"`
	AliveDevicesCount    int      `json:"alive_devices_count"`
	AliveDevices         []string `json:"alive_devices"`
	CurrentBeijingTime   string   `json:"current_beijing_time"`
	Timezone             string   `json:"timezone"`
}

// AliveCheckOutcome 单台设备一次保活检查的结论
type AliveCheckOutcome struct {
	IsTimeout  bool `json:"is_timeout"`
	AutoLocked bool `json:"auto_locked"`
}

// AliveCheckResult 强制检查的返回结果
type AliveCheckResult struct {
	DeviceID      string         `json:"device_id"`
	CheckID       string         `json:"check_id"`
	CheckTime     string         `json:"check_time"`
	IsTimeout     bool           `json:"is_timeout"`
	AutoLocked    bool           `json:"auto_locked"`
	DeviceSummary *DeviceSummary `json:"device_summary,omitempty"`
	Timezone      string         `json:"timezone"`
}

// DeviceAliveInfo 设备保活详情
type DeviceAliveInfo struct {
	DeviceID                string   `json:"device_id"`
	IsRegistered            bool     `json:"is_registered"`
	LastKeepAliveTimestamp  *float64 `json:"last_keep_alive_timestamp"`
	LastKeepAliveStr        string   `json:"last_keep_alive_str"`
	LastAliveTime           string   `json:"last_alive_time,omitempty"`
	TimeSinceAliveSeconds   *float64 `json:"time_since_alive_seconds"`
	IsTimeout               bool     `json:"is_timeout"`
	TimeoutThresholdSeconds int      `json:"timeout_threshold_seconds"`
	CurrentTime             string   `json:"current_time"`
	IsLocked                bool     `json:"is_locked"`
	Timezone                string   `json:"timezone"`
}

// ConfigureResult 保活监控参数调整结果，nil表示该项未被请求修改
type ConfigureResult struct {
	IntervalUpdated *bool `json:"interval_updated,omitempty"`
	TimeoutUpdated  *bool `json:"timeout_updated,omitempty"`
}

// SnapshotSummary 设备状态快照摘要
type SnapshotSummary struct {
	DeviceID        string  `json:"device_id"`
	Timestamp       *int64  `json:"timestamp"`
	LastUpdate      string  `json:"last_update"`
	NetworkType     *string `json:"network_type"`
	BatteryLevel    *int    `json:"battery_level"`
	IsCharging      *bool   `json:"is_charging"`
	ForegroundApp   *string `json:"foreground_app"`
	UptimeFormatted *string `json:"uptime_formatted"`
}

// StorageInfo 从设备上报的存储描述串解析出的存储信息
type StorageInfo struct {
	TotalBytes      *int64   `json:"total_bytes,omitempty"`
	AvailableBytes  *int64   `json:"available_bytes,omitempty"`
	UsedBytes       *int64   `json:"used_bytes,omitempty"`
	UsagePercentage *float64 `json:"usage_percentage,omitempty"`
}
