package services

import (
	"fmt"
	"time"

	"github.com/huanxin996/looking-http-service/config"
)

// BeijingZone 固定UTC+8时区，所有时间戳与日期边界都以它为准
var BeijingZone = time.FixedZone("CST", 8*3600)

// InterfaceClock 提供当前北京时间，便于测试注入
type InterfaceClock interface {
	Now() time.Time
}

// BeijingClock 生产环境时钟
type BeijingClock struct{}

// NewBeijingClock 创建北京时间时钟
func NewBeijingClock() InterfaceClock {
	return &BeijingClock{}
}

func (BeijingClock) Now() time.Time {
	return time.Now().In(BeijingZone)
}

// FormatEventTime 将毫秒时间戳格式化为北京时间 HH:MM:SS
func FormatEventTime(timestampMs int64) string {
	if timestampMs <= 0 {
		config.Warning("时间戳格式化失败: %d", timestampMs)
		return "00:00:00"
	}
	return time.UnixMilli(timestampMs).In(BeijingZone).Format("15:04:05")
}

// FormatDatetime 将秒级时间戳格式化为北京时间字符串
func FormatDatetime(timestampSec float64) string {
	sec := int64(timestampSec)
	nsec := int64((timestampSec - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).In(BeijingZone).Format("2006-01-02 15:04:05")
}

// DatetimeStr 北京时间字符串，格式 2006-01-02 15:04:05
func DatetimeStr(t time.Time) string {
	return t.In(BeijingZone).Format("2006-01-02 15:04:05")
}

// DateStr 北京日期，格式 2006-01-02
func DateStr(t time.Time) string {
	return t.In(BeijingZone).Format("2006-01-02")
}

// DateKey 每日记录键使用的日期部分，格式 20060102
func DateKey(t time.Time) string {
	return t.In(BeijingZone).Format("20060102")
}

// EpochSeconds 时间转秒级时间戳
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// DurationStr 会话时长显示串
func DurationStr(seconds float64) string {
	return fmt.Sprintf("%.1f秒", seconds)
}
