package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/huanxin996/looking-http-service/models"
)

// FormatScreenTime 格式化亮屏时间显示
func FormatScreenTime(totalSeconds float64) string {
	if totalSeconds < 60 {
		return fmt.Sprintf("%.1f秒", totalSeconds)
	} else if totalSeconds < 3600 {
		return fmt.Sprintf("%.1f分钟", totalSeconds/60)
	}
	return fmt.Sprintf("%.1f小时", totalSeconds/3600)
}

var sizePattern = regexp.MustCompile(`[^\d.KMGTB]`)

// ParseStorageInfo 解析设备上报的存储描述串，
// 形如 "total: 128GB, available: 64GB, used: 64GB, usage: 50%"
func ParseStorageInfo(storagePart string) models.StorageInfo {
	var info models.StorageInfo

	for _, part := range strings.Split(storagePart, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.Contains(part, "total:"):
			v := ParseSizeToBytes(afterColon(part, "total:"))
			info.TotalBytes = &v
		case strings.Contains(part, "available:"):
			v := ParseSizeToBytes(afterColon(part, "available:"))
			info.AvailableBytes = &v
		case strings.Contains(part, "used:"):
			v := ParseSizeToBytes(afterColon(part, "used:"))
			info.UsedBytes = &v
		case strings.Contains(part, "usage:") && strings.Contains(part, "%"):
			usageStr := strings.TrimSpace(strings.ReplaceAll(afterColon(part, "usage:"), "%", ""))
			if usage, err := strconv.ParseFloat(usageStr, 64); err == nil {
				info.UsagePercentage = &usage
			}
		}
	}
	return info
}

func afterColon(part, prefix string) string {
	idx := strings.Index(part, prefix)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(part[idx+len(prefix):])
}

// ParseSizeToBytes 将大小字符串转换为字节数，无法解析时返回0
func ParseSizeToBytes(sizeStr string) int64 {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))
	sizeStr = sizePattern.ReplaceAllString(sizeStr, "")

	parse := func(s, unit string) (float64, bool) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, unit, ""), 64)
		return v, err == nil
	}

	switch {
	case strings.Contains(sizeStr, "GB"):
		if v, ok := parse(sizeStr, "GB"); ok {
			return int64(v * 1024 * 1024 * 1024)
		}
	case strings.Contains(sizeStr, "MB"):
		if v, ok := parse(sizeStr, "MB"); ok {
			return int64(v * 1024 * 1024)
		}
	case strings.Contains(sizeStr, "KB"):
		if v, ok := parse(sizeStr, "KB"); ok {
			return int64(v * 1024)
		}
	case strings.Contains(sizeStr, "B"):
		if v, err := strconv.ParseInt(strings.ReplaceAll(sizeStr, "B", ""), 10, 64); err == nil {
			return v
		}
	default:
		if v, err := strconv.ParseFloat(sizeStr, 64); err == nil {
			return int64(v)
		}
	}
	return 0
}
