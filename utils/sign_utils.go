package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// VerifySignature 校验设备请求的MD5签名。
// 签名算法: md5(deviceID + eventType + timestamp)，十六进制比较不区分大小写。
func VerifySignature(deviceID, eventType, timestamp, signature string) bool {
	if deviceID == "" || eventType == "" || timestamp == "" || signature == "" {
		return false
	}

	sum := md5.Sum([]byte(deviceID + eventType + timestamp))
	expected := hex.EncodeToString(sum[:])
	return strings.EqualFold(expected, signature)
}
