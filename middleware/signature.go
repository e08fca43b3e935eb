package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huanxin996/looking-http-service/config"
	"github.com/huanxin996/looking-http-service/utils"
)

// SignatureVerifiedKey 签名校验结果在上下文中的键名
const SignatureVerifiedKey = "signature_verified"

// DeviceSignature 校验设备请求的MD5签名并把结果记录在上下文中。
// 校验结果仅随响应回报给客户端，不用于拒绝请求。
// 带x-timestamp的请求使用该时间戳参与签名，否则使用服务器当前毫秒时间戳。
func DeviceSignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		verified := false
		signature := c.GetHeader("x-signature")
		deviceID := c.GetHeader("x-device-id")
		eventType := c.GetHeader("x-event-type")

		switch {
		case signature == "":
			config.Warning("未提供签名")
		case deviceID == "" || eventType == "":
			config.Warning("签名验证所需的header字段不完整")
		default:
			timestamp := c.GetHeader("x-timestamp")
			if timestamp == "" {
				timestamp = strconv.FormatInt(time.Now().UnixMilli(), 10)
			}
			verified = utils.VerifySignature(deviceID, eventType, timestamp, signature)
			if !verified {
				config.Warning("签名验证失败: %s", signature)
			}
		}

		c.Set(SignatureVerifiedKey, verified)
		c.Next()
	}
}

// IsSignatureVerified 读取上下文中的签名校验结果
func IsSignatureVerified(c *gin.Context) bool {
	verified, exists := c.Get(SignatureVerifiedKey)
	if !exists {
		return false
	}
	v, ok := verified.(bool)
	return ok && v
}
