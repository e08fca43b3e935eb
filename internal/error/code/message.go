package code

// 错误码消息映射
var codeMessageMap = map[int]string{
	// 通用错误码
	ErrSuccess:     "成功",
	ErrUnknown:     "未知错误",
	ErrBind:        "请求参数绑定错误",
	ErrValidation:  "请求参数验证错误",
	ErrContentType: "Content-Type必须为application/json",

	// 设备相关错误码
	ErrDeviceNotFound:       "设备不存在",
	ErrDeviceStatusNotFound: "设备状态记录不存在",
	ErrEventTypeInvalid:     "事件类型无效",
	ErrEventDataInvalid:     "事件数据不完整",

	// 保活监控相关错误码
	ErrMonitorConfigInvalid: "监控参数无效",
	ErrMonitorCheckFailed:   "保活检查失败",

	// 存储相关错误码
	ErrDatabase:       "存储错误",
	ErrRecordNotFound: "记录不存在",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[int]int{
	// 通用错误码
	ErrSuccess:     StatusOK,
	ErrUnknown:     StatusInternalServerError,
	ErrBind:        StatusBadRequest,
	ErrValidation:  StatusBadRequest,
	ErrContentType: StatusBadRequest,

	// 设备相关错误码
	ErrDeviceNotFound:       StatusNotFound,
	ErrDeviceStatusNotFound: StatusNotFound,
	ErrEventTypeInvalid:     StatusBadRequest,
	ErrEventDataInvalid:     StatusBadRequest,

	// 保活监控相关错误码
	ErrMonitorConfigInvalid: StatusBadRequest,
	ErrMonitorCheckFailed:   StatusInternalServerError,

	// 存储相关错误码
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,
}

// GetMessage 根据错误码获取消息
func GetMessage(errorCode int) string {
	if message, ok := codeMessageMap[errorCode]; ok {
		return message
	}
	return codeMessageMap[ErrUnknown]
}

// GetStatus 根据错误码获取HTTP状态码
func GetStatus(errorCode int) int {
	if status, ok := codeStatusMap[errorCode]; ok {
		return status
	}
	return StatusInternalServerError
}
