package code

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
)

// 通用错误码 (100xxx).
const (
	// ErrSuccess - 200: 成功.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: 未知错误.
	ErrUnknown
	// ErrBind - 400: 请求参数绑定错误.
	ErrBind
	// ErrValidation - 400: 请求参数验证错误.
	ErrValidation
	// ErrContentType - 400: Content-Type错误.
	ErrContentType
)

// 设备相关错误码 (101xxx).
const (
	// ErrDeviceNotFound - 404: 设备不存在.
	ErrDeviceNotFound int = iota + 101000
	// ErrDeviceStatusNotFound - 404: 设备状态记录不存在.
	ErrDeviceStatusNotFound
	// ErrEventTypeInvalid - 400: 事件类型无效.
	ErrEventTypeInvalid
	// ErrEventDataInvalid - 400: 事件数据不完整.
	ErrEventDataInvalid
)

// 保活监控相关错误码 (102xxx).
const (
	// ErrMonitorConfigInvalid - 400: 监控参数无效.
	ErrMonitorConfigInvalid int = iota + 102000
	// ErrMonitorCheckFailed - 500: 保活检查失败.
	ErrMonitorCheckFailed
)

// 存储相关错误码 (103xxx).
const (
	// ErrDatabase - 500: 存储错误.
	ErrDatabase int = iota + 103000
	// ErrRecordNotFound - 404: 记录不存在.
	ErrRecordNotFound
)
