package controllers_test

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huanxin996/looking-http-service/config"
	"github.com/huanxin996/looking-http-service/routes"
	"github.com/huanxin996/looking-http-service/services"
	"github.com/huanxin996/looking-http-service/services/container"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := services.NewRedisKVStore(client)
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		ServerPort:         "8080",
		StoreDriver:        "redis",
		AliveCheckInterval: 60,
		AliveTimeout:       301,
	}
	serviceContainer := container.NewServiceContainer(cfg, store)
	return routes.SetupRouter(serviceContainer, cfg)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func signHeaders(deviceID, eventType string, timestamp int64) map[string]string {
	ts := strconv.FormatInt(timestamp, 10)
	sum := md5.Sum([]byte(deviceID + eventType + ts))
	return map[string]string{
		"x-device-id":  deviceID,
		"x-event-type": eventType,
		"x-timestamp":  ts,
		"x-signature":  hex.EncodeToString(sum[:]),
	}
}

func TestPing(t *testing.T) {
	r := newTestRouter(t)

	w, resp := doJSON(t, r, http.MethodGet, "/api/ping", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", resp["message"])
}

func TestDeviceEventEndpoint(t *testing.T) {
	r := newTestRouter(t)

	ts := time.Now().UnixMilli()
	body := gin.H{
		"event_type": "lock_event",
		"timestamp":  ts,
		"action":     "user_unlocked",
	}
	w, resp := doJSON(t, r, http.MethodPost, "/api/looking/device-event", body, signHeaders("dev1", "lock_event", ts))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 100000, resp["code"])

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "dev1", data["device_id"])
	assert.Equal(t, true, data["signature_verified"])
	assert.NotNil(t, data["summary"])

	// 解锁后设备出现在列表中
	w, resp = doJSON(t, r, http.MethodGet, "/api/looking/device-list", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["device_count"])
}

func TestDeviceEventRejectsUnknownEventType(t *testing.T) {
	r := newTestRouter(t)

	body := gin.H{
		"event_type": "something_else",
		"timestamp":  time.Now().UnixMilli(),
		"action":     "user_unlocked",
	}
	w, _ := doJSON(t, r, http.MethodPost, "/api/looking/device-event", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeviceEventMissingFields(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/looking/device-event", gin.H{"event_type": "lock_event"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKeepAliveEndpoint(t *testing.T) {
	r := newTestRouter(t)

	// 先注册设备
	ts := time.Now().UnixMilli()
	body := gin.H{"event_type": "lock_event", "timestamp": ts, "action": "user_unlocked"}
	doJSON(t, r, http.MethodPost, "/api/looking/device-event", body, signHeaders("dev1", "lock_event", ts))

	headers := signHeaders("dev1", "keep_alive", time.Now().UnixMilli())
	w, resp := doJSON(t, r, http.MethodPost, "/api/looking/keep-alive", gin.H{"live": 1}, headers)
	assert.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "dev1", data["device_id"])
	assert.Equal(t, true, data["signature_verified"])

	// 保活后设备进入活跃集合
	w, resp = doJSON(t, r, http.MethodGet, "/api/alive/status", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["alive_devices_count"])
}

func TestKeepAliveRequiresEventTypeHeader(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/looking/keep-alive", gin.H{"live": 1}, map[string]string{
		"x-device-id": "dev1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeviceSummaryNotFound(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/api/looking/device-summary/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeviceListEmpty(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/api/looking/device-list", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeviceStatusEndpoint(t *testing.T) {
	r := newTestRouter(t)

	ts := time.Now().UnixMilli()
	headers := signHeaders("dev1", "device_status", ts)
	body := gin.H{
		"device_id": "dev1",
		"timestamp": ts,
		"battery":   gin.H{"level_percentage": 90, "is_charging": false},
		"network":   gin.H{"type": "WIFI"},
	}
	w, resp := doJSON(t, r, http.MethodPost, "/api/looking/device-status", body, headers)
	assert.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "dev1", data["device_id"])
	require.NotNil(t, data["status_summary"])

	// 最新快照可读回
	w, resp = doJSON(t, r, http.MethodGet, "/api/looking/device-status/dev1", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	latest := data["latest_status"].(map[string]interface{})
	assert.Equal(t, "dev1", latest["device_id"])
	assert.NotEmpty(t, latest["server_processed_at_str"])
}

func TestDeviceStatusMissingRequiredField(t *testing.T) {
	r := newTestRouter(t)

	headers := signHeaders("dev1", "device_status", time.Now().UnixMilli())
	// 缺少timestamp字段
	w, _ := doJSON(t, r, http.MethodPost, "/api/looking/device-status", gin.H{"device_id": "dev1"}, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAliveConfigureEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/alive/configure", gin.H{"check_interval": 120}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].(map[string]interface{})
	status := data["status"].(map[string]interface{})
	assert.EqualValues(t, 120, status["check_interval_seconds"])

	// 低于最小值的参数被拒绝，配置保持不变
	w, resp = doJSON(t, r, http.MethodPost, "/api/alive/configure", gin.H{"alive_timeout": 5}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	result := data["result"].(map[string]interface{})
	assert.Equal(t, false, result["timeout_updated"])
	status = data["status"].(map[string]interface{})
	assert.EqualValues(t, 301, status["alive_timeout_seconds"])
}

func TestAliveConfigureEmptyBody(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/alive/configure", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAliveForceCheckEndpoint(t *testing.T) {
	r := newTestRouter(t)

	ts := time.Now().UnixMilli()
	body := gin.H{"event_type": "lock_event", "timestamp": ts, "action": "user_unlocked"}
	doJSON(t, r, http.MethodPost, "/api/looking/device-event", body, signHeaders("dev1", "lock_event", ts))

	w, resp := doJSON(t, r, http.MethodPost, "/api/alive/check/dev1", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "dev1", data["device_id"])
	assert.NotEmpty(t, data["check_id"])
	// 无保活记录的设备不会判定超时
	assert.Equal(t, false, data["is_timeout"])
}

func TestAliveDeviceInfoNotFound(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/api/alive/device/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
