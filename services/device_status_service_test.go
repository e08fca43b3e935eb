package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试基准时间：北京时间 2025-09-01 10:00:00
var testBaseTime = time.Date(2025, 9, 1, 10, 0, 0, 0, BeijingZone)

func newTestDeviceService(t *testing.T) (InterfaceDeviceStatusService, *DeviceRepository, *fakeClock) {
	t.Helper()
	clock := newFakeClock(testBaseTime)
	store := newFakeKVStore(clock)
	repo := NewDeviceRepository(store, clock)
	return NewDeviceStatusService(repo, clock), repo, clock
}

func TestClassifyAction(t *testing.T) {
	testCases := []struct {
		action string
		want   ActionKind
	}{
		{"android.intent.action.SCREEN_LOCKED", ActionLock},
		{"android.intent.action.USER_UNLOCKED", ActionUnlock},
		{"user_authenticated", ActionUnlock},
		{"auto_locked_by_alive_timeout", ActionLock},
		{"DEVICE_LOCKED", ActionLock},
		// locked规则优先于authenticated规则
		{"authenticated_locked", ActionLock},
		// 含unlocked时locked规则不命中
		{"unlocked_locked", ActionUnlock},
		{"screen_on", ActionUnknown},
		{"", ActionUnknown},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, ClassifyAction(tc.action), "action: %q", tc.action)
	}
}

func TestApplyEventUnlockThenLock(t *testing.T) {
	svc, repo, clock := newTestDeviceService(t)

	unlockTs := clock.Now().UnixMilli()
	require.NoError(t, svc.ApplyEvent("dev1", "user_unlocked", unlockTs))

	status, err := repo.GetStatus("dev1")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	require.NotNil(t, status.LastUnlockTime)
	assert.Equal(t, unlockTs, *status.LastUnlockTime)
	assert.Equal(t, "user_unlocked", status.LastEvent)

	// 90秒后锁定
	clock.Advance(90 * time.Second)
	lockTs := clock.Now().UnixMilli()
	require.NoError(t, svc.ApplyEvent("dev1", "device_locked", lockTs))

	status, err = repo.GetStatus("dev1")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)
	require.NotNil(t, status.LastLockTime)
	assert.Equal(t, lockTs, *status.LastLockTime)

	record, err := repo.GetDailyRecord("dev1", DateKey(clock.Now()))
	require.NoError(t, err)
	assert.InDelta(t, 90.0, record.ScreenOnTime, 0.001)
	require.Len(t, record.UsageSessions, 1)
	assert.Equal(t, unlockTs, record.UsageSessions[0].UnlockTime)
	assert.Equal(t, lockTs, record.UsageSessions[0].LockTime)
	assert.Len(t, record.LockEvents, 1)
	assert.Len(t, record.UnlockEvents, 1)
}

func TestApplyEventLockWithoutOpenSession(t *testing.T) {
	svc, repo, clock := newTestDeviceService(t)

	// 新设备默认锁定状态，直接收到锁定事件不应累计时长
	lockTs := clock.Now().UnixMilli()
	require.NoError(t, svc.ApplyEvent("dev1", "device_locked", lockTs))

	record, err := repo.GetDailyRecord("dev1", DateKey(clock.Now()))
	require.NoError(t, err)
	assert.Zero(t, record.ScreenOnTime)
	assert.Empty(t, record.UsageSessions)
	assert.Len(t, record.LockEvents, 1)
}

func TestApplyEventUnknownActionDiscarded(t *testing.T) {
	svc, repo, _ := newTestDeviceService(t)

	require.NoError(t, svc.ApplyEvent("dev1", "screen_on", testBaseTime.UnixMilli()))

	// 未识别动作不应创建任何设备记录
	assert.False(t, repo.HasDevice("dev1"))
}

func TestApplyEventInvalidDeviceID(t *testing.T) {
	svc, repo, _ := newTestDeviceService(t)

	require.NoError(t, svc.ApplyEvent("", "user_unlocked", testBaseTime.UnixMilli()))
	require.NoError(t, svc.ApplyEvent("Unknown", "user_unlocked", testBaseTime.UnixMilli()))

	ids, err := repo.ListDeviceIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestApplyEventDuplicateDropped(t *testing.T) {
	svc, repo, clock := newTestDeviceService(t)

	unlockTs := clock.Now().UnixMilli()
	require.NoError(t, svc.ApplyEvent("dev1", "user_unlocked", unlockTs))
	// 同动作同时间戳的重复投递
	require.NoError(t, svc.ApplyEvent("dev1", "user_unlocked", unlockTs))

	record, err := repo.GetDailyRecord("dev1", DateKey(clock.Now()))
	require.NoError(t, err)
	assert.Len(t, record.UnlockEvents, 1)
}

func TestApplyEventNegativeDurationSkipped(t *testing.T) {
	svc, repo, clock := newTestDeviceService(t)

	unlockTs := clock.Now().UnixMilli()
	require.NoError(t, svc.ApplyEvent("dev1", "user_unlocked", unlockTs))

	// 锁定时间戳早于解锁时间戳，会话应跳过但锁定状态仍更新
	lockTs := unlockTs - 30_000
	require.NoError(t, svc.ApplyEvent("dev1", "device_locked", lockTs))

	status, err := repo.GetStatus("dev1")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)

	record, err := repo.GetDailyRecord("dev1", DateKey(clock.Now()))
	require.NoError(t, err)
	assert.Zero(t, record.ScreenOnTime)
	assert.Empty(t, record.UsageSessions)
	assert.Len(t, record.LockEvents, 1)
}

func TestApplyEventDayRollover(t *testing.T) {
	svc, repo, clock := newTestDeviceService(t)

	// 第一天累计一段会话
	unlockTs := clock.Now().UnixMilli()
	require.NoError(t, svc.ApplyEvent("dev1", "user_unlocked", unlockTs))
	clock.Advance(60 * time.Second)
	require.NoError(t, svc.ApplyEvent("dev1", "device_locked", clock.Now().UnixMilli()))
	firstDay := DateKey(clock.Now())

	// 跨到第二天（北京时间）
	clock.Set(testBaseTime.AddDate(0, 0, 1))
	secondDay := DateKey(clock.Now())
	require.NotEqual(t, firstDay, secondDay)

	unlockTs2 := clock.Now().UnixMilli()
	require.NoError(t, svc.ApplyEvent("dev1", "user_unlocked", unlockTs2))
	clock.Advance(30 * time.Second)
	require.NoError(t, svc.ApplyEvent("dev1", "device_locked", clock.Now().UnixMilli()))

	record1, err := repo.GetDailyRecord("dev1", firstDay)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, record1.ScreenOnTime, 0.001)

	record2, err := repo.GetDailyRecord("dev1", secondDay)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, record2.ScreenOnTime, 0.001)
}

func TestSummarizeWithOpenSession(t *testing.T) {
	svc, _, clock := newTestDeviceService(t)

	require.NoError(t, svc.ApplyEvent("dev1", "user_unlocked", clock.Now().UnixMilli()))
	clock.Advance(5 * time.Second)

	summary, err := svc.Summarize("dev1")
	require.NoError(t, err)
	assert.Equal(t, "dev1", summary.DeviceID)
	assert.Equal(t, "5.0秒", summary.CurrentSessionTime)
	assert.Equal(t, "5.0秒", summary.TodaySummary.TotalScreenTime)
	assert.Equal(t, "0.0秒", summary.TodaySummary.CompletedScreenTime)
	assert.Equal(t, 1, summary.TodaySummary.UnlockCount)
	assert.Equal(t, 0, summary.TodaySummary.LockCount)
	assert.Equal(t, DateStr(clock.Now()), summary.TodaySummary.BeijingDate)
}

func TestSummarizeLockedDevice(t *testing.T) {
	svc, _, clock := newTestDeviceService(t)

	require.NoError(t, svc.ApplyEvent("dev1", "user_unlocked", clock.Now().UnixMilli()))
	clock.Advance(120 * time.Second)
	require.NoError(t, svc.ApplyEvent("dev1", "device_locked", clock.Now().UnixMilli()))

	summary, err := svc.Summarize("dev1")
	require.NoError(t, err)
	assert.Equal(t, "0秒", summary.CurrentSessionTime)
	assert.Equal(t, "120.0秒", summary.TodaySummary.TotalScreenTime)
	assert.Equal(t, "2.0分钟", summary.TodaySummary.FormattedScreenTime)
	assert.Equal(t, 1, summary.TodaySummary.UsageSessions)
}

func TestUpdateKeepAlive(t *testing.T) {
	svc, repo, clock := newTestDeviceService(t)

	require.NoError(t, svc.RegisterDevice("dev1"))
	require.NoError(t, svc.UpdateKeepAlive("dev1"))

	status, err := repo.GetStatus("dev1")
	require.NoError(t, err)
	require.NotNil(t, status.LastKeepAlive)
	assert.InDelta(t, EpochSeconds(clock.Now()), *status.LastKeepAlive, 0.001)
	assert.Equal(t, DatetimeStr(clock.Now()), status.LastKeepAliveStr)

	// 保活不触碰锁定状态
	assert.True(t, status.IsLocked)
	assert.Equal(t, "initialized", status.LastEvent)
}

func TestUpdateKeepAliveUnknownDevice(t *testing.T) {
	svc, repo, _ := newTestDeviceService(t)

	// 未注册的设备保活不应创建记录
	require.NoError(t, svc.UpdateKeepAlive("ghost"))
	assert.False(t, repo.HasDevice("ghost"))
}

func TestStoreAndGetLatestSnapshot(t *testing.T) {
	svc, _, _ := newTestDeviceService(t)

	payload := map[string]interface{}{
		"device_id": "dev1",
		"timestamp": float64(testBaseTime.UnixMilli()),
		"battery": map[string]interface{}{
			"level_percentage": float64(87),
			"is_charging":      true,
		},
		"network": map[string]interface{}{"type": "WIFI"},
	}
	require.NoError(t, svc.StoreStatusSnapshot("dev1", payload))

	latest, err := svc.GetLatestSnapshot("dev1")
	require.NoError(t, err)
	assert.Equal(t, "dev1", latest["device_id"])
	assert.NotEmpty(t, latest["server_processed_at_str"])

	summary := svc.FormatSnapshotSummary(latest)
	assert.Equal(t, "dev1", summary.DeviceID)
	require.NotNil(t, summary.BatteryLevel)
	assert.Equal(t, 87, *summary.BatteryLevel)
	require.NotNil(t, summary.IsCharging)
	assert.True(t, *summary.IsCharging)
	require.NotNil(t, summary.NetworkType)
	assert.Equal(t, "WIFI", *summary.NetworkType)
}
