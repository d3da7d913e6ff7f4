package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegira/internal/model"
	"aegira/utils"
)

func floatPtr(v float64) *float64 { return &v }

// workDaySet 测试用的最小排期视图
type workDaySet model.WorkDays

func (d workDaySet) IsWorkDay(w time.Weekday) bool {
	return model.WorkDays(d).Contains(w)
}

func allDays() workDaySet {
	return workDaySet{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
}

func weekdaysOnly() workDaySet {
	return workDaySet{"monday", "tuesday", "wednesday", "thursday", "friday"}
}

// 2026-03-02 周一
var asOf = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func keyOffset(offset int) string {
	return utils.DateString(asOf.AddDate(0, 0, -offset))
}

func history(s WorkSchedule) WorkerHistory {
	return WorkerHistory{
		PersonID:  1,
		Schedule:  s,
		CheckIns:  map[string]*float64{},
		MissDates: map[string]struct{}{},
	}
}

func calc(t *testing.T, h WorkerHistory, holidays map[string]struct{}) model.BehaviorSnapshot {
	if holidays == nil {
		holidays = map[string]struct{}{}
	}
	out := CalculateBatch([]WorkerHistory{h}, asOf, holidays)
	require.Contains(t, out, int64(1))
	return out[1]
}

func TestSnapshotCalendarFields(t *testing.T) {
	snap := calc(t, history(allDays()), nil)
	assert.Equal(t, "monday", snap.DayOfWeek)
	assert.Equal(t, 1, snap.WeekOfMonth)
}

func TestStreakCountsConsecutiveCheckIns(t *testing.T) {
	h := history(allDays())
	for offset := 1; offset <= 5; offset++ {
		h.CheckIns[keyOffset(offset)] = nil
	}
	snap := calc(t, h, nil)
	assert.Equal(t, 5, snap.StreakBefore)
}

func TestStreakSkipsNonWorkDays(t *testing.T) {
	// 工作日排期：周五周四打了卡，中间的周末不断连
	h := history(weekdaysOnly())
	h.CheckIns[keyOffset(3)] = nil // 周五
	h.CheckIns[keyOffset(4)] = nil // 周四
	snap := calc(t, h, nil)
	assert.Equal(t, 2, snap.StreakBefore)
}

func TestStreakSkipsHolidays(t *testing.T) {
	h := history(allDays())
	h.CheckIns[keyOffset(1)] = nil
	h.CheckIns[keyOffset(3)] = nil
	holidays := map[string]struct{}{keyOffset(2): {}}
	snap := calc(t, h, holidays)
	assert.Equal(t, 2, snap.StreakBefore)
}

func TestStreakBreaksOnMissedScheduledDay(t *testing.T) {
	h := history(allDays())
	h.CheckIns[keyOffset(1)] = nil
	// offset 2 是排期日但没打卡
	h.CheckIns[keyOffset(3)] = nil
	snap := calc(t, h, nil)
	assert.Equal(t, 1, snap.StreakBefore)
}

func TestMissWindowsExcludeAsOfDay(t *testing.T) {
	h := history(allDays())
	h.MissDates[keyOffset(0)] = struct{}{}  // asOf 当天不算
	h.MissDates[keyOffset(30)] = struct{}{} // 窗口边界 d=30 算在 30 天内
	h.MissDates[keyOffset(31)] = struct{}{}
	h.MissDates[keyOffset(61)] = struct{}{}
	snap := calc(t, h, nil)
	assert.Equal(t, 1, snap.MissesLast30Days)
	assert.Equal(t, 3, snap.MissesLast60Days)
	assert.Equal(t, 4, snap.MissesLast90Days)
}

func TestFirstMissIn30Days(t *testing.T) {
	h := history(allDays())
	h.MissDates[keyOffset(45)] = struct{}{}
	snap := calc(t, h, nil)
	assert.True(t, snap.IsFirstMissIn30Days)

	h.MissDates[keyOffset(10)] = struct{}{}
	snap = calc(t, h, nil)
	assert.False(t, snap.IsFirstMissIn30Days)
}

func TestIncreasingFrequency(t *testing.T) {
	// 30 天 2 次 vs 60 天共 4 次：2 > 4/2 不成立
	h := history(allDays())
	h.MissDates[keyOffset(5)] = struct{}{}
	h.MissDates[keyOffset(10)] = struct{}{}
	h.MissDates[keyOffset(40)] = struct{}{}
	h.MissDates[keyOffset(50)] = struct{}{}
	snap := calc(t, h, nil)
	assert.False(t, snap.IsIncreasingFrequency)

	// 再加一次近期漏打卡：3 > 5/2 成立
	h.MissDates[keyOffset(15)] = struct{}{}
	snap = calc(t, h, nil)
	assert.True(t, snap.IsIncreasingFrequency)
}

func TestIncreasingFrequencySingleRecentMiss(t *testing.T) {
	// 60 天只有这一次：1 > 1/2，也要触发
	h := history(allDays())
	h.MissDates[keyOffset(5)] = struct{}{}
	snap := calc(t, h, nil)
	assert.True(t, snap.IsIncreasingFrequency)
}

func TestDaysSinceLastEvents(t *testing.T) {
	h := history(allDays())
	snap := calc(t, h, nil)
	assert.Nil(t, snap.DaysSinceLastCheckIn)
	assert.Nil(t, snap.DaysSinceLastMiss)

	h.CheckIns[keyOffset(3)] = nil
	h.CheckIns[keyOffset(8)] = nil
	h.MissDates[keyOffset(6)] = struct{}{}
	snap = calc(t, h, nil)
	require.NotNil(t, snap.DaysSinceLastCheckIn)
	assert.Equal(t, 3, *snap.DaysSinceLastCheckIn)
	require.NotNil(t, snap.DaysSinceLastMiss)
	assert.Equal(t, 6, *snap.DaysSinceLastMiss)
}

func TestBaselineCompletionRate(t *testing.T) {
	// 全排期，90 个排期日里打了 45 天
	h := history(allDays())
	for offset := 1; offset <= 45; offset++ {
		h.CheckIns[keyOffset(offset)] = nil
	}
	snap := calc(t, h, nil)
	assert.InDelta(t, 0.5, snap.BaselineCompletionRate, 1e-9)
}

func TestBaselineZeroWhenNoScheduledDays(t *testing.T) {
	snap := calc(t, history(workDaySet{}), nil)
	assert.Equal(t, 0.0, snap.BaselineCompletionRate)
}

func TestRecentReadinessAvg(t *testing.T) {
	h := history(allDays())
	snap := calc(t, h, nil)
	assert.Nil(t, snap.RecentReadinessAvg)

	h.CheckIns[keyOffset(1)] = floatPtr(8)
	h.CheckIns[keyOffset(2)] = floatPtr(6)
	h.CheckIns[keyOffset(3)] = nil // 打了卡但没评分，不进均值
	snap = calc(t, h, nil)
	require.NotNil(t, snap.RecentReadinessAvg)
	assert.InDelta(t, 7.0, *snap.RecentReadinessAvg, 1e-9)
}

func TestRecentReadinessAvgLimitedToLookback(t *testing.T) {
	// 第 15 个排期日的高分不应被计入
	h := history(allDays())
	h.CheckIns[keyOffset(1)] = floatPtr(5)
	h.CheckIns[keyOffset(15)] = floatPtr(10)
	snap := calc(t, h, nil)
	require.NotNil(t, snap.RecentReadinessAvg)
	assert.InDelta(t, 5.0, *snap.RecentReadinessAvg, 1e-9)
}
