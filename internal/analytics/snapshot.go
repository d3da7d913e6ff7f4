package analytics

// 行为快照计算：对即将记为漏打卡的成员，基于 asOf 之前的历史
// 算出一份冻结指标。纯计算，不碰存储，历史数据由编排器批量喂入

import (
	"strings"
	"time"

	"aegira/internal/model"
	"aegira/utils"
)

const (
	// HistoryDays 历史窗口长度，连续打卡回溯走到窗口边缘即视为历史耗尽
	HistoryDays = 90

	// readinessLookbackDays 评分均值回看的排期日数量
	readinessLookbackDays = 14
)

// WorkSchedule 快照计算需要的排期视图，只关心某天是否该打卡
// 编排器传入合并后的有效排期，本包不依赖排期的解析过程
type WorkSchedule interface {
	IsWorkDay(w time.Weekday) bool
}

// WorkerHistory 单个成员的历史事实，全部由编排器预先批量取好
type WorkerHistory struct {
	PersonID int64
	Schedule WorkSchedule

	// 打卡日 -> 评分（无评分为 nil），key 为 "2006-01-02"
	CheckIns map[string]*float64

	// 历史漏打卡日集合
	MissDates map[string]struct{}
}

// CalculateBatch 为一批成员计算 asOf 当日的冻结快照
// holidays 覆盖 [asOf-HistoryDays, asOf) 的租户假日集合
func CalculateBatch(
	histories []WorkerHistory,
	asOf time.Time,
	holidays map[string]struct{},
) map[int64]model.BehaviorSnapshot {
	result := make(map[int64]model.BehaviorSnapshot, len(histories))
	for _, h := range histories {
		result[h.PersonID] = calculateOne(h, asOf, holidays)
	}
	return result
}

func calculateOne(h WorkerHistory, asOf time.Time, holidays map[string]struct{}) model.BehaviorSnapshot {
	snap := model.BehaviorSnapshot{
		DayOfWeek:   strings.ToLower(asOf.Weekday().String()),
		WeekOfMonth: utils.WeekOfMonth(asOf),
	}

	snap.StreakBefore = streakBefore(h, asOf, holidays)
	snap.DaysSinceLastCheckIn = daysSinceLast(h.CheckIns, asOf)
	snap.DaysSinceLastMiss = daysSinceLastMiss(h.MissDates, asOf)

	snap.MissesLast30Days = missesInWindow(h.MissDates, asOf, 30)
	snap.MissesLast60Days = missesInWindow(h.MissDates, asOf, 60)
	snap.MissesLast90Days = missesInWindow(h.MissDates, asOf, 90)

	snap.RecentReadinessAvg = recentReadinessAvg(h, asOf, holidays)
	snap.BaselineCompletionRate = baselineCompletionRate(h, asOf, holidays)

	snap.IsFirstMissIn30Days = snap.MissesLast30Days == 0

	// 保持源定义的比较口径：30 天计数 > 60 天计数的一半
	// 用浮点比较，1 > 1/2 也要能触发
	snap.IsIncreasingFrequency = float64(snap.MissesLast30Days) > float64(snap.MissesLast60Days)/2.0

	return snap
}

// streakBefore 从 asOf 前一天往回走，数连续打卡的排期日
// 非排期日和假日跳过不断连；遇到排期日没打卡或走出历史窗口即停
func streakBefore(h WorkerHistory, asOf time.Time, holidays map[string]struct{}) int {
	streak := 0
	for offset := 1; offset <= HistoryDays; offset++ {
		day := asOf.AddDate(0, 0, -offset)
		key := utils.DateString(day)

		if _, isHoliday := holidays[key]; isHoliday {
			continue
		}
		if !h.Schedule.IsWorkDay(day.Weekday()) {
			continue
		}

		if _, ok := h.CheckIns[key]; !ok {
			break
		}
		streak++
	}
	return streak
}

func daysSinceLast(checkIns map[string]*float64, asOf time.Time) *int {
	best := -1
	for key := range checkIns {
		day, err := time.Parse(utils.DateLayout, key)
		if err != nil {
			continue
		}
		d := utils.DaysBetween(day, asOf)
		if d <= 0 {
			continue // 严格早于 asOf
		}
		if best == -1 || d < best {
			best = d
		}
	}
	if best == -1 {
		return nil
	}
	return &best
}

func daysSinceLastMiss(missDates map[string]struct{}, asOf time.Time) *int {
	best := -1
	for key := range missDates {
		day, err := time.Parse(utils.DateLayout, key)
		if err != nil {
			continue
		}
		d := utils.DaysBetween(day, asOf)
		if d <= 0 {
			continue
		}
		if best == -1 || d < best {
			best = d
		}
	}
	if best == -1 {
		return nil
	}
	return &best
}

// missesInWindow 统计 [asOf-window, asOf) 内的漏打卡次数
func missesInWindow(missDates map[string]struct{}, asOf time.Time, window int) int {
	count := 0
	for key := range missDates {
		day, err := time.Parse(utils.DateLayout, key)
		if err != nil {
			continue
		}
		d := utils.DaysBetween(day, asOf)
		if d > 0 && d <= window {
			count++
		}
	}
	return count
}

// recentReadinessAvg 最近 14 个排期日（剔除假日）里已有评分的均值
func recentReadinessAvg(h WorkerHistory, asOf time.Time, holidays map[string]struct{}) *float64 {
	var sum float64
	var n int
	scheduled := 0

	for offset := 1; offset <= HistoryDays && scheduled < readinessLookbackDays; offset++ {
		day := asOf.AddDate(0, 0, -offset)
		key := utils.DateString(day)

		if _, isHoliday := holidays[key]; isHoliday {
			continue
		}
		if !h.Schedule.IsWorkDay(day.Weekday()) {
			continue
		}
		scheduled++

		if score, ok := h.CheckIns[key]; ok && score != nil {
			sum += *score
			n++
		}
	}

	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// baselineCompletionRate 90 天窗口内 已打卡排期日 / 全部排期日（剔除假日）
// 窗口内一个排期日都没有时返回 0，调用方把低基线当"数据不足"看待
func baselineCompletionRate(h WorkerHistory, asOf time.Time, holidays map[string]struct{}) float64 {
	scheduled := 0
	completed := 0

	for offset := 1; offset <= HistoryDays; offset++ {
		day := asOf.AddDate(0, 0, -offset)
		key := utils.DateString(day)

		if _, isHoliday := holidays[key]; isHoliday {
			continue
		}
		if !h.Schedule.IsWorkDay(day.Weekday()) {
			continue
		}
		scheduled++

		if _, ok := h.CheckIns[key]; ok {
			completed++
		}
	}

	if scheduled == 0 {
		return 0
	}
	return float64(completed) / float64(scheduled)
}
