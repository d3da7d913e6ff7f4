package model

// BehaviorSnapshot 检测时刻冻结的行为快照（JSONB 内嵌在漏打卡记录上）
// 只在记录创建时计算一次，之后排期或假日变更都不回溯修改
type BehaviorSnapshot struct {
	DayOfWeek   string `json:"day_of_week"`   // 漏打卡发生的星期几
	WeekOfMonth int    `json:"week_of_month"` // 当月第几周（1 起）

	// 截至前一天的连续打卡天数（按有效排期，跳过假日）
	StreakBefore int `json:"streak_before"`

	// 距最近一次打卡/漏打卡的自然日天数，窗口内没有则为 null
	DaysSinceLastCheckIn *int `json:"days_since_last_check_in"`
	DaysSinceLastMiss    *int `json:"days_since_last_miss"`

	// 滚动窗口漏打卡次数，区间 [asOf-N, asOf)
	MissesLast30Days int `json:"misses_last_30_days"`
	MissesLast60Days int `json:"misses_last_60_days"`
	MissesLast90Days int `json:"misses_last_90_days"`

	// 近 14 个排期日内打卡评分均值，无数据为 null
	RecentReadinessAvg *float64 `json:"recent_readiness_avg"`

	// 90 天窗口内 已打卡排期日 / 全部排期日（剔除假日）
	BaselineCompletionRate float64 `json:"baseline_completion_rate"`

	IsFirstMissIn30Days   bool `json:"is_first_miss_in_30_days"`
	IsIncreasingFrequency bool `json:"is_increasing_frequency"` // 30 天计数 > 60 天计数的一半
}
