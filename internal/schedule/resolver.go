package schedule

// 排期解析：把个人覆盖和团队默认合并成一份有效排期
// 逐字段取值：个人有就用个人的，没有回落团队默认，绝不整体替换

import (
	"fmt"
	"time"

	"aegira/internal/model"
	"aegira/utils"
)

// ResolvedSchedule 合并后的有效排期，纯值类型
type ResolvedSchedule struct {
	WorkDays    model.WorkDays
	WindowStart string // "15:04:05"
	WindowEnd   string
}

// Resolve 计算成员的有效排期
// 个人覆盖字段格式非法时按"未覆盖"处理，回落团队默认
func Resolve(person *model.Person, team *model.Team) ResolvedSchedule {
	resolved := ResolvedSchedule{
		WorkDays:    team.WorkDays,
		WindowStart: team.CheckInWindowStart,
		WindowEnd:   team.CheckInWindowEnd,
	}

	if person == nil {
		return resolved
	}

	if person.WorkDays != nil {
		resolved.WorkDays = *person.WorkDays
	}
	if person.CheckInWindowStart != nil && validClock(*person.CheckInWindowStart) {
		resolved.WindowStart = *person.CheckInWindowStart
	}
	if person.CheckInWindowEnd != nil && validClock(*person.CheckInWindowEnd) {
		resolved.WindowEnd = *person.CheckInWindowEnd
	}

	return resolved
}

// IsWorkDay 判断某个星期几是否是有效排期内的工作日
func (s ResolvedSchedule) IsWorkDay(w time.Weekday) bool {
	return s.WorkDays.Contains(w)
}

// WindowEndOn 把窗口结束时刻落到具体日期上（沿用日期自身的时区）
func (s ResolvedSchedule) WindowEndOn(date time.Time) (time.Time, error) {
	return utils.ParseTime(s.WindowEnd, date)
}

// Label 人类可读的窗口描述，落库到漏打卡记录上
func (s ResolvedSchedule) Label() string {
	return fmt.Sprintf("%s - %s", clockLabel(s.WindowStart), clockLabel(s.WindowEnd))
}

func validClock(v string) bool {
	if v == "" {
		return false
	}
	_, err := utils.ParseTime(v, time.Time{})
	return err == nil
}

// clockLabel 压缩成 HH:MM 展示
func clockLabel(v string) string {
	t, err := time.Parse("15:04:05", v)
	if err != nil {
		if t2, err2 := time.Parse("15:04", v); err2 == nil {
			return t2.Format("15:04")
		}
		return v
	}
	return t.Format("15:04")
}
