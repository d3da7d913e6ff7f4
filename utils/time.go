package utils

import (
	"time"
)

// DateLayout 本地日历日的规范格式
const DateLayout = "2006-01-02"

// ParseTime 解析时间字符串（格式：HH:MM:SS，兼容 HH:MM）并应用到指定日期
func ParseTime(timeStr string, date time.Time) (time.Time, error) {
	if timeStr == "" {
		return date, nil
	}

	parsedTime, err := time.Parse("15:04:05", timeStr)
	if err != nil {
		parsedTime, err = time.Parse("15:04", timeStr)
		if err != nil {
			return date, err
		}
	}

	return time.Date(
		date.Year(),
		date.Month(),
		date.Day(),
		parsedTime.Hour(),
		parsedTime.Minute(),
		parsedTime.Second(),
		0,
		date.Location(),
	), nil
}

// LocalDate 取某时刻在指定时区下的日历日（当天零点）
func LocalDate(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DateString 格式化为 "2006-01-02"
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween 两个日历日之间的自然日天数（a 到 b，b 晚于 a 时为正）
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// WeekOfMonth 当月第几周，1 起（按日期除 7 上取整）
func WeekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}
