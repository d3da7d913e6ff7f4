package model

import (
	"strings"
	"time"
)

// WorkDays 工作日集合（JSONB），存小写英文星期名
// 空集合是合法的：表示该团队/成员当前不要求打卡
type WorkDays []string

// Contains 判断某个星期几是否在集合内
func (d WorkDays) Contains(w time.Weekday) bool {
	name := strings.ToLower(w.String())
	for _, day := range d {
		if strings.ToLower(day) == name {
			return true
		}
	}
	return false
}

// Team 团队模型，承载默认打卡排期
// 团队配置由租户管理端维护，检测引擎只读
type Team struct {
	BaseModel
	CompanyID int64    `gorm:"not null;index:idx_teams_company_active" json:"company_id"`
	Name      string   `gorm:"type:varchar(128);not null" json:"name"`
	Active    bool     `gorm:"not null;default:true;index:idx_teams_company_active" json:"active"`
	WorkDays  WorkDays `gorm:"type:jsonb;serializer:json;default:'[]'" json:"work_days"`

	// 默认打卡窗口 [start, end)，本地时间 "15:04:05" 格式
	CheckInWindowStart string `gorm:"type:varchar(8);not null;default:'08:00:00'" json:"check_in_window_start"`
	CheckInWindowEnd   string `gorm:"type:varchar(8);not null;default:'10:00:00'" json:"check_in_window_end"`

	LeaderID *int64 `gorm:"index" json:"leader_id,omitempty"` // 可选的负责人
}

// TableName 指定表名
func (Team) TableName() string {
	return "teams"
}
