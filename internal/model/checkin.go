package model

import "time"

// CheckIn 打卡记录
// 由提交链路（核心之外）写入，每人每个本地日历日最多一条
// (person_id, check_in_date) 存在即抑制当日的漏打卡检测
type CheckIn struct {
	BaseModel
	CompanyID   int64     `gorm:"not null;index:idx_check_ins_company_date" json:"company_id"`
	PersonID    int64     `gorm:"not null;uniqueIndex:uidx_check_ins_person_date" json:"person_id"`
	CheckInDate time.Time `gorm:"type:date;not null;uniqueIndex:uidx_check_ins_person_date;index:idx_check_ins_company_date" json:"check_in_date"`
	SubmittedAt time.Time `gorm:"type:timestamptz;not null" json:"submitted_at"`

	// 主观状态评分 0-10，可缺失
	ReadinessScore *float64 `gorm:"type:numeric(4,2)" json:"readiness_score,omitempty"`
}

// TableName 指定表名
func (CheckIn) TableName() string {
	return "check_ins"
}

// DateString 本地日历日的规范字符串形式
func (c *CheckIn) DateString() string {
	return c.CheckInDate.Format("2006-01-02")
}
