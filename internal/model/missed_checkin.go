package model

import "time"

// MissStatus 漏打卡记录状态枚举
type MissStatus string

const (
	MissStatusOpen          MissStatus = "open"          // 初始状态
	MissStatusInvestigating MissStatus = "investigating" // 跟进中
	MissStatusExcused       MissStatus = "excused"       // 终态：已豁免
	MissStatusResolved      MissStatus = "resolved"      // 终态：已处理
)

// IsTerminal 是否终态
func (s MissStatus) IsTerminal() bool {
	return s == MissStatusExcused || s == MissStatusResolved
}

// Valid 是否为已知状态值
func (s MissStatus) Valid() bool {
	switch s {
	case MissStatusOpen, MissStatusInvestigating, MissStatusExcused, MissStatusResolved:
		return true
	}
	return false
}

// MissedCheckIn 漏打卡记录，检测引擎的主要输出
// 唯一约束 (company_id, person_id, missed_date) 是防止重复检测的唯一正确性边界：
// 写入走 insert-or-ignore，重复触发静默吸收
// 负责人身份在创建时冻结，之后团队换负责人不回溯历史记录
type MissedCheckIn struct {
	BaseModel
	PublicID  int64 `gorm:"uniqueIndex;not null" json:"public_id"`
	CompanyID int64 `gorm:"not null;uniqueIndex:uidx_missed_company_person_date;index:idx_missed_company_status" json:"company_id"`
	PersonID  int64 `gorm:"not null;uniqueIndex:uidx_missed_company_person_date;index" json:"person_id"`
	TeamID    int64 `gorm:"not null;index" json:"team_id"`

	MissedDate time.Time `gorm:"type:date;not null;uniqueIndex:uidx_missed_company_person_date;index" json:"missed_date"`

	// 人类可读的当日有效窗口，如 "08:00 - 10:00"
	ScheduleWindow string `gorm:"type:varchar(32);not null;default:''" json:"schedule_window"`

	// 冻结的负责人身份
	LeaderID   *int64 `json:"leader_id,omitempty"`
	LeaderName string `gorm:"type:varchar(128);not null;default:''" json:"leader_name"`

	Snapshot BehaviorSnapshot `gorm:"type:jsonb;serializer:json" json:"snapshot"`

	Status          MissStatus `gorm:"type:varchar(16);not null;default:'open';index:idx_missed_company_status" json:"status"`
	ResolutionNotes *string    `gorm:"type:text" json:"resolution_notes,omitempty"`
	ResolvedBy      *int64     `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `gorm:"type:timestamptz" json:"resolved_at,omitempty"`
}

// TableName 指定表名
func (MissedCheckIn) TableName() string {
	return "missed_check_ins"
}

// DateString 漏打卡本地日历日的规范字符串形式
func (m *MissedCheckIn) DateString() string {
	return m.MissedDate.Format("2006-01-02")
}
