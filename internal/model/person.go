package model

import "time"

// PersonRole 人员角色枚举
type PersonRole string

const (
	PersonRoleWorker     PersonRole = "worker"      // 一线成员，漏打卡检测对象
	PersonRoleTeamLeader PersonRole = "team_leader" // 团队负责人，聚合告警接收方
	PersonRoleAdmin      PersonRole = "admin"       // 租户管理员
)

// Person 人员模型
// 排期覆盖字段为空表示继承团队默认，逐字段生效而不是整体替换
type Person struct {
	BaseModel
	PublicID  int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	CompanyID int64      `gorm:"not null;index:idx_persons_company" json:"company_id"`
	TeamID    *int64     `gorm:"index:idx_persons_team_active" json:"team_id,omitempty"`
	Name      string     `gorm:"type:varchar(128);not null" json:"name"`
	Role      PersonRole `gorm:"type:varchar(16);not null;default:'worker';index" json:"role"`
	Active    bool       `gorm:"not null;default:true;index:idx_persons_team_active" json:"active"`

	// 入队时间：成员在分配日当天不参与检测，从次日（租户本地日历）开始
	TeamJoinedAt *time.Time `gorm:"type:timestamptz" json:"team_joined_at,omitempty"`

	// 个人排期覆盖，任一字段非空时覆盖团队默认的同名字段
	WorkDays           *WorkDays `gorm:"type:jsonb;serializer:json" json:"work_days,omitempty"`
	CheckInWindowStart *string   `gorm:"type:varchar(8)" json:"check_in_window_start,omitempty"`
	CheckInWindowEnd   *string   `gorm:"type:varchar(8)" json:"check_in_window_end,omitempty"`
}

// TableName 指定表名
func (Person) TableName() string {
	return "persons"
}
