package model

import "time"

// Holiday 租户假日表
// 假日既跳过当天检测，也从滚动窗口分析的排期日中剔除
type Holiday struct {
	BaseModel
	CompanyID   int64     `gorm:"not null;uniqueIndex:uidx_holidays_company_date" json:"company_id"`
	HolidayDate time.Time `gorm:"type:date;not null;uniqueIndex:uidx_holidays_company_date" json:"holiday_date"`
	Name        string    `gorm:"type:varchar(128);not null;default:''" json:"name"`
}

// TableName 指定表名
func (Holiday) TableName() string {
	return "holidays"
}
