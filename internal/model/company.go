package model

// Company 租户模型，所有数据按 company_id 分区
// 检测只遍历 active 的租户，单次 pass 内视为只读
type Company struct {
	BaseModel
	PublicID int64  `gorm:"uniqueIndex;not null" json:"public_id"`
	Name     string `gorm:"type:varchar(128);not null" json:"name"`
	Timezone string `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"` // IANA 时区名
	Active   bool   `gorm:"not null;default:true;index:idx_companies_active" json:"active"`
}

// TableName 指定表名
func (Company) TableName() string {
	return "companies"
}
