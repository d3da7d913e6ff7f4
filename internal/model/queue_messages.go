package model

// NotificationIntent 单条通知意图，投递/重试由下游的送达服务负责
type NotificationIntent struct {
	RecipientID int64  `json:"recipient_id"` // person public_id
	Type        string `json:"type"`         // 固定为 MISSED_CHECK_IN
	Title       string `json:"title"`
	Message     string `json:"message"`
}

// IntentTypeMissedCheckIn 漏打卡告警的通知类型
const IntentTypeMissedCheckIn = "MISSED_CHECK_IN"

// MissedCheckInNotificationMessage 一次检测 pass 产出的通知意图批
// MessageID 供消费侧做幂等检查
type MissedCheckInNotificationMessage struct {
	MessageID   string               `json:"message_id"`
	BatchID     string               `json:"batch_id"`
	CompanyID   int64                `json:"company_id"`
	MissedDate  string               `json:"missed_date"`
	ScheduledAt string               `json:"scheduled_at"`
	Intents     []NotificationIntent `json:"intents"`
}
