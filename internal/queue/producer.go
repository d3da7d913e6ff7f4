package queue

import (
	"fmt"
	"time"

	"aegira/internal/model"
	"aegira/pkg/logger"
	"aegira/pkg/snowflake"
	"aegira/storage/mq"

	"go.uber.org/zap"
)

// 漏打卡通知的 routing key，消费侧按 notification.* 订阅
const missedCheckInRoutingKey = "notification.missed_check_in"

// PublishMissedCheckInNotifications 发布一个租户当日的漏打卡通知批次
func PublishMissedCheckInNotifications(msg model.MissedCheckInNotificationMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID(snowflake.GeneratorTypeMessage)
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.String("batch_id", msg.BatchID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("missed_checkin_%d", id)
	}
	if msg.ScheduledAt == "" {
		msg.ScheduledAt = time.Now().Format(time.RFC3339)
	}

	err := mq.PublishMessage(
		mq.NotificationExchange,
		missedCheckInRoutingKey,
		msg,
	)

	if err != nil {
		logger.Logger.Error("Failed to publish missed check-in notification message",
			zap.String("batch_id", msg.BatchID),
			zap.Int64("company_id", msg.CompanyID),
			zap.Int("intent_count", len(msg.Intents)),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published missed check-in notification message",
		zap.String("message_id", msg.MessageID),
		zap.String("batch_id", msg.BatchID),
		zap.Int64("company_id", msg.CompanyID),
		zap.String("missed_date", msg.MissedDate),
		zap.Int("intent_count", len(msg.Intents)),
	)

	return nil
}
