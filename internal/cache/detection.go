package cache

import (
	"context"
	"fmt"
	"time"

	"aegira/storage/redis"
)

// 检测相关的幂等标记
// 漏打卡记录本身靠数据库唯一索引兜底，这里只挡通知侧的重复投递

const (
	leaderNotifiedPrefix  = "detect:leader:notified"
	escalationSweepPrefix = "detect:escalation:done"

	markTTL = 48 * time.Hour
)

// IsLeaderNotified 检查某负责人当日的聚合告警是否已投递
func IsLeaderNotified(ctx context.Context, date string, leaderID int64) (bool, error) {
	key := redis.Key(leaderNotifiedPrefix, date, fmt.Sprintf("%d", leaderID))
	result, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check leader notified status: %w", err)
	}
	return result > 0, nil
}

// MarkLeaderNotified 标记某负责人当日的聚合告警已投递
func MarkLeaderNotified(ctx context.Context, date string, leaderID int64) error {
	key := redis.Key(leaderNotifiedPrefix, date, fmt.Sprintf("%d", leaderID))
	return redis.Client().Set(ctx, key, "1", markTTL).Err()
}

// TryMarkEscalationSweep 原子标记当日的滞留记录扫描已做过（SetNX）
// 返回 true 表示本次抢到，应继续执行
func TryMarkEscalationSweep(ctx context.Context, date string) (bool, error) {
	key := redis.Key(escalationSweepPrefix, date)
	result, err := redis.Client().SetNX(ctx, key, "1", markTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark escalation sweep: %w", err)
	}
	return result, nil
}
