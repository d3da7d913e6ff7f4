package cache

import (
	"context"
	"time"

	"aegira/storage/redis"
)

// 基于 SetNX 的分布式锁，多实例部署时保证同一时刻只有一个检测 pass
// 单实例下进程内的 running 标志已经够用，这里是配置开启的加强项

const (
	lockPrefix = "lock"

	// DetectionLockTTL 检测运行锁的保底过期时间，防止实例崩溃后锁悬挂
	DetectionLockTTL = 30 * time.Minute
)

func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {

	fullkey := redis.Key(lockPrefix, key)

	result, err := redis.Client().SetNX(ctx, fullkey, 1, ttl).Result()

	if err != nil {
		return false, err
	}

	return result, err
}

func Unlock(ctx context.Context, key string) error {
	fullkey := redis.Key(lockPrefix, key)

	return redis.Client().Del(ctx, fullkey).Err()
}

// TryLockDetectionRun 获取检测 pass 的全局运行锁
func TryLockDetectionRun(ctx context.Context) (bool, error) {
	return TryLock(ctx, "detection:run", DetectionLockTTL)
}

// UnlockDetectionRun 释放检测运行锁
func UnlockDetectionRun(ctx context.Context) error {
	return Unlock(ctx, "detection:run")
}
