package schedule

// 滞留记录催办：每天一次，把长期停在 open 状态的漏打卡记录
// 汇总提醒给当时冻结的负责人。redis 标记保证每天只扫一遍

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"aegira/config"
	"aegira/internal/cache"
	"aegira/internal/model"
	"aegira/internal/notify"
	"aegira/internal/repository"
	"aegira/pkg/logger"
	"aegira/pkg/snowflake"
	"aegira/utils"
)

// EscalationStore 催办扫描所需的存储操作
type EscalationStore interface {
	ListStaleOpenMisses(ctx context.Context, olderThan time.Time) ([]*model.MissedCheckIn, error)
	GetPersonsByIDs(ctx context.Context, ids []int64) ([]*model.Person, error)
}

type EscalationSweeper struct {
	logger    *zap.Logger
	store     EscalationStore
	publisher notify.IntentPublisher

	now func() time.Time

	// 测试绕过 redis 用
	markSweep func(ctx context.Context, date string) (bool, error)
}

func NewEscalationSweeper(store EscalationStore, publisher notify.IntentPublisher) *EscalationSweeper {
	return &EscalationSweeper{
		logger:    logger.Logger,
		store:     store,
		publisher: publisher,
		now:       time.Now,
		markSweep: cache.TryMarkEscalationSweep,
	}
}

// GetEscalationSweeper 生产依赖组装好的实例
func GetEscalationSweeper() *EscalationSweeper {
	return NewEscalationSweeper(repository.Get(), queuePublisher{})
}

// Run 执行一次催办扫描
func (s *EscalationSweeper) Run(ctx context.Context) error {
	today := s.now().Format(utils.DateLayout)

	first, err := s.markSweep(ctx, today)
	if err != nil {
		s.logger.Error("Failed to mark escalation sweep", zap.Error(err))
		return fmt.Errorf("failed to mark escalation sweep: %w", err)
	}
	if !first {
		s.logger.Info("Escalation sweep already done today, skipping", zap.String("date", today))
		return nil
	}

	ageDays := config.Cfg.EscalationOpenAgeDays
	if ageDays <= 0 {
		ageDays = 7
	}
	olderThan := s.now().AddDate(0, 0, -ageDays)

	stale, err := s.store.ListStaleOpenMisses(ctx, olderThan)
	if err != nil {
		s.logger.Error("Failed to list stale open records", zap.Error(err))
		return fmt.Errorf("failed to list stale open records: %w", err)
	}
	if len(stale) == 0 {
		s.logger.Info("No stale open records", zap.String("date", today))
		return nil
	}

	// 先按租户、再按冻结负责人分组，每个负责人一条汇总提醒
	type leaderKey struct {
		companyID int64
		leaderID  int64
	}
	grouped := make(map[leaderKey][]*model.MissedCheckIn)
	leaderIDSet := make(map[int64]struct{})
	for _, rec := range stale {
		if rec.LeaderID == nil {
			continue
		}
		key := leaderKey{companyID: rec.CompanyID, leaderID: *rec.LeaderID}
		grouped[key] = append(grouped[key], rec)
		leaderIDSet[*rec.LeaderID] = struct{}{}
	}
	if len(grouped) == 0 {
		return nil
	}

	leaderIDs := make([]int64, 0, len(leaderIDSet))
	for id := range leaderIDSet {
		leaderIDs = append(leaderIDs, id)
	}
	leaders, err := s.store.GetPersonsByIDs(ctx, leaderIDs)
	if err != nil {
		s.logger.Error("Failed to load leaders for escalation", zap.Error(err))
		return fmt.Errorf("failed to load leaders: %w", err)
	}
	leaderByID := make(map[int64]*model.Person, len(leaders))
	for _, l := range leaders {
		leaderByID[l.ID] = l
	}

	intentsByCompany := make(map[int64][]model.NotificationIntent)
	keys := make([]leaderKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].companyID != keys[j].companyID {
			return keys[i].companyID < keys[j].companyID
		}
		return keys[i].leaderID < keys[j].leaderID
	})

	for _, key := range keys {
		leader, ok := leaderByID[key.leaderID]
		if !ok {
			s.logger.Warn("Leader not found for escalation reminder",
				zap.Int64("leader_id", key.leaderID),
				zap.Int64("company_id", key.companyID),
			)
			continue
		}
		group := grouped[key]
		intentsByCompany[key.companyID] = append(intentsByCompany[key.companyID], model.NotificationIntent{
			RecipientID: leader.PublicID,
			Type:        model.IntentTypeMissedCheckIn,
			Title:       "漏打卡记录待跟进",
			Message:     fmt.Sprintf("您的团队有 %d 条超过 %d 天未处理的漏打卡记录，请尽快跟进", len(group), ageDays),
		})
	}

	var published int
	for companyID, intents := range intentsByCompany {
		batchSeq, err := snowflake.NextID(snowflake.GeneratorTypeMessage)
		if err != nil {
			return fmt.Errorf("failed to generate batch ID: %w", err)
		}
		msg := model.MissedCheckInNotificationMessage{
			BatchID:    fmt.Sprintf("escalate_%d_%s_%d", companyID, today, batchSeq),
			CompanyID:  companyID,
			MissedDate: today,
			Intents:    intents,
		}
		if err := s.publisher.Publish(msg); err != nil {
			s.logger.Error("Failed to publish escalation reminders",
				zap.Int64("company_id", companyID),
				zap.Error(err),
			)
			continue
		}
		published += len(intents)
	}

	s.logger.Info("Escalation sweep finished",
		zap.String("date", today),
		zap.Int("stale_records", len(stale)),
		zap.Int("reminders_published", published),
	)

	return nil
}
