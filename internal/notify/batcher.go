package notify

// 通知分派：把新产生的漏打卡记录按冻结的负责人分组，
// 每个负责人一条聚合意图，每个成员一条个人意图
// 通知失败不影响检测结果，记录已落库，失败只记日志

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"aegira/internal/cache"
	"aegira/internal/model"
	"aegira/pkg/logger"

	"go.uber.org/zap"
)

// IntentPublisher 通知意图批的发布出口，生产实现走 queue.PublishMissedCheckInNotifications
type IntentPublisher interface {
	Publish(msg model.MissedCheckInNotificationMessage) error
}

// LeaderMarker 负责人当日聚合告警的去重标记
// 同一负责人同一天最多收到一条聚合意图，成员的个人意图不受此约束
type LeaderMarker interface {
	IsNotified(ctx context.Context, date string, leaderID int64) (bool, error)
	Mark(ctx context.Context, date string, leaderID int64) error
}

// RedisLeaderMarker 基于 redis 标记位的去重实现
type RedisLeaderMarker struct{}

func (RedisLeaderMarker) IsNotified(ctx context.Context, date string, leaderID int64) (bool, error) {
	return cache.IsLeaderNotified(ctx, date, leaderID)
}

func (RedisLeaderMarker) Mark(ctx context.Context, date string, leaderID int64) error {
	return cache.MarkLeaderNotified(ctx, date, leaderID)
}

type Batcher struct {
	publisher IntentPublisher
	marker    LeaderMarker
}

func NewBatcher(publisher IntentPublisher, marker LeaderMarker) *Batcher {
	return &Batcher{publisher: publisher, marker: marker}
}

// Dispatch 为一个租户当日新产生的记录构建并发布通知意图批
// people 需覆盖记录涉及的成员与负责人（取名字和 public_id 用）
func (b *Batcher) Dispatch(ctx context.Context, companyID int64, date string, batchID string, records []*model.MissedCheckIn, people map[int64]*model.Person) error {
	if len(records) == 0 {
		return nil
	}

	var intents []model.NotificationIntent

	// 按冻结的负责人分组，无负责人的记录只发个人意图
	grouped := make(map[int64][]*model.MissedCheckIn)
	for _, rec := range records {
		if rec.LeaderID != nil {
			grouped[*rec.LeaderID] = append(grouped[*rec.LeaderID], rec)
		}
	}

	leaderIDs := make([]int64, 0, len(grouped))
	for id := range grouped {
		leaderIDs = append(leaderIDs, id)
	}
	sort.Slice(leaderIDs, func(i, j int) bool { return leaderIDs[i] < leaderIDs[j] })

	for _, leaderID := range leaderIDs {
		group := grouped[leaderID]

		notified, err := b.marker.IsNotified(ctx, date, leaderID)
		if err != nil {
			// 标记读失败时按未通知处理，宁可重复也不漏
			logger.Logger.Warn("Failed to read leader notified mark",
				zap.Int64("leader_id", leaderID),
				zap.String("date", date),
				zap.Error(err),
			)
			notified = false
		}
		if notified {
			logger.Logger.Info("Leader already notified today, skipping aggregate intent",
				zap.Int64("leader_id", leaderID),
				zap.String("date", date),
			)
			continue
		}

		leader, ok := people[leaderID]
		if !ok {
			logger.Logger.Warn("Leader not found for aggregate intent",
				zap.Int64("leader_id", leaderID),
				zap.String("date", date),
			)
			continue
		}

		intents = append(intents, buildLeaderIntent(leader, group, people))

		if err := b.marker.Mark(ctx, date, leaderID); err != nil {
			logger.Logger.Warn("Failed to set leader notified mark",
				zap.Int64("leader_id", leaderID),
				zap.String("date", date),
				zap.Error(err),
			)
		}
	}

	for _, rec := range records {
		person, ok := people[rec.PersonID]
		if !ok {
			logger.Logger.Warn("Person not found for worker intent",
				zap.Int64("person_id", rec.PersonID),
				zap.String("date", date),
			)
			continue
		}
		intents = append(intents, buildWorkerIntent(person, rec))
	}

	if len(intents) == 0 {
		return nil
	}

	msg := model.MissedCheckInNotificationMessage{
		BatchID:    batchID,
		CompanyID:  companyID,
		MissedDate: date,
		Intents:    intents,
	}

	if err := b.publisher.Publish(msg); err != nil {
		logger.Logger.Error("Failed to publish notification intents",
			zap.String("batch_id", batchID),
			zap.Int64("company_id", companyID),
			zap.Int("intent_count", len(intents)),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func buildLeaderIntent(leader *model.Person, group []*model.MissedCheckIn, people map[int64]*model.Person) model.NotificationIntent {
	names := make([]string, 0, len(group))
	for _, rec := range group {
		if p, ok := people[rec.PersonID]; ok {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)

	return model.NotificationIntent{
		RecipientID: leader.PublicID,
		Type:        model.IntentTypeMissedCheckIn,
		Title:       "团队漏打卡告警",
		Message:     fmt.Sprintf("您的团队今日有 %d 名成员漏打卡：%s", len(group), strings.Join(names, "、")),
	}
}

func buildWorkerIntent(person *model.Person, rec *model.MissedCheckIn) model.NotificationIntent {
	return model.NotificationIntent{
		RecipientID: person.PublicID,
		Type:        model.IntentTypeMissedCheckIn,
		Title:       "漏打卡提醒",
		Message:     fmt.Sprintf("您在 %s 的打卡窗口（%s）内没有打卡记录，请及时与负责人确认", rec.DateString(), rec.ScheduleWindow),
	}
}
