package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aegira/internal/model"
	"aegira/pkg/logger"
)

func init() {
	logger.Logger = zap.NewNop()
}

type capturePublisher struct {
	messages []model.MissedCheckInNotificationMessage
	err      error
}

func (p *capturePublisher) Publish(msg model.MissedCheckInNotificationMessage) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

type memoryMarker struct {
	notified map[string]bool
	readErr  error
	marks    []string
}

func markerKey(date string, leaderID int64) string {
	return fmt.Sprintf("%s/%d", date, leaderID)
}

func newMemoryMarker() *memoryMarker {
	return &memoryMarker{notified: map[string]bool{}}
}

func (m *memoryMarker) IsNotified(ctx context.Context, date string, leaderID int64) (bool, error) {
	if m.readErr != nil {
		return false, m.readErr
	}
	return m.notified[markerKey(date, leaderID)], nil
}

func (m *memoryMarker) Mark(ctx context.Context, date string, leaderID int64) error {
	key := markerKey(date, leaderID)
	m.notified[key] = true
	m.marks = append(m.marks, key)
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

func miss(personID int64, leaderID *int64) *model.MissedCheckIn {
	return &model.MissedCheckIn{
		PersonID:       personID,
		CompanyID:      1,
		LeaderID:       leaderID,
		LeaderName:     "Li Lei",
		MissedDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ScheduleWindow: "08:00 - 10:00",
		Status:         model.MissStatusOpen,
	}
}

func teamPeople() map[int64]*model.Person {
	return map[int64]*model.Person{
		100: {BaseModel: model.BaseModel{ID: 100}, PublicID: 9100, Name: "Li Lei"},
		1:   {BaseModel: model.BaseModel{ID: 1}, PublicID: 9001, Name: "Han Meimei"},
		2:   {BaseModel: model.BaseModel{ID: 2}, PublicID: 9002, Name: "Wang Wu"},
		3:   {BaseModel: model.BaseModel{ID: 3}, PublicID: 9003, Name: "Zhao Liu"},
	}
}

func TestDispatchBuildsLeaderAndWorkerIntents(t *testing.T) {
	pub := &capturePublisher{}
	marker := newMemoryMarker()
	b := NewBatcher(pub, marker)

	leaderID := int64Ptr(100)
	records := []*model.MissedCheckIn{
		miss(1, leaderID),
		miss(2, leaderID),
		miss(3, leaderID),
	}

	err := b.Dispatch(context.Background(), 1, "2026-03-02", "detect_1_2026-03-02_1", records, teamPeople())
	require.NoError(t, err)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "detect_1_2026-03-02_1", msg.BatchID)
	assert.Equal(t, int64(1), msg.CompanyID)
	assert.Equal(t, "2026-03-02", msg.MissedDate)
	require.Len(t, msg.Intents, 4)

	// 聚合意图在前，成员名按字典序
	leaderIntent := msg.Intents[0]
	assert.Equal(t, int64(9100), leaderIntent.RecipientID)
	assert.Equal(t, "团队漏打卡告警", leaderIntent.Title)
	assert.Equal(t, "您的团队今日有 3 名成员漏打卡：Han Meimei、Wang Wu、Zhao Liu", leaderIntent.Message)

	workerRecipients := map[int64]bool{}
	for _, intent := range msg.Intents[1:] {
		assert.Equal(t, "漏打卡提醒", intent.Title)
		assert.Contains(t, intent.Message, "2026-03-02")
		assert.Contains(t, intent.Message, "08:00 - 10:00")
		workerRecipients[intent.RecipientID] = true
	}
	assert.Len(t, workerRecipients, 3)

	// 负责人标记位已写
	assert.Len(t, marker.marks, 1)
}

func TestDispatchSkipsLeaderAlreadyNotified(t *testing.T) {
	pub := &capturePublisher{}
	marker := newMemoryMarker()
	marker.notified[markerKey("2026-03-02", 100)] = true
	b := NewBatcher(pub, marker)

	records := []*model.MissedCheckIn{miss(1, int64Ptr(100))}
	require.NoError(t, b.Dispatch(context.Background(), 1, "2026-03-02", "batch", records, teamPeople()))

	// 聚合意图被抑制，个人意图照发
	require.Len(t, pub.messages, 1)
	require.Len(t, pub.messages[0].Intents, 1)
	assert.Equal(t, int64(9001), pub.messages[0].Intents[0].RecipientID)
	assert.Empty(t, marker.marks)
}

func TestDispatchMarkerReadFailureStillNotifies(t *testing.T) {
	pub := &capturePublisher{}
	marker := newMemoryMarker()
	marker.readErr = errors.New("redis timeout")
	b := NewBatcher(pub, marker)

	records := []*model.MissedCheckIn{miss(1, int64Ptr(100))}
	require.NoError(t, b.Dispatch(context.Background(), 1, "2026-03-02", "batch", records, teamPeople()))

	require.Len(t, pub.messages, 1)
	assert.Len(t, pub.messages[0].Intents, 2)
}

func TestDispatchRecordsWithoutLeader(t *testing.T) {
	pub := &capturePublisher{}
	b := NewBatcher(pub, newMemoryMarker())

	records := []*model.MissedCheckIn{miss(1, nil)}
	require.NoError(t, b.Dispatch(context.Background(), 1, "2026-03-02", "batch", records, teamPeople()))

	require.Len(t, pub.messages, 1)
	require.Len(t, pub.messages[0].Intents, 1)
	assert.Equal(t, "漏打卡提醒", pub.messages[0].Intents[0].Title)
}

func TestDispatchMultipleLeaders(t *testing.T) {
	pub := &capturePublisher{}
	people := teamPeople()
	people[200] = &model.Person{BaseModel: model.BaseModel{ID: 200}, PublicID: 9200, Name: "Sun Qi"}
	b := NewBatcher(pub, newMemoryMarker())

	records := []*model.MissedCheckIn{
		miss(1, int64Ptr(100)),
		miss(2, int64Ptr(200)),
	}
	require.NoError(t, b.Dispatch(context.Background(), 1, "2026-03-02", "batch", records, people))

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	require.Len(t, msg.Intents, 4)
	// 负责人意图按 ID 升序排在前面
	assert.Equal(t, int64(9100), msg.Intents[0].RecipientID)
	assert.Equal(t, int64(9200), msg.Intents[1].RecipientID)
}

func TestDispatchEmptyRecords(t *testing.T) {
	pub := &capturePublisher{}
	b := NewBatcher(pub, newMemoryMarker())

	require.NoError(t, b.Dispatch(context.Background(), 1, "2026-03-02", "batch", nil, teamPeople()))
	assert.Empty(t, pub.messages)
}

func TestDispatchPublishFailureReturnsError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("mq channel closed")}
	b := NewBatcher(pub, newMemoryMarker())

	records := []*model.MissedCheckIn{miss(1, int64Ptr(100))}
	err := b.Dispatch(context.Background(), 1, "2026-03-02", "batch", records, teamPeople())
	assert.Error(t, err)
}
