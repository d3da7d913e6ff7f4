package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aegira/internal/model"
	pkgerrors "aegira/pkg/errors"
	"aegira/pkg/snowflake"
	"aegira/utils"
)

// ---------- 测试替身 ----------

type fakeStore struct {
	companies      []*model.Company
	teamsByCompany map[int64][]*model.Team
	workers        []*model.Person
	personsByID    map[int64]*model.Person
	checkIns       []*model.CheckIn
	misses         []*model.MissedCheckIn

	teamsErr map[int64]error
}

func (s *fakeStore) ListActiveCompanies(ctx context.Context) ([]*model.Company, error) {
	return s.companies, nil
}

func (s *fakeStore) ListActiveTeams(ctx context.Context, companyID int64) ([]*model.Team, error) {
	if err := s.teamsErr[companyID]; err != nil {
		return nil, err
	}
	return s.teamsByCompany[companyID], nil
}

func (s *fakeStore) ListActiveWorkers(ctx context.Context, teamIDs []int64) ([]*model.Person, error) {
	idSet := make(map[int64]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		idSet[id] = struct{}{}
	}
	var out []*model.Person
	for _, p := range s.workers {
		if p.TeamID == nil {
			continue
		}
		if _, ok := idSet[*p.TeamID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) GetPersonsByIDs(ctx context.Context, ids []int64) ([]*model.Person, error) {
	var out []*model.Person
	for _, id := range ids {
		if p, ok := s.personsByID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) ListCheckIns(ctx context.Context, personIDs []int64, from, to time.Time) ([]*model.CheckIn, error) {
	idSet := make(map[int64]struct{}, len(personIDs))
	for _, id := range personIDs {
		idSet[id] = struct{}{}
	}
	var out []*model.CheckIn
	for _, ci := range s.checkIns {
		if _, ok := idSet[ci.PersonID]; !ok {
			continue
		}
		if ci.CheckInDate.Before(from) || ci.CheckInDate.After(to) {
			continue
		}
		out = append(out, ci)
	}
	return out, nil
}

func (s *fakeStore) ListMissedCheckIns(ctx context.Context, personIDs []int64, from, to time.Time) ([]*model.MissedCheckIn, error) {
	idSet := make(map[int64]struct{}, len(personIDs))
	for _, id := range personIDs {
		idSet[id] = struct{}{}
	}
	var out []*model.MissedCheckIn
	for _, miss := range s.misses {
		if _, ok := idSet[miss.PersonID]; !ok {
			continue
		}
		if miss.MissedDate.Before(from) || miss.MissedDate.After(to) {
			continue
		}
		out = append(out, miss)
	}
	return out, nil
}

// insert-or-ignore 语义：同 (person, date) 已存在时静默跳过
func (s *fakeStore) InsertMissedCheckIns(ctx context.Context, records []*model.MissedCheckIn) error {
	for _, rec := range records {
		dup := false
		for _, existing := range s.misses {
			if existing.PersonID == rec.PersonID && existing.MissedDate.Equal(rec.MissedDate) {
				dup = true
				break
			}
		}
		if !dup {
			s.misses = append(s.misses, rec)
		}
	}
	return nil
}

type fakeHolidays struct {
	byCompany map[int64]map[string]struct{}
	err       error
}

func (h *fakeHolidays) Set(ctx context.Context, companyID int64, from, to time.Time) (map[string]struct{}, error) {
	if h.err != nil {
		return nil, h.err
	}
	set := h.byCompany[companyID]
	if set == nil {
		set = map[string]struct{}{}
	}
	return set, nil
}

type dispatchCall struct {
	companyID int64
	date      string
	records   []*model.MissedCheckIn
	people    map[int64]*model.Person
}

type fakeNotifier struct {
	calls []dispatchCall
}

func (n *fakeNotifier) Dispatch(ctx context.Context, companyID int64, date, batchID string, records []*model.MissedCheckIn, people map[int64]*model.Person) error {
	n.calls = append(n.calls, dispatchCall{companyID: companyID, date: date, records: records, people: people})
	return nil
}

// ---------- 场景装配 ----------

const tz = "Asia/Shanghai"

func shanghaiLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation(tz)
	require.NoError(t, err)
	return loc
}

func int64Ptr(v int64) *int64 { return &v }

// 2026-03-02 是周一
func fixture(t *testing.T) (*fakeStore, *fakeHolidays, *time.Location) {
	loc := shanghaiLoc(t)

	leader := &model.Person{
		BaseModel: model.BaseModel{ID: 100},
		PublicID:  9100,
		CompanyID: 1,
		Name:      "Li Lei",
		Role:      model.PersonRoleTeamLeader,
		Active:    true,
	}
	joined := time.Date(2026, 1, 1, 9, 0, 0, 0, loc)
	w1 := &model.Person{
		BaseModel:    model.BaseModel{ID: 1},
		PublicID:     9001,
		CompanyID:    1,
		TeamID:       int64Ptr(10),
		Name:         "Han Meimei",
		Role:         model.PersonRoleWorker,
		Active:       true,
		TeamJoinedAt: &joined,
	}
	w2 := &model.Person{
		BaseModel:    model.BaseModel{ID: 2},
		PublicID:     9002,
		CompanyID:    1,
		TeamID:       int64Ptr(10),
		Name:         "Wang Wu",
		Role:         model.PersonRoleWorker,
		Active:       true,
		TeamJoinedAt: &joined,
	}

	store := &fakeStore{
		companies: []*model.Company{
			{BaseModel: model.BaseModel{ID: 1}, PublicID: 8001, Name: "Acme", Timezone: tz, Active: true},
		},
		teamsByCompany: map[int64][]*model.Team{
			1: {{
				BaseModel:          model.BaseModel{ID: 10},
				CompanyID:          1,
				Name:               "Ops",
				Active:             true,
				WorkDays:           model.WorkDays{"monday", "tuesday", "wednesday", "thursday", "friday"},
				CheckInWindowStart: "08:00:00",
				CheckInWindowEnd:   "10:00:00",
				LeaderID:           int64Ptr(100),
			}},
		},
		workers:     []*model.Person{w1, w2},
		personsByID: map[int64]*model.Person{100: leader, 1: w1, 2: w2},
		teamsErr:    map[int64]error{},
	}

	holidays := &fakeHolidays{byCompany: map[int64]map[string]struct{}{}}
	return store, holidays, loc
}

func newTestDetector(t *testing.T, store Store, holidays HolidaySource, notifier Notifier, now time.Time) *Detector {
	require.NoError(t, snowflake.Init(1, 1))

	d := NewDetector(store, holidays, notifier)
	d.logger = zap.NewNop()
	d.now = func() time.Time { return now }
	return d
}

// ---------- 用例 ----------

func TestDetectCreatesMissRecord(t *testing.T) {
	store, holidays, loc := fixture(t)
	notifier := &fakeNotifier{}

	// w2 已打卡，只有 w1 漏
	store.checkIns = append(store.checkIns, &model.CheckIn{
		CompanyID:   1,
		PersonID:    2,
		CheckInDate: time.Date(2026, 3, 2, 0, 0, 0, 0, loc),
		SubmittedAt: time.Date(2026, 3, 2, 8, 30, 0, 0, loc),
	})

	now := time.Date(2026, 3, 2, 10, 30, 0, 0, loc)
	d := newTestDetector(t, store, holidays, notifier, now)

	require.NoError(t, d.RunDetectionPass(context.Background()))

	require.Len(t, store.misses, 1)
	rec := store.misses[0]
	assert.Equal(t, int64(1), rec.PersonID)
	assert.Equal(t, int64(1), rec.CompanyID)
	assert.Equal(t, int64(10), rec.TeamID)
	assert.Equal(t, "2026-03-02", rec.DateString())
	assert.Equal(t, model.MissStatusOpen, rec.Status)
	assert.Equal(t, "08:00 - 10:00", rec.ScheduleWindow)
	assert.NotZero(t, rec.PublicID)

	// 负责人身份冻结在记录上
	require.NotNil(t, rec.LeaderID)
	assert.Equal(t, int64(100), *rec.LeaderID)
	assert.Equal(t, "Li Lei", rec.LeaderName)

	// 快照随记录冻结
	assert.Equal(t, "monday", rec.Snapshot.DayOfWeek)
	assert.Equal(t, 1, rec.Snapshot.WeekOfMonth)
	assert.True(t, rec.Snapshot.IsFirstMissIn30Days)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, int64(1), notifier.calls[0].companyID)
	assert.Equal(t, "2026-03-02", notifier.calls[0].date)
	require.Len(t, notifier.calls[0].records, 1)
	assert.Contains(t, notifier.calls[0].people, int64(1))
	assert.Contains(t, notifier.calls[0].people, int64(100))
}

func TestDetectLeaderFrozenAfterReassignment(t *testing.T) {
	store, holidays, loc := fixture(t)
	notifier := &fakeNotifier{}

	now := time.Date(2026, 3, 2, 10, 30, 0, 0, loc)
	d := newTestDetector(t, store, holidays, notifier, now)

	require.NoError(t, d.RunDetectionPass(context.Background()))
	require.Len(t, store.misses, 2)

	// 团队换负责人：改指针指向的值和字段本身两种方式都试
	team := store.teamsByCompany[1][0]
	*team.LeaderID = 200
	team.LeaderID = int64Ptr(200)
	store.personsByID[200] = &model.Person{
		BaseModel: model.BaseModel{ID: 200},
		PublicID:  9200,
		CompanyID: 1,
		Name:      "Sun Qi",
		Role:      model.PersonRoleTeamLeader,
		Active:    true,
	}

	require.NoError(t, d.RunDetectionPass(context.Background()))

	// 已落库的记录保持创建时冻结的负责人身份
	require.Len(t, store.misses, 2)
	for _, rec := range store.misses {
		require.NotNil(t, rec.LeaderID)
		assert.Equal(t, int64(100), *rec.LeaderID)
		assert.Equal(t, "Li Lei", rec.LeaderName)
	}
}

func TestDetectWindowBufferBoundary(t *testing.T) {
	store, holidays, loc := fixture(t)

	// 窗口 10:00 结束 + 2 分钟宽限：10:01:59 不触发
	early := time.Date(2026, 3, 2, 10, 1, 59, 0, loc)
	d := newTestDetector(t, store, holidays, &fakeNotifier{}, early)
	require.NoError(t, d.RunDetectionPass(context.Background()))
	assert.Empty(t, store.misses)

	// 10:02:00 整触发
	onTime := time.Date(2026, 3, 2, 10, 2, 0, 0, loc)
	d2 := newTestDetector(t, store, holidays, &fakeNotifier{}, onTime)
	require.NoError(t, d2.RunDetectionPass(context.Background()))
	assert.Len(t, store.misses, 2)
}

func TestDetectHolidaySuppressesTenant(t *testing.T) {
	store, holidays, loc := fixture(t)
	notifier := &fakeNotifier{}
	holidays.byCompany[1] = map[string]struct{}{"2026-03-02": {}}

	now := time.Date(2026, 3, 2, 11, 0, 0, 0, loc)
	d := newTestDetector(t, store, holidays, notifier, now)

	require.NoError(t, d.RunDetectionPass(context.Background()))
	assert.Empty(t, store.misses)
	assert.Empty(t, notifier.calls)
}

func TestDetectNonWorkDaySkipped(t *testing.T) {
	store, holidays, loc := fixture(t)

	// 2026-03-01 是周日，不在排期内
	now := time.Date(2026, 3, 1, 11, 0, 0, 0, loc)
	d := newTestDetector(t, store, holidays, &fakeNotifier{}, now)

	require.NoError(t, d.RunDetectionPass(context.Background()))
	assert.Empty(t, store.misses)
}

func TestDetectIdempotentAcrossRuns(t *testing.T) {
	store, holidays, loc := fixture(t)
	notifier := &fakeNotifier{}

	now := time.Date(2026, 3, 2, 10, 30, 0, 0, loc)
	d := newTestDetector(t, store, holidays, notifier, now)

	require.NoError(t, d.RunDetectionPass(context.Background()))
	require.Len(t, store.misses, 2)
	require.Len(t, notifier.calls, 1)

	// 第二轮：记录已存在，不重复写也不重复通知
	require.NoError(t, d.RunDetectionPass(context.Background()))
	assert.Len(t, store.misses, 2)
	assert.Len(t, notifier.calls, 1)
}

func TestDetectAssignmentDayExcluded(t *testing.T) {
	store, holidays, loc := fixture(t)

	// w1 今天刚入队，w2 昨天入队
	todayJoin := time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
	yesterdayJoin := time.Date(2026, 3, 1, 8, 0, 0, 0, loc)
	store.workers[0].TeamJoinedAt = &todayJoin
	store.workers[1].TeamJoinedAt = &yesterdayJoin

	now := time.Date(2026, 3, 2, 10, 30, 0, 0, loc)
	d := newTestDetector(t, store, holidays, &fakeNotifier{}, now)

	require.NoError(t, d.RunDetectionPass(context.Background()))
	require.Len(t, store.misses, 1)
	assert.Equal(t, int64(2), store.misses[0].PersonID)
}

func TestDetectPersonalOverrideRespected(t *testing.T) {
	store, holidays, loc := fixture(t)

	// w1 覆盖为周末排班，周一不检测
	days := model.WorkDays{"saturday", "sunday"}
	store.workers[0].WorkDays = &days

	now := time.Date(2026, 3, 2, 10, 30, 0, 0, loc)
	d := newTestDetector(t, store, holidays, &fakeNotifier{}, now)

	require.NoError(t, d.RunDetectionPass(context.Background()))
	require.Len(t, store.misses, 1)
	assert.Equal(t, int64(2), store.misses[0].PersonID)
}

func TestDetectTenantFaultIsolation(t *testing.T) {
	store, holidays, loc := fixture(t)
	notifier := &fakeNotifier{}

	// 加一个坏租户排在前面
	store.companies = append([]*model.Company{
		{BaseModel: model.BaseModel{ID: 2}, PublicID: 8002, Name: "Broken", Timezone: tz, Active: true},
	}, store.companies...)
	store.teamsErr[2] = errors.New("db connection reset")

	now := time.Date(2026, 3, 2, 10, 30, 0, 0, loc)
	d := newTestDetector(t, store, holidays, notifier, now)

	// 单租户失败不拖垮整个 pass
	require.NoError(t, d.RunDetectionPass(context.Background()))
	assert.Len(t, store.misses, 2)
}

func TestDetectInvalidTimezoneIsolated(t *testing.T) {
	store, holidays, loc := fixture(t)

	store.companies = append([]*model.Company{
		{BaseModel: model.BaseModel{ID: 3}, PublicID: 8003, Name: "BadTZ", Timezone: "Mars/Olympus", Active: true},
	}, store.companies...)

	now := time.Date(2026, 3, 2, 10, 30, 0, 0, loc)
	d := newTestDetector(t, store, holidays, &fakeNotifier{}, now)

	require.NoError(t, d.RunDetectionPass(context.Background()))
	assert.Len(t, store.misses, 2)
}

func TestDetectHolidayLoadFailureFailsTenant(t *testing.T) {
	store, holidays, loc := fixture(t)
	holidays.err = errors.New("holiday table unavailable")

	now := time.Date(2026, 3, 2, 10, 30, 0, 0, loc)
	d := newTestDetector(t, store, holidays, &fakeNotifier{}, now)

	// 假日读不到绝不能当工作日继续，该租户本轮不产出
	require.NoError(t, d.RunDetectionPass(context.Background()))
	assert.Empty(t, store.misses)
}

func TestRunSkipsWhenAlreadyRunning(t *testing.T) {
	store, holidays, loc := fixture(t)
	now := time.Date(2026, 3, 2, 10, 30, 0, 0, loc)
	d := newTestDetector(t, store, holidays, &fakeNotifier{}, now)

	d.running = true
	err := d.RunDetectionPass(context.Background())
	assert.Equal(t, pkgerrors.DetectionAlreadyRunning, err)
	assert.Empty(t, store.misses)
}

func TestLastRunTimeRecordsPassStart(t *testing.T) {
	store, holidays, loc := fixture(t)
	now := time.Date(2026, 3, 2, 10, 30, 0, 0, loc)
	d := newTestDetector(t, store, holidays, &fakeNotifier{}, now)

	assert.True(t, d.LastRunTime().IsZero())

	require.NoError(t, d.RunDetectionPass(context.Background()))
	assert.True(t, d.LastRunTime().Equal(now))
	assert.Len(t, store.misses, 2)
}

func TestDetectLocalDateFollowsTenantTimezone(t *testing.T) {
	store, holidays, _ := fixture(t)

	// UTC 还是周日晚上，上海已是周一上午且窗口已关
	nowUTC := time.Date(2026, 3, 2, 2, 30, 0, 0, time.UTC) // 上海 10:30
	d := newTestDetector(t, store, holidays, &fakeNotifier{}, nowUTC)

	require.NoError(t, d.RunDetectionPass(context.Background()))
	require.Len(t, store.misses, 2)
	assert.Equal(t, "2026-03-02", utils.DateString(store.misses[0].MissedDate))
}
