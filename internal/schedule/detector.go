package schedule

// 漏打卡检测编排器：遍历租户，按租户本地日历日找出
// 应打卡而未打卡且窗口已关闭的成员，落库并派发通知
// 租户之间互相隔离，单个租户失败不影响其余租户

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"aegira/config"
	"aegira/internal/analytics"
	"aegira/internal/cache"
	"aegira/internal/holiday"
	"aegira/internal/model"
	"aegira/internal/notify"
	"aegira/internal/queue"
	"aegira/internal/repository"
	"aegira/pkg/errors"
	"aegira/pkg/logger"
	"aegira/pkg/metrics"
	"aegira/pkg/snowflake"
	"aegira/utils"
)

// windowBuffer 窗口关闭后的宽限，吸收提交链路的时钟偏差
const windowBuffer = 2 * time.Minute

// Store 检测所需的存储操作，由 repository.Store 实现
type Store interface {
	ListActiveCompanies(ctx context.Context) ([]*model.Company, error)
	ListActiveTeams(ctx context.Context, companyID int64) ([]*model.Team, error)
	ListActiveWorkers(ctx context.Context, teamIDs []int64) ([]*model.Person, error)
	GetPersonsByIDs(ctx context.Context, ids []int64) ([]*model.Person, error)
	ListCheckIns(ctx context.Context, personIDs []int64, from, to time.Time) ([]*model.CheckIn, error)
	ListMissedCheckIns(ctx context.Context, personIDs []int64, from, to time.Time) ([]*model.MissedCheckIn, error)
	InsertMissedCheckIns(ctx context.Context, records []*model.MissedCheckIn) error
}

// HolidaySource 租户假日集合来源
type HolidaySource interface {
	Set(ctx context.Context, companyID int64, from, to time.Time) (map[string]struct{}, error)
}

// Notifier 新记录的通知派发出口
type Notifier interface {
	Dispatch(ctx context.Context, companyID int64, date, batchID string, records []*model.MissedCheckIn, people map[int64]*model.Person) error
}

var (
	detectorOnce sync.Once
	detectorInst *Detector
)

type Detector struct {
	logger   *zap.Logger
	store    Store
	holidays HolidaySource
	notifier Notifier

	// 测试注入用的时钟
	now func() time.Time

	runMu       sync.Mutex
	running     bool
	lastRunTime time.Time // runMu 保护
}

// queuePublisher 把通知批接到 MQ 生产端
type queuePublisher struct{}

func (queuePublisher) Publish(msg model.MissedCheckInNotificationMessage) error {
	return queue.PublishMissedCheckInNotifications(msg)
}

// GetDetector 生产依赖组装好的单例
func GetDetector() *Detector {
	detectorOnce.Do(func() {
		store := repository.Get()
		detectorInst = NewDetector(
			store,
			holiday.NewOracle(store),
			notify.NewBatcher(queuePublisher{}, notify.RedisLeaderMarker{}),
		)
	})
	return detectorInst
}

func NewDetector(store Store, holidays HolidaySource, notifier Notifier) *Detector {
	return &Detector{
		logger:   logger.Logger,
		store:    store,
		holidays: holidays,
		notifier: notifier,
		now:      time.Now,
	}
}

// LastRunTime 最近一次检测 pass 的开始时刻，没跑过时为零值
func (d *Detector) LastRunTime() time.Time {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	return d.lastRunTime
}

// RunDetectionPass 执行一次完整的检测 pass
// 同进程内不允许重叠执行：上一次还没结束时本次跳过，不排队
func (d *Detector) RunDetectionPass(ctx context.Context) error {
	d.runMu.Lock()
	if d.running {
		d.runMu.Unlock()
		d.logger.Info("Detection pass already running, skipping")
		return errors.DetectionAlreadyRunning
	}
	d.running = true
	d.runMu.Unlock()

	defer func() {
		d.runMu.Lock()
		d.running = false
		d.runMu.Unlock()
	}()

	// 多实例部署时用 redis 锁保证全局单飞
	if config.Cfg.DetectionDistributedLock {
		acquired, err := cache.TryLockDetectionRun(ctx)
		if err != nil {
			d.logger.Error("Failed to acquire detection run lock", zap.Error(err))
			return fmt.Errorf("failed to acquire detection run lock: %w", err)
		}
		if !acquired {
			d.logger.Info("Detection run lock held by another instance, skipping")
			return errors.DetectionAlreadyRunning
		}
		defer func() {
			if err := cache.UnlockDetectionRun(context.Background()); err != nil {
				d.logger.Warn("Failed to release detection run lock", zap.Error(err))
			}
		}()
	}

	if config.Cfg.DetectionRunTimeoutMinutes > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(config.Cfg.DetectionRunTimeoutMinutes)*time.Minute)
		defer cancel()
	}

	startTime := d.now()
	d.runMu.Lock()
	d.lastRunTime = startTime
	d.runMu.Unlock()
	d.logger.Info("Starting detection pass", zap.Time("start_time", startTime))

	companies, err := d.store.ListActiveCompanies(ctx)
	if err != nil {
		d.recordPass(ctx, "failed", startTime)
		d.logger.Error("Failed to list active companies", zap.Error(err))
		return fmt.Errorf("failed to list active companies: %w", err)
	}

	var failed int
	var created int
	for _, company := range companies {
		n, err := d.detectCompany(ctx, company)
		if err != nil {
			failed++
			if m := metrics.GetMetrics(); m != nil {
				m.RecordDetectionTenantFailure(ctx, company.ID)
			}
			d.logger.Error("Tenant detection failed",
				zap.Int64("company_id", company.ID),
				zap.String("company", company.Name),
				zap.Error(err),
			)
			continue
		}
		created += n
	}

	status := "success"
	if failed > 0 {
		status = "partial"
	}
	d.recordPass(ctx, status, startTime)

	d.logger.Info("Detection pass finished",
		zap.Int("company_count", len(companies)),
		zap.Int("failed_companies", failed),
		zap.Int("records_created", created),
		zap.Duration("elapsed", d.now().Sub(startTime)),
	)

	return nil
}

func (d *Detector) recordPass(ctx context.Context, status string, startTime time.Time) {
	if m := metrics.GetMetrics(); m != nil {
		m.RecordDetectionPass(ctx, status, d.now().Sub(startTime).Seconds())
	}
}

// detectCompany 单租户检测，返回新产生的记录数
func (d *Detector) detectCompany(ctx context.Context, company *model.Company) (int, error) {
	loc, err := time.LoadLocation(company.Timezone)
	if err != nil {
		return 0, fmt.Errorf("invalid timezone %q: %w", company.Timezone, err)
	}

	nowLocal := d.now().In(loc)
	today := utils.LocalDate(nowLocal, loc)
	todayStr := today.Format("2006-01-02")

	// 假日集合一次取齐：既判今天，也喂给快照计算
	histFrom := today.AddDate(0, 0, -analytics.HistoryDays)
	holidaySet, err := d.holidays.Set(ctx, company.ID, histFrom, today)
	if err != nil {
		return 0, fmt.Errorf("failed to load holidays: %w", err)
	}
	if _, ok := holidaySet[todayStr]; ok {
		d.logger.Info("Company holiday today, skipping detection",
			zap.Int64("company_id", company.ID),
			zap.String("date", todayStr),
		)
		return 0, nil
	}

	teams, err := d.store.ListActiveTeams(ctx, company.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list teams: %w", err)
	}
	if len(teams) == 0 {
		return 0, nil
	}

	teamByID := make(map[int64]*model.Team, len(teams))
	teamIDs := make([]int64, 0, len(teams))
	leaderIDSet := make(map[int64]struct{})
	for _, team := range teams {
		teamByID[team.ID] = team
		teamIDs = append(teamIDs, team.ID)
		if team.LeaderID != nil {
			leaderIDSet[*team.LeaderID] = struct{}{}
		}
	}

	workers, err := d.store.ListActiveWorkers(ctx, teamIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to list workers: %w", err)
	}

	if m := metrics.GetMetrics(); m != nil {
		m.RecordDetectionWorkersScanned(ctx, int64(len(workers)))
	}

	// 第一轮筛选：排期上今天该打卡且窗口（含宽限）已关闭的成员
	type candidate struct {
		person   *model.Person
		team     *model.Team
		resolved ResolvedSchedule
	}
	var candidates []candidate
	for _, person := range workers {
		if person.TeamID == nil {
			continue
		}
		team, ok := teamByID[*person.TeamID]
		if !ok {
			continue
		}

		// 分配当日不参与，从次日开始
		if person.TeamJoinedAt != nil && !utils.LocalDate(*person.TeamJoinedAt, loc).Before(today) {
			continue
		}

		resolved := Resolve(person, team)
		if !resolved.IsWorkDay(today.Weekday()) {
			continue
		}

		windowEnd, err := resolved.WindowEndOn(today)
		if err != nil {
			d.logger.Warn("Malformed check-in window, skipping person",
				zap.Int64("company_id", company.ID),
				zap.Int64("person_id", person.ID),
				zap.String("window_end", resolved.WindowEnd),
				zap.Error(err),
			)
			continue
		}
		if nowLocal.Before(windowEnd.Add(windowBuffer)) {
			continue
		}

		candidates = append(candidates, candidate{person: person, team: team, resolved: resolved})
	}

	if len(candidates) == 0 {
		return 0, nil
	}

	candidateIDs := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		candidateIDs = append(candidateIDs, c.person.ID)
	}

	// 排除今天已打卡和已有漏打卡记录的成员
	todayCheckIns, err := d.store.ListCheckIns(ctx, candidateIDs, today, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list today check-ins: %w", err)
	}
	checkedIn := make(map[int64]struct{}, len(todayCheckIns))
	for _, ci := range todayCheckIns {
		checkedIn[ci.PersonID] = struct{}{}
	}

	todayMisses, err := d.store.ListMissedCheckIns(ctx, candidateIDs, today, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list existing miss records: %w", err)
	}
	alreadyMissed := make(map[int64]struct{}, len(todayMisses))
	for _, miss := range todayMisses {
		alreadyMissed[miss.PersonID] = struct{}{}
	}

	var missers []candidate
	for _, c := range candidates {
		if _, ok := checkedIn[c.person.ID]; ok {
			continue
		}
		if _, ok := alreadyMissed[c.person.ID]; ok {
			continue
		}
		missers = append(missers, c)
	}

	if len(missers) == 0 {
		return 0, nil
	}

	missPersonIDs := make([]int64, 0, len(missers))
	for _, c := range missers {
		missPersonIDs = append(missPersonIDs, c.person.ID)
	}

	// 历史事实批量取好，快照计算不再碰存储
	yesterday := today.AddDate(0, 0, -1)
	histCheckIns, err := d.store.ListCheckIns(ctx, missPersonIDs, histFrom, yesterday)
	if err != nil {
		return 0, fmt.Errorf("failed to list historical check-ins: %w", err)
	}
	histMisses, err := d.store.ListMissedCheckIns(ctx, missPersonIDs, histFrom, yesterday)
	if err != nil {
		return 0, fmt.Errorf("failed to list historical misses: %w", err)
	}

	checkInsByPerson := make(map[int64]map[string]*float64, len(missers))
	for _, ci := range histCheckIns {
		m, ok := checkInsByPerson[ci.PersonID]
		if !ok {
			m = make(map[string]*float64)
			checkInsByPerson[ci.PersonID] = m
		}
		m[ci.DateString()] = ci.ReadinessScore
	}
	missesByPerson := make(map[int64]map[string]struct{}, len(missers))
	for _, miss := range histMisses {
		m, ok := missesByPerson[miss.PersonID]
		if !ok {
			m = make(map[string]struct{})
			missesByPerson[miss.PersonID] = m
		}
		m[miss.DateString()] = struct{}{}
	}

	histories := make([]analytics.WorkerHistory, 0, len(missers))
	for _, c := range missers {
		h := analytics.WorkerHistory{
			PersonID:  c.person.ID,
			Schedule:  c.resolved,
			CheckIns:  checkInsByPerson[c.person.ID],
			MissDates: missesByPerson[c.person.ID],
		}
		if h.CheckIns == nil {
			h.CheckIns = map[string]*float64{}
		}
		if h.MissDates == nil {
			h.MissDates = map[string]struct{}{}
		}
		histories = append(histories, h)
	}
	snapshots := analytics.CalculateBatch(histories, today, holidaySet)

	// 负责人身份在此刻冻结
	leaderIDs := make([]int64, 0, len(leaderIDSet))
	for id := range leaderIDSet {
		leaderIDs = append(leaderIDs, id)
	}
	leaders, err := d.store.GetPersonsByIDs(ctx, leaderIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to load team leaders: %w", err)
	}
	leaderByID := make(map[int64]*model.Person, len(leaders))
	for _, l := range leaders {
		leaderByID[l.ID] = l
	}

	records := make([]*model.MissedCheckIn, 0, len(missers))
	generatedIDs := make(map[int64]struct{}, len(missers))
	for _, c := range missers {
		publicID, err := snowflake.NextID(snowflake.GeneratorTypeRecord)
		if err != nil {
			return 0, fmt.Errorf("failed to generate record ID: %w", err)
		}
		generatedIDs[publicID] = struct{}{}

		rec := &model.MissedCheckIn{
			PublicID:       publicID,
			CompanyID:      company.ID,
			PersonID:       c.person.ID,
			TeamID:         c.team.ID,
			MissedDate:     today,
			ScheduleWindow: c.resolved.Label(),
			Status:         model.MissStatusOpen,
			Snapshot:       snapshots[c.person.ID],
		}
		if c.team.LeaderID != nil {
			leaderID := *c.team.LeaderID
			rec.LeaderID = &leaderID
			if leader, ok := leaderByID[leaderID]; ok {
				rec.LeaderName = leader.Name
			}
		}
		records = append(records, rec)
	}

	if err := d.store.InsertMissedCheckIns(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to insert miss records: %w", err)
	}

	// insert-or-ignore 之后回查，只有本次真正写入的行才触发通知
	inserted, err := d.store.ListMissedCheckIns(ctx, missPersonIDs, today, today)
	if err != nil {
		return 0, fmt.Errorf("failed to reload miss records: %w", err)
	}
	var newRecords []*model.MissedCheckIn
	for _, rec := range inserted {
		if _, ok := generatedIDs[rec.PublicID]; ok {
			newRecords = append(newRecords, rec)
		}
	}

	if m := metrics.GetMetrics(); m != nil {
		m.RecordDetectionRecords(ctx, company.ID, int64(len(newRecords)))
	}

	if len(newRecords) > 0 {
		people := make(map[int64]*model.Person, len(missers)+len(leaderByID))
		for _, c := range missers {
			people[c.person.ID] = c.person
		}
		for id, leader := range leaderByID {
			people[id] = leader
		}

		batchSeq, err := snowflake.NextID(snowflake.GeneratorTypeMessage)
		if err != nil {
			return len(newRecords), fmt.Errorf("failed to generate batch ID: %w", err)
		}
		batchID := fmt.Sprintf("detect_%d_%s_%d", company.ID, todayStr, batchSeq)

		// 通知失败只记日志，记录已经落库
		if err := d.notifier.Dispatch(ctx, company.ID, todayStr, batchID, newRecords, people); err != nil {
			d.logger.Warn("Notification dispatch failed",
				zap.Int64("company_id", company.ID),
				zap.String("batch_id", batchID),
				zap.Error(err),
			)
		}
	}

	d.logger.Info("Company detection finished",
		zap.Int64("company_id", company.ID),
		zap.String("date", todayStr),
		zap.Int("worker_count", len(workers)),
		zap.Int("candidate_count", len(candidates)),
		zap.Int("records_created", len(newRecords)),
	)

	return len(newRecords), nil
}
