package repository

// 检测引擎的存储访问层，全部查询按批组织
// 检测 pass 内对每个租户只发固定次数的查询，不做每人一查

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aegira/internal/model"
	"aegira/storage/database"
)

type Store struct {
	db *gorm.DB
}

var (
	storeInst *Store
	storeOnce sync.Once
)

// Get 基于全局连接的 Store 单例
func Get() *Store {
	storeOnce.Do(func() {
		storeInst = &Store{db: database.DB()}
	})
	return storeInst
}

// NewWithDB 用指定连接构造，迁移脚本和测试用
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListActiveCompanies 检测遍历的租户集合
func (s *Store) ListActiveCompanies(ctx context.Context) ([]*model.Company, error) {
	var companies []*model.Company
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&companies).Error
	return companies, err
}

// ListActiveTeams 某租户下启用的团队
func (s *Store) ListActiveTeams(ctx context.Context, companyID int64) ([]*model.Team, error) {
	var teams []*model.Team
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND active = ?", companyID, true).
		Find(&teams).Error
	return teams, err
}

// ListActiveWorkers 指定团队下启用的 worker 成员
func (s *Store) ListActiveWorkers(ctx context.Context, teamIDs []int64) ([]*model.Person, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	var persons []*model.Person
	err := s.db.WithContext(ctx).
		Where("team_id IN ? AND active = ? AND role = ?", teamIDs, true, model.PersonRoleWorker).
		Find(&persons).Error
	return persons, err
}

// GetPersonsByIDs 按主键批量取人员（负责人名字冻结用）
func (s *Store) GetPersonsByIDs(ctx context.Context, ids []int64) ([]*model.Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var persons []*model.Person
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&persons).Error
	return persons, err
}

// ListCheckIns 批量取一组成员在 [from, to] 区间内的打卡记录
func (s *Store) ListCheckIns(ctx context.Context, personIDs []int64, from, to time.Time) ([]*model.CheckIn, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	var checkIns []*model.CheckIn
	err := s.db.WithContext(ctx).
		Where("person_id IN ?", personIDs).
		Where("check_in_date >= ? AND check_in_date <= ?", from, to).
		Find(&checkIns).Error
	return checkIns, err
}

// ListMissedCheckIns 批量取一组成员在 [from, to] 区间内的漏打卡记录
func (s *Store) ListMissedCheckIns(ctx context.Context, personIDs []int64, from, to time.Time) ([]*model.MissedCheckIn, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	var misses []*model.MissedCheckIn
	err := s.db.WithContext(ctx).
		Where("person_id IN ?", personIDs).
		Where("missed_date >= ? AND missed_date <= ?", from, to).
		Find(&misses).Error
	return misses, err
}

// ListHolidays 某租户在 [from, to] 区间内的假日
func (s *Store) ListHolidays(ctx context.Context, companyID int64, from, to time.Time) ([]*model.Holiday, error) {
	var holidays []*model.Holiday
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("holiday_date >= ? AND holiday_date <= ?", from, to).
		Find(&holidays).Error
	return holidays, err
}

// InsertMissedCheckIns 批量写入漏打卡记录，insert-or-ignore 语义
// 冲突键 (company_id, person_id, missed_date)，重复触发静默跳过而不是报错
func (s *Store) InsertMissedCheckIns(ctx context.Context, records []*model.MissedCheckIn) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "company_id"},
				{Name: "person_id"},
				{Name: "missed_date"},
			},
			DoNothing: true,
		}).
		Create(&records).Error
}

// GetMissedCheckInByPublicID 按租户 + 记录 public_id 取单条记录
func (s *Store) GetMissedCheckInByPublicID(ctx context.Context, companyID, publicID int64) (*model.MissedCheckIn, error) {
	var rec model.MissedCheckIn
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND public_id = ?", companyID, publicID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveStatusTransition 持久化状态流转后的字段
func (s *Store) SaveStatusTransition(ctx context.Context, rec *model.MissedCheckIn) error {
	return s.db.WithContext(ctx).
		Model(rec).
		Select("status", "resolution_notes", "resolved_by", "resolved_at", "updated_at").
		Updates(rec).Error
}

// MissFilter 审阅端列表筛选，零值字段不过滤
type MissFilter struct {
	Status   model.MissStatus
	TeamID   int64
	PersonID int64
	From     *time.Time
	To       *time.Time
	CursorID int64 // public_id 游标，向下翻页
	Limit    int
}

// ListMissedCheckInsFiltered 审阅端记录列表，public_id 倒序的游标分页
func (s *Store) ListMissedCheckInsFiltered(ctx context.Context, companyID int64, f MissFilter) ([]*model.MissedCheckIn, error) {
	q := s.db.WithContext(ctx).Where("company_id = ?", companyID)

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TeamID > 0 {
		q = q.Where("team_id = ?", f.TeamID)
	}
	if f.PersonID > 0 {
		q = q.Where("person_id = ?", f.PersonID)
	}
	if f.From != nil {
		q = q.Where("missed_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("missed_date <= ?", *f.To)
	}
	if f.CursorID > 0 {
		q = q.Where("public_id < ?", f.CursorID)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var misses []*model.MissedCheckIn
	err := q.Order("public_id DESC").Limit(limit).Find(&misses).Error
	return misses, err
}

// ListStaleOpenMisses 找出滞留在 open 状态超过期限的记录（跨租户，维护任务用）
func (s *Store) ListStaleOpenMisses(ctx context.Context, olderThan time.Time) ([]*model.MissedCheckIn, error) {
	var misses []*model.MissedCheckIn
	err := s.db.WithContext(ctx).
		Where("status = ?", model.MissStatusOpen).
		Where("missed_date <= ?", olderThan).
		Order("company_id ASC, missed_date ASC").
		Find(&misses).Error
	return misses, err
}
