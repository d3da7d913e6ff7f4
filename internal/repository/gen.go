package repository

import (
	"fmt"
	"os"

	"gorm.io/gen"

	"aegira/internal/model"
	"aegira/storage/database"
)

// ========== Company 相关查询接口 ==========

// CompanyQuerier 租户查询接口
type CompanyQuerier interface {
	// GetByPublicID 根据 PublicID 查询租户
	//
	// SELECT * FROM @@table WHERE public_id = @publicID LIMIT 1
	GetByPublicID(publicID int64) (*gen.T, error)

	// ListActive 查询启用的租户（检测任务按此遍历）
	//
	// SELECT * FROM @@table
	// WHERE active = true
	// ORDER BY id ASC
	ListActive() ([]*gen.T, error)
}

// ========== Team 相关查询接口 ==========

// TeamQuerier 团队查询接口
type TeamQuerier interface {
	// ListActiveByCompanyID 查询租户下启用的团队
	//
	// SELECT * FROM @@table
	// WHERE company_id = @companyID AND active = true
	ListActiveByCompanyID(companyID int64) ([]*gen.T, error)
}

// ========== Person 相关查询接口 ==========

// PersonQuerier 人员查询接口
type PersonQuerier interface {
	// ListActiveWorkersByTeamIDs 查询团队下启用的 worker 成员（检测任务用）
	//
	// SELECT * FROM @@table
	// WHERE team_id IN @teamIDs
	//   AND active = true
	//   AND role = 'worker'
	ListActiveWorkersByTeamIDs(teamIDs []int64) ([]*gen.T, error)

	// ListLeadersByIDs 批量查询团队负责人
	//
	// SELECT * FROM @@table WHERE id IN @ids
	ListLeadersByIDs(ids []int64) ([]*gen.T, error)
}

// ========== CheckIn 相关查询接口 ==========

// CheckInQuerier 打卡记录查询接口
type CheckInQuerier interface {
	// ListByPersonIDsAndDateRange 批量按人员和日期范围查询打卡记录
	//
	// SELECT * FROM @@table
	// WHERE person_id IN @personIDs
	//   AND check_in_date >= @fromDate::date
	//   AND check_in_date <= @toDate::date
	ListByPersonIDsAndDateRange(personIDs []int64, fromDate, toDate string) ([]*gen.T, error)
}

// ========== MissedCheckIn 相关查询接口 ==========

// MissedCheckInQuerier 漏打卡记录查询接口
type MissedCheckInQuerier interface {
	// GetByCompanyAndPublicID 根据租户和 PublicID 查询记录（API 常用）
	//
	// SELECT * FROM @@table
	// WHERE company_id = @companyID AND public_id = @publicID
	// LIMIT 1
	GetByCompanyAndPublicID(companyID, publicID int64) (*gen.T, error)

	// ListByPersonIDsAndDateRange 批量按人员和日期范围查询漏打卡记录（检测去重用）
	//
	// SELECT * FROM @@table
	// WHERE person_id IN @personIDs
	//   AND missed_date >= @fromDate::date
	//   AND missed_date <= @toDate::date
	ListByPersonIDsAndDateRange(personIDs []int64, fromDate, toDate string) ([]*gen.T, error)

	// ListByCompanyFiltered 审阅端记录列表（支持筛选 + 游标分页）
	//
	// SELECT * FROM @@table
	// WHERE company_id = @companyID
	//   {{if status != ""}}
	//   AND status = @status
	//   {{end}}
	//   {{if teamID > 0}}
	//   AND team_id = @teamID
	//   {{end}}
	//   {{if personID > 0}}
	//   AND person_id = @personID
	//   {{end}}
	//   {{if cursorID > 0}}
	//   AND public_id < @cursorID
	//   {{end}}
	// ORDER BY public_id DESC
	// LIMIT @limit
	ListByCompanyFiltered(companyID int64, status string, teamID, personID, cursorID int64, limit int) ([]*gen.T, error)

	// ListStaleOpen 查询滞留在 open 状态超过期限的记录（维护任务用）
	//
	// SELECT * FROM @@table
	// WHERE status = 'open'
	//   AND missed_date <= @olderThan::date
	// ORDER BY company_id ASC, missed_date ASC
	ListStaleOpen(olderThan string) ([]*gen.T, error)
}

// ========== Holiday 相关查询接口 ==========

// HolidayQuerier 假日查询接口
type HolidayQuerier interface {
	// ListByCompanyAndDateRange 查询租户在日期范围内的假日
	//
	// SELECT * FROM @@table
	// WHERE company_id = @companyID
	//   AND holiday_date >= @fromDate::date
	//   AND holiday_date <= @toDate::date
	ListByCompanyAndDateRange(companyID int64, fromDate, toDate string) ([]*gen.T, error)
}

func Generate() error {
	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 运行数据库迁移（确保表存在）
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migration: %w", err)
	}

	db := database.DB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./internal/repository/query", // 生成代码的输出路径
		ModelPkgPath:      "aegira/internal/model",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface | gen.WithoutContext,
		FieldNullable:     true, // 字段可以为 null
		FieldCoverable:    false,
		FieldSignable:     false,
		FieldWithIndexTag: false,
		FieldWithTypeTag:  true,
	})

	g.UseDB(db)

	// 注册现有的 model，GORM Gen 会使用这些 model 而不是生成新的
	g.ApplyBasic(
		&model.Company{},
		&model.Team{},
		&model.Person{},
		&model.CheckIn{},
		&model.MissedCheckIn{},
		&model.Holiday{},
	)

	g.ApplyInterface(func(CompanyQuerier) {}, &model.Company{})
	g.ApplyInterface(func(TeamQuerier) {}, &model.Team{})
	g.ApplyInterface(func(PersonQuerier) {}, &model.Person{})
	g.ApplyInterface(func(CheckInQuerier) {}, &model.CheckIn{})
	g.ApplyInterface(func(MissedCheckInQuerier) {}, &model.MissedCheckIn{})
	g.ApplyInterface(func(HolidayQuerier) {}, &model.Holiday{})

	g.Execute()

	return nil
}

func RunGenerate() {
	if err := Generate(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate code: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Code generation completed successfully!")
}
