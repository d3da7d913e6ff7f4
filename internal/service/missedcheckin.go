package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"aegira/internal/model"
	"aegira/internal/model/dto"
	"aegira/internal/repository"
	"aegira/internal/workflow"
	pkgerrors "aegira/pkg/errors"
	"aegira/pkg/logger"
	"aegira/utils"
)

// 漏打卡记录的审阅端：列表、详情、状态流转
// 所有入口都按 companyID 圈定范围，跨租户访问等同于记录不存在

type MissedCheckInService struct {
	store *repository.Store
}

var (
	missedCheckInService *MissedCheckInService
	missedCheckInOnce    sync.Once
)

func MissedCheckIn() *MissedCheckInService {
	missedCheckInOnce.Do(func() {
		missedCheckInService = &MissedCheckInService{store: repository.Get()}
	})
	return missedCheckInService
}

// NewMissedCheckInService 测试注入用
func NewMissedCheckInService(store *repository.Store) *MissedCheckInService {
	return &MissedCheckInService{store: store}
}

func (s *MissedCheckInService) List(
	ctx context.Context,
	companyID int64,
	req dto.ListMissedCheckInsRequest,
) ([]*dto.MissedCheckInItem, int64, error) {
	filter := repository.MissFilter{
		TeamID:   req.TeamID,
		PersonID: req.PersonID,
		CursorID: req.CursorID,
	}

	if req.Status != "" {
		status := model.MissStatus(req.Status)
		if !status.Valid() {
			return nil, 0, pkgerrors.InvalidMissStatus
		}
		filter.Status = status
	}

	if req.FromDate != "" {
		from, err := time.Parse(utils.DateLayout, req.FromDate)
		if err != nil {
			return nil, 0, pkgerrors.InvalidDateRange
		}
		filter.From = &from
	}
	if req.ToDate != "" {
		to, err := time.Parse(utils.DateLayout, req.ToDate)
		if err != nil {
			return nil, 0, pkgerrors.InvalidDateRange
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, pkgerrors.InvalidDateRange
	}

	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	filter.Limit = limit + 1 // 多取一条探测下一页

	records, err := s.store.ListMissedCheckInsFiltered(ctx, companyID, filter)
	if err != nil {
		logger.Logger.Error("Failed to list missed check-ins",
			zap.Int64("company_id", companyID),
			zap.Error(err),
		)
		return nil, 0, fmt.Errorf("failed to list missed check-ins: %w", err)
	}

	var nextCursor int64
	if len(records) > limit {
		nextCursor = records[limit-1].PublicID
		records = records[:limit]
	}

	result := make([]*dto.MissedCheckInItem, 0, len(records))
	for _, rec := range records {
		result = append(result, toItem(rec))
	}

	return result, nextCursor, nil
}

func (s *MissedCheckInService) Get(
	ctx context.Context,
	companyID int64,
	publicID int64,
) (*dto.MissedCheckInDetail, error) {
	rec, err := s.store.GetMissedCheckInByPublicID(ctx, companyID, publicID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.MissRecordNotFound
		}
		return nil, fmt.Errorf("failed to query missed check-in: %w", err)
	}
	return toDetail(rec), nil
}

// TransitionStatus 执行状态流转并持久化
// 非法流转不落库，记录保持原样
func (s *MissedCheckInService) TransitionStatus(
	ctx context.Context,
	companyID int64,
	publicID int64,
	actorID int64,
	req dto.TransitionStatusRequest,
) (*dto.MissedCheckInDetail, error) {
	rec, err := s.store.GetMissedCheckInByPublicID(ctx, companyID, publicID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.MissRecordNotFound
		}
		return nil, fmt.Errorf("failed to query missed check-in: %w", err)
	}

	from := rec.Status
	if err := workflow.Apply(rec, model.MissStatus(req.NewStatus), actorID, req.Notes, time.Now()); err != nil {
		return nil, err
	}

	if err := s.store.SaveStatusTransition(ctx, rec); err != nil {
		logger.Logger.Error("Failed to persist status transition",
			zap.Int64("company_id", companyID),
			zap.Int64("record_id", publicID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to persist status transition: %w", err)
	}

	logger.Logger.Info("Missed check-in status transitioned",
		zap.Int64("company_id", companyID),
		zap.Int64("record_id", publicID),
		zap.String("from", string(from)),
		zap.String("to", req.NewStatus),
		zap.Int64("actor_id", actorID),
	)

	return toDetail(rec), nil
}

func toItem(rec *model.MissedCheckIn) *dto.MissedCheckInItem {
	return &dto.MissedCheckInItem{
		PublicID:       rec.PublicID,
		PersonID:       rec.PersonID,
		TeamID:         rec.TeamID,
		MissedDate:     rec.DateString(),
		ScheduleWindow: rec.ScheduleWindow,
		LeaderName:     rec.LeaderName,
		Status:         rec.Status,
		CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
	}
}

func toDetail(rec *model.MissedCheckIn) *dto.MissedCheckInDetail {
	detail := &dto.MissedCheckInDetail{
		MissedCheckInItem: *toItem(rec),
		LeaderID:          rec.LeaderID,
		Snapshot:          rec.Snapshot,
		ResolutionNotes:   rec.ResolutionNotes,
		ResolvedBy:        rec.ResolvedBy,
	}
	if rec.ResolvedAt != nil {
		v := rec.ResolvedAt.Format(time.RFC3339)
		detail.ResolvedAt = &v
	}
	return detail
}
