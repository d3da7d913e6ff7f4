package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"aegira/internal/middleware"
	"aegira/internal/model/dto"
	"aegira/internal/service"
	pkgerrors "aegira/pkg/errors"
	"aegira/pkg/response"
)

// ListMissedCheckIns 漏打卡记录列表（筛选 + 游标分页）
// GET /v1/missed-check-ins
func ListMissedCheckIns(ctx context.Context, c *app.RequestContext) {
	companyID, ok := middleware.GetCompanyID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.Unauthorized)
		return
	}

	var req dto.ListMissedCheckInsRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	items, nextCursor, err := service.MissedCheckIn().List(ctx, companyID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	meta := map[string]interface{}{
		"next_cursor": nextCursor,
	}
	response.SuccessWithMeta(ctx, c, items, meta)
}

// GetMissedCheckIn 漏打卡记录详情（含冻结快照）
// GET /v1/missed-check-ins/:record_id
func GetMissedCheckIn(ctx context.Context, c *app.RequestContext) {
	companyID, ok := middleware.GetCompanyID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.Unauthorized)
		return
	}

	recordID, err := strconv.ParseInt(c.Param("record_id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, pkgerrors.MissRecordNotFound)
		return
	}

	detail, err := service.MissedCheckIn().Get(ctx, companyID, recordID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, detail)
}

// TransitionMissedCheckInStatus 状态流转
// POST /v1/missed-check-ins/:record_id/status
func TransitionMissedCheckInStatus(ctx context.Context, c *app.RequestContext) {
	companyID, ok := middleware.GetCompanyID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.Unauthorized)
		return
	}

	actorStr, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.Unauthorized)
		return
	}
	actorID, err := strconv.ParseInt(actorStr, 10, 64)
	if err != nil {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	recordID, err := strconv.ParseInt(c.Param("record_id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, pkgerrors.MissRecordNotFound)
		return
	}

	var req dto.TransitionStatusRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	detail, err := service.MissedCheckIn().TransitionStatus(ctx, companyID, recordID, actorID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, detail)
}
