package dto

import "aegira/internal/model"

// ListMissedCheckInsRequest 漏打卡记录列表筛选
type ListMissedCheckInsRequest struct {
	Status   string `query:"status"`
	TeamID   int64  `query:"team_id"`
	PersonID int64  `query:"person_id"`
	FromDate string `query:"from_date"` // "2006-01-02"
	ToDate   string `query:"to_date"`
	CursorID int64  `query:"cursor_id"`
	Limit    int    `query:"limit"`
}

// MissedCheckInItem 列表项
type MissedCheckInItem struct {
	PublicID       int64            `json:"id"`
	PersonID       int64            `json:"person_id"`
	TeamID         int64            `json:"team_id"`
	MissedDate     string           `json:"missed_date"`
	ScheduleWindow string           `json:"schedule_window"`
	LeaderName     string           `json:"leader_name"`
	Status         model.MissStatus `json:"status"`
	CreatedAt      string           `json:"created_at"`
}

// MissedCheckInDetail 详情，含冻结快照
type MissedCheckInDetail struct {
	MissedCheckInItem
	LeaderID        *int64                 `json:"leader_id,omitempty"`
	Snapshot        model.BehaviorSnapshot `json:"snapshot"`
	ResolutionNotes *string                `json:"resolution_notes,omitempty"`
	ResolvedBy      *int64                 `json:"resolved_by,omitempty"`
	ResolvedAt      *string                `json:"resolved_at,omitempty"`
}

// TransitionStatusRequest 状态流转请求
type TransitionStatusRequest struct {
	NewStatus string  `json:"new_status" vd:"len($)>0"`
	Notes     *string `json:"notes,omitempty"`
}
