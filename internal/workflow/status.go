package workflow

// 漏打卡记录的状态机：表驱动，先查表再改记录
// open -> investigating | excused | resolved
// investigating -> excused | resolved
// excused / resolved 为终态

import (
	"time"

	"aegira/internal/model"
	pkgerrors "aegira/pkg/errors"
)

// transitions 每个状态允许流转到的下一组状态
var transitions = map[model.MissStatus][]model.MissStatus{
	model.MissStatusOpen: {
		model.MissStatusInvestigating,
		model.MissStatusExcused,
		model.MissStatusResolved,
	},
	model.MissStatusInvestigating: {
		model.MissStatusExcused,
		model.MissStatusResolved,
	},
	model.MissStatusExcused:  {},
	model.MissStatusResolved: {},
}

// CanTransition 查表判断流转是否允许
func CanTransition(from, to model.MissStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Apply 在内存中执行一次状态流转；不允许时返回错误且记录保持原样
// 进入终态时冻结操作人和时间；notes 在任何流转上都可附加
func Apply(rec *model.MissedCheckIn, to model.MissStatus, actorID int64, notes *string, now time.Time) error {
	if !to.Valid() {
		return pkgerrors.InvalidMissStatus
	}
	if !CanTransition(rec.Status, to) {
		return pkgerrors.InvalidStatusTransition
	}

	rec.Status = to
	if notes != nil {
		rec.ResolutionNotes = notes
	}
	if to.IsTerminal() {
		rec.ResolvedBy = &actorID
		t := now
		rec.ResolvedAt = &t
	}

	return nil
}
