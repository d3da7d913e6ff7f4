package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegira/internal/model"
	pkgerrors "aegira/pkg/errors"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to model.MissStatus
		allowed  bool
	}{
		{model.MissStatusOpen, model.MissStatusInvestigating, true},
		{model.MissStatusOpen, model.MissStatusExcused, true},
		{model.MissStatusOpen, model.MissStatusResolved, true},
		{model.MissStatusInvestigating, model.MissStatusExcused, true},
		{model.MissStatusInvestigating, model.MissStatusResolved, true},

		{model.MissStatusOpen, model.MissStatusOpen, false},
		{model.MissStatusInvestigating, model.MissStatusOpen, false},
		{model.MissStatusInvestigating, model.MissStatusInvestigating, false},
		{model.MissStatusExcused, model.MissStatusOpen, false},
		{model.MissStatusExcused, model.MissStatusInvestigating, false},
		{model.MissStatusExcused, model.MissStatusResolved, false},
		{model.MissStatusResolved, model.MissStatusOpen, false},
		{model.MissStatusResolved, model.MissStatusExcused, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestApplyToTerminalFreezesResolution(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	notes := "联系过本人，系统故障导致"

	rec := &model.MissedCheckIn{Status: model.MissStatusOpen}
	require.NoError(t, Apply(rec, model.MissStatusExcused, 42, &notes, now))

	assert.Equal(t, model.MissStatusExcused, rec.Status)
	require.NotNil(t, rec.ResolutionNotes)
	assert.Equal(t, notes, *rec.ResolutionNotes)
	require.NotNil(t, rec.ResolvedBy)
	assert.Equal(t, int64(42), *rec.ResolvedBy)
	require.NotNil(t, rec.ResolvedAt)
	assert.True(t, rec.ResolvedAt.Equal(now))
}

func TestApplyToInvestigatingLeavesResolutionEmpty(t *testing.T) {
	rec := &model.MissedCheckIn{Status: model.MissStatusOpen}
	require.NoError(t, Apply(rec, model.MissStatusInvestigating, 42, nil, time.Now()))

	assert.Equal(t, model.MissStatusInvestigating, rec.Status)
	assert.Nil(t, rec.ResolutionNotes)
	assert.Nil(t, rec.ResolvedBy)
	assert.Nil(t, rec.ResolvedAt)
}

func TestApplyNotesAttachOnAnyTransition(t *testing.T) {
	notes := "已在跟进"
	rec := &model.MissedCheckIn{Status: model.MissStatusOpen}
	require.NoError(t, Apply(rec, model.MissStatusInvestigating, 42, &notes, time.Now()))
	require.NotNil(t, rec.ResolutionNotes)
	assert.Equal(t, notes, *rec.ResolutionNotes)
}

func TestApplyRejectsTerminalMutation(t *testing.T) {
	resolvedBy := int64(7)
	resolvedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := &model.MissedCheckIn{
		Status:     model.MissStatusResolved,
		ResolvedBy: &resolvedBy,
		ResolvedAt: &resolvedAt,
	}

	err := Apply(rec, model.MissStatusExcused, 42, nil, time.Now())
	assert.Equal(t, pkgerrors.InvalidStatusTransition, err)

	// 拒绝后记录原样保留
	assert.Equal(t, model.MissStatusResolved, rec.Status)
	assert.Equal(t, int64(7), *rec.ResolvedBy)
	assert.True(t, rec.ResolvedAt.Equal(resolvedAt))
}

func TestApplyRejectsUnknownStatus(t *testing.T) {
	rec := &model.MissedCheckIn{Status: model.MissStatusOpen}
	err := Apply(rec, model.MissStatus("archived"), 42, nil, time.Now())
	assert.Equal(t, pkgerrors.InvalidMissStatus, err)
	assert.Equal(t, model.MissStatusOpen, rec.Status)
}
