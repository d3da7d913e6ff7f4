package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegira/internal/model"
)

func strPtr(s string) *string { return &s }

func baseTeam() *model.Team {
	return &model.Team{
		WorkDays:           model.WorkDays{"monday", "tuesday", "wednesday", "thursday", "friday"},
		CheckInWindowStart: "08:00:00",
		CheckInWindowEnd:   "10:00:00",
	}
}

func TestResolveTeamDefaults(t *testing.T) {
	resolved := Resolve(&model.Person{}, baseTeam())

	assert.Equal(t, "08:00:00", resolved.WindowStart)
	assert.Equal(t, "10:00:00", resolved.WindowEnd)
	assert.True(t, resolved.IsWorkDay(time.Monday))
	assert.False(t, resolved.IsWorkDay(time.Saturday))
}

func TestResolvePerFieldOverride(t *testing.T) {
	// 只覆盖工作日，窗口沿用团队默认
	days := model.WorkDays{"saturday", "sunday"}
	person := &model.Person{WorkDays: &days}

	resolved := Resolve(person, baseTeam())

	assert.True(t, resolved.IsWorkDay(time.Saturday))
	assert.False(t, resolved.IsWorkDay(time.Monday))
	assert.Equal(t, "08:00:00", resolved.WindowStart)
	assert.Equal(t, "10:00:00", resolved.WindowEnd)
}

func TestResolveWindowOverrideKeepsTeamWorkDays(t *testing.T) {
	person := &model.Person{
		CheckInWindowStart: strPtr("06:00:00"),
		CheckInWindowEnd:   strPtr("07:30:00"),
	}

	resolved := Resolve(person, baseTeam())

	assert.Equal(t, "06:00:00", resolved.WindowStart)
	assert.Equal(t, "07:30:00", resolved.WindowEnd)
	assert.True(t, resolved.IsWorkDay(time.Friday))
}

func TestResolveEmptyOverrideWorkDays(t *testing.T) {
	// 显式空集合是合法覆盖：当前不要求打卡
	days := model.WorkDays{}
	person := &model.Person{WorkDays: &days}

	resolved := Resolve(person, baseTeam())

	for d := time.Sunday; d <= time.Saturday; d++ {
		assert.False(t, resolved.IsWorkDay(d))
	}
}

func TestResolveMalformedClockFallsBack(t *testing.T) {
	person := &model.Person{
		CheckInWindowStart: strPtr("not-a-clock"),
		CheckInWindowEnd:   strPtr("25:99"),
	}

	resolved := Resolve(person, baseTeam())

	assert.Equal(t, "08:00:00", resolved.WindowStart)
	assert.Equal(t, "10:00:00", resolved.WindowEnd)
}

func TestResolveNilPerson(t *testing.T) {
	resolved := Resolve(nil, baseTeam())
	assert.Equal(t, "08:00:00", resolved.WindowStart)
}

func TestWindowEndOn(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	resolved := Resolve(nil, baseTeam())
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)

	end, err := resolved.WindowEndOn(date)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, loc), end)
}

func TestLabel(t *testing.T) {
	resolved := Resolve(nil, baseTeam())
	assert.Equal(t, "08:00 - 10:00", resolved.Label())

	short := ResolvedSchedule{WindowStart: "08:30", WindowEnd: "09:15"}
	assert.Equal(t, "08:30 - 09:15", short.Label())
}
