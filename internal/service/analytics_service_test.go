package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeGroupsCompletedEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	analytics := NewAnalyticsService(env.entries)

	day1End := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	day2End := time.Date(2026, 3, 3, 17, 0, 0, 0, time.UTC)

	setClock(env.svc, day1End)
	_, apiErr := env.svc.LogManual(ctx, "user-1", ManualLogInput{
		Projects: []string{"atlas"}, Task: "a", Duration: 60, EndTime: &day1End,
	})
	require.Nil(t, apiErr)
	_, apiErr = env.svc.LogManual(ctx, "user-1", ManualLogInput{
		Projects: []string{"atlas", "ops"}, Task: "b", Duration: 30, EndTime: &day1End,
	})
	require.Nil(t, apiErr)

	setClock(env.svc, day2End)
	logged, apiErr := env.svc.LogManual(ctx, "user-2", ManualLogInput{
		Projects: []string{"ops"}, Task: "c", Duration: 45, EndTime: &day2End,
	})
	require.Nil(t, apiErr)
	overtime := true
	_, apiErr = env.svc.Update(ctx, "user-2", logged.ID, UpdatePatch{Overtime: &overtime})
	require.Nil(t, apiErr)

	// A still-running timer must not count.
	_, apiErr = env.svc.Start(ctx, "user-1", []string{"atlas"}, "live")
	require.Nil(t, apiErr)

	summary, apiErr := analytics.Summarize(ctx, "", nil, nil)
	require.Nil(t, apiErr)

	assert.Equal(t, 135, summary.TotalMinutes)
	assert.Equal(t, 3, summary.EntryCount)
	assert.Equal(t, 45, summary.OvertimeMinutes)
	assert.Equal(t, 1, summary.OvertimeCount)
	assert.Equal(t, 90, summary.ByUser["user-1"])
	assert.Equal(t, 45, summary.ByUser["user-2"])
	assert.Equal(t, 90, summary.ByProject["atlas"])
	assert.Equal(t, 75, summary.ByProject["ops"])
	assert.Equal(t, 90, summary.ByDay["2026-03-02"])
	assert.Equal(t, 45, summary.ByDay["2026-03-03"])
}

func TestSummarizeFiltersByUserAndRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	analytics := NewAnalyticsService(env.entries)

	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	setClock(env.svc, end)
	_, apiErr := env.svc.LogManual(ctx, "user-1", ManualLogInput{
		Projects: []string{"atlas"}, Task: "a", Duration: 60, EndTime: &end,
	})
	require.Nil(t, apiErr)
	_, apiErr = env.svc.LogManual(ctx, "user-2", ManualLogInput{
		Projects: []string{"atlas"}, Task: "b", Duration: 30, EndTime: &end,
	})
	require.Nil(t, apiErr)

	summary, apiErr := analytics.Summarize(ctx, "user-1", nil, nil)
	require.Nil(t, apiErr)
	assert.Equal(t, 60, summary.TotalMinutes)
	assert.NotContains(t, summary.ByUser, "user-2")

	// A range that excludes everything.
	from := end.Add(24 * time.Hour)
	to := end.Add(48 * time.Hour)
	empty, apiErr := analytics.Summarize(ctx, "", &from, &to)
	require.Nil(t, apiErr)
	assert.Equal(t, 0, empty.TotalMinutes)
	assert.Equal(t, 0, empty.EntryCount)
}
