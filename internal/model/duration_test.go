package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPauseSegmentMinutesTruncates(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, PauseSegmentMinutes(base, base.Add(30*time.Second)))
	assert.Equal(t, 0, PauseSegmentMinutes(base, base.Add(59*time.Second)))
	assert.Equal(t, 1, PauseSegmentMinutes(base, base.Add(60*time.Second)))
	assert.Equal(t, 4, PauseSegmentMinutes(base, base.Add(4*time.Minute+59*time.Second)))
	assert.Equal(t, 0, PauseSegmentMinutes(base, base.Add(-time.Minute)), "negative segments contribute nothing")
}

func TestCurrentDurationRunning(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := TimeEntry{StartTime: start, IsActive: true}

	assert.Equal(t, 0, CurrentDuration(&entry, start.Add(59*time.Second)))
	assert.Equal(t, 1, CurrentDuration(&entry, start.Add(time.Minute)))
	assert.Equal(t, 25, CurrentDuration(&entry, start.Add(25*time.Minute+30*time.Second)))
}

func TestCurrentDurationExcludesPausedTime(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := TimeEntry{StartTime: start, IsActive: true, PausedMinutes: 5}

	assert.Equal(t, 20, CurrentDuration(&entry, start.Add(25*time.Minute)))

	pausedAt := start.Add(25 * time.Minute)
	entry.IsPaused = true
	entry.LastPausedAt = &pausedAt
	// 10 more minutes pass while paused; worked time stays put.
	assert.Equal(t, 20, CurrentDuration(&entry, start.Add(35*time.Minute)))
}

func TestCurrentDurationNeverNegative(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := TimeEntry{StartTime: start, IsActive: true, PausedMinutes: 120}

	assert.Equal(t, 0, CurrentDuration(&entry, start.Add(10*time.Minute)))
}

func TestCurrentDurationInactiveUsesSnapshot(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := TimeEntry{StartTime: start, IsActive: false, Duration: 42}

	assert.Equal(t, 42, CurrentDuration(&entry, start.Add(8*time.Hour)))
}

func TestCurrentDurationMonotonicWhileRunning(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := TimeEntry{StartTime: start, IsActive: true, PausedMinutes: 3}

	prev := -1
	for offset := time.Duration(0); offset <= time.Hour; offset += 5 * time.Second {
		d := CurrentDuration(&entry, start.Add(offset))
		assert.GreaterOrEqual(t, d, prev, "duration decreased at offset %s", offset)
		prev = d
	}
}

func TestStopDurationClampsAtZero(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := TimeEntry{StartTime: start, IsActive: true, PausedMinutes: 30}

	assert.Equal(t, 0, StopDuration(&entry, start.Add(10*time.Minute)))
	assert.Equal(t, 10, StopDuration(&entry, start.Add(40*time.Minute)))
}
