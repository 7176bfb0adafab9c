package model

import "time"

const msPerMinute = 60_000

// PauseSegmentMinutes converts a single pause segment into whole minutes.
// Truncation, never rounding up: a segment under 60 seconds contributes 0.
func PauseSegmentMinutes(lastPausedAt, now time.Time) int {
	ms := now.Sub(lastPausedAt).Milliseconds()
	if ms < 0 {
		return 0
	}
	return int(ms / msPerMinute)
}

// CurrentDuration returns the entry's worked minutes as of now. For
// completed entries the persisted snapshot is authoritative; for active
// entries the value is recomputed from wall clock minus accumulated pause
// time, clamped at 0.
func CurrentDuration(e *TimeEntry, now time.Time) int {
	if !e.IsActive {
		return e.Duration
	}
	elapsedMs := now.Sub(e.StartTime).Milliseconds()
	pausedMs := int64(e.PausedMinutes) * msPerMinute
	if e.IsPaused && e.LastPausedAt != nil {
		pausedMs += now.Sub(*e.LastPausedAt).Milliseconds()
	}
	workMs := elapsedMs - pausedMs
	if workMs < 0 {
		return 0
	}
	return int(workMs / msPerMinute)
}

// StopDuration computes the final persisted duration for an entry being
// stopped at now, after any in-progress pause segment has been folded into
// PausedMinutes.
func StopDuration(e *TimeEntry, now time.Time) int {
	workMs := now.Sub(e.StartTime).Milliseconds() - int64(e.PausedMinutes)*msPerMinute
	if workMs < 0 {
		return 0
	}
	return int(workMs / msPerMinute)
}
