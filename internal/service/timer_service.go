package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "teamboard/backend/internal/errors"
	"teamboard/backend/internal/model"
	"teamboard/backend/internal/realtime"
	"teamboard/backend/internal/repository"
)

// TimerService is the work-timer state machine. Per user the states are
// idle (no active entry), running, paused, and stopped (terminal for an
// entry); a new start always creates a new entry. All mutating operations
// for one user run under that user's lock and a single transaction, which
// keeps the at-most-one-active-entry invariant under concurrent starts.
type TimerService struct {
	entries *repository.EntryRepository
	users   *repository.UserRepository
	dayEnds *repository.DayEndRepository
	audit   *AuditRecorder
	gateway realtime.Gateway
	logger  *zap.Logger
	locks   *userLocks

	now func() time.Time
}

func NewTimerService(
	entries *repository.EntryRepository,
	users *repository.UserRepository,
	dayEnds *repository.DayEndRepository,
	audit *AuditRecorder,
	gateway realtime.Gateway,
	logger *zap.Logger,
) *TimerService {
	return &TimerService{
		entries: entries,
		users:   users,
		dayEnds: dayEnds,
		audit:   audit,
		gateway: gateway,
		logger:  logger,
		locks:   newUserLocks(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// EntryView is a TimeEntry decorated for clients: duration recomputed as of
// the read, display name/email from the user directory, and whether the
// viewer may edit it.
type EntryView struct {
	model.TimeEntry
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
	CanEdit   bool   `json:"canEdit"`
}

// EntryEvent is the broadcast payload shape for every entry event,
// heartbeats included.
type EntryEvent struct {
	Entry  EntryView `json:"entry"`
	UserID string    `json:"userId"`
}

type ManualLogInput struct {
	Projects  []string
	Task      string
	Duration  int
	StartTime *time.Time
	EndTime   *time.Time
}

type UpdatePatch struct {
	Projects  *[]string
	Task      *string
	Status    *string
	Overtime  *bool
	Duration  *int
	StartTime *time.Time
	EndTime   *time.Time
}

type DayEndResult struct {
	Stopped []EntryView `json:"stopped"`
	EndedAt time.Time   `json:"endedAt"`
}

// Start creates a new running entry. Any entry still active for the user is
// stopped first, inside the same transaction, so at most one entry is active
// once the operation commits.
func (s *TimerService) Start(ctx context.Context, userID string, projects []string, task string) (*EntryView, *apperrors.APIError) {
	projects = cleanProjects(projects)
	if len(projects) == 0 {
		return nil, apperrors.BadRequest("invalid_projects", "projects must be a non-empty list")
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.now()
	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	stopped, apiErr := s.stopActiveTx(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}

	entry := model.TimeEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Projects:  projects,
		Task:      task,
		Status:    model.StatusBillable,
		StartTime: now,
		Duration:  0,
		IsActive:  true,
		IsPaused:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.entries.InsertTx(ctx, tx, &entry); err != nil {
		return nil, apperrors.Internal("failed to create entry")
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}

	for i := range stopped {
		s.audit.Record(ctx, userID, stopped[i].ID, model.ActionStopTimer, map[string]any{
			"reason":   "superseded",
			"duration": stopped[i].Duration,
		})
	}
	s.audit.Record(ctx, userID, entry.ID, model.ActionStartTimer, map[string]any{
		"projects": entry.Projects,
		"task":     entry.Task,
	})

	view := s.toView(ctx, &entry, userID, now)
	s.broadcast(ctx, realtime.EventTimerStarted, view)
	return &view, nil
}

// Pause suspends the running entry. Nil result when the user has no
// running entry to pause.
func (s *TimerService) Pause(ctx context.Context, userID string) (*EntryView, *apperrors.APIError) {
	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.now()
	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	entry, apiErr := s.currentActiveTx(ctx, tx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if entry == nil || entry.IsPaused {
		return nil, nil
	}

	pausedAt := now
	entry.IsPaused = true
	entry.LastPausedAt = &pausedAt
	entry.UpdatedAt = now

	if err := s.entries.UpdateTx(ctx, tx, entry); err != nil {
		return nil, apperrors.Internal("failed to update entry")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}

	s.audit.Record(ctx, userID, entry.ID, model.ActionPauseTimer, nil)

	view := s.toView(ctx, entry, userID, now)
	s.broadcast(ctx, realtime.EventTimerPaused, view)
	return &view, nil
}

// Resume folds the finished pause segment into the paused total, truncated
// to whole minutes, and puts the entry back in the running state. Nil result
// when there is no paused entry.
func (s *TimerService) Resume(ctx context.Context, userID string) (*EntryView, *apperrors.APIError) {
	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.now()
	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	entry, apiErr := s.currentActiveTx(ctx, tx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if entry == nil || !entry.IsPaused || entry.LastPausedAt == nil {
		return nil, nil
	}

	entry.PausedMinutes += model.PauseSegmentMinutes(*entry.LastPausedAt, now)
	entry.IsPaused = false
	entry.LastPausedAt = nil
	entry.UpdatedAt = now

	if err := s.entries.UpdateTx(ctx, tx, entry); err != nil {
		return nil, apperrors.Internal("failed to update entry")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}

	s.audit.Record(ctx, userID, entry.ID, model.ActionResumeTimer, map[string]any{
		"pausedDuration": entry.PausedMinutes,
	})

	view := s.toView(ctx, entry, userID, now)
	s.broadcast(ctx, realtime.EventTimerResumed, view)
	return &view, nil
}

// Stop terminates the active entry, running or paused. Nil result when the
// user has no active entry.
func (s *TimerService) Stop(ctx context.Context, userID string) (*EntryView, *apperrors.APIError) {
	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.now()
	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	entry, apiErr := s.currentActiveTx(ctx, tx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if entry == nil {
		return nil, nil
	}

	stopEntry(entry, now)
	if err := s.entries.UpdateTx(ctx, tx, entry); err != nil {
		return nil, apperrors.Internal("failed to update entry")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}

	s.audit.Record(ctx, userID, entry.ID, model.ActionStopTimer, map[string]any{
		"duration":       entry.Duration,
		"pausedDuration": entry.PausedMinutes,
	})

	view := s.toView(ctx, entry, userID, now)
	s.broadcast(ctx, realtime.EventTimerStopped, view)
	return &view, nil
}

// DayEnd stops every active entry the user still has (normally at most one,
// but a prior race may have left more) and records the end of the working
// day. Safe to call with nothing running.
func (s *TimerService) DayEnd(ctx context.Context, userID string) (*DayEndResult, *apperrors.APIError) {
	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.now()
	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	stopped, apiErr := s.stopActiveTx(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}

	record := model.DayEndRecord{
		ID:      uuid.NewString(),
		UserID:  userID,
		EndedAt: now,
	}
	if err := s.dayEnds.Insert(ctx, &record); err != nil {
		return nil, apperrors.Internal("failed to record day end")
	}

	result := DayEndResult{Stopped: make([]EntryView, 0, len(stopped)), EndedAt: now}
	for i := range stopped {
		s.audit.Record(ctx, userID, stopped[i].ID, model.ActionStopTimer, map[string]any{
			"reason":   "day_end",
			"duration": stopped[i].Duration,
		})
		view := s.toView(ctx, &stopped[i], userID, now)
		s.broadcast(ctx, realtime.EventTimerStopped, view)
		result.Stopped = append(result.Stopped, view)
	}
	return &result, nil
}

// HandleDisconnect is the connection-teardown fallback: invoked by the hub
// when a user's last live connection closes. Failures are logged, never
// returned to the teardown path.
func (s *TimerService) HandleDisconnect(userID string) {
	if _, apiErr := s.DayEnd(context.Background(), userID); apiErr != nil {
		s.logger.Warn("day-end fallback on disconnect failed",
			zap.String("userId", userID),
			zap.String("code", apiErr.Code),
		)
	}
}

// Update applies a manual correction. Only the owner may mutate an entry;
// duration and timestamps may only be corrected on completed entries.
func (s *TimerService) Update(ctx context.Context, userID, entryID string, patch UpdatePatch) (*EntryView, *apperrors.APIError) {
	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.now()
	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	entry, err := s.entries.GetByIDTx(ctx, tx, entryID)
	if err == repository.ErrNotFound {
		return nil, apperrors.NotFound("entry_not_found", "time entry not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get entry")
	}
	if entry.UserID != userID {
		return nil, apperrors.Forbidden("you do not own this entry")
	}

	changes := map[string]any{}

	if patch.Projects != nil {
		projects := cleanProjects(*patch.Projects)
		if len(projects) == 0 {
			return nil, apperrors.BadRequest("invalid_projects", "projects must be a non-empty list")
		}
		changes["projects"] = map[string]any{"old": entry.Projects, "new": projects}
		entry.Projects = projects
	}
	if patch.Task != nil {
		changes["task"] = map[string]any{"old": entry.Task, "new": *patch.Task}
		entry.Task = *patch.Task
	}
	if patch.Status != nil {
		if *patch.Status != model.StatusBillable && *patch.Status != model.StatusInternal {
			return nil, apperrors.BadRequest("invalid_status", "status must be billable or internal")
		}
		changes["status"] = map[string]any{"old": entry.Status, "new": *patch.Status}
		entry.Status = *patch.Status
	}
	if patch.Overtime != nil {
		changes["overtime"] = map[string]any{"old": entry.Overtime, "new": *patch.Overtime}
		entry.Overtime = *patch.Overtime
	}

	if patch.Duration != nil || patch.StartTime != nil || patch.EndTime != nil {
		if entry.IsActive {
			return nil, apperrors.BadRequest("entry_active", "duration and times can only be edited on completed entries")
		}
		if patch.Duration != nil {
			if *patch.Duration < 0 {
				return nil, apperrors.BadRequest("invalid_duration", "duration must not be negative")
			}
			changes["duration"] = map[string]any{"old": entry.Duration, "new": *patch.Duration}
			entry.Duration = *patch.Duration
		}
		if patch.StartTime != nil {
			changes["startTime"] = map[string]any{"old": entry.StartTime, "new": *patch.StartTime}
			entry.StartTime = patch.StartTime.UTC()
		}
		if patch.EndTime != nil {
			endTime := patch.EndTime.UTC()
			changes["endTime"] = map[string]any{"old": entry.EndTime, "new": endTime}
			entry.EndTime = &endTime
		}
	}

	if len(changes) == 0 {
		view := s.toView(ctx, entry, userID, now)
		return &view, nil
	}

	entry.UpdatedAt = now
	if err := s.entries.UpdateTx(ctx, tx, entry); err != nil {
		return nil, apperrors.Internal("failed to update entry")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}

	s.audit.Record(ctx, userID, entry.ID, model.ActionUpdateEntry, changes)

	view := s.toView(ctx, entry, userID, now)
	s.broadcast(ctx, realtime.EventUpdated, view)
	return &view, nil
}

// Delete removes an entry. Owner only.
func (s *TimerService) Delete(ctx context.Context, userID, entryID string) *apperrors.APIError {
	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.now()
	entry, err := s.entries.GetByID(ctx, entryID)
	if err == repository.ErrNotFound {
		return apperrors.NotFound("entry_not_found", "time entry not found")
	}
	if err != nil {
		return apperrors.Internal("failed to get entry")
	}
	if entry.UserID != userID {
		return apperrors.Forbidden("you do not own this entry")
	}

	if err := s.entries.Delete(ctx, entryID); err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("entry_not_found", "time entry not found")
		}
		return apperrors.Internal("failed to delete entry")
	}

	s.audit.Record(ctx, userID, entryID, model.ActionDeleteEntry, map[string]any{
		"projects": entry.Projects,
		"task":     entry.Task,
		"duration": model.CurrentDuration(entry, now),
	})

	view := s.toView(ctx, entry, userID, now)
	s.broadcast(ctx, realtime.EventDeleted, view)
	return nil
}

// LogManual records an already-finished session with an explicit duration,
// bypassing the live timer.
func (s *TimerService) LogManual(ctx context.Context, userID string, input ManualLogInput) (*EntryView, *apperrors.APIError) {
	projects := cleanProjects(input.Projects)
	if len(projects) == 0 {
		return nil, apperrors.BadRequest("invalid_projects", "projects must be a non-empty list")
	}
	task := strings.TrimSpace(input.Task)
	if task == "" {
		return nil, apperrors.BadRequest("invalid_task", "task is required for manual entries")
	}
	if input.Duration <= 0 {
		return nil, apperrors.BadRequest("invalid_duration", "duration must be a positive number of minutes")
	}

	now := s.now()
	endTime := now
	if input.EndTime != nil {
		endTime = input.EndTime.UTC()
	}
	startTime := endTime.Add(-time.Duration(input.Duration) * time.Minute)
	if input.StartTime != nil {
		startTime = input.StartTime.UTC()
	}

	entry := model.TimeEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Projects:  projects,
		Task:      task,
		Status:    model.StatusBillable,
		StartTime: startTime,
		EndTime:   &endTime,
		Duration:  input.Duration,
		IsActive:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.entries.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	if err := s.entries.InsertTx(ctx, tx, &entry); err != nil {
		return nil, apperrors.Internal("failed to create entry")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}

	s.audit.Record(ctx, userID, entry.ID, model.ActionLogManual, map[string]any{
		"projects": entry.Projects,
		"task":     entry.Task,
		"duration": entry.Duration,
	})

	view := s.toView(ctx, &entry, userID, now)
	s.broadcast(ctx, realtime.EventCreated, view)
	return &view, nil
}

// ActiveEntry returns the user's active entry with a live duration, or nil
// when the timer is idle.
func (s *TimerService) ActiveEntry(ctx context.Context, userID string) (*EntryView, *apperrors.APIError) {
	now := s.now()
	entry, err := s.entries.ActiveByUser(ctx, userID)
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get active entry")
	}
	view := s.toView(ctx, entry, userID, now)
	return &view, nil
}

// ListEntries returns the user's entries newest first, durations recomputed
// for any that are still active.
func (s *TimerService) ListEntries(ctx context.Context, userID string, from, to *time.Time) ([]EntryView, *apperrors.APIError) {
	now := s.now()
	entries, err := s.entries.ListByUser(ctx, userID, from, to)
	if err != nil {
		return nil, apperrors.Internal("failed to list entries")
	}

	views := make([]EntryView, 0, len(entries))
	for i := range entries {
		views = append(views, s.toView(ctx, &entries[i], userID, now))
	}
	return views, nil
}

// ActiveTimerEvents builds one broadcast payload per active timer across all
// users, durations recomputed as of the call. Used by the heartbeat loop.
func (s *TimerService) ActiveTimerEvents(ctx context.Context) ([]EntryEvent, error) {
	now := s.now()
	entries, err := s.entries.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]EntryEvent, 0, len(entries))
	for i := range entries {
		view := s.toView(ctx, &entries[i], entries[i].UserID, now)
		events = append(events, EntryEvent{Entry: view, UserID: entries[i].UserID})
	}
	return events, nil
}

// currentActiveTx returns the user's newest active entry, or nil when idle.
func (s *TimerService) currentActiveTx(ctx context.Context, tx *sql.Tx, userID string) (*model.TimeEntry, *apperrors.APIError) {
	actives, err := s.entries.ActiveByUserTx(ctx, tx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to get active entry")
	}
	if len(actives) == 0 {
		return nil, nil
	}
	return &actives[len(actives)-1], nil
}

// stopActiveTx stops every active entry for the user inside tx and returns
// the stopped entries.
func (s *TimerService) stopActiveTx(ctx context.Context, tx *sql.Tx, userID string, now time.Time) ([]model.TimeEntry, *apperrors.APIError) {
	actives, err := s.entries.ActiveByUserTx(ctx, tx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to get active entries")
	}

	for i := range actives {
		stopEntry(&actives[i], now)
		if err := s.entries.UpdateTx(ctx, tx, &actives[i]); err != nil {
			return nil, apperrors.Internal("failed to stop entry")
		}
	}
	return actives, nil
}

// stopEntry applies the stop arithmetic in place: fold any in-progress pause
// segment (same truncation as resume), then persist the final duration,
// clamped at 0 in case clock skew or manual edits made paused time exceed
// elapsed time.
func stopEntry(e *model.TimeEntry, now time.Time) {
	if e.IsPaused && e.LastPausedAt != nil {
		e.PausedMinutes += model.PauseSegmentMinutes(*e.LastPausedAt, now)
	}
	e.Duration = model.StopDuration(e, now)
	e.IsActive = false
	e.IsPaused = false
	endTime := now
	e.EndTime = &endTime
	e.LastPausedAt = nil
	e.UpdatedAt = now
}

func (s *TimerService) toView(ctx context.Context, entry *model.TimeEntry, viewerID string, now time.Time) EntryView {
	e := *entry
	e.Duration = model.CurrentDuration(&e, now)

	name, email := "Unknown", ""
	if user, err := s.users.GetByID(ctx, e.UserID); err == nil {
		name, email = user.Name, user.Email
	}

	return EntryView{
		TimeEntry: e,
		UserName:  name,
		UserEmail: email,
		CanEdit:   viewerID == e.UserID,
	}
}

// broadcast emits an entry event to the shared channel. Best effort: a
// gateway failure must never fail the state transition that caused it.
func (s *TimerService) broadcast(_ context.Context, event string, view EntryView) {
	payload := EntryEvent{Entry: view, UserID: view.UserID}
	if err := s.gateway.Emit(realtime.ChannelActiveTimers, event, payload); err != nil {
		s.logger.Warn("broadcast failed",
			zap.String("event", event),
			zap.String("userId", view.UserID),
			zap.Error(err),
		)
	}
}

func cleanProjects(projects []string) []string {
	cleaned := make([]string, 0, len(projects))
	for _, p := range projects {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
