package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"teamboard/backend/internal/model"
)

type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

const entryColumns = `id, user_id, projects, task, status, overtime,
	start_time, end_time, duration_minutes, is_active, is_paused,
	paused_minutes, last_paused_at, created_at, updated_at`

func (r *EntryRepository) InsertTx(ctx context.Context, tx *sql.Tx, entry *model.TimeEntry) error {
	projects, err := json.Marshal(entry.Projects)
	if err != nil {
		return fmt.Errorf("encode projects: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO time_entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		string(projects),
		entry.Task,
		entry.Status,
		entry.Overtime,
		entry.StartTime.UTC().Format(time.RFC3339Nano),
		formatOptionalTime(entry.EndTime),
		entry.Duration,
		entry.IsActive,
		entry.IsPaused,
		entry.PausedMinutes,
		formatOptionalTime(entry.LastPausedAt),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		entry.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (r *EntryRepository) UpdateTx(ctx context.Context, tx *sql.Tx, entry *model.TimeEntry) error {
	projects, err := json.Marshal(entry.Projects)
	if err != nil {
		return fmt.Errorf("encode projects: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE time_entries
		 SET projects = ?,
		     task = ?,
			 status = ?,
			 overtime = ?,
			 start_time = ?,
			 end_time = ?,
			 duration_minutes = ?,
			 is_active = ?,
			 is_paused = ?,
			 paused_minutes = ?,
			 last_paused_at = ?,
			 updated_at = ?
		 WHERE id = ?`,
		string(projects),
		entry.Task,
		entry.Status,
		entry.Overtime,
		entry.StartTime.UTC().Format(time.RFC3339Nano),
		formatOptionalTime(entry.EndTime),
		entry.Duration,
		entry.IsActive,
		entry.IsPaused,
		entry.PausedMinutes,
		formatOptionalTime(entry.LastPausedAt),
		entry.UpdatedAt.UTC().Format(time.RFC3339Nano),
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (*model.TimeEntry, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE id = ?`,
		id,
	)
	return scanEntry(row)
}

func (r *EntryRepository) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.TimeEntry, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE id = ?`,
		id,
	)
	return scanEntry(row)
}

// ActiveByUserTx returns every active entry for the user, oldest first.
// Under normal sequencing there is at most one; callers must tolerate more.
func (r *EntryRepository) ActiveByUserTx(ctx context.Context, tx *sql.Tx, userID string) ([]model.TimeEntry, error) {
	rows, err := tx.QueryContext(
		ctx,
		`SELECT `+entryColumns+`
		 FROM time_entries
		 WHERE user_id = ? AND is_active = 1
		 ORDER BY start_time ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query active entries: %w", err)
	}
	return collectEntries(rows)
}

func (r *EntryRepository) ActiveByUser(ctx context.Context, userID string) (*model.TimeEntry, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+`
		 FROM time_entries
		 WHERE user_id = ? AND is_active = 1
		 ORDER BY start_time DESC
		 LIMIT 1`,
		userID,
	)
	return scanEntry(row)
}

// ListActive returns active entries across all users, for the heartbeat loop.
func (r *EntryRepository) ListActive(ctx context.Context) ([]model.TimeEntry, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+`
		 FROM time_entries
		 WHERE is_active = 1
		 ORDER BY start_time ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query all active entries: %w", err)
	}
	return collectEntries(rows)
}

func (r *EntryRepository) ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]model.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE user_id = ?`
	args := []any{userID}
	if from != nil {
		query += ` AND start_time >= ?`
		args = append(args, from.UTC().Format(time.RFC3339Nano))
	}
	if to != nil {
		query += ` AND start_time < ?`
		args = append(args, to.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY start_time DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return collectEntries(rows)
}

// ListCompleted returns inactive entries for analytics. An empty userID
// selects all users.
func (r *EntryRepository) ListCompleted(ctx context.Context, userID string, from, to *time.Time) ([]model.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE is_active = 0`
	args := []any{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	if from != nil {
		query += ` AND start_time >= ?`
		args = append(args, from.UTC().Format(time.RFC3339Nano))
	}
	if to != nil {
		query += ` AND start_time < ?`
		args = append(args, to.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY start_time ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completed entries: %w", err)
	}
	return collectEntries(rows)
}

func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func collectEntries(rows *sql.Rows) ([]model.TimeEntry, error) {
	defer rows.Close()

	entries := make([]model.TimeEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*model.TimeEntry, error) {
	entry := model.TimeEntry{}
	var projects string
	var startTime string
	var endTime sql.NullString
	var lastPausedAt sql.NullString
	var createdAt string
	var updatedAt string
	err := s.Scan(
		&entry.ID,
		&entry.UserID,
		&projects,
		&entry.Task,
		&entry.Status,
		&entry.Overtime,
		&startTime,
		&endTime,
		&entry.Duration,
		&entry.IsActive,
		&entry.IsPaused,
		&entry.PausedMinutes,
		&lastPausedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	if err := json.Unmarshal([]byte(projects), &entry.Projects); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}

	parsedStartTime, err := parseTime(startTime)
	if err != nil {
		return nil, fmt.Errorf("parse entry start_time: %w", err)
	}
	entry.StartTime = parsedStartTime

	if endTime.Valid {
		parsedEndTime, parseErr := parseTime(endTime.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse entry end_time: %w", parseErr)
		}
		entry.EndTime = &parsedEndTime
	}
	if lastPausedAt.Valid {
		parsedLastPausedAt, parseErr := parseTime(lastPausedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse entry last_paused_at: %w", parseErr)
		}
		entry.LastPausedAt = &parsedLastPausedAt
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse entry created_at: %w", err)
	}
	entry.CreatedAt = parsedCreatedAt

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse entry updated_at: %w", err)
	}
	entry.UpdatedAt = parsedUpdatedAt

	return &entry, nil
}
