package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"teamboard/backend/internal/model"
)

type DayEndRepository struct {
	db *sql.DB
}

func NewDayEndRepository(db *sql.DB) *DayEndRepository {
	return &DayEndRepository{db: db}
}

func (r *DayEndRepository) Insert(ctx context.Context, rec *model.DayEndRecord) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO day_end_records (id, user_id, ended_at) VALUES (?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.EndedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert day end record: %w", err)
	}
	return nil
}

// LatestForDay returns the most recent day-end record whose ended_at falls
// on the given calendar day (UTC). Several records per day may exist; the
// newest one is the effective value.
func (r *DayEndRepository) LatestForDay(ctx context.Context, userID string, day time.Time) (*model.DayEndRecord, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, ended_at
		 FROM day_end_records
		 WHERE user_id = ? AND ended_at >= ? AND ended_at < ?
		 ORDER BY ended_at DESC
		 LIMIT 1`,
		userID,
		dayStart.Format(time.RFC3339Nano),
		dayEnd.Format(time.RFC3339Nano),
	)

	rec := model.DayEndRecord{}
	var endedAt string
	if err := row.Scan(&rec.ID, &rec.UserID, &endedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan day end record: %w", err)
	}

	parsedEndedAt, err := parseTime(endedAt)
	if err != nil {
		return nil, fmt.Errorf("parse day end ended_at: %w", err)
	}
	rec.EndedAt = parsedEndedAt
	return &rec, nil
}
