package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"teamboard/backend/internal/model"
)

// AuditRepository is insert-only. There is deliberately no update or delete.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, rec *model.AuditLogEntry) error {
	var metadata any
	if rec.Metadata != nil {
		encoded, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		metadata = string(encoded)
	}

	var entryID any
	if rec.EntryID != "" {
		entryID = rec.EntryID
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO audit_log (id, user_id, entry_id, action, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		entryID,
		string(rec.Action),
		metadata,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.AuditLogEntry, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, entry_id, action, metadata, created_at
		 FROM audit_log
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	records := make([]model.AuditLogEntry, 0, limit)
	for rows.Next() {
		rec := model.AuditLogEntry{}
		var entryID sql.NullString
		var metadata sql.NullString
		var action string
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.UserID, &entryID, &action, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Action = model.AuditAction(action)
		if entryID.Valid {
			rec.EntryID = entryID.String
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		parsedCreatedAt, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse audit created_at: %w", err)
		}
		rec.CreatedAt = parsedCreatedAt
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
