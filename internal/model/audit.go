package model

import "time"

// AuditAction identifies the kind of transition or mutation being recorded.
type AuditAction string

const (
	ActionStartTimer  AuditAction = "start_timer"
	ActionPauseTimer  AuditAction = "pause_timer"
	ActionResumeTimer AuditAction = "resume_timer"
	ActionStopTimer   AuditAction = "stop_timer"
	ActionUpdateEntry AuditAction = "update_entry"
	ActionDeleteEntry AuditAction = "delete_entry"
	ActionLogManual   AuditAction = "log_manual"
)

// AuditLogEntry is an immutable record of a single timer transition or
// manual edit. Rows are inserted and never updated or deleted.
type AuditLogEntry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	EntryID   string         `json:"entryId,omitempty"`
	Action    AuditAction    `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
