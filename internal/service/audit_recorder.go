package service

import (
	"context"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"teamboard/backend/internal/model"
	"teamboard/backend/internal/repository"
)

// AuditRecorder owns the best-effort contract for the audit trail: a failed
// write is logged and swallowed here, never surfaced to the state transition
// that triggered it.
type AuditRecorder struct {
	repo   *repository.AuditRepository
	logger *zap.Logger
}

func NewAuditRecorder(repo *repository.AuditRepository, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, logger: logger}
}

func (a *AuditRecorder) Record(ctx context.Context, userID, entryID string, action model.AuditAction, metadata map[string]any) {
	rec := model.AuditLogEntry{
		ID:        ksuid.New().String(),
		UserID:    userID,
		EntryID:   entryID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.repo.Insert(ctx, &rec); err != nil {
		a.logger.Warn("audit write failed",
			zap.String("userId", userID),
			zap.String("entryId", entryID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}
