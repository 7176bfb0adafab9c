package service

import (
	"context"
	"time"

	apperrors "teamboard/backend/internal/errors"
	"teamboard/backend/internal/repository"
)

// AnalyticsService is a read-only rollup over completed entries. Active
// entries never count toward analytics.
type AnalyticsService struct {
	entries *repository.EntryRepository
}

func NewAnalyticsService(entries *repository.EntryRepository) *AnalyticsService {
	return &AnalyticsService{entries: entries}
}

type Summary struct {
	TotalMinutes    int            `json:"totalMinutes"`
	EntryCount      int            `json:"entryCount"`
	OvertimeMinutes int            `json:"overtimeMinutes"`
	OvertimeCount   int            `json:"overtimeCount"`
	ByUser          map[string]int `json:"byUser"`
	ByProject       map[string]int `json:"byProject"`
	ByDay           map[string]int `json:"byDay"`
}

// Summarize sums completed-entry durations grouped by user, project, and
// calendar day, with overtime sub-totals. An empty userID covers all users;
// an entry spanning several projects credits each of them in full.
func (s *AnalyticsService) Summarize(ctx context.Context, userID string, from, to *time.Time) (*Summary, *apperrors.APIError) {
	entries, err := s.entries.ListCompleted(ctx, userID, from, to)
	if err != nil {
		return nil, apperrors.Internal("failed to query entries")
	}

	summary := Summary{
		ByUser:    make(map[string]int),
		ByProject: make(map[string]int),
		ByDay:     make(map[string]int),
	}

	for i := range entries {
		entry := &entries[i]
		summary.TotalMinutes += entry.Duration
		summary.EntryCount++
		if entry.Overtime {
			summary.OvertimeMinutes += entry.Duration
			summary.OvertimeCount++
		}

		summary.ByUser[entry.UserID] += entry.Duration
		for _, project := range entry.Projects {
			summary.ByProject[project] += entry.Duration
		}
		summary.ByDay[entry.StartTime.UTC().Format("2006-01-02")] += entry.Duration
	}

	return &summary, nil
}
