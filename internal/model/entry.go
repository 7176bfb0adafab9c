package model

import "time"

const (
	StatusBillable = "billable"
	StatusInternal = "internal"
)

// TimeEntry is one work session. While IsActive is true the persisted
// Duration is stale on purpose; read paths recompute it from StartTime and
// the accumulated pause time (see CurrentDuration).
type TimeEntry struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Projects      []string   `json:"projects"`
	Task          string     `json:"task"`
	Status        string     `json:"status"`
	Overtime      bool       `json:"overtime"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	Duration      int        `json:"duration"`
	IsActive      bool       `json:"isActive"`
	IsPaused      bool       `json:"isPaused"`
	PausedMinutes int        `json:"pausedDuration"`
	LastPausedAt  *time.Time `json:"lastPausedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// DayEndRecord marks the close of a user's working day. There is no
// uniqueness constraint per day; the most recent record for a day wins.
type DayEndRecord struct {
	ID      string    `json:"id"`
	UserID  string    `json:"userId"`
	EndedAt time.Time `json:"endedAt"`
}
