package repository

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"teamboard/backend/internal/db"
	"teamboard/backend/internal/model"
)

type EntryRepositorySuite struct {
	suite.Suite
	entries *EntryRepository
	users   *UserRepository
	ctx     context.Context
}

func (s *EntryRepositorySuite) SetupTest() {
	database, err := db.OpenSQLite(filepath.Join(s.T().TempDir(), "test.db"))
	require.NoError(s.T(), err)
	s.T().Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	require.NoError(s.T(), db.RunMigrations(database, migrationsDir))

	s.entries = NewEntryRepository(database)
	s.users = NewUserRepository(database)
	s.ctx = context.Background()

	now := time.Now().UTC()
	for _, id := range []string{"user-1", "user-2"} {
		user := model.User{
			ID:           id,
			Email:        id + "@example.com",
			Name:         "User " + id,
			PasswordHash: "x",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(s.T(), s.users.Create(s.ctx, &user))
	}
}

func (s *EntryRepositorySuite) insert(entry *model.TimeEntry) {
	tx, err := s.entries.BeginTx(s.ctx)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.entries.InsertTx(s.ctx, tx, entry))
	require.NoError(s.T(), tx.Commit())
}

func newEntry(id, userID string, start time.Time, active bool) model.TimeEntry {
	return model.TimeEntry{
		ID:        id,
		UserID:    userID,
		Projects:  []string{"atlas", "ops"},
		Task:      "work",
		Status:    model.StatusBillable,
		StartTime: start,
		IsActive:  active,
		CreatedAt: start,
		UpdatedAt: start,
	}
}

func (s *EntryRepositorySuite) TestInsertAndGetRoundTrip() {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	pausedAt := start.Add(10 * time.Minute)
	entry := newEntry("e-1", "user-1", start, true)
	entry.IsPaused = true
	entry.PausedMinutes = 4
	entry.LastPausedAt = &pausedAt

	s.insert(&entry)

	got, err := s.entries.GetByID(s.ctx, "e-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"atlas", "ops"}, got.Projects)
	assert.Equal(s.T(), "work", got.Task)
	assert.True(s.T(), got.IsActive)
	assert.True(s.T(), got.IsPaused)
	assert.Equal(s.T(), 4, got.PausedMinutes)
	require.NotNil(s.T(), got.LastPausedAt)
	assert.True(s.T(), got.LastPausedAt.Equal(pausedAt))
	assert.True(s.T(), got.StartTime.Equal(start))
	assert.Nil(s.T(), got.EndTime)
}

func (s *EntryRepositorySuite) TestGetMissingReturnsNotFound() {
	_, err := s.entries.GetByID(s.ctx, "nope")
	assert.ErrorIs(s.T(), err, ErrNotFound)

	_, err = s.entries.ActiveByUser(s.ctx, "user-1")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *EntryRepositorySuite) TestActiveQueries() {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e1 := newEntry("e-1", "user-1", start, true)
	e2 := newEntry("e-2", "user-1", start.Add(-time.Hour), false)
	e3 := newEntry("e-3", "user-2", start, true)
	s.insert(&e1)
	s.insert(&e2)
	s.insert(&e3)

	active, err := s.entries.ActiveByUser(s.ctx, "user-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "e-1", active.ID)

	all, err := s.entries.ListActive(s.ctx)
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 2)

	tx, err := s.entries.BeginTx(s.ctx)
	require.NoError(s.T(), err)
	defer tx.Rollback()
	mine, err := s.entries.ActiveByUserTx(s.ctx, tx, "user-1")
	require.NoError(s.T(), err)
	require.Len(s.T(), mine, 1)
	assert.Equal(s.T(), "e-1", mine[0].ID)
}

func (s *EntryRepositorySuite) TestUpdatePersistsStateFlip() {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := newEntry("e-1", "user-1", start, true)
	s.insert(&entry)

	end := start.Add(30 * time.Minute)
	entry.IsActive = false
	entry.EndTime = &end
	entry.Duration = 30
	entry.UpdatedAt = end

	tx, err := s.entries.BeginTx(s.ctx)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.entries.UpdateTx(s.ctx, tx, &entry))
	require.NoError(s.T(), tx.Commit())

	got, err := s.entries.GetByID(s.ctx, "e-1")
	require.NoError(s.T(), err)
	assert.False(s.T(), got.IsActive)
	assert.Equal(s.T(), 30, got.Duration)
	require.NotNil(s.T(), got.EndTime)
	assert.True(s.T(), got.EndTime.Equal(end))
}

func (s *EntryRepositorySuite) TestListByUserRange() {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"e-1", "e-2", "e-3"} {
		entry := newEntry(id, "user-1", base.AddDate(0, 0, i), false)
		s.insert(&entry)
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 2)
	got, err := s.entries.ListByUser(s.ctx, "user-1", &from, &to)
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 1)
	assert.Equal(s.T(), "e-2", got[0].ID)

	all, err := s.entries.ListByUser(s.ctx, "user-1", nil, nil)
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 3)
	assert.Equal(s.T(), "e-3", all[0].ID, "newest first")
}

func (s *EntryRepositorySuite) TestListCompletedFilters() {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	done := newEntry("e-1", "user-1", base, false)
	running := newEntry("e-2", "user-1", base, true)
	other := newEntry("e-3", "user-2", base, false)
	s.insert(&done)
	s.insert(&running)
	s.insert(&other)

	completed, err := s.entries.ListCompleted(s.ctx, "", nil, nil)
	require.NoError(s.T(), err)
	assert.Len(s.T(), completed, 2)

	mine, err := s.entries.ListCompleted(s.ctx, "user-1", nil, nil)
	require.NoError(s.T(), err)
	require.Len(s.T(), mine, 1)
	assert.Equal(s.T(), "e-1", mine[0].ID)
}

func (s *EntryRepositorySuite) TestDelete() {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := newEntry("e-1", "user-1", base, false)
	s.insert(&entry)

	require.NoError(s.T(), s.entries.Delete(s.ctx, "e-1"))
	assert.ErrorIs(s.T(), s.entries.Delete(s.ctx, "e-1"), ErrNotFound)
}

func TestEntryRepositorySuite(t *testing.T) {
	suite.Run(t, new(EntryRepositorySuite))
}
