package postgres

import (
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"40001", true},
		{"40P01", true},
		{"23505", false},
		{"", false},
	}
	for _, tt := range tests {
		err := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: tt.code})
		assert.Equal(t, tt.want, IsTransient(err), tt.code)
	}
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsTransient(nil))
}

func TestGetMigrations(t *testing.T) {
	migrations := GetMigrations()
	require.Len(t, migrations, 3)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
	assert.Contains(t, migrations[1].UpSQL, "CONSTRAINT uq_weekly_member_week UNIQUE (member_id, week_start_date)")
}

func TestPoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "postgres://u:p@localhost:5432/bookclub?sslmode=disable"
	cfg.MaxConns = 7

	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(7), pc.MaxConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)

	cfg.URL = "postgres://u:p@localhost:notaport/bookclub"
	_, err = cfg.PoolConfig()
	assert.Error(t, err)
}

func TestAssignmentColumns(t *testing.T) {
	assigned := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	returned := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	scores := assignment.Scores{ReadingBase: 15, QuizBase: 5, ReadingEarned: 11, QuizEarned: 5}

	pending := &assignment.Assignment{ID: "a", AssignedDate: assigned, State: assignment.Pending{}}
	due, ret, completed, late, s := columnValues(pending)
	assert.Nil(t, due)
	assert.Nil(t, ret)
	assert.False(t, completed)
	assert.Zero(t, late)
	assert.Equal(t, assignment.Scores{}, s)

	done := &assignment.Assignment{
		ID:           "b",
		AssignedDate: assigned,
		DueDate:      assigned.AddDate(0, 0, 3),
		State:        assignment.Completed{ReturnedDate: returned, LateDays: 2, Scores: scores},
	}
	due, ret, completed, late, s = columnValues(done)
	require.NotNil(t, due)
	require.NotNil(t, ret)
	assert.True(t, completed)
	assert.Equal(t, returned, *ret)
	assert.Equal(t, 2, late)
	assert.Equal(t, scores, s)
}

func TestAssignmentRowState(t *testing.T) {
	returned := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)

	settled := &assignmentRow{returnedDate: &returned, isCompleted: true, lateDays: 1}
	assert.False(t, settled.unsettled())
	assert.True(t, settled.toAssignment().IsCompleted())

	flagOnly := &assignmentRow{isCompleted: true}
	assert.True(t, flagOnly.unsettled())
	assert.False(t, flagOnly.toAssignment().IsCompleted())

	dateOnly := &assignmentRow{returnedDate: &returned}
	assert.True(t, dateOnly.unsettled())
	assert.Equal(t, assignment.StatusPending, dateOnly.toAssignment().Status())
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", *nullString("x"))
	assert.Equal(t, "", derefString(nil))
}
