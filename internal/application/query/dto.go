// Package query contains read operations (CQRS - Queries).
package query

import (
	"time"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/notification"
	"github.com/mahdygh/bookclub/internal/domain/period"
	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// JSON shapes returned by queries and handed to the HTTP layer as is.
// ══════════════════════════════════════════════════════════════════════════════

// PeriodDTO is a reading period.
type PeriodDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// NewPeriodDTO maps a period.
func NewPeriodDTO(p *period.ReadingPeriod, loc *time.Location) PeriodDTO {
	return PeriodDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		IsActive:    p.IsActive,
		StartDate:   p.StartDate.In(loc).Format(timeutil.FormatDate),
		EndDate:     p.EndDate.In(loc).Format(timeutil.FormatDate),
	}
}

// StageDTO is a stage of a period.
type StageDTO struct {
	ID          string `json:"id"`
	PeriodID    string `json:"period_id"`
	StageNumber int    `json:"stage_number"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
}

// NewStageDTO maps a stage.
func NewStageDTO(s *period.Stage) StageDTO {
	return StageDTO{
		ID:          s.ID,
		PeriodID:    s.PeriodID,
		StageNumber: s.StageNumber,
		Name:        s.Name,
		Description: s.Description,
		Order:       s.Order,
	}
}

// BookDTO is a catalogue entry. Available is only filled by availability
// aware queries.
type BookDTO struct {
	ID           string `json:"id"`
	StageID      string `json:"stage_id"`
	Title        string `json:"title"`
	Author       string `json:"author,omitempty"`
	Description  string `json:"description,omitempty"`
	ReadingScore int    `json:"reading_score"`
	QuizScore    int    `json:"quiz_score"`
	TotalScore   int    `json:"total_score"`
	ReadingDays  int    `json:"reading_days"`
	PageCount    int    `json:"page_count"`
	StockCount   int    `json:"stock_count"`
	Available    *int   `json:"available_copies,omitempty"`
}

// NewBookDTO maps a book.
func NewBookDTO(b *book.Book) BookDTO {
	return BookDTO{
		ID:           b.ID,
		StageID:      b.StageID,
		Title:        b.Title,
		Author:       b.Author,
		Description:  b.Description,
		ReadingScore: b.ReadingScore,
		QuizScore:    b.QuizScore,
		TotalScore:   b.TotalScore(),
		ReadingDays:  b.ReadingDays,
		PageCount:    b.PageCount,
		StockCount:   b.StockCount,
	}
}

// WithAvailable sets the free copies.
func (d BookDTO) WithAvailable(n int) BookDTO {
	d.Available = &n
	return d
}

// MemberDTO is a member profile with the ledger value.
type MemberDTO struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	FullName       string `json:"full_name"`
	GroupName      string `json:"group_name,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	CurrentStageID string `json:"current_stage_id,omitempty"`
	TotalScore     int    `json:"total_score"`
	IsActive       bool   `json:"is_active"`
}

// NewMemberDTO maps a member.
func NewMemberDTO(m *member.Member) MemberDTO {
	return MemberDTO{
		ID:             m.ID,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		FullName:       m.FullName(),
		GroupName:      m.GroupName,
		UserID:         m.UserID,
		CurrentStageID: m.CurrentStageID,
		TotalScore:     m.TotalScore,
		IsActive:       m.IsActive,
	}
}

// AssignmentDTO is a loan with its frozen scores once completed.
type AssignmentDTO struct {
	ID           string     `json:"id"`
	MemberID     string     `json:"member_id"`
	BookID       string     `json:"book_id"`
	Status       string     `json:"status"`
	AssignedDate time.Time  `json:"assigned_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnedDate *time.Time `json:"returned_date,omitempty"`
	LateDays     int        `json:"late_days"`
	ReadingBase  int        `json:"reading_score_base"`
	QuizBase     int        `json:"quiz_score_base"`
	ReadingScore int        `json:"reading_score_earned"`
	QuizScore    int        `json:"quiz_score_earned"`
	TotalEarned  int        `json:"total_earned"`
	Penalty      *int       `json:"penalty_amount,omitempty"`
	PagesRead    int        `json:"pages_read"`
	Notes        string     `json:"notes,omitempty"`
}

// NewAssignmentDTO maps an assignment.
func NewAssignmentDTO(a *assignment.Assignment) AssignmentDTO {
	d := AssignmentDTO{
		ID:           a.ID,
		MemberID:     a.MemberID,
		BookID:       a.BookID,
		Status:       string(a.Status()),
		AssignedDate: a.AssignedDate,
		DueDate:      a.DueDate,
		ReturnedDate: a.ReturnedDate(),
		PagesRead:    a.PagesRead,
		Notes:        a.Notes,
	}
	if c, ok := a.Completion(); ok {
		d.LateDays = c.LateDays
		d.ReadingBase = c.Scores.ReadingBase
		d.QuizBase = c.Scores.QuizBase
		d.ReadingScore = c.Scores.ReadingEarned
		d.QuizScore = c.Scores.QuizEarned
		d.TotalEarned = c.Scores.Total()
	}
	return d
}

// EntryDTO is one ranking row.
type EntryDTO struct {
	Rank           int    `json:"rank"`
	MemberID       string `json:"member_id"`
	FullName       string `json:"full_name"`
	GroupName      string `json:"group_name,omitempty"`
	Score          int    `json:"score"`
	TotalScore     int    `json:"total_score"`
	CompletedBooks int    `json:"completed_books"`
}

// NewEntryDTO maps a ranking entry.
func NewEntryDTO(e *leaderboard.Entry) EntryDTO {
	return EntryDTO{
		Rank:           e.Rank,
		MemberID:       e.MemberID,
		FullName:       e.FullName,
		GroupName:      e.GroupName,
		Score:          e.Score,
		TotalScore:     e.TotalScore,
		CompletedBooks: e.CompletedBooks,
	}
}

// NotificationDTO is an inbox item.
type NotificationDTO struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	RecipientID  string    `json:"recipient_id,omitempty"`
	AssignmentID string    `json:"assignment_id,omitempty"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	IsRead       bool      `json:"is_read"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewNotificationDTO maps a notification.
func NewNotificationDTO(n *notification.Notification) NotificationDTO {
	return NotificationDTO{
		ID:           n.ID,
		Kind:         string(n.Kind),
		RecipientID:  n.RecipientID,
		AssignmentID: n.AssignmentID,
		Title:        n.Title,
		Message:      n.Message,
		IsRead:       n.IsRead,
		CreatedAt:    n.CreatedAt,
	}
}
