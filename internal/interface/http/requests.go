package http

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════

type createPeriodRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Activate    bool   `json:"activate"`
}

type createStageRequest struct {
	StageNumber int    `json:"stage_number" validate:"required,min=1"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"min=0"`
}

type createBookRequest struct {
	StageID      string `json:"stage_id" validate:"required"`
	Title        string `json:"title" validate:"required,max=200"`
	Author       string `json:"author" validate:"max=100"`
	Description  string `json:"description"`
	ReadingScore int    `json:"reading_score" validate:"min=0"`
	QuizScore    int    `json:"quiz_score" validate:"min=0"`
	ReadingDays  int    `json:"reading_days" validate:"min=0"`
	PageCount    int    `json:"page_count" validate:"min=0"`
	StockCount   int    `json:"stock_count" validate:"min=0"`
}

type updateBookRequest struct {
	StageID      *string `json:"stage_id"`
	Title        *string `json:"title" validate:"omitnil,min=1,max=200"`
	Author       *string `json:"author" validate:"omitnil,max=100"`
	Description  *string `json:"description"`
	ReadingScore *int    `json:"reading_score" validate:"omitnil,min=0"`
	QuizScore    *int    `json:"quiz_score" validate:"omitnil,min=0"`
	ReadingDays  *int    `json:"reading_days" validate:"omitnil,min=1"`
	PageCount    *int    `json:"page_count" validate:"omitnil,min=0"`
	StockCount   *int    `json:"stock_count" validate:"omitnil,min=0"`
}

type changeBookScoreRequest struct {
	ReadingScore int `json:"reading_score" validate:"min=0"`
	QuizScore    int `json:"quiz_score" validate:"min=0"`
}

type createMemberRequest struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	GroupName string `json:"group_name" validate:"max=50"`
	StageID   string `json:"stage_id"`
}

type updateMemberRequest struct {
	FirstName      *string `json:"first_name" validate:"omitnil,min=1,max=50"`
	LastName       *string `json:"last_name" validate:"omitnil,min=1,max=50"`
	GroupName      *string `json:"group_name" validate:"omitnil,max=50"`
	CurrentStageID *string `json:"current_stage_id"`
	IsActive       *bool   `json:"is_active"`
}

type createAccountRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required"`
}

type createAssignmentRequest struct {
	MemberID     string     `json:"member_id" validate:"required"`
	BookID       string     `json:"book_id" validate:"required"`
	AssignedDate *time.Time `json:"assigned_date"`
	DueDate      *time.Time `json:"due_date"`
	ReturnedDate *time.Time `json:"returned_date"`
	QuizScore    *int       `json:"quiz_score" validate:"omitnil,min=0"`
	PagesRead    int        `json:"pages_read" validate:"min=0"`
	Notes        string     `json:"notes"`
}

type updateAssignmentRequest struct {
	MemberID      *string    `json:"member_id" validate:"omitnil,min=1"`
	BookID        *string    `json:"book_id" validate:"omitnil,min=1"`
	AssignedDate  *time.Time `json:"assigned_date"`
	DueDate       *time.Time `json:"due_date"`
	ReturnedDate  *time.Time `json:"returned_date"`
	ClearReturned bool       `json:"clear_returned"`
	QuizScore     *int       `json:"quiz_score" validate:"omitnil,min=0"`
	PagesRead     *int       `json:"pages_read" validate:"omitnil,min=0"`
	Notes         *string    `json:"notes"`
}

type completeAssignmentRequest struct {
	ReturnedDate *time.Time `json:"returned_date"`
	QuizScore    *int       `json:"quiz_score" validate:"omitnil,min=0"`
	Notes        *string    `json:"notes"`
}

type sendNotificationRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=general private"`
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title" validate:"required,max=200"`
	Message     string `json:"message" validate:"required"`
}

type sessionRequest struct {
	UserID string     `json:"user_id" validate:"required"`
	At     *time.Time `json:"at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// BINDING
// ══════════════════════════════════════════════════════════════════════════════

// newValidator reports JSON field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind parses an optional JSON body into dst and validates it.
func (s *Server) bind(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	return s.validate.Struct(dst)
}

// parseDate parses a YYYY-MM-DD value as the start of that day in the club
// timezone.
func (s *Server) parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(timeutil.FormatDate, value, s.deps.Location)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "dates must be YYYY-MM-DD")
	}
	return t, nil
}

// timeOrZero unwraps an optional time.
func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
