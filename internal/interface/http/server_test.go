package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mahdygh/bookclub/config"
	"github.com/mahdygh/bookclub/internal/bootstrap"
	httpapi "github.com/mahdygh/bookclub/internal/interface/http"
)

// Wednesday 2024-03-13 10:00 UTC; its week starts Saturday 03-09.
var testNow = time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)

type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type apiTest struct {
	t   *testing.T
	cfg *config.Config
	app *fiber.App
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()
	cfg := &config.Config{
		App:      config.AppConfig{Name: "bookclub", Version: "test", Location: time.UTC},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Redis:    config.RedisConfig{Disabled: true},
		Scoring: config.ScoringConfig{
			PenaltyPerLateDay:  2,
			ReminderLeadDays:   1,
			DefaultReadingDays: 14,
		},
		Features: config.NewFeatureFlags(),
	}

	infra, err := bootstrap.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = infra.Close() })

	application, err := bootstrap.NewApplication(cfg, infra, func() time.Time { return testNow }, nil)
	require.NoError(t, err)

	server := httpapi.NewServer(bootstrap.HTTPConfig(cfg), application.HTTPDependencies(cfg, infra, nil))
	return &apiTest{t: t, cfg: cfg, app: server.App()}
}

func (a *apiTest) raw(method, path string, body []byte) (int, []byte, string) {
	a.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, out, resp.Header.Get(fiber.HeaderContentType)
}

func (a *apiTest) do(method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(a.t, err)
	}
	code, out, _ := a.raw(method, path, payload)

	var env envelope
	require.NoError(a.t, json.Unmarshal(out, &env), string(out))
	return code, env
}

// create posts body and decodes the returned data into dst.
func (a *apiTest) create(path string, body, dst interface{}) {
	a.t.Helper()
	code, env := a.do(fiber.MethodPost, path, body)
	require.Equal(a.t, fiber.StatusCreated, code, env.Message)
	require.NoError(a.t, json.Unmarshal(env.Data, dst))
}

type idOnly struct {
	ID string `json:"id"`
}

// catalog creates an active period with one stage and a book.
func (a *apiTest) catalog(stock int) (stageID, bookID string) {
	a.t.Helper()
	var p, st, b idOnly
	a.create("/api/v1/periods", map[string]interface{}{
		"name":       "Spring",
		"start_date": "2024-02-01",
		"end_date":   "2024-05-31",
		"activate":   true,
	}, &p)
	a.create("/api/v1/periods/"+p.ID+"/stages", map[string]interface{}{
		"stage_number": 1,
		"name":         "First steps",
	}, &st)
	a.create("/api/v1/books", map[string]interface{}{
		"stage_id":      st.ID,
		"title":         "The Little Prince",
		"reading_score": 20,
		"quiz_score":    10,
		"reading_days":  7,
		"page_count":    96,
		"stock_count":   stock,
	}, &b)
	return st.ID, b.ID
}

func (a *apiTest) member(first, group string) string {
	a.t.Helper()
	var m idOnly
	a.create("/api/v1/members", map[string]interface{}{
		"first_name": first,
		"last_name":  "Reader",
		"group_name": group,
	}, &m)
	return m.ID
}

// ══════════════════════════════════════════════════════════════════════════════
// Tests
// ══════════════════════════════════════════════════════════════════════════════

func TestAPI_LendCompleteAndRank(t *testing.T) {
	api := newAPITest(t)
	_, bookID := api.catalog(2)
	sara := api.member("Sara", "A")
	api.member("Ali", "B")

	var created struct {
		Assignment struct {
			ID      string    `json:"id"`
			Status  string    `json:"status"`
			DueDate time.Time `json:"due_date"`
		} `json:"assignment"`
	}
	api.create("/api/v1/assignments", map[string]interface{}{
		"member_id":     sara,
		"book_id":       bookID,
		"assigned_date": "2024-03-03T10:00:00Z",
	}, &created)
	assert.Equal(t, "pending", created.Assignment.Status)
	assert.True(t, created.Assignment.DueDate.Equal(time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)))

	code, env := api.do(fiber.MethodPost, "/api/v1/assignments/"+created.Assignment.ID+"/complete", map[string]interface{}{
		"returned_date": "2024-03-12T09:00:00Z",
	})
	require.Equal(t, fiber.StatusOK, code, env.Message)

	var completed struct {
		LateDays int `json:"late_days"`
		Earned   int `json:"earned"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &completed))
	assert.Equal(t, 1, completed.LateDays)
	assert.Equal(t, 28, completed.Earned)

	var ranking struct {
		Total   int `json:"total"`
		Entries []struct {
			Rank     int    `json:"rank"`
			MemberID string `json:"member_id"`
			Score    int    `json:"score"`
		} `json:"entries"`
		WeekStart string `json:"week_start"`
	}

	code, env = api.do(fiber.MethodGet, "/api/v1/rankings", nil)
	require.Equal(t, fiber.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &ranking))
	require.Equal(t, 2, ranking.Total)
	assert.Equal(t, sara, ranking.Entries[0].MemberID)
	assert.Equal(t, 28, ranking.Entries[0].Score)

	code, env = api.do(fiber.MethodGet, "/api/v1/rankings/weekly?date=2024-03-14", nil)
	require.Equal(t, fiber.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &ranking))
	assert.Equal(t, "2024-03-09", ranking.WeekStart)
	require.NotEmpty(t, ranking.Entries)
	assert.Equal(t, 28, ranking.Entries[0].Score)

	code, env = api.do(fiber.MethodGet, "/api/v1/rankings?group=B&limit=1", nil)
	require.Equal(t, fiber.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &ranking))
	require.Len(t, ranking.Entries, 1)
	assert.Equal(t, 0, ranking.Entries[0].Score)

	var profile struct {
		TotalScore int `json:"total_score"`
	}
	code, env = api.do(fiber.MethodGet, "/api/v1/members/"+sara, nil)
	require.Equal(t, fiber.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, 28, profile.TotalScore)

	// Deleting the completed loan takes the points back.
	code, env = api.do(fiber.MethodDelete, "/api/v1/assignments/"+created.Assignment.ID, nil)
	require.Equal(t, fiber.StatusOK, code, env.Message)
	code, env = api.do(fiber.MethodGet, "/api/v1/members/"+sara, nil)
	require.Equal(t, fiber.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, 0, profile.TotalScore)
}

func TestAPI_ErrorMapping(t *testing.T) {
	api := newAPITest(t)
	_, bookID := api.catalog(1)
	sara := api.member("Sara", "A")
	ali := api.member("Ali", "A")

	t.Run("request validation", func(t *testing.T) {
		code, env := api.do(fiber.MethodPost, "/api/v1/members", map[string]interface{}{"last_name": "Reader"})
		assert.Equal(t, fiber.StatusUnprocessableEntity, code)
		assert.Equal(t, "error", env.Status)
		assert.Equal(t, "required", env.Errors["first_name"])
	})

	t.Run("malformed body", func(t *testing.T) {
		code, _, _ := api.raw(fiber.MethodPost, "/api/v1/members", []byte("{"))
		assert.Equal(t, fiber.StatusBadRequest, code)
	})

	t.Run("bad date", func(t *testing.T) {
		code, _ := api.do(fiber.MethodGet, "/api/v1/rankings/weekly?date=13-03-2024", nil)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})

	t.Run("not found", func(t *testing.T) {
		code, env := api.do(fiber.MethodGet, "/api/v1/members/missing", nil)
		assert.Equal(t, fiber.StatusNotFound, code)
		assert.NotEmpty(t, env.Message)
	})

	t.Run("domain rule", func(t *testing.T) {
		var a struct {
			Assignment idOnly `json:"assignment"`
		}
		api.create("/api/v1/assignments", map[string]interface{}{"member_id": sara, "book_id": bookID}, &a)

		code, env := api.do(fiber.MethodPost, "/api/v1/assignments", map[string]interface{}{"member_id": ali, "book_id": bookID})
		assert.Equal(t, fiber.StatusUnprocessableEntity, code)
		assert.Contains(t, env.Message, "no copies")
	})

	t.Run("unknown route", func(t *testing.T) {
		code, _, _ := api.raw(fiber.MethodGet, "/api/v1/nowhere", nil)
		assert.Equal(t, fiber.StatusNotFound, code)
	})
}

func TestAPI_HealthAndReady(t *testing.T) {
	api := newAPITest(t)

	code, env := api.do(fiber.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "success", env.Status)

	code, env = api.do(fiber.MethodGet, "/ready", nil)
	require.Equal(t, fiber.StatusOK, code)

	var status httpapi.HealthStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.Healthy)
	assert.Contains(t, status.Checks, "database")
}

func TestAPI_ExportRankings(t *testing.T) {
	api := newAPITest(t)
	api.catalog(1)
	api.member("Sara", "A")

	code, body, contentType := api.raw(fiber.MethodGet, "/api/v1/rankings/export.xlsx", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, contentType, "spreadsheetml")

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Overall")

	require.NoError(t, api.cfg.Features.Set(config.FeatureXLSXExport, false))
	code, _, _ = api.raw(fiber.MethodGet, "/api/v1/rankings/export.xlsx", nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestAPI_NotificationsAndSessions(t *testing.T) {
	api := newAPITest(t)
	api.catalog(1)
	sara := api.member("Sara", "A")

	var account struct {
		UserID string `json:"user_id"`
	}
	api.create("/api/v1/members/"+sara+"/account", map[string]interface{}{
		"username": "sara",
		"password": "s3cret-pass",
	}, &account)
	require.NotEmpty(t, account.UserID)

	var n idOnly
	api.create("/api/v1/notifications", map[string]interface{}{
		"kind":         "private",
		"recipient_id": sara,
		"title":        "Welcome",
		"message":      "Your first book is waiting.",
	}, &n)

	code, env := api.do(fiber.MethodGet, "/api/v1/members/"+sara+"/notifications?unread=true", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, string(env.Data), n.ID)

	code, _ = api.do(fiber.MethodPost, "/api/v1/notifications/"+n.ID+"/read?member_id="+sara, nil)
	require.Equal(t, fiber.StatusOK, code)

	code, _ = api.do(fiber.MethodPost, "/api/v1/notifications/"+n.ID+"/read", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)

	var session struct {
		DurationSeconds int     `json:"duration_seconds"`
		LogoutAt        *string `json:"logout_at"`
	}
	api.create("/api/v1/sessions/login", map[string]interface{}{
		"user_id": account.UserID,
		"at":      "2024-03-13T08:00:00Z",
	}, &session)
	assert.Nil(t, session.LogoutAt)

	code, env = api.do(fiber.MethodPost, "/api/v1/sessions/logout", map[string]interface{}{"user_id": account.UserID})
	require.Equal(t, fiber.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, 2*60*60, session.DurationSeconds)
	require.NotNil(t, session.LogoutAt)

	code, _ = api.do(fiber.MethodGet, "/api/v1/users/"+account.UserID+"/usage", nil)
	assert.Equal(t, fiber.StatusOK, code)
}
