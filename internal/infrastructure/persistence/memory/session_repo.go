package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/account"
	"github.com/mahdygh/bookclub/internal/domain/activity"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// SessionRepository implements activity.SessionRepository.
type SessionRepository struct {
	h *handle
}

func (r *SessionRepository) Create(_ context.Context, s *activity.Session) error {
	st, done := r.h.write()
	defer done()

	st.sessions[s.ID] = *s
	return nil
}

func (r *SessionRepository) LatestOpen(_ context.Context, userID string) (*activity.Session, error) {
	st, done := r.h.read()
	defer done()

	var latest *activity.Session
	for _, s := range st.sessions {
		if s.UserID != userID || !s.IsOpen() {
			continue
		}
		if latest == nil || s.LoginAt.After(latest.LoginAt) {
			latest = &s
		}
	}
	if latest == nil {
		return nil, shared.ErrNoOpenSession
	}
	return latest, nil
}

func (r *SessionRepository) Close(_ context.Context, s *activity.Session) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.sessions[s.ID]; !ok {
		return shared.ErrNoOpenSession
	}
	st.sessions[s.ID] = *s
	return nil
}

func (r *SessionRepository) ListByUser(_ context.Context, userID string) ([]*activity.Session, error) {
	st, done := r.h.read()
	defer done()

	var out []*activity.Session
	for _, s := range st.sessions {
		if s.UserID == userID {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoginAt.After(out[j].LoginAt) })
	return out, nil
}

func (r *SessionRepository) AddDailyUsage(_ context.Context, userID string, date time.Time, seconds int) error {
	st, done := r.h.write()
	defer done()

	key := usageKey{userID: userID, date: date}
	u := st.usage[key]
	u.UserID = userID
	u.Date = date
	u.Seconds += seconds
	st.usage[key] = u
	return nil
}

func (r *SessionRepository) ListDailyUsage(_ context.Context, userID string) ([]*activity.DailyUsage, error) {
	st, done := r.h.read()
	defer done()

	var out []*activity.DailyUsage
	for _, u := range st.usage {
		if u.UserID == userID {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// AccountRepository implements account.Repository.
type AccountRepository struct {
	h *handle
}

func (r *AccountRepository) Create(_ context.Context, u *account.User) error {
	st, done := r.h.write()
	defer done()

	for _, existing := range st.users {
		if existing.Username == u.Username {
			return shared.ErrUsernameTaken
		}
	}
	st.users[u.ID] = *u
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*account.User, error) {
	st, done := r.h.read()
	defer done()

	u, ok := st.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

func (r *AccountRepository) GetByUsername(_ context.Context, username string) (*account.User, error) {
	st, done := r.h.read()
	defer done()

	username = account.NormalizeUsername(username)
	for _, u := range st.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}
