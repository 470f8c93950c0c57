// Package memory is an in-process implementation of every repository and of
// the unit of work. A transaction works on a cloned copy of the whole state
// under the store-wide write lock and swaps it in on success, so a failed
// unit of work leaves no partial writes.
//
// It backs development runs (STORAGE_DRIVER=memory) and the command and
// query tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/account"
	"github.com/mahdygh/bookclub/internal/domain/activity"
	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/notification"
	"github.com/mahdygh/bookclub/internal/domain/period"
	"github.com/mahdygh/bookclub/internal/domain/uow"
	"github.com/mahdygh/bookclub/internal/domain/weekly"
)

// AssignmentRow mirrors the stored columns of an assignment, including the
// derived returned_date and is_completed pair.
type AssignmentRow struct {
	ID           string
	MemberID     string
	BookID       string
	AssignedDate time.Time
	DueDate      time.Time
	ReturnedDate *time.Time
	IsCompleted  bool
	LateDays     int
	Scores       assignment.Scores
	PagesRead    int
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type weekKey struct {
	memberID  string
	weekStart time.Time
}

type usageKey struct {
	userID string
	date   time.Time
}

type state struct {
	periods       map[string]period.ReadingPeriod
	stages        map[string]period.Stage
	books         map[string]book.Book
	members       map[string]member.Member
	assignments   map[string]AssignmentRow
	weekly        map[weekKey]weekly.Bucket
	notifications map[string]notification.Notification
	sessions      map[string]activity.Session
	usage         map[usageKey]activity.DailyUsage
	users         map[string]account.User
}

func newState() *state {
	return &state{
		periods:       map[string]period.ReadingPeriod{},
		stages:        map[string]period.Stage{},
		books:         map[string]book.Book{},
		members:       map[string]member.Member{},
		assignments:   map[string]AssignmentRow{},
		weekly:        map[weekKey]weekly.Bucket{},
		notifications: map[string]notification.Notification{},
		sessions:      map[string]activity.Session{},
		usage:         map[usageKey]activity.DailyUsage{},
		users:         map[string]account.User{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies every table. Values are stored by value, so a shallow map
// copy is enough.
func (s *state) clone() *state {
	return &state{
		periods:       cloneMap(s.periods),
		stages:        cloneMap(s.stages),
		books:         cloneMap(s.books),
		members:       cloneMap(s.members),
		assignments:   cloneMap(s.assignments),
		weekly:        cloneMap(s.weekly),
		notifications: cloneMap(s.notifications),
		sessions:      cloneMap(s.sessions),
		usage:         cloneMap(s.usage),
		users:         cloneMap(s.users),
	}
}

// Store is the in-memory database.
type Store struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{state: newState(), now: time.Now}
}

// handle binds repositories either to the live state (each call takes the
// lock) or to a transaction's private copy (the caller already holds it).
type handle struct {
	store *Store
	tx    *state
}

func (h *handle) read() (*state, func()) {
	if h.tx != nil {
		return h.tx, func() {}
	}
	h.store.mu.RLock()
	return h.store.state, h.store.mu.RUnlock
}

func (h *handle) write() (*state, func()) {
	if h.tx != nil {
		return h.tx, func() {}
	}
	h.store.mu.Lock()
	return h.store.state, h.store.mu.Unlock
}

func (h *handle) now() time.Time {
	return h.store.now()
}

func (s *Store) repositories(h *handle) uow.Repositories {
	return uow.Repositories{
		Periods:       &PeriodRepository{h: h},
		Stages:        &StageRepository{h: h},
		Books:         &BookRepository{h: h},
		Members:       &MemberRepository{h: h},
		Assignments:   &AssignmentRepository{h: h},
		Weekly:        &WeeklyRepository{h: h},
		Notifications: &NotificationRepository{h: h},
		Sessions:      &SessionRepository{h: h},
		Accounts:      &AccountRepository{h: h},
		Leaderboard:   &LeaderboardRepository{h: h},
	}
}

// Repositories returns repositories that lock per call.
func (s *Store) Repositories() uow.Repositories {
	return s.repositories(&handle{store: s})
}

// Do runs fn against a private copy of the state and commits it when fn
// succeeds. Repositories from Repositories() must not be used inside fn.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos uow.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(ctx, s.repositories(&handle{store: s, tx: tx})); err != nil {
		return err
	}
	s.state = tx
	return nil
}

// SeedAssignmentRow stores a raw row as an external import would, without
// deriving the completion columns. Used to reproduce inconsistent data.
func (s *Store) SeedAssignmentRow(row AssignmentRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.assignments[row.ID] = row
}

// AssignmentRow returns the stored columns of one assignment.
func (s *Store) AssignmentRow(id string) (AssignmentRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.state.assignments[id]
	return row, ok
}

// Ping implements the readiness check.
func (s *Store) Ping(context.Context) error {
	return nil
}

var _ uow.UnitOfWork = (*Store)(nil)
