// Package uow declares the transactional boundary every score-changing
// operation runs in. Repositories handed to the callback share one
// transaction; the work either commits as a whole or leaves no trace.
package uow

import (
	"context"

	"github.com/mahdygh/bookclub/internal/domain/account"
	"github.com/mahdygh/bookclub/internal/domain/activity"
	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/notification"
	"github.com/mahdygh/bookclub/internal/domain/period"
	"github.com/mahdygh/bookclub/internal/domain/weekly"
)

// Repositories is the set of repositories bound to one scope.
type Repositories struct {
	Periods       period.Repository
	Stages        period.StageRepository
	Books         book.Repository
	Members       member.Repository
	Assignments   assignment.Repository
	Weekly        weekly.Repository
	Notifications notification.Repository
	Sessions      activity.SessionRepository
	Accounts      account.Repository
	Leaderboard   leaderboard.Repository
}

// UnitOfWork runs work atomically.
type UnitOfWork interface {
	// Do runs fn in a transaction. A returned error rolls everything back.
	// Implementations may run fn more than once on transient conflicts, so
	// fn must not have side effects outside the repositories.
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	// Repositories returns non-transactional repositories for reads.
	Repositories() Repositories
}
