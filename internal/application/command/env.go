// Package command contains write operations (CQRS - Commands).
//
// Every command that moves a score runs inside one unit of work: the
// assignment write, the ledger and the weekly buckets commit together or not
// at all. Domain events collected during the work are published only after
// the commit succeeded.
package command

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/domain/uow"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENVIRONMENT
// Collaborators shared by all handlers.
// ══════════════════════════════════════════════════════════════════════════════

// Env bundles the dependencies every handler needs.
type Env struct {
	// UoW runs the transactional work.
	UoW uow.UnitOfWork

	// Publisher receives events after commit. May be nil.
	Publisher shared.EventPublisher

	// Logger is the structured logger. Defaults to a no-op logger.
	Logger *zap.Logger

	// Rules carries the penalty and the club timezone.
	Rules assignment.Rules

	// AutoAdvance reports whether members move to the next stage as soon as
	// their current stage is complete. Nil means disabled.
	AutoAdvance func() bool

	// DefaultReadingDays is used for books created without reading days.
	DefaultReadingDays int

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// NewID generates entity ids. Defaults to uuid.NewString.
	NewID func() string
}

func (e Env) withDefaults() Env {
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.NewID == nil {
		e.NewID = uuid.NewString
	}
	if e.Rules.Location == nil {
		e.Rules.Location = time.UTC
	}
	if e.Rules.PenaltyPerLateDay == 0 {
		e.Rules.PenaltyPerLateDay = assignment.DefaultPenaltyPerLateDay
	}
	return e
}

// log returns the request-scoped logger carried by ctx, or the handler
// logger for background work.
func (e Env) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, e.Logger)
}

func (e Env) autoAdvance() bool {
	return e.AutoAdvance != nil && e.AutoAdvance()
}

// run executes fn in a unit of work and publishes the collected events once
// the work committed. fn may be called again on a transient conflict, so the
// transaction state is rebuilt on every attempt.
func (e Env) run(ctx context.Context, reason string, fn func(ctx context.Context, tx *txn) error) ([]shared.Event, error) {
	var committed *txn
	err := e.UoW.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
		tx := &txn{env: e, repos: repos, reason: reason}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		committed = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, committed.events)
	return committed.events, nil
}

// publish sends events and logs failures. A failed publication never undoes
// the committed work.
func (e Env) publish(ctx context.Context, events []shared.Event) {
	if e.Publisher == nil || len(events) == 0 {
		return
	}
	if err := shared.PublishAll(e.Publisher, events); err != nil {
		e.log(ctx).Warn("failed to publish events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

func invalid(op, message string) error {
	return shared.NewDomainError("command", op, shared.ErrValidation, message)
}
