package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/uow"
	"github.com/mahdygh/bookclub/pkg/logger"
	"github.com/mahdygh/bookclub/pkg/retry"
)

// TxManager implements uow.UnitOfWork on a pgx pool. Every Do runs in one
// transaction whose repositories share the pgx.Tx; serialization failures
// and deadlocks rerun the whole callback.
type TxManager struct {
	conn    *Connection
	retrier *retry.Retrier
	logger  *zap.Logger
}

// NewTxManager creates a TxManager.
func NewTxManager(conn *Connection, log *zap.Logger) *TxManager {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(logger.Component("tx_manager"))

	return &TxManager{
		conn: conn,
		retrier: retry.TransactionRetrier(IsTransient,
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				log.Warn("retrying transaction",
					zap.Int("attempt", attempt),
					zap.Duration("delay", delay),
					zap.Error(err),
				)
			}),
		),
		logger: log,
	}
}

func repositories(q Querier) uow.Repositories {
	return uow.Repositories{
		Periods:       &PeriodRepository{q: q},
		Stages:        &StageRepository{q: q},
		Books:         &BookRepository{q: q},
		Members:       &MemberRepository{q: q},
		Assignments:   &AssignmentRepository{q: q},
		Weekly:        &WeeklyRepository{q: q},
		Notifications: &NotificationRepository{q: q},
		Sessions:      &SessionRepository{q: q},
		Accounts:      &AccountRepository{q: q},
		Leaderboard:   &LeaderboardRepository{q: q},
	}
}

// Repositories returns pool-backed repositories for reads outside a
// transaction.
func (m *TxManager) Repositories() uow.Repositories {
	return repositories(m.conn)
}

// Do runs fn in a read-committed transaction.
func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context, repos uow.Repositories) error) error {
	return m.retrier.Do(ctx, func(ctx context.Context) error {
		return m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			return fn(ctx, repositories(tx))
		})
	})
}

// Ping checks the database.
func (m *TxManager) Ping(ctx context.Context) error {
	return m.conn.Ping(ctx)
}

var _ uow.UnitOfWork = (*TxManager)(nil)
