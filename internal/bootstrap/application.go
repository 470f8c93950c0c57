package bootstrap

import (
	"time"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/config"
	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/application/eventhandler"
	"github.com/mahdygh/bookclub/internal/application/query"
	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/infrastructure/export"
	"github.com/mahdygh/bookclub/internal/infrastructure/metrics"
)

// Application bundles every command and query handler.
type Application struct {
	Env command.Env

	// Commands
	Catalog            *command.CatalogHandler
	Members            *command.MemberHandler
	CreateAssignment   *command.CreateAssignmentHandler
	UpdateAssignment   *command.UpdateAssignmentHandler
	DeleteAssignment   *command.DeleteAssignmentHandler
	CompleteAssignment *command.CompleteAssignmentHandler
	NormalizeReturned  *command.NormalizeReturnedHandler
	ChangeBookScore    *command.ChangeBookScoreHandler
	AdvanceStage       *command.AdvanceStageHandler
	Notifications      *command.NotificationHandler
	Sessions           *command.SessionHandler

	// Queries
	Reads          *query.Catalog
	Rankings       *query.GetRankingsHandler
	MemberRank     *query.GetMemberRankHandler
	MemberProgress *query.GetMemberProgressHandler
	AvailableBooks *query.GetAvailableBooksHandler
	Usage          *query.GetUsageHandler
	Inbox          *query.ListNotificationsHandler

	Export *export.RankingsWorkbook
}

// NewApplication builds the handlers on top of infra and subscribes the
// event handlers to its bus. now may be nil.
func NewApplication(cfg *config.Config, infra *Infrastructure, now func() time.Time, logger *zap.Logger) (*Application, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	loc := cfg.App.Location
	if loc == nil {
		loc = time.UTC
	}

	env := command.Env{
		UoW:    infra.UoW,
		Logger: logger,
		Rules: assignment.Rules{
			PenaltyPerLateDay: cfg.Scoring.PenaltyPerLateDay,
			Location:          loc,
		},
		AutoAdvance: func() bool {
			return cfg.Features.IsEnabled(config.FeatureAutoAdvance)
		},
		DefaultReadingDays: cfg.Scoring.DefaultReadingDays,
		Now:                now,
	}
	if infra.Bus != nil {
		env.Publisher = infra.Bus
	}

	repos := infra.UoW.Repositories()
	app := &Application{
		Env:                env,
		Catalog:            command.NewCatalogHandler(env),
		Members:            command.NewMemberHandler(env),
		CreateAssignment:   command.NewCreateAssignmentHandler(env),
		UpdateAssignment:   command.NewUpdateAssignmentHandler(env),
		DeleteAssignment:   command.NewDeleteAssignmentHandler(env),
		CompleteAssignment: command.NewCompleteAssignmentHandler(env),
		NormalizeReturned:  command.NewNormalizeReturnedHandler(env),
		ChangeBookScore:    command.NewChangeBookScoreHandler(env),
		AdvanceStage:       command.NewAdvanceStageHandler(env),
		Notifications:      command.NewNotificationHandler(env, cfg.Scoring.ReminderLeadDays),
		Sessions:           command.NewSessionHandler(env),

		Reads:          query.NewCatalog(repos, env.Rules, now),
		Rankings:       query.NewGetRankingsHandler(repos, loc, now),
		MemberRank:     query.NewGetMemberRankHandler(repos, infra.Leaderboard, loc, now, logger),
		MemberProgress: query.NewGetMemberProgressHandler(repos),
		AvailableBooks: query.NewGetAvailableBooksHandler(repos),
		Usage:          query.NewGetUsageHandler(repos, now),
		Inbox:          query.NewListNotificationsHandler(repos),
	}
	app.Export = export.NewRankingsWorkbook(app.Rankings, loc, now, logger)

	if infra.Bus != nil {
		if err := app.subscribe(infra, logger); err != nil {
			return nil, err
		}
	}
	return app, nil
}

func (a *Application) subscribe(infra *Infrastructure, logger *zap.Logger) error {
	bus := infra.Bus

	if infra.Leaderboard != nil {
		onScore := eventhandler.NewOnScoreChangedHandler(
			infra.Leaderboard,
			infra.UoW.Repositories().Members,
			logger,
			eventhandler.DefaultScoreChangedConfig(),
		)
		for _, t := range onScore.EventTypes() {
			if err := bus.Subscribe(t, onScore.Handle); err != nil {
				return err
			}
		}
	}

	onStage := eventhandler.NewOnStageAdvancedHandler(a.Notifications, logger)
	if err := bus.Subscribe(onStage.EventType(), onStage.Handle); err != nil {
		return err
	}

	return bus.Subscribe(shared.EventScoreChanged, func(event shared.Event) error {
		if e, ok := event.(shared.ScoreChangedEvent); ok {
			metrics.ScoreMoved(e.Delta)
		}
		return nil
	})
}
