package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// Normalizer heals assignments whose completion flag and returned date
// disagree.
type Normalizer interface {
	Handle(ctx context.Context, cmd command.NormalizeReturnedCommand) (*command.NormalizeReturnedResult, error)
}

// NormalizeReturnedJob runs a normalization pass. Rows written by bulk
// imports are settled and scored the same way a return through the API is.
type NormalizeReturnedJob struct {
	normalizer Normalizer
	logger     *zap.Logger
}

// NewNormalizeReturnedJob creates the job.
func NewNormalizeReturnedJob(normalizer Normalizer, log *zap.Logger) *NormalizeReturnedJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &NormalizeReturnedJob{
		normalizer: normalizer,
		logger:     log.With(logger.Job("normalize_returned")),
	}
}

func (j *NormalizeReturnedJob) Name() string { return "normalize_returned" }

func (j *NormalizeReturnedJob) Description() string {
	return "Settles or reopens assignments left inconsistent by bulk imports"
}

// Run heals every unsettled row. Failures of single rows are logged and
// reported as one error after the pass.
func (j *NormalizeReturnedJob) Run(ctx context.Context) error {
	result, err := j.normalizer.Handle(ctx, command.NormalizeReturnedCommand{})
	if err != nil {
		return fmt.Errorf("normalize returned: %w", err)
	}

	if result.Scanned > 0 {
		j.logger.Info("normalized returns",
			zap.Int("scanned", result.Scanned),
			zap.Int("settled", result.Settled),
			zap.Int("demoted", result.Demoted),
			zap.Int("skipped", result.Skipped),
		)
	}
	for _, f := range result.Failures {
		j.logger.Error("row not normalized", logger.AssignmentID(f.AssignmentID), zap.Error(f.Err))
	}
	if n := len(result.Failures); n > 0 {
		return fmt.Errorf("normalize returned: %d of %d rows failed", n, result.Scanned)
	}
	return nil
}
