// Package scheduler runs the periodic maintenance jobs of the club:
// normalizing bulk-imported returns, sending due reminders and rebuilding
// the cached leaderboards. Timing is delegated to robfig/cron; this package
// adds per-run timeouts, logging, metrics and a run history.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/infrastructure/metrics"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Description returns a human-readable description of the job.
	Description() string

	// Run executes the job. The context carries the per-run timeout and is
	// cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string        `json:"job"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNilJob is returned when trying to register a nil job.
	ErrNilJob = errors.New("job cannot be nil")

	// ErrJobAlreadyExists is returned when a job with the same name already exists.
	ErrJobAlreadyExists = errors.New("job already exists")

	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")

	// ErrSchedulerAlreadyRunning is returned by a second Start.
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the Scheduler.
type Config struct {
	Logger *zap.Logger

	// Location evaluates cron specs in the club timezone (default: UTC).
	Location *time.Location

	// JobTimeout bounds every run (default: 5m).
	JobTimeout time.Duration

	// MaxHistorySize is the number of results kept (default: 100).
	MaxHistorySize int
}

// Scheduler manages and executes scheduled jobs.
type Scheduler struct {
	mu sync.RWMutex

	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration

	jobs       map[string]*scheduledJob
	running    bool
	ctx        context.Context
	cancel     context.CancelFunc
	history    []JobResult
	maxHistory int
}

type scheduledJob struct {
	job      Job
	spec     string
	entryID  cron.EntryID
	lastRun  *JobResult
	runCount int64
	runMu    sync.Mutex
}

// New creates a Scheduler. Overlapping runs of one job are skipped.
func New(config Config) *Scheduler {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 5 * time.Minute
	}
	if config.MaxHistorySize <= 0 {
		config.MaxHistorySize = 100
	}

	log := config.Logger.With(logger.Component("scheduler"))
	cronLogger := zapCronLogger{log.Sugar()}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(config.Location),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger:     log,
		timeout:    config.JobTimeout,
		jobs:       make(map[string]*scheduledJob),
		ctx:        ctx,
		cancel:     cancel,
		maxHistory: config.MaxHistorySize,
	}
}

// Register schedules job with a cron spec ("0 9 * * *", "@every 15m").
func (s *Scheduler) Register(job Job, spec string) error {
	if job == nil {
		return ErrNilJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{job: job, spec: spec}
	id, err := s.cron.AddFunc(spec, func() { s.execute(s.ctx, sj) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	sj.entryID = id
	s.jobs[name] = sj

	s.logger.Info("job registered",
		logger.Job(name),
		zap.String("spec", spec),
		zap.String("description", job.Description()),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins firing jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels running jobs and waits for them until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// RunNow executes a job immediately, outside its schedule. It waits for a
// scheduled run of the same job that is already in progress.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*JobResult, error) {
	s.mu.RLock()
	sj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, sj), nil
}

func (s *Scheduler) execute(parent context.Context, sj *scheduledJob) *JobResult {
	sj.runMu.Lock()
	defer sj.runMu.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	name := sj.job.Name()
	start := time.Now()
	err := sj.job.Run(ctx)
	duration := time.Since(start)
	metrics.JobRan(name, duration, err)

	result := JobResult{
		JobName:     name,
		StartedAt:   start,
		CompletedAt: start.Add(duration),
		Duration:    duration,
		Success:     err == nil,
	}
	if err != nil {
		result.Error = err.Error()
		s.logger.Error("job failed", logger.Job(name), zap.Duration("duration", duration), zap.Error(err))
	} else {
		s.logger.Info("job completed", logger.Job(name), zap.Duration("duration", duration))
	}

	s.mu.Lock()
	sj.runCount++
	sj.lastRun = &result
	s.history = append(s.history, result)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	s.mu.Unlock()

	return &result
}

// ══════════════════════════════════════════════════════════════════════════════
// INTROSPECTION
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo describes a registered job.
type JobInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Spec        string     `json:"spec"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	RunCount    int64      `json:"run_count"`
	LastRun     *JobResult `json:"last_run,omitempty"`
}

// ListJobs returns every registered job ordered by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		info := JobInfo{
			Name:        name,
			Description: sj.job.Description(),
			Spec:        sj.spec,
			RunCount:    sj.runCount,
			LastRun:     sj.lastRun,
		}
		if next := s.cron.Entry(sj.entryID).Next; !next.IsZero() {
			info.NextRun = &next
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetHistory returns up to limit recent results, newest first.
func (s *Scheduler) GetHistory(limit int) []JobResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]JobResult, 0, limit)
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// zapCronLogger adapts zap to cron.Logger.
type zapCronLogger struct {
	s *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
