package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Loxed/youtube-video-tracker/internal/logger"
)

// cleanupTimeout bounds one stale-course sweep.
const cleanupTimeout = time.Minute

// CleanupJob periodically removes courses nobody has watched for a while.
type CleanupJob struct {
	cron    *cron.Cron
	courses *CourseService
	maxAge  time.Duration
	logger  *slog.Logger
}

// NewCleanupJob schedules CleanupStale on a cron spec such as "@weekly".
func NewCleanupJob(courses *CourseService, schedule string, maxAge time.Duration, logger *slog.Logger) (*CleanupJob, error) {
	logger = logger.With("component", "cleanup")
	job := &CleanupJob{
		cron:    cron.New(cron.WithLogger(cronLogger{logger})),
		courses: courses,
		maxAge:  maxAge,
		logger:  logger,
	}

	if _, err := job.cron.AddFunc(schedule, job.run); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return job, nil
}

// Start begins running the schedule in the background.
func (j *CleanupJob) Start() {
	j.cron.Start()
	j.logger.Info("stale course cleanup scheduled", "max_age", j.maxAge)
}

// Stop halts the schedule and waits for a running sweep or ctx, whichever
// ends first.
func (j *CleanupJob) Stop(ctx context.Context) error {
	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a sweep immediately.
func (j *CleanupJob) RunOnce(ctx context.Context) ([]string, error) {
	return j.courses.CleanupStale(ctx, j.maxAge)
}

func (j *CleanupJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error("stale course cleanup failed", logger.Err(err))
	}
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, logger.Err(err))...)
}
