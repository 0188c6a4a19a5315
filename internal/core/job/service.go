package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobscout/internal/core/pipeline"
	"jobscout/internal/logger"
)

var ErrNotFound = errors.New("job not found")

// Store is the cache surface the job service needs. The redis platform
// service satisfies it.
type Store interface {
	CacheGet(ctx context.Context, key string, dest interface{}) error
	CacheSet(ctx context.Context, key string, val interface{}, ttlSeconds int) error
	Publish(ctx context.Context, channel, message string) error
}

type JobService struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

func NewJobService(store Store) *JobService {
	return &JobService{store: store, log: logger.New("JobService"), now: time.Now}
}

func (s *JobService) GetJobStatus(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := s.store.CacheGet(ctx, key(jobID), &job); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return &job, nil
}

func (s *JobService) InitPending(ctx context.Context, jobID string, jobType Type, submissionID string) error {
	return s.update(ctx, jobID, func(j *Job) {
		j.Type = jobType
		j.Status = StatusPending
		j.SubmissionID = submissionID
	})
}

func (s *JobService) SetProcessing(ctx context.Context, jobID string) error {
	return s.update(ctx, jobID, func(j *Job) { j.Status = StatusProcessing })
}

func (s *JobService) Complete(ctx context.Context, jobID string, summary *pipeline.RunSummary) error {
	return s.update(ctx, jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.Error = ""
		j.Results = JobResult{Summary: summary}
	})
}

func (s *JobService) Fail(ctx context.Context, jobID string, cause error) error {
	return s.update(ctx, jobID, func(j *Job) {
		j.Status = StatusFailed
		if cause != nil {
			j.Error = cause.Error()
		}
	})
}

// PublishProgress pushes a per-company event to listeners of the job channel.
func (s *JobService) PublishProgress(ctx context.Context, jobID string, ev ProgressEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	if err := s.store.Publish(ctx, key(jobID), "progress:"+string(b)); err != nil {
		s.log.LogWarnf("publish progress for %s: %v", jobID, err)
		return err
	}
	return nil
}

func (s *JobService) update(ctx context.Context, jobID string, mutate func(*Job)) error {
	var job Job
	_ = s.store.CacheGet(ctx, key(jobID), &job)
	now := s.now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.JobID = jobID
	mutate(&job)
	job.UpdatedAt = now

	if err := s.store.CacheSet(ctx, key(jobID), job, ttl(job.Status)); err != nil {
		return err
	}
	_ = s.store.Publish(ctx, key(jobID), "updated")
	return nil
}

func key(id string) string { return "job:" + id }

// ttl keeps finished runs for a day so results can still be fetched.
func ttl(s Status) int {
	if s.Terminal() {
		return 86400
	}
	return 3600
}
