package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"jobscout/internal/core/job"
	"jobscout/internal/core/notify"
	"jobscout/internal/core/pipeline"
	"jobscout/internal/core/submission"
	"jobscout/internal/logger"
	tasks "jobscout/internal/platform/tasks"
)

// Payload is the asynq body of a pipeline:run task.
type Payload struct {
	RunID        string `json:"run_id"`
	SubmissionID string `json:"submission_id"`
}

// Submissions is read-only: runs report their state through job.JobService
// and never write back to the submission row.
type Submissions interface {
	Get(ctx context.Context, id string) (submission.Submission, error)
}

type Templates interface {
	Load(ctx context.Context, path string) string
}

type Pipeline interface {
	RunWithProgress(ctx context.Context, req pipeline.Request, progress pipeline.ProgressFunc) (*pipeline.RunSummary, error)
}

type Notifier interface {
	Send(ctx context.Context, n notify.Notification) (notify.Receipt, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts tasks.EnqueueOptions) error
}

// Deps wires a Service. Jobs and Queue may be nil for synchronous runs.
type Deps struct {
	Jobs        *job.JobService
	Submissions Submissions
	Templates   Templates
	Pipeline    Pipeline
	Notifier    Notifier
	Queue       Enqueuer
	MaxRetries  int
	RunTimeout  time.Duration
}

type Service struct {
	Deps
	log *logger.Logger
}

func NewService(d Deps) *Service {
	return &Service{Deps: d, log: logger.New("RunService")}
}

// Enqueue records a pending run for submissionID and queues it.
func (s *Service) Enqueue(ctx context.Context, submissionID string) (string, error) {
	if _, err := s.Submissions.Get(ctx, submissionID); err != nil {
		return "", err
	}
	runID := uuid.NewString()
	if err := s.Jobs.InitPending(ctx, runID, job.TypePipelineRun, submissionID); err != nil {
		return "", fmt.Errorf("init run status: %w", err)
	}
	payload, _ := json.Marshal(Payload{RunID: runID, SubmissionID: submissionID})
	task := asynq.NewTask(tasks.TaskTypePipelineRun, payload)
	opts := tasks.EnqueueOptions{MaxRetries: s.MaxRetries, Timeout: s.taskTimeout(), TaskID: runID}
	if err := s.Queue.Enqueue(ctx, task, opts); err != nil {
		_ = s.Jobs.Fail(ctx, runID, err)
		return "", fmt.Errorf("enqueue run: %w", err)
	}
	s.log.LogInfof("queued run %s for submission %s", runID, submissionID)
	return runID, nil
}

// taskTimeout leaves a minute past the run deadline for the notification.
func (s *Service) taskTimeout() time.Duration {
	if s.RunTimeout <= 0 {
		return 0
	}
	return s.RunTimeout + time.Minute
}

// HandleRunTask is the asynq handler for pipeline:run.
func (s *Service) HandleRunTask(ctx context.Context, task *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	sub, err := s.Submissions.Get(ctx, p.SubmissionID)
	if err != nil {
		if errors.Is(err, submission.ErrNotFound) {
			s.fail(ctx, p.RunID, err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	_, err = s.Execute(ctx, p.RunID, sub)
	if pipeline.IsValidation(err) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

// Execute runs the pipeline for sub and reports the outcome: run status,
// then notification. sub is not modified. runID may be empty.
func (s *Service) Execute(ctx context.Context, runID string, sub submission.Submission) (*pipeline.RunSummary, error) {
	log := s.log.With(map[string]interface{}{"run": runID, "submission": sub.ID})
	if runID != "" && s.Jobs != nil {
		if err := s.Jobs.SetProcessing(ctx, runID); err != nil {
			return nil, err
		}
	}

	req := pipeline.Request{
		Email:        sub.Email,
		Companies:    sub.Companies,
		Roles:        sub.Roles,
		Seniority:    sub.Seniority,
		Cities:       sub.Cities,
		VisaRequired: sub.VisaRequired,
		Template:     s.Templates.Load(ctx, sub.TemplatePath),
	}

	summary, err := s.Pipeline.RunWithProgress(ctx, req, s.progress(ctx, runID))
	if err != nil {
		log.LogWarnf("run rejected: %v", err)
		s.fail(ctx, runID, err)
		return nil, err
	}
	log.LogInfof("run finished: %d companies, %d with matches, %d jobs", summary.TotalCompanies, summary.SuccessfulMatches, summary.TotalJobs())

	if runID != "" && s.Jobs != nil {
		if err := s.Jobs.Complete(ctx, runID, summary); err != nil {
			log.LogWarnf("store run summary: %v", err)
		}
	}

	if s.Notifier != nil {
		n := notify.Notification{Email: sub.Email, Criteria: summary.Criteria, Results: summary.Results}
		if _, err := s.Notifier.Send(ctx, n); err != nil {
			log.LogErrorf("notification failed: %v", err)
		}
	}
	return summary, nil
}

func (s *Service) progress(ctx context.Context, runID string) pipeline.ProgressFunc {
	if runID == "" || s.Jobs == nil {
		return nil
	}
	return func(done, total int, r pipeline.CompanyResult) {
		_ = s.Jobs.PublishProgress(ctx, runID, job.ProgressEvent{
			Done:    done,
			Total:   total,
			Company: r.Company,
			Status:  r.Status,
			Jobs:    len(r.Jobs),
		})
	}
}

func (s *Service) fail(ctx context.Context, runID string, cause error) {
	if runID == "" || s.Jobs == nil {
		return
	}
	if err := s.Jobs.Fail(ctx, runID, cause); err != nil {
		s.log.LogWarnf("mark run %s failed: %v", runID, err)
	}
}
