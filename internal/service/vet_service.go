package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/titlevet/titlevet-go/internal/apperrors"
	"github.com/titlevet/titlevet-go/internal/domain"
	"github.com/titlevet/titlevet-go/internal/queue"
	"github.com/titlevet/titlevet-go/internal/repository"
	"github.com/titlevet/titlevet-go/internal/vetting"
	"github.com/titlevet/titlevet-go/internal/whois"
	"github.com/titlevet/titlevet-go/internal/worker"
)

// maxJobRetries bounds how often a transiently failed async job is
// republished before it is marked failed for good.
const maxJobRetries = 2

// jobPublisher is the slice of queue.Producer the service needs.
type jobPublisher interface {
	PublishJob(ctx context.Context, msg *queue.JobMessage) error
}

// VetService fronts the vetting pipeline: synchronous runs go through the
// worker pool so total concurrency stays bounded, asynchronous runs are
// persisted as jobs and travel through the message queue.
type VetService struct {
	orchestrator *vetting.Orchestrator
	pool         *worker.Pool
	jobs         repository.JobRepository
	reports      repository.ReportRepository
	producer     jobPublisher
	logger       *logrus.Logger
}

func NewVetService(
	orchestrator *vetting.Orchestrator,
	pool *worker.Pool,
	jobs repository.JobRepository,
	reports repository.ReportRepository,
	producer *queue.Producer,
	logger *logrus.Logger,
) *VetService {
	s := &VetService{
		orchestrator: orchestrator,
		pool:         pool,
		jobs:         jobs,
		reports:      reports,
		logger:       logger,
	}
	// Assign only a live producer; a typed nil pointer in the interface
	// would defeat the nil checks below.
	if producer != nil {
		s.producer = producer
	}
	return s
}

// SetPool attaches the worker pool after construction. The pool's executor
// is this service's Execute, so the two reference each other.
func (s *VetService) SetPool(pool *worker.Pool) {
	s.pool = pool
}

// Execute is the pool executor: it runs one pipeline and parks the report
// on the job for the submitter.
func (s *VetService) Execute(ctx context.Context, job *worker.Job) error {
	runCtx := ctx
	if job.Ctx != nil {
		runCtx = job.Ctx
	}

	report, err := s.orchestrator.Vet(runCtx, vetting.Input{
		URL:      job.URL,
		OrgName:  job.OrgName,
		ClientIP: job.ClientIP,
	})
	if err != nil {
		return err
	}
	job.Result = report
	return nil
}

// Vet runs the pipeline synchronously, bounded by the worker pool.
func (s *VetService) Vet(ctx context.Context, input vetting.Input) (*vetting.Report, error) {
	job := &worker.Job{
		ID:       uuid.New().String(),
		URL:      input.URL,
		OrgName:  input.OrgName,
		ClientIP: input.ClientIP,
		Ctx:      ctx,
	}
	if err := s.pool.SubmitAndWait(ctx, job); err != nil {
		return nil, err
	}

	report, ok := job.Result.(*vetting.Report)
	if !ok {
		return nil, apperrors.NewInternal(fmt.Errorf("pipeline produced no report"))
	}

	if s.reports != nil && !report.Cached {
		if _, err := s.persistReport(ctx, report); err != nil {
			s.logger.WithError(err).WithField("request_id", report.RequestID).
				Warn("Failed to persist vetting report")
		}
	}
	return report, nil
}

// WhoisOnly runs the registration resolver alone. It bypasses the pool; a
// single lookup is cheap next to a full pipeline.
func (s *VetService) WhoisOnly(ctx context.Context, input vetting.Input) (*whois.LookupResult, error) {
	return s.orchestrator.WhoisOnly(ctx, input)
}

// Enqueue accepts an async vetting request: validates the input, persists
// the job row and publishes it to the queue.
func (s *VetService) Enqueue(ctx context.Context, rawURL, orgName string) (*domain.VetJob, error) {
	dom, err := vetting.NormalizeDomain(rawURL)
	if err != nil {
		return nil, err
	}
	if s.producer == nil {
		return nil, apperrors.NewInternal(fmt.Errorf("async vetting requires the message queue, which is disabled"))
	}

	job := &domain.VetJob{
		ID:       uuid.New().String(),
		Domain:   dom,
		InputURL: rawURL,
		OrgName:  orgName,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("persist job: %w", err))
	}

	msg := &queue.JobMessage{
		JobID:    job.ID,
		Domain:   dom,
		InputURL: rawURL,
		OrgName:  orgName,
	}
	if err := s.producer.PublishJob(ctx, msg); err != nil {
		if markErr := s.jobs.MarkFailed(ctx, job.ID, string(apperrors.KindInternal), "publish failed"); markErr != nil {
			s.logger.WithError(markErr).WithField("job_id", job.ID).Error("Failed to mark job failed")
		}
		return nil, apperrors.NewInternal(fmt.Errorf("publish job: %w", err))
	}
	return job, nil
}

// HandleJobMessage is the queue consumer handler: it runs the pipeline for
// one dequeued job and records the outcome on the job row.
func (s *VetService) HandleJobMessage(ctx context.Context, msg *queue.JobMessage) error {
	if err := s.jobs.MarkRunning(ctx, msg.JobID); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	job := &worker.Job{
		ID:      msg.JobID,
		URL:     msg.InputURL,
		OrgName: msg.OrgName,
		// No client IP: queued jobs were rate limited at accept time.
	}
	if err := s.pool.SubmitAndWait(ctx, job); err != nil {
		kind := apperrors.KindOf(err)
		if isTransientKind(kind) && s.producer != nil {
			requeueErr := s.requeue(ctx, msg, err)
			if requeueErr == nil {
				return nil
			}
			s.logger.WithError(requeueErr).WithField("job_id", msg.JobID).Warn("Could not requeue job")
		}
		if markErr := s.jobs.MarkFailed(ctx, msg.JobID, string(kind), err.Error()); markErr != nil {
			s.logger.WithError(markErr).WithField("job_id", msg.JobID).Error("Failed to mark job failed")
		}
		return err
	}

	report, ok := job.Result.(*vetting.Report)
	if !ok {
		err := fmt.Errorf("pipeline produced no report")
		_ = s.jobs.MarkFailed(ctx, msg.JobID, string(apperrors.KindInternal), err.Error())
		return err
	}

	stored, err := s.persistReport(ctx, report)
	if err != nil {
		if markErr := s.jobs.MarkFailed(ctx, msg.JobID, string(apperrors.KindInternal), err.Error()); markErr != nil {
			s.logger.WithError(markErr).WithField("job_id", msg.JobID).Error("Failed to mark job failed")
		}
		return err
	}
	return s.jobs.MarkCompleted(ctx, msg.JobID, stored.ID)
}

// isTransientKind reports whether a failure is worth re-running. Anything
// else fails the same way on every attempt.
func isTransientKind(kind apperrors.Kind) bool {
	return kind == apperrors.KindTimeout || kind == apperrors.KindNetwork
}

// requeue republishes a transiently failed job unless its retry budget is
// spent. Returns nil when the job is back on the queue.
func (s *VetService) requeue(ctx context.Context, msg *queue.JobMessage, cause error) error {
	count, err := s.jobs.IncrementRetryCount(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("increment retry count: %w", err)
	}
	if count > maxJobRetries {
		return fmt.Errorf("retry budget spent after %d attempts", count)
	}
	if err := s.jobs.MarkQueued(ctx, msg.JobID); err != nil {
		return fmt.Errorf("mark job queued: %w", err)
	}
	if err := s.producer.PublishJob(ctx, msg); err != nil {
		return fmt.Errorf("republish job: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"job_id": msg.JobID,
		"retry":  count,
	}).WithError(cause).Warn("Transient failure, job requeued")
	return nil
}

// GetJob returns a job with its stored report, if any.
func (s *VetService) GetJob(ctx context.Context, id string) (*domain.VetJob, error) {
	return s.jobs.FindByID(ctx, id)
}

// persistReport flattens a report into its storage row. Cached pipeline
// results are stored once, when first produced.
func (s *VetService) persistReport(ctx context.Context, report *vetting.Report) (*domain.VetReport, error) {
	row := &domain.VetReport{
		RequestID: report.RequestID,
		Domain:    report.Domain,
	}
	if report.RiskAssessment != nil {
		row.OverallScore = report.RiskAssessment.OverallScore
		row.RiskLevel = string(report.RiskAssessment.Level)
	}

	var err error
	if row.AssessmentJSON, err = marshalField(report.RiskAssessment); err != nil {
		return nil, err
	}
	if row.WhoisJSON, err = marshalField(report.Data.Whois); err != nil {
		return nil, err
	}
	if row.WebsiteJSON, err = marshalField(report.Data.Website); err != nil {
		return nil, err
	}
	if row.SocialJSON, err = marshalField(report.Data.SocialMedia); err != nil {
		return nil, err
	}
	if len(report.Warnings) > 0 {
		if row.WarningsJSON, err = marshalField(report.Warnings); err != nil {
			return nil, err
		}
	}

	if err := s.reports.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	return row, nil
}

func marshalField(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal report field: %w", err)
	}
	return string(data), nil
}
