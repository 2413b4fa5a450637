package repository

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/titlevet/titlevet-go/internal/domain"
)

type JobRepository interface {
	Create(ctx context.Context, job *domain.VetJob) error
	FindByID(ctx context.Context, id string) (*domain.VetJob, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, reportID uint) error
	MarkFailed(ctx context.Context, id string, errorKind, message string) error
	MarkQueued(ctx context.Context, id string) error
	IncrementRetryCount(ctx context.Context, id string) (int, error)
	FailRunning(ctx context.Context, message string) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	ListQueued(ctx context.Context) ([]*domain.VetJob, error)
}

type jobRepo struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewJobRepository(db *gorm.DB, logger *logrus.Logger) JobRepository {
	return &jobRepo{db: db, logger: logger}
}

func (r *jobRepo) Create(ctx context.Context, job *domain.VetJob) error {
	if job.Status == "" {
		job.Status = domain.JobStatusQueued
	}
	job.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepo) FindByID(ctx context.Context, id string) (*domain.VetJob, error) {
	var job domain.VetJob
	err := r.db.WithContext(ctx).
		Preload("Report").
		First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) MarkRunning(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&domain.VetJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusRunning,
			"started_at": &now,
		}).Error
}

func (r *jobRepo) MarkCompleted(ctx context.Context, id string, reportID uint) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&domain.VetJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domain.JobStatusCompleted,
			"report_id":    reportID,
			"completed_at": &now,
		}).Error
}

func (r *jobRepo) MarkFailed(ctx context.Context, id string, errorKind, message string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&domain.VetJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        domain.JobStatusFailed,
			"error_kind":    errorKind,
			"error_message": message,
			"completed_at":  &now,
		}).Error
}

// MarkQueued puts a job back in the queued state ahead of a republish.
func (r *jobRepo) MarkQueued(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&domain.VetJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusQueued,
			"started_at": nil,
		}).Error
}

// IncrementRetryCount bumps the counter atomically and returns the new
// value.
func (r *jobRepo) IncrementRetryCount(ctx context.Context, id string) (int, error) {
	err := r.db.WithContext(ctx).
		Model(&domain.VetJob{}).
		Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
	if err != nil {
		return 0, err
	}

	var job domain.VetJob
	if err := r.db.WithContext(ctx).Select("retry_count").First(&job, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return job.RetryCount, nil
}

// FailRunning marks every running job as failed. Called on startup to
// clear jobs interrupted by a restart; queued jobs stay queued and are
// republished to the broker separately.
func (r *jobRepo) FailRunning(ctx context.Context, message string) (int64, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&domain.VetJob{}).
		Where("status = ?", domain.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":        domain.JobStatusFailed,
			"error_kind":    "interrupted",
			"error_message": message,
			"completed_at":  &now,
		})
	return result.RowsAffected, result.Error
}

func (r *jobRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&domain.VetJob{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}

func (r *jobRepo) ListQueued(ctx context.Context) ([]*domain.VetJob, error) {
	var jobs []*domain.VetJob
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.JobStatusQueued).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}
