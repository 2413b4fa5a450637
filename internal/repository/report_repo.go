package repository

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/titlevet/titlevet-go/internal/domain"
)

type ReportRepository interface {
	Create(ctx context.Context, report *domain.VetReport) error
	FindByRequestID(ctx context.Context, requestID string) (*domain.VetReport, error)
	FindLatestByDomain(ctx context.Context, dom string) (*domain.VetReport, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.VetReport, error)
	CountByRiskLevel(ctx context.Context) (map[string]int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type reportRepo struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewReportRepository(db *gorm.DB, logger *logrus.Logger) ReportRepository {
	return &reportRepo{db: db, logger: logger}
}

func (r *reportRepo) Create(ctx context.Context, report *domain.VetReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepo) FindByRequestID(ctx context.Context, requestID string) (*domain.VetReport, error) {
	var report domain.VetReport
	err := r.db.WithContext(ctx).First(&report, "request_id = ?", requestID).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) FindLatestByDomain(ctx context.Context, dom string) (*domain.VetReport, error) {
	var report domain.VetReport
	err := r.db.WithContext(ctx).
		Where("domain = ?", dom).
		Order("created_at DESC").
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) ListRecent(ctx context.Context, limit int) ([]*domain.VetReport, error) {
	if limit <= 0 {
		limit = 50
	}
	var reports []*domain.VetReport
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

func (r *reportRepo) CountByRiskLevel(ctx context.Context) (map[string]int64, error) {
	type row struct {
		RiskLevel string
		Count     int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&domain.VetReport{}).
		Select("risk_level, COUNT(*) as count").
		Group("risk_level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.RiskLevel] = rw.Count
	}
	return counts, nil
}

func (r *reportRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.VetReport{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		r.logger.WithField("deleted", result.RowsAffected).Info("Pruned old vet reports")
	}
	return result.RowsAffected, nil
}
