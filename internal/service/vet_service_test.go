package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/titlevet/titlevet-go/internal/apperrors"
	"github.com/titlevet/titlevet-go/internal/domain"
	"github.com/titlevet/titlevet-go/internal/queue"
	"github.com/titlevet/titlevet-go/internal/repository"
	"github.com/titlevet/titlevet-go/internal/risk"
	"github.com/titlevet/titlevet-go/internal/vetting"
	"github.com/titlevet/titlevet-go/internal/website"
	"github.com/titlevet/titlevet-go/internal/whois"
	"github.com/titlevet/titlevet-go/internal/worker"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubResolver struct {
	err error
}

func (s *stubResolver) Lookup(_ context.Context, dom string) (*whois.LookupResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	created := time.Now().AddDate(-5, 0, 0)
	return &whois.LookupResult{
		Domain:          dom,
		Merged:          whois.Record{"Registrar": "Example Registrar"},
		CreatedAt:       &created,
		DomainAgeDays:   1825,
		RegistrantEmail: "admin@" + dom,
		RegistrantPhone: "555-010-2000",
	}, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []*queue.JobMessage
	err      error
}

func (f *fakePublisher) PublishJob(_ context.Context, msg *queue.JobMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePublisher) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type stubSite struct{}

func (stubSite) Validate(_ context.Context, dom string) *website.Signals {
	return &website.Signals{
		URL:         "https://" + dom,
		Accessible:  true,
		DNSResolves: true,
		HasTLS:      true,
		TLSValid:    true,
	}
}

func newTestService(t *testing.T, resolver vetting.RegistrationResolver) (*VetService, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.VetReport{}, &domain.VetJob{}))

	cfg, err := risk.LoadConfig("../../configs/risk_rules.json")
	require.NoError(t, err)

	logger := testLogger()
	orchestrator := vetting.NewOrchestrator(vetting.Deps{
		Resolver: resolver,
		Site:     stubSite{},
		Engine:   risk.NewEngine(cfg, logger),
		Logger:   logger,
	})

	svc := &VetService{
		orchestrator: orchestrator,
		jobs:         repository.NewJobRepository(db, logger),
		reports:      repository.NewReportRepository(db, logger),
		logger:       logger,
	}
	svc.pool = worker.NewPool(2, 10, svc.Execute, logger)

	ctx, cancel := context.WithCancel(context.Background())
	svc.pool.Start(ctx)
	return svc, cancel
}

func TestVetService_VetPersistsReport(t *testing.T) {
	svc, stop := newTestService(t, &stubResolver{})
	defer stop()
	ctx := context.Background()

	report, err := svc.Vet(ctx, vetting.Input{URL: "acmetitle.com"})
	require.NoError(t, err)
	assert.True(t, report.Success)

	stored, err := svc.reports.FindByRequestID(ctx, report.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "acmetitle.com", stored.Domain)
	assert.Equal(t, string(report.RiskAssessment.Level), stored.RiskLevel)
	assert.NotEmpty(t, stored.AssessmentJSON)
}

func TestVetService_VetPipelineErrorSurfaces(t *testing.T) {
	svc, stop := newTestService(t, &stubResolver{err: apperrors.NewWhoisLookup("exhausted", nil)})
	defer stop()

	_, err := svc.Vet(context.Background(), vetting.Input{URL: "acmetitle.com"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindWhoisLookup, apperrors.KindOf(err))
}

func TestVetService_HandleJobMessage(t *testing.T) {
	svc, stop := newTestService(t, &stubResolver{})
	defer stop()
	ctx := context.Background()

	job := &domain.VetJob{ID: "job-1", Domain: "acmetitle.com", InputURL: "acmetitle.com"}
	require.NoError(t, svc.jobs.Create(ctx, job))

	msg := &queue.JobMessage{JobID: "job-1", Domain: "acmetitle.com", InputURL: "acmetitle.com"}
	require.NoError(t, svc.HandleJobMessage(ctx, msg))

	found, err := svc.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, found.Status)
	require.NotNil(t, found.Report)
	assert.Equal(t, "acmetitle.com", found.Report.Domain)
}

func TestVetService_HandleJobMessage_FailureMarksJob(t *testing.T) {
	svc, stop := newTestService(t, &stubResolver{err: apperrors.NewWhoisLookup("no registration data", nil)})
	defer stop()
	svc.producer = &fakePublisher{}
	ctx := context.Background()

	job := &domain.VetJob{ID: "job-2", Domain: "deadtitle.com", InputURL: "deadtitle.com"}
	require.NoError(t, svc.jobs.Create(ctx, job))

	msg := &queue.JobMessage{JobID: "job-2", Domain: "deadtitle.com", InputURL: "deadtitle.com"}
	err := svc.HandleJobMessage(ctx, msg)
	require.Error(t, err)

	found, findErr := svc.GetJob(ctx, "job-2")
	require.NoError(t, findErr)
	assert.Equal(t, domain.JobStatusFailed, found.Status)
	assert.Equal(t, string(apperrors.KindWhoisLookup), found.ErrorKind)
	assert.Equal(t, 0, found.RetryCount)
}

func TestVetService_HandleJobMessage_TransientFailureRequeues(t *testing.T) {
	svc, stop := newTestService(t, &stubResolver{err: apperrors.NewTimeout("all tiers timed out", nil)})
	defer stop()
	pub := &fakePublisher{}
	svc.producer = pub
	ctx := context.Background()

	job := &domain.VetJob{ID: "job-3", Domain: "slowtitle.com", InputURL: "slowtitle.com"}
	require.NoError(t, svc.jobs.Create(ctx, job))

	msg := &queue.JobMessage{JobID: "job-3", Domain: "slowtitle.com", InputURL: "slowtitle.com"}
	require.NoError(t, svc.HandleJobMessage(ctx, msg))

	assert.Equal(t, 1, pub.published())
	found, err := svc.GetJob(ctx, "job-3")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, found.Status)
	assert.Equal(t, 1, found.RetryCount)
}

func TestVetService_HandleJobMessage_RetryBudgetExhausted(t *testing.T) {
	svc, stop := newTestService(t, &stubResolver{err: apperrors.NewTimeout("all tiers timed out", nil)})
	defer stop()
	pub := &fakePublisher{}
	svc.producer = pub
	ctx := context.Background()

	job := &domain.VetJob{ID: "job-4", Domain: "slowtitle.com", InputURL: "slowtitle.com"}
	require.NoError(t, svc.jobs.Create(ctx, job))

	msg := &queue.JobMessage{JobID: "job-4", Domain: "slowtitle.com", InputURL: "slowtitle.com"}
	for i := 0; i < maxJobRetries; i++ {
		require.NoError(t, svc.HandleJobMessage(ctx, msg))
	}
	err := svc.HandleJobMessage(ctx, msg)
	require.Error(t, err)

	assert.Equal(t, maxJobRetries, pub.published())
	found, findErr := svc.GetJob(ctx, "job-4")
	require.NoError(t, findErr)
	assert.Equal(t, domain.JobStatusFailed, found.Status)
	assert.Equal(t, string(apperrors.KindTimeout), found.ErrorKind)
	assert.Equal(t, maxJobRetries+1, found.RetryCount)
}

func TestVetService_HandleJobMessage_NoQueueFailsImmediately(t *testing.T) {
	svc, stop := newTestService(t, &stubResolver{err: apperrors.NewTimeout("all tiers timed out", nil)})
	defer stop()
	ctx := context.Background()

	job := &domain.VetJob{ID: "job-5", Domain: "slowtitle.com", InputURL: "slowtitle.com"}
	require.NoError(t, svc.jobs.Create(ctx, job))

	msg := &queue.JobMessage{JobID: "job-5", Domain: "slowtitle.com", InputURL: "slowtitle.com"}
	require.Error(t, svc.HandleJobMessage(ctx, msg))

	found, err := svc.GetJob(ctx, "job-5")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, found.Status)
	assert.Equal(t, 0, found.RetryCount)
}

func TestVetService_EnqueueRequiresQueue(t *testing.T) {
	svc, stop := newTestService(t, &stubResolver{})
	defer stop()

	_, err := svc.Enqueue(context.Background(), "acmetitle.com", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))

	_, err = svc.Enqueue(context.Background(), "not a domain!!", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}
