package vetting

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titlevet/titlevet-go/internal/apperrors"
	"github.com/titlevet/titlevet-go/internal/contact"
	"github.com/titlevet/titlevet-go/internal/risk"
	"github.com/titlevet/titlevet-go/internal/social"
	"github.com/titlevet/titlevet-go/internal/store"
	"github.com/titlevet/titlevet-go/internal/website"
	"github.com/titlevet/titlevet-go/internal/whois"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeResolver struct {
	calls  int32
	result *whois.LookupResult
	err    error
}

func (f *fakeResolver) Lookup(context.Context, string) (*whois.LookupResult, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.result, f.err
}

type fakeSite struct {
	signals *website.Signals
}

func (f *fakeSite) Validate(context.Context, string) *website.Signals {
	return f.signals
}

type fakeCrawler struct {
	result *social.CrawlResult
}

func (f *fakeCrawler) Crawl(context.Context, string, string) *social.CrawlResult {
	return f.result
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	stages []string
}

func (b *recordingBroadcaster) Publish(_, stage, _ string) {
	b.mu.Lock()
	b.stages = append(b.stages, stage)
	b.mu.Unlock()
}

func goodEvidence() (*fakeResolver, *fakeSite, *fakeCrawler) {
	created := time.Now().AddDate(-10, 0, 0)
	expires := time.Now().AddDate(1, 0, 0)
	resolver := &fakeResolver{result: &whois.LookupResult{
		Domain:          "acmetitle.com",
		Merged:          whois.Record{"Registrar": "Example Registrar"},
		Registrar:       "Example Registrar",
		CreatedAt:       &created,
		ExpiresAt:       &expires,
		DomainAgeDays:   3650,
		RegistrantEmail: "admin@acmetitle.com",
		RegistrantPhone: "555-010-2000",
	}}
	site := &fakeSite{signals: &website.Signals{
		URL:         "https://acmetitle.com",
		Accessible:  true,
		DNSResolves: true,
		HasTLS:      true,
		TLSValid:    true,
		Contacts: contact.Bundle{
			Emails: []string{"info@acmetitle.com", "closing@acmetitle.com"},
			Phones: []string{"512-555-0100"},
			Addresses: []string{"100 Congress Ave, Austin, TX 78701"},
		},
	}}
	crawler := &fakeCrawler{result: &social.CrawlResult{
		Profiles: []social.Profile{
			{Platform: "linkedin", Exists: true, Verified: true},
			{Platform: "facebook", Exists: true, Verified: true},
			{Platform: "twitter", Exists: true, Verified: true},
			{Platform: "instagram"},
		},
		PlatformCount: 3,
		VerifiedCount: 3,
	}}
	return resolver, site, crawler
}

func newTestOrchestrator(t *testing.T, deps Deps) *Orchestrator {
	t.Helper()
	if deps.Engine == nil {
		cfg, err := risk.LoadConfig("../../configs/risk_rules.json")
		require.NoError(t, err)
		deps.Engine = risk.NewEngine(cfg, testLogger())
	}
	if deps.Logger == nil {
		deps.Logger = testLogger()
	}
	return NewOrchestrator(deps)
}

func TestVet_FullPipeline(t *testing.T) {
	resolver, site, crawler := goodEvidence()
	broadcaster := &recordingBroadcaster{}
	o := newTestOrchestrator(t, Deps{
		Resolver:      resolver,
		Site:          site,
		Crawler:       crawler,
		Broadcaster:   broadcaster,
		SocialEnabled: true,
	})

	report, err := o.Vet(context.Background(), Input{URL: "https://www.acmetitle.com/about"})
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, "www.acmetitle.com", report.Domain)
	assert.NotEmpty(t, report.RequestID)
	require.NotNil(t, report.RiskAssessment)
	assert.Equal(t, risk.LevelLow, report.RiskAssessment.Level)
	require.NotNil(t, report.Data.Whois)
	require.NotNil(t, report.Data.Website)
	require.NotNil(t, report.Data.SocialMedia)

	assert.Contains(t, broadcaster.stages, StageValidating)
	assert.Contains(t, broadcaster.stages, StageScoring)
	assert.Equal(t, StageDone, broadcaster.stages[len(broadcaster.stages)-1])
}

func TestVet_RegistrationFailurePropagates(t *testing.T) {
	resolver := &fakeResolver{err: apperrors.NewWhoisLookup("registration lookup exhausted", nil)}
	_, site, _ := goodEvidence()
	o := newTestOrchestrator(t, Deps{Resolver: resolver, Site: site})

	_, err := o.Vet(context.Background(), Input{URL: "acmetitle.com"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindWhoisLookup, apperrors.KindOf(err))
}

func TestVet_ValidationError(t *testing.T) {
	o := newTestOrchestrator(t, Deps{Resolver: &fakeResolver{}, Site: &fakeSite{signals: &website.Signals{}}})

	_, err := o.Vet(context.Background(), Input{URL: "not a domain!!"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&o.resolver.(*fakeResolver).calls), "no collector work on invalid input")
}

func TestVet_RateLimit(t *testing.T) {
	resolver, site, _ := goodEvidence()
	o := newTestOrchestrator(t, Deps{
		Resolver: resolver,
		Site:     site,
		Limiter:  store.NewRateLimiter(time.Minute, 1),
	})

	_, err := o.Vet(context.Background(), Input{URL: "acmetitle.com", ClientIP: "1.2.3.4"})
	require.NoError(t, err)

	_, err = o.Vet(context.Background(), Input{URL: "acmetitle.com", ClientIP: "1.2.3.4"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindRateLimit, apperrors.KindOf(err))

	// Internal callers without a client IP bypass the limiter.
	_, err = o.Vet(context.Background(), Input{URL: "acmetitle.com"})
	assert.NoError(t, err)
}

func TestVet_CacheHit(t *testing.T) {
	resolver, site, _ := goodEvidence()
	o := newTestOrchestrator(t, Deps{
		Resolver: resolver,
		Site:     site,
		Cache:    store.NewCache(time.Hour, 10, nil),
	})

	first, err := o.Vet(context.Background(), Input{URL: "acmetitle.com"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := o.Vet(context.Background(), Input{URL: "acmetitle.com"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.RequestID, second.RequestID, "cached report returned as stored")
	assert.Equal(t, int32(1), atomic.LoadInt32(&resolver.calls), "collectors run once")
}

func TestVet_SocialDisabled(t *testing.T) {
	resolver, site, crawler := goodEvidence()
	o := newTestOrchestrator(t, Deps{
		Resolver:      resolver,
		Site:          site,
		Crawler:       crawler,
		SocialEnabled: false,
	})

	report, err := o.Vet(context.Background(), Input{URL: "acmetitle.com"})
	require.NoError(t, err)
	assert.Nil(t, report.Data.SocialMedia)
	// Absent social evidence counts as no presence.
	assert.Greater(t, report.RiskAssessment.CategoryScores[risk.CategorySocialMedia], 0)
}

func TestWhoisOnly(t *testing.T) {
	resolver, _, _ := goodEvidence()
	o := newTestOrchestrator(t, Deps{Resolver: resolver, Site: &fakeSite{signals: &website.Signals{}}})

	result, err := o.WhoisOnly(context.Background(), Input{URL: "https://acmetitle.com"})
	require.NoError(t, err)
	assert.Equal(t, "acmetitle.com", result.Domain)
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"acmetitle.com", "acmetitle.com", true},
		{"  ACMETITLE.COM  ", "acmetitle.com", true},
		{"https://www.acmetitle.com/contact?x=1", "www.acmetitle.com", true},
		{"http://acmetitle.com:8080", "acmetitle.com", true},
		{"acmetitle.com/path", "acmetitle.com", true},
		{"acmetitle.com.", "acmetitle.com", true},
		{"sub.acme-title.co.uk", "sub.acme-title.co.uk", true},
		{"", "", false},
		{"not a domain!!", "", false},
		{"nodots", "", false},
		{"-bad.com", "", false},
		{"https://", "", false},
	}

	for _, tt := range tests {
		got, err := NormalizeDomain(tt.in)
		if tt.ok {
			assert.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}
