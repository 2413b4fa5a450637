package vetting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/titlevet/titlevet-go/internal/apperrors"
	"github.com/titlevet/titlevet-go/internal/middleware"
	"github.com/titlevet/titlevet-go/internal/risk"
	"github.com/titlevet/titlevet-go/internal/social"
	"github.com/titlevet/titlevet-go/internal/store"
	"github.com/titlevet/titlevet-go/internal/website"
	"github.com/titlevet/titlevet-go/internal/whois"
)

// Pipeline stages, broadcast in order over the progress channel.
const (
	StageValidating   = "validating"
	StageRegistration = "registration"
	StageWebsite      = "website"
	StageSocial       = "social"
	StageScoring      = "scoring"
	StageDone         = "done"
	StageFailed       = "failed"
)

// RegistrationResolver walks the whois tier hierarchy.
type RegistrationResolver interface {
	Lookup(ctx context.Context, domain string) (*whois.LookupResult, error)
}

// SiteValidator probes the website and collects contact information.
type SiteValidator interface {
	Validate(ctx context.Context, domain string) *website.Signals
}

// PresenceCrawler checks the social platforms.
type PresenceCrawler interface {
	Crawl(ctx context.Context, domain, orgName string) *social.CrawlResult
}

// Broadcaster pushes stage transitions to progress listeners.
type Broadcaster interface {
	Publish(requestID, stage, detail string)
}

// NoopBroadcaster drops progress events.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Publish(string, string, string) {}

// Input is one vetting request.
type Input struct {
	URL      string
	OrgName  string
	ClientIP string // empty skips rate limiting (internal callers)
}

// Orchestrator runs the vetting pipeline: rate limit, cache, the three
// collectors concurrently, then the risk engine.
type Orchestrator struct {
	resolver    RegistrationResolver
	site        SiteValidator
	crawler     PresenceCrawler
	engine      *risk.Engine
	cache       *store.Cache
	limiter     *store.RateLimiter
	broadcaster Broadcaster
	metrics     *middleware.PrometheusMetrics
	logger      *logrus.Logger

	socialEnabled bool
}

// Deps carries the orchestrator's collaborators. Cache, limiter, metrics
// and broadcaster may be nil.
type Deps struct {
	Resolver      RegistrationResolver
	Site          SiteValidator
	Crawler       PresenceCrawler
	Engine        *risk.Engine
	Cache         *store.Cache
	Limiter       *store.RateLimiter
	Broadcaster   Broadcaster
	Metrics       *middleware.PrometheusMetrics
	Logger        *logrus.Logger
	SocialEnabled bool
}

func NewOrchestrator(deps Deps) *Orchestrator {
	b := deps.Broadcaster
	if b == nil {
		b = NoopBroadcaster{}
	}
	return &Orchestrator{
		resolver:      deps.Resolver,
		site:          deps.Site,
		crawler:       deps.Crawler,
		engine:        deps.Engine,
		cache:         deps.Cache,
		limiter:       deps.Limiter,
		broadcaster:   b,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		socialEnabled: deps.SocialEnabled,
	}
}

// Vet runs the full pipeline for one request. Collector failures degrade to
// empty evidence; validation errors, rate-limit rejections and the
// registration resolver's total failure surface as typed errors.
func (o *Orchestrator) Vet(ctx context.Context, input Input) (report *Report, err error) {
	requestID := uuid.New().String()
	start := time.Now()

	// The pipeline boundary: anything unexpected becomes an internal
	// error instead of taking the process down.
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"panic":      r,
			}).Error("Vetting pipeline panicked")
			report = nil
			err = apperrors.NewInternal(fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	if o.limiter != nil && input.ClientIP != "" && !o.limiter.Allow(input.ClientIP) {
		if o.metrics != nil {
			o.metrics.RecordRateLimitRejection()
		}
		return nil, apperrors.NewRateLimit("rate limit exceeded, try again later")
	}

	o.broadcaster.Publish(requestID, StageValidating, input.URL)
	domain, err := NormalizeDomain(input.URL)
	if err != nil {
		o.broadcaster.Publish(requestID, StageFailed, err.Error())
		return nil, err
	}

	log := o.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"domain":     domain,
	})

	if o.cache != nil {
		if cached, ok := o.cache.Get(domain); ok {
			if o.metrics != nil {
				o.metrics.RecordCacheHit()
			}
			log.Info("Serving vetting report from cache")
			hit := *(cached.(*Report))
			hit.Cached = true
			o.broadcaster.Publish(requestID, StageDone, "cached")
			return &hit, nil
		}
		if o.metrics != nil {
			o.metrics.RecordCacheMiss()
		}
	}

	if o.metrics != nil {
		o.metrics.RecordVettingStarted()
	}
	log.Info("Vetting pipeline started")

	evidence, warnings, err := o.collect(ctx, requestID, domain, input.OrgName)
	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordVettingFailed(time.Since(start))
		}
		o.broadcaster.Publish(requestID, StageFailed, err.Error())
		return nil, err
	}

	o.broadcaster.Publish(requestID, StageScoring, "")
	scoringStart := time.Now()
	assessment := o.engine.Evaluate(evaluationContext(evidence))
	if o.metrics != nil {
		o.metrics.RecordStage("scoring", time.Since(scoringStart))
	}

	report = &Report{
		Success:        true,
		Data:           evidence,
		RiskAssessment: assessment,
		Warnings:       warnings,
		Timestamp:      time.Now().UTC(),
		RequestID:      requestID,
		Domain:         domain,
	}

	if o.cache != nil {
		o.cache.Set(domain, report)
	}
	if o.metrics != nil {
		o.metrics.RecordVettingCompleted(time.Since(start))
	}
	log.WithFields(logrus.Fields{
		"risk_level":    assessment.Level,
		"overall_score": assessment.OverallScore,
		"duration":      time.Since(start).Round(time.Millisecond).String(),
	}).Info("Vetting pipeline completed")

	o.broadcaster.Publish(requestID, StageDone, string(assessment.Level))
	return report, nil
}

// collect runs the three collectors concurrently and settles them all. Only
// the registration resolver's error survives; the other collectors degrade
// to warnings.
func (o *Orchestrator) collect(ctx context.Context, requestID, domain, orgName string) (Evidence, []string, error) {
	var (
		wg        sync.WaitGroup
		evidence  Evidence
		lookupErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.broadcaster.Publish(requestID, StageRegistration, domain)
		start := time.Now()
		evidence.Whois, lookupErr = o.resolver.Lookup(ctx, domain)
		if o.metrics != nil {
			o.metrics.RecordStage("registration", time.Since(start))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.broadcaster.Publish(requestID, StageWebsite, domain)
		start := time.Now()
		evidence.Website = o.site.Validate(ctx, domain)
		if o.metrics != nil {
			o.metrics.RecordStage("website", time.Since(start))
		}
	}()

	if o.socialEnabled && o.crawler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.broadcaster.Publish(requestID, StageSocial, domain)
			start := time.Now()
			evidence.SocialMedia = o.crawler.Crawl(ctx, domain, orgName)
			if o.metrics != nil {
				o.metrics.RecordStage("social", time.Since(start))
			}
		}()
	}

	wg.Wait()

	if lookupErr != nil {
		return Evidence{}, nil, lookupErr
	}

	var warnings []string
	if evidence.Whois != nil {
		warnings = append(warnings, evidence.Whois.Warnings...)
	}
	if evidence.Website != nil {
		warnings = append(warnings, evidence.Website.Warnings...)
	}
	if evidence.SocialMedia != nil {
		warnings = append(warnings, evidence.SocialMedia.Warnings...)
	}
	return evidence, warnings, nil
}

// WhoisOnly runs just the registration resolver, for the whois-only
// endpoint. Rate limiting applies the same way as the full pipeline.
func (o *Orchestrator) WhoisOnly(ctx context.Context, input Input) (*whois.LookupResult, error) {
	if o.limiter != nil && input.ClientIP != "" && !o.limiter.Allow(input.ClientIP) {
		if o.metrics != nil {
			o.metrics.RecordRateLimitRejection()
		}
		return nil, apperrors.NewRateLimit("rate limit exceeded, try again later")
	}

	domain, err := NormalizeDomain(input.URL)
	if err != nil {
		return nil, err
	}
	return o.resolver.Lookup(ctx, domain)
}
