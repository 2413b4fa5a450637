package whois

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	whoisgo "github.com/likexian/whois"
	"github.com/sirupsen/logrus"
	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/titlevet/titlevet-go/internal/apperrors"
)

// rootServer is the authoritative directory that names each TLD's registry
// server.
const rootServer = "whois.iana.org"

// Querier issues one registration query against one server. Abstracted so
// the three-tier walk is testable without the network.
type Querier interface {
	Query(ctx context.Context, query, server string) (string, error)
}

type clientQuerier struct {
	client *whoisgo.Client
}

// newClientQuerier wraps the likexian client with referral-following
// disabled: the resolver walks the hierarchy itself, one tier at a time.
func newClientQuerier(timeout time.Duration) *clientQuerier {
	c := whoisgo.NewClient()
	c.SetTimeout(timeout)
	c.SetDisableReferral(true)
	return &clientQuerier{client: c}
}

func (q *clientQuerier) Query(ctx context.Context, query, server string) (string, error) {
	type outcome struct {
		raw string
		err error
	}
	ch := make(chan outcome, 1)

	go func() {
		raw, err := q.client.Whois(query, server)
		ch <- outcome{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case o := <-ch:
		return o.raw, o.err
	}
}

// TierMetrics counts per-tier query outcomes. Optional; a nil recorder
// disables counting.
type TierMetrics interface {
	RecordWhoisTierQuery(tier, outcome string)
}

// Resolver walks the root → registry → registrar hierarchy and merges the
// collected records. A failed tier contributes an empty record and a
// warning; only total failure is an error.
type Resolver struct {
	querier Querier
	timeout time.Duration
	logger  *logrus.Logger
	metrics TierMetrics
}

func NewResolver(timeout time.Duration, logger *logrus.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{
		querier: newClientQuerier(timeout),
		timeout: timeout,
		logger:  logger,
	}
}

// NewResolverWithQuerier is used by tests to substitute the network.
func NewResolverWithQuerier(q Querier, timeout time.Duration, logger *logrus.Logger) *Resolver {
	return &Resolver{querier: q, timeout: timeout, logger: logger}
}

// SetMetrics attaches a tier-query recorder.
func (r *Resolver) SetMetrics(m TierMetrics) {
	r.metrics = m
}

// Lookup resolves registration records for domain. Returned errors are
// typed; partial results are returned without error.
func (r *Resolver) Lookup(ctx context.Context, domain string) (*LookupResult, error) {
	parsed, err := publicsuffix.Parse(domain)
	if err != nil {
		return nil, apperrors.NewValidation(fmt.Sprintf("cannot determine public suffix of %q", domain))
	}
	registrable := parsed.SLD + "." + parsed.TLD

	result := &LookupResult{
		Domain: registrable,
		Raw:    RawRecordSet{},
	}

	var timeouts, failures int

	// Tier 1: root directory names the registry server for the TLD.
	rootRecord, err := r.queryTier(ctx, TierRoot, parsed.TLD, rootServer, result, &timeouts, &failures)
	registryServer := lookupField(rootRecord, "whois", "refer")

	// Tier 2: the registry, which typically also names the registrar's server.
	var registryRecord Record
	if registryServer != "" {
		registryRecord, _ = r.queryTier(ctx, TierRegistry, registrable, registryServer, result, &timeouts, &failures)
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("root directory lists no registry server for .%s", parsed.TLD))
	}

	// Tier 3: the registrar, queried last.
	registrarServer := lookupField(registryRecord, "registrar whois server", "whois server")
	registrarServer = strings.TrimPrefix(strings.TrimSpace(registrarServer), "whois://")
	if registrarServer != "" && !strings.EqualFold(registrarServer, registryServer) {
		r.queryTier(ctx, TierRegistrar, registrable, registrarServer, result, &timeouts, &failures)
	}

	// The root tier only describes the TLD; domain data comes from the
	// registry and registrar tiers. Both empty means the lookup produced
	// nothing usable.
	if len(result.Raw[TierRegistry]) == 0 && len(result.Raw[TierRegistrar]) == 0 {
		switch {
		case timeouts > 0 && timeouts == failures:
			return nil, apperrors.NewTimeout(fmt.Sprintf("all registration queries timed out for %s", registrable), nil)
		case registryServer == "":
			return nil, apperrors.NewWhoisLookup(fmt.Sprintf("no registry server known for .%s", parsed.TLD), err)
		case failures > 0:
			return nil, apperrors.NewNetwork(fmt.Sprintf("registration lookup failed for %s", registrable), err)
		default:
			return nil, apperrors.NewWhoisLookup(fmt.Sprintf("no registration data found for %s", registrable), nil)
		}
	}

	result.Merged = Merge(result.Raw)
	deriveSignals(result, time.Now())

	return result, nil
}

// queryTier runs one tier query with its own timeout. Failures are recorded
// as warnings, never returned upward; a timed-out query is abandoned, not
// retried.
func (r *Resolver) queryTier(ctx context.Context, tier Tier, query, server string, result *LookupResult, timeouts, failures *int) (Record, error) {
	tierCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	raw, err := r.querier.Query(tierCtx, query, server)
	if err != nil {
		*failures++
		outcome := "error"
		if isTimeout(err) {
			*timeouts++
			outcome = "timeout"
		}
		if r.metrics != nil {
			r.metrics.RecordWhoisTierQuery(string(tier), outcome)
		}
		r.logger.WithError(err).WithFields(logrus.Fields{
			"tier":   tier,
			"server": server,
			"query":  query,
		}).Warn("Registration tier query failed")
		result.Raw[tier] = Record{}
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s query against %s failed: %v", tier, server, err))
		return Record{}, err
	}

	record := ParseResponse(raw)
	result.Raw[tier] = record

	if r.metrics != nil {
		r.metrics.RecordWhoisTierQuery(string(tier), "ok")
	}

	r.logger.WithFields(logrus.Fields{
		"tier":     tier,
		"server":   server,
		"fields":   len(record),
		"duration": time.Since(start).Milliseconds(),
	}).Debug("Registration tier query completed")

	return record, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
