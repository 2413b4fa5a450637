package whois

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titlevet/titlevet-go/internal/apperrors"
)

// fakeQuerier replays canned responses keyed by server, and can fail
// selected tiers.
type fakeQuerier struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeQuerier) Query(ctx context.Context, query, server string) (string, error) {
	f.calls = append(f.calls, server)
	if err, ok := f.errs[server]; ok {
		return "", err
	}
	return f.responses[server], nil
}

const rootResponse = `% IANA WHOIS server
domain:       COM
organisation: VeriSign Global Registry Services
whois:        whois.verisign-grs.com
status:       ACTIVE
`

const registryResponse = `Domain Name: EXAMPLE-TITLE.COM
Registry Domain ID: 123456_DOMAIN_COM-VRSN
Registrar WHOIS Server: whois.registrar.example
Registrar: Example Registrar, Inc.
Creation Date: 2014-03-15T04:00:00Z
Registry Expiry Date: 2027-03-15T04:00:00Z
Name Server: NS1.EXAMPLEDNS.COM
Name Server: NS2.EXAMPLEDNS.COM
>>> Last update of whois database: 2024-06-01T00:00:00Z <<<
`

const registrarResponse = `Domain Name: example-title.com
Registrar: Example Registrar, Inc.
Registrant Organization: Example Title Company LLC
Registrant Email: legal@example-title.com
Registrant Phone: +1.7035551212
creation date: 2014-03-15T04:00:00Z
`

func newTestResolver(q Querier) *Resolver {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewResolverWithQuerier(q, 5*time.Second, logger)
}

// TestLookup_ThreeTierWalk the resolver visits root, registry, registrar in
// order and merges all tiers.
func TestLookup_ThreeTierWalk(t *testing.T) {
	fq := &fakeQuerier{responses: map[string]string{
		"whois.iana.org":          rootResponse,
		"whois.verisign-grs.com":  registryResponse,
		"whois.registrar.example": registrarResponse,
	}}

	result, err := newTestResolver(fq).Lookup(context.Background(), "www.example-title.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"whois.iana.org", "whois.verisign-grs.com", "whois.registrar.example"}, fq.calls)
	assert.Equal(t, "example-title.com", result.Domain)
	assert.Empty(t, result.Warnings)

	// Registrar-only fields survive; shared fields hold registry values.
	assert.Equal(t, "legal@example-title.com", result.RegistrantEmail)
	assert.Equal(t, "+1.7035551212", result.RegistrantPhone)
	assert.Equal(t, "EXAMPLE-TITLE.COM", result.Merged["Domain Name"])
	assert.Len(t, result.NameServers, 2)

	require.NotNil(t, result.CreatedAt)
	assert.Greater(t, result.DomainAgeDays, 3650, "domain registered 2014 should be >10y old")
}

type fakeTierMetrics struct {
	outcomes map[string]string
}

func (f *fakeTierMetrics) RecordWhoisTierQuery(tier, outcome string) {
	if f.outcomes == nil {
		f.outcomes = map[string]string{}
	}
	f.outcomes[tier] = outcome
}

// TestLookup_RecordsTierMetrics every tier query lands in the recorder with
// its outcome.
func TestLookup_RecordsTierMetrics(t *testing.T) {
	fq := &fakeQuerier{
		responses: map[string]string{
			"whois.iana.org":         rootResponse,
			"whois.verisign-grs.com": registryResponse,
		},
		errs: map[string]error{
			"whois.registrar.example": context.DeadlineExceeded,
		},
	}

	r := newTestResolver(fq)
	metrics := &fakeTierMetrics{}
	r.SetMetrics(metrics)

	_, err := r.Lookup(context.Background(), "example-title.com")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"root":      "ok",
		"registry":  "ok",
		"registrar": "timeout",
	}, metrics.outcomes)
}

// TestLookup_PartialFailure a failed registrar tier yields a warning and an
// empty tier, not an error.
func TestLookup_PartialFailure(t *testing.T) {
	fq := &fakeQuerier{
		responses: map[string]string{
			"whois.iana.org":         rootResponse,
			"whois.verisign-grs.com": registryResponse,
		},
		errs: map[string]error{
			"whois.registrar.example": errors.New("connection refused"),
		},
	}

	result, err := newTestResolver(fq).Lookup(context.Background(), "example-title.com")
	require.NoError(t, err)

	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "registrar")
	assert.Empty(t, result.Raw[TierRegistrar])
	assert.Equal(t, "Example Registrar, Inc.", result.Registrar)
}

// TestLookup_TotalTimeout all tiers timing out surfaces a typed timeout
// error.
func TestLookup_TotalTimeout(t *testing.T) {
	fq := &fakeQuerier{
		errs: map[string]error{
			"whois.iana.org": context.DeadlineExceeded,
		},
	}

	_, err := newTestResolver(fq).Lookup(context.Background(), "example-title.com")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(err))
}

// TestLookup_NoRegistryServer a root response without a whois referral is a
// lookup failure.
func TestLookup_NoRegistryServer(t *testing.T) {
	fq := &fakeQuerier{responses: map[string]string{
		"whois.iana.org": "domain: COM\nstatus: ACTIVE\n",
	}}

	_, err := newTestResolver(fq).Lookup(context.Background(), "example-title.com")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindWhoisLookup, apperrors.KindOf(err))
}

// TestLookup_RegistryTimeoutOnly registry and registrar unreachable by
// timeout maps to a timeout error.
func TestLookup_RegistryTimeoutOnly(t *testing.T) {
	fq := &fakeQuerier{
		responses: map[string]string{
			"whois.iana.org": rootResponse,
		},
		errs: map[string]error{
			"whois.verisign-grs.com": context.DeadlineExceeded,
		},
	}

	_, err := newTestResolver(fq).Lookup(context.Background(), "example-title.com")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(err))
}

// TestParseResponse_SkipsCommentary comment markers and blank lines are
// ignored; repeated keys accumulate.
func TestParseResponse_SkipsCommentary(t *testing.T) {
	record := ParseResponse(registryResponse)

	assert.Equal(t, "whois.registrar.example", record["Registrar WHOIS Server"])
	assert.Equal(t, "NS1.EXAMPLEDNS.COM, NS2.EXAMPLEDNS.COM", record["Name Server"])
	assert.NotContains(t, record, ">>> Last update of whois database")
}

// TestDeriveSignals_PrivacyProtected redacted registrant fields flip the
// privacy flag and suppress the contact signals.
func TestDeriveSignals_PrivacyProtected(t *testing.T) {
	result := &LookupResult{Merged: Record{
		"Registrant Name":  "REDACTED FOR PRIVACY",
		"Registrant Email": "Please query the RDDS service (privacy)",
	}}

	deriveSignals(result, time.Now())

	assert.True(t, result.PrivacyProtected)
	assert.False(t, result.HasRegistrantEmail())
}
