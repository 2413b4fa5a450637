package website

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/titlevet/titlevet-go/internal/contact"
)

const (
	maxBodyBytes = 2 << 20 // per-page read cap
	batchSize    = 3       // concurrent contact-page fetches
)

// Options control one validation run.
type Options struct {
	Timeout            time.Duration
	FollowContactPages bool
	MaxContactPages    int
}

// Signals is everything the website tells us about a domain.
type Signals struct {
	URL           string         `json:"url"`
	Accessible    bool           `json:"accessible"`
	StatusCode    int            `json:"status_code,omitempty"`
	DNSResolves   bool           `json:"dns_resolves"`
	HasTLS        bool           `json:"has_tls"`
	TLSValid      bool           `json:"tls_valid"`
	TLSSelfSigned bool           `json:"tls_self_signed"`
	TLSExpired    bool           `json:"tls_expired"`
	Contacts      contact.Bundle `json:"contacts"`
	PagesCrawled  []string       `json:"pages_crawled,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// DNSProber answers whether a name resolves. Abstracted for tests.
type DNSProber interface {
	Resolves(ctx context.Context, domain string) bool
}

type miekgProber struct {
	logger *logrus.Logger
}

func (p *miekgProber) Resolves(ctx context.Context, domain string) bool {
	server := "1.1.1.1:53"
	if cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(cfg.Servers) > 0 {
		server = net.JoinHostPort(cfg.Servers[0], cfg.Port)
	}

	client := &dns.Client{Timeout: 5 * time.Second}
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(domain), qtype)
		in, _, err := client.ExchangeContext(ctx, m, server)
		if err != nil {
			p.logger.WithError(err).WithField("domain", domain).Debug("DNS probe failed")
			continue
		}
		if len(in.Answer) > 0 {
			return true
		}
	}
	return false
}

// Validator fetches the target site, derives accessibility and TLS signals,
// and crawls auxiliary contact pages when the root page is contact-sparse.
type Validator struct {
	client   *http.Client // verifying
	insecure *http.Client // for inspecting bad certificates
	prober   DNSProber
	opts     Options
	logger   *logrus.Logger
}

func NewValidator(opts Options, logger *logrus.Logger) *Validator {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxContactPages <= 0 {
		opts.MaxContactPages = 5
	}
	return &Validator{
		client: &http.Client{Timeout: opts.Timeout},
		insecure: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		prober: &miekgProber{logger: logger},
		opts:   opts,
		logger: logger,
	}
}

// Validate never fails the request: an unreachable site degrades to
// negative signals and warnings.
func (v *Validator) Validate(ctx context.Context, domain string) *Signals {
	signals := &Signals{URL: "https://" + domain}

	signals.DNSResolves = v.prober.Resolves(ctx, domain)

	body := v.fetchRoot(ctx, domain, signals)
	if !signals.Accessible {
		return signals
	}

	signals.Contacts = contact.Extract(body)

	if v.opts.FollowContactPages && signals.Contacts.IsSparse() {
		v.crawlContactPages(ctx, signals)
	}

	return signals
}

// fetchRoot tries HTTPS first, falls back through an insecure fetch (to
// inspect a bad certificate) and then plain HTTP.
func (v *Validator) fetchRoot(ctx context.Context, domain string, signals *Signals) string {
	body, resp, err := v.fetch(ctx, v.client, "https://"+domain)
	if err == nil {
		signals.HasTLS = true
		v.applyTLSState(resp, signals)
		signals.TLSValid = !signals.TLSSelfSigned && !signals.TLSExpired
		v.applyStatus(resp, signals)
		return body
	}

	if isCertError(err) {
		signals.HasTLS = true
		body, resp, err = v.fetch(ctx, v.insecure, "https://"+domain)
		if err == nil {
			v.applyTLSState(resp, signals)
			signals.TLSValid = false
			if !signals.TLSSelfSigned && !signals.TLSExpired {
				// Verification failed for another reason (hostname mismatch,
				// unknown authority chain); still not a valid certificate.
				signals.Warnings = append(signals.Warnings, "certificate failed verification")
			}
			v.applyStatus(resp, signals)
			return body
		}
	}

	signals.Warnings = append(signals.Warnings, fmt.Sprintf("https fetch failed: %v", err))

	body, resp, err = v.fetch(ctx, v.client, "http://"+domain)
	if err != nil {
		signals.Warnings = append(signals.Warnings, fmt.Sprintf("http fetch failed: %v", err))
		return ""
	}
	signals.URL = "http://" + domain
	v.applyStatus(resp, signals)
	return body
}

func (v *Validator) applyStatus(resp *http.Response, signals *Signals) {
	signals.StatusCode = resp.StatusCode
	signals.Accessible = resp.StatusCode >= 200 && resp.StatusCode < 400
}

func (v *Validator) applyTLSState(resp *http.Response, signals *Signals) {
	state := resp.TLS
	if state == nil || len(state.PeerCertificates) == 0 {
		return
	}
	cert := state.PeerCertificates[0]
	now := time.Now()

	signals.TLSExpired = now.After(cert.NotAfter) || now.Before(cert.NotBefore)
	signals.TLSSelfSigned = len(state.PeerCertificates) == 1 &&
		string(cert.RawSubject) == string(cert.RawIssuer)
}

// crawlContactPages discovers candidate pages and fetches up to the
// configured cap in bounded batches; a single page failure never aborts the
// batch.
func (v *Validator) crawlContactPages(ctx context.Context, signals *Signals) {
	pages := v.discoverContactPages(ctx, signals.URL)
	if len(pages) == 0 {
		return
	}
	if len(pages) > v.opts.MaxContactPages {
		pages = pages[:v.opts.MaxContactPages]
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchSize)

	for _, pageURL := range pages {
		pageURL := pageURL
		g.Go(func() error {
			body, _, err := v.fetch(gctx, v.insecure, pageURL)
			if err != nil {
				v.logger.WithError(err).WithField("url", pageURL).Warn("Contact page fetch failed")
				mu.Lock()
				signals.Warnings = append(signals.Warnings, fmt.Sprintf("contact page %s: %v", pageURL, err))
				mu.Unlock()
				return nil // absorbed: empty contribution
			}

			bundle := contact.Extract(body)
			mu.Lock()
			signals.Contacts.Merge(bundle)
			signals.PagesCrawled = append(signals.PagesCrawled, pageURL)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
}

func (v *Validator) fetch(ctx context.Context, client *http.Client, url string) (string, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TitleVet/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp, err
	}
	return string(data), resp, nil
}

func isCertError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	var certInvalid x509.CertificateInvalidError
	var hostnameErr x509.HostnameError
	if errors.As(err, &unknownAuthority) || errors.As(err, &certInvalid) || errors.As(err, &hostnameErr) {
		return true
	}
	// Older TLS alert paths only surface as text.
	return strings.Contains(err.Error(), "x509:") || strings.Contains(err.Error(), "certificate")
}
