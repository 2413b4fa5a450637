package website

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	resolves bool
}

func (f *fakeProber) Resolves(ctx context.Context, domain string) bool {
	return f.resolves
}

func newTestValidator(opts Options) *Validator {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	v := NewValidator(opts, logger)
	v.prober = &fakeProber{resolves: true}
	return v
}

func hostOf(serverURL string) string {
	return strings.TrimPrefix(strings.TrimPrefix(serverURL, "https://"), "http://")
}

// TestValidate_SelfSignedTLS a TLS site with an untrusted single-cert chain
// is accessible but flagged self-signed and invalid.
func TestValidate_SelfSignedTLS(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>Email: info@x.com and sales@x.com. Call 703-555-0147.</p>`)
	}))
	defer server.Close()

	v := newTestValidator(Options{Timeout: 5 * time.Second})
	signals := v.Validate(context.Background(), hostOf(server.URL))

	assert.True(t, signals.Accessible)
	assert.True(t, signals.HasTLS)
	assert.True(t, signals.TLSSelfSigned)
	assert.False(t, signals.TLSValid)
	assert.True(t, signals.DNSResolves)
	assert.Len(t, signals.Contacts.Emails, 2)
}

// TestValidate_PlainHTTPFallback an HTTP-only site is still accessible, with
// no TLS signals.
func TestValidate_PlainHTTPFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>Email: a@x.com, b@x.com. Phone 703-555-0147.</p>`)
	}))
	defer server.Close()

	v := newTestValidator(Options{Timeout: 5 * time.Second})
	signals := v.Validate(context.Background(), hostOf(server.URL))

	assert.True(t, signals.Accessible)
	assert.False(t, signals.HasTLS)
	assert.Equal(t, "http://"+hostOf(server.URL), signals.URL)
}

// TestValidate_Unreachable nothing listening: negative signals, warnings,
// no error.
func TestValidate_Unreachable(t *testing.T) {
	v := newTestValidator(Options{Timeout: time.Second})
	v.prober = &fakeProber{resolves: false}

	signals := v.Validate(context.Background(), "127.0.0.1:1")

	assert.False(t, signals.Accessible)
	assert.False(t, signals.DNSResolves)
	assert.NotEmpty(t, signals.Warnings)
}

// TestValidate_CrawlsContactPages a sparse root page triggers sitemap
// discovery; contact-like pages merge into the bundle and look-alike paths
// are excluded.
func TestValidate_CrawlsContactPages(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<h1>Welcome</h1>`) // sparse: no contacts
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nSitemap: %s/sitemap.xml\n", server.URL)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset>
  <url><loc>%[1]s/contact</loc></url>
  <url><loc>%[1]s/about</loc></url>
  <url><loc>%[1]s/about-something-else</loc></url>
  <url><loc>%[1]s/broken</loc></url>
  <url><loc>%[1]s/blog/post-1</loc></url>
</urlset>`, server.URL)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `Email: info@x.com Email: legal@x.com Call 703-555-0147`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `Email: team@x.com`)
	})

	v := newTestValidator(Options{Timeout: 5 * time.Second, FollowContactPages: true, MaxContactPages: 5})
	signals := v.Validate(context.Background(), hostOf(server.URL))

	require.True(t, signals.Accessible)
	assert.ElementsMatch(t, []string{"info@x.com", "legal@x.com", "team@x.com"}, signals.Contacts.Emails)
	assert.Equal(t, []string{"703-555-0147"}, signals.Contacts.Phones)

	for _, crawled := range signals.PagesCrawled {
		assert.NotContains(t, crawled, "about-something-else", "end-anchored pattern must exclude look-alike paths")
		assert.NotContains(t, crawled, "blog")
	}
}

// TestValidate_DenseRootSkipsCrawl enough contacts on the root page means no
// sitemap traffic at all.
func TestValidate_DenseRootSkipsCrawl(t *testing.T) {
	sitemapHit := false
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `Email: a@x.com Email: b@x.com Call 703-555-0147`)
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		sitemapHit = true
	})

	v := newTestValidator(Options{Timeout: 5 * time.Second, FollowContactPages: true})
	v.Validate(context.Background(), hostOf(server.URL))

	assert.False(t, sitemapHit, "dense root page should not trigger discovery")
}
