package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/titlevet/titlevet-go/internal/browser"
	"github.com/titlevet/titlevet-go/internal/retry"
)

// Profile is the per-platform outcome. One entry is always produced for
// each platform, found or not.
type Profile struct {
	Platform string   `json:"platform"`
	Exists   bool     `json:"exists"`
	Verified bool     `json:"verified"`
	URLs     []string `json:"urls,omitempty"`
}

// CrawlResult aggregates the four platform checks.
type CrawlResult struct {
	Profiles          []Profile `json:"profiles"`
	PlatformCount     int       `json:"platform_count"`
	VerifiedCount     int       `json:"verified_count"`
	CredibilityScore  int       `json:"credibility_score"`
	VettingAssessment []string  `json:"vetting_assessment"`
	Warnings          []string  `json:"warnings,omitempty"`
}

// ExistenceProber checks that a candidate profile URL actually resolves.
type ExistenceProber interface {
	Exists(ctx context.Context, url string) bool
}

// headProber probes with HEAD, falling back to GET when the target refuses
// the method.
type headProber struct {
	client *http.Client
}

func NewHeadProber(timeout time.Duration) ExistenceProber {
	return &headProber{client: &http.Client{Timeout: timeout}}
}

func (p *headProber) Exists(ctx context.Context, target string) bool {
	status, err := p.probe(ctx, http.MethodHead, target)
	if err != nil {
		return false
	}
	if status == http.StatusMethodNotAllowed {
		status, err = p.probe(ctx, http.MethodGet, target)
		if err != nil {
			return false
		}
	}
	return status >= 200 && status < 400
}

func (p *headProber) probe(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TitleVet/1.0)")
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Options configure the crawler.
type Options struct {
	SearchURL     string // query template, %s = escaped query
	NavTimeout    time.Duration
	MaxCandidates int
	ScreenshotDir string
}

// PlatformMetrics counts per-platform check outcomes. Optional; a nil
// recorder disables counting.
type PlatformMetrics interface {
	RecordPlatformCheck(platform, outcome string)
}

// Crawler searches for a company's presence across the supported platforms
// using isolated browser sessions.
type Crawler struct {
	launcher browser.Launcher
	prober   ExistenceProber
	opts     Options
	logger   *logrus.Logger
	metrics  PlatformMetrics
}

func NewCrawler(launcher browser.Launcher, prober ExistenceProber, opts Options, logger *logrus.Logger) *Crawler {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 3
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 25 * time.Second
	}
	if opts.SearchURL == "" {
		opts.SearchURL = "https://www.bing.com/search?q=%s"
	}
	return &Crawler{launcher: launcher, prober: prober, opts: opts, logger: logger}
}

// SetMetrics attaches a platform-check recorder.
func (c *Crawler) SetMetrics(m PlatformMetrics) {
	c.metrics = m
}

// Crawl checks all platforms concurrently. One platform failing, however it
// fails, does not affect the others; it simply yields exists=false.
func (c *Crawler) Crawl(ctx context.Context, domain, orgName string) *CrawlResult {
	terms := searchTerms(domain, orgName)
	result := &CrawlResult{Profiles: make([]Profile, len(Platforms))}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i, platform := range Platforms {
		wg.Add(1)
		go func(idx int, p Platform) {
			defer wg.Done()
			profile, warnings := c.checkPlatform(ctx, p, terms)
			mu.Lock()
			result.Profiles[idx] = profile
			result.Warnings = append(result.Warnings, warnings...)
			mu.Unlock()
		}(i, platform)
	}
	wg.Wait()

	for _, p := range result.Profiles {
		if p.Exists {
			result.PlatformCount++
		}
		if p.Verified {
			result.VerifiedCount++
		}
	}
	result.CredibilityScore = CredibilityScore(result.Profiles)
	result.VettingAssessment = vettingAssessment(result.PlatformCount, result.VerifiedCount)
	return result
}

// checkPlatform runs every search term against one platform until a valid
// profile turns up. The session is torn down when the check ends.
func (c *Crawler) checkPlatform(ctx context.Context, platform Platform, terms []string) (Profile, []string) {
	profile := Profile{Platform: platform.Name}
	var warnings []string

	session, err := c.launcher.NewSession(ctx)
	if err != nil {
		c.recordCheck(platform.Name, "error")
		return profile, []string{fmt.Sprintf("%s: browser session failed: %v", platform.Name, err)}
	}
	defer session.Close()

	for _, term := range terms {
		found, verified, url, err := c.searchTerm(ctx, session, platform, term)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: term %q: %v", platform.Name, term, err))
			if isBotDetection(err) {
				if sleepErr := retry.Sleep(ctx, 10*time.Second, 20*time.Second); sleepErr != nil {
					break
				}
			}
			continue
		}
		if found {
			profile.Exists = true
			profile.Verified = verified
			profile.URLs = []string{url}
			break
		}
	}

	if profile.Exists {
		c.recordCheck(platform.Name, "found")
	} else {
		c.recordCheck(platform.Name, "not_found")
	}
	return profile, warnings
}

func (c *Crawler) recordCheck(platform, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordPlatformCheck(platform, outcome)
	}
}

// searchTerm issues one search-engine query and probes the candidates it
// yields.
func (c *Crawler) searchTerm(ctx context.Context, session browser.Session, platform Platform, term string) (found, verified bool, profileURL string, err error) {
	navCtx, cancel := context.WithTimeout(ctx, c.opts.NavTimeout)
	defer cancel()

	query := url.QueryEscape(platform.SearchName + " " + term)
	if err := session.Navigate(navCtx, fmt.Sprintf(c.opts.SearchURL, query)); err != nil {
		return false, false, "", fmt.Errorf("navigate: %w", err)
	}

	c.dismissConsent(navCtx, session)

	if err := session.SimulateHuman(navCtx); err != nil && c.logger != nil {
		c.logger.WithError(err).Debug("Human simulation failed, continuing")
	}

	body, err := session.BodyText(navCtx)
	if err != nil {
		return false, false, "", fmt.Errorf("read page: %w", err)
	}
	if isBotChallenge(body) {
		c.captureChallenge(navCtx, session, platform.Name)
		return false, false, "", errBotChallenge
	}

	links, err := session.Links(navCtx, "a")
	if err != nil {
		return false, false, "", fmt.Errorf("extract links: %w", err)
	}

	candidates, verifiedByURL := filterCandidates(platform, links, c.opts.MaxCandidates)
	for _, candidate := range candidates {
		if c.prober.Exists(ctx, candidate) {
			return true, verifiedByURL[candidate], candidate, nil
		}
	}
	return false, false, "", nil
}

// filterCandidates normalizes and dedupes result links, keeping track of
// which ones the result page labelled as verified.
func filterCandidates(platform Platform, links []browser.Link, max int) ([]string, map[string]bool) {
	var candidates []string
	verified := make(map[string]bool)
	seen := make(map[string]bool)

	for _, link := range links {
		normalized, ok := platform.NormalizeCandidate(link.Href)
		if !ok || seen[normalized] {
			continue
		}
		seen[normalized] = true
		candidates = append(candidates, normalized)
		if strings.Contains(strings.ToLower(link.Text), "verified") {
			verified[normalized] = true
		}
		if len(candidates) >= max {
			break
		}
	}
	return candidates, verified
}

// Consent dialog selectors for the search engines the crawler is pointed
// at. Absence of the dialog is the common case; failures are ignored.
var consentSelectors = []string{
	"#bnp_btn_accept",
	"button#L2AGLb",
	"button[aria-label='Accept all']",
}

func (c *Crawler) dismissConsent(ctx context.Context, session browser.Session) {
	for _, sel := range consentSelectors {
		clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := session.Click(clickCtx, sel)
		cancel()
		if err == nil {
			return
		}
	}
}

func (c *Crawler) captureChallenge(ctx context.Context, session browser.Session, platformName string) {
	if c.opts.ScreenshotDir == "" {
		return
	}
	shot, err := session.Screenshot(ctx)
	if err != nil {
		return
	}
	name := fmt.Sprintf("challenge_%s_%d.png", platformName, time.Now().UnixMilli())
	path := filepath.Join(c.opts.ScreenshotDir, name)
	if err := os.WriteFile(path, shot, 0o644); err == nil && c.logger != nil {
		c.logger.WithField("path", path).Warn("Bot challenge encountered, screenshot captured")
	}
}

var errBotChallenge = fmt.Errorf("bot challenge page")

var botChallengeMarkers = []string{
	"captcha",
	"unusual traffic",
	"verify you are human",
	"are you a robot",
	"enable javascript and cookies to continue",
	"access to this page has been denied",
}

func isBotChallenge(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range botChallengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

var botDetectionKeywords = []string{"bot challenge", "captcha", "blocked", "rate limit", "timeout", "deadline exceeded"}

// isBotDetection classifies failures that should back off hard before the
// next attempt.
func isBotDetection(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range botDetectionKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// searchTerms derives up to four queries: the bare domain token and the
// organization name, each alone and qualified with "title" to separate the
// company from unrelated namesakes.
func searchTerms(domain, orgName string) []string {
	token := domain
	if i := strings.IndexByte(token, '.'); i > 0 {
		token = token[:i]
	}

	terms := []string{token, token + " title"}
	org := strings.TrimSpace(orgName)
	if org != "" && !strings.EqualFold(org, token) {
		terms = append(terms, org, org+" title")
	}
	return terms
}
