package website

import (
	"context"
	"encoding/xml"
	"regexp"
	"sort"
	"strings"
)

const maxNestedSitemaps = 10

// contactPathRe is end-anchored so /about matches but /about-our-rates does
// not.
var contactPathRe = regexp.MustCompile(`(?i)/(contact(-us)?|about(-us)?|locations?|offices?|team|our-team|support|help|get-in-touch|reach(-us)?)/?$`)

type sitemapDoc struct {
	XMLName  xml.Name
	Sitemaps []sitemapLoc `xml:"sitemap"`
	URLs     []sitemapLoc `xml:"url"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// discoverContactPages finds candidate contact pages for the site at
// baseURL: robots.txt Sitemap directive first, /sitemap.xml probe second.
// Returns contact-like URLs, contact-containing ones first.
func (v *Validator) discoverContactPages(ctx context.Context, baseURL string) []string {
	baseURL = strings.TrimRight(baseURL, "/")

	sitemapURL := v.sitemapFromRobots(ctx, baseURL)
	if sitemapURL == "" {
		sitemapURL = baseURL + "/sitemap.xml"
	}

	// +1: the top-level document does not count against the nested cap.
	budget := maxNestedSitemaps + 1
	visited := map[string]struct{}{}
	urls := v.collectSitemapURLs(ctx, sitemapURL, visited, &budget)

	var candidates []string
	seen := map[string]struct{}{}
	for _, u := range urls {
		if !contactPathRe.MatchString(u) {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		candidates = append(candidates, u)
	}

	// Contact pages are the best contact-signal source; try them first.
	sort.SliceStable(candidates, func(i, j int) bool {
		return isContactURL(candidates[i]) && !isContactURL(candidates[j])
	})

	return candidates
}

func isContactURL(u string) bool {
	return strings.Contains(strings.ToLower(u), "contact")
}

// sitemapFromRobots reads robots.txt and returns the first Sitemap
// directive, or "".
func (v *Validator) sitemapFromRobots(ctx context.Context, baseURL string) string {
	body, _, err := v.fetch(ctx, v.insecure, baseURL+"/robots.txt")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 8 && strings.EqualFold(line[:8], "sitemap:") {
			return strings.TrimSpace(line[8:])
		}
	}
	return ""
}

// collectSitemapURLs parses one sitemap document. Index documents recurse
// into nested sitemaps, bounded by budget and excluding self references so
// a sitemap listing itself cannot loop.
func (v *Validator) collectSitemapURLs(ctx context.Context, sitemapURL string, visited map[string]struct{}, budget *int) []string {
	if *budget <= 0 {
		return nil
	}
	if _, ok := visited[sitemapURL]; ok {
		return nil
	}
	visited[sitemapURL] = struct{}{}
	*budget--

	body, _, err := v.fetch(ctx, v.insecure, sitemapURL)
	if err != nil {
		v.logger.WithError(err).WithField("url", sitemapURL).Debug("Sitemap fetch failed")
		return nil
	}

	var doc sitemapDoc
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		v.logger.WithError(err).WithField("url", sitemapURL).Debug("Sitemap parse failed")
		return nil
	}

	var urls []string
	for _, u := range doc.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}

	for _, nested := range doc.Sitemaps {
		loc := strings.TrimSpace(nested.Loc)
		if loc == "" {
			continue
		}
		urls = append(urls, v.collectSitemapURLs(ctx, loc, visited, budget)...)
	}

	return urls
}
