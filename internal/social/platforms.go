package social

import (
	"net/url"
	"strings"
)

// Platform describes one social network: where its profiles live and which
// paths on that host actually are profiles.
type Platform struct {
	Name          string
	SearchName    string
	CanonicalHost string
	hosts         map[string]bool
	rejectFirst   map[string]bool
	requireFirst  map[string]bool
}

var Platforms = []Platform{
	{
		Name:          "linkedin",
		SearchName:    "LinkedIn",
		CanonicalHost: "www.linkedin.com",
		hosts:         hostSet("linkedin.com", "www.linkedin.com"),
		requireFirst:  hostSet("company", "in", "school"),
	},
	{
		Name:          "facebook",
		SearchName:    "Facebook",
		CanonicalHost: "www.facebook.com",
		hosts:         hostSet("facebook.com", "www.facebook.com", "m.facebook.com"),
		rejectFirst: hostSet("events", "groups", "marketplace", "help", "login",
			"sharer.php", "sharer", "watch", "photo.php", "hashtag", "pages",
			"search", "public", "people", "policies", "privacy", "reel"),
	},
	{
		Name:          "twitter",
		SearchName:    "X Twitter",
		CanonicalHost: "x.com",
		hosts:         hostSet("x.com", "www.x.com", "twitter.com", "www.twitter.com", "mobile.twitter.com"),
		rejectFirst: hostSet("search", "hashtag", "i", "intent", "home",
			"explore", "share", "settings", "login", "signup", "tos", "privacy"),
	},
	{
		Name:          "instagram",
		SearchName:    "Instagram",
		CanonicalHost: "www.instagram.com",
		hosts:         hostSet("instagram.com", "www.instagram.com"),
		rejectFirst: hostSet("p", "explore", "reel", "reels", "accounts",
			"tags", "stories", "directory", "about", "legal"),
	},
}

func hostSet(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// NormalizeCandidate reduces a raw search-result href to a canonical profile
// URL for the platform, or reports that it is not one. Tracking query
// strings and fragments are stripped; the host is rewritten to the
// canonical one.
func (p Platform) NormalizeCandidate(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if !p.hosts[host] {
		return "", false
	}

	path := strings.Trim(u.EscapedPath(), "/")
	if path == "" {
		return "", false
	}
	segments := strings.Split(path, "/")
	first := strings.ToLower(segments[0])

	if len(p.requireFirst) > 0 {
		if !p.requireFirst[first] || len(segments) < 2 || segments[1] == "" {
			return "", false
		}
	} else if p.rejectFirst[first] {
		return "", false
	}

	return "https://" + p.CanonicalHost + "/" + path, true
}
