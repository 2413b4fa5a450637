package vetting

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/titlevet/titlevet-go/internal/apperrors"
)

var domainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// NormalizeDomain reduces user input, a bare domain or a full URL, to a
// lowercase hostname. Malformed input yields a validation error.
func NormalizeDomain(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", apperrors.NewValidation("url is required")
	}

	if strings.Contains(candidate, "://") {
		u, err := url.Parse(candidate)
		if err != nil || u.Hostname() == "" {
			return "", apperrors.NewValidation("malformed url")
		}
		candidate = u.Hostname()
	} else {
		if i := strings.IndexAny(candidate, "/?#"); i >= 0 {
			candidate = candidate[:i]
		}
		if host, _, err := net.SplitHostPort(candidate); err == nil {
			candidate = host
		}
	}

	candidate = strings.ToLower(strings.TrimSuffix(candidate, "."))
	if !domainRe.MatchString(candidate) {
		return "", apperrors.NewValidation("invalid domain name")
	}
	return candidate, nil
}
