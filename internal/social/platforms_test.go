package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func platformByName(t *testing.T, name string) Platform {
	t.Helper()
	for _, p := range Platforms {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("unknown platform %q", name)
	return Platform{}
}

func TestNormalizeCandidate(t *testing.T) {
	tests := []struct {
		platform string
		raw      string
		want     string
		ok       bool
	}{
		{"linkedin", "https://www.linkedin.com/company/acme-title/about?trk=x", "https://www.linkedin.com/company/acme-title/about", true},
		{"linkedin", "https://linkedin.com/in/jane-doe", "https://www.linkedin.com/in/jane-doe", true},
		{"linkedin", "https://www.linkedin.com/jobs/view/12345", "", false},
		{"linkedin", "https://www.linkedin.com/company/", "", false},

		{"facebook", "https://m.facebook.com/acmetitle?ref=page#posts", "https://www.facebook.com/acmetitle", true},
		{"facebook", "https://www.facebook.com/groups/titleagents", "", false},
		{"facebook", "https://www.facebook.com/login", "", false},

		{"twitter", "https://twitter.com/AcmeTitle?s=20", "https://x.com/AcmeTitle", true},
		{"twitter", "https://x.com/acmetitle", "https://x.com/acmetitle", true},
		{"twitter", "https://x.com/search?q=acme", "", false},
		{"twitter", "https://x.com/i/flow/login", "", false},

		{"instagram", "https://www.instagram.com/acmetitle/", "https://www.instagram.com/acmetitle", true},
		{"instagram", "https://www.instagram.com/p/Cxyz123/", "", false},
		{"instagram", "https://www.instagram.com/explore/tags/title/", "", false},

		// Wrong host and non-http schemes never pass.
		{"facebook", "https://example.com/acmetitle", "", false},
		{"facebook", "javascript:void(0)", "", false},
		{"facebook", "https://www.facebook.com/", "", false},
	}

	for _, tt := range tests {
		got, ok := platformByName(t, tt.platform).NormalizeCandidate(tt.raw)
		assert.Equal(t, tt.ok, ok, "%s: %s", tt.platform, tt.raw)
		assert.Equal(t, tt.want, got, "%s: %s", tt.platform, tt.raw)
	}
}
