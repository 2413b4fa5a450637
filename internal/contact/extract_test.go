package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const contactPageHTML = `
<html><body>
<h1>Example Title Company</h1>
<p>Email: info@example-title.com</p>
<a href="mailto:escrow@example-title.com?subject=Closing">Escrow desk</a>
<span itemprop="email">legal@example-title.com</span>
<p>Reach us any time at support@example-title.com or call (703) 555-0147.</p>
<p>Fax: 703.555.0199</p>
<address>123 Main Street, Suite 400, Fairfax, VA 22030</address>
</body></html>`

// TestExtractEmails_FourPassesUnion mailto, label, markup and free-text
// passes all contribute, deduplicated.
func TestExtractEmails_FourPassesUnion(t *testing.T) {
	emails := ExtractEmails(contactPageHTML)

	assert.ElementsMatch(t, []string{
		"info@example-title.com",
		"escrow@example-title.com",
		"legal@example-title.com",
		"support@example-title.com",
	}, emails)
}

// TestExtractEmails_Dedupe the same address found by several passes appears
// once.
func TestExtractEmails_Dedupe(t *testing.T) {
	html := `<a href="mailto:info@x.com">info@x.com</a> Email: info@x.com`
	assert.Equal(t, []string{"info@x.com"}, ExtractEmails(html))
}

// TestExtractPhones_NormalizesPunctuation differently punctuated renderings
// of one number collapse.
func TestExtractPhones_NormalizesPunctuation(t *testing.T) {
	text := `Call (703) 555-0147 or 703.555.0147 or +1 703 555 0147.`
	assert.Equal(t, []string{"703-555-0147"}, ExtractPhones(text))
}

// TestExtractPhones_RejectsInvalid structurally invalid NANP numbers are
// dropped during extraction.
func TestExtractPhones_RejectsInvalid(t *testing.T) {
	text := `Bogus: 055-555-0147 and 703-155-0147 and 111-555-0147. Real: 703-555-0147.`
	assert.Equal(t, []string{"703-555-0147"}, ExtractPhones(text))
}

// TestExtractAddresses street suffix + state + ZIP pattern.
func TestExtractAddresses(t *testing.T) {
	addrs := ExtractAddresses(contactPageHTML)
	assert.Len(t, addrs, 1)
	assert.Contains(t, addrs[0], "123 Main Street")
	assert.Contains(t, addrs[0], "VA 22030")
}

// TestExtract_Bundle the combined extractor fills all three sets.
func TestExtract_Bundle(t *testing.T) {
	bundle := Extract(contactPageHTML)

	assert.Len(t, bundle.Emails, 4)
	assert.Len(t, bundle.Phones, 2)
	assert.Len(t, bundle.Addresses, 1)
	assert.False(t, bundle.IsSparse())
}

// TestBundle_Merge merging deduplicates across bundles.
func TestBundle_Merge(t *testing.T) {
	a := Bundle{Emails: []string{"info@x.com"}, Phones: []string{"703-555-0147"}}
	b := Bundle{Emails: []string{"info@x.com", "sales@x.com"}, Addresses: []string{"1 Elm St, Fairfax, VA 22030"}}

	a.Merge(b)

	assert.Equal(t, []string{"info@x.com", "sales@x.com"}, a.Emails)
	assert.Equal(t, []string{"703-555-0147"}, a.Phones)
	assert.Len(t, a.Addresses, 1)
}

// TestBundle_IsSparse the crawl trigger: fewer than 2 emails or no phone.
func TestBundle_IsSparse(t *testing.T) {
	assert.True(t, (&Bundle{}).IsSparse())
	assert.True(t, (&Bundle{Emails: []string{"a@x.com", "b@x.com"}}).IsSparse())
	assert.True(t, (&Bundle{Emails: []string{"a@x.com"}, Phones: []string{"703-555-0147"}}).IsSparse())
	assert.False(t, (&Bundle{Emails: []string{"a@x.com", "b@x.com"}, Phones: []string{"703-555-0147"}}).IsSparse())
}
