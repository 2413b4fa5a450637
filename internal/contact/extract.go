package contact

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	emailTextRe  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	emailLabelRe = regexp.MustCompile(`(?i)e-?mail(?:\s+address)?\s*[:\-]\s*([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)

	phoneRe = regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)

	streetSuffixes = `Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Court|Ct|Place|Pl|Way|Circle|Cir|Parkway|Pkwy|Highway|Hwy|Trail|Trl|Terrace|Ter`
	stateAbbrevs   = `A[KLRZ]|C[AOT]|D[CE]|FL|GA|HI|I[ADLN]|K[SY]|LA|M[ADEINOST]|N[CDEHJMVY]|O[HKR]|PA|RI|S[CD]|T[NX]|UT|V[AT]|W[AIVY]`

	addressRe = regexp.MustCompile(`(?i)\b\d{1,6}\s+(?:[A-Za-z0-9.'\-]+\s+){1,5}(?:` + streetSuffixes + `)\.?\s*,?\s*(?:(?:Suite|Ste|Unit|Apt|#)\.?\s*[A-Za-z0-9\-]+\s*,?\s*)?[A-Za-z.\- ]{2,30},?\s+(` + stateAbbrevs + `)\s+\d{5}(?:-\d{4})?\b`)
)

// Extract runs all extractors over a block of HTML or plain text. Pure
// function; no network access.
func Extract(content string) Bundle {
	return Bundle{
		Emails:    ExtractEmails(content),
		Phones:    ExtractPhones(content),
		Addresses: ExtractAddresses(content),
	}
}

// ExtractEmails combines four passes: mailto links, label patterns
// ("Email: x@y"), structured markup attributes, and a free-text sweep. The
// union is validated and deduplicated.
func ExtractEmails(content string) []string {
	var found []string

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err == nil {
		// Pass 1: mailto hrefs.
		doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			addr := strings.TrimPrefix(href, "mailto:")
			if idx := strings.IndexAny(addr, "?&"); idx >= 0 {
				addr = addr[:idx]
			}
			found = append(found, addr)
		})

		// Pass 3: structured markup.
		doc.Find(`[itemprop="email"], [data-email]`).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("data-email"); ok {
				found = append(found, v)
			}
			if v, ok := s.Attr("content"); ok {
				found = append(found, v)
			}
			found = append(found, strings.TrimSpace(s.Text()))
		})
	}

	// Pass 2: label patterns.
	for _, m := range emailLabelRe.FindAllStringSubmatch(content, -1) {
		found = append(found, m[1])
	}

	// Pass 4: free-text regex. HTML frequently concatenates unrelated text
	// nodes into these matches; the validator weeds out the debris.
	found = append(found, emailTextRe.FindAllString(content, -1)...)

	var out []string
	seen := map[string]struct{}{}
	for _, raw := range found {
		email := strings.ToLower(strings.TrimSpace(raw))
		if !IsValidCleanEmail(email) {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// ExtractPhones finds NANP-like numbers, normalizes punctuation, and keeps
// only structurally valid ones.
func ExtractPhones(content string) []string {
	var out []string
	seen := map[string]struct{}{}

	for _, raw := range phoneRe.FindAllString(content, -1) {
		if !IsValidPhone(raw) {
			continue
		}
		normalized := NormalizePhone(raw)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// ExtractAddresses matches US street addresses: number, street name with a
// known suffix token, city, state abbreviation, ZIP.
func ExtractAddresses(content string) []string {
	var out []string
	seen := map[string]struct{}{}

	for _, raw := range addressRe.FindAllString(content, -1) {
		addr := strings.Join(strings.Fields(raw), " ")
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}
