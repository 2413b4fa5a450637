package whois

import (
	"strings"
	"time"
)

// ParseResponse turns a raw port-43 response into a field map. Comment and
// disclaimer lines are skipped; repeated keys accumulate comma-separated so
// multi-valued fields like name servers survive.
func ParseResponse(raw string) Record {
	record := make(Record)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">>>") {
			continue
		}
		if !strings.Contains(line, ":") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		// URLs split on the scheme colon are not fields.
		if strings.HasPrefix(strings.ToLower(value), "//") {
			continue
		}

		if existing, ok := record[key]; ok {
			if !strings.Contains(existing, value) {
				record[key] = existing + ", " + value
			}
		} else {
			record[key] = value
		}
	}

	return record
}

// lookupField finds a record value whose key contains a needle
// (case-insensitive). Needles are tried in order; among several matching
// keys the shortest wins, so "Registrar" beats "Registrar WHOIS Server".
func lookupField(record Record, needles ...string) string {
	for _, n := range needles {
		bestKey := ""
		for key := range record {
			if !strings.Contains(strings.ToLower(key), n) {
				continue
			}
			if bestKey == "" || len(key) < len(bestKey) {
				bestKey = key
			}
		}
		if bestKey != "" {
			return record[bestKey]
		}
	}
	return ""
}

var dateFormats = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.0Z",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"02/01/2006",
	"January 2 2006",
}

// parseDate tries the date layouts registrars actually emit. Returns nil
// when none match.
func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	// Some registries append a zone name after the timestamp.
	if idx := strings.Index(value, " ("); idx > 0 {
		value = value[:idx]
	}
	for _, f := range dateFormats {
		if t, err := time.Parse(f, value); err == nil {
			return &t
		}
	}
	return nil
}

var privacyMarkers = []string{
	"redacted", "privacy", "private", "proxy", "withheld", "data protected",
	"not disclosed", "gdpr",
}

// looksRedacted reports whether a contact value is a privacy placeholder
// rather than real data.
func looksRedacted(value string) bool {
	lower := strings.ToLower(value)
	for _, m := range privacyMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// deriveSignals fills the scoring-relevant fields of result from its merged
// record.
func deriveSignals(result *LookupResult, now time.Time) {
	merged := result.Merged

	result.Registrar = lookupField(merged, "registrar")

	if v := lookupField(merged, "creation date", "created", "registered on", "registration time"); v != "" {
		// A merged multi-value field keeps the first (highest-priority) entry.
		first := strings.SplitN(v, ",", 2)[0]
		if t := parseDate(first); t != nil {
			result.CreatedAt = t
			result.DomainAgeDays = int(now.Sub(*t).Hours() / 24)
		}
	}

	if v := lookupField(merged, "registry expiry", "expiration date", "expiry date", "expires"); v != "" {
		first := strings.SplitN(v, ",", 2)[0]
		if t := parseDate(first); t != nil {
			result.ExpiresAt = t
		}
	}

	if v := lookupField(merged, "name server", "nserver"); v != "" {
		for _, ns := range strings.Split(v, ",") {
			ns = strings.TrimSpace(strings.ToLower(ns))
			if ns != "" {
				result.NameServers = append(result.NameServers, ns)
			}
		}
	}

	email := lookupField(merged, "registrant email")
	if email == "" {
		email = lookupField(merged, "admin email")
	}
	if email != "" && !looksRedacted(email) {
		result.RegistrantEmail = email
	}

	phone := lookupField(merged, "registrant phone")
	if phone == "" {
		phone = lookupField(merged, "admin phone")
	}
	if phone != "" && !looksRedacted(phone) {
		result.RegistrantPhone = phone
	}

	for _, needle := range []string{"registrant name", "registrant organization", "registrant email"} {
		if v := lookupField(merged, needle); v != "" && looksRedacted(v) {
			result.PrivacyProtected = true
			break
		}
	}
}
