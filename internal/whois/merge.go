package whois

import (
	"strings"
	"unicode"
)

// Boilerplate fields carry legal text, not registration data. They are
// stripped before deduplication so they never win a key collision.
var boilerplateKeys = []string{
	"termsofuse",
	"noticeandtermsofuse",
	"notice",
	"lastupdateofwhoisdatabase",
	"urloftheicannwhoisinaccuracycomplaintform",
	"bythesubmissionofthisquery",
	"disclaimer",
	"comment",
}

// normalizeKey reduces a field name to its logical form: lowercase with all
// whitespace and punctuation removed. Two keys with the same normalized form
// are the same logical field.
func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func isBoilerplateKey(normalized string) bool {
	for _, b := range boilerplateKeys {
		if strings.Contains(normalized, b) {
			return true
		}
	}
	return false
}

// keyQuality scores how readable a field name is. Mixed case and embedded
// spaces are rewarded, all-lowercase penalized; shorter keys break ties in
// mergeEntry.
func keyQuality(key string) int {
	score := 0

	hasUpper := strings.IndexFunc(key, unicode.IsUpper) >= 0
	hasLower := strings.IndexFunc(key, unicode.IsLower) >= 0

	if hasUpper && hasLower {
		score += 3
	}
	if strings.Contains(key, " ") {
		score += 2
	}
	if hasLower && !hasUpper {
		score -= 2
	}

	return score
}

// keyBeats reports whether key a is the better field name: higher quality,
// then shorter, then lexicographically smaller. The final tie-break keeps
// merging independent of map iteration order.
func keyBeats(aKey string, aScore int, bKey string, bScore int) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	if len(aKey) != len(bKey) {
		return len(aKey) < len(bKey)
	}
	return aKey < bKey
}

type mergeEntry struct {
	key      string
	keyScore int
	value    string
	tierRank int
}

// tierPriority orders tiers for value collisions: registry beats registrar
// beats root.
var tierPriority = map[Tier]int{
	TierRoot:      0,
	TierRegistrar: 1,
	TierRegistry:  2,
}

// Merge combines all tiers into a single record. Values follow tier
// priority; among near-duplicate keys the better-formatted name is kept.
// The returned record never contains two keys with the same normalized form.
func Merge(raw RawRecordSet) Record {
	entries := make(map[string]*mergeEntry)

	for _, tier := range []Tier{TierRoot, TierRegistrar, TierRegistry} {
		record := raw[tier]
		rank := tierPriority[tier]

		for key, value := range record {
			norm := normalizeKey(key)
			if norm == "" || isBoilerplateKey(norm) {
				continue
			}

			score := keyQuality(key)
			existing, ok := entries[norm]
			if !ok {
				entries[norm] = &mergeEntry{key: key, keyScore: score, value: value, tierRank: rank}
				continue
			}

			// Higher-priority tier wins the value. Within one tier the
			// better-formatted key's value wins, so the outcome never
			// depends on map iteration order.
			if rank > existing.tierRank {
				existing.value = value
				existing.tierRank = rank
			} else if rank == existing.tierRank && keyBeats(key, score, existing.key, existing.keyScore) {
				existing.value = value
			}
			// Better-formatted name wins the key, regardless of tier. The
			// heuristic decides naming only; values follow tier priority.
			if keyBeats(key, score, existing.key, existing.keyScore) {
				existing.key = key
				existing.keyScore = score
			}
		}
	}

	merged := make(Record, len(entries))
	for _, e := range entries {
		merged[e.key] = e.value
	}
	return merged
}
