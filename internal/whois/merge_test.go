package whois

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMerge_RegistryWinsCollisions registry values beat registrar and root
// for the same logical field.
func TestMerge_RegistryWinsCollisions(t *testing.T) {
	raw := RawRecordSet{
		TierRoot: Record{
			"organisation": "Root Org",
		},
		TierRegistrar: Record{
			"Registrant Organization": "Registrar View LLC",
			"Creation Date":           "2015-01-02T00:00:00Z",
		},
		TierRegistry: Record{
			"Registrant Organization": "Registry View LLC",
		},
	}

	merged := Merge(raw)

	assert.Equal(t, "Registry View LLC", merged["Registrant Organization"])
	assert.Equal(t, "2015-01-02T00:00:00Z", merged["Creation Date"])
}

// TestMerge_NoDuplicateNormalizedKeys no two merged keys share a normalized
// form, whatever the input casing and punctuation.
func TestMerge_NoDuplicateNormalizedKeys(t *testing.T) {
	raw := RawRecordSet{
		TierRoot: Record{
			"registrant email": "root@example.com",
			"REGISTRANT-EMAIL": "also-root@example.com",
		},
		TierRegistrar: Record{
			"Registrant Email": "registrar@example.com",
		},
		TierRegistry: Record{
			"Registrant_Email": "registry@example.com",
		},
	}

	merged := Merge(raw)

	seen := map[string]string{}
	for key := range merged {
		norm := normalizeKey(key)
		prev, dup := seen[norm]
		assert.Falsef(t, dup, "keys %q and %q normalize to the same field", prev, key)
		seen[norm] = key
	}

	// One survivor for the registrant-email field, with the registry value
	// and the best-formatted key name.
	assert.Len(t, merged, 1)
	assert.Equal(t, "registry@example.com", merged["Registrant Email"])
}

// TestMerge_KeyQualityPrefersReadableNames mixed case and spaces beat
// all-lowercase run-together names.
func TestMerge_KeyQualityPrefersReadableNames(t *testing.T) {
	assert.Greater(t, keyQuality("Creation Date"), keyQuality("creationdate"))
	assert.Greater(t, keyQuality("Creation Date"), keyQuality("creation date"))
	assert.Greater(t, keyQuality("CreationDate"), keyQuality("creationdate"))
}

// TestMerge_SameTierCollisionIsDeterministic two keys from the same tier
// normalizing to the same field always resolve the same way: the
// better-formatted key's value survives.
func TestMerge_SameTierCollisionIsDeterministic(t *testing.T) {
	raw := RawRecordSet{
		TierRegistry: Record{
			"Registrant Email": "readable@example.com",
			"registrantemail":  "runtogether@example.com",
		},
	}

	for i := 0; i < 50; i++ {
		merged := Merge(raw)
		assert.Equal(t, "readable@example.com", merged["Registrant Email"])
	}

	// Equal quality and length falls back to lexicographic order.
	raw = RawRecordSet{
		TierRegistrar: Record{
			"Name-Server": "a.ns.example.com",
			"Name.Server": "b.ns.example.com",
		},
	}
	for i := 0; i < 50; i++ {
		merged := Merge(raw)
		assert.Equal(t, "a.ns.example.com", merged["Name-Server"])
	}
}

// TestMerge_StripsBoilerplate legal-notice fields never survive the merge.
func TestMerge_StripsBoilerplate(t *testing.T) {
	raw := RawRecordSet{
		TierRegistry: Record{
			"Domain Name":               "example.com",
			"NOTICE":                    "The expiration date displayed...",
			"Terms of Use":              "You are not authorized to...",
			">>> Last update of whois database": "2024-01-01",
		},
	}

	merged := Merge(raw)

	assert.Contains(t, merged, "Domain Name")
	assert.NotContains(t, merged, "NOTICE")
	assert.NotContains(t, merged, "Terms of Use")
	for key := range merged {
		assert.NotContains(t, normalizeKey(key), "lastupdateofwhoisdatabase")
	}
}

// TestMerge_EmptyTiers any subset of tiers may be missing or empty.
func TestMerge_EmptyTiers(t *testing.T) {
	assert.Empty(t, Merge(RawRecordSet{}))
	assert.Empty(t, Merge(RawRecordSet{TierRegistry: Record{}}))

	merged := Merge(RawRecordSet{TierRoot: Record{"whois": "whois.verisign-grs.com"}})
	assert.Equal(t, "whois.verisign-grs.com", merged["whois"])
}

// TestNormalizeKey punctuation, case and whitespace are all erased.
func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"Registrant Email": "registrantemail",
		"registrant_email": "registrantemail",
		"REGISTRANT-EMAIL": "registrantemail",
		"Name Server":      "nameserver",
	}
	for input, want := range cases {
		assert.Equal(t, want, normalizeKey(input))
	}
}
