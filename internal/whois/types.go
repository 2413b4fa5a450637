package whois

import "time"

// Tier names one level of the registration-record server hierarchy.
type Tier string

const (
	TierRoot      Tier = "root"
	TierRegistry  Tier = "registry"
	TierRegistrar Tier = "registrar"
)

// Record is a flat field map parsed from one server's response.
type Record map[string]string

// RawRecordSet holds the per-tier records. Tiers are independent; any
// subset may be empty when a tier failed.
type RawRecordSet map[Tier]Record

// LookupResult is the resolver's output for one domain: the raw tiers, the
// merged record, and signals derived for risk evaluation.
type LookupResult struct {
	Domain   string       `json:"domain"`
	Raw      RawRecordSet `json:"raw,omitempty"`
	Merged   Record       `json:"merged"`
	Warnings []string     `json:"warnings,omitempty"`

	Registrar        string     `json:"registrar,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	DomainAgeDays    int        `json:"domain_age_days"`
	NameServers      []string   `json:"name_servers,omitempty"`
	RegistrantEmail  string     `json:"registrant_email,omitempty"`
	RegistrantPhone  string     `json:"registrant_phone,omitempty"`
	PrivacyProtected bool       `json:"privacy_protected"`
}

// HasRegistrantEmail reports whether a non-redacted registrant email was found.
func (r *LookupResult) HasRegistrantEmail() bool {
	return r.RegistrantEmail != ""
}

// HasRegistrantPhone reports whether a non-redacted registrant phone was found.
func (r *LookupResult) HasRegistrantPhone() bool {
	return r.RegistrantPhone != ""
}
