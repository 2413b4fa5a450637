package vetting

import (
	"time"

	"github.com/titlevet/titlevet-go/internal/risk"
	"github.com/titlevet/titlevet-go/internal/social"
	"github.com/titlevet/titlevet-go/internal/website"
	"github.com/titlevet/titlevet-go/internal/whois"
)

// Evidence groups what the three collectors produced. A collector that
// failed or was disabled leaves its slot nil.
type Evidence struct {
	Whois       *whois.LookupResult `json:"whois,omitempty"`
	Website     *website.Signals    `json:"website,omitempty"`
	SocialMedia *social.CrawlResult `json:"socialMedia,omitempty"`
}

// Report is the response envelope for one vetting run.
type Report struct {
	Success        bool                   `json:"success"`
	Data           Evidence               `json:"data"`
	RiskAssessment *risk.AssessmentResult `json:"riskAssessment,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"requestId"`
	Domain         string                 `json:"domain"`
	Cached         bool                   `json:"cached,omitempty"`
}

// evaluationContext flattens the evidence for the risk engine.
func evaluationContext(ev Evidence) *risk.EvaluationContext {
	ectx := &risk.EvaluationContext{}

	if w := ev.Whois; w != nil {
		ectx.HasRegistration = len(w.Merged) > 0
		ectx.DomainAgeKnown = w.CreatedAt != nil
		ectx.DomainAgeDays = w.DomainAgeDays
		ectx.RegistrantEmailPresent = w.HasRegistrantEmail()
		ectx.RegistrantPhonePresent = w.HasRegistrantPhone()
		ectx.PrivacyProtected = w.PrivacyProtected
		if w.ExpiresAt != nil {
			ectx.ExpiryKnown = true
			ectx.ExpiresWithinDays = int(time.Until(*w.ExpiresAt).Hours() / 24)
		}
	}

	if s := ev.Website; s != nil {
		ectx.WebsiteAccessible = s.Accessible
		ectx.DNSResolves = s.DNSResolves
		ectx.HasTLS = s.HasTLS
		ectx.TLSValid = s.TLSValid
		ectx.TLSSelfSigned = s.TLSSelfSigned
		ectx.TLSExpired = s.TLSExpired
		ectx.EmailCount = len(s.Contacts.Emails)
		ectx.PhoneCount = len(s.Contacts.Phones)
		ectx.AddressCount = len(s.Contacts.Addresses)
	}

	if sm := ev.SocialMedia; sm != nil {
		ectx.SocialPlatformCount = sm.PlatformCount
		ectx.VerifiedSocialCount = sm.VerifiedCount
	}

	return ectx
}
