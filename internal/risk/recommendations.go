package risk

// advisories maps triggered rule conditions to operator-facing guidance. A
// fixed mapping: recommendations restate which rules fired, they are not
// recomputed from raw evidence.
var advisories = map[string]string{
	"lessThan":               "Domain was registered recently; verify the business has an operating history matching its claims.",
	"missingRegistrantEmail": "No registrant email on record; request direct proof of domain ownership.",
	"missingRegistrantPhone": "No registrant phone on record; confirm a working phone channel before wiring funds.",
	"privacyProtected":       "Registration is privacy-protected; ask the company to confirm ownership through the listed registrar.",
	"noRegistrationData":     "No registration records could be retrieved; treat all other signals with caution.",
	"expiringSoon":           "Domain registration expires soon; legitimate businesses usually renew well in advance.",
	"noWebsite":              "Website is unreachable; independently confirm the company operates at its stated address.",
	"noDNS":                  "Domain does not resolve in DNS; the website address may be misspelled or abandoned.",
	"noSSL":                  "Site is served without TLS; never submit sensitive data to it.",
	"invalidSSL":             "TLS certificate fails verification; connections to this site may be intercepted.",
	"selfSignedSSL":          "TLS certificate is self-signed; this is atypical for a legitimate title company.",
	"expiredSSL":             "TLS certificate has expired; the site is not being actively maintained.",
	"noContactInfo":          "No verifiable contact details found on the website; corroborate contacts through state licensing records.",
	"fewContactMethods":      "Few contact methods found; verify phone and street address independently.",
	"noSocialMedia":          "No social-media footprint found; cross-check the company with state regulators before engaging.",
	"limitedPresence":        "Limited social-media presence; look for independent reviews or references.",
	"noVerifiedAccounts":     "No verified social accounts found; confirm official channels directly with the company.",
}

// recommendationsFor derives advisory text from triggered factors, one entry
// per distinct condition.
func recommendationsFor(factors []Factor) []string {
	var out []string
	seen := map[string]struct{}{}

	for _, f := range factors {
		if !f.Triggered {
			continue
		}
		text, ok := advisories[f.Condition]
		if !ok {
			continue
		}
		if _, dup := seen[f.Condition]; dup {
			continue
		}
		seen[f.Condition] = struct{}{}
		out = append(out, text)
	}
	return out
}
