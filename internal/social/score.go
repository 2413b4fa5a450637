package social

// CredibilityScore summarizes breadth and verification of the discovered
// presence on a 0-100 scale: 15 per platform, 10 per verified account, plus
// consistency bonuses for presence on several platforms at once.
func CredibilityScore(profiles []Profile) int {
	platforms := 0
	verified := 0
	for _, p := range profiles {
		if p.Exists {
			platforms++
		}
		if p.Verified {
			verified++
		}
	}

	score := platforms*15 + verified*10
	if platforms >= 2 {
		score += 20
	}
	if platforms >= 3 {
		score += 15
	}
	if platforms >= 4 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

// vettingAssessment turns the profile counts into the qualitative findings
// shown in the report.
func vettingAssessment(platformCount, verifiedCount int) []string {
	var out []string

	switch {
	case platformCount == 0:
		out = append(out,
			"No digital footprint found on major social platforms",
			"High risk: legitimate title companies typically maintain a social presence")
	case platformCount == 1:
		out = append(out, "Limited social presence: found on a single platform")
	default:
		out = append(out,
			"Established social presence across multiple platforms",
			"Low risk indicator: consistent multi-platform footprint")
	}

	if verifiedCount > 0 {
		out = append(out, "Verified account(s) add credibility")
	} else if platformCount > 0 {
		out = append(out, "No verified accounts among the discovered profiles")
	}
	return out
}
