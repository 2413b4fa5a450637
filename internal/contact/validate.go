package contact

import (
	"regexp"
	"strings"
)

var (
	emailShapeRe   = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	leadingDigitRe = regexp.MustCompile(`^\d{3,}`)
	digitsOnlyRe   = regexp.MustCompile(`\D`)
)

// IsValidCleanEmail rejects strings that look like an email but are really
// page debris: phone numbers concatenated with a name, doubled TLDs from
// joined text nodes, or overlong runs.
func IsValidCleanEmail(email string) bool {
	if strings.Count(email, "@") != 1 {
		return false
	}
	if len(email) > 80 {
		return false
	}
	if !emailShapeRe.MatchString(email) {
		return false
	}

	parts := strings.SplitN(email, "@", 2)
	local, domain := parts[0], parts[1]

	// A local part opening with a digit run is usually a phone fragment the
	// extractor glued onto a following word.
	if leadingDigitRe.MatchString(local) {
		return false
	}

	// Doubled TLD tokens (.com.com) mean two text nodes were concatenated.
	labels := strings.Split(strings.ToLower(domain), ".")
	for i := 1; i < len(labels); i++ {
		if labels[i] != "" && labels[i] == labels[i-1] {
			return false
		}
	}

	return true
}

// IsValidPhone applies NANP structure rules: 10 to 15 digits, and for
// NANP-length numbers neither the area code nor the exchange may begin with
// 0 or 1 or be literally 000/111.
func IsValidPhone(phone string) bool {
	digits := digitsOnlyRe.ReplaceAllString(phone, "")

	if len(digits) < 10 || len(digits) > 15 {
		return false
	}

	// Strip the +1 country code to inspect the NANP core.
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		// Longer international numbers only get the length check.
		return true
	}

	area, exchange := digits[0:3], digits[3:6]
	for _, part := range []string{area, exchange} {
		if part[0] == '0' || part[0] == '1' {
			return false
		}
		if part == "000" || part == "111" {
			return false
		}
	}
	return true
}

// NormalizePhone renders a NANP number as XXX-XXX-XXXX; other lengths keep
// bare digits.
func NormalizePhone(phone string) string {
	digits := digitsOnlyRe.ReplaceAllString(phone, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) == 10 {
		return digits[0:3] + "-" + digits[3:6] + "-" + digits[6:10]
	}
	return digits
}
