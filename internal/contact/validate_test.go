package contact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIsValidCleanEmail_Accepts ordinary addresses pass.
func TestIsValidCleanEmail_Accepts(t *testing.T) {
	for _, email := range []string{
		"info@example.com",
		"first.last@sub.example.co",
		"escrow+closing@example-title.com",
	} {
		assert.Truef(t, IsValidCleanEmail(email), "expected %q to be valid", email)
	}
}

// TestIsValidCleanEmail_Rejects each debris heuristic fires.
func TestIsValidCleanEmail_Rejects(t *testing.T) {
	cases := map[string]string{
		"a@b@example.com":                "multiple @ symbols",
		"7035550147john@example.com":     "leading digit run (phone fragment)",
		"info@example.com.com":           "doubled TLD token",
		"info@example.net.net":           "doubled TLD token",
		strings.Repeat("a", 76) + "@x.co": "over 80 characters",
		"not-an-email":                   "no @ at all",
	}
	for email, why := range cases {
		assert.Falsef(t, IsValidCleanEmail(email), "expected %q invalid: %s", email, why)
	}
}

// TestIsValidPhone_NANPStructure area code and exchange may not begin with
// 0 or 1.
func TestIsValidPhone_NANPStructure(t *testing.T) {
	valid := []string{
		"703-555-0147",
		"(202) 234-5678",
		"+1 212 555 0147",
		"2125550147",
	}
	for _, p := range valid {
		assert.Truef(t, IsValidPhone(p), "expected %q valid", p)
	}

	invalid := []string{
		"055-555-0147", // area starts with 0
		"155-555-0147", // area starts with 1
		"703-055-0147", // exchange starts with 0
		"703-155-0147", // exchange starts with 1
		"000-555-0147",
		"111-555-0147",
		"555-0147",           // too few digits
		"1234567890123456",   // too many digits
	}
	for _, p := range invalid {
		assert.Falsef(t, IsValidPhone(p), "expected %q invalid", p)
	}
}

// TestIsValidPhone_InternationalLength 12-15 digit numbers only get the
// length check.
func TestIsValidPhone_InternationalLength(t *testing.T) {
	assert.True(t, IsValidPhone("442071234567"))   // 12 digits
	assert.True(t, IsValidPhone("861012345678901")) // 15 digits
	assert.False(t, IsValidPhone("8610123456789012"))
}

// TestNormalizePhone canonical NANP rendering.
func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "703-555-0147", NormalizePhone("(703) 555.0147"))
	assert.Equal(t, "703-555-0147", NormalizePhone("+1 703 555 0147"))
	assert.Equal(t, "442071234567", NormalizePhone("+44 20 7123 4567"))
}
