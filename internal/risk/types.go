package risk

// Level is the discrete risk band a score falls into.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Category names. These are fixed: evidence arrives from exactly three
// collectors.
const (
	CategoryWhois       = "whois"
	CategoryWebsite     = "website"
	CategorySocialMedia = "socialMedia"
)

// Rule is one declarative scoring rule, loaded from configuration and never
// hard-coded per domain.
type Rule struct {
	Condition   string   `json:"condition"`
	Value       *float64 `json:"value,omitempty"`
	Score       int      `json:"score"`
	Description string   `json:"description"`
}

// RuleGroup is a named, orderable set of rules that can be toggled as one.
type RuleGroup struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Rules   []Rule `json:"rules"`
}

// Category weights and caps one evidence source's contribution.
type Category struct {
	Weight     float64     `json:"weight"`
	MaxScore   int         `json:"maxScore"`
	RuleGroups []RuleGroup `json:"ruleGroups"`
}

// Thresholds are level cut-offs as percentages of the maximum score.
type Thresholds struct {
	Critical float64 `json:"critical"`
	High     float64 `json:"high"`
	Medium   float64 `json:"medium"`
}

// Config is the versioned risk-configuration document.
type Config struct {
	Version    string     `json:"version"`
	MaxScore   int        `json:"maxScore"`
	Thresholds Thresholds `json:"thresholds"`
	Categories struct {
		Whois       Category `json:"whois"`
		Website     Category `json:"website"`
		SocialMedia Category `json:"socialMedia"`
	} `json:"categories"`
}

// Factor is the evaluation result of one rule against a context.
type Factor struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Condition string `json:"condition"`
	Score     int    `json:"score"`
	Triggered bool   `json:"triggered"`
}

// EvaluationContext is the flattened evidence the three collectors produced.
// Evaluation is a pure function of this struct and the configuration.
type EvaluationContext struct {
	// Registration evidence.
	HasRegistration        bool
	DomainAgeKnown         bool
	DomainAgeDays          int
	ExpiryKnown            bool
	ExpiresWithinDays      int
	RegistrantEmailPresent bool
	RegistrantPhonePresent bool
	PrivacyProtected       bool

	// Website evidence.
	WebsiteAccessible bool
	DNSResolves       bool
	HasTLS            bool
	TLSValid          bool
	TLSSelfSigned     bool
	TLSExpired        bool
	EmailCount        int
	PhoneCount        int
	AddressCount      int

	// Social evidence.
	SocialPlatformCount int
	VerifiedSocialCount int
}

// AssessmentResult is the engine's deterministic output.
type AssessmentResult struct {
	OverallScore    int            `json:"overall_score"`
	MaxScore        int            `json:"max_score"`
	Level           Level          `json:"level"`
	CategoryScores  map[string]int `json:"category_scores"`
	Factors         []Factor       `json:"factors"`
	Recommendations []string       `json:"recommendations"`
	ConfigVersion   string         `json:"config_version"`
}
