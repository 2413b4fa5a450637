package risk

import (
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

// conditionFunc evaluates one rule condition against the context. The second
// return reports whether the condition was evaluable at all.
type conditionFunc func(ectx *EvaluationContext, rule Rule) (triggered, ok bool)

func ruleValue(rule Rule, fallback float64) float64 {
	if rule.Value != nil {
		return *rule.Value
	}
	return fallback
}

// conditions is the fixed dispatch table. Anything not listed here is
// unknown and counts as not triggered.
var conditions = map[string]conditionFunc{
	"lessThan": func(ectx *EvaluationContext, rule Rule) (bool, bool) {
		if !ectx.DomainAgeKnown {
			return false, false
		}
		return float64(ectx.DomainAgeDays) < ruleValue(rule, 180), true
	},
	"missingRegistrantEmail": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return !ectx.RegistrantEmailPresent, true
	},
	"missingRegistrantPhone": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return !ectx.RegistrantPhonePresent, true
	},
	"privacyProtected": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return ectx.PrivacyProtected, true
	},
	"noRegistrationData": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return !ectx.HasRegistration, true
	},
	"expiringSoon": func(ectx *EvaluationContext, rule Rule) (bool, bool) {
		if !ectx.ExpiryKnown {
			return false, false
		}
		return float64(ectx.ExpiresWithinDays) < ruleValue(rule, 30), true
	},
	"noWebsite": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return !ectx.WebsiteAccessible, true
	},
	"noDNS": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return !ectx.DNSResolves, true
	},
	"noSSL": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return !ectx.HasTLS, true
	},
	"invalidSSL": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return ectx.HasTLS && !ectx.TLSValid, true
	},
	"selfSignedSSL": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return ectx.TLSSelfSigned, true
	},
	"expiredSSL": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return ectx.TLSExpired, true
	},
	"noContactInfo": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return ectx.EmailCount+ectx.PhoneCount+ectx.AddressCount == 0, true
	},
	"fewContactMethods": func(ectx *EvaluationContext, rule Rule) (bool, bool) {
		methods := 0
		if ectx.EmailCount > 0 {
			methods++
		}
		if ectx.PhoneCount > 0 {
			methods++
		}
		if ectx.AddressCount > 0 {
			methods++
		}
		return float64(methods) < ruleValue(rule, 2), true
	},
	"noSocialMedia": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return ectx.SocialPlatformCount == 0, true
	},
	"limitedPresence": func(ectx *EvaluationContext, rule Rule) (bool, bool) {
		return float64(ectx.SocialPlatformCount) < ruleValue(rule, 2), true
	},
	"noVerifiedAccounts": func(ectx *EvaluationContext, _ Rule) (bool, bool) {
		return ectx.VerifiedSocialCount == 0, true
	},
}

// Engine evaluates evidence against the current configuration. The
// configuration can be swapped at runtime (hot reload); evaluation itself is
// pure.
type Engine struct {
	mu     sync.RWMutex
	cfg    *Config
	logger *logrus.Logger
}

func NewEngine(cfg *Config, logger *logrus.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// UpdateConfig atomically replaces the active configuration.
func (e *Engine) UpdateConfig(cfg *Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.logger.WithField("version", cfg.Version).Info("Risk configuration updated")
}

// CurrentConfig returns the active configuration.
func (e *Engine) CurrentConfig() *Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Evaluate scores the context with the active configuration.
func (e *Engine) Evaluate(ectx *EvaluationContext) *AssessmentResult {
	return Evaluate(ectx, e.CurrentConfig(), e.logger)
}

// Evaluate is the pure scoring function: (context, config) → result.
func Evaluate(ectx *EvaluationContext, cfg *Config, logger *logrus.Logger) *AssessmentResult {
	result := &AssessmentResult{
		MaxScore:       cfg.MaxScore,
		CategoryScores: make(map[string]int, 3),
		ConfigVersion:  cfg.Version,
	}

	weighted := 0.0
	for _, name := range []string{CategoryWhois, CategoryWebsite, CategorySocialMedia} {
		cat := cfg.category(name)
		score := evaluateCategory(ectx, name, cat, result, logger)
		result.CategoryScores[name] = score
		weighted += float64(score) * cat.Weight
	}

	result.OverallScore = int(math.Round(weighted))
	result.Level = levelFor(result.OverallScore, cfg.MaxScore, cfg.Thresholds)
	result.Recommendations = recommendationsFor(result.Factors)

	return result
}

// evaluateCategory sums triggered rule scores across enabled groups, clamped
// to the category maximum.
func evaluateCategory(ectx *EvaluationContext, name string, cat Category, result *AssessmentResult, logger *logrus.Logger) int {
	total := 0

	for _, group := range cat.RuleGroups {
		if !group.Enabled {
			continue
		}
		for _, rule := range group.Rules {
			factor := Factor{
				ID:        fmt.Sprintf("%s.%s.%s", name, group.Name, rule.Condition),
				Category:  name,
				Condition: rule.Condition,
				Score:     rule.Score,
			}

			fn, known := conditions[rule.Condition]
			if !known {
				logger.WithFields(logrus.Fields{
					"category":  name,
					"condition": rule.Condition,
				}).Warn("Unknown rule condition, treated as not triggered")
				result.Factors = append(result.Factors, factor)
				continue
			}

			triggered, ok := fn(ectx, rule)
			if !ok {
				logger.WithFields(logrus.Fields{
					"category":  name,
					"condition": rule.Condition,
				}).Debug("Rule condition not evaluable for this context")
			}
			factor.Triggered = triggered
			if triggered {
				total += rule.Score
			}
			result.Factors = append(result.Factors, factor)
		}
	}

	if total < 0 {
		total = 0
	}
	if total > cat.MaxScore {
		total = cat.MaxScore
	}
	return total
}

// levelFor buckets a score into a level by percentage thresholds, falling
// through to low. Deterministic and pure.
func levelFor(score, maxScore int, t Thresholds) Level {
	if maxScore <= 0 {
		return LevelLow
	}
	pct := float64(score) / float64(maxScore) * 100

	switch {
	case pct >= t.Critical:
		return LevelCritical
	case pct >= t.High:
		return LevelHigh
	case pct >= t.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}
