package risk

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadConfig reads and validates the risk-configuration document. A
// validation failure here is a fatal startup error for the caller.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read risk config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig unmarshals and validates a configuration document.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse risk config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the structural invariants the engine depends on. Unknown
// rule conditions are allowed; they are ignored at evaluation time.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.MaxScore <= 0 {
		return fmt.Errorf("maxScore must be positive, got %d", c.MaxScore)
	}

	t := c.Thresholds
	if t.Critical <= 0 || t.Critical > 100 {
		return fmt.Errorf("thresholds.critical must be in (0,100], got %v", t.Critical)
	}
	if !(t.Critical > t.High && t.High > t.Medium && t.Medium > 0) {
		return fmt.Errorf("thresholds must satisfy critical > high > medium > 0, got %+v", t)
	}

	for name, cat := range map[string]Category{
		CategoryWhois:       c.Categories.Whois,
		CategoryWebsite:     c.Categories.Website,
		CategorySocialMedia: c.Categories.SocialMedia,
	} {
		if cat.Weight < 0 || cat.Weight > 1 {
			return fmt.Errorf("category %s: weight must be in [0,1], got %v", name, cat.Weight)
		}
		if cat.MaxScore <= 0 {
			return fmt.Errorf("category %s: maxScore must be positive, got %d", name, cat.MaxScore)
		}
		for _, group := range cat.RuleGroups {
			if group.Name == "" {
				return fmt.Errorf("category %s: rule group without a name", name)
			}
			for i, rule := range group.Rules {
				if rule.Condition == "" {
					return fmt.Errorf("category %s group %s: rule %d has no condition", name, group.Name, i)
				}
				if rule.Score < 0 {
					return fmt.Errorf("category %s group %s: rule %q has negative score", name, group.Name, rule.Condition)
				}
			}
		}
	}

	totalWeight := c.Categories.Whois.Weight + c.Categories.Website.Weight + c.Categories.SocialMedia.Weight
	if totalWeight <= 0 {
		return fmt.Errorf("category weights sum to zero")
	}

	return nil
}

// category returns the named category config.
func (c *Config) category(name string) Category {
	switch name {
	case CategoryWhois:
		return c.Categories.Whois
	case CategoryWebsite:
		return c.Categories.Website
	default:
		return c.Categories.SocialMedia
	}
}
