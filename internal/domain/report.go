package domain

import "time"

// VetReport is a completed vetting report. Collector evidence and the risk
// assessment are stored as JSON documents; the scalar columns exist for
// listing and filtering.
type VetReport struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID string `gorm:"type:varchar(36);uniqueIndex:uk_request_id;not null" json:"request_id"`
	Domain    string `gorm:"type:varchar(255);index:idx_report_domain;not null" json:"domain"`

	OverallScore int    `gorm:"type:smallint" json:"overall_score"`
	RiskLevel    string `gorm:"type:varchar(10);index:idx_risk_level" json:"risk_level"`

	WhoisJSON      string `gorm:"type:longtext" json:"whois_json,omitempty"`
	WebsiteJSON    string `gorm:"type:longtext" json:"website_json,omitempty"`
	SocialJSON     string `gorm:"type:longtext" json:"social_json,omitempty"`
	AssessmentJSON string `gorm:"type:longtext" json:"assessment_json,omitempty"`
	WarningsJSON   string `gorm:"type:text" json:"warnings_json,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_report_created" json:"created_at"`
}

func (VetReport) TableName() string {
	return "vet_reports"
}
