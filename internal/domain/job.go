package domain

import "time"

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// VetJob is one asynchronous vetting request. The row is created when the
// job is accepted and updated as the consumer works through it.
type VetJob struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Domain       string     `gorm:"type:varchar(255);index:idx_job_domain;not null" json:"domain"`
	InputURL     string     `gorm:"type:varchar(500)" json:"input_url,omitempty"`
	OrgName      string     `gorm:"type:varchar(255)" json:"org_name,omitempty"`
	Status       JobStatus  `gorm:"type:varchar(20);not null;default:'queued';index:idx_job_status" json:"status"`
	ErrorKind    string     `gorm:"type:varchar(30)" json:"error_kind,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount   int        `gorm:"type:tinyint;default:0" json:"retry_count"`
	ReportID     *uint      `json:"report_id,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	Report *VetReport `gorm:"foreignKey:ReportID;references:ID" json:"report,omitempty"`
}

func (VetJob) TableName() string {
	return "vet_jobs"
}
