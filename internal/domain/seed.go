package domain

import "time"

// SeedStatus represents the status of a seed run.
type SeedStatus string

const (
	SeedStatusRunning   SeedStatus = "running"
	SeedStatusCompleted SeedStatus = "completed"
	SeedStatusFailed    SeedStatus = "failed"
)

// SeedRun records one execution of the seed command.
type SeedRun struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	Source      string     `gorm:"type:text;not null;index" json:"source"`
	Status      SeedStatus `gorm:"type:text;default:running" json:"status"`
	Total       int        `gorm:"default:0" json:"total"`
	Written     int        `gorm:"default:0" json:"written"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ErrorLog    string     `json:"error_log,omitempty"`
}

// TableName returns the database table name for SeedRun.
func (SeedRun) TableName() string {
	return "seed_runs"
}
