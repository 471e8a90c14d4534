// Package domain holds the print-job state machine model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// JobType distinguishes single-order from bulk generation.
type JobType string

const (
	JobTypeSingle JobType = "single"
	JobTypeBulk   JobType = "bulk"
)

// JobStatus is the print-job state machine:
// queued -> processing -> {completed, failed, cancelled}.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status ends the state machine.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// PrintJob is owned exclusively by the orchestrator once created.
// Progress is overwritten, never accumulated, and is monotonic until a
// terminal status.
type PrintJob struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	Shop            string       `gorm:"type:text;not null;index"`
	Type            JobType      `gorm:"type:text;not null"`
	OrderIDs        []string     `gorm:"serializer:json;type:text;not null"`
	Layout          string       `gorm:"type:text"`
	Status          JobStatus    `gorm:"type:text;not null;default:'queued'"`
	Progress        int          `gorm:"not null;default:0"`
	CompletedCount  int          `gorm:"not null;default:0"`
	FailedCount     int          `gorm:"not null;default:0"`
	ArtifactKey     string       `gorm:"type:text"`
	Error           string       `gorm:"type:text"`
	CancelRequested bool         `gorm:"not null;default:false"`
	Attempts        int          `gorm:"not null;default:0"`
	LockToken       string       `gorm:"type:text"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	CompletedAt     *time.Time
}

// TableName sets the database table name.
func (PrintJob) TableName() string { return "print_jobs" }
